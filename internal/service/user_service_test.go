package service

import (
	"Warbler/internal/api/dto"
	"Warbler/internal/pkg/es"
	"context"
	"errors"
	"testing"
)

type fakeUserIndex struct {
	ids     []string
	err     error
	indexed []*es.UserES
}

func (f *fakeUserIndex) IndexUser(_ context.Context, doc *es.UserES) error {
	f.indexed = append(f.indexed, doc)
	return nil
}

func (f *fakeUserIndex) SearchUsers(_ context.Context, _, _ string, _, _ int) ([]string, int64, error) {
	return f.ids, int64(len(f.ids)), f.err
}

func TestGetProfileCaseInsensitive(t *testing.T) {
	f := newFixture()
	alice := f.seedUser(t, "alice")
	bob := f.seedUser(t, "bob")
	f.follow(t, bob.ID, alice.ID)
	ctx := context.Background()

	for _, name := range []string{"alice", "Alice", "ALICE"} {
		res, err := f.users.GetProfileByUsername(ctx, name, bob.ID)
		if err != nil {
			t.Fatalf("GetProfileByUsername(%s): %v", name, err)
		}
		if res.ID != alice.ID.Hex() || !res.IsFollowing {
			t.Errorf("%s: id=%s isFollowing=%v", name, res.ID, res.IsFollowing)
		}
		if res.Email != "" {
			t.Errorf("email leaked to other users")
		}
	}

	self, err := f.users.GetProfileByID(ctx, bob.ID.Hex(), bob.ID)
	if err != nil {
		t.Fatal(err)
	}
	if self.Email != "bob@example.com" {
		t.Errorf("own profile should carry email, got %q", self.Email)
	}
	if _, err = f.users.GetProfileByUsername(ctx, "nobody", bob.ID); !errors.Is(err, ErrUserNotFound) {
		t.Errorf("err = %v, want ErrUserNotFound", err)
	}
}

func TestUpdateProfile(t *testing.T) {
	f := newFixture()
	alice := f.seedUser(t, "alice")
	index := &fakeUserIndex{}
	svc := NewUserService(f.store.Users(), index)

	bio := "hello there"
	res, err := svc.UpdateProfile(context.Background(), alice.ID, &dto.UpdateProfileDTO{Bio: &bio})
	if err != nil {
		t.Fatal(err)
	}
	if res.Bio != bio || res.Name != "alice" {
		t.Errorf("profile = %+v", res)
	}
	if len(index.indexed) != 1 || index.indexed[0].Username != "alice" {
		t.Errorf("search index not synced: %+v", index.indexed)
	}
}

func TestSearchUsers(t *testing.T) {
	f := newFixture()
	alice := f.seedUser(t, "alice")
	alina := f.seedUser(t, "alina")
	f.seedUser(t, "bob")
	f.follow(t, alice.ID, alina.ID)
	ctx := context.Background()

	if _, err := f.users.Search(ctx, alice.ID, &dto.SearchUserDTO{Q: "  "}); !errors.Is(err, ErrSearchQueryRequired) {
		t.Errorf("empty query err = %v", err)
	}

	res, err := f.users.Search(ctx, alice.ID, &dto.SearchUserDTO{Q: "ali"})
	if err != nil {
		t.Fatal(err)
	}
	if len(res.Users) != 1 || res.Users[0].Username != "alina" || !res.Users[0].IsFollowing {
		t.Errorf("search excludes self and flags follow: %+v", res.Users)
	}

	failing := NewUserService(f.store.Users(), &fakeUserIndex{err: errors.New("es down")})
	res, err = failing.Search(ctx, alice.ID, &dto.SearchUserDTO{Q: "ali"})
	if err != nil {
		t.Fatalf("fallback search: %v", err)
	}
	if len(res.Users) != 1 {
		t.Errorf("fallback results = %d, want 1", len(res.Users))
	}

	indexed := NewUserService(f.store.Users(), &fakeUserIndex{ids: []string{alina.ID.Hex(), "garbage"}})
	res, err = indexed.Search(ctx, alice.ID, &dto.SearchUserDTO{Q: "whatever"})
	if err != nil {
		t.Fatal(err)
	}
	if len(res.Users) != 1 || res.Users[0].ID != alina.ID.Hex() {
		t.Errorf("index results = %+v", res.Users)
	}
}

func TestSuggestedUsers(t *testing.T) {
	f := newFixture()
	alice := f.seedUser(t, "alice")
	bob := f.seedUser(t, "bob")
	carol := f.seedUser(t, "carol")
	dave := f.seedUser(t, "dave")
	f.follow(t, alice.ID, bob.ID)
	f.follow(t, dave.ID, carol.ID)

	res, err := f.users.Suggested(context.Background(), alice.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(res) != 2 {
		t.Fatalf("suggested = %d, want 2", len(res))
	}
	if res[0].Username != "carol" {
		t.Errorf("most followed first, got %s", res[0].Username)
	}
	for _, u := range res {
		if u.ID == alice.ID.Hex() || u.ID == bob.ID.Hex() {
			t.Errorf("suggested contains self or followed user %s", u.Username)
		}
	}
}
