package service

import (
	"Warbler/internal/model"
	"context"
	"errors"
	"strings"
	"testing"
)

func TestToggleFollowSelfAnyCase(t *testing.T) {
	f := newFixture()
	alice := f.seedUser(t, "alice")
	ctx := context.Background()

	for _, id := range []string{alice.ID.Hex(), strings.ToUpper(alice.ID.Hex())} {
		if _, err := f.follows.ToggleFollow(ctx, alice.ID, id); !errors.Is(err, ErrUserFollowSelf) {
			t.Errorf("ToggleFollow(%s) err = %v, want ErrUserFollowSelf", id, err)
		}
	}
	if u := f.store.User(alice.ID); len(u.Following) != 0 || u.FollowingCount != 0 {
		t.Errorf("self-follow mutated the graph: %+v", u)
	}
}

func TestToggleFollowRoundTrip(t *testing.T) {
	f := newFixture()
	alice := f.seedUser(t, "alice")
	bob := f.seedUser(t, "bob")
	ctx := context.Background()

	res, err := f.follows.ToggleFollow(ctx, alice.ID, bob.ID.Hex())
	if err != nil {
		t.Fatal(err)
	}
	if !res.Following || res.FollowerCount != 1 {
		t.Fatalf("follow result = %+v", res)
	}
	a, b := f.store.User(alice.ID), f.store.User(bob.ID)
	if a.FollowingCount != 1 || b.FollowerCount != 1 || !a.IsFollowing(bob.ID) {
		t.Fatalf("after follow: alice=%d bob=%d", a.FollowingCount, b.FollowerCount)
	}
	follows := f.store.CountNotifications(func(n *model.Notification) bool {
		return n.Type == model.NotificationFollow && n.Recipient == bob.ID
	})
	if follows != 1 {
		t.Errorf("follow notifications = %d, want 1", follows)
	}

	res, err = f.follows.ToggleFollow(ctx, alice.ID, bob.ID.Hex())
	if err != nil {
		t.Fatal(err)
	}
	if res.Following || res.FollowerCount != 0 {
		t.Fatalf("unfollow result = %+v", res)
	}
	a, b = f.store.User(alice.ID), f.store.User(bob.ID)
	if a.FollowingCount != 0 || b.FollowerCount != 0 || len(b.Followers) != 0 {
		t.Errorf("after unfollow: alice=%d bob=%d", a.FollowingCount, b.FollowerCount)
	}
}

func TestToggleFollowMissingTarget(t *testing.T) {
	f := newFixture()
	alice := f.seedUser(t, "alice")
	ctx := context.Background()

	if _, err := f.follows.ToggleFollow(ctx, alice.ID, "0123456789abcdef01234567"); !errors.Is(err, ErrUserNotFound) {
		t.Errorf("err = %v, want ErrUserNotFound", err)
	}
	if _, err := f.follows.ToggleFollow(ctx, alice.ID, "xyz"); !errors.Is(err, ErrInvalidObjectID) {
		t.Errorf("err = %v, want ErrInvalidObjectID", err)
	}
}

// 第二步写入失败时关注关系只剩单边
func TestToggleFollowPartialFailureLeavesAsymmetry(t *testing.T) {
	f := newFixture()
	alice := f.seedUser(t, "alice")
	bob := f.seedUser(t, "bob")
	boom := errors.New("write failed")
	f.store.FailAddFollower = boom

	if _, err := f.follows.ToggleFollow(context.Background(), alice.ID, bob.ID.Hex()); !errors.Is(err, boom) {
		t.Fatalf("err = %v, want %v", err, boom)
	}
	a, b := f.store.User(alice.ID), f.store.User(bob.ID)
	if !a.IsFollowing(bob.ID) || a.FollowingCount != 1 {
		t.Errorf("self side should be written")
	}
	if len(b.Followers) != 0 || b.FollowerCount != 0 {
		t.Errorf("target side should be untouched")
	}
}

func TestFollowersListing(t *testing.T) {
	f := newFixture()
	alice := f.seedUser(t, "alice")
	bob := f.seedUser(t, "bob")
	carol := f.seedUser(t, "carol")
	dave := f.seedUser(t, "dave")
	f.follow(t, bob.ID, alice.ID)
	f.follow(t, carol.ID, alice.ID)
	f.follow(t, dave.ID, alice.ID)
	f.follow(t, dave.ID, bob.ID)
	ctx := context.Background()

	res, err := f.follows.Followers(ctx, "ALICE", dave.ID, 1, 2)
	if err != nil {
		t.Fatal(err)
	}
	if res.Pagination.TotalCount != 3 || res.Pagination.TotalPages != 2 {
		t.Errorf("pagination = %+v", res.Pagination)
	}
	if len(res.Users) != 2 || res.Users[0].Username != "dave" || res.Users[1].Username != "carol" {
		t.Fatalf("users = %v", res.Users)
	}

	res, err = f.follows.Followers(ctx, "alice", dave.ID, 2, 2)
	if err != nil {
		t.Fatal(err)
	}
	if len(res.Users) != 1 || res.Users[0].Username != "bob" || !res.Users[0].IsFollowing {
		t.Errorf("page 2 = %+v", res.Users)
	}

	following, err := f.follows.Following(ctx, "dave", alice.ID, 1, 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(following.Users) != 2 {
		t.Errorf("following = %d, want 2", len(following.Users))
	}
	if _, err = f.follows.Following(ctx, "nobody", alice.ID, 1, 10); !errors.Is(err, ErrUserNotFound) {
		t.Errorf("err = %v, want ErrUserNotFound", err)
	}
}
