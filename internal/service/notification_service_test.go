package service

import (
	"Warbler/internal/model"
	"Warbler/internal/pkg/realtime"
	"context"
	"errors"
	"testing"
)

func TestNotificationDedupWhileUnread(t *testing.T) {
	f := newFixture()
	alice := f.seedUser(t, "alice")
	bob := f.seedUser(t, "bob")
	tw := f.seedTweet(t, alice.ID, "hello")
	ctx := context.Background()

	// like, unlike, like：第二次点赞时首条通知仍未读，被去重
	for i := 0; i < 3; i++ {
		if _, err := f.tweets.ToggleLike(ctx, tw.ID.Hex(), bob.ID); err != nil {
			t.Fatal(err)
		}
	}
	likes := func() int {
		return f.store.CountNotifications(func(n *model.Notification) bool {
			return n.Type == model.NotificationLike && n.Recipient == alice.ID
		})
	}
	if got := likes(); got != 1 {
		t.Fatalf("like notifications = %d, want 1", got)
	}

	if err := f.notifications.MarkRead(ctx, alice.ID, ""); err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 2; i++ {
		if _, err := f.tweets.ToggleLike(ctx, tw.ID.Hex(), bob.ID); err != nil {
			t.Fatal(err)
		}
	}
	if got := likes(); got != 2 {
		t.Errorf("like notifications after read = %d, want 2", got)
	}
}

func TestNotificationSelfActionDropped(t *testing.T) {
	f := newFixture()
	alice := f.seedUser(t, "alice")
	tw := f.seedTweet(t, alice.ID, "hello")

	if n := f.notifications.Create(context.Background(), alice.ID, alice.ID, model.NotificationLike, &tw.ID); n != nil {
		t.Fatalf("self notification stored: %+v", n)
	}
	if f.emitter.count(realtime.EventNotification) != 0 || len(f.pusher.messages) != 0 {
		t.Errorf("self notification was fanned out")
	}
}

func TestNotificationFanOut(t *testing.T) {
	f := newFixture()
	alice := f.seedUser(t, "alice")
	bob := f.seedUser(t, "bob")

	n := f.notifications.Create(context.Background(), alice.ID, bob.ID, model.NotificationFollow, nil)
	if n == nil {
		t.Fatal("notification not stored")
	}
	var found bool
	for _, e := range f.emitter.events {
		if e.event == realtime.EventNotification && e.room == realtime.UserRoom(alice.ID.Hex()) {
			found = true
		}
	}
	if !found {
		t.Errorf("notification event not sent to recipient room")
	}
	if len(f.pusher.messages) != 1 {
		t.Fatalf("push messages = %d, want 1", len(f.pusher.messages))
	}
	msg := f.pusher.messages[0]
	if msg.UserID != alice.ID.Hex() || msg.Title != "New follower" || msg.Body != "bob started following you" {
		t.Errorf("push = %+v", msg)
	}
}

func TestNotificationListAndMarkRead(t *testing.T) {
	f := newFixture()
	alice := f.seedUser(t, "alice")
	bob := f.seedUser(t, "bob")
	carol := f.seedUser(t, "carol")
	tw := f.seedTweet(t, alice.ID, "hello")
	ctx := context.Background()

	f.notifications.Create(ctx, alice.ID, bob.ID, model.NotificationLike, &tw.ID)
	f.notifications.Create(ctx, alice.ID, carol.ID, model.NotificationLike, &tw.ID)
	latest := f.notifications.Create(ctx, alice.ID, carol.ID, model.NotificationFollow, nil)

	list, err := f.notifications.List(ctx, alice.ID, 1, 2)
	if err != nil {
		t.Fatal(err)
	}
	if len(list.Notifications) != 2 || list.UnreadCount != 3 || list.Pagination.TotalCount != 3 {
		t.Fatalf("list = %d unread=%d total=%d", len(list.Notifications), list.UnreadCount, list.Pagination.TotalCount)
	}
	first := list.Notifications[0]
	if first.ID != latest.ID.Hex() || first.Actor == nil || first.Actor.Username != "carol" {
		t.Errorf("newest first with actor expected, got %+v", first)
	}
	if second := list.Notifications[1]; second.Tweet == nil || second.Tweet.Text != "hello" {
		t.Errorf("tweet summary missing: %+v", second.Tweet)
	}

	if err = f.notifications.MarkRead(ctx, alice.ID, latest.ID.Hex()); err != nil {
		t.Fatal(err)
	}
	if unread, _ := f.notifications.UnreadCount(ctx, alice.ID); unread != 2 {
		t.Errorf("unread = %d, want 2", unread)
	}
	if err = f.notifications.MarkRead(ctx, bob.ID, latest.ID.Hex()); !errors.Is(err, ErrNotificationNotFound) {
		t.Errorf("foreign mark read: err = %v", err)
	}
	if err = f.notifications.MarkRead(ctx, alice.ID, "bad-id"); !errors.Is(err, ErrInvalidObjectID) {
		t.Errorf("malformed id: err = %v", err)
	}
	if err = f.notifications.MarkRead(ctx, alice.ID, ""); err != nil {
		t.Fatal(err)
	}
	if unread, _ := f.notifications.UnreadCount(ctx, alice.ID); unread != 0 {
		t.Errorf("unread after mark all = %d", unread)
	}
}
