package service

import (
	"Warbler/internal/model"
	"Warbler/internal/pkg/push"
	"Warbler/internal/repository/memory"
	"context"
	"sync"
	"testing"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type emitted struct {
	room   string
	event  string
	data   any
	except string
}

// fakeEmitter 记录所有实时事件
type fakeEmitter struct {
	mu     sync.Mutex
	events []emitted
}

func (f *fakeEmitter) ToRoom(_ context.Context, room, event string, data any) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, emitted{room: room, event: event, data: data})
}

func (f *fakeEmitter) Broadcast(_ context.Context, event string, data any, exceptConn string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, emitted{event: event, data: data, except: exceptConn})
}

func (f *fakeEmitter) count(event string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, e := range f.events {
		if e.event == event {
			n++
		}
	}
	return n
}

type fakePusher struct {
	mu       sync.Mutex
	messages []push.Message
}

func (f *fakePusher) Dispatch(_ context.Context, msg push.Message) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.messages = append(f.messages, msg)
}

type fakeClaimer struct {
	urls []string
}

func (f *fakeClaimer) Claim(_ context.Context, urls []string) {
	f.urls = append(f.urls, urls...)
}

type fixture struct {
	store         *memory.Store
	emitter       *fakeEmitter
	pusher        *fakePusher
	claimer       *fakeClaimer
	notifications NotificationService
	tweets        TweetService
	feed          FeedService
	follows       FollowService
	users         UserService
}

func newFixture() *fixture {
	store := memory.NewStore()
	f := &fixture{
		store:   store,
		emitter: &fakeEmitter{},
		pusher:  &fakePusher{},
		claimer: &fakeClaimer{},
	}
	f.notifications = NewNotificationService(store.Notifications(), store.Users(), store.Tweets(), f.emitter, f.pusher, 0)
	f.tweets = NewTweetService(store.Tweets(), store.Users(), f.notifications, f.emitter, f.claimer)
	f.feed = NewFeedService(store.Tweets(), store.Users())
	f.follows = NewFollowService(store.Users(), f.notifications)
	f.users = NewUserService(store.Users(), nil)
	return f
}

func (f *fixture) seedUser(t *testing.T, username string) *model.User {
	t.Helper()
	u := &model.User{
		Name:         username,
		Username:     username,
		Email:        username + "@example.com",
		AuthProvider: model.AuthProviderLocal,
	}
	if err := f.store.Users().Create(context.Background(), u); err != nil {
		t.Fatalf("seed user %s: %v", username, err)
	}
	return u
}

func (f *fixture) seedTweet(t *testing.T, author primitive.ObjectID, text string) *model.Tweet {
	t.Helper()
	tw := &model.Tweet{
		Author:      author,
		Text:        text,
		TweetType:   model.TweetTypeTweet,
		IsPublished: true,
	}
	if err := f.store.Tweets().Create(context.Background(), tw); err != nil {
		t.Fatalf("seed tweet: %v", err)
	}
	return tw
}

func (f *fixture) follow(t *testing.T, self, target primitive.ObjectID) {
	t.Helper()
	res, err := f.follows.ToggleFollow(context.Background(), self, target.Hex())
	if err != nil {
		t.Fatalf("follow: %v", err)
	}
	if !res.Following {
		t.Fatalf("expected follow, got unfollow")
	}
}
