// Package memory 提供与 Mongo 实现语义一致的内存仓储，用于单元测试
package memory

import (
	"Warbler/internal/model"
	"Warbler/internal/repository"
	"context"
	"errors"
	"sort"
	"strings"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Store 三个集合共用一把锁，便于测试中构造跨集合状态
type Store struct {
	mu            sync.Mutex
	users         map[primitive.ObjectID]*model.User
	tweets        map[primitive.ObjectID]*model.Tweet
	notifications map[primitive.ObjectID]*model.Notification
	clock         func() time.Time

	// FailAddFollower 非空时 AddFollower 返回该错误，用于模拟两步写入中途失败
	FailAddFollower error
}

func NewStore() *Store {
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	var tick int64
	return &Store{
		users:         make(map[primitive.ObjectID]*model.User),
		tweets:        make(map[primitive.ObjectID]*model.Tweet),
		notifications: make(map[primitive.ObjectID]*model.Notification),
		clock: func() time.Time {
			tick++
			return base.Add(time.Duration(tick) * time.Second)
		},
	}
}

func (s *Store) Users() repository.UserRepo                 { return &userRepo{s} }
func (s *Store) Tweets() repository.TweetRepo               { return &tweetRepo{s} }
func (s *Store) Notifications() repository.NotificationRepo { return &notificationRepo{s} }

// Tweet 读取原始文档副本，测试断言用
func (s *Store) Tweet(id primitive.ObjectID) *model.Tweet {
	s.mu.Lock()
	defer s.mu.Unlock()
	if t, ok := s.tweets[id]; ok {
		c := cloneTweet(t)
		return c
	}
	return nil
}

// User 读取原始文档副本，测试断言用
func (s *Store) User(id primitive.ObjectID) *model.User {
	s.mu.Lock()
	defer s.mu.Unlock()
	if u, ok := s.users[id]; ok {
		return cloneUser(u)
	}
	return nil
}

// CountNotifications 统计满足条件的通知数
func (s *Store) CountNotifications(match func(n *model.Notification) bool) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	count := 0
	for _, n := range s.notifications {
		if match(n) {
			count++
		}
	}
	return count
}

// CountTweets 统计满足条件的推文数，包括已删除的
func (s *Store) CountTweets(match func(t *model.Tweet) bool) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	count := 0
	for _, t := range s.tweets {
		if match(t) {
			count++
		}
	}
	return count
}

func cloneIDs(ids []primitive.ObjectID) []primitive.ObjectID {
	out := make([]primitive.ObjectID, len(ids))
	copy(out, ids)
	return out
}

func cloneUser(u *model.User) *model.User {
	c := *u
	c.Followers = cloneIDs(u.Followers)
	c.Following = cloneIDs(u.Following)
	return &c
}

func cloneTweet(t *model.Tweet) *model.Tweet {
	c := *t
	c.Media = append([]model.Media{}, t.Media...)
	c.Likes = cloneIDs(t.Likes)
	c.Retweets = cloneIDs(t.Retweets)
	c.Replies = cloneIDs(t.Replies)
	return &c
}

func indexOf(ids []primitive.ObjectID, id primitive.ObjectID) int {
	for i, v := range ids {
		if v == id {
			return i
		}
	}
	return -1
}

func removeAt(ids []primitive.ObjectID, id primitive.ObjectID) []primitive.ObjectID {
	out := ids[:0:0]
	for _, v := range ids {
		if v != id {
			out = append(out, v)
		}
	}
	return out
}

type userRepo struct{ s *Store }

func (r *userRepo) Create(_ context.Context, user *model.User) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, u := range r.s.users {
		if u.Username == user.Username {
			return repository.ErrDuplicateUsername
		}
		if u.Email == user.Email {
			return repository.ErrDuplicateEmail
		}
		if user.GoogleID != "" && u.GoogleID == user.GoogleID {
			return repository.ErrDuplicateGoogleID
		}
	}
	if user.ID.IsZero() {
		user.ID = primitive.NewObjectID()
	}
	now := r.s.clock()
	user.CreatedAt, user.UpdatedAt = now, now
	if user.Followers == nil {
		user.Followers = []primitive.ObjectID{}
	}
	if user.Following == nil {
		user.Following = []primitive.ObjectID{}
	}
	r.s.users[user.ID] = cloneUser(user)
	return nil
}

func (r *userRepo) find(match func(u *model.User) bool) *model.User {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, u := range r.s.users {
		if match(u) {
			return cloneUser(u)
		}
	}
	return nil
}

func (r *userRepo) GetByID(_ context.Context, id primitive.ObjectID) (*model.User, error) {
	return r.find(func(u *model.User) bool { return u.ID == id }), nil
}

func (r *userRepo) GetByIDs(_ context.Context, ids []primitive.ObjectID) ([]*model.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := make([]*model.User, 0, len(ids))
	seen := make(map[primitive.ObjectID]struct{})
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		if u, ok := r.s.users[id]; ok {
			out = append(out, cloneUser(u))
		}
	}
	return out, nil
}

func (r *userRepo) GetByUsername(_ context.Context, username string) (*model.User, error) {
	return r.find(func(u *model.User) bool { return u.Username == username }), nil
}

func (r *userRepo) GetByEmail(_ context.Context, email string) (*model.User, error) {
	return r.find(func(u *model.User) bool { return u.Email == email }), nil
}

func (r *userRepo) GetByLogin(_ context.Context, login string) (*model.User, error) {
	return r.find(func(u *model.User) bool { return u.Email == login || u.Username == login }), nil
}

func (r *userRepo) GetByGoogleIDOrEmail(_ context.Context, googleID, email string) (*model.User, error) {
	return r.find(func(u *model.User) bool {
		return u.Email == email || (googleID != "" && u.GoogleID == googleID)
	}), nil
}

func (r *userRepo) UsernameExists(_ context.Context, username string) (bool, error) {
	return r.find(func(u *model.User) bool { return u.Username == username }) != nil, nil
}

func (r *userRepo) LinkGoogleID(_ context.Context, id primitive.ObjectID, googleID string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if u, ok := r.s.users[id]; ok {
		u.GoogleID = googleID
	}
	return nil
}

func (r *userRepo) UpdateProfile(_ context.Context, id primitive.ObjectID, p *model.ProfileUpdate) (*model.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	u, ok := r.s.users[id]
	if !ok {
		return nil, nil
	}
	if p.Name != nil {
		u.Name = *p.Name
	}
	if p.Bio != nil {
		u.Bio = *p.Bio
	}
	if p.Location != nil {
		u.Location = *p.Location
	}
	if p.Website != nil {
		u.Website = *p.Website
	}
	if p.ProfilePic != nil {
		u.ProfilePic = *p.ProfilePic
	}
	if p.CoverPhoto != nil {
		u.CoverPhoto = *p.CoverPhoto
	}
	u.UpdatedAt = r.s.clock()
	return cloneUser(u), nil
}

func (r *userRepo) edge(userID, id primitive.ObjectID, following, add bool) bool {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	u, ok := r.s.users[userID]
	if !ok {
		return false
	}
	set, counter := &u.Followers, &u.FollowerCount
	if following {
		set, counter = &u.Following, &u.FollowingCount
	}
	present := indexOf(*set, id) >= 0
	switch {
	case add && !present:
		*set = append(*set, id)
		*counter++
		return true
	case !add && present:
		*set = removeAt(*set, id)
		*counter--
		return true
	}
	return false
}

func (r *userRepo) AddFollowing(_ context.Context, userID, targetID primitive.ObjectID) (bool, error) {
	return r.edge(userID, targetID, true, true), nil
}

func (r *userRepo) RemoveFollowing(_ context.Context, userID, targetID primitive.ObjectID) (bool, error) {
	return r.edge(userID, targetID, true, false), nil
}

func (r *userRepo) AddFollower(_ context.Context, userID, followerID primitive.ObjectID) (bool, error) {
	if r.s.FailAddFollower != nil {
		return false, r.s.FailAddFollower
	}
	return r.edge(userID, followerID, false, true), nil
}

func (r *userRepo) RemoveFollower(_ context.Context, userID, followerID primitive.ObjectID) (bool, error) {
	return r.edge(userID, followerID, false, false), nil
}

func (r *userRepo) IncTweetCount(_ context.Context, id primitive.ObjectID, delta int64) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if u, ok := r.s.users[id]; ok {
		if u.TweetCount+delta >= 0 {
			u.TweetCount += delta
		}
	}
	return nil
}

func sortByFollowers(users []*model.User) {
	sort.SliceStable(users, func(i, j int) bool {
		if users[i].FollowerCount != users[j].FollowerCount {
			return users[i].FollowerCount > users[j].FollowerCount
		}
		return users[i].ID.Hex() < users[j].ID.Hex()
	})
}

func page[T any](items []T, skip, limit int64) []T {
	if skip >= int64(len(items)) {
		return []T{}
	}
	end := int64(len(items))
	if limit > 0 && skip+limit < end {
		end = skip + limit
	}
	return items[skip:end]
}

func (r *userRepo) Search(_ context.Context, query string, excludeID primitive.ObjectID, skip, limit int64) ([]*model.User, int64, error) {
	r.s.mu.Lock()
	q := strings.ToLower(query)
	var matched []*model.User
	for _, u := range r.s.users {
		if u.ID == excludeID {
			continue
		}
		if strings.Contains(strings.ToLower(u.Name), q) || strings.Contains(strings.ToLower(u.Username), q) {
			matched = append(matched, cloneUser(u))
		}
	}
	r.s.mu.Unlock()
	sortByFollowers(matched)
	return page(matched, skip, limit), int64(len(matched)), nil
}

func (r *userRepo) ListSuggested(_ context.Context, exclude []primitive.ObjectID, limit int64) ([]*model.User, error) {
	r.s.mu.Lock()
	var out []*model.User
	for _, u := range r.s.users {
		if indexOf(exclude, u.ID) >= 0 {
			continue
		}
		out = append(out, cloneUser(u))
	}
	r.s.mu.Unlock()
	sortByFollowers(out)
	return page(out, 0, limit), nil
}

type tweetRepo struct{ s *Store }

func (r *tweetRepo) Create(_ context.Context, tweet *model.Tweet) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if tweet.ID.IsZero() {
		tweet.ID = primitive.NewObjectID()
	}
	now := r.s.clock()
	tweet.CreatedAt, tweet.UpdatedAt = now, now
	if tweet.Media == nil {
		tweet.Media = []model.Media{}
	}
	if tweet.Likes == nil {
		tweet.Likes = []primitive.ObjectID{}
	}
	if tweet.Retweets == nil {
		tweet.Retweets = []primitive.ObjectID{}
	}
	if tweet.Replies == nil {
		tweet.Replies = []primitive.ObjectID{}
	}
	r.s.tweets[tweet.ID] = cloneTweet(tweet)
	return nil
}

func (r *tweetRepo) GetByID(_ context.Context, id primitive.ObjectID) (*model.Tweet, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if t, ok := r.s.tweets[id]; ok {
		return cloneTweet(t), nil
	}
	return nil, nil
}

func (r *tweetRepo) GetByIDs(_ context.Context, ids []primitive.ObjectID) ([]*model.Tweet, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := make([]*model.Tweet, 0, len(ids))
	seen := make(map[primitive.ObjectID]struct{})
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		if t, ok := r.s.tweets[id]; ok {
			out = append(out, cloneTweet(t))
		}
	}
	return out, nil
}

func (r *tweetRepo) match(q repository.TweetQuery) []*model.Tweet {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []*model.Tweet
	for _, t := range r.s.tweets {
		if t.IsDeleted || !t.IsPublished {
			continue
		}
		if q.AuthorIn != nil && indexOf(q.AuthorIn, t.Author) < 0 {
			continue
		}
		if indexOf(q.AuthorNotIn, t.Author) >= 0 {
			continue
		}
		if q.ExcludeReplies && t.TweetType == model.TweetTypeReply {
			continue
		}
		out = append(out, cloneTweet(t))
	}
	return out
}

func (r *tweetRepo) Find(_ context.Context, q repository.TweetQuery) ([]*model.Tweet, error) {
	out := r.match(q)
	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if q.Sort == repository.SortEngagement {
			if a.LikeCount != b.LikeCount {
				return a.LikeCount > b.LikeCount
			}
			if a.RetweetCount != b.RetweetCount {
				return a.RetweetCount > b.RetweetCount
			}
			if a.ViewCount != b.ViewCount {
				return a.ViewCount > b.ViewCount
			}
		}
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.After(b.CreatedAt)
		}
		return a.ID.Hex() > b.ID.Hex()
	})
	return page(out, q.Skip, q.Limit), nil
}

func (r *tweetRepo) Count(_ context.Context, q repository.TweetQuery) (int64, error) {
	return int64(len(r.match(q))), nil
}

func (r *tweetRepo) AddReply(_ context.Context, parentID, replyID primitive.ObjectID) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if t, ok := r.s.tweets[parentID]; ok {
		t.Replies = append(t.Replies, replyID)
		t.ReplyCount++
	}
	return nil
}

func (r *tweetRepo) member(tweetID, userID primitive.ObjectID, retweet, add bool) *model.Tweet {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	t, ok := r.s.tweets[tweetID]
	if !ok || t.IsDeleted {
		return nil
	}
	set, counter := &t.Likes, &t.LikeCount
	if retweet {
		set, counter = &t.Retweets, &t.RetweetCount
	}
	present := indexOf(*set, userID) >= 0
	switch {
	case add && !present:
		*set = append(*set, userID)
		*counter++
	case !add && present:
		*set = removeAt(*set, userID)
		*counter--
	default:
		return nil
	}
	return cloneTweet(t)
}

func (r *tweetRepo) AddLike(_ context.Context, tweetID, userID primitive.ObjectID) (*model.Tweet, error) {
	return r.member(tweetID, userID, false, true), nil
}

func (r *tweetRepo) RemoveLike(_ context.Context, tweetID, userID primitive.ObjectID) (*model.Tweet, error) {
	return r.member(tweetID, userID, false, false), nil
}

func (r *tweetRepo) AddRetweet(_ context.Context, tweetID, userID primitive.ObjectID) (*model.Tweet, error) {
	return r.member(tweetID, userID, true, true), nil
}

func (r *tweetRepo) RemoveRetweet(_ context.Context, tweetID, userID primitive.ObjectID) (*model.Tweet, error) {
	return r.member(tweetID, userID, true, false), nil
}

func (r *tweetRepo) DeleteRetweetOf(_ context.Context, authorID, originalID primitive.ObjectID) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var n int64
	for id, t := range r.s.tweets {
		if t.Author == authorID && t.TweetType == model.TweetTypeRetweet &&
			t.RetweetOf != nil && *t.RetweetOf == originalID {
			delete(r.s.tweets, id)
			n++
		}
	}
	return n, nil
}

func (r *tweetRepo) SoftDelete(_ context.Context, id primitive.ObjectID) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if t, ok := r.s.tweets[id]; ok {
		t.IsDeleted = true
	}
	return nil
}

func (r *tweetRepo) IncViewCount(_ context.Context, id primitive.ObjectID) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if t, ok := r.s.tweets[id]; ok {
		t.ViewCount++
	}
	return nil
}

type notificationRepo struct{ s *Store }

func (r *notificationRepo) Create(_ context.Context, n *model.Notification) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if n.ID.IsZero() {
		n.ID = primitive.NewObjectID()
	}
	now := r.s.clock()
	n.CreatedAt, n.UpdatedAt = now, now
	c := *n
	r.s.notifications[n.ID] = &c
	return nil
}

func (r *notificationRepo) FindUnreadDuplicate(_ context.Context, n *model.Notification, since time.Time) (*model.Notification, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var best *model.Notification
	for _, e := range r.s.notifications {
		if e.Recipient != n.Recipient || e.Actor != n.Actor || e.Type != n.Type || e.Read {
			continue
		}
		if n.Tweet != nil && (e.Tweet == nil || *e.Tweet != *n.Tweet) {
			continue
		}
		if !since.IsZero() && e.CreatedAt.Before(since) {
			continue
		}
		if best == nil || e.CreatedAt.After(best.CreatedAt) {
			best = e
		}
	}
	if best == nil {
		return nil, nil
	}
	c := *best
	return &c, nil
}

func (r *notificationRepo) sorted(recipient primitive.ObjectID) []*model.Notification {
	var out []*model.Notification
	for _, n := range r.s.notifications {
		if n.Recipient == recipient {
			c := *n
			out = append(out, &c)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID.Hex() > out[j].ID.Hex()
	})
	return out
}

func (r *notificationRepo) List(_ context.Context, recipient primitive.ObjectID, skip, limit int64) ([]*model.Notification, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return page(r.sorted(recipient), skip, limit), nil
}

func (r *notificationRepo) CountUnread(_ context.Context, recipient primitive.ObjectID) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var n int64
	for _, e := range r.s.notifications {
		if e.Recipient == recipient && !e.Read {
			n++
		}
	}
	return n, nil
}

func (r *notificationRepo) CountAll(_ context.Context, recipient primitive.ObjectID) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return int64(len(r.sorted(recipient))), nil
}

func (r *notificationRepo) MarkRead(_ context.Context, recipient, id primitive.ObjectID) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	n, ok := r.s.notifications[id]
	if !ok || n.Recipient != recipient {
		return false, nil
	}
	n.Read = true
	return true, nil
}

func (r *notificationRepo) MarkAllRead(_ context.Context, recipient primitive.ObjectID) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var count int64
	for _, n := range r.s.notifications {
		if n.Recipient == recipient && !n.Read {
			n.Read = true
			count++
		}
	}
	return count, nil
}

// ErrInjected 测试中注入的失败
var ErrInjected = errors.New("injected failure")
