package repository

import (
	"Warbler/internal/model"
	"context"
	"regexp"
	"time"

	"github.com/pkg/errors"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// UserRepo 用户存储，未找到时返回 nil, nil
type UserRepo interface {
	Create(ctx context.Context, user *model.User) error
	GetByID(ctx context.Context, id primitive.ObjectID) (*model.User, error)
	GetByIDs(ctx context.Context, ids []primitive.ObjectID) ([]*model.User, error)
	GetByUsername(ctx context.Context, username string) (*model.User, error)
	GetByEmail(ctx context.Context, email string) (*model.User, error)
	GetByLogin(ctx context.Context, emailOrUsername string) (*model.User, error)
	GetByGoogleIDOrEmail(ctx context.Context, googleID, email string) (*model.User, error)
	UsernameExists(ctx context.Context, username string) (bool, error)
	LinkGoogleID(ctx context.Context, id primitive.ObjectID, googleID string) error
	UpdateProfile(ctx context.Context, id primitive.ObjectID, update *model.ProfileUpdate) (*model.User, error)
	AddFollowing(ctx context.Context, userID, targetID primitive.ObjectID) (bool, error)
	RemoveFollowing(ctx context.Context, userID, targetID primitive.ObjectID) (bool, error)
	AddFollower(ctx context.Context, userID, followerID primitive.ObjectID) (bool, error)
	RemoveFollower(ctx context.Context, userID, followerID primitive.ObjectID) (bool, error)
	IncTweetCount(ctx context.Context, id primitive.ObjectID, delta int64) error
	Search(ctx context.Context, query string, excludeID primitive.ObjectID, skip, limit int64) ([]*model.User, int64, error)
	ListSuggested(ctx context.Context, exclude []primitive.ObjectID, limit int64) ([]*model.User, error)
}

type userRepoImpl struct {
	col *mongo.Collection
}

func NewUserRepo(db *mongo.Database) UserRepo {
	return &userRepoImpl{
		col: db.Collection(model.CollectionUsers),
	}
}

func (s *userRepoImpl) Create(ctx context.Context, user *model.User) error {
	now := time.Now()
	if user.ID.IsZero() {
		user.ID = primitive.NewObjectID()
	}
	if user.Followers == nil {
		user.Followers = []primitive.ObjectID{}
	}
	if user.Following == nil {
		user.Following = []primitive.ObjectID{}
	}
	user.CreatedAt = now
	user.UpdatedAt = now

	_, err := s.col.InsertOne(ctx, user)
	return translateWriteErr(err, "insert user")
}

func (s *userRepoImpl) findOne(ctx context.Context, filter bson.M, op string) (*model.User, error) {
	var user model.User
	err := s.col.FindOne(ctx, filter).Decode(&user)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil
		}
		return nil, errors.Wrap(err, op)
	}
	return &user, nil
}

func (s *userRepoImpl) GetByID(ctx context.Context, id primitive.ObjectID) (*model.User, error) {
	return s.findOne(ctx, bson.M{"_id": id}, "find user by id")
}

// GetByIDs 批量查询，返回顺序不保证与入参一致
func (s *userRepoImpl) GetByIDs(ctx context.Context, ids []primitive.ObjectID) ([]*model.User, error) {
	if len(ids) == 0 {
		return []*model.User{}, nil
	}
	cursor, err := s.col.Find(ctx, bson.M{"_id": bson.M{"$in": ids}})
	if err != nil {
		return nil, errors.Wrap(err, "find users by ids")
	}
	defer func() {
		_ = cursor.Close(ctx)
	}()

	var users []*model.User
	if err = cursor.All(ctx, &users); err != nil {
		return nil, errors.Wrap(err, "decode users")
	}
	return users, nil
}

func (s *userRepoImpl) GetByUsername(ctx context.Context, username string) (*model.User, error) {
	return s.findOne(ctx, bson.M{"username": username}, "find user by username")
}

func (s *userRepoImpl) GetByEmail(ctx context.Context, email string) (*model.User, error) {
	return s.findOne(ctx, bson.M{"email": email}, "find user by email")
}

// GetByLogin 按邮箱或用户名登录，两者均以小写存储
func (s *userRepoImpl) GetByLogin(ctx context.Context, emailOrUsername string) (*model.User, error) {
	filter := bson.M{"$or": bson.A{
		bson.M{"email": emailOrUsername},
		bson.M{"username": emailOrUsername},
	}}
	return s.findOne(ctx, filter, "find user by login")
}

func (s *userRepoImpl) GetByGoogleIDOrEmail(ctx context.Context, googleID, email string) (*model.User, error) {
	or := bson.A{bson.M{"email": email}}
	if googleID != "" {
		or = append(or, bson.M{"googleId": googleID})
	}
	return s.findOne(ctx, bson.M{"$or": or}, "find user by google id")
}

func (s *userRepoImpl) UsernameExists(ctx context.Context, username string) (bool, error) {
	n, err := s.col.CountDocuments(ctx, bson.M{"username": username}, options.Count().SetLimit(1))
	if err != nil {
		return false, errors.Wrap(err, "count username")
	}
	return n > 0, nil
}

func (s *userRepoImpl) LinkGoogleID(ctx context.Context, id primitive.ObjectID, googleID string) error {
	_, err := s.col.UpdateOne(ctx,
		bson.M{"_id": id},
		bson.M{"$set": bson.M{"googleId": googleID, "updatedAt": time.Now()}},
	)
	return translateWriteErr(err, "link google id")
}

func (s *userRepoImpl) UpdateProfile(ctx context.Context, id primitive.ObjectID, update *model.ProfileUpdate) (*model.User, error) {
	set := bson.M{"updatedAt": time.Now()}
	if update.Name != nil {
		set["name"] = *update.Name
	}
	if update.Bio != nil {
		set["bio"] = *update.Bio
	}
	if update.Location != nil {
		set["location"] = *update.Location
	}
	if update.Website != nil {
		set["website"] = *update.Website
	}
	if update.ProfilePic != nil {
		set["profilePic"] = *update.ProfilePic
	}
	if update.CoverPhoto != nil {
		set["coverPhoto"] = *update.CoverPhoto
	}

	var user model.User
	err := s.col.FindOneAndUpdate(ctx,
		bson.M{"_id": id},
		bson.M{"$set": set},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&user)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil
		}
		return nil, errors.Wrap(err, "update profile")
	}
	return &user, nil
}

// addEdge 条件更新：仅当 id 不在数组中时加入并计数 +1，返回是否发生变化
func (s *userRepoImpl) addEdge(ctx context.Context, userID primitive.ObjectID, field, counter string, id primitive.ObjectID) (bool, error) {
	res, err := s.col.UpdateOne(ctx,
		bson.M{"_id": userID, field: bson.M{"$ne": id}},
		bson.M{
			"$addToSet": bson.M{field: id},
			"$inc":      bson.M{counter: 1},
			"$set":      bson.M{"updatedAt": time.Now()},
		},
	)
	if err != nil {
		return false, errors.Wrapf(err, "add %s edge", field)
	}
	return res.ModifiedCount > 0, nil
}

// removeEdge 条件更新：仅当 id 在数组中时移除并计数 -1
func (s *userRepoImpl) removeEdge(ctx context.Context, userID primitive.ObjectID, field, counter string, id primitive.ObjectID) (bool, error) {
	res, err := s.col.UpdateOne(ctx,
		bson.M{"_id": userID, field: id},
		bson.M{
			"$pull": bson.M{field: id},
			"$inc":  bson.M{counter: -1},
			"$set":  bson.M{"updatedAt": time.Now()},
		},
	)
	if err != nil {
		return false, errors.Wrapf(err, "remove %s edge", field)
	}
	return res.ModifiedCount > 0, nil
}

func (s *userRepoImpl) AddFollowing(ctx context.Context, userID, targetID primitive.ObjectID) (bool, error) {
	return s.addEdge(ctx, userID, "following", "followingCount", targetID)
}

func (s *userRepoImpl) RemoveFollowing(ctx context.Context, userID, targetID primitive.ObjectID) (bool, error) {
	return s.removeEdge(ctx, userID, "following", "followingCount", targetID)
}

func (s *userRepoImpl) AddFollower(ctx context.Context, userID, followerID primitive.ObjectID) (bool, error) {
	return s.addEdge(ctx, userID, "followers", "followerCount", followerID)
}

func (s *userRepoImpl) RemoveFollower(ctx context.Context, userID, followerID primitive.ObjectID) (bool, error) {
	return s.removeEdge(ctx, userID, "followers", "followerCount", followerID)
}

// IncTweetCount 递减时计数不低于 0
func (s *userRepoImpl) IncTweetCount(ctx context.Context, id primitive.ObjectID, delta int64) error {
	filter := bson.M{"_id": id}
	if delta < 0 {
		filter["tweetCount"] = bson.M{"$gte": -delta}
	}
	_, err := s.col.UpdateOne(ctx, filter, bson.M{"$inc": bson.M{"tweetCount": delta}})
	return errors.Wrap(err, "inc tweet count")
}

// Search 按 name/username 模糊匹配，按粉丝数倒序
func (s *userRepoImpl) Search(ctx context.Context, query string, excludeID primitive.ObjectID, skip, limit int64) ([]*model.User, int64, error) {
	pattern := primitive.Regex{Pattern: regexp.QuoteMeta(query), Options: "i"}
	filter := bson.M{
		"_id": bson.M{"$ne": excludeID},
		"$or": bson.A{
			bson.M{"name": pattern},
			bson.M{"username": pattern},
		},
	}

	total, err := s.col.CountDocuments(ctx, filter)
	if err != nil {
		return nil, 0, errors.Wrap(err, "count search users")
	}

	opts := options.Find().
		SetSort(bson.D{{Key: "followerCount", Value: -1}, {Key: "_id", Value: 1}}).
		SetSkip(skip).
		SetLimit(limit)
	cursor, err := s.col.Find(ctx, filter, opts)
	if err != nil {
		return nil, 0, errors.Wrap(err, "search users")
	}
	defer func() {
		_ = cursor.Close(ctx)
	}()

	var users []*model.User
	if err = cursor.All(ctx, &users); err != nil {
		return nil, 0, errors.Wrap(err, "decode search users")
	}
	return users, total, nil
}

func (s *userRepoImpl) ListSuggested(ctx context.Context, exclude []primitive.ObjectID, limit int64) ([]*model.User, error) {
	opts := options.Find().
		SetSort(bson.D{{Key: "followerCount", Value: -1}, {Key: "_id", Value: 1}}).
		SetLimit(limit)
	cursor, err := s.col.Find(ctx, bson.M{"_id": bson.M{"$nin": exclude}}, opts)
	if err != nil {
		return nil, errors.Wrap(err, "find suggested users")
	}
	defer func() {
		_ = cursor.Close(ctx)
	}()

	var users []*model.User
	if err = cursor.All(ctx, &users); err != nil {
		return nil, errors.Wrap(err, "decode suggested users")
	}
	return users, nil
}
