package service

import (
	"Warbler/internal/api/dto"
	"Warbler/internal/model"
	"Warbler/internal/pkg/consts"
	"Warbler/internal/pkg/es"
	"Warbler/internal/pkg/util"
	"Warbler/internal/repository"
	"context"
	log "log/slog"
	"strings"

	"github.com/jinzhu/copier"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type UserService interface {
	GetProfileByID(ctx context.Context, id string, viewerID primitive.ObjectID) (*dto.UserDTO, error)
	GetProfileByUsername(ctx context.Context, username string, viewerID primitive.ObjectID) (*dto.UserDTO, error)
	UpdateProfile(ctx context.Context, userID primitive.ObjectID, req *dto.UpdateProfileDTO) (*dto.UserDTO, error)
	Search(ctx context.Context, viewerID primitive.ObjectID, req *dto.SearchUserDTO) (*dto.UserListDTO, error)
	Suggested(ctx context.Context, viewerID primitive.ObjectID) ([]*dto.UserDTO, error)
}

type UserServiceImpl struct {
	users repository.UserRepo
	index es.UserRepo
}

// NewUserService index 可以为 nil，此时搜索直接走 Mongo
func NewUserService(users repository.UserRepo, index es.UserRepo) UserService {
	return &UserServiceImpl{
		users: users,
		index: index,
	}
}

func (s *UserServiceImpl) profile(ctx context.Context, user *model.User, viewerID primitive.ObjectID) (*dto.UserDTO, error) {
	if user == nil {
		return nil, ErrUserNotFound
	}
	if user.ID == viewerID {
		return toSelfDTO(user), nil
	}
	viewer, err := s.users.GetByID(ctx, viewerID)
	if err != nil {
		return nil, err
	}
	return toPublicUserDTO(user, viewer), nil
}

func (s *UserServiceImpl) GetProfileByID(ctx context.Context, id string, viewerID primitive.ObjectID) (*dto.UserDTO, error) {
	uid, ok := util.ParseObjectID(id)
	if !ok {
		return nil, ErrInvalidObjectID
	}
	user, err := s.users.GetByID(ctx, uid)
	if err != nil {
		return nil, err
	}
	return s.profile(ctx, user, viewerID)
}

func (s *UserServiceImpl) GetProfileByUsername(ctx context.Context, username string, viewerID primitive.ObjectID) (*dto.UserDTO, error) {
	user, err := s.users.GetByUsername(ctx, strings.ToLower(username))
	if err != nil {
		return nil, err
	}
	return s.profile(ctx, user, viewerID)
}

func (s *UserServiceImpl) UpdateProfile(ctx context.Context, userID primitive.ObjectID, req *dto.UpdateProfileDTO) (*dto.UserDTO, error) {
	update := &model.ProfileUpdate{}
	if err := copier.Copy(update, req); err != nil {
		return nil, err
	}

	var (
		user *model.User
		err  error
	)
	if update.IsEmpty() {
		user, err = s.users.GetByID(ctx, userID)
	} else {
		user, err = s.users.UpdateProfile(ctx, userID, update)
	}
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, ErrUserNotFound
	}

	syncUserIndex(ctx, s.index, user)
	return toSelfDTO(user), nil
}

// Search 优先使用搜索索引，索引不可用或出错时退回 Mongo 正则搜索
func (s *UserServiceImpl) Search(ctx context.Context, viewerID primitive.ObjectID, req *dto.SearchUserDTO) (*dto.UserListDTO, error) {
	q := strings.TrimSpace(req.Q)
	if q == "" {
		return nil, ErrSearchQueryRequired
	}
	page, limit := util.NormalizePage(req.Page, req.Limit, consts.MaxFeedLimit)
	skip := (page - 1) * limit

	users, total, err := s.searchIndex(ctx, q, viewerID, skip, limit)
	if err != nil {
		log.WarnContext(ctx, "user index search failed, falling back to mongo", "err", err)
	}
	if users == nil {
		users, total, err = s.users.Search(ctx, q, viewerID, int64(skip), int64(limit))
		if err != nil {
			return nil, err
		}
	}

	viewer, err := s.users.GetByID(ctx, viewerID)
	if err != nil {
		return nil, err
	}
	out := make([]*dto.UserDTO, 0, len(users))
	for _, u := range users {
		out = append(out, toPublicUserDTO(u, viewer))
	}
	return &dto.UserListDTO{Users: out, Pagination: newPagination(page, limit, total)}, nil
}

// searchIndex 索引命中的 id 回到 Mongo 取完整文档，保持索引的排序
func (s *UserServiceImpl) searchIndex(ctx context.Context, q string, viewerID primitive.ObjectID, skip, limit int) ([]*model.User, int64, error) {
	if s.index == nil {
		return nil, 0, nil
	}
	hexIDs, total, err := s.index.SearchUsers(ctx, q, viewerID.Hex(), skip, limit)
	if err != nil {
		return nil, 0, err
	}

	ids := make([]primitive.ObjectID, 0, len(hexIDs))
	for _, h := range hexIDs {
		if id, ok := util.ParseObjectID(h); ok {
			ids = append(ids, id)
		}
	}
	found, err := s.users.GetByIDs(ctx, ids)
	if err != nil {
		return nil, 0, err
	}
	byID := make(map[primitive.ObjectID]*model.User, len(found))
	for _, u := range found {
		byID[u.ID] = u
	}
	users := make([]*model.User, 0, len(ids))
	for _, id := range ids {
		if u, ok := byID[id]; ok {
			users = append(users, u)
		}
	}
	return users, total, nil
}

// Suggested 未关注且非本人的用户，按粉丝数倒序
func (s *UserServiceImpl) Suggested(ctx context.Context, viewerID primitive.ObjectID) ([]*dto.UserDTO, error) {
	viewer, err := s.users.GetByID(ctx, viewerID)
	if err != nil {
		return nil, err
	}
	if viewer == nil {
		return nil, ErrUserNotFound
	}

	exclude := append([]primitive.ObjectID{viewerID}, viewer.Following...)
	users, err := s.users.ListSuggested(ctx, exclude, consts.SuggestedLimit)
	if err != nil {
		return nil, err
	}
	out := make([]*dto.UserDTO, 0, len(users))
	for _, u := range users {
		out = append(out, toPublicUserDTO(u, viewer))
	}
	return out, nil
}

// syncUserIndex 搜索索引只是副本，写入失败只记录日志
func syncUserIndex(ctx context.Context, index es.UserRepo, user *model.User) {
	if index == nil || user == nil {
		return
	}
	doc := &es.UserES{}
	_ = copier.CopyWithOption(doc, user, copyOption)
	if err := index.IndexUser(ctx, doc); err != nil {
		log.WarnContext(ctx, "sync user index failed", "user_id", user.ID.Hex(), "err", err)
	}
}
