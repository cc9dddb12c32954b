package service

import (
	"Warbler/internal/api/dto"
	"Warbler/internal/model"
	"Warbler/internal/pkg/consts"
	"Warbler/internal/pkg/util"
	"Warbler/internal/repository"
	"context"
	"strings"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type FollowService interface {
	ToggleFollow(ctx context.Context, selfID primitive.ObjectID, targetID string) (*dto.FollowResultDTO, error)
	Followers(ctx context.Context, username string, viewerID primitive.ObjectID, page, limit int) (*dto.UserListDTO, error)
	Following(ctx context.Context, username string, viewerID primitive.ObjectID, page, limit int) (*dto.UserListDTO, error)
}

type FollowServiceImpl struct {
	users         repository.UserRepo
	notifications NotificationService
}

func NewFollowService(users repository.UserRepo, notifications NotificationService) FollowService {
	return &FollowServiceImpl{
		users:         users,
		notifications: notifications,
	}
}

// ToggleFollow 关注或取消关注。两侧各自是原子条件更新，但两步之间不是事务，
// 第二步失败时关系会不对称
func (s *FollowServiceImpl) ToggleFollow(ctx context.Context, selfID primitive.ObjectID, targetID string) (*dto.FollowResultDTO, error) {
	target, ok := util.ParseObjectID(targetID)
	if !ok {
		return nil, ErrInvalidObjectID
	}
	if target == selfID {
		return nil, ErrUserFollowSelf
	}

	self, err := s.users.GetByID(ctx, selfID)
	if err != nil {
		return nil, err
	}
	if self == nil {
		return nil, ErrUserNotFound
	}
	targetUser, err := s.users.GetByID(ctx, target)
	if err != nil {
		return nil, err
	}
	if targetUser == nil {
		return nil, ErrUserNotFound
	}

	following := !self.IsFollowing(target)
	if following {
		if _, err = s.users.AddFollowing(ctx, selfID, target); err != nil {
			return nil, err
		}
		if _, err = s.users.AddFollower(ctx, target, selfID); err != nil {
			return nil, err
		}
	} else {
		if _, err = s.users.RemoveFollowing(ctx, selfID, target); err != nil {
			return nil, err
		}
		if _, err = s.users.RemoveFollower(ctx, target, selfID); err != nil {
			return nil, err
		}
	}

	updated, err := s.users.GetByID(ctx, target)
	if err != nil {
		return nil, err
	}
	count := targetUser.FollowerCount
	if updated != nil {
		count = updated.FollowerCount
	}

	if following {
		s.notifications.Create(ctx, target, selfID, model.NotificationFollow, nil)
	}
	return &dto.FollowResultDTO{Following: following, FollowerCount: count}, nil
}

func (s *FollowServiceImpl) Followers(ctx context.Context, username string, viewerID primitive.ObjectID, page, limit int) (*dto.UserListDTO, error) {
	return s.listEdges(ctx, username, viewerID, page, limit, func(u *model.User) []primitive.ObjectID {
		return u.Followers
	})
}

func (s *FollowServiceImpl) Following(ctx context.Context, username string, viewerID primitive.ObjectID, page, limit int) (*dto.UserListDTO, error) {
	return s.listEdges(ctx, username, viewerID, page, limit, func(u *model.User) []primitive.ObjectID {
		return u.Following
	})
}

// listEdges 关系数组按加入顺序保存，最新的排在前面返回
func (s *FollowServiceImpl) listEdges(
	ctx context.Context,
	username string,
	viewerID primitive.ObjectID,
	page, limit int,
	edges func(u *model.User) []primitive.ObjectID,
) (*dto.UserListDTO, error) {
	page, limit = util.NormalizePage(page, limit, consts.MaxFeedLimit)

	owner, err := s.users.GetByUsername(ctx, strings.ToLower(username))
	if err != nil {
		return nil, err
	}
	if owner == nil {
		return nil, ErrUserNotFound
	}

	all := edges(owner)
	ids := make([]primitive.ObjectID, 0, len(all))
	for i := len(all) - 1; i >= 0; i-- {
		ids = append(ids, all[i])
	}
	total := int64(len(ids))

	start := (page - 1) * limit
	if start > len(ids) {
		start = len(ids)
	}
	end := start + limit
	if end > len(ids) {
		end = len(ids)
	}
	window := ids[start:end]

	viewer, err := s.users.GetByID(ctx, viewerID)
	if err != nil {
		return nil, err
	}

	users := make([]*dto.UserDTO, 0, len(window))
	if len(window) > 0 {
		found, err := s.users.GetByIDs(ctx, window)
		if err != nil {
			return nil, err
		}
		byID := make(map[primitive.ObjectID]*model.User, len(found))
		for _, u := range found {
			byID[u.ID] = u
		}
		for _, id := range window {
			if u, ok := byID[id]; ok {
				users = append(users, toPublicUserDTO(u, viewer))
			}
		}
	}

	return &dto.UserListDTO{
		Users:      users,
		Pagination: newPagination(page, limit, total),
	}, nil
}
