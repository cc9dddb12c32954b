package service

import (
	"Warbler/internal/api/dto"
	"Warbler/internal/model"
	"Warbler/internal/repository"
	"context"

	"github.com/jinzhu/copier"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// copyOption 让 copier 把 ObjectID 字段复制为十六进制字符串
var copyOption = copier.Option{
	Converters: []copier.TypeConverter{
		{
			SrcType: primitive.ObjectID{},
			DstType: copier.String,
			Fn: func(src interface{}) (interface{}, error) {
				return src.(primitive.ObjectID).Hex(), nil
			},
		},
	},
}

func toUserDTO(u *model.User, viewer *model.User) *dto.UserDTO {
	if u == nil {
		return nil
	}
	out := &dto.UserDTO{}
	_ = copier.CopyWithOption(out, u, copyOption)
	if viewer != nil {
		out.IsFollowing = viewer.IsFollowing(u.ID)
	}
	return out
}

// toSelfDTO 当前用户自己的资料，保留邮箱
func toSelfDTO(u *model.User) *dto.UserDTO {
	return toUserDTO(u, nil)
}

// toPublicUserDTO 他人资料不返回邮箱与登录方式
func toPublicUserDTO(u *model.User, viewer *model.User) *dto.UserDTO {
	out := toUserDTO(u, viewer)
	if out != nil {
		out.Email = ""
		out.AuthProvider = ""
	}
	return out
}

func toUserSummary(u *model.User) *dto.UserSummaryDTO {
	if u == nil {
		return nil
	}
	out := &dto.UserSummaryDTO{}
	_ = copier.CopyWithOption(out, u, copyOption)
	return out
}

func hexOrEmpty(id *primitive.ObjectID) string {
	if id == nil {
		return ""
	}
	return id.Hex()
}

// baseTweetDTO 只复制推文自身字段，不填充引用
func baseTweetDTO(t *model.Tweet, author *model.User, viewer primitive.ObjectID) *dto.TweetDTO {
	out := &dto.TweetDTO{}
	_ = copier.CopyWithOption(out, t, copyOption)
	if out.Media == nil {
		out.Media = []dto.MediaDTO{}
	}
	out.Author = toUserSummary(author)
	out.ReplyTo = hexOrEmpty(t.ReplyTo)
	out.ReplyToUser = hexOrEmpty(t.ReplyToUser)
	out.IsLiked = t.LikedBy(viewer)
	out.IsRetweeted = t.RetweetedBy(viewer)
	return out
}

// tweetHydrator 批量填充作者、被转推/被引用的原推以及当前用户的点赞转推状态
type tweetHydrator struct {
	users  repository.UserRepo
	tweets repository.TweetRepo
}

func (h *tweetHydrator) hydrate(ctx context.Context, list []*model.Tweet, viewer primitive.ObjectID) ([]*dto.TweetDTO, error) {
	out := make([]*dto.TweetDTO, 0, len(list))
	if len(list) == 0 {
		return out, nil
	}

	var refIDs []primitive.ObjectID
	for _, t := range list {
		if t.RetweetOf != nil {
			refIDs = append(refIDs, *t.RetweetOf)
		}
		if t.QuotedTweet != nil {
			refIDs = append(refIDs, *t.QuotedTweet)
		}
	}
	refs := make(map[primitive.ObjectID]*model.Tweet)
	if len(refIDs) > 0 {
		originals, err := h.tweets.GetByIDs(ctx, refIDs)
		if err != nil {
			return nil, err
		}
		for _, o := range originals {
			if !o.IsDeleted {
				refs[o.ID] = o
			}
		}
	}

	authorIDs := make([]primitive.ObjectID, 0, len(list)+len(refs))
	for _, t := range list {
		authorIDs = append(authorIDs, t.Author)
	}
	for _, o := range refs {
		authorIDs = append(authorIDs, o.Author)
	}
	users, err := h.users.GetByIDs(ctx, authorIDs)
	if err != nil {
		return nil, err
	}
	authors := make(map[primitive.ObjectID]*model.User, len(users))
	for _, u := range users {
		authors[u.ID] = u
	}

	for _, t := range list {
		item := baseTweetDTO(t, authors[t.Author], viewer)
		if t.RetweetOf != nil {
			if o, ok := refs[*t.RetweetOf]; ok {
				item.RetweetOf = baseTweetDTO(o, authors[o.Author], viewer)
			}
		}
		if t.QuotedTweet != nil {
			if o, ok := refs[*t.QuotedTweet]; ok {
				item.QuotedTweet = baseTweetDTO(o, authors[o.Author], viewer)
			}
		}
		out = append(out, item)
	}
	return out, nil
}

func (h *tweetHydrator) hydrateOne(ctx context.Context, t *model.Tweet, viewer primitive.ObjectID) (*dto.TweetDTO, error) {
	list, err := h.hydrate(ctx, []*model.Tweet{t}, viewer)
	if err != nil {
		return nil, err
	}
	return list[0], nil
}

func newPagination(page, limit int, total int64) *dto.Pagination {
	totalPages := int64(0)
	if limit > 0 {
		totalPages = (total + int64(limit) - 1) / int64(limit)
	}
	return &dto.Pagination{
		Page:       page,
		Limit:      limit,
		TotalPages: totalPages,
		TotalCount: total,
	}
}
