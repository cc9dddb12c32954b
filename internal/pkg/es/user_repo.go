package es

import (
	"context"
	"errors"
	log "log/slog"
	"strings"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/typedapi/types"
	"github.com/elastic/go-elasticsearch/v8/typedapi/types/enums/sortorder"
)

// UserRepo 用户搜索索引，Mongo 仍是唯一数据源
type UserRepo interface {
	IndexUser(ctx context.Context, user *UserES) error
	SearchUsers(ctx context.Context, query, excludeID string, from, size int) ([]string, int64, error)
}

type UserRepoImpl struct {
	client *elasticsearch.TypedClient
	index  string
}

func NewUserRepo(client *elasticsearch.TypedClient, index string) UserRepo {
	return &UserRepoImpl{client: client, index: index}
}

func (s *UserRepoImpl) IndexUser(ctx context.Context, user *UserES) error {
	_, err := s.client.Index(s.index).
		Id(user.ID).
		Document(user).
		Do(ctx)
	if err != nil {
		var e *types.ElasticsearchError
		if errors.As(err, &e) && e.Status == ConflictCode {
			log.Warn("user index version conflict, skipping", "user_id", user.ID)
			return nil
		}
		return err
	}
	return nil
}

// SearchUsers 按 name / username 匹配，粉丝数倒序，返回命中的用户 id
func (s *UserRepoImpl) SearchUsers(ctx context.Context, query, excludeID string, from, size int) ([]string, int64, error) {
	q := strings.ToLower(strings.TrimSpace(query))

	boolQuery := &types.BoolQuery{
		Should: []types.Query{
			{
				MultiMatch: &types.MultiMatchQuery{
					Query:  q,
					Fields: []string{"name", "username"},
				},
			},
			{
				Prefix: map[string]types.PrefixQuery{
					"username": {Value: q},
				},
			},
		},
	}
	if excludeID != "" {
		boolQuery.MustNot = []types.Query{
			{Term: map[string]types.TermQuery{"id": {Value: excludeID}}},
		}
	}
	boolQuery.MinimumShouldMatch = 1

	resp, err := s.client.Search().
		Index(s.index).
		Query(&types.Query{Bool: boolQuery}).
		Sort(types.SortOptions{SortOptions: map[string]types.FieldSort{
			"followerCount": {Order: &sortorder.Desc},
		}}).
		From(from).
		Size(size).
		Do(ctx)
	if err != nil {
		var e *types.ElasticsearchError
		if errors.As(err, &e) && e.Status == NotFoundCode {
			return []string{}, 0, nil
		}
		return nil, 0, err
	}

	ids := make([]string, 0, len(resp.Hits.Hits))
	for _, hit := range resp.Hits.Hits {
		if hit.Id_ != nil {
			ids = append(ids, *hit.Id_)
		}
	}
	var total int64
	if resp.Hits.Total != nil {
		total = resp.Hits.Total.Value
	}
	return ids, total, nil
}
