package filter

import (
	"context"

	"github.com/goccy/go-json"

	"github.com/rushteam/artrec/core"
)

// BlockedFilter 过滤运营屏蔽的作品和用户自己拉黑的作品。
//
//   - ArtworkIDs：内存中的全局屏蔽列表
//   - Store + Key：存储中的全局屏蔽列表（JSON 字符串数组）
//   - Store + UserKeyPrefix：用户拉黑列表，key 为 {UserKeyPrefix}:{userID}
type BlockedFilter struct {
	ArtworkIDs    []string
	Store         core.Store
	Key           string
	UserKeyPrefix string

	blocked map[string]struct{}
}

func NewBlockedFilter(ids []string, store core.Store, key, userKeyPrefix string) *BlockedFilter {
	f := &BlockedFilter{ArtworkIDs: ids, Store: store, Key: key, UserKeyPrefix: userKeyPrefix}
	f.blocked = make(map[string]struct{}, len(ids))
	for _, id := range ids {
		f.blocked[id] = struct{}{}
	}
	return f
}

func (f *BlockedFilter) Name() string {
	return "filter.blocked"
}

func (f *BlockedFilter) ShouldFilter(ctx context.Context, rctx *core.RecommendContext, rec *core.Recommendation) (bool, error) {
	if _, ok := f.blocked[rec.ArtworkID]; ok {
		return true, nil
	}
	if f.Store == nil {
		return false, nil
	}
	if f.Key != "" {
		hit, err := f.inList(ctx, f.Key, rec.ArtworkID)
		if err != nil || hit {
			return hit, err
		}
	}
	if f.UserKeyPrefix != "" && rctx != nil && rctx.UserID != "" {
		return f.inList(ctx, f.UserKeyPrefix+":"+rctx.UserID, rec.ArtworkID)
	}
	return false, nil
}

func (f *BlockedFilter) inList(ctx context.Context, key, id string) (bool, error) {
	data, err := f.Store.Get(ctx, key)
	if err != nil {
		if core.IsStoreNotFound(err) {
			return false, nil
		}
		return false, err
	}
	var ids []string
	if err := json.Unmarshal(data, &ids); err != nil {
		return false, err
	}
	for _, v := range ids {
		if v == id {
			return true, nil
		}
	}
	return false, nil
}
