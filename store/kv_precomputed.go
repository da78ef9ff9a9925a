package store

import (
	"bytes"
	"context"
	"sort"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"

	"github.com/rushteam/artrec/core"
)

// KVRecommendationStore 是基于 KeyValueStore 的 PrecomputedStore。
//
// 每个用户的结果序列化为一个 key（{prefix}:user:{id}），一次 Set 即整体替换，
// 读者只会看到旧集合或新集合。{prefix}:index 哈希记录有结果的用户及其写入版本，
// 用于清理和统计。写入先更新版本再写数据，清理在改写前核对版本，跳过期间被重算的用户。
type KVRecommendationStore struct {
	store     core.KeyValueStore
	KeyPrefix string
}

func NewKVRecommendationStore(s core.KeyValueStore, keyPrefix string) *KVRecommendationStore {
	if keyPrefix == "" {
		keyPrefix = "rec"
	}
	return &KVRecommendationStore{store: s, KeyPrefix: keyPrefix}
}

func (s *KVRecommendationStore) userKey(userID string) string {
	return s.KeyPrefix + ":user:" + userID
}

func (s *KVRecommendationStore) indexKey() string {
	return s.KeyPrefix + ":index"
}

func (s *KVRecommendationStore) ReplaceUserRecommendations(ctx context.Context, userID string, recs []core.PrecomputedRecommendation) error {
	if userID == "" {
		return core.NewValidationError("userId", "must not be empty")
	}
	if len(recs) == 0 {
		if err := s.store.HDel(ctx, s.indexKey(), userID); err != nil {
			return core.NewStoreFailure("replace recommendations", err)
		}
		if err := s.store.Delete(ctx, s.userKey(userID)); err != nil {
			return core.NewStoreFailure("replace recommendations", err)
		}
		return nil
	}

	rows := make([]core.PrecomputedRecommendation, len(recs))
	copy(rows, recs)
	for i := range rows {
		rows[i].UserID = userID
	}
	sortPrecomputed(rows)

	data, err := json.Marshal(rows)
	if err != nil {
		return err
	}
	if err := s.store.HSet(ctx, s.indexKey(), userID, []byte(uuid.NewString())); err != nil {
		return core.NewStoreFailure("replace recommendations", err)
	}
	if err := s.store.Set(ctx, s.userKey(userID), data); err != nil {
		return core.NewStoreFailure("replace recommendations", err)
	}
	return nil
}

func (s *KVRecommendationStore) load(ctx context.Context, userID string) ([]core.PrecomputedRecommendation, error) {
	data, err := s.store.Get(ctx, s.userKey(userID))
	if err != nil {
		if core.IsStoreNotFound(err) {
			return []core.PrecomputedRecommendation{}, nil
		}
		return nil, core.NewStoreFailure("get recommendations", err)
	}
	var rows []core.PrecomputedRecommendation
	if err := json.Unmarshal(data, &rows); err != nil {
		return nil, core.NewStoreFailure("get recommendations", err)
	}
	return rows, nil
}

func (s *KVRecommendationStore) GetValidRecommendations(ctx context.Context, userID string, now time.Time, limit int) ([]core.PrecomputedRecommendation, error) {
	rows, err := s.load(ctx, userID)
	if err != nil {
		return nil, err
	}
	out := make([]core.PrecomputedRecommendation, 0, len(rows))
	for _, r := range rows {
		if r.IsValid(now) {
			out = append(out, r)
		}
	}
	sortPrecomputed(out)
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// DeleteExpired 逐用户重写：全部过期的用户删除 key，部分过期的只保留有效行。
// 读取之后版本已变化的用户（并发重算已写入）保持不动。
func (s *KVRecommendationStore) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	all, err := s.loadAll(ctx)
	if err != nil {
		return 0, err
	}

	var deleted int64
	for _, userID := range sortedUsers(all) {
		u := all[userID]
		kept := make([]core.PrecomputedRecommendation, 0, len(u.rows))
		for _, r := range u.rows {
			if r.IsValid(now) {
				kept = append(kept, r)
			}
		}
		removed := len(u.rows) - len(kept)
		if removed == 0 {
			continue
		}
		current, err := s.store.HGet(ctx, s.indexKey(), userID)
		if err != nil {
			if core.IsStoreNotFound(err) {
				continue
			}
			return deleted, core.NewStoreFailure("delete expired recommendations", err)
		}
		if !bytes.Equal(current, u.version) {
			continue
		}
		if err := s.ReplaceUserRecommendations(ctx, userID, kept); err != nil {
			return deleted, err
		}
		deleted += int64(removed)
	}
	return deleted, nil
}

func (s *KVRecommendationStore) Stats(ctx context.Context) (core.RecommendationStats, error) {
	all, err := s.loadAll(ctx)
	if err != nil {
		return core.RecommendationStats{}, err
	}
	var total, users int64
	artworks := make(map[string]struct{})
	for _, u := range all {
		if len(u.rows) == 0 {
			continue
		}
		users++
		total += int64(len(u.rows))
		for _, r := range u.rows {
			artworks[r.ArtworkID] = struct{}{}
		}
	}
	return core.NewRecommendationStats(total, users, int64(len(artworks))), nil
}

// userRows 是某用户读到的结果及读取时的索引版本。
type userRows struct {
	version []byte
	rows    []core.PrecomputedRecommendation
}

func (s *KVRecommendationStore) loadAll(ctx context.Context) (map[string]userRows, error) {
	index, err := s.store.HGetAll(ctx, s.indexKey())
	if err != nil {
		return nil, core.NewStoreFailure("list recommendation users", err)
	}
	if len(index) == 0 {
		return map[string]userRows{}, nil
	}

	users := make([]string, 0, len(index))
	keys := make([]string, 0, len(index))
	for u := range index {
		users = append(users, u)
	}
	sort.Strings(users)
	for _, u := range users {
		keys = append(keys, s.userKey(u))
	}

	blobs, err := s.store.BatchGet(ctx, keys)
	if err != nil {
		return nil, core.NewStoreFailure("list recommendations", err)
	}
	out := make(map[string]userRows, len(users))
	for i, u := range users {
		data, ok := blobs[keys[i]]
		if !ok {
			continue
		}
		var rows []core.PrecomputedRecommendation
		if err := json.Unmarshal(data, &rows); err != nil {
			continue
		}
		out[u] = userRows{version: index[u], rows: rows}
	}
	return out, nil
}

func sortedUsers(m map[string]userRows) []string {
	users := make([]string, 0, len(m))
	for u := range m {
		users = append(users, u)
	}
	sort.Strings(users)
	return users
}

func sortPrecomputed(rows []core.PrecomputedRecommendation) {
	sort.SliceStable(rows, func(i, j int) bool {
		if rows[i].Score != rows[j].Score {
			return rows[i].Score > rows[j].Score
		}
		return rows[i].ArtworkID < rows[j].ArtworkID
	})
}

var _ core.PrecomputedStore = (*KVRecommendationStore)(nil)
