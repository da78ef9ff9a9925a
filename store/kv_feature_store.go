package store

import (
	"context"
	"errors"

	"github.com/goccy/go-json"

	"github.com/rushteam/artrec/core"
)

// KVFeatureStore 是基于 core.Store 的 FeatureStore，数据以 JSON 存放（Redis/内存）。
//
// Key 布局：
//
//	{prefix}:artworks                     作品 ID 列表（列表顺序即兜底顺序）
//	{prefix}:artwork:{id}                 作品
//	{prefix}:artwork:{id}:interactions    作品的交互列表
//	{prefix}:user:{id}                    用户的交互列表
//	{prefix}:users                        活跃用户 ID 列表
//	{prefix}:analysis:{id}                作品分析结果
//	{prefix}:pref:{id}                    用户偏好画像
type KVFeatureStore struct {
	store     core.Store
	KeyPrefix string
}

func NewKVFeatureStore(s core.Store, keyPrefix string) *KVFeatureStore {
	if keyPrefix == "" {
		keyPrefix = "art"
	}
	return &KVFeatureStore{store: s, KeyPrefix: keyPrefix}
}

func (a *KVFeatureStore) key(parts ...string) string {
	k := a.KeyPrefix
	for _, p := range parts {
		k += ":" + p
	}
	return k
}

// getJSON 读取并解码；key 不存在返回 (false, nil)。
func (a *KVFeatureStore) getJSON(ctx context.Context, op, key string, v any) (bool, error) {
	data, err := a.store.Get(ctx, key)
	if err != nil {
		if core.IsStoreNotFound(err) {
			return false, nil
		}
		return false, core.NewStoreFailure(op, err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return false, core.NewStoreFailure(op, err)
	}
	return true, nil
}

func (a *KVFeatureStore) interactions(ctx context.Context, op, key string) ([]core.Interaction, error) {
	var list []core.Interaction
	if _, err := a.getJSON(ctx, op, key, &list); err != nil {
		return nil, err
	}
	out := make([]core.Interaction, 0, len(list))
	for _, it := range list {
		if it.UserID == "" || it.ArtworkID == "" {
			continue
		}
		it.Rating = core.ClampRating(it.Rating)
		out = append(out, it)
	}
	return out, nil
}

func (a *KVFeatureStore) GetUserInteractions(ctx context.Context, userID string) ([]core.Interaction, error) {
	return a.interactions(ctx, "get user interactions", a.key("user", userID))
}

func (a *KVFeatureStore) GetArtworkInteractions(ctx context.Context, artworkID string) ([]core.Interaction, error) {
	return a.interactions(ctx, "get artwork interactions", a.key("artwork", artworkID, "interactions"))
}

func (a *KVFeatureStore) GetUserHighRatedArtworks(ctx context.Context, userID string, minRating float64) ([]core.RatedArtwork, error) {
	list, err := a.GetUserInteractions(ctx, userID)
	if err != nil {
		return nil, err
	}
	return HighRated(core.RatingsByArtwork(list), minRating), nil
}

func (a *KVFeatureStore) GetUserInteractedArtworkIDs(ctx context.Context, userID string) ([]string, error) {
	list, err := a.GetUserInteractions(ctx, userID)
	if err != nil {
		return nil, err
	}
	return uniqueArtworkIDs(list), nil
}

func (a *KVFeatureStore) GetArtworkByID(ctx context.Context, artworkID string) (*core.Artwork, error) {
	var art core.Artwork
	found, err := a.getJSON(ctx, "get artwork", a.key("artwork", artworkID), &art)
	if err != nil || !found {
		return nil, err
	}
	art.Normalize()
	if art.Validate() != nil {
		return nil, nil
	}
	return &art, nil
}

func (a *KVFeatureStore) GetAllArtworks(ctx context.Context) ([]core.Artwork, error) {
	ids := make([]string, 0)
	if _, err := a.getJSON(ctx, "get artwork list", a.key("artworks"), &ids); err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return []core.Artwork{}, nil
	}

	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = a.key("artwork", id)
	}
	blobs, err := a.store.BatchGet(ctx, keys)
	if err != nil {
		return nil, core.NewStoreFailure("get all artworks", err)
	}

	out := make([]core.Artwork, 0, len(ids))
	for _, k := range keys {
		data, ok := blobs[k]
		if !ok {
			continue
		}
		var art core.Artwork
		if json.Unmarshal(data, &art) != nil {
			continue
		}
		art.Normalize()
		if art.Validate() != nil {
			continue
		}
		out = append(out, art)
	}
	return out, nil
}

func (a *KVFeatureStore) GetAllActiveUsers(ctx context.Context) ([]string, error) {
	users := make([]string, 0)
	if _, err := a.getJSON(ctx, "get active users", a.key("users"), &users); err != nil {
		return nil, err
	}
	return users, nil
}

func (a *KVFeatureStore) GetArtworkAnalysis(ctx context.Context, artworkID string) (*core.ArtworkAnalysis, error) {
	var an core.ArtworkAnalysis
	found, err := a.getJSON(ctx, "get artwork analysis", a.key("analysis", artworkID), &an)
	if err != nil || !found {
		return nil, err
	}
	return &an, nil
}

func (a *KVFeatureStore) GetUserPreferenceVector(ctx context.Context, userID string) (*core.UserPreferenceVector, error) {
	var p core.UserPreferenceVector
	found, err := a.getJSON(ctx, "get user preference vector", a.key("pref", userID), &p)
	if err != nil || !found {
		return nil, err
	}
	p.ProfileConfidence = core.ClampRating(p.ProfileConfidence)
	return &p, nil
}

// FeatureData 是一次性导入 KV 的全量特征数据。
type FeatureData struct {
	Artworks     []core.Artwork
	Interactions []core.Interaction
	Analyses     []core.ArtworkAnalysis
	Preferences  []core.UserPreferenceVector
}

// Import 把全量特征数据写入 KV（覆盖同名 key），用于初始化和测试。
func (a *KVFeatureStore) Import(ctx context.Context, data FeatureData) error {
	kvs := make(map[string][]byte)
	var errs []error
	put := func(key string, v any) {
		b, err := json.Marshal(v)
		if err != nil {
			errs = append(errs, err)
			return
		}
		kvs[key] = b
	}

	ids := make([]string, 0, len(data.Artworks))
	for _, art := range data.Artworks {
		art.Normalize()
		if err := art.Validate(); err != nil {
			return err
		}
		ids = append(ids, art.ID)
		put(a.key("artwork", art.ID), art)
	}
	put(a.key("artworks"), ids)

	byUser := make(map[string][]core.Interaction)
	byArtwork := make(map[string][]core.Interaction)
	users := make([]string, 0)
	for _, it := range data.Interactions {
		it.Rating = core.ClampRating(it.Rating)
		if _, ok := byUser[it.UserID]; !ok {
			users = append(users, it.UserID)
		}
		byUser[it.UserID] = append(byUser[it.UserID], it)
		byArtwork[it.ArtworkID] = append(byArtwork[it.ArtworkID], it)
	}
	for u, list := range byUser {
		put(a.key("user", u), list)
	}
	for id, list := range byArtwork {
		put(a.key("artwork", id, "interactions"), list)
	}
	put(a.key("users"), users)

	for _, an := range data.Analyses {
		put(a.key("analysis", an.ArtworkID), an)
	}
	for _, p := range data.Preferences {
		put(a.key("pref", p.UserID), p)
	}

	if err := errors.Join(errs...); err != nil {
		return err
	}
	return a.store.BatchSet(ctx, kvs)
}

var _ core.FeatureStore = (*KVFeatureStore)(nil)
