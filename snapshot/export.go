package snapshot

import (
	"cmp"
	"context"
	"slices"
	"time"

	"github.com/goccy/go-json"
	"golang.org/x/sync/errgroup"

	"github.com/rushteam/artrec/core"
	"github.com/rushteam/artrec/pkg/similarity"
)

const (
	// AlgorithmExport 标记由在线特征存储导出的快照
	AlgorithmExport = "feature_store_export"

	// LikedThreshold 以上的评分计入用户喜欢的作品
	LikedThreshold = 0.8

	exportParallelism = 16
	popularStatsSize  = 5
)

// Export 从特征存储导出一份快照：评分矩阵、基于共同评分者的作品余弦相似度、
// 由喜欢的作品聚合出的偏好画像以及全局热门统计。
func Export(ctx context.Context, fs core.FeatureStore, now time.Time) (*Snapshot, error) {
	artworks, err := fs.GetAllArtworks(ctx)
	if err != nil {
		return nil, err
	}
	users, err := fs.GetAllActiveUsers(ctx)
	if err != nil {
		return nil, err
	}
	slices.Sort(users)

	ratings := make([]map[string]float64, len(users))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(exportParallelism)
	for i, u := range users {
		g.Go(func() error {
			its, err := fs.GetUserInteractions(gctx, u)
			if err != nil {
				return err
			}
			ratings[i] = core.RatingsByArtwork(its)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	byID := make(map[string]core.Artwork, len(artworks))
	out := make([]Artwork, 0, len(artworks))
	for _, a := range artworks {
		byID[a.ID] = a
		out = append(out, Artwork{
			ID:       a.ID,
			Title:    a.Title,
			Category: a.Category,
			Style:    a.Styles,
			Tags:     a.Tags,
			ArtistID: a.ArtistID,
			Features: Features{PopularityScore: a.Popularity},
		})
	}

	userItem := make(map[string]map[string]float64, len(users))
	raters := make(map[string]map[string]float64)
	profiles := make([]UserProfile, 0, len(users))
	counts := newCounter()
	for i, u := range users {
		if len(ratings[i]) == 0 {
			continue
		}
		userItem[u] = ratings[i]
		for id, r := range ratings[i] {
			if raters[id] == nil {
				raters[id] = make(map[string]float64)
			}
			raters[id][u] = r
		}
		p := profileFrom(u, ratings[i], byID)
		counts.add(p.LikedArtworks, byID)
		profiles = append(profiles, p)
	}

	meta := Metadata{
		GeneratedAt:  now,
		ArtworkCount: len(out),
		UserCount:    len(profiles),
		Algorithm:    AlgorithmExport,
	}
	return New(meta, out, profiles, userItem, itemSimilarity(raters), counts.stats()), nil
}

// Encode 把快照编码为 JSON，可写回文件或 KV，之后由 Parse 读取。
func (s *Snapshot) Encode() ([]byte, error) {
	return json.Marshal(s)
}

func profileFrom(userID string, ratings map[string]float64, byID map[string]core.Artwork) UserProfile {
	p := UserProfile{
		UserID: userID,
		Preferences: Preferences{
			Categories: map[string]float64{},
			Styles:     map[string]float64{},
			Tags:       map[string]float64{},
			Artists:    map[string]float64{},
		},
	}
	for _, id := range sortedKeys(ratings) {
		r := ratings[id]
		if r < LikedThreshold {
			continue
		}
		p.LikedArtworks = append(p.LikedArtworks, id)
		a, ok := byID[id]
		if !ok {
			continue
		}
		if a.Category != "" {
			p.Preferences.Categories[a.Category] += r
		}
		for _, st := range a.Styles {
			p.Preferences.Styles[st] += r
		}
		for _, t := range a.Tags {
			p.Preferences.Tags[t] += r
		}
		if a.ArtistID != "" {
			p.Preferences.Artists[a.ArtistID] += r
		}
	}
	scaleToMax(p.Preferences.Categories)
	scaleToMax(p.Preferences.Styles)
	scaleToMax(p.Preferences.Tags)
	scaleToMax(p.Preferences.Artists)
	return p
}

// scaleToMax 把权重缩放到 (0,1]，最大者为 1。
func scaleToMax(m map[string]float64) {
	var hi float64
	for _, v := range m {
		hi = max(hi, v)
	}
	if hi == 0 {
		return
	}
	for k, v := range m {
		m[k] = v / hi
	}
}

func itemSimilarity(raters map[string]map[string]float64) map[string]map[string]float64 {
	ids := sortedUsers(raters)
	out := make(map[string]map[string]float64, len(ids))
	for i, a := range ids {
		for _, b := range ids[i+1:] {
			sim := similarity.CosineMap(raters[a], raters[b])
			if sim <= 0 {
				continue
			}
			if out[a] == nil {
				out[a] = make(map[string]float64)
			}
			if out[b] == nil {
				out[b] = make(map[string]float64)
			}
			out[a][b] = sim
			out[b][a] = sim
		}
	}
	return out
}

type counter struct {
	categories, styles, tags, artists map[string]int
}

func newCounter() *counter {
	return &counter{
		categories: map[string]int{},
		styles:     map[string]int{},
		tags:       map[string]int{},
		artists:    map[string]int{},
	}
}

func (c *counter) add(liked []string, byID map[string]core.Artwork) {
	for _, id := range liked {
		a, ok := byID[id]
		if !ok {
			continue
		}
		if a.Category != "" {
			c.categories[a.Category]++
		}
		for _, st := range a.Styles {
			c.styles[st]++
		}
		for _, t := range a.Tags {
			c.tags[t]++
		}
		if a.ArtistID != "" {
			c.artists[a.ArtistID]++
		}
	}
}

func (c *counter) stats() GlobalStats {
	return GlobalStats{
		PopularCategories: topCounted(c.categories, popularStatsSize),
		PopularStyles:     topCounted(c.styles, popularStatsSize),
		PopularTags:       topCounted(c.tags, popularStatsSize),
		TopArtists:        topCounted(c.artists, popularStatsSize),
	}
}

// topCounted 按次数降序取前 k 个，次数相同按名称升序。
func topCounted(m map[string]int, k int) []string {
	keys := make([]string, 0, len(m))
	for key := range m {
		keys = append(keys, key)
	}
	slices.SortFunc(keys, func(a, b string) int {
		if c := cmp.Compare(m[b], m[a]); c != 0 {
			return c
		}
		return cmp.Compare(a, b)
	})
	if len(keys) > k {
		keys = keys[:k]
	}
	return keys
}
