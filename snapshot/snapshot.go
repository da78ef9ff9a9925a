// Package snapshot 提供基于离线导出快照的推荐器。
//
// 快照是一份 JSON 文档（作品、用户画像、用户-作品评分矩阵、作品相似度矩阵、全局统计），
// 一次性加载、显式 Reload，加载后只读。Holder 用原子指针整体替换，
// 读者拿到的永远是完整的旧快照或完整的新快照。
package snapshot

import (
	"sort"
	"strings"
	"time"

	"github.com/goccy/go-json"

	"github.com/rushteam/artrec/core"
)

// Metadata 是快照元数据。
type Metadata struct {
	GeneratedAt  time.Time `json:"generatedAt"`
	ArtworkCount int       `json:"artworkCount"`
	UserCount    int       `json:"userCount"`
	Algorithm    string    `json:"algorithm"`
}

// Features 是导出时预先计算的作品特征。
type Features struct {
	CategoryScore   float64   `json:"category_score"`
	StyleScore      float64   `json:"style_score"`
	TagVector       []float64 `json:"tag_vector"`
	PopularityScore float64   `json:"popularity_score"`
	RecencyScore    float64   `json:"recency_score"`
}

type Artwork struct {
	ID       string   `json:"id"`
	Title    string   `json:"title"`
	Category string   `json:"category"`
	Style    []string `json:"style"`
	Tags     []string `json:"tags"`
	ArtistID string   `json:"artistId,omitempty"`
	Features Features `json:"features"`
}

// Preferences 是用户偏好映射（名称 → 权重）。
type Preferences struct {
	Categories map[string]float64 `json:"categories"`
	Styles     map[string]float64 `json:"styles"`
	Tags       map[string]float64 `json:"tags"`
	Artists    map[string]float64 `json:"artists"`
}

type UserProfile struct {
	UserID        string      `json:"userId"`
	LikedArtworks []string    `json:"likedArtworks"`
	Preferences   Preferences `json:"preferences"`
}

type GlobalStats struct {
	PopularCategories []string `json:"popularCategories"`
	PopularStyles     []string `json:"popularStyles"`
	PopularTags       []string `json:"popularTags"`
	TopArtists        []string `json:"topArtists"`
}

// Snapshot 是一份已校验的快照。
type Snapshot struct {
	Metadata             Metadata                      `json:"metadata"`
	Artworks             []Artwork                     `json:"artworks"`
	UserProfiles         []UserProfile                 `json:"userProfiles"`
	UserItemMatrix       map[string]map[string]float64 `json:"userItemMatrix"`
	ItemSimilarityMatrix map[string]map[string]float64 `json:"itemSimilarityMatrix"`
	GlobalStats          GlobalStats                   `json:"globalStats"`

	artworkIndex map[string]int
	profileIndex map[string]int
}

// Parse 解码并规整快照。格式错误返回 ValidationError，调用方应保留旧快照。
func Parse(data []byte) (*Snapshot, error) {
	var s Snapshot
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, core.NewValidationError("snapshot", err.Error())
	}
	s.normalize()
	return &s, nil
}

// New 由内存数据构建快照（同样会规整）。
func New(meta Metadata, artworks []Artwork, profiles []UserProfile, userItem, itemSim map[string]map[string]float64, stats GlobalStats) *Snapshot {
	s := &Snapshot{
		Metadata:             meta,
		Artworks:             artworks,
		UserProfiles:         profiles,
		UserItemMatrix:       userItem,
		ItemSimilarityMatrix: itemSim,
		GlobalStats:          stats,
	}
	s.normalize()
	return s
}

// normalize 丢弃没有 ID 的记录，评分/相似度截断到 [0,1]，建立索引。
// 同一 ID 重复出现时保留第一条。
func (s *Snapshot) normalize() {
	artworks := make([]Artwork, 0, len(s.Artworks))
	s.artworkIndex = make(map[string]int, len(s.Artworks))
	for _, a := range s.Artworks {
		a.ID = strings.TrimSpace(a.ID)
		if a.ID == "" {
			continue
		}
		if _, dup := s.artworkIndex[a.ID]; dup {
			continue
		}
		a.Features.PopularityScore = core.ClampScore(a.Features.PopularityScore)
		s.artworkIndex[a.ID] = len(artworks)
		artworks = append(artworks, a)
	}
	s.Artworks = artworks

	profiles := make([]UserProfile, 0, len(s.UserProfiles))
	s.profileIndex = make(map[string]int, len(s.UserProfiles))
	for _, p := range s.UserProfiles {
		p.UserID = strings.TrimSpace(p.UserID)
		if p.UserID == "" {
			continue
		}
		if _, dup := s.profileIndex[p.UserID]; dup {
			continue
		}
		p.LikedArtworks = compact(p.LikedArtworks)
		s.profileIndex[p.UserID] = len(profiles)
		profiles = append(profiles, p)
	}
	s.UserProfiles = profiles

	s.UserItemMatrix = clampMatrix(s.UserItemMatrix)
	s.ItemSimilarityMatrix = clampMatrix(s.ItemSimilarityMatrix)
}

func clampMatrix(m map[string]map[string]float64) map[string]map[string]float64 {
	out := make(map[string]map[string]float64, len(m))
	for row, cols := range m {
		if row = strings.TrimSpace(row); row == "" {
			continue
		}
		clean := make(map[string]float64, len(cols))
		for col, v := range cols {
			if col = strings.TrimSpace(col); col != "" {
				clean[col] = core.ClampScore(v)
			}
		}
		out[row] = clean
	}
	return out
}

func compact(ids []string) []string {
	out := make([]string, 0, len(ids))
	seen := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		id = strings.TrimSpace(id)
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

// Artwork 按 ID 查找作品。
func (s *Snapshot) Artwork(id string) (Artwork, bool) {
	i, ok := s.artworkIndex[id]
	if !ok {
		return Artwork{}, false
	}
	return s.Artworks[i], true
}

// Profile 按用户 ID 查找画像。
func (s *Snapshot) Profile(userID string) (UserProfile, bool) {
	i, ok := s.profileIndex[userID]
	if !ok {
		return UserProfile{}, false
	}
	return s.UserProfiles[i], true
}

// HasUserData 判断快照里是否有该用户的画像或评分。
func (s *Snapshot) HasUserData(userID string) bool {
	if _, ok := s.Profile(userID); ok {
		return true
	}
	return len(s.UserItemMatrix[userID]) > 0
}

// Interacted 返回用户在快照中评过分或喜欢过的作品集合。
func (s *Snapshot) Interacted(userID string) map[string]struct{} {
	out := make(map[string]struct{})
	for id := range s.UserItemMatrix[userID] {
		out[id] = struct{}{}
	}
	if p, ok := s.Profile(userID); ok {
		for _, id := range p.LikedArtworks {
			out[id] = struct{}{}
		}
	}
	return out
}

// CoreArtworks 把快照作品转换为 core.Artwork（热度取 popularity_score），用于兜底。
func (s *Snapshot) CoreArtworks() []core.Artwork {
	out := make([]core.Artwork, 0, len(s.Artworks))
	for _, a := range s.Artworks {
		out = append(out, core.Artwork{
			ID:         a.ID,
			Title:      a.Title,
			Category:   a.Category,
			Styles:     append([]string{}, a.Style...),
			Tags:       append([]string{}, a.Tags...),
			ArtistID:   a.ArtistID,
			Popularity: a.Features.PopularityScore,
		})
	}
	return out
}

func sortedUsers(m map[string]map[string]float64) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
