package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/rushteam/artrec/core"
)

// MemoryFeatureStore 是内存版 FeatureStore，用于测试、演示和离线回放。
// 作品按加入顺序列出；交互按时间顺序返回。
type MemoryFeatureStore struct {
	mu           sync.RWMutex
	artworks     []core.Artwork
	artworkIndex map[string]int
	interactions []core.Interaction
	analyses     map[string]core.ArtworkAnalysis
	preferences  map[string]core.UserPreferenceVector
	users        map[string]struct{}
}

func NewMemoryFeatureStore() *MemoryFeatureStore {
	return &MemoryFeatureStore{
		artworkIndex: make(map[string]int),
		analyses:     make(map[string]core.ArtworkAnalysis),
		preferences:  make(map[string]core.UserPreferenceVector),
		users:        make(map[string]struct{}),
	}
}

// AddArtwork 校验并写入作品；同 ID 覆盖，保持原来的列表位置。
func (s *MemoryFeatureStore) AddArtwork(a core.Artwork) error {
	a.Normalize()
	if err := a.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if i, ok := s.artworkIndex[a.ID]; ok {
		s.artworks[i] = a
		return nil
	}
	s.artworkIndex[a.ID] = len(s.artworks)
	s.artworks = append(s.artworks, a)
	return nil
}

// AddInteraction 写入一条交互，评分截断到 [0,1]。
func (s *MemoryFeatureStore) AddInteraction(it core.Interaction) error {
	if it.UserID == "" {
		return core.NewValidationError("interaction.userId", "must not be empty")
	}
	if it.ArtworkID == "" {
		return core.NewValidationError("interaction.artworkId", "must not be empty")
	}
	it.Rating = core.ClampRating(it.Rating)
	s.mu.Lock()
	defer s.mu.Unlock()

	s.interactions = append(s.interactions, it)
	s.users[it.UserID] = struct{}{}
	return nil
}

// RecordEvent 把原始行为事件映射为评分后写入。
func (s *MemoryFeatureStore) RecordEvent(userID, artworkID string, event core.EventType, ts time.Time) error {
	return s.AddInteraction(core.NewInteraction(userID, artworkID, event, ts))
}

// SetAnalysis 写入分析结果并记下作品当前的内容摘要。
// 作品内容自上次分析后没有变化时保留原结果，返回 false。
func (s *MemoryFeatureStore) SetAnalysis(an core.ArtworkAnalysis) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	i, ok := s.artworkIndex[an.ArtworkID]
	if !ok {
		return false, core.NewValidationError("analysis.artworkId", "unknown artwork")
	}
	art := s.artworks[i]
	if existing, ok := s.analyses[an.ArtworkID]; ok && !core.NeedsAnalysis(art, &existing) {
		return false, nil
	}
	an.ContentHash = core.ContentHash(art)
	s.analyses[an.ArtworkID] = an
	return true, nil
}

func (s *MemoryFeatureStore) SetPreferenceVector(p core.UserPreferenceVector) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p.ProfileConfidence = core.ClampRating(p.ProfileConfidence)
	s.preferences[p.UserID] = p
}

func (s *MemoryFeatureStore) filterInteractions(keep func(core.Interaction) bool) []core.Interaction {
	out := make([]core.Interaction, 0)
	for _, it := range s.interactions {
		if keep(it) {
			out = append(out, it)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Timestamp.Before(out[j].Timestamp) })
	return out
}

func (s *MemoryFeatureStore) GetUserInteractions(_ context.Context, userID string) ([]core.Interaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.filterInteractions(func(it core.Interaction) bool { return it.UserID == userID }), nil
}

func (s *MemoryFeatureStore) GetArtworkInteractions(_ context.Context, artworkID string) ([]core.Interaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.filterInteractions(func(it core.Interaction) bool { return it.ArtworkID == artworkID }), nil
}

func (s *MemoryFeatureStore) GetUserHighRatedArtworks(ctx context.Context, userID string, minRating float64) ([]core.RatedArtwork, error) {
	interactions, _ := s.GetUserInteractions(ctx, userID)
	return HighRated(core.RatingsByArtwork(interactions), minRating), nil
}

func (s *MemoryFeatureStore) GetUserInteractedArtworkIDs(ctx context.Context, userID string) ([]string, error) {
	interactions, _ := s.GetUserInteractions(ctx, userID)
	return uniqueArtworkIDs(interactions), nil
}

func (s *MemoryFeatureStore) GetArtworkByID(_ context.Context, artworkID string) (*core.Artwork, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	i, ok := s.artworkIndex[artworkID]
	if !ok {
		return nil, nil
	}
	a := s.artworks[i]
	return &a, nil
}

func (s *MemoryFeatureStore) GetAllArtworks(_ context.Context) ([]core.Artwork, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append(make([]core.Artwork, 0, len(s.artworks)), s.artworks...), nil
}

func (s *MemoryFeatureStore) GetAllActiveUsers(_ context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]string, 0, len(s.users))
	for u := range s.users {
		out = append(out, u)
	}
	sort.Strings(out)
	return out, nil
}

func (s *MemoryFeatureStore) GetArtworkAnalysis(_ context.Context, artworkID string) (*core.ArtworkAnalysis, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	a, ok := s.analyses[artworkID]
	if !ok {
		return nil, nil
	}
	return &a, nil
}

func (s *MemoryFeatureStore) GetUserPreferenceVector(_ context.Context, userID string) (*core.UserPreferenceVector, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.preferences[userID]
	if !ok {
		return nil, nil
	}
	return &p, nil
}

// HighRated 从评分表中挑出 >= minRating 的作品，按评分降序、ID 升序。
func HighRated(ratings map[string]float64, minRating float64) []core.RatedArtwork {
	out := make([]core.RatedArtwork, 0)
	for id, r := range ratings {
		if r >= minRating {
			out = append(out, core.RatedArtwork{ID: id, Rating: r})
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Rating != out[j].Rating {
			return out[i].Rating > out[j].Rating
		}
		return out[i].ID < out[j].ID
	})
	return out
}

func uniqueArtworkIDs(interactions []core.Interaction) []string {
	seen := make(map[string]struct{}, len(interactions))
	out := make([]string, 0, len(interactions))
	for _, it := range interactions {
		if _, ok := seen[it.ArtworkID]; ok {
			continue
		}
		seen[it.ArtworkID] = struct{}{}
		out = append(out, it.ArtworkID)
	}
	return out
}

var _ core.FeatureStore = (*MemoryFeatureStore)(nil)
