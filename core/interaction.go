package core

import "time"

// EventType 是原始行为事件类型。
type EventType string

const (
	EventView  EventType = "view"
	EventLike  EventType = "like"
	EventSave  EventType = "save"
	EventShare EventType = "share"
)

// 行为 → 评分映射（全局唯一的一份，所有引擎共享同一语义）。
const (
	RatingLike    = 1.0
	RatingSave    = 1.0
	RatingShare   = 0.8
	RatingView    = 0.3
	RatingUnknown = 0.5
)

// RatingForEvent 把原始行为映射为 [0,1] 评分。
//
//	like|save → 1.0, share → 0.8, view → 0.3, 其他 → 0.5
func RatingForEvent(t EventType) float64 {
	switch t {
	case EventLike:
		return RatingLike
	case EventSave:
		return RatingSave
	case EventShare:
		return RatingShare
	case EventView:
		return RatingView
	default:
		return RatingUnknown
	}
}

// Interaction 是用户对作品的一次交互（评分由行为派生）。
// 同一 (user, artwork) 的多次事件不会在映射层合并。
type Interaction struct {
	UserID    string    `json:"userId"`
	ArtworkID string    `json:"artworkId"`
	Rating    float64   `json:"rating"`
	Timestamp time.Time `json:"timestamp"`
}

// NewInteraction 由原始行为事件构建 Interaction。
func NewInteraction(userID, artworkID string, event EventType, ts time.Time) Interaction {
	return Interaction{
		UserID:    userID,
		ArtworkID: artworkID,
		Rating:    RatingForEvent(event),
		Timestamp: ts,
	}
}

// RatedArtwork 是 (作品, 评分) 二元组。
type RatedArtwork struct {
	ID     string  `json:"id"`
	Rating float64 `json:"rating"`
}

// ClampRating 把评分约束到 [0,1]，存储适配层在边界处调用。
func ClampRating(r float64) float64 {
	if r < 0 {
		return 0
	}
	if r > 1 {
		return 1
	}
	return r
}

// RatingsByArtwork 把交互列表折叠成 map[artworkID]rating。
// 同一作品出现多次时保留时间最新的一条。
func RatingsByArtwork(interactions []Interaction) map[string]float64 {
	out := make(map[string]float64, len(interactions))
	latest := make(map[string]time.Time, len(interactions))
	for _, it := range interactions {
		if ts, ok := latest[it.ArtworkID]; ok && it.Timestamp.Before(ts) {
			continue
		}
		latest[it.ArtworkID] = it.Timestamp
		out[it.ArtworkID] = it.Rating
	}
	return out
}

// RatingsByUser 把作品的交互列表折叠成 map[userID]rating（规则同 RatingsByArtwork）。
func RatingsByUser(interactions []Interaction) map[string]float64 {
	out := make(map[string]float64, len(interactions))
	latest := make(map[string]time.Time, len(interactions))
	for _, it := range interactions {
		if ts, ok := latest[it.UserID]; ok && it.Timestamp.Before(ts) {
			continue
		}
		latest[it.UserID] = it.Timestamp
		out[it.UserID] = it.Rating
	}
	return out
}
