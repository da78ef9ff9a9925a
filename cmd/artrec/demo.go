package main

import (
	"slices"
	"time"

	"github.com/rushteam/artrec/core"
	"github.com/rushteam/artrec/store"
)

// 演示画廊：三类作品、五位收藏者，口味各不相同。
var demoArtworks = []core.Artwork{
	{ID: "art-001", Title: "Blue Field", Category: "abstract", Styles: []string{"minimal", "color-field"}, Tags: []string{"blue", "calm"}, ArtistID: "artist-a", PriceMin: 400, PriceMax: 600, Popularity: 0.82},
	{ID: "art-002", Title: "Red Square", Category: "abstract", Styles: []string{"minimal", "geometric"}, Tags: []string{"red", "bold"}, ArtistID: "artist-a", PriceMin: 300, PriceMax: 450, Popularity: 0.64},
	{ID: "art-003", Title: "Noise", Category: "abstract", Styles: []string{"expressionist"}, Tags: []string{"black", "bold"}, ArtistID: "artist-b", PriceMin: 900, PriceMax: 1200, Popularity: 0.51},
	{ID: "art-004", Title: "Harbor at Dawn", Category: "landscape", Styles: []string{"impressionist"}, Tags: []string{"sea", "calm"}, ArtistID: "artist-c", PriceMin: 250, PriceMax: 300, Popularity: 0.91},
	{ID: "art-005", Title: "Alpine Lake", Category: "landscape", Styles: []string{"realist"}, Tags: []string{"blue", "mountain"}, ArtistID: "artist-c", PriceMin: 700, PriceMax: 800, Popularity: 0.73},
	{ID: "art-006", Title: "Dunes", Category: "landscape", Styles: []string{"minimal", "impressionist"}, Tags: []string{"sand", "calm"}, ArtistID: "artist-d", PriceMin: 150, PriceMax: 200, Popularity: 0.38},
	{ID: "art-007", Title: "Old Sailor", Category: "portrait", Styles: []string{"realist"}, Tags: []string{"sea"}, ArtistID: "artist-e", PriceMin: 1500, PriceMax: 2000, Popularity: 0.47},
	{ID: "art-008", Title: "Girl in Yellow", Category: "portrait", Styles: []string{"expressionist"}, Tags: []string{"yellow", "bold"}, ArtistID: "artist-b", PriceMin: 800, PriceMax: 950, Popularity: 0.69},
	{ID: "art-009", Title: "Self Portrait No. 3", Category: "portrait", Styles: []string{"minimal"}, Tags: []string{"black"}, ArtistID: "artist-d", PriceMin: 500, PriceMax: 500, Popularity: 0.22},
}

type demoEvent struct {
	user, artwork string
	event         core.EventType
	daysAgo       int
}

var demoEvents = []demoEvent{
	{"alice", "art-001", core.EventLike, 30}, {"alice", "art-002", core.EventSave, 25}, {"alice", "art-006", core.EventLike, 20},
	{"alice", "art-009", core.EventView, 10}, {"alice", "art-003", core.EventShare, 5}, {"alice", "art-001", core.EventView, 2},
	{"bob", "art-001", core.EventLike, 28}, {"bob", "art-002", core.EventLike, 21}, {"bob", "art-003", core.EventLike, 14},
	{"bob", "art-008", core.EventSave, 7},
	{"carol", "art-004", core.EventLike, 40}, {"carol", "art-005", core.EventLike, 35}, {"carol", "art-006", core.EventSave, 30},
	{"carol", "art-007", core.EventView, 20}, {"carol", "art-004", core.EventShare, 12}, {"carol", "art-005", core.EventView, 6},
	{"carol", "art-001", core.EventView, 3},
	{"dave", "art-004", core.EventLike, 18}, {"dave", "art-007", core.EventLike, 9}, {"dave", "art-005", core.EventSave, 4},
	{"erin", "art-008", core.EventView, 1},
}

// demoStyles 给每种风格分配风格向量中的一个维度。
var demoStyles = []string{"minimal", "color-field", "geometric", "expressionist", "impressionist", "realist"}

func demoStyleVector(styles []string) []float64 {
	v := make([]float64, core.VectorDim)
	for _, st := range styles {
		if i := slices.Index(demoStyles, st); i >= 0 {
			v[i] = 1
		}
	}
	return v
}

func seedDemo(fs *store.MemoryFeatureStore, now time.Time) error {
	for _, a := range demoArtworks {
		a.CreatedAt = now.AddDate(0, -3, 0)
		if err := fs.AddArtwork(a); err != nil {
			return err
		}
		if _, err := fs.SetAnalysis(core.ArtworkAnalysis{
			ArtworkID:       a.ID,
			StyleVector:     demoStyleVector(a.Styles),
			PopularityScore: a.Popularity,
			LastAnalyzed:    now,
		}); err != nil {
			return err
		}
	}
	for _, e := range demoEvents {
		if err := fs.RecordEvent(e.user, e.artwork, e.event, now.AddDate(0, 0, -e.daysAgo)); err != nil {
			return err
		}
	}
	return nil
}
