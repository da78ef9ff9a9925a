package postgres

import (
	"context"
	"database/sql"
	"errors"

	"github.com/goccy/go-json"

	"github.com/rushteam/artrec/core"
)

// FeatureStore 是 core.FeatureStore 的关系库实现。
// 评分在读取时截断到 [0,1]；不合法的作品记录被跳过。
type FeatureStore struct{ db *sql.DB }

func NewFeatureStore(db *sql.DB) *FeatureStore {
	return &FeatureStore{db: db}
}

const interactionColumns = `user_id, artwork_id, rating, created_at`

func (s *FeatureStore) queryInteractions(ctx context.Context, op, query string, args ...any) ([]core.Interaction, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, core.NewStoreFailure(op, err)
	}
	defer func() { _ = rows.Close() }()

	out := make([]core.Interaction, 0, 32)
	for rows.Next() {
		var it core.Interaction
		if err := rows.Scan(&it.UserID, &it.ArtworkID, &it.Rating, &it.Timestamp); err != nil {
			return nil, core.NewStoreFailure(op, err)
		}
		it.Rating = core.ClampRating(it.Rating)
		out = append(out, it)
	}
	if err := rows.Err(); err != nil {
		return nil, core.NewStoreFailure(op, err)
	}
	return out, nil
}

func (s *FeatureStore) GetUserInteractions(ctx context.Context, userID string) ([]core.Interaction, error) {
	const query = `
SELECT ` + interactionColumns + `
FROM interactions
WHERE user_id = $1
ORDER BY created_at ASC, artwork_id ASC`
	return s.queryInteractions(ctx, "user_interactions", query, userID)
}

func (s *FeatureStore) GetArtworkInteractions(ctx context.Context, artworkID string) ([]core.Interaction, error) {
	const query = `
SELECT ` + interactionColumns + `
FROM interactions
WHERE artwork_id = $1
ORDER BY created_at ASC, user_id ASC`
	return s.queryInteractions(ctx, "artwork_interactions", query, artworkID)
}

// GetUserHighRatedArtworks 每个作品取最新一次评分，再按阈值过滤。
func (s *FeatureStore) GetUserHighRatedArtworks(ctx context.Context, userID string, minRating float64) ([]core.RatedArtwork, error) {
	const query = `
SELECT artwork_id, rating FROM (
    SELECT DISTINCT ON (artwork_id) artwork_id, rating
    FROM interactions
    WHERE user_id = $1
    ORDER BY artwork_id, created_at DESC
) latest
WHERE rating >= $2
ORDER BY rating DESC, artwork_id ASC`
	rows, err := s.db.QueryContext(ctx, query, userID, minRating)
	if err != nil {
		return nil, core.NewStoreFailure("high_rated", err)
	}
	defer func() { _ = rows.Close() }()

	out := make([]core.RatedArtwork, 0, 16)
	for rows.Next() {
		var ra core.RatedArtwork
		if err := rows.Scan(&ra.ID, &ra.Rating); err != nil {
			return nil, core.NewStoreFailure("high_rated", err)
		}
		ra.Rating = core.ClampRating(ra.Rating)
		out = append(out, ra)
	}
	if err := rows.Err(); err != nil {
		return nil, core.NewStoreFailure("high_rated", err)
	}
	return out, nil
}

func (s *FeatureStore) GetUserInteractedArtworkIDs(ctx context.Context, userID string) ([]string, error) {
	const query = `
SELECT DISTINCT artwork_id
FROM interactions
WHERE user_id = $1
ORDER BY artwork_id ASC`
	return s.queryStrings(ctx, "interacted_ids", query, userID)
}

func (s *FeatureStore) GetAllActiveUsers(ctx context.Context) ([]string, error) {
	const query = `
SELECT DISTINCT user_id
FROM interactions
ORDER BY user_id ASC`
	return s.queryStrings(ctx, "active_users", query)
}

func (s *FeatureStore) queryStrings(ctx context.Context, op, query string, args ...any) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, core.NewStoreFailure(op, err)
	}
	defer func() { _ = rows.Close() }()

	out := make([]string, 0, 32)
	for rows.Next() {
		var v string
		if err := rows.Scan(&v); err != nil {
			return nil, core.NewStoreFailure(op, err)
		}
		out = append(out, v)
	}
	if err := rows.Err(); err != nil {
		return nil, core.NewStoreFailure(op, err)
	}
	return out, nil
}

const artworkColumns = `id, title, description, category, styles, tags, artist_id, price_min, price_max, popularity, created_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanArtwork(r rowScanner) (core.Artwork, error) {
	var (
		a            core.Artwork
		styles, tags []byte
	)
	if err := r.Scan(&a.ID, &a.Title, &a.Description, &a.Category, &styles, &tags,
		&a.ArtistID, &a.PriceMin, &a.PriceMax, &a.Popularity, &a.CreatedAt); err != nil {
		return core.Artwork{}, err
	}
	if err := decodeJSON(styles, &a.Styles); err != nil {
		return core.Artwork{}, err
	}
	if err := decodeJSON(tags, &a.Tags); err != nil {
		return core.Artwork{}, err
	}
	a.Normalize()
	return a, nil
}

func (s *FeatureStore) GetArtworkByID(ctx context.Context, artworkID string) (*core.Artwork, error) {
	const query = `
SELECT ` + artworkColumns + `
FROM artworks
WHERE id = $1
LIMIT 1`
	a, err := scanArtwork(s.db.QueryRowContext(ctx, query, artworkID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, core.NewStoreFailure("artwork", err)
	}
	if a.Validate() != nil {
		return nil, nil
	}
	return &a, nil
}

// GetAllArtworks 返回在售作品，顺序为热度降序、创建时间降序、ID 升序。
func (s *FeatureStore) GetAllArtworks(ctx context.Context) ([]core.Artwork, error) {
	const query = `
SELECT ` + artworkColumns + `
FROM artworks
WHERE active = TRUE
ORDER BY popularity DESC, created_at DESC, id ASC`
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, core.NewStoreFailure("all_artworks", err)
	}
	defer func() { _ = rows.Close() }()

	out := make([]core.Artwork, 0, 64)
	for rows.Next() {
		a, err := scanArtwork(rows)
		if err != nil {
			return nil, core.NewStoreFailure("all_artworks", err)
		}
		if a.Validate() != nil {
			continue
		}
		out = append(out, a)
	}
	if err := rows.Err(); err != nil {
		return nil, core.NewStoreFailure("all_artworks", err)
	}
	return out, nil
}

func (s *FeatureStore) GetArtworkAnalysis(ctx context.Context, artworkID string) (*core.ArtworkAnalysis, error) {
	const query = `
SELECT artwork_id, style_vector, category_scores, color_palette, popularity_score, quality_score, content_hash, last_analyzed
FROM artwork_analysis
WHERE artwork_id = $1
LIMIT 1`
	var (
		a              core.ArtworkAnalysis
		vector, scores []byte
		quality        sql.NullFloat64
	)
	err := s.db.QueryRowContext(ctx, query, artworkID).Scan(
		&a.ArtworkID, &vector, &scores, &a.ColorPalette, &a.PopularityScore, &quality, &a.ContentHash, &a.LastAnalyzed,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, core.NewStoreFailure("analysis", err)
	}
	if err := decodeJSON(vector, &a.StyleVector); err != nil {
		return nil, core.NewStoreFailure("analysis", err)
	}
	if err := decodeJSON(scores, &a.CategoryScores); err != nil {
		return nil, core.NewStoreFailure("analysis", err)
	}
	if quality.Valid {
		q := quality.Float64
		a.QualityScore = &q
	}
	return &a, nil
}

func (s *FeatureStore) GetUserPreferenceVector(ctx context.Context, userID string) (*core.UserPreferenceVector, error) {
	const query = `
SELECT user_id, preference_vector, preferred_styles, preferred_categories, profile_confidence, last_updated
FROM user_preferences
WHERE user_id = $1
LIMIT 1`
	var (
		p                          core.UserPreferenceVector
		vector, styles, categories []byte
	)
	err := s.db.QueryRowContext(ctx, query, userID).Scan(
		&p.UserID, &vector, &styles, &categories, &p.ProfileConfidence, &p.LastUpdated,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, core.NewStoreFailure("preference", err)
	}
	for _, f := range []struct {
		raw []byte
		dst any
	}{{vector, &p.PreferenceVector}, {styles, &p.PreferredStyles}, {categories, &p.PreferredCategories}} {
		if err := decodeJSON(f.raw, f.dst); err != nil {
			return nil, core.NewStoreFailure("preference", err)
		}
	}
	p.ProfileConfidence = core.ClampScore(p.ProfileConfidence)
	return &p, nil
}

func decodeJSON(raw []byte, dst any) error {
	if len(raw) == 0 {
		return nil
	}
	return json.Unmarshal(raw, dst)
}
