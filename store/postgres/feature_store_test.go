package postgres_test

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rushteam/artrec/core"
	"github.com/rushteam/artrec/store/postgres"
)

var ts = time.Date(2024, 2, 1, 10, 0, 0, 0, time.UTC)

func newMock(t *testing.T) (*postgres.FeatureStore, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return postgres.NewFeatureStore(db), mock
}

func artworkRows() *sqlmock.Rows {
	return sqlmock.NewRows([]string{
		"id", "title", "description", "category", "styles", "tags",
		"artist_id", "price_min", "price_max", "popularity", "created_at",
	})
}

func TestFeatureStore_GetUserInteractions(t *testing.T) {
	fs, mock := newMock(t)
	mock.ExpectQuery(regexp.QuoteMeta(`FROM interactions`)).
		WithArgs("u1").
		WillReturnRows(sqlmock.NewRows([]string{"user_id", "artwork_id", "rating", "created_at"}).
			AddRow("u1", "a1", 1.0, ts).
			AddRow("u1", "a2", 1.7, ts.Add(time.Minute)).
			AddRow("u1", "a3", -0.5, ts.Add(2*time.Minute)))

	got, err := fs.GetUserInteractions(context.Background(), "u1")
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, 1.0, got[1].Rating)
	assert.Equal(t, 0.0, got[2].Rating)
	assert.Equal(t, ts, got[0].Timestamp)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestFeatureStore_GetUserHighRatedArtworks(t *testing.T) {
	fs, mock := newMock(t)
	mock.ExpectQuery(regexp.QuoteMeta(`DISTINCT ON (artwork_id)`)).
		WithArgs("u1", 0.7).
		WillReturnRows(sqlmock.NewRows([]string{"artwork_id", "rating"}).
			AddRow("a1", 1.0).
			AddRow("a2", 0.8))

	got, err := fs.GetUserHighRatedArtworks(context.Background(), "u1", 0.7)
	require.NoError(t, err)
	assert.Equal(t, []core.RatedArtwork{{ID: "a1", Rating: 1}, {ID: "a2", Rating: 0.8}}, got)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestFeatureStore_GetArtworkByID(t *testing.T) {
	fs, mock := newMock(t)
	mock.ExpectQuery(regexp.QuoteMeta(`FROM artworks`)).
		WithArgs("a1").
		WillReturnRows(artworkRows().
			AddRow(" a1 ", "Sunrise", "", "landscape", []byte(`["oil"," ",""]`), []byte(`["sun"]`), "m", 10.0, 20.0, 0.5, ts))

	got, err := fs.GetArtworkByID(context.Background(), "a1")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "a1", got.ID)
	assert.Equal(t, []string{"oil"}, got.Styles)
	assert.Equal(t, []string{"sun"}, got.Tags)

	mock.ExpectQuery(regexp.QuoteMeta(`FROM artworks`)).
		WithArgs("missing").
		WillReturnRows(artworkRows())
	got, err = fs.GetArtworkByID(context.Background(), "missing")
	require.NoError(t, err)
	assert.Nil(t, got)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestFeatureStore_GetAllArtworks_SkipsInvalid(t *testing.T) {
	fs, mock := newMock(t)
	mock.ExpectQuery(regexp.QuoteMeta(`WHERE active = TRUE`)).
		WillReturnRows(artworkRows().
			AddRow("a1", "", "", "c", []byte(`[]`), []byte(`[]`), "", 0.0, 0.0, 0.9, ts).
			AddRow("a2", "", "", "c", []byte(`[]`), []byte(`[]`), "", 50.0, 10.0, 0.5, ts).
			AddRow("", "", "", "c", []byte(`[]`), []byte(`[]`), "", 0.0, 0.0, 0.1, ts))

	got, err := fs.GetAllArtworks(context.Background())
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "a1", got[0].ID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestFeatureStore_GetArtworkAnalysis(t *testing.T) {
	fs, mock := newMock(t)
	cols := []string{"artwork_id", "style_vector", "category_scores", "color_palette", "popularity_score", "quality_score", "content_hash", "last_analyzed"}
	mock.ExpectQuery(regexp.QuoteMeta(`FROM artwork_analysis`)).
		WithArgs("a1").
		WillReturnRows(sqlmock.NewRows(cols).
			AddRow("a1", []byte(`[0.1,0.2]`), []byte(`{"landscape":0.9}`), "[0.5,0.5]", 0.4, 0.8, "h", ts))
	mock.ExpectQuery(regexp.QuoteMeta(`FROM artwork_analysis`)).
		WithArgs("a2").
		WillReturnRows(sqlmock.NewRows(cols).
			AddRow("a2", []byte(`[]`), []byte(`{}`), "", 0.0, nil, "", ts))

	got, err := fs.GetArtworkAnalysis(context.Background(), "a1")
	require.NoError(t, err)
	require.NotNil(t, got.QualityScore)
	assert.Equal(t, 0.8, *got.QualityScore)
	assert.Equal(t, []float64{0.1, 0.2}, got.StyleVector)
	assert.Equal(t, 0.9, got.CategoryScores["landscape"])

	got, err = fs.GetArtworkAnalysis(context.Background(), "a2")
	require.NoError(t, err)
	assert.Nil(t, got.QualityScore)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestFeatureStore_GetUserPreferenceVector_NotFound(t *testing.T) {
	fs, mock := newMock(t)
	mock.ExpectQuery(regexp.QuoteMeta(`FROM user_preferences`)).
		WithArgs("ghost").
		WillReturnRows(sqlmock.NewRows([]string{"user_id", "preference_vector", "preferred_styles", "preferred_categories", "profile_confidence", "last_updated"}))

	got, err := fs.GetUserPreferenceVector(context.Background(), "ghost")
	require.NoError(t, err)
	assert.Nil(t, got)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestFeatureStore_FailureIsStoreFailure(t *testing.T) {
	fs, mock := newMock(t)
	mock.ExpectQuery(`SELECT DISTINCT user_id`).WillReturnError(errors.New("connection refused"))

	_, err := fs.GetAllActiveUsers(context.Background())
	require.Error(t, err)
	assert.True(t, core.IsStoreFailure(err))
	require.NoError(t, mock.ExpectationsWereMet())
}
