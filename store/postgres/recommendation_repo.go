package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/rushteam/artrec/core"
)

// RecommendationRepo 是 core.PrecomputedStore 的关系库实现。
// 单个用户的替换在一个事务里完成（先删后插），并发读者只看到旧集合或新集合。
type RecommendationRepo struct{ db *sql.DB }

func NewRecommendationRepo(db *sql.DB) *RecommendationRepo {
	return &RecommendationRepo{db: db}
}

func (repo *RecommendationRepo) ReplaceUserRecommendations(ctx context.Context, userID string, recs []core.PrecomputedRecommendation) (err error) {
	tx, err := repo.db.BeginTx(ctx, nil)
	if err != nil {
		return core.NewStoreFailure("replace_recommendations", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	const del = `DELETE FROM precomputed_recommendations WHERE user_id = $1`
	if _, err = tx.ExecContext(ctx, del, userID); err != nil {
		return core.NewStoreFailure("replace_recommendations", err)
	}

	if len(recs) > 0 {
		const ins = `
INSERT INTO precomputed_recommendations (user_id, artwork_id, score, algorithm, computed_at, valid_until)
VALUES ($1, $2, $3, $4, $5, $6)
ON CONFLICT (user_id, artwork_id) DO UPDATE
SET score = EXCLUDED.score, algorithm = EXCLUDED.algorithm,
    computed_at = EXCLUDED.computed_at, valid_until = EXCLUDED.valid_until`
		var stmt *sql.Stmt
		stmt, err = tx.PrepareContext(ctx, ins)
		if err != nil {
			return core.NewStoreFailure("replace_recommendations", err)
		}
		defer func() { _ = stmt.Close() }()

		for _, r := range recs {
			if _, err = stmt.ExecContext(ctx, userID, r.ArtworkID, r.Score, r.Algorithm, r.ComputedAt, r.ValidUntil); err != nil {
				return core.NewStoreFailure("replace_recommendations", err)
			}
		}
	}

	if err = tx.Commit(); err != nil {
		return core.NewStoreFailure("replace_recommendations", err)
	}
	return nil
}

func (repo *RecommendationRepo) GetValidRecommendations(ctx context.Context, userID string, now time.Time, limit int) ([]core.PrecomputedRecommendation, error) {
	query := `
SELECT user_id, artwork_id, score, algorithm, computed_at, valid_until
FROM precomputed_recommendations
WHERE user_id = $1 AND valid_until > $2
ORDER BY score DESC, artwork_id ASC`
	args := []any{userID, now}
	if limit > 0 {
		query += "\nLIMIT $3"
		args = append(args, limit)
	}

	rows, err := repo.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, core.NewStoreFailure("valid_recommendations", err)
	}
	defer func() { _ = rows.Close() }()

	out := make([]core.PrecomputedRecommendation, 0, max(limit, 0))
	for rows.Next() {
		var r core.PrecomputedRecommendation
		if err := rows.Scan(&r.UserID, &r.ArtworkID, &r.Score, &r.Algorithm, &r.ComputedAt, &r.ValidUntil); err != nil {
			return nil, core.NewStoreFailure("valid_recommendations", err)
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, core.NewStoreFailure("valid_recommendations", err)
	}
	return out, nil
}

func (repo *RecommendationRepo) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	const query = `DELETE FROM precomputed_recommendations WHERE valid_until <= $1`
	res, err := repo.db.ExecContext(ctx, query, now)
	if err != nil {
		return 0, core.NewStoreFailure("delete_expired", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("delete_expired: rows affected: %w", err)
	}
	return n, nil
}

func (repo *RecommendationRepo) Stats(ctx context.Context) (core.RecommendationStats, error) {
	const query = `
SELECT COUNT(*), COUNT(DISTINCT user_id), COUNT(DISTINCT artwork_id)
FROM precomputed_recommendations`
	var total, users, artworks int64
	if err := repo.db.QueryRowContext(ctx, query).Scan(&total, &users, &artworks); err != nil {
		return core.RecommendationStats{}, core.NewStoreFailure("stats", err)
	}
	return core.NewRecommendationStats(total, users, artworks), nil
}
