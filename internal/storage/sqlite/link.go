package sqlite

import (
	"context"
	"fmt"
	"time"

	"github.com/aimsports/aim-backend/internal/models"
)

// RelinkClip replaces clip links with every possession
// whose video range intersects rng. Touching ranges are not linked.
// If gameID is set only possessions of that game are considered.
//
// If nothing intersects, existing links are kept as is
// and empty slice is returned.
func (s *Storage) RelinkClip(ctx context.Context, clipID int64, rng models.Range, gameID *int64) ([]int64, error) {
	const op = "storage.sqlite.RelinkClip"

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer tx.Rollback()

	ids, err := s.relinkClipSubOverlapping(tx, ctx, rng, gameID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if len(ids) == 0 {
		return ids, nil
	}

	if err := s.relinkClipSubClear(tx, ctx, clipID); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if err := s.relinkClipSubInsert(tx, ctx, clipID, ids); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return ids, nil
}

// relinkClipSubOverlapping returns ids of possessions intersecting [rng.Start, rng.End).
func (s *Storage) relinkClipSubOverlapping(tx statementBuilder, ctx context.Context, rng models.Range, gameID *int64) ([]int64, error) {
	const op = "relinkClipSubOverlapping"

	stmt, err := tx.PrepareContext(ctx, `
		SELECT id
		FROM possessions
		WHERE (
			video_start_second IS NOT NULL
			AND video_end_second IS NOT NULL
			AND video_end_second > ?
			AND video_start_second < ?
			AND (? IS NULL OR game_id = ?)
		)
		ORDER BY id
	`)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer stmt.Close()

	game := nullable(gameID)
	rows, err := stmt.QueryContext(ctx, rng.Start, rng.End, game, game)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer rows.Close()

	ids := make([]int64, 0)
	var id int64
	for rows.Next() {
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return ids, nil
}

func (s *Storage) relinkClipSubClear(tx statementBuilder, ctx context.Context, clipID int64) error {
	const op = "relinkClipSubClear"

	stmt, err := tx.PrepareContext(ctx, "DELETE FROM clip_possession_links WHERE clip_id = ?")
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	defer stmt.Close()

	if _, err := stmt.ExecContext(ctx, clipID); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

func (s *Storage) relinkClipSubInsert(tx statementBuilder, ctx context.Context, clipID int64, possessionIDs []int64) error {
	const op = "relinkClipSubInsert"

	stmt, err := tx.PrepareContext(ctx, "INSERT INTO clip_possession_links(clip_id, possession_id, created_at) VALUES(?, ?, ?)")
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	defer stmt.Close()

	now := time.Now().UnixMicro()
	for _, id := range possessionIDs {
		if _, err := stmt.ExecContext(ctx, clipID, id, now); err != nil {
			return fmt.Errorf("%s: %w", op, err)
		}
	}

	return nil
}

// ClipPossessionContexts returns possessions linked to clip with
// player and team names, in link insertion order.
func (s *Storage) ClipPossessionContexts(ctx context.Context, clipID int64) ([]models.PossessionContext, error) {
	const op = "storage.sqlite.ClipPossessionContexts"

	stmt, err := s.db.PrepareContext(ctx, `
		SELECT p.id, p.label, p.outcome, pl.name, t.name, p.video_start_second, p.video_end_second
		FROM clip_possession_links AS l
		JOIN possessions AS p ON p.id = l.possession_id
		LEFT JOIN players AS pl ON pl.id = p.player_id
		LEFT JOIN teams AS t ON t.id = pl.team_id
		WHERE l.clip_id = ?
		ORDER BY l.rowid
	`)
	if err != nil {
		return []models.PossessionContext{}, fmt.Errorf("%s: %w", op, err)
	}
	defer stmt.Close()

	rows, err := stmt.QueryContext(ctx, clipID)
	if err != nil {
		return []models.PossessionContext{}, fmt.Errorf("%s: %w", op, err)
	}
	defer rows.Close()

	res, err := scanPossessionContexts(rows)
	if err != nil {
		return []models.PossessionContext{}, fmt.Errorf("%s: %w", op, err)
	}

	return res, nil
}

// ClipLinks returns ids of possessions linked to clip.
func (s *Storage) ClipLinks(ctx context.Context, clipID int64) ([]int64, error) {
	const op = "storage.sqlite.ClipLinks"

	stmt, err := s.db.PrepareContext(ctx, "SELECT possession_id FROM clip_possession_links WHERE clip_id = ? ORDER BY rowid")
	if err != nil {
		return []int64{}, fmt.Errorf("%s: %w", op, err)
	}
	defer stmt.Close()

	rows, err := stmt.QueryContext(ctx, clipID)
	if err != nil {
		return []int64{}, fmt.Errorf("%s: %w", op, err)
	}
	defer rows.Close()

	ids := make([]int64, 0)
	var id int64
	for rows.Next() {
		if err := rows.Scan(&id); err != nil {
			return []int64{}, fmt.Errorf("%s: %w", op, err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return []int64{}, fmt.Errorf("%s: %w", op, err)
	}

	return ids, nil
}
