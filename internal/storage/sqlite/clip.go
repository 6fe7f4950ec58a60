package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/aimsports/aim-backend/internal/models"
	"github.com/aimsports/aim-backend/internal/storage"
)

const clipColumns = `id, team_id, game_id, uploaded_by_id, title, notes, status, storage_url,
	uploaded_at, source_upload_id, source_start_second, source_end_second`

func scanClip(row scanner) (models.Clip, error) {
	var (
		c                      models.Clip
		teamID, gameID         sql.NullInt64
		uploadedBy             sql.NullInt64
		notes                  sql.NullString
		uploadedAt             int64
		sourceUpload           sql.NullInt64
		sourceStart, sourceEnd sql.NullInt64
	)
	err := row.Scan(
		&c.ID, &teamID, &gameID, &uploadedBy, &c.Title, &notes, &c.Status, &c.StorageURL,
		&uploadedAt, &sourceUpload, &sourceStart, &sourceEnd,
	)
	if err != nil {
		return models.Clip{}, err
	}
	c.TeamID = fromNullInt64(teamID)
	c.GameID = fromNullInt64(gameID)
	c.UploadedByID = fromNullInt64(uploadedBy)
	c.Notes = fromNullString(notes)
	c.UploadedAt = fromMicro(uploadedAt)
	c.SourceUploadID = fromNullInt64(sourceUpload)
	c.SourceStartSecond = fromNullInt(sourceStart)
	c.SourceEndSecond = fromNullInt(sourceEnd)

	return c, nil
}

func scanClips(rows *sql.Rows) ([]models.Clip, error) {
	res := make([]models.Clip, 0)
	for rows.Next() {
		c, err := scanClip(rows)
		if err != nil {
			return nil, err
		}
		res = append(res, c)
	}

	return res, rows.Err()
}

// SaveClip saves clip.
func (s *Storage) SaveClip(ctx context.Context, c models.Clip) (int64, error) {
	const op = "storage.sqlite.SaveClip"

	stmt, err := s.db.PrepareContext(ctx, `
		INSERT INTO clips(team_id, game_id, uploaded_by_id, title, notes, status, storage_url,
			uploaded_at, source_upload_id, source_start_second, source_end_second)
		VALUES(?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	defer stmt.Close()

	res, err := stmt.ExecContext(
		ctx,
		nullable(c.TeamID),
		nullable(c.GameID),
		nullable(c.UploadedByID),
		c.Title,
		nullable(c.Notes),
		c.Status,
		c.StorageURL,
		c.UploadedAt.UnixMicro(),
		nullable(c.SourceUploadID),
		nullable(c.SourceStartSecond),
		nullable(c.SourceEndSecond),
	)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}

	return id, nil
}

// Clip returns clip by id.
func (s *Storage) Clip(ctx context.Context, id int64) (models.Clip, error) {
	const op = "storage.sqlite.Clip"

	stmt, err := s.db.PrepareContext(ctx, "SELECT "+clipColumns+" FROM clips WHERE id = ?")
	if err != nil {
		return models.Clip{}, fmt.Errorf("%s: %w", op, err)
	}
	defer stmt.Close()

	c, err := scanClip(stmt.QueryRowContext(ctx, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.Clip{}, fmt.Errorf("%s: %w", op, storage.ErrClipNotFound)
		}

		return models.Clip{}, fmt.Errorf("%s: %w", op, err)
	}

	return c, nil
}

// Clips returns team clips, newest first.
func (s *Storage) Clips(ctx context.Context, teamID int64) ([]models.Clip, error) {
	const op = "storage.sqlite.Clips"

	stmt, err := s.db.PrepareContext(ctx, "SELECT "+clipColumns+" FROM clips WHERE team_id = ? ORDER BY uploaded_at DESC, id DESC")
	if err != nil {
		return []models.Clip{}, fmt.Errorf("%s: %w", op, err)
	}
	defer stmt.Close()

	rows, err := stmt.QueryContext(ctx, teamID)
	if err != nil {
		return []models.Clip{}, fmt.Errorf("%s: %w", op, err)
	}
	defer rows.Close()

	res, err := scanClips(rows)
	if err != nil {
		return []models.Clip{}, fmt.Errorf("%s: %w", op, err)
	}

	return res, nil
}

// DeleteClip deletes clip and its possession links.
func (s *Storage) DeleteClip(ctx context.Context, id int64) error {
	const op = "storage.sqlite.DeleteClip"

	stmt, err := s.db.PrepareContext(ctx, "DELETE FROM clips WHERE id = ?")
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	defer stmt.Close()

	res, err := stmt.ExecContext(ctx, id)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	affectedRows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if affectedRows == 0 {
		return fmt.Errorf("%s: %w", op, storage.ErrClipNotFound)
	}

	return nil
}

// ClipsForPossession returns clips whose source range intersects rng
// or that are already linked to the possession.
func (s *Storage) ClipsForPossession(ctx context.Context, possessionID int64, rng models.Range) ([]models.Clip, error) {
	const op = "storage.sqlite.ClipsForPossession"

	stmt, err := s.db.PrepareContext(ctx, `
		SELECT `+clipColumns+`
		FROM clips
		WHERE (
			source_start_second IS NOT NULL
			AND source_end_second IS NOT NULL
			AND source_end_second > ?
			AND source_start_second < ?
		) OR id IN (
			SELECT clip_id FROM clip_possession_links WHERE possession_id = ?
		)
		ORDER BY id
	`)
	if err != nil {
		return []models.Clip{}, fmt.Errorf("%s: %w", op, err)
	}
	defer stmt.Close()

	rows, err := stmt.QueryContext(ctx, rng.Start, rng.End, possessionID)
	if err != nil {
		return []models.Clip{}, fmt.Errorf("%s: %w", op, err)
	}
	defer rows.Close()

	res, err := scanClips(rows)
	if err != nil {
		return []models.Clip{}, fmt.Errorf("%s: %w", op, err)
	}

	return res, nil
}
