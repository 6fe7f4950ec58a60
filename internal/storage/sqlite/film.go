package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/aimsports/aim-backend/internal/models"
	"github.com/aimsports/aim-backend/internal/storage"
)

const uploadColumns = "id, team_id, uploaded_by_id, game_id, title, notes, storage_url, status, duration_seconds, uploaded_at"

func scanUpload(row scanner) (models.Upload, error) {
	var (
		u          models.Upload
		uploadedBy sql.NullInt64
		gameID     sql.NullInt64
		notes      sql.NullString
		duration   sql.NullInt64
		uploadedAt int64
	)
	err := row.Scan(
		&u.ID, &u.TeamID, &uploadedBy, &gameID, &u.Title, &notes,
		&u.StorageURL, &u.Status, &duration, &uploadedAt,
	)
	if err != nil {
		return models.Upload{}, err
	}
	u.UploadedByID = fromNullInt64(uploadedBy)
	u.GameID = fromNullInt64(gameID)
	u.Notes = fromNullString(notes)
	u.DurationSeconds = fromNullInt(duration)
	u.UploadedAt = fromMicro(uploadedAt)

	return u, nil
}

// SaveUpload saves game upload.
func (s *Storage) SaveUpload(ctx context.Context, u models.Upload) (int64, error) {
	const op = "storage.sqlite.SaveUpload"

	stmt, err := s.db.PrepareContext(ctx, `
		INSERT INTO game_uploads(team_id, uploaded_by_id, game_id, title, notes, storage_url, status, duration_seconds, uploaded_at)
		VALUES(?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	defer stmt.Close()

	res, err := stmt.ExecContext(
		ctx,
		u.TeamID,
		nullable(u.UploadedByID),
		nullable(u.GameID),
		u.Title,
		nullable(u.Notes),
		u.StorageURL,
		u.Status,
		nullable(u.DurationSeconds),
		u.UploadedAt.UnixMicro(),
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

// Upload returns upload by id.
func (s *Storage) Upload(ctx context.Context, id int64) (models.Upload, error) {
	const op = "storage.sqlite.Upload"

	stmt, err := s.db.PrepareContext(ctx, "SELECT "+uploadColumns+" FROM game_uploads WHERE id = ?")
	if err != nil {
		return models.Upload{}, fmt.Errorf("%s: %w", op, err)
	}
	defer stmt.Close()

	u, err := scanUpload(stmt.QueryRowContext(ctx, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.Upload{}, fmt.Errorf("%s: %w", op, storage.ErrUploadNotFound)
		}

		return models.Upload{}, fmt.Errorf("%s: %w", op, err)
	}

	return u, nil
}

// Uploads returns team uploads, newest first.
func (s *Storage) Uploads(ctx context.Context, teamID int64) ([]models.Upload, error) {
	const op = "storage.sqlite.Uploads"

	stmt, err := s.db.PrepareContext(ctx, "SELECT "+uploadColumns+" FROM game_uploads WHERE team_id = ? ORDER BY uploaded_at DESC, id DESC")
	if err != nil {
		return []models.Upload{}, fmt.Errorf("%s: %w", op, err)
	}
	defer stmt.Close()

	rows, err := stmt.QueryContext(ctx, teamID)
	if err != nil {
		return []models.Upload{}, fmt.Errorf("%s: %w", op, err)
	}
	defer rows.Close()

	res, err := scanUploads(rows)
	if err != nil {
		return []models.Upload{}, fmt.Errorf("%s: %w", op, err)
	}

	return res, nil
}

func scanUploads(rows *sql.Rows) ([]models.Upload, error) {
	res := make([]models.Upload, 0)
	for rows.Next() {
		u, err := scanUpload(rows)
		if err != nil {
			return nil, err
		}
		res = append(res, u)
	}

	return res, rows.Err()
}

// DeleteUpload deletes upload.
// Segments and clips published from it are deleted too.
func (s *Storage) DeleteUpload(ctx context.Context, id int64) error {
	const op = "storage.sqlite.DeleteUpload"

	stmt, err := s.db.PrepareContext(ctx, "DELETE FROM game_uploads WHERE id = ?")
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
		return fmt.Errorf("%s: %w", op, storage.ErrUploadNotFound)
	}

	return nil
}

// SetUploadStatus updates upload status.
func (s *Storage) SetUploadStatus(ctx context.Context, id int64, status string) error {
	const op = "storage.sqlite.SetUploadStatus"

	stmt, err := s.db.PrepareContext(ctx, "UPDATE game_uploads SET status = ? WHERE id = ?")
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	defer stmt.Close()

	res, err := stmt.ExecContext(ctx, status, id)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	affectedRows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if affectedRows == 0 {
		return fmt.Errorf("%s: %w", op, storage.ErrUploadNotFound)
	}

	return nil
}

// FinishUpload stores probed duration and suggested
// segments and marks upload ready, all at once.
func (s *Storage) FinishUpload(ctx context.Context, id int64, duration *int, segments []models.Segment) error {
	const op = "storage.sqlite.FinishUpload"

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	defer tx.Rollback()

	if err := s.finishUploadSubUpdate(tx, ctx, id, duration); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	for _, seg := range segments {
		seg.UploadID = id
		if _, err := s.saveSegment(tx, ctx, seg); err != nil {
			return fmt.Errorf("%s: %w", op, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

func (s *Storage) finishUploadSubUpdate(tx statementBuilder, ctx context.Context, id int64, duration *int) error {
	const op = "finishUploadSubUpdate"

	stmt, err := tx.PrepareContext(ctx, `
		UPDATE game_uploads
		SET status = ?, duration_seconds = COALESCE(?, duration_seconds)
		WHERE id = ?
	`)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	defer stmt.Close()

	res, err := stmt.ExecContext(ctx, models.UploadReady, nullable(duration), id)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	affectedRows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if affectedRows == 0 {
		return fmt.Errorf("%s: %w", op, storage.ErrUploadNotFound)
	}

	return nil
}

// LinkUploads assigns the game to every upload without one
// accepted by match. Returns ids of updated uploads.
func (s *Storage) LinkUploads(ctx context.Context, gameID int64, match func(models.Upload) bool) ([]int64, error) {
	const op = "storage.sqlite.LinkUploads"

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer tx.Rollback()

	uploads, err := s.linkUploadsSubUnassigned(tx, ctx)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	ids := make([]int64, 0)
	for _, u := range uploads {
		if !match(u) {
			continue
		}
		if err := s.linkUploadsSubUpdate(tx, ctx, u.ID, gameID); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		ids = append(ids, u.ID)
	}

	if len(ids) == 0 {
		return ids, nil
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return ids, nil
}

func (s *Storage) linkUploadsSubUnassigned(tx statementBuilder, ctx context.Context) ([]models.Upload, error) {
	const op = "linkUploadsSubUnassigned"

	stmt, err := tx.PrepareContext(ctx, "SELECT "+uploadColumns+" FROM game_uploads WHERE game_id IS NULL ORDER BY uploaded_at DESC, id DESC")
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer stmt.Close()

	rows, err := stmt.QueryContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer rows.Close()

	res, err := scanUploads(rows)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return res, nil
}

func (s *Storage) linkUploadsSubUpdate(tx statementBuilder, ctx context.Context, id, gameID int64) error {
	const op = "linkUploadsSubUpdate"

	stmt, err := tx.PrepareContext(ctx, "UPDATE game_uploads SET game_id = ? WHERE id = ?")
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	defer stmt.Close()

	if _, err := stmt.ExecContext(ctx, gameID, id); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

const segmentColumns = "id, upload_id, start_second, end_second, label, notes, confidence, created_by_id, created_at"

func scanSegment(row scanner) (models.Segment, error) {
	var (
		seg        models.Segment
		label      sql.NullString
		notes      sql.NullString
		confidence sql.NullInt64
		createdBy  sql.NullInt64
		createdAt  int64
	)
	err := row.Scan(
		&seg.ID, &seg.UploadID, &seg.StartSecond, &seg.EndSecond,
		&label, &notes, &confidence, &createdBy, &createdAt,
	)
	if err != nil {
		return models.Segment{}, err
	}
	seg.Label = fromNullString(label)
	seg.Notes = fromNullString(notes)
	seg.Confidence = fromNullInt(confidence)
	seg.CreatedByID = fromNullInt64(createdBy)
	seg.CreatedAt = fromMicro(createdAt)

	return seg, nil
}

// SaveSegment saves film segment.
func (s *Storage) SaveSegment(ctx context.Context, seg models.Segment) (int64, error) {
	const op = "storage.sqlite.SaveSegment"

	id, err := s.saveSegment(s.db, ctx, seg)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}

	return id, nil
}

func (s *Storage) saveSegment(tx statementBuilder, ctx context.Context, seg models.Segment) (int64, error) {
	const op = "saveSegment"

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO film_segments(upload_id, start_second, end_second, label, notes, confidence, created_by_id, created_at)
		VALUES(?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	defer stmt.Close()

	createdAt := seg.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}

	res, err := stmt.ExecContext(
		ctx,
		seg.UploadID,
		seg.StartSecond,
		seg.EndSecond,
		nullable(seg.Label),
		nullable(seg.Notes),
		nullable(seg.Confidence),
		nullable(seg.CreatedByID),
		createdAt.UnixMicro(),
	)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}

	return res.LastInsertId()
}

// Segment returns film segment by id.
func (s *Storage) Segment(ctx context.Context, id int64) (models.Segment, error) {
	const op = "storage.sqlite.Segment"

	stmt, err := s.db.PrepareContext(ctx, "SELECT "+segmentColumns+" FROM film_segments WHERE id = ?")
	if err != nil {
		return models.Segment{}, fmt.Errorf("%s: %w", op, err)
	}
	defer stmt.Close()

	seg, err := scanSegment(stmt.QueryRowContext(ctx, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.Segment{}, fmt.Errorf("%s: %w", op, storage.ErrSegmentNotFound)
		}

		return models.Segment{}, fmt.Errorf("%s: %w", op, err)
	}

	return seg, nil
}

// Segments returns upload segments ordered by start.
func (s *Storage) Segments(ctx context.Context, uploadID int64) ([]models.Segment, error) {
	const op = "storage.sqlite.Segments"

	stmt, err := s.db.PrepareContext(ctx, "SELECT "+segmentColumns+" FROM film_segments WHERE upload_id = ? ORDER BY start_second, id")
	if err != nil {
		return []models.Segment{}, fmt.Errorf("%s: %w", op, err)
	}
	defer stmt.Close()

	rows, err := stmt.QueryContext(ctx, uploadID)
	if err != nil {
		return []models.Segment{}, fmt.Errorf("%s: %w", op, err)
	}
	defer rows.Close()

	res := make([]models.Segment, 0)
	for rows.Next() {
		seg, err := scanSegment(rows)
		if err != nil {
			return []models.Segment{}, fmt.Errorf("%s: %w", op, err)
		}
		res = append(res, seg)
	}
	if err := rows.Err(); err != nil {
		return []models.Segment{}, fmt.Errorf("%s: %w", op, err)
	}

	return res, nil
}
