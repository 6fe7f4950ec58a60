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

const gameColumns = "id, matchup, scheduled_at, location, home_team_id, away_team_id"

func scanGame(row scanner) (models.Game, error) {
	var (
		game        models.Game
		scheduledAt int64
		location    sql.NullString
		home, away  sql.NullInt64
	)
	if err := row.Scan(&game.ID, &game.Matchup, &scheduledAt, &location, &home, &away); err != nil {
		return models.Game{}, err
	}
	game.ScheduledAt = fromMicro(scheduledAt)
	game.Location = fromNullString(location)
	game.HomeTeamID = fromNullInt64(home)
	game.AwayTeamID = fromNullInt64(away)

	return game, nil
}

// Game returns game by id.
func (s *Storage) Game(ctx context.Context, id int64) (models.Game, error) {
	const op = "storage.sqlite.Game"

	stmt, err := s.db.PrepareContext(ctx, "SELECT "+gameColumns+" FROM games WHERE id = ?")
	if err != nil {
		return models.Game{}, fmt.Errorf("%s: %w", op, err)
	}
	defer stmt.Close()

	game, err := scanGame(stmt.QueryRowContext(ctx, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.Game{}, fmt.Errorf("%s: %w", op, storage.ErrGameNotFound)
		}

		return models.Game{}, fmt.Errorf("%s: %w", op, err)
	}

	return game, nil
}

// LatestGame returns the most recently scheduled game.
// Empty matchup matches any game.
func (s *Storage) LatestGame(ctx context.Context, matchup string) (models.Game, error) {
	const op = "storage.sqlite.LatestGame"

	stmt, err := s.db.PrepareContext(ctx, `
		SELECT `+gameColumns+`
		FROM games
		WHERE (? = '' OR matchup = ?)
		ORDER BY scheduled_at DESC, id DESC
		LIMIT 1
	`)
	if err != nil {
		return models.Game{}, fmt.Errorf("%s: %w", op, err)
	}
	defer stmt.Close()

	game, err := scanGame(stmt.QueryRowContext(ctx, matchup, matchup))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.Game{}, fmt.Errorf("%s: %w", op, storage.ErrGameNotFound)
		}

		return models.Game{}, fmt.Errorf("%s: %w", op, err)
	}

	return game, nil
}

// Games returns all games, most recently scheduled first.
func (s *Storage) Games(ctx context.Context) ([]models.Game, error) {
	const op = "storage.sqlite.Games"

	stmt, err := s.db.PrepareContext(ctx, "SELECT "+gameColumns+" FROM games ORDER BY scheduled_at DESC, id DESC")
	if err != nil {
		return []models.Game{}, fmt.Errorf("%s: %w", op, err)
	}
	defer stmt.Close()

	rows, err := stmt.QueryContext(ctx)
	if err != nil {
		return []models.Game{}, fmt.Errorf("%s: %w", op, err)
	}
	defer rows.Close()

	games := make([]models.Game, 0)
	for rows.Next() {
		game, err := scanGame(rows)
		if err != nil {
			return []models.Game{}, fmt.Errorf("%s: %w", op, err)
		}
		games = append(games, game)
	}
	if err := rows.Err(); err != nil {
		return []models.Game{}, fmt.Errorf("%s: %w", op, err)
	}

	return games, nil
}

// IngestGame saves game with one possession per row.
//
// Players are deduplicated by (name, jersey number).
// Team of a newly created player is resolved by name
// and created if missing. Existing players keep their team.
func (s *Storage) IngestGame(ctx context.Context, game models.Game, rows []models.PossessionRow) (models.Game, error) {
	const op = "storage.sqlite.IngestGame"

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return models.Game{}, fmt.Errorf("%s: %w", op, err)
	}
	defer tx.Rollback()

	game.ID, err = s.ingestGameSubGame(tx, ctx, game)
	if err != nil {
		return models.Game{}, fmt.Errorf("%s: %w", op, err)
	}

	for _, row := range rows {
		playerID, err := s.ingestGameSubPlayer(tx, ctx, row)
		if err != nil {
			return models.Game{}, fmt.Errorf("%s: line %d: %w", op, row.Line, err)
		}

		if err := s.ingestGameSubPossession(tx, ctx, game.ID, playerID, row); err != nil {
			return models.Game{}, fmt.Errorf("%s: line %d: %w", op, row.Line, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return models.Game{}, fmt.Errorf("%s: %w", op, err)
	}

	return game, nil
}

func (s *Storage) ingestGameSubGame(tx statementBuilder, ctx context.Context, game models.Game) (int64, error) {
	const op = "ingestGameSubGame"

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO games(matchup, scheduled_at, location, home_team_id, away_team_id)
		VALUES(?, ?, ?, ?, ?)
	`)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	defer stmt.Close()

	res, err := stmt.ExecContext(
		ctx,
		game.Matchup,
		game.ScheduledAt.UnixMicro(),
		nullable(game.Location),
		nullable(game.HomeTeamID),
		nullable(game.AwayTeamID),
	)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}

	return res.LastInsertId()
}

func (s *Storage) ingestGameSubPlayer(tx statementBuilder, ctx context.Context, row models.PossessionRow) (int64, error) {
	const op = "ingestGameSubPlayer"

	stmt, err := tx.PrepareContext(ctx, "SELECT id FROM players WHERE name = ? AND jersey_number = ?")
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	defer stmt.Close()

	var id int64
	err = stmt.QueryRowContext(ctx, row.Player, row.Jersey).Scan(&id)
	if err == nil {
		return id, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return 0, fmt.Errorf("%s: %w", op, err)
	}

	var teamID *int64
	if row.Team != nil && *row.Team != "" {
		id, err := s.ingestGameSubTeam(tx, ctx, *row.Team)
		if err != nil {
			return 0, fmt.Errorf("%s: %w", op, err)
		}
		teamID = &id
	}

	insert, err := tx.PrepareContext(ctx, "INSERT INTO players(name, jersey_number, team_id) VALUES(?, ?, ?)")
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	defer insert.Close()

	res, err := insert.ExecContext(ctx, row.Player, row.Jersey, nullable(teamID))
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}

	return res.LastInsertId()
}

func (s *Storage) ingestGameSubTeam(tx statementBuilder, ctx context.Context, name string) (int64, error) {
	const op = "ingestGameSubTeam"

	stmt, err := tx.PrepareContext(ctx, "SELECT id FROM teams WHERE name = ? ORDER BY id LIMIT 1")
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	defer stmt.Close()

	var id int64
	err = stmt.QueryRowContext(ctx, name).Scan(&id)
	if err == nil {
		return id, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return 0, fmt.Errorf("%s: %w", op, err)
	}

	id, err = s.saveTeamSubTeam(tx, ctx, models.Team{Name: name, CreatedAt: time.Now().UTC()})
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}

	return id, nil
}

func (s *Storage) ingestGameSubPossession(tx statementBuilder, ctx context.Context, gameID, playerID int64, row models.PossessionRow) error {
	const op = "ingestGameSubPossession"

	stmt, err := tx.PrepareContext(ctx, "INSERT INTO possessions(game_id, player_id, label, outcome) VALUES(?, ?, ?, ?)")
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	defer stmt.Close()

	if _, err := stmt.ExecContext(ctx, gameID, playerID, row.Label, nullable(row.Outcome)); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

const possessionColumns = "id, game_id, player_id, label, outcome, video_start_second, video_end_second"

func scanPossession(row scanner) (models.Possession, error) {
	var (
		p          models.Possession
		playerID   sql.NullInt64
		outcome    sql.NullString
		start, end sql.NullInt64
	)
	if err := row.Scan(&p.ID, &p.GameID, &playerID, &p.Label, &outcome, &start, &end); err != nil {
		return models.Possession{}, err
	}
	p.PlayerID = fromNullInt64(playerID)
	p.Outcome = fromNullString(outcome)
	p.VideoStartSecond = fromNullInt(start)
	p.VideoEndSecond = fromNullInt(end)

	return p, nil
}

// Possession returns possession by id.
func (s *Storage) Possession(ctx context.Context, id int64) (models.Possession, error) {
	const op = "storage.sqlite.Possession"

	stmt, err := s.db.PrepareContext(ctx, "SELECT "+possessionColumns+" FROM possessions WHERE id = ?")
	if err != nil {
		return models.Possession{}, fmt.Errorf("%s: %w", op, err)
	}
	defer stmt.Close()

	p, err := scanPossession(stmt.QueryRowContext(ctx, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.Possession{}, fmt.Errorf("%s: %w", op, storage.ErrPossessionNotFound)
		}

		return models.Possession{}, fmt.Errorf("%s: %w", op, err)
	}

	return p, nil
}

// GamePossessions returns game possessions in insertion order.
func (s *Storage) GamePossessions(ctx context.Context, gameID int64) ([]models.Possession, error) {
	const op = "storage.sqlite.GamePossessions"

	stmt, err := s.db.PrepareContext(ctx, "SELECT "+possessionColumns+" FROM possessions WHERE game_id = ? ORDER BY id")
	if err != nil {
		return []models.Possession{}, fmt.Errorf("%s: %w", op, err)
	}
	defer stmt.Close()

	rows, err := stmt.QueryContext(ctx, gameID)
	if err != nil {
		return []models.Possession{}, fmt.Errorf("%s: %w", op, err)
	}
	defer rows.Close()

	res := make([]models.Possession, 0)
	for rows.Next() {
		p, err := scanPossession(rows)
		if err != nil {
			return []models.Possession{}, fmt.Errorf("%s: %w", op, err)
		}
		res = append(res, p)
	}
	if err := rows.Err(); err != nil {
		return []models.Possession{}, fmt.Errorf("%s: %w", op, err)
	}

	return res, nil
}

// SetPossessionRange tags possession with video range.
func (s *Storage) SetPossessionRange(ctx context.Context, id int64, rng models.Range) error {
	const op = "storage.sqlite.SetPossessionRange"

	stmt, err := s.db.PrepareContext(ctx, "UPDATE possessions SET video_start_second = ?, video_end_second = ? WHERE id = ?")
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	defer stmt.Close()

	res, err := stmt.ExecContext(ctx, rng.Start, rng.End, id)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	affectedRows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if affectedRows == 0 {
		return fmt.Errorf("%s: %w", op, storage.ErrPossessionNotFound)
	}

	return nil
}

// GamePossessionContexts returns game possessions with
// player and team names, in insertion order.
func (s *Storage) GamePossessionContexts(ctx context.Context, gameID int64) ([]models.PossessionContext, error) {
	const op = "storage.sqlite.GamePossessionContexts"

	stmt, err := s.db.PrepareContext(ctx, `
		SELECT p.id, p.label, p.outcome, pl.name, t.name, p.video_start_second, p.video_end_second
		FROM possessions AS p
		LEFT JOIN players AS pl ON pl.id = p.player_id
		LEFT JOIN teams AS t ON t.id = pl.team_id
		WHERE p.game_id = ?
		ORDER BY p.id
	`)
	if err != nil {
		return []models.PossessionContext{}, fmt.Errorf("%s: %w", op, err)
	}
	defer stmt.Close()

	rows, err := stmt.QueryContext(ctx, gameID)
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

func scanPossessionContexts(rows *sql.Rows) ([]models.PossessionContext, error) {
	res := make([]models.PossessionContext, 0)
	for rows.Next() {
		var (
			pc         models.PossessionContext
			outcome    sql.NullString
			player     sql.NullString
			team       sql.NullString
			start, end sql.NullInt64
		)
		if err := rows.Scan(&pc.PossessionID, &pc.Label, &outcome, &player, &team, &start, &end); err != nil {
			return nil, err
		}
		pc.Outcome = fromNullString(outcome)
		pc.Player = fromNullString(player)
		pc.Team = fromNullString(team)
		pc.StartSecond = fromNullInt(start)
		pc.EndSecond = fromNullInt(end)

		res = append(res, pc)
	}

	return res, rows.Err()
}
