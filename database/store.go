package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"

	"cricket-scoring-service/models"
)

// querier 同时被 *sql.DB 和 *sql.Tx 满足，store 方法对两者透明
type querier interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

// SQLStore 基于 Postgres 的记分存储
type SQLStore struct {
	db *sql.DB
	q  querier
}

func NewSQLStore(db *sql.DB) *SQLStore {
	return &SQLStore{db: db, q: db}
}

// InTx 在单个事务中执行 fn。投球写路径必须走这里，
// 配合 LockInnings 保证同一局同一时刻只有一个在途写入。
func (s *SQLStore) InTx(ctx context.Context, fn func(tx Store) error) error {
	if s.db == nil {
		return fmt.Errorf("nested transaction not supported")
	}

	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelReadCommitted})
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}

	txStore := &SQLStore{q: tx}
	if err := fn(txStore); err != nil {
		tx.Rollback()
		return err
	}

	if err := tx.Commit(); err != nil {
		return mapError(err)
	}
	return nil
}

// mapError 将驱动错误映射到统一错误分类
func mapError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return models.ErrNotFound
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		// 40001 serialization_failure, 40P01 deadlock_detected
		if pqErr.Code == "40001" || pqErr.Code == "40P01" {
			return fmt.Errorf("%w: %v", models.ErrConflict, err)
		}
	}
	return err
}

// ---- 球队 / 球员 ----

func (s *SQLStore) CreateTeam(ctx context.Context, team *Team) error {
	query := `INSERT INTO teams (name, short_name) VALUES ($1, $2) RETURNING id, created_at`
	return mapError(s.q.QueryRowContext(ctx, query, team.Name, team.ShortName).Scan(&team.ID, &team.CreatedAt))
}

func (s *SQLStore) GetTeam(ctx context.Context, id int64) (*Team, error) {
	query := `SELECT id, name, short_name, created_at FROM teams WHERE id = $1`
	var t Team
	err := s.q.QueryRowContext(ctx, query, id).Scan(&t.ID, &t.Name, &t.ShortName, &t.CreatedAt)
	if err != nil {
		return nil, mapError(err)
	}
	return &t, nil
}

func (s *SQLStore) CreatePlayer(ctx context.Context, player *Player) error {
	query := `INSERT INTO players (team_id, name, role) VALUES ($1, $2, $3) RETURNING id, created_at`
	return mapError(s.q.QueryRowContext(ctx, query, player.TeamID, player.Name, player.Role).Scan(&player.ID, &player.CreatedAt))
}

func (s *SQLStore) GetPlayer(ctx context.Context, id int64) (*Player, error) {
	query := `SELECT id, team_id, name, role, created_at FROM players WHERE id = $1`
	var p Player
	err := s.q.QueryRowContext(ctx, query, id).Scan(&p.ID, &p.TeamID, &p.Name, &p.Role, &p.CreatedAt)
	if err != nil {
		return nil, mapError(err)
	}
	return &p, nil
}

// ---- 比赛 ----

const matchColumns = `id, team_a_id, team_b_id, venue, scheduled_at, status, toss_winner_id,
	toss_decision, tournament_id, overs_limit, winner_team_id, result_text, man_of_match_id,
	created_at, updated_at`

func scanMatch(row interface{ Scan(...interface{}) error }) (*Match, error) {
	var m Match
	err := row.Scan(&m.ID, &m.TeamAID, &m.TeamBID, &m.Venue, &m.ScheduledAt, &m.Status,
		&m.TossWinnerID, &m.TossDecision, &m.TournamentID, &m.OversLimit,
		&m.WinnerTeamID, &m.ResultText, &m.ManOfMatchID, &m.CreatedAt, &m.UpdatedAt)
	if err != nil {
		return nil, mapError(err)
	}
	return &m, nil
}

func (s *SQLStore) CreateMatch(ctx context.Context, match *Match) error {
	query := `
		INSERT INTO matches (team_a_id, team_b_id, venue, scheduled_at, status, tournament_id, overs_limit)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, created_at, updated_at
	`
	return mapError(s.q.QueryRowContext(ctx, query,
		match.TeamAID, match.TeamBID, match.Venue, match.ScheduledAt,
		match.Status, match.TournamentID, match.OversLimit,
	).Scan(&match.ID, &match.CreatedAt, &match.UpdatedAt))
}

func (s *SQLStore) GetMatch(ctx context.Context, id int64) (*Match, error) {
	query := `SELECT ` + matchColumns + ` FROM matches WHERE id = $1`
	return scanMatch(s.q.QueryRowContext(ctx, query, id))
}

func (s *SQLStore) ListMatchesByStatus(ctx context.Context, status string) ([]*Match, error) {
	query := `SELECT ` + matchColumns + ` FROM matches WHERE status = $1 ORDER BY scheduled_at`
	rows, err := s.q.QueryContext(ctx, query, status)
	if err != nil {
		return nil, mapError(err)
	}
	defer rows.Close()

	var matches []*Match
	for rows.Next() {
		m, err := scanMatch(rows)
		if err != nil {
			return nil, err
		}
		matches = append(matches, m)
	}
	return matches, rows.Err()
}

func (s *SQLStore) ListMatches(ctx context.Context, limit, offset int) ([]*Match, error) {
	query := `SELECT ` + matchColumns + ` FROM matches ORDER BY scheduled_at DESC LIMIT $1 OFFSET $2`
	rows, err := s.q.QueryContext(ctx, query, limit, offset)
	if err != nil {
		return nil, mapError(err)
	}
	defer rows.Close()

	var matches []*Match
	for rows.Next() {
		m, err := scanMatch(rows)
		if err != nil {
			return nil, err
		}
		matches = append(matches, m)
	}
	return matches, rows.Err()
}

func (s *SQLStore) UpdateMatch(ctx context.Context, match *Match) error {
	query := `
		UPDATE matches SET status = $2, toss_winner_id = $3, toss_decision = $4,
			winner_team_id = $5, result_text = $6, man_of_match_id = $7,
			updated_at = CURRENT_TIMESTAMP
		WHERE id = $1
	`
	_, err := s.q.ExecContext(ctx, query, match.ID, match.Status, match.TossWinnerID,
		match.TossDecision, match.WinnerTeamID, match.ResultText, match.ManOfMatchID)
	return mapError(err)
}

// ---- 局 ----

const inningsColumns = `id, match_id, number, batting_team_id, bowling_team_id,
	total_runs, total_wickets, total_overs, extras, status, created_at, updated_at`

func scanInnings(row interface{ Scan(...interface{}) error }) (*Innings, error) {
	var in Innings
	err := row.Scan(&in.ID, &in.MatchID, &in.Number, &in.BattingTeamID, &in.BowlingTeamID,
		&in.TotalRuns, &in.TotalWickets, &in.TotalOvers, &in.Extras, &in.Status,
		&in.CreatedAt, &in.UpdatedAt)
	if err != nil {
		return nil, mapError(err)
	}
	return &in, nil
}

func (s *SQLStore) CreateInnings(ctx context.Context, innings *Innings) error {
	query := `
		INSERT INTO innings (match_id, number, batting_team_id, bowling_team_id, status)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at, updated_at
	`
	return mapError(s.q.QueryRowContext(ctx, query,
		innings.MatchID, innings.Number, innings.BattingTeamID, innings.BowlingTeamID, innings.Status,
	).Scan(&innings.ID, &innings.CreatedAt, &innings.UpdatedAt))
}

func (s *SQLStore) GetInnings(ctx context.Context, id int64) (*Innings, error) {
	query := `SELECT ` + inningsColumns + ` FROM innings WHERE id = $1`
	return scanInnings(s.q.QueryRowContext(ctx, query, id))
}

// LockInnings 行锁读取，只在事务内有意义。
// 并发投球请求在这里排队，防止两个请求都读到"第5轮有4球"后各自追加。
func (s *SQLStore) LockInnings(ctx context.Context, id int64) (*Innings, error) {
	query := `SELECT ` + inningsColumns + ` FROM innings WHERE id = $1 FOR UPDATE`
	return scanInnings(s.q.QueryRowContext(ctx, query, id))
}

func (s *SQLStore) GetInningsByNumber(ctx context.Context, matchID int64, number int) (*Innings, error) {
	query := `SELECT ` + inningsColumns + ` FROM innings WHERE match_id = $1 AND number = $2`
	return scanInnings(s.q.QueryRowContext(ctx, query, matchID, number))
}

func (s *SQLStore) ListInningsByMatch(ctx context.Context, matchID int64) ([]*Innings, error) {
	query := `SELECT ` + inningsColumns + ` FROM innings WHERE match_id = $1 ORDER BY number`
	rows, err := s.q.QueryContext(ctx, query, matchID)
	if err != nil {
		return nil, mapError(err)
	}
	defer rows.Close()

	var list []*Innings
	for rows.Next() {
		in, err := scanInnings(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, in)
	}
	return list, rows.Err()
}

func (s *SQLStore) UpdateInnings(ctx context.Context, innings *Innings) error {
	query := `
		UPDATE innings SET total_runs = $2, total_wickets = $3, total_overs = $4,
			extras = $5, status = $6, updated_at = CURRENT_TIMESTAMP
		WHERE id = $1
	`
	_, err := s.q.ExecContext(ctx, query, innings.ID, innings.TotalRuns, innings.TotalWickets,
		innings.TotalOvers, innings.Extras, innings.Status)
	return mapError(err)
}

// ---- 投球轮 ----

const overColumns = `id, innings_id, number, bowler_id, runs_scored, wickets, legal_balls, is_maiden, created_at`

func scanOver(row interface{ Scan(...interface{}) error }) (*Over, error) {
	var o Over
	err := row.Scan(&o.ID, &o.InningsID, &o.Number, &o.BowlerID, &o.RunsScored,
		&o.Wickets, &o.LegalBalls, &o.IsMaiden, &o.CreatedAt)
	if err != nil {
		return nil, mapError(err)
	}
	return &o, nil
}

func (s *SQLStore) CreateOver(ctx context.Context, over *Over) error {
	query := `
		INSERT INTO overs (innings_id, number, bowler_id)
		VALUES ($1, $2, $3)
		RETURNING id, created_at
	`
	return mapError(s.q.QueryRowContext(ctx, query, over.InningsID, over.Number, over.BowlerID).
		Scan(&over.ID, &over.CreatedAt))
}

func (s *SQLStore) GetLatestOver(ctx context.Context, inningsID int64) (*Over, error) {
	query := `SELECT ` + overColumns + ` FROM overs WHERE innings_id = $1 ORDER BY number DESC LIMIT 1`
	return scanOver(s.q.QueryRowContext(ctx, query, inningsID))
}

func (s *SQLStore) ListOversByInnings(ctx context.Context, inningsID int64) ([]*Over, error) {
	query := `SELECT ` + overColumns + ` FROM overs WHERE innings_id = $1 ORDER BY number`
	rows, err := s.q.QueryContext(ctx, query, inningsID)
	if err != nil {
		return nil, mapError(err)
	}
	defer rows.Close()

	var list []*Over
	for rows.Next() {
		o, err := scanOver(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, o)
	}
	return list, rows.Err()
}

func (s *SQLStore) UpdateOver(ctx context.Context, over *Over) error {
	query := `
		UPDATE overs SET runs_scored = $2, wickets = $3, legal_balls = $4, is_maiden = $5
		WHERE id = $1
	`
	_, err := s.q.ExecContext(ctx, query, over.ID, over.RunsScored, over.Wickets, over.LegalBalls, over.IsMaiden)
	return mapError(err)
}

// ---- 投球事件 ----

const ballColumns = `id, over_id, innings_id, number, bowler_id, batsman_id, runs,
	is_wicket, wicket_type, dismissed_id, wicket_taker_id, is_extra, extra_type, extra_runs,
	shot_angle, shot_distance, pitch_trajectory, commentary, created_at`

func scanBall(row interface{ Scan(...interface{}) error }) (*Ball, error) {
	var b Ball
	err := row.Scan(&b.ID, &b.OverID, &b.InningsID, &b.Number, &b.BowlerID, &b.BatsmanID,
		&b.Runs, &b.IsWicket, &b.WicketType, &b.DismissedID, &b.WicketTakerID,
		&b.IsExtra, &b.ExtraType, &b.ExtraRuns,
		&b.ShotAngle, &b.ShotDistance, &b.PitchTrajectory, &b.Commentary, &b.CreatedAt)
	if err != nil {
		return nil, mapError(err)
	}
	return &b, nil
}

func (s *SQLStore) CreateBall(ctx context.Context, ball *Ball) error {
	query := `
		INSERT INTO balls (over_id, innings_id, number, bowler_id, batsman_id, runs,
			is_wicket, wicket_type, dismissed_id, wicket_taker_id,
			is_extra, extra_type, extra_runs,
			shot_angle, shot_distance, pitch_trajectory, commentary)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)
		RETURNING id, created_at
	`
	return mapError(s.q.QueryRowContext(ctx, query,
		ball.OverID, ball.InningsID, ball.Number, ball.BowlerID, ball.BatsmanID, ball.Runs,
		ball.IsWicket, ball.WicketType, ball.DismissedID, ball.WicketTakerID,
		ball.IsExtra, ball.ExtraType, ball.ExtraRuns,
		ball.ShotAngle, ball.ShotDistance, ball.PitchTrajectory, ball.Commentary,
	).Scan(&ball.ID, &ball.CreatedAt))
}

func (s *SQLStore) ListBallsByOver(ctx context.Context, overID int64) ([]*Ball, error) {
	query := `SELECT ` + ballColumns + ` FROM balls WHERE over_id = $1 ORDER BY id`
	return s.listBalls(ctx, query, overID)
}

func (s *SQLStore) ListBallsByInnings(ctx context.Context, inningsID int64) ([]*Ball, error) {
	query := `SELECT ` + ballColumns + ` FROM balls WHERE innings_id = $1 ORDER BY id`
	return s.listBalls(ctx, query, inningsID)
}

func (s *SQLStore) listBalls(ctx context.Context, query string, arg int64) ([]*Ball, error) {
	rows, err := s.q.QueryContext(ctx, query, arg)
	if err != nil {
		return nil, mapError(err)
	}
	defer rows.Close()

	var list []*Ball
	for rows.Next() {
		b, err := scanBall(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, b)
	}
	return list, rows.Err()
}

// ---- 球员表现 ----

func (s *SQLStore) GetBattingPerformance(ctx context.Context, inningsID, playerID int64) (*BattingPerformance, error) {
	query := `
		SELECT id, innings_id, player_id, runs, balls_faced, fours, sixes, strike_rate, is_out
		FROM batting_performances WHERE innings_id = $1 AND player_id = $2
	`
	var p BattingPerformance
	err := s.q.QueryRowContext(ctx, query, inningsID, playerID).Scan(&p.ID, &p.InningsID,
		&p.PlayerID, &p.Runs, &p.BallsFaced, &p.Fours, &p.Sixes, &p.StrikeRate, &p.IsOut)
	if err != nil {
		return nil, mapError(err)
	}
	return &p, nil
}

func (s *SQLStore) UpsertBattingPerformance(ctx context.Context, p *BattingPerformance) error {
	query := `
		INSERT INTO batting_performances (innings_id, player_id, runs, balls_faced, fours, sixes, strike_rate, is_out)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (innings_id, player_id)
		DO UPDATE SET runs = $3, balls_faced = $4, fours = $5, sixes = $6, strike_rate = $7, is_out = $8
		RETURNING id
	`
	return mapError(s.q.QueryRowContext(ctx, query, p.InningsID, p.PlayerID, p.Runs,
		p.BallsFaced, p.Fours, p.Sixes, p.StrikeRate, p.IsOut).Scan(&p.ID))
}

func (s *SQLStore) ListBattingPerformances(ctx context.Context, inningsID int64) ([]*BattingPerformance, error) {
	query := `
		SELECT id, innings_id, player_id, runs, balls_faced, fours, sixes, strike_rate, is_out
		FROM batting_performances WHERE innings_id = $1 ORDER BY id
	`
	rows, err := s.q.QueryContext(ctx, query, inningsID)
	if err != nil {
		return nil, mapError(err)
	}
	defer rows.Close()

	var list []*BattingPerformance
	for rows.Next() {
		var p BattingPerformance
		if err := rows.Scan(&p.ID, &p.InningsID, &p.PlayerID, &p.Runs, &p.BallsFaced,
			&p.Fours, &p.Sixes, &p.StrikeRate, &p.IsOut); err != nil {
			return nil, mapError(err)
		}
		list = append(list, &p)
	}
	return list, rows.Err()
}

func (s *SQLStore) GetBowlingPerformance(ctx context.Context, inningsID, playerID int64) (*BowlingPerformance, error) {
	query := `
		SELECT id, innings_id, player_id, balls_bowled, overs, runs_conceded, wickets, maidens, economy
		FROM bowling_performances WHERE innings_id = $1 AND player_id = $2
	`
	var p BowlingPerformance
	err := s.q.QueryRowContext(ctx, query, inningsID, playerID).Scan(&p.ID, &p.InningsID,
		&p.PlayerID, &p.BallsBowled, &p.Overs, &p.RunsConceded, &p.Wickets, &p.Maidens, &p.Economy)
	if err != nil {
		return nil, mapError(err)
	}
	return &p, nil
}

func (s *SQLStore) UpsertBowlingPerformance(ctx context.Context, p *BowlingPerformance) error {
	query := `
		INSERT INTO bowling_performances (innings_id, player_id, balls_bowled, overs, runs_conceded, wickets, maidens, economy)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (innings_id, player_id)
		DO UPDATE SET balls_bowled = $3, overs = $4, runs_conceded = $5, wickets = $6, maidens = $7, economy = $8
		RETURNING id
	`
	return mapError(s.q.QueryRowContext(ctx, query, p.InningsID, p.PlayerID, p.BallsBowled,
		p.Overs, p.RunsConceded, p.Wickets, p.Maidens, p.Economy).Scan(&p.ID))
}

func (s *SQLStore) ListBowlingPerformances(ctx context.Context, inningsID int64) ([]*BowlingPerformance, error) {
	query := `
		SELECT id, innings_id, player_id, balls_bowled, overs, runs_conceded, wickets, maidens, economy
		FROM bowling_performances WHERE innings_id = $1 ORDER BY id
	`
	rows, err := s.q.QueryContext(ctx, query, inningsID)
	if err != nil {
		return nil, mapError(err)
	}
	defer rows.Close()

	var list []*BowlingPerformance
	for rows.Next() {
		var p BowlingPerformance
		if err := rows.Scan(&p.ID, &p.InningsID, &p.PlayerID, &p.BallsBowled, &p.Overs,
			&p.RunsConceded, &p.Wickets, &p.Maidens, &p.Economy); err != nil {
			return nil, mapError(err)
		}
		list = append(list, &p)
	}
	return list, rows.Err()
}

// ---- 胜率快照 ----

const snapshotColumns = `id, match_id, innings_number, over_number, ball_number,
	batting_team_prob, bowling_team_prob, tie_prob, target, required_run_rate,
	current_runs, current_wickets, balls_remaining, created_at`

func scanSnapshot(row interface{ Scan(...interface{}) error }) (*WinProbabilitySnapshot, error) {
	var ws WinProbabilitySnapshot
	err := row.Scan(&ws.ID, &ws.MatchID, &ws.InningsNumber, &ws.OverNumber, &ws.BallNumber,
		&ws.BattingTeamProb, &ws.BowlingTeamProb, &ws.TieProb, &ws.Target, &ws.RequiredRunRate,
		&ws.CurrentRuns, &ws.CurrentWickets, &ws.BallsRemaining, &ws.CreatedAt)
	if err != nil {
		return nil, mapError(err)
	}
	return &ws, nil
}

func (s *SQLStore) CreateSnapshot(ctx context.Context, snap *WinProbabilitySnapshot) error {
	query := `
		INSERT INTO win_probability_snapshots (match_id, innings_number, over_number, ball_number,
			batting_team_prob, bowling_team_prob, tie_prob, target, required_run_rate,
			current_runs, current_wickets, balls_remaining)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		RETURNING id, created_at
	`
	return mapError(s.q.QueryRowContext(ctx, query,
		snap.MatchID, snap.InningsNumber, snap.OverNumber, snap.BallNumber,
		snap.BattingTeamProb, snap.BowlingTeamProb, snap.TieProb, snap.Target, snap.RequiredRunRate,
		snap.CurrentRuns, snap.CurrentWickets, snap.BallsRemaining,
	).Scan(&snap.ID, &snap.CreatedAt))
}

func (s *SQLStore) GetLatestSnapshot(ctx context.Context, matchID int64) (*WinProbabilitySnapshot, error) {
	query := `SELECT ` + snapshotColumns + ` FROM win_probability_snapshots WHERE match_id = $1 ORDER BY id DESC LIMIT 1`
	return scanSnapshot(s.q.QueryRowContext(ctx, query, matchID))
}

func (s *SQLStore) ListSnapshots(ctx context.Context, matchID int64) ([]*WinProbabilitySnapshot, error) {
	query := `SELECT ` + snapshotColumns + ` FROM win_probability_snapshots WHERE match_id = $1 ORDER BY id`
	rows, err := s.q.QueryContext(ctx, query, matchID)
	if err != nil {
		return nil, mapError(err)
	}
	defer rows.Close()

	var list []*WinProbabilitySnapshot
	for rows.Next() {
		ws, err := scanSnapshot(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, ws)
	}
	return list, rows.Err()
}
