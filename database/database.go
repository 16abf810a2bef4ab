package database

import (
	"database/sql"
	"fmt"

	_ "github.com/lib/pq"
)

// Connect 连接到数据库
func Connect(databaseURL string) (*sql.DB, error) {
	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// 测试连接
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	// 设置连接池
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)

	return db, nil
}

// Migrate 运行数据库迁移
func Migrate(db *sql.DB) error {
	migrations := []string{
		// 球队表
		`CREATE TABLE IF NOT EXISTS teams (
			id BIGSERIAL PRIMARY KEY,
			name VARCHAR(100) UNIQUE NOT NULL,
			short_name VARCHAR(10) NOT NULL,
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		)`,

		// 球员表
		`CREATE TABLE IF NOT EXISTS players (
			id BIGSERIAL PRIMARY KEY,
			team_id BIGINT NOT NULL REFERENCES teams(id),
			name VARCHAR(100) NOT NULL,
			role VARCHAR(20) NOT NULL DEFAULT 'batsman',
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE INDEX IF NOT EXISTS idx_players_team_id ON players(team_id)`,

		// 比赛表
		`CREATE TABLE IF NOT EXISTS matches (
			id BIGSERIAL PRIMARY KEY,
			team_a_id BIGINT NOT NULL REFERENCES teams(id),
			team_b_id BIGINT NOT NULL REFERENCES teams(id),
			venue VARCHAR(200) NOT NULL DEFAULT '',
			scheduled_at TIMESTAMP NOT NULL,
			status VARCHAR(20) NOT NULL DEFAULT 'SCHEDULED',
			toss_winner_id BIGINT,
			toss_decision VARCHAR(10),
			tournament_id BIGINT,
			overs_limit INTEGER NOT NULL DEFAULT 20,
			winner_team_id BIGINT,
			result_text TEXT,
			man_of_match_id BIGINT,
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
			updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE INDEX IF NOT EXISTS idx_matches_status ON matches(status)`,

		// 局表
		`CREATE TABLE IF NOT EXISTS innings (
			id BIGSERIAL PRIMARY KEY,
			match_id BIGINT NOT NULL REFERENCES matches(id),
			number INTEGER NOT NULL,
			batting_team_id BIGINT NOT NULL,
			bowling_team_id BIGINT NOT NULL,
			total_runs INTEGER NOT NULL DEFAULT 0,
			total_wickets INTEGER NOT NULL DEFAULT 0,
			total_overs DOUBLE PRECISION NOT NULL DEFAULT 0,
			extras INTEGER NOT NULL DEFAULT 0,
			status VARCHAR(20) NOT NULL DEFAULT 'IN_PROGRESS',
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
			updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
			UNIQUE(match_id, number)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_innings_match_id ON innings(match_id)`,

		// 投球轮表
		`CREATE TABLE IF NOT EXISTS overs (
			id BIGSERIAL PRIMARY KEY,
			innings_id BIGINT NOT NULL REFERENCES innings(id),
			number INTEGER NOT NULL,
			bowler_id BIGINT NOT NULL,
			runs_scored INTEGER NOT NULL DEFAULT 0,
			wickets INTEGER NOT NULL DEFAULT 0,
			legal_balls INTEGER NOT NULL DEFAULT 0,
			is_maiden BOOLEAN NOT NULL DEFAULT FALSE,
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
			UNIQUE(innings_id, number)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_overs_innings_id ON overs(innings_id)`,

		// 投球事件表（只增不改）
		`CREATE TABLE IF NOT EXISTS balls (
			id BIGSERIAL PRIMARY KEY,
			over_id BIGINT NOT NULL REFERENCES overs(id),
			innings_id BIGINT NOT NULL REFERENCES innings(id),
			number INTEGER NOT NULL,
			bowler_id BIGINT NOT NULL,
			batsman_id BIGINT NOT NULL,
			runs INTEGER NOT NULL DEFAULT 0,
			is_wicket BOOLEAN NOT NULL DEFAULT FALSE,
			wicket_type VARCHAR(20),
			dismissed_id BIGINT,
			wicket_taker_id BIGINT,
			is_extra BOOLEAN NOT NULL DEFAULT FALSE,
			extra_type VARCHAR(20),
			extra_runs INTEGER NOT NULL DEFAULT 0,
			shot_angle DOUBLE PRECISION,
			shot_distance DOUBLE PRECISION,
			pitch_trajectory TEXT,
			commentary TEXT NOT NULL DEFAULT '',
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE INDEX IF NOT EXISTS idx_balls_innings_id ON balls(innings_id)`,
		`CREATE INDEX IF NOT EXISTS idx_balls_over_id ON balls(over_id)`,

		// 击球表现表
		`CREATE TABLE IF NOT EXISTS batting_performances (
			id BIGSERIAL PRIMARY KEY,
			innings_id BIGINT NOT NULL REFERENCES innings(id),
			player_id BIGINT NOT NULL,
			runs INTEGER NOT NULL DEFAULT 0,
			balls_faced INTEGER NOT NULL DEFAULT 0,
			fours INTEGER NOT NULL DEFAULT 0,
			sixes INTEGER NOT NULL DEFAULT 0,
			strike_rate DOUBLE PRECISION NOT NULL DEFAULT 0,
			is_out BOOLEAN NOT NULL DEFAULT FALSE,
			UNIQUE(innings_id, player_id)
		)`,

		// 投球表现表
		`CREATE TABLE IF NOT EXISTS bowling_performances (
			id BIGSERIAL PRIMARY KEY,
			innings_id BIGINT NOT NULL REFERENCES innings(id),
			player_id BIGINT NOT NULL,
			balls_bowled INTEGER NOT NULL DEFAULT 0,
			overs DOUBLE PRECISION NOT NULL DEFAULT 0,
			runs_conceded INTEGER NOT NULL DEFAULT 0,
			wickets INTEGER NOT NULL DEFAULT 0,
			maidens INTEGER NOT NULL DEFAULT 0,
			economy DOUBLE PRECISION NOT NULL DEFAULT 0,
			UNIQUE(innings_id, player_id)
		)`,

		// 胜率快照表（只增不改）
		`CREATE TABLE IF NOT EXISTS win_probability_snapshots (
			id BIGSERIAL PRIMARY KEY,
			match_id BIGINT NOT NULL REFERENCES matches(id),
			innings_number INTEGER NOT NULL,
			over_number INTEGER NOT NULL,
			ball_number INTEGER NOT NULL,
			batting_team_prob DOUBLE PRECISION NOT NULL,
			bowling_team_prob DOUBLE PRECISION NOT NULL,
			tie_prob DOUBLE PRECISION NOT NULL DEFAULT 0,
			target INTEGER NOT NULL DEFAULT 0,
			required_run_rate DOUBLE PRECISION NOT NULL DEFAULT 0,
			current_runs INTEGER NOT NULL DEFAULT 0,
			current_wickets INTEGER NOT NULL DEFAULT 0,
			balls_remaining INTEGER NOT NULL DEFAULT 0,
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE INDEX IF NOT EXISTS idx_wps_match_id ON win_probability_snapshots(match_id)`,
	}

	for _, migration := range migrations {
		if _, err := db.Exec(migration); err != nil {
			return fmt.Errorf("migration failed: %w", err)
		}
	}

	return nil
}
