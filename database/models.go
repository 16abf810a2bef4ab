package database

import (
	"time"
)

// 比赛状态，只允许沿状态机单向前进
const (
	MatchScheduled = "SCHEDULED"
	MatchTossDone  = "TOSS_DONE"
	MatchLive      = "LIVE"
	MatchCompleted = "COMPLETED"
	MatchCancelled = "CANCELLED"
)

// 局状态
const (
	InningsInProgress = "IN_PROGRESS"
	InningsCompleted  = "COMPLETED"
)

// 附加分类型
const (
	ExtraWide    = "WIDE"
	ExtraNoBall  = "NO_BALL"
	ExtraBye     = "BYE"
	ExtraLegBye  = "LEG_BYE"
	ExtraPenalty = "PENALTY"
)

// 出局方式
const (
	WicketBowled    = "BOWLED"
	WicketCaught    = "CAUGHT"
	WicketLBW       = "LBW"
	WicketRunOut    = "RUN_OUT"
	WicketStumped   = "STUMPED"
	WicketHitWicket = "HIT_WICKET"
)

// 掷币决定
const (
	TossDecisionBat  = "bat"
	TossDecisionBowl = "bowl"
)

// Team 球队
type Team struct {
	ID        int64     `db:"id" json:"id"`
	Name      string    `db:"name" json:"name"`
	ShortName string    `db:"short_name" json:"short_name"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// Player 球员
type Player struct {
	ID        int64     `db:"id" json:"id"`
	TeamID    int64     `db:"team_id" json:"team_id"`
	Name      string    `db:"name" json:"name"`
	Role      string    `db:"role" json:"role"` // batsman, bowler, all_rounder, wicket_keeper
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// Match 一场比赛（两队之间的一个赛程）
type Match struct {
	ID           int64      `db:"id" json:"id"`
	TeamAID      int64      `db:"team_a_id" json:"team_a_id"`
	TeamBID      int64      `db:"team_b_id" json:"team_b_id"`
	Venue        string     `db:"venue" json:"venue"`
	ScheduledAt  time.Time  `db:"scheduled_at" json:"scheduled_at"`
	Status       string     `db:"status" json:"status"`
	TossWinnerID *int64     `db:"toss_winner_id" json:"toss_winner_id,omitempty"`
	TossDecision *string    `db:"toss_decision" json:"toss_decision,omitempty"`
	TournamentID *int64     `db:"tournament_id" json:"tournament_id,omitempty"`
	OversLimit   int        `db:"overs_limit" json:"overs_limit"`
	WinnerTeamID *int64     `db:"winner_team_id" json:"winner_team_id,omitempty"`
	ResultText   *string    `db:"result_text" json:"result_text,omitempty"`
	ManOfMatchID *int64     `db:"man_of_match_id" json:"man_of_match_id,omitempty"`
	CreatedAt    time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time  `db:"updated_at" json:"updated_at"`
}

// Innings 一局（一支球队的击球回合）
type Innings struct {
	ID            int64     `db:"id" json:"id"`
	MatchID       int64     `db:"match_id" json:"match_id"`
	Number        int       `db:"number" json:"number"` // 1 或 2
	BattingTeamID int64     `db:"batting_team_id" json:"batting_team_id"`
	BowlingTeamID int64     `db:"bowling_team_id" json:"bowling_team_id"`
	TotalRuns     int       `db:"total_runs" json:"total_runs"`
	TotalWickets  int       `db:"total_wickets" json:"total_wickets"`
	TotalOvers    float64   `db:"total_overs" json:"total_overs"` // 板球记法: 12.4 = 12局4球
	Extras        int       `db:"extras" json:"extras"`
	Status        string    `db:"status" json:"status"`
	CreatedAt     time.Time `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time `db:"updated_at" json:"updated_at"`
}

// Over 一个投球轮（同一投手连续 6 个合法球）
type Over struct {
	ID         int64     `db:"id" json:"id"`
	InningsID  int64     `db:"innings_id" json:"innings_id"`
	Number     int       `db:"number" json:"number"` // 0 起始
	BowlerID   int64     `db:"bowler_id" json:"bowler_id"`
	RunsScored int       `db:"runs_scored" json:"runs_scored"`
	Wickets    int       `db:"wickets" json:"wickets"`
	LegalBalls int       `db:"legal_balls" json:"legal_balls"` // 不超过 6
	IsMaiden   bool      `db:"is_maiden" json:"is_maiden"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
}

// Ball 一次投球事件，创建后不可变更（纠错用新事件表达）
type Ball struct {
	ID               int64     `db:"id" json:"id"`
	OverID           int64     `db:"over_id" json:"over_id"`
	InningsID        int64     `db:"innings_id" json:"innings_id"`
	Number           int       `db:"number" json:"number"` // 轮内球序（合法球计数+1）
	BowlerID         int64     `db:"bowler_id" json:"bowler_id"`
	BatsmanID        int64     `db:"batsman_id" json:"batsman_id"`
	Runs             int       `db:"runs" json:"runs"` // 击球得分，不含附加分
	IsWicket         bool      `db:"is_wicket" json:"is_wicket"`
	WicketType       *string   `db:"wicket_type" json:"wicket_type,omitempty"`
	DismissedID      *int64    `db:"dismissed_id" json:"dismissed_id,omitempty"`
	WicketTakerID    *int64    `db:"wicket_taker_id" json:"wicket_taker_id,omitempty"`
	IsExtra          bool      `db:"is_extra" json:"is_extra"`
	ExtraType        *string   `db:"extra_type" json:"extra_type,omitempty"`
	ExtraRuns        int       `db:"extra_runs" json:"extra_runs"`
	ShotAngle        *float64  `db:"shot_angle" json:"shot_angle,omitempty"`
	ShotDistance     *float64  `db:"shot_distance" json:"shot_distance,omitempty"`
	PitchTrajectory  *string   `db:"pitch_trajectory" json:"pitch_trajectory,omitempty"` // 透传，不在此计算
	Commentary       string    `db:"commentary" json:"commentary"`
	CreatedAt        time.Time `db:"created_at" json:"created_at"`
}

// BattingPerformance 单局单球员击球累计
type BattingPerformance struct {
	ID         int64   `db:"id" json:"id"`
	InningsID  int64   `db:"innings_id" json:"innings_id"`
	PlayerID   int64   `db:"player_id" json:"player_id"`
	Runs       int     `db:"runs" json:"runs"`
	BallsFaced int     `db:"balls_faced" json:"balls_faced"`
	Fours      int     `db:"fours" json:"fours"`
	Sixes      int     `db:"sixes" json:"sixes"`
	StrikeRate float64 `db:"strike_rate" json:"strike_rate"`
	IsOut      bool    `db:"is_out" json:"is_out"`
}

// BowlingPerformance 单局单投手累计
type BowlingPerformance struct {
	ID           int64   `db:"id" json:"id"`
	InningsID    int64   `db:"innings_id" json:"innings_id"`
	PlayerID     int64   `db:"player_id" json:"player_id"`
	BallsBowled  int     `db:"balls_bowled" json:"balls_bowled"` // 仅合法球
	Overs        float64 `db:"overs" json:"overs"`
	RunsConceded int     `db:"runs_conceded" json:"runs_conceded"`
	Wickets      int     `db:"wickets" json:"wickets"`
	Maidens      int     `db:"maidens" json:"maidens"`
	Economy      float64 `db:"economy" json:"economy"`
}

// WinProbabilitySnapshot 胜率快照，按 (match, innings, over, ball) 追加，只增不改
type WinProbabilitySnapshot struct {
	ID              int64     `db:"id" json:"id"`
	MatchID         int64     `db:"match_id" json:"match_id"`
	InningsNumber   int       `db:"innings_number" json:"innings_number"`
	OverNumber      int       `db:"over_number" json:"over_number"`
	BallNumber      int       `db:"ball_number" json:"ball_number"`
	BattingTeamProb float64   `db:"batting_team_prob" json:"batting_team_prob"`
	BowlingTeamProb float64   `db:"bowling_team_prob" json:"bowling_team_prob"`
	TieProb         float64   `db:"tie_prob" json:"tie_prob"`
	Target          int       `db:"target" json:"target"`
	RequiredRunRate float64   `db:"required_run_rate" json:"required_run_rate"`
	CurrentRuns     int       `db:"current_runs" json:"current_runs"`
	CurrentWickets  int       `db:"current_wickets" json:"current_wickets"`
	BallsRemaining  int       `db:"balls_remaining" json:"balls_remaining"`
	CreatedAt       time.Time `db:"created_at" json:"created_at"`
}
