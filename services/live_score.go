package services

import (
	"context"
	"errors"

	"cricket-scoring-service/database"
	"cricket-scoring-service/models"
)

// TeamView 队伍概要
type TeamView struct {
	ID        int64  `json:"id"`
	Name      string `json:"name"`
	ShortName string `json:"short_name"`
}

// OverView 投球轮及其中的投球序列
type OverView struct {
	*database.Over
	Balls []*database.Ball `json:"balls"`
}

// InningsView 一局的完整读模型
type InningsView struct {
	*database.Innings
	RunRate        float64                        `json:"run_rate"`
	ProjectedScore int                            `json:"projected_score"`
	Overs          []*OverView                    `json:"overs"`
	Batting        []*database.BattingPerformance `json:"batting"`
	Bowling        []*database.BowlingPerformance `json:"bowling"`
}

// ChaseContext 第二局追分上下文
type ChaseContext struct {
	Target          int     `json:"target"`
	RunsNeeded      int     `json:"runs_needed"`
	BallsRemaining  int     `json:"balls_remaining"`
	CurrentRunRate  float64 `json:"current_run_rate"`
	RequiredRunRate float64 `json:"required_run_rate"`
}

// LiveScoreView 实时比分读模型。每次从当前累计值现算，不做字段级缓存
type LiveScoreView struct {
	Live         bool             `json:"live"`
	Match        *database.Match  `json:"match"`
	TeamA        *TeamView        `json:"team_a"`
	TeamB        *TeamView        `json:"team_b"`
	Innings      []*InningsView   `json:"innings"`
	ThisOver     []*database.Ball `json:"this_over"`
	Chase        *ChaseContext    `json:"chase,omitempty"`
}

// LiveMatchSummary 进行中比赛的摘要行
type LiveMatchSummary struct {
	Match          *database.Match `json:"match"`
	TeamA          *TeamView       `json:"team_a"`
	TeamB          *TeamView       `json:"team_b"`
	InningsNumber  int             `json:"innings_number"`
	Score          int             `json:"score"`
	Wickets        int             `json:"wickets"`
	Overs          float64         `json:"overs"`
	RunRate        float64         `json:"run_rate"`
	Target         int             `json:"target,omitempty"`
}

// LiveScoreService 实时比分视图装配器。纯读路径，无副作用
type LiveScoreService struct {
	store database.Store
}

func NewLiveScoreService(store database.Store) *LiveScoreService {
	return &LiveScoreService{store: store}
}

// GetLiveScore 装配比赛的完整实时视图。
// 没有任何一局时返回 live=false 的静态数据
func (s *LiveScoreService) GetLiveScore(ctx context.Context, matchID int64) (*LiveScoreView, error) {
	match, err := s.store.GetMatch(ctx, matchID)
	if err != nil {
		return nil, err
	}

	view := &LiveScoreView{Match: match}
	if view.TeamA, err = s.teamView(ctx, match.TeamAID); err != nil {
		return nil, err
	}
	if view.TeamB, err = s.teamView(ctx, match.TeamBID); err != nil {
		return nil, err
	}

	allInnings, err := s.store.ListInningsByMatch(ctx, matchID)
	if err != nil {
		return nil, err
	}
	if len(allInnings) == 0 {
		view.Live = false
		return view, nil
	}
	view.Live = true

	for _, in := range allInnings {
		iv, err := s.inningsView(ctx, in, match)
		if err != nil {
			return nil, err
		}
		view.Innings = append(view.Innings, iv)
	}

	// 本轮投球序列取当前局最近一轮
	current := allInnings[len(allInnings)-1]
	latestOver, err := s.store.GetLatestOver(ctx, current.ID)
	if err != nil && !errors.Is(err, models.ErrNotFound) {
		return nil, err
	}
	if latestOver != nil {
		if view.ThisOver, err = s.store.ListBallsByOver(ctx, latestOver.ID); err != nil {
			return nil, err
		}
	}

	// 第二局进行中时附带追分上下文
	if current.Number == 2 && current.Status == database.InningsInProgress {
		first := allInnings[0]
		target := first.TotalRuns + 1
		ballsBowled := OversToBalls(current.TotalOvers)
		ballsRemaining := match.OversLimit*6 - ballsBowled
		if ballsRemaining < 0 {
			ballsRemaining = 0
		}
		view.Chase = &ChaseContext{
			Target:          target,
			RunsNeeded:      target - current.TotalRuns,
			BallsRemaining:  ballsRemaining,
			CurrentRunRate:  CurrentRunRate(current.TotalRuns, float64(ballsBowled)/6),
			RequiredRunRate: RequiredRunRate(target, current.TotalRuns, float64(ballsRemaining)/6),
		}
	}

	return view, nil
}

// GetAllLiveMatches 列出所有 LIVE 状态比赛的摘要
func (s *LiveScoreService) GetAllLiveMatches(ctx context.Context) ([]*LiveMatchSummary, error) {
	matches, err := s.store.ListMatchesByStatus(ctx, database.MatchLive)
	if err != nil {
		return nil, err
	}

	summaries := make([]*LiveMatchSummary, 0, len(matches))
	for _, match := range matches {
		allInnings, err := s.store.ListInningsByMatch(ctx, match.ID)
		if err != nil {
			return nil, err
		}
		if len(allInnings) == 0 {
			continue
		}
		current := allInnings[len(allInnings)-1]
		ballsBowled := OversToBalls(current.TotalOvers)

		summary := &LiveMatchSummary{
			Match:         match,
			InningsNumber: current.Number,
			Score:         current.TotalRuns,
			Wickets:       current.TotalWickets,
			Overs:         current.TotalOvers,
			RunRate:       CurrentRunRate(current.TotalRuns, float64(ballsBowled)/6),
		}
		if summary.TeamA, err = s.teamView(ctx, match.TeamAID); err != nil {
			return nil, err
		}
		if summary.TeamB, err = s.teamView(ctx, match.TeamBID); err != nil {
			return nil, err
		}
		if current.Number == 2 {
			summary.Target = allInnings[0].TotalRuns + 1
		}
		summaries = append(summaries, summary)
	}
	return summaries, nil
}

func (s *LiveScoreService) teamView(ctx context.Context, teamID int64) (*TeamView, error) {
	team, err := s.store.GetTeam(ctx, teamID)
	if err != nil {
		return nil, err
	}
	return &TeamView{ID: team.ID, Name: team.Name, ShortName: team.ShortName}, nil
}

func (s *LiveScoreService) inningsView(ctx context.Context, in *database.Innings, match *database.Match) (*InningsView, error) {
	ballsBowled := OversToBalls(in.TotalOvers)
	decimalOvers := float64(ballsBowled) / 6

	iv := &InningsView{
		Innings:        in,
		RunRate:        CurrentRunRate(in.TotalRuns, decimalOvers),
		ProjectedScore: ProjectedScore(in.TotalRuns, decimalOvers, float64(match.OversLimit)),
	}

	overs, err := s.store.ListOversByInnings(ctx, in.ID)
	if err != nil {
		return nil, err
	}
	for _, over := range overs {
		balls, err := s.store.ListBallsByOver(ctx, over.ID)
		if err != nil {
			return nil, err
		}
		iv.Overs = append(iv.Overs, &OverView{Over: over, Balls: balls})
	}

	if iv.Batting, err = s.store.ListBattingPerformances(ctx, in.ID); err != nil {
		return nil, err
	}
	if iv.Bowling, err = s.store.ListBowlingPerformances(ctx, in.ID); err != nil {
		return nil, err
	}
	return iv, nil
}
