package services

import (
	"context"
	"errors"
	"fmt"

	"cricket-scoring-service/database"
	"cricket-scoring-service/logger"
	"cricket-scoring-service/models"
)

// ManOfMatchRanker 在全部击球/投球表现中选出最佳球员。
// 可插拔: 默认实现是简单启发式，联赛可替换自己的权重
type ManOfMatchRanker func(batting []*database.BattingPerformance, bowling []*database.BowlingPerformance) *int64

// MatchService 比赛生命周期状态机:
// SCHEDULED -> TOSS_DONE -> LIVE -> COMPLETED，CANCELLED 可从任何非终态进入。
// 状态只前进不回退。
type MatchService struct {
	store  database.Store
	ranker ManOfMatchRanker
}

func NewMatchService(store database.Store) *MatchService {
	return &MatchService{
		store:  store,
		ranker: DefaultManOfMatchRanker,
	}
}

// SetRanker 替换最佳球员评选逻辑
func (s *MatchService) SetRanker(ranker ManOfMatchRanker) {
	s.ranker = ranker
}

// CreateMatch 创建 SCHEDULED 状态的新比赛
func (s *MatchService) CreateMatch(ctx context.Context, match *database.Match) error {
	if match.TeamAID == match.TeamBID {
		return fmt.Errorf("%w: a match needs two different teams", models.ErrValidation)
	}
	if match.OversLimit <= 0 {
		return fmt.Errorf("%w: overs limit must be positive", models.ErrValidation)
	}
	match.Status = database.MatchScheduled
	return s.store.CreateMatch(ctx, match)
}

// RecordToss 记录掷币结果，创建第一局。
// 仅 SCHEDULED 状态合法; 掷币获胜方选择 bat 则先击球，选择 bowl 则先投球。
func (s *MatchService) RecordToss(ctx context.Context, matchID, winnerTeamID int64, decision string) (*database.Match, error) {
	if decision != database.TossDecisionBat && decision != database.TossDecisionBowl {
		return nil, fmt.Errorf("%w: toss decision must be bat or bowl", models.ErrValidation)
	}

	var match *database.Match
	err := s.store.InTx(ctx, func(tx database.Store) error {
		var err error
		match, err = tx.GetMatch(ctx, matchID)
		if err != nil {
			return err
		}
		if match.Status != database.MatchScheduled {
			return fmt.Errorf("%w: toss can only be recorded for a scheduled match (current: %s)", models.ErrInvalidState, match.Status)
		}
		if winnerTeamID != match.TeamAID && winnerTeamID != match.TeamBID {
			return fmt.Errorf("%w: toss winner is not part of this match", models.ErrValidation)
		}

		battingTeamID := winnerTeamID
		bowlingTeamID := otherTeam(match, winnerTeamID)
		if decision == database.TossDecisionBowl {
			battingTeamID, bowlingTeamID = bowlingTeamID, battingTeamID
		}

		match.Status = database.MatchTossDone
		match.TossWinnerID = &winnerTeamID
		match.TossDecision = &decision
		if err := tx.UpdateMatch(ctx, match); err != nil {
			return err
		}

		innings := &database.Innings{
			MatchID:       match.ID,
			Number:        1,
			BattingTeamID: battingTeamID,
			BowlingTeamID: bowlingTeamID,
			Status:        database.InningsInProgress,
		}
		return tx.CreateInnings(ctx, innings)
	})
	if err != nil {
		return nil, err
	}

	logger.Printf("[Match] Toss recorded for match %d: team %d chose to %s", matchID, winnerTeamID, decision)
	return match, nil
}

// StartInnings 开始下一局。局号必须是下一个期望值且前一局已完结。
// 第一局由掷币创建，这里只用于第二局。
func (s *MatchService) StartInnings(ctx context.Context, matchID int64, number int) (*database.Innings, error) {
	var innings *database.Innings
	err := s.store.InTx(ctx, func(tx database.Store) error {
		match, err := tx.GetMatch(ctx, matchID)
		if err != nil {
			return err
		}
		if match.Status != database.MatchTossDone && match.Status != database.MatchLive {
			return fmt.Errorf("%w: cannot start an innings while match is %s", models.ErrInvalidState, match.Status)
		}

		existing, err := tx.ListInningsByMatch(ctx, matchID)
		if err != nil {
			return err
		}
		if number != len(existing)+1 {
			return fmt.Errorf("%w: innings %d out of sequence, expected %d", models.ErrInvalidState, number, len(existing)+1)
		}
		if number > 2 {
			return fmt.Errorf("%w: limited-overs matches have at most 2 innings", models.ErrInvalidState)
		}

		prev := existing[len(existing)-1]
		if prev.Status != database.InningsCompleted {
			return fmt.Errorf("%w: innings %d is still in progress", models.ErrInvalidState, prev.Number)
		}

		// 第二局交换攻守
		innings = &database.Innings{
			MatchID:       matchID,
			Number:        number,
			BattingTeamID: prev.BowlingTeamID,
			BowlingTeamID: prev.BattingTeamID,
			Status:        database.InningsInProgress,
		}
		return tx.CreateInnings(ctx, innings)
	})
	if err != nil {
		return nil, err
	}

	logger.Printf("[Match] Innings %d started for match %d", number, matchID)
	return innings, nil
}

// CompleteInnings 显式完结一局。
// 达到限定轮数或 10 个三柱门时引擎不自动完结，由记分方决定何时调用。
func (s *MatchService) CompleteInnings(ctx context.Context, inningsID int64) (*database.Innings, error) {
	var innings *database.Innings
	err := s.store.InTx(ctx, func(tx database.Store) error {
		var err error
		innings, err = tx.GetInnings(ctx, inningsID)
		if err != nil {
			return err
		}
		if innings.Status != database.InningsInProgress {
			return fmt.Errorf("%w: innings %d is not in progress", models.ErrInvalidState, innings.Number)
		}
		innings.Status = database.InningsCompleted
		return tx.UpdateInnings(ctx, innings)
	})
	if err != nil {
		return nil, err
	}

	logger.Printf("[Match] Innings %d completed for match %d at %d/%d", innings.Number, innings.MatchID, innings.TotalRuns, innings.TotalWickets)
	return innings, nil
}

// CompleteMatch 完结比赛: 比较两局总分得出胜者，生成结果文本，评选最佳球员。
// 两局都完结后才合法。
func (s *MatchService) CompleteMatch(ctx context.Context, matchID int64) (*database.Match, error) {
	var match *database.Match
	err := s.store.InTx(ctx, func(tx database.Store) error {
		var err error
		match, err = tx.GetMatch(ctx, matchID)
		if err != nil {
			return err
		}
		if match.Status == database.MatchCompleted || match.Status == database.MatchCancelled {
			return fmt.Errorf("%w: match is already %s", models.ErrInvalidState, match.Status)
		}

		allInnings, err := tx.ListInningsByMatch(ctx, matchID)
		if err != nil {
			return err
		}
		if len(allInnings) < 2 {
			return fmt.Errorf("%w: both innings must be completed first", models.ErrInvalidState)
		}
		for _, in := range allInnings {
			if in.Status != database.InningsCompleted {
				return fmt.Errorf("%w: innings %d is not completed", models.ErrInvalidState, in.Number)
			}
		}

		first, second := allInnings[0], allInnings[1]
		winnerID, resultText, err := s.decideResult(ctx, tx, first, second)
		if err != nil {
			return err
		}

		match.Status = database.MatchCompleted
		match.WinnerTeamID = winnerID
		match.ResultText = &resultText
		match.ManOfMatchID = s.rankPerformances(ctx, tx, allInnings)

		return tx.UpdateMatch(ctx, match)
	})
	if err != nil {
		return nil, err
	}

	logger.Printf("[Match] Match %d completed: %s", matchID, *match.ResultText)
	return match, nil
}

// CancelMatch 取消比赛，终态。COMPLETED 之前任何时刻合法
func (s *MatchService) CancelMatch(ctx context.Context, matchID int64) (*database.Match, error) {
	var match *database.Match
	err := s.store.InTx(ctx, func(tx database.Store) error {
		var err error
		match, err = tx.GetMatch(ctx, matchID)
		if err != nil {
			return err
		}
		if match.Status == database.MatchCompleted || match.Status == database.MatchCancelled {
			return fmt.Errorf("%w: match is already %s", models.ErrInvalidState, match.Status)
		}
		match.Status = database.MatchCancelled
		return tx.UpdateMatch(ctx, match)
	})
	if err != nil {
		return nil, err
	}

	logger.Printf("[Match] Match %d cancelled", matchID)
	return match, nil
}

// decideResult 比较两局得分生成结果
func (s *MatchService) decideResult(ctx context.Context, tx database.Store, first, second *database.Innings) (*int64, string, error) {
	if second.TotalRuns > first.TotalRuns {
		team, err := tx.GetTeam(ctx, second.BattingTeamID)
		if err != nil {
			return nil, "", err
		}
		wicketsInHand := 10 - second.TotalWickets
		return &second.BattingTeamID, fmt.Sprintf("%s won by %d wickets", team.Name, wicketsInHand), nil
	}
	if first.TotalRuns > second.TotalRuns {
		team, err := tx.GetTeam(ctx, first.BattingTeamID)
		if err != nil {
			return nil, "", err
		}
		margin := first.TotalRuns - second.TotalRuns
		return &first.BattingTeamID, fmt.Sprintf("%s won by %d runs", team.Name, margin), nil
	}
	return nil, "Match tied", nil
}

// rankPerformances 汇总两局表现并评选最佳球员。评选失败不阻塞完结
func (s *MatchService) rankPerformances(ctx context.Context, tx database.Store, allInnings []*database.Innings) *int64 {
	var batting []*database.BattingPerformance
	var bowling []*database.BowlingPerformance
	for _, in := range allInnings {
		bat, err := tx.ListBattingPerformances(ctx, in.ID)
		if err != nil && !errors.Is(err, models.ErrNotFound) {
			logger.Errorf("[Match] Failed to load batting performances for innings %d: %v", in.ID, err)
			return nil
		}
		batting = append(batting, bat...)

		bowl, err := tx.ListBowlingPerformances(ctx, in.ID)
		if err != nil && !errors.Is(err, models.ErrNotFound) {
			logger.Errorf("[Match] Failed to load bowling performances for innings %d: %v", in.ID, err)
			return nil
		}
		bowling = append(bowling, bowl...)
	}
	return s.ranker(batting, bowling)
}

// DefaultManOfMatchRanker 综合贡献启发式: 得分 + 20*三柱门。
// 并列时依次比较得分、三柱门，再按出场顺序取先者
func DefaultManOfMatchRanker(batting []*database.BattingPerformance, bowling []*database.BowlingPerformance) *int64 {
	type contribution struct {
		playerID int64
		runs     int
		wickets  int
		order    int
	}

	contribs := make(map[int64]*contribution)
	order := 0
	track := func(playerID int64) *contribution {
		if c, ok := contribs[playerID]; ok {
			return c
		}
		c := &contribution{playerID: playerID, order: order}
		order++
		contribs[playerID] = c
		return c
	}

	for _, p := range batting {
		track(p.PlayerID).runs += p.Runs
	}
	for _, p := range bowling {
		track(p.PlayerID).wickets += p.Wickets
	}

	var best *contribution
	for _, c := range contribs {
		if best == nil {
			best = c
			continue
		}
		bestScore := best.runs + 20*best.wickets
		score := c.runs + 20*c.wickets
		switch {
		case score > bestScore:
			best = c
		case score == bestScore && c.runs > best.runs:
			best = c
		case score == bestScore && c.runs == best.runs && c.wickets > best.wickets:
			best = c
		case score == bestScore && c.runs == best.runs && c.wickets == best.wickets && c.order < best.order:
			best = c
		}
	}
	if best == nil {
		return nil
	}
	return &best.playerID
}

func otherTeam(match *database.Match, teamID int64) int64 {
	if match.TeamAID == teamID {
		return match.TeamBID
	}
	return match.TeamAID
}
