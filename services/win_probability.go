package services

import (
	"context"
	"fmt"

	"cricket-scoring-service/database"
	"cricket-scoring-service/models"
)

// 第一局没有追分目标，胜率只由赛前因素驱动。
// 这里用掷币优势做轻微修正，仅为界面完整性，不追求精度
const tossEdge = 2.5

// WinProbabilityService 每球之后计算一份胜率快照并追加到历史。
// 历史只增不改，最新一条即"当前"胜率。
type WinProbabilityService struct {
	store database.Store
}

func NewWinProbabilityService(store database.Store) *WinProbabilityService {
	return &WinProbabilityService{store: store}
}

// Calculate 为比赛当前状态计算快照并持久化
func (s *WinProbabilityService) Calculate(ctx context.Context, matchID int64) (*database.WinProbabilitySnapshot, error) {
	match, err := s.store.GetMatch(ctx, matchID)
	if err != nil {
		return nil, fmt.Errorf("match %d: %w", matchID, err)
	}

	allInnings, err := s.store.ListInningsByMatch(ctx, matchID)
	if err != nil {
		return nil, err
	}
	if len(allInnings) == 0 {
		return nil, fmt.Errorf("%w: match %d has no innings", models.ErrNotFound, matchID)
	}

	current := allInnings[len(allInnings)-1]
	ballsBowled := OversToBalls(current.TotalOvers)
	totalBalls := match.OversLimit * 6
	ballsRemaining := totalBalls - ballsBowled
	if ballsRemaining < 0 {
		ballsRemaining = 0
	}

	snap := &database.WinProbabilitySnapshot{
		MatchID:        matchID,
		InningsNumber:  current.Number,
		OverNumber:     ballsBowled / 6,
		BallNumber:     ballsBowled % 6,
		CurrentRuns:    current.TotalRuns,
		CurrentWickets: current.TotalWickets,
		BallsRemaining: ballsRemaining,
	}

	if current.Number == 1 {
		// 第一局: 接近五五开，掷币获胜方小幅占优
		battingProb := 50.0
		if match.TossWinnerID != nil {
			if *match.TossWinnerID == current.BattingTeamID {
				battingProb += tossEdge
			} else {
				battingProb -= tossEdge
			}
		}
		snap.BattingTeamProb = battingProb
		snap.BowlingTeamProb = 100 - battingProb
	} else {
		// 第二局: 目标 = 第一局总分 + 1
		first := allInnings[0]
		target := first.TotalRuns + 1
		oversRemaining := float64(ballsRemaining) / 6

		chasing := ChaseWinProbability(target, current.TotalRuns, current.TotalWickets, oversRemaining)
		snap.Target = target
		snap.RequiredRunRate = RequiredRunRate(target, current.TotalRuns, oversRemaining)
		snap.BattingTeamProb = chasing
		snap.BowlingTeamProb = 100 - chasing
	}

	if err := s.store.CreateSnapshot(ctx, snap); err != nil {
		return nil, err
	}
	return snap, nil
}

// Latest 返回比赛最近一份快照
func (s *WinProbabilityService) Latest(ctx context.Context, matchID int64) (*database.WinProbabilitySnapshot, error) {
	return s.store.GetLatestSnapshot(ctx, matchID)
}

// History 返回比赛全部快照，按时间顺序
func (s *WinProbabilityService) History(ctx context.Context, matchID int64) ([]*database.WinProbabilitySnapshot, error) {
	return s.store.ListSnapshots(ctx, matchID)
}
