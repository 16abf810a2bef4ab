package services

import (
	"context"
	"errors"
	"fmt"

	"cricket-scoring-service/database"
	"cricket-scoring-service/logger"
	"cricket-scoring-service/models"
)

// BallInput 一次投球事件的输入
type BallInput struct {
	BowlerID      int64    `json:"bowler_id"`
	BatsmanID     int64    `json:"batsman_id"`
	Runs          int      `json:"runs"` // 击球得分，不含附加分
	IsWicket      bool     `json:"is_wicket"`
	WicketType    string   `json:"wicket_type,omitempty"`
	DismissedID   *int64   `json:"dismissed_id,omitempty"`
	WicketTakerID *int64   `json:"wicket_taker_id,omitempty"`
	IsExtra       bool     `json:"is_extra"`
	ExtraType     string   `json:"extra_type,omitempty"`
	ExtraRuns     int      `json:"extra_runs"`
	ShotAngle     *float64 `json:"shot_angle,omitempty"`
	ShotDistance  *float64 `json:"shot_distance,omitempty"`
	// 轨迹数据透传存储，引擎不计算
	PitchTrajectory *string `json:"pitch_trajectory,omitempty"`
	Commentary      string  `json:"commentary,omitempty"`
}

// BallProcessor 投球事件处理器。整个读-改-写序列在单个存储事务内执行，
// 同一局的并发投球请求由局行锁串行化。
// 广播与缓存失效是调用方（协调器）的职责，处理器保持无副作用可独立测试。
type BallProcessor struct {
	store database.Store
}

func NewBallProcessor(store database.Store) *BallProcessor {
	return &BallProcessor{store: store}
}

// validate 入参校验。校验失败时不发生任何状态变更
func (p *BallProcessor) validate(input *BallInput) error {
	if input.Runs < 0 || input.ExtraRuns < 0 {
		return fmt.Errorf("%w: runs cannot be negative", models.ErrValidation)
	}
	if input.BowlerID == 0 || input.BatsmanID == 0 {
		return fmt.Errorf("%w: bowler and batsman are required", models.ErrValidation)
	}
	if input.IsWicket && input.DismissedID == nil {
		return fmt.Errorf("%w: wicket requires a dismissed player", models.ErrValidation)
	}
	if input.IsExtra {
		switch input.ExtraType {
		case database.ExtraWide, database.ExtraNoBall, database.ExtraBye, database.ExtraLegBye, database.ExtraPenalty:
		default:
			return fmt.Errorf("%w: extra flag set without a valid extra type", models.ErrValidation)
		}
		if input.ExtraRuns < 1 {
			return fmt.Errorf("%w: an extra awards at least one run", models.ErrValidation)
		}
		if input.ExtraType == database.ExtraWide && input.Runs != 0 {
			return fmt.Errorf("%w: no runs off the bat on a wide", models.ErrValidation)
		}
	} else if input.ExtraRuns != 0 || input.ExtraType != "" {
		return fmt.Errorf("%w: extra runs without the extra flag", models.ErrValidation)
	}
	return nil
}

// isLegalDelivery 是否推进合法球计数。
// 宽球/无效球不算合法球，bye/leg-bye 算; penalty 不占用一次投球
func isLegalDelivery(input *BallInput) bool {
	if !input.IsExtra {
		return true
	}
	switch input.ExtraType {
	case database.ExtraWide, database.ExtraNoBall, database.ExtraPenalty:
		return false
	default:
		return true
	}
}

// RecordBall 记录一次投球并更新全部累计值，返回持久化的投球记录
func (p *BallProcessor) RecordBall(ctx context.Context, inningsID int64, input *BallInput) (*database.Ball, error) {
	if err := p.validate(input); err != nil {
		BallErrors.WithLabelValues("validation").Inc()
		return nil, err
	}

	var ball *database.Ball
	err := p.store.InTx(ctx, func(tx database.Store) error {
		// 行锁: 同一局同一时刻至多一个在途写入
		innings, err := tx.LockInnings(ctx, inningsID)
		if err != nil {
			return err
		}
		if innings.Status != database.InningsInProgress {
			return fmt.Errorf("%w: innings %d is not in progress", models.ErrInvalidState, innings.Number)
		}

		match, err := tx.GetMatch(ctx, innings.MatchID)
		if err != nil {
			return err
		}
		if match.Status == database.MatchCompleted || match.Status == database.MatchCancelled {
			return fmt.Errorf("%w: match is %s and accepts no further balls", models.ErrInvalidState, match.Status)
		}
		// 第一局第一球把比赛转入 LIVE
		if match.Status == database.MatchTossDone {
			match.Status = database.MatchLive
			if err := tx.UpdateMatch(ctx, match); err != nil {
				return err
			}
		}

		over, err := p.currentOver(ctx, tx, innings, input.BowlerID)
		if err != nil {
			return err
		}
		if over.LegalBalls >= 6 {
			return fmt.Errorf("%w: over %d already has 6 legal balls", models.ErrInvalidState, over.Number)
		}

		legal := isLegalDelivery(input)
		totalRuns := input.Runs + input.ExtraRuns

		ball = &database.Ball{
			OverID:          over.ID,
			InningsID:       innings.ID,
			Number:          over.LegalBalls + 1,
			BowlerID:        input.BowlerID,
			BatsmanID:       input.BatsmanID,
			Runs:            input.Runs,
			IsWicket:        input.IsWicket,
			IsExtra:         input.IsExtra,
			ExtraRuns:       input.ExtraRuns,
			ShotAngle:       input.ShotAngle,
			ShotDistance:    input.ShotDistance,
			PitchTrajectory: input.PitchTrajectory,
			Commentary:      input.Commentary,
		}
		if input.WicketType != "" {
			ball.WicketType = &input.WicketType
		}
		if input.ExtraType != "" {
			ball.ExtraType = &input.ExtraType
		}
		ball.DismissedID = input.DismissedID
		ball.WicketTakerID = input.WicketTakerID

		if err := tx.CreateBall(ctx, ball); err != nil {
			return err
		}

		// 投球轮累计
		over.RunsScored += totalRuns
		if input.IsWicket {
			over.Wickets++
		}
		if legal {
			over.LegalBalls++
		}
		// 6 个合法球完结时判定 maiden
		overCompleted := legal && over.LegalBalls == 6
		if overCompleted && over.RunsScored == 0 {
			over.IsMaiden = true
		}
		if err := tx.UpdateOver(ctx, over); err != nil {
			return err
		}

		// 局累计，轮数由合法球总数推出
		innings.TotalRuns += totalRuns
		if input.IsWicket {
			innings.TotalWickets++
		}
		innings.Extras += input.ExtraRuns
		legalBalls := OversToBalls(innings.TotalOvers)
		if legal {
			legalBalls++
		}
		innings.TotalOvers = BallsToOvers(legalBalls)
		if err := tx.UpdateInnings(ctx, innings); err != nil {
			return err
		}

		if err := p.updateBattingPerformance(ctx, tx, innings.ID, input, legal); err != nil {
			return err
		}
		if err := p.updateBowlingPerformance(ctx, tx, innings.ID, input, legal, over, overCompleted); err != nil {
			return err
		}

		return nil
	})
	if err != nil {
		if !errors.Is(err, models.ErrValidation) && !errors.Is(err, models.ErrInvalidState) {
			BallErrors.WithLabelValues("store").Inc()
		} else {
			BallErrors.WithLabelValues("state").Inc()
		}
		return nil, err
	}

	BallsRecorded.Inc()
	return ball, nil
}

// currentOver 取当前投球轮: 最近一轮未满 6 个合法球则继续，否则开新轮。
// 同一投手不得连续两轮; 未满轮换投手也视为非法换人。
func (p *BallProcessor) currentOver(ctx context.Context, tx database.Store, innings *database.Innings, bowlerID int64) (*database.Over, error) {
	latest, err := tx.GetLatestOver(ctx, innings.ID)
	if err != nil && !errors.Is(err, models.ErrNotFound) {
		return nil, err
	}

	if latest != nil && latest.LegalBalls < 6 {
		if latest.BowlerID != bowlerID {
			return nil, fmt.Errorf("%w: over %d is being bowled by another bowler", models.ErrInvalidState, latest.Number)
		}
		return latest, nil
	}

	nextNumber := 0
	if latest != nil {
		if latest.BowlerID == bowlerID {
			return nil, fmt.Errorf("%w: bowler %d cannot bowl consecutive overs", models.ErrInvalidState, bowlerID)
		}
		nextNumber = latest.Number + 1
	}

	over := &database.Over{
		InningsID: innings.ID,
		Number:    nextNumber,
		BowlerID:  bowlerID,
	}
	if err := tx.CreateOver(ctx, over); err != nil {
		return nil, err
	}
	logger.Printf("[Ball] Over %d started in innings %d by bowler %d", nextNumber, innings.ID, bowlerID)
	return over, nil
}

// updateBattingPerformance 惰性创建并更新击球手累计。
// 只有合法球计入面对球数; bye/leg-bye 的附加分不记入击球手得分
func (p *BallProcessor) updateBattingPerformance(ctx context.Context, tx database.Store, inningsID int64, input *BallInput, legal bool) error {
	perf, err := tx.GetBattingPerformance(ctx, inningsID, input.BatsmanID)
	if errors.Is(err, models.ErrNotFound) {
		perf = &database.BattingPerformance{InningsID: inningsID, PlayerID: input.BatsmanID}
	} else if err != nil {
		return err
	}

	perf.Runs += input.Runs
	if legal {
		perf.BallsFaced++
	}
	if input.Runs == 4 {
		perf.Fours++
	}
	if input.Runs == 6 {
		perf.Sixes++
	}
	if input.IsWicket && input.DismissedID != nil && *input.DismissedID == input.BatsmanID {
		perf.IsOut = true
	}
	perf.StrikeRate = StrikeRate(perf.Runs, perf.BallsFaced)

	if err := tx.UpsertBattingPerformance(ctx, perf); err != nil {
		return err
	}

	// run out 可能出局的是非击球端球员
	if input.IsWicket && input.DismissedID != nil && *input.DismissedID != input.BatsmanID {
		dismissed, err := tx.GetBattingPerformance(ctx, inningsID, *input.DismissedID)
		if errors.Is(err, models.ErrNotFound) {
			dismissed = &database.BattingPerformance{InningsID: inningsID, PlayerID: *input.DismissedID}
		} else if err != nil {
			return err
		}
		dismissed.IsOut = true
		return tx.UpsertBattingPerformance(ctx, dismissed)
	}
	return nil
}

// updateBowlingPerformance 惰性创建并更新投手累计。
// bye/leg-bye/penalty 不计入投手失分; run out 不记投手三柱门
func (p *BallProcessor) updateBowlingPerformance(ctx context.Context, tx database.Store, inningsID int64, input *BallInput, legal bool, over *database.Over, overCompleted bool) error {
	perf, err := tx.GetBowlingPerformance(ctx, inningsID, input.BowlerID)
	if errors.Is(err, models.ErrNotFound) {
		perf = &database.BowlingPerformance{InningsID: inningsID, PlayerID: input.BowlerID}
	} else if err != nil {
		return err
	}

	conceded := input.Runs
	switch input.ExtraType {
	case database.ExtraBye, database.ExtraLegBye, database.ExtraPenalty:
	default:
		conceded += input.ExtraRuns
	}
	perf.RunsConceded += conceded

	if legal {
		perf.BallsBowled++
	}
	perf.Overs = BallsToOvers(perf.BallsBowled)

	if input.IsWicket && input.WicketType != database.WicketRunOut {
		perf.Wickets++
	}
	if overCompleted && over.IsMaiden {
		perf.Maidens++
	}
	perf.Economy = EconomyRate(perf.RunsConceded, perf.Overs)

	return tx.UpsertBowlingPerformance(ctx, perf)
}
