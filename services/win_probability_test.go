package services

import (
	"context"
	"math"
	"testing"

	"cricket-scoring-service/database"
)

// 第一局: 五五开加掷币小幅修正，双方概率之和为 100
func TestWinProbabilityFirstInnings(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	service := NewWinProbabilityService(f.store)
	processor := NewBallProcessor(f.store)

	if _, err := processor.RecordBall(ctx, f.innings.ID, f.legalBall(4)); err != nil {
		t.Fatalf("RecordBall: %v", err)
	}

	snap, err := service.Calculate(ctx, f.match.ID)
	if err != nil {
		t.Fatalf("Calculate: %v", err)
	}
	if snap.InningsNumber != 1 {
		t.Errorf("Expected innings 1, got %d", snap.InningsNumber)
	}
	// teamA 赢掷币并击球 -> 50 + 2.5
	if snap.BattingTeamProb != 52.5 {
		t.Errorf("Expected batting prob 52.5, got %.1f", snap.BattingTeamProb)
	}
	if sum := snap.BattingTeamProb + snap.BowlingTeamProb; math.Abs(sum-100) > 1e-9 {
		t.Errorf("Probabilities must sum to 100, got %.4f", sum)
	}
	if snap.Target != 0 {
		t.Errorf("First innings has no target, got %d", snap.Target)
	}
}

// 第二局: 目标 = 第一局得分 + 1，快照携带追分上下文
func TestWinProbabilitySecondInnings(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	service := NewWinProbabilityService(f.store)
	processor := NewBallProcessor(f.store)
	matchService := NewMatchService(f.store)

	for i := 0; i < 6; i++ {
		if _, err := processor.RecordBall(ctx, f.innings.ID, f.legalBall(4)); err != nil {
			t.Fatalf("ball %d: %v", i, err)
		}
	}
	if _, err := matchService.CompleteInnings(ctx, f.innings.ID); err != nil {
		t.Fatalf("CompleteInnings: %v", err)
	}
	second, err := matchService.StartInnings(ctx, f.match.ID, 2)
	if err != nil {
		t.Fatalf("StartInnings: %v", err)
	}

	chase := &BallInput{BowlerID: f.batter1.ID, BatsmanID: f.bowler1.ID, Runs: 6}
	if _, err := processor.RecordBall(ctx, second.ID, chase); err != nil {
		t.Fatalf("RecordBall: %v", err)
	}

	snap, err := service.Calculate(ctx, f.match.ID)
	if err != nil {
		t.Fatalf("Calculate: %v", err)
	}
	if snap.InningsNumber != 2 {
		t.Errorf("Expected innings 2, got %d", snap.InningsNumber)
	}
	if snap.Target != 25 {
		t.Errorf("Expected target 25, got %d", snap.Target)
	}
	if snap.CurrentRuns != 6 || snap.CurrentWickets != 0 {
		t.Errorf("Unexpected chase state %d/%d", snap.CurrentRuns, snap.CurrentWickets)
	}
	if snap.BallsRemaining != 119 {
		t.Errorf("Expected 119 balls remaining, got %d", snap.BallsRemaining)
	}
	if snap.RequiredRunRate <= 0 {
		t.Errorf("Expected positive required run rate, got %.2f", snap.RequiredRunRate)
	}
	if snap.BattingTeamProb < probFloor || snap.BattingTeamProb > probCeiling {
		t.Errorf("Probability %.1f outside [%v, %v]", snap.BattingTeamProb, probFloor, probCeiling)
	}
	if sum := snap.BattingTeamProb + snap.BowlingTeamProb; math.Abs(sum-100) > 1e-9 {
		t.Errorf("Probabilities must sum to 100, got %.4f", sum)
	}
}

// 历史只增不改: 每次计算追加一条，Latest 返回最后一条
func TestWinProbabilityHistoryAppendOnly(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	service := NewWinProbabilityService(f.store)
	processor := NewBallProcessor(f.store)

	for i := 0; i < 3; i++ {
		if _, err := processor.RecordBall(ctx, f.innings.ID, f.legalBall(1)); err != nil {
			t.Fatalf("ball %d: %v", i, err)
		}
		if _, err := service.Calculate(ctx, f.match.ID); err != nil {
			t.Fatalf("Calculate %d: %v", i, err)
		}
	}

	history, err := service.History(ctx, f.match.ID)
	if err != nil {
		t.Fatalf("History: %v", err)
	}
	if len(history) != 3 {
		t.Fatalf("Expected 3 snapshots, got %d", len(history))
	}
	for i, snap := range history {
		if snap.BallNumber != i+1 {
			t.Errorf("Snapshot %d: expected ball number %d, got %d", i, i+1, snap.BallNumber)
		}
	}

	latest, err := service.Latest(ctx, f.match.ID)
	if err != nil {
		t.Fatalf("Latest: %v", err)
	}
	if latest.ID != history[2].ID {
		t.Errorf("Latest should be the last snapshot, got %d want %d", latest.ID, history[2].ID)
	}
}

// 没有任何局时计算失败，不产生快照
func TestWinProbabilityNoInnings(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()
	service := NewWinProbabilityService(store)

	match := &database.Match{TeamAID: 1, TeamBID: 2, OversLimit: 20, Status: database.MatchScheduled}
	if err := store.CreateMatch(ctx, match); err != nil {
		t.Fatalf("CreateMatch: %v", err)
	}

	if _, err := service.Calculate(ctx, match.ID); err == nil {
		t.Error("Expected an error for a match without innings")
	}
}
