package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"cricket-scoring-service/database"
	"cricket-scoring-service/models"
)

func TestCreateMatchValidation(t *testing.T) {
	store := NewMemoryStore()
	service := NewMatchService(store)
	ctx := context.Background()

	sameTeams := &database.Match{TeamAID: 1, TeamBID: 1, OversLimit: 20, ScheduledAt: time.Now()}
	if err := service.CreateMatch(ctx, sameTeams); !errors.Is(err, models.ErrValidation) {
		t.Errorf("Expected validation error for identical teams, got %v", err)
	}

	noOvers := &database.Match{TeamAID: 1, TeamBID: 2, OversLimit: 0, ScheduledAt: time.Now()}
	if err := service.CreateMatch(ctx, noOvers); !errors.Is(err, models.ErrValidation) {
		t.Errorf("Expected validation error for zero overs limit, got %v", err)
	}
}

// 掷币只在 SCHEDULED 状态合法，且创建第一局并分配攻守
func TestRecordToss(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	service := NewMatchService(f.store)

	if f.match.Status != database.MatchTossDone {
		t.Fatalf("Expected TOSS_DONE, got %s", f.match.Status)
	}
	if f.match.TossWinnerID == nil || *f.match.TossWinnerID != f.teamA.ID {
		t.Error("Toss winner not recorded")
	}

	// teamA 选择击球，第一局 teamA 击球 teamB 投球
	if f.innings.BattingTeamID != f.teamA.ID || f.innings.BowlingTeamID != f.teamB.ID {
		t.Errorf("Wrong innings 1 assignment: batting %d bowling %d", f.innings.BattingTeamID, f.innings.BowlingTeamID)
	}

	// 重复掷币 -> 非法
	if _, err := service.RecordToss(ctx, f.match.ID, f.teamB.ID, database.TossDecisionBat); !errors.Is(err, models.ErrInvalidState) {
		t.Errorf("Expected invalid state for second toss, got %v", err)
	}
}

// 掷币获胜方选择投球时攻守对调
func TestRecordTossBowlDecision(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()
	service := NewMatchService(store)

	teamA := &database.Team{Name: "Delhi Chargers", ShortName: "DC"}
	teamB := &database.Team{Name: "Punjab Lions", ShortName: "PL"}
	store.CreateTeam(ctx, teamA)
	store.CreateTeam(ctx, teamB)

	match := &database.Match{TeamAID: teamA.ID, TeamBID: teamB.ID, OversLimit: 20, ScheduledAt: time.Now()}
	if err := service.CreateMatch(ctx, match); err != nil {
		t.Fatalf("CreateMatch: %v", err)
	}
	if _, err := service.RecordToss(ctx, match.ID, teamA.ID, database.TossDecisionBowl); err != nil {
		t.Fatalf("RecordToss: %v", err)
	}

	innings, err := store.GetInningsByNumber(ctx, match.ID, 1)
	if err != nil {
		t.Fatalf("GetInningsByNumber: %v", err)
	}
	if innings.BattingTeamID != teamB.ID || innings.BowlingTeamID != teamA.ID {
		t.Errorf("Bowl decision should put opponent in to bat: batting %d bowling %d", innings.BattingTeamID, innings.BowlingTeamID)
	}
}

func TestRecordTossRejectsOutsiders(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	service := NewMatchService(f.store)

	match := &database.Match{TeamAID: f.teamA.ID, TeamBID: f.teamB.ID, OversLimit: 20, ScheduledAt: time.Now()}
	if err := service.CreateMatch(ctx, match); err != nil {
		t.Fatalf("CreateMatch: %v", err)
	}

	if _, err := service.RecordToss(ctx, match.ID, 999, database.TossDecisionBat); !errors.Is(err, models.ErrValidation) {
		t.Errorf("Expected validation error for outside team, got %v", err)
	}
	if _, err := service.RecordToss(ctx, match.ID, f.teamA.ID, "field"); !errors.Is(err, models.ErrValidation) {
		t.Errorf("Expected validation error for bad decision, got %v", err)
	}
}

// 第二局: 前一局必须完结，局号必须连续，攻守对调
func TestStartInnings(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	service := NewMatchService(f.store)

	// 第一局未完结 -> 非法
	if _, err := service.StartInnings(ctx, f.match.ID, 2); !errors.Is(err, models.ErrInvalidState) {
		t.Errorf("Expected invalid state while innings 1 in progress, got %v", err)
	}

	if _, err := service.CompleteInnings(ctx, f.innings.ID); err != nil {
		t.Fatalf("CompleteInnings: %v", err)
	}

	// 局号跳跃 -> 非法
	if _, err := service.StartInnings(ctx, f.match.ID, 3); !errors.Is(err, models.ErrInvalidState) {
		t.Errorf("Expected invalid state for out-of-sequence innings, got %v", err)
	}

	second, err := service.StartInnings(ctx, f.match.ID, 2)
	if err != nil {
		t.Fatalf("StartInnings: %v", err)
	}
	if second.Number != 2 {
		t.Errorf("Expected innings number 2, got %d", second.Number)
	}
	if second.BattingTeamID != f.teamB.ID || second.BowlingTeamID != f.teamA.ID {
		t.Errorf("Innings 2 should swap sides: batting %d bowling %d", second.BattingTeamID, second.BowlingTeamID)
	}

	// 第三局 -> 非法
	if _, err := service.CompleteInnings(ctx, second.ID); err != nil {
		t.Fatalf("CompleteInnings: %v", err)
	}
	if _, err := service.StartInnings(ctx, f.match.ID, 3); !errors.Is(err, models.ErrInvalidState) {
		t.Errorf("Expected invalid state for third innings, got %v", err)
	}
}

func TestCompleteInningsTwiceFails(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	service := NewMatchService(f.store)

	if _, err := service.CompleteInnings(ctx, f.innings.ID); err != nil {
		t.Fatalf("CompleteInnings: %v", err)
	}
	if _, err := service.CompleteInnings(ctx, f.innings.ID); !errors.Is(err, models.ErrInvalidState) {
		t.Errorf("Expected invalid state on double completion, got %v", err)
	}
}

// 完结比赛: 两局都结束后比较得分，生成结果文本与最佳球员
func TestCompleteMatch(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	service := NewMatchService(f.store)
	processor := NewBallProcessor(f.store)

	// 两局未齐 -> 非法
	if _, err := service.CompleteMatch(ctx, f.match.ID); !errors.Is(err, models.ErrInvalidState) {
		t.Errorf("Expected invalid state before both innings exist, got %v", err)
	}

	// 第一局: teamA 6 分
	if _, err := processor.RecordBall(ctx, f.innings.ID, f.legalBall(6)); err != nil {
		t.Fatalf("RecordBall: %v", err)
	}
	if _, err := service.CompleteInnings(ctx, f.innings.ID); err != nil {
		t.Fatalf("CompleteInnings: %v", err)
	}

	second, err := service.StartInnings(ctx, f.match.ID, 2)
	if err != nil {
		t.Fatalf("StartInnings: %v", err)
	}

	// 第二局: teamB 追到 10 分，失 2 个三柱门
	chase := []*BallInput{
		{BowlerID: f.batter1.ID, BatsmanID: f.bowler1.ID, Runs: 4},
		{BowlerID: f.batter1.ID, BatsmanID: f.bowler1.ID, Runs: 6,
			IsWicket: true, WicketType: database.WicketCaught, DismissedID: &f.bowler2.ID},
		{BowlerID: f.batter1.ID, BatsmanID: f.bowler1.ID,
			IsWicket: true, WicketType: database.WicketBowled, DismissedID: &f.bowler1.ID},
	}
	for i, input := range chase {
		if _, err := processor.RecordBall(ctx, second.ID, input); err != nil {
			t.Fatalf("chase ball %d: %v", i, err)
		}
	}
	if _, err := service.CompleteInnings(ctx, second.ID); err != nil {
		t.Fatalf("CompleteInnings: %v", err)
	}

	match, err := service.CompleteMatch(ctx, f.match.ID)
	if err != nil {
		t.Fatalf("CompleteMatch: %v", err)
	}
	if match.Status != database.MatchCompleted {
		t.Errorf("Expected COMPLETED, got %s", match.Status)
	}
	if match.WinnerTeamID == nil || *match.WinnerTeamID != f.teamB.ID {
		t.Error("Expected teamB to win the chase")
	}
	if match.ResultText == nil || *match.ResultText != "Mumbai Riders won by 8 wickets" {
		t.Errorf("Unexpected result text: %v", match.ResultText)
	}
	if match.ManOfMatchID == nil {
		t.Error("Expected a man of the match")
	}

	// 终态后再完结 -> 非法
	if _, err := service.CompleteMatch(ctx, f.match.ID); !errors.Is(err, models.ErrInvalidState) {
		t.Errorf("Expected invalid state on double completion, got %v", err)
	}
}

func TestCompleteMatchTie(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	service := NewMatchService(f.store)
	processor := NewBallProcessor(f.store)

	if _, err := processor.RecordBall(ctx, f.innings.ID, f.legalBall(2)); err != nil {
		t.Fatalf("RecordBall: %v", err)
	}
	if _, err := service.CompleteInnings(ctx, f.innings.ID); err != nil {
		t.Fatalf("CompleteInnings: %v", err)
	}
	second, err := service.StartInnings(ctx, f.match.ID, 2)
	if err != nil {
		t.Fatalf("StartInnings: %v", err)
	}
	if _, err := processor.RecordBall(ctx, second.ID, &BallInput{BowlerID: f.batter1.ID, BatsmanID: f.bowler1.ID, Runs: 2}); err != nil {
		t.Fatalf("RecordBall: %v", err)
	}
	if _, err := service.CompleteInnings(ctx, second.ID); err != nil {
		t.Fatalf("CompleteInnings: %v", err)
	}

	match, err := service.CompleteMatch(ctx, f.match.ID)
	if err != nil {
		t.Fatalf("CompleteMatch: %v", err)
	}
	if match.WinnerTeamID != nil {
		t.Error("Tie should have no winner")
	}
	if match.ResultText == nil || *match.ResultText != "Match tied" {
		t.Errorf("Unexpected result text: %v", match.ResultText)
	}
}

// 取消是终态: 取消后不可完结，也不可再取消
func TestCancelMatch(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	service := NewMatchService(f.store)

	match, err := service.CancelMatch(ctx, f.match.ID)
	if err != nil {
		t.Fatalf("CancelMatch: %v", err)
	}
	if match.Status != database.MatchCancelled {
		t.Errorf("Expected CANCELLED, got %s", match.Status)
	}

	if _, err := service.CompleteMatch(ctx, f.match.ID); !errors.Is(err, models.ErrInvalidState) {
		t.Errorf("Expected invalid state completing cancelled match, got %v", err)
	}
	if _, err := service.CancelMatch(ctx, f.match.ID); !errors.Is(err, models.ErrInvalidState) {
		t.Errorf("Expected invalid state on double cancel, got %v", err)
	}
}

func TestDefaultManOfMatchRanker(t *testing.T) {
	batting := []*database.BattingPerformance{
		{PlayerID: 1, Runs: 45},
		{PlayerID: 2, Runs: 30},
	}
	bowling := []*database.BowlingPerformance{
		{PlayerID: 3, Wickets: 3}, // 3*20 = 60 > 45
	}

	best := DefaultManOfMatchRanker(batting, bowling)
	if best == nil || *best != 3 {
		t.Fatalf("Expected player 3, got %v", best)
	}

	// 并列时先比得分
	batting = []*database.BattingPerformance{
		{PlayerID: 1, Runs: 60},
	}
	best = DefaultManOfMatchRanker(batting, bowling)
	if best == nil || *best != 1 {
		t.Fatalf("Expected player 1 on runs tiebreak, got %v", best)
	}

	if DefaultManOfMatchRanker(nil, nil) != nil {
		t.Error("Expected nil for empty performances")
	}
}
