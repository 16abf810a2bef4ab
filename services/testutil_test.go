package services

import (
	"context"
	"testing"
	"time"

	"cricket-scoring-service/database"
)

// fixture 组装一场完成掷币、第一局就绪的 T20 比赛
type fixture struct {
	store   *MemoryStore
	match   *database.Match
	innings *database.Innings
	teamA   *database.Team
	teamB   *database.Team
	// teamA 球员
	batter1 *database.Player
	batter2 *database.Player
	// teamB 球员
	bowler1 *database.Player
	bowler2 *database.Player
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()
	store := NewMemoryStore()

	f := &fixture{store: store}

	f.teamA = &database.Team{Name: "Chennai Kings", ShortName: "CSK"}
	f.teamB = &database.Team{Name: "Mumbai Riders", ShortName: "MR"}
	for _, team := range []*database.Team{f.teamA, f.teamB} {
		if err := store.CreateTeam(ctx, team); err != nil {
			t.Fatalf("CreateTeam: %v", err)
		}
	}

	f.batter1 = &database.Player{TeamID: f.teamA.ID, Name: "R Sharma", Role: "batsman"}
	f.batter2 = &database.Player{TeamID: f.teamA.ID, Name: "V Patel", Role: "batsman"}
	f.bowler1 = &database.Player{TeamID: f.teamB.ID, Name: "J Singh", Role: "bowler"}
	f.bowler2 = &database.Player{TeamID: f.teamB.ID, Name: "A Kumar", Role: "bowler"}
	for _, p := range []*database.Player{f.batter1, f.batter2, f.bowler1, f.bowler2} {
		if err := store.CreatePlayer(ctx, p); err != nil {
			t.Fatalf("CreatePlayer: %v", err)
		}
	}

	f.match = &database.Match{
		TeamAID:     f.teamA.ID,
		TeamBID:     f.teamB.ID,
		Venue:       "Eden Park",
		ScheduledAt: time.Now(),
		OversLimit:  20,
	}
	matchService := NewMatchService(store)
	if err := matchService.CreateMatch(ctx, f.match); err != nil {
		t.Fatalf("CreateMatch: %v", err)
	}

	// teamA 赢掷币选择击球
	match, err := matchService.RecordToss(ctx, f.match.ID, f.teamA.ID, database.TossDecisionBat)
	if err != nil {
		t.Fatalf("RecordToss: %v", err)
	}
	f.match = match

	innings, err := store.GetInningsByNumber(ctx, f.match.ID, 1)
	if err != nil {
		t.Fatalf("GetInningsByNumber: %v", err)
	}
	f.innings = innings

	return f
}

// legalBall 生成一个普通合法球输入
func (f *fixture) legalBall(runs int) *BallInput {
	return &BallInput{
		BowlerID:  f.bowler1.ID,
		BatsmanID: f.batter1.ID,
		Runs:      runs,
	}
}
