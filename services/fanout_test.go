package services

import (
	"context"
	"testing"
	"time"
)

// fakeBroadcaster 收集推送事件供断言
type fakeBroadcaster struct {
	events []*LiveEvent
}

func (b *fakeBroadcaster) BroadcastToMatch(event *LiveEvent) {
	b.events = append(b.events, event)
}

func (b *fakeBroadcaster) byType(typ LiveEventType) []*LiveEvent {
	var out []*LiveEvent
	for _, e := range b.events {
		if e.Type == typ {
			out = append(out, e)
		}
	}
	return out
}

func newCoordinator(f *fixture, b Broadcaster) *LiveUpdateCoordinator {
	cache := NewQueryCache(time.Minute)
	liveScore := NewLiveScoreService(f.store)
	winProb := NewWinProbabilityService(f.store)
	return NewLiveUpdateCoordinator(cache, liveScore, winProb, b)
}

// 第一局投球: 只推 score-update，不推胜率
func TestAfterBallFirstInnings(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	processor := NewBallProcessor(f.store)
	sink := &fakeBroadcaster{}
	coordinator := newCoordinator(f, sink)

	ball, err := processor.RecordBall(ctx, f.innings.ID, f.legalBall(4))
	if err != nil {
		t.Fatalf("RecordBall: %v", err)
	}
	coordinator.AfterBall(ctx, f.match.ID, ball)

	scores := sink.byType(EventScoreUpdate)
	if len(scores) != 1 {
		t.Fatalf("Expected 1 score-update, got %d", len(scores))
	}
	if scores[0].MatchID != f.match.ID || scores[0].Ball == nil || scores[0].LiveScore == nil {
		t.Error("score-update missing payload")
	}
	if got := sink.byType(EventWinProbabilityUpdate); len(got) != 0 {
		t.Errorf("First innings must not push win probability, got %d events", len(got))
	}
}

// 第二局投球: score-update 和 win-probability-update 各一条
func TestAfterBallSecondInnings(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	processor := NewBallProcessor(f.store)
	matchService := NewMatchService(f.store)
	sink := &fakeBroadcaster{}
	coordinator := newCoordinator(f, sink)

	if _, err := processor.RecordBall(ctx, f.innings.ID, f.legalBall(6)); err != nil {
		t.Fatalf("RecordBall: %v", err)
	}
	if _, err := matchService.CompleteInnings(ctx, f.innings.ID); err != nil {
		t.Fatalf("CompleteInnings: %v", err)
	}
	second, err := matchService.StartInnings(ctx, f.match.ID, 2)
	if err != nil {
		t.Fatalf("StartInnings: %v", err)
	}

	chase := &BallInput{BowlerID: f.batter1.ID, BatsmanID: f.bowler1.ID, Runs: 2}
	ball, err := processor.RecordBall(ctx, second.ID, chase)
	if err != nil {
		t.Fatalf("RecordBall: %v", err)
	}
	coordinator.AfterBall(ctx, f.match.ID, ball)

	if got := sink.byType(EventScoreUpdate); len(got) != 1 {
		t.Errorf("Expected 1 score-update, got %d", len(got))
	}
	probs := sink.byType(EventWinProbabilityUpdate)
	if len(probs) != 1 {
		t.Fatalf("Expected 1 win-probability-update, got %d", len(probs))
	}
	if probs[0].Snapshot == nil || probs[0].Snapshot.InningsNumber != 2 {
		t.Error("win-probability-update missing second-innings snapshot")
	}
}

// 缓存失效幂等，且只打击本场比赛的键
func TestInvalidateMatch(t *testing.T) {
	f := newFixture(t)
	cache := NewQueryCache(time.Minute)
	liveScore := NewLiveScoreService(f.store)
	winProb := NewWinProbabilityService(f.store)
	coordinator := NewLiveUpdateCoordinator(cache, liveScore, winProb)

	cache.Set(CacheKeyLiveScore(f.match.ID), "view")
	cache.Set(CacheKeyLiveScore(f.match.ID+1), "other")
	cache.Set(CacheKeyLiveMatches, "list")

	coordinator.InvalidateMatch(f.match.ID)
	coordinator.InvalidateMatch(f.match.ID) // 重复调用安全

	if _, found := cache.Get(CacheKeyLiveScore(f.match.ID)); found {
		t.Error("Match view should be invalidated")
	}
	if _, found := cache.Get(CacheKeyLiveMatches); found {
		t.Error("List view should be invalidated")
	}
	if _, found := cache.Get(CacheKeyLiveScore(f.match.ID + 1)); !found {
		t.Error("Other matches must keep their cache")
	}
}

// 胜率计算失败不影响 score-update 推送
func TestAfterBallSurvivesEstimatorFailure(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	processor := NewBallProcessor(f.store)
	sink := &fakeBroadcaster{}
	coordinator := newCoordinator(f, sink)

	ball, err := processor.RecordBall(ctx, f.innings.ID, f.legalBall(1))
	if err != nil {
		t.Fatalf("RecordBall: %v", err)
	}

	// 不存在的比赛让视图装配和胜率计算都失败
	coordinator.AfterBall(ctx, 9999, ball)

	scores := sink.byType(EventScoreUpdate)
	if len(scores) != 1 {
		t.Fatalf("score-update must still be published, got %d", len(scores))
	}
	if scores[0].LiveScore != nil {
		t.Error("Failed view assembly should publish a nil view")
	}
	if got := sink.byType(EventWinProbabilityUpdate); len(got) != 0 {
		t.Errorf("Failed estimator must not publish, got %d events", len(got))
	}
}

// 状态变更推送不携带投球负载
func TestAfterStateChange(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	sink := &fakeBroadcaster{}
	coordinator := newCoordinator(f, sink)

	coordinator.AfterStateChange(ctx, f.match.ID)

	scores := sink.byType(EventScoreUpdate)
	if len(scores) != 1 {
		t.Fatalf("Expected 1 score-update, got %d", len(scores))
	}
	if scores[0].Ball != nil {
		t.Error("State change events carry no ball")
	}
	if scores[0].LiveScore == nil {
		t.Error("State change events carry the assembled view")
	}
}
