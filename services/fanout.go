package services

import (
	"context"
	"fmt"

	"cricket-scoring-service/database"
	"cricket-scoring-service/logger"
)

// 缓存键约定。视图整体缓存，不做字段级缓存
const (
	CacheKeyLiveMatches = "live_matches"
)

func CacheKeyLiveScore(matchID int64) string {
	return fmt.Sprintf("live_score_%d", matchID)
}

func matchCachePrefix(matchID int64) string {
	return CacheKeyLiveScore(matchID)
}

// LiveUpdateCoordinator 缓存失效与实时推送协调器。
// 在每次状态变更的事务提交之后同步调用; 缓存与推送都是尽力而为，
// 任何失败只记日志不回传——持久化的累计值才是事实来源。
type LiveUpdateCoordinator struct {
	cache        *QueryCache
	liveScore    *LiveScoreService
	winProb      *WinProbabilityService
	broadcasters []Broadcaster
}

func NewLiveUpdateCoordinator(cache *QueryCache, liveScore *LiveScoreService, winProb *WinProbabilityService, broadcasters ...Broadcaster) *LiveUpdateCoordinator {
	return &LiveUpdateCoordinator{
		cache:        cache,
		liveScore:    liveScore,
		winProb:      winProb,
		broadcasters: broadcasters,
	}
}

// InvalidateMatch 失效一场比赛的全部缓存读模型。
// 键不存在时为空操作，可安全重复调用
func (c *LiveUpdateCoordinator) InvalidateMatch(matchID int64) {
	if c.cache == nil {
		return
	}
	c.cache.DeleteByPrefix(matchCachePrefix(matchID))
	c.cache.Delete(CacheKeyLiveMatches)
}

// AfterBall 投球事务提交后的后续处理: 失效缓存、计算胜率快照、推送订阅方。
// 快照计算失败不影响已记录的投球——记分正确性优先于辅助分析
func (c *LiveUpdateCoordinator) AfterBall(ctx context.Context, matchID int64, ball *database.Ball) {
	c.InvalidateMatch(matchID)

	view, err := c.liveScore.GetLiveScore(ctx, matchID)
	if err != nil {
		logger.Errorf("[Fanout] Failed to assemble live view for match %d: %v", matchID, err)
		view = nil
	}

	c.publish(&LiveEvent{
		Type:      EventScoreUpdate,
		MatchID:   matchID,
		Ball:      ball,
		LiveScore: view,
	})

	snap, err := c.winProb.Calculate(ctx, matchID)
	if err != nil {
		logger.Errorf("[Fanout] Win probability calculation failed for match %d: %v", matchID, err)
		return
	}

	// 胜率推送只在第二局有意义
	if snap.InningsNumber == 2 {
		c.publish(&LiveEvent{
			Type:     EventWinProbabilityUpdate,
			MatchID:  matchID,
			Snapshot: snap,
		})
	}
}

// AfterStateChange 掷币/局转换/比赛完结后的缓存失效与推送
func (c *LiveUpdateCoordinator) AfterStateChange(ctx context.Context, matchID int64) {
	c.InvalidateMatch(matchID)

	view, err := c.liveScore.GetLiveScore(ctx, matchID)
	if err != nil {
		logger.Errorf("[Fanout] Failed to assemble live view for match %d: %v", matchID, err)
		return
	}
	c.publish(&LiveEvent{
		Type:      EventScoreUpdate,
		MatchID:   matchID,
		LiveScore: view,
	})
}

// publish 向所有广播通道推送，至多一次、尽力而为
func (c *LiveUpdateCoordinator) publish(event *LiveEvent) {
	for _, b := range c.broadcasters {
		b.BroadcastToMatch(event)
	}
	EventsPublished.WithLabelValues(string(event.Type)).Inc()
}
