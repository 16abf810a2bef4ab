package services

import "cricket-scoring-service/database"

// LiveEventType 推送事件类别。封闭枚举，订阅方可以穷举处理
type LiveEventType string

const (
	EventScoreUpdate          LiveEventType = "score-update"
	EventWinProbabilityUpdate LiveEventType = "win-probability-update"
)

// LiveEvent 按比赛频道推送的事件。两类负载互斥，按 Type 取用
type LiveEvent struct {
	Type    LiveEventType `json:"type"`
	MatchID int64         `json:"match_id"`

	// Type == EventScoreUpdate 时有效
	Ball      *database.Ball `json:"ball,omitempty"`
	LiveScore *LiveScoreView `json:"live_score,omitempty"`

	// Type == EventWinProbabilityUpdate 时有效
	Snapshot *database.WinProbabilitySnapshot `json:"snapshot,omitempty"`
}

// Broadcaster 按比赛频道广播事件，由 web.Hub 实现。
// 广播失败不得影响写路径。
type Broadcaster interface {
	BroadcastToMatch(event *LiveEvent)
}
