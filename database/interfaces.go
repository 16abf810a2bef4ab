package database

import "context"

// Store 记分引擎依赖的存储抽象。
// 生产实现为 SQLStore；services 包提供内存实现用于无库测试。
type Store interface {
	// InTx 在单个事务中执行 fn，fn 内的所有读写具有原子性
	InTx(ctx context.Context, fn func(tx Store) error) error

	CreateTeam(ctx context.Context, team *Team) error
	GetTeam(ctx context.Context, id int64) (*Team, error)
	CreatePlayer(ctx context.Context, player *Player) error
	GetPlayer(ctx context.Context, id int64) (*Player, error)

	CreateMatch(ctx context.Context, match *Match) error
	GetMatch(ctx context.Context, id int64) (*Match, error)
	ListMatchesByStatus(ctx context.Context, status string) ([]*Match, error)
	ListMatches(ctx context.Context, limit, offset int) ([]*Match, error)
	UpdateMatch(ctx context.Context, match *Match) error

	CreateInnings(ctx context.Context, innings *Innings) error
	GetInnings(ctx context.Context, id int64) (*Innings, error)
	// LockInnings 读取并锁定局行直到事务提交，投球写路径的串行化点
	LockInnings(ctx context.Context, id int64) (*Innings, error)
	GetInningsByNumber(ctx context.Context, matchID int64, number int) (*Innings, error)
	ListInningsByMatch(ctx context.Context, matchID int64) ([]*Innings, error)
	UpdateInnings(ctx context.Context, innings *Innings) error

	CreateOver(ctx context.Context, over *Over) error
	GetLatestOver(ctx context.Context, inningsID int64) (*Over, error)
	ListOversByInnings(ctx context.Context, inningsID int64) ([]*Over, error)
	UpdateOver(ctx context.Context, over *Over) error

	CreateBall(ctx context.Context, ball *Ball) error
	ListBallsByOver(ctx context.Context, overID int64) ([]*Ball, error)
	ListBallsByInnings(ctx context.Context, inningsID int64) ([]*Ball, error)

	GetBattingPerformance(ctx context.Context, inningsID, playerID int64) (*BattingPerformance, error)
	UpsertBattingPerformance(ctx context.Context, p *BattingPerformance) error
	ListBattingPerformances(ctx context.Context, inningsID int64) ([]*BattingPerformance, error)
	GetBowlingPerformance(ctx context.Context, inningsID, playerID int64) (*BowlingPerformance, error)
	UpsertBowlingPerformance(ctx context.Context, p *BowlingPerformance) error
	ListBowlingPerformances(ctx context.Context, inningsID int64) ([]*BowlingPerformance, error)

	CreateSnapshot(ctx context.Context, snap *WinProbabilitySnapshot) error
	GetLatestSnapshot(ctx context.Context, matchID int64) (*WinProbabilitySnapshot, error)
	ListSnapshots(ctx context.Context, matchID int64) ([]*WinProbabilitySnapshot, error)
}
