package services

import (
	"context"
	"sync"
	"time"

	"cricket-scoring-service/database"
	"cricket-scoring-service/models"
)

// MemoryStore 是 database.Store 的内存实现，用于无库运行引擎测试。
// InTx 用全局锁串行化并在出错时整体回滚，语义上等价于单连接事务。
type MemoryStore struct {
	mu sync.Mutex

	nextID    int64
	teams     map[int64]database.Team
	players   map[int64]database.Player
	matches   map[int64]database.Match
	innings   map[int64]database.Innings
	overs     map[int64]database.Over
	balls     map[int64]database.Ball
	batting   map[int64]database.BattingPerformance
	bowling   map[int64]database.BowlingPerformance
	snapshots []database.WinProbabilitySnapshot

	inTx bool
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		nextID:  1,
		teams:   make(map[int64]database.Team),
		players: make(map[int64]database.Player),
		matches: make(map[int64]database.Match),
		innings: make(map[int64]database.Innings),
		overs:   make(map[int64]database.Over),
		balls:   make(map[int64]database.Ball),
		batting: make(map[int64]database.BattingPerformance),
		bowling: make(map[int64]database.BowlingPerformance),
	}
}

func (s *MemoryStore) id() int64 {
	id := s.nextID
	s.nextID++
	return id
}

func (s *MemoryStore) lock() func() {
	if s.inTx {
		// 事务内复用外层锁
		return func() {}
	}
	s.mu.Lock()
	return s.mu.Unlock
}

// InTx 串行执行 fn，出错时恢复全部状态
func (s *MemoryStore) InTx(ctx context.Context, fn func(tx database.Store) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	backup := s.snapshotState()
	s.inTx = true
	err := fn(s)
	s.inTx = false
	if err != nil {
		s.restoreState(backup)
		return err
	}
	return nil
}

type memoryState struct {
	nextID    int64
	teams     map[int64]database.Team
	players   map[int64]database.Player
	matches   map[int64]database.Match
	innings   map[int64]database.Innings
	overs     map[int64]database.Over
	balls     map[int64]database.Ball
	batting   map[int64]database.BattingPerformance
	bowling   map[int64]database.BowlingPerformance
	snapshots []database.WinProbabilitySnapshot
}

func (s *MemoryStore) snapshotState() memoryState {
	return memoryState{
		nextID:    s.nextID,
		teams:     copyMap(s.teams),
		players:   copyMap(s.players),
		matches:   copyMap(s.matches),
		innings:   copyMap(s.innings),
		overs:     copyMap(s.overs),
		balls:     copyMap(s.balls),
		batting:   copyMap(s.batting),
		bowling:   copyMap(s.bowling),
		snapshots: append([]database.WinProbabilitySnapshot(nil), s.snapshots...),
	}
}

func (s *MemoryStore) restoreState(b memoryState) {
	s.nextID = b.nextID
	s.teams = b.teams
	s.players = b.players
	s.matches = b.matches
	s.innings = b.innings
	s.overs = b.overs
	s.balls = b.balls
	s.batting = b.batting
	s.bowling = b.bowling
	s.snapshots = b.snapshots
}

func copyMap[K comparable, V any](m map[K]V) map[K]V {
	out := make(map[K]V, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

// ---- 球队 / 球员 ----

func (s *MemoryStore) CreateTeam(ctx context.Context, team *database.Team) error {
	defer s.lock()()
	team.ID = s.id()
	team.CreatedAt = time.Now()
	s.teams[team.ID] = *team
	return nil
}

func (s *MemoryStore) GetTeam(ctx context.Context, id int64) (*database.Team, error) {
	defer s.lock()()
	t, ok := s.teams[id]
	if !ok {
		return nil, models.ErrNotFound
	}
	return &t, nil
}

func (s *MemoryStore) CreatePlayer(ctx context.Context, player *database.Player) error {
	defer s.lock()()
	player.ID = s.id()
	player.CreatedAt = time.Now()
	s.players[player.ID] = *player
	return nil
}

func (s *MemoryStore) GetPlayer(ctx context.Context, id int64) (*database.Player, error) {
	defer s.lock()()
	p, ok := s.players[id]
	if !ok {
		return nil, models.ErrNotFound
	}
	return &p, nil
}

// ---- 比赛 ----

func (s *MemoryStore) CreateMatch(ctx context.Context, match *database.Match) error {
	defer s.lock()()
	match.ID = s.id()
	match.CreatedAt = time.Now()
	match.UpdatedAt = match.CreatedAt
	s.matches[match.ID] = *match
	return nil
}

func (s *MemoryStore) GetMatch(ctx context.Context, id int64) (*database.Match, error) {
	defer s.lock()()
	m, ok := s.matches[id]
	if !ok {
		return nil, models.ErrNotFound
	}
	return &m, nil
}

func (s *MemoryStore) ListMatchesByStatus(ctx context.Context, status string) ([]*database.Match, error) {
	defer s.lock()()
	var out []*database.Match
	for id := int64(1); id < s.nextID; id++ {
		if m, ok := s.matches[id]; ok && m.Status == status {
			mm := m
			out = append(out, &mm)
		}
	}
	return out, nil
}

func (s *MemoryStore) ListMatches(ctx context.Context, limit, offset int) ([]*database.Match, error) {
	defer s.lock()()
	var out []*database.Match
	for id := int64(1); id < s.nextID; id++ {
		if m, ok := s.matches[id]; ok {
			mm := m
			out = append(out, &mm)
		}
	}
	if offset >= len(out) {
		return nil, nil
	}
	out = out[offset:]
	if limit > 0 && limit < len(out) {
		out = out[:limit]
	}
	return out, nil
}

func (s *MemoryStore) UpdateMatch(ctx context.Context, match *database.Match) error {
	defer s.lock()()
	if _, ok := s.matches[match.ID]; !ok {
		return models.ErrNotFound
	}
	match.UpdatedAt = time.Now()
	s.matches[match.ID] = *match
	return nil
}

// ---- 局 ----

func (s *MemoryStore) CreateInnings(ctx context.Context, innings *database.Innings) error {
	defer s.lock()()
	innings.ID = s.id()
	innings.CreatedAt = time.Now()
	innings.UpdatedAt = innings.CreatedAt
	s.innings[innings.ID] = *innings
	return nil
}

func (s *MemoryStore) GetInnings(ctx context.Context, id int64) (*database.Innings, error) {
	defer s.lock()()
	in, ok := s.innings[id]
	if !ok {
		return nil, models.ErrNotFound
	}
	return &in, nil
}

func (s *MemoryStore) LockInnings(ctx context.Context, id int64) (*database.Innings, error) {
	return s.GetInnings(ctx, id)
}

func (s *MemoryStore) GetInningsByNumber(ctx context.Context, matchID int64, number int) (*database.Innings, error) {
	defer s.lock()()
	for _, in := range s.innings {
		if in.MatchID == matchID && in.Number == number {
			out := in
			return &out, nil
		}
	}
	return nil, models.ErrNotFound
}

func (s *MemoryStore) ListInningsByMatch(ctx context.Context, matchID int64) ([]*database.Innings, error) {
	defer s.lock()()
	var out []*database.Innings
	for id := int64(1); id < s.nextID; id++ {
		if in, ok := s.innings[id]; ok && in.MatchID == matchID {
			ii := in
			out = append(out, &ii)
		}
	}
	return out, nil
}

func (s *MemoryStore) UpdateInnings(ctx context.Context, innings *database.Innings) error {
	defer s.lock()()
	if _, ok := s.innings[innings.ID]; !ok {
		return models.ErrNotFound
	}
	innings.UpdatedAt = time.Now()
	s.innings[innings.ID] = *innings
	return nil
}

// ---- 投球轮 ----

func (s *MemoryStore) CreateOver(ctx context.Context, over *database.Over) error {
	defer s.lock()()
	over.ID = s.id()
	over.CreatedAt = time.Now()
	s.overs[over.ID] = *over
	return nil
}

func (s *MemoryStore) GetLatestOver(ctx context.Context, inningsID int64) (*database.Over, error) {
	defer s.lock()()
	var latest *database.Over
	for _, o := range s.overs {
		if o.InningsID != inningsID {
			continue
		}
		if latest == nil || o.Number > latest.Number {
			oo := o
			latest = &oo
		}
	}
	if latest == nil {
		return nil, models.ErrNotFound
	}
	return latest, nil
}

func (s *MemoryStore) ListOversByInnings(ctx context.Context, inningsID int64) ([]*database.Over, error) {
	defer s.lock()()
	var out []*database.Over
	for id := int64(1); id < s.nextID; id++ {
		if o, ok := s.overs[id]; ok && o.InningsID == inningsID {
			oo := o
			out = append(out, &oo)
		}
	}
	return out, nil
}

func (s *MemoryStore) UpdateOver(ctx context.Context, over *database.Over) error {
	defer s.lock()()
	if _, ok := s.overs[over.ID]; !ok {
		return models.ErrNotFound
	}
	s.overs[over.ID] = *over
	return nil
}

// ---- 投球事件 ----

func (s *MemoryStore) CreateBall(ctx context.Context, ball *database.Ball) error {
	defer s.lock()()
	ball.ID = s.id()
	ball.CreatedAt = time.Now()
	s.balls[ball.ID] = *ball
	return nil
}

func (s *MemoryStore) ListBallsByOver(ctx context.Context, overID int64) ([]*database.Ball, error) {
	defer s.lock()()
	var out []*database.Ball
	for id := int64(1); id < s.nextID; id++ {
		if b, ok := s.balls[id]; ok && b.OverID == overID {
			bb := b
			out = append(out, &bb)
		}
	}
	return out, nil
}

func (s *MemoryStore) ListBallsByInnings(ctx context.Context, inningsID int64) ([]*database.Ball, error) {
	defer s.lock()()
	var out []*database.Ball
	for id := int64(1); id < s.nextID; id++ {
		if b, ok := s.balls[id]; ok && b.InningsID == inningsID {
			bb := b
			out = append(out, &bb)
		}
	}
	return out, nil
}

// ---- 球员表现 ----

func (s *MemoryStore) GetBattingPerformance(ctx context.Context, inningsID, playerID int64) (*database.BattingPerformance, error) {
	defer s.lock()()
	for _, p := range s.batting {
		if p.InningsID == inningsID && p.PlayerID == playerID {
			pp := p
			return &pp, nil
		}
	}
	return nil, models.ErrNotFound
}

func (s *MemoryStore) UpsertBattingPerformance(ctx context.Context, p *database.BattingPerformance) error {
	defer s.lock()()
	for id, existing := range s.batting {
		if existing.InningsID == p.InningsID && existing.PlayerID == p.PlayerID {
			p.ID = id
			s.batting[id] = *p
			return nil
		}
	}
	p.ID = s.id()
	s.batting[p.ID] = *p
	return nil
}

func (s *MemoryStore) ListBattingPerformances(ctx context.Context, inningsID int64) ([]*database.BattingPerformance, error) {
	defer s.lock()()
	var out []*database.BattingPerformance
	for id := int64(1); id < s.nextID; id++ {
		if p, ok := s.batting[id]; ok && p.InningsID == inningsID {
			pp := p
			out = append(out, &pp)
		}
	}
	return out, nil
}

func (s *MemoryStore) GetBowlingPerformance(ctx context.Context, inningsID, playerID int64) (*database.BowlingPerformance, error) {
	defer s.lock()()
	for _, p := range s.bowling {
		if p.InningsID == inningsID && p.PlayerID == playerID {
			pp := p
			return &pp, nil
		}
	}
	return nil, models.ErrNotFound
}

func (s *MemoryStore) UpsertBowlingPerformance(ctx context.Context, p *database.BowlingPerformance) error {
	defer s.lock()()
	for id, existing := range s.bowling {
		if existing.InningsID == p.InningsID && existing.PlayerID == p.PlayerID {
			p.ID = id
			s.bowling[id] = *p
			return nil
		}
	}
	p.ID = s.id()
	s.bowling[p.ID] = *p
	return nil
}

func (s *MemoryStore) ListBowlingPerformances(ctx context.Context, inningsID int64) ([]*database.BowlingPerformance, error) {
	defer s.lock()()
	var out []*database.BowlingPerformance
	for id := int64(1); id < s.nextID; id++ {
		if p, ok := s.bowling[id]; ok && p.InningsID == inningsID {
			pp := p
			out = append(out, &pp)
		}
	}
	return out, nil
}

// ---- 胜率快照 ----

func (s *MemoryStore) CreateSnapshot(ctx context.Context, snap *database.WinProbabilitySnapshot) error {
	defer s.lock()()
	snap.ID = s.id()
	snap.CreatedAt = time.Now()
	s.snapshots = append(s.snapshots, *snap)
	return nil
}

func (s *MemoryStore) GetLatestSnapshot(ctx context.Context, matchID int64) (*database.WinProbabilitySnapshot, error) {
	defer s.lock()()
	for i := len(s.snapshots) - 1; i >= 0; i-- {
		if s.snapshots[i].MatchID == matchID {
			snap := s.snapshots[i]
			return &snap, nil
		}
	}
	return nil, models.ErrNotFound
}

func (s *MemoryStore) ListSnapshots(ctx context.Context, matchID int64) ([]*database.WinProbabilitySnapshot, error) {
	defer s.lock()()
	var out []*database.WinProbabilitySnapshot
	for i := range s.snapshots {
		if s.snapshots[i].MatchID == matchID {
			snap := s.snapshots[i]
			out = append(out, &snap)
		}
	}
	return out, nil
}
