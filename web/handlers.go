package web

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"

	"cricket-scoring-service/database"
	"cricket-scoring-service/logger"
	"cricket-scoring-service/models"
	"cricket-scoring-service/services"
)

// writeJSON 输出JSON响应
func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// writeError 把引擎错误分类映射为HTTP状态码
func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, models.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, models.ErrValidation):
		status = http.StatusBadRequest
	case errors.Is(err, models.ErrInvalidState):
		status = http.StatusConflict
	case errors.Is(err, models.ErrConflict):
		status = http.StatusConflict
	case errors.Is(err, models.ErrDependencyUnavailable):
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

func pathID(r *http.Request, key string) (int64, error) {
	id, err := strconv.ParseInt(mux.Vars(r)[key], 10, 64)
	if err != nil || id <= 0 {
		return 0, models.ErrValidation
	}
	return id, nil
}

// handleHealth 健康检查
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status": "ok",
		"time":   time.Now().Unix(),
	})
}

// handleGetStats 服务运行统计
func (s *Server) handleGetStats(w http.ResponseWriter, r *http.Request) {
	liveMatches, err := s.store.ListMatchesByStatus(r.Context(), database.MatchLive)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"live_matches":      len(liveMatches),
		"connected_clients": s.wsHub.ClientCount(),
		"cache_entries":     s.cache.Size(),
		"environment":       s.config.Environment,
	})
}

// ---- 管理 ----

func (s *Server) handleCreateTeam(w http.ResponseWriter, r *http.Request) {
	var team database.Team
	if err := json.NewDecoder(r.Body).Decode(&team); err != nil {
		writeError(w, models.ErrValidation)
		return
	}
	if team.Name == "" {
		writeError(w, models.ErrValidation)
		return
	}
	if err := s.store.CreateTeam(r.Context(), &team); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, team)
}

func (s *Server) handleCreatePlayer(w http.ResponseWriter, r *http.Request) {
	var player database.Player
	if err := json.NewDecoder(r.Body).Decode(&player); err != nil {
		writeError(w, models.ErrValidation)
		return
	}
	if player.Name == "" || player.TeamID == 0 {
		writeError(w, models.ErrValidation)
		return
	}
	if err := s.store.CreatePlayer(r.Context(), &player); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, player)
}

func (s *Server) handleCreateMatch(w http.ResponseWriter, r *http.Request) {
	var match database.Match
	if err := json.NewDecoder(r.Body).Decode(&match); err != nil {
		writeError(w, models.ErrValidation)
		return
	}
	if match.OversLimit == 0 {
		match.OversLimit = s.config.DefaultOversLimit
	}
	if match.ScheduledAt.IsZero() {
		match.ScheduledAt = time.Now()
	}
	if err := s.matchService.CreateMatch(r.Context(), &match); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, match)
}

func (s *Server) handleListMatches(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	limit, _ := strconv.Atoi(query.Get("limit"))
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	offset, _ := strconv.Atoi(query.Get("offset"))
	if offset < 0 {
		offset = 0
	}

	matches, err := s.store.ListMatches(r.Context(), limit, offset)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, matches)
}

func (s *Server) handleGetMatch(w http.ResponseWriter, r *http.Request) {
	matchID, err := pathID(r, "match_id")
	if err != nil {
		writeError(w, err)
		return
	}
	match, err := s.store.GetMatch(r.Context(), matchID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, match)
}

// ---- 记分 ----

type tossRequest struct {
	WinnerTeamID int64  `json:"winner_team_id"`
	Decision     string `json:"decision"`
}

func (s *Server) handleRecordToss(w http.ResponseWriter, r *http.Request) {
	matchID, err := pathID(r, "match_id")
	if err != nil {
		writeError(w, err)
		return
	}
	var req tossRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, models.ErrValidation)
		return
	}

	match, err := s.matchService.RecordToss(r.Context(), matchID, req.WinnerTeamID, req.Decision)
	if err != nil {
		writeError(w, err)
		return
	}

	s.coordinator.AfterStateChange(r.Context(), matchID)
	writeJSON(w, http.StatusOK, match)
}

type startInningsRequest struct {
	Number int `json:"number"`
}

func (s *Server) handleStartInnings(w http.ResponseWriter, r *http.Request) {
	matchID, err := pathID(r, "match_id")
	if err != nil {
		writeError(w, err)
		return
	}
	var req startInningsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, models.ErrValidation)
		return
	}

	innings, err := s.matchService.StartInnings(r.Context(), matchID, req.Number)
	if err != nil {
		writeError(w, err)
		return
	}

	s.coordinator.AfterStateChange(r.Context(), matchID)
	writeJSON(w, http.StatusCreated, innings)
}

func (s *Server) handleRecordBall(w http.ResponseWriter, r *http.Request) {
	inningsID, err := pathID(r, "innings_id")
	if err != nil {
		writeError(w, err)
		return
	}
	var input services.BallInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		writeError(w, models.ErrValidation)
		return
	}

	ball, err := s.processor.RecordBall(r.Context(), inningsID, &input)
	if errors.Is(err, models.ErrConflict) {
		// 争用冲突整体重试一次，仍失败则上报
		logger.Printf("[API] Ball write conflict on innings %d, retrying once", inningsID)
		ball, err = s.processor.RecordBall(r.Context(), inningsID, &input)
	}
	if err != nil {
		writeError(w, err)
		return
	}

	innings, err := s.store.GetInnings(r.Context(), inningsID)
	if err == nil {
		s.coordinator.AfterBall(r.Context(), innings.MatchID, ball)
	}

	writeJSON(w, http.StatusCreated, ball)
}

func (s *Server) handleCompleteInnings(w http.ResponseWriter, r *http.Request) {
	inningsID, err := pathID(r, "innings_id")
	if err != nil {
		writeError(w, err)
		return
	}

	innings, err := s.matchService.CompleteInnings(r.Context(), inningsID)
	if err != nil {
		writeError(w, err)
		return
	}

	s.coordinator.AfterStateChange(r.Context(), innings.MatchID)
	writeJSON(w, http.StatusOK, innings)
}

func (s *Server) handleCompleteMatch(w http.ResponseWriter, r *http.Request) {
	matchID, err := pathID(r, "match_id")
	if err != nil {
		writeError(w, err)
		return
	}

	match, err := s.matchService.CompleteMatch(r.Context(), matchID)
	if err != nil {
		writeError(w, err)
		return
	}

	s.coordinator.AfterStateChange(r.Context(), matchID)
	writeJSON(w, http.StatusOK, match)
}

func (s *Server) handleCancelMatch(w http.ResponseWriter, r *http.Request) {
	matchID, err := pathID(r, "match_id")
	if err != nil {
		writeError(w, err)
		return
	}

	match, err := s.matchService.CancelMatch(r.Context(), matchID)
	if err != nil {
		writeError(w, err)
		return
	}

	s.coordinator.InvalidateMatch(matchID)
	writeJSON(w, http.StatusOK, match)
}

// ---- 读路径 ----

// handleGetLiveScore 实时比分。整响应缓存，投球提交后由协调器失效
func (s *Server) handleGetLiveScore(w http.ResponseWriter, r *http.Request) {
	matchID, err := pathID(r, "match_id")
	if err != nil {
		writeError(w, err)
		return
	}

	cacheKey := services.CacheKeyLiveScore(matchID)
	if cached, ok := s.cache.Get(cacheKey); ok {
		writeJSON(w, http.StatusOK, cached)
		return
	}

	view, err := s.liveScore.GetLiveScore(r.Context(), matchID)
	if err != nil {
		writeError(w, err)
		return
	}

	s.cache.Set(cacheKey, view)
	writeJSON(w, http.StatusOK, view)
}

func (s *Server) handleGetLiveMatches(w http.ResponseWriter, r *http.Request) {
	if cached, ok := s.cache.Get(services.CacheKeyLiveMatches); ok {
		writeJSON(w, http.StatusOK, cached)
		return
	}

	summaries, err := s.liveScore.GetAllLiveMatches(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}

	s.cache.Set(services.CacheKeyLiveMatches, summaries)
	writeJSON(w, http.StatusOK, summaries)
}

// handleGetScorecard 完整记分卡，复用实时视图装配器
func (s *Server) handleGetScorecard(w http.ResponseWriter, r *http.Request) {
	matchID, err := pathID(r, "match_id")
	if err != nil {
		writeError(w, err)
		return
	}

	view, err := s.liveScore.GetLiveScore(r.Context(), matchID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

// handleGetWinProbability 胜率历史，供前端画走势图
func (s *Server) handleGetWinProbability(w http.ResponseWriter, r *http.Request) {
	matchID, err := pathID(r, "match_id")
	if err != nil {
		writeError(w, err)
		return
	}

	history, err := s.winProb.History(r.Context(), matchID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, history)
}

// handleGetBalls 一局的逐球记录（含解说与轨迹透传数据）
func (s *Server) handleGetBalls(w http.ResponseWriter, r *http.Request) {
	inningsID, err := pathID(r, "innings_id")
	if err != nil {
		writeError(w, err)
		return
	}

	balls, err := s.store.ListBallsByInnings(r.Context(), inningsID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, balls)
}
