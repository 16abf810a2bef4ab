package web

import (
	"context"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/cors"

	"cricket-scoring-service/config"
	"cricket-scoring-service/database"
	"cricket-scoring-service/logger"
	"cricket-scoring-service/services"
)

type Server struct {
	config       *config.Config
	store        database.Store
	wsHub        *Hub
	matchService *services.MatchService
	processor    *services.BallProcessor
	liveScore    *services.LiveScoreService
	winProb      *services.WinProbabilityService
	coordinator  *services.LiveUpdateCoordinator
	cache        *services.QueryCache
	auth         Authorizer
	httpServer   *http.Server
	upgrader     websocket.Upgrader
}

func NewServer(cfg *config.Config, store database.Store, hub *Hub, coordinator *services.LiveUpdateCoordinator, cache *services.QueryCache) *Server {
	return &Server{
		config:       cfg,
		store:        store,
		wsHub:        hub,
		matchService: services.NewMatchService(store),
		processor:    services.NewBallProcessor(store),
		liveScore:    services.NewLiveScoreService(store),
		winProb:      services.NewWinProbabilityService(store),
		coordinator:  coordinator,
		cache:        cache,
		auth:         NewTokenAuthorizer(cfg.ScorerTokens),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				return true // 允许所有来源(生产环境需要限制)
			},
		},
	}
}

func (s *Server) Start() error {
	router := mux.NewRouter()

	// API路由
	api := router.PathPrefix("/api").Subrouter()
	api.HandleFunc("/health", s.handleHealth).Methods("GET")
	api.HandleFunc("/stats", s.handleGetStats).Methods("GET")

	// 管理
	api.HandleFunc("/teams", s.requireRole(RoleTournamentAdmin, s.handleCreateTeam)).Methods("POST")
	api.HandleFunc("/players", s.requireRole(RoleTournamentAdmin, s.handleCreatePlayer)).Methods("POST")
	api.HandleFunc("/matches", s.requireRole(RoleTournamentAdmin, s.handleCreateMatch)).Methods("POST")
	api.HandleFunc("/matches", s.handleListMatches).Methods("GET")

	// 记分（状态机 + 投球）
	api.HandleFunc("/matches/{match_id}/toss", s.requireRole(RoleScorer, s.handleRecordToss)).Methods("POST")
	api.HandleFunc("/matches/{match_id}/innings", s.requireRole(RoleScorer, s.handleStartInnings)).Methods("POST")
	api.HandleFunc("/innings/{innings_id}/balls", s.requireRole(RoleScorer, s.handleRecordBall)).Methods("POST")
	api.HandleFunc("/innings/{innings_id}/complete", s.requireRole(RoleScorer, s.handleCompleteInnings)).Methods("POST")
	api.HandleFunc("/matches/{match_id}/complete", s.requireRole(RoleScorer, s.handleCompleteMatch)).Methods("POST")
	api.HandleFunc("/matches/{match_id}/cancel", s.requireRole(RoleTournamentAdmin, s.handleCancelMatch)).Methods("POST")

	// 读路径
	api.HandleFunc("/matches/live", s.handleGetLiveMatches).Methods("GET")
	api.HandleFunc("/matches/{match_id}", s.handleGetMatch).Methods("GET")
	api.HandleFunc("/matches/{match_id}/live", s.handleGetLiveScore).Methods("GET")
	api.HandleFunc("/matches/{match_id}/scorecard", s.handleGetScorecard).Methods("GET")
	api.HandleFunc("/matches/{match_id}/win-probability", s.handleGetWinProbability).Methods("GET")
	api.HandleFunc("/innings/{innings_id}/balls", s.handleGetBalls).Methods("GET")

	// WebSocket路由
	router.HandleFunc("/ws", s.handleWebSocket)

	// 指标
	router.Handle("/metrics", promhttp.Handler())

	// CORS配置
	c := cors.New(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"*"},
		AllowCredentials: true,
	})

	handler := c.Handler(router)

	s.httpServer = &http.Server{
		Addr:         ":" + s.config.Port,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return s.httpServer.ListenAndServe()
}

func (s *Server) Stop() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := s.httpServer.Shutdown(ctx); err != nil {
		logger.Errorf("Server shutdown error: %v", err)
	}
}

// requireRole 包装需要记分权限的路由
func (s *Server) requireRole(role string, next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !s.auth.Authorize(r, role) {
			http.Error(w, "forbidden", http.StatusForbidden)
			return
		}
		next(w, r)
	}
}

// handleWebSocket 升级连接并注册到Hub
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Errorf("[WS] Upgrade failed: %v", err)
		return
	}

	client := newClient(s.wsHub, conn)
	s.wsHub.register <- client

	go client.writePump()
	go client.readPump()
}
