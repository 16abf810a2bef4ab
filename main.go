package main

import (
	"log"
	"os"
	"os/signal"
	"syscall"

	"cricket-scoring-service/config"
	"cricket-scoring-service/database"
	"cricket-scoring-service/services"
	"cricket-scoring-service/web"
)

func main() {
	log.Println("Starting Cricket Scoring Service...")

	// 加载配置
	cfg := config.Load()

	// 连接数据库
	db, err := database.Connect(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	// 运行数据库迁移
	if err := database.Migrate(db); err != nil {
		log.Fatalf("Failed to migrate database: %v", err)
	}

	log.Println("Database connected and migrated")

	store := database.NewSQLStore(db)

	// 创建WebSocket Hub
	wsHub := web.NewHub()
	go wsHub.Run()

	// 广播通道: WebSocket 必有，MQTT 可选
	broadcasters := []services.Broadcaster{wsHub}

	var mqttPublisher *services.MQTTPublisher
	if cfg.MQTTBroker != "" {
		mqttPublisher = services.NewMQTTPublisher(cfg.MQTTBroker, cfg.MQTTUsername, cfg.MQTTPassword)
		if err := mqttPublisher.Connect(); err != nil {
			// MQTT 是辅助通道，连不上不阻塞启动
			log.Printf("MQTT connect failed, score mirror disabled: %v", err)
		} else {
			broadcasters = append(broadcasters, mqttPublisher)
			defer mqttPublisher.Disconnect()
		}
	}

	// 引擎装配
	cache := services.NewQueryCache(cfg.CacheTTL)
	liveScore := services.NewLiveScoreService(store)
	winProb := services.NewWinProbabilityService(store)
	coordinator := services.NewLiveUpdateCoordinator(cache, liveScore, winProb, broadcasters...)
	processor := services.NewBallProcessor(store)

	// 启动AMQP消费者（外部记分端投球事件）
	if cfg.AMQPURL != "" {
		amqpConsumer := services.NewAMQPConsumer(cfg, processor, coordinator)
		go func() {
			if err := amqpConsumer.Start(); err != nil {
				log.Printf("AMQP consumer stopped: %v", err)
			}
		}()
		defer amqpConsumer.Stop()
		log.Println("AMQP consumer started")
	}

	// 启动Web服务器
	server := web.NewServer(cfg, store, wsHub, coordinator, cache)
	go func() {
		if err := server.Start(); err != nil {
			log.Fatalf("Web server error: %v", err)
		}
	}()

	log.Printf("Web server started on port %s", cfg.Port)
	log.Println("Service is running. Press Ctrl+C to stop.")

	// 等待中断信号
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down...")
	server.Stop()
	log.Println("Service stopped")
}
