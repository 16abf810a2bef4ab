package main

import (
	"log"

	"cricket-scoring-service/config"
	"cricket-scoring-service/database"
)

// 独立迁移工具，部署流水线在服务启动前运行
func main() {
	cfg := config.Load()

	db, err := database.Connect(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	if err := database.Migrate(db); err != nil {
		log.Fatalf("Migration failed: %v", err)
	}

	log.Println("Migrations applied")
}
