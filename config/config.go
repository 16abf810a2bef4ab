package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	// 数据库配置
	DatabaseURL string

	// 服务器配置
	Port string

	// 记分员事件队列配置（可选，为空则不启动 AMQP 消费者）
	AMQPURL   string
	BallQueue string

	// MQTT 镜像配置（可选，为空则不启动 MQTT 发布）
	MQTTBroker   string
	MQTTUsername string
	MQTTPassword string

	// 缓存配置
	CacheTTL time.Duration

	// 比赛默认配置
	DefaultOversLimit int // 默认限定回合数（T20 = 20）

	// 记分权限令牌表: token -> role (scorer/tournament_admin/super_admin)
	ScorerTokens map[string]string

	// 其他配置
	Environment string
}

func Load() *Config {
	// .env 文件仅本地开发使用，不存在时忽略
	_ = godotenv.Load()

	return &Config{
		DatabaseURL: getEnv("DATABASE_URL", "postgres://localhost:5432/cricket?sslmode=disable"),

		Port: getEnv("PORT", "8080"),

		AMQPURL:   getEnv("AMQP_URL", ""),
		BallQueue: getEnv("BALL_QUEUE", "cricket.balls"),

		MQTTBroker:   getEnv("MQTT_BROKER", ""),
		MQTTUsername: getEnv("MQTT_USERNAME", ""),
		MQTTPassword: getEnv("MQTT_PASSWORD", ""),

		CacheTTL: time.Duration(getEnvInt("CACHE_TTL_SECONDS", 30)) * time.Second,

		DefaultOversLimit: getEnvInt("DEFAULT_OVERS_LIMIT", 20),

		ScorerTokens: getScorerTokens(),

		Environment: getEnv("ENVIRONMENT", "development"),
	}
}

func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

func getEnvInt(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	var result int
	fmt.Sscanf(value, "%d", &result)
	if result == 0 {
		return defaultValue
	}
	return result
}

// getScorerTokens 解析 SCORER_TOKENS 环境变量
// 格式: token1:scorer,token2:tournament_admin
func getScorerTokens() map[string]string {
	tokens := make(map[string]string)
	raw := getEnv("SCORER_TOKENS", "")
	if raw == "" {
		return tokens
	}
	for _, pair := range strings.Split(raw, ",") {
		parts := strings.SplitN(pair, ":", 2)
		if len(parts) != 2 {
			continue
		}
		tokens[strings.TrimSpace(parts[0])] = strings.TrimSpace(parts[1])
	}
	return tokens
}
