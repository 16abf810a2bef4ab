package services

import (
	"encoding/json"
	"fmt"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"cricket-scoring-service/logger"
)

// MQTTPublisher 把实时事件镜像到 MQTT，供球场大屏等非 WebSocket 订阅方使用。
// 实现 Broadcaster 接口; QoS 0，至多一次、尽力而为
type MQTTPublisher struct {
	broker   string
	username string
	password string
	client   mqtt.Client
}

func NewMQTTPublisher(broker, username, password string) *MQTTPublisher {
	return &MQTTPublisher{
		broker:   broker,
		username: username,
		password: password,
	}
}

// Connect 连接 MQTT broker，断线自动重连
func (p *MQTTPublisher) Connect() error {
	opts := mqtt.NewClientOptions()
	opts.AddBroker(p.broker)
	opts.SetUsername(p.username)
	opts.SetPassword(p.password)
	opts.SetClientID(fmt.Sprintf("cricket_scoring_%d", time.Now().Unix()))

	opts.SetAutoReconnect(true)
	opts.SetMaxReconnectInterval(10 * time.Second)
	opts.SetKeepAlive(60 * time.Second)
	opts.SetCleanSession(true)

	opts.SetOnConnectHandler(func(client mqtt.Client) {
		logger.Printf("[MQTT] Connected to %s", p.broker)
	})
	opts.SetConnectionLostHandler(func(client mqtt.Client, err error) {
		logger.Errorf("[MQTT] Connection lost: %v", err)
	})

	p.client = mqtt.NewClient(opts)
	token := p.client.Connect()
	if !token.WaitTimeout(10 * time.Second) {
		return fmt.Errorf("connect timeout")
	}
	return token.Error()
}

// Disconnect 断开连接
func (p *MQTTPublisher) Disconnect() {
	if p.client != nil && p.client.IsConnected() {
		p.client.Disconnect(250)
	}
}

// BroadcastToMatch 实现 Broadcaster 接口。
// 发布失败只记日志——事实来源是持久化的累计值
func (p *MQTTPublisher) BroadcastToMatch(event *LiveEvent) {
	if p.client == nil || !p.client.IsConnected() {
		return
	}

	payload, err := json.Marshal(event)
	if err != nil {
		logger.Errorf("[MQTT] Failed to marshal event: %v", err)
		return
	}

	topic := fmt.Sprintf("cricket/matches/%d/%s", event.MatchID, event.Type)
	p.client.Publish(topic, QoSAtMostOnce, false, payload)
}

// MQTT QoS 级别
const (
	QoSAtMostOnce  = 0
	QoSAtLeastOnce = 1
)
