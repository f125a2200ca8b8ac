package chat

import (
	"context"

	"social_relay/internal/config"
	"social_relay/pkg/constants"

	"go.uber.org/zap"
)

// ChatServer 聚合注册表、投递路由和分发器，统一管理生命周期
type ChatServer struct {
	Registry   *ConnRegistry
	Router     *DeliveryRouter
	Dispatcher Dispatcher

	kafka  *KafkaDispatcher
	cancel context.CancelFunc
	mode   string
}

// ChatServerConfig 聊天服务器配置
type ChatServerConfig struct {
	Registry *ConnRegistry
	Pusher   Pusher
	Kafka    config.KafkaConfig
	NodeID   int64
}

// NewChatServer 按 messageMode 选择单机或 kafka 分发
func NewChatServer(cfg ChatServerConfig) *ChatServer {
	router := NewDeliveryRouter(cfg.Registry, cfg.Pusher)
	cs := &ChatServer{
		Registry: cfg.Registry,
		Router:   router,
		mode:     cfg.Kafka.MessageMode,
	}
	if cs.mode == constants.MODE_KAFKA {
		cs.kafka = NewKafkaDispatcher(cfg.Kafka, cfg.NodeID, router)
		cs.Dispatcher = cs.kafka
	} else {
		cs.mode = constants.MODE_CHANNEL
		cs.Dispatcher = NewLocalDispatcher(router)
	}
	return cs
}

// Start kafka 模式下启动消费循环
func (cs *ChatServer) Start() {
	if cs.kafka == nil {
		zap.L().Info("chat server started", zap.String("mode", cs.mode))
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	cs.cancel = cancel
	go cs.kafka.Start(ctx)
	zap.L().Info("chat server started", zap.String("mode", cs.mode))
}

// Close 停止消费循环并释放 kafka 资源
func (cs *ChatServer) Close() {
	if cs.cancel != nil {
		cs.cancel()
	}
	if cs.kafka != nil {
		cs.kafka.Close()
	}
}

// Mode 当前分发模式
func (cs *ChatServer) Mode() string {
	return cs.mode
}
