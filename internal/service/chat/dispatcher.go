package chat

import (
	"context"

	"go.uber.org/zap"
)

// Dispatcher 业务层的投递入口
// channel 模式直接交给本节点的 DeliveryRouter，kafka 模式广播给集群内每个节点
// Dispatch 不返回错误：投递失败只记录日志，从不回滚已持久化的数据
type Dispatcher interface {
	Dispatch(ctx context.Context, delivery Delivery)
}

// LocalDispatcher 单机模式
type LocalDispatcher struct {
	router *DeliveryRouter
}

// NewLocalDispatcher 创建单机分发器
func NewLocalDispatcher(router *DeliveryRouter) *LocalDispatcher {
	return &LocalDispatcher{router: router}
}

func (l *LocalDispatcher) Dispatch(_ context.Context, delivery Delivery) {
	report := l.router.Route(delivery)
	zap.L().Debug("event dispatched",
		zap.String("user_id", delivery.UserID),
		zap.String("event", delivery.Event.Type),
		zap.Int("attempted", report.Attempted),
		zap.Stringer("outcome", report.Outcome()),
	)
}
