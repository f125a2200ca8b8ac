package chat

import (
	"encoding/json"

	"go.uber.org/zap"
)

// Pusher 传输层提供的推送原语，必须非阻塞
type Pusher interface {
	PushToConnection(connID string, frame Frame) error
}

// Outcome 单次推送结果
type Outcome int

const (
	OutcomePushed         Outcome = iota // 已交给传输层
	OutcomeNoTarget                      // 目标无在线连接
	OutcomeTransportError                // 传输层拒绝（连接已关闭、缓冲已满等）
)

func (o Outcome) String() string {
	switch o {
	case OutcomePushed:
		return "pushed"
	case OutcomeNoTarget:
		return "no-target"
	case OutcomeTransportError:
		return "transport-error"
	default:
		return "unknown"
	}
}

// ConnOutcome 单个连接的推送结果
type ConnOutcome struct {
	ConnID  string
	Outcome Outcome
	Err     error
}

// Report 一次 Deliver 的结果
type Report struct {
	UserID    string
	Attempted int
	Results   []ConnOutcome
}

// Pushed 成功推送的连接数
func (r Report) Pushed() int {
	n := 0
	for _, res := range r.Results {
		if res.Outcome == OutcomePushed {
			n++
		}
	}
	return n
}

// Outcome 汇总结果：无连接为 no-target，至少一个成功为 pushed，全部失败为 transport-error
func (r Report) Outcome() Outcome {
	if r.Attempted == 0 {
		return OutcomeNoTarget
	}
	if r.Pushed() > 0 {
		return OutcomePushed
	}
	return OutcomeTransportError
}

// DeliveryRouter 根据注册表把事件推送到目标用户的所有在线连接
// 只做尽力而为的推送，不读写存储
type DeliveryRouter struct {
	registry *ConnRegistry
	pusher   Pusher
}

// NewDeliveryRouter 创建投递路由
func NewDeliveryRouter(registry *ConnRegistry, pusher Pusher) *DeliveryRouter {
	return &DeliveryRouter{registry: registry, pusher: pusher}
}

// Deliver 推送到 userID 的全部在线连接
func (d *DeliveryRouter) Deliver(userID string, evt Event) Report {
	return d.DeliverExcept(userID, "", evt)
}

// DeliverExcept 推送到 userID 除 exceptConnID 以外的在线连接
// 单个连接失败只记录 delivery warning，不影响其他连接
func (d *DeliveryRouter) DeliverExcept(userID, exceptConnID string, evt Event) Report {
	report := Report{UserID: userID}

	targets := d.registry.LiveConnectionsFor(userID)
	if len(targets) == 0 {
		return report
	}

	payload, marshalErr := json.Marshal(evt)
	frame := Frame{Payload: payload, MessageId: evt.MessageId}

	for _, connID := range targets {
		if connID == exceptConnID {
			continue
		}
		report.Attempted++

		err := marshalErr
		if err == nil {
			err = d.pusher.PushToConnection(connID, frame)
		}
		if err != nil {
			zap.L().Warn("delivery warning",
				zap.String("user_id", userID),
				zap.String("conn_id", connID),
				zap.String("event", evt.Type),
				zap.Error(err),
			)
			report.Results = append(report.Results, ConnOutcome{ConnID: connID, Outcome: OutcomeTransportError, Err: err})
			continue
		}
		report.Results = append(report.Results, ConnOutcome{ConnID: connID, Outcome: OutcomePushed})
	}
	return report
}

// Route 执行一次 Delivery
func (d *DeliveryRouter) Route(delivery Delivery) Report {
	return d.DeliverExcept(delivery.UserID, delivery.ExceptConnID, delivery.Event)
}
