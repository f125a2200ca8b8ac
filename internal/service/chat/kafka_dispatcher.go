package chat

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sync/atomic"
	"time"

	"social_relay/internal/config"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

type kafkaWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

type kafkaReader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// envelope kafka 消息体
type envelope struct {
	UserID       string          `json:"user_id"`
	ExceptConnID string          `json:"except_conn_id,omitempty"`
	MessageId    int64           `json:"message_id,omitempty"`
	Type         string          `json:"type"`
	Data         json.RawMessage `json:"data"`
}

// KafkaDispatcher 集群模式
// 投递请求以目标用户为 key 写入主题，每个节点使用独立消费组读取全量投递，
// 再交给本节点的 DeliveryRouter 推送到挂在本节点上的连接
type KafkaDispatcher struct {
	writer  kafkaWriter
	reader  kafkaReader
	router  *DeliveryRouter
	timeout time.Duration
	started atomic.Bool
	done    chan struct{}
}

// NewKafkaDispatcher 按配置创建 writer 和 reader，nodeID 用于区分消费组
func NewKafkaDispatcher(conf config.KafkaConfig, nodeID int64, router *DeliveryRouter) *KafkaDispatcher {
	timeout := conf.Timeout * time.Second
	writer := &kafka.Writer{
		Addr:                   kafka.TCP(conf.HostPort),
		Topic:                  conf.DeliveryTopic,
		Balancer:               &kafka.Hash{},
		WriteTimeout:           timeout,
		RequiredAcks:           kafka.RequireOne,
		AllowAutoTopicCreation: false,
	}
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:     []string{conf.HostPort},
		Topic:       conf.DeliveryTopic,
		GroupID:     fmt.Sprintf("%s%d", conf.GroupPrefix, nodeID),
		StartOffset: kafka.LastOffset,
	})
	return newKafkaDispatcher(writer, reader, router, timeout)
}

func newKafkaDispatcher(w kafkaWriter, r kafkaReader, router *DeliveryRouter, timeout time.Duration) *KafkaDispatcher {
	if timeout <= 0 {
		timeout = time.Second
	}
	return &KafkaDispatcher{
		writer:  w,
		reader:  r,
		router:  router,
		timeout: timeout,
		done:    make(chan struct{}),
	}
}

// Dispatch 发布到 kafka，发布失败时退化为仅投递本节点连接
// 超时的发布可能已被 broker 接收，本节点连接会收到两次，客户端按 message_id 去重
func (k *KafkaDispatcher) Dispatch(ctx context.Context, delivery Delivery) {
	value, err := encodeEnvelope(delivery)
	if err != nil {
		zap.L().Error("encode delivery envelope", zap.String("event", delivery.Event.Type), zap.Error(err))
		return
	}

	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), k.timeout)
	defer cancel()
	if err := k.writer.WriteMessages(ctx, kafka.Message{Key: []byte(delivery.UserID), Value: value}); err != nil {
		zap.L().Warn("delivery warning: kafka publish failed, falling back to local delivery",
			zap.String("user_id", delivery.UserID),
			zap.String("event", delivery.Event.Type),
			zap.Error(err),
		)
		k.router.Route(delivery)
	}
}

// Start 消费循环，ctx 取消或 reader 关闭后返回
func (k *KafkaDispatcher) Start(ctx context.Context) {
	k.started.Store(true)
	defer close(k.done)
	zap.L().Info("kafka delivery consumer started")
	for {
		msg, err := k.reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, io.EOF) {
				zap.L().Info("kafka delivery consumer stopped")
				return
			}
			zap.L().Error("kafka fetch message", zap.Error(err))
			select {
			case <-ctx.Done():
				return
			case <-time.After(time.Second):
			}
			continue
		}

		delivery, err := decodeEnvelope(msg.Value)
		if err != nil {
			zap.L().Error("decode delivery envelope",
				zap.Int("partition", msg.Partition),
				zap.Int64("offset", msg.Offset),
				zap.Error(err),
			)
		} else {
			k.router.Route(delivery)
		}

		if err := k.reader.CommitMessages(ctx, msg); err != nil && ctx.Err() == nil {
			zap.L().Error("kafka commit message", zap.Int64("offset", msg.Offset), zap.Error(err))
		}
	}
}

// Close 关闭 reader 和 writer，并等待消费循环退出
func (k *KafkaDispatcher) Close() {
	if err := k.reader.Close(); err != nil {
		zap.L().Error("close kafka reader", zap.Error(err))
	}
	if err := k.writer.Close(); err != nil {
		zap.L().Error("close kafka writer", zap.Error(err))
	}
	if !k.started.Load() {
		return
	}
	select {
	case <-k.done:
	case <-time.After(5 * time.Second):
		zap.L().Warn("kafka delivery consumer did not stop in time")
	}
}

func encodeEnvelope(delivery Delivery) ([]byte, error) {
	data, err := json.Marshal(delivery.Event.Data)
	if err != nil {
		return nil, err
	}
	return json.Marshal(envelope{
		UserID:       delivery.UserID,
		ExceptConnID: delivery.ExceptConnID,
		MessageId:    delivery.Event.MessageId,
		Type:         delivery.Event.Type,
		Data:         data,
	})
}

func decodeEnvelope(value []byte) (Delivery, error) {
	var env envelope
	if err := json.Unmarshal(value, &env); err != nil {
		return Delivery{}, err
	}
	if env.UserID == "" || env.Type == "" {
		return Delivery{}, fmt.Errorf("incomplete envelope: %s", value)
	}
	return Delivery{
		UserID:       env.UserID,
		ExceptConnID: env.ExceptConnID,
		Event:        Event{Type: env.Type, Data: env.Data, MessageId: env.MessageId},
	}, nil
}
