// Package model 定义数据库实体模型
package model

import (
	"time"

	"gorm.io/gorm"
)

// MessageStatus 消息投递状态
type MessageStatus int8

const (
	MessageSent      MessageStatus = iota // 已持久化
	MessageDelivered                      // 已写入至少一个接收方连接（尽力而为）
)

func (s MessageStatus) String() string {
	switch s {
	case MessageSent:
		return "sent"
	case MessageDelivered:
		return "delivered-best-effort"
	default:
		return "unknown"
	}
}

// Message 单聊消息
// (send_id, client_key) 唯一，同一幂等键的重发只会命中首次写入的记录
type Message struct {
	gorm.Model

	// Uuid 雪花 ID，对外暴露的消息 ID
	Uuid int64 `gorm:"column:uuid;uniqueIndex;type:bigint;not null;comment:消息雪花ID"`

	SendId    string `gorm:"column:send_id;type:varchar(64);not null;uniqueIndex:ux_message_sender_key,priority:1;index:idx_message_pair,priority:1;comment:发送者"`
	ReceiveId string `gorm:"column:receive_id;type:varchar(64);not null;index:idx_message_pair,priority:2;comment:接收者"`

	// ClientKey 客户端生成的幂等键，同一发送者内唯一
	ClientKey string `gorm:"column:client_key;type:varchar(64);not null;uniqueIndex:ux_message_sender_key,priority:2;comment:客户端幂等键"`

	Content string        `gorm:"column:content;type:TEXT;not null;comment:消息内容"`
	Status  MessageStatus `gorm:"column:status;not null;default:0;comment:状态，0.已发送，1.已投递"`
}

func (Message) TableName() string {
	return "message"
}

// ConversationCursor 会话分页游标，指向上一页最旧的一条消息
type ConversationCursor struct {
	CreatedAt time.Time
	Uuid      int64
}
