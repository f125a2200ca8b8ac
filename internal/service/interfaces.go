// Package service 定义业务层接口
// Handler 层与 websocket 网关只依赖本文件中的接口
package service

import (
	"context"

	"social_relay/internal/dto/request"
	"social_relay/internal/dto/respond"
)

// MessageService 消息业务接口
type MessageService interface {
	// SendMessage 幂等发送：同一发送者的同一 client_key 只持久化和推送一次
	SendMessage(ctx context.Context, req request.SendMessageRequest) (*respond.SendMessageRespond, error)
	// GetConversation 分页获取聊天记录
	GetConversation(ctx context.Context, req request.GetConversationRequest) (*respond.ConversationPageRespond, error)
	// MarkDelivered 消息帧已写入接收方连接
	MarkDelivered(ctx context.Context, messageId int64)
}

// FriendService 好友申请业务接口
type FriendService interface {
	// SendRequest 发送好友申请
	SendRequest(ctx context.Context, actorId string, req request.FriendApplyRequest) (*respond.RelationshipRespond, error)
	// AcceptRequest 通过好友申请
	AcceptRequest(ctx context.Context, actorId string, req request.FriendReplyRequest) (*respond.RelationshipRespond, error)
	// RejectRequest 拒绝好友申请
	RejectRequest(ctx context.Context, actorId string, req request.FriendReplyRequest) (*respond.RelationshipRespond, error)
	// WithdrawRequest 撤回好友申请
	WithdrawRequest(ctx context.Context, actorId string, req request.FriendWithdrawRequest) (*respond.RelationshipRespond, error)
	// GetRelationship 查询与某人的关系
	GetRelationship(ctx context.Context, actorId string, query request.PeerQuery) (*respond.RelationshipRespond, error)
	// GetPendingList 收到的待处理申请
	GetPendingList(ctx context.Context, actorId string) ([]respond.RelationshipRespond, error)
}
