// Package handler 提供 HTTP 请求处理器
// 本文件定义 Handler 聚合结构和构造函数
package handler

import (
	"social_relay/internal/gateway/websocket"
	"social_relay/internal/service"
	"social_relay/internal/service/chat"
)

// Handlers 聚合所有 Handler 实例
// Router 层通过此结构访问各个 Handler
type Handlers struct {
	Message *MessageHandler
	Friend  *FriendHandler
	Ws      *WsHandler
}

// NewHandlers 创建并注入所有 Handler 实例
func NewHandlers(svc *service.Services, gateway *websocket.Gateway, server *chat.ChatServer) *Handlers {
	return &Handlers{
		Message: NewMessageHandler(svc.Message),
		Friend:  NewFriendHandler(svc.Friend),
		Ws:      NewWsHandler(gateway, server),
	}
}
