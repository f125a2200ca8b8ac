// Package handler 提供 HTTP 请求处理器
// 本文件处理 WebSocket 连接和健康检查
package handler

import (
	"social_relay/internal/dto/respond"
	"social_relay/internal/gateway/websocket"
	"social_relay/internal/service/chat"
	"social_relay/pkg/constants"

	"github.com/gin-gonic/gin"
)

// WsHandler websocket 入口
type WsHandler struct {
	gateway *websocket.Gateway
	server  *chat.ChatServer
}

// NewWsHandler 构造函数
func NewWsHandler(gateway *websocket.Gateway, server *chat.ChatServer) *WsHandler {
	return &WsHandler{gateway: gateway, server: server}
}

// WsLoginHandler 将 HTTP 连接升级为 WebSocket
// GET /wss?token=xxx
// 用户身份来自认证中间件，连接注册到投递注册表后开始收发
func (h *WsHandler) WsLoginHandler(c *gin.Context) {
	h.gateway.ServeWS(c, c.GetString(constants.CONTEXT_USER_ID))
}

// Health 健康检查
// GET /health
// 响应: respond.HealthRespond
func (h *WsHandler) Health(c *gin.Context) {
	HandleSuccess(c, respond.HealthRespond{
		Mode:        h.server.Mode(),
		OnlineUsers: h.server.Registry.OnlineUsers(),
		Connections: h.server.Registry.ConnectionCount(),
	})
}
