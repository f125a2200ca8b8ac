// Package handler 提供 HTTP 请求处理器
// 本文件处理消息发送与聊天记录查询
package handler

import (
	"social_relay/internal/dto/request"
	"social_relay/internal/service"
	"social_relay/pkg/constants"

	"github.com/gin-gonic/gin"
)

// MessageHandler 消息相关接口
type MessageHandler struct {
	svc service.MessageService
}

// NewMessageHandler 构造函数
func NewMessageHandler(svc service.MessageService) *MessageHandler {
	return &MessageHandler{svc: svc}
}

// SendMessage 发送单聊消息
// POST /message/send
// 请求体: request.SendMessageRequest
// 响应: respond.SendMessageRespond，重发同一 client_key 时 duplicate 为 true
func (h *MessageHandler) SendMessage(c *gin.Context) {
	var req request.SendMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		HandleParamError(c, err)
		return
	}
	req.SenderId = c.GetString(constants.CONTEXT_USER_ID)
	data, err := h.svc.SendMessage(c.Request.Context(), req)
	if err != nil {
		HandleError(c, err)
		return
	}
	HandleSuccess(c, data)
}

// GetConversation 获取与某人的聊天记录
// GET /message/conversation?peer_id=xxx&cursor=xxx&limit=50
// 响应: respond.ConversationPageRespond
func (h *MessageHandler) GetConversation(c *gin.Context) {
	var req request.GetConversationRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		HandleParamError(c, err)
		return
	}
	req.UserId = c.GetString(constants.CONTEXT_USER_ID)
	data, err := h.svc.GetConversation(c.Request.Context(), req)
	if err != nil {
		HandleError(c, err)
		return
	}
	HandleSuccess(c, data)
}
