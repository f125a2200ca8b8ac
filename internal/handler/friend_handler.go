// Package handler 提供 HTTP 请求处理器
// 本文件处理好友申请相关的 API 请求
package handler

import (
	"social_relay/internal/dto/request"
	"social_relay/internal/service"
	"social_relay/pkg/constants"

	"github.com/gin-gonic/gin"
)

// FriendHandler 好友申请相关接口
type FriendHandler struct {
	svc service.FriendService
}

// NewFriendHandler 构造函数
func NewFriendHandler(svc service.FriendService) *FriendHandler {
	return &FriendHandler{svc: svc}
}

// Request 发送好友申请
// POST /friend/request
// 请求体: request.FriendApplyRequest
func (h *FriendHandler) Request(c *gin.Context) {
	var req request.FriendApplyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		HandleParamError(c, err)
		return
	}
	data, err := h.svc.SendRequest(c.Request.Context(), c.GetString(constants.CONTEXT_USER_ID), req)
	if err != nil {
		HandleError(c, err)
		return
	}
	HandleSuccess(c, data)
}

// Accept 通过好友申请
// POST /friend/accept
// 请求体: request.FriendReplyRequest
func (h *FriendHandler) Accept(c *gin.Context) {
	var req request.FriendReplyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		HandleParamError(c, err)
		return
	}
	data, err := h.svc.AcceptRequest(c.Request.Context(), c.GetString(constants.CONTEXT_USER_ID), req)
	if err != nil {
		HandleError(c, err)
		return
	}
	HandleSuccess(c, data)
}

// Reject 拒绝好友申请
// POST /friend/reject
// 请求体: request.FriendReplyRequest
func (h *FriendHandler) Reject(c *gin.Context) {
	var req request.FriendReplyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		HandleParamError(c, err)
		return
	}
	data, err := h.svc.RejectRequest(c.Request.Context(), c.GetString(constants.CONTEXT_USER_ID), req)
	if err != nil {
		HandleError(c, err)
		return
	}
	HandleSuccess(c, data)
}

// Withdraw 撤回好友申请
// POST /friend/withdraw
// 请求体: request.FriendWithdrawRequest
func (h *FriendHandler) Withdraw(c *gin.Context) {
	var req request.FriendWithdrawRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		HandleParamError(c, err)
		return
	}
	data, err := h.svc.WithdrawRequest(c.Request.Context(), c.GetString(constants.CONTEXT_USER_ID), req)
	if err != nil {
		HandleError(c, err)
		return
	}
	HandleSuccess(c, data)
}

// Relationship 查询与某人的关系
// GET /friend/relationship?peer_id=xxx
func (h *FriendHandler) Relationship(c *gin.Context) {
	var query request.PeerQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		HandleParamError(c, err)
		return
	}
	data, err := h.svc.GetRelationship(c.Request.Context(), c.GetString(constants.CONTEXT_USER_ID), query)
	if err != nil {
		HandleError(c, err)
		return
	}
	HandleSuccess(c, data)
}

// Pending 收到的待处理申请
// GET /friend/pending
func (h *FriendHandler) Pending(c *gin.Context) {
	data, err := h.svc.GetPendingList(c.Request.Context(), c.GetString(constants.CONTEXT_USER_ID))
	if err != nil {
		HandleError(c, err)
		return
	}
	HandleSuccess(c, data)
}
