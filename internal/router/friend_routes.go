// Package router 提供 HTTP 路由注册
// 本文件定义好友相关的路由
package router

import (
	"github.com/gin-gonic/gin"
)

// RegisterFriendRoutes 注册好友申请相关路由（需要认证）
func (rt *Router) RegisterFriendRoutes(rg *gin.RouterGroup) {
	friendGroup := rg.Group("/friend")
	{
		// ===== 查询 =====
		friendGroup.GET("/relationship", rt.handlers.Friend.Relationship) // 与某人的关系
		friendGroup.GET("/pending", rt.handlers.Friend.Pending)           // 收到的待处理申请

		// ===== 好友申请 =====
		friendGroup.POST("/request", rt.handlers.Friend.Request)   // 发送好友申请
		friendGroup.POST("/accept", rt.handlers.Friend.Accept)     // 通过好友申请
		friendGroup.POST("/reject", rt.handlers.Friend.Reject)     // 拒绝好友申请
		friendGroup.POST("/withdraw", rt.handlers.Friend.Withdraw) // 撤回好友申请
	}
}
