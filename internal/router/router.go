// Package router 提供 HTTP 路由注册
// 本文件是路由注册的入口，聚合所有子模块的路由
package router

import (
	"social_relay/internal/handler"
	"social_relay/internal/infrastructure/middleware"

	"github.com/gin-gonic/gin"
)

// Router 持有 Handler 聚合，按模块注册路由
type Router struct {
	handlers *handler.Handlers
}

// NewRouter 构造函数
func NewRouter(handlers *handler.Handlers) *Router {
	return &Router{handlers: handlers}
}

// RegisterRoutes 注册所有路由，在 https_server.Init() 中调用
func (rt *Router) RegisterRoutes(r *gin.Engine) {
	// 公开路由
	r.GET("/health", rt.handlers.Ws.Health)

	// 需要认证的路由
	authed := r.Group("")
	authed.Use(middleware.JWTAuth())
	rt.RegisterMessageRoutes(authed)
	rt.RegisterFriendRoutes(authed)
	rt.RegisterWebSocketRoutes(authed)
}
