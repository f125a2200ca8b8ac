// Package service 提供业务逻辑层
// 本文件实现 Service 层的依赖注入和聚合
package service

import (
	"social_relay/internal/config"
	"social_relay/internal/dao/mysql/repository"
	myredis "social_relay/internal/dao/redis"
	"social_relay/internal/service/chat"
	"social_relay/internal/service/friend"
	"social_relay/internal/service/message"
)

// Services 聚合所有 Service 实例
type Services struct {
	Message MessageService
	Friend  FriendService
}

// NewServices 创建并注入所有 Service 实例
// dispatcher 决定推送走单机还是 kafka，cache 为 nil 时会话查询直接读库
func NewServices(repos *repository.Repositories, dispatcher chat.Dispatcher, cache myredis.AsyncCacheService, conf config.DeliveryConfig) *Services {
	return &Services{
		Message: message.NewMessageService(repos, dispatcher, cache, conf),
		Friend:  friend.NewFriendService(repos, dispatcher),
	}
}
