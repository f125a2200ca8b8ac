// Package redis 提供会话缓存，Service 层只依赖本文件中的接口
package redis

import (
	"context"
	"time"
)

// CacheService 同步缓存读写
type CacheService interface {
	// Set 设置键值对并指定过期时间
	Set(ctx context.Context, key string, value string, ttl time.Duration) error
	// Get 键不存在时返回空字符串和 nil
	Get(ctx context.Context, key string) (string, error)
	// Delete 删除键，不存在时不报错
	Delete(ctx context.Context, keys ...string) error
	// Incr 原子自增并返回新值，键不存在时从 0 开始
	Incr(ctx context.Context, key string) (int64, error)
}

// AsyncCacheService 在 CacheService 基础上提供异步任务提交
type AsyncCacheService interface {
	CacheService
	// SubmitTask 提交异步缓存任务，队列满时同步执行
	SubmitTask(action func())
	// Close 停止接收任务并等待已提交任务执行完毕
	Close()
}
