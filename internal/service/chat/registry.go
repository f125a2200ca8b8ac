// Package chat 实现实时投递核心：连接注册表、投递路由和跨节点分发
package chat

import (
	"slices"
	"sync"

	"github.com/samber/lo"
)

// ConnRegistry 用户到在线连接集合的映射
// 进程启动时为空，只由连接握手重建，从不持久化
// 两张表由同一把锁保护，同一连接的并发注册/注销不会留下悬挂或重复条目
type ConnRegistry struct {
	mu     sync.RWMutex
	byUser map[string]map[string]struct{}
	byConn map[string]string
}

// NewConnRegistry 创建空注册表
func NewConnRegistry() *ConnRegistry {
	return &ConnRegistry{
		byUser: make(map[string]map[string]struct{}),
		byConn: make(map[string]string),
	}
}

// Register 将连接加入用户的在线集合，重复注册无副作用
// 若连接此前属于其他用户，则迁移到新用户名下
func (r *ConnRegistry) Register(userID, connID string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if owner, ok := r.byConn[connID]; ok {
		if owner == userID {
			return
		}
		r.removeLocked(owner, connID)
	}
	conns, ok := r.byUser[userID]
	if !ok {
		conns = make(map[string]struct{})
		r.byUser[userID] = conns
	}
	conns[connID] = struct{}{}
	r.byConn[connID] = userID
}

// Unregister 移除连接，返回其所属用户；连接不存在时 ok 为 false
func (r *ConnRegistry) Unregister(connID string) (userID string, ok bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	userID, ok = r.byConn[connID]
	if !ok {
		return "", false
	}
	r.removeLocked(userID, connID)
	return userID, true
}

func (r *ConnRegistry) removeLocked(userID, connID string) {
	delete(r.byConn, connID)
	conns := r.byUser[userID]
	delete(conns, connID)
	if len(conns) == 0 {
		delete(r.byUser, userID)
	}
}

// LiveConnectionsFor 返回用户当前在线连接 ID 的快照，离线时返回空切片
func (r *ConnRegistry) LiveConnectionsFor(userID string) []string {
	r.mu.RLock()
	ids := lo.Keys(r.byUser[userID])
	r.mu.RUnlock()

	slices.Sort(ids)
	return ids
}

// OwnerOf 返回连接所属用户
func (r *ConnRegistry) OwnerOf(connID string) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	userID, ok := r.byConn[connID]
	return userID, ok
}

// OnlineUsers 在线用户数
func (r *ConnRegistry) OnlineUsers() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.byUser)
}

// ConnectionCount 在线连接数
func (r *ConnRegistry) ConnectionCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.byConn)
}
