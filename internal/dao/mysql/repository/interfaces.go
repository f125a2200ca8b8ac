// Package repository 定义消息与好友关系的数据访问接口
package repository

import (
	"context"

	"social_relay/internal/model"

	"gorm.io/gorm"
)

// MessageRepository 消息存储
type MessageRepository interface {
	// InsertIfAbsent 按 (send_id, client_key) 幂等写入
	// fresh 为 false 表示命中已有记录，返回的是首次写入的消息
	InsertIfAbsent(ctx context.Context, msg *model.Message) (stored *model.Message, fresh bool, err error)
	// ListConversation 返回两人之间早于 before 的最多 limit 条消息，按新到旧排序
	// before 为 nil 表示从最新一条开始
	ListConversation(ctx context.Context, userA, userB string, before *model.ConversationCursor, limit int) ([]model.Message, error)
	// FindByUuid 按雪花 ID 查询
	FindByUuid(ctx context.Context, uuid int64) (*model.Message, error)
	// MarkDelivered 将 sent 状态更新为已投递，已投递的记录不变
	MarkDelivered(ctx context.Context, uuid int64) error
}

// RelationshipRepository 好友关系存储
type RelationshipRepository interface {
	// Upsert 将 requester -> target 这对用户的关系迁移到 newState
	// 迁移必须在 model.CanTransition 的迁移表中，否则返回 CodeConflict
	Upsert(ctx context.Context, requesterId, targetId string, newState model.RelationState, note string) (*model.Relationship, error)
	// FindActive 查询无序用户对的活跃记录，不存在返回 CodeNotFound
	FindActive(ctx context.Context, userA, userB string) (*model.Relationship, error)
	// FindLatest 查询无序用户对最近的一条记录（含终态），不存在返回 CodeNotFound
	FindLatest(ctx context.Context, userA, userB string) (*model.Relationship, error)
	// ListPendingFor 查询发给 targetId 的待处理申请，按申请时间倒序
	ListPendingFor(ctx context.Context, targetId string) ([]model.Relationship, error)
}

// Repositories 聚合所有 Repository
type Repositories struct {
	db           *gorm.DB
	Message      MessageRepository
	Relationship RelationshipRepository
}

// NewRepositories 创建所有 Repository 实例
func NewRepositories(db *gorm.DB) *Repositories {
	return &Repositories{
		db:           db,
		Message:      NewMessageRepository(db),
		Relationship: NewRelationshipRepository(db),
	}
}

// Transaction 在数据库事务中执行 fn，fn 返回错误时整体回滚
func (r *Repositories) Transaction(ctx context.Context, fn func(txRepos *Repositories) error) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(NewRepositories(tx))
	})
}
