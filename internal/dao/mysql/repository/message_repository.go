package repository

import (
	"context"

	"social_relay/internal/model"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type messageRepository struct {
	db *gorm.DB
}

// NewMessageRepository 创建消息 Repository
func NewMessageRepository(db *gorm.DB) MessageRepository {
	return &messageRepository{db: db}
}

// InsertIfAbsent 冲突时不写入，再按幂等键读回首次写入的记录
// 并发重试由 ux_message_sender_key 唯一索引裁决，不存在先查后写的竞态窗口
func (r *messageRepository) InsertIfAbsent(ctx context.Context, msg *model.Message) (*model.Message, bool, error) {
	res := r.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(msg)
	if res.Error != nil {
		return nil, false, wrapDBErrorf(res.Error, "写入消息 sender=%s key=%s", msg.SendId, msg.ClientKey)
	}
	if res.RowsAffected > 0 {
		return msg, true, nil
	}

	var existing model.Message
	if err := r.db.WithContext(ctx).
		Where("send_id = ? AND client_key = ?", msg.SendId, msg.ClientKey).
		First(&existing).Error; err != nil {
		return nil, false, wrapDBErrorf(err, "读取已有消息 sender=%s key=%s", msg.SendId, msg.ClientKey)
	}
	return &existing, false, nil
}

// ListConversation 按 (created_at, uuid) 倒序取一页
func (r *messageRepository) ListConversation(ctx context.Context, userA, userB string, before *model.ConversationCursor, limit int) ([]model.Message, error) {
	query := r.db.WithContext(ctx).
		Where("((send_id = ? AND receive_id = ?) OR (send_id = ? AND receive_id = ?))", userA, userB, userB, userA)
	if before != nil {
		query = query.Where("(created_at < ? OR (created_at = ? AND uuid < ?))", before.CreatedAt, before.CreatedAt, before.Uuid)
	}

	var messages []model.Message
	if err := query.Order("created_at DESC").Order("uuid DESC").Limit(limit).Find(&messages).Error; err != nil {
		return nil, wrapDBErrorf(err, "查询会话 user1=%s user2=%s", userA, userB)
	}
	return messages, nil
}

func (r *messageRepository) FindByUuid(ctx context.Context, uuid int64) (*model.Message, error) {
	var message model.Message
	if err := r.db.WithContext(ctx).First(&message, "uuid = ?", uuid).Error; err != nil {
		return nil, wrapDBErrorf(err, "查询消息 uuid=%d", uuid)
	}
	return &message, nil
}

func (r *messageRepository) MarkDelivered(ctx context.Context, uuid int64) error {
	err := r.db.WithContext(ctx).Model(&model.Message{}).
		Where("uuid = ? AND status = ?", uuid, model.MessageSent).
		Update("status", model.MessageDelivered).Error
	return wrapDBErrorf(err, "更新消息状态 uuid=%d", uuid)
}
