package repository

import (
	"context"
	"errors"

	"social_relay/internal/model"
	"social_relay/pkg/errorx"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type relationshipRepository struct {
	db *gorm.DB
}

// NewRelationshipRepository 创建好友关系 Repository
func NewRelationshipRepository(db *gorm.DB) RelationshipRepository {
	return &relationshipRepository{db: db}
}

// Upsert 在事务内读取活跃记录并校验迁移表
//   - none -> pending 插入新记录，active_pair 唯一索引兜底并发申请
//   - pending -> 终态/accepted 使用带状态条件的更新，影响行数为 0 说明已被并发处理
func (r *relationshipRepository) Upsert(ctx context.Context, requesterId, targetId string, newState model.RelationState, note string) (*model.Relationship, error) {
	var result *model.Relationship
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		current, err := findActive(tx, requesterId, targetId)
		if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
			return wrapDBErrorf(err, "查询好友关系 %s-%s", requesterId, targetId)
		}

		from := model.RelationNone
		if current != nil {
			from = current.Status
		}
		if !model.CanTransition(from, newState) {
			return errorx.Newf(errorx.CodeConflict, "好友关系不能从 %s 变更为 %s", from, newState)
		}

		if current == nil {
			low, high := model.CanonicalPair(requesterId, targetId)
			key := model.ActivePairKey(requesterId, targetId)
			rel := &model.Relationship{
				Uuid:        uuid.NewString(),
				UserLow:     low,
				UserHigh:    high,
				RequesterId: requesterId,
				TargetId:    targetId,
				Status:      newState,
				ActivePair:  &key,
				Message:     note,
			}
			if err := tx.Create(rel).Error; err != nil {
				if isUniqueViolation(err) {
					return errorx.Wrap(err, errorx.CodeConflict, "双方之间已存在进行中的好友关系")
				}
				return wrapDBErrorf(err, "创建好友申请 %s -> %s", requesterId, targetId)
			}
			result = rel
			return nil
		}

		if current.RequesterId != requesterId || current.TargetId != targetId {
			return errorx.Newf(errorx.CodeConflict, "不存在 %s 发给 %s 的待处理申请", requesterId, targetId)
		}

		updates := map[string]any{"status": newState}
		if !newState.Active() {
			updates["active_pair"] = nil
		}
		res := tx.Model(&model.Relationship{}).
			Where("id = ? AND status = ?", current.ID, from).
			Updates(updates)
		if res.Error != nil {
			return wrapDBErrorf(res.Error, "更新好友关系 uuid=%s", current.Uuid)
		}
		if res.RowsAffected == 0 {
			return errorx.New(errorx.CodeConflict, "好友申请已被处理")
		}

		current.Status = newState
		if !newState.Active() {
			current.ActivePair = nil
		}
		result = current
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (r *relationshipRepository) FindActive(ctx context.Context, userA, userB string) (*model.Relationship, error) {
	rel, err := findActive(r.db.WithContext(ctx), userA, userB)
	if err != nil {
		return nil, wrapDBErrorf(err, "查询活跃好友关系 %s-%s", userA, userB)
	}
	return rel, nil
}

func (r *relationshipRepository) FindLatest(ctx context.Context, userA, userB string) (*model.Relationship, error) {
	low, high := model.CanonicalPair(userA, userB)
	var rel model.Relationship
	if err := r.db.WithContext(ctx).
		Where("user_low = ? AND user_high = ?", low, high).
		Order("id DESC").
		First(&rel).Error; err != nil {
		return nil, wrapDBErrorf(err, "查询好友关系 %s-%s", userA, userB)
	}
	return &rel, nil
}

func (r *relationshipRepository) ListPendingFor(ctx context.Context, targetId string) ([]model.Relationship, error) {
	var rels []model.Relationship
	if err := r.db.WithContext(ctx).
		Where("target_id = ? AND status = ?", targetId, model.RelationPending).
		Order("id DESC").
		Find(&rels).Error; err != nil {
		return nil, wrapDBErrorf(err, "查询待处理申请 target_id=%s", targetId)
	}
	return rels, nil
}

func findActive(db *gorm.DB, userA, userB string) (*model.Relationship, error) {
	var rel model.Relationship
	if err := db.Where("active_pair = ?", model.ActivePairKey(userA, userB)).First(&rel).Error; err != nil {
		return nil, err
	}
	return &rel, nil
}
