// Package friend 实现好友申请工作流
package friend

import (
	"context"

	"github.com/samber/lo"
	"go.uber.org/zap"

	"social_relay/internal/dao/mysql/repository"
	"social_relay/internal/dto/request"
	"social_relay/internal/dto/respond"
	"social_relay/internal/model"
	"social_relay/internal/service/chat"
	"social_relay/pkg/errorx"
)

// friendService 好友申请业务逻辑实现
// 每次成功的状态迁移在事务提交后向对方推送且只推送一次，失败不推送
type friendService struct {
	repos      *repository.Repositories
	dispatcher chat.Dispatcher
}

// NewFriendService 构造函数
func NewFriendService(repos *repository.Repositories, dispatcher chat.Dispatcher) *friendService {
	return &friendService{repos: repos, dispatcher: dispatcher}
}

// 每种迁移推送给对方的事件
var transitionEvents = map[model.RelationState]string{
	model.RelationPending:   chat.EventFriendRequest,
	model.RelationAccepted:  chat.EventFriendAccepted,
	model.RelationRejected:  chat.EventFriendRejected,
	model.RelationWithdrawn: chat.EventFriendWithdrawn,
}

// SendRequest 向 target 发送好友申请
func (f *friendService) SendRequest(ctx context.Context, actorId string, req request.FriendApplyRequest) (*respond.RelationshipRespond, error) {
	if actorId == req.TargetId {
		return nil, errorx.New(errorx.CodeInvalidParam, "不能添加自己为好友")
	}

	var rel *model.Relationship
	err := f.repos.Transaction(ctx, func(tx *repository.Repositories) error {
		current, err := tx.Relationship.FindActive(ctx, actorId, req.TargetId)
		switch {
		case err == nil:
			if current.Status == model.RelationAccepted {
				return errorx.New(errorx.CodeConflict, "你们已经是好友")
			}
			return errorx.New(errorx.CodeConflict, "双方之间已有待处理的好友申请")
		case !errorx.IsNotFound(err):
			return err
		}
		rel, err = tx.Relationship.Upsert(ctx, actorId, req.TargetId, model.RelationPending, req.Message)
		return err
	})
	if err != nil {
		return nil, f.logFailure("send friend request", actorId, req.TargetId, err)
	}
	return f.notify(ctx, rel, actorId), nil
}

// AcceptRequest 通过 requester 发来的好友申请，只有被申请人可以操作
func (f *friendService) AcceptRequest(ctx context.Context, actorId string, req request.FriendReplyRequest) (*respond.RelationshipRespond, error) {
	return f.resolve(ctx, actorId, req.RequesterId, model.RelationAccepted, func(rel *model.Relationship) bool {
		return rel.TargetId == actorId
	})
}

// RejectRequest 拒绝 requester 发来的好友申请，只有被申请人可以操作
func (f *friendService) RejectRequest(ctx context.Context, actorId string, req request.FriendReplyRequest) (*respond.RelationshipRespond, error) {
	return f.resolve(ctx, actorId, req.RequesterId, model.RelationRejected, func(rel *model.Relationship) bool {
		return rel.TargetId == actorId
	})
}

// WithdrawRequest 撤回发给 target 的好友申请，只有申请人可以操作
func (f *friendService) WithdrawRequest(ctx context.Context, actorId string, req request.FriendWithdrawRequest) (*respond.RelationshipRespond, error) {
	return f.resolve(ctx, actorId, req.TargetId, model.RelationWithdrawn, func(rel *model.Relationship) bool {
		return rel.RequesterId == actorId
	})
}

// resolve 处理待处理申请：读取活跃记录、校验操作人、迁移状态
func (f *friendService) resolve(ctx context.Context, actorId, peerId string, newState model.RelationState, allowed func(*model.Relationship) bool) (*respond.RelationshipRespond, error) {
	if actorId == peerId {
		return nil, errorx.New(errorx.CodeInvalidParam, "对方不能是自己")
	}

	var rel *model.Relationship
	err := f.repos.Transaction(ctx, func(tx *repository.Repositories) error {
		current, err := tx.Relationship.FindActive(ctx, actorId, peerId)
		if err != nil {
			if errorx.IsNotFound(err) {
				return errorx.New(errorx.CodeConflict, "没有待处理的好友申请")
			}
			return err
		}
		if current.Status == model.RelationAccepted {
			return errorx.New(errorx.CodeConflict, "你们已经是好友")
		}
		if !allowed(current) {
			return errorx.Newf(errorx.CodeForbidden, "无权将该申请变更为 %s", newState)
		}
		rel, err = tx.Relationship.Upsert(ctx, current.RequesterId, current.TargetId, newState, current.Message)
		return err
	})
	if err != nil {
		return nil, f.logFailure("resolve friend request", actorId, peerId, err)
	}
	return f.notify(ctx, rel, actorId), nil
}

// notify 事务提交后通知非操作方
func (f *friendService) notify(ctx context.Context, rel *model.Relationship, actorId string) *respond.RelationshipRespond {
	rsp := toRelationshipRespond(rel)
	f.dispatcher.Dispatch(ctx, chat.Delivery{
		UserID: rel.Counterparty(actorId),
		Event:  chat.Event{Type: transitionEvents[rel.Status], Data: rsp},
	})
	zap.L().Info("relationship transitioned",
		zap.String("relationship_id", rel.Uuid),
		zap.String("actor", actorId),
		zap.Stringer("state", rel.Status),
	)
	return &rsp
}

func (f *friendService) logFailure(action, actorId, peerId string, err error) error {
	switch errorx.GetCode(err) {
	case errorx.CodeConflict, errorx.CodeForbidden, errorx.CodeInvalidParam:
		zap.L().Info(action+" rejected", zap.String("actor", actorId), zap.String("peer", peerId), zap.Error(err))
		return err
	default:
		zap.L().Error(action+" failed", zap.String("actor", actorId), zap.String("peer", peerId), zap.Error(err))
		return errorx.Wrap(err, errorx.CodePersistence, "好友关系保存失败")
	}
}

// GetRelationship 查询与 peer 的最新关系，从未有过记录时 state 为 none
func (f *friendService) GetRelationship(ctx context.Context, actorId string, query request.PeerQuery) (*respond.RelationshipRespond, error) {
	rel, err := f.repos.Relationship.FindLatest(ctx, actorId, query.PeerId)
	if err != nil {
		if errorx.IsNotFound(err) {
			return &respond.RelationshipRespond{State: model.RelationNone.String()}, nil
		}
		zap.L().Error("get relationship failed", zap.String("actor", actorId), zap.String("peer", query.PeerId), zap.Error(err))
		return nil, err
	}
	rsp := toRelationshipRespond(rel)
	return &rsp, nil
}

// GetPendingList 收到的待处理好友申请
func (f *friendService) GetPendingList(ctx context.Context, actorId string) ([]respond.RelationshipRespond, error) {
	rels, err := f.repos.Relationship.ListPendingFor(ctx, actorId)
	if err != nil {
		zap.L().Error("list pending requests failed", zap.String("actor", actorId), zap.Error(err))
		return nil, err
	}
	return lo.Map(rels, func(rel model.Relationship, _ int) respond.RelationshipRespond {
		return toRelationshipRespond(&rel)
	}), nil
}

func toRelationshipRespond(rel *model.Relationship) respond.RelationshipRespond {
	return respond.RelationshipRespond{
		RelationshipId: rel.Uuid,
		RequesterId:    rel.RequesterId,
		TargetId:       rel.TargetId,
		State:          rel.Status.String(),
		Message:        rel.Message,
		UpdatedAt:      rel.UpdatedAt.UnixMilli(),
	}
}
