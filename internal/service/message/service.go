// Package message 实现单聊消息的发送协调与会话查询
package message

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/samber/lo"
	"go.uber.org/zap"

	"social_relay/internal/config"
	"social_relay/internal/dao/mysql/repository"
	myredis "social_relay/internal/dao/redis"
	"social_relay/internal/dto/request"
	"social_relay/internal/dto/respond"
	"social_relay/internal/model"
	"social_relay/internal/service/chat"
	"social_relay/pkg/constants"
	"social_relay/pkg/errorx"
	"social_relay/pkg/util/snowflake"
)

// messageService 消息业务逻辑实现
type messageService struct {
	repos      *repository.Repositories
	dispatcher chat.Dispatcher
	cache      myredis.AsyncCacheService // 可为 nil，此时不走缓存
	conf       config.DeliveryConfig
}

// NewMessageService 构造函数
func NewMessageService(repos *repository.Repositories, dispatcher chat.Dispatcher, cache myredis.AsyncCacheService, conf config.DeliveryConfig) *messageService {
	return &messageService{
		repos:      repos,
		dispatcher: dispatcher,
		cache:      cache,
		conf:       conf,
	}
}

// SendMessage 发送单聊消息
// 先持久化再推送：同一 (发送者, client_key) 只会推送一次，重发直接返回首次写入的记录
func (m *messageService) SendMessage(ctx context.Context, req request.SendMessageRequest) (*respond.SendMessageRespond, error) {
	if err := m.validate(req); err != nil {
		return nil, err
	}

	msg := &model.Message{
		Uuid:      snowflake.GenerateID(),
		SendId:    req.SenderId,
		ReceiveId: req.RecipientId,
		ClientKey: req.ClientKey,
		Content:   req.Text,
		Status:    model.MessageSent,
	}
	// 连接断开不影响落库
	stored, fresh, err := m.repos.Message.InsertIfAbsent(context.WithoutCancel(ctx), msg)
	if err != nil {
		zap.L().Error("persist message failed",
			zap.String("sender", req.SenderId),
			zap.String("client_key", req.ClientKey),
			zap.Error(err),
		)
		return nil, errorx.Wrap(err, errorx.CodePersistence, "消息保存失败")
	}

	if fresh {
		payload := toMessageRespond(stored)
		m.dispatcher.Dispatch(ctx, chat.Delivery{
			UserID: stored.ReceiveId,
			Event:  chat.Event{Type: chat.EventChatMessage, Data: payload, MessageId: stored.Uuid},
		})
		m.dispatcher.Dispatch(ctx, chat.Delivery{
			UserID:       stored.SendId,
			ExceptConnID: req.OriginConnId,
			Event:        chat.Event{Type: chat.EventChatSent, Data: payload},
		})
		// 确认之前完成，确认后的查询不会命中旧的首页缓存
		m.bumpConversationVersion(ctx, stored.SendId, stored.ReceiveId)
	} else {
		zap.L().Info("duplicate send resolved to stored message",
			zap.String("sender", stored.SendId),
			zap.String("client_key", stored.ClientKey),
			zap.Int64("message_id", stored.Uuid),
		)
	}

	return &respond.SendMessageRespond{
		MessageId: strconv.FormatInt(stored.Uuid, 10),
		CreatedAt: stored.CreatedAt.UnixMilli(),
		ClientKey: stored.ClientKey,
		Duplicate: !fresh,
	}, nil
}

func (m *messageService) validate(req request.SendMessageRequest) error {
	switch {
	case req.SenderId == "":
		return errorx.New(errorx.CodeUnauthorized, "缺少发送者身份")
	case req.RecipientId == "":
		return errorx.New(errorx.CodeInvalidParam, "接收者不能为空")
	case req.ClientKey == "":
		return errorx.New(errorx.CodeInvalidParam, "client_key 不能为空")
	case len(req.ClientKey) > constants.CLIENT_KEY_MAX_SIZE:
		return errorx.Newf(errorx.CodeInvalidParam, "client_key 长度不能超过 %d 字节", constants.CLIENT_KEY_MAX_SIZE)
	case strings.TrimSpace(req.Text) == "":
		return errorx.New(errorx.CodeInvalidParam, "消息内容不能为空")
	case utf8.RuneCountInString(req.Text) > m.conf.MaxTextLength:
		return errorx.Newf(errorx.CodeInvalidParam, "消息内容不能超过 %d 个字符", m.conf.MaxTextLength)
	}
	return nil
}

// GetConversation 分页获取聊天记录，页内按旧到新排列
// 首页按会话版本号缓存 REDIS_TIMEOUT 分钟，新消息写入时版本号加一
func (m *messageService) GetConversation(ctx context.Context, req request.GetConversationRequest) (*respond.ConversationPageRespond, error) {
	limit := m.pageLimit(req.Limit)
	cacheable := m.cache != nil && req.Cursor == "" && limit == m.conf.PageSize

	var pageKey string
	if cacheable {
		// 版本号必须在查库之前读取，回填才不会覆盖更新的写入
		version, err := m.cache.Get(ctx, conversationVersionKey(req.UserId, req.PeerId))
		if err != nil {
			zap.L().Error("redis get key error", zap.String("user_id", req.UserId), zap.String("peer_id", req.PeerId), zap.Error(err))
			cacheable = false
		} else {
			pageKey = conversationPageKey(req.UserId, req.PeerId, version)
			if page, ok := m.readCachedPage(ctx, pageKey); ok {
				return page, nil
			}
		}
	}

	page, err := m.listPage(ctx, req.UserId, req.PeerId, req.Cursor, limit)
	if err != nil {
		return nil, err
	}

	if cacheable {
		m.cache.SubmitTask(func() {
			data, err := json.Marshal(page)
			if err != nil {
				zap.L().Error("json marshal error", zap.Error(err))
				return
			}
			ctx, cancel := context.WithTimeout(context.Background(), time.Second)
			defer cancel()
			if err := m.cache.Set(ctx, pageKey, string(data), time.Duration(constants.REDIS_TIMEOUT)*time.Minute); err != nil {
				zap.L().Error("redis set key error", zap.String("key", pageKey), zap.Error(err))
			}
		})
	}
	return page, nil
}

// MarkDelivered 消息帧写出到接收方连接后调用
func (m *messageService) MarkDelivered(ctx context.Context, messageId int64) {
	if err := m.repos.Message.MarkDelivered(ctx, messageId); err != nil {
		zap.L().Warn("mark message delivered failed", zap.Int64("message_id", messageId), zap.Error(err))
	}
}

// NewPager 返回会话的惰性分页迭代器，从最新一页开始
func (m *messageService) NewPager(userId, peerId string, limit int) *Pager {
	return &Pager{svc: m, userId: userId, peerId: peerId, limit: m.pageLimit(limit)}
}

func (m *messageService) listPage(ctx context.Context, userId, peerId, cursor string, limit int) (*respond.ConversationPageRespond, error) {
	before, err := decodeCursor(cursor)
	if err != nil {
		return nil, err
	}

	// 多取一条用于判断是否还有更早的消息
	rows, err := m.repos.Message.ListConversation(ctx, userId, peerId, before, limit+1)
	if err != nil {
		zap.L().Error("list conversation error",
			zap.String("user_id", userId),
			zap.String("peer_id", peerId),
			zap.Error(err),
		)
		return nil, errorx.Wrap(err, errorx.CodePersistence, "获取聊天记录失败")
	}

	page := &respond.ConversationPageRespond{}
	if len(rows) > limit {
		rows = rows[:limit]
		oldest := rows[len(rows)-1]
		page.NextCursor = encodeCursor(oldest.CreatedAt, oldest.Uuid)
	}
	page.Messages = lo.Map(lo.Reverse(rows), func(msg model.Message, _ int) respond.MessageRespond {
		return toMessageRespond(&msg)
	})
	return page, nil
}

func (m *messageService) pageLimit(limit int) int {
	if limit <= 0 {
		return m.conf.PageSize
	}
	return min(limit, m.conf.MaxPageSize)
}

func (m *messageService) readCachedPage(ctx context.Context, key string) (*respond.ConversationPageRespond, bool) {
	cached, err := m.cache.Get(ctx, key)
	if err != nil {
		zap.L().Error("redis get key error", zap.String("key", key), zap.Error(err))
		return nil, false
	}
	if cached == "" {
		return nil, false
	}
	var page respond.ConversationPageRespond
	if err := json.Unmarshal([]byte(cached), &page); err != nil {
		zap.L().Error("json unmarshal cache error", zap.String("key", key), zap.Error(err))
		return nil, false
	}
	return &page, true
}

// bumpConversationVersion 使该会话已缓存的首页全部失效
// 旧版本的页面不再被读取，留在 redis 中等待过期
func (m *messageService) bumpConversationVersion(ctx context.Context, userA, userB string) {
	if m.cache == nil {
		return
	}
	key := conversationVersionKey(userA, userB)
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), time.Second)
	defer cancel()
	if _, err := m.cache.Incr(ctx, key); err != nil {
		zap.L().Error("redis incr key error", zap.String("key", key), zap.Error(err))
	}
}

// conversationCacheKey 两个用户按字典序拼接，保证双方共用一个 key
func conversationCacheKey(userA, userB string) string {
	low, high := model.CanonicalPair(userA, userB)
	return constants.MESSAGE_CACHE_KEY + low + "_" + high
}

// conversationVersionKey 会话版本号，不设过期时间
func conversationVersionKey(userA, userB string) string {
	return conversationCacheKey(userA, userB) + "_ver"
}

// conversationPageKey 某个版本的首页缓存，版本号为空表示会话还没有新消息写入过
func conversationPageKey(userA, userB, version string) string {
	if version == "" {
		version = "0"
	}
	return conversationCacheKey(userA, userB) + "_v" + version
}

func toMessageRespond(msg *model.Message) respond.MessageRespond {
	return respond.MessageRespond{
		MessageId:   strconv.FormatInt(msg.Uuid, 10),
		SenderId:    msg.SendId,
		RecipientId: msg.ReceiveId,
		Text:        msg.Content,
		ClientKey:   msg.ClientKey,
		Status:      msg.Status.String(),
		CreatedAt:   msg.CreatedAt.UnixMilli(),
	}
}

// encodeCursor 游标对客户端不透明：base64("createdAt纳秒|uuid")
func encodeCursor(createdAt time.Time, uuid int64) string {
	raw := fmt.Sprintf("%d|%d", createdAt.UnixNano(), uuid)
	return base64.RawURLEncoding.EncodeToString([]byte(raw))
}

func decodeCursor(cursor string) (*model.ConversationCursor, error) {
	if cursor == "" {
		return nil, nil
	}
	invalid := errorx.New(errorx.CodeInvalidParam, "无效的分页游标")
	raw, err := base64.RawURLEncoding.DecodeString(cursor)
	if err != nil {
		return nil, invalid
	}
	nanos, id, ok := strings.Cut(string(raw), "|")
	if !ok {
		return nil, invalid
	}
	ts, err := strconv.ParseInt(nanos, 10, 64)
	if err != nil {
		return nil, invalid
	}
	uuid, err := strconv.ParseInt(id, 10, 64)
	if err != nil {
		return nil, invalid
	}
	return &model.ConversationCursor{CreatedAt: time.Unix(0, ts).UTC(), Uuid: uuid}, nil
}
