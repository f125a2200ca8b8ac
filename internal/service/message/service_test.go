package message

import (
	"context"
	"encoding/json"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"social_relay/internal/config"
	"social_relay/internal/dao/mysql/dbtest"
	"social_relay/internal/dao/mysql/repository"
	myredis "social_relay/internal/dao/redis"
	"social_relay/internal/dto/request"
	"social_relay/internal/model"
	"social_relay/internal/service/chat"
	"social_relay/pkg/errorx"
)

// framePusher 按连接记录推送的帧
type framePusher struct {
	mu     sync.Mutex
	frames map[string][]chat.Frame
}

func newFramePusher() *framePusher {
	return &framePusher{frames: map[string][]chat.Frame{}}
}

func (p *framePusher) PushToConnection(connID string, frame chat.Frame) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.frames[connID] = append(p.frames[connID], frame)
	return nil
}

func (p *framePusher) events(t *testing.T, connID string) []map[string]any {
	t.Helper()
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]map[string]any, 0, len(p.frames[connID]))
	for _, f := range p.frames[connID] {
		var decoded map[string]any
		require.NoError(t, json.Unmarshal(f.Payload, &decoded))
		out = append(out, decoded)
	}
	return out
}

type fixture struct {
	svc      *messageService
	repos    *repository.Repositories
	registry *chat.ConnRegistry
	pusher   *framePusher
}

func testDeliveryConfig() config.DeliveryConfig {
	cfg := config.Config{}
	cfg.ApplyDefaults()
	return cfg.DeliveryConfig
}

func newFixture(t *testing.T, cache myredis.AsyncCacheService, conf config.DeliveryConfig) *fixture {
	t.Helper()
	repos := repository.NewRepositories(dbtest.Open(t))
	registry := chat.NewConnRegistry()
	pusher := newFramePusher()
	dispatcher := chat.NewLocalDispatcher(chat.NewDeliveryRouter(registry, pusher))
	return &fixture{
		svc:      NewMessageService(repos, dispatcher, cache, conf),
		repos:    repos,
		registry: registry,
		pusher:   pusher,
	}
}

func sendReq(sender, recipient, key, text string) request.SendMessageRequest {
	return request.SendMessageRequest{SenderId: sender, RecipientId: recipient, ClientKey: key, Text: text}
}

func TestSendMessagePushesOnceForSameKey(t *testing.T) {
	req := require.New(t)
	f := newFixture(t, nil, testDeliveryConfig())
	ctx := context.Background()
	f.registry.Register("u2", "r1")

	// Given: u2 在线，u1 以 k1 发送 hello
	ack, err := f.svc.SendMessage(ctx, sendReq("u1", "u2", "k1", "hello"))
	req.NoError(err)
	req.NotEmpty(ack.MessageId)
	req.False(ack.Duplicate)
	req.NotZero(ack.CreatedAt)

	events := f.pusher.events(t, "r1")
	req.Len(events, 1)
	req.Equal(chat.EventChatMessage, events[0]["type"])
	req.Equal("hello", events[0]["data"].(map[string]any)["text"])

	// When: 同一个 key 重发不同内容
	again, err := f.svc.SendMessage(ctx, sendReq("u1", "u2", "k1", "goodbye"))

	// Then: 返回原消息，不再推送
	req.NoError(err)
	req.True(again.Duplicate)
	req.Equal(ack.MessageId, again.MessageId)
	req.Equal(ack.CreatedAt, again.CreatedAt)
	req.Len(f.pusher.events(t, "r1"), 1)

	page, err := f.svc.GetConversation(ctx, request.GetConversationRequest{UserId: "u2", PeerId: "u1"})
	req.NoError(err)
	req.Len(page.Messages, 1)
	req.Equal("hello", page.Messages[0].Text)
}

func TestSendMessageToOfflineRecipientStillAcks(t *testing.T) {
	req := require.New(t)
	f := newFixture(t, nil, testDeliveryConfig())

	ack, err := f.svc.SendMessage(context.Background(), sendReq("u1", "offline", "k1", "are you there"))

	req.NoError(err)
	req.NotEmpty(ack.MessageId)
	req.Empty(f.pusher.frames)
}

func TestSendMessageEchoesToSenderOtherConnections(t *testing.T) {
	req := require.New(t)
	f := newFixture(t, nil, testDeliveryConfig())
	f.registry.Register("u1", "origin")
	f.registry.Register("u1", "tablet")

	in := sendReq("u1", "u2", "k1", "hello")
	in.OriginConnId = "origin"
	_, err := f.svc.SendMessage(context.Background(), in)
	req.NoError(err)

	req.Empty(f.pusher.events(t, "origin"))
	tablet := f.pusher.events(t, "tablet")
	req.Len(tablet, 1)
	req.Equal(chat.EventChatSent, tablet[0]["type"])
}

func TestSendMessageValidation(t *testing.T) {
	conf := testDeliveryConfig()
	conf.MaxTextLength = 5

	cases := []struct {
		name string
		in   request.SendMessageRequest
	}{
		{"empty text", sendReq("u1", "u2", "k1", "")},
		{"blank text", sendReq("u1", "u2", "k1", "  \n\t")},
		{"text too long", sendReq("u1", "u2", "k1", "你好你好你好")},
		{"missing recipient", sendReq("u1", "", "k1", "hi")},
		{"missing key", sendReq("u1", "u2", "", "hi")},
		{"key too long", sendReq("u1", "u2", strings.Repeat("k", 65), "hi")},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := require.New(t)
			f := newFixture(t, nil, conf)
			f.registry.Register("u2", "r1")

			_, err := f.svc.SendMessage(context.Background(), tc.in)

			req.True(errorx.IsCode(err, errorx.CodeInvalidParam), "got %v", err)
			req.Empty(f.pusher.frames)
			rows, err := f.repos.Message.ListConversation(context.Background(), "u1", "u2", nil, 10)
			req.NoError(err)
			req.Empty(rows)
		})
	}
}

func TestSendMessageTextAtLimitIsAccepted(t *testing.T) {
	conf := testDeliveryConfig()
	conf.MaxTextLength = 5
	f := newFixture(t, nil, conf)

	_, err := f.svc.SendMessage(context.Background(), sendReq("u1", "u2", "k1", "你好你好你"))

	require.NoError(t, err)
}

func TestSendMessagePersistenceFailureDeliversNothing(t *testing.T) {
	req := require.New(t)
	db := dbtest.Open(t)
	registry := chat.NewConnRegistry()
	registry.Register("u2", "r1")
	pusher := newFramePusher()
	svc := NewMessageService(repository.NewRepositories(db),
		chat.NewLocalDispatcher(chat.NewDeliveryRouter(registry, pusher)), nil, testDeliveryConfig())

	// Given: 数据库不可用
	sqlDB, err := db.DB()
	req.NoError(err)
	req.NoError(sqlDB.Close())

	// When
	ack, err := svc.SendMessage(context.Background(), sendReq("u1", "u2", "k1", "hello"))

	// Then: 整体失败，既不确认也不推送
	req.Nil(ack)
	req.True(errorx.IsCode(err, errorx.CodePersistence), "got %v", err)
	req.Empty(pusher.frames)
}

func TestSendMessagePersistsEvenIfCallerCancelled(t *testing.T) {
	req := require.New(t)
	f := newFixture(t, nil, testDeliveryConfig())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	ack, err := f.svc.SendMessage(ctx, sendReq("u1", "u2", "k1", "hello"))

	req.NoError(err)
	req.NotEmpty(ack.MessageId)
}

func TestPagerWalksNewestPageFirst(t *testing.T) {
	req := require.New(t)
	f := newFixture(t, nil, testDeliveryConfig())
	ctx := context.Background()

	texts := []string{"m1", "m2", "m3", "m4", "m5"}
	for i, text := range texts {
		sender, recipient := "u1", "u2"
		if i%2 == 1 {
			sender, recipient = "u2", "u1"
		}
		_, err := f.svc.SendMessage(ctx, sendReq(sender, recipient, text, text))
		req.NoError(err)
	}

	pager := f.svc.NewPager("u1", "u2", 2)
	var pages [][]string
	for {
		msgs, ok, err := pager.Next(ctx)
		req.NoError(err)
		if !ok {
			break
		}
		var page []string
		for _, m := range msgs {
			page = append(page, m.Text)
		}
		pages = append(pages, page)
	}

	req.Equal([][]string{{"m4", "m5"}, {"m2", "m3"}, {"m1"}}, pages)

	// 从保存的游标重新开始得到相同的页
	restart := f.svc.NewPager("u2", "u1", 2)
	_, _, err := restart.Next(ctx)
	req.NoError(err)
	saved := restart.Cursor()
	first, _, err := restart.Next(ctx)
	req.NoError(err)

	resumed := f.svc.NewPager("u2", "u1", 2)
	resumed.Resume(saved)
	again, _, err := resumed.Next(ctx)
	req.NoError(err)
	req.Equal(first, again)
}

func TestGetConversationClampsLimitAndRejectsBadCursor(t *testing.T) {
	req := require.New(t)
	conf := testDeliveryConfig()
	conf.MaxPageSize = 2
	f := newFixture(t, nil, conf)
	ctx := context.Background()
	for _, key := range []string{"a", "b", "c"} {
		_, err := f.svc.SendMessage(ctx, sendReq("u1", "u2", key, key))
		req.NoError(err)
	}

	page, err := f.svc.GetConversation(ctx, request.GetConversationRequest{UserId: "u1", PeerId: "u2", Limit: 100})
	req.NoError(err)
	req.Len(page.Messages, 2)
	req.NotEmpty(page.NextCursor)

	_, err = f.svc.GetConversation(ctx, request.GetConversationRequest{UserId: "u1", PeerId: "u2", Cursor: "%%%"})
	req.True(errorx.IsCode(err, errorx.CodeInvalidParam))
}

func newTestCache(t *testing.T) (*myredis.RedisCache, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	cache := myredis.NewRedisCache(client, 1, 8)
	t.Cleanup(cache.Close)
	return cache, mr
}

// occupyWorker 让唯一的 worker 卡住，后续任务只能排队
func occupyWorker(t *testing.T, cache *myredis.RedisCache) (release func()) {
	t.Helper()
	started := make(chan struct{})
	unblock := make(chan struct{})
	cache.SubmitTask(func() {
		close(started)
		<-unblock
	})
	<-started
	var once sync.Once
	return func() { once.Do(func() { close(unblock) }) }
}

func TestFirstPageCacheInvalidatedBeforeAck(t *testing.T) {
	req := require.New(t)
	cache, mr := newTestCache(t)
	f := newFixture(t, cache, testDeliveryConfig())
	ctx := context.Background()
	req.Equal("message_list_u1_u2", conversationCacheKey("u2", "u1"))

	_, err := f.svc.SendMessage(ctx, sendReq("u1", "u2", "k1", "hello"))
	req.NoError(err)

	// Given: 首页被缓存
	_, err = f.svc.GetConversation(ctx, request.GetConversationRequest{UserId: "u1", PeerId: "u2"})
	req.NoError(err)
	req.Eventually(func() bool { return mr.Exists("message_list_u1_u2_v1") }, time.Second, 10*time.Millisecond)

	// And: 缓存任务队列积压
	release := occupyWorker(t, cache)
	defer release()

	// When: 新消息写入并确认
	_, err = f.svc.SendMessage(ctx, sendReq("u2", "u1", "k2", "hi back"))
	req.NoError(err)

	// Then: 确认之后立即查询就能看到新消息
	page, err := f.svc.GetConversation(ctx, request.GetConversationRequest{UserId: "u2", PeerId: "u1"})
	req.NoError(err)
	req.Len(page.Messages, 2)
	req.Equal("hi back", page.Messages[1].Text)
	version, err := mr.Get("message_list_u1_u2_ver")
	req.NoError(err)
	req.Equal("2", version)
}

func TestStaleBackfillDoesNotHideNewerMessage(t *testing.T) {
	req := require.New(t)
	cache, mr := newTestCache(t)
	f := newFixture(t, cache, testDeliveryConfig())
	ctx := context.Background()

	_, err := f.svc.SendMessage(ctx, sendReq("u1", "u2", "k1", "hello"))
	req.NoError(err)

	// Given: 查询已读库，回填任务还在排队
	release := occupyWorker(t, cache)
	defer release()
	page, err := f.svc.GetConversation(ctx, request.GetConversationRequest{UserId: "u1", PeerId: "u2"})
	req.NoError(err)
	req.Len(page.Messages, 1)

	// When: 新消息写入后，旧的回填才执行
	_, err = f.svc.SendMessage(ctx, sendReq("u2", "u1", "k2", "hi back"))
	req.NoError(err)
	release()
	req.Eventually(func() bool { return mr.Exists("message_list_u1_u2_v1") }, time.Second, 10*time.Millisecond)

	// Then: 旧页面写在过期版本下，查询仍然看到新消息
	page, err = f.svc.GetConversation(ctx, request.GetConversationRequest{UserId: "u2", PeerId: "u1"})
	req.NoError(err)
	req.Len(page.Messages, 2)
}

func TestGetConversationSkipsCacheWhenRedisDown(t *testing.T) {
	req := require.New(t)
	cache, mr := newTestCache(t)
	f := newFixture(t, cache, testDeliveryConfig())
	ctx := context.Background()
	_, err := f.svc.SendMessage(ctx, sendReq("u1", "u2", "k1", "hello"))
	req.NoError(err)

	mr.SetError("ERR cache unavailable")
	defer mr.SetError("")

	page, err := f.svc.GetConversation(ctx, request.GetConversationRequest{UserId: "u1", PeerId: "u2"})
	req.NoError(err)
	req.Len(page.Messages, 1)
}

func TestConcurrentSendsWithSameKeyPushOnce(t *testing.T) {
	req := require.New(t)
	f := newFixture(t, nil, testDeliveryConfig())
	f.registry.Register("u2", "r1")

	acks := make([]string, 16)
	duplicates := make([]bool, 16)
	var wg sync.WaitGroup
	for i := range acks {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			ack, err := f.svc.SendMessage(context.Background(), sendReq("u1", "u2", "k1", "hello"))
			if err != nil {
				t.Errorf("send %d: %v", i, err)
				return
			}
			acks[i] = ack.MessageId
			duplicates[i] = ack.Duplicate
		}(i)
	}
	wg.Wait()

	// 所有确认指向同一条消息，只有一次是首次写入，接收方只收到一次推送
	for _, id := range acks {
		req.Equal(acks[0], id)
	}
	fresh := 0
	for _, dup := range duplicates {
		if !dup {
			fresh++
		}
	}
	req.Equal(1, fresh)
	events := f.pusher.events(t, "r1")
	req.Len(events, 1)
	req.Equal(acks[0], events[0]["data"].(map[string]any)["message_id"])
}

func TestMarkDeliveredUpdatesStatus(t *testing.T) {
	req := require.New(t)
	f := newFixture(t, nil, testDeliveryConfig())
	ctx := context.Background()

	_, err := f.svc.SendMessage(ctx, sendReq("u1", "u2", "k1", "hello"))
	req.NoError(err)
	rows, err := f.repos.Message.ListConversation(ctx, "u1", "u2", nil, 1)
	req.NoError(err)
	req.Len(rows, 1)

	f.svc.MarkDelivered(ctx, rows[0].Uuid)

	stored, err := f.repos.Message.FindByUuid(ctx, rows[0].Uuid)
	req.NoError(err)
	req.Equal(model.MessageDelivered, stored.Status)
}
