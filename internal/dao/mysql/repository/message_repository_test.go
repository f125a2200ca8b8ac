package repository

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"social_relay/internal/dao/mysql/dbtest"
	"social_relay/internal/model"
	"social_relay/pkg/util/snowflake"

	"github.com/stretchr/testify/require"
)

func newMessage(sender, recipient, key, text string) *model.Message {
	return &model.Message{
		Uuid:      snowflake.GenerateID(),
		SendId:    sender,
		ReceiveId: recipient,
		ClientKey: key,
		Content:   text,
		Status:    model.MessageSent,
	}
}

func TestInsertIfAbsentFirstWriteWins(t *testing.T) {
	req := require.New(t)
	repo := NewMessageRepository(dbtest.Open(t))
	ctx := context.Background()

	// Given: u1 已用 k1 发送过 hello
	first, fresh, err := repo.InsertIfAbsent(ctx, newMessage("u1", "u2", "k1", "hello"))
	req.NoError(err)
	req.True(fresh)

	// When: 以同一个 key 重发不同内容
	second, fresh, err := repo.InsertIfAbsent(ctx, newMessage("u1", "u2", "k1", "goodbye"))

	// Then: 返回首次写入的记录
	req.NoError(err)
	req.False(fresh)
	req.Equal(first.Uuid, second.Uuid)
	req.Equal("hello", second.Content)
}

func TestInsertIfAbsentKeyIsScopedToSender(t *testing.T) {
	req := require.New(t)
	repo := NewMessageRepository(dbtest.Open(t))
	ctx := context.Background()

	_, fresh, err := repo.InsertIfAbsent(ctx, newMessage("u1", "u2", "k1", "from u1"))
	req.NoError(err)
	req.True(fresh)

	_, fresh, err = repo.InsertIfAbsent(ctx, newMessage("u2", "u1", "k1", "from u2"))
	req.NoError(err)
	req.True(fresh)
}

func TestInsertIfAbsentConcurrentRetries(t *testing.T) {
	req := require.New(t)
	db := dbtest.Open(t)
	repo := NewMessageRepository(db)

	const retries = 16
	var (
		wg     sync.WaitGroup
		mu     sync.Mutex
		freshN int
		ids    = map[int64]struct{}{}
	)
	for i := 0; i < retries; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			stored, fresh, err := repo.InsertIfAbsent(context.Background(), newMessage("u1", "u2", "same-key", fmt.Sprintf("try %d", i)))
			if err != nil {
				t.Errorf("insert: %v", err)
				return
			}
			mu.Lock()
			defer mu.Unlock()
			if fresh {
				freshN++
			}
			ids[stored.Uuid] = struct{}{}
		}(i)
	}
	wg.Wait()

	req.Equal(1, freshN)
	req.Len(ids, 1)

	var count int64
	req.NoError(db.Model(&model.Message{}).Where("send_id = ? AND client_key = ?", "u1", "same-key").Count(&count).Error)
	req.EqualValues(1, count)
}

func TestListConversationPagesNewestFirst(t *testing.T) {
	req := require.New(t)
	repo := NewMessageRepository(dbtest.Open(t))
	ctx := context.Background()

	// Given: u1 与 u2 交替发送 5 条消息，另有一条无关消息
	var sent []int64
	for i := 0; i < 5; i++ {
		sender, recipient := "u1", "u2"
		if i%2 == 1 {
			sender, recipient = recipient, sender
		}
		m, _, err := repo.InsertIfAbsent(ctx, newMessage(sender, recipient, fmt.Sprintf("k%d", i), fmt.Sprintf("m%d", i)))
		req.NoError(err)
		sent = append(sent, m.Uuid)
	}
	_, _, err := repo.InsertIfAbsent(ctx, newMessage("u1", "u3", "other", "not in conversation"))
	req.NoError(err)

	// When: 每页 2 条向前翻页
	var seen []int64
	var cursor *model.ConversationCursor
	for {
		page, err := repo.ListConversation(ctx, "u2", "u1", cursor, 2)
		req.NoError(err)
		if len(page) == 0 {
			break
		}
		for _, m := range page {
			seen = append(seen, m.Uuid)
		}
		last := page[len(page)-1]
		cursor = &model.ConversationCursor{CreatedAt: last.CreatedAt, Uuid: last.Uuid}
	}

	// Then: 每条消息恰好出现一次，整体按新到旧排列
	req.Equal([]int64{sent[4], sent[3], sent[2], sent[1], sent[0]}, seen)
}

func TestMarkDelivered(t *testing.T) {
	req := require.New(t)
	repo := NewMessageRepository(dbtest.Open(t))
	ctx := context.Background()

	m, _, err := repo.InsertIfAbsent(ctx, newMessage("u1", "u2", "k1", "hello"))
	req.NoError(err)

	req.NoError(repo.MarkDelivered(ctx, m.Uuid))
	req.NoError(repo.MarkDelivered(ctx, m.Uuid))

	got, err := repo.FindByUuid(ctx, m.Uuid)
	req.NoError(err)
	req.Equal(model.MessageDelivered, got.Status)
	req.Equal("hello", got.Content)
}
