package message

import (
	"context"

	"social_relay/internal/dto/respond"
)

// Pager 会话的惰性分页迭代器
// 每次 Next 只查询一页，从最新一页向更早的消息推进；页内按旧到新排列
// 保存 Cursor() 后可用 Resume 从同一位置重新开始
type Pager struct {
	svc    *messageService
	userId string
	peerId string
	limit  int
	cursor string
	done   bool
}

// Next 返回下一页；没有更多数据时 ok 为 false
func (p *Pager) Next(ctx context.Context) (messages []respond.MessageRespond, ok bool, err error) {
	if p.done {
		return nil, false, nil
	}
	page, err := p.svc.listPage(ctx, p.userId, p.peerId, p.cursor, p.limit)
	if err != nil {
		return nil, false, err
	}
	p.cursor = page.NextCursor
	if p.cursor == "" {
		p.done = true
	}
	if len(page.Messages) == 0 {
		return nil, false, nil
	}
	return page.Messages, true, nil
}

// Cursor 下一页的游标，为空表示从最新一页开始或已读完
func (p *Pager) Cursor() string {
	return p.cursor
}

// Resume 从指定游标继续
func (p *Pager) Resume(cursor string) {
	p.cursor = cursor
	p.done = false
}
