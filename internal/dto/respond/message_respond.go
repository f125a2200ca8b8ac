package respond

// SendMessageRespond 发送确认
// MessageId 使用字符串，避免 JavaScript 精度丢失
type SendMessageRespond struct {
	MessageId string `json:"message_id"`
	CreatedAt int64  `json:"created_at"` // Unix 毫秒
	ClientKey string `json:"client_key"`
	// Duplicate 为 true 表示命中此前的同 key 发送，未再次推送
	Duplicate bool `json:"duplicate"`
}

// MessageRespond 单条消息，也作为 chat:message / chat:sent 事件的 data
type MessageRespond struct {
	MessageId   string `json:"message_id"`
	SenderId    string `json:"sender_id"`
	RecipientId string `json:"recipient_id"`
	Text        string `json:"text"`
	ClientKey   string `json:"client_key,omitempty"`
	Status      string `json:"status"`
	CreatedAt   int64  `json:"created_at"`
}

// ConversationPageRespond 一页聊天记录，Messages 按旧到新排列
type ConversationPageRespond struct {
	Messages []MessageRespond `json:"messages"`
	// NextCursor 更早一页的游标，为空表示没有更早的消息
	NextCursor string `json:"next_cursor"`
}

// WsErrorRespond chat:error 事件的 data
type WsErrorRespond struct {
	ClientKey string `json:"client_key,omitempty"`
	Code      int    `json:"code"`
	Msg       string `json:"msg"`
}
