package request

// SendMessageRequest 发送单聊消息
// 使用位置:
//   - handler/message_handler.go: SendMessage
//   - gateway/websocket/client.go: send_message 帧
type SendMessageRequest struct {
	// SenderId 发送者，取自认证上下文
	SenderId string `json:"-"`
	// OriginConnId 发起发送的连接，HTTP 发送时为空
	OriginConnId string `json:"-"`

	RecipientId string `json:"recipient_id" binding:"required,max=64"`
	Text        string `json:"text" binding:"required"`
	// ClientKey 客户端幂等键，重试时必须保持不变
	ClientKey string `json:"client_key" binding:"required,max=64"`
}
