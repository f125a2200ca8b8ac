package request

// GetConversationRequest 分页获取与某人的聊天记录
// 使用位置:
//   - handler/message_handler.go: GetConversation
type GetConversationRequest struct {
	UserId string `form:"-"`
	PeerId string `form:"peer_id" binding:"required,max=64"`
	// Cursor 上一页返回的 next_cursor，为空表示从最新一页开始
	Cursor string `form:"cursor"`
	Limit  int    `form:"limit" binding:"omitempty,min=1"`
}
