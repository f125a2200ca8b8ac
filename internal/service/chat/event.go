package chat

// 推送给客户端的事件类型
const (
	EventChatMessage     = "chat:message"     // 新消息，推送给接收方
	EventChatSent        = "chat:sent"        // 发送成功回显，推送给发送方的其他连接
	EventChatAck         = "chat:ack"         // 发送确认，只回给发起发送的连接
	EventChatError       = "chat:error"       // 发送失败，只回给发起发送的连接
	EventFriendRequest   = "friend:request"   // 收到好友申请
	EventFriendAccepted  = "friend:accepted"  // 好友申请被通过
	EventFriendRejected  = "friend:rejected"  // 好友申请被拒绝
	EventFriendWithdrawn = "friend:withdrawn" // 好友申请被撤回
)

// Event 推送给连接的事件，序列化为 {"type": ..., "data": ...}
type Event struct {
	Type string `json:"type"`
	Data any    `json:"data"`

	// MessageId 非 0 时，写出成功后将该消息标记为已投递
	MessageId int64 `json:"-"`
}

// Frame 交给传输层的一帧数据
type Frame struct {
	Payload   []byte
	MessageId int64
}

// Delivery 一次投递请求：目标用户、需要跳过的连接和事件
type Delivery struct {
	UserID       string
	ExceptConnID string
	Event        Event
}
