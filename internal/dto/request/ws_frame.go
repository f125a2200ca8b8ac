package request

// WsActionSendMessage 客户端发送消息帧
const WsActionSendMessage = "send_message"

// WsFrame 客户端通过 websocket 上行的帧
// {"action":"send_message","recipient_id":"u2","text":"hello","client_key":"k1"}
type WsFrame struct {
	Action      string `json:"action" validate:"required,oneof=send_message"`
	RecipientId string `json:"recipient_id"`
	Text        string `json:"text"`
	ClientKey   string `json:"client_key"`
}
