package respond

// RelationshipRespond 好友关系当前状态，也作为 friend:* 事件的 data
type RelationshipRespond struct {
	RelationshipId string `json:"relationship_id,omitempty"`
	RequesterId    string `json:"requester_id"`
	TargetId       string `json:"target_id"`
	State          string `json:"state"`
	Message        string `json:"message,omitempty"`
	UpdatedAt      int64  `json:"updated_at,omitempty"`
}

// HealthRespond 健康检查
type HealthRespond struct {
	Mode        string `json:"mode"`
	OnlineUsers int    `json:"online_users"`
	Connections int    `json:"connections"`
}
