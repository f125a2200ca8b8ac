package request

// FriendApplyRequest 发送好友申请
type FriendApplyRequest struct {
	TargetId string `json:"target_id" binding:"required,max=64"`
	// Message 申请附言
	Message string `json:"message" binding:"max=100"`
}

// FriendReplyRequest 通过或拒绝好友申请
type FriendReplyRequest struct {
	RequesterId string `json:"requester_id" binding:"required,max=64"`
}

// FriendWithdrawRequest 撤回自己发出的好友申请
type FriendWithdrawRequest struct {
	TargetId string `json:"target_id" binding:"required,max=64"`
}

// PeerQuery 查询与某人的关系
type PeerQuery struct {
	PeerId string `form:"peer_id" binding:"required,max=64"`
}
