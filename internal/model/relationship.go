package model

import (
	"gorm.io/gorm"
)

// RelationState 好友关系状态
type RelationState int8

const (
	RelationNone RelationState = iota // 不存在活跃记录，不落库
	RelationPending
	RelationAccepted
	RelationRejected
	RelationWithdrawn
)

var relationStateNames = map[RelationState]string{
	RelationNone:      "none",
	RelationPending:   "pending",
	RelationAccepted:  "accepted",
	RelationRejected:  "rejected",
	RelationWithdrawn: "withdrawn",
}

func (s RelationState) String() string {
	if name, ok := relationStateNames[s]; ok {
		return name
	}
	return "unknown"
}

// Active pending 与 accepted 为活跃状态，同一对用户最多一条
func (s RelationState) Active() bool {
	return s == RelationPending || s == RelationAccepted
}

// relationTransitions 允许的状态迁移，未列出的一律拒绝
var relationTransitions = map[RelationState][]RelationState{
	RelationNone:    {RelationPending},
	RelationPending: {RelationAccepted, RelationRejected, RelationWithdrawn},
}

// CanTransition 判断 from -> to 是否在迁移表中
func CanTransition(from, to RelationState) bool {
	for _, next := range relationTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// Relationship 好友申请/好友关系记录
// UserLow/UserHigh 为按字典序排列的无序用户对
// ActivePair 仅在活跃状态下非空，依靠唯一索引保证同一对用户至多一条活跃记录
type Relationship struct {
	gorm.Model
	Uuid        string        `gorm:"column:uuid;uniqueIndex;type:char(36);not null;comment:关系记录uuid"`
	UserLow     string        `gorm:"column:user_low;type:varchar(64);not null;index:idx_relationship_pair,priority:1"`
	UserHigh    string        `gorm:"column:user_high;type:varchar(64);not null;index:idx_relationship_pair,priority:2"`
	RequesterId string        `gorm:"column:requester_id;type:varchar(64);not null;comment:申请人"`
	TargetId    string        `gorm:"column:target_id;type:varchar(64);not null;index;comment:被申请人"`
	Status      RelationState `gorm:"column:status;not null;comment:状态，1.待处理，2.已通过，3.已拒绝，4.已撤回"`
	ActivePair  *string       `gorm:"column:active_pair;type:varchar(130);uniqueIndex;comment:活跃记录唯一键"`
	Message     string        `gorm:"column:message;type:varchar(100);comment:申请附言"`
}

func (Relationship) TableName() string {
	return "relationship"
}

// CanonicalPair 返回有序用户对，小的在前
func CanonicalPair(userA, userB string) (low, high string) {
	if userA > userB {
		return userB, userA
	}
	return userA, userB
}

// ActivePairKey 活跃唯一键
func ActivePairKey(userA, userB string) string {
	low, high := CanonicalPair(userA, userB)
	return low + ":" + high
}

// Counterparty 返回关系中另一方的用户 ID
func (r *Relationship) Counterparty(userID string) string {
	if r.RequesterId == userID {
		return r.TargetId
	}
	return r.RequesterId
}
