// Package snowflake 生成消息的服务端 ID
package snowflake

import (
	"sync"

	"github.com/bwmarrin/snowflake"
	"go.uber.org/zap"
)

var (
	mu   sync.Mutex
	node *snowflake.Node
)

// Init 初始化雪花节点，machineID 超出 0-1023 时回退为 1
func Init(machineID int64) error {
	if machineID < 0 || machineID > 1023 {
		zap.L().Warn("invalid snowflake machine id, using 1", zap.Int64("machineID", machineID))
		machineID = 1
	}
	n, err := snowflake.NewNode(machineID)
	if err != nil {
		return err
	}
	mu.Lock()
	node = n
	mu.Unlock()
	zap.L().Info("snowflake node initialized", zap.Int64("machineID", machineID))
	return nil
}

// GenerateID 生成单调递增的 int64 ID，未初始化时使用节点 1
func GenerateID() int64 {
	mu.Lock()
	if node == nil {
		node, _ = snowflake.NewNode(1)
	}
	n := node
	mu.Unlock()
	return n.Generate().Int64()
}
