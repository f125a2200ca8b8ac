package constants

const (
	REDIS_TIMEOUT       = 1   // 会话缓存有效期（分钟）
	CLIENT_KEY_MAX_SIZE = 64  // 客户端幂等键最大长度（字节）
	CONTEXT_USER_ID     = "user_id"
	MESSAGE_CACHE_KEY   = "message_list_" // 会话首页缓存前缀，后接排序后的两个用户 ID
	MODE_KAFKA          = "kafka"
	MODE_CHANNEL        = "channel"
)
