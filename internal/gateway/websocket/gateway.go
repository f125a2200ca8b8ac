// Package websocket 是实时推送的传输层
// 负责 websocket 握手、每个连接的读写循环和心跳，向投递路由提供 chat.Pusher
package websocket

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"social_relay/internal/config"
	"social_relay/internal/dto/request"
	"social_relay/internal/dto/respond"
	"social_relay/internal/service/chat"
)

var (
	// ErrConnectionGone 连接已断开或不属于本节点
	ErrConnectionGone = errors.New("connection gone")
	// ErrSendBufferFull 连接推送缓冲已满，通常是客户端读得太慢
	ErrSendBufferFull = errors.New("send buffer full")
)

// MessageService 网关依赖的消息业务
type MessageService interface {
	SendMessage(ctx context.Context, req request.SendMessageRequest) (*respond.SendMessageRespond, error)
	MarkDelivered(ctx context.Context, messageId int64)
}

// Gateway 管理本节点的 websocket 连接
// 连接表只属于传输层；用户与连接的对应关系由 chat.ConnRegistry 维护
type Gateway struct {
	mu       sync.RWMutex
	clients  map[string]*Client
	registry *chat.ConnRegistry
	messages MessageService
	conf     config.DeliveryConfig
	upgrader websocket.Upgrader
	validate *validator.Validate
}

// NewGateway 创建网关，握手前需通过 SetMessageService 注入消息业务
func NewGateway(registry *chat.ConnRegistry, conf config.DeliveryConfig) *Gateway {
	return &Gateway{
		clients:  make(map[string]*Client),
		registry: registry,
		conf:     conf,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  2048,
			WriteBufferSize: 2048,
			// 检查连接的Origin头
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
		validate: validator.New(),
	}
}

// SetMessageService 注入消息业务
// 业务层依赖投递路由，投递路由依赖网关，因此只能在构造之后注入
func (g *Gateway) SetMessageService(svc MessageService) {
	g.messages = svc
}

// ServeWS 完成握手并启动读写循环，userID 由认证中间件提供
func (g *Gateway) ServeWS(c *gin.Context, userID string) {
	conn, err := g.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		// Upgrade 失败时已经写回了 HTTP 错误
		zap.L().Warn("websocket upgrade failed", zap.String("user_id", userID), zap.Error(err))
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	client := &Client{
		id:      uuid.NewString(),
		userID:  userID,
		conn:    conn,
		send:    make(chan chat.Frame, g.conf.SendBufferSize),
		gateway: g,
		ctx:     ctx,
		cancel:  cancel,
	}

	g.mu.Lock()
	g.clients[client.id] = client
	g.mu.Unlock()
	g.registry.Register(userID, client.id)

	go client.Write()
	go client.Read()
	zap.L().Info("ws连接成功", zap.String("user_id", userID), zap.String("conn_id", client.id))
}

// PushToConnection 非阻塞推送，连接不存在或缓冲已满时返回错误
func (g *Gateway) PushToConnection(connID string, frame chat.Frame) error {
	// 持有读锁期间 disconnect 无法关闭 send，不会向已关闭的通道写入
	g.mu.RLock()
	defer g.mu.RUnlock()
	client, ok := g.clients[connID]
	if !ok {
		return ErrConnectionGone
	}
	select {
	case client.send <- frame:
		return nil
	default:
		return ErrSendBufferFull
	}
}

// ConnectionCount 本节点的连接数
func (g *Gateway) ConnectionCount() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return len(g.clients)
}

// Shutdown 关闭所有连接，读写循环退出后各自完成注销
func (g *Gateway) Shutdown() {
	g.mu.RLock()
	clients := make([]*Client, 0, len(g.clients))
	for _, client := range g.clients {
		clients = append(clients, client)
	}
	g.mu.RUnlock()

	for _, client := range clients {
		client.closeConn(websocket.CloseGoingAway, "server shutdown")
	}
	zap.L().Info("websocket gateway shut down", zap.Int("connections", len(clients)))
}

// remove 从连接表删除并关闭推送通道
func (g *Gateway) remove(client *Client) {
	g.mu.Lock()
	delete(g.clients, client.id)
	close(client.send)
	g.mu.Unlock()
}

// pushEvent 向单个连接推送事件，用于 chat:ack / chat:error
func (g *Gateway) pushEvent(connID string, evt chat.Event) {
	payload, err := json.Marshal(evt)
	if err != nil {
		zap.L().Error("marshal event", zap.String("event", evt.Type), zap.Error(err))
		return
	}
	if err := g.PushToConnection(connID, chat.Frame{Payload: payload}); err != nil {
		// 发送方已断开，确认直接丢弃
		zap.L().Info("reply dropped", zap.String("conn_id", connID), zap.String("event", evt.Type), zap.Error(err))
	}
}
