package websocket

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"social_relay/internal/dto/request"
	"social_relay/internal/dto/respond"
	"social_relay/internal/service/chat"
	"social_relay/pkg/errorx"
)

// Client 一个 websocket 连接
type Client struct {
	id      string
	userID  string
	conn    *websocket.Conn
	send    chan chat.Frame
	gateway *Gateway

	// ctx 在断开时取消，已开始的持久化不受影响
	ctx    context.Context
	cancel context.CancelFunc
	once   sync.Once
}

// Read 读取客户端帧并按顺序处理，保证同一连接的确认顺序与发送顺序一致
func (c *Client) Read() {
	defer c.disconnect()

	conf := c.gateway.conf
	c.conn.SetReadLimit(conf.MaxFrameBytes)
	_ = c.conn.SetReadDeadline(time.Now().Add(conf.PongWait()))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(conf.PongWait()))
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				zap.L().Warn("ws read error", zap.String("conn_id", c.id), zap.Error(err))
			}
			return
		}
		c.handleFrame(data)
	}
}

// Write 将推送通道中的帧写给客户端，并定时发送 ping
// 写失败说明连接已断，立即注销，不必等读循环退出
func (c *Client) Write() {
	conf := c.gateway.conf
	ticker := time.NewTicker(conf.PingPeriod())
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
		c.disconnect()
	}()

	for {
		select {
		case frame, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(conf.WriteWait()))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, frame.Payload); err != nil {
				zap.L().Warn("ws write error", zap.String("conn_id", c.id), zap.Error(err))
				return
			}
			// 说明顺利写出，修改状态为已投递
			if frame.MessageId != 0 && c.gateway.messages != nil {
				c.markDelivered(frame.MessageId)
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(conf.WriteWait()))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// markDelivered 限时更新投递状态，数据库卡住时不拖住推送和心跳
func (c *Client) markDelivered(messageId int64) {
	ctx, cancel := context.WithTimeout(context.Background(), c.gateway.conf.WriteWait())
	defer cancel()
	c.gateway.messages.MarkDelivered(ctx, messageId)
}

func (c *Client) handleFrame(data []byte) {
	var frame request.WsFrame
	if err := json.Unmarshal(data, &frame); err != nil {
		c.replyError("", errorx.New(errorx.CodeInvalidParam, "无法解析的消息帧"))
		return
	}
	if err := c.gateway.validate.Struct(frame); err != nil {
		c.replyError(frame.ClientKey, errorx.Wrap(err, errorx.CodeInvalidParam, "不支持的 action"))
		return
	}
	if c.gateway.messages == nil {
		c.replyError(frame.ClientKey, errorx.ErrServerBusy)
		return
	}

	ack, err := c.gateway.messages.SendMessage(c.ctx, request.SendMessageRequest{
		SenderId:     c.userID,
		OriginConnId: c.id,
		RecipientId:  frame.RecipientId,
		Text:         frame.Text,
		ClientKey:    frame.ClientKey,
	})
	if err != nil {
		c.replyError(frame.ClientKey, err)
		return
	}
	c.gateway.pushEvent(c.id, chat.Event{Type: chat.EventChatAck, Data: ack})
}

func (c *Client) replyError(clientKey string, err error) {
	rsp := respond.WsErrorRespond{ClientKey: clientKey, Code: errorx.GetCode(err), Msg: "服务繁忙"}
	var codeErr *errorx.CodeError
	if errors.As(err, &codeErr) {
		rsp.Msg = codeErr.Msg
	} else {
		zap.L().Error("send message failed", zap.String("conn_id", c.id), zap.Error(err))
	}
	c.gateway.pushEvent(c.id, chat.Event{Type: chat.EventChatError, Data: rsp})
}

// disconnect 先注销再移出连接表，最后关闭推送通道
func (c *Client) disconnect() {
	c.once.Do(func() {
		c.cancel()
		c.gateway.registry.Unregister(c.id)
		c.gateway.remove(c)
		zap.L().Info("ws连接断开", zap.String("user_id", c.userID), zap.String("conn_id", c.id))
	})
}

// closeConn 发送关闭帧并关闭底层连接，读循环随之退出
func (c *Client) closeConn(code int, reason string) {
	deadline := time.Now().Add(time.Second)
	_ = c.conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(code, reason), deadline)
	_ = c.conn.Close()
}
