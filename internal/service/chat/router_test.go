package chat

import (
	"encoding/json"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

var errHalfClosed = errors.New("connection half-closed")

// recordingPusher 记录推送内容，broken 中的连接推送失败
type recordingPusher struct {
	mu     sync.Mutex
	frames map[string][]Frame
	broken map[string]bool
}

func newRecordingPusher(broken ...string) *recordingPusher {
	p := &recordingPusher{frames: map[string][]Frame{}, broken: map[string]bool{}}
	for _, id := range broken {
		p.broken[id] = true
	}
	return p
}

func (p *recordingPusher) PushToConnection(connID string, frame Frame) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.broken[connID] {
		return errHalfClosed
	}
	p.frames[connID] = append(p.frames[connID], frame)
	return nil
}

func (p *recordingPusher) count(connID string) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.frames[connID])
}

func (p *recordingPusher) last(t *testing.T, connID string) map[string]any {
	t.Helper()
	p.mu.Lock()
	defer p.mu.Unlock()
	frames := p.frames[connID]
	require.NotEmpty(t, frames, "no frame pushed to %s", connID)
	var decoded map[string]any
	require.NoError(t, json.Unmarshal(frames[len(frames)-1].Payload, &decoded))
	return decoded
}

func TestDeliverToOfflineUserAttemptsNothing(t *testing.T) {
	req := require.New(t)
	pusher := newRecordingPusher()
	router := NewDeliveryRouter(NewConnRegistry(), pusher)

	report := router.Deliver("offline", Event{Type: EventChatMessage, Data: map[string]string{"text": "hi"}})

	req.Equal(0, report.Attempted)
	req.Equal(OutcomeNoTarget, report.Outcome())
	req.Empty(pusher.frames)
}

func TestDeliverPushesEveryLiveConnection(t *testing.T) {
	req := require.New(t)
	registry := NewConnRegistry()
	registry.Register("u2", "phone")
	registry.Register("u2", "laptop")
	registry.Register("u3", "other")
	pusher := newRecordingPusher()
	router := NewDeliveryRouter(registry, pusher)

	report := router.Deliver("u2", Event{Type: EventFriendRequest, Data: map[string]string{"requester_id": "u1"}, MessageId: 7})

	req.Equal(2, report.Attempted)
	req.Equal(2, report.Pushed())
	req.Equal(OutcomePushed, report.Outcome())
	req.Equal(1, pusher.count("phone"))
	req.Equal(1, pusher.count("laptop"))
	req.Equal(0, pusher.count("other"))
	req.Equal("friend:request", pusher.last(t, "phone")["type"])
	req.EqualValues(7, pusher.frames["laptop"][0].MessageId)
}

func TestDeliverIsolatesTransportErrors(t *testing.T) {
	req := require.New(t)
	registry := NewConnRegistry()
	registry.Register("u2", "a")
	registry.Register("u2", "b")
	registry.Register("u2", "c")
	pusher := newRecordingPusher("b")
	router := NewDeliveryRouter(registry, pusher)

	report := router.Deliver("u2", Event{Type: EventChatMessage})

	req.Equal(3, report.Attempted)
	req.Equal(2, report.Pushed())
	req.Equal(OutcomePushed, report.Outcome())
	for _, res := range report.Results {
		if res.ConnID == "b" {
			req.Equal(OutcomeTransportError, res.Outcome)
			req.ErrorIs(res.Err, errHalfClosed)
		}
	}
}

func TestDeliverAllFailedIsTransportError(t *testing.T) {
	registry := NewConnRegistry()
	registry.Register("u2", "a")
	router := NewDeliveryRouter(registry, newRecordingPusher("a"))

	require.Equal(t, OutcomeTransportError, router.Deliver("u2", Event{Type: EventChatMessage}).Outcome())
}

func TestDeliverExceptSkipsOriginConnection(t *testing.T) {
	req := require.New(t)
	registry := NewConnRegistry()
	registry.Register("u1", "origin")
	registry.Register("u1", "tablet")
	pusher := newRecordingPusher()
	router := NewDeliveryRouter(registry, pusher)

	report := router.DeliverExcept("u1", "origin", Event{Type: EventChatSent})

	req.Equal(1, report.Attempted)
	req.Equal(0, pusher.count("origin"))
	req.Equal(1, pusher.count("tablet"))
}

func TestOutcomeString(t *testing.T) {
	req := require.New(t)
	req.Equal("pushed", OutcomePushed.String())
	req.Equal("no-target", OutcomeNoTarget.String())
	req.Equal("transport-error", OutcomeTransportError.String())
}
