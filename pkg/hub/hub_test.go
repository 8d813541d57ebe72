package hub

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teslashibe/go-picarx/internal/log"
)

type fakeClient struct {
	ch chan Message
}

func (f *fakeClient) queue() chan Message { return f.ch }

func newFake(buf int) *fakeClient {
	return &fakeClient{ch: make(chan Message, buf)}
}

func startHub(t *testing.T) (*Hub, context.CancelFunc) {
	t.Helper()
	h := New("test", log.Discard())
	ctx, cancel := context.WithCancel(context.Background())
	go h.Run(ctx)
	t.Cleanup(cancel)
	return h, cancel
}

func TestHub_BroadcastReachesClients(t *testing.T) {
	h, _ := startHub(t)
	a, b := newFake(4), newFake(4)
	h.join(a)
	h.join(b)
	require.Eventually(t, func() bool { return h.ClientCount() == 2 }, time.Second, time.Millisecond)

	require.NoError(t, h.BroadcastJSON(map[string]float64{"angle": 3.75}))

	for _, c := range []*fakeClient{a, b} {
		select {
		case msg := <-c.ch:
			assert.JSONEq(t, `{"angle":3.75}`, string(msg.Data))
		case <-time.After(time.Second):
			t.Fatal("client did not receive broadcast")
		}
	}
}

func TestHub_DropsSlowClient(t *testing.T) {
	h, _ := startHub(t)
	slow := newFake(1)
	h.join(slow)
	require.Eventually(t, func() bool { return h.ClientCount() == 1 }, time.Second, time.Millisecond)

	for i := 0; i < 3; i++ {
		h.Broadcast(Message{Data: []byte("{}")})
		time.Sleep(5 * time.Millisecond)
	}

	require.Eventually(t, func() bool { return h.ClientCount() == 0 }, time.Second, time.Millisecond)
	<-slow.ch
	_, open := <-slow.ch
	assert.False(t, open, "dropped client queue must be closed")
}

func TestHub_LeaveClosesQueue(t *testing.T) {
	h, _ := startHub(t)
	c := newFake(1)
	h.join(c)
	h.leave(c)

	_, open := <-c.ch
	assert.False(t, open)
	assert.Eventually(t, func() bool { return h.ClientCount() == 0 }, time.Second, time.Millisecond)
}

func TestHub_StopClosesClients(t *testing.T) {
	h, cancel := startHub(t)
	c := newFake(1)
	h.join(c)
	cancel()

	select {
	case _, open := <-c.ch:
		assert.False(t, open)
	case <-time.After(time.Second):
		t.Fatal("client queue not closed on hub stop")
	}

	// After stop, join and leave must not block.
	late := newFake(1)
	h.join(late)
	h.leave(late)
	_, open := <-late.ch
	assert.False(t, open)
}

func TestNewest(t *testing.T) {
	q := make(chan Message, 4)
	msg, ok := newest(Message{Data: []byte("a")}, q)
	assert.True(t, ok)
	assert.Equal(t, "a", string(msg.Data))

	q <- Message{Data: []byte("b")}
	q <- Message{Data: []byte("c")}
	msg, ok = newest(Message{Data: []byte("a")}, q)
	assert.True(t, ok)
	assert.Equal(t, "c", string(msg.Data))
	assert.Empty(t, q)

	q <- Message{Data: []byte("d")}
	close(q)
	_, ok = newest(Message{Data: []byte("a")}, q)
	assert.False(t, ok, "a closed queue ends the stream")
}
