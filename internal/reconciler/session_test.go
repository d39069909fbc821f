package reconciler

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/vinib1903/cineus-api/internal/ports/ws"
)

// memoryTransport é um Transport em memória usado nos testes: dois
// canais de frames de texto, sem rede nenhuma envolvida.
type memoryTransport struct {
	toServer   chan []byte
	fromServer chan []byte
	closed     chan struct{}
}

func newMemoryTransport() *memoryTransport {
	return &memoryTransport{
		toServer:   make(chan []byte, 16),
		fromServer: make(chan []byte, 16),
		closed:     make(chan struct{}),
	}
}

func (t *memoryTransport) Send(ctx context.Context, data []byte) error {
	select {
	case t.toServer <- data:
		return nil
	case <-t.closed:
		return context.Canceled
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (t *memoryTransport) Receive(ctx context.Context) ([]byte, error) {
	select {
	case data := <-t.fromServer:
		return data, nil
	case <-t.closed:
		return nil, context.Canceled
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (t *memoryTransport) Close() error {
	select {
	case <-t.closed:
	default:
		close(t.closed)
	}
	return nil
}

// push injeta uma mensagem de servidor → cliente já serializada.
func (t *memoryTransport) push(msgType ws.MessageType, payload interface{}) {
	t.fromServer <- marshalOutgoing(msgType, payload)
}

func marshalOutgoing(msgType ws.MessageType, payload interface{}) []byte {
	msg := ws.NewOutgoingMessage(msgType, payload)
	data, err := json.Marshal(msg)
	if err != nil {
		panic(err)
	}
	return data
}

func TestBackoffDelayGrowsAndCaps(t *testing.T) {
	assert.Equal(t, baseBackoff, backoffDelay(0))
	assert.Equal(t, 2*baseBackoff, backoffDelay(1))
	assert.Equal(t, 4*baseBackoff, backoffDelay(2))
	assert.Equal(t, maxBackoff, backoffDelay(5), "must cap at maxBackoff regardless of further attempts")
	assert.Equal(t, maxBackoff, backoffDelay(50))
}

func TestSessionConnectsAndReceivesSyncState(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	transport := newMemoryTransport()
	received := make(chan ws.RoomStatePayload, 1)

	session := NewSession(func(ctx context.Context) (Transport, error) {
		return transport, nil
	}, "ABCDEF", "user-1", ws.RoleGuest, Handlers{
		OnSyncState: func(p ws.RoomStatePayload) { received <- p },
	})

	go session.Run()
	defer session.Stop()

	// Consome o JOIN que a sessão envia ao conectar.
	select {
	case <-transport.toServer:
	case <-time.After(time.Second):
		t.Fatal("expected a JOIN frame")
	}

	transport.push(ws.TypeSyncState, ws.RoomStatePayload{Code: "ABCDEF"})

	select {
	case p := <-received:
		assert.Equal(t, "ABCDEF", p.Code)
	case <-time.After(time.Second):
		t.Fatal("OnSyncState was not called")
	}

	require.Eventually(t, func() bool { return session.State() == StateConnected }, time.Second, 10*time.Millisecond)
}

func TestSessionOptimisticPendingClearedOnConfirmation(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	transport := newMemoryTransport()
	session := NewSession(func(ctx context.Context) (Transport, error) {
		return transport, nil
	}, "ABCDEF", "user-1", ws.RoleGuest, Handlers{})

	go session.Run()
	defer session.Stop()

	require.Eventually(t, func() bool { return session.State() == StateConnected }, time.Second, 10*time.Millisecond)

	err := session.AddVideoOptimistic("yt-1", "title", "")
	require.NoError(t, err)
	assert.True(t, session.IsPending("yt-1"))

	transport.push(ws.TypePlaylistUpdate, ws.PlaylistUpdatePayload{
		Playlist: []ws.VideoInfo{{ID: "v1", YoutubeID: "yt-1"}},
	})

	require.Eventually(t, func() bool { return !session.IsPending("yt-1") }, time.Second, 10*time.Millisecond)
}

func TestSessionErrorClearsAllPending(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	transport := newMemoryTransport()
	session := NewSession(func(ctx context.Context) (Transport, error) {
		return transport, nil
	}, "ABCDEF", "user-1", ws.RoleGuest, Handlers{})

	go session.Run()
	defer session.Stop()

	require.Eventually(t, func() bool { return session.State() == StateConnected }, time.Second, 10*time.Millisecond)

	require.NoError(t, session.AddVideoOptimistic("yt-1", "title", ""))
	require.NoError(t, session.AddVideoOptimistic("yt-2", "title", ""))
	assert.True(t, session.IsPending("yt-1"))
	assert.True(t, session.IsPending("yt-2"))

	transport.push(ws.TypeError, ws.ErrorPayload{Code: "INTERNAL_ERROR", Message: "boom"})

	require.Eventually(t, func() bool {
		return !session.IsPending("yt-1") && !session.IsPending("yt-2")
	}, time.Second, 10*time.Millisecond, "ERROR must clear the entire pending set, not just confirmed entries")
}

func TestSessionHostSuppressesOwnEcho(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	transport := newMemoryTransport()
	var playCalls int
	session := NewSession(func(ctx context.Context) (Transport, error) {
		return transport, nil
	}, "ABCDEF", "host-1", ws.RoleHost, Handlers{
		OnPlay:         func(ws.PlayPayload) { playCalls++ },
		ReportPosition: func() (float64, bool) { return 0, false },
	})

	go session.Run()
	defer session.Stop()

	require.Eventually(t, func() bool { return session.State() == StateConnected }, time.Second, 10*time.Millisecond)

	require.NoError(t, session.Play())
	transport.push(ws.TypePlay, ws.PlayPayload{CurrentTime: 1})

	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, 0, playCalls, "host must suppress the echo of its own PLAY command")
}

func TestSessionStopTerminatesRun(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	transport := newMemoryTransport()
	session := NewSession(func(ctx context.Context) (Transport, error) {
		return transport, nil
	}, "ABCDEF", "user-1", ws.RoleGuest, Handlers{})

	done := make(chan struct{})
	go func() {
		session.Run()
		close(done)
	}()

	require.Eventually(t, func() bool { return session.State() == StateConnected }, time.Second, 10*time.Millisecond)

	session.Stop()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run() did not return after Stop()")
	}
}
