package ws

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	approom "github.com/vinib1903/cineus-api/internal/app/room"
	"github.com/vinib1903/cineus-api/internal/domain/room"
	"github.com/vinib1903/cineus-api/internal/domain/video"
	"github.com/vinib1903/cineus-api/internal/infra/idgen"
	"github.com/vinib1903/cineus-api/internal/logging"
)

// newTestClient cria um cliente já autenticado (setJoined), sem
// conexão real: suficiente para exercitar handleX diretamente, já que
// nenhum desses caminhos toca c.conn antes de um Run()/readPump real.
func newTestClient(hub *Hub, userID, role string, code room.Code, rh *RoomHub) *Client {
	c := NewClient(hub, nil)
	c.setJoined(userID, role, code, rh)
	return c
}

func newTestRoomHub(t *testing.T) (*RoomHub, *room.Room) {
	t.Helper()
	rm, err := room.NewRoom(room.ID("room-1"), 0)
	require.NoError(t, err)
	rm.Code = "ABCDEF"

	hub := NewHub(nil, 0)
	rh := NewRoomHub(hub, approom.NewService(&noopRoomRepo{}, &noopVideoRepo{}, idgen.NewIDGenerator(), 0, 0, 0), rm, nil, logging.New())
	return rh, rm
}

// noopRoomRepo/noopVideoRepo satisfazem as interfaces de domínio sem
// tocar em nenhum armazenamento — os testes deste pacote mutam o
// agregado em memória diretamente e não precisam reler do repositório.
type noopRoomRepo struct{}

func (noopRoomRepo) Create(ctx context.Context, r *room.Room) error { return nil }
func (noopRoomRepo) GetByCode(ctx context.Context, code room.Code) (*room.Room, error) {
	return nil, room.ErrRoomNotFound
}
func (noopRoomRepo) GetByID(ctx context.Context, id room.ID) (*room.Room, error) {
	return nil, room.ErrRoomNotFound
}
func (noopRoomRepo) Update(ctx context.Context, r *room.Room) error { return nil }

type noopVideoRepo struct{}

func (noopVideoRepo) Create(ctx context.Context, v *video.Video) error             { return nil }
func (noopVideoRepo) CreateBatch(ctx context.Context, videos []*video.Video) error { return nil }
func (noopVideoRepo) Delete(ctx context.Context, id video.ID) error                { return nil }
func (noopVideoRepo) GetByID(ctx context.Context, id video.ID) (*video.Video, error) {
	return nil, video.ErrVideoNotFound
}
func (noopVideoRepo) ListByRoom(ctx context.Context, roomID room.ID) ([]*video.Video, error) {
	return nil, nil
}
func (noopVideoRepo) MarkPlayed(ctx context.Context, id video.ID) error { return nil }

func TestHandleRegisterEvictsExistingSession(t *testing.T) {
	rh, _ := newTestRoomHub(t)

	first := newTestClient(nil, "user-1", RoleGuest, rh.code, rh)
	rh.handleRegister(first)
	assert.Equal(t, 1, rh.clientCount())

	second := newTestClient(nil, "user-1", RoleGuest, rh.code, rh)
	rh.handleRegister(second)

	assert.Equal(t, 1, rh.clientCount(), "same userID must not hold two sessions")
	select {
	case <-first.ctx.Done():
	case <-time.After(time.Second):
		t.Fatal("evicted client was not closed")
	}
}

func TestHandleUnregisterRemovesClient(t *testing.T) {
	rh, _ := newTestRoomHub(t)

	c := newTestClient(nil, "user-1", RoleGuest, rh.code, rh)
	rh.handleRegister(c)
	require.Equal(t, 1, rh.clientCount())

	rh.handleUnregister(c)
	assert.Equal(t, 0, rh.clientCount())
}

func TestHandleUnregisterIgnoresStaleClient(t *testing.T) {
	rh, _ := newTestRoomHub(t)

	c := newTestClient(nil, "user-1", RoleGuest, rh.code, rh)
	rh.handleRegister(c)

	replaced := newTestClient(nil, "user-1", RoleGuest, rh.code, rh)
	rh.handleRegister(replaced)

	// c já não é mais o cliente registrado para user-1: seu próprio
	// unregister não deve remover a sessão atual.
	rh.handleUnregister(c)
	assert.Equal(t, 1, rh.clientCount())
}

func TestHandleSyncTimeRejectsNonHost(t *testing.T) {
	rh, _ := newTestRoomHub(t)
	guest := newTestClient(nil, "user-1", RoleGuest, rh.code, rh)
	rh.handleRegister(guest)
	<-guest.send // drain SYNC_STATE from registration

	rh.handleSyncTime(guest, []byte(`{"currentTime":10,"isPlaying":true}`))

	select {
	case data := <-guest.send:
		assert.Contains(t, string(data), string(TypeError))
	case <-time.After(time.Second):
		t.Fatal("expected an ERROR reply for non-host SYNC_TIME")
	}
}

func TestHandleSyncTimeIgnoresIsPlayingDuringCooldown(t *testing.T) {
	rh, rm := newTestRoomHub(t)
	host := newTestClient(nil, "host-1", RoleHost, rh.code, rh)
	rh.handleRegister(host)
	<-host.send // drain SYNC_STATE from registration

	now := time.Now()
	rm.IsPlaying = true
	rm.PlayPauseAt = &now

	rh.handleSyncTime(host, []byte(`{"currentTime":42,"isPlaying":false}`))

	assert.True(t, rm.IsPlaying, "isPlaying must not change while inside the cooldown window")
	assert.Equal(t, 42.0, rm.CurrentTime, "currentTime updates regardless of cooldown")
}

func TestHandleSyncTimeExcludesSenderFromBroadcast(t *testing.T) {
	rh, _ := newTestRoomHub(t)
	host := newTestClient(nil, "host-1", RoleHost, rh.code, rh)
	guest := newTestClient(nil, "guest-1", RoleGuest, rh.code, rh)
	rh.handleRegister(host)
	rh.handleRegister(guest)
	<-host.send  // SYNC_STATE
	<-guest.send // SYNC_STATE

	rh.handleSyncTime(host, []byte(`{"currentTime":7,"isPlaying":true}`))

	select {
	case <-guest.send:
	case <-time.After(time.Second):
		t.Fatal("guest should receive the SYNC_TIME fan-out")
	}

	select {
	case data := <-host.send:
		t.Fatalf("sender must not receive its own SYNC_TIME echo, got %s", data)
	case <-time.After(100 * time.Millisecond):
	}
}

func TestHandleRemoveVideoDoesNotClearCurrentVideoID(t *testing.T) {
	rh, rm := newTestRoomHub(t)
	v := &video.Video{ID: "v1", ExternalID: "yt-1", RoomID: rm.ID}
	rh.playlist = []*video.Video{v}
	rm.SetCurrentVideo("yt-1")

	client := newTestClient(nil, "user-1", RoleGuest, rh.code, rh)
	rh.handleRemoveVideo(client, []byte(`{"videoId":"v1"}`))

	require.NotNil(t, rm.CurrentVideoID)
	assert.Equal(t, "yt-1", *rm.CurrentVideoID)
	assert.Empty(t, rh.playlist)
}
