package ws

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	approom "github.com/vinib1903/cineus-api/internal/app/room"
	"github.com/vinib1903/cineus-api/internal/domain/room"
	"github.com/vinib1903/cineus-api/internal/domain/video"
	"github.com/vinib1903/cineus-api/internal/logging"
)

// RoomHub gerencia os clientes e o estado em memória de uma sala. É o
// único escritor lógico do estado da sala: toda mutação passa por um
// método de handleX chamado a partir de handleMessage (síncrono) ou
// dos canais register/unregister (assíncronos), sempre sob h.mu.
type RoomHub struct {
	code room.Code

	// Clientes conectados: userID -> Client
	clients map[string]*Client

	// Estado de domínio em memória; mu protege rm e playlist.
	rm       *room.Room
	playlist []*video.Video
	mu       sync.RWMutex

	lastPositionPersist time.Time

	register   chan *Client
	unregister chan *Client
	broadcast  chan *OutgoingMessage

	globalHub   *Hub
	roomService *approom.Service
	log         *logging.Logger
}

// NewRoomHub cria um hub de sala a partir do estado já carregado da
// camada durável.
func NewRoomHub(globalHub *Hub, roomService *approom.Service, rm *room.Room, playlist []*video.Video, log *logging.Logger) *RoomHub {
	return &RoomHub{
		code:        rm.Code,
		clients:     make(map[string]*Client),
		rm:          rm,
		playlist:    playlist,
		register:    make(chan *Client),
		unregister:  make(chan *Client),
		broadcast:   make(chan *OutgoingMessage, 256),
		globalHub:   globalHub,
		roomService: roomService,
		log:         log,
	}
}

// Run inicia o loop principal do hub.
func (h *RoomHub) Run() {
	for {
		select {
		case client := <-h.register:
			h.handleRegister(client)

		case client := <-h.unregister:
			h.handleUnregister(client)

		case message := <-h.broadcast:
			h.handleBroadcast(message, "")
		}
	}
}

func (h *RoomHub) clientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// handleRegister adiciona um cliente à sala. Uma sessão existente do
// mesmo userID é encerrada — no máximo uma sessão ativa por (sala,
// usuário).
func (h *RoomHub) handleRegister(client *Client) {
	h.mu.Lock()
	if existing, exists := h.clients[client.UserID()]; exists {
		existing.Close()
	}
	h.clients[client.UserID()] = client
	h.mu.Unlock()

	h.log.WithClient(client.UserID()).Printf("joined as %s", client.Role())

	h.sendSyncState(client)
}

// handleUnregister remove um cliente da sala e, se ela ficar vazia,
// agenda sua remoção do hub global.
func (h *RoomHub) handleUnregister(client *Client) {
	h.mu.Lock()
	if h.clients[client.UserID()] != client {
		h.mu.Unlock()
		return
	}
	delete(h.clients, client.UserID())
	count := len(h.clients)
	h.mu.Unlock()

	h.log.WithClient(client.UserID()).Printf("left (remaining: %d)", count)

	if count == 0 {
		h.globalHub.removeRoom(h.code)
	}
}

// handleBroadcast envia uma mensagem para todos os clientes da sala,
// exceto o opcional exceptUserID. Um cliente lento (buffer cheio) não
// impede o envio aos demais — Client.Send já é não bloqueante.
func (h *RoomHub) handleBroadcast(message *OutgoingMessage, exceptUserID string) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for userID, client := range h.clients {
		if userID == exceptUserID {
			continue
		}
		client.Send(message)
	}
}

// handleMessage despacha uma mensagem de um cliente já autenticado
// pelo JOIN.
func (h *RoomHub) handleMessage(client *Client, msg *IncomingMessage) {
	switch msg.Type {
	case TypeAddVideo:
		h.handleAddVideo(client, msg.Payload)
	case TypeAddVideos:
		h.handleAddVideos(client, msg.Payload)
	case TypePlay:
		h.handlePlay(client)
	case TypePause:
		h.handlePause(client)
	case TypeSyncTime:
		h.handleSyncTime(client, msg.Payload)
	case TypeNextVideo:
		h.handleNextVideo(client)
	case TypeRemoveVideo:
		h.handleRemoveVideo(client, msg.Payload)
	case TypeSelectVideo:
		h.handleSelectVideo(client, msg.Payload)
	default:
		client.SendError(ErrCodeUnknownMessage, "unknown message type")
	}
}

// handleAddVideo adiciona um vídeo ao fim da playlist.
func (h *RoomHub) handleAddVideo(client *Client, payload json.RawMessage) {
	var p AddVideoPayload
	if err := json.Unmarshal(payload, &p); err != nil {
		client.SendError(ErrCodeInvalidPayload, "invalid ADD_VIDEO payload")
		return
	}

	ctx := context.Background()

	h.mu.Lock()
	hadCurrent := h.rm.HasCurrentVideo()
	v, err := h.roomService.AddVideo(ctx, h.rm, len(h.playlist), p.YoutubeID, p.Title, p.ThumbnailURL, client.UserID())
	if err != nil {
		h.mu.Unlock()
		client.SendError(ErrCodeInvalidPayload, err.Error())
		return
	}
	h.playlist = append(h.playlist, v)
	autoStarted := !hadCurrent && h.rm.HasCurrentVideo()
	playlistWire := h.playlistWireLocked()
	currentVideoID, currentTime := h.playbackSnapshotLocked()
	h.mu.Unlock()

	h.handleBroadcast(NewOutgoingMessage(TypePlaylistUpdate, PlaylistUpdatePayload{Playlist: playlistWire}), "")

	if autoStarted && currentVideoID != nil {
		h.handleBroadcast(NewOutgoingMessage(TypePlayVideo, PlayVideoPayload{VideoID: *currentVideoID, CurrentTime: currentTime}), "")
	}
}

// handleAddVideos adiciona vários vídeos de uma vez, preservando a
// ordem recebida.
func (h *RoomHub) handleAddVideos(client *Client, payload json.RawMessage) {
	var p AddVideosPayload
	if err := json.Unmarshal(payload, &p); err != nil {
		client.SendError(ErrCodeInvalidPayload, "invalid ADD_VIDEOS payload")
		return
	}
	if len(p.Videos) == 0 {
		return
	}

	items := make([]approom.AddVideoInput, 0, len(p.Videos))
	for _, item := range p.Videos {
		items = append(items, approom.AddVideoInput{
			ExternalID:   item.YoutubeID,
			Title:        item.Title,
			ThumbnailURL: item.ThumbnailURL,
			AddedBy:      client.UserID(),
		})
	}

	ctx := context.Background()

	h.mu.Lock()
	hadCurrent := h.rm.HasCurrentVideo()
	added, err := h.roomService.AddVideos(ctx, h.rm, len(h.playlist), items)
	if err != nil {
		h.mu.Unlock()
		client.SendError(ErrCodeInvalidPayload, err.Error())
		return
	}
	h.playlist = append(h.playlist, added...)
	autoStarted := !hadCurrent && h.rm.HasCurrentVideo()
	playlistWire := h.playlistWireLocked()
	currentVideoID, currentTime := h.playbackSnapshotLocked()
	h.mu.Unlock()

	h.handleBroadcast(NewOutgoingMessage(TypePlaylistUpdate, PlaylistUpdatePayload{Playlist: playlistWire}), "")

	if autoStarted && currentVideoID != nil {
		h.handleBroadcast(NewOutgoingMessage(TypePlayVideo, PlayVideoPayload{VideoID: *currentVideoID, CurrentTime: currentTime}), "")
	}
}

// handleRemoveVideo remove uma entrada da playlist. Fielmente ao
// comportamento assinalado em DESIGN.md, não reajusta currentVideoId
// caso a entrada removida seja o vídeo atual.
func (h *RoomHub) handleRemoveVideo(client *Client, payload json.RawMessage) {
	var p RemoveVideoPayload
	if err := json.Unmarshal(payload, &p); err != nil {
		client.SendError(ErrCodeInvalidPayload, "invalid REMOVE_VIDEO payload")
		return
	}

	ctx := context.Background()

	h.mu.Lock()
	idx := -1
	for i, v := range h.playlist {
		if string(v.ID) == p.VideoID {
			idx = i
			break
		}
	}
	if idx == -1 {
		h.mu.Unlock()
		client.SendError(ErrCodeVideoNotFound, "video not found")
		return
	}

	removed := h.playlist[idx]
	if err := h.roomService.RemoveVideo(ctx, removed.ID); err != nil {
		h.mu.Unlock()
		client.SendError(ErrCodeVideoNotFound, "video not found")
		return
	}
	h.playlist = append(h.playlist[:idx], h.playlist[idx+1:]...)
	playlistWire := h.playlistWireLocked()
	h.mu.Unlock()

	h.handleBroadcast(NewOutgoingMessage(TypePlaylistUpdate, PlaylistUpdatePayload{Playlist: playlistWire}), "")
}

// handleSelectVideo troca explicitamente o vídeo atual. Qualquer
// participante pode selecionar, não só o host.
func (h *RoomHub) handleSelectVideo(client *Client, payload json.RawMessage) {
	var p SelectVideoPayload
	if err := json.Unmarshal(payload, &p); err != nil {
		client.SendError(ErrCodeInvalidPayload, "invalid SELECT_VIDEO payload")
		return
	}

	ctx := context.Background()

	h.mu.Lock()
	var target *video.Video
	for _, v := range h.playlist {
		if v.ExternalID == p.YoutubeID {
			target = v
			break
		}
	}
	if target == nil {
		h.mu.Unlock()
		client.SendError(ErrCodeVideoNotFound, "video not found")
		return
	}

	if err := h.roomService.SelectVideo(ctx, h.rm, target); err != nil {
		h.mu.Unlock()
		client.SendError(ErrCodeInternal, "failed to select video")
		return
	}
	currentVideoID, currentTime := h.playbackSnapshotLocked()
	h.mu.Unlock()

	h.handleBroadcast(NewOutgoingMessage(TypePlayVideo, PlayVideoPayload{VideoID: *currentVideoID, CurrentTime: currentTime}), "")
}

// handleNextVideo avança para o sucessor posicional do vídeo atual
// (ver approom.Service.NextVideo).
func (h *RoomHub) handleNextVideo(client *Client) {
	ctx := context.Background()

	h.mu.Lock()
	if err := h.roomService.NextVideo(ctx, h.rm, h.playlist); err != nil {
		h.mu.Unlock()
		client.SendError(ErrCodeInternal, "failed to advance playlist")
		return
	}
	playlistWire := h.playlistWireLocked()
	currentVideoID, currentTime := h.playbackSnapshotLocked()
	h.mu.Unlock()

	h.handleBroadcast(NewOutgoingMessage(TypePlaylistUpdate, PlaylistUpdatePayload{Playlist: playlistWire}), "")

	if currentVideoID != nil {
		h.handleBroadcast(NewOutgoingMessage(TypePlayVideo, PlayVideoPayload{VideoID: *currentVideoID, CurrentTime: currentTime}), "")
	}
}

// handlePlay e handlePause aplicam um comando explícito de
// reprodução/pausa. Qualquer participante pode emiti-los — o sistema
// trata guests como controles remotos do host.
func (h *RoomHub) handlePlay(client *Client) {
	h.setPlaying(client, true)
}

func (h *RoomHub) handlePause(client *Client) {
	h.setPlaying(client, false)
}

func (h *RoomHub) setPlaying(client *Client, playing bool) {
	ctx := context.Background()
	now := time.Now()

	h.mu.Lock()
	if err := h.roomService.SetPlaying(ctx, h.rm, playing, now); err != nil {
		h.mu.Unlock()
		client.SendError(ErrCodeInternal, "failed to update playback state")
		return
	}
	currentTime := h.rm.CurrentTime
	h.mu.Unlock()

	msgType := TypePause
	if playing {
		msgType = TypePlay
	}
	h.log.WithClient(client.UserID()).Printf("set playing=%v at %.2fs", playing, currentTime)
	h.handleBroadcast(NewOutgoingMessage(msgType, PlayPayload{CurrentTime: currentTime}), "")
}

// handleSyncTime processa o relatório periódico de posição do host.
// Apenas o host emite SYNC_TIME; o remetente nunca recebe seu próprio
// SYNC_TIME de volta. Durante a janela de cooldown após um PLAY/PAUSE
// explícito, o campo isPlaying deste relatório é ignorado para não
// reverter um comando mais recente ainda em trânsito.
func (h *RoomHub) handleSyncTime(client *Client, payload json.RawMessage) {
	if !client.IsHost() {
		client.SendError(ErrCodeInvalidPayload, "only the host reports playback position")
		return
	}

	var p SyncTimePayload
	if err := json.Unmarshal(payload, &p); err != nil {
		client.SendError(ErrCodeInvalidPayload, "invalid SYNC_TIME payload")
		return
	}

	ctx := context.Background()
	now := time.Now()

	h.mu.Lock()
	if !h.roomService.InCooldown(h.rm, now) {
		h.rm.IsPlaying = p.IsPlaying
	}

	persist := now.Sub(h.lastPositionPersist) >= h.roomService.PositionThrottle()
	if err := h.roomService.ReportPosition(ctx, h.rm, p.CurrentTime, persist); err != nil {
		h.mu.Unlock()
		client.SendError(ErrCodeInternal, "failed to report position")
		return
	}
	if persist {
		h.lastPositionPersist = now
	}
	isPlaying := h.rm.IsPlaying
	h.mu.Unlock()

	h.handleBroadcast(NewOutgoingMessage(TypeSyncTime, SyncTimeBroadcastPayload{
		CurrentTime: p.CurrentTime,
		IsPlaying:   isPlaying,
	}), client.UserID())
}

// sendSyncState envia o estado completo da sala para um único
// cliente — usado imediatamente após JOIN.
func (h *RoomHub) sendSyncState(client *Client) {
	h.mu.RLock()
	payload := RoomStatePayload{
		Code:           string(h.rm.Code),
		CurrentVideoID: h.rm.CurrentVideoID,
		IsPlaying:      h.rm.IsPlaying,
		CurrentTime:    h.rm.CurrentTime,
		Playlist:       h.playlistWireLocked(),
	}
	h.mu.RUnlock()

	client.Send(NewOutgoingMessage(TypeSyncState, payload))
}

// playlistWireLocked converte a playlist em memória para o formato do
// fio. Deve ser chamado com h.mu já travado.
func (h *RoomHub) playlistWireLocked() []VideoInfo {
	out := make([]VideoInfo, 0, len(h.playlist))
	for _, v := range h.playlist {
		out = append(out, VideoInfo{
			ID:           string(v.ID),
			YoutubeID:    v.ExternalID,
			Title:        v.Title,
			ThumbnailURL: v.ThumbnailURL,
			AddedBy:      v.AddedBy,
			IsPlayed:     v.IsPlayed,
			Order:        v.Order,
		})
	}
	return out
}

// playbackSnapshotLocked retorna o vídeo atual e o tempo corrente.
// Deve ser chamado com h.mu já travado.
func (h *RoomHub) playbackSnapshotLocked() (*string, float64) {
	return h.rm.CurrentVideoID, h.rm.CurrentTime
}
