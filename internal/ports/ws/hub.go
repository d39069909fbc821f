package ws

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	approom "github.com/vinib1903/cineus-api/internal/app/room"
	"github.com/vinib1903/cineus-api/internal/domain/room"
	"github.com/vinib1903/cineus-api/internal/logging"
)

// defaultCleanupGracePeriod é usado quando NewHub recebe 0 para
// gracePeriod (ex.: nos testes, que montam o Hub sem passar pela
// config).
const defaultCleanupGracePeriod = 5 * time.Second

// Hub é o gerenciador global de todas as salas ativas em memória.
// Uma sala só existe aqui enquanto tiver ao menos um cliente conectado
// (ou estiver dentro da janela de carência pós-esvaziamento); seu
// estado durável vive em room.Repository/video.Repository.
type Hub struct {
	rooms map[room.Code]*RoomHub
	mu    sync.RWMutex

	roomService *approom.Service
	log         *logging.Logger

	// cleanupGracePeriod adia a remoção de uma sala vazia da memória
	// por este período, absorvendo uma reconexão rápida do mesmo
	// usuário (recarregar a página, uma rede instável) sem perder o
	// estado em memória nem recriar a sala do zero. A sala ainda é
	// removida assim que ficar vazia — isto só atrasa quando isso
	// acontece. Vem de config.RoomConfig.CleanupGracePeriodSeconds.
	cleanupGracePeriod time.Duration
}

// NewHub cria um novo hub global. gracePeriod de 0 cai em
// defaultCleanupGracePeriod.
func NewHub(roomService *approom.Service, gracePeriod time.Duration) *Hub {
	if gracePeriod <= 0 {
		gracePeriod = defaultCleanupGracePeriod
	}
	return &Hub{
		rooms:              make(map[room.Code]*RoomHub),
		roomService:        roomService,
		log:                logging.New(),
		cleanupGracePeriod: gracePeriod,
	}
}

// getOrLoadRoom retorna o RoomHub em memória de uma sala, carregando-o
// da camada durável se ainda não estiver materializado. Diferente do
// teacher original, uma sala nunca é criada aqui: só é carregada se já
// existir no repositório (criada previamente via POST /api/v1/rooms).
func (h *Hub) getOrLoadRoom(ctx context.Context, code room.Code) (*RoomHub, error) {
	h.mu.RLock()
	if rh, exists := h.rooms[code]; exists {
		h.mu.RUnlock()
		return rh, nil
	}
	h.mu.RUnlock()

	h.mu.Lock()
	defer h.mu.Unlock()

	if rh, exists := h.rooms[code]; exists {
		return rh, nil
	}

	rm, videos, err := h.roomService.GetByCode(ctx, code)
	if err != nil {
		return nil, err
	}

	rh := NewRoomHub(h, h.roomService, rm, videos, h.log.WithRoom(code.String()))
	h.rooms[code] = rh
	go rh.Run()

	h.log.WithRoom(code.String()).Println("materialized in memory")

	return rh, nil
}

// removeRoom remove uma sala do hub após a janela de carência, desde
// que ela continue vazia nesse momento.
func (h *Hub) removeRoom(code room.Code) {
	time.AfterFunc(h.cleanupGracePeriod, func() {
		h.mu.Lock()
		defer h.mu.Unlock()

		rh, exists := h.rooms[code]
		if !exists {
			return
		}
		if rh.clientCount() > 0 {
			return
		}

		delete(h.rooms, code)
		h.log.WithRoom(code.String()).Println("removed from memory")
	})
}

// handleJoin processa o JOIN de uma conexão ainda não associada. Uma
// falha aqui só envia um ERROR: a conexão continua aberta e sem sala,
// e o cliente pode tentar um novo JOIN.
func (h *Hub) handleJoin(c *Client, msg *IncomingMessage) {
	var payload JoinPayload
	if err := json.Unmarshal(msg.Payload, &payload); err != nil {
		c.SendError(ErrCodeInvalidPayload, "invalid JOIN payload")
		return
	}

	if msg.RoomID == "" || payload.UserID == "" {
		c.SendError(ErrCodeInvalidPayload, "roomId and userId are required")
		return
	}

	role := payload.Role
	if role != RoleHost && role != RoleGuest {
		role = RoleGuest
	}

	code := room.Code(msg.RoomID)

	rh, err := h.getOrLoadRoom(c.ctx, code)
	if err != nil {
		c.SendError(ErrCodeRoomNotFound, "room not found")
		return
	}

	c.setJoined(payload.UserID, role, code, rh)
	rh.register <- c
}

// GetRoomCount retorna o número de salas materializadas em memória.
func (h *Hub) GetRoomCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms)
}

// GetTotalClients retorna o número total de clientes conectados em
// todas as salas.
func (h *Hub) GetTotalClients() int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	total := 0
	for _, rh := range h.rooms {
		total += rh.clientCount()
	}
	return total
}
