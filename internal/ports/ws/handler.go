package ws

import (
	"log"
	"net/http"

	"github.com/coder/websocket"
	"github.com/vinib1903/cineus-api/internal/ports/http/httputil"
)

// Handler faz o upgrade HTTP → WebSocket. Ao contrário do upgrade
// autenticado do teacher original, a conexão é aceita sem saber ainda
// quem é o participante: a identidade (userId/role) e a sala chegam
// na primeira mensagem JOIN, não na URL ou em credenciais HTTP.
type Handler struct {
	hub *Hub
}

// NewHandler cria um novo handler WebSocket.
func NewHandler(hub *Hub) *Handler {
	return &Handler{hub: hub}
}

// HandleConnection processa uma nova conexão WebSocket.
// GET /ws
func (h *Handler) HandleConnection(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		InsecureSkipVerify: true,
	})
	if err != nil {
		log.Printf("ws: failed to accept connection from %s: %v", r.RemoteAddr, err)
		return
	}

	client := NewClient(h.hub, conn)
	client.Run()
}

// GetStats retorna estatísticas agregadas do gateway de sessões.
func (h *Handler) GetStats(w http.ResponseWriter, r *http.Request) {
	stats := map[string]int{
		"rooms":   h.hub.GetRoomCount(),
		"clients": h.hub.GetTotalClients(),
	}
	httputil.JSON(w, http.StatusOK, stats)
}
