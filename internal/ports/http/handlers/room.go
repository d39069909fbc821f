package handlers

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	approom "github.com/vinib1903/cineus-api/internal/app/room"
	"github.com/vinib1903/cineus-api/internal/domain/room"
	"github.com/vinib1903/cineus-api/internal/domain/video"
	"github.com/vinib1903/cineus-api/internal/ports/http/httputil"
)

// RoomHandler gerencia as rotas REST de salas. Não há autenticação:
// qualquer requisição pode criar uma sala ou consultar seu estado pelo
// código público.
type RoomHandler struct {
	roomService *approom.Service
}

// NewRoomHandler cria uma nova instância do handler.
func NewRoomHandler(roomService *approom.Service) *RoomHandler {
	return &RoomHandler{roomService: roomService}
}

// RoomResponse é a representação de uma sala na resposta.
type RoomResponse struct {
	Code           string      `json:"code"`
	CurrentVideoID *string     `json:"currentVideoId"`
	IsPlaying      bool        `json:"isPlaying"`
	CurrentTime    float64     `json:"currentTime"`
	Videos         []VideoInfo `json:"videos"`
	CreatedAt      string      `json:"createdAt"`
}

// roomEnvelope envelopa RoomResponse sob a chave "room", conforme o
// contrato de fio REST.
type roomEnvelope struct {
	Room RoomResponse `json:"room"`
}

// VideoInfo é a representação de uma entrada de playlist na resposta REST.
type VideoInfo struct {
	ID           string `json:"id"`
	YoutubeID    string `json:"youtubeId"`
	Title        string `json:"title"`
	ThumbnailURL string `json:"thumbnailUrl"`
	AddedBy      string `json:"addedBy"`
	IsPlayed     bool   `json:"isPlayed"`
	Order        int    `json:"order"`
}

func toRoomResponse(r *room.Room, videos []*video.Video) RoomResponse {
	wire := make([]VideoInfo, 0, len(videos))
	for _, v := range videos {
		wire = append(wire, VideoInfo{
			ID:           string(v.ID),
			YoutubeID:    v.ExternalID,
			Title:        v.Title,
			ThumbnailURL: v.ThumbnailURL,
			AddedBy:      v.AddedBy,
			IsPlayed:     v.IsPlayed,
			Order:        v.Order,
		})
	}

	return RoomResponse{
		Code:           string(r.Code),
		CurrentVideoID: r.CurrentVideoID,
		IsPlaying:      r.IsPlaying,
		CurrentTime:    r.CurrentTime,
		Videos:         wire,
		CreatedAt:      r.CreatedAt.Format("2006-01-02T15:04:05Z"),
	}
}

// Create cria uma nova sala vazia e retorna seu código público.
// POST /api/v1/rooms
func (h *RoomHandler) Create(w http.ResponseWriter, r *http.Request) {
	rm, err := h.roomService.CreateRoom(r.Context())
	if err != nil {
		httputil.InternalServerError(w, "failed to create room")
		return
	}

	httputil.JSON(w, http.StatusCreated, roomEnvelope{Room: toRoomResponse(rm, nil)})
}

// GetByCode busca uma sala e sua playlist pelo código público.
// GET /api/v1/rooms/{code}
func (h *RoomHandler) GetByCode(w http.ResponseWriter, r *http.Request) {
	code := chi.URLParam(r, "code")
	if code == "" {
		httputil.BadRequest(w, "room code is required")
		return
	}

	rm, videos, err := h.roomService.GetByCode(r.Context(), room.Code(code))
	if err != nil {
		handleRoomError(w, err)
		return
	}

	httputil.JSON(w, http.StatusOK, roomEnvelope{Room: toRoomResponse(rm, videos)})
}

// handleRoomError traduz erros de domínio/serviço em respostas HTTP.
func handleRoomError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, approom.ErrRoomNotFound):
		httputil.NotFound(w, "room not found")
	case errors.Is(err, approom.ErrInvalidCode):
		httputil.BadRequest(w, "invalid room code")
	default:
		httputil.InternalServerError(w, "an unexpected error occurred")
	}
}
