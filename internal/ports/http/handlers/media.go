package handlers

import (
	"errors"
	"net/http"

	"github.com/vinib1903/cineus-api/internal/infra/media"
	"github.com/vinib1903/cineus-api/internal/ports/http/httputil"
)

// MediaHandler expõe a fronteira com o provedor de metadados upstream.
// Tudo além dos campos de media.VideoMetadata é opaco para este
// serviço — ver internal/infra/media.
type MediaHandler struct {
	mediaClient *media.Client
}

// NewMediaHandler cria uma nova instância do handler.
func NewMediaHandler(mediaClient *media.Client) *MediaHandler {
	return &MediaHandler{mediaClient: mediaClient}
}

// Search busca vídeos por termo no provedor upstream.
// GET /api/v1/media/search?q=...
func (h *MediaHandler) Search(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("q")
	if query == "" {
		httputil.BadRequest(w, "q is required")
		return
	}

	results, err := h.mediaClient.Search(r.Context(), query)
	if err != nil {
		httputil.InternalServerError(w, "failed to search media provider")
		return
	}

	httputil.JSON(w, http.StatusOK, searchEnvelope{Results: results})
}

// GetVideo busca os metadados de um único vídeo.
// GET /api/v1/media/video?id=...
func (h *MediaHandler) GetVideo(w http.ResponseWriter, r *http.Request) {
	id := r.URL.Query().Get("id")
	if id == "" {
		httputil.BadRequest(w, "id is required")
		return
	}

	result, err := h.mediaClient.GetVideo(r.Context(), id)
	if err != nil {
		if errors.Is(err, media.ErrNotFound) {
			httputil.NotFound(w, "video not found")
			return
		}
		// Total provider failure: the resource's existence is unknown,
		// not confirmed absent, so this is not a 404.
		httputil.InternalServerError(w, "failed to fetch video metadata")
		return
	}

	httputil.JSON(w, http.StatusOK, videoEnvelope{Result: *result})
}

// GetPlaylist resolve uma playlist upstream, concatenando páginas até
// o limite configurado.
// GET /api/v1/media/playlist?id=...
func (h *MediaHandler) GetPlaylist(w http.ResponseWriter, r *http.Request) {
	id := r.URL.Query().Get("id")
	if id == "" {
		httputil.BadRequest(w, "id is required")
		return
	}

	result, err := h.mediaClient.GetPlaylist(r.Context(), id)
	if err != nil {
		httputil.InternalServerError(w, "failed to resolve playlist")
		return
	}

	httputil.JSON(w, http.StatusOK, result)
}

// searchEnvelope e videoEnvelope envelopam as respostas de sucesso
// de Search e GetVideo sob as chaves "results"/"result" exigidas pelo
// contrato de fio REST. GetPlaylist não precisa de envelope próprio:
// media.PlaylistResult já carrega playlistId/title/videoCount/videos
// no formato literal esperado.
type searchEnvelope struct {
	Results []media.VideoMetadata `json:"results"`
}

type videoEnvelope struct {
	Result media.VideoMetadata `json:"result"`
}
