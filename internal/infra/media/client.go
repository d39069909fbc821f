package media

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"
)

// ErrAllProvidersFailed é retornado quando todo provedor upstream
// configurado falhou por um motivo diferente de "não encontrado" —
// timeout, conexão recusada, status 5xx. Distinto de ErrNotFound:
// aqui não se sabe se o recurso existe, só que ninguém respondeu.
var ErrAllProvidersFailed = errors.New("all metadata providers failed")

// ErrNotFound é retornado quando todo provedor tentado respondeu, mas
// nenhum conhece o recurso pedido (HTTP 404 de cada um).
var ErrNotFound = errors.New("video not found")

// VideoMetadata é o registro opaco de vídeo que cruza a fronteira do
// provedor de metadados upstream — este serviço nunca interpreta seu
// conteúdo além destes campos.
type VideoMetadata struct {
	ExternalID   string `json:"externalId"`
	Title        string `json:"title"`
	Thumbnail    string `json:"thumbnail"`
	ChannelTitle string `json:"channelTitle"`
}

// PlaylistResult é a resolução completa de uma playlist upstream:
// metadados da playlist em si mais as entradas concatenadas de todas
// as páginas percorridas.
type PlaylistResult struct {
	PlaylistID string          `json:"playlistId"`
	Title      string          `json:"title"`
	VideoCount int             `json:"videoCount"`
	Videos     []VideoMetadata `json:"videos"`
}

// Client consulta um ou mais provedores de metadados upstream,
// tentando cada base URL configurada em ordem até uma responder.
type Client struct {
	httpClient *http.Client
	baseURLs   []string
	timeout    time.Duration
}

// NewClient cria um cliente de metadados com a lista de provedores
// configurada, na ordem de fallback.
func NewClient(baseURLs []string, timeout time.Duration) *Client {
	return &Client{
		httpClient: &http.Client{},
		baseURLs:   baseURLs,
		timeout:    timeout,
	}
}

// Search consulta o termo de busca no primeiro provedor que responder.
func (c *Client) Search(ctx context.Context, query string) ([]VideoMetadata, error) {
	var results []VideoMetadata
	err := c.tryProviders(ctx, "/search", map[string]string{"q": query}, &results)
	return results, err
}

// GetVideo busca os metadados de um único vídeo pelo id externo.
func (c *Client) GetVideo(ctx context.Context, externalID string) (*VideoMetadata, error) {
	var result VideoMetadata
	err := c.tryProviders(ctx, "/video", map[string]string{"id": externalID}, &result)
	if err != nil {
		return nil, err
	}
	return &result, nil
}

// GetPlaylist concatena até 10 páginas de uma playlist upstream,
// parando em ~1000 entradas. A paginação é sequencial — cada página
// depende do token retornado pela anterior — por isso não há fan-out
// concorrente aqui.
func (c *Client) GetPlaylist(ctx context.Context, playlistID string) (*PlaylistResult, error) {
	const maxPages = 10
	const maxEntries = 1000

	var all []VideoMetadata
	var title string
	pageToken := ""

	for page := 0; page < maxPages; page++ {
		var resp struct {
			Title         string          `json:"title"`
			Items         []VideoMetadata `json:"items"`
			NextPageToken string          `json:"nextPageToken"`
		}

		params := map[string]string{"playlistId": playlistID}
		if pageToken != "" {
			params["pageToken"] = pageToken
		}

		if err := c.tryProviders(ctx, "/playlist", params, &resp); err != nil {
			return nil, err
		}
		if page == 0 {
			title = resp.Title
		}

		all = append(all, resp.Items...)
		if len(all) >= maxEntries || resp.NextPageToken == "" {
			if len(all) > maxEntries {
				all = all[:maxEntries]
			}
			break
		}
		pageToken = resp.NextPageToken
	}

	return &PlaylistResult{
		PlaylistID: playlistID,
		Title:      title,
		VideoCount: len(all),
		Videos:     all,
	}, nil
}

// tryProviders tenta cada base URL configurada, em ordem, até uma
// responder com sucesso dentro do timeout configurado. Se todo
// provedor tentado responder "não encontrado", o erro reportado é
// ErrNotFound; qualquer outro tipo de falha (mesmo que só um
// provedor a tenha sofrido) reporta ErrAllProvidersFailed, já que
// nesse caso não se pode afirmar que o recurso realmente não existe.
func (c *Client) tryProviders(ctx context.Context, path string, query map[string]string, out interface{}) error {
	if len(c.baseURLs) == 0 {
		return ErrAllProvidersFailed
	}

	var lastErr error
	allNotFound := true
	for _, base := range c.baseURLs {
		err := c.fetchOne(ctx, base, path, query, out)
		if err == nil {
			return nil
		}
		if !errors.Is(err, ErrNotFound) {
			allNotFound = false
		}
		lastErr = err
	}

	if allNotFound {
		return ErrNotFound
	}
	return fmt.Errorf("%w: %v", ErrAllProvidersFailed, lastErr)
}

func (c *Client) fetchOne(ctx context.Context, base, path string, query map[string]string, out interface{}) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, base+path, nil)
	if err != nil {
		return err
	}

	q := req.URL.Query()
	for k, v := range query {
		q.Set(k, v)
	}
	req.URL.RawQuery = q.Encode()

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return ErrNotFound
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("provider %s returned status %d", base, resp.StatusCode)
	}

	return json.NewDecoder(resp.Body).Decode(out)
}
