package reconciler

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/vinib1903/cineus-api/internal/ports/ws"
)

// baseBackoff e maxBackoff definem a curva de reconexão:
// min(baseBackoff*2^n, maxBackoff).
const (
	baseBackoff = 1000 * time.Millisecond
	maxBackoff  = 30 * time.Second

	heartbeatInterval = 30 * time.Second
	pongTimeout       = 5 * time.Second

	hostPositionReportInterval = 2 * time.Second

	// suppressWindow é por quanto tempo o host ignora o eco de um
	// comando de reprodução que ele mesmo acabou de emitir, evitando
	// que o player local sofra um soluço ao reaplicar o próprio comando.
	suppressWindow = 1500 * time.Millisecond
)

// ErrClosed é retornado por operações de envio quando não há transporte
// conectado: antes da primeira conexão, entre reconexões ou depois de
// Stop().
var ErrClosed = errors.New("session closed")

// Handlers agrupa os callbacks que a Session invoca para cada tipo de
// mensagem do servidor, e a função que o host usa para obter sua
// posição de reprodução local a cada ciclo de SYNC_TIME.
type Handlers struct {
	OnSyncState      func(ws.RoomStatePayload)
	OnPlaylistUpdate func(ws.PlaylistUpdatePayload)
	OnPlay           func(ws.PlayPayload)
	OnPause          func(ws.PausePayload)
	OnPlayVideo      func(ws.PlayVideoPayload)
	OnSyncTime       func(ws.SyncTimeBroadcastPayload)
	OnError          func(ws.ErrorPayload)

	// ReportPosition é chamado a cada hostPositionReportInterval,
	// apenas se role == host, para obter (tempo atual, está tocando).
	ReportPosition func() (currentTime float64, isPlaying bool)
}

// Session é o estado de uma conexão cliente com o gateway de sessões:
// reconecta com backoff exponencial, mantém o heartbeat de aplicação e
// reconcilia otimisticamente o estado local com as confirmações do
// servidor.
type Session struct {
	dial     Dialer
	roomCode string
	userID   string
	role     string
	handlers Handlers

	mu        sync.RWMutex
	state     State
	transport Transport
	attempt   int

	pendingMu sync.Mutex
	pending   map[string]struct{}

	suppressMu    sync.Mutex
	suppressUntil time.Time

	lastPongMu sync.Mutex
	lastPong   time.Time

	ctx    context.Context
	cancel context.CancelFunc
}

// NewSession cria uma sessão ainda desconectada. dial abre o transporte
// físico (um coder/websocket real em produção, um par de canais em
// memória em testes).
func NewSession(dial Dialer, roomCode, userID, role string, handlers Handlers) *Session {
	ctx, cancel := context.WithCancel(context.Background())
	return &Session{
		dial:     dial,
		roomCode: roomCode,
		userID:   userID,
		role:     role,
		handlers: handlers,
		state:    StateDisconnected,
		pending:  make(map[string]struct{}),
		ctx:      ctx,
		cancel:   cancel,
	}
}

// State retorna o estado atual da conexão.
func (s *Session) State() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

func (s *Session) setState(st State) {
	s.mu.Lock()
	s.state = st
	s.mu.Unlock()
}

func (s *Session) isHost() bool {
	return s.role == ws.RoleHost
}

// Run conduz o ciclo conectar → autenticar (JOIN) → operar até cair →
// backoff → reconectar, até que o contexto seja cancelado (Stop()).
// Bloqueia a chamadora; deve ser chamado em sua própria goroutine.
func (s *Session) Run() {
	for {
		if s.ctx.Err() != nil {
			s.setState(StateDisconnected)
			return
		}

		s.setState(StateConnecting)
		transport, err := s.dial(s.ctx)
		if err != nil {
			if !s.sleepBackoff() {
				return
			}
			continue
		}

		if err := s.join(transport); err != nil {
			transport.Close()
			if !s.sleepBackoff() {
				return
			}
			continue
		}

		s.mu.Lock()
		s.transport = transport
		s.attempt = 0
		s.mu.Unlock()
		s.setState(StateConnected)
		s.touchPong()

		s.runConnected(transport)

		transport.Close()
		s.mu.Lock()
		s.transport = nil
		s.mu.Unlock()

		if s.ctx.Err() != nil {
			s.setState(StateDisconnected)
			return
		}
		s.setState(StateDisconnected)
		if !s.sleepBackoff() {
			return
		}
	}
}

// sleepBackoff espera min(baseBackoff*2^attempt, maxBackoff) antes da
// próxima tentativa, incrementando o contador. Retorna false se a
// sessão foi encerrada durante a espera.
func (s *Session) sleepBackoff() bool {
	s.mu.Lock()
	attempt := s.attempt
	s.attempt++
	s.mu.Unlock()

	delay := backoffDelay(attempt)
	timer := time.NewTimer(delay)
	defer timer.Stop()

	select {
	case <-s.ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}

func backoffDelay(attempt int) time.Duration {
	d := baseBackoff
	for i := 0; i < attempt; i++ {
		d *= 2
		if d >= maxBackoff {
			return maxBackoff
		}
	}
	return d
}

// join envia o JOIN inicial. A confirmação de sucesso é implícita: o
// primeiro SYNC_STATE que chegar é tratado em runConnected.
func (s *Session) join(t Transport) error {
	payload, _ := json.Marshal(ws.JoinPayload{
		UserID: s.userID,
		Role:   s.role,
	})
	msg := ws.IncomingMessage{Type: ws.TypeJoin, RoomID: s.roomCode, Payload: payload}
	data, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	return t.Send(s.ctx, data)
}

// runConnected opera a conexão estabelecida até que o transporte caia,
// o watchdog de heartbeat dispare ou o contexto seja cancelado.
func (s *Session) runConnected(t Transport) {
	ctx, cancel := context.WithCancel(s.ctx)
	defer cancel()

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		s.heartbeatLoop(ctx, t)
	}()

	if s.isHost() && s.handlers.ReportPosition != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.positionReportLoop(ctx, t)
		}()
	}

	s.readLoop(ctx, t)
	cancel()
	wg.Wait()
}

// readLoop lê e despacha frames até o transporte falhar.
func (s *Session) readLoop(ctx context.Context, t Transport) {
	for {
		data, err := t.Receive(ctx)
		if err != nil {
			return
		}

		var msg ws.OutgoingMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			continue
		}

		s.dispatch(msg)
	}
}

// dispatch encaminha uma mensagem recebida ao callback correspondente,
// aplicando a reconciliação otimista e a janela de supressão do host
// antes de notificar a camada de UI.
func (s *Session) dispatch(msg ws.OutgoingMessage) {
	raw, err := json.Marshal(msg.Payload)
	if err != nil {
		return
	}

	switch msg.Type {
	case ws.TypeSyncState:
		var p ws.RoomStatePayload
		if json.Unmarshal(raw, &p) == nil {
			s.clearConfirmedPending(p.Playlist)
			if s.handlers.OnSyncState != nil {
				s.handlers.OnSyncState(p)
			}
		}

	case ws.TypePlaylistUpdate:
		var p ws.PlaylistUpdatePayload
		if json.Unmarshal(raw, &p) == nil {
			s.clearConfirmedPending(p.Playlist)
			if s.handlers.OnPlaylistUpdate != nil {
				s.handlers.OnPlaylistUpdate(p)
			}
		}

	case ws.TypePlay:
		if s.isHost() && s.suppressed() {
			return
		}
		var p ws.PlayPayload
		if json.Unmarshal(raw, &p) == nil && s.handlers.OnPlay != nil {
			s.handlers.OnPlay(p)
		}

	case ws.TypePause:
		if s.isHost() && s.suppressed() {
			return
		}
		var p ws.PausePayload
		if json.Unmarshal(raw, &p) == nil && s.handlers.OnPause != nil {
			s.handlers.OnPause(p)
		}

	case ws.TypePlayVideo:
		if s.isHost() && s.suppressed() {
			return
		}
		var p ws.PlayVideoPayload
		if json.Unmarshal(raw, &p) == nil && s.handlers.OnPlayVideo != nil {
			s.handlers.OnPlayVideo(p)
		}

	case ws.TypeSyncTime:
		var p ws.SyncTimeBroadcastPayload
		if json.Unmarshal(raw, &p) == nil && s.handlers.OnSyncTime != nil {
			s.handlers.OnSyncTime(p)
		}

	case ws.TypePong:
		s.touchPong()

	case ws.TypeError:
		s.pendingMu.Lock()
		s.pending = make(map[string]struct{})
		s.pendingMu.Unlock()

		var p ws.ErrorPayload
		if json.Unmarshal(raw, &p) == nil && s.handlers.OnError != nil {
			s.handlers.OnError(p)
		}
	}
}

// heartbeatLoop envia PING a cada heartbeatInterval e força uma queda
// de conexão (fechando o transporte, o que encerra runConnected) se
// nenhum PONG chegar dentro de pongTimeout depois do último envio.
func (s *Session) heartbeatLoop(ctx context.Context, t Transport) {
	ticker := time.NewTicker(heartbeatInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			msg := ws.IncomingMessage{Type: ws.TypePing}
			data, err := json.Marshal(msg)
			if err != nil {
				continue
			}
			sentAt := time.Now()
			if err := t.Send(ctx, data); err != nil {
				return
			}

			timer := time.NewTimer(pongTimeout)
			select {
			case <-ctx.Done():
				timer.Stop()
				return
			case <-timer.C:
				if s.pongSince(sentAt) {
					continue
				}
				// Fechar o transporte faz o Receive de readLoop falhar,
				// o que encerra runConnected e leva à reconexão.
				t.Close()
				return
			}
		}
	}
}

func (s *Session) touchPong() {
	s.lastPongMu.Lock()
	s.lastPong = time.Now()
	s.lastPongMu.Unlock()
}

func (s *Session) pongSince(t time.Time) bool {
	s.lastPongMu.Lock()
	defer s.lastPongMu.Unlock()
	return s.lastPong.After(t)
}

// positionReportLoop é o laço exclusivo do host: reporta a posição de
// reprodução local a cada hostPositionReportInterval via SYNC_TIME.
func (s *Session) positionReportLoop(ctx context.Context, t Transport) {
	ticker := time.NewTicker(hostPositionReportInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			currentTime, isPlaying := s.handlers.ReportPosition()
			payload, _ := json.Marshal(ws.SyncTimePayload{
				CurrentTime: currentTime,
				IsPlaying:   isPlaying,
			})
			msg := ws.IncomingMessage{Type: ws.TypeSyncTime, RoomID: s.roomCode, Payload: payload}
			data, err := json.Marshal(msg)
			if err != nil {
				continue
			}
			if err := t.Send(ctx, data); err != nil {
				return
			}
		}
	}
}

// send serializa e envia uma mensagem pelo transporte ativo. Retorna
// ErrClosed se a sessão não está conectada no momento.
func (s *Session) send(msgType ws.MessageType, payload interface{}) error {
	s.mu.RLock()
	t := s.transport
	s.mu.RUnlock()
	if t == nil {
		return ErrClosed
	}

	raw, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	data, err := json.Marshal(ws.IncomingMessage{Type: msgType, RoomID: s.roomCode, Payload: raw})
	if err != nil {
		return err
	}
	return t.Send(s.ctx, data)
}

// AddVideoOptimistic envia ADD_VIDEO e marca o item como pendente na
// UI local (tag "optimistic-<externalID>") até que um PLAYLIST_UPDATE
// confirme a entrada correspondente.
func (s *Session) AddVideoOptimistic(externalID, title, thumbnailURL string) error {
	s.pendingMu.Lock()
	s.pending[optimisticTag(externalID)] = struct{}{}
	s.pendingMu.Unlock()

	return s.send(ws.TypeAddVideo, ws.AddVideoPayload{
		YoutubeID:    externalID,
		Title:        title,
		ThumbnailURL: thumbnailURL,
	})
}

// IsPending indica se um vídeo adicionado otimisticamente ainda não foi
// confirmado pelo servidor.
func (s *Session) IsPending(externalID string) bool {
	s.pendingMu.Lock()
	defer s.pendingMu.Unlock()
	_, ok := s.pending[optimisticTag(externalID)]
	return ok
}

func optimisticTag(externalID string) string {
	return "optimistic-" + externalID
}

// clearConfirmedPending remove da lista de pendências otimistas
// qualquer item agora presente na playlist confirmada pelo servidor.
func (s *Session) clearConfirmedPending(playlist []ws.VideoInfo) {
	s.pendingMu.Lock()
	defer s.pendingMu.Unlock()
	for _, v := range playlist {
		delete(s.pending, optimisticTag(v.YoutubeID))
	}
}

// Play, Pause, SelectVideo e NextVideo são os comandos que qualquer
// participante pode emitir. No host, cada um abre a janela de supressão
// de eco antes de enviar, para que o PLAY/PAUSE/PLAY_VIDEO que o
// servidor ecoa de volta não seja reaplicado ao player local.
func (s *Session) Play() error {
	s.armSuppression()
	return s.send(ws.TypePlay, nil)
}

func (s *Session) Pause() error {
	s.armSuppression()
	return s.send(ws.TypePause, nil)
}

func (s *Session) SelectVideo(externalID string) error {
	s.armSuppression()
	return s.send(ws.TypeSelectVideo, ws.SelectVideoPayload{YoutubeID: externalID})
}

func (s *Session) NextVideo() error {
	s.armSuppression()
	return s.send(ws.TypeNextVideo, nil)
}

// RemoveVideo remove uma entrada da playlist; não participa da
// supressão de eco, pois não afeta diretamente o player local.
func (s *Session) RemoveVideo(videoID string) error {
	return s.send(ws.TypeRemoveVideo, ws.RemoveVideoPayload{VideoID: videoID})
}

func (s *Session) armSuppression() {
	if !s.isHost() {
		return
	}
	s.suppressMu.Lock()
	s.suppressUntil = time.Now().Add(suppressWindow)
	s.suppressMu.Unlock()
}

func (s *Session) suppressed() bool {
	s.suppressMu.Lock()
	defer s.suppressMu.Unlock()
	return time.Now().Before(s.suppressUntil)
}

// Stop encerra a sessão: cancela o contexto, fazendo Run() retornar
// assim que a operação corrente (leitura ou espera de backoff) notar o
// cancelamento, e fecha o transporte ativo se houver um. Idempotente.
func (s *Session) Stop() {
	s.cancel()
	s.mu.RLock()
	t := s.transport
	s.mu.RUnlock()
	if t != nil {
		t.Close()
	}
}
