package ws

import (
	"context"
	"encoding/json"
	"log"
	"sync"
	"time"

	"github.com/coder/websocket"
	"github.com/vinib1903/cineus-api/internal/domain/room"
)

const (
	// Tempo máximo para escrever uma mensagem.
	writeWait = 10 * time.Second

	// Tamanho máximo da mensagem.
	maxMessageSize = 4096

	// Tamanho do buffer do canal de envio.
	sendBufferSize = 256
)

// Client representa uma conexão WebSocket de um participante. A
// identidade (userID/role/roomCode) só é conhecida depois do primeiro
// JOIN — até lá o cliente existe "solto", sem sala associada. Isto
// inverte a ordem do handshake de autenticação do teacher original,
// onde o usuário era resolvido antes do upgrade; aqui não há
// autenticação alguma, então a conexão é aceita primeiro e a
// identidade chega como a primeira mensagem do protocolo.
type Client struct {
	hub  *Hub
	conn *websocket.Conn
	send chan []byte

	mu       sync.RWMutex
	joined   bool
	userID   string
	role     string
	roomCode room.Code
	roomHub  *RoomHub

	ctx    context.Context
	cancel context.CancelFunc
}

// NewClient cria um cliente ainda não associado a nenhuma sala.
func NewClient(hub *Hub, conn *websocket.Conn) *Client {
	ctx, cancel := context.WithCancel(context.Background())
	return &Client{
		hub:    hub,
		conn:   conn,
		send:   make(chan []byte, sendBufferSize),
		ctx:    ctx,
		cancel: cancel,
	}
}

// Joined indica se o cliente já completou o handshake JOIN.
func (c *Client) Joined() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.joined
}

func (c *Client) UserID() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.userID
}

func (c *Client) Role() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.role
}

func (c *Client) IsHost() bool {
	return c.Role() == RoleHost
}

// setJoined marca a conexão como associada a uma sala. Chamado uma
// única vez, pelo hub global, após validar o JOIN.
func (c *Client) setJoined(userID, role string, code room.Code, roomHub *RoomHub) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.joined = true
	c.userID = userID
	c.role = role
	c.roomCode = code
	c.roomHub = roomHub
}

func (c *Client) currentRoomHub() *RoomHub {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.roomHub
}

// Run inicia as goroutines de leitura e escrita. Bloqueia até a
// conexão encerrar.
func (c *Client) Run() {
	go c.writePump()
	c.readPump()
}

// readPump lê mensagens do WebSocket e as despacha. Antes do JOIN,
// qualquer tipo de mensagem que não seja JOIN ou PING é rejeitado com
// um ERROR — a conexão continua aberta, só a mensagem é descartada.
func (c *Client) readPump() {
	defer func() {
		if rh := c.currentRoomHub(); rh != nil {
			rh.unregister <- c
		}
		c.conn.Close(websocket.StatusNormalClosure, "connection closed")
		c.cancel()
	}()

	c.conn.SetReadLimit(maxMessageSize)

	for {
		msgType, data, err := c.conn.Read(c.ctx)
		if err != nil {
			if websocket.CloseStatus(err) == websocket.StatusNormalClosure {
				log.Printf("client %s disconnected normally", c.UserID())
			} else {
				log.Printf("client %s read error: %v", c.UserID(), err)
			}
			return
		}

		if msgType != websocket.MessageText {
			continue
		}

		var msg IncomingMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			c.SendError(ErrCodeInvalidPayload, "invalid message format")
			continue
		}

		if msg.Type == TypePing {
			// PING sempre recebe PONG imediato, nunca é propagado.
			c.Send(NewOutgoingMessage(TypePong, nil))
			continue
		}

		if !c.Joined() {
			if msg.Type != TypeJoin {
				c.SendError(ErrCodeNotJoined, "must send JOIN before any other message")
				continue
			}
			c.hub.handleJoin(c, &msg)
			continue
		}

		if msg.Type == TypeJoin {
			c.SendError(ErrCodeAlreadyJoined, "already joined a room on this connection")
			continue
		}

		// Cada mutação é roteada pelo roomId da própria mensagem, não
		// pela sala em que a conexão fez JOIN: se divergirem, vale o
		// roomId da mensagem. Não há reautenticação por mensagem — a
		// identidade (userID/role) já é implícita no canal.
		if msg.RoomID == "" {
			c.SendError(ErrCodeInvalidPayload, "roomId is required")
			continue
		}

		rh, err := c.hub.getOrLoadRoom(c.ctx, room.Code(msg.RoomID))
		if err != nil {
			c.SendError(ErrCodeRoomNotFound, "room not found")
			continue
		}

		rh.handleMessage(c, &msg)
	}
}

// writePump envia mensagens do canal para o WebSocket. Não há ping de
// transporte: a vivacidade da conexão é mantida pelo PING de aplicação
// que o cliente envia (ver internal/reconciler), e este servidor não
// impõe um timeout de inatividade sobre os canais de cliente.
func (c *Client) writePump() {
	defer c.conn.Close(websocket.StatusNormalClosure, "write pump closed")

	for {
		select {
		case <-c.ctx.Done():
			return

		case message, ok := <-c.send:
			if !ok {
				return
			}

			ctx, cancel := context.WithTimeout(c.ctx, writeWait)
			err := c.conn.Write(ctx, websocket.MessageText, message)
			cancel()

			if err != nil {
				log.Printf("client %s write error: %v", c.UserID(), err)
				return
			}
		}
	}
}

// Send envia uma mensagem para o cliente. Nunca bloqueia: se o buffer
// estiver cheio o cliente é considerado lento demais e a conexão é
// encerrada, mas isso não afeta o envio para os demais clientes da
// sala (fan-out best-effort).
func (c *Client) Send(msg *OutgoingMessage) {
	data, err := json.Marshal(msg)
	if err != nil {
		log.Printf("client %s: failed to marshal message: %v", c.UserID(), err)
		return
	}

	select {
	case c.send <- data:
	default:
		log.Printf("client %s: send buffer full, closing connection", c.UserID())
		c.cancel()
	}
}

// SendError envia uma mensagem de erro só para este cliente.
func (c *Client) SendError(code, message string) {
	c.Send(NewOutgoingMessage(TypeError, ErrorPayload{
		Code:    code,
		Message: message,
	}))
}

// Close fecha a conexão do cliente.
func (c *Client) Close() {
	c.cancel()
}
