// Package reconciler implementa o lado cliente do protocolo de
// sincronização de salas: a máquina de estados de conexão, o backoff de
// reconexão, o heartbeat de aplicação e a reconciliação otimista da UI
// descritos para o client-side deste sistema. É um pacote Go testável
// sem navegador: a camada de transporte é injetada, e tanto um cliente
// real (coder/websocket) quanto um teste podem implementá-la.
package reconciler

import "context"

// Transport abstrai o envio/recebimento de frames de texto de uma
// conexão WebSocket, nos mesmos moldes do par send-channel +
// context-cancellation do teacher's internal/ports/ws.Client — aqui
// invertido para o lado cliente e exposto como uma interface para que
// os testes substituam a conexão real por um par de canais em memória.
type Transport interface {
	// Send escreve um frame de texto. Deve ser seguro para chamadas
	// concorrentes com Receive e consigo mesma: a Session envia a partir
	// de várias goroutines (heartbeat, relatório de posição do host e
	// comandos da UI).
	Send(ctx context.Context, data []byte) error

	// Receive bloqueia até o próximo frame de texto chegar ou ctx ser
	// cancelado. Retorna erro quando a conexão cai.
	Receive(ctx context.Context) ([]byte, error)

	// Close encerra a conexão subjacente.
	Close() error
}

// Dialer abre uma nova conexão de transporte. A Session chama Dialer
// a cada tentativa de conexão/reconexão.
type Dialer func(ctx context.Context) (Transport, error)
