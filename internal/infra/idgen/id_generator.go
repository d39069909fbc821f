package idgen

import (
	"github.com/google/uuid"
)

// IDGenerator gera os identificadores internos de salas e vídeos.
// Isolado num pacote próprio para que o domínio não dependa diretamente
// de uuid e para permitir substituir a estratégia de geração nos testes.
type IDGenerator struct{}

// NewIDGenerator cria uma nova instância do gerador.
func NewIDGenerator() *IDGenerator {
	return &IDGenerator{}
}

// NewID gera um novo UUID v4.
func (g *IDGenerator) NewID() string {
	return uuid.New().String()
}
