package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config armazena todas as configurações da aplicação.
type Config struct {
	Server ServerConfig
	DB     DatabaseConfig
	Room   RoomConfig
	Media  MediaConfig
}

// ServerConfig contém configurações do servidor HTTP.
type ServerConfig struct {
	Port        string
	Environment string
}

// DatabaseConfig contém configurações do PostgreSQL.
type DatabaseConfig struct {
	URL string
}

// RoomConfig contém os parâmetros do registro de salas.
type RoomConfig struct {
	CodeLength                int
	CleanupGracePeriodSeconds int
	PlayPauseCooldownMS       int
	PositionThrottleSeconds   int
}

// MediaConfig contém a configuração do cliente de metadados upstream.
type MediaConfig struct {
	// ProviderBaseURLs é a lista de provedores tentados em ordem; o
	// primeiro que responder com sucesso vence.
	ProviderBaseURLs []string
	FetchTimeout     time.Duration
}

// Load carrega as configurações do arquivo .env e variáveis de ambiente.
func Load() *Config {
	err := godotenv.Load()
	if err != nil {
		log.Println("Warning: .env file not found, using environment variables")
	}

	return &Config{
		Server: ServerConfig{
			Port:        getEnv("HTTP_PORT", "8080"),
			Environment: getEnv("ENVIRONMENT", "development"),
		},
		DB: DatabaseConfig{
			URL: getEnv("DATABASE_URL", ""),
		},
		Room: RoomConfig{
			CodeLength:                getIntEnv("ROOM_CODE_LENGTH", 6),
			CleanupGracePeriodSeconds: getIntEnv("ROOM_CLEANUP_GRACE_PERIOD_SECONDS", 5),
			PlayPauseCooldownMS:       getIntEnv("ROOM_PLAY_PAUSE_COOLDOWN_MS", 3000),
			PositionThrottleSeconds:   getIntEnv("ROOM_POSITION_THROTTLE_SECONDS", 5),
		},
		Media: MediaConfig{
			ProviderBaseURLs: getListEnv("MEDIA_PROVIDER_BASE_URLS", nil),
			FetchTimeout:     getDurationEnv("MEDIA_FETCH_TIMEOUT", 8*time.Second),
		},
	}
}

// getEnv busca uma variável de ambiente.
// Se não existir, retorna o valor padrão (defaultValue).
func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

// getIntEnv busca uma variável de ambiente e converte para int.
// Se não existir ou for inválida, retorna o valor padrão.
func getIntEnv(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	intValue, err := strconv.Atoi(value)
	if err != nil {
		log.Printf("Warning: %s is not a valid number, using default %d", key, defaultValue)
		return defaultValue
	}

	return intValue
}

// getDurationEnv busca uma variável de ambiente e converte para time.Duration.
func getDurationEnv(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	duration, err := time.ParseDuration(value)
	if err != nil {
		log.Printf("Warning: %s is not a valid duration, using default value %v", key, defaultValue)
		return defaultValue
	}

	return duration
}

// getListEnv busca uma variável de ambiente separada por vírgulas,
// usada para a lista ordenada de provedores de metadados de fallback.
func getListEnv(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}
