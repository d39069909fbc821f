package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fatih/color"
	"golang.org/x/sync/errgroup"

	approom "github.com/vinib1903/cineus-api/internal/app/room"
	"github.com/vinib1903/cineus-api/internal/config"
	"github.com/vinib1903/cineus-api/internal/infra/db"
	"github.com/vinib1903/cineus-api/internal/infra/idgen"
	"github.com/vinib1903/cineus-api/internal/infra/media"
	"github.com/vinib1903/cineus-api/internal/infra/repo"
	httpport "github.com/vinib1903/cineus-api/internal/ports/http"
	"github.com/vinib1903/cineus-api/internal/ports/ws"
)

func main() {
	cfg := config.Load()

	printLogo()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	log.Println("Connecting to database...")
	dbPool, err := db.NewPostgresPool(ctx, db.DefaultPostgresConfig(cfg.DB.URL))
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer dbPool.Close()
	log.Println("Database connected successfully!")

	roomRepo := repo.NewRoomRepository(dbPool)
	videoRepo := repo.NewVideoRepository(dbPool)

	idGenerator := idgen.NewIDGenerator()
	roomService := approom.NewService(
		roomRepo, videoRepo, idGenerator,
		time.Duration(cfg.Room.PlayPauseCooldownMS)*time.Millisecond,
		time.Duration(cfg.Room.PositionThrottleSeconds)*time.Second,
		cfg.Room.CodeLength,
	)

	mediaClient := media.NewClient(cfg.Media.ProviderBaseURLs, cfg.Media.FetchTimeout)

	wsHub := ws.NewHub(roomService, time.Duration(cfg.Room.CleanupGracePeriodSeconds)*time.Second)
	wsHandler := ws.NewHandler(wsHub)

	router := httpport.NewRouter(httpport.RouterConfig{
		RoomService: roomService,
		MediaClient: mediaClient,
		WSHandler:   wsHandler,
		DBPool:      dbPool,
	})

	server := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	group, groupCtx := errgroup.WithContext(ctx)

	group.Go(func() error {
		log.Printf("Server starting on port %s...", cfg.Server.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return err
		}
		return nil
	})

	group.Go(func() error {
		return waitForShutdown(groupCtx, server)
	})

	fmt.Printf("\n-> Server ready on http://localhost:%s\n", cfg.Server.Port)
	fmt.Printf("-> Health check: http://localhost:%s/health\n", cfg.Server.Port)
	fmt.Printf("-> WebSocket gateway: ws://localhost:%s/ws\n", cfg.Server.Port)
	fmt.Printf("-> Environment: %s\n\n", cfg.Server.Environment)

	if err := group.Wait(); err != nil {
		log.Printf("Server exited with error: %v", err)
	}
}

func printLogo() {
	logo := `
 ▄▄▄▄▄▄▄                 ▄▄▄  ▄▄▄
███▀▀▀▀▀ ▀▀              ███  ███
███      ██  ████▄ ▄█▀█▄ ███  ███ ▄█▀▀▀
███      ██  ██ ██ ██▄█▀ ███▄▄███ ▀███▄
▀███████ ██▄ ██ ██ ▀█▄▄▄ ▀██████▀ ▄▄▄█▀
                                        `
	color.Blue(logo)
}

// waitForShutdown bloqueia até o contexto ser cancelado ou um sinal de
// término chegar, então desliga o servidor HTTP graciosamente.
func waitForShutdown(ctx context.Context, server *http.Server) error {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-quit:
		log.Printf("\nReceived signal: %v. Shutting down...", sig)
	case <-ctx.Done():
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("Server shutdown error: %v", err)
		return err
	}

	log.Println("Server stopped gracefully.")
	return nil
}
