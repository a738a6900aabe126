package main

import (
	"fmt"
	"net/http"
	"os"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/Leothelion6721/Whatsapp-attachments/internal/config"
	"github.com/Leothelion6721/Whatsapp-attachments/internal/repository/memory"
	"github.com/Leothelion6721/Whatsapp-attachments/internal/service"
	"github.com/Leothelion6721/Whatsapp-attachments/internal/storage"
	"github.com/Leothelion6721/Whatsapp-attachments/internal/transport/http/handlers"
	"github.com/Leothelion6721/Whatsapp-attachments/internal/transport/http/middleware"
	"github.com/Leothelion6721/Whatsapp-attachments/internal/transport/ws"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("loading config")
	}
	setupLogging(cfg)

	// Registries - everything lives in memory and dies with the process.
	userRepo := memory.NewUserRepo()
	chatRepo := memory.NewChatRepo()
	messageRepo := memory.NewMessageRepo()

	// Services
	tokens := service.NewTokenService(cfg.TokenSecret, cfg.TokenTTL)
	chatService := service.NewChatService(userRepo, chatRepo, messageRepo, tokens)

	// Real-time transport
	hub := ws.NewHub()
	chatService.SetNotifier(ws.NewHubNotifier(hub))

	// Attachment storage
	store, err := storage.NewDiskStore(cfg.UploadDir, "/uploads")
	if err != nil {
		log.Fatal().Err(err).Msg("initializing upload store")
	}

	// Handlers
	uploadHandler := handlers.NewUploadHandler(store, cfg.UploadMaxBytes, cfg.UploadsEnabled)
	statusHandler := handlers.NewStatusHandler(chatService, cfg.UploadsEnabled)
	filesHandler := handlers.NewFilesHandler(store)

	session := middleware.Session(tokens)

	// Routes
	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status": "ok"}`))
	})
	mux.Handle("GET /ws", ws.ServeWS(hub, chatService))
	mux.Handle("POST /api/v1/uploads", session(http.HandlerFunc(uploadHandler.Upload)))
	mux.HandleFunc("GET /api/v1/status", statusHandler.Status)
	mux.HandleFunc("GET /uploads/{filename}", filesHandler.Get)
	mux.Handle("GET /metrics", promhttp.Handler())

	addr := fmt.Sprintf(":%s", cfg.ServerPort)
	log.Info().Str("addr", addr).Bool("uploads_enabled", cfg.UploadsEnabled).Msg("starting server")
	if err := http.ListenAndServe(addr, middleware.CORS(mux)); err != nil {
		log.Fatal().Err(err).Msg("server stopped")
	}
}

func setupLogging(cfg *config.Config) {
	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)
	if cfg.LogPretty {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	}
}
