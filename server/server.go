package server

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"ScoreFM/config"
	"ScoreFM/core/audio"
	"ScoreFM/core/generate"
	"ScoreFM/core/score"
	"ScoreFM/logger"
	"ScoreFM/storage"
	"ScoreFM/task"

	"github.com/gorilla/mux"
)

// Start initializes and starts the HTTP server.
func Start() {
	cfg := config.Load()

	logger.InitLogger(logger.Config{
		Level:      logger.LogLevel(os.Getenv("LOG_LEVEL")),
		OutputPath: filepath.Join("logs", "scorefm.log"),
		MaxSize:    50,
		MaxBackups: 5,
		MaxAge:     14,
		Compress:   true,
	})

	server := &http.Server{
		Addr:         ":8080",
		ReadTimeout:  5 * time.Minute, // score conversion blocks the request
		WriteTimeout: 5 * time.Minute,
		IdleTimeout:  120 * time.Second,
	}

	ensureDirExists(cfg.UploadDir)
	ensureDirExists(cfg.OutputDir)

	store, err := storage.NewArtifactStore(cfg)
	if err != nil {
		logger.Fatal("failed to initialize artifact store", logger.ErrorField(err))
	}

	registry := task.NewRegistry(cfg.TaskTTL)
	defer registry.Close()

	pool := task.NewPool(cfg.WorkerCount, cfg.QueueSize)
	defer pool.Close()

	client := generate.NewClient(cfg.ReplicateURL, cfg.ReplicateToken, cfg.ReplicateModel)
	worker := generate.NewWorker(client, registry)

	recognizer := score.NewAudiverisRecognizer(cfg.JavaPath, cfg.AudiverisDir, cfg.RecognizeTimeout)
	processor := audio.NewToolChain(cfg.FluidsynthPath, cfg.FFmpegPath)
	pipeline := score.NewPipeline(recognizer, processor, store, cfg.UploadDir, cfg.OutputDir, cfg.SoundfontPath)

	apiHandler := NewAPIHandler(registry, pool, worker, pipeline, store, cfg)

	router := mux.NewRouter()

	// CORS middleware
	router.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Access-Control-Allow-Origin", "*")
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
			w.Header().Set("Access-Control-Max-Age", "86400")

			if r.Method == "OPTIONS" {
				w.WriteHeader(http.StatusOK)
				return
			}

			next.ServeHTTP(w, r)
		})
	})

	// API Endpoints
	router.HandleFunc("/api/music/generate", apiHandler.GenerateMusicHandler).Methods(http.MethodPost)
	router.HandleFunc("/api/music/task/status", apiHandler.TaskStatusHandler).Methods(http.MethodGet)
	router.HandleFunc("/api/music/task/stream", apiHandler.TaskStreamHandler).Methods(http.MethodGet)
	router.HandleFunc("/api/process-score", apiHandler.ProcessScoreHandler).Methods(http.MethodPost)
	router.HandleFunc("/api/audio/{filename}", apiHandler.AudioHandler).Methods(http.MethodGet)

	server.Handler = router

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	go func() {
		logger.Info("server starting on :8080")
		logger.Info("generate music via POST /api/music/generate")
		logger.Info("convert scores via POST /api/process-score")
		logger.Info("poll tasks via GET /api/music/task/status?taskId=...")

		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("failed to start server", logger.ErrorField(err))
		}
	}()

	<-stop
	logger.Info("shutting down server")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.Fatal("server forced to shutdown", logger.ErrorField(err))
	}

	logger.Info("server stopped")
}

func ensureDirExists(path string) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		logger.Info("creating directory", logger.String("path", path))
		if err := os.MkdirAll(path, 0755); err != nil {
			logger.Fatal("failed to create directory",
				logger.String("path", path), logger.ErrorField(err))
		}
	} else if err != nil {
		logger.Fatal("failed to check directory",
			logger.String("path", path), logger.ErrorField(err))
	}
}
