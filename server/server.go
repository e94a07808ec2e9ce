package server

import (
	"context"
	"math/rand"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"echofm/cache"
	"echofm/config"
	"echofm/core/ingest"
	"echofm/core/player"
	"echofm/core/playlist"
	"echofm/db"
	"echofm/logger"
	"echofm/model"
	"echofm/repository"
	"echofm/storage"

	"github.com/gorilla/mux"
)

// Start wires the core components and runs the HTTP server until interrupted.
func Start() {
	cfg := config.Load()

	logger.InitLogger(logger.Config{
		Level:      logger.LogLevel(cfg.LogLevel),
		OutputPath: cfg.LogPath,
		MaxSize:    50,
		MaxBackups: 5,
		MaxAge:     14,
		Compress:   true,
	})

	blobs, err := storage.NewMinioStore(cfg)
	if err != nil {
		logger.Fatal("failed to initialize blob storage", logger.ErrorField(err))
	}

	if err := db.ConnectDB(cfg); err != nil {
		logger.Fatal("failed to connect to database", logger.ErrorField(err))
	}
	defer db.CloseDB()

	if err := db.ConnectGormDB(cfg); err != nil {
		logger.Fatal("failed to connect to database with GORM", logger.ErrorField(err))
	}
	defer db.CloseGormDB()

	if err := db.InitDB(); err != nil {
		logger.Fatal("failed to initialize database schema", logger.ErrorField(err))
	}

	if err := cache.ConnectRedis(cfg); err != nil {
		logger.Fatal("failed to connect to Redis", logger.ErrorField(err))
	}
	defer cache.CloseRedis()

	songRepo := repository.NewMySQLSongRepository(db.DB)
	favoriteRepo := repository.NewMySQLFavoriteRepository(db.DB)

	reconciler := playlist.NewReconciler(songRepo, favoriteRepo, blobs)
	handles := player.NewHandleManager(player.RedisHandleRegistry{})
	pipeline := ingest.NewPipeline(songRepo, blobs)
	hub := NewPlaylistHub()

	notify := func(entries []*model.PlaylistEntry, favoriteIDs map[string]bool) {
		hub.Broadcast(entries, favoriteIDs)
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := cache.StorePlaylist(ctx, entries); err != nil {
			logger.Warn("failed to mirror playlist to cache", logger.ErrorField(err))
		}
	}

	rng := rand.New(rand.NewSource(time.Now().UnixNano()))
	p := player.New(songRepo, favoriteRepo, blobs, reconciler, handles, rng, notify)

	apiHandler, err := NewAPIHandler(p, pipeline, blobs, hub, cfg)
	if err != nil {
		logger.Fatal("failed to initialize API handler", logger.ErrorField(err))
	}

	rootCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Initial pass so the playlist is warm before the first request.
	if _, err := p.LoadPlaylist(rootCtx, ""); err != nil {
		logger.Warn("initial playlist load failed", logger.ErrorField(err))
	}

	if cfg.WatchDir != "" {
		watcher, err := ingest.NewWatcher(cfg.WatchDir, pipeline)
		if err != nil {
			logger.Fatal("failed to start drop directory watcher", logger.ErrorField(err))
		}
		go watcher.Run(rootCtx)
	}

	router := mux.NewRouter()
	router.Use(corsMiddleware)

	router.HandleFunc("/api/auth/login", apiHandler.LoginHandler).Methods(http.MethodPost)

	router.HandleFunc("/api/playlist", apiHandler.GetPlaylistHandler).Methods(http.MethodGet)
	router.HandleFunc("/api/history", apiHandler.GetHistoryHandler).Methods(http.MethodGet)
	router.HandleFunc("/api/favorites", apiHandler.GetFavoritesHandler).Methods(http.MethodGet)
	router.HandleFunc("/api/now", apiHandler.NowPlayingHandler).Methods(http.MethodGet)

	router.HandleFunc("/api/upload", apiHandler.AuthMiddleware(apiHandler.UploadHandler)).Methods(http.MethodPost)
	router.HandleFunc("/api/play/index/{index}", apiHandler.AuthMiddleware(apiHandler.PlayByIndexHandler)).Methods(http.MethodPost)
	router.HandleFunc("/api/play/{id}", apiHandler.AuthMiddleware(apiHandler.PlayByIDHandler)).Methods(http.MethodPost)
	router.HandleFunc("/api/next", apiHandler.AuthMiddleware(apiHandler.NextHandler)).Methods(http.MethodPost)
	router.HandleFunc("/api/previous", apiHandler.AuthMiddleware(apiHandler.PreviousHandler)).Methods(http.MethodPost)
	router.HandleFunc("/api/favorites/{id}/toggle", apiHandler.AuthMiddleware(apiHandler.ToggleFavoriteHandler)).Methods(http.MethodPost)
	router.HandleFunc("/api/songs/{id}", apiHandler.AuthMiddleware(apiHandler.DeleteSongHandler)).Methods(http.MethodDelete)
	router.HandleFunc("/api/reset", apiHandler.AuthMiddleware(apiHandler.ResetHandler)).Methods(http.MethodPost)

	router.HandleFunc("/stream/{token}", apiHandler.StreamHandler).Methods(http.MethodGet)
	router.HandleFunc("/ws/playlist", hub.HandleWS)

	server := &http.Server{
		Addr:         cfg.ServerAddr,
		Handler:      router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 5 * time.Minute, // long enough to stream a full track
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		logger.Info("server listening", logger.String("addr", cfg.ServerAddr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server failed", logger.ErrorField(err))
		}
	}()

	<-rootCtx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed", logger.ErrorField(err))
	}
}

// corsMiddleware mirrors the permissive policy the web player expects.
func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS, HEAD")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, Range")
		w.Header().Set("Access-Control-Expose-Headers", "Content-Length, Content-Range")
		w.Header().Set("Access-Control-Max-Age", "86400") // 24 hours

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}
