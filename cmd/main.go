// cmd/main.go
package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/lmittmann/tint"
	"github.com/rs/cors"

	"skillspark/internal/backend"
	"skillspark/internal/config"
	"skillspark/internal/handlers"
	"skillspark/internal/middleware"
	"skillspark/internal/service"
	"skillspark/internal/store"

	chimiddleware "github.com/go-chi/chi/v5/middleware"
)

func main() {
	//　設定ファイル読み込み用の一時的なロガー設定
	tempLogger := slog.New(slog.NewTextHandler(os.Stderr, nil))
	slog.SetDefault(tempLogger)
	log.Println("Log Config Loading...")

	// Configを読み込み
	if err := config.LoadConfig("./configs"); err != nil {
		slog.Error("Error loading configuration", slog.Any("error", err))
		os.Exit(1)
	}

	// === 設定に基づいて slog ロガーを初期化 ===
	logLevel := new(slog.LevelVar)
	switch strings.ToLower(config.Cfg.Log.Level) {
	case "debug":
		logLevel.Set(slog.LevelDebug)
	case "info":
		logLevel.Set(slog.LevelInfo)
	case "warn", "warning":
		logLevel.Set(slog.LevelWarn)
	case "error":
		logLevel.Set(slog.LevelError)
	default:
		logLevel.Set(slog.LevelInfo)
		slog.Warn("Unknown log level specified in config, defaulting to INFO", slog.String("level", config.Cfg.Log.Level))
	}
	var handler slog.Handler
	appEnv := os.Getenv("APP_ENV")
	if strings.ToLower(appEnv) == "dev" {
		tintOpts := &tint.Options{
			Level:      logLevel,
			TimeFormat: time.RFC3339,
		}
		handler = tint.NewHandler(os.Stderr, tintOpts)
		tempLogger.Info("Using TINT log handler", slog.String("APP_ENV", appEnv))
	} else {
		jsonOpts := &slog.HandlerOptions{
			Level:     logLevel,
			AddSource: true,
		}
		handler = slog.NewJSONHandler(os.Stderr, jsonOpts)
		tempLogger.Info("Using JSON log handler", slog.String("APP_ENV", appEnv))
	}
	logger := slog.New(handler)
	log.Println("Log Config Loaded...")

	slog.SetDefault(logger)

	slog.Info("Application starting...")

	// 2. ローカルKVストア (sqlite) の初期化
	db, err := store.NewDB(config.Cfg.Storage.Path, logger)
	if err != nil {
		slog.Error("Error initializing local storage", slog.Any("error", err))
		os.Exit(1)
	}
	sqlDB, err := db.DB()
	if err != nil {
		slog.Error("Error getting underlying sql.DB from GORM", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := sqlDB.Close(); err != nil {
			slog.Error("Error closing local storage", slog.Any("error", err))
		} else {
			slog.Info("Local storage closed.")
		}
	}()

	// 3. Dependency Injection
	client, err := backend.New(config.Cfg.Backend.BaseURL, time.Duration(config.Cfg.Backend.TimeoutSeconds)*time.Second)
	if err != nil {
		slog.Error("Error initializing backend client", slog.Any("error", err))
		os.Exit(1)
	}
	kv := store.NewGormKeyValueStore(db)

	authService := service.NewAuthService(client, kv)
	settingsService := service.NewSettingsService(client, kv)
	videoService := service.NewVideoService(client, kv, config.Cfg.Video)
	quizService := service.NewQuizService(client, config.Cfg.Quiz)
	roadmapService := service.NewRoadmapService(client, kv, settingsService, videoService, quizService)

	authHandler := handlers.NewAuthHandler(authService, logger)
	settingsHandler := handlers.NewSettingsHandler(authService, settingsService, logger)
	roadmapHandler := handlers.NewRoadmapHandler(authService, roadmapService, logger)
	videoHandler := handlers.NewVideoHandler(authService, videoService, logger)
	quizHandler := handlers.NewQuizHandler(authService, quizService, logger)

	// 4. Setup Router
	r := chi.NewRouter()

	// Middleware
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.LoggingMiddleware(logger))

	// CORS 設定と適用 (設定ファイルから読み込んだ値を使用)
	corsOptions := cors.Options{
		AllowedOrigins:   config.Cfg.CORS.AllowedOrigins,
		AllowedMethods:   config.Cfg.CORS.AllowedMethods,
		AllowedHeaders:   config.Cfg.CORS.AllowedHeaders,
		ExposedHeaders:   config.Cfg.CORS.ExposedHeaders,
		AllowCredentials: config.Cfg.CORS.AllowCredentials,
		MaxAge:           config.Cfg.CORS.MaxAge,
		Debug:            false,
	}
	corsHandler := cors.New(corsOptions)
	r.Use(corsHandler.Handler)

	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.Timeout(60 * time.Second))

	// API Routes
	r.Route("/api/v1", func(r chi.Router) {
		// --- Auth routes ---
		r.Post("/auth/register", authHandler.Register)
		r.Post("/auth/login", authHandler.Login)
		r.Post("/auth/logout", authHandler.Logout)
		r.Get("/auth/me", authHandler.Me)

		// --- Settings routes ---
		r.Route("/settings", func(r chi.Router) {
			r.Get("/", settingsHandler.GetSettings)
			r.Post("/", settingsHandler.CreateSettings)
			r.Put("/", settingsHandler.UpdateSettings)
			r.Delete("/", settingsHandler.DeleteSettings)
			r.Put("/preferences", settingsHandler.UpdatePreferences)
			r.Put("/theme", settingsHandler.SetTheme)
			r.Put("/profile", settingsHandler.UpdateProfile)
			r.Post("/clear-data", settingsHandler.ClearData)
			r.Delete("/account", settingsHandler.DeleteAccount)
		})

		// --- Roadmap routes ---
		r.Route("/roadmaps", func(r chi.Router) {
			r.Post("/", roadmapHandler.GenerateRoadmap)
			r.Get("/", roadmapHandler.ListRoadmaps)
			r.Delete("/", roadmapHandler.ClearAllRoadmaps)
			r.Get("/recent", roadmapHandler.GetMostRecent)
			r.Get("/active", roadmapHandler.GetActive)
			r.Delete("/active", roadmapHandler.ClearActive)
			r.Get("/{roadmap_id}", roadmapHandler.GetRoadmap)
			r.Delete("/{roadmap_id}", roadmapHandler.DeleteRoadmap)
			r.Put("/{roadmap_id}/active", roadmapHandler.SetActive)
			r.Get("/{roadmap_id}/points", roadmapHandler.ListPoints)
			r.Post("/{roadmap_id}/points/{point_id}/progress", roadmapHandler.UpdateProgress)
			r.Post("/{roadmap_id}/points/{point_id}/playlists", roadmapHandler.LoadPlaylists)
			r.Post("/{roadmap_id}/points/{point_id}/playlists/regenerate", roadmapHandler.RegeneratePlaylists)

			// --- Video pager routes (レベル別ページング) ---
			r.Post("/{roadmap_id}/videos", videoHandler.OpenPager)
			r.Post("/{roadmap_id}/videos/next", videoHandler.NextPage)
			r.Post("/{roadmap_id}/videos/prev", videoHandler.PrevPage)
			r.Post("/{roadmap_id}/videos/regenerate", videoHandler.RegeneratePage)
			r.Get("/{roadmap_id}/point-videos", videoHandler.PointVideos)

			// --- Quiz session routes ---
			r.Post("/{roadmap_id}/quiz", quizHandler.StartSession)
			r.Get("/{roadmap_id}/quiz", quizHandler.GetSession)
			r.Post("/{roadmap_id}/quiz/answer", quizHandler.Answer)
			r.Post("/{roadmap_id}/quiz/submit", quizHandler.Submit)
			r.Post("/{roadmap_id}/quiz/reset", quizHandler.Reset)
			r.Post("/{roadmap_id}/quiz/regenerate", quizHandler.Regenerate)
		})

		// --- Video generation routes ---
		r.Post("/videos/generate", videoHandler.GeneratePointVideos)
		r.Post("/videos/generate-bulk", videoHandler.GenerateBulk)

		// --- Quiz aggregate routes ---
		r.Get("/quizzes/statistics", quizHandler.Statistics)
		r.Get("/quizzes/{quiz_id}/attempts", quizHandler.Attempts)
	})

	// Health Check
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		sqlDB, err := db.DB()
		if err != nil {
			slog.ErrorContext(ctx, "Health check failed: could not get DB object", slog.Any("error", err))
			http.Error(w, "Health check failed", http.StatusInternalServerError)
			return
		}
		if err := sqlDB.PingContext(ctx); err != nil {
			slog.ErrorContext(ctx, "Health check failed: could not ping DB", slog.Any("error", err))
			http.Error(w, "Health check failed", http.StatusInternalServerError)
			return
		}
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	// 5. Start Server
	server := &http.Server{
		Addr:         config.Cfg.Server.Port,
		Handler:      r,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		slog.Info("Server listening", slog.String("port", config.Cfg.Server.Port))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("Could not listen on port", slog.String("port", config.Cfg.Server.Port), slog.Any("error", err))
			os.Exit(1)
		}
	}()

	// Graceful Shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	slog.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		slog.Error("Server forced to shutdown", slog.Any("error", err))
	}

	log.Println("Server exiting")
}
