package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"debatetimer/config"
	"debatetimer/controllers"
	"debatetimer/db"
	"debatetimer/internal/clock"
	"debatetimer/internal/events"
	"debatetimer/internal/recording"
	"debatetimer/internal/session"
	"debatetimer/middlewares"
	"debatetimer/routes"
	"debatetimer/services"
	"debatetimer/websocket"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/jonboulle/clockwork"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const defaultConfigPath = "./config/config.prod.yml"

func main() {
	configPath := flag.String("config", os.Getenv("CONFIG_PATH"), "path to the YAML config file")
	flag.Parse()

	if err := godotenv.Load(); err != nil {
		log.Debug().Err(err).Msg("no .env file loaded")
	}

	path := *configPath
	if path == "" {
		if _, err := os.Stat(defaultConfigPath); err == nil {
			path = defaultConfigPath
		}
	}
	cfg, err := config.LoadConfig(path)
	if err != nil {
		log.Fatal().Err(err).Str("path", path).Msg("failed to load config")
	}
	setupLogging(cfg)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	wall := clockwork.NewRealClock()
	repo, closeRepo := setupRepository(ctx, cfg, wall)
	defer closeRepo()

	hub := websocket.NewHub()
	recordings := recording.NewRegistry(wall)
	sessions := session.NewManager(ctx,
		session.WithClock(wall),
		session.WithInterval(time.Duration(cfg.Timer.TickMillis)*time.Millisecond),
		session.WithClockOptions(clock.WithAnswerAllotment(cfg.Timer.QAAnswerSeconds)),
	)

	rdb := setupRedis(ctx, cfg)
	var (
		notifier services.Notifier = hub
		consumer *events.StreamConsumer
		limiter  *events.RateLimiter
	)
	if rdb != nil {
		defer rdb.Close()
		publisher := events.NewPublisher(rdb)
		consumer = events.NewStreamConsumer(ctx, rdb, hub)
		limiter = events.NewRateLimiter(rdb, events.RateLimitConfig{
			Max:    cfg.RateLimit.Suggestions,
			Window: time.Duration(cfg.RateLimit.WindowSeconds) * time.Second,
		})
		notifier = publisher
		sessions.Observe(consumer, publisher)
	} else {
		sessions.Observe(hub)
	}

	debates := services.NewDebateService(repo, sessions, recordings, notifier, wall)
	sessions.Observe(debates, recordings)

	var generator services.Generator
	if cfg.Gemini.ApiKey != "" {
		gen, err := services.NewGeminiGenerator(ctx, cfg.Gemini.ApiKey, cfg.Gemini.Model)
		if err != nil {
			log.Error().Err(err).Msg("gemini client unavailable, using fallback texts")
		} else {
			generator = gen
		}
	} else {
		log.Warn().Msg("GEMINI_API_KEY not set, using fallback texts")
	}

	transcriber := services.NewTranscriber(services.TranscriberConfig{
		BaseURL:   cfg.Openai.BaseURL,
		APIKey:    cfg.Openai.ApiKey,
		Model:     cfg.Openai.TranscriptionModel,
		Language:  cfg.Openai.Language,
		StreamURL: cfg.Transcription.StreamURL,
	}, nil)

	ws := websocket.NewHandler(debates, hub, cfg.Server.AllowedOrigins)
	if consumer != nil {
		ws.Follow(consumer)
	}

	router := setupRouter(cfg, routes.Handlers{
		Debates:    controllers.NewDebateController(debates),
		Sessions:   controllers.NewSessionController(debates),
		Recordings: controllers.NewRecordingController(debates),
		AI: controllers.NewAIController(
			services.NewSuggestionService(repo, debates, generator, notifier, wall),
			services.NewSummaryService(repo, generator),
			services.NewExportService(repo),
		),
		Transcription: controllers.NewTranscriptionController(transcriber),
		Websocket:     ws,
		RateLimiter:   limiter,
	})

	server := &http.Server{
		Addr:        ":" + strconv.Itoa(cfg.Server.Port),
		Handler:     router,
		ReadTimeout: 30 * time.Second,
		IdleTimeout: 120 * time.Second,
	}

	go func() {
		log.Info().Str("addr", server.Addr).Msg("server starting")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("server failed")
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	sig := <-sigChan
	log.Info().Str("signal", sig.String()).Msg("received shutdown signal")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("server shutdown failed")
	}
	sessions.StopAll(shutdownCtx)
	cancel()

	log.Info().Msg("shutdown complete")
}

func setupLogging(cfg *config.Config) {
	if cfg.Log.Pretty {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	}
	level, err := zerolog.ParseLevel(cfg.Log.Level)
	if err != nil {
		log.Warn().Str("level", cfg.Log.Level).Msg("unknown log level, using info")
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)
	if level > zerolog.DebugLevel {
		gin.SetMode(gin.ReleaseMode)
	}
}

// setupRepository connects to MongoDB, or keeps everything in memory when no
// URI is configured.
func setupRepository(ctx context.Context, cfg *config.Config, c clockwork.Clock) (db.Repository, func()) {
	if cfg.Database.URI == "" {
		log.Warn().Msg("MONGO_URI not set, debates are kept in memory")
		return db.NewMemoryRepository(c), func() {}
	}

	client, database, err := db.ConnectMongoDB(ctx, cfg.Database.URI)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to MongoDB")
	}
	repo := db.NewMongoRepository(database)
	if err := repo.EnsureIndexes(ctx); err != nil {
		log.Error().Err(err).Msg("failed to create indexes")
	}
	log.Info().Str("database", database.Name()).Msg("connected to MongoDB")

	return repo, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := client.Disconnect(ctx); err != nil {
			log.Error().Err(err).Msg("MongoDB disconnect failed")
		}
	}
}

// setupRedis returns nil when Redis is not configured or not reachable.
func setupRedis(ctx context.Context, cfg *config.Config) *redis.Client {
	if cfg.Redis.Addr == "" {
		log.Info().Msg("REDIS_ADDR not set, events stay on this instance")
		return nil
	}
	rdb, err := events.Connect(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
	if err != nil {
		log.Error().Err(err).Str("addr", cfg.Redis.Addr).Msg("redis unavailable, events stay on this instance")
		return nil
	}
	log.Info().Str("addr", cfg.Redis.Addr).Msg("connected to Redis")
	return rdb
}

func setupRouter(cfg *config.Config, h routes.Handlers) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery(), middlewares.RequestLogger())
	router.SetTrustedProxies([]string{"127.0.0.1"})

	router.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.Server.AllowedOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
		ExposeHeaders:    []string{"Content-Length", "Content-Disposition"},
		AllowCredentials: true,
	}))

	routes.Register(router, h)
	return router
}
