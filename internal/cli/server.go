package cli

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"quiz-night-service/internal/app"
	"quiz-night-service/internal/config"
	"quiz-night-service/internal/domain"
	"quiz-night-service/internal/infra/file"
	"quiz-night-service/internal/infra/memory"
	pgloader "quiz-night-service/internal/infra/postgres"
	redisstore "quiz-night-service/internal/infra/redis"
	transport "quiz-night-service/internal/transport/http"
)

// NewStartCmd builds the CLI subcommand to start the server.
func NewStartCmd(configPath, port *string) *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Start the quiz server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cmd.Context(), *configPath, *port)
		},
	}
}

func runServer(ctx context.Context, configPath, portFlag string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	if cfg.Postgres.URL != "" {
		if err := runMigrationsWithConfig(ctx, cfg); err != nil {
			return err
		}
	}

	finalPort := portFlag
	if finalPort == "" {
		finalPort = cfg.Server.Port
	}
	if finalPort == "" {
		finalPort = "8080"
	}

	var redisClient *redis.Client
	if cfg.Redis.Addr != "" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer redisClient.Close()
	}
	redisTTL := config.TTLDuration(cfg.Redis.TTL, 10*time.Minute)

	var pool *pgxpool.Pool
	if cfg.Postgres.URL != "" {
		pool, err = pgxpool.Connect(ctx, cfg.Postgres.URL)
		if err != nil {
			return err
		}
		defer pool.Close()
	}

	var library transport.QuizLister
	var loader memory.QuizLoader = memory.NewStaticQuizLoader(sampleQuizzes())
	switch {
	case pool != nil:
		loader = pgloader.NewQuizLoader(pool)
	case cfg.Quiz.Dir != "":
		fileLoader := file.NewQuizLoader(cfg.Quiz.Dir)
		loader = fileLoader
		library = fileLoader
	}

	quizTTL := config.TTLDuration(cfg.Quiz.TTL, 10*time.Minute)
	var quizRepo app.QuizRepository
	if redisClient != nil {
		quizRepo = redisstore.NewQuizRepository(redisClient, loader, quizTTL)
	} else {
		quizRepo = memory.NewQuizRepository(loader, quizTTL)
	}

	serviceCtx, stopService := context.WithCancel(context.Background())
	var wg sync.WaitGroup

	var rooms app.RoomStore
	if redisClient != nil {
		markers := redisstore.NewRoomStore(redisClient, redisTTL)
		wg.Add(1)
		go func() {
			defer wg.Done()
			markers.Run(serviceCtx)
		}()
		rooms = markers
	} else {
		rooms = memory.NewRoomStore()
	}

	hub := transport.NewHub()
	idle := config.TTLDuration(cfg.Rooms.IdleTimeout, 2*time.Hour)
	service := app.NewQuizService(rooms, quizRepo, hub, app.WithIdleTimeout(idle))

	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := service.Run(serviceCtx); err != nil {
			log.Printf("quiz service stopped: %v", err)
		}
	}()

	router := transport.NewRouter(transport.RouterConfig{
		PublicURL: cfg.Server.PublicURL,
		Version:   releaseVersion,
		Library:   library,
	}, service, transport.NewWSHandler(service, hub))

	server := &http.Server{
		Addr:              ":" + finalPort,
		Handler:           router,
		ReadHeaderTimeout: 15 * time.Second,
	}

	go func() {
		log.Printf("starting quiz night on :%s", finalPort)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Printf("failed to start server: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-stop:
		log.Println("shutting down server...")
	case <-ctx.Done():
		log.Println("context canceled, shutting down server...")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	err = server.Shutdown(shutdownCtx)
	stopService()
	wg.Wait()
	return err
}

// sampleQuizzes is served when neither Postgres nor a quiz directory is configured.
func sampleQuizzes() map[string]domain.Quiz {
	return map[string]domain.Quiz{
		"warmup": {
			Title: "Warm-up",
			Questions: []domain.Question{
				{
					Type:    domain.QuestionMCQ,
					Prompt:  "What is 2 + 2?",
					Options: []string{"3", "4", "5"},
					Answer:  1,
					Time:    20,
				},
				{
					Type:     domain.QuestionText,
					Prompt:   "Which planet is known as the Red Planet?",
					Accepted: []string{"Mars"},
					Time:     30,
				},
			},
		},
	}
}
