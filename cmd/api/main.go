package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/puppettale/backend/internal/config"
	"github.com/puppettale/backend/internal/handler"
	"github.com/puppettale/backend/internal/model/sound"
	"github.com/puppettale/backend/internal/service/ai"
	"github.com/puppettale/backend/internal/service/chat"
	"github.com/puppettale/backend/internal/service/safety"
	"github.com/puppettale/backend/internal/service/story"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := godotenv.Load(); err != nil {
		log.Printf("warning: failed to load .env file: %v", err)
		log.Println("continuing with system environment variables only")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	records, closeRecords, err := cfg.Storage.NewStore()
	if err != nil {
		log.Fatalf("failed to open record store: %v", err)
	}
	defer func() {
		if err := closeRecords(); err != nil {
			log.Printf("warning: closing record store: %v", err)
		}
	}()

	sessions, memSessions, err := cfg.Session.NewStore(ctx)
	if err != nil {
		log.Fatalf("failed to open session store: %v", err)
	}
	if memSessions != nil {
		go memSessions.Run(ctx, cfg.Session.SweepInterval)
	}
	log.Printf("session store: %s (debounce %s, idle ttl %s)", cfg.Session.Backend, cfg.Session.Debounce, cfg.Session.IdleTTL)

	var gateway ai.Completer = ai.Offline{}
	backend, name, err := cfg.AI.NewChatModel(ctx)
	if err != nil {
		log.Printf("warning: failed to initialize AI backend: %v", err)
		log.Println("continuing without AI functionality, turns will get a fallback reply")
	} else {
		gateway = ai.NewGateway(backend, name, cfg.AI.RetryPolicy())
		log.Printf("AI backend %s initialized successfully", name)
	}

	renderer, closeRenderer, err := cfg.NewRenderer(ctx)
	if err != nil {
		log.Printf("warning: failed to initialize illustration: %v", err)
		log.Println("continuing without illustration, story pages will use the placeholder image")
		renderer = nil
	}
	if closeRenderer != nil {
		defer closeRenderer()
	}

	sounds := sound.NewMemoryCatalog(sound.Seed(cfg.SoundBaseURL))
	prompts := ai.NewPromptManager()

	chatService := chat.NewService(chat.Deps{
		Sessions: sessions,
		Messages: records,
		Children: records,
		Sounds:   sounds,
		Gateway:  gateway,
		Prompts:  prompts,
		Gate:     safety.New(),
	})
	storyService := story.NewService(story.Deps{
		Messages: records,
		Stories:  records,
		Children: records,
		Gateway:  gateway,
		Prompts:  prompts,
		Renderer: renderer,
	}, cfg.StoryServiceConfig())

	router := handler.NewRouter(handler.Services{
		Chat:     chatService,
		Stories:  storyService,
		Children: records,
		Sounds:   sounds,
	})

	startServer(ctx, cfg.Server, router)
}

func startServer(ctx context.Context, serverCfg config.ServerConfig, router http.Handler) {
	addr := serverCfg.Addr
	srv := &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	log.Printf("Puppet Tale backend listening on %s", addr)
	if err := runServer(ctx, srv); err != nil {
		log.Printf("server error: %v", err)
	}
}

func runServer(ctx context.Context, srv *http.Server) error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
		err := <-errCh
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}
