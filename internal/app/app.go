package app

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"taskboard/internal/config"
	"taskboard/internal/events"
	"taskboard/internal/handlers"
	"taskboard/internal/logger"
	"taskboard/internal/middleware"
	"taskboard/internal/service"
	"taskboard/internal/store"
	"taskboard/internal/store/memory"
	"taskboard/internal/store/postgres"
	"taskboard/internal/store/sqlite"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
)

type App struct {
	config    *config.Config
	server    *http.Server
	router    *chi.Mux
	store     store.Store
	hub       *events.Hub
	board     *service.Board
	shutdowns []func() // run in reverse order on Shutdown
}

func New(cfg *config.Config) *App {
	return &App{
		config:    cfg,
		shutdowns: make([]func(), 0),
	}
}

// OpenStore opens the store selected by cfg.Storage.Type.
func OpenStore(ctx context.Context, cfg *config.Config) (store.Store, error) {
	switch cfg.Storage.Type {
	case config.StorageMemory:
		return memory.New(), nil
	case config.StorageSQLite:
		return sqlite.Open(cfg.Storage.Path)
	case config.StoragePostgres:
		return postgres.New(ctx, cfg.Storage.URL)
	default:
		return nil, fmt.Errorf("unknown storage type %q", cfg.Storage.Type)
	}
}

// Init builds every component. When it fails, whatever it had already
// opened is released before the error is returned.
func (a *App) Init(ctx context.Context) (err error) {
	defer func() {
		if err != nil {
			a.runShutdowns()
		}
	}()

	if err := logger.Init(a.config.Logging.Development); err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	a.shutdowns = append(a.shutdowns, func() {
		logger.Info("Shutting down logging...")
		logger.Sync()
	})

	st, err := OpenStore(ctx, a.config)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	a.store = st
	a.shutdowns = append(a.shutdowns, func() {
		if err := st.Close(); err != nil {
			logger.Error("Store: close failed", err)
		}
	})
	logger.Info("Store opened", zap.String("type", a.config.Storage.Type))

	a.hub = events.NewHub(0)

	board, err := service.Open(ctx, service.Deps{
		Store:          st,
		Renderer:       a.hub,
		Notifier:       a.hub,
		Key:            a.config.Storage.Key,
		TickInterval:   a.config.Timer.Tick,
		DefaultSeconds: a.config.Timer.DefaultSeconds,
	})
	if err != nil {
		return fmt.Errorf("open board: %w", err)
	}
	a.board = board
	a.shutdowns = append(a.shutdowns, board.Close)

	a.router = a.routes()

	// event streams never finish on their own; cancelling the base context
	// on shutdown ends them
	baseCtx, cancel := context.WithCancel(context.Background())
	a.server = &http.Server{
		Addr:              a.config.ServerAddr(),
		Handler:           a.router,
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return baseCtx },
	}
	a.server.RegisterOnShutdown(cancel)
	return nil
}

func (a *App) routes() *chi.Mux {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.Logging)
	r.Use(chimw.Recoverer)
	r.Use(middleware.RateLimit(a.config.RateLimit.RPM))

	handlers.NewTaskHandler(a.board, a.hub).Routes(r)
	return r
}

// Handler exposes the router, mostly for tests.
func (a *App) Handler() http.Handler {
	return a.router
}

// Run serves HTTP until Shutdown is called.
func (a *App) Run() error {
	logger.Info("Server started", zap.String("addr", a.server.Addr))
	if err := a.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("serve: %w", err)
	}
	return nil
}

func (a *App) Shutdown(ctx context.Context) error {
	var err error
	if a.server != nil {
		err = a.server.Shutdown(ctx)
	}
	a.runShutdowns()
	return err
}

// runShutdowns runs the hooks once, newest first.
func (a *App) runShutdowns() {
	for i := len(a.shutdowns) - 1; i >= 0; i-- {
		a.shutdowns[i]()
	}
	a.shutdowns = a.shutdowns[:0]
}
