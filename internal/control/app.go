package control

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/vietddude/walletlink/internal/core/config"
	"github.com/vietddude/walletlink/internal/core/domain"
	"github.com/vietddude/walletlink/internal/core/worker"
	"github.com/vietddude/walletlink/internal/infra/bridge"
	redisclient "github.com/vietddude/walletlink/internal/infra/redis"
	"github.com/vietddude/walletlink/internal/infra/storage"
	"github.com/vietddude/walletlink/internal/infra/storage/memory"
	"github.com/vietddude/walletlink/internal/infra/storage/postgres"
	"github.com/vietddude/walletlink/internal/server"
	"github.com/vietddude/walletlink/internal/session"
)

// App wires the session core to its transport, storage and HTTP surface.
type App struct {
	cfg         Config
	registry    domain.Registry
	manager     *session.Manager
	attempts    storage.AttemptRepository
	pruner      *worker.Pruner
	server      *server.Server
	db          *postgres.DB
	redisClient *redisclient.Client
	publisher   *redisclient.EventPublisher
	log         *slog.Logger
	cancel      context.CancelFunc
}

// Config holds the application configuration.
type Config struct {
	Port     int
	Wallet   config.WalletConfig
	Redis    redisclient.Config
	Database postgres.Config

	// Registry replaces the bridge registry built from Wallet.Providers.
	Registry domain.Registry

	// Callbacks are the host notifications. Missing ones are logged.
	Callbacks session.Callbacks
}

// NewApp creates an App with all dependencies initialized.
func NewApp(cfg Config) (*App, error) {
	log := slog.Default().With("component", "app")
	app := &App{cfg: cfg, log: log}

	// 1. Storage
	if cfg.Database.URL != "" {
		db, err := postgres.NewDB(context.Background(), cfg.Database)
		if err != nil {
			return nil, fmt.Errorf("failed to init db: %w", err)
		}
		if err := postgres.Migrate(db); err != nil {
			_ = db.Close()
			return nil, err
		}
		app.db = db
		app.attempts = postgres.NewAttemptRepo(db)
		log.Info("Using PostgreSQL storage")
	} else {
		app.attempts = memory.NewAttemptRepo(memory.NewMemoryStorage())
		log.Info("Using Memory storage")
	}
	app.pruner = worker.NewPruner(cfg.Database.Retention, app.attempts)

	// 2. Redis
	var throttleStore session.ThrottleStore
	if cfg.Redis.URL != "" {
		client, err := redisclient.NewClient(cfg.Redis)
		if err != nil {
			app.closeStores()
			return nil, fmt.Errorf("failed to init redis: %w", err)
		}
		app.redisClient = client
		throttleStore = redisclient.NewThrottleStore(client)
		log.Info("Using Redis error throttle")
	}

	// 3. Providers
	network, err := domain.ParseNetwork(cfg.Wallet.Network)
	if err != nil {
		app.closeStores()
		return nil, err
	}
	app.registry = cfg.Registry
	if app.registry == nil {
		app.registry = bridge.NewRegistry(bridgeWallets(cfg.Wallet.Providers))
	}

	// 4. Session core
	negotiator := session.NewNegotiator(app.registry, session.NegotiatorConfig{
		Network:     network,
		SettleDelay: cfg.Wallet.SettleDelay,
		Reward: session.RewardConfig{
			MaxAttempts:    cfg.Wallet.Retry.MaxAttempts,
			Backoff:        cfg.Wallet.Retry.Backoff,
			ReEnableSettle: cfg.Wallet.Retry.ReEnableSettle,
		},
	})
	throttle := session.NewErrorThrottle(cfg.Wallet.ThrottleWindow, throttleStore)

	app.manager = session.NewManager(session.Config{
		DefaultOpen: cfg.Wallet.DefaultOpen,
		Layout:      session.Layout(cfg.Wallet.Layout),
		ConnectPath: cfg.Wallet.ConnectPath,
		Providers:   cfg.Wallet.ProviderNames(),
	}, negotiator, throttle, app.callbacks())

	app.manager.OnOutcome(app.recordAttempt)
	if app.redisClient != nil {
		app.publisher = redisclient.NewEventPublisher(app.redisClient, cfg.Redis.Channel)
		app.publisher.Attach(app.manager)
	}

	// 5. HTTP surface
	checks := make(map[string]server.Check)
	if app.db != nil {
		checks["database"] = app.db.Health
	}
	if app.redisClient != nil {
		checks["redis"] = app.redisClient.Health
	}
	for _, name := range app.registry.Names() {
		if p, ok := app.registry.Lookup(name); ok {
			if w, ok := p.(*bridge.Wallet); ok {
				checks["bridge:"+name] = w.Check
			}
		}
	}
	app.server = server.NewServer(app.manager, app.attempts, cfg.Port, checks)

	return app, nil
}

// Manager returns the session manager.
func (a *App) Manager() *session.Manager {
	return a.manager
}

// Attempts returns the negotiation audit log.
func (a *App) Attempts() storage.AttemptRepository {
	return a.attempts
}

// Handler returns the HTTP handler of the App.
func (a *App) Handler() http.Handler {
	return a.server.Handler()
}

// Start starts the HTTP server in the background.
func (a *App) Start(ctx context.Context) error {
	a.log.Info("Starting walletlink",
		"network", a.cfg.Wallet.Network,
		"providers", len(a.registry.Names()),
		"port", a.cfg.Port,
	)

	ctx, a.cancel = context.WithCancel(ctx)
	go a.pruner.Start(ctx)
	if a.db != nil {
		a.db.StartMetricsCollector(ctx, 0)
	}

	go func() {
		if err := a.server.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.log.Error("HTTP server failed", "error", err)
		}
	}()
	return nil
}

// Stop disconnects the session and releases every resource.
func (a *App) Stop(ctx context.Context) error {
	a.log.Info("Stopping walletlink...")

	if a.cancel != nil {
		a.cancel()
	}
	a.manager.Disconnect()
	err := a.server.Stop(ctx)
	if a.publisher != nil {
		if perr := a.publisher.Close(ctx); perr != nil {
			a.log.Warn("Session events not fully published", "error", perr)
		}
	}
	a.closeStores()
	return err
}

func (a *App) closeStores() {
	if a.redisClient != nil {
		if err := a.redisClient.Close(); err != nil {
			a.log.Error("Failed to close Redis", "error", err)
		}
	}
	if a.db != nil {
		if err := a.db.Close(); err != nil {
			a.log.Error("Failed to close database", "error", err)
		}
	}
}

func (a *App) recordAttempt(out session.Outcome) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	attempt := out.Attempt()
	if err := a.attempts.Save(ctx, &attempt); err != nil {
		a.log.Warn("Failed to record connection attempt", "attempt", attempt.ID, "error", err)
	}
}

func (a *App) callbacks() session.Callbacks {
	cb := a.cfg.Callbacks
	if cb.OnConnect == nil && cb.NavigateOnConnect == nil {
		cb.NavigateOnConnect = func(path string) {
			a.log.Info("Wallet connected, navigating", "path", path)
		}
	}
	if cb.OnDisconnect == nil {
		cb.OnDisconnect = func() {
			a.log.Info("Wallet disconnected")
		}
	}
	return cb
}

func bridgeWallets(providers []config.ProviderConfig) []bridge.WalletConfig {
	wallets := make([]bridge.WalletConfig, 0, len(providers))
	for _, p := range providers {
		wallets = append(wallets, bridge.WalletConfig{
			Name:       p.Name,
			URL:        p.URL,
			Icon:       p.Icon,
			APIVersion: p.APIVersion,
			Timeout:    p.Timeout,
		})
	}
	return wallets
}
