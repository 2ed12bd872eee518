package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	evbus "github.com/asaskevich/EventBus"
	"github.com/gin-gonic/gin"
	"golang.org/x/sync/errgroup"

	"voicebridge-server-go/internal/engine"
	"voicebridge-server-go/internal/platform/config"
	platformerrors "voicebridge-server-go/internal/platform/errors"
	"voicebridge-server-go/internal/platform/logging"
	"voicebridge-server-go/internal/session"
	"voicebridge-server-go/internal/stats"
	httptransport "voicebridge-server-go/internal/transport/http"
	httpspeech "voicebridge-server-go/internal/transport/http/speech"
	httpsystem "voicebridge-server-go/internal/transport/http/system"
	"voicebridge-server-go/internal/transport/ws"
)

const shutdownTimeout = 15 * time.Second

type stepFn func(context.Context, *appState) error

type initStep struct {
	ID        string
	Title     string
	DependsOn []string
	Kind      platformerrors.Kind
	Execute   stepFn
}

type appState struct {
	config     *config.Config
	configPath string
	logger     *logging.Logger
	bus        evbus.Bus
	collector  *stats.Collector
	gateway    engine.Gateway
	registry   *session.Registry
	controller *session.Controller
}

// Run drives the full service lifecycle: configuration, dependency
// initialisation, server startup and graceful shutdown.
func Run(ctx context.Context) error {
	state := &appState{}

	if err := executeInitSteps(ctx, InitGraph(), state); err != nil {
		return err
	}

	cfg := state.config
	logger := state.logger
	if cfg == nil || logger == nil {
		return platformerrors.New(
			platformerrors.KindBootstrap,
			"bootstrap state validation",
			"config/logger not initialised",
		)
	}

	if state.configPath != "" {
		logger.InfoTag("Bootstrap", "configuration loaded from %s", state.configPath)
	} else {
		logger.InfoTag("Bootstrap", "no config file found, using defaults")
	}

	rootCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	signalCtx, stop := signal.NotifyContext(rootCtx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	group, groupCtx := errgroup.WithContext(rootCtx)

	wsServer, err := startWebSocketServer(state, group, groupCtx)
	if err != nil {
		cancel()
		return err
	}

	if cfg.Web.Enabled {
		if _, err := startHTTPServer(state, wsServer, group, groupCtx); err != nil {
			cancel()
			return err
		}
	}

	logger.InfoTag("Bootstrap", "all services started")

	if err := waitForShutdown(signalCtx, cancel, logger, group); err != nil {
		return err
	}

	logger.Close()
	return nil
}

func executeInitSteps(ctx context.Context, steps []initStep, state *appState) error {
	if state == nil {
		return platformerrors.New(
			platformerrors.KindBootstrap,
			"execute init steps",
			"nil bootstrap state",
		)
	}

	completed := make(map[string]struct{}, len(steps))
	for _, step := range steps {
		for _, dep := range step.DependsOn {
			if _, ok := completed[dep]; !ok {
				return platformerrors.New(
					platformerrors.KindBootstrap,
					step.ID,
					fmt.Sprintf("dependency %s not satisfied", dep),
				)
			}
		}
		if step.Execute == nil {
			return platformerrors.New(
				platformerrors.KindBootstrap,
				step.ID,
				"missing execute function",
			)
		}
		if err := step.Execute(ctx, state); err != nil {
			var typed *platformerrors.Error
			if errors.As(err, &typed) {
				return err
			}

			kind := step.Kind
			if kind == "" {
				kind = platformerrors.KindBootstrap
			}
			return platformerrors.Wrap(kind, step.ID, "bootstrap step failed", err)
		}
		completed[step.ID] = struct{}{}
	}
	return nil
}

// InitGraph declares the ordered initialisation steps and their
// dependencies.
func InitGraph() []initStep {
	return []initStep{
		{
			ID:      "config:load",
			Title:   "Load configuration",
			Kind:    platformerrors.KindConfig,
			Execute: loadConfigStep,
		},
		{
			ID:        "logging:init",
			Title:     "Initialise logging",
			DependsOn: []string{"config:load"},
			Kind:      platformerrors.KindBootstrap,
			Execute:   initLoggingStep,
		},
		{
			ID:        "events:init",
			Title:     "Initialise event bus and stats collector",
			DependsOn: []string{"logging:init"},
			Kind:      platformerrors.KindBootstrap,
			Execute:   initEventsStep,
		},
		{
			ID:        "engine:init",
			Title:     "Initialise engine gateway",
			DependsOn: []string{"config:load", "logging:init"},
			Kind:      platformerrors.KindEngine,
			Execute:   initEngineStep,
		},
		{
			ID:        "session:init",
			Title:     "Initialise session registry and controller",
			DependsOn: []string{"engine:init", "events:init"},
			Kind:      platformerrors.KindSession,
			Execute:   initSessionStep,
		},
	}
}

func loadConfigStep(_ context.Context, state *appState) error {
	result, err := config.NewLoader().WithDotEnv(true).Load()
	if err != nil {
		return platformerrors.Wrap(platformerrors.KindConfig, "config:load", "failed to load configuration", err)
	}
	state.config = result.Config
	state.configPath = result.Path
	return nil
}

func initLoggingStep(_ context.Context, state *appState) error {
	logger, err := logging.New(logging.Config{
		Level:    state.config.Log.Level,
		Dir:      state.config.Log.Dir,
		Filename: state.config.Log.File,
	})
	if err != nil {
		return platformerrors.Wrap(platformerrors.KindBootstrap, "logging:init", "failed to initialise logging", err)
	}
	state.logger = logger
	logging.DefaultLogger = logger
	return nil
}

func initEventsStep(_ context.Context, state *appState) error {
	state.bus = evbus.New()
	collector, err := stats.NewCollector(state.bus)
	if err != nil {
		return platformerrors.Wrap(platformerrors.KindBootstrap, "events:init", "failed to subscribe stats collector", err)
	}
	state.collector = collector
	return nil
}

func initEngineStep(_ context.Context, state *appState) error {
	gateway, err := engine.NewOpenAI(state.config.Engine, state.logger)
	if err != nil {
		return platformerrors.Wrap(platformerrors.KindEngine, "engine:init", "failed to initialise engine gateway", err)
	}
	state.gateway = gateway
	return nil
}

func initSessionStep(_ context.Context, state *appState) error {
	state.registry = session.NewRegistry(state.config.Stream, state.logger, state.bus)
	state.controller = session.NewController(state.registry, state.gateway, state.config.Stream, state.logger, state.bus)
	return nil
}

func startWebSocketServer(
	state *appState,
	g *errgroup.Group,
	groupCtx context.Context,
) (*ws.Server, error) {
	cfg := state.config
	logger := state.logger

	hub := ws.NewHub(logger)
	router := ws.NewRouter(hub, logger, ws.RouterOptions{})
	server := ws.NewServer(ws.ServerConfig{
		Addr:        cfg.Server.IP + ":" + strconv.Itoa(cfg.Server.Port),
		Path:        cfg.Server.Path,
		IdleTimeout: time.Duration(cfg.Server.IdleTimeout) * time.Second,
	}, router, hub, logger)

	server.SetHandlerBuilder(ws.NewHandlerBuilder(state.registry, state.controller, logger))

	g.Go(func() error {
		if err := server.Start(groupCtx); err != nil {
			logger.ErrorTag("WebSocket", "transport server failed: %v", err)
			return err
		}
		hub.CloseAll(nil)
		logger.InfoTag("WebSocket", "transport server stopped")
		return nil
	})

	return server, nil
}

func startHTTPServer(
	state *appState,
	wsServer *ws.Server,
	g *errgroup.Group,
	groupCtx context.Context,
) (*http.Server, error) {
	cfg := state.config
	logger := state.logger

	httpRouter, err := httptransport.Build(httptransport.Options{
		Config:     cfg,
		Logger:     logger,
		StaticRoot: cfg.Web.StaticDir,
	})
	if err != nil {
		return nil, platformerrors.Wrap(platformerrors.KindTransport, "http:build-router", "failed to build http router", err)
	}
	router := httpRouter.Engine
	apiGroup := httpRouter.API

	router.NoRoute(func(c *gin.Context) {
		httptransport.RespondError(c, http.StatusNotFound, "not found", nil)
	})

	speechService, err := httpspeech.NewService(cfg, state.gateway, logger)
	if err != nil {
		return nil, platformerrors.Wrap(platformerrors.KindTransport, "http:new-speech-service", "failed to create speech service", err)
	}
	systemService := httpsystem.NewService(logger, state.registry, state.collector, wsServer.Count)

	if err := speechService.Register(groupCtx, apiGroup); err != nil {
		return nil, platformerrors.Wrap(platformerrors.KindTransport, "http:register-speech", "failed to register speech routes", err)
	}
	if err := systemService.Register(groupCtx, apiGroup); err != nil {
		return nil, platformerrors.Wrap(platformerrors.KindTransport, "http:register-system", "failed to register system routes", err)
	}

	httpServer := &http.Server{
		Addr:    ":" + strconv.Itoa(cfg.Web.Port),
		Handler: router,
	}

	g.Go(func() error {
		go func() {
			<-groupCtx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()

			if err := httpServer.Shutdown(shutdownCtx); err != nil {
				logger.ErrorTag("HTTP", "server shutdown failed: %v", err)
			} else {
				logger.InfoTag("HTTP", "server shut down gracefully")
			}
		}()

		logger.InfoTag("HTTP", "listening on %s", httpServer.Addr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.ErrorTag("HTTP", "server failed: %v", err)
			return err
		}
		return nil
	})

	return httpServer, nil
}

func waitForShutdown(
	ctx context.Context,
	cancel context.CancelFunc,
	logger *logging.Logger,
	g *errgroup.Group,
) error {
	<-ctx.Done()
	logger.InfoTag("Bootstrap", "shutdown signal received (%v), cleaning up", context.Cause(ctx))

	cancel()

	done := make(chan error, 1)
	go func() {
		done <- g.Wait()
	}()

	select {
	case err := <-done:
		if err != nil {
			logger.ErrorTag("Bootstrap", "error during shutdown: %v", err)
			return err
		}
		logger.InfoTag("Bootstrap", "all services stopped cleanly")
	case <-time.After(shutdownTimeout):
		timeoutErr := errors.New("service shutdown timed out")
		logger.ErrorTag("Bootstrap", "shutdown timed out, forcing exit")
		return timeoutErr
	}
	return nil
}
