package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	"github.com/harun/courier/internal/config"
	"github.com/harun/courier/internal/logger"
	"github.com/harun/courier/internal/observability"
	"github.com/harun/courier/internal/tracing"
	"github.com/harun/courier/pkg/agent"
	"github.com/harun/courier/pkg/capability"
	"github.com/harun/courier/pkg/catalog"
	"github.com/harun/courier/pkg/invoker"
	"github.com/rs/zerolog"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

// runtime is the wired object graph behind the chat command.
type runtime struct {
	log          *logger.Logger
	session      *capability.Session
	provider     agent.LLMProvider
	conversation *agent.Conversation
	metrics      *http.Server
	tracing      bool
	audit        bool
}

// loadConfig reads the config file and applies the --log-level override.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, err
	}
	if logLevel != "" {
		cfg.Logging.Level = logLevel
	}
	return cfg, nil
}

func newLogger(cfg *config.Config, console io.Writer) (*logger.Logger, error) {
	return logger.New(logger.Config{
		Level:     cfg.Logging.Level,
		File:      cfg.Logging.File,
		Console:   cfg.Logging.Console,
		Pretty:    cfg.Logging.Pretty,
		Redaction: cfg.Logging.Redaction,
		MaxSize:   cfg.Logging.MaxSize,
		MaxAge:    cfg.Logging.MaxAge,
		Compress:  cfg.Logging.Compress,
		Output:    console,
	})
}

func newProvider(cfg *config.Config) (agent.LLMProvider, error) {
	factory := &agent.ProviderFactory{}
	return factory.NewProvider(agent.ProviderConfig{
		Provider:           cfg.LLM.Provider,
		BaseURL:            cfg.LLM.BaseURL,
		APIKey:             cfg.LLM.APIKey,
		MaxRetries:         cfg.LLM.MaxRetries,
		Timeout:            cfg.LLM.Timeout(),
		InsecureSkipVerify: cfg.LLM.InsecureSkipVerify,
		DisableProxy:       cfg.LLM.DisableProxy,
	})
}

func loadCatalog(cfg *config.Config) (*catalog.Catalog, error) {
	if cfg.Catalog.Path == "" {
		return catalog.Default(), nil
	}
	return catalog.Load(cfg.Catalog.Path)
}

const preflightTimeout = 30 * time.Second

// confirmerFactory builds the sign-in confirmer once the logger exists.
type confirmerFactory func(log zerolog.Logger) capability.ConfirmationProvider

// startRuntime wires logging, observability, the capability session, the
// invoker and the conversation. The caller must Close the result.
func startRuntime(cfg *config.Config, newConfirmer confirmerFactory, console io.Writer) (*runtime, error) {
	log, err := newLogger(cfg, console)
	if err != nil {
		return nil, err
	}
	rt := &runtime{log: log}

	if err := rt.startObservability(cfg); err != nil {
		rt.Close()
		return nil, err
	}

	tools, err := loadCatalog(cfg)
	if err != nil {
		rt.Close()
		return nil, err
	}

	sessionLog := log.Component("capability")
	forceLogin := cfg.Capability.ForceLogin
	session, err := capability.NewSession(capability.SessionConfig{
		Dial: capability.HTTPDialer(capability.HTTPConfig{
			URL:           cfg.Capability.ServerURL,
			Headers:       cfg.Capability.Headers,
			Timeout:       cfg.Capability.Timeout(),
			ClientName:    "courier",
			ClientVersion: version,
			Logger:        sessionLog,
		}),
		Confirmer:  newConfirmer(log.Component("confirm")),
		Operations: tools.Operations(),
		ForceLogin: &forceLogin,
		OnStateChange: func(from, to capability.AuthState) {
			sessionLog.Debug().Str("from", from.String()).Str("to", to.String()).Msg("Auth state changed")
		},
		Logger: sessionLog,
	})
	if err != nil {
		rt.Close()
		return nil, err
	}
	rt.session = session

	inv, err := invoker.New(invoker.Config{
		Session:   session,
		Validator: tools,
		Logger:    log.Component("invoker"),
	})
	if err != nil {
		rt.Close()
		return nil, err
	}

	provider, err := newProvider(cfg)
	if err != nil {
		rt.Close()
		return nil, err
	}
	rt.provider = provider

	conv, err := agent.NewConversation(agent.Config{
		Provider:     provider,
		Session:      session,
		Catalog:      tools,
		Invoker:      inv,
		SystemPrompt: cfg.Agent.SystemPrompt,
		Model:        cfg.LLM.Model,
		MaxTokens:    cfg.LLM.MaxTokens,
		Temperature:  cfg.LLM.Temperature,
		Logger:       log.Component("agent"),
	})
	if err != nil {
		rt.Close()
		return nil, err
	}
	rt.conversation = conv

	runtimeLog := log.Component("runtime")
	runtimeLog.Info().
		Str("provider", provider.Provider()).
		Str("model", cfg.LLM.Model).
		Str("server", cfg.Capability.ServerURL).
		Str("conversation_id", conv.ID()).
		Msg("Chat runtime ready")
	return rt, nil
}

// preflight pings the LLM provider so a bad endpoint or key is reported
// before the first prompt.
func (rt *runtime) preflight(ctx context.Context, model string) error {
	ctx, cancel := context.WithTimeout(ctx, preflightTimeout)
	defer cancel()

	elapsed, err := agent.Ping(ctx, rt.provider, model)
	if err != nil {
		return fmt.Errorf("LLM provider unreachable: %w", err)
	}
	preflightLog := rt.log.Component("runtime")
	preflightLog.Debug().Dur("latency", elapsed).Msg("LLM provider reachable")
	return nil
}

func (rt *runtime) startObservability(cfg *config.Config) error {
	if cfg.Audit.Enabled {
		if err := observability.InitAuditLogger(cfg.Audit.Path); err != nil {
			return err
		}
		rt.audit = true
	}

	if cfg.Tracing.Enabled {
		exporter := tracing.NewLogExporter(rt.log.Component("tracing"))
		if err := tracing.InitOpenTelemetry(cfg.Tracing.ServiceName, version, sdktrace.NewBatchSpanProcessor(exporter)); err != nil {
			return fmt.Errorf("failed to init tracing: %w", err)
		}
		rt.tracing = true
	}

	if cfg.Metrics.Enabled {
		srv, err := serveMetrics(cfg.Metrics.Addr, rt.log.Component("metrics"))
		if err != nil {
			return err
		}
		rt.metrics = srv
	}
	return nil
}

func serveMetrics(addr string, log zerolog.Logger) (*http.Server, error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("failed to listen for metrics on %s: %w", addr, err)
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", observability.MetricsHandler())
	srv := &http.Server{Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error().Err(err).Msg("Metrics server stopped")
		}
	}()
	log.Info().Str("addr", ln.Addr().String()).Msg("Serving metrics")
	return srv, nil
}

// Close disconnects the session and releases observability resources.
func (rt *runtime) Close() {
	if rt.session != nil {
		rt.session.Disconnect()
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if rt.metrics != nil {
		_ = rt.metrics.Shutdown(ctx)
	}
	if rt.tracing {
		if err := tracing.ShutdownOpenTelemetry(ctx); err != nil {
			shutdownLog := rt.log.GetZerolog()
			shutdownLog.Warn().Err(err).Msg("Tracing shutdown failed")
		}
	}
	if rt.audit {
		_ = observability.GetAuditLogger().Close()
	}
	_ = rt.log.Close()
}
