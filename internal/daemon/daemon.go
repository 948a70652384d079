// Package daemon wires the store, provider, orchestrator, gateway and
// the stale-session sweeper into one runnable service.
package daemon

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	"github.com/lapakbot/lapak/internal/config"
	"github.com/lapakbot/lapak/internal/gateway"
	"github.com/lapakbot/lapak/internal/logger"
	"github.com/lapakbot/lapak/internal/store"
	"github.com/lapakbot/lapak/pkg/chat"
	"github.com/lapakbot/lapak/pkg/llm"
)

// Daemon is the Lapak service.
type Daemon struct {
	config *config.Config
	logger *logger.Logger

	store        *store.Store
	provider     llm.Provider
	orchestrator *chat.Orchestrator
	gateway      *gateway.Server
	sweeper      *cron.Cron

	running bool
}

// New creates a daemon with all components wired.
func New(cfg *config.Config, log *logger.Logger) (*Daemon, error) {
	zl := log.GetZerolog()

	st, err := store.Open(cfg.Database.Path, zl.With().Str("component", "store").Logger())
	if err != nil {
		return nil, fmt.Errorf("failed to open store: %w", err)
	}

	provider, err := llm.NewProvider(cfg.AI.Provider, cfg.AI.APIKey)
	if err != nil {
		st.Close()
		return nil, err
	}

	orchestrator := chat.New(st, provider, chat.Options{
		Model:          cfg.AI.Model,
		Temperature:    cfg.AI.Temperature,
		MaxTokens:      cfg.AI.MaxTokens,
		CallTimeout:    time.Duration(cfg.AI.TimeoutSeconds) * time.Second,
		RecoveryWindow: cfg.Chat.RecoveryWindow,
	}, zl.With().Str("component", "chat").Logger())

	gw, err := gateway.NewServer(gateway.Config{
		Host:         cfg.Server.Host,
		Port:         cfg.Server.Port,
		Store:        st,
		Orchestrator: orchestrator,
		Logger:       zl.With().Str("component", "gateway").Logger(),
	})
	if err != nil {
		st.Close()
		return nil, err
	}

	d := &Daemon{
		config:       cfg,
		logger:       log,
		store:        st,
		provider:     provider,
		orchestrator: orchestrator,
		gateway:      gw,
	}

	if err := d.initSweeper(zl.With().Str("component", "sweeper").Logger()); err != nil {
		st.Close()
		return nil, err
	}

	return d, nil
}

// initSweeper schedules the periodic close of idle sessions.
func (d *Daemon) initSweeper(log zerolog.Logger) error {
	idleFor := time.Duration(d.config.Chat.SessionIdleMinutes) * time.Minute

	c := cron.New()
	_, err := c.AddFunc(d.config.Chat.SweepSchedule, func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
		defer cancel()

		closed, err := d.store.CloseIdleSessions(ctx, idleFor)
		if err != nil {
			log.Error().Err(err).Msg("Session sweep failed")
			return
		}
		log.Debug().Int64("closed", closed).Msg("Session sweep completed")
	})
	if err != nil {
		return fmt.Errorf("invalid sweep schedule %q: %w", d.config.Chat.SweepSchedule, err)
	}

	d.sweeper = c
	return nil
}

// Start starts the gateway and the sweeper.
func (d *Daemon) Start() error {
	if d.running {
		return fmt.Errorf("daemon already running")
	}

	if err := d.gateway.Start(); err != nil {
		return err
	}
	d.sweeper.Start()
	d.running = true

	zl := d.logger.GetZerolog()
	zl.Info().
		Str("provider", d.provider.Name()).
		Str("model", d.config.AI.Model).
		Msg("Daemon started")
	return nil
}

// Run starts the daemon and blocks until SIGINT/SIGTERM.
func (d *Daemon) Run() error {
	if err := d.Start(); err != nil {
		return err
	}

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	received := <-sig

	zl := d.logger.GetZerolog()
	zl.Info().Str("signal", received.String()).Msg("Shutting down")
	return d.Stop()
}

// Stop shuts everything down in reverse dependency order.
func (d *Daemon) Stop() error {
	if !d.running {
		return nil
	}
	d.running = false

	sweepCtx := d.sweeper.Stop()
	<-sweepCtx.Done()

	if err := d.gateway.Stop(); err != nil {
		return err
	}
	if err := d.store.Close(); err != nil {
		return fmt.Errorf("failed to close store: %w", err)
	}

	zl := d.logger.GetZerolog()
	zl.Info().Msg("Daemon stopped")
	return nil
}
