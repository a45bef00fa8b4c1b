// Package server wires the C1-C8 components together behind an HTTP
// router and owns the process lifecycle.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/jcmp-relay/server/config"
	"github.com/jcmp-relay/server/dispatcher"
	"github.com/jcmp-relay/server/midi"
	"github.com/jcmp-relay/server/playback"
	"github.com/jcmp-relay/server/registry"
	"github.com/jcmp-relay/server/rtc"
	"github.com/jcmp-relay/server/signaling"
	"github.com/jcmp-relay/server/telemetry"
)

// safetyNoteOffMs is how far after a noteOn a companion safety noteOff is
// scheduled. It is scheduled unconditionally; an explicit noteOff arriving
// first still plays, and the safety noteOff plays again afterward as a
// harmless repeat of note-off on an already-silent note.
const safetyNoteOffMs = 800

// App wires every component together and serves both the signaling
// WebSocket and the operator-facing HTTP surface.
type App struct {
	cfg    *config.Config
	logger zerolog.Logger

	registry    *registry.Registry
	queue       *playback.Queue
	sink        *midi.Sink
	negotiator  *rtc.Negotiator
	counters    *telemetry.Counters
	broadcaster *telemetry.Broadcaster
	dispatcher  *dispatcher.Loop

	router     *chi.Mux
	httpServer *http.Server
}

// New constructs an App from a resolved configuration.
func New(cfg *config.Config, logger zerolog.Logger) *App {
	reg := registry.New()
	queue := playback.NewQueue()
	sink := midi.Open(midi.Config{Preferred: cfg.DevicePreferred, Logger: logger})
	counters := telemetry.NewCounters()

	a := &App{
		cfg:      cfg,
		logger:   logger,
		registry: reg,
		queue:    queue,
		sink:     sink,
		counters: counters,
	}

	a.negotiator = rtc.NewNegotiator(a, a, a, logger)
	a.dispatcher = dispatcher.New(queue, sink, logger, cfg.Debug)
	a.broadcaster = telemetry.NewBroadcaster(reg, queue, counters, logger)
	a.router = a.buildRouter()

	return a
}

func (a *App) buildRouter() *chi.Mux {
	r := chi.NewRouter()
	r.Get("/api/status", a.handleStatus)
	r.Handle("/metrics", promhttp.Handler())
	r.Get("/ws", a.handleWS)
	return r
}

func (a *App) handleStatus(w http.ResponseWriter, r *http.Request) {
	resp := map[string]interface{}{
		"server":        "jcmp-relay",
		"midiConnected": a.sink.Available(),
		"clients":       a.registry.Len(),
		"queueLength":   a.queue.Len(),
		"timestamp":     time.Now().UnixMilli(),
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}

func (a *App) handleWS(w http.ResponseWriter, r *http.Request) {
	signaling.Serve(w, r, a, a.logger)
}

// Run starts the dispatcher and telemetry loops and blocks serving HTTP
// until ctx is cancelled or the listener fails.
func (a *App) Run(ctx context.Context) error {
	go a.dispatcher.Run(ctx)
	go a.broadcaster.Run(ctx)

	a.httpServer = &http.Server{
		Addr:    fmt.Sprintf(":%d", a.cfg.Port),
		Handler: a.router,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- a.httpServer.ListenAndServe()
	}()

	a.logger.Info().Int("port", a.cfg.Port).Bool("midi_available", a.sink.Available()).Msg("jcmp-relay listening")

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = a.httpServer.Shutdown(shutdownCtx)
		_ = a.sink.Close()
		return nil
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}
