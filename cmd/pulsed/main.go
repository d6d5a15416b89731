// Command pulsed runs the automation engine: the trigger scheduler, the
// execution pipeline, the batch dispatcher, a JSON API over the engine
// surfaces, and the websocket event stream.
//
// Actuator capabilities are registered by the embedding product; this
// binary wires a log-only actuator for every action kind so the engine can
// run standalone as a dry-run daemon.
package main

import (
	"context"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/solacehq/pulse/pkg/actuator"
	"github.com/solacehq/pulse/pkg/batch"
	"github.com/solacehq/pulse/pkg/config"
	"github.com/solacehq/pulse/pkg/eventstream"
	"github.com/solacehq/pulse/pkg/pipeline"
	"github.com/solacehq/pulse/pkg/scheduler"
	"github.com/solacehq/pulse/pkg/storage"
	"github.com/solacehq/pulse/pkg/trigger"
	"github.com/solacehq/pulse/pkg/usercontext"
)

var configPath = flag.String("config", "pulse.yaml", "path to the engine config file")

func main() {
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		println("failed to load config:", err.Error())
		os.Exit(1)
	}

	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = zerolog.InfoLevel
	}
	log := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.StampMilli}).
		With().Timestamp().Logger().Level(level)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var triggers trigger.Store
	var records pipeline.RecordStore
	var jobs batch.JobStore
	var contexts *usercontext.Store
	if cfg.Database.Path != "" {
		db, err := storage.OpenDatabase(ctx, cfg.Database.Path, log)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to open database")
		}
		defer db.Close()
		triggers = storage.NewTriggerStore(db)
		records = storage.NewRecordStore(db)
		jobs = storage.NewJobStore(db)
		contexts = usercontext.NewStore(db)
	} else {
		triggers = storage.NewFileTriggerStore(cfg.Database.TriggerFile)
	}

	bus := eventstream.NewBus()
	registry := actuator.NewRegistry(time.Duration(cfg.Pipeline.ActionTimeoutMs) * time.Millisecond)
	registerDryRunActuators(registry, log)

	runner := pipeline.NewRunner(pipeline.Deps{
		Log:         log,
		Registry:    registry,
		Records:     records,
		Events:      bus,
		ActionDelay: time.Duration(cfg.Pipeline.ActionDelayMs) * time.Millisecond,
	})
	var contextReader usercontext.Reader
	if contexts != nil {
		contextReader = contexts
	}
	svc := scheduler.NewService(scheduler.Deps{
		Log:               log,
		Triggers:          triggers,
		Context:           contextReader,
		Runner:            runner,
		Events:            bus,
		RunLogDir:         cfg.Scheduler.RunLogDir,
		TickInterval:      time.Duration(cfg.Scheduler.TickMs) * time.Millisecond,
		LookAhead:         time.Duration(cfg.Scheduler.LookAheadMs) * time.Millisecond,
		MaxConcurrentRuns: cfg.Scheduler.MaxConcurrentRuns,
	})
	if err := svc.Start(); err != nil {
		log.Fatal().Err(err).Msg("Failed to start scheduler")
	}

	var dispatcher *batch.Dispatcher
	if jobs != nil {
		dispatcher = batch.NewDispatcher(batch.Deps{
			Log:       log,
			Jobs:      jobs,
			Sender:    registry,
			Events:    bus,
			SendDelay: time.Duration(cfg.Batch.SendDelayMs) * time.Millisecond,
		})
	}

	mux := http.NewServeMux()
	mux.Handle("/events", eventstream.NewServer(bus, log))
	(&api{
		log:        log.With().Str("component", "api").Logger(),
		engineCtx:  ctx,
		svc:        svc,
		dispatcher: dispatcher,
		contexts:   contexts,
		records:    records,
		runLogDir:  cfg.Scheduler.RunLogDir,
	}).register(mux)
	server := &http.Server{Addr: cfg.Listen, Handler: mux}
	go func() {
		log.Info().Str("listen", cfg.Listen).Msg("HTTP server listening")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error().Err(err).Msg("HTTP server failed")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = server.Shutdown(shutdownCtx)
	svc.Stop()
}

func registerDryRunActuators(registry *actuator.Registry, log zerolog.Logger) {
	kinds := []trigger.ActionKind{
		trigger.ActionSendMessage, trigger.ActionSendEmail, trigger.ActionCalendarEvent,
		trigger.ActionOpenApp, trigger.ActionPlayMusic, trigger.ActionStartWorkflow,
		trigger.ActionCreateNote, trigger.ActionTriggerReminder,
	}
	for _, kind := range kinds {
		if err := registry.Register(kind, actuator.Func(func(_ context.Context, action trigger.Action) error {
			log.Info().Str("action_kind", string(action.Kind)).
				Str("target", action.Target).Str("platform", action.Platform).
				Msg("Dry-run actuator invoked")
			return nil
		})); err != nil {
			log.Fatal().Err(err).Str("action_kind", string(kind)).Msg("Failed to register actuator")
		}
	}
}
