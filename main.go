package main

import (
	"context"
	"flag"
	"net/http"
	"net/http/pprof"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/matst80/slask-tracking/pkg/common"
	"github.com/matst80/slask-tracking/pkg/config"
	"github.com/matst80/slask-tracking/pkg/gtag"
	"github.com/matst80/slask-tracking/pkg/logging"
	"github.com/matst80/slask-tracking/pkg/server"
	"github.com/matst80/slask-tracking/pkg/session"
	"github.com/matst80/slask-tracking/pkg/tracking"
)

var enableProfiling = flag.Bool("profiling", false, "enable profiling endpoints")
var debugAddress = flag.String("debug", ":8081", "address for metrics and profiling")

const sweepInterval = time.Minute

func main() {
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		// logger config depends on cfg, so fall back to a plain production logger
		zap.Must(zap.NewProduction()).Fatal("invalid configuration", zap.Error(err))
	}
	log, err := logging.New(cfg.IsDevelopment(), cfg.LogLevel)
	if err != nil {
		zap.Must(zap.NewProduction()).Fatal("failed to create logger", zap.Error(err))
	}
	defer func() { _ = log.Sync() }()

	sink := gtag.NewSink(cfg.TrackingID, cfg.IsDevelopment(), log)
	tr, err := buildTransports(cfg, log)
	if err != nil {
		log.Fatal("failed to set up transports", zap.Error(err))
	}
	sink.SetTagger(tr.Tagger())
	if ok, reason := sink.Available(); !ok {
		log.Warn("analytics disabled", zap.String("reason", reason))
	}

	factory := session.NewFactory(cfg, sink, tracking.RealScheduler, log)
	sessions := session.NewRegistry(factory, cfg.SessionIdleTimeout, log)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go sessions.Run(ctx, sweepInterval)

	srv := &server.TrackingServer{
		Sessions: sessions,
		Sink:     sink,
		Log:      log.Named("http"),
	}
	if cfg.IsDevelopment() {
		srv.DataLayer = tr.dataLayer
	}

	go runDebugServer(log)

	timeouts := common.LoadTimeoutConfig(common.DefaultTimeouts, os.LookupEnv)
	httpServer := common.NewServerWithTimeouts(&http.Server{
		Addr:    cfg.ListenAddress,
		Handler: srv.Handler(),
	}, timeouts)

	log.Info("starting tracking service",
		zap.String("environment", cfg.Environment),
		zap.Strings("transports", cfg.Transports),
		zap.String("search_events", cfg.SearchEvents),
		zap.String("filter_events", cfg.FilterEvents))

	err = common.RunServerWithShutdown(ctx, httpServer, log, timeouts,
		sessions.Close,
		tr.Close,
	)
	if err != nil {
		log.Fatal("server failed", zap.Error(err))
	}
}

func runDebugServer(log *zap.Logger) {
	debugMux := http.NewServeMux()
	debugMux.Handle("/metrics", promhttp.Handler())
	if *enableProfiling {
		log.Info("profiling enabled")
		debugMux.HandleFunc("/debug/pprof/", pprof.Index)
		debugMux.HandleFunc("/debug/pprof/cmdline", pprof.Cmdline)
		debugMux.HandleFunc("/debug/pprof/profile", pprof.Profile)
		debugMux.HandleFunc("/debug/pprof/symbol", pprof.Symbol)
		debugMux.HandleFunc("/debug/pprof/trace", pprof.Trace)
	}
	log.Info("starting debug server", zap.String("addr", *debugAddress))
	if err := http.ListenAndServe(*debugAddress, debugMux); err != nil {
		log.Warn("debug server stopped", zap.Error(err))
	}
}
