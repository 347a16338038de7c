package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	_ "net/http/pprof"
	"os"
	"os/signal"
	"path/filepath"
	"runtime"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"

	"shopfinder/pkg/config"
	"shopfinder/pkg/crawler"
	"shopfinder/pkg/dedup"
	"shopfinder/pkg/extract"
	"shopfinder/pkg/fetch"
	"shopfinder/pkg/frontier"
	"shopfinder/pkg/models"
	"shopfinder/pkg/sink"
	"shopfinder/pkg/source"
	"shopfinder/pkg/storage"
)

func main() {
	runtime.SetBlockProfileRate(1000)
	runtime.SetMutexProfileFraction(1000)

	log := logrus.New()
	log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true, TimestampFormat: "15:04:05.000"})
	log.SetLevel(logrus.InfoLevel)

	configFileFlag := flag.String("config", "config.yaml", "Path to YAML config file")
	logLevelFlag := flag.String("loglevel", "info", "Log level (debug, info, warn, error, fatal)")
	resumeFlag := flag.Bool("resume", false, "Preload previously discovered entities from the state DB")
	pprofAddr := flag.String("pprof", "", "Address for pprof HTTP server (e.g. ':6060', empty to disable)")
	flag.Parse()

	level, err := logrus.ParseLevel(*logLevelFlag)
	if err != nil {
		log.Warnf("Invalid log level '%s', using default 'info'. Error: %v", *logLevelFlag, err)
	} else {
		log.SetLevel(level)
	}

	// --- Configuration ---
	log.Infof("Loading configuration from %s", *configFileFlag)
	cfg, err := config.Load(*configFileFlag)
	if err != nil {
		log.Fatalf("Config load error: %v", err)
	}
	warnings, err := cfg.Validate()
	for _, w := range warnings {
		log.Warn(w)
	}
	if err != nil {
		log.Fatalf("Config validation error: %v", err)
	}
	log.Infof("Config: workers:%d maxReqs:%d perHost:%d delay:%v suffix:%s sources:%v",
		cfg.NumWorkers, cfg.MaxRequests, cfg.MaxRequestsPerHost, cfg.DelayPerHost,
		cfg.Fingerprint.Suffix, cfg.EnabledSources())

	if *pprofAddr != "" {
		go func() {
			log.Infof("Starting pprof HTTP server on http://%s/debug/pprof/", *pprofAddr)
			if err := http.ListenAndServe(*pprofAddr, nil); err != nil {
				log.Errorf("Pprof server failed on %s: %v", *pprofAddr, err)
			}
		}()
	}

	// --- Context & signals ---
	var runCtx context.Context
	var cancelRun context.CancelFunc
	if cfg.GlobalTimeout > 0 {
		log.Infof("Global run timeout: %v", cfg.GlobalTimeout)
		runCtx, cancelRun = context.WithTimeout(context.Background(), cfg.GlobalTimeout)
	} else {
		runCtx, cancelRun = context.WithCancel(context.Background())
	}
	defer cancelRun()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigChan
		log.Warnf("Received signal: %v. Initiating graceful shutdown...", sig)
		cancelRun()
		select {
		case sig = <-sigChan:
			log.Warnf("Received second signal: %v. Forcing exit.", sig)
			os.Exit(1)
		case <-time.After(30 * time.Second):
			log.Warn("Graceful shutdown period exceeded. Forcing exit.")
			os.Exit(1)
		}
	}()
	defer signal.Stop(sigChan)

	// --- Storage ---
	store, err := storage.NewBadgerStore(cfg.StateDir, *resumeFlag, log.WithField("component", "storage"))
	if err != nil {
		log.Fatalf("Failed to initialize results DB: %v", err)
	}
	defer store.Close()
	go store.RunGC(runCtx, 10*time.Minute)

	// --- Fetch stack ---
	var identity fetch.RequestIdentity
	if cfg.RotateUserAgents {
		identity = fetch.NewRotatingIdentity(cfg.ExtraUserAgents, time.Now().UnixNano())
	} else {
		identity = fetch.StaticIdentity(cfg.UserAgent)
	}
	httpClient := fetch.NewClient(cfg.HTTPClientSettings, log)
	fetcher := fetch.NewFetcher(httpClient, identity, cfg.AttemptBudget,
		cfg.InitialRetryDelay, cfg.MaxRetryDelay, cfg.MaxPageSizeBytes,
		log.WithField("component", "fetcher"))
	robots := fetch.NewRobotsCache(httpClient, identity, log.WithField("component", "robots"))
	gate := fetch.NewPolitenessGate(cfg.DelayPerHost, cfg.HostRateLimit.Requests,
		cfg.HostRateLimit.Window, robots, log.WithField("component", "politeness"))
	hostSems := fetch.NewHostSemaphorePool(cfg.MaxRequestsPerHost, log.WithField("component", "hostsem"))
	go hostSems.RunEviction(runCtx, 5*time.Minute)

	// --- Domain components ---
	canon := extract.NewCanonicalizer(cfg.Fingerprint)
	extractor := extract.NewExtractor(cfg.Fingerprint.Suffix, log.WithField("component", "extract"))
	dedupStore := dedup.NewStore()
	if *resumeFlag {
		persisted, err := store.LoadEntities(runCtx)
		if err != nil {
			log.Errorf("Loading persisted entities failed: %v", err)
		} else {
			loaded := dedupStore.Preload(persisted)
			log.Infof("Preloaded %d entities from previous runs", loaded)
		}
	}
	front := frontier.New(cfg.Limits.MaxFrontierSize, cfg.Limits.MaxConsecutiveEmptyPages,
		log.WithField("component", "frontier"))
	providers, err := source.Build(cfg, log)
	if err != nil {
		log.Fatalf("Failed to build source providers: %v", err)
	}

	coordinator := crawler.New(cfg, crawler.Deps{
		Fetcher:   fetcher,
		Gate:      gate,
		HostSems:  hostSems,
		Frontier:  front,
		Extractor: extractor,
		Canon:     canon,
		Dedup:     dedupStore,
		Store:     store,
		Providers: providers,
		Log:       log,
	})

	// --- Run ---
	summary, runErr := coordinator.Run(runCtx)

	// --- Outputs ---
	writeOutputs(cfg, dedupStore.Entities(), summary, log)

	log.Infof("Run %s finished: outcome=%s processed=%d entities=%d blocked=%d failed=%d robots=%d attempts=%d",
		summary.RunID, summary.Outcome, summary.Processed, summary.Entities,
		summary.Blocked, summary.Failed, summary.RobotsSkipped, summary.RequestSlots)

	if runErr != nil {
		if errors.Is(runErr, context.Canceled) {
			log.Warn("Run cancelled gracefully.")
			os.Exit(0)
		}
		if errors.Is(runErr, context.DeadlineExceeded) {
			log.Error("Run hit the global timeout.")
			os.Exit(1)
		}
		log.Errorf("Run finished with error: %v", runErr)
		os.Exit(1)
	}
	os.Exit(0)
}

// writeOutputs runs every configured sink; a failing sink does not stop the
// others.
func writeOutputs(cfg *config.AppConfig, entities []models.CanonicalEntity, summary models.RunSummary, log *logrus.Logger) {
	if err := os.MkdirAll(cfg.Output.Dir, 0755); err != nil {
		log.Errorf("Cannot create output directory %s: %v", cfg.Output.Dir, err)
		return
	}
	var sinks []sink.Sink
	if cfg.Output.JSONFile != "" {
		sinks = append(sinks, &sink.JSONSink{Path: filepath.Join(cfg.Output.Dir, cfg.Output.JSONFile)})
	}
	if cfg.Output.CSVFile != "" {
		sinks = append(sinks, &sink.CSVSink{Path: filepath.Join(cfg.Output.Dir, cfg.Output.CSVFile)})
	}
	if cfg.Output.ReportFile != "" {
		sinks = append(sinks, &sink.ReportSink{Path: filepath.Join(cfg.Output.Dir, cfg.Output.ReportFile)})
	}
	for _, s := range sinks {
		if err := s.Write(entities, summary); err != nil {
			log.Errorf("Sink %s failed: %v", s.Name(), err)
		} else {
			log.Infof("Sink %s written", s.Name())
		}
	}
}
