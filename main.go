package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/common-nighthawk/go-figure"
	"github.com/dhawton/log4g"
	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"
	"github.com/spf13/pflag"

	"github.com/vmemphis/data-parser/accounting"
	"github.com/vmemphis/data-parser/cache"
	"github.com/vmemphis/data-parser/database"
	"github.com/vmemphis/data-parser/facility"
	"github.com/vmemphis/data-parser/metrics"
	"github.com/vmemphis/data-parser/pirep"
	"github.com/vmemphis/data-parser/reconcile"
	"github.com/vmemphis/data-parser/session"
	"github.com/vmemphis/data-parser/vatsim"
)

const (
	vatsimInterval = 15 * time.Second
	pirepInterval  = 2 * time.Minute
)

var log = log4g.Category("main")

func main() {
	facilityFile := pflag.String("facility", "", "facility definition file (default $FACILITY_FILE or facility.json)")
	envFile := pflag.String("env-file", ".env", "dotenv file to load if it exists")
	once := pflag.Bool("once", false, "run each poll once and exit")
	pflag.Parse()

	intro := figure.NewFigure("ZME DP", "", false).Slicify()
	for i := 0; i < len(intro); i++ {
		log.Info(intro[i])
	}

	log.Info("Checking for " + *envFile + ", loading if exists")
	if _, err := os.Stat(*envFile); err == nil {
		log.Info("Found, loading")
		err := godotenv.Load(*envFile)
		if err != nil {
			log.Error("Error loading " + *envFile + " file: " + err.Error())
		}
	}

	cfg := LoadConfig(*facilityFile)
	if cfg.Debug {
		log4g.SetLogLevel(log4g.DEBUG)
	}

	log.Info("Loading facility definition from " + cfg.FacilityFile + "...")
	fac, err := facility.Load(cfg.FacilityFile)
	if err != nil {
		log.Fatal(fmt.Sprintf("Failed to load facility: %s", err.Error()))
	}
	log.Info(fmt.Sprintf("Facility %s: %d airports, %d positions, %d boundary points", fac.ID, len(fac.Airports), len(fac.Positions), len(fac.Polygon.Points)))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	log.Info("Connecting to database and handling migrations")
	store, err := database.Connect(cfg.Database)
	if err != nil {
		log.Fatal("Failed to connect to database: " + err.Error())
	}

	log.Info("Connecting to Redis")
	c, err := cache.Connect(ctx, cfg.RedisURI)
	if err != nil {
		log.Fatal("Failed to connect to Redis: " + err.Error())
	}
	defer c.Close()

	if err := c.Put(ctx, cache.KeyAirports, strings.Join(fac.Airports, "|"), 0); err != nil {
		log.Fatal("Failed to write airport list: " + err.Error())
	}

	ledger := session.NewLedger(store, accounting.NewClient(cfg.AccountingURL, cfg.AccountingKey, cfg.FetchTimeout))
	engine := reconcile.New(fac, vatsim.NewClient(cfg.DataURL, cfg.MetarURL, cfg.FetchTimeout), store, c, ledger, reconcile.Options{
		Scope: cfg.CacheScope,
	})
	reports := pirep.NewIngester(fac, pirep.NewClient(cfg.PirepURL, cfg.FetchTimeout), store)

	if cfg.MetricsAddr != "" {
		go serveMetrics(cfg.MetricsAddr)
	}

	pollVatsim := job(ctx, engine.Poll, vatsimInterval)
	pollPireps := job(ctx, reports.Poll, pirepInterval)

	log.Info("Running first time...")
	pollVatsim()
	pollPireps()
	if *once {
		ledger.Wait()
		return
	}

	log.Info("Creating cron jobs...")
	logger := cronLogger{}
	jobs := cron.New(cron.WithLogger(logger), cron.WithChain(cron.Recover(logger), cron.SkipIfStillRunning(logger)))
	if _, err := jobs.AddFunc("@every "+vatsimInterval.String(), pollVatsim); err != nil {
		log.Fatal("Failed to schedule VATSIM poll: " + err.Error())
	}
	if _, err := jobs.AddFunc("@every "+pirepInterval.String(), pollPireps); err != nil {
		log.Fatal("Failed to schedule PIREP poll: " + err.Error())
	}

	jobs.Start()

	<-ctx.Done()
	log.Info("Shutting down, waiting for running polls...")
	<-jobs.Stop().Done()
	ledger.Wait()
}

func serveMetrics(addr string) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler())
	server := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	log.Info("Serving metrics on " + addr)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Error("Metrics server stopped: " + err.Error())
	}
}
