package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"rmis.udsm.ac.tz/internal/accounts"
	"rmis.udsm.ac.tz/internal/auth"
	"rmis.udsm.ac.tz/internal/config"
	"rmis.udsm.ac.tz/internal/httpapi"
	"rmis.udsm.ac.tz/internal/obs"
	"rmis.udsm.ac.tz/internal/risk"
	"rmis.udsm.ac.tz/internal/store/pg"
)

var (
	version = "0.3.0"
	commit  = "dev"
)

func main() {
	cfg := config.Load()

	obs.Init()
	obs.InitBuildInfo(version, commit)

	if cfg.AuthSecret == "" {
		log.Fatal("RMIS_AUTH_SECRET is required")
	}

	// Without a DSN the service runs on in-memory stores; useful for
	// local development and demos, never for a real deployment.
	var (
		accStore  accounts.Store = accounts.NewInMemory()
		riskStore risk.Store     = risk.NewInMemory()
		pgStore   *pg.Store
	)
	if cfg.DatabaseDSN != "" {
		var err error
		pgStore, err = pg.Open(cfg.DatabaseDSN)
		if err != nil {
			log.Fatalf("open db: %v", err)
		}
		accStore = pgStore.Accounts()
		riskStore = pgStore.Risks()
	}

	accSvc, err := accounts.NewService(accStore, cfg.EmailDomain, cfg.BcryptCost)
	if err != nil {
		log.Fatalf("accounts service: %v", err)
	}
	tokens, err := auth.NewTokenService(cfg.AuthSecret, cfg.TokenTTL, cfg.Issuer)
	if err != nil {
		log.Fatalf("token service: %v", err)
	}
	logins, err := auth.NewService(accSvc, tokens)
	if err != nil {
		log.Fatalf("auth service: %v", err)
	}
	risks := risk.NewService(riskStore)

	probe := httpapi.ReadyProbe{}
	if pgStore != nil {
		probe.DB = pgStore.DB()
	}
	api := httpapi.New(probe, version, accSvc, logins, tokens, risks)
	api.ConfigureLimits(cfg.RateBurst, cfg.RatePerSec, cfg.MaxBodyKB<<10)

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           api.Handler(),
		ReadTimeout:       15 * time.Second,
		ReadHeaderTimeout: 15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	log.Printf("Starting rmis-api %s on %s", version, srv.Addr)
	obs.SetReady(true)

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("listen: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	<-stop
	log.Println("Shutting down...")
	obs.SetReady(false)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	_ = srv.Shutdown(ctx)
	if pgStore != nil {
		_ = pgStore.Close()
	}
	log.Println("Stopped")
}
