package main

import (
	"context"
	"database/sql"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"accountsplus.org/internal/accounts"
	"accountsplus.org/internal/admin"
	"accountsplus.org/internal/audit"
	"accountsplus.org/internal/auth"
	"accountsplus.org/internal/config"
	"accountsplus.org/internal/events"
	"accountsplus.org/internal/httpapi"
	"accountsplus.org/internal/lockout"
	"accountsplus.org/internal/masquerade"
	"accountsplus.org/internal/obs"
	"accountsplus.org/internal/session"
)

var (
	version = "0.3.1"
	commit  = "dev"
)

func main() {
	obs.Init()
	obs.InitBuildInfo(version, commit)
	cfg := config.FromEnv()
	ctx := context.Background()

	// Postgres when a DSN is configured, in-memory stores otherwise. The
	// in-memory mode serves local development only.
	var (
		db         *sql.DB
		users      accounts.UserStore
		companies  accounts.CompanyStore
		grants     accounts.GrantStore
		sessions   session.Store
		auditStore audit.Store
	)
	if cfg.PGDSN != "" {
		var err error
		db, err = sql.Open("pgx", cfg.PGDSN)
		if err != nil {
			log.Fatalf("open db: %v", err)
		}
		db.SetMaxOpenConns(10)
		db.SetMaxIdleConns(10)
		db.SetConnMaxLifetime(30 * time.Minute)

		pg := accounts.NewPGStore(db)
		users = pg.Users(ctx)
		companies = pg.Companies(ctx)
		grants = pg.Grants(ctx)
		sessions = session.NewPGStore(db)
		auditStore = audit.NewPGStore(db)
	} else {
		log.Printf("no ACCOUNTS_PG_DSN set, using in-memory stores")
		mem := accounts.NewMemoryStore()
		users = mem.Users(ctx)
		companies = mem.Companies(ctx)
		grants = mem.Grants(ctx)
		sessions = session.NewMemoryStore()
		auditStore = audit.NewMemoryStore()
	}

	bus := events.NewBus()
	recorder := audit.NewRecorder(cfg.AuditLogEnabled, auditStore, users, companies)
	audit.Register(bus, recorder)

	guard := lockout.NewGuard(cfg.LoginFailureLimit, cfg.LockoutCooloff)
	defer guard.Close()
	checker := accounts.NewGrantChecker(grants)

	authSvc := auth.NewService(users, sessions, bus, guard, cfg.ResetTokenSecret, cfg.ResetTokenLifetime)
	masqSvc := masquerade.NewService(users, checker, sessions, bus)
	adminSvc := admin.NewService(users, companies, checker, bus)

	api := httpapi.New(cfg, httpapi.ReadyProbe{DB: db}, version,
		users, sessions, auditStore, authSvc, masqSvc, adminSvc)

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           api.Handler(),
		ReadTimeout:       15 * time.Second,
		ReadHeaderTimeout: 15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	log.Printf("Starting accounts-api %s on %s", version, srv.Addr)

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("listen: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	<-stop
	log.Println("Shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	_ = srv.Shutdown(shutdownCtx)
	if db != nil {
		_ = db.Close()
	}
	log.Println("Stopped")
}
