package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/itfintrack/itfintrack/internal/adapter/chart"
	httpadapter "github.com/itfintrack/itfintrack/internal/adapter/http"
	"github.com/itfintrack/itfintrack/internal/adapter/persistence"
	"github.com/itfintrack/itfintrack/internal/config"
	"github.com/itfintrack/itfintrack/internal/domain"
	"github.com/itfintrack/itfintrack/internal/infra/logger"
	"github.com/itfintrack/itfintrack/internal/infra/ratelimit"
	"github.com/itfintrack/itfintrack/internal/infra/token"
	"github.com/itfintrack/itfintrack/internal/ports"
	"github.com/itfintrack/itfintrack/internal/usecase"
)

const version = "1.0.0"

func main() {
	showVersion := flag.Bool("version", false, "print the version and exit")
	migrateOnly := flag.Bool("migrate", false, "apply the schema and exit")
	generateOnly := flag.Bool("generate", false, "run one expense generation pass and exit")
	flag.Parse()

	if *showVersion {
		fmt.Println("itfintrack", version)
		return
	}

	ctx := context.Background()

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	// Initialize structured logger
	appLogger := logger.New(logger.Config{
		Level:       cfg.Logging.Level,
		Format:      cfg.Logging.Format,
		ServiceName: "itfintrack",
	})
	appLogger.Info(ctx, "Application starting", map[string]interface{}{
		"version": version,
		"env":     cfg.Server.Environment,
		"driver":  cfg.Database.Driver,
	})

	store, err := openStore(ctx, cfg)
	if err != nil {
		appLogger.Error(ctx, "Failed to open database", err, map[string]interface{}{"driver": cfg.Database.Driver})
		os.Exit(1)
	}
	defer store.Close()

	if cfg.Database.AutoMigrate || *migrateOnly {
		if err := store.Migrate(ctx); err != nil {
			appLogger.Error(ctx, "Failed to apply schema", err, nil)
			os.Exit(1)
		}
		appLogger.Info(ctx, "Schema up to date", nil)
	}
	if *migrateOnly {
		return
	}

	deps := usecase.Deps{Store: store, Clock: ports.SystemClock{}, Logger: appLogger}
	policy := domain.SchedulePolicy{GraceDays: cfg.Scheduler.GraceDays, LookaheadDays: cfg.Scheduler.LookaheadDays}
	bills := usecase.NewBillUseCase(deps, policy, cfg.Scheduler.MaxCatchUp)

	if *generateOnly {
		report, err := bills.GenerateDue(ctx, domain.SystemActor, time.Time{})
		if err != nil {
			appLogger.Error(ctx, "Generation failed", err, nil)
			os.Exit(1)
		}
		fmt.Printf("scanned=%d generated=%d skipped=%d failed=%d\n",
			report.Scanned, len(report.Generated), len(report.Skipped), len(report.Failed))
		if len(report.Failed) > 0 {
			os.Exit(2)
		}
		return
	}

	tokens, err := token.NewJWTService(token.Config{
		Secret: cfg.Security.JWTSecret,
		TTL:    cfg.Security.JWTExpiration,
		Issuer: cfg.Security.JWTIssuer,
	})
	if err != nil {
		appLogger.Error(ctx, "Failed to initialize JWT service", err, nil)
		os.Exit(1)
	}

	limiter, err := ratelimit.New(ctx, ratelimit.Config{
		Enabled:  cfg.RateLimit.Enabled,
		RedisURL: cfg.GetRedisURL(),
		Limit:    cfg.RateLimit.Requests,
		Window:   cfg.RateLimit.Window,
		Prefix:   "itfintrack:rl",
	}, appLogger)
	if err != nil {
		appLogger.Error(ctx, "Failed to initialize rate limiter, continuing without it", err, map[string]interface{}{
			"redis_host": cfg.Redis.Host,
		})
		limiter = ratelimit.Noop{}
	}

	server := httpadapter.NewServer(httpadapter.ServerConfig{
		Addr:         cfg.Addr(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
		CORSOrigins:  cfg.Server.CORSOrigins,
	}, httpadapter.Services{
		Catalog:   usecase.NewCatalogUseCase(deps),
		Expenses:  usecase.NewExpenseUseCase(deps),
		Approvals: usecase.NewApprovalUseCase(deps),
		Bills:     bills,
		Incomes:   usecase.NewIncomeUseCase(deps),
		Ledgers:   usecase.NewLedgerUseCase(deps),
		Reports:   usecase.NewReportUseCase(deps, chart.NewRenderer()),
		Audit:     usecase.NewAuditUseCase(deps),
		Health:    store.Ping,
	}, tokens, limiter, appLogger)

	runCtx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if cfg.Scheduler.Enabled {
		scheduler := usecase.NewScheduler(bills, cfg.Scheduler.Interval, appLogger)
		go scheduler.Run(runCtx)
	}

	go func() {
		if err := server.Start(); err != nil && err != http.ErrServerClosed {
			appLogger.Error(ctx, "Server failed", err, map[string]interface{}{"addr": cfg.Addr()})
			stop()
		}
	}()

	<-runCtx.Done()

	shutdownCtx, cancel := context.WithTimeout(ctx, cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		appLogger.Error(ctx, "Server forced to shutdown", err, nil)
	}
	appLogger.Info(ctx, "Server exited", nil)
}

func openStore(ctx context.Context, cfg *config.Config) (*persistence.Store, error) {
	dialect, err := persistence.ParseDialect(cfg.Database.Driver)
	if err != nil {
		return nil, err
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	return persistence.Open(pingCtx, dialect, cfg.GetDatabaseURL(), persistence.Options{
		MaxOpenConns:    cfg.Database.MaxConnections,
		MaxIdleConns:    cfg.Database.MaxIdle,
		ConnMaxLifetime: cfg.Database.ConnMaxLifetime,
	})
}
