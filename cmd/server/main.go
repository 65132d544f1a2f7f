// Command server runs the token ecosystem control service: a balance ledger
// guarded by the transfer rate limiter, the burn scheduler, the vesting
// ledger and the governance and treasury timelocks.
package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	_ "github.com/lib/pq"
	"golang.org/x/sync/errgroup"

	burnhandler "aurum/internal/burn/handler"
	burnmetrics "aurum/internal/burn/metrics"
	burnmodels "aurum/internal/burn/models"
	burnports "aurum/internal/burn/ports"
	burnservice "aurum/internal/burn/service"
	"aurum/internal/burn/store/state"
	ledgerhandler "aurum/internal/ledger/handler"
	ledgerports "aurum/internal/ledger/ports"
	ledgerservice "aurum/internal/ledger/service"
	ledgermemory "aurum/internal/ledger/store/memory"
	ledgerpostgres "aurum/internal/ledger/store/postgres"
	"aurum/internal/platform/config"
	"aurum/internal/platform/httpserver"
	"aurum/internal/platform/logger"
	redisplatform "aurum/internal/platform/redis"
	ratelimithandler "aurum/internal/ratelimit/handler"
	ratelimitmetrics "aurum/internal/ratelimit/metrics"
	ratelimitmodels "aurum/internal/ratelimit/models"
	ratelimitports "aurum/internal/ratelimit/ports"
	ratelimitservice "aurum/internal/ratelimit/service"
	"aurum/internal/ratelimit/store/window"
	"aurum/internal/timelock/budget"
	"aurum/internal/timelock/engine"
	"aurum/internal/timelock/governance"
	governancehandler "aurum/internal/timelock/governance/handler"
	timelockmetrics "aurum/internal/timelock/metrics"
	timelockmodels "aurum/internal/timelock/models"
	timelockports "aurum/internal/timelock/ports"
	"aurum/internal/timelock/store/actions"
	"aurum/internal/timelock/treasury"
	treasuryhandler "aurum/internal/timelock/treasury/handler"
	transporthttp "aurum/internal/transport/http"
	vestinghandler "aurum/internal/vesting/handler"
	vestingmetrics "aurum/internal/vesting/metrics"
	vestingports "aurum/internal/vesting/ports"
	vestingservice "aurum/internal/vesting/service"
	"aurum/internal/vesting/store/grants"
	"aurum/pkg/platform/audit"
	kafkaaudit "aurum/pkg/platform/audit/publisher/kafka"
	auditmemory "aurum/pkg/platform/audit/store/memory"
	"aurum/pkg/platform/audit/worker"
	"aurum/pkg/platform/middleware/auth"
)

func main() {
	if err := run(); err != nil && !errors.Is(err, context.Canceled) {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run() error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg := config.FromEnv()
	log := logger.New()

	var (
		db   *sql.DB
		pool *pgxpool.Pool
		err  error
	)
	if cfg.PostgresURL != "" {
		db, err = sql.Open("postgres", cfg.PostgresURL)
		if err != nil {
			return fmt.Errorf("open postgres: %w", err)
		}
		defer db.Close()
		if err := db.PingContext(ctx); err != nil {
			return fmt.Errorf("ping postgres: %w", err)
		}
		pool, err = pgxpool.New(ctx, cfg.PostgresURL)
		if err != nil {
			return fmt.Errorf("open pgx pool: %w", err)
		}
		defer pool.Close()
	}

	redisClient, err := redisplatform.New(cfg.RedisURL)
	if err != nil {
		return fmt.Errorf("connect redis: %w", err)
	}
	if redisClient != nil {
		defer redisClient.Close()
	}

	// Audit pipeline: engines enqueue without blocking, the worker drains
	// into Kafka when brokers are configured, otherwise into memory.
	inbox := make(chan audit.Event, 1024)
	producer := worker.NewBuffered(inbox, log)
	var sink worker.Sink
	if len(cfg.KafkaBrokers) > 0 {
		kafkaPublisher, err := kafkaaudit.New(cfg.KafkaBrokers, cfg.KafkaTopic, log)
		if err != nil {
			return fmt.Errorf("create kafka audit publisher: %w", err)
		}
		defer func() {
			flushCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			_ = kafkaPublisher.Close(flushCtx)
		}()
		sink = kafkaPublisher
	} else {
		sink = audit.NewPublisher(auditmemory.New())
	}
	auditWorker := worker.New(sink, inbox, log)

	// Rate limiter. Redis wins for the window store when configured so
	// horizontally scaled instances share windows.
	var windowStore ratelimitports.WindowStore
	switch {
	case redisClient != nil:
		windowStore = window.NewRedis(redisClient.Client)
	case db != nil:
		windowStore = window.NewPostgres(db)
	default:
		windowStore = window.NewInMemory()
	}
	limiter, err := ratelimitservice.New(windowStore,
		ratelimitmodels.Limits{Limit: cfg.RateLimit.Limit, Period: cfg.RateLimit.Period},
		ratelimitservice.WithLogger(log),
		ratelimitservice.WithAuditPublisher(producer),
		ratelimitservice.WithMetrics(ratelimitmetrics.New()),
	)
	if err != nil {
		return fmt.Errorf("create rate limiter: %w", err)
	}

	// Ledger.
	var balances ledgerports.BalanceStore
	if pool != nil {
		balances = ledgerpostgres.New(pool)
	} else {
		balances = ledgermemory.New()
	}
	ledger, err := ledgerservice.New(balances, limiter,
		ledgerservice.WithLogger(log),
		ledgerservice.WithAuditPublisher(producer),
	)
	if err != nil {
		return fmt.Errorf("create ledger: %w", err)
	}

	// Burn scheduler.
	var stateStore burnports.StateStore
	if db != nil {
		stateStore = state.NewPostgres(db)
	} else {
		stateStore = state.NewInMemory()
	}
	burner, err := burnservice.New(stateStore, balances,
		burnmodels.Schedule{MaxBurnCap: cfg.Burn.MaxBurnCap, Interval: cfg.Burn.Interval},
		burnservice.WithLogger(log),
		burnservice.WithAuditPublisher(producer),
		burnservice.WithMetrics(burnmetrics.New()),
	)
	if err != nil {
		return fmt.Errorf("create burn scheduler: %w", err)
	}

	// Vesting ledger.
	var grantStore vestingports.GrantStore
	if db != nil {
		grantStore = grants.NewPostgres(db)
	} else {
		grantStore = grants.NewInMemory()
	}
	vesting, err := vestingservice.New(grantStore, ledger, cfg.Vesting.PoolAccount,
		vestingservice.Curve{
			UnlockPct:       cfg.Vesting.UnlockPct,
			CliffDuration:   cfg.Vesting.CliffDuration,
			VestingDuration: cfg.Vesting.VestingDuration,
		},
		vestingservice.WithLogger(log),
		vestingservice.WithAuditPublisher(producer),
		vestingservice.WithMetrics(vestingmetrics.New()),
	)
	if err != nil {
		return fmt.Errorf("create vesting ledger: %w", err)
	}

	// Timelocks. Governance and treasury share the action store; ids never
	// collide across specializations.
	var actionStore timelockports.ActionStore
	if db != nil {
		actionStore = actions.NewPostgres(db)
	} else {
		actionStore = actions.NewInMemory()
	}
	timelockMetrics := timelockmetrics.New()

	governanceEngine, err := engine.New("governance", actionStore,
		timelockmodels.Policy{
			Delay:          cfg.Governance.Delay,
			Window:         cfg.Governance.Window,
			EmergencyDelay: cfg.Governance.EmergencyDelay,
			MinApprovals:   cfg.Governance.MinApprovals,
		},
		engine.WithLogger(log),
		engine.WithAuditPublisher(producer),
		engine.WithMetrics(timelockMetrics),
	)
	if err != nil {
		return fmt.Errorf("create governance engine: %w", err)
	}
	governanceSvc, err := governance.New(governanceEngine, &loggingDispatcher{logger: log}, log)
	if err != nil {
		return fmt.Errorf("create governance service: %w", err)
	}

	var budgetStore budget.BudgetStore
	if db != nil {
		budgetStore = budget.NewPostgresStore(db)
	} else {
		budgetStore = budget.NewInMemoryStore()
	}
	budgetSvc, err := budget.NewService(budgetStore,
		budget.Limits{PerTxLimit: cfg.Treasury.DefaultPerTxLimit, DailyLimit: cfg.Treasury.DefaultDailyLimit},
		budget.WithLogger(log),
		budget.WithAuditPublisher(producer),
	)
	if err != nil {
		return fmt.Errorf("create operator budget: %w", err)
	}

	treasuryEngine, err := engine.New("treasury", actionStore,
		timelockmodels.Policy{
			Delay:          cfg.Treasury.Delay,
			Window:         cfg.Treasury.Window,
			EmergencyDelay: cfg.Treasury.EmergencyDelay,
		},
		engine.WithLogger(log),
		engine.WithAuditPublisher(producer),
		engine.WithMetrics(timelockMetrics),
	)
	if err != nil {
		return fmt.Errorf("create treasury engine: %w", err)
	}
	treasurySvc, err := treasury.New(treasuryEngine, budgetSvc, ledger, cfg.Treasury.TreasuryAccount, log)
	if err != nil {
		return fmt.Errorf("create treasury service: %w", err)
	}

	var health []transporthttp.HealthChecker
	if db != nil {
		health = append(health, transporthttp.HealthFunc(func(r *http.Request) error {
			return db.PingContext(r.Context())
		}))
	}
	if redisClient != nil {
		health = append(health, transporthttp.HealthFunc(func(r *http.Request) error {
			return redisClient.Health(r.Context())
		}))
	}

	router := transporthttp.NewRouter(transporthttp.Config{
		Verifier: auth.NewVerifier(cfg.JWTSigningKey, log),
		Logger:   log,
		Handlers: []transporthttp.ModuleHandler{
			ledgerhandler.New(ledger, log),
			ratelimithandler.New(limiter, log),
			burnhandler.New(burner, log),
			vestinghandler.New(vesting, log),
			governancehandler.New(governanceSvc, log),
			treasuryhandler.New(treasurySvc, budgetSvc, log),
		},
		Health: health,
	})

	server := httpserver.New(cfg.Addr, router)
	group, ctx := errgroup.WithContext(ctx)
	group.Go(func() error {
		log.InfoContext(ctx, "server listening", "addr", cfg.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	group.Go(func() error {
		return auditWorker.Run(ctx)
	})
	group.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})
	return group.Wait()
}

// loggingDispatcher records governance calls. Actual target invocation
// belongs to the surrounding system; deployments wire their own dispatcher.
type loggingDispatcher struct {
	logger *slog.Logger
}

func (d *loggingDispatcher) Dispatch(ctx context.Context, call governance.Call) error {
	d.logger.InfoContext(ctx, "dispatching governance call",
		"target", call.Target,
		"value", call.Value.String(),
	)
	return nil
}
