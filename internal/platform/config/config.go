// Package config builds runtime configuration from the environment so main
// stays lean. Engine parameters default to the ecosystem's published schedule
// and can be overridden per deployment.
package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"aurum/pkg/domain"
)

// Config is the full service configuration.
type Config struct {
	Addr          string
	JWTSigningKey string
	PostgresURL   string
	RedisURL      string
	KafkaBrokers  []string
	KafkaTopic    string

	RateLimit  RateLimit
	Burn       Burn
	Vesting    Vesting
	Governance Timelock
	Treasury   Treasury
}

// RateLimit configures the per-account transfer window.
type RateLimit struct {
	Limit  domain.Amount
	Period time.Duration
}

// Burn configures the supply burn schedule.
type Burn struct {
	MaxBurnCap domain.Amount
	Interval   time.Duration
}

// Vesting configures the grant curve and the pool account claims draw from.
type Vesting struct {
	UnlockPct       uint64
	CliffDuration   time.Duration
	VestingDuration time.Duration
	PoolAccount     domain.AccountID
}

// Timelock configures a timelock execution window.
type Timelock struct {
	Delay          time.Duration
	Window         time.Duration
	EmergencyDelay time.Duration
	MinApprovals   int
}

// Treasury configures the treasury timelock plus per-operator budgets.
type Treasury struct {
	Timelock
	TreasuryAccount   domain.AccountID
	DefaultPerTxLimit domain.Amount
	DefaultDailyLimit domain.Amount
}

const day = 24 * time.Hour

// FromEnv reads configuration from environment variables, applying defaults
// where unset.
func FromEnv() Config {
	cfg := Config{
		Addr:          envString("AURUM_ADDR", ":8080"),
		JWTSigningKey: envString("AURUM_JWT_SIGNING_KEY", "dev-secret-key-change-in-production"),
		PostgresURL:   os.Getenv("AURUM_POSTGRES_URL"),
		RedisURL:      os.Getenv("AURUM_REDIS_URL"),
		KafkaTopic:    envString("AURUM_KAFKA_AUDIT_TOPIC", "aurum.audit"),
		RateLimit: RateLimit{
			Limit:  envAmount("AURUM_RATE_LIMIT_AMOUNT", "100000000000000000000000"), // 100k tokens, 18 decimals
			Period: envDuration("AURUM_RATE_LIMIT_PERIOD", time.Hour),
		},
		Burn: Burn{
			MaxBurnCap: envAmount("AURUM_BURN_CAP", "500000000000000000000000000"), // 500M tokens
			Interval:   envDuration("AURUM_BURN_INTERVAL", 90*day),
		},
		Vesting: Vesting{
			UnlockPct:       envUint("AURUM_VESTING_UNLOCK_PCT", 10),
			CliffDuration:   envDuration("AURUM_VESTING_CLIFF", 180*day),
			VestingDuration: envDuration("AURUM_VESTING_DURATION", 540*day),
			PoolAccount:     domain.AccountID(envString("AURUM_VESTING_POOL_ACCOUNT", "vesting-pool")),
		},
		Governance: Timelock{
			Delay:          envDuration("AURUM_GOVERNANCE_DELAY", 2*day),
			Window:         envDuration("AURUM_GOVERNANCE_WINDOW", 5*day),
			EmergencyDelay: envDuration("AURUM_GOVERNANCE_EMERGENCY_DELAY", 12*time.Hour),
			MinApprovals:   int(envUint("AURUM_GOVERNANCE_MIN_APPROVALS", 3)),
		},
		Treasury: Treasury{
			Timelock: Timelock{
				Delay:          envDuration("AURUM_TREASURY_DELAY", 1*day),
				Window:         envDuration("AURUM_TREASURY_WINDOW", 3*day),
				EmergencyDelay: envDuration("AURUM_TREASURY_EMERGENCY_DELAY", 6*time.Hour),
			},
			TreasuryAccount:   domain.AccountID(envString("AURUM_TREASURY_ACCOUNT", "treasury")),
			DefaultPerTxLimit: envAmount("AURUM_TREASURY_PER_TX_LIMIT", "50000000000000000000000"),
			DefaultDailyLimit: envAmount("AURUM_TREASURY_DAILY_LIMIT", "200000000000000000000000"),
		},
	}
	if brokers := os.Getenv("AURUM_KAFKA_BROKERS"); brokers != "" {
		cfg.KafkaBrokers = strings.Split(brokers, ",")
	}
	return cfg
}

func envString(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}

func envUint(key string, fallback uint64) uint64 {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseUint(v, 10, 64); err == nil {
			return n
		}
	}
	return fallback
}

func envAmount(key, fallback string) domain.Amount {
	if v := os.Getenv(key); v != "" {
		if a, err := domain.ParseAmount(v); err == nil {
			return a
		}
	}
	return domain.MustAmount(fallback)
}
