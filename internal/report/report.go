package report

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/robfig/cron/v3"

	"github.com/ZeroR0R/LSBank/internal/bank"
	"github.com/ZeroR0R/LSBank/internal/token"
	"github.com/ZeroR0R/LSBank/internal/units"
)

// CacheKey is where the latest snapshot is stored in Redis.
const CacheKey = "lsbank:stats"

// Snapshot is a point-in-time view of the bank's reserves and the credit
// token supply.
type Snapshot struct {
	Bank             string    `json:"bank"`
	Token            string    `json:"token"`
	Minter           string    `json:"minter"`
	MinterIsBank     bool      `json:"minter_is_bank"`
	ReservesWei      string    `json:"reserves_wei"`
	ReservesEther    string    `json:"reserves_ether"`
	TotalSupplyWei   string    `json:"total_supply_wei"`
	TotalSupplyEther string    `json:"total_supply_ether"`
	GeneratedAt      time.Time `json:"generated_at"`
}

// Reporter builds snapshots and caches the latest one.
type Reporter struct {
	engine *bank.Engine
	tokens *token.Service
	cache  *redis.Client
	ttl    time.Duration
	logger *slog.Logger
	now    func() time.Time
}

// NewReporter builds a reporter. cache may be nil.
func NewReporter(engine *bank.Engine, tokens *token.Service, cache *redis.Client, logger *slog.Logger) *Reporter {
	return &Reporter{engine: engine, tokens: tokens, cache: cache, ttl: 10 * time.Minute, logger: logger, now: time.Now}
}

// Generate computes a fresh snapshot, logs it and caches it.
func (r *Reporter) Generate(ctx context.Context) (Snapshot, error) {
	reserves, err := r.engine.Reserves(ctx)
	if err != nil {
		return Snapshot{}, fmt.Errorf("read reserves: %w", err)
	}
	info, err := r.tokens.Info(ctx)
	if err != nil {
		return Snapshot{}, fmt.Errorf("read token info: %w", err)
	}

	snap := Snapshot{
		Bank:             r.engine.Address().Hex(),
		Token:            info.Address.Hex(),
		Minter:           info.Minter.Hex(),
		MinterIsBank:     info.Minter == r.engine.Address(),
		ReservesWei:      units.FormatWei(reserves),
		ReservesEther:    units.FormatEther(reserves),
		TotalSupplyWei:   units.FormatWei(info.TotalSupply),
		TotalSupplyEther: units.FormatEther(info.TotalSupply),
		GeneratedAt:      r.now().UTC(),
	}

	if !snap.MinterIsBank {
		r.logger.Warn("credit token minter is not the bank", slog.String("minter", snap.Minter), slog.String("bank", snap.Bank))
	}
	r.logger.Info("reserves report",
		slog.String("reserves_wei", snap.ReservesWei),
		slog.String("total_supply_wei", snap.TotalSupplyWei),
		slog.String("minter", snap.Minter),
	)

	if r.cache != nil {
		payload, err := json.Marshal(snap)
		if err != nil {
			return Snapshot{}, err
		}
		if err := r.cache.Set(ctx, CacheKey, payload, r.ttl).Err(); err != nil {
			r.logger.Warn("cache reserves report", slog.Any("error", err))
		}
	}
	return snap, nil
}

// Latest returns the cached snapshot, generating one on a cache miss.
func (r *Reporter) Latest(ctx context.Context) (Snapshot, error) {
	if r.cache != nil {
		raw, err := r.cache.Get(ctx, CacheKey).Bytes()
		switch {
		case err == nil:
			var snap Snapshot
			if err := json.Unmarshal(raw, &snap); err == nil {
				return snap, nil
			}
		case !errors.Is(err, redis.Nil):
			r.logger.Warn("read cached reserves report", slog.Any("error", err))
		}
	}
	return r.Generate(ctx)
}

// Schedule registers Generate on spec (standard cron syntax or descriptors
// such as "@every 1m") and starts the scheduler. Stop the returned cron on
// shutdown.
func (r *Reporter) Schedule(spec string) (*cron.Cron, error) {
	c := cron.New()
	_, err := c.AddFunc(spec, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if _, err := r.Generate(ctx); err != nil {
			r.logger.Error("reserves report failed", slog.Any("error", err))
		}
	})
	if err != nil {
		return nil, fmt.Errorf("schedule reserves report %q: %w", spec, err)
	}
	c.Start()
	return c, nil
}
