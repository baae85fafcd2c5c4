package report

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"github.com/redis/go-redis/v9"

	"github.com/ZeroR0R/LSBank/internal/deploy"
	"github.com/ZeroR0R/LSBank/internal/ledger"
	"github.com/ZeroR0R/LSBank/internal/logging"
	"github.com/ZeroR0R/LSBank/internal/token"
)

var user = common.HexToAddress("0xFFcf8FDEE72ac11b5c542428B35EEF5769C409f0")

func setup(t *testing.T, cache *redis.Client) (*Reporter, deploy.Deployment) {
	t.Helper()
	ctx := context.Background()
	l := ledger.NewInMemory()
	d, err := deploy.Run(ctx, l, deploy.Params{
		Deployer:    common.HexToAddress("0x90F8bf6A479f320ead074411a4B0e7944Ea8c9C1"),
		TokenName:   "LS Engine Bank",
		TokenSymbol: "LSB",
	})
	if err != nil {
		t.Fatalf("deploy: %v", err)
	}
	ledger.SeedBalance(l, user, 1_000_000_000_000_000_000)
	if _, err := d.Bank.Borrow(ctx, user, d.Bank.DepositUnit()); err != nil {
		t.Fatalf("borrow: %v", err)
	}
	r := NewReporter(d.Bank, token.NewService(l, d.Token, nil, nil), cache, logging.Discard())
	return r, d
}

func TestGenerateCachesSnapshot(t *testing.T) {
	mr := miniredis.RunT(t)
	cache := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer cache.Close()

	r, d := setup(t, cache)
	snap, err := r.Generate(context.Background())
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	unit := d.Bank.DepositUnit()
	if snap.ReservesWei != unit.Dec() {
		t.Fatalf("expected reserves %s, got %s", unit.Dec(), snap.ReservesWei)
	}
	half := new(uint256.Int).Div(unit, uint256.NewInt(2))
	if snap.TotalSupplyWei != half.Dec() {
		t.Fatalf("expected supply %s, got %s", half.Dec(), snap.TotalSupplyWei)
	}
	if !snap.MinterIsBank || snap.Minter != d.Bank.Address().Hex() {
		t.Fatalf("expected bank to be minter, got %s", snap.Minter)
	}
	if snap.ReservesEther != "0.01" {
		t.Fatalf("expected 0.01 ether reserves, got %s", snap.ReservesEther)
	}

	raw, err := mr.Get(CacheKey)
	if err != nil {
		t.Fatalf("cached snapshot missing: %v", err)
	}
	var cached Snapshot
	if err := json.Unmarshal([]byte(raw), &cached); err != nil {
		t.Fatalf("decode cached snapshot: %v", err)
	}
	if cached.TotalSupplyWei != snap.TotalSupplyWei {
		t.Fatalf("cached snapshot differs: %+v", cached)
	}
}

func TestLatestPrefersCache(t *testing.T) {
	mr := miniredis.RunT(t)
	cache := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer cache.Close()

	r, _ := setup(t, cache)
	stale := Snapshot{ReservesWei: "42", GeneratedAt: time.Unix(0, 0).UTC()}
	payload, _ := json.Marshal(stale)
	if err := mr.Set(CacheKey, string(payload)); err != nil {
		t.Fatalf("seed cache: %v", err)
	}

	snap, err := r.Latest(context.Background())
	if err != nil {
		t.Fatalf("latest: %v", err)
	}
	if snap.ReservesWei != "42" {
		t.Fatalf("expected cached snapshot, got %+v", snap)
	}

	mr.Del(CacheKey)
	snap, err = r.Latest(context.Background())
	if err != nil {
		t.Fatalf("latest: %v", err)
	}
	if snap.ReservesWei == "42" {
		t.Fatalf("expected a fresh snapshot after cache miss")
	}
}

func TestLatestWithoutCache(t *testing.T) {
	r, _ := setup(t, nil)
	if _, err := r.Latest(context.Background()); err != nil {
		t.Fatalf("latest: %v", err)
	}
}

func TestScheduleRejectsBadSpec(t *testing.T) {
	r, _ := setup(t, nil)
	if _, err := r.Schedule("not a schedule"); err == nil {
		t.Fatalf("expected invalid schedule error")
	}
	c, err := r.Schedule("@every 1h")
	if err != nil {
		t.Fatalf("schedule: %v", err)
	}
	<-c.Stop().Done()
}
