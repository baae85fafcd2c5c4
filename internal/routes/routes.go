package routes

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/ZeroR0R/LSBank/internal/auth"
	"github.com/ZeroR0R/LSBank/internal/bank"
	"github.com/ZeroR0R/LSBank/internal/config"
	"github.com/ZeroR0R/LSBank/internal/deploy"
	"github.com/ZeroR0R/LSBank/internal/funding"
	"github.com/ZeroR0R/LSBank/internal/identity"
	"github.com/ZeroR0R/LSBank/internal/ledger"
	"github.com/ZeroR0R/LSBank/internal/middleware"
	"github.com/ZeroR0R/LSBank/internal/notification"
	"github.com/ZeroR0R/LSBank/internal/payments"
	"github.com/ZeroR0R/LSBank/internal/report"
	"github.com/ZeroR0R/LSBank/internal/token"
	"github.com/ZeroR0R/LSBank/internal/wallet"
)

const (
	loginAttemptsPerWindow = 5
	loginWindow            = time.Minute
	setupTimeout           = 30 * time.Second
)

// Deps aggregates shared dependencies required to wire routes.
type Deps struct {
	Cfg    config.Config
	DB     *pgxpool.Pool
	Cache  *redis.Client
	Logger *slog.Logger

	// AccessLog enables the plain text Fiber access log.
	AccessLog bool
}

// Wiring exposes the components built during Setup that the server manages
// beyond request handling.
type Wiring struct {
	Deployment deploy.Deployment
	Reporter   *report.Reporter
}

// ErrorHandler renders every error as {"error": "..."} with the status carried
// by fiber.Error, or 500.
func ErrorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	message := err.Error()
	var fe *fiber.Error
	if errors.As(err, &fe) {
		code = fe.Code
		message = fe.Message
	}
	return c.Status(code).JSON(fiber.Map{"error": message})
}

// Setup deploys the credit token and bank, then configures middlewares and
// all application routes.
func Setup(app *fiber.App, d Deps) (*Wiring, error) {
	// Enforce DB/Redis presence outside of dev, even though config also checks.
	if !d.Cfg.IsDev() {
		if d.DB == nil {
			return nil, fmt.Errorf("database is required when APP_ENV=%s", d.Cfg.AppEnv)
		}
		if d.Cache == nil {
			return nil, fmt.Errorf("redis is required when APP_ENV=%s", d.Cfg.AppEnv)
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), setupTimeout)
	defer cancel()

	var (
		ledgerBackend ledger.Ledger
		identityRepo  identity.Repository
	)
	if d.DB != nil {
		pg := ledger.NewPostgresLedger(d.DB)
		if err := pg.Migrate(ctx); err != nil {
			return nil, err
		}
		ledgerBackend = pg
		identityRepo = identity.NewPostgresRepository(d.DB)
	} else {
		ledgerBackend = ledger.NewInMemory()
		identityRepo = identity.NewMemoryRepository()
	}

	notifier := buildNotifier(d)
	deployment, err := deploy.Run(ctx, ledgerBackend, deploy.Params{
		Deployer:    d.Cfg.Deployer,
		TokenName:   d.Cfg.TokenName,
		TokenSymbol: d.Cfg.TokenSymbol,
		BankOptions: []bank.Option{
			bank.WithInterest(bank.LinearRate{PerSecond: d.Cfg.RatePerSecond, Base: d.Cfg.RateBase}),
			bank.WithDepositUnit(d.Cfg.DepositUnit),
			bank.WithNotifier(notifier),
			bank.WithLogger(d.Logger),
		},
	})
	if err != nil {
		return nil, fmt.Errorf("deploy: %w", err)
	}
	attrs := []any{
		slog.String("deployer", deployment.Deployer.Hex()),
		slog.String("token", deployment.Token.Address.Hex()),
		slog.String("bank", deployment.Bank.Address().Hex()),
	}
	if mc := deployment.MinterChange; mc != nil {
		attrs = append(attrs, slog.String("minter_from", mc.From.Hex()), slog.String("minter_to", mc.To.Hex()))
	}
	d.Logger.Info("contracts deployed", attrs...)

	// Middlewares
	app.Use(recover.New())
	app.Use(middleware.RequestID())
	if d.AccessLog {
		// Plain text access log in desired format: [HH:MM:SS] 200 -  145ms METHOD /path
		app.Use(logger.New(logger.Config{
			Format:     "[${time}] ${status} -  ${latency} ${method} ${path}\n",
			TimeFormat: "15:04:05",
			TimeZone:   "Local",
		}))
	}
	app.Use(middleware.Audit(d.Logger))

	// Health
	RegisterHealthRoutes(app, d)

	// Services and handlers
	tokenSvc := token.NewService(ledgerBackend, deployment.Token, notifier, d.Logger)
	walletSvc := wallet.NewService(ledgerBackend)
	paymentSvc := payments.NewService(ledgerBackend, notifier, d.Logger)
	fundingSvc := funding.NewService(ledgerBackend, funding.LimitAcquirer{Limit: d.Cfg.CardLimit})
	identitySvc := identity.NewService(identityRepo)
	authSvc := auth.NewService(d.Cfg, identityRepo)
	reporter := report.NewReporter(deployment.Bank, tokenSvc, d.Cache, d.Logger)

	identityHandler := identity.NewHandler(identitySvc)
	authHandler := auth.NewHandler(identitySvc, authSvc)
	tokenHandler := token.NewHandler(tokenSvc)
	bankHandler := bank.NewHandler(deployment.Bank)

	// API routes
	api := app.Group("/api/v1")
	RegisterPingRoute(api)

	// Public routes
	RegisterIdentityRoutes(api, identityHandler)
	RegisterAuthRoutes(api, authHandler, middleware.LoginRateLimit(d.Cache, loginAttemptsPerWindow, loginWindow))
	RegisterTokenQueryRoutes(api, tokenHandler)
	RegisterBankQueryRoutes(api, bankHandler)
	RegisterStatsRoute(api, report.NewHandler(reporter))

	// Protected routes; everything registered on api after this point
	// requires a bearer token.
	protected := api.Group("", middleware.JWTAuth(authSvc), middleware.Idempotency(d.Cache, d.Cfg.IdempotencyTTL, d.Logger))
	RegisterProfileRoute(protected, identityHandler)
	RegisterWalletRoutes(protected, wallet.NewHandler(walletSvc))
	RegisterFundingRoutes(protected, funding.NewHandler(fundingSvc))
	RegisterPaymentRoutes(protected, payments.NewHandler(paymentSvc))
	RegisterBankRoutes(protected, bankHandler)
	RegisterTokenRoutes(protected, tokenHandler)

	return &Wiring{Deployment: deployment, Reporter: reporter}, nil
}

// buildNotifier fans committed events out to the log, the Redis events
// channel when Redis is configured and SMTP when enabled.
func buildNotifier(d Deps) notification.Notifier {
	notifiers := notification.Multi{notification.NewLoggerNotifier(d.Logger)}
	if d.Cache != nil {
		notifiers = append(notifiers, notification.NewRedisNotifier(d.Cache, d.Cfg.EventsChannel))
	}
	if d.Cfg.EmailEnabled() {
		notifiers = append(notifiers, notification.NewEmailNotifier(d.Cfg.SMTPAddr, d.Cfg.SMTPFrom, splitList(d.Cfg.NotifyEmailTo)))
	}
	return notifiers
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
