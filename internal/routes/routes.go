package routes

import (
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"

	"github.com/paystream/paystream/internal/auth"
	"github.com/paystream/paystream/internal/config"
	"github.com/paystream/paystream/internal/ledger"
	"github.com/paystream/paystream/internal/middleware"
	"github.com/paystream/paystream/internal/notification"
	"github.com/paystream/paystream/internal/user"
)

// Deps aggregates shared dependencies required to wire routes.
type Deps struct {
	Cfg    config.Config
	DB     *pgxpool.Pool
	Cache  *redis.Client
	Logger *slog.Logger
}

// Setup configures middlewares and all application routes.
func Setup(app *fiber.App, d Deps) error {
	// Enforce DB/Redis presence outside of dev, even though main also checks.
	if !d.Cfg.IsDev() {
		if d.DB == nil {
			return fmt.Errorf("database is required when APP_ENV=%s", d.Cfg.AppEnv)
		}
		if d.Cache == nil {
			return fmt.Errorf("redis is required when APP_ENV=%s", d.Cfg.AppEnv)
		}
	}

	minAmount, err := decimal.NewFromString(d.Cfg.MinAmount)
	if err != nil {
		return fmt.Errorf("invalid MIN_AMOUNT: %w", err)
	}
	maxAmount, err := decimal.NewFromString(d.Cfg.MaxAmount)
	if err != nil {
		return fmt.Errorf("invalid MAX_AMOUNT: %w", err)
	}

	// Middlewares
	app.Use(recover.New())
	app.Use(middleware.RequestID())
	// Plain text access log: [HH:MM:SS] 200 -  145ms METHOD /path
	app.Use(logger.New(logger.Config{
		Format:     "[${time}] ${status} -  ${latency} ${method} ${path}\n",
		TimeFormat: "15:04:05",
		TimeZone:   "Local",
	}))
	app.Use(middleware.Audit(d.Logger))

	// Health
	RegisterHealthRoutes(app, d)

	// Repositories and stores
	var (
		userRepo    user.Repository
		ledgerStore ledger.Store
	)
	if d.DB != nil {
		userRepo = user.NewPostgresRepository(d.DB)
		ledgerStore = ledger.NewPostgresStore(d.DB)
	} else {
		memUsers := user.NewMemoryRepository()
		userRepo = memUsers
		ledgerStore = ledger.NewMemoryStore(memUsers)
	}

	// Services and handlers
	tokens := auth.NewIssuer(d.Cfg.JWTSecret, d.Cfg.TokenTTL)
	userSvc := user.NewService(userRepo, tokens)
	userHandler := user.NewHandler(userSvc)

	ledgerSvc := ledger.NewService(userRepo, ledgerStore)
	notifier := notification.NewLoggerNotifier(d.Logger)
	ledgerHandler := ledger.NewHandler(ledgerSvc, notifier, ledger.Bounds{Min: minAmount, Max: maxAmount})

	// API routes
	api := app.Group("/api/v1")
	api.Get("/ping", func(c *fiber.Ctx) error {
		reqID, _ := c.Locals("X-Request-ID").(string)
		return c.Status(http.StatusOK).JSON(fiber.Map{
			"status":     "ok",
			"request_id": reqID,
			"timestamp":  time.Now().UTC().Format(time.RFC3339Nano),
		})
	})

	// Public routes
	rateLimiter := middleware.LoginRateLimit(d.Cache, 5)
	RegisterUserRoutes(api, userHandler, rateLimiter)

	// Protected routes
	jwtmw := middleware.JWTAuth(tokens, userRepo)
	protected := api.Group("", jwtmw)
	RegisterUserMeRoutes(protected, userHandler)
	RegisterTransactionRoutes(protected, ledgerHandler)

	return nil
}
