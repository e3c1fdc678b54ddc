package main

import (
	"context"
	"fmt"
	"log"
	"net"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/gofiber/contrib/swagger"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/basicauth"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/monitor"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/storage/redis"
	"github.com/spf13/cobra"

	"github.com/ManuelReschke/BoostACart/app/repository"
	"github.com/ManuelReschke/BoostACart/internal/pkg/admin"
	"github.com/ManuelReschke/BoostACart/internal/pkg/admission"
	"github.com/ManuelReschke/BoostACart/internal/pkg/cache"
	"github.com/ManuelReschke/BoostACart/internal/pkg/database"
	"github.com/ManuelReschke/BoostACart/internal/pkg/env"
	"github.com/ManuelReschke/BoostACart/internal/pkg/installation"
	"github.com/ManuelReschke/BoostACart/internal/pkg/metrics"
	"github.com/ManuelReschke/BoostACart/internal/pkg/quota"
	"github.com/ManuelReschke/BoostACart/internal/pkg/router"
	"github.com/ManuelReschke/BoostACart/internal/pkg/scheduler"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "boostacart",
		Short: "BoostACart lead capture server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return serve()
		},
	}
	rootCmd.AddCommand(hashPasswordCmd(), reconcileCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func serve() error {
	app, manager := NewApplication()
	manager.Start()

	go func() {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		<-quit
		log.Println("Shutting down...")
		manager.Stop()
		if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
			log.Printf("Shutdown error: %v", err)
		}
	}()

	return app.Listen(fmt.Sprintf("%s:%s", env.GetEnv("APP_HOST", "localhost"), env.GetEnv("APP_PORT", "4000")))
}

// newLedger builds the quota ledger with the configured period time zone.
func newLedger(repos *repository.Repositories) *quota.Ledger {
	loc, err := quota.LoadLocation(env.GetEnv("LEADS_PERIOD_TZ", "UTC"))
	if err != nil {
		log.Fatalf("Invalid LEADS_PERIOD_TZ: %v", err)
	}
	return quota.NewLedger(repos, quota.WithLocation(loc))
}

func NewApplication() (*fiber.App, *scheduler.Manager) {
	env.SetupEnvFile()
	database.SetupDatabase()
	cache.SetupCache()

	repository.InitializeGlobal(database.GetDB())
	repos := repository.GetGlobalRepositories()
	ledger := newLedger(repos)

	// Prefer Redis for shared counters, fall back to process memory.
	var attempts admin.AttemptStore
	var limiterStorage fiber.Storage
	pingCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	if cache.Available(pingCtx) {
		attempts = admin.NewRedisAttemptStore(cache.GetClient())
		limiterStorage = newRedisStorage(2)
	} else {
		log.Println("Redis unavailable: admin lockouts and rate limits are kept in memory")
		attempts = admin.NewMemoryAttemptStore(nil)
	}
	cancel()

	svc := &router.Services{
		Repos:         repos,
		Ledger:        ledger,
		Admission:     admission.NewService(repos, ledger),
		Installations: installation.NewTracker(repos.Store, nil),
		Auth: admin.NewAuthenticator(admin.Config{
			Username:     env.GetEnv("ADMIN_USERNAME", "admin"),
			PasswordHash: env.GetEnv("ADMIN_PASSWORD_HASH", ""),
			MaxAttempts:  env.GetEnvInt("ADMIN_MAX_ATTEMPTS", admin.DefaultMaxAttempts),
			Lockout:      env.GetEnvDuration("ADMIN_LOCKOUT", admin.DefaultLockout),
		}, attempts),
		Plans:          admin.NewPlanService(repos.Store, ledger),
		LimiterStorage: limiterStorage,
	}

	// init fiber app
	cfg := fiber.Config{
		AppName:   "BoostACart",
		BodyLimit: 64 * 1024,
	}
	// forwarding headers are only trusted from TRUSTED_PROXIES
	router.ApplyProxyConfig(&cfg, splitList(env.GetEnv("TRUSTED_PROXIES", "")), env.GetEnv("PROXY_HEADER", fiber.HeaderXForwardedFor))
	app := fiber.New(cfg)

	// recovery, logging and request metrics
	app.Use(recover.New(), logger.New(), metrics.Middleware())

	// prometheus metrics
	app.Get("/metrics", metrics.Handler())

	// fiber monitor
	app.Get("/monitor", basicauth.New(basicauth.Config{
		Users: map[string]string{
			env.GetEnv("MONITOR_USER", "admin"): env.GetEnv("MONITOR_PASSWORD", "admin"),
		},
	}), monitor.New(monitor.Config{Title: "BoostACart Monitor"}))

	// SWAGGER / OPENAPI
	if _, err := os.Stat("public/docs/v1/openapi.yml"); err == nil {
		app.Use(swagger.New(swagger.Config{
			BasePath: "/docs/api/",
			FilePath: "public/docs/v1/openapi.yml",
			Path:     "v1",
		}))
	}

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})

	// ROUTER
	router.InstallRouter(app, svc)

	interval := env.GetEnvDuration("RECONCILE_INTERVAL", time.Hour)
	return app, scheduler.NewManager(ledger, interval)
}

// newRedisStorage creates a fiber storage on the cache server using the given database.
func newRedisStorage(db int) fiber.Storage {
	host, portStr, err := net.SplitHostPort(cache.GetClient().Options().Addr)
	if err != nil {
		host, portStr = "localhost", "6379"
	}
	port, _ := strconv.Atoi(portStr)
	return redis.New(redis.Config{
		Host:     host,
		Port:     port,
		Password: env.GetEnv("CACHE_PASSWORD", ""),
		Database: db,
	})
}

func hashPasswordCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "hash-password [password]",
		Short: "Print the bcrypt hash for ADMIN_PASSWORD_HASH",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			hash, err := admin.HashPassword(args[0])
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), hash)
			return nil
		},
	}
}

func reconcileCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "reconcile",
		Short: "Repair stored plan ceilings for every store and exit",
		RunE: func(cmd *cobra.Command, args []string) error {
			env.SetupEnvFile()
			database.SetupDatabase()
			ledger := newLedger(repository.NewRepositories(database.GetDB()))

			changed, err := ledger.ReconcileAll(cmd.Context())
			fmt.Fprintf(cmd.OutOrStdout(), "%d stores updated\n", changed)
			return err
		},
	}
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
