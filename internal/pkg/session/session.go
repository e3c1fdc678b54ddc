package session

import (
	"fmt"
	"net"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/session"
	"github.com/gofiber/storage/redis"

	"github.com/ManuelReschke/BoostACart/internal/pkg/cache"
	"github.com/ManuelReschke/BoostACart/internal/pkg/env"
)

// Session keys
const (
	KeyAdminUser = "admin_user"
	KeyLoginAt   = "admin_login_at"
)

var sessionStore *session.Store

func NewSessionStore() *session.Store {
	// Get Redis client configuration from existing cache setup
	cacheClient := cache.GetClient()
	host := "localhost"
	port := 6379
	password := env.GetEnv("CACHE_PASSWORD", "")
	if cacheClient != nil {
		addr := cacheClient.Options().Addr
		if h, p, err := net.SplitHostPort(addr); err == nil {
			host = h
			if v, err := strconv.Atoi(p); err == nil {
				port = v
			}
		}
		if p := cacheClient.Options().Password; p != "" {
			password = p
		}
	}

	// Sessions live in database 1, the cache uses DB 0
	storage := redis.New(redis.Config{
		Host:     host,
		Port:     port,
		Password: password,
		Database: 1,
		Reset:    false,
	})

	sessionStore = session.New(session.Config{
		Storage:        storage,
		CookieHTTPOnly: true,
		CookieSecure:   env.GetEnv("APP_ENV", "dev") == "prod",
		CookieSameSite: fiber.CookieSameSiteStrictMode,
		Expiration:     time.Hour * 8,
		KeyLookup:      "cookie:boostacart_admin",
	})

	return sessionStore
}

// SetSessionStore replaces the shared store. Used by tests with an in-memory store.
func SetSessionStore(store *session.Store) {
	sessionStore = store
}

func GetSessionStore() *session.Store {
	return sessionStore
}

// LoginAdmin rotates the session id and records the operator.
func LoginAdmin(c *fiber.Ctx, username string) error {
	if sessionStore == nil {
		return fmt.Errorf("session store not initialized")
	}
	sess, err := sessionStore.Get(c)
	if err != nil {
		return fmt.Errorf("failed to get session: %v", err)
	}
	if err := sess.Regenerate(); err != nil {
		return fmt.Errorf("failed to regenerate session: %v", err)
	}
	sess.Set(KeyAdminUser, username)
	sess.Set(KeyLoginAt, time.Now().Unix())
	return sess.Save()
}

// LogoutAdmin destroys the session.
func LogoutAdmin(c *fiber.Ctx) error {
	if sessionStore == nil {
		return nil
	}
	sess, err := sessionStore.Get(c)
	if err != nil {
		return fmt.Errorf("failed to get session: %v", err)
	}
	return sess.Destroy()
}

// AdminUser returns the logged-in operator, or an empty string.
func AdminUser(c *fiber.Ctx) string {
	if sessionStore == nil {
		return ""
	}
	sess, err := sessionStore.Get(c)
	if err != nil {
		return ""
	}
	if v, ok := sess.Get(KeyAdminUser).(string); ok {
		return v
	}
	return ""
}
