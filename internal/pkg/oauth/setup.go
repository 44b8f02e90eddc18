package oauth

import (
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2/middleware/session"
	redisstorage "github.com/gofiber/storage/redis"
	"github.com/markbates/goth"
	"github.com/markbates/goth/gothic"
	gothfiber "github.com/shareed2k/goth_fiber"

	"github.com/samduuf/elibrary/internal/pkg/cache"
	"github.com/samduuf/elibrary/internal/pkg/env"
	"github.com/samduuf/elibrary/internal/pkg/hemis"
)

// CallbackURL is the redirect target goth hands to the provider.
func CallbackURL(base, provider string) string {
	return strings.TrimRight(base, "/") + "/auth/" + provider + "/callback"
}

// RegisterProviders registers the student and staff Hemis providers. Each one
// gets its own redirect_uri so the callback lands on its route.
func RegisterProviders(base string, broker *hemis.Broker) {
	goth.UseProviders(
		hemis.NewProvider(hemis.ProviderStudent, hemis.RoleStudent,
			broker.WithRedirectURI(CallbackURL(base, hemis.ProviderStudent))),
		hemis.NewProvider(hemis.ProviderStaff, hemis.RoleEmployee,
			broker.WithRedirectURI(CallbackURL(base, hemis.ProviderStaff))),
	)
}

// Setup registers the providers and the Redis backed goth session store.
// It is safe to call multiple times; providers will just be re-registered.
func Setup(broker *hemis.Broker) {
	base := strings.TrimRight(env.GetEnv("PUBLIC_DOMAIN", ""), "/")
	if base == "" {
		base = "http://localhost:" + env.GetEnv("APP_PORT", "8000")
	}
	RegisterProviders(base, broker)

	// OAuth state via Redis, using same connection as app sessions (separate DB)
	cacheClient := cache.GetClient()
	cacheOpts := cacheClient.Options()
	host, port := "127.0.0.1", 6379
	if cacheOpts != nil && cacheOpts.Addr != "" {
		if h, p, err := net.SplitHostPort(cacheOpts.Addr); err == nil {
			host = h
			if parsed, e := strconv.Atoi(p); e == nil {
				port = parsed
			}
		} else {
			host = cacheOpts.Addr
		}
	}

	gothfiber.SessionStore = session.New(session.Config{
		Storage: redisstorage.New(redisstorage.Config{
			Host:     host,
			Port:     port,
			Username: cacheOpts.Username,
			Password: cacheOpts.Password,
			Database: 2,
			Reset:    false,
		}),
		KeyLookup:      "cookie:" + gothic.SessionName,
		CookieHTTPOnly: true,
		CookieSameSite: "Lax",
		CookieSecure:   !env.IsDev(),
		Expiration:     time.Hour,
	})
}
