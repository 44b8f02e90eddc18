package hemis

import (
	"net/url"
	"strings"
	"time"

	"golang.org/x/oauth2"

	"github.com/samduuf/elibrary/internal/pkg/env"
)

// Role is the account role tag derived from the provider.
type Role string

const (
	RoleStudent  Role = "student"
	RoleEmployee Role = "employee"
)

// ParseRole maps the login-url role parameter; "staff" and "employee" are the same role.
func ParseRole(s string) Role {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "staff", "employee":
		return RoleEmployee
	default:
		return RoleStudent
	}
}

// AuthMethod is how client credentials travel with the token request.
type AuthMethod string

const (
	AuthInBody AuthMethod = "body"
	AuthBasic  AuthMethod = "basic"
)

func (m AuthMethod) style() oauth2.AuthStyle {
	if m == AuthBasic {
		return oauth2.AuthStyleInHeader
	}
	return oauth2.AuthStyleInParams
}

// Endpoint is one candidate token endpoint.
type Endpoint struct {
	Host string
	Path string
}

// URL joins the endpoint with scheme.
func (e Endpoint) URL(scheme string) string {
	return scheme + "://" + e.Host + e.Path
}

var (
	defaultTokenHosts = []string{"student.samduuf.uz", "hemis.samduuf.uz"}
	defaultTokenPaths = []string{"/oauth/access-token", "/oauth/token"}
)

const (
	defaultProfilePath = "/oauth/api/user"
	defaultTimeout     = 5 * time.Second
	defaultUserAgent   = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"
)

// Config is everything the broker needs; it is built once and passed in.
type Config struct {
	ClientID     string
	ClientSecret string
	RedirectURI  string

	// APIURL is the configured provider base; its host is tried first and it
	// serves the profile when no domain was discovered.
	APIURL     string
	StudentURL string
	StaffURL   string

	TokenHosts  []string
	TokenPaths  []string
	AuthMethods []AuthMethod
	ProfilePath string
	Scheme      string
	Timeout     time.Duration
	UserAgent   string

	Aliases Aliases
}

// DefaultConfig returns the production provider layout without credentials.
func DefaultConfig() Config {
	return Config{
		APIURL:      "https://student.samduuf.uz/rest/v1",
		StudentURL:  "https://student.samduuf.uz",
		StaffURL:    "https://hemis.samduuf.uz",
		TokenHosts:  append([]string(nil), defaultTokenHosts...),
		TokenPaths:  append([]string(nil), defaultTokenPaths...),
		AuthMethods: []AuthMethod{AuthInBody, AuthBasic},
		ProfilePath: defaultProfilePath,
		Scheme:      "https",
		Timeout:     defaultTimeout,
		UserAgent:   defaultUserAgent,
		Aliases:     DefaultAliases(),
	}
}

// ConfigFromEnv reads the HEMIS_* variables on top of DefaultConfig.
func ConfigFromEnv() Config {
	cfg := DefaultConfig()
	cfg.ClientID = env.GetEnv("HEMIS_CLIENT_ID", "")
	cfg.ClientSecret = env.GetEnv("HEMIS_CLIENT_SECRET", "")
	cfg.RedirectURI = env.GetEnv("HEMIS_REDIRECT_URI", "")
	cfg.APIURL = env.GetEnv("HEMIS_API_URL", cfg.APIURL)
	cfg.StudentURL = strings.TrimRight(env.GetEnv("HEMIS_STUDENT_URL", cfg.StudentURL), "/")
	cfg.StaffURL = strings.TrimRight(env.GetEnv("HEMIS_STAFF_URL", cfg.StaffURL), "/")
	cfg.TokenHosts = env.GetEnvList("HEMIS_TOKEN_HOSTS", cfg.TokenHosts)
	cfg.TokenPaths = env.GetEnvList("HEMIS_TOKEN_PATHS", cfg.TokenPaths)
	cfg.Timeout = env.GetEnvDuration("HEMIS_TIMEOUT", cfg.Timeout)
	return cfg
}

// Candidates lists token endpoints in the order they are tried: the APIURL
// host first unless already listed, then TokenHosts, each with every path.
func (c Config) Candidates() []Endpoint {
	hosts := make([]string, 0, len(c.TokenHosts)+1)
	if h := hostOf(c.APIURL); h != "" && !containsString(c.TokenHosts, h) {
		hosts = append(hosts, h)
	}
	hosts = append(hosts, c.TokenHosts...)

	out := make([]Endpoint, 0, len(hosts)*len(c.TokenPaths))
	for _, h := range hosts {
		for _, p := range c.TokenPaths {
			out = append(out, Endpoint{Host: h, Path: p})
		}
	}
	return out
}

// DefaultDomain is the host used for relative resources when none was discovered.
func (c Config) DefaultDomain(role Role) string {
	if role == RoleEmployee {
		if h := hostOf(c.StaffURL); h != "" {
			return h
		}
	}
	if h := hostOf(c.StudentURL); h != "" {
		return h
	}
	return hostOf(c.APIURL)
}

// FrontDoor is the authorize base URL for role.
func (c Config) FrontDoor(role Role) string {
	if role == RoleEmployee && c.StaffURL != "" {
		return c.StaffURL
	}
	return c.StudentURL
}

func (c Config) scheme() string {
	if c.Scheme == "" {
		return "https"
	}
	return c.Scheme
}

func (c Config) timeout() time.Duration {
	if c.Timeout <= 0 {
		return defaultTimeout
	}
	return c.Timeout
}

func (c Config) methods() []AuthMethod {
	if len(c.AuthMethods) == 0 {
		return []AuthMethod{AuthInBody, AuthBasic}
	}
	return c.AuthMethods
}

func hostOf(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}
	if !strings.Contains(raw, "://") {
		raw = "https://" + raw
	}
	u, err := url.Parse(raw)
	if err != nil {
		return ""
	}
	return u.Host
}

func containsString(list []string, v string) bool {
	for _, item := range list {
		if item == v {
			return true
		}
	}
	return false
}
