package hemis

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2/log"
	"golang.org/x/oauth2"
)

// Attempt is the result of one (endpoint, method) try.
type Attempt struct {
	Endpoint Endpoint
	Method   AuthMethod
	Status   int
	Err      error
	Duration time.Duration
}

func (a Attempt) String() string {
	if a.Err == nil {
		return fmt.Sprintf("%s%s %s: ok", a.Endpoint.Host, a.Endpoint.Path, a.Method)
	}
	if a.Status > 0 {
		return fmt.Sprintf("%s%s %s: status %d", a.Endpoint.Host, a.Endpoint.Path, a.Method, a.Status)
	}
	return fmt.Sprintf("%s%s %s: %v", a.Endpoint.Host, a.Endpoint.Path, a.Method, a.Err)
}

// TokenResponse is a successful exchange.
type TokenResponse struct {
	AccessToken string
	// Domain is the host that accepted the code.
	Domain string
	Token  *oauth2.Token
}

// Broker talks to the identity provider on behalf of a login request.
// It holds no per-request state and is safe for concurrent use.
type Broker struct {
	cfg     Config
	client  *http.Client
	metrics *Metrics
}

type Option func(*Broker)

// WithHTTPClient replaces the outbound client; its transport still gets the
// browser-like headers.
func WithHTTPClient(c *http.Client) Option {
	return func(b *Broker) {
		b.client = c
	}
}

func WithMetrics(m *Metrics) Option {
	return func(b *Broker) {
		b.metrics = m
	}
}

func NewBroker(cfg Config, opts ...Option) *Broker {
	b := &Broker{cfg: cfg}
	for _, opt := range opts {
		opt(b)
	}
	if b.client == nil {
		b.client = &http.Client{}
	}
	base := b.client.Transport
	if base == nil {
		base = http.DefaultTransport
	}
	ua := cfg.UserAgent
	if ua == "" {
		ua = defaultUserAgent
	}
	client := *b.client
	client.Transport = &headerTransport{base: base, userAgent: ua}
	b.client = &client
	return b
}

func (b *Broker) Config() Config {
	return b.cfg
}

// WithRedirectURI returns a broker sharing client and metrics that sends
// uri as redirect_uri.
func (b *Broker) WithRedirectURI(uri string) *Broker {
	cp := *b
	cp.cfg.RedirectURI = uri
	return &cp
}

// AuthURL is the provider front door for role. state may be empty.
func (b *Broker) AuthURL(role Role, state string) string {
	front := strings.TrimRight(b.cfg.FrontDoor(role), "/")
	conf := &oauth2.Config{
		ClientID:    b.cfg.ClientID,
		RedirectURL: b.cfg.RedirectURI,
		Endpoint:    oauth2.Endpoint{AuthURL: front + "/oauth/authorize"},
	}
	return conf.AuthCodeURL(state)
}

// Exchange trades code for an access token, walking the candidate endpoints
// in order. The first accepted attempt ends the search.
func (b *Broker) Exchange(ctx context.Context, code string) (*TokenResponse, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return nil, ErrMissingCode
	}

	started := time.Now()
	defer func() { b.metrics.RecordExchange(time.Since(started)) }()

	var attempts []Attempt
	for _, ep := range b.cfg.Candidates() {
		for _, method := range b.cfg.methods() {
			tok, attempt := b.try(ctx, ep, method, code)
			attempts = append(attempts, attempt)
			b.metrics.RecordAttempt(attempt)

			if attempt.Err == nil {
				log.Infof("[Hemis] token accepted by %s%s (%s)", ep.Host, ep.Path, method)
				return &TokenResponse{AccessToken: tok.AccessToken, Domain: ep.Host, Token: tok}, nil
			}
			log.Warnf("[Hemis] token exchange attempt failed: %s", attempt.String())

			if ctx.Err() != nil {
				return nil, fmt.Errorf("%w: %v", ErrTokenRejected, ctx.Err())
			}
		}
	}

	log.Errorf("[Hemis] all %d token exchange attempts failed", len(attempts))
	return nil, &ExchangeError{Attempts: attempts}
}

func (b *Broker) try(ctx context.Context, ep Endpoint, method AuthMethod, code string) (*oauth2.Token, Attempt) {
	attempt := Attempt{Endpoint: ep, Method: method}
	conf := &oauth2.Config{
		ClientID:     b.cfg.ClientID,
		ClientSecret: b.cfg.ClientSecret,
		RedirectURL:  b.cfg.RedirectURI,
		Endpoint: oauth2.Endpoint{
			TokenURL:  ep.URL(b.cfg.scheme()),
			AuthStyle: method.style(),
		},
	}

	rt := &attemptTransport{base: b.client.Transport}
	if method == AuthBasic {
		rt.user, rt.pass = b.cfg.ClientID, b.cfg.ClientSecret
	}
	client := *b.client
	client.Transport = rt

	attemptCtx, cancel := context.WithTimeout(ctx, b.cfg.timeout())
	defer cancel()
	attemptCtx = context.WithValue(attemptCtx, oauth2.HTTPClient, &client)

	started := time.Now()
	tok, err := conf.Exchange(attemptCtx, code)
	attempt.Duration = time.Since(started)
	if err == nil && rt.status != http.StatusOK {
		attempt.Status = rt.status
		attempt.Err = fmt.Errorf("token endpoint answered %d, want 200", rt.status)
		return nil, attempt
	}
	if err != nil {
		var re *oauth2.RetrieveError
		if errors.As(err, &re) && re.Response != nil {
			attempt.Status = re.Response.StatusCode
		}
		attempt.Err = err
		return nil, attempt
	}
	if tok.AccessToken == "" {
		attempt.Status = http.StatusOK
		attempt.Err = errors.New("response carried no access_token")
		return nil, attempt
	}
	attempt.Status = http.StatusOK
	return tok, attempt
}

// FetchProfile reads the user record with the bearer token. domain is the
// host from Exchange; when empty the configured API URL is used.
func (b *Broker) FetchProfile(ctx context.Context, accessToken, domain string) (Profile, error) {
	if accessToken == "" {
		return nil, fmt.Errorf("%w: empty access token", ErrProfileUnavailable)
	}

	ctx, cancel := context.WithTimeout(ctx, b.cfg.timeout())
	defer cancel()
	ctx = context.WithValue(ctx, oauth2.HTTPClient, b.client)
	client := oauth2.NewClient(ctx, oauth2.StaticTokenSource(&oauth2.Token{
		AccessToken: accessToken,
		TokenType:   "Bearer",
	}))

	target := b.profileURL(domain)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrProfileUnavailable, err)
	}

	resp, err := client.Do(req)
	if err != nil {
		log.Warnf("[Hemis] profile request to %s failed: %v", target, err)
		return nil, fmt.Errorf("%w: %v", ErrProfileUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		log.Warnf("[Hemis] profile request to %s returned %d", target, resp.StatusCode)
		return nil, fmt.Errorf("%w: status %d", ErrProfileUnavailable, resp.StatusCode)
	}

	profile, err := DecodeProfile(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrProfileUnavailable, err)
	}
	return profile, nil
}

func (b *Broker) profileURL(domain string) string {
	if domain != "" {
		path := b.cfg.ProfilePath
		if path == "" {
			path = defaultProfilePath
		}
		return b.cfg.scheme() + "://" + domain + path
	}
	return strings.TrimRight(b.cfg.APIURL, "/") + "/user"
}

// headerTransport makes requests look like a browser; some provider
// deployments sit behind a WAF that drops unknown clients.
type headerTransport struct {
	base      http.RoundTripper
	userAgent string
}

func (t *headerTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	r := req.Clone(req.Context())
	if r.Header.Get("User-Agent") == "" {
		r.Header.Set("User-Agent", t.userAgent)
	}
	if r.Header.Get("Accept") == "" {
		r.Header.Set("Accept", "application/json")
	}
	return t.base.RoundTrip(r)
}

// attemptTransport records the token endpoint status. For the basic method
// it sends the client credentials as given; oauth2 form-escapes them first.
type attemptTransport struct {
	base       http.RoundTripper
	user, pass string
	status     int
}

func (t *attemptTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if t.user != "" || t.pass != "" {
		req = req.Clone(req.Context())
		req.SetBasicAuth(t.user, t.pass)
	}
	resp, err := t.base.RoundTrip(req)
	if resp != nil {
		t.status = resp.StatusCode
	}
	return resp, err
}
