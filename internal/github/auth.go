package github

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	gh "github.com/google/go-github/v66/github"
	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/time/rate"
)

const (
	tokenCacheSize = 256
	// tokens are refreshed this long before GitHub expires them
	tokenExpirySkew = time.Minute
)

// ClientFactory returns a GitHub client authenticated for an installation.
type ClientFactory interface {
	Client(ctx context.Context, installationID int64) (*gh.Client, error)
}

// AppAuth holds GitHub App authentication configuration and caches
// installation tokens.
type AppAuth struct {
	AppID      string
	PrivateKey string
	// BaseURL overrides the API endpoint, e.g. for GitHub Enterprise.
	BaseURL string

	transport http.RoundTripper

	once   sync.Once
	tokens *lru.Cache[int64, InstallationToken]
}

// InstallationToken represents a GitHub App installation access token
type InstallationToken struct {
	Token     string
	ExpiresAt time.Time
}

func (t InstallationToken) valid(now time.Time) bool {
	return t.Token != "" && now.Add(tokenExpirySkew).Before(t.ExpiresAt)
}

// NewAppAuth builds an AppAuth whose API calls share one rate limiter.
// A non-positive requestsPerSecond disables throttling.
func NewAppAuth(appID, privateKey string, requestsPerSecond float64) *AppAuth {
	var transport http.RoundTripper = http.DefaultTransport
	if requestsPerSecond > 0 {
		burst := int(requestsPerSecond)
		if burst < 1 {
			burst = 1
		}
		transport = NewRateLimitedTransport(transport, rate.NewLimiter(rate.Limit(requestsPerSecond), burst))
	}
	return &AppAuth{AppID: appID, PrivateKey: privateKey, transport: transport}
}

// GenerateJWT creates a JWT token for GitHub App authentication
func (a *AppAuth) GenerateJWT() (string, error) {
	key, err := jwt.ParseRSAPrivateKeyFromPEM([]byte(a.PrivateKey))
	if err != nil {
		return "", fmt.Errorf("failed to parse private key: %w", err)
	}

	appID, err := strconv.ParseInt(a.AppID, 10, 64)
	if err != nil {
		return "", fmt.Errorf("invalid app ID: %w", err)
	}

	// GitHub rejects tokens issued in the future, so backdate for clock drift
	now := time.Now()
	claims := jwt.RegisteredClaims{
		IssuedAt:  jwt.NewNumericDate(now.Add(-30 * time.Second)),
		ExpiresAt: jwt.NewNumericDate(now.Add(10 * time.Minute)),
		Issuer:    strconv.FormatInt(appID, 10),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodRS256, claims)
	signedToken, err := token.SignedString(key)
	if err != nil {
		return "", fmt.Errorf("failed to sign JWT: %w", err)
	}

	return signedToken, nil
}

// GetInstallationToken returns a cached installation token, minting a new one
// when the cached token is missing or about to expire.
func (a *AppAuth) GetInstallationToken(ctx context.Context, installationID int64) (InstallationToken, error) {
	a.once.Do(func() {
		a.tokens, _ = lru.New[int64, InstallationToken](tokenCacheSize)
	})

	if tok, ok := a.tokens.Get(installationID); ok && tok.valid(time.Now()) {
		return tok, nil
	}

	jwtToken, err := a.GenerateJWT()
	if err != nil {
		return InstallationToken{}, err
	}

	appClient, err := a.newClient(jwtToken)
	if err != nil {
		return InstallationToken{}, err
	}

	var minted *gh.InstallationToken
	err = retryWithBackoff(ctx, func() error {
		var err error
		minted, _, err = appClient.Apps.CreateInstallationToken(ctx, installationID, nil)
		return err
	})
	if err != nil {
		return InstallationToken{}, fmt.Errorf("failed to get installation token for %d: %w", installationID, err)
	}

	tok := InstallationToken{Token: minted.GetToken(), ExpiresAt: minted.GetExpiresAt().Time}
	a.tokens.Add(installationID, tok)
	return tok, nil
}

// Client returns a go-github client authenticated as the installation.
func (a *AppAuth) Client(ctx context.Context, installationID int64) (*gh.Client, error) {
	if installationID == 0 {
		return nil, fmt.Errorf("missing installation id")
	}
	tok, err := a.GetInstallationToken(ctx, installationID)
	if err != nil {
		return nil, err
	}
	return a.newClient(tok.Token)
}

func (a *AppAuth) newClient(token string) (*gh.Client, error) {
	transport := a.transport
	if transport == nil {
		transport = http.DefaultTransport
	}
	client := gh.NewClient(&http.Client{Transport: transport, Timeout: 30 * time.Second}).WithAuthToken(token)
	if a.BaseURL != "" {
		base, err := url.Parse(a.BaseURL)
		if err != nil {
			return nil, fmt.Errorf("invalid GitHub base URL: %w", err)
		}
		if base.Path == "" || base.Path[len(base.Path)-1] != '/' {
			base.Path += "/"
		}
		client.BaseURL = base
		client.UploadURL = base
	}
	return client, nil
}
