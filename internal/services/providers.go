package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strconv"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/github"
	"golang.org/x/oauth2/google"
)

const (
	googleProfileURL = "https://openidconnect.googleapis.com/v1/userinfo"
	githubProfileURL = "https://api.github.com/user"
)

// IdentityProvider is one delegated-identity service. Exchange turns the
// authorization code from the callback into a verified profile.
type IdentityProvider interface {
	AuthCodeURL(state string) string
	Exchange(ctx context.Context, code string) (*ExternalProfile, error)
}

type OAuthProviderConfig struct {
	ClientID     string
	ClientSecret string
	RedirectURL  string
	Scopes       []string
	Endpoint     oauth2.Endpoint
	ProfileURL   string
	Timeout      time.Duration
}

// OAuthProvider runs the authorization-code flow and reads the profile
// endpoint with the resulting access token.
type OAuthProvider struct {
	oauth        *oauth2.Config
	profileURL   string
	timeout      time.Duration
	httpClient   *http.Client
	parseProfile func([]byte) (*ExternalProfile, error)
}

func NewOAuthProvider(cfg OAuthProviderConfig, parse func([]byte) (*ExternalProfile, error)) *OAuthProvider {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &OAuthProvider{
		oauth: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.RedirectURL,
			Scopes:       cfg.Scopes,
			Endpoint:     cfg.Endpoint,
		},
		profileURL:   cfg.ProfileURL,
		timeout:      timeout,
		httpClient:   &http.Client{Timeout: timeout},
		parseProfile: parse,
	}
}

func NewGoogleProvider(clientID, clientSecret, redirectURL string, timeout time.Duration) *OAuthProvider {
	return NewOAuthProvider(OAuthProviderConfig{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		RedirectURL:  redirectURL,
		Scopes:       []string{"openid", "profile", "email"},
		Endpoint:     google.Endpoint,
		ProfileURL:   googleProfileURL,
		Timeout:      timeout,
	}, ParseGoogleProfile)
}

func NewGitHubProvider(clientID, clientSecret, redirectURL string, timeout time.Duration) *OAuthProvider {
	return NewOAuthProvider(OAuthProviderConfig{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		RedirectURL:  redirectURL,
		Scopes:       []string{"user:email"},
		Endpoint:     github.Endpoint,
		ProfileURL:   githubProfileURL,
		Timeout:      timeout,
	}, ParseGitHubProfile)
}

func (p *OAuthProvider) AuthCodeURL(state string) string {
	return p.oauth.AuthCodeURL(state)
}

func (p *OAuthProvider) Exchange(ctx context.Context, code string) (*ExternalProfile, error) {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()
	ctx = context.WithValue(ctx, oauth2.HTTPClient, p.httpClient)

	token, err := p.oauth.Exchange(ctx, code)
	if err != nil {
		return nil, providerError(ctx, "code exchange", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.profileURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build profile request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := p.oauth.Client(ctx, token).Do(req)
	if err != nil {
		return nil, providerError(ctx, "profile fetch", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: profile endpoint returned status %d", ErrProviderAssertionInvalid, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, providerError(ctx, "profile read", err)
	}

	profile, err := p.parseProfile(body)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrProviderAssertionInvalid, err)
	}
	return profile, nil
}

// providerError separates timeouts from every other provider failure.
func providerError(ctx context.Context, step string, err error) error {
	var netErr net.Error
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) ||
		(errors.As(err, &netErr) && netErr.Timeout()) {
		return fmt.Errorf("%w: %s", ErrProviderTimeout, step)
	}
	return fmt.Errorf("%w: %s: %v", ErrProviderAssertionInvalid, step, err)
}

// ParseGoogleProfile reads the OpenID Connect userinfo document.
func ParseGoogleProfile(body []byte) (*ExternalProfile, error) {
	var info struct {
		Sub   string `json:"sub"`
		Name  string `json:"name"`
		Email string `json:"email"`
	}
	if err := json.Unmarshal(body, &info); err != nil {
		return nil, fmt.Errorf("failed to decode google profile: %w", err)
	}
	if info.Sub == "" {
		return nil, errors.New("google profile has no subject")
	}
	return &ExternalProfile{Subject: info.Sub, Username: info.Name, Email: info.Email}, nil
}

// ParseGitHubProfile reads the authenticated-user document. GitHub ids are
// numeric and stored in decimal form.
func ParseGitHubProfile(body []byte) (*ExternalProfile, error) {
	var info struct {
		ID    int64  `json:"id"`
		Login string `json:"login"`
		Email string `json:"email"`
	}
	if err := json.Unmarshal(body, &info); err != nil {
		return nil, fmt.Errorf("failed to decode github profile: %w", err)
	}
	if info.ID == 0 {
		return nil, errors.New("github profile has no id")
	}
	return &ExternalProfile{Subject: strconv.FormatInt(info.ID, 10), Username: info.Login, Email: info.Email}, nil
}
