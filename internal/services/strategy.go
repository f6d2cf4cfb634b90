package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/kiteboard/kiteboard-backend/internal/models"
	"github.com/kiteboard/kiteboard-backend/internal/observability"
	"github.com/kiteboard/kiteboard-backend/internal/session"
	"github.com/kiteboard/kiteboard-backend/internal/store"
)

// Strategy is the closed set of ways to sign in.
type Strategy int

const (
	StrategyLocal Strategy = iota
	StrategyGoogle
	StrategyGitHub
)

func (s Strategy) String() string {
	switch s {
	case StrategyLocal:
		return models.ProviderLocal
	case StrategyGoogle:
		return models.ProviderGoogle
	case StrategyGitHub:
		return models.ProviderGitHub
	default:
		return fmt.Sprintf("strategy(%d)", int(s))
	}
}

// ParseStrategy maps a provider name from a route to a delegated strategy.
func ParseStrategy(name string) (Strategy, bool) {
	switch name {
	case models.ProviderGoogle:
		return StrategyGoogle, true
	case models.ProviderGitHub:
		return StrategyGitHub, true
	default:
		return 0, false
	}
}

func (s Strategy) externalField() (store.ExternalField, bool) {
	switch s {
	case StrategyGoogle:
		return store.FieldGoogleID, true
	case StrategyGitHub:
		return store.FieldGitHubID, true
	default:
		return "", false
	}
}

// Attempt carries the credentials of a single sign-in request. Local uses
// Username and Password; delegated strategies use Code, State and Nonce
// from the provider callback.
type Attempt struct {
	Strategy      Strategy
	Username      string
	Password      string
	Code          string
	State         string
	Nonce         string
	PreviousToken string
	RequestID     string
}

// Outcome is the terminal state of an attempt: Authenticated when Token is
// set, Rejected with Err otherwise.
type Outcome struct {
	User  *models.User
	Token string
	Err   error
}

func (o Outcome) Authenticated() bool {
	return o.Err == nil && o.Token != ""
}

func rejected(err error) Outcome {
	return Outcome{Err: err}
}

// StrategyRouter drives each strategy to a session or a rejection.
type StrategyRouter struct {
	verifier *AuthService
	resolver *IdentityResolver
	sessions *session.Codec
	state    *StateSigner
	google   IdentityProvider
	github   IdentityProvider
}

func NewStrategyRouter(verifier *AuthService, resolver *IdentityResolver, sessions *session.Codec, state *StateSigner) *StrategyRouter {
	return &StrategyRouter{
		verifier: verifier,
		resolver: resolver,
		sessions: sessions,
		state:    state,
	}
}

// WithProvider installs the provider for a delegated strategy.
func (r *StrategyRouter) WithProvider(strategy Strategy, p IdentityProvider) *StrategyRouter {
	switch strategy {
	case StrategyGoogle:
		r.google = p
	case StrategyGitHub:
		r.github = p
	}
	return r
}

func (r *StrategyRouter) provider(strategy Strategy) (IdentityProvider, error) {
	var p IdentityProvider
	switch strategy {
	case StrategyGoogle:
		p = r.google
	case StrategyGitHub:
		p = r.github
	default:
		return nil, ErrUnknownStrategy
	}
	if p == nil {
		return nil, ErrProviderNotConfigured
	}
	return p, nil
}

// Begin starts a delegated login. It returns the provider URL to redirect
// to and the nonce the caller must keep client-side until the callback.
func (r *StrategyRouter) Begin(strategy Strategy) (redirectURL, nonce string, err error) {
	p, err := r.provider(strategy)
	if err != nil {
		return "", "", err
	}
	state, nonce, err := r.state.Issue(strategy)
	if err != nil {
		return "", "", err
	}
	return p.AuthCodeURL(state), nonce, nil
}

// Authenticate runs one attempt to completion. No retries are made.
func (r *StrategyRouter) Authenticate(ctx context.Context, a Attempt) Outcome {
	var (
		user *models.User
		err  error
	)
	switch a.Strategy {
	case StrategyLocal:
		user, err = r.authenticateLocal(ctx, a)
	case StrategyGoogle, StrategyGitHub:
		user, err = r.authenticateExternal(ctx, a)
	default:
		err = ErrUnknownStrategy
	}
	if err != nil {
		r.record(a, err)
		return rejected(err)
	}

	if a.PreviousToken != "" {
		if err := r.sessions.Destroy(ctx, a.PreviousToken); err != nil {
			slog.Warn("failed to drop previous session", "strategy", a.Strategy.String(), "request_id", a.RequestID, "error", err)
		}
	}

	token, err := r.sessions.Establish(ctx, user)
	if err != nil {
		r.record(a, err)
		return rejected(err)
	}

	r.record(a, nil)
	slog.Info("user authenticated", "strategy", a.Strategy.String(), "request_id", a.RequestID, "user_id", user.ID.String())
	return Outcome{User: user, Token: token}
}

func (r *StrategyRouter) authenticateLocal(ctx context.Context, a Attempt) (*models.User, error) {
	if a.Username == "" || a.Password == "" {
		return nil, fmt.Errorf("%w: %w", ErrAuthenticationFailed, ErrMissingCredentials)
	}
	user, err := r.verifier.Verify(ctx, a.Username, a.Password)
	if errors.Is(err, ErrUserNotFound) || errors.Is(err, ErrInvalidCredentials) {
		return nil, fmt.Errorf("%w: %w", ErrAuthenticationFailed, err)
	}
	return user, err
}

func (r *StrategyRouter) authenticateExternal(ctx context.Context, a Attempt) (*models.User, error) {
	p, err := r.provider(a.Strategy)
	if err != nil {
		return nil, err
	}
	if err := r.state.Verify(a.State, a.Nonce, a.Strategy); err != nil {
		return nil, err
	}
	if a.Code == "" {
		return nil, fmt.Errorf("%w: missing authorization code", ErrProviderAssertionInvalid)
	}

	start := time.Now()
	profile, err := p.Exchange(ctx, a.Code)
	observability.ProviderLatency.WithLabelValues(a.Strategy.String()).Observe(time.Since(start).Seconds())
	if err != nil {
		return nil, err
	}

	return r.resolver.Resolve(ctx, a.Strategy, profile)
}

// record counts the outcome. Store outages fail the request with a 5xx, so
// they are logged at ERROR and reach the system_logs sink; client-side
// rejections stay at WARN.
func (r *StrategyRouter) record(a Attempt, err error) {
	strategy := a.Strategy.String()
	outcome := "authenticated"
	switch {
	case err == nil:
	case errors.Is(err, ErrStoreUnavailable):
		outcome = "error"
	case errors.Is(err, ErrProviderTimeout):
		outcome = "timeout"
	default:
		outcome = "rejected"
	}
	observability.AuthAttemptsTotal.WithLabelValues(strategy, outcome).Inc()

	switch outcome {
	case "error":
		slog.Error("authentication aborted by store failure",
			"strategy", strategy,
			"request_id", a.RequestID,
			"action", "authenticate",
			"error", err.Error(),
		)
	case "timeout", "rejected":
		slog.Warn("authentication rejected", "strategy", strategy, "request_id", a.RequestID, "reason", err.Error())
	}
}
