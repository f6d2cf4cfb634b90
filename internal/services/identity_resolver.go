package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/kiteboard/kiteboard-backend/internal/models"
	"github.com/kiteboard/kiteboard-backend/internal/observability"
	"github.com/kiteboard/kiteboard-backend/internal/store"
)

// ExternalProfile is what a provider asserts about the signed-in person.
type ExternalProfile struct {
	Subject  string
	Username string
	Email    string
}

// IdentityResolver finds or creates the local user bound to an external
// subject. The store's unique index on the external id column arbitrates
// concurrent first logins.
type IdentityResolver struct {
	users store.UserStore
}

func NewIdentityResolver(users store.UserStore) *IdentityResolver {
	return &IdentityResolver{users: users}
}

func (r *IdentityResolver) Resolve(ctx context.Context, strategy Strategy, profile *ExternalProfile) (*models.User, error) {
	field, ok := strategy.externalField()
	if !ok {
		return nil, ErrUnknownStrategy
	}
	if profile == nil || profile.Subject == "" || !models.FitsColumn(profile.Subject) {
		return nil, ErrProviderAssertionInvalid
	}

	user, err := r.users.FindByExternalID(ctx, field, profile.Subject)
	if err == nil {
		return user, nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		return nil, err
	}

	// First try with the username hint; if that name belongs to someone
	// else, fall back to a record without a username.
	for _, withUsername := range []bool{true, false} {
		candidate := newExternalUser(strategy, profile, withUsername)
		if withUsername && candidate.Username == nil {
			continue
		}

		err := r.users.Create(ctx, candidate)
		if err == nil {
			observability.ExternalUsersCreatedTotal.WithLabelValues(strategy.String()).Inc()
			slog.Info("external user created", "strategy", strategy.String(), "user_id", candidate.ID.String())
			return candidate, nil
		}
		if !errors.Is(err, store.ErrDuplicate) {
			return nil, err
		}

		// Lost a race for this subject, or the username hint collided.
		existing, err := r.users.FindByExternalID(ctx, field, profile.Subject)
		if err == nil {
			return existing, nil
		}
		if !errors.Is(err, store.ErrNotFound) {
			return nil, err
		}
	}

	return nil, fmt.Errorf("%w: could not create %s user", store.ErrUnavailable, strategy)
}

// newExternalUser builds the record for a first-time delegated login. Hints
// that would not fit their column are dropped rather than failing the login.
func newExternalUser(strategy Strategy, profile *ExternalProfile, withUsername bool) *models.User {
	subject := profile.Subject
	user := &models.User{AuthProvider: strategy.String()}
	if email := strings.TrimSpace(profile.Email); models.FitsColumn(email) {
		user.Email = email
	}
	switch strategy {
	case StrategyGoogle:
		user.GoogleID = &subject
	case StrategyGitHub:
		user.GitHubID = &subject
	}
	if name := strings.TrimSpace(profile.Username); withUsername && name != "" && models.FitsColumn(name) {
		user.Username = &name
	}
	return user
}
