package service

import (
	"context"
	"errors"
	"fmt"

	"campusdesk/api/internal/models"
	"campusdesk/api/internal/repository"
	"campusdesk/api/internal/security"
)

// Bootstrap idempotently seeds the two canonical portal accounts. This is
// deployment convenience, not part of the security design: existing
// accounts are never touched, and when no initial password is configured a
// random one is generated and logged once so it cannot silently ship as a
// well-known default. Operators are expected to rotate either way.
func (s *AuthService) Bootstrap(ctx context.Context) error {
	if !s.cfg.Bootstrap.Enabled {
		s.log.Debug().Msg("account bootstrap disabled")
		return nil
	}

	seeds := []struct {
		username string
		display  string
		role     models.UserRole
		password string
	}{
		{"tpo", "Training & Placement Officer", models.UserRoleTPO, s.cfg.Bootstrap.TPOPassword},
		{"admin", "Portal Administrator", models.UserRoleAdmin, s.cfg.Bootstrap.AdminPassword},
	}

	for _, seed := range seeds {
		if _, err := s.users.FindByUsername(ctx, seed.username); err == nil {
			continue
		} else if !errors.Is(err, repository.ErrUserNotFound) {
			return fmt.Errorf("bootstrap lookup %s: %w", seed.username, err)
		}

		password := seed.password
		generated := false
		if password == "" {
			random, err := security.GenerateToken()
			if err != nil {
				return fmt.Errorf("bootstrap password %s: %w", seed.username, err)
			}
			password = random
			generated = true
		}

		if _, err := s.CreateUser(ctx, CreateUserInput{
			Username:    seed.username,
			DisplayName: seed.display,
			Password:    password,
			Role:        seed.role,
		}); err != nil {
			// A concurrent instance may have won the race; that still
			// satisfies idempotency.
			if errors.Is(err, repository.ErrDuplicateUsername) {
				continue
			}
			return fmt.Errorf("bootstrap create %s: %w", seed.username, err)
		}

		event := s.log.Warn().Str("username", seed.username)
		if generated {
			event = event.Str("initial_password", password)
		}
		event.Msg("bootstrap account created; rotate its password before exposing the portal")
	}

	return nil
}
