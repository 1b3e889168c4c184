// internal/app/system/seeding/seeding.go
package seeding

import (
	"context"
	"strings"

	"go.uber.org/zap"
)

// Promoter grants the admin role by email.
type Promoter interface {
	PromoteByEmail(ctx context.Context, email string) (bool, error)
}

// PromotionAuditor records admin grants made outside the identity provider.
type PromotionAuditor interface {
	AdminPromoted(ctx context.Context, email, source string)
}

// Options controls what SeedAll does.
type Options struct {
	// AdminEmail is promoted to admin if that user has been mirrored.
	AdminEmail string
}

// SeedAll applies startup seed data. It is idempotent.
func SeedAll(ctx context.Context, opts Options, users Promoter, audit PromotionAuditor, logger *zap.Logger) error {
	return seedAdmin(ctx, strings.TrimSpace(opts.AdminEmail), users, audit, logger)
}

// seedAdmin promotes the configured admin. Users are mirrored on their first
// login, so an unknown email is not an error; the next startup retries.
func seedAdmin(ctx context.Context, email string, users Promoter, audit PromotionAuditor, logger *zap.Logger) error {
	if email == "" {
		return nil
	}
	promoted, err := users.PromoteByEmail(ctx, email)
	if err != nil {
		logger.Error("failed to promote seed admin", zap.String("email", email), zap.Error(err))
		return err
	}
	if !promoted {
		logger.Info("seed admin not promoted: user not mirrored yet or already admin",
			zap.String("email", email))
		return nil
	}
	if audit != nil {
		audit.AdminPromoted(ctx, email, "seed_admin_email")
	}
	logger.Info("seed admin promoted", zap.String("email", email))
	return nil
}
