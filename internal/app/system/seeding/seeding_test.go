package seeding

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakePromoter struct {
	promoted bool
	err      error
	emails   []string
}

func (f *fakePromoter) PromoteByEmail(_ context.Context, email string) (bool, error) {
	f.emails = append(f.emails, email)
	return f.promoted, f.err
}

type fakeAudit struct{ promoted []string }

func (f *fakeAudit) AdminPromoted(_ context.Context, email, source string) {
	f.promoted = append(f.promoted, email+"|"+source)
}

func TestSeedAll_PromotesAndAudits(t *testing.T) {
	users := &fakePromoter{promoted: true}
	audit := &fakeAudit{}

	err := SeedAll(context.Background(), Options{AdminEmail: " ops@example.com "}, users, audit, zap.NewNop())
	require.NoError(t, err)
	assert.Equal(t, []string{"ops@example.com"}, users.emails)
	assert.Equal(t, []string{"ops@example.com|seed_admin_email"}, audit.promoted)
}

func TestSeedAll_NotYetMirrored(t *testing.T) {
	users := &fakePromoter{}
	audit := &fakeAudit{}

	require.NoError(t, SeedAll(context.Background(), Options{AdminEmail: "ops@example.com"}, users, audit, zap.NewNop()))
	assert.Empty(t, audit.promoted)
}

func TestSeedAll_NoAdminConfigured(t *testing.T) {
	users := &fakePromoter{}

	require.NoError(t, SeedAll(context.Background(), Options{}, users, nil, zap.NewNop()))
	assert.Empty(t, users.emails)
}

func TestSeedAll_StoreError(t *testing.T) {
	users := &fakePromoter{err: errors.New("db down")}

	err := SeedAll(context.Background(), Options{AdminEmail: "ops@example.com"}, users, nil, zap.NewNop())
	assert.Error(t, err)
}
