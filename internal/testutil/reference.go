package testutil

import (
	"context"
	"testing"

	"github.com/smallbiznis/innkeeper/internal/reference"
	refdomain "github.com/smallbiznis/innkeeper/internal/reference/domain"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

// SeedReference creates and fills the lookup tables that financial rows point at.
func SeedReference(t *testing.T, db *gorm.DB) {
	t.Helper()
	require.NoError(t, db.AutoMigrate(
		&refdomain.PaymentMethodRow{},
		&refdomain.IdentityDocumentTypeRow{},
		&refdomain.GenderRow{},
	))
	require.NoError(t, reference.NewRepository(db).Seed(context.Background()))
}
