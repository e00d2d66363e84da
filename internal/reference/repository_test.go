package reference

import (
	"context"
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/smallbiznis/innkeeper/internal/reference/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func setupTestDB(t *testing.T) *gorm.DB {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, db.AutoMigrate(
		&domain.PaymentMethodRow{},
		&domain.IdentityDocumentTypeRow{},
		&domain.GenderRow{},
	))
	return db
}

func TestSeedIsIdempotent(t *testing.T) {
	db := setupTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	require.NoError(t, repo.Seed(ctx))
	require.NoError(t, repo.Seed(ctx))

	methods, err := repo.ListPaymentMethods(ctx)
	require.NoError(t, err)
	require.Len(t, methods, 3)
	assert.Equal(t, domain.Entry{ID: 1, Code: "cash", Name: "Cash"}, methods[0])
	assert.Equal(t, "direct_debit", methods[2].Code)

	docs, err := repo.ListIdentityDocumentTypes(ctx)
	require.NoError(t, err)
	assert.Len(t, docs, 5)
	assert.Equal(t, "passport", docs[3].Code)

	genders, err := repo.ListGenders(ctx)
	require.NoError(t, err)
	assert.Len(t, genders, 3)
}

func TestParseEnums(t *testing.T) {
	method, err := domain.ParsePaymentMethod(" Direct-Debit ")
	require.NoError(t, err)
	assert.Equal(t, domain.PaymentDirectDebit, method)

	_, err = domain.ParsePaymentMethod("bitcoin")
	assert.ErrorIs(t, err, domain.ErrUnknownPaymentMethod)

	loc, err := domain.ParseLocation("terrace")
	require.NoError(t, err)
	assert.Equal(t, domain.LocationTerrace, loc)
	assert.False(t, domain.Location(9).Valid())

	doc, err := domain.ParseIdentityDocumentType("NIE")
	require.NoError(t, err)
	assert.Equal(t, domain.DocumentNIE, doc)

	_, err = domain.ParseGender("x")
	assert.ErrorIs(t, err, domain.ErrUnknownGender)
}
