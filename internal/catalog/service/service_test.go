package service

import (
	"context"
	"strconv"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/smallbiznis/innkeeper/internal/catalog/domain"
	"github.com/smallbiznis/innkeeper/internal/catalog/repository"
	"github.com/smallbiznis/innkeeper/internal/clock"
	"github.com/smallbiznis/innkeeper/internal/config"
	"github.com/smallbiznis/innkeeper/internal/testutil"
	"github.com/smallbiznis/innkeeper/pkg/apperr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func setupCatalog(t *testing.T) (domain.Service, *gorm.DB) {
	db := testutil.NewDB(t, &domain.Category{}, &domain.Product{}, &domain.RoomType{}, &domain.Room{})
	svc := New(Params{
		DB:      db,
		Log:     zap.NewNop(),
		GenID:   testutil.NewNode(t),
		Clock:   clock.NewFakeClock(time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)),
		Repo:    repository.Provide(db),
		Pricing: config.NewStaticPricingConfigHolder(config.DefaultPricingConfig()),
	})
	return svc, db
}

func price(v string) decimal.Decimal {
	return decimal.RequireFromString(v)
}

func TestCreateProductDefaultsTaxAndSelectsTier(t *testing.T) {
	svc, _ := setupCatalog(t)
	ctx := context.Background()

	product, err := svc.CreateProduct(ctx, domain.ProductRequest{
		Name:         " Filete ",
		InsidePrice:  price("9.80"),
		OutsidePrice: price("10.50"),
	})
	require.NoError(t, err)
	assert.Equal(t, "Filete", product.Name)
	assert.True(t, product.TaxPercentage.Equal(price("21")))

	inside, err := product.PriceFor(domain.TierInside)
	require.NoError(t, err)
	assert.True(t, inside.Equal(price("9.80")))

	outside, err := product.PriceFor(domain.TierOutside)
	require.NoError(t, err)
	assert.True(t, outside.Equal(price("10.50")))

	_, err = product.PriceFor("vip")
	assert.ErrorIs(t, err, apperr.ErrValidation)
}

func TestUpdateStampsUpdatedAt(t *testing.T) {
	db := testutil.NewDB(t, &domain.Category{}, &domain.Product{}, &domain.RoomType{}, &domain.Room{})
	clk := clock.NewFakeClock(time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC))
	svc := New(Params{
		DB:      db,
		Log:     zap.NewNop(),
		GenID:   testutil.NewNode(t),
		Clock:   clk,
		Repo:    repository.Provide(db),
		Pricing: config.NewStaticPricingConfigHolder(config.DefaultPricingConfig()),
	})
	ctx := context.Background()

	created := clk.Now()
	product, err := svc.CreateProduct(ctx, domain.ProductRequest{Name: "Filete", InsidePrice: price("9.80"), OutsidePrice: price("10.50")})
	require.NoError(t, err)
	category, err := svc.CreateCategory(ctx, domain.CategoryRequest{Name: "Carnes"})
	require.NoError(t, err)

	clk.Advance(90 * time.Minute)
	_, err = svc.UpdateProduct(ctx, product.ID, domain.ProductRequest{Name: "Filete", InsidePrice: price("11"), OutsidePrice: price("12")})
	require.NoError(t, err)
	_, err = svc.RenameCategory(ctx, category.ID, domain.CategoryRequest{Name: "Asados"})
	require.NoError(t, err)

	var storedProduct domain.Product
	require.NoError(t, db.First(&storedProduct, product.ID).Error)
	assert.True(t, storedProduct.CreatedAt.Equal(created))
	assert.True(t, storedProduct.UpdatedAt.Equal(clk.Now()), "updated_at %s", storedProduct.UpdatedAt)

	var storedCategory domain.Category
	require.NoError(t, db.First(&storedCategory, category.ID).Error)
	assert.True(t, storedCategory.CreatedAt.Equal(created))
	assert.True(t, storedCategory.UpdatedAt.Equal(clk.Now()), "updated_at %s", storedCategory.UpdatedAt)
}

func TestCreateProductValidation(t *testing.T) {
	svc, _ := setupCatalog(t)
	ctx := context.Background()

	_, err := svc.CreateProduct(ctx, domain.ProductRequest{Name: "  "})
	assert.ErrorIs(t, err, domain.ErrInvalidName)

	_, err = svc.CreateProduct(ctx, domain.ProductRequest{Name: "Postre", InsidePrice: price("-1")})
	assert.ErrorIs(t, err, domain.ErrInvalidPrice)

	tax := price("101")
	_, err = svc.CreateProduct(ctx, domain.ProductRequest{Name: "Postre", TaxPercentage: &tax})
	assert.ErrorIs(t, err, domain.ErrInvalidTax)

	missing := "1234"
	_, err = svc.CreateProduct(ctx, domain.ProductRequest{Name: "Postre", CategoryID: &missing})
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestDeleteCategoryDetachesProducts(t *testing.T) {
	svc, db := setupCatalog(t)
	ctx := context.Background()

	category, err := svc.CreateCategory(ctx, domain.CategoryRequest{Name: "Carnes"})
	require.NoError(t, err)
	categoryID := strconv.FormatInt(category.ID, 10)

	product, err := svc.CreateProduct(ctx, domain.ProductRequest{
		CategoryID:   &categoryID,
		Name:         "Filete",
		InsidePrice:  price("9.80"),
		OutsidePrice: price("9.80"),
	})
	require.NoError(t, err)
	require.NotNil(t, product.CategoryID)

	require.NoError(t, svc.DeleteCategory(ctx, category.ID))

	var stored domain.Product
	require.NoError(t, db.First(&stored, "id = ?", product.ID).Error)
	assert.Nil(t, stored.CategoryID)
	assert.False(t, stored.IsDeleted)

	var deleted domain.Category
	require.NoError(t, db.First(&deleted, "id = ?", category.ID).Error)
	assert.True(t, deleted.IsDeleted)

	assert.ErrorIs(t, svc.DeleteCategory(ctx, category.ID), domain.ErrCategoryNotFound)
}

func TestSoftDeletedProductIsHidden(t *testing.T) {
	svc, db := setupCatalog(t)
	ctx := context.Background()

	product, err := svc.CreateProduct(ctx, domain.ProductRequest{Name: "Postre", InsidePrice: price("1.20"), OutsidePrice: price("1.50")})
	require.NoError(t, err)

	require.NoError(t, svc.DeleteProduct(ctx, product.ID))

	_, err = svc.GetProduct(ctx, product.ID)
	assert.ErrorIs(t, err, domain.ErrProductNotFound)

	items, err := svc.ListProducts(ctx, domain.ListProductsRequest{})
	require.NoError(t, err)
	assert.Empty(t, items)

	var count int64
	require.NoError(t, db.Model(&domain.Product{}).Where("id = ?", product.ID).Count(&count).Error)
	assert.Equal(t, int64(1), count)
}

func TestRoomsAreListedWithTypePrice(t *testing.T) {
	svc, _ := setupCatalog(t)
	ctx := context.Background()

	double, err := svc.CreateRoomType(ctx, domain.RoomTypeRequest{Name: "Double", Price: price("80")})
	require.NoError(t, err)
	typeID := strconv.FormatInt(double.ID, 10)

	_, err = svc.CreateRoom(ctx, domain.RoomRequest{RoomTypeID: typeID, Name: "101"})
	require.NoError(t, err)

	_, err = svc.CreateRoom(ctx, domain.RoomRequest{RoomTypeID: typeID, Name: "101"})
	assert.ErrorIs(t, err, domain.ErrDuplicateRoomName)
	assert.ErrorIs(t, err, apperr.ErrConflict)

	rooms, err := svc.ListRooms(ctx)
	require.NoError(t, err)
	require.Len(t, rooms, 1)
	assert.Equal(t, "Double", rooms[0].RoomTypeName)
	assert.True(t, rooms[0].Price.Equal(price("80")))
}
