package repository

import (
	"context"
	"errors"

	"github.com/smallbiznis/innkeeper/internal/catalog/domain"
	"github.com/smallbiznis/innkeeper/pkg/db/option"
	"github.com/smallbiznis/innkeeper/pkg/repository"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type repo struct {
	categories repository.Repository[domain.Category]
	products   repository.Repository[domain.Product]
	roomTypes  repository.Repository[domain.RoomType]
	rooms      repository.Repository[domain.Room]
}

// Provide builds the catalog repository. Every catalog entity is referenced by
// financial history, so all of them are soft deleted.
func Provide(db *gorm.DB) domain.Repository {
	return &repo{
		categories: repository.ProvideStore[domain.Category](db, repository.Soft),
		products:   repository.ProvideStore[domain.Product](db, repository.Soft),
		roomTypes:  repository.ProvideStore[domain.RoomType](db, repository.Soft),
		rooms:      repository.ProvideStore[domain.Room](db, repository.Soft),
	}
}

func (r *repo) CreateCategory(ctx context.Context, db *gorm.DB, category *domain.Category) error {
	return r.categories.WithTrx(db).Create(ctx, category)
}

func (r *repo) FindCategory(ctx context.Context, db *gorm.DB, id int64) (*domain.Category, error) {
	return r.categories.WithTrx(db).FindByID(ctx, id, option.WithActive())
}

func (r *repo) UpdateCategory(ctx context.Context, db *gorm.DB, category *domain.Category) error {
	_, err := r.categories.WithTrx(db).Update(ctx, category.ID, map[string]any{
		"name":       category.Name,
		"updated_at": category.UpdatedAt,
	})
	return err
}

func (r *repo) ListCategories(ctx context.Context, db *gorm.DB) ([]domain.Category, error) {
	items, err := r.categories.WithTrx(db).Find(ctx, nil,
		option.WithActive(),
		option.WithSortBy(option.SortBy{Column: "name"}),
	)
	if err != nil {
		return nil, err
	}
	return deref(items), nil
}

func (r *repo) DeleteCategory(ctx context.Context, db *gorm.DB, id int64) (bool, error) {
	var deleted bool
	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		affected, err := r.categories.WithTrx(tx).Delete(ctx, id)
		if err != nil {
			return err
		}
		if affected == 0 {
			return nil
		}
		deleted = true
		return tx.Model(&domain.Product{}).
			Where("category_id = ?", id).
			Update("category_id", nil).Error
	})
	return deleted, err
}

func (r *repo) CreateProduct(ctx context.Context, db *gorm.DB, product *domain.Product) error {
	return r.products.WithTrx(db).Create(ctx, product)
}

func (r *repo) FindProduct(ctx context.Context, db *gorm.DB, id int64) (*domain.Product, error) {
	return r.products.WithTrx(db).FindByID(ctx, id, option.WithActive())
}

func (r *repo) UpdateProduct(ctx context.Context, db *gorm.DB, product *domain.Product) error {
	_, err := r.products.WithTrx(db).Update(ctx, product.ID, map[string]any{
		"category_id":    product.CategoryID,
		"name":           product.Name,
		"inside_price":   product.InsidePrice,
		"outside_price":  product.OutsidePrice,
		"tax_percentage": product.TaxPercentage,
		"updated_at":     product.UpdatedAt,
	})
	return err
}

func (r *repo) ListProducts(ctx context.Context, db *gorm.DB, filter domain.ListProductsRequest) ([]domain.Product, error) {
	opts := []option.QueryOption{option.WithActive()}
	if filter.CategoryID != nil {
		opts = append(opts, option.Where("category_id = ?", *filter.CategoryID))
	}
	if filter.Name != "" {
		opts = append(opts, option.Where("LOWER(name) LIKE ?", "%"+filter.Name+"%"))
	}
	opts = append(opts, option.WithSortBy(option.WithQuerySortBy(filter.SortBy, filter.OrderBy, map[string]bool{
		"created_at":    true,
		"name":          true,
		"inside_price":  true,
		"outside_price": true,
	})))

	items, err := r.products.WithTrx(db).Find(ctx, nil, opts...)
	if err != nil {
		return nil, err
	}
	return deref(items), nil
}

func (r *repo) DeleteProduct(ctx context.Context, db *gorm.DB, id int64) (bool, error) {
	affected, err := r.products.WithTrx(db).Delete(ctx, id)
	return affected > 0, err
}

func (r *repo) CreateRoomType(ctx context.Context, db *gorm.DB, roomType *domain.RoomType) error {
	return r.roomTypes.WithTrx(db).Create(ctx, roomType)
}

func (r *repo) FindRoomType(ctx context.Context, db *gorm.DB, id int64) (*domain.RoomType, error) {
	return r.roomTypes.WithTrx(db).FindByID(ctx, id, option.WithActive())
}

func (r *repo) UpdateRoomType(ctx context.Context, db *gorm.DB, roomType *domain.RoomType) error {
	_, err := r.roomTypes.WithTrx(db).Update(ctx, roomType.ID, map[string]any{
		"name":       roomType.Name,
		"price":      roomType.Price,
		"updated_at": roomType.UpdatedAt,
	})
	return err
}

func (r *repo) ListRoomTypes(ctx context.Context, db *gorm.DB) ([]domain.RoomType, error) {
	items, err := r.roomTypes.WithTrx(db).Find(ctx, nil,
		option.WithActive(),
		option.WithSortBy(option.SortBy{Column: "name"}),
	)
	if err != nil {
		return nil, err
	}
	return deref(items), nil
}

func (r *repo) DeleteRoomType(ctx context.Context, db *gorm.DB, id int64) (bool, error) {
	affected, err := r.roomTypes.WithTrx(db).Delete(ctx, id)
	return affected > 0, err
}

func (r *repo) CreateRoom(ctx context.Context, db *gorm.DB, room *domain.Room) error {
	return r.rooms.WithTrx(db).Create(ctx, room)
}

func (r *repo) FindRoom(ctx context.Context, db *gorm.DB, id int64) (*domain.Room, error) {
	return r.rooms.WithTrx(db).FindByID(ctx, id, option.WithActive())
}

func (r *repo) UpdateRoom(ctx context.Context, db *gorm.DB, room *domain.Room) error {
	_, err := r.rooms.WithTrx(db).Update(ctx, room.ID, map[string]any{
		"room_type_id": room.RoomTypeID,
		"name":         room.Name,
		"updated_at":   room.UpdatedAt,
	})
	return err
}

const pricedRoomSelect = `SELECT r.id, r.name, r.room_type_id, t.name AS room_type_name, t.price
	FROM rooms r
	JOIN room_types t ON t.id = r.room_type_id`

func (r *repo) ListRooms(ctx context.Context, db *gorm.DB) ([]domain.PricedRoom, error) {
	var items []domain.PricedRoom
	err := db.WithContext(ctx).Raw(
		pricedRoomSelect+` WHERE r.is_deleted = ? ORDER BY r.name ASC`,
		false,
	).Scan(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}

func (r *repo) DeleteRoom(ctx context.Context, db *gorm.DB, id int64) (bool, error) {
	affected, err := r.rooms.WithTrx(db).Delete(ctx, id)
	return affected > 0, err
}

func (r *repo) LockPricedRoom(ctx context.Context, db *gorm.DB, id int64) (*domain.PricedRoom, error) {
	var room domain.Room
	err := db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ? AND is_deleted = ?", id, false).
		Take(&room).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}

	var priced domain.PricedRoom
	err = db.WithContext(ctx).Raw(pricedRoomSelect+` WHERE r.id = ?`, id).Scan(&priced).Error
	if err != nil {
		return nil, err
	}
	if priced.ID == 0 {
		return nil, nil
	}
	return &priced, nil
}

func deref[T any](items []*T) []T {
	out := make([]T, 0, len(items))
	for _, item := range items {
		out = append(out, *item)
	}
	return out
}
