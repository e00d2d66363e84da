package domain

import (
	"context"

	"gorm.io/gorm"
)

// Repository reads and writes catalog rows. Every method takes the handle to run
// on so engines can reuse it inside their own transaction.
type Repository interface {
	CreateCategory(ctx context.Context, db *gorm.DB, category *Category) error
	FindCategory(ctx context.Context, db *gorm.DB, id int64) (*Category, error)
	UpdateCategory(ctx context.Context, db *gorm.DB, category *Category) error
	ListCategories(ctx context.Context, db *gorm.DB) ([]Category, error)
	// DeleteCategory soft deletes the category and detaches its products.
	DeleteCategory(ctx context.Context, db *gorm.DB, id int64) (bool, error)

	CreateProduct(ctx context.Context, db *gorm.DB, product *Product) error
	// FindProduct returns active products only.
	FindProduct(ctx context.Context, db *gorm.DB, id int64) (*Product, error)
	UpdateProduct(ctx context.Context, db *gorm.DB, product *Product) error
	ListProducts(ctx context.Context, db *gorm.DB, filter ListProductsRequest) ([]Product, error)
	DeleteProduct(ctx context.Context, db *gorm.DB, id int64) (bool, error)

	CreateRoomType(ctx context.Context, db *gorm.DB, roomType *RoomType) error
	FindRoomType(ctx context.Context, db *gorm.DB, id int64) (*RoomType, error)
	UpdateRoomType(ctx context.Context, db *gorm.DB, roomType *RoomType) error
	ListRoomTypes(ctx context.Context, db *gorm.DB) ([]RoomType, error)
	DeleteRoomType(ctx context.Context, db *gorm.DB, id int64) (bool, error)

	CreateRoom(ctx context.Context, db *gorm.DB, room *Room) error
	FindRoom(ctx context.Context, db *gorm.DB, id int64) (*Room, error)
	UpdateRoom(ctx context.Context, db *gorm.DB, room *Room) error
	ListRooms(ctx context.Context, db *gorm.DB) ([]PricedRoom, error)
	DeleteRoom(ctx context.Context, db *gorm.DB, id int64) (bool, error)
	// LockPricedRoom row-locks an active room and returns it with its type's
	// current price. Concurrent claims on the same room queue behind this lock.
	LockPricedRoom(ctx context.Context, db *gorm.DB, id int64) (*PricedRoom, error)
}
