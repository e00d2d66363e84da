package domain

import (
	"context"

	"github.com/shopspring/decimal"
	"github.com/smallbiznis/innkeeper/pkg/apperr"
)

type Service interface {
	CreateCategory(ctx context.Context, req CategoryRequest) (*Category, error)
	RenameCategory(ctx context.Context, id int64, req CategoryRequest) (*Category, error)
	ListCategories(ctx context.Context) ([]Category, error)
	DeleteCategory(ctx context.Context, id int64) error

	CreateProduct(ctx context.Context, req ProductRequest) (*Product, error)
	UpdateProduct(ctx context.Context, id int64, req ProductRequest) (*Product, error)
	GetProduct(ctx context.Context, id int64) (*Product, error)
	ListProducts(ctx context.Context, req ListProductsRequest) ([]Product, error)
	DeleteProduct(ctx context.Context, id int64) error

	CreateRoomType(ctx context.Context, req RoomTypeRequest) (*RoomType, error)
	UpdateRoomType(ctx context.Context, id int64, req RoomTypeRequest) (*RoomType, error)
	ListRoomTypes(ctx context.Context) ([]RoomType, error)
	DeleteRoomType(ctx context.Context, id int64) error

	CreateRoom(ctx context.Context, req RoomRequest) (*Room, error)
	UpdateRoom(ctx context.Context, id int64, req RoomRequest) (*Room, error)
	ListRooms(ctx context.Context) ([]PricedRoom, error)
	DeleteRoom(ctx context.Context, id int64) error
}

type CategoryRequest struct {
	Name string `json:"name"`
}

type ProductRequest struct {
	CategoryID    *string          `json:"category_id"`
	Name          string           `json:"name"`
	InsidePrice   decimal.Decimal  `json:"inside_price"`
	OutsidePrice  decimal.Decimal  `json:"outside_price"`
	TaxPercentage *decimal.Decimal `json:"tax_percentage"`
}

type ListProductsRequest struct {
	CategoryID *int64
	Name       string
	SortBy     string
	OrderBy    string
}

type RoomTypeRequest struct {
	Name  string          `json:"name"`
	Price decimal.Decimal `json:"price"`
}

type RoomRequest struct {
	RoomTypeID string `json:"room_type_id"`
	Name       string `json:"name"`
}

var (
	ErrInvalidName       = apperr.New(apperr.ErrValidation, "invalid_name", "name is required")
	ErrInvalidPrice      = apperr.New(apperr.ErrValidation, "invalid_price", "prices must not be negative")
	ErrInvalidTax        = apperr.New(apperr.ErrValidation, "invalid_tax_percentage", "tax percentage must be between 0 and 100")
	ErrInvalidTier       = apperr.New(apperr.ErrValidation, "invalid_price_tier", "unknown price tier")
	ErrInvalidID         = apperr.New(apperr.ErrValidation, "invalid_id", "invalid identifier")
	ErrCategoryNotFound  = apperr.New(apperr.ErrNotFound, "category_not_found", "category not found")
	ErrProductNotFound   = apperr.New(apperr.ErrNotFound, "product_not_found", "product not found")
	ErrRoomTypeNotFound  = apperr.New(apperr.ErrNotFound, "room_type_not_found", "room type not found")
	ErrRoomNotFound      = apperr.New(apperr.ErrNotFound, "room_not_found", "room not found")
	ErrDuplicateRoomName = apperr.New(apperr.ErrConflict, "duplicate_room_name", "a room with that name already exists")
)
