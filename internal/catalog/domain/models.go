package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// PriceTier selects which of a product's two prices applies.
type PriceTier string

const (
	TierInside  PriceTier = "inside"
	TierOutside PriceTier = "outside"
)

func (t PriceTier) Valid() bool {
	return t == TierInside || t == TierOutside
}

type Category struct {
	ID        int64     `json:"id,string" gorm:"primaryKey;autoIncrement:false"`
	Name      string    `json:"name" gorm:"type:varchar(255);not null"`
	IsDeleted bool      `json:"is_deleted" gorm:"not null;default:false"`
	CreatedAt time.Time `json:"created_at" gorm:"not null"`
	UpdatedAt time.Time `json:"updated_at" gorm:"not null"`
}

func (Category) TableName() string { return "product_categories" }

type Product struct {
	ID            int64           `json:"id,string" gorm:"primaryKey;autoIncrement:false"`
	CategoryID    *int64          `json:"category_id,string,omitempty" gorm:"index"`
	Category      *Category       `json:"-" gorm:"foreignKey:CategoryID;constraint:OnDelete:SET NULL"`
	Name          string          `json:"name" gorm:"type:varchar(255);not null"`
	InsidePrice   decimal.Decimal `json:"inside_price" gorm:"type:decimal(12,2);not null"`
	OutsidePrice  decimal.Decimal `json:"outside_price" gorm:"type:decimal(12,2);not null"`
	TaxPercentage decimal.Decimal `json:"tax_percentage" gorm:"type:decimal(5,2);not null"`
	IsDeleted     bool            `json:"is_deleted" gorm:"not null;default:false"`
	CreatedAt     time.Time       `json:"created_at" gorm:"not null"`
	UpdatedAt     time.Time       `json:"updated_at" gorm:"not null"`
}

func (Product) TableName() string { return "products" }

// PriceFor returns the unit price charged at the given tier.
func (p Product) PriceFor(tier PriceTier) (decimal.Decimal, error) {
	switch tier {
	case TierInside:
		return p.InsidePrice, nil
	case TierOutside:
		return p.OutsidePrice, nil
	default:
		return decimal.Zero, ErrInvalidTier
	}
}

type RoomType struct {
	ID        int64           `json:"id,string" gorm:"primaryKey;autoIncrement:false"`
	Name      string          `json:"name" gorm:"type:varchar(255);not null"`
	Price     decimal.Decimal `json:"price" gorm:"type:decimal(12,2);not null"`
	IsDeleted bool            `json:"is_deleted" gorm:"not null;default:false"`
	CreatedAt time.Time       `json:"created_at" gorm:"not null"`
	UpdatedAt time.Time       `json:"updated_at" gorm:"not null"`
}

func (RoomType) TableName() string { return "room_types" }

type Room struct {
	ID         int64     `json:"id,string" gorm:"primaryKey;autoIncrement:false"`
	RoomTypeID int64     `json:"room_type_id,string" gorm:"not null;index"`
	RoomType   *RoomType `json:"-" gorm:"foreignKey:RoomTypeID"`
	Name       string    `json:"name" gorm:"type:varchar(255);not null;uniqueIndex"`
	IsDeleted  bool      `json:"is_deleted" gorm:"not null;default:false"`
	CreatedAt  time.Time `json:"created_at" gorm:"not null"`
	UpdatedAt  time.Time `json:"updated_at" gorm:"not null"`
}

func (Room) TableName() string { return "rooms" }

// PricedRoom is a room joined with the current price of its type.
type PricedRoom struct {
	ID           int64           `json:"id,string"`
	Name         string          `json:"name"`
	RoomTypeID   int64           `json:"room_type_id,string"`
	RoomTypeName string          `json:"room_type_name"`
	Price        decimal.Decimal `json:"price"`
}
