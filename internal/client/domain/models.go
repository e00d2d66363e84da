package domain

import (
	"time"

	refdomain "github.com/smallbiznis/innkeeper/internal/reference/domain"
)

// Client is a hotel guest identified by an identity document.
type Client struct {
	ID                     int64                          `json:"id,string" gorm:"primaryKey;autoIncrement:false"`
	IdentityDocumentTypeID refdomain.IdentityDocumentType `json:"identity_document_type_id" gorm:"not null;uniqueIndex:ux_clients_identity_document,priority:1"`
	IdentityDocument       string                         `json:"identity_document" gorm:"type:varchar(64);not null;uniqueIndex:ux_clients_identity_document,priority:2"`
	ExpeditionDate         *time.Time                     `json:"expedition_date,omitempty" gorm:"type:date"`
	ExpirationDate         *time.Time                     `json:"expiration_date,omitempty" gorm:"type:date"`
	Name                   string                         `json:"name" gorm:"type:varchar(255);not null"`
	FirstSurname           string                         `json:"first_surname" gorm:"type:varchar(255)"`
	SecondSurname          string                         `json:"second_surname" gorm:"type:varchar(255)"`
	Birthdate              *time.Time                     `json:"birthdate,omitempty" gorm:"type:date"`
	Address                string                         `json:"address" gorm:"type:varchar(255)"`
	PostalCode             string                         `json:"postal_code" gorm:"type:varchar(16)"`
	City                   string                         `json:"city" gorm:"type:varchar(128)"`
	Province               string                         `json:"province" gorm:"type:varchar(128)"`
	Country                string                         `json:"country" gorm:"type:varchar(128)"`
	Nationality            string                         `json:"nationality" gorm:"type:varchar(128)"`
	Phone                  string                         `json:"phone" gorm:"type:varchar(32)"`
	Mobile                 string                         `json:"mobile" gorm:"type:varchar(32)"`
	GenderID               *refdomain.Gender              `json:"gender_id,omitempty"`
	IsDeleted              bool                           `json:"is_deleted" gorm:"not null;default:false"`
	CreatedAt              time.Time                      `json:"created_at" gorm:"not null"`
	UpdatedAt              time.Time                      `json:"updated_at" gorm:"not null"`
}

func (Client) TableName() string { return "clients" }

func (c Client) FullName() string {
	name := c.Name
	if c.FirstSurname != "" {
		name += " " + c.FirstSurname
	}
	if c.SecondSurname != "" {
		name += " " + c.SecondSurname
	}
	return name
}
