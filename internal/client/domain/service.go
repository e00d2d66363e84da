package domain

import (
	"context"

	"github.com/smallbiznis/innkeeper/pkg/apperr"
	"gorm.io/gorm"
)

type Service interface {
	Create(ctx context.Context, req ClientRequest) (*Client, error)
	Update(ctx context.Context, id int64, req ClientRequest) (*Client, error)
	Get(ctx context.Context, id int64) (*Client, error)
	List(ctx context.Context, req ListClientsRequest) ([]Client, error)
	Delete(ctx context.Context, id int64) error
}

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, client *Client) error
	Update(ctx context.Context, db *gorm.DB, client *Client) error
	FindByID(ctx context.Context, db *gorm.DB, id int64) (*Client, error)
	List(ctx context.Context, db *gorm.DB, filter ListClientsRequest) ([]Client, error)
	Delete(ctx context.Context, db *gorm.DB, id int64) (bool, error)
}

type ClientRequest struct {
	IdentityDocumentType string  `json:"identity_document_type"`
	IdentityDocument     string  `json:"identity_document"`
	ExpeditionDate       *string `json:"expedition_date"`
	ExpirationDate       *string `json:"expiration_date"`
	Name                 string  `json:"name"`
	FirstSurname         string  `json:"first_surname"`
	SecondSurname        string  `json:"second_surname"`
	Birthdate            *string `json:"birthdate"`
	Address              string  `json:"address"`
	PostalCode           string  `json:"postal_code"`
	City                 string  `json:"city"`
	Province             string  `json:"province"`
	Country              string  `json:"country"`
	Nationality          string  `json:"nationality"`
	Phone                string  `json:"phone"`
	Mobile               string  `json:"mobile"`
	Gender               string  `json:"gender"`
}

type ListClientsRequest struct {
	// Query matches the identity document or any name field.
	Query  string
	Limit  int
	Offset int
}

var (
	ErrInvalidName               = apperr.New(apperr.ErrValidation, "invalid_name", "client name is required")
	ErrInvalidDocument           = apperr.New(apperr.ErrValidation, "invalid_identity_document", "identity document is required")
	ErrInvalidDocumentType       = apperr.New(apperr.ErrValidation, "invalid_identity_document_type", "unknown identity document type")
	ErrInvalidGender             = apperr.New(apperr.ErrValidation, "invalid_gender", "unknown gender")
	ErrInvalidDate               = apperr.New(apperr.ErrValidation, "invalid_date", "dates must use the YYYY-MM-DD format")
	ErrInvalidDocumentDates      = apperr.New(apperr.ErrValidation, "invalid_document_dates", "document expires before it was issued")
	ErrInvalidID                 = apperr.New(apperr.ErrValidation, "invalid_id", "invalid identifier")
	ErrClientNotFound            = apperr.New(apperr.ErrNotFound, "client_not_found", "client not found")
	ErrDuplicateIdentityDocument = apperr.New(apperr.ErrConflict, "duplicate_identity_document", "a client with that identity document already exists")
)
