package repository

import (
	"context"
	"strings"

	"github.com/smallbiznis/innkeeper/internal/client/domain"
	"github.com/smallbiznis/innkeeper/pkg/db/option"
	"github.com/smallbiznis/innkeeper/pkg/repository"
	"gorm.io/gorm"
)

type repo struct {
	clients repository.Repository[domain.Client]
}

// Provide builds the client repository. Clients are referenced by reservations
// and sold rooms, so they are only ever soft deleted.
func Provide(db *gorm.DB) domain.Repository {
	return &repo{clients: repository.ProvideStore[domain.Client](db, repository.Soft)}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, client *domain.Client) error {
	return r.clients.WithTrx(db).Create(ctx, client)
}

func (r *repo) Update(ctx context.Context, db *gorm.DB, client *domain.Client) error {
	_, err := r.clients.WithTrx(db).Update(ctx, client.ID, map[string]any{
		"identity_document_type_id": client.IdentityDocumentTypeID,
		"identity_document":         client.IdentityDocument,
		"expedition_date":           client.ExpeditionDate,
		"expiration_date":           client.ExpirationDate,
		"name":                      client.Name,
		"first_surname":             client.FirstSurname,
		"second_surname":            client.SecondSurname,
		"birthdate":                 client.Birthdate,
		"address":                   client.Address,
		"postal_code":               client.PostalCode,
		"city":                      client.City,
		"province":                  client.Province,
		"country":                   client.Country,
		"nationality":               client.Nationality,
		"phone":                     client.Phone,
		"mobile":                    client.Mobile,
		"gender_id":                 client.GenderID,
		"updated_at":                client.UpdatedAt,
	})
	return err
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, id int64) (*domain.Client, error) {
	return r.clients.WithTrx(db).FindByID(ctx, id, option.WithActive())
}

func (r *repo) List(ctx context.Context, db *gorm.DB, filter domain.ListClientsRequest) ([]domain.Client, error) {
	opts := []option.QueryOption{option.WithActive()}
	if q := strings.ToLower(strings.TrimSpace(filter.Query)); q != "" {
		like := "%" + q + "%"
		opts = append(opts, option.Where(
			"LOWER(identity_document) LIKE ? OR LOWER(name) LIKE ? OR LOWER(first_surname) LIKE ? OR LOWER(second_surname) LIKE ?",
			like, like, like, like,
		))
	}
	opts = append(opts,
		option.WithSortBy(option.SortBy{Column: "name"}),
		option.WithLimit(filter.Limit),
		option.WithOffset(filter.Offset),
	)

	items, err := r.clients.WithTrx(db).Find(ctx, nil, opts...)
	if err != nil {
		return nil, err
	}
	out := make([]domain.Client, 0, len(items))
	for _, item := range items {
		out = append(out, *item)
	}
	return out, nil
}

func (r *repo) Delete(ctx context.Context, db *gorm.DB, id int64) (bool, error) {
	affected, err := r.clients.WithTrx(db).Delete(ctx, id)
	return affected > 0, err
}
