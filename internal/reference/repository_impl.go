package reference

import (
	"context"

	"github.com/smallbiznis/innkeeper/internal/reference/domain"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) domain.Repository {
	return &repository{db: db}
}

func (r *repository) ListPaymentMethods(ctx context.Context) ([]domain.Entry, error) {
	rows, err := r.list(ctx, "payment_methods")
	if err != nil {
		return nil, err
	}
	for i := range rows {
		rows[i].Code = domain.PaymentMethod(rows[i].ID).Code()
	}
	return rows, nil
}

func (r *repository) ListIdentityDocumentTypes(ctx context.Context) ([]domain.Entry, error) {
	rows, err := r.list(ctx, "identity_document_types")
	if err != nil {
		return nil, err
	}
	for i := range rows {
		rows[i].Code = domain.IdentityDocumentType(rows[i].ID).Code()
	}
	return rows, nil
}

func (r *repository) ListGenders(ctx context.Context) ([]domain.Entry, error) {
	rows, err := r.list(ctx, "genders")
	if err != nil {
		return nil, err
	}
	for i := range rows {
		rows[i].Code = domain.Gender(rows[i].ID).Code()
	}
	return rows, nil
}

// Seed inserts the closed reference sets, leaving existing rows untouched.
func (r *repository) Seed(ctx context.Context) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, e := range domain.PaymentMethodEntries() {
			if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&domain.PaymentMethodRow{Entry: e}).Error; err != nil {
				return err
			}
		}
		for _, e := range domain.IdentityDocumentTypeEntries() {
			if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&domain.IdentityDocumentTypeRow{Entry: e}).Error; err != nil {
				return err
			}
		}
		for _, e := range domain.GenderEntries() {
			if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&domain.GenderRow{Entry: e}).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

func (r *repository) list(ctx context.Context, table string) ([]domain.Entry, error) {
	var rows []domain.Entry
	err := r.db.WithContext(ctx).
		Table(table).
		Select("id, name").
		Order("id").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}
