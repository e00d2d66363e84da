package domain

import "context"

// Entry is one row of a closed lookup table.
type Entry struct {
	ID   int16  `json:"id" gorm:"primaryKey;autoIncrement:false"`
	Code string `json:"code" gorm:"-"`
	Name string `json:"name" gorm:"type:varchar(64);not null"`
}

type PaymentMethodRow struct{ Entry }

func (PaymentMethodRow) TableName() string { return "payment_methods" }

type IdentityDocumentTypeRow struct{ Entry }

func (IdentityDocumentTypeRow) TableName() string { return "identity_document_types" }

type GenderRow struct{ Entry }

func (GenderRow) TableName() string { return "genders" }

// Catalog groups every closed set. Locations have no backing table.
type Catalog struct {
	PaymentMethods        []Entry `json:"payment_methods"`
	IdentityDocumentTypes []Entry `json:"identity_document_types"`
	Genders               []Entry `json:"genders"`
	Locations             []Entry `json:"locations"`
}

type Repository interface {
	ListPaymentMethods(ctx context.Context) ([]Entry, error)
	ListIdentityDocumentTypes(ctx context.Context) ([]Entry, error)
	ListGenders(ctx context.Context) ([]Entry, error)
	Seed(ctx context.Context) error
}

func PaymentMethodEntries() []Entry {
	out := make([]Entry, 0, len(paymentMethods))
	for _, p := range paymentMethods {
		out = append(out, Entry{ID: int16(p), Code: p.Code(), Name: p.Name()})
	}
	return out
}

func IdentityDocumentTypeEntries() []Entry {
	out := make([]Entry, 0, len(documentTypes))
	for _, d := range documentTypes {
		out = append(out, Entry{ID: int16(d), Code: d.Code(), Name: d.Name()})
	}
	return out
}

func GenderEntries() []Entry {
	out := make([]Entry, 0, len(genders))
	for _, g := range genders {
		out = append(out, Entry{ID: int16(g), Code: g.Code(), Name: g.Name()})
	}
	return out
}

func LocationEntries() []Entry {
	out := make([]Entry, 0, len(locations))
	for _, l := range locations {
		out = append(out, Entry{ID: int16(l), Code: l.Code(), Name: l.Name()})
	}
	return out
}
