package domain

import (
	"strings"

	"github.com/smallbiznis/innkeeper/pkg/apperr"
)

var (
	ErrUnknownPaymentMethod = apperr.New(apperr.ErrValidation, "unknown_payment_method", "unknown payment method")
	ErrUnknownDocumentType  = apperr.New(apperr.ErrValidation, "unknown_identity_document_type", "unknown identity document type")
	ErrUnknownGender        = apperr.New(apperr.ErrValidation, "unknown_gender", "unknown gender")
	ErrUnknownLocation      = apperr.New(apperr.ErrValidation, "unknown_location", "unknown seating location")
)

// PaymentMethod mirrors the seeded payment_methods table.
type PaymentMethod int16

const (
	PaymentCash        PaymentMethod = 1
	PaymentCard        PaymentMethod = 2
	PaymentDirectDebit PaymentMethod = 3
)

var paymentMethods = []PaymentMethod{PaymentCash, PaymentCard, PaymentDirectDebit}

func (p PaymentMethod) Valid() bool {
	return p >= PaymentCash && p <= PaymentDirectDebit
}

func (p PaymentMethod) Code() string {
	switch p {
	case PaymentCash:
		return "cash"
	case PaymentCard:
		return "card"
	case PaymentDirectDebit:
		return "direct_debit"
	default:
		return "unknown"
	}
}

func (p PaymentMethod) Name() string {
	switch p {
	case PaymentCash:
		return "Cash"
	case PaymentCard:
		return "Card"
	case PaymentDirectDebit:
		return "Direct debit"
	default:
		return "Unknown"
	}
}

func ParsePaymentMethod(code string) (PaymentMethod, error) {
	code = normalize(code)
	for _, p := range paymentMethods {
		if p.Code() == code {
			return p, nil
		}
	}
	return 0, ErrUnknownPaymentMethod
}

// IdentityDocumentType mirrors the seeded identity_document_types table.
type IdentityDocumentType int16

const (
	DocumentDNI            IdentityDocumentType = 1
	DocumentNIE            IdentityDocumentType = 2
	DocumentNIF            IdentityDocumentType = 3
	DocumentPassport       IdentityDocumentType = 4
	DocumentDrivingLicence IdentityDocumentType = 5
)

var documentTypes = []IdentityDocumentType{DocumentDNI, DocumentNIE, DocumentNIF, DocumentPassport, DocumentDrivingLicence}

func (d IdentityDocumentType) Valid() bool {
	return d >= DocumentDNI && d <= DocumentDrivingLicence
}

func (d IdentityDocumentType) Code() string {
	switch d {
	case DocumentDNI:
		return "dni"
	case DocumentNIE:
		return "nie"
	case DocumentNIF:
		return "nif"
	case DocumentPassport:
		return "passport"
	case DocumentDrivingLicence:
		return "driving_licence"
	default:
		return "unknown"
	}
}

func (d IdentityDocumentType) Name() string {
	switch d {
	case DocumentDNI:
		return "DNI"
	case DocumentNIE:
		return "NIE"
	case DocumentNIF:
		return "NIF"
	case DocumentPassport:
		return "Passport"
	case DocumentDrivingLicence:
		return "Driving licence"
	default:
		return "Unknown"
	}
}

func ParseIdentityDocumentType(code string) (IdentityDocumentType, error) {
	code = normalize(code)
	for _, d := range documentTypes {
		if d.Code() == code {
			return d, nil
		}
	}
	return 0, ErrUnknownDocumentType
}

// Gender mirrors the seeded genders table.
type Gender int16

const (
	GenderMale   Gender = 1
	GenderFemale Gender = 2
	GenderOther  Gender = 3
)

var genders = []Gender{GenderMale, GenderFemale, GenderOther}

func (g Gender) Valid() bool {
	return g >= GenderMale && g <= GenderOther
}

func (g Gender) Code() string {
	switch g {
	case GenderMale:
		return "male"
	case GenderFemale:
		return "female"
	case GenderOther:
		return "other"
	default:
		return "unknown"
	}
}

func (g Gender) Name() string {
	switch g {
	case GenderMale:
		return "Male"
	case GenderFemale:
		return "Female"
	case GenderOther:
		return "Other"
	default:
		return "Unknown"
	}
}

func ParseGender(code string) (Gender, error) {
	code = normalize(code)
	for _, g := range genders {
		if g.Code() == code {
			return g, nil
		}
	}
	return 0, ErrUnknownGender
}

// Location is the seating area a ticket belongs to.
type Location int16

const (
	LocationDiningRoom Location = 1
	LocationTerrace    Location = 2
)

var locations = []Location{LocationDiningRoom, LocationTerrace}

func (l Location) Valid() bool {
	return l == LocationDiningRoom || l == LocationTerrace
}

func (l Location) Code() string {
	switch l {
	case LocationDiningRoom:
		return "dining_room"
	case LocationTerrace:
		return "terrace"
	default:
		return "unknown"
	}
}

func (l Location) Name() string {
	switch l {
	case LocationDiningRoom:
		return "Dining room"
	case LocationTerrace:
		return "Terrace"
	default:
		return "Unknown"
	}
}

func ParseLocation(code string) (Location, error) {
	code = normalize(code)
	for _, l := range locations {
		if l.Code() == code {
			return l, nil
		}
	}
	return 0, ErrUnknownLocation
}

func normalize(code string) string {
	code = strings.ToLower(strings.TrimSpace(code))
	return strings.ReplaceAll(code, "-", "_")
}
