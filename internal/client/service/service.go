package service

import (
	"context"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	auditdomain "github.com/smallbiznis/innkeeper/internal/audit/domain"
	"github.com/smallbiznis/innkeeper/internal/client/domain"
	"github.com/smallbiznis/innkeeper/internal/clock"
	refdomain "github.com/smallbiznis/innkeeper/internal/reference/domain"
	"github.com/smallbiznis/innkeeper/pkg/db"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const maxListLimit = 200

type Params struct {
	fx.In

	DB    *gorm.DB
	Log   *zap.Logger
	GenID *snowflake.Node
	Clock clock.Clock
	Repo  domain.Repository
	Audit auditdomain.Service
}

type Service struct {
	db    *gorm.DB
	log   *zap.Logger
	genID *snowflake.Node
	clock clock.Clock
	repo  domain.Repository
	audit auditdomain.Service
}

func New(p Params) domain.Service {
	return &Service{
		db:    p.DB,
		log:   p.Log.Named("client.service"),
		genID: p.GenID,
		clock: p.Clock,
		repo:  p.Repo,
		audit: p.Audit,
	}
}

func (s *Service) Create(ctx context.Context, req domain.ClientRequest) (*domain.Client, error) {
	now := s.clock.Now()
	client := &domain.Client{
		ID:        s.genID.Generate().Int64(),
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := apply(client, req); err != nil {
		return nil, err
	}
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.repo.Insert(ctx, tx, client); err != nil {
			return err
		}
		return s.record(ctx, tx, "client.created", client)
	})
	if err != nil {
		return nil, writeError(err)
	}
	s.log.Info("client created",
		zap.Int64("client_id", client.ID),
		zap.String("identity_document_type", client.IdentityDocumentTypeID.Code()),
	)
	return client, nil
}

func (s *Service) Update(ctx context.Context, id int64, req domain.ClientRequest) (*domain.Client, error) {
	client, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := apply(client, req); err != nil {
		return nil, err
	}
	client.UpdatedAt = s.clock.Now()
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.repo.Update(ctx, tx, client); err != nil {
			return err
		}
		return s.record(ctx, tx, "client.updated", client)
	})
	if err != nil {
		return nil, writeError(err)
	}
	return client, nil
}

func (s *Service) Get(ctx context.Context, id int64) (*domain.Client, error) {
	if id == 0 {
		return nil, domain.ErrInvalidID
	}
	client, err := s.repo.FindByID(ctx, s.db, id)
	if err != nil {
		return nil, db.Classify(err)
	}
	if client == nil {
		return nil, domain.ErrClientNotFound
	}
	return client, nil
}

func (s *Service) List(ctx context.Context, req domain.ListClientsRequest) ([]domain.Client, error) {
	if req.Limit <= 0 || req.Limit > maxListLimit {
		req.Limit = maxListLimit
	}
	if req.Offset < 0 {
		req.Offset = 0
	}
	items, err := s.repo.List(ctx, s.db, req)
	if err != nil {
		return nil, db.Classify(err)
	}
	return items, nil
}

func (s *Service) Delete(ctx context.Context, id int64) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		deleted, err := s.repo.Delete(ctx, tx, id)
		if err != nil {
			return err
		}
		if !deleted {
			return domain.ErrClientNotFound
		}
		return s.recordDeleted(ctx, tx, id)
	})
	if err != nil {
		return db.Classify(err)
	}
	s.log.Info("client deleted", zap.Int64("client_id", id))
	return nil
}

// record stores the identity fields in the audit trail. The audit writer masks
// document and phone values.
func (s *Service) record(ctx context.Context, tx *gorm.DB, action string, client *domain.Client) error {
	if s.audit == nil {
		return nil
	}
	return s.audit.Record(ctx, tx, action, auditdomain.TargetClient, client.ID, map[string]any{
		"identity_document_type": client.IdentityDocumentTypeID.Code(),
		"identity_document":      client.IdentityDocument,
		"phone":                  client.Phone,
		"mobile":                 client.Mobile,
	})
}

func (s *Service) recordDeleted(ctx context.Context, tx *gorm.DB, id int64) error {
	if s.audit == nil {
		return nil
	}
	return s.audit.Record(ctx, tx, "client.deleted", auditdomain.TargetClient, id, nil)
}

func apply(client *domain.Client, req domain.ClientRequest) error {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return domain.ErrInvalidName
	}
	document := strings.ToUpper(strings.TrimSpace(req.IdentityDocument))
	if document == "" {
		return domain.ErrInvalidDocument
	}
	docType, err := refdomain.ParseIdentityDocumentType(req.IdentityDocumentType)
	if err != nil {
		return domain.ErrInvalidDocumentType
	}

	var gender *refdomain.Gender
	if strings.TrimSpace(req.Gender) != "" {
		g, err := refdomain.ParseGender(req.Gender)
		if err != nil {
			return domain.ErrInvalidGender
		}
		gender = &g
	}

	expedition, err := optionalDate(req.ExpeditionDate)
	if err != nil {
		return err
	}
	expiration, err := optionalDate(req.ExpirationDate)
	if err != nil {
		return err
	}
	if expedition != nil && expiration != nil && expiration.Before(*expedition) {
		return domain.ErrInvalidDocumentDates
	}
	birthdate, err := optionalDate(req.Birthdate)
	if err != nil {
		return err
	}

	client.IdentityDocumentTypeID = docType
	client.IdentityDocument = document
	client.ExpeditionDate = expedition
	client.ExpirationDate = expiration
	client.Name = name
	client.FirstSurname = strings.TrimSpace(req.FirstSurname)
	client.SecondSurname = strings.TrimSpace(req.SecondSurname)
	client.Birthdate = birthdate
	client.Address = strings.TrimSpace(req.Address)
	client.PostalCode = strings.TrimSpace(req.PostalCode)
	client.City = strings.TrimSpace(req.City)
	client.Province = strings.TrimSpace(req.Province)
	client.Country = strings.TrimSpace(req.Country)
	client.Nationality = strings.TrimSpace(req.Nationality)
	client.Phone = strings.TrimSpace(req.Phone)
	client.Mobile = strings.TrimSpace(req.Mobile)
	client.GenderID = gender
	return nil
}

func optionalDate(raw *string) (*time.Time, error) {
	if raw == nil || strings.TrimSpace(*raw) == "" {
		return nil, nil
	}
	t, err := clock.ParseDate(*raw)
	if err != nil {
		return nil, domain.ErrInvalidDate
	}
	return &t, nil
}

// writeError reports a taken identity document as a conflict. Soft deleted
// clients keep their document reserved.
func writeError(err error) error {
	if db.IsDuplicateKeyErr(err) {
		return domain.ErrDuplicateIdentityDocument
	}
	return db.Classify(err)
}
