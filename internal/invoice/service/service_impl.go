package service

import (
	"context"
	"errors"
	"strconv"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	auditdomain "github.com/smallbiznis/innkeeper/internal/audit/domain"
	"github.com/smallbiznis/innkeeper/internal/clock"
	"github.com/smallbiznis/innkeeper/internal/config"
	"github.com/smallbiznis/innkeeper/internal/events"
	"github.com/smallbiznis/innkeeper/internal/invoice/domain"
	"github.com/smallbiznis/innkeeper/internal/observability/logger"
	"github.com/smallbiznis/innkeeper/internal/observability/metrics"
	"github.com/smallbiznis/innkeeper/internal/ratelimit"
	refdomain "github.com/smallbiznis/innkeeper/internal/reference/domain"
	"github.com/smallbiznis/innkeeper/pkg/apperr"
	"github.com/smallbiznis/innkeeper/pkg/db"
	"github.com/smallbiznis/innkeeper/pkg/db/pagination"
	"github.com/smallbiznis/innkeeper/pkg/telemetry"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB        *gorm.DB
	Log       *zap.Logger
	GenID     *snowflake.Node
	Clock     clock.Clock
	Config    config.Config
	Repo      domain.Repository
	Audit     auditdomain.Service
	Events    events.Publisher
	Metrics   *metrics.Metrics         `optional:"true"`
	Telemetry *telemetry.Metrics       `optional:"true"`
	Limiter   *ratelimit.RenderLimiter `optional:"true"`
	Renderers []domain.Renderer        `group:"document_renderers"`
	Hooks     []domain.CloseHook       `group:"invoice_close_hooks"`
}

type Service struct {
	db             *gorm.DB
	log            *zap.Logger
	genID          *snowflake.Node
	clock          clock.Clock
	business       domain.BusinessInfo
	numberTemplate string
	repo           domain.Repository
	audit          auditdomain.Service
	events         events.Publisher
	metrics        *metrics.Metrics
	telemetry      *telemetry.Metrics
	limiter        *ratelimit.RenderLimiter
	renderers      map[string]domain.Renderer
	hooks          []domain.CloseHook
}

func NewService(p Params) domain.Service {
	renderers := make(map[string]domain.Renderer, len(p.Renderers))
	for _, r := range p.Renderers {
		if r != nil {
			renderers[r.Format()] = r
		}
	}
	publisher := p.Events
	if publisher == nil {
		publisher = events.Noop{}
	}
	return &Service{
		db:    p.DB,
		log:   p.Log.Named("invoice.service"),
		genID: p.GenID,
		clock: p.Clock,
		business: domain.BusinessInfo{
			Name:     p.Config.Business.Name,
			TaxID:    p.Config.Business.TaxID,
			Address:  p.Config.Business.Address,
			Phone:    p.Config.Business.Phone,
			Currency: p.Config.Business.Currency,
		},
		numberTemplate: p.Config.Business.NumberTemplate,
		repo:           p.Repo,
		audit:          p.Audit,
		events:         publisher,
		metrics:        p.Metrics,
		telemetry:      p.Telemetry,
		limiter:        p.Limiter,
		renderers:      renderers,
		hooks:          p.Hooks,
	}
}

func (s *Service) Settle(ctx context.Context, src domain.BillableSource, req domain.SettleRequest) (*domain.Detail, error) {
	if !req.PaymentMethod.Valid() {
		return nil, domain.ErrInvalidPaymentMethod
	}

	var detail *domain.Detail
	err := db.Transact(ctx, s.db, func(tx *gorm.DB) error {
		if err := src.LockForSettlement(ctx, tx); err != nil {
			return err
		}
		lines, err := src.BillableLines(ctx, tx)
		if err != nil {
			return err
		}
		draft, err := domain.Compose(req.PaymentMethod, lines)
		if err != nil {
			return err
		}

		now := s.clock.Now()
		invoice := &domain.Invoice{
			ID:              s.genID.Generate().Int64(),
			PaymentMethodID: req.PaymentMethod,
			SourceType:      src.SourceType(),
			Paid:            req.MarkPaid,
			CreatedAt:       now,
			UpdatedAt:       now,
		}
		sold := make([]domain.SoldLine, 0, len(draft.Lines))
		for i, line := range draft.Lines {
			sold = append(sold, domain.SoldLine{
				ID:                s.genID.Generate().Int64(),
				InvoiceID:         invoice.ID,
				OriginalProductID: line.ProductID,
				Name:              line.Name,
				Quantity:          line.Quantity,
				Price:             line.UnitPrice,
				TaxPercentage:     line.TaxPercentage,
				Position:          i + 1,
			})
		}
		if err := s.repo.Insert(ctx, tx, invoice, sold); err != nil {
			return err
		}
		if err := src.MarkSettled(ctx, tx, invoice); err != nil {
			return err
		}
		if invoice.Paid {
			if err := s.runHooks(ctx, tx, invoice); err != nil {
				return err
			}
		}
		if err := s.audit.Record(ctx, tx, "invoice.issued", auditdomain.TargetInvoice, invoice.ID, map[string]any{
			"source_type":    string(invoice.SourceType),
			"source_id":      strconv.FormatInt(src.SourceID(), 10),
			"payment_method": req.PaymentMethod.Code(),
			"total":          draft.Total.StringFixed(2),
			"paid":           invoice.Paid,
		}); err != nil {
			return err
		}

		detail = &domain.Detail{
			Invoice:           *invoice,
			PaymentMethodCode: req.PaymentMethod.Code(),
			Lines:             sold,
			Total:             draft.Total,
			Taxes:             draft.Taxes,
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, apperr.ErrInvalidState) {
			code, _ := apperr.Describe(err)
			s.metrics.RecordInvalidTransition(ctx, string(src.SourceType()), code)
		}
		return nil, err
	}

	s.metrics.RecordSettlement(ctx, string(detail.SourceType), detail.PaymentMethodCode)
	s.telemetry.ObserveInvoice(string(detail.SourceType), detail.PaymentMethodCode, detail.Total.InexactFloat64())
	logger.WithContext(ctx, s.log).Info("invoice issued",
		zap.Int64("invoice_id", detail.ID),
		zap.String("source_type", string(detail.SourceType)),
		zap.Int64("source_id", src.SourceID()),
		zap.String("total", detail.Total.StringFixed(2)),
		zap.Bool("paid", detail.Paid),
	)
	if detail.Paid {
		s.publish(ctx, events.InvoicePaid, detail)
	}
	return detail, nil
}

func (s *Service) Get(ctx context.Context, id int64) (*domain.Detail, error) {
	invoice, err := s.repo.FindByID(ctx, s.db, id)
	if err != nil {
		return nil, db.Classify(err)
	}
	if invoice == nil {
		return nil, domain.ErrInvoiceNotFound
	}
	lines, err := s.repo.Lines(ctx, s.db, invoice.ID)
	if err != nil {
		return nil, db.Classify(err)
	}
	return buildDetail(*invoice, lines[invoice.ID]), nil
}

func (s *Service) List(ctx context.Context, req domain.ListInvoicesRequest) (domain.ListInvoicesResponse, error) {
	if req.From != nil && req.To != nil && req.From.After(*req.To) {
		return domain.ListInvoicesResponse{}, domain.ErrInvalidTimeRange
	}
	cursor, err := pagination.DecodeCursor(req.PageToken)
	if err != nil {
		return domain.ListInvoicesResponse{}, domain.ErrInvalidPageToken
	}

	size := req.Size()
	filter := domain.ListFilter{
		From:       req.From,
		To:         req.To,
		Paid:       req.Paid,
		SourceType: req.SourceType,
		Limit:      size,
	}
	if cursor != nil {
		filter.CursorID = cursor.ID
		filter.CursorAt = cursor.CreatedAt
	}

	items, err := s.repo.List(ctx, s.db, filter)
	if err != nil {
		return domain.ListInvoicesResponse{}, db.Classify(err)
	}
	items, pageInfo, err := pagination.Page(items, size, func(inv domain.Invoice) pagination.Cursor {
		return pagination.Cursor{ID: inv.ID, CreatedAt: inv.CreatedAt}
	})
	if err != nil {
		return domain.ListInvoicesResponse{}, err
	}

	ids := make([]int64, 0, len(items))
	for _, inv := range items {
		ids = append(ids, inv.ID)
	}
	lines, err := s.repo.Lines(ctx, s.db, ids...)
	if err != nil {
		return domain.ListInvoicesResponse{}, db.Classify(err)
	}

	out := make([]domain.Detail, 0, len(items))
	for _, inv := range items {
		out = append(out, *buildDetail(inv, lines[inv.ID]))
	}
	return domain.ListInvoicesResponse{PageInfo: pageInfo, Invoices: out}, nil
}

// MarkPaid records payment. Marking a paid invoice again is a no-op.
func (s *Service) MarkPaid(ctx context.Context, id int64) (*domain.Detail, error) {
	var changed bool
	err := db.Transact(ctx, s.db, func(tx *gorm.DB) error {
		invoice, err := s.repo.LockByID(ctx, tx, id)
		if err != nil {
			return err
		}
		if invoice == nil {
			return domain.ErrInvoiceNotFound
		}
		if invoice.Paid {
			return nil
		}
		now := s.clock.Now()
		if err := s.repo.MarkPaid(ctx, tx, id, now); err != nil {
			return err
		}
		invoice.Paid = true
		invoice.UpdatedAt = now
		if err := s.runHooks(ctx, tx, invoice); err != nil {
			return err
		}
		changed = true
		return s.audit.Record(ctx, tx, "invoice.paid", auditdomain.TargetInvoice, id, nil)
	})
	if err != nil {
		return nil, err
	}

	detail, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if changed {
		s.publish(ctx, events.InvoicePaid, detail)
	}
	return detail, nil
}

// Delete soft deletes the invoice. Its lines stay untouched.
func (s *Service) Delete(ctx context.Context, id int64) error {
	err := db.Transact(ctx, s.db, func(tx *gorm.DB) error {
		invoice, err := s.repo.LockByID(ctx, tx, id)
		if err != nil {
			return err
		}
		if invoice == nil {
			return domain.ErrInvoiceNotFound
		}
		now := s.clock.Now()
		deleted, err := s.repo.SoftDelete(ctx, tx, id, now)
		if err != nil {
			return err
		}
		if !deleted {
			return domain.ErrInvoiceNotFound
		}
		invoice.IsDeleted = true
		invoice.UpdatedAt = now
		if err := s.runHooks(ctx, tx, invoice); err != nil {
			return err
		}
		return s.audit.Record(ctx, tx, "invoice.deleted", auditdomain.TargetInvoice, id, map[string]any{
			"paid": invoice.Paid,
		})
	})
	if err != nil {
		return err
	}
	s.publish(ctx, events.InvoiceDeleted, &domain.Detail{Invoice: domain.Invoice{ID: id}})
	return nil
}

func (s *Service) runHooks(ctx context.Context, tx *gorm.DB, invoice *domain.Invoice) error {
	for _, hook := range s.hooks {
		if hook == nil {
			continue
		}
		if err := hook.InvoiceClosed(ctx, tx, invoice); err != nil {
			return err
		}
	}
	return nil
}

func (s *Service) publish(ctx context.Context, eventType string, detail *domain.Detail) {
	data := map[string]any{
		"invoice_id": strconv.FormatInt(detail.ID, 10),
	}
	if detail.SourceType != "" {
		data["source_type"] = string(detail.SourceType)
		data["total"] = detail.Total.StringFixed(2)
	}
	if err := s.events.Publish(ctx, events.New(ctx, eventType, s.clock.Now(), data)); err != nil {
		s.log.Warn("event not published", zap.String("event_type", eventType), zap.Error(err))
	}
}

func buildDetail(invoice domain.Invoice, lines []domain.SoldLine) *domain.Detail {
	drafts := domain.DraftLinesOf(lines)
	total := decimal.Zero
	for _, l := range drafts {
		total = total.Add(l.Amount())
	}
	if lines == nil {
		lines = []domain.SoldLine{}
	}
	return &domain.Detail{
		Invoice:           invoice,
		PaymentMethodCode: refdomain.PaymentMethod(invoice.PaymentMethodID).Code(),
		Lines:             lines,
		Total:             total,
		Taxes:             domain.TaxBreakdown(drafts),
	}
}
