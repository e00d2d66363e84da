package service

import (
	"context"
	"strconv"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	auditdomain "github.com/smallbiznis/innkeeper/internal/audit/domain"
	catalogdomain "github.com/smallbiznis/innkeeper/internal/catalog/domain"
	"github.com/smallbiznis/innkeeper/internal/clock"
	"github.com/smallbiznis/innkeeper/internal/config"
	"github.com/smallbiznis/innkeeper/internal/events"
	invoicedomain "github.com/smallbiznis/innkeeper/internal/invoice/domain"
	"github.com/smallbiznis/innkeeper/internal/observability/metrics"
	"github.com/smallbiznis/innkeeper/internal/occupancy"
	refdomain "github.com/smallbiznis/innkeeper/internal/reference/domain"
	"github.com/smallbiznis/innkeeper/internal/ticket/domain"
	"github.com/smallbiznis/innkeeper/pkg/db"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB       *gorm.DB
	Log      *zap.Logger
	GenID    *snowflake.Node
	Clock    clock.Clock
	Repo     domain.Repository
	Catalog  catalogdomain.Repository
	Pricing  *config.PricingConfigHolder
	Ledger   *occupancy.Ledger
	Invoices invoicedomain.Service
	Audit    auditdomain.Service
	Events   events.Publisher
	Metrics  *metrics.Metrics `optional:"true"`
}

type Service struct {
	db       *gorm.DB
	log      *zap.Logger
	genID    *snowflake.Node
	clock    clock.Clock
	repo     domain.Repository
	catalog  catalogdomain.Repository
	pricing  *config.PricingConfigHolder
	ledger   *occupancy.Ledger
	invoices invoicedomain.Service
	audit    auditdomain.Service
	events   events.Publisher
	metrics  *metrics.Metrics
}

func New(p Params) domain.Service {
	publisher := p.Events
	if publisher == nil {
		publisher = events.Noop{}
	}
	return &Service{
		db:       p.DB,
		log:      p.Log.Named("ticket.service"),
		genID:    p.GenID,
		clock:    p.Clock,
		repo:     p.Repo,
		catalog:  p.Catalog,
		pricing:  p.Pricing,
		ledger:   p.Ledger,
		invoices: p.Invoices,
		audit:    p.Audit,
		events:   publisher,
		metrics:  p.Metrics,
	}
}

func (s *Service) Open(ctx context.Context, req domain.OpenTicketRequest) (*domain.Detail, error) {
	if req.TableID <= 0 {
		return nil, domain.ErrInvalidTable
	}
	location, err := refdomain.ParseLocation(req.Location)
	if err != nil {
		return nil, err
	}

	now := s.clock.Now()
	ticket := &domain.Ticket{
		ID:        s.genID.Generate().Int64(),
		TableID:   req.TableID,
		Location:  location,
		Status:    domain.StatusOpen,
		CreatedAt: now,
		UpdatedAt: now,
	}
	err = db.Transact(ctx, s.db, func(tx *gorm.DB) error {
		if err := s.ledger.ClaimTable(ctx, tx, req.TableID, location); err != nil {
			return err
		}
		if err := s.repo.Insert(ctx, tx, ticket); err != nil {
			if db.IsDuplicateKeyErr(err) {
				return s.ledger.TableConflict(ctx)
			}
			return err
		}
		return s.audit.Record(ctx, tx, "ticket.opened", auditdomain.TargetTicket, ticket.ID, map[string]any{
			"table_id": req.TableID,
			"location": location.Code(),
		})
	})
	if err != nil {
		return nil, err
	}

	s.metrics.RecordTicketOpened(ctx, location.Code())
	s.publish(ctx, events.TicketOpened, ticket, nil)
	return buildDetail(*ticket, nil), nil
}

func (s *Service) AddLine(ctx context.Context, ticketID int64, req domain.AddLineRequest) (*domain.Line, error) {
	productID, err := parseID(req.ProductID)
	if err != nil {
		return nil, err
	}
	if req.Quantity < 1 {
		return nil, domain.ErrInvalidQuantity
	}

	var line *domain.Line
	err = db.Transact(ctx, s.db, func(tx *gorm.DB) error {
		ticket, err := s.lockOpen(ctx, tx, ticketID)
		if err != nil {
			return err
		}
		product, err := s.catalog.FindProduct(ctx, tx, productID)
		if err != nil {
			return err
		}
		if product == nil {
			return domain.ErrProductNotFound
		}

		tier := catalogdomain.PriceTier(strings.ToLower(strings.TrimSpace(req.Tier)))
		if tier == "" {
			tier = catalogdomain.PriceTier(s.pricing.Get().TierFor(ticket.Location.Code()))
		}
		price, err := product.PriceFor(tier)
		if err != nil {
			return err
		}

		now := s.clock.Now()
		line = &domain.Line{
			ID:            s.genID.Generate().Int64(),
			TicketID:      ticket.ID,
			ProductID:     product.ID,
			Name:          product.Name,
			Quantity:      req.Quantity,
			Price:         price,
			TaxPercentage: product.TaxPercentage,
			CreatedAt:     now,
			UpdatedAt:     now,
		}
		if err := s.repo.InsertLine(ctx, tx, line); err != nil {
			return err
		}
		return s.repo.Touch(ctx, tx, ticket.ID, now)
	})
	if err != nil {
		return nil, err
	}
	return line, nil
}

func (s *Service) UpdateLineQuantity(ctx context.Context, ticketID, lineID int64, quantity int) (*domain.Line, error) {
	if quantity < 1 {
		return nil, domain.ErrInvalidQuantity
	}

	var line *domain.Line
	err := db.Transact(ctx, s.db, func(tx *gorm.DB) error {
		found, err := s.lockLine(ctx, tx, ticketID, lineID)
		if err != nil {
			return err
		}
		now := s.clock.Now()
		if err := s.repo.UpdateLineQuantity(ctx, tx, lineID, quantity, now); err != nil {
			return err
		}
		found.Quantity = quantity
		found.UpdatedAt = now
		line = found
		return s.repo.Touch(ctx, tx, found.TicketID, now)
	})
	if err != nil {
		return nil, err
	}
	return line, nil
}

func (s *Service) RemoveLine(ctx context.Context, ticketID, lineID int64) error {
	return db.Transact(ctx, s.db, func(tx *gorm.DB) error {
		line, err := s.lockLine(ctx, tx, ticketID, lineID)
		if err != nil {
			return err
		}
		if err := s.repo.DeleteLine(ctx, tx, lineID); err != nil {
			return err
		}
		return s.repo.Touch(ctx, tx, line.TicketID, s.clock.Now())
	})
}

func (s *Service) LockAndSettle(ctx context.Context, ticketID int64, req domain.SettleTicketRequest) (*invoicedomain.Detail, error) {
	method, err := refdomain.ParsePaymentMethod(req.PaymentMethod)
	if err != nil {
		return nil, err
	}

	src := &settlement{svc: s, ticketID: ticketID}
	detail, err := s.invoices.Settle(ctx, src, invoicedomain.SettleRequest{
		PaymentMethod: method,
		MarkPaid:      req.MarkPaid,
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("ticket settled",
		zap.Int64("ticket_id", ticketID),
		zap.Int64("invoice_id", detail.ID),
		zap.Bool("paid", detail.Paid),
	)
	s.publish(ctx, events.TicketSettled, src.ticket, map[string]any{
		"invoice_id": strconv.FormatInt(detail.ID, 10),
		"total":      detail.Total.StringFixed(2),
	})
	return detail, nil
}

func (s *Service) Abandon(ctx context.Context, ticketID int64, discard bool) error {
	var ticket *domain.Ticket
	err := db.Transact(ctx, s.db, func(tx *gorm.DB) error {
		var err error
		ticket, err = s.lockOpen(ctx, tx, ticketID)
		if err != nil {
			return err
		}
		lines, err := s.repo.Lines(ctx, tx, ticketID)
		if err != nil {
			return err
		}
		count := len(lines[ticketID])
		if count > 0 && !discard {
			return domain.ErrTicketHasLines
		}
		if err := s.repo.Delete(ctx, tx, ticketID); err != nil {
			return err
		}
		return s.audit.Record(ctx, tx, "ticket.abandoned", auditdomain.TargetTicket, ticketID, map[string]any{
			"table_id":        ticket.TableID,
			"location":        ticket.Location.Code(),
			"discarded_lines": count,
		})
	})
	if err != nil {
		return err
	}
	s.publish(ctx, events.TicketAbandoned, ticket, nil)
	return nil
}

// MarkPrinted stamps that a receipt was handed out. The ticket stays editable.
func (s *Service) MarkPrinted(ctx context.Context, ticketID int64) (*domain.Detail, error) {
	err := db.Transact(ctx, s.db, func(tx *gorm.DB) error {
		if _, err := s.lockOpen(ctx, tx, ticketID); err != nil {
			return err
		}
		return s.repo.MarkPrinted(ctx, tx, ticketID, s.clock.Now())
	})
	if err != nil {
		return nil, err
	}
	return s.Get(ctx, ticketID)
}

func (s *Service) Get(ctx context.Context, ticketID int64) (*domain.Detail, error) {
	ticket, err := s.repo.FindByID(ctx, s.db, ticketID)
	if err != nil {
		return nil, db.Classify(err)
	}
	if ticket == nil {
		return nil, domain.ErrTicketNotFound
	}
	lines, err := s.repo.Lines(ctx, s.db, ticketID)
	if err != nil {
		return nil, db.Classify(err)
	}
	return buildDetail(*ticket, lines[ticketID]), nil
}

// ListOpen returns every ticket still holding a table, settled but unpaid
// ones included.
func (s *Service) ListOpen(ctx context.Context, req domain.ListOpenRequest) ([]domain.Detail, error) {
	var location *refdomain.Location
	if code := strings.TrimSpace(req.Location); code != "" {
		parsed, err := refdomain.ParseLocation(code)
		if err != nil {
			return nil, err
		}
		location = &parsed
	}

	tickets, err := s.repo.ListUnclosed(ctx, s.db, location)
	if err != nil {
		return nil, db.Classify(err)
	}
	ids := make([]int64, 0, len(tickets))
	for _, t := range tickets {
		ids = append(ids, t.ID)
	}
	lines, err := s.repo.Lines(ctx, s.db, ids...)
	if err != nil {
		return nil, db.Classify(err)
	}

	out := make([]domain.Detail, 0, len(tickets))
	for _, t := range tickets {
		out = append(out, *buildDetail(t, lines[t.ID]))
	}
	return out, nil
}

// lockOpen row-locks the ticket and fails unless it is OPEN.
func (s *Service) lockOpen(ctx context.Context, tx *gorm.DB, ticketID int64) (*domain.Ticket, error) {
	ticket, err := s.repo.LockByID(ctx, tx, ticketID)
	if err != nil {
		return nil, err
	}
	if ticket == nil {
		return nil, domain.ErrTicketNotFound
	}
	if ticket.Locked() {
		s.metrics.RecordInvalidTransition(ctx, string(invoicedomain.SourceTicket), "ticket_locked")
		return nil, domain.ErrTicketLocked
	}
	return ticket, nil
}

// lockLine locks the open ticket owning the line. A line of another ticket is
// reported as missing.
func (s *Service) lockLine(ctx context.Context, tx *gorm.DB, ticketID, lineID int64) (*domain.Line, error) {
	line, err := s.repo.FindLine(ctx, tx, lineID)
	if err != nil {
		return nil, err
	}
	if line == nil || line.TicketID != ticketID {
		return nil, domain.ErrLineNotFound
	}
	if _, err := s.lockOpen(ctx, tx, line.TicketID); err != nil {
		return nil, err
	}
	return line, nil
}

func (s *Service) publish(ctx context.Context, eventType string, ticket *domain.Ticket, extra map[string]any) {
	if ticket == nil {
		return
	}
	data := map[string]any{
		"ticket_id": strconv.FormatInt(ticket.ID, 10),
		"table_id":  ticket.TableID,
		"location":  ticket.Location.Code(),
	}
	for k, v := range extra {
		data[k] = v
	}
	if err := s.events.Publish(ctx, events.New(ctx, eventType, s.clock.Now(), data)); err != nil {
		s.log.Warn("event not published", zap.String("event_type", eventType), zap.Error(err))
	}
}

func buildDetail(ticket domain.Ticket, lines []domain.Line) *domain.Detail {
	if lines == nil {
		lines = []domain.Line{}
	}
	total := decimal.Zero
	for _, l := range lines {
		total = total.Add(l.Amount())
	}
	return &domain.Detail{
		Ticket:       ticket,
		LocationCode: ticket.Location.Code(),
		Lines:        lines,
		Total:        total,
	}
}

func parseID(raw string) (int64, error) {
	id, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
	if err != nil || id <= 0 {
		return 0, domain.ErrInvalidID
	}
	return id, nil
}
