package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	auditdomain "github.com/smallbiznis/innkeeper/internal/audit/domain"
	auditrepo "github.com/smallbiznis/innkeeper/internal/audit/repository"
	auditservice "github.com/smallbiznis/innkeeper/internal/audit/service"
	"github.com/smallbiznis/innkeeper/internal/clock"
	"github.com/smallbiznis/innkeeper/internal/config"
	"github.com/smallbiznis/innkeeper/internal/events"
	"github.com/smallbiznis/innkeeper/internal/invoice/domain"
	"github.com/smallbiznis/innkeeper/internal/invoice/render"
	"github.com/smallbiznis/innkeeper/internal/invoice/repository"
	refdomain "github.com/smallbiznis/innkeeper/internal/reference/domain"
	"github.com/smallbiznis/innkeeper/internal/testutil"
	"github.com/smallbiznis/innkeeper/pkg/apperr"
	"github.com/smallbiznis/innkeeper/pkg/db/pagination"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type fakeSource struct {
	id       int64
	lines    []domain.DraftLine
	lockErr  error
	settled  *domain.Invoice
	settleFn func(tx *gorm.DB) error
}

func (f *fakeSource) SourceType() domain.SourceType { return domain.SourceTicket }
func (f *fakeSource) SourceID() int64               { return f.id }

func (f *fakeSource) LockForSettlement(ctx context.Context, tx *gorm.DB) error { return f.lockErr }

func (f *fakeSource) BillableLines(ctx context.Context, tx *gorm.DB) ([]domain.DraftLine, error) {
	return f.lines, nil
}

func (f *fakeSource) MarkSettled(ctx context.Context, tx *gorm.DB, invoice *domain.Invoice) error {
	f.settled = invoice
	if f.settleFn != nil {
		return f.settleFn(tx)
	}
	return nil
}

type hookRecorder struct {
	calls []domain.Invoice
}

func (h *hookRecorder) InvoiceClosed(ctx context.Context, tx *gorm.DB, invoice *domain.Invoice) error {
	h.calls = append(h.calls, *invoice)
	return nil
}

type fixture struct {
	svc    domain.Service
	db     *gorm.DB
	events *events.Recorder
	hooks  *hookRecorder
	clock  *clock.FakeClock
}

func setup(t *testing.T) *fixture {
	db := testutil.NewDB(t)
	testutil.SeedReference(t, db)
	require.NoError(t, db.AutoMigrate(&domain.Invoice{}, &domain.SoldLine{}, &auditdomain.AuditLog{}))

	clk := clock.NewFakeClock(time.Date(2024, 6, 1, 22, 0, 0, 0, time.UTC))
	node := testutil.NewNode(t)
	audit := auditservice.NewService(auditservice.Params{
		DB:    db,
		Log:   zap.NewNop(),
		GenID: node,
		Clock: clk,
		Repo:  auditrepo.Provide(),
	})

	cfg := config.Config{Business: config.BusinessConfig{Name: "Casa Pepe", Currency: "EUR", NumberTemplate: "F{YYYY}-{ID}"}}
	rec := &events.Recorder{}
	hooks := &hookRecorder{}
	svc := NewService(Params{
		DB:        db,
		Log:       zap.NewNop(),
		GenID:     node,
		Clock:     clk,
		Config:    cfg,
		Repo:      repository.Provide(db),
		Audit:     audit,
		Events:    rec,
		Renderers: []domain.Renderer{render.NewHTMLRenderer()},
		Hooks:     []domain.CloseHook{hooks},
	})
	return &fixture{svc: svc, db: db, events: rec, hooks: hooks, clock: clk}
}

func dec(v string) decimal.Decimal { return decimal.RequireFromString(v) }

func mealLines() []domain.DraftLine {
	productID := int64(11)
	return []domain.DraftLine{
		{ProductID: &productID, Name: "Filete", UnitPrice: dec("9.80"), Quantity: 2, TaxPercentage: dec("10")},
		{Name: "Postre", UnitPrice: dec("1.20"), Quantity: 1, TaxPercentage: dec("10")},
	}
}

func TestSettleFreezesLinesAndTotals(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	src := &fakeSource{id: 5, lines: mealLines()}

	detail, err := f.svc.Settle(ctx, src, domain.SettleRequest{PaymentMethod: refdomain.PaymentCash})
	require.NoError(t, err)
	require.NotNil(t, src.settled)
	assert.Equal(t, detail.ID, src.settled.ID)
	assert.False(t, detail.Paid)
	assert.True(t, detail.Total.Equal(dec("20.80")))
	require.Len(t, detail.Taxes, 1)
	assert.True(t, detail.Taxes[0].Tax.Equal(dec("1.89")))
	assert.Empty(t, f.hooks.calls)
	assert.Empty(t, f.events.Types())

	stored, err := f.svc.Get(ctx, detail.ID)
	require.NoError(t, err)
	require.Len(t, stored.Lines, 2)
	assert.Equal(t, "Filete", stored.Lines[0].Name)
	assert.Equal(t, 1, stored.Lines[0].Position)
	assert.True(t, stored.Total.Equal(dec("20.80")))
	assert.Equal(t, "cash", stored.PaymentMethodCode)

	var audits int64
	require.NoError(t, f.db.Model(&auditdomain.AuditLog{}).Where("action = ?", "invoice.issued").Count(&audits).Error)
	assert.Equal(t, int64(1), audits)
}

func TestSettleRollsBackWhenSourceTransitionFails(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	boom := errors.New("boom")
	src := &fakeSource{id: 5, lines: mealLines(), settleFn: func(*gorm.DB) error { return boom }}

	_, err := f.svc.Settle(ctx, src, domain.SettleRequest{PaymentMethod: refdomain.PaymentCard})
	assert.ErrorIs(t, err, boom)

	var count int64
	require.NoError(t, f.db.Model(&domain.Invoice{}).Count(&count).Error)
	assert.Zero(t, count)
	require.NoError(t, f.db.Model(&domain.SoldLine{}).Count(&count).Error)
	assert.Zero(t, count)
}

func TestSettleRejectsEmptyAndLockedSources(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	_, err := f.svc.Settle(ctx, &fakeSource{id: 1}, domain.SettleRequest{PaymentMethod: refdomain.PaymentCash})
	assert.ErrorIs(t, err, domain.ErrNothingToBill)
	assert.ErrorIs(t, err, apperr.ErrInvalidState)

	_, err = f.svc.Settle(ctx, &fakeSource{id: 1, lines: mealLines()}, domain.SettleRequest{PaymentMethod: 9})
	assert.ErrorIs(t, err, domain.ErrInvalidPaymentMethod)

	locked := apperr.New(apperr.ErrInvalidState, "ticket_not_open", "ticket is not open")
	_, err = f.svc.Settle(ctx, &fakeSource{id: 1, lines: mealLines(), lockErr: locked}, domain.SettleRequest{PaymentMethod: refdomain.PaymentCash})
	assert.ErrorIs(t, err, locked)
}

func TestSettleAndPayRunsHooksAndPublishes(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	detail, err := f.svc.Settle(ctx, &fakeSource{id: 5, lines: mealLines()}, domain.SettleRequest{
		PaymentMethod: refdomain.PaymentCard,
		MarkPaid:      true,
	})
	require.NoError(t, err)
	assert.True(t, detail.Paid)
	require.Len(t, f.hooks.calls, 1)
	assert.Equal(t, detail.ID, f.hooks.calls[0].ID)
	assert.Equal(t, []string{events.InvoicePaid}, f.events.Types())
}

func TestMarkPaidIsIdempotent(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	detail, err := f.svc.Settle(ctx, &fakeSource{id: 5, lines: mealLines()}, domain.SettleRequest{PaymentMethod: refdomain.PaymentCash})
	require.NoError(t, err)

	paid, err := f.svc.MarkPaid(ctx, detail.ID)
	require.NoError(t, err)
	assert.True(t, paid.Paid)

	again, err := f.svc.MarkPaid(ctx, detail.ID)
	require.NoError(t, err)
	assert.True(t, again.Paid)

	assert.Len(t, f.hooks.calls, 1)
	assert.Equal(t, []string{events.InvoicePaid}, f.events.Types())

	_, err = f.svc.MarkPaid(ctx, 424242)
	assert.ErrorIs(t, err, domain.ErrInvoiceNotFound)
}

func TestDeleteIsSoftAndKeepsLines(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	detail, err := f.svc.Settle(ctx, &fakeSource{id: 5, lines: mealLines()}, domain.SettleRequest{PaymentMethod: refdomain.PaymentCash})
	require.NoError(t, err)

	require.NoError(t, f.svc.Delete(ctx, detail.ID))
	_, err = f.svc.Get(ctx, detail.ID)
	assert.ErrorIs(t, err, domain.ErrInvoiceNotFound)
	assert.ErrorIs(t, f.svc.Delete(ctx, detail.ID), domain.ErrInvoiceNotFound)

	var lines int64
	require.NoError(t, f.db.Model(&domain.SoldLine{}).Where("simple_invoice_id = ?", detail.ID).Count(&lines).Error)
	assert.Equal(t, int64(2), lines)
	require.Len(t, f.hooks.calls, 1)
	assert.True(t, f.hooks.calls[0].IsDeleted)
	assert.Equal(t, []string{events.InvoiceDeleted}, f.events.Types())
}

func TestListPagesNewestFirst(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	var ids []int64
	for i := 0; i < 3; i++ {
		detail, err := f.svc.Settle(ctx, &fakeSource{id: int64(i + 1), lines: mealLines()}, domain.SettleRequest{
			PaymentMethod: refdomain.PaymentCash,
			MarkPaid:      i == 1,
		})
		require.NoError(t, err)
		ids = append(ids, detail.ID)
		f.clock.Advance(time.Minute)
	}

	first, err := f.svc.List(ctx, domain.ListInvoicesRequest{Pagination: paginationOf("", 2)})
	require.NoError(t, err)
	require.Len(t, first.Invoices, 2)
	assert.Equal(t, ids[2], first.Invoices[0].ID)
	assert.True(t, first.HasMore)
	assert.Len(t, first.Invoices[0].Lines, 2)

	second, err := f.svc.List(ctx, domain.ListInvoicesRequest{Pagination: paginationOf(first.NextPageToken, 2)})
	require.NoError(t, err)
	require.Len(t, second.Invoices, 1)
	assert.Equal(t, ids[0], second.Invoices[0].ID)
	assert.False(t, second.HasMore)

	paid := true
	onlyPaid, err := f.svc.List(ctx, domain.ListInvoicesRequest{Paid: &paid})
	require.NoError(t, err)
	require.Len(t, onlyPaid.Invoices, 1)
	assert.Equal(t, ids[1], onlyPaid.Invoices[0].ID)

	_, err = f.svc.List(ctx, domain.ListInvoicesRequest{Pagination: paginationOf("???", 2)})
	assert.ErrorIs(t, err, domain.ErrInvalidPageToken)
}

func TestRenderInvoice(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	detail, err := f.svc.Settle(ctx, &fakeSource{id: 5, lines: mealLines()}, domain.SettleRequest{PaymentMethod: refdomain.PaymentCash})
	require.NoError(t, err)

	doc, err := f.svc.Render(ctx, detail.ID, "HTML")
	require.NoError(t, err)
	assert.Equal(t, render.ContentTypeHTML, doc.ContentType)
	assert.Contains(t, string(doc.Body), "Casa Pepe")
	assert.Contains(t, string(doc.Body), "20.80 EUR")

	_, err = f.svc.Render(ctx, detail.ID, "pdf")
	assert.ErrorIs(t, err, domain.ErrInvalidFormat)
}

func paginationOf(token string, size int) pagination.Pagination {
	return pagination.Pagination{PageToken: token, PageSize: size}
}
