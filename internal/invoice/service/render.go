package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/smallbiznis/innkeeper/internal/invoice/domain"
	"github.com/smallbiznis/innkeeper/internal/invoice/format"
	obscontext "github.com/smallbiznis/innkeeper/internal/observability/context"
	"github.com/smallbiznis/innkeeper/internal/observability/tracing"
	"github.com/smallbiznis/innkeeper/internal/ratelimit"
	refdomain "github.com/smallbiznis/innkeeper/internal/reference/domain"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"
)

func (s *Service) Render(ctx context.Context, id int64, outputFormat string) (*domain.Document, error) {
	detail, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	number, err := format.DocumentNumber(s.numberTemplate, detail.CreatedAt, detail.ID)
	if err != nil {
		return nil, err
	}

	view := domain.DocumentView{
		Kind:          domain.DocumentInvoice,
		ID:            detail.ID,
		Number:        number,
		IssuedAt:      detail.CreatedAt,
		PaymentMethod: refdomain.PaymentMethod(detail.PaymentMethodID).Name(),
		Paid:          detail.Paid,
		Lines:         domain.ViewLines(domain.DraftLinesOf(detail.Lines)),
		Taxes:         detail.Taxes,
		Total:         detail.Total,
	}
	return s.RenderView(ctx, view, outputFormat)
}

func (s *Service) RenderView(ctx context.Context, view domain.DocumentView, outputFormat string) (*domain.Document, error) {
	outputFormat = strings.ToLower(strings.TrimSpace(outputFormat))
	if outputFormat == "" {
		outputFormat = domain.FormatPDF
	}
	renderer, ok := s.renderers[outputFormat]
	if !ok {
		return nil, domain.ErrInvalidFormat
	}
	if view.Business.Name == "" {
		view.Business = s.business
	}

	ctx, span := otel.Tracer("innkeeper/documents").Start(ctx, "document.render")
	defer span.End()
	span.SetAttributes(tracing.SafeAttributes(
		attribute.String("document.kind", string(view.Kind)),
		attribute.String("document.format", outputFormat),
	)...)

	release, err := s.limiter.Acquire(ctx, obscontext.TerminalIDFromContext(ctx), fmt.Sprintf("%s:%d", view.Kind, view.ID))
	if err != nil {
		span.SetStatus(codes.Error, "throttled")
		switch {
		case errors.Is(err, ratelimit.ErrThrottled):
			return nil, domain.ErrRenderThrottled
		case errors.Is(err, ratelimit.ErrBusy):
			return nil, domain.ErrRenderBusy
		}
		return nil, err
	}
	defer release()

	doc, err := renderer.Render(ctx, view)
	if err != nil {
		span.RecordError(tracing.SafeError(err))
		span.SetStatus(codes.Error, "render failed")
		s.log.Error("document render failed",
			zap.String("kind", string(view.Kind)),
			zap.Int64("id", view.ID),
			zap.String("format", outputFormat),
			zap.Error(err),
		)
		return nil, err
	}
	return doc, nil
}
