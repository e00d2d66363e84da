package service

import (
	"context"
	"testing"
	"time"

	auditdomain "github.com/smallbiznis/innkeeper/internal/audit/domain"
	"github.com/smallbiznis/innkeeper/internal/audit/repository"
	"github.com/smallbiznis/innkeeper/internal/clock"
	obscontext "github.com/smallbiznis/innkeeper/internal/observability/context"
	"github.com/smallbiznis/innkeeper/internal/testutil"
	"github.com/smallbiznis/innkeeper/pkg/db/pagination"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestRecordAndList(t *testing.T) {
	db := testutil.NewDB(t, &auditdomain.AuditLog{})
	clk := clock.NewFakeClock(time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC))
	svc := NewService(Params{
		DB:    db,
		Log:   zap.NewNop(),
		GenID: testutil.NewNode(t),
		Clock: clk,
		Repo:  repository.Provide(),
	})

	ctx := obscontext.WithTerminalID(context.Background(), "bar-1")
	for i := 0; i < 3; i++ {
		require.NoError(t, svc.Record(ctx, nil, "ticket.opened", auditdomain.TargetTicket, int64(100+i), map[string]any{"table_id": i}))
		clk.Advance(time.Second)
	}
	require.NoError(t, svc.Record(ctx, db, "client.created", auditdomain.TargetClient, 7, map[string]any{"identity_document": "12345678Z"}))

	assert.ErrorIs(t, svc.Record(ctx, nil, " ", auditdomain.TargetTicket, 1, nil), auditdomain.ErrInvalidAction)

	first, err := svc.List(ctx, auditdomain.ListAuditLogRequest{
		Pagination: pagination.Pagination{PageSize: 2},
		TargetType: auditdomain.TargetTicket,
	})
	require.NoError(t, err)
	require.Len(t, first.AuditLogs, 2)
	assert.True(t, first.HasMore)
	assert.Equal(t, "102", first.AuditLogs[0].TargetID)
	require.NotNil(t, first.AuditLogs[0].TerminalID)
	assert.Equal(t, "bar-1", *first.AuditLogs[0].TerminalID)

	second, err := svc.List(ctx, auditdomain.ListAuditLogRequest{
		Pagination: pagination.Pagination{PageSize: 2, PageToken: first.NextPageToken},
		TargetType: auditdomain.TargetTicket,
	})
	require.NoError(t, err)
	require.Len(t, second.AuditLogs, 1)
	assert.False(t, second.HasMore)
	assert.Equal(t, "100", second.AuditLogs[0].TargetID)

	clients, err := svc.List(ctx, auditdomain.ListAuditLogRequest{TargetType: auditdomain.TargetClient})
	require.NoError(t, err)
	require.Len(t, clients.AuditLogs, 1)
	assert.Equal(t, "****78Z", clients.AuditLogs[0].Metadata["identity_document"])

	_, err = svc.List(ctx, auditdomain.ListAuditLogRequest{Pagination: pagination.Pagination{PageToken: "%%"}})
	assert.ErrorIs(t, err, auditdomain.ErrInvalidPageToken)
}
