package server

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	catalogdomain "github.com/smallbiznis/innkeeper/internal/catalog/domain"
	catalogrepo "github.com/smallbiznis/innkeeper/internal/catalog/repository"
	catalogservice "github.com/smallbiznis/innkeeper/internal/catalog/service"
	"github.com/smallbiznis/innkeeper/internal/clock"
	"github.com/smallbiznis/innkeeper/internal/config"
	"github.com/smallbiznis/innkeeper/internal/observability"
	"github.com/smallbiznis/innkeeper/internal/testutil"
	"github.com/smallbiznis/innkeeper/pkg/apperr"
	"github.com/smallbiznis/innkeeper/pkg/telemetry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestServer(t *testing.T) *Server {
	gin.SetMode(gin.TestMode)

	db := testutil.NewDB(t, &catalogdomain.Category{}, &catalogdomain.Product{}, &catalogdomain.RoomType{}, &catalogdomain.Room{})
	catalog := catalogservice.New(catalogservice.Params{
		DB:      db,
		Log:     zap.NewNop(),
		GenID:   testutil.NewNode(t),
		Clock:   clock.NewFakeClock(time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)),
		Repo:    catalogrepo.Provide(db),
		Pricing: config.NewStaticPricingConfigHolder(config.DefaultPricingConfig()),
	})

	engine := NewEngine(observability.Config{}, telemetry.NewMetricsWith(prometheus.NewRegistry()))
	return NewServer(ServerParams{Gin: engine, DB: db, CatalogSvc: catalog})
}

func do(t *testing.T, s *Server, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	s.Engine().ServeHTTP(w, req)
	return w
}

func decodeError(t *testing.T, w *httptest.ResponseRecorder) errorPayload {
	t.Helper()
	var resp errorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp.Error
}

func TestHealthAndFallback(t *testing.T) {
	s := newTestServer(t)

	w := do(t, s, http.MethodGet, "/healthz", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w = do(t, s, http.MethodGet, "/api/nope", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "route_not_found", decodeError(t, w).Code)
}

func TestRoomLifecycleOverHTTP(t *testing.T) {
	s := newTestServer(t)

	w := do(t, s, http.MethodPost, "/api/room_types", gin.H{"name": "Double", "price": "80"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var created struct {
		Data catalogdomain.RoomType `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))

	room := gin.H{"room_type_id": fmt.Sprint(created.Data.ID), "name": "101"}
	w = do(t, s, http.MethodPost, "/api/rooms", room)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	w = do(t, s, http.MethodPost, "/api/rooms", room)
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "conflict", decodeError(t, w).Type)

	w = do(t, s, http.MethodGet, "/api/rooms", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var listed struct {
		Data []catalogdomain.PricedRoom `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &listed))
	require.Len(t, listed.Data, 1)
	assert.Equal(t, "Double", listed.Data[0].RoomTypeName)
}

func TestMalformedInputIsValidationError(t *testing.T) {
	s := newTestServer(t)

	w := do(t, s, http.MethodGet, "/api/products/not-an-id", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "invalid_id", decodeError(t, w).Code)

	req := httptest.NewRequest(http.MethodPost, "/api/categories", bytes.NewBufferString("{"))
	rec := httptest.NewRecorder()
	s.Engine().ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "invalid_request", decodeError(t, rec).Code)

	w = do(t, s, http.MethodGet, "/api/products?category_id=x", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestMapErrorTaxonomy(t *testing.T) {
	cases := []struct {
		kind   error
		status int
		typ    string
	}{
		{apperr.ErrValidation, http.StatusBadRequest, "validation_error"},
		{apperr.ErrNotFound, http.StatusNotFound, "not_found"},
		{apperr.ErrConflict, http.StatusConflict, "conflict"},
		{apperr.ErrInvalidState, http.StatusUnprocessableEntity, "invalid_state"},
		{apperr.ErrStorage, http.StatusServiceUnavailable, "storage_failure"},
	}
	for _, tc := range cases {
		status, payload := mapError(apperr.New(tc.kind, "some_code", "some message"))
		assert.Equal(t, tc.status, status)
		assert.Equal(t, tc.typ, payload.Type)
		assert.Equal(t, "some_code", payload.Code)
	}

	status, payload := mapError(fmt.Errorf("boom"))
	assert.Equal(t, http.StatusInternalServerError, status)
	assert.Equal(t, "internal_error", payload.Code)
}
