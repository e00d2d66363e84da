package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/smallbiznis/innkeeper/internal/audit"
	auditdomain "github.com/smallbiznis/innkeeper/internal/audit/domain"
	"github.com/smallbiznis/innkeeper/internal/cache"
	"github.com/smallbiznis/innkeeper/internal/catalog"
	catalogdomain "github.com/smallbiznis/innkeeper/internal/catalog/domain"
	"github.com/smallbiznis/innkeeper/internal/client"
	clientdomain "github.com/smallbiznis/innkeeper/internal/client/domain"
	"github.com/smallbiznis/innkeeper/internal/config"
	"github.com/smallbiznis/innkeeper/internal/events"
	"github.com/smallbiznis/innkeeper/internal/floormetrics"
	"github.com/smallbiznis/innkeeper/internal/invoice"
	invoicedomain "github.com/smallbiznis/innkeeper/internal/invoice/domain"
	"github.com/smallbiznis/innkeeper/internal/observability"
	obslogger "github.com/smallbiznis/innkeeper/internal/observability/logger"
	obstracing "github.com/smallbiznis/innkeeper/internal/observability/tracing"
	"github.com/smallbiznis/innkeeper/internal/occupancy"
	"github.com/smallbiznis/innkeeper/internal/providers"
	"github.com/smallbiznis/innkeeper/internal/ratelimit"
	"github.com/smallbiznis/innkeeper/internal/reference"
	refdomain "github.com/smallbiznis/innkeeper/internal/reference/domain"
	"github.com/smallbiznis/innkeeper/internal/reservation"
	reservationdomain "github.com/smallbiznis/innkeeper/internal/reservation/domain"
	"github.com/smallbiznis/innkeeper/internal/ticket"
	ticketdomain "github.com/smallbiznis/innkeeper/internal/ticket/domain"
	"github.com/smallbiznis/innkeeper/pkg/telemetry"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var Module = fx.Module("http.server",
	cache.Module,
	ratelimit.Module,
	events.Module,
	audit.Module,
	reference.Module,
	catalog.Module,
	client.Module,
	occupancy.Module,
	providers.Module,
	invoice.Module,
	ticket.Module,
	reservation.Module,
	floormetrics.Module,
	fx.Provide(NewEngine),
	fx.Invoke(NewServer),
	fx.Invoke(run),
)

func NewEngine(obsCfg observability.Config, apiMetrics *telemetry.Metrics) *gin.Engine {
	if !obsCfg.Debug() {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(obslogger.GinMiddleware(obslogger.MiddlewareConfig{
		Debug:           obsCfg.Debug(),
		ErrorClassifier: classifyErrorForLog,
	}))
	r.Use(obstracing.GinMiddleware())
	r.Use(APIMetrics(apiMetrics))
	r.Use(ErrorHandlingMiddleware())

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return r
}

func run(lc fx.Lifecycle, cfg config.Config, r *gin.Engine, log *zap.Logger) {
	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			log.Info("http server listening", zap.String("addr", srv.Addr))
			go func() {
				if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					log.Fatal("http server stopped", zap.Error(err))
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		},
	})
}

type Server struct {
	engine         *gin.Engine
	cfg            config.Config
	db             *gorm.DB
	auditSvc       auditdomain.Service
	catalogSvc     catalogdomain.Service
	clientSvc      clientdomain.Service
	invoiceSvc     invoicedomain.Service
	ticketSvc      ticketdomain.Service
	reservationSvc reservationdomain.Service
	refrepo        refdomain.Repository
}

type ServerParams struct {
	fx.In

	Gin            *gin.Engine
	Cfg            config.Config
	DB             *gorm.DB
	AuditSvc       auditdomain.Service
	CatalogSvc     catalogdomain.Service
	ClientSvc      clientdomain.Service
	InvoiceSvc     invoicedomain.Service
	TicketSvc      ticketdomain.Service
	ReservationSvc reservationdomain.Service
	Refrepo        refdomain.Repository
}

func NewServer(p ServerParams) *Server {
	svc := &Server{
		engine:         p.Gin,
		cfg:            p.Cfg,
		db:             p.DB,
		auditSvc:       p.AuditSvc,
		catalogSvc:     p.CatalogSvc,
		clientSvc:      p.ClientSvc,
		invoiceSvc:     p.InvoiceSvc,
		ticketSvc:      p.TicketSvc,
		reservationSvc: p.ReservationSvc,
		refrepo:        p.Refrepo,
	}

	svc.registerAPIRoutes()
	svc.registerFallback()

	return svc
}

func (s *Server) Engine() *gin.Engine {
	return s.engine
}

func (s *Server) registerAPIRoutes() {
	api := s.engine.Group("/api")

	// -------- Reference --------
	api.GET("/payment_methods", s.ListPaymentMethods)
	api.GET("/identity_document_types", s.ListIdentityDocumentTypes)
	api.GET("/genders", s.ListGenders)
	api.GET("/locations", s.ListLocations)

	// -------- Catalog --------
	api.GET("/categories", s.ListCategories)
	api.POST("/categories", s.CreateCategory)
	api.PATCH("/categories/:id", s.RenameCategory)
	api.DELETE("/categories/:id", s.DeleteCategory)

	api.GET("/products", s.ListProducts)
	api.POST("/products", s.CreateProduct)
	api.GET("/products/:id", s.GetProduct)
	api.PUT("/products/:id", s.UpdateProduct)
	api.DELETE("/products/:id", s.DeleteProduct)

	api.GET("/room_types", s.ListRoomTypes)
	api.POST("/room_types", s.CreateRoomType)
	api.PUT("/room_types/:id", s.UpdateRoomType)
	api.DELETE("/room_types/:id", s.DeleteRoomType)

	api.GET("/rooms", s.ListRooms)
	api.POST("/rooms", s.CreateRoom)
	api.PUT("/rooms/:id", s.UpdateRoom)
	api.DELETE("/rooms/:id", s.DeleteRoom)

	// -------- Clients --------
	api.GET("/clients", s.ListClients)
	api.POST("/clients", s.CreateClient)
	api.GET("/clients/:id", s.GetClient)
	api.PUT("/clients/:id", s.UpdateClient)
	api.DELETE("/clients/:id", s.DeleteClient)

	// -------- Tickets --------
	api.GET("/tickets", s.ListOpenTickets)
	api.POST("/tickets", s.OpenTicket)
	api.GET("/tickets/:id", s.GetTicket)
	api.DELETE("/tickets/:id", s.AbandonTicket)
	api.POST("/tickets/:id/lines", s.AddTicketLine)
	api.PATCH("/tickets/:id/lines/:lineId", s.UpdateTicketLine)
	api.DELETE("/tickets/:id/lines/:lineId", s.RemoveTicketLine)
	api.POST("/tickets/:id/settle", s.SettleTicket)
	api.POST("/tickets/:id/printed", s.MarkTicketPrinted)
	api.GET("/tickets/:id/receipt", s.RenderTicketReceipt)

	// -------- Reservations --------
	api.GET("/reservations", s.ListReservations)
	api.POST("/reservations", s.CreateReservation)
	api.GET("/reservations/:id", s.GetReservation)
	api.PATCH("/reservations/:id", s.UpdateReservation)
	api.DELETE("/reservations/:id", s.CancelReservation)
	api.POST("/reservations/:id/occupy", s.OccupyReservation)
	api.POST("/reservations/:id/checkout", s.CheckoutReservation)
	api.PUT("/sold_rooms/:soldRoomId/guests", s.AssignGuests)

	// -------- Invoices --------
	api.GET("/invoices", s.ListInvoices)
	api.GET("/invoices/:id", s.GetInvoiceByID)
	api.POST("/invoices/:id/paid", s.MarkInvoicePaid)
	api.DELETE("/invoices/:id", s.DeleteInvoice)
	api.GET("/invoices/:id/document", s.RenderInvoice)

	// -------- Audit --------
	api.GET("/audit_logs", s.ListAuditLogs)
}

func (s *Server) registerFallback() {
	s.engine.NoRoute(noRoute)
}
