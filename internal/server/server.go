package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	auditdomain "github.com/smallbiznis/kinesio/internal/audit/domain"
	"github.com/smallbiznis/kinesio/internal/auth"
	"github.com/smallbiznis/kinesio/internal/authorization"
	"github.com/smallbiznis/kinesio/internal/config"
	expensedomain "github.com/smallbiznis/kinesio/internal/expense/domain"
	invoicedomain "github.com/smallbiznis/kinesio/internal/invoice/domain"
	"github.com/smallbiznis/kinesio/internal/observability"
	obslogger "github.com/smallbiznis/kinesio/internal/observability/logger"
	obstracing "github.com/smallbiznis/kinesio/internal/observability/tracing"
	patientdomain "github.com/smallbiznis/kinesio/internal/patient/domain"
	"github.com/smallbiznis/kinesio/internal/ratelimit"
	"github.com/smallbiznis/kinesio/internal/report"
	servicepricedomain "github.com/smallbiznis/kinesio/internal/serviceprice/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Module("http.server",
	fx.Provide(registerGin),
	fx.Invoke(NewServer),
	fx.Invoke(run),
)

func NewEngine(obsCfg observability.Config) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(obslogger.GinMiddleware(obslogger.MiddlewareConfig{
		Debug:           obsCfg.Debug(),
		ErrorClassifier: classifyErrorForLog,
	}))
	r.Use(obstracing.GinMiddleware())
	r.Use(ErrorHandlingMiddleware())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return r
}

func registerGin(obsCfg observability.Config) *gin.Engine {
	if !obsCfg.Debug() {
		gin.SetMode(gin.ReleaseMode)
	}
	return NewEngine(obsCfg)
}

func run(lc fx.Lifecycle, cfg config.Config, r *gin.Engine, log *zap.Logger) {
	srv := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					log.Fatal("http server stopped", zap.Error(err))
				}
			}()
			log.Info("http server listening", zap.String("addr", srv.Addr))
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
	engine     *gin.Engine
	cfg        config.Config
	log        *zap.Logger
	verifier   *auth.Verifier
	authzSvc   authorization.Service
	limiter    *ratelimit.APILimiter
	auditSvc   auditdomain.Service
	invoiceSvc invoicedomain.Service
	patientSvc patientdomain.Service
	priceSvc   servicepricedomain.Service
	expenseSvc expensedomain.Service
	reportSvc  *report.Service
}

type ServerParams struct {
	fx.In

	Gin        *gin.Engine
	Cfg        config.Config
	Log        *zap.Logger
	Verifier   *auth.Verifier
	AuthzSvc   authorization.Service
	Limiter    *ratelimit.APILimiter `optional:"true"`
	AuditSvc   auditdomain.Service
	InvoiceSvc invoicedomain.Service
	PatientSvc patientdomain.Service
	PriceSvc   servicepricedomain.Service
	ExpenseSvc expensedomain.Service
	ReportSvc  *report.Service
}

func NewServer(p ServerParams) *Server {
	svc := &Server{
		engine:     p.Gin,
		cfg:        p.Cfg,
		log:        p.Log.Named("http.server"),
		verifier:   p.Verifier,
		authzSvc:   p.AuthzSvc,
		limiter:    p.Limiter,
		auditSvc:   p.AuditSvc,
		invoiceSvc: p.InvoiceSvc,
		patientSvc: p.PatientSvc,
		priceSvc:   p.PriceSvc,
		expenseSvc: p.ExpenseSvc,
		reportSvc:  p.ReportSvc,
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
	api.Use(s.AuthRequired())
	api.Use(s.RateLimit())

	// -------- Invoices --------
	api.POST("/invoices", s.authorize(authorization.ObjectInvoice, authorization.ActionCreate), s.CreateInvoice)
	api.GET("/invoices", s.authorize(authorization.ObjectInvoice, authorization.ActionView), s.ListInvoices)
	api.GET("/invoices/stats", s.authorize(authorization.ObjectInvoice, authorization.ActionView), s.GetInvoiceStats)
	api.GET("/invoices/:id", s.authorize(authorization.ObjectInvoice, authorization.ActionView), s.GetInvoiceByID)
	api.GET("/invoices/:id/pdf", s.authorize(authorization.ObjectInvoice, authorization.ActionExport), s.GetInvoicePDF)
	api.POST("/invoices/:id/payments", s.authorize(authorization.ObjectInvoice, authorization.ActionPay), s.RegisterPayment)
	api.POST("/invoices/:id/cancel", s.authorize(authorization.ObjectInvoice, authorization.ActionCancel), s.CancelInvoice)

	// -------- Service prices --------
	api.GET("/service-prices", s.authorize(authorization.ObjectServicePrice, authorization.ActionView), s.ListServicePrices)
	api.POST("/service-prices", s.authorize(authorization.ObjectServicePrice, authorization.ActionCreate), s.CreateServicePrice)
	api.GET("/service-prices/:id", s.authorize(authorization.ObjectServicePrice, authorization.ActionView), s.GetServicePrice)
	api.PUT("/service-prices/:id", s.authorize(authorization.ObjectServicePrice, authorization.ActionUpdate), s.UpdateServicePrice)
	api.DELETE("/service-prices/:id", s.authorize(authorization.ObjectServicePrice, authorization.ActionDelete), s.DeactivateServicePrice)

	// -------- Patients --------
	api.POST("/patients", s.authorize(authorization.ObjectPatient, authorization.ActionCreate), s.CreatePatient)
	api.GET("/patients", s.authorize(authorization.ObjectPatient, authorization.ActionView), s.ListPatients)
	api.GET("/patients/:id", s.authorize(authorization.ObjectPatient, authorization.ActionView), s.GetPatient)
	api.DELETE("/patients/:id", s.authorize(authorization.ObjectPatient, authorization.ActionDelete), s.SoftDeletePatient)
	api.POST("/patients/:id/restore", s.authorize(authorization.ObjectPatient, authorization.ActionRestore), s.RestorePatient)
	api.DELETE("/patients/:id/purge", s.authorize(authorization.ObjectPatient, authorization.ActionPurge), s.PurgePatient)
	api.GET("/patients/:id/records", s.authorize(authorization.ObjectClinicalRecord, authorization.ActionView), s.ListClinicalRecords)
	api.POST("/patients/:id/records", s.authorize(authorization.ObjectClinicalRecord, authorization.ActionCreate), s.AddClinicalRecord)

	// -------- Expenses & reports --------
	api.GET("/expenses", s.authorize(authorization.ObjectExpense, authorization.ActionView), s.ListExpenses)
	api.POST("/expenses", s.authorize(authorization.ObjectExpense, authorization.ActionCreate), s.CreateExpense)
	api.GET("/reports/iva", s.authorize(authorization.ObjectReport, authorization.ActionView), s.GetIVAReport)

	// -------- Audit --------
	api.GET("/audit-logs", s.authorize(authorization.ObjectAuditLog, authorization.ActionView), s.ListAuditLogs)
}

func (s *Server) registerFallback() {
	s.engine.NoRoute(func(c *gin.Context) {
		AbortWithError(c, ErrNotFound)
	})
}
