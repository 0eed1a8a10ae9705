package server

import (
	"context"
	"net/http"
	"time"

	auditdomain "github.com/casaflowlabs/casaflow/internal/audit/domain"
	"github.com/casaflowlabs/casaflow/internal/config"
	creditdomain "github.com/casaflowlabs/casaflow/internal/credit/domain"
	"github.com/casaflowlabs/casaflow/internal/observability"
	quotadomain "github.com/casaflowlabs/casaflow/internal/quota/domain"
	routingdomain "github.com/casaflowlabs/casaflow/internal/routing/domain"
	teamdomain "github.com/casaflowlabs/casaflow/internal/team/domain"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Module("server",
	fx.Provide(NewServer),
	fx.Invoke(Start),
)

type Params struct {
	fx.In

	Log        *zap.Logger
	Config     config.Config
	Metrics    *observability.Metrics
	RoutingSvc routingdomain.Service
	TeamSvc    teamdomain.Service
	CreditSvc  creditdomain.Service
	AuditSvc   auditdomain.Service
	QuotaSvc   quotadomain.Service
}

type Server struct {
	log        *zap.Logger
	cfg        config.Config
	metrics    *observability.Metrics
	routingSvc routingdomain.Service
	teamSvc    teamdomain.Service
	creditSvc  creditdomain.Service
	auditSvc   auditdomain.Service
	quotaSvc   quotadomain.Service
}

func NewServer(p Params) *Server {
	return &Server{
		log:        p.Log.Named("server"),
		cfg:        p.Config,
		metrics:    p.Metrics,
		routingSvc: p.RoutingSvc,
		teamSvc:    p.TeamSvc,
		creditSvc:  p.CreditSvc,
		auditSvc:   p.AuditSvc,
		quotaSvc:   p.QuotaSvc,
	}
}

func (s *Server) Handler() http.Handler {
	if s.cfg.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(gin.Recovery(), s.requestID(), s.requestLogger())

	r.GET("/healthz", s.Healthz)
	r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(s.metrics.Registry, promhttp.HandlerOpts{})))

	v1 := r.Group("/v1")
	{
		v1.POST("/routing/match", s.MatchAgent)
		v1.GET("/routing/rules", s.ListRules)
		v1.POST("/routing/rules", s.CreateRule)
		v1.PATCH("/routing/rules/:id", s.UpdateRule)
		v1.DELETE("/routing/rules/:id", s.DeleteRule)
		v1.POST("/routing/rules/:id/move", s.MoveRule)
		v1.GET("/routing/settings", s.GetRoutingSettings)
		v1.PATCH("/routing/settings", s.UpdateRoutingSettings)

		v1.GET("/team", s.ListTeam)
		v1.POST("/team", s.CreateMember)
		v1.POST("/team/:id/pause", s.PauseMember)
		v1.POST("/team/:id/unpause", s.UnpauseMember)

		v1.GET("/credits/:accountId", s.GetAccount)
		v1.PATCH("/credits/:accountId/settings", s.UpdateAccountSettings)
		v1.POST("/credits/:accountId/consume", s.Consume)
		v1.POST("/credits/:accountId/purchase", s.Purchase)
		v1.GET("/credits/:accountId/ledger", s.GetLedger)
		v1.POST("/credits/:accountId/rules/:ruleId", s.UpdateCreditRule)

		v1.GET("/audit/logs", s.ListAuditLogs)
		v1.GET("/audit/export", s.ExportAuditLogs)
	}

	return r
}

func Start(lc fx.Lifecycle, s *Server) {
	srv := &http.Server{
		Addr:              s.cfg.Server.Addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			s.log.Info("http server starting", zap.String("addr", srv.Addr))
			go func() {
				if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					s.log.Error("http server stopped", zap.Error(err))
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			return srv.Shutdown(ctx)
		},
	})
}
