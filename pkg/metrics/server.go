package metrics

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"creator-missions/pkg/config"
	"creator-missions/pkg/health"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Module("metrics",
	fx.Invoke(RegisterServer),
)

type serverParams struct {
	fx.In
	Lifecycle fx.Lifecycle
	Config    *config.Config
	Health    *health.Checker `optional:"true"`
}

// NewRouter serves the Prometheus registry and, when a checker is given, the
// liveness and readiness probes.
func NewRouter(h *health.Checker) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())

	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	if h != nil {
		r.GET("/healthz", h.Liveness)
		r.GET("/readyz", h.Readiness)
	}
	return r
}

// RegisterServer exposes /metrics, /healthz and /readyz on METRICS.ADDR. An
// empty address disables the listener.
func RegisterServer(p serverParams) {
	lc, cfg := p.Lifecycle, p.Config
	if cfg.Metrics.Addr == "" {
		return
	}

	server := &http.Server{
		Addr:              cfg.Metrics.Addr,
		Handler:           NewRouter(p.Health),
		ReadHeaderTimeout: 5 * time.Second,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			ln, err := net.Listen("tcp", server.Addr)
			if err != nil {
				return err
			}
			go func() {
				if err := server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
					zap.L().Error("[Metrics] server stopped", zap.Error(err))
				}
			}()
			zap.L().Info("[Metrics] listening", zap.String("addr", cfg.Metrics.Addr))
			return nil
		},
		OnStop: func(ctx context.Context) error {
			return server.Shutdown(ctx)
		},
	})
}
