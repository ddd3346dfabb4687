package health

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.uber.org/fx"
	"gorm.io/gorm"
)

var Module = fx.Module("health", fx.Provide(ProvideHealth))

const (
	statusHealthy   = "healthy"
	statusUnhealthy = "unhealthy"
)

type Dependency struct {
	Name    string `json:"name"`
	Status  string `json:"status"`
	Message string `json:"message"`
}

type Health struct {
	Status  string       `json:"status"`
	Message string       `json:"message"`
	Deps    []Dependency `json:"deps"`
}

// Checker reports liveness and the readiness of the store and the queue
// backend.
type Checker struct {
	db      *gorm.DB
	redis   *redis.Client
	timeout time.Duration
}

type HealthParams struct {
	fx.In
	DB    *gorm.DB      `optional:"true"`
	Redis *redis.Client `optional:"true"`
}

func ProvideHealth(p HealthParams) *Checker {
	return &Checker{
		db:      p.DB,
		redis:   p.Redis,
		timeout: 2 * time.Second,
	}
}

// Check pings every configured dependency.
func (h *Checker) Check(ctx context.Context) *Health {
	ctx, cancel := context.WithTimeout(ctx, h.timeout)
	defer cancel()

	this := &Health{Status: statusHealthy, Message: "OK", Deps: []Dependency{}}

	if h.db != nil {
		this.add(h.db.Name(), h.pingDB(ctx))
	}
	if h.redis != nil {
		this.add("redis", h.redis.Ping(ctx).Err())
	}
	return this
}

func (h *Checker) pingDB(ctx context.Context) error {
	sqlDB, err := h.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

func (s *Health) add(name string, err error) {
	dep := Dependency{Name: name, Status: statusHealthy, Message: "OK"}
	if err != nil {
		dep.Status = statusUnhealthy
		dep.Message = err.Error()
		s.Status = statusUnhealthy
		s.Message = "dependency unavailable"
	}
	s.Deps = append(s.Deps, dep)
}

func (h *Checker) Liveness(c *gin.Context) {
	c.JSON(http.StatusOK, &Health{Status: statusHealthy, Message: "OK", Deps: []Dependency{}})
}

func (h *Checker) Readiness(c *gin.Context) {
	res := h.Check(c.Request.Context())
	code := http.StatusOK
	if res.Status != statusHealthy {
		code = http.StatusServiceUnavailable
	}
	c.JSON(code, res)
}
