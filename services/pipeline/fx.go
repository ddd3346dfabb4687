package pipeline

import (
	"creator-missions/pkg/taskname"

	"github.com/hibiken/asynq"
	"go.uber.org/fx"
)

var Module = fx.Module("pipeline",
	fx.Provide(NewService),
	fx.Invoke(RegisterHandlers),
)

func RegisterHandlers(mux *asynq.ServeMux, svc *Service) {
	mux.HandleFunc(taskname.MetricsFetch, svc.HandleMetricsFetch)
	mux.HandleFunc(taskname.ClaimValidate, svc.HandleClaimValidate)
	mux.HandleFunc(taskname.ClaimFinalize, svc.HandleClaimFinalize)
}
