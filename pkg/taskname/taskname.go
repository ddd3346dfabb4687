package taskname

// Task types, one per pipeline stage.
const (
	MetricsFetch  = "metrics:fetch"
	ClaimValidate = "claim:validate"
	ClaimFinalize = "claim:finalize"
)

// Queue lanes. Each task type is consumed from its own lane so that a slow
// ledger cannot starve metrics fetching.
const (
	LaneMetricsFetch  = "metrics-fetch"
	LaneClaimValidate = "claim-validate"
	LaneClaimFinalize = "claim-finalize"
)

// LaneOf maps a task type onto its lane.
func LaneOf(taskType string) string {
	switch taskType {
	case MetricsFetch:
		return LaneMetricsFetch
	case ClaimValidate:
		return LaneClaimValidate
	case ClaimFinalize:
		return LaneClaimFinalize
	default:
		return ""
	}
}

// Lanes lists every lane in pipeline order.
func Lanes() []string {
	return []string{LaneMetricsFetch, LaneClaimValidate, LaneClaimFinalize}
}
