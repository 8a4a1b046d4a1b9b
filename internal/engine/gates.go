package engine

// Route is a gate's routing decision.
type Route int

const (
	RouteProceed Route = iota
	RouteRetry
	RouteAbort
)

// String returns the route name for logs.
func (r Route) String() string {
	switch r {
	case RouteProceed:
		return "proceed"
	case RouteRetry:
		return "retry"
	case RouteAbort:
		return "abort"
	default:
		return "unknown"
	}
}

// maxEvidenceErrors is the accumulated-error threshold above which the
// evidence gate aborts the run. Because retries re-run every collector
// and errors accumulate, this threshold is also what bounds retries.
const maxEvidenceErrors = 3

// EvidenceRoute decides what happens after the evidence fan-in. It is a
// pure function of the merged state; rules are evaluated in order and
// the first match wins:
//
//  1. clone failed                          -> abort
//  2. more than maxEvidenceErrors errors    -> abort
//  3. history or structure evidence absent  -> retry
//  4. any evidence errors                   -> retry
//  5. otherwise                             -> proceed
func EvidenceRoute(cloneOK bool, errCount int, historyPresent, structurePresent bool) Route {
	if !cloneOK {
		return RouteAbort
	}
	if errCount > maxEvidenceErrors {
		return RouteAbort
	}
	if !historyPresent || !structurePresent {
		return RouteRetry
	}
	if errCount > 0 {
		return RouteRetry
	}
	return RouteProceed
}

// maxJudgeRetries bounds scoring retries. Unlike the evidence gate this
// gate never aborts: a degraded verdict beats no verdict.
const maxJudgeRetries = 1

// JudgeRoute decides what happens after the scoring fan-in.
func JudgeRoute(judgeErrCount, attempts int) Route {
	if judgeErrCount > 0 && attempts < maxJudgeRetries {
		return RouteRetry
	}
	return RouteProceed
}
