package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEvidenceRoute_CloneFailedAborts(t *testing.T) {
	// Clone failure aborts even with zero errors and full evidence
	assert.Equal(t, RouteAbort, EvidenceRoute(false, 0, true, true))
}

func TestEvidenceRoute_ErrorThreshold(t *testing.T) {
	assert.Equal(t, RouteRetry, EvidenceRoute(true, 3, true, true))
	assert.Equal(t, RouteAbort, EvidenceRoute(true, 4, true, true))
}

func TestEvidenceRoute_MissingEvidenceRetries(t *testing.T) {
	assert.Equal(t, RouteRetry, EvidenceRoute(true, 0, false, true))
	assert.Equal(t, RouteRetry, EvidenceRoute(true, 0, true, false))
}

func TestEvidenceRoute_ErrorsPresentRetries(t *testing.T) {
	assert.Equal(t, RouteRetry, EvidenceRoute(true, 1, true, true))
}

func TestEvidenceRoute_CleanProceeds(t *testing.T) {
	assert.Equal(t, RouteProceed, EvidenceRoute(true, 0, true, true))
}

func TestEvidenceRoute_AbortBeatsRetry(t *testing.T) {
	// Both abort and retry conditions hold; abort wins
	assert.Equal(t, RouteAbort, EvidenceRoute(true, 5, false, false))
	assert.Equal(t, RouteAbort, EvidenceRoute(false, 1, false, true))
}

func TestJudgeRoute(t *testing.T) {
	assert.Equal(t, RouteProceed, JudgeRoute(0, 0))
	assert.Equal(t, RouteRetry, JudgeRoute(1, 0))
	// One retry maximum; after that the gate proceeds with degraded output
	assert.Equal(t, RouteProceed, JudgeRoute(1, 1))
	assert.Equal(t, RouteProceed, JudgeRoute(5, 2))
}

func TestRouteString(t *testing.T) {
	assert.Equal(t, "proceed", RouteProceed.String())
	assert.Equal(t, "retry", RouteRetry.String())
	assert.Equal(t, "abort", RouteAbort.String())
	assert.Equal(t, "unknown", Route(99).String())
}
