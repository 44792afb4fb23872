package observability

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

func TestRecordRosterOutcome(t *testing.T) {
	counter := rosterOutcomes.WithLabelValues("signup", "signed_up")
	before := testutil.ToFloat64(counter)

	RecordRosterOutcome("signup", "signed_up")
	RecordRosterOutcome("signup", "signed_up")

	require.Equal(t, before+2, testutil.ToFloat64(counter))
}

func TestSetParticipants(t *testing.T) {
	SetParticipants("Chess Club", 7)
	require.Equal(t, float64(7), testutil.ToFloat64(participantsGauge.WithLabelValues("Chess Club")))
}

func TestObserveHTTPRequestUnmatchedRoute(t *testing.T) {
	ObserveHTTPRequest("GET", "", 404, 5*time.Millisecond)

	count := testutil.CollectAndCount(httpDuration, "signup_service_http_request_duration_seconds")
	require.GreaterOrEqual(t, count, 1)
}
