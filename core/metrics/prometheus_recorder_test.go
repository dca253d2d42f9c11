package metrics

import (
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPrometheusRecorder(t *testing.T) {
	reg := prom.NewRegistry()
	pr := NewPrometheusRecorder(reg)

	pr.IncVersionsCreated()
	pr.IncVersionsCreated()
	pr.IncConflict(ConflictMerged)
	pr.IncConflict(ConflictRejected)
	pr.IncConflict(ConflictRejected)
	pr.AddEvictions(3)
	pr.AddEvictions(0)
	pr.ObserveApplyDuration(150*time.Millisecond, true)
	pr.IncCleanupRun(false)

	assert.Equal(t, 2.0, testutil.ToFloat64(pr.versionsCreated))
	assert.Equal(t, 1.0, testutil.ToFloat64(pr.conflicts.WithLabelValues("merged")))
	assert.Equal(t, 2.0, testutil.ToFloat64(pr.conflicts.WithLabelValues("rejected")))
	assert.Equal(t, 3.0, testutil.ToFloat64(pr.evictions))
	assert.Equal(t, 1.0, testutil.ToFloat64(pr.cleanupRuns.WithLabelValues("failure")))

	mfs, err := reg.Gather()
	require.NoError(t, err)
	assert.NotEmpty(t, mfs)
}

func TestPrometheusRecorderHandler(t *testing.T) {
	pr := NewPrometheusRecorder(nil)
	pr.IncVersionsCreated()

	rec := httptest.NewRecorder()
	pr.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	assert.Equal(t, 200, rec.Code)
	assert.True(t, strings.Contains(rec.Body.String(), "charsync_versions_created_total"))
}

func TestNoopRecorder(t *testing.T) {
	var r Recorder = NoopRecorder{}
	r.IncVersionsCreated()
	r.IncConflict(ConflictEvicted)
	r.AddEvictions(1)
	r.ObserveApplyDuration(time.Second, false)
	r.IncCleanupRun(true)
}
