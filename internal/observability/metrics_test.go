package observability

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestMetrics_Snapshot(t *testing.T) {
	m := NewMetrics()
	m.RecordRequest("/tickets", "GET", 200, 10*time.Millisecond)
	m.RecordRequest("/tickets", "GET", 200, 30*time.Millisecond)
	m.RecordError("/tickets/:id/status", "PUT", "FORBIDDEN")

	snap := m.Snapshot()
	assert.Equal(t, int64(2), snap.Requests["/tickets|GET|200"])
	assert.Equal(t, int64(20), snap.AvgDurationMs["/tickets|GET|200"])
	assert.Equal(t, int64(1), snap.Errors["/tickets/:id/status|PUT|FORBIDDEN"])
}

func TestMetrics_NilIsSafe(t *testing.T) {
	var m *Metrics
	m.RecordRequest("/", "GET", 200, time.Millisecond)
	m.RecordError("/", "GET", "INTERNAL_ERROR")
	assert.Empty(t, m.Snapshot().Requests)
}
