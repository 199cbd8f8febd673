package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCollector(t *testing.T) {
	c := NewCollector("linea")

	c.EventAdded()
	c.EventAdded()
	c.EventUpdated()
	c.EventDeleted()
	c.TimelineOperation("create")
	c.Upload("photo", UploadSucceeded, 1024)
	c.Upload("photo", UploadFailed, 2048)
	c.SetActiveSessions(3)
	c.ObserveHTTP(http.MethodGet, "GET /api/events", http.StatusOK, 5*time.Millisecond)
	c.ObserveHTTP(http.MethodGet, "", http.StatusNotFound, time.Millisecond)

	assert.Equal(t, 2.0, testutil.ToFloat64(c.eventsAdded))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.eventsUpdated))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.eventsDeleted))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.timelines.WithLabelValues("create")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.uploads.WithLabelValues("photo", UploadFailed)))
	assert.Equal(t, 1024.0, testutil.ToFloat64(c.uploadedBytes), "failed uploads add no bytes")
	assert.Equal(t, 3.0, testutil.ToFloat64(c.activeSessions))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.httpRequests.WithLabelValues("GET", "unmatched", "404")))
}

func TestNilCollectorIsNoop(t *testing.T) {
	var c *Collector
	assert.NotPanics(t, func() {
		c.EventAdded()
		c.EventDeleted()
		c.Upload("video", UploadSucceeded, 10)
		c.SetActiveSessions(1)
		c.ObserveHTTP("GET", "/", 200, time.Second)
	})
}

func TestHandlerExposesMetrics(t *testing.T) {
	c := NewCollector("linea")
	c.EventAdded()

	rec := httptest.NewRecorder()
	c.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), "linea_events_added_total 1")
	assert.Contains(t, string(body), "go_goroutines")
}

func TestCollectorsAreIndependent(t *testing.T) {
	a := NewCollector("linea")
	b := NewCollector("linea")
	a.EventAdded()
	assert.Equal(t, 0.0, testutil.ToFloat64(b.eventsAdded))
}
