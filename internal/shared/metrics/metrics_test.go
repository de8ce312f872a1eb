package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestObserveUploadCounts(t *testing.T) {
	before := testutil.ToFloat64(uploadsTotal.WithLabelValues("video", "rejected"))
	ObserveUpload("video", "rejected")
	after := testutil.ToFloat64(uploadsTotal.WithLabelValues("video", "rejected"))

	assert.Equal(t, before+1, after)
}

func TestHandlerServesPrometheusText(t *testing.T) {
	gin.SetMode(gin.TestMode)
	IncReportsCreated()

	r := gin.New()
	r.GET("/metrics", Handler())

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "reports_created_total")
}
