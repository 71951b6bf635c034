package metrics

import (
	"io"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecorderCounts(t *testing.T) {
	r := New()
	r.FileClassified(ResultStudy)
	r.FileClassified(ResultStudy)
	r.FileClassified(ResultOther)
	r.UploadAttempt("error")
	r.InstanceSent()
	r.Transition("Sending")
	r.Received("stored")

	assert.Equal(t, 2.0, testutil.ToFloat64(r.FilesClassifiedTotal.WithLabelValues(ResultStudy)))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.FilesClassifiedTotal.WithLabelValues(ResultOther)))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.UploadAttemptsTotal.WithLabelValues("error")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.InstancesSentTotal))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.TransitionsTotal.WithLabelValues("Sending")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.ReceivedTotal.WithLabelValues("stored")))
}

func TestNilRecorder(t *testing.T) {
	var r *Recorder
	assert.NotPanics(t, func() {
		r.FileClassified(ResultRejected)
		r.UploadAttempt("ok")
		r.InstanceSent()
		r.Transition("Failed")
		r.Received("rejected")
	})
}

func TestHandler(t *testing.T) {
	r := New()
	r.InstanceSent()

	rec := httptest.NewRecorder()
	r.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), "dicomsend_instances_sent_total 1")
}
