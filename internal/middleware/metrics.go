package middleware

import (
	"net/http"
	"strconv"

	"github.com/segyhp/loan-engine/internal/metrics"
	"github.com/segyhp/loan-engine/pkg/response"
)

// Metrics counts requests by method and status code
func Metrics(recorder *metrics.Recorder) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			rec := response.NewStatusRecorder(w)
			next.ServeHTTP(rec, r)
			recorder.Request(r.Method, strconv.Itoa(rec.StatusCode))
		})
	}
}
