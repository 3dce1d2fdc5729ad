package httpapi

import (
	"net/http"

	"github.com/notewire/assertions/internal/jobs"
)

type healthResponse struct {
	Jobs []healthJobEntry `json:"jobs"`
}

type healthJobEntry struct {
	JobName             string  `json:"jobName"`
	Status              string  `json:"status"`
	ConsecutiveFailures int     `json:"consecutiveFailures"`
	DriftHours          float64 `json:"driftHours"`
}

// newHealthHandler returns the GET /health/jobs handler. Only mounted
// when config.HealthConfig.Enabled; the router never registers this
// route otherwise, so the 404 a disabled deployment returns is chi's
// own NotFound, not a handler check.
func newHealthHandler(reporter *jobs.HealthReporter) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		summaries, err := reporter.Summary(r.Context())
		if err != nil {
			WriteError(w, err)
			return
		}

		resp := healthResponse{Jobs: make([]healthJobEntry, 0, len(summaries))}
		for _, s := range summaries {
			resp.Jobs = append(resp.Jobs, healthJobEntry{
				JobName:             s.JobName,
				Status:              s.Status,
				ConsecutiveFailures: s.ConsecutiveFailures,
				DriftHours:          s.DriftHours,
			})
		}
		writeJSON(w, http.StatusOK, resp)
	}
}
