package http

import (
	"net/http"
	"time"

	"github.com/wattlehq/accountd/internal/accounts/store"
	"github.com/wattlehq/accountd/pkg/accountsdk"
	"github.com/wattlehq/accountd/pkg/httpx"
)

// ReadyzHandler is the readiness probe: it verifies the database is
// reachable before reporting ok.
func ReadyzHandler(startTime time.Time, version string, st store.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		status := "ok"
		statusCode := http.StatusOK

		if err := st.Ping(r.Context()); err != nil {
			status = "degraded"
			statusCode = http.StatusServiceUnavailable
		}

		httpx.WriteJSON(w, statusCode, accountsdk.HealthResponse{
			Status:  status,
			Uptime:  time.Since(startTime).String(),
			Version: version,
		})
	}
}
