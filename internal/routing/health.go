package routing

import "net/http"

// HealthHandler answers liveness probes. The service holds no external
// connections, being able to answer at all is the health signal.
type HealthHandler struct{}

func (HealthHandler) ServeHTTP(w http.ResponseWriter, _ *http.Request) {
	handleJSONResponse(w, HealthResponse{Status: "ok"}, http.StatusOK)
}
