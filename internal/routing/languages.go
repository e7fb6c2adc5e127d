package routing

import (
	"net/http"

	"code-runner/internal/runner"
)

// LanguagesHandler lists the languages a run request may name, letting
// clients discover what the service accepts instead of hard coding it.
type LanguagesHandler struct{}

func (LanguagesHandler) ServeHTTP(w http.ResponseWriter, _ *http.Request) {
	supported := make([]Language, 0, len(runner.Interpreters))

	for _, code := range runner.Supported() {
		supported = append(supported, Language{
			Code:        code,
			DisplayName: runner.Interpreters[code].Language,
		})
	}

	handleJSONResponse(w, LanguagesResponse{Languages: supported}, http.StatusOK)
}
