package routing

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"code-runner/internal/memory"
	"code-runner/internal/runner"
	"code-runner/internal/validation"
	"code-runner/internal/workspace"
)

// RunCodeHandler serves POST /run_code. Requests are fully validated before
// anything touches the filesystem, only then is the code materialized and
// executed. Whatever the submitted code does, the handler answers with a
// structured response.
type RunCodeHandler struct {
	Engine     *runner.Engine
	Workspace  *workspace.Workspace
	Validator  *validator.Validate
	Translator ut.Translator

	// MaxRequestSize bounds the accepted request body size in bytes.
	MaxRequestSize int64
}

func handleJSONResponse(w http.ResponseWriter, body any, code int) {
	response, _ := json.Marshal(body)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_, _ = w.Write(response)
}

func handleDecodeError(w http.ResponseWriter, err error, maxBodySize int64) {
	var syntaxError *json.SyntaxError
	var unmarshalTypeError *json.UnmarshalTypeError
	var maxBytesError *http.MaxBytesError

	switch {
	case errors.As(err, &syntaxError):
		msg := fmt.Sprintf("Request body contains badly-formed JSON (at position %d)", syntaxError.Offset)
		handleJSONResponse(w, ErrorResponse{Error: msg}, http.StatusBadRequest)

	case errors.Is(err, io.ErrUnexpectedEOF):
		msg := "Request body contains badly-formed JSON"
		handleJSONResponse(w, ErrorResponse{Error: msg}, http.StatusBadRequest)

	case errors.As(err, &unmarshalTypeError):
		msg := fmt.Sprintf("Request body contains an invalid value for the %q field (at position %d)", unmarshalTypeError.Field, unmarshalTypeError.Offset)
		handleJSONResponse(w, ErrorResponse{Error: msg}, http.StatusBadRequest)

	case strings.HasPrefix(err.Error(), "json: unknown field "):
		fieldName := strings.TrimPrefix(err.Error(), "json: unknown field ")
		msg := fmt.Sprintf("Request body contains unknown field %s", fieldName)
		handleJSONResponse(w, ErrorResponse{Error: msg}, http.StatusBadRequest)

	case errors.Is(err, io.EOF):
		msg := "Request body must not be empty"
		handleJSONResponse(w, ErrorResponse{Error: msg}, http.StatusBadRequest)

	case errors.As(err, &maxBytesError):
		msg := fmt.Sprintf("Request body must not be larger than %s", memory.Memory(maxBodySize))
		handleJSONResponse(w, ErrorResponse{Error: msg}, http.StatusRequestEntityTooLarge)

	// Otherwise default to logging the error and sending a 500 Internal
	// Server Error response.
	default:
		log.Error().Err(err).Msg("failed to decode run request")
		handleJSONResponse(w, ErrorResponse{Error: http.StatusText(http.StatusInternalServerError)}, http.StatusInternalServerError)
	}
}

func (h RunCodeHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	executionID := uuid.NewString()
	w.Header().Set("X-Request-Id", executionID)

	// Use http.MaxBytesReader to enforce the configured maximum body size.
	r.Body = http.MaxBytesReader(w, r.Body, h.MaxRequestSize)

	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()

	var direct RunRequest

	if err := dec.Decode(&direct); err != nil {
		handleDecodeError(w, err, h.MaxRequestSize)
		return
	}

	if err := h.Validator.Struct(direct); err != nil {
		reasons := validation.TranslateError(err, h.Translator)

		log.Info().
			Str("executionID", executionID).
			Strs("reasons", reasons).
			Msg("run request failed validation")

		handleJSONResponse(w, ErrorResponse{
			Error: strings.Join(reasons, "; "),
		}, http.StatusBadRequest)

		return
	}

	if direct.Language == "" {
		direct.Language = runner.DefaultLanguage
	}

	// The workspace gets the final say on the filename. The validator checks
	// the shape of the name, this checks where the name actually lands once
	// joined onto the workspace root.
	if _, err := h.Workspace.Resolve(direct.Filename); err != nil {
		log.Info().
			Str("executionID", executionID).
			Str("filename", direct.Filename).
			Msg("run request filename rejected by the workspace")

		handleJSONResponse(w, ErrorResponse{
			Error: fmt.Sprintf("invalid filename: %v", err),
		}, http.StatusBadRequest)

		return
	}

	result := h.Engine.Run(r.Context(), runner.Request{
		ID:       executionID,
		Code:     direct.Code,
		Filename: direct.Filename,
		Language: direct.Language,
	})

	handleJSONResponse(w, RunResponse{
		Status:          result.Status,
		Stdout:          result.Stdout,
		Stderr:          result.Stderr,
		CommandExecuted: result.CommandExecuted,
		ReturnCode:      result.ReturnCode,
		Error:           result.ErrorMessage,
	}, statusCodeFor(result))
}

// statusCodeFor maps a run outcome onto the response status code. Completed
// runs are always 200 no matter what the code itself exited with.
func statusCodeFor(result *runner.Result) int {
	switch {
	case result.Status == runner.StatusSuccess:
		return http.StatusOK
	case result.TimedOut:
		return http.StatusRequestTimeout
	default:
		return http.StatusInternalServerError
	}
}
