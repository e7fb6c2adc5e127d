package routing

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"code-runner/internal/memory"
	"code-runner/internal/runner"
	"code-runner/internal/validation"
	"code-runner/internal/workspace"
)

type testService struct {
	handler   RunCodeHandler
	workspace *workspace.Workspace
}

// pythonCommand locates a python interpreter on the PATH, skipping the test
// when none is installed.
func pythonCommand(t *testing.T) []string {
	t.Helper()

	for _, candidate := range []string{"python3", "python"} {
		if _, err := exec.LookPath(candidate); err == nil {
			return []string{candidate}
		}
	}

	t.Skip("no python interpreter found in PATH")

	return nil
}

// newTestService wires a complete handler against a temporary workspace.
// Tests that never reach the engine pass an explicit override so they do
// not depend on a python installation.
func newTestService(t *testing.T, opts runner.Options) *testService {
	t.Helper()

	ws, err := workspace.New(t.TempDir())
	require.NoError(t, err)

	if opts.InterpreterOverrides == nil {
		opts.InterpreterOverrides = map[string][]string{
			runner.DefaultLanguage: pythonCommand(t),
		}
	}

	validate, translator, err := validation.New()
	require.NoError(t, err)

	return &testService{
		handler: RunCodeHandler{
			Engine:         runner.NewEngine(ws, opts),
			Workspace:      ws,
			Validator:      validate,
			Translator:     translator,
			MaxRequestSize: (2 * memory.Megabyte).Bytes(),
		},
		workspace: ws,
	}
}

func (s *testService) post(t *testing.T, body string) *httptest.ResponseRecorder {
	t.Helper()

	req := httptest.NewRequest(http.MethodPost, "/run_code", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")

	recorder := httptest.NewRecorder()
	s.handler.ServeHTTP(recorder, req)

	return recorder
}

func decodeBody(t *testing.T, recorder *httptest.ResponseRecorder) map[string]any {
	t.Helper()

	var body map[string]any
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &body))

	return body
}

var dummyInterpreter = map[string][]string{
	runner.DefaultLanguage: {"python"},
}

func TestRunCodeReturnsOutput(t *testing.T) {
	service := newTestService(t, runner.Options{})

	recorder := service.post(t, `{"code": "print('Hello via POST')", "filename": "test_script.py"}`)

	assert.Equal(t, http.StatusOK, recorder.Code)
	assert.Equal(t, "application/json", recorder.Header().Get("Content-Type"))
	assert.NotEmpty(t, recorder.Header().Get("X-Request-Id"))

	body := decodeBody(t, recorder)
	assert.Equal(t, "success", body["status"])
	assert.Equal(t, "Hello via POST\n", body["stdout"])
	assert.Equal(t, "", body["stderr"])
	assert.Equal(t, float64(0), body["return_code"])

	command, ok := body["command_executed"].([]any)
	require.True(t, ok)
	require.NotEmpty(t, command)
	assert.Equal(t, filepath.Join(service.workspace.Root(), "test_script.py"), command[len(command)-1])

	// The submitted code must land on disk byte for byte.
	written, readErr := os.ReadFile(filepath.Join(service.workspace.Root(), "test_script.py"))
	require.NoError(t, readErr)
	assert.Equal(t, "print('Hello via POST')", string(written))
}

func TestRunCodeExplicitLanguage(t *testing.T) {
	service := newTestService(t, runner.Options{})

	recorder := service.post(t, `{"code": "print('explicit')", "filename": "test_script.py", "language": "python"}`)

	assert.Equal(t, http.StatusOK, recorder.Code)

	body := decodeBody(t, recorder)
	assert.Equal(t, "success", body["status"])
	assert.Equal(t, "explicit\n", body["stdout"])
}

func TestRunCodeNonZeroExitIsStillSuccess(t *testing.T) {
	service := newTestService(t, runner.Options{})

	recorder := service.post(t, `{"code": "import sys\nsys.exit(1)", "filename": "exit_script.py"}`)

	assert.Equal(t, http.StatusOK, recorder.Code)

	body := decodeBody(t, recorder)
	assert.Equal(t, "success", body["status"])
	assert.Equal(t, "", body["stdout"])
	assert.Equal(t, float64(1), body["return_code"])

	_, hasError := body["error"]
	assert.False(t, hasError)
}

func TestRunCodeValidationFailures(t *testing.T) {
	tests := []struct {
		name              string
		body              string
		wantErrorContains string
	}{{
		name:              "missing code",
		body:              `{"filename": "test_script.py"}`,
		wantErrorContains: "Code",
	}, {
		name:              "missing filename",
		body:              `{"code": "print('hi')"}`,
		wantErrorContains: "Filename",
	}, {
		name:              "empty object",
		body:              `{}`,
		wantErrorContains: "required",
	}, {
		name:              "unsupported language",
		body:              `{"code": "echo hi", "filename": "script.sh", "language": "bash"}`,
		wantErrorContains: "Language",
	}, {
		name:              "parent traversal filename",
		body:              `{"code": "print('hi')", "filename": "../evil_script.py"}`,
		wantErrorContains: "Filename",
	}, {
		name:              "windows style traversal filename",
		body:              `{"code": "print('hi')", "filename": "..\\evil_script.py"}`,
		wantErrorContains: "Filename",
	}, {
		name:              "absolute filename",
		body:              `{"code": "print('hi')", "filename": "/etc/passwd"}`,
		wantErrorContains: "Filename",
	}, {
		name:              "nested filename",
		body:              `{"code": "print('hi')", "filename": "subdir/script.py"}`,
		wantErrorContains: "Filename",
	}, {
		name:              "unknown field",
		body:              `{"code": "print('hi')", "filename": "test_script.py", "bogus": true}`,
		wantErrorContains: "unknown field",
	}, {
		name:              "wrong field type",
		body:              `{"code": 5, "filename": "test_script.py"}`,
		wantErrorContains: "invalid value",
	}}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			service := newTestService(t, runner.Options{InterpreterOverrides: dummyInterpreter})

			recorder := service.post(t, tt.body)

			assert.Equal(t, http.StatusBadRequest, recorder.Code)

			body := decodeBody(t, recorder)
			errMsg, _ := body["error"].(string)
			require.NotEmpty(t, errMsg)
			assert.Contains(t, errMsg, tt.wantErrorContains)

			// Rejected requests must never write anything.
			entries, readErr := os.ReadDir(service.workspace.Root())
			require.NoError(t, readErr)
			assert.Empty(t, entries)
		})
	}
}

func TestRunCodeMalformedBodies(t *testing.T) {
	tests := []struct {
		name              string
		body              string
		wantErrorContains string
	}{{
		name:              "not json at all",
		body:              `this is not json`,
		wantErrorContains: "badly-formed JSON",
	}, {
		name:              "truncated json",
		body:              `{"code": "print('hi')", "filename":`,
		wantErrorContains: "badly-formed JSON",
	}, {
		name:              "empty body",
		body:              ``,
		wantErrorContains: "must not be empty",
	}}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			service := newTestService(t, runner.Options{InterpreterOverrides: dummyInterpreter})

			recorder := service.post(t, tt.body)

			assert.Equal(t, http.StatusBadRequest, recorder.Code)

			body := decodeBody(t, recorder)
			errMsg, _ := body["error"].(string)
			assert.Contains(t, errMsg, tt.wantErrorContains)
		})
	}
}

func TestRunCodeBodyTooLarge(t *testing.T) {
	service := newTestService(t, runner.Options{InterpreterOverrides: dummyInterpreter})
	service.handler.MaxRequestSize = 256

	oversized := fmt.Sprintf(`{"code": %q, "filename": "big_script.py"}`, strings.Repeat("#", 1024))

	recorder := service.post(t, oversized)

	assert.Equal(t, http.StatusRequestEntityTooLarge, recorder.Code)

	body := decodeBody(t, recorder)
	errMsg, _ := body["error"].(string)
	assert.Contains(t, errMsg, "must not be larger")
}

func TestRunCodeSpawnFailure(t *testing.T) {
	service := newTestService(t, runner.Options{
		InterpreterOverrides: map[string][]string{
			runner.DefaultLanguage: {"definitely-not-a-real-interpreter"},
		},
	})

	recorder := service.post(t, `{"code": "print('never runs')", "filename": "test_script.py"}`)

	assert.Equal(t, http.StatusInternalServerError, recorder.Code)

	body := decodeBody(t, recorder)
	assert.Equal(t, "error", body["status"])

	errMsg, _ := body["error"].(string)
	assert.Contains(t, errMsg, "failed to start")

	_, hasReturnCode := body["return_code"]
	assert.False(t, hasReturnCode)

	command, ok := body["command_executed"].([]any)
	require.True(t, ok)
	assert.Len(t, command, 2)
}

func TestRunCodeTimeout(t *testing.T) {
	service := newTestService(t, runner.Options{ExecutionTimeout: 250 * time.Millisecond})

	recorder := service.post(t, `{"code": "import time\ntime.sleep(10)", "filename": "slow_script.py"}`)

	assert.Equal(t, http.StatusRequestTimeout, recorder.Code)

	body := decodeBody(t, recorder)
	assert.Equal(t, "error", body["status"])

	errMsg, _ := body["error"].(string)
	assert.Contains(t, errMsg, "timed out")

	_, hasReturnCode := body["return_code"]
	assert.False(t, hasReturnCode)
}

func TestHealthHandler(t *testing.T) {
	recorder := httptest.NewRecorder()
	HealthHandler{}.ServeHTTP(recorder, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, http.StatusOK, recorder.Code)
	assert.JSONEq(t, `{"status": "ok"}`, recorder.Body.String())
}

func TestLanguagesHandler(t *testing.T) {
	recorder := httptest.NewRecorder()
	LanguagesHandler{}.ServeHTTP(recorder, httptest.NewRequest(http.MethodGet, "/languages", nil))

	assert.Equal(t, http.StatusOK, recorder.Code)

	var body LanguagesResponse
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &body))

	require.Len(t, body.Languages, 1)
	assert.Equal(t, "python", body.Languages[0].Code)
	assert.Equal(t, "Python", body.Languages[0].DisplayName)
}
