package routing

import (
	"code-runner/internal/runner"
)

// RunResponse is the body returned once a run request made it past
// validation, regardless of how the run itself went. ReturnCode is a
// pointer so that an exit code of zero is still serialized while runs that
// never produced a process omit the field. CommandExecuted is omitted when
// execution stopped before a command line was ever built.
type RunResponse struct {
	Status          runner.Status `json:"status"`
	Stdout          string        `json:"stdout"`
	Stderr          string        `json:"stderr"`
	CommandExecuted []string      `json:"command_executed,omitempty"`
	ReturnCode      *int          `json:"return_code,omitempty"`
	Error           string        `json:"error,omitempty"`
}

// ErrorResponse is the body for requests rejected before execution was
// attempted, e.g. validation failures and undecodable payloads.
type ErrorResponse struct {
	Error string `json:"error"`
}

type HealthResponse struct {
	Status string `json:"status"`
}

// Language describes one entry of the supported language listing.
type Language struct {
	Code        string `json:"code"`
	DisplayName string `json:"display_name"`
}

type LanguagesResponse struct {
	Languages []Language `json:"languages"`
}
