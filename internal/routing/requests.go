package routing

// RunRequest is the body accepted by POST /run_code. The json field names
// are part of the wire contract. Language may be left out entirely, in
// which case the service falls back to python.
type RunRequest struct {
	Code     string `json:"code" validate:"required"`
	Filename string `json:"filename" validate:"required,bare_filename"`
	Language string `json:"language" validate:"omitempty,oneof=python"`
}
