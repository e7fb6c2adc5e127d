package runner

import (
	"sort"

	"github.com/google/shlex"
	"github.com/pkg/errors"
)

type Interpreter struct {
	// The language that the given interpreter is going to be running. This can
	// be seen as the kind of code that is going to be executed by the
	// requesting machine. e.g Python, Node, Ruby.
	Language string
	// Command is the argv prefix used to launch the interpreter, the
	// materialized file path is appended as the final argument. It is executed
	// directly with no shell in between, so the reported command line is
	// exactly what runs.
	Command []string
}

// DefaultLanguage is applied when a request leaves the language field unset.
const DefaultLanguage = "python"

// Interpreters maps the wire-level language code onto the interpreter used
// to run it. The table is shaped to take more entries but python is the only
// language currently supported.
var Interpreters = map[string]Interpreter{
	"python": {
		Language: "Python",
		Command:  []string{"python"},
	},
}

// Supported returns the supported language codes in a stable order.
func Supported() []string {
	codes := make([]string, 0, len(Interpreters))

	for code := range Interpreters {
		codes = append(codes, code)
	}

	sort.Strings(codes)

	return codes
}

// ParseCommand splits a configured interpreter command line, e.g.
// "python3 -u", into the argv prefix used to launch it. Splitting follows
// shell quoting rules so interpreter paths containing spaces can still be
// configured.
func ParseCommand(command string) ([]string, error) {
	fields, err := shlex.Split(command)

	if err != nil {
		return nil, errors.Wrapf(err, "failed to parse interpreter command %q", command)
	}

	if len(fields) == 0 {
		return nil, errors.Errorf("interpreter command %q is empty", command)
	}

	return fields, nil
}
