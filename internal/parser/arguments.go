package parser

import (
	"time"

	"github.com/namsral/flag"
	"github.com/rs/zerolog/log"

	"code-runner/internal/memory"
)

// Arguments carries the service configuration. Every flag can also be set
// through the matching environment variable, e.g. -workspace-path via
// WORKSPACE_PATH.
type Arguments struct {
	Addr          string
	WorkspacePath string

	PythonCommand    string
	ExecutionTimeout time.Duration
	CleanupFiles     bool

	MaxRequestSize int64
	MaxOutputSize  int64
}

func ParseDefaultConfigurationArguments() Arguments {
	args := Arguments{}

	flag.StringVar(&args.Addr, "addr", ":5000", "")
	flag.StringVar(&args.WorkspacePath, "workspace-path", "./workspace", "")

	flag.StringVar(&args.PythonCommand, "python-command", "python", "")
	flag.DurationVar(&args.ExecutionTimeout, "execution-timeout", 0, "")
	flag.BoolVar(&args.CleanupFiles, "cleanup-files", false, "")

	flag.Int64Var(&args.MaxRequestSize, "max-request-size", (2 * memory.Megabyte).Bytes(), "")
	flag.Int64Var(&args.MaxOutputSize, "max-output-size", memory.Megabyte.Bytes(), "")

	flag.Parse()
	log.Info().Msgf("%+v parsed arguments", args)

	return args
}
