package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"code-runner/internal/config"
	"code-runner/internal/memory"
	"code-runner/internal/parser"
	"code-runner/internal/routing"
	"code-runner/internal/runner"
	"code-runner/internal/validation"
	"code-runner/internal/workspace"
)

func configureLogging() {
	if config.IsDevelopment() {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	}
}

func main() {
	configureLogging()

	log.Info().
		Str("environment", config.GetCurrentEnvironment()).
		Msg("starting runner-api")

	args := parser.ParseDefaultConfigurationArguments()

	validate, translator, err := validation.New()

	if err != nil {
		log.Fatal().Err(err).Msg("failed to create validator")
	}

	ws, err := workspace.New(args.WorkspacePath)

	if err != nil {
		log.Fatal().Err(err).Msg("failed to create workspace")
	}

	pythonCommand, err := runner.ParseCommand(args.PythonCommand)

	if err != nil {
		log.Fatal().Err(err).Msg("failed to parse python command")
	}

	engine := runner.NewEngine(ws, runner.Options{
		ExecutionTimeout: args.ExecutionTimeout,
		CleanupFiles:     args.CleanupFiles,
		MaxOutputSize:    memory.Memory(args.MaxOutputSize),
		InterpreterOverrides: map[string][]string{
			runner.DefaultLanguage: pythonCommand,
		},
	})

	r := mux.NewRouter()

	r.Handle("/run_code", handlers.
		LoggingHandler(os.Stdout, routing.RunCodeHandler{
			Engine:         engine,
			Workspace:      ws,
			Validator:      validate,
			Translator:     translator,
			MaxRequestSize: args.MaxRequestSize,
		})).
		Methods("POST")

	r.Handle("/languages", handlers.
		LoggingHandler(os.Stdout, routing.LanguagesHandler{})).
		Methods("GET")

	r.Handle("/health", routing.HealthHandler{}).Methods("GET")

	server := &http.Server{
		Addr:    args.Addr,
		Handler: handlers.CompressHandler(r),
	}

	go func() {
		log.Info().
			Str("addr", args.Addr).
			Str("workspace", ws.Root()).
			Msg("listening")

		if listenErr := server.ListenAndServe(); listenErr != nil && listenErr != http.ErrServerClosed {
			log.Fatal().Err(listenErr).Msg("failed to listen")
		}
	}()

	// Block until told to stop, then drain in-flight requests. Executions
	// already running are given the full grace period to finish.
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down runner-api")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if shutdownErr := server.Shutdown(ctx); shutdownErr != nil {
		log.Error().Err(shutdownErr).Msg("failed to shut down cleanly")
	}
}
