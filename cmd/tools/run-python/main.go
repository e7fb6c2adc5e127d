package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"

	"code-runner/internal/runner"
	"code-runner/internal/workspace"
)

// Small smoke tool that drives the engine directly against a throwaway
// workspace, useful for checking a python installation without standing up
// the HTTP service.
func main() {
	ws, err := workspace.New(filepath.Join(os.TempDir(), "executions", uuid.NewString()))

	if err != nil {
		fmt.Println(err)
		return
	}

	engine := runner.NewEngine(ws, runner.Options{})

	snippets := []struct {
		filename string
		code     string
	}{
		{filename: "hello.py", code: `print("hello")`},
		{filename: "broken.py", code: `print("hello")sdfasdf`},
	}

	for _, snippet := range snippets {
		result := engine.Run(context.Background(), runner.Request{
			ID:       uuid.NewString(),
			Code:     snippet.code,
			Filename: snippet.filename,
			Language: runner.DefaultLanguage,
		})

		fmt.Println("result.Status=", result.Status)
		fmt.Println("result.Stdout=", result.Stdout)
		fmt.Println("result.Stderr=", result.Stderr)
		fmt.Println("result.CommandExecuted=", result.CommandExecuted)
		fmt.Println("result.PeakMemory=", result.PeakMemory)

		if result.ReturnCode != nil {
			fmt.Println("result.ReturnCode=", *result.ReturnCode)
		}
	}

	fmt.Println("finished")
}
