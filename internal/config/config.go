package config

import (
	"os"
	"sync"
)

var currentEnvironment = ""

const DefaultEnvironment = "development"

// envOnce is used to ensure concurrent callers only pull the value once at startup. While it is
// mainly used for tests, it also ensures safety with the chance the value is overwritten during
// runtime.
var envOnce sync.Once

// GetCurrentEnvironment returns the environment the service was started in,
// read from the `environment` variable. Anything other than the known
// environments falls back to development.
func GetCurrentEnvironment() string {
	envOnce.Do(func() {
		currentEnvironment = os.Getenv("environment")

		if currentEnvironment == "" {
			currentEnvironment = DefaultEnvironment
			return
		}

		for _, s := range []string{"staging", "production", "development"} {
			if currentEnvironment == s {
				return
			}
		}

		currentEnvironment = DefaultEnvironment
	})

	return currentEnvironment
}

// IsDevelopment returns true if the service is running in the development
// environment, which swaps logging over to the human readable console
// writer.
func IsDevelopment() bool {
	return GetCurrentEnvironment() == DefaultEnvironment
}
