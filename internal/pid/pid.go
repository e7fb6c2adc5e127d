// Package pid samples process statistics from /proc, used to report how
// much memory an execution actually used.
//
// PROC Reference - https://man7.org/linux/man-pages/man5/proc.5.html
package pid

import (
	"os"
	"path"
	"runtime"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"

	"code-runner/internal/memory"
)

// rssFieldIndex is the position of rss within /proc/<pid>/stat counted from
// the field following comm. Fields are only position stable after the
// closing parenthesis since comm may itself contain spaces.
const rssFieldIndex = 21

const sampleInterval = 50 * time.Millisecond

var pageSize = int64(os.Getpagesize())

// statMemory reads the current resident set size of the given process.
func statMemory(pidValue int) (memory.Memory, error) {
	raw, err := os.ReadFile(path.Join("/proc", strconv.Itoa(pidValue), "stat"))

	if err != nil {
		return 0, errors.Wrapf(err, "failed to read stat for pid %d", pidValue)
	}

	content := string(raw)
	closing := strings.LastIndexByte(content, ')')

	if closing < 0 {
		return 0, errors.Errorf("malformed stat for pid %d", pidValue)
	}

	fields := strings.Fields(content[closing+1:])

	if len(fields) <= rssFieldIndex {
		return 0, errors.Errorf("malformed stat for pid %d", pidValue)
	}

	rssPages, parseErr := strconv.ParseInt(fields[rssFieldIndex], 10, 64)

	if parseErr != nil {
		return 0, errors.Wrapf(parseErr, "failed to parse rss for pid %d", pidValue)
	}

	return memory.Memory(rssPages * pageSize), nil
}

// PeakMemory samples the resident set size of the given process until done
// is closed, then delivers the highest value seen and closes the channel.
// Platforms without /proc simply deliver zero, the value is telemetry and
// never gates an execution.
func PeakMemory(done <-chan struct{}, pidValue int) <-chan memory.Memory {
	result := make(chan memory.Memory, 1)

	go func() {
		defer close(result)

		if runtime.GOOS != "linux" {
			<-done
			result <- 0
			return
		}

		ticker := time.NewTicker(sampleInterval)
		defer ticker.Stop()

		var peak memory.Memory

		for {
			if current, err := statMemory(pidValue); err == nil && current > peak {
				peak = current
			}

			select {
			case <-done:
				result <- peak
				return
			case <-ticker.C:
			}
		}
	}()

	return result
}
