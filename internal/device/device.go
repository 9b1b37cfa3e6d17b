// Package device reports how many compute devices a run will see.
package device

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"time"
)

// VisibleDevicesEnv restricts which CUDA devices a process may use.
const VisibleDevicesEnv = "CUDA_VISIBLE_DEVICES"

const defaultProbeTimeout = 5 * time.Second

// Counter returns the number of compute devices available to the run.
type Counter interface {
	DeviceCount() (int, error)
}

// CounterFunc adapts a function to Counter.
type CounterFunc func() (int, error)

// DeviceCount calls f.
func (f CounterFunc) DeviceCount() (int, error) {
	return f()
}

// Fixed is a Counter that always reports n devices.
type Fixed int

// DeviceCount returns n.
func (n Fixed) DeviceCount() (int, error) {
	return int(n), nil
}

// EnvCounter counts the entries of CUDA_VISIBLE_DEVICES. When the variable is
// unset it defers to Fallback, or reports zero devices without one.
type EnvCounter struct {
	Lookup   func(key string) (string, bool)
	Fallback Counter
}

// DeviceCount implements Counter.
func (c EnvCounter) DeviceCount() (int, error) {
	if c.Lookup != nil {
		if raw, ok := c.Lookup(VisibleDevicesEnv); ok {
			return parseVisibleDevices(raw), nil
		}
	}
	if c.Fallback != nil {
		return c.Fallback.DeviceCount()
	}
	return 0, nil
}

// parseVisibleDevices follows the CUDA runtime: the list stops at the first
// invalid entry, and "-1" or "NoDevFiles" hide every device.
func parseVisibleDevices(raw string) int {
	count := 0
	for _, entry := range strings.Split(raw, ",") {
		entry = strings.TrimSpace(entry)
		if entry == "" || entry == "NoDevFiles" || strings.HasPrefix(entry, "-") {
			break
		}
		count++
	}
	return count
}

// SMICounter lists GPUs with nvidia-smi. A missing binary or a non-zero exit
// status means no GPUs.
type SMICounter struct {
	// Path defaults to "nvidia-smi" resolved through PATH.
	Path    string
	Timeout time.Duration

	run func(ctx context.Context, name string, args ...string) ([]byte, error)
}

// DeviceCount implements Counter.
func (c SMICounter) DeviceCount() (int, error) {
	path := c.Path
	if path == "" {
		path = "nvidia-smi"
	}
	timeout := c.Timeout
	if timeout <= 0 {
		timeout = defaultProbeTimeout
	}
	run := c.run
	if run == nil {
		run = runCommand
	}

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	out, err := run(ctx, path, "-L")
	if err != nil {
		// A missing binary or a failing driver both mean no usable GPU.
		var exitErr *exec.ExitError
		if errors.Is(err, exec.ErrNotFound) || errors.As(err, &exitErr) {
			return 0, nil
		}
		return 0, fmt.Errorf("probe devices with %s: %w", path, err)
	}
	return countGPULines(out), nil
}

func runCommand(ctx context.Context, name string, args ...string) ([]byte, error) {
	return exec.CommandContext(ctx, name, args...).Output()
}

func countGPULines(out []byte) int {
	count := 0
	scanner := bufio.NewScanner(bytes.NewReader(out))
	for scanner.Scan() {
		if strings.HasPrefix(strings.TrimSpace(scanner.Text()), "GPU ") {
			count++
		}
	}
	return count
}
