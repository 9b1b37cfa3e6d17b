package main

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"

	"github.com/eugenenazirov/vgconfig/internal/config"
	"github.com/eugenenazirov/vgconfig/internal/logging"
)

func useTestLogger(t *testing.T) {
	t.Helper()
	original := newLogger
	newLogger = func(string) (*zap.Logger, error) {
		return zaptest.NewLogger(t), nil
	}
	t.Cleanup(func() {
		newLogger = original
	})
}

func TestRun(t *testing.T) {
	useTestLogger(t)

	tests := []struct {
		name       string
		args       []string
		env        map[string]string
		wantCode   int
		wantStdout string
		wantStderr string
	}{
		{
			name:       "prints manifest",
			args:       []string{"--train_batch_size", "8"},
			env:        map[string]string{config.DatasetsFolderEnv: "/data"},
			wantStdout: "train_batch_size: 8",
		},
		{
			name:       "help",
			args:       []string{"--help"},
			wantStdout: "--datasets_folder",
		},
		{
			name:       "missing datasets folder",
			wantCode:   1,
			wantStderr: "DATASETS_FOLDER",
		},
		{
			name:       "bad choice",
			args:       []string{"--datasets_folder", "/d", "--optim", "rmsprop"},
			wantCode:   1,
			wantStderr: `invalid choice "rmsprop"`,
		},
		{
			name: "sare on two visible devices",
			args: []string{"--datasets_folder", "/d", "--criterion", "sare_ind"},
			env: map[string]string{
				"CUDA_VISIBLE_DEVICES": "0,1",
			},
			wantCode:   1,
			wantStderr: "you're using 2 GPUs",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			var stdout, stderr bytes.Buffer
			code := run(tc.args, config.MapEnv(tc.env), &stdout, &stderr)

			assert.Equal(t, tc.wantCode, code, "stderr: %s", stderr.String())
			assert.Contains(t, stdout.String(), tc.wantStdout)
			assert.Contains(t, stderr.String(), tc.wantStderr)
		})
	}
}

func TestRunRejectsLogLevel(t *testing.T) {
	var stdout, stderr bytes.Buffer
	env := config.MapEnv(map[string]string{logging.LevelEnv: "loud"})

	assert.Equal(t, 1, run(nil, env, &stdout, &stderr))
	assert.Contains(t, stderr.String(), "failed to initialize logger")
}
