package application

import (
	"fmt"
	"io"

	"go.uber.org/zap"

	"github.com/eugenenazirov/vgconfig/internal/config"
	"github.com/eugenenazirov/vgconfig/internal/device"
)

// App resolves a run configuration and publishes it as a YAML manifest.
type App struct {
	logger   *zap.Logger
	stdout   io.Writer
	fallback device.Counter
}

// New builds an App that writes manifests and help output to stdout. Devices
// are counted from CUDA_VISIBLE_DEVICES, falling back to nvidia-smi.
func New(logger *zap.Logger, stdout io.Writer) *App {
	return &App{
		logger:   logger,
		stdout:   stdout,
		fallback: device.SMICounter{},
	}
}

// Run loads the configuration from args and lookupEnv and writes its manifest.
// It returns config.ErrHelpRequested after printing usage for --help.
func (a *App) Run(args []string, lookupEnv config.LookupEnvFunc) error {
	counter := device.EnvCounter{Lookup: lookupEnv, Fallback: a.fallback}
	cfg, err := config.Load(args, lookupEnv,
		config.WithDeviceCounter(counter),
		config.WithLogger(a.logger),
		config.WithUsageWriter(a.stdout),
	)
	if err != nil {
		return err
	}
	a.logger.Info("configuration resolved", zap.Object("config", cfg))

	data, err := config.Marshal(cfg)
	if err != nil {
		return err
	}
	if _, err := a.stdout.Write(data); err != nil {
		return fmt.Errorf("write manifest: %w", err)
	}
	return nil
}
