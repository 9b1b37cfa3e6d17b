package main

import (
	"errors"
	"fmt"
	"io"
	"os"

	"go.uber.org/zap"

	"github.com/eugenenazirov/vgconfig/internal/application"
	"github.com/eugenenazirov/vgconfig/internal/config"
	"github.com/eugenenazirov/vgconfig/internal/logging"
)

var newLogger = logging.New

func main() {
	os.Exit(run(os.Args[1:], os.LookupEnv, os.Stdout, os.Stderr))
}

func run(args []string, lookupEnv config.LookupEnvFunc, stdout, stderr io.Writer) int {
	level, _ := lookupEnv(logging.LevelEnv)
	logger, err := newLogger(level)
	if err != nil {
		fmt.Fprintf(stderr, "failed to initialize logger: %v\n", err)
		return 1
	}
	defer func() {
		_ = logger.Sync()
	}()

	app := application.New(logger, stdout)
	if err := app.Run(args, lookupEnv); err != nil {
		if errors.Is(err, config.ErrHelpRequested) {
			return 0
		}
		logger.Error("invalid configuration", zap.Error(err))
		fmt.Fprintln(stderr, err)
		return 1
	}
	return 0
}
