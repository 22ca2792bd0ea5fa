package main

import (
	"SmoothMandelbrot/coordinator"
	"SmoothMandelbrot/gradient"
	"SmoothMandelbrot/misc"
	"SmoothMandelbrot/palette"
	"SmoothMandelbrot/worker"
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"github.com/BrugadaSyndrome/bslogger"
	"github.com/joho/godotenv"
)

var (
	coordinatorAddress, mode, settingsFile string
	verbose                                bool
)

func main() {
	// A missing .env file is fine, flags and their defaults still apply
	_ = godotenv.Load()
	parseArguments()
	if verbose {
		misc.Verbose()
	}

	logger := bslogger.NewLogger("Main", misc.Verbosity, nil)

	switch mode {
	case "mandelbrot", "coordinator":
		startCoordinator(logger)
	case "gradient":
		startGradient(logger)
	case "worker":
		startWorker(logger)
	default:
		logger.Fatalf("Unknown mode %q, use mandelbrot, gradient, coordinator or worker", mode)
	}
}

func parseArguments() {
	flag.StringVar(&mode, "mode", envOr("MANDELBROT_MODE", "mandelbrot"), "What to run: mandelbrot, gradient, coordinator or worker")
	flag.StringVar(&settingsFile, "settings", envOr("MANDELBROT_SETTINGS", ""), "Json file with the render settings")
	flag.StringVar(&coordinatorAddress, "coordinatorAddress", envOr("MANDELBROT_COORDINATOR",
		fmt.Sprintf("%s:%d", misc.LocalAddressOr("127.0.0.1"), 51000)), "Address of the coordinator, used by workers")
	flag.BoolVar(&verbose, "verbose", false, "Log debug messages")
	flag.Parse()
}

func envOr(key string, fallback string) string {
	if value, ok := os.LookupEnv(key); ok && value != "" {
		return value
	}
	return fallback
}

func loadSettings(logger bslogger.Logger) coordinator.Settings {
	settings, err := coordinator.NewSettings(settingsFile)
	misc.CheckError(err, logger, misc.Fatal)
	return settings
}

// startCoordinator renders the configured image. The "coordinator" mode is the same render served to remote workers.
func startCoordinator(logger bslogger.Logger) {
	settings := loadSettings(logger)
	if mode == "coordinator" && !settings.Distributed {
		settings.Distributed = true
		misc.CheckError(settings.Verify(), logger, misc.Fatal)
	}

	c := coordinator.NewCoordinator(settings)
	misc.CheckError(c.Run(), logger, misc.Fatal)
}

func startGradient(logger bslogger.Logger) {
	settings := loadSettings(logger)
	strip := gradient.NewStrip(settings.GradientSettings, palette.Gradient())
	path := filepath.Join(settings.SavePath, settings.RunName, settings.GradientSettings.FileName)
	misc.CheckError(os.MkdirAll(filepath.Dir(path), os.ModePerm), logger, misc.Fatal)
	misc.CheckError(strip.RenderToFile(path), logger, misc.Fatal)
}

func startWorker(logger bslogger.Logger) {
	w, err := worker.NewRemoteWorker(coordinatorAddress)
	misc.CheckError(err, logger, misc.Fatal)
	defer func() {
		misc.CheckError(w.Close(), logger, misc.Warning)
	}()

	misc.CheckError(w.ProcessTasks(), logger, misc.Error)
	logger.Infof("Worker finished %d tasks", w.TasksCompleted())
}
