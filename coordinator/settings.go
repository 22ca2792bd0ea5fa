package coordinator

import (
	"SmoothMandelbrot/gradient"
	"SmoothMandelbrot/mandelbrot"
	"SmoothMandelbrot/misc"
	"SmoothMandelbrot/task"
	"encoding/json"
	"fmt"
	"os"
	"runtime"
	"time"

	"github.com/BrugadaSyndrome/bslogger"
)

type Settings struct {
	logger bslogger.Logger

	Distributed        bool
	FileName           string
	GradientSettings   gradient.Settings
	MandelbrotSettings mandelbrot.Settings
	RunName            string
	SavePath           string
	ServerAddress      string
	TaskGeneration     task.Generation
	TileSize           uint
	WorkerCount        int
	WorkerTimeout      time.Duration
}

// NewSettings reads settingsFile as JSON and verifies the result. An empty settingsFile yields the defaults.
func NewSettings(settingsFile string) (Settings, error) {
	s := Settings{}
	if settingsFile != "" {
		fileBytes, err := misc.ReadFile(settingsFile)
		if err != nil {
			return s, err
		}
		if err = json.Unmarshal(fileBytes, &s); err != nil {
			return s, fmt.Errorf("unable to parse settings file %s: %w", settingsFile, err)
		}
	}
	if err := s.Verify(); err != nil {
		return s, err
	}
	s.logger.Debug(s.String())
	return s, nil
}

func (s *Settings) String() string {
	output := "\nCoordinator settings\n"
	output += fmt.Sprintf("Distributed: %t\n", s.Distributed)
	output += fmt.Sprintf("File Name: %s\n", s.FileName)
	output += fmt.Sprintf("Run Name: %s\n", s.RunName)
	output += fmt.Sprintf("Save Path: %s\n", s.SavePath)
	output += fmt.Sprintf("My Address: %s\n", s.ServerAddress)
	output += fmt.Sprintf("Task Generation: %s\n", s.TaskGeneration)
	output += fmt.Sprintf("Worker Count: %d\n", s.WorkerCount)
	output += s.MandelbrotSettings.String()
	return output
}

func (s *Settings) Verify() error {
	s.logger = bslogger.NewLogger("CoordinatorSettings", misc.Verbosity, nil)

	if err := s.MandelbrotSettings.Verify(); err != nil {
		return fmt.Errorf("mandelbrot settings: %w", err)
	}
	if err := s.GradientSettings.Verify(); err != nil {
		return fmt.Errorf("gradient settings: %w", err)
	}
	if s.FileName == "" {
		s.FileName = "mandelbrot.png"
	}
	// RunName stays empty unless asked for, so a single render lands directly in SavePath
	if s.SavePath == "" {
		s.SavePath, _ = os.Getwd()
	}
	if s.Distributed && s.ServerAddress == "" {
		s.ServerAddress = fmt.Sprintf("%s:%d", misc.LocalAddressOr("127.0.0.1"), 51000)
	}
	if !s.TaskGeneration.Valid() {
		s.logger.Warningf("Unknown task generation %d, using %s", s.TaskGeneration, task.Row)
		s.TaskGeneration = task.Row
	}
	if s.TileSize == 0 {
		s.TileSize = 64
	}
	if s.WorkerCount < 0 || (s.WorkerCount == 0 && !s.Distributed) {
		s.WorkerCount = runtime.NumCPU()
	}
	if s.WorkerTimeout <= 0 {
		s.WorkerTimeout = time.Minute
	}

	return nil
}
