package worker

import (
	"SmoothMandelbrot/mandelbrot"
	"SmoothMandelbrot/misc"
	"SmoothMandelbrot/task"
	"errors"
	"fmt"
	"time"

	"github.com/BrugadaSyndrome/bslogger"
)

// TaskSource hands out tasks and takes back their results. The coordinator implements it directly for local workers
// and RemoteSource forwards it over rpc for remote ones.
type TaskSource interface {
	RegisterWorker(workerAddress string, reply *misc.Nothing) error
	DeRegisterWorker(workerAddress string, reply *misc.Nothing) error
	GetMandelbrotSettings(nothing misc.Nothing, settings *mandelbrot.Settings) error
	GetTask(workerAddress string, todo *task.Task) error
	ReturnTask(done task.Task, reply *misc.Nothing) error
	RollCall(workerAddress string, interval *time.Duration) error
}

type Worker struct {
	address          string
	logger           bslogger.Logger
	mandelbrot       mandelbrot.Mandelbrot
	rollCallInterval time.Duration
	source           TaskSource
	tasksCompleted   int
}

// NewWorker registers with source and fetches the settings every pixel is rendered with.
func NewWorker(address string, source TaskSource) (*Worker, error) {
	worker := &Worker{
		address: address,
		logger:  bslogger.NewLogger(fmt.Sprintf("Worker %s", address), misc.Verbosity, nil),
		source:  source,
	}

	var nothing misc.Nothing
	if err := source.RegisterWorker(address, &nothing); err != nil {
		return nil, fmt.Errorf("unable to register worker %s - %w", address, err)
	}

	var settings mandelbrot.Settings
	if err := source.GetMandelbrotSettings(nothing, &settings); err != nil {
		source.DeRegisterWorker(address, &nothing)
		return nil, fmt.Errorf("unable to get mandelbrot settings - %w", err)
	}
	if len(settings.Palette) == 0 {
		source.DeRegisterWorker(address, &nothing)
		return nil, errors.New("coordinator sent settings without a palette")
	}
	worker.mandelbrot = mandelbrot.NewMandelbrot(settings)

	// The first answer tells the worker how often the source expects to hear from it
	if err := source.RollCall(address, &worker.rollCallInterval); err != nil {
		source.DeRegisterWorker(address, &nothing)
		return nil, fmt.Errorf("unable to answer roll call - %w", err)
	}

	return worker, nil
}

func (w *Worker) TasksCompleted() int {
	return w.tasksCompleted
}

// Process fills in a result for every coordinate of todo that does not have one yet.
func (w *Worker) Process(todo *task.Task) {
	for {
		coordinate, err := todo.GetNextTask()
		if err != nil {
			break
		}

		todo.AddResult(task.Pixel{
			Color:  w.mandelbrot.GetPixelColor(coordinate),
			Column: coordinate.Column,
			Row:    coordinate.Row,
		})
	}
}

// ProcessTasks pulls tasks until the source runs out, then deregisters. It returns early with an error if a task
// cannot be fetched or returned; the source puts any task this worker still holds back in the queue.
func (w *Worker) ProcessTasks() error {
	w.logger.Debug("Processing tasks")

	var nothing misc.Nothing
	startTime := time.Now()
	defer func() {
		w.logger.Debugf("Processed %d tasks in %s", w.tasksCompleted, time.Since(startTime))
		misc.CheckError(w.source.DeRegisterWorker(w.address, &nothing), w.logger, misc.Warning)
	}()

	stopRollCall := make(chan struct{})
	defer close(stopRollCall)
	go w.answerRollCalls(stopRollCall)

	for {
		var todo task.Task
		err := w.source.GetTask(w.address, &todo)
		if err != nil {
			// This is an expected error. No more work to do
			if IsAllTasksHandedOut(err) {
				return nil
			}
			w.logger.Errorf("Unable to get a task: %s", err)
			return err
		}

		w.Process(&todo)

		err = w.source.ReturnTask(todo, &nothing)
		if err != nil {
			w.logger.Errorf("Unable to return task %d: %s", todo.ID, err)
			return err
		}
		w.tasksCompleted++
	}
}

// answerRollCalls keeps telling the source this worker is alive, also while it is blocked waiting for a task.
func (w *Worker) answerRollCalls(stop <-chan struct{}) {
	if w.rollCallInterval <= 0 {
		return
	}
	ticker := time.NewTicker(w.rollCallInterval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			var interval time.Duration
			if err := w.source.RollCall(w.address, &interval); err != nil {
				w.logger.Warningf("Missed roll call: %s", err)
			}
		}
	}
}

// IsAllTasksHandedOut also recognises the error after it went through rpc, where only its text survives.
func IsAllTasksHandedOut(err error) bool {
	return errors.Is(err, task.ErrAllTasksHandedOut) || (err != nil && err.Error() == task.ErrAllTasksHandedOut.Error())
}
