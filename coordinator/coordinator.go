package coordinator

import (
	"SmoothMandelbrot/canvas"
	"SmoothMandelbrot/mandelbrot"
	"SmoothMandelbrot/misc"
	"SmoothMandelbrot/rpc"
	"SmoothMandelbrot/task"
	"SmoothMandelbrot/worker"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/BrugadaSyndrome/bslogger"
)

var (
	ErrNoWorkers          = errors.New("no workers registered")
	ErrUnknownWorker      = errors.New("unknown worker")
	ErrWorkersQuit        = errors.New("all workers quit before the image was complete")
	heartBeatInterval     = 30 * time.Second
	deRegisterPollingRate = 50 * time.Millisecond
)

// Coordinator splits one image into tasks, hands them to workers and paints the results. Local workers call its
// methods directly while remote workers reach the same methods over rpc.
type Coordinator struct {
	canvas             *canvas.Canvas
	done               chan struct{}
	ingested           map[uint]bool
	lastSeen           map[string]time.Time
	logFile            *os.File
	logger             bslogger.Logger
	mutex              sync.Mutex
	ready              chan struct{}
	settings           Settings
	taskCount          uint
	taskGeneratedCount uint
	taskIngestedCount  uint
	tasksDone          chan task.Task
	tasksHandedOut     map[string]map[uint]task.Task // keep track of all tasks workers have
	tasksTodo          chan task.Task
	workersSeen        uint

	Server rpc.TcpServer
}

func NewCoordinator(settings Settings) *Coordinator {
	mandelbrotSettings := settings.MandelbrotSettings

	coordinator := &Coordinator{
		canvas:         canvas.NewCanvas(mandelbrotSettings.Width, mandelbrotSettings.Height),
		done:           make(chan struct{}),
		ingested:       make(map[uint]bool),
		lastSeen:       make(map[string]time.Time),
		logger:         bslogger.NewLogger("Coordinator", misc.Verbosity, nil),
		ready:          make(chan struct{}),
		settings:       settings,
		taskCount:      settings.TaskGeneration.Count(mandelbrotSettings.Width, mandelbrotSettings.Height, settings.TileSize),
		tasksDone:      make(chan task.Task, 1000),
		tasksHandedOut: make(map[string]map[uint]task.Task),
		tasksTodo:      make(chan task.Task, 1000),
	}
	if settings.Distributed {
		coordinator.Server = rpc.NewTcpServer(coordinator, settings.ServerAddress, "CoordinatorServer")
	}

	return coordinator
}

// RunDirectory is where the image, the log and the settings backup of this run are written.
func (c *Coordinator) RunDirectory() string {
	return filepath.Join(c.settings.SavePath, c.settings.RunName)
}

// ImagePath is where Run saves the finished image.
func (c *Coordinator) ImagePath() string {
	return filepath.Join(c.RunDirectory(), c.settings.FileName)
}

func (c *Coordinator) Canvas() *canvas.Canvas {
	return c.canvas
}

// Ready closes once Run accepts workers. In distributed mode Server.Address is valid from then on.
func (c *Coordinator) Ready() <-chan struct{} {
	return c.ready
}

// Run renders the image and saves it to ImagePath. It returns once the image is written and the workers have been
// told there is nothing left to do.
func (c *Coordinator) Run() error {
	startTime := time.Now()
	if err := c.prepareRunDirectory(); err != nil {
		return err
	}
	defer c.closeLogFile()

	c.logger.Infof("Rendering %dx%d in %d tasks by %s", c.settings.MandelbrotSettings.Width,
		c.settings.MandelbrotSettings.Height, c.taskCount, c.settings.TaskGeneration)

	// Start up the rpc tcp server to allow workers to communicate with the coordinator
	if c.settings.Distributed {
		if err := c.Server.Run(); err != nil {
			return fmt.Errorf("unable to start coordinator server: %w", err)
		}
		defer func() {
			misc.CheckError(c.Server.Stop(), c.logger, misc.Warning)
		}()
	}

	go c.generateTasks()
	localWorkers := c.startLocalWorkers()
	close(c.ready)

	err := c.ingestTasks(localWorkers)
	close(c.done)
	if err != nil {
		return err
	}

	if err = c.canvas.Save(c.ImagePath()); err != nil {
		return fmt.Errorf("unable to save image: %w", err)
	}
	c.logger.Infof("Saved image to %s in %s", c.ImagePath(), time.Since(startTime))

	<-localWorkers
	c.waitForWorkersToLeave()
	return nil
}

func (c *Coordinator) prepareRunDirectory() error {
	// Create directory to store files for this run
	if err := os.MkdirAll(c.RunDirectory(), os.ModePerm); err != nil {
		return fmt.Errorf("unable to create folder %s: %w", c.RunDirectory(), err)
	}
	if c.settings.RunName == "" {
		return nil
	}

	// Copy the settings to the directory so the run can be duplicated in the future
	settingsCopy := c.settings
	settingsCopy.MandelbrotSettings.Palette = nil
	bytes, err := json.MarshalIndent(settingsCopy, "", "  ")
	if err != nil {
		return err
	}
	bytesWritten, err := misc.WriteFile(filepath.Join(c.RunDirectory(), "settings.json"), bytes)
	if err != nil || bytesWritten == 0 {
		c.logger.Warningf("Unable to make a backup copy of the settings: %s", err)
	}

	// Create a log file to record the run
	logFile, err := os.Create(filepath.Join(c.RunDirectory(), "coordinator.log"))
	if err != nil {
		c.logger.Warningf("Unable to create log file: %s", err)
		return nil
	}
	c.logFile = logFile
	c.logger = bslogger.NewLogger("Coordinator", misc.Verbosity, logFile)
	return nil
}

func (c *Coordinator) closeLogFile() {
	if c.logFile != nil {
		misc.CheckError(c.logFile.Close(), c.logger, misc.Warning)
	}
}

// startLocalWorkers starts the configured number of in-process workers. The returned channel closes once all of them
// have stopped.
func (c *Coordinator) startLocalWorkers() <-chan struct{} {
	var workerWait sync.WaitGroup
	for i := 0; i < c.settings.WorkerCount; i++ {
		w, err := worker.NewWorker(fmt.Sprintf("local-%d", i), c)
		if err != nil {
			c.logger.Errorf("Unable to start local worker %d: %s", i, err)
			continue
		}
		workerWait.Add(1)
		go func() {
			defer workerWait.Done()
			misc.CheckError(w.ProcessTasks(), c.logger, misc.Error)
		}()
	}

	stopped := make(chan struct{})
	go func() {
		workerWait.Wait()
		close(stopped)
	}()
	return stopped
}

func (c *Coordinator) generateTasks() {
	c.logger.Debug("Generating tasks")
	startTime := time.Now()

	settings := c.settings.MandelbrotSettings
	var n uint
	for n = 0; n < c.taskCount; n++ {
		todo := task.NewTask(n, 1)
		switch c.settings.TaskGeneration {
		case task.Row:
			todo.AddTasksForRow(n, settings.Width)
		case task.Column:
			todo.AddTasksForColumn(settings.Height, n)
		case task.Image:
			todo.AddTasksForImage(settings.Height, settings.Width)
		case task.Tile:
			todo.AddTasksForTile(settings.Height, settings.Width, c.settings.TileSize, n)
		}

		select {
		case c.tasksTodo <- todo:
			c.mutex.Lock()
			c.taskGeneratedCount++
			c.mutex.Unlock()
		case <-c.done:
			return
		}
	}

	c.logger.Debugf("Done generating %d tasks in %s", c.taskCount, time.Since(startTime))
}

// ingestTasks paints returned tasks until every pixel is on the canvas.
func (c *Coordinator) ingestTasks(localWorkers <-chan struct{}) error {
	c.logger.Debug("Ingesting tasks")
	startTime := time.Now()

	heartBeat := time.NewTicker(heartBeatInterval)
	defer heartBeat.Stop()

	// Local workers alone can never finish the image once they all quit
	var workersQuit <-chan struct{}
	if !c.settings.Distributed {
		workersQuit = localWorkers
	}

	var noWorkers, rollCall <-chan time.Time
	if c.settings.Distributed {
		timer := time.NewTimer(c.settings.WorkerTimeout)
		defer timer.Stop()
		noWorkers = timer.C

		// Remote workers can vanish without deregistering, taking their tasks with them
		rollCallTicker := time.NewTicker(c.rollCallInterval())
		defer rollCallTicker.Stop()
		rollCall = rollCallTicker.C
	}

	for !c.canvas.Complete() {
		select {
		case done := <-c.tasksDone:
			c.ingest(done)

		case <-heartBeat.C:
			c.logger.Info(c.progress())

		case <-rollCall:
			c.dropSilentWorkers()

		case <-noWorkers:
			c.mutex.Lock()
			seen := c.workersSeen
			c.mutex.Unlock()
			if seen == 0 {
				return fmt.Errorf("%w within %s", ErrNoWorkers, c.settings.WorkerTimeout)
			}
			noWorkers = nil

		case <-workersQuit:
			for len(c.tasksDone) > 0 {
				c.ingest(<-c.tasksDone)
			}
			if !c.canvas.Complete() {
				return fmt.Errorf("%w: %d pixels left", ErrWorkersQuit, c.canvas.PixelsLeft())
			}
		}
	}

	c.logger.Debugf("Done ingesting %d tasks in %s", c.taskIngestedCount, time.Since(startTime))
	return nil
}

func (c *Coordinator) ingest(done task.Task) {
	// A task can come back twice when its first worker left after returning it
	if c.ingested[done.ID] {
		c.logger.Debugf("Dropping duplicate task %d from %s", done.ID, done.WorkerAddress)
		return
	}
	c.ingested[done.ID] = true

	for _, result := range done.Results {
		c.canvas.Paint(int(result.Column), int(result.Row), result.Color)
	}

	c.mutex.Lock()
	c.taskIngestedCount++
	c.mutex.Unlock()
}

func (c *Coordinator) progress() string {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	return fmt.Sprintf("Tasks [Generated: %d] [Ingested: %d] [Total: %d] | Workers [%d] | Pixels left [%d]",
		c.taskGeneratedCount, c.taskIngestedCount, c.taskCount, len(c.tasksHandedOut), c.canvas.PixelsLeft())
}

// waitForWorkersToLeave gives registered workers the chance to deregister before the server goes away.
func (c *Coordinator) waitForWorkersToLeave() {
	deadline := time.Now().Add(c.settings.WorkerTimeout)
	for time.Now().Before(deadline) {
		c.mutex.Lock()
		left := len(c.tasksHandedOut)
		c.mutex.Unlock()
		if left == 0 {
			return
		}
		c.dropSilentWorkers()
		time.Sleep(deRegisterPollingRate)
	}
	c.logger.Warningf("Stopped waiting for workers to disconnect after %s", c.settings.WorkerTimeout)
}

// rollCallInterval is how often workers answer roll call. Several answers fit in one WorkerTimeout so a single late
// one does not get a worker dropped.
func (c *Coordinator) rollCallInterval() time.Duration {
	if interval := c.settings.WorkerTimeout / 4; interval > time.Millisecond {
		return interval
	}
	return time.Millisecond
}

// dropSilentWorkers deregisters every worker not heard from within WorkerTimeout, which puts its tasks back.
func (c *Coordinator) dropSilentWorkers() {
	now := time.Now()
	var silent []string
	c.mutex.Lock()
	for address, seen := range c.lastSeen {
		if now.Sub(seen) > c.settings.WorkerTimeout {
			silent = append(silent, address)
		}
	}
	c.mutex.Unlock()

	var nothing misc.Nothing
	for _, address := range silent {
		c.logger.Warningf("Worker %s missed roll call", address)
		misc.CheckError(c.DeRegisterWorker(address, &nothing), c.logger, misc.Warning)
	}
}

// seen records that workerAddress is alive. The caller holds the mutex.
func (c *Coordinator) seen(workerAddress string) {
	if _, ok := c.tasksHandedOut[workerAddress]; ok {
		c.lastSeen[workerAddress] = time.Now()
	}
}

func (c *Coordinator) RegisterWorker(workerAddress string, reply *misc.Nothing) error {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	// Track all tasks this worker checks out
	if _, ok := c.tasksHandedOut[workerAddress]; !ok {
		c.tasksHandedOut[workerAddress] = make(map[uint]task.Task)
	}
	c.workersSeen++
	c.seen(workerAddress)

	c.logger.Infof("Worker joined: %s", workerAddress)
	return nil
}

func (c *Coordinator) DeRegisterWorker(workerAddress string, reply *misc.Nothing) error {
	c.mutex.Lock()
	tasks, ok := c.tasksHandedOut[workerAddress]
	delete(c.tasksHandedOut, workerAddress)
	delete(c.lastSeen, workerAddress)
	c.mutex.Unlock()
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownWorker, workerAddress)
	}

	// Put tasks this worker has not returned yet back into the tasksTodo pool
	if len(tasks) > 0 {
		c.logger.Warningf("Worker %s left with %d tasks, putting them back", workerAddress, len(tasks))
		go func(tasks map[uint]task.Task) {
			for _, v := range tasks {
				select {
				case c.tasksTodo <- v:
				case <-c.done:
					return
				}
			}
		}(tasks)
	}

	c.logger.Infof("Worker left: %s", workerAddress)
	return nil
}

// RollCall keeps a worker from being dropped as silent. The reply is how often the worker should answer.
func (c *Coordinator) RollCall(workerAddress string, interval *time.Duration) error {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	if _, ok := c.tasksHandedOut[workerAddress]; !ok {
		return fmt.Errorf("%w: %s", ErrUnknownWorker, workerAddress)
	}
	c.seen(workerAddress)
	*interval = c.rollCallInterval()
	return nil
}

// GetTask blocks until a task is available. Once the image is complete it fails with task.ErrAllTasksHandedOut.
func (c *Coordinator) GetTask(workerAddress string, todo *task.Task) error {
	select {
	case <-c.done:
		return task.ErrAllTasksHandedOut
	default:
	}

	select {
	case next := <-c.tasksTodo:
		c.mutex.Lock()
		defer c.mutex.Unlock()
		handedOut, ok := c.tasksHandedOut[workerAddress]
		if !ok {
			go func() {
				select {
				case c.tasksTodo <- next:
				case <-c.done:
				}
			}()
			return fmt.Errorf("%w: %s", ErrUnknownWorker, workerAddress)
		}
		next.WorkerAddress = workerAddress
		handedOut[next.ID] = next
		c.seen(workerAddress)
		*todo = next
		return nil

	case <-c.done:
		c.logger.Debugf("Telling worker %s that all tasks are handed out", workerAddress)
		return task.ErrAllTasksHandedOut
	}
}

func (c *Coordinator) ReturnTask(done task.Task, nothing *misc.Nothing) error {
	c.mutex.Lock()
	if handedOut, ok := c.tasksHandedOut[done.WorkerAddress]; ok {
		delete(handedOut, done.ID)
	}
	c.seen(done.WorkerAddress)
	c.mutex.Unlock()

	select {
	case c.tasksDone <- done:
	case <-c.done:
	}
	return nil
}

func (c *Coordinator) GetMandelbrotSettings(nothing misc.Nothing, settings *mandelbrot.Settings) error {
	*settings = c.settings.MandelbrotSettings
	return nil
}
