package coordinator

import (
	"SmoothMandelbrot/mandelbrot"
	"SmoothMandelbrot/misc"
	"SmoothMandelbrot/rpc"
	"SmoothMandelbrot/task"
	"SmoothMandelbrot/worker"
	"image/png"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func smallSettings(t *testing.T, generation task.Generation) Settings {
	t.Helper()
	s := Settings{
		MandelbrotSettings: mandelbrot.Settings{Width: 24, Height: 16, MaxIterations: 100},
		SavePath:           t.TempDir(),
		TaskGeneration:     generation,
		TileSize:           5,
		WorkerCount:        3,
	}
	require.NoError(t, s.Verify())
	return s
}

// assertRendered compares the saved image against every pixel computed directly.
func assertRendered(t *testing.T, c *Coordinator, settings Settings) {
	t.Helper()
	f, err := os.Open(c.ImagePath())
	require.NoError(t, err)
	defer f.Close()
	img, err := png.Decode(f)
	require.NoError(t, err)

	m := mandelbrot.NewMandelbrot(settings.MandelbrotSettings)
	var row, column uint
	for row = 0; row < settings.MandelbrotSettings.Height; row++ {
		for column = 0; column < settings.MandelbrotSettings.Width; column++ {
			want := m.GetPixelColor(task.Coordinate{Column: column, Row: row})
			r, g, b, a := img.At(int(column), int(row)).RGBA()
			require.Equal(t, []uint8{want.R, want.G, want.B, want.A},
				[]uint8{uint8(r >> 8), uint8(g >> 8), uint8(b >> 8), uint8(a >> 8)}, "pixel (%d, %d)", column, row)
		}
	}
}

func TestSettingsDefaults(t *testing.T) {
	s, err := NewSettings("")
	require.NoError(t, err)
	assert.Equal(t, "mandelbrot.png", s.FileName)
	assert.Equal(t, task.Row, s.TaskGeneration)
	assert.Equal(t, uint(64), s.TileSize)
	assert.Positive(t, s.WorkerCount)
	assert.Empty(t, s.ServerAddress)
	assert.Equal(t, uint(1920), s.MandelbrotSettings.Width)
	assert.Equal(t, uint(4008), s.GradientSettings.Width)
	assert.NotEmpty(t, s.SavePath)
}

func TestSettingsFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.json")
	_, err := misc.WriteFile(path, []byte(`{
		"Distributed": true,
		"RunName": "small",
		"TaskGeneration": 7,
		"MandelbrotSettings": {"Width": 32, "Height": 20, "Coloring": "cyclic"}
	}`))
	require.NoError(t, err)

	s, err := NewSettings(path)
	require.NoError(t, err)
	assert.True(t, s.Distributed)
	assert.Equal(t, "small", s.RunName)
	assert.Equal(t, task.Row, s.TaskGeneration)
	assert.Contains(t, s.ServerAddress, ":51000")
	assert.Zero(t, s.WorkerCount)
	assert.Equal(t, uint(32), s.MandelbrotSettings.Width)
	assert.Len(t, s.MandelbrotSettings.Palette, 16)
}

func TestSettingsErrors(t *testing.T) {
	_, err := NewSettings(filepath.Join(t.TempDir(), "missing.json"))
	assert.Error(t, err)

	path := filepath.Join(t.TempDir(), "broken.json")
	_, err = misc.WriteFile(path, []byte(`{"MandelbrotSettings": `))
	require.NoError(t, err)
	_, err = NewSettings(path)
	assert.Error(t, err)

	_, err = misc.WriteFile(path, []byte(`{"MandelbrotSettings": {"XMin": 1, "XMax": -1}}`))
	require.NoError(t, err)
	_, err = NewSettings(path)
	assert.ErrorIs(t, err, mandelbrot.ErrInvalidBounds)
}

func TestLocalRender(t *testing.T) {
	for _, generation := range []task.Generation{task.Row, task.Column, task.Image, task.Tile} {
		t.Run(generation.String(), func(t *testing.T) {
			settings := smallSettings(t, generation)
			c := NewCoordinator(settings)
			require.NoError(t, c.Run())
			assert.True(t, c.Canvas().Complete())
			assertRendered(t, c, settings)
		})
	}
}

func TestRunDirectoryKeepsLogAndSettings(t *testing.T) {
	settings := smallSettings(t, task.Row)
	settings.RunName = "run"
	c := NewCoordinator(settings)
	require.NoError(t, c.Run())

	for _, name := range []string{"mandelbrot.png", "coordinator.log", "settings.json"} {
		_, err := os.Stat(filepath.Join(settings.SavePath, "run", name))
		assert.NoError(t, err, name)
	}
}

func TestDeRegisterPutsTasksBack(t *testing.T) {
	settings := smallSettings(t, task.Row)
	c := NewCoordinator(settings)
	go c.generateTasks()
	defer close(c.done)

	var nothing misc.Nothing
	require.NoError(t, c.RegisterWorker("quitter", &nothing))
	var first task.Task
	require.NoError(t, c.GetTask("quitter", &first))
	require.NoError(t, c.DeRegisterWorker("quitter", &nothing))
	assert.ErrorIs(t, c.DeRegisterWorker("quitter", &nothing), ErrUnknownWorker)

	var todo task.Task
	assert.ErrorIs(t, c.GetTask("quitter", &todo), ErrUnknownWorker)

	// every row still comes out exactly once
	require.NoError(t, c.RegisterWorker("stayer", &nothing))
	seen := make(map[uint]bool)
	for len(seen) < int(settings.MandelbrotSettings.Height) {
		var next task.Task
		require.NoError(t, c.GetTask("stayer", &next))
		assert.Equal(t, "stayer", next.WorkerAddress)
		seen[next.ID] = true
	}
	assert.True(t, seen[first.ID])
}

func TestIngestDropsDuplicates(t *testing.T) {
	settings := smallSettings(t, task.Row)
	c := NewCoordinator(settings)

	done := task.NewTask(0, 1)
	done.AddTasksForRow(0, settings.MandelbrotSettings.Width)
	for _, coordinate := range done.Tasks {
		done.AddResult(task.Pixel{Column: coordinate.Column, Row: coordinate.Row})
	}
	c.ingest(done)
	c.ingest(done)
	assert.Equal(t, uint(1), c.taskIngestedCount)
	assert.Equal(t, (settings.MandelbrotSettings.Height-1)*settings.MandelbrotSettings.Width, c.Canvas().PixelsLeft())
}

func TestGetTaskAfterDone(t *testing.T) {
	c := NewCoordinator(smallSettings(t, task.Image))
	close(c.done)

	var todo task.Task
	assert.ErrorIs(t, c.GetTask("late", &todo), task.ErrAllTasksHandedOut)
	var nothing misc.Nothing
	assert.NoError(t, c.ReturnTask(todo, &nothing))
}

func TestDistributedRender(t *testing.T) {
	settings := smallSettings(t, task.Row)
	settings.Distributed = true
	settings.ServerAddress = "127.0.0.1:0"
	settings.WorkerCount = 0
	settings.WorkerTimeout = 10 * time.Second

	c := NewCoordinator(settings)
	result := make(chan error, 1)
	go func() { result <- c.Run() }()

	select {
	case <-c.Ready():
	case err := <-result:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		require.FailNow(t, "coordinator did not start")
	}

	remote, err := worker.NewRemoteWorker(c.Server.Address())
	require.NoError(t, err)
	require.NoError(t, remote.ProcessTasks())
	assert.Equal(t, int(settings.MandelbrotSettings.Height), remote.TasksCompleted())
	require.NoError(t, remote.Close())

	select {
	case err := <-result:
		require.NoError(t, err)
	case <-time.After(10 * time.Second):
		require.FailNow(t, "coordinator did not finish")
	}
	assertRendered(t, c, settings)
}

func TestDistributedWithoutWorkers(t *testing.T) {
	settings := smallSettings(t, task.Row)
	settings.Distributed = true
	settings.ServerAddress = "127.0.0.1:0"
	settings.WorkerCount = 0
	settings.WorkerTimeout = 100 * time.Millisecond

	c := NewCoordinator(settings)
	assert.ErrorIs(t, c.Run(), ErrNoWorkers)
}

func TestSilentWorkerTasksAreRequeued(t *testing.T) {
	settings := smallSettings(t, task.Row)
	settings.WorkerTimeout = time.Second
	c := NewCoordinator(settings)
	go c.generateTasks()
	defer close(c.done)

	var nothing misc.Nothing
	require.NoError(t, c.RegisterWorker("silent", &nothing))
	require.NoError(t, c.RegisterWorker("chatty", &nothing))
	var held task.Task
	require.NoError(t, c.GetTask("silent", &held))

	var interval time.Duration
	require.NoError(t, c.RollCall("chatty", &interval))
	assert.Equal(t, 250*time.Millisecond, interval)
	assert.ErrorIs(t, c.RollCall("stranger", &interval), ErrUnknownWorker)

	// nobody is dropped while they are within the timeout
	c.dropSilentWorkers()
	assert.NoError(t, c.RollCall("silent", &interval))

	c.mutex.Lock()
	c.lastSeen["silent"] = time.Now().Add(-2 * time.Second)
	c.mutex.Unlock()
	c.dropSilentWorkers()

	assert.ErrorIs(t, c.RollCall("silent", &interval), ErrUnknownWorker)
	require.NoError(t, c.RollCall("chatty", &interval))

	seen := make(map[uint]bool)
	for len(seen) < int(settings.MandelbrotSettings.Height) {
		var next task.Task
		require.NoError(t, c.GetTask("chatty", &next))
		seen[next.ID] = true
	}
	assert.True(t, seen[held.ID])
}

func TestDistributedRenderSurvivesVanishedWorker(t *testing.T) {
	settings := smallSettings(t, task.Row)
	settings.Distributed = true
	settings.ServerAddress = "127.0.0.1:0"
	settings.WorkerCount = 0
	settings.WorkerTimeout = 2 * time.Second

	c := NewCoordinator(settings)
	result := make(chan error, 1)
	go func() { result <- c.Run() }()

	select {
	case <-c.Ready():
	case err := <-result:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		require.FailNow(t, "coordinator did not start")
	}

	// this worker takes a task and drops its connection without deregistering
	vanishing := rpc.NewTcpClient(c.Server.Address(), "VanishingWorker")
	require.NoError(t, vanishing.Connect())
	var nothing misc.Nothing
	require.NoError(t, vanishing.Call("Coordinator.RegisterWorker", "vanishing:1", &nothing))
	var held task.Task
	require.NoError(t, vanishing.Call("Coordinator.GetTask", "vanishing:1", &held))
	require.NoError(t, vanishing.Disconnect())

	remote, err := worker.NewRemoteWorker(c.Server.Address())
	require.NoError(t, err)
	require.NoError(t, remote.ProcessTasks())
	assert.Equal(t, int(settings.MandelbrotSettings.Height), remote.TasksCompleted())
	require.NoError(t, remote.Close())

	select {
	case err := <-result:
		require.NoError(t, err)
	case <-time.After(15 * time.Second):
		require.FailNow(t, "coordinator never put the vanished worker's task back", "pixels left %d",
			c.Canvas().PixelsLeft())
	}
	assertRendered(t, c, settings)
}
