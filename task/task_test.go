package task

import (
	"image/color"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerationCount(t *testing.T) {
	assert.Equal(t, uint(1080), Row.Count(1920, 1080, 64))
	assert.Equal(t, uint(1920), Column.Count(1920, 1080, 64))
	assert.Equal(t, uint(1), Image.Count(1920, 1080, 64))
	assert.Equal(t, uint(30*17), Tile.Count(1920, 1080, 64))
	assert.Equal(t, uint(0), Tile.Count(1920, 1080, 0))
	assert.Equal(t, uint(0), Generation(9).Count(1, 1, 1))

	assert.True(t, Tile.Valid())
	assert.False(t, Generation(-1).Valid())
	assert.Equal(t, "Column", Column.String())
	assert.Equal(t, "Generation(7)", Generation(7).String())
}

func TestAddTasksForRowAndColumn(t *testing.T) {
	row := NewTask(0, 1)
	row.AddTasksForRow(3, 4)
	assert.Equal(t, []Coordinate{{0, 3}, {1, 3}, {2, 3}, {3, 3}}, row.Tasks)

	column := NewTask(1, 1)
	column.AddTasksForColumn(3, 2)
	assert.Equal(t, []Coordinate{{2, 0}, {2, 1}, {2, 2}}, column.Tasks)

	image := NewTask(2, 1)
	image.AddTasksForImage(2, 3)
	assert.Len(t, image.Tasks, 6)
}

func TestAddTasksForTileCoversImageOnce(t *testing.T) {
	const width, height, size = 10, 7, 4
	seen := make(map[Coordinate]int)

	count := Tile.Count(width, height, size)
	require.Equal(t, uint(3*2), count)
	for n := uint(0); n < count; n++ {
		tile := NewTask(n, 1)
		tile.AddTasksForTile(height, width, size, n)
		for _, c := range tile.Tasks {
			seen[c]++
		}
	}

	assert.Len(t, seen, width*height)
	for c, times := range seen {
		assert.Equal(t, 1, times, "coordinate %s", c.String())
	}
}

func TestWalkingATask(t *testing.T) {
	todo := NewTask(5, 1)
	todo.AddTasksForRow(0, 2)

	for {
		coordinate, err := todo.GetNextTask()
		if err != nil {
			assert.ErrorIs(t, err, ErrNoMoreCoordinates)
			break
		}
		todo.AddResult(Pixel{Color: color.RGBA{A: 255}, Column: coordinate.Column, Row: coordinate.Row})
	}

	assert.True(t, todo.Done())
	assert.Equal(t, uint(1), todo.Results[1].Column)
	assert.Contains(t, todo.String(), "Result Count: 2")
}
