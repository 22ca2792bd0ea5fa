package task

import (
	"errors"
	"fmt"
)

const (
	Row Generation = iota
	Column
	Image
	Tile
)

var (
	ErrAllTasksHandedOut = errors.New("all tasks handed out")
	ErrNoMoreCoordinates = errors.New("no more coordinates")
)

// Generation decides how an image is split into tasks.
type Generation int

func (g Generation) String() string {
	names := []string{"Row", "Column", "Image", "Tile"}
	if g < Row || int(g) >= len(names) {
		return fmt.Sprintf("Generation(%d)", int(g))
	}
	return names[g]
}

func (g Generation) Valid() bool {
	return g >= Row && g <= Tile
}

// Count returns how many tasks an image of width x height splits into.
func (g Generation) Count(width uint, height uint, tileSize uint) uint {
	switch g {
	case Row:
		return height
	case Column:
		return width
	case Image:
		return 1
	case Tile:
		return ceilDiv(width, tileSize) * ceilDiv(height, tileSize)
	}
	return 0
}

func ceilDiv(a uint, b uint) uint {
	if b == 0 {
		return 0
	}
	return (a + b - 1) / b
}

type Task struct {
	CurrentTask   uint
	ID            uint
	ImageNumber   uint
	Results       []Pixel
	Tasks         []Coordinate
	WorkerAddress string
}

func NewTask(id uint, imageNumber uint) Task {
	return Task{
		ID:          id,
		ImageNumber: imageNumber,
	}
}

func (t *Task) String() string {
	output := "{Task "
	output += fmt.Sprintf("ID: %d ", t.ID)
	output += fmt.Sprintf("Image Number: %d ", t.ImageNumber)
	output += fmt.Sprintf("Result Count: %d ", len(t.Results))
	output += fmt.Sprintf("Task Count: %d}", len(t.Tasks))
	return output
}

func (t *Task) AddTaskForPixel(coordinate Coordinate) {
	t.Tasks = append(t.Tasks, coordinate)
}

func (t *Task) AddTasksForRow(imageRow uint, imageWidth uint) {
	t.AddTasksForRectangle(0, imageRow, imageWidth, imageRow+1)
}

func (t *Task) AddTasksForColumn(imageHeight uint, imageColumn uint) {
	t.AddTasksForRectangle(imageColumn, 0, imageColumn+1, imageHeight)
}

func (t *Task) AddTasksForImage(imageHeight uint, imageWidth uint) {
	t.AddTasksForRectangle(0, 0, imageWidth, imageHeight)
}

// AddTasksForRectangle adds every pixel with minColumn <= column < maxColumn and minRow <= row < maxRow, row by row.
func (t *Task) AddTasksForRectangle(minColumn uint, minRow uint, maxColumn uint, maxRow uint) {
	var r, c uint
	for r = minRow; r < maxRow; r++ {
		for c = minColumn; c < maxColumn; c++ {
			t.AddTaskForPixel(Coordinate{Column: c, Row: r})
		}
	}
}

// AddTasksForTile adds the tileNumber-th tileSize x tileSize tile, counting tiles left to right then top to bottom.
// Tiles on the right and bottom edges are cut short by the image bounds.
func (t *Task) AddTasksForTile(imageHeight uint, imageWidth uint, tileSize uint, tileNumber uint) {
	tilesPerRow := ceilDiv(imageWidth, tileSize)
	if tilesPerRow == 0 {
		return
	}
	minColumn := (tileNumber % tilesPerRow) * tileSize
	minRow := (tileNumber / tilesPerRow) * tileSize
	t.AddTasksForRectangle(minColumn, minRow, minUint(minColumn+tileSize, imageWidth), minUint(minRow+tileSize, imageHeight))
}

func minUint(a uint, b uint) uint {
	if a < b {
		return a
	}
	return b
}

// GetNextTask
// Returns the current coordinate to be processed. Make sure to return the result to the AddResult method before
// calling this method again
func (t *Task) GetNextTask() (Coordinate, error) {
	if t.CurrentTask >= uint(len(t.Tasks)) {
		return Coordinate{}, ErrNoMoreCoordinates
	}
	return t.Tasks[t.CurrentTask], nil
}

// AddResult
// When returning a result the CurrentTask value is incremented so the next call to the GetNextTask method will return
// the correct coordinate
func (t *Task) AddResult(pixel Pixel) {
	t.Results = append(t.Results, pixel)
	t.CurrentTask++
}

func (t *Task) Done() bool {
	return len(t.Results) == len(t.Tasks)
}
