package misc

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

func ReadFile(fileName string) ([]byte, error) {
	if fileName == "" {
		return []byte{}, errors.New("no filename supplied")
	}
	// open file for reading
	file, err := os.Open(fileName)
	if err != nil {
		return []byte{}, fmt.Errorf("unable to open %s - %w", fileName, err)
	}
	defer file.Close()

	// read contents from open file
	fileBytes, err := io.ReadAll(file)
	if err != nil {
		return []byte{}, fmt.Errorf("unable to read %s - %w", fileName, err)
	}

	return fileBytes, nil
}

func WriteFile(fileName string, contents []byte) (int, error) {
	if fileName == "" {
		return 0, errors.New("no filename supplied")
	}
	// create/truncate file for writing
	file, err := os.Create(fileName)
	if err != nil {
		return 0, fmt.Errorf("unable to create file %s - %w", fileName, err)
	}
	// write contents to open file
	bytesWritten, err := file.Write(contents)
	if err != nil {
		file.Close()
		return bytesWritten, fmt.Errorf("unable to write file %s - %w", fileName, err)
	}
	// close file
	err = file.Close()
	if err != nil {
		return bytesWritten, fmt.Errorf("unable to close file %s - %w", fileName, err)
	}

	return bytesWritten, nil
}

// WriteFileAtomic streams write into a temporary file next to fileName and renames it into place once write succeeds.
// On failure the temporary file is removed and fileName is left untouched.
func WriteFileAtomic(fileName string, write func(w io.Writer) error) error {
	if fileName == "" {
		return errors.New("no filename supplied")
	}

	file, err := os.CreateTemp(filepath.Dir(fileName), "."+filepath.Base(fileName)+".*")
	if err != nil {
		return fmt.Errorf("unable to create temporary file for %s - %w", fileName, err)
	}
	tempName := file.Name()
	// CreateTemp only grants the owner access
	if err = file.Chmod(0o644); err != nil {
		file.Close()
		os.Remove(tempName)
		return fmt.Errorf("unable to set permissions of %s - %w", fileName, err)
	}

	if err = write(file); err != nil {
		file.Close()
		os.Remove(tempName)
		return fmt.Errorf("unable to write file %s - %w", fileName, err)
	}
	if err = file.Close(); err != nil {
		os.Remove(tempName)
		return fmt.Errorf("unable to close file %s - %w", fileName, err)
	}
	if err = os.Rename(tempName, fileName); err != nil {
		os.Remove(tempName)
		return fmt.Errorf("unable to move %s into place - %w", fileName, err)
	}

	return nil
}
