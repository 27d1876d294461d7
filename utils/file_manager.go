package utils

import (
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// CreateTempDir creates the working directories for one export
func CreateTempDir(baseDir, id string) (string, error) {
	workDir := filepath.Join(baseDir, id)

	dirs := []string{
		workDir,
		filepath.Join(workDir, "images"),
		filepath.Join(workDir, "audio"),
		filepath.Join(workDir, "clips"),
		filepath.Join(workDir, "output"),
	}

	for _, dir := range dirs {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return "", fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}

	return workDir, nil
}

// WriteAsset writes bytes to path, creating the parent directory
func WriteAsset(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}

// CleanupFiles removes all temporary files for id
func CleanupFiles(baseDir, id string) error {
	return os.RemoveAll(filepath.Join(baseDir, id))
}

// ScheduleCleanup schedules automatic cleanup after a delay
func ScheduleCleanup(baseDir, id string, delay time.Duration) {
	go func() {
		time.Sleep(delay)
		_ = CleanupFiles(baseDir, id)
	}()
}

// FileExists checks if a file exists
func FileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
