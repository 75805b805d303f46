package utils

import (
	"fmt"
	"os"
	"path/filepath"
)

func GetPathInfo(relPath string) (fullPath string, parentDir string, err error) {
	// Convert to absolute path (resolves ../../ and cleans the path)
	fullPath, err = filepath.Abs(relPath)
	if err != nil {
		return "", "", err
	}

	// Get the directory containing the file
	parentDir = filepath.Dir(fullPath)

	return fullPath, parentDir, nil
}

// ReadSourceFile reads a source file given on the command line.
func ReadSourceFile(relPath string) (string, error) {
	fullPath, _, err := GetPathInfo(relPath)
	if err != nil {
		return "", err
	}
	data, err := os.ReadFile(fullPath)
	if err != nil {
		return "", fmt.Errorf("reading source: %w", err)
	}
	return string(data), nil
}

// ConfigPath resolves the config file to load. An explicit path must exist;
// otherwise defaultName is looked up in dir and may be absent.
func ConfigPath(explicit, dir, defaultName string) (path string, optional bool, err error) {
	if explicit != "" {
		path, _, err = GetPathInfo(explicit)
		return path, false, err
	}
	return filepath.Join(dir, defaultName), true, nil
}
