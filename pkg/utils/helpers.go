package utils

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
)

//InSlice reports whether name is one of names
func InSlice(name string, names []string) bool {
	return slices.Contains(names, name)
}

//ListDir returns the entry names of dir, sorted by name
func ListDir(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("ListDir: Error reading '%s', got '%w'", dir, err)
	}

	names := make([]string, len(entries))
	for i, e := range entries {
		names[i] = e.Name()
	}

	return names, nil
}

//HasExtension reports whether name ends with one of exts, case insensitive
func HasExtension(name string, exts []string) bool {
	return InSlice(strings.ToLower(filepath.Ext(name)), exts)
}

//ValidImageSize checks both sides against MinImageSize and MaxImageSize
func ValidImageSize(width, height int) error {
	if width < MinImageSize || height < MinImageSize {
		return fmt.Errorf("image too small: %dx%d, minimum is %dx%d", width, height, MinImageSize, MinImageSize)
	}
	if width > MaxImageSize || height > MaxImageSize {
		return fmt.Errorf("image too large: %dx%d, maximum is %dx%d", width, height, MaxImageSize, MaxImageSize)
	}
	return nil
}

//EnsureDirs creates every missing directory
func EnsureDirs(dirs ...string) error {
	for _, dir := range dirs {
		if err := os.MkdirAll(dir, 0766); err != nil {
			return fmt.Errorf("EnsureDirs: Error creating '%s' directory, got '%v'", dir, err)
		}
	}
	return nil
}
