package config

import (
	"fmt"
	"os"
	"path/filepath"
)

// HomeEnv overrides the eprimestat home directory.
const HomeEnv = "EPRIMESTAT_HOME"

// GetHome returns the eprimestat home directory.
// Priority order:
//  1. EPRIMESTAT_HOME environment variable (if set)
//  2. The nearest .eprimestat directory at or above the working directory
//  3. .eprimestat in the user's home directory
//
// The directory is created if it doesn't exist
func GetHome() (string, error) {
	if home := os.Getenv(HomeEnv); home != "" {
		if err := os.MkdirAll(home, 0755); err != nil {
			return "", fmt.Errorf("create eprimestat home directory: %w", err)
		}
		return home, nil
	}

	cwd, err := os.Getwd()
	if err != nil {
		return "", fmt.Errorf("get working directory: %w", err)
	}
	if root, ok := findProjectRoot(cwd); ok {
		return filepath.Join(root, ".eprimestat"), nil
	}

	userHome, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve user home: %w", err)
	}
	home := filepath.Join(userHome, ".eprimestat")
	if err := os.MkdirAll(home, 0755); err != nil {
		return "", fmt.Errorf("create eprimestat home directory: %w", err)
	}
	return home, nil
}

// findProjectRoot walks up from start looking for a directory that holds
// an .eprimestat directory.
func findProjectRoot(start string) (string, bool) {
	current := start
	for {
		if info, err := os.Stat(filepath.Join(current, ".eprimestat")); err == nil && info.IsDir() {
			return current, true
		}
		parent := filepath.Dir(current)
		if parent == current {
			return "", false
		}
		current = parent
	}
}

// GetHistoryDBPath returns the default history database path:
// $EPRIMESTAT_HOME/history.db
func GetHistoryDBPath() (string, error) {
	home, err := GetHome()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, "history.db"), nil
}
