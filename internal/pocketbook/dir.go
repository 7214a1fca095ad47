// Package pocketbook locates the data directory holding the cache
// database, the stored token, and the config file.
package pocketbook

import (
	"os"
	"path/filepath"
)

// DirName is the data directory name searched for.
const DirName = ".pocketbook"

// FindDataDir returns the data directory to use.
//
// Resolution order:
//  1. $POCKETBOOK_DIR when set.
//  2. A .pocketbook directory in the working directory or any parent.
//  3. $HOME/.pocketbook (created lazily by the first write).
func FindDataDir() string {
	if dir := os.Getenv("POCKETBOOK_DIR"); dir != "" {
		return dir
	}

	cwd, err := os.Getwd()
	if err == nil {
		for dir := cwd; ; {
			candidate := filepath.Join(dir, DirName)
			if info, err := os.Stat(candidate); err == nil && info.IsDir() {
				return candidate
			}
			parent := filepath.Dir(dir)
			if parent == dir {
				break
			}
			dir = parent
		}
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return DirName
	}
	return filepath.Join(home, DirName)
}
