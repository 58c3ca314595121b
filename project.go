package logvault

import (
	"os"
	"path/filepath"
)

// ProjectName derives the default ingestion queue name from the
// working directory, so every process of one project shares a queue
// without explicit configuration.
func ProjectName() string {
	dir, err := os.Getwd()
	if err != nil || dir == "" {
		return "log-vault"
	}
	return filepath.Base(dir)
}
