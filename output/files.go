package output

import (
	"fmt"
	"os"
	"path/filepath"
)

func ensureParent(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, os.ModePerm); err != nil {
		return fmt.Errorf("failed to create result folder %s: %v", dir, err)
	}
	return nil
}
