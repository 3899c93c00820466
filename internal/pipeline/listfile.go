package pipeline

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// ReadList reads a model-list file: one package path per line. Blank lines
// and lines starting with # are skipped.
func ReadList(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open model list: %w", err)
	}
	defer f.Close()

	var packages []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		packages = append(packages, filepath.Clean(line))
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read model list: %w", err)
	}
	if len(packages) == 0 {
		return nil, fmt.Errorf("model list %s names no packages", path)
	}
	return packages, nil
}
