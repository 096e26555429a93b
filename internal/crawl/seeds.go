package crawl

import (
	"bufio"
	"fmt"
	"os"
	"strings"
)

// LoadSeeds reads a newline-delimited seed-URL file, skipping blank
// lines. A missing or unreadable file is fatal to the run.
func LoadSeeds(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open seed file: %w", err)
	}
	defer f.Close() //nolint:errcheck

	var seeds []string
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		seeds = append(seeds, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read seed file: %w", err)
	}
	return seeds, nil
}
