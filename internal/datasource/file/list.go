package file

import (
	"bufio"
	"context"
	"path/filepath"
	"strings"
)

// ReadInputList reads a list file naming one JSONL input per line.
//
// Blank lines and lines starting with '#' are skipped. Relative paths are
// resolved against the directory of the list file, so a list can travel with
// its datasets; http(s) URLs are returned as written. Order is preserved.
func ReadInputList(ctx context.Context, listPath string) ([]string, error) {
	rc, err := NewLocal(listPath).Open(ctx)
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	dir := filepath.Dir(listPath)
	var out []string
	sc := bufio.NewScanner(rc)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if !IsURL(line) && !filepath.IsAbs(line) {
			line = filepath.Join(dir, line)
		}
		out = append(out, line)
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// IsURL reports whether entry names an http or https resource.
func IsURL(entry string) bool {
	return strings.HasPrefix(entry, "http://") || strings.HasPrefix(entry, "https://")
}
