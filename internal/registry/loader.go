package registry

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"sessiond/pkg/types"
)

var quantRe = regexp.MustCompile(`(?i)\b(i?q\d[_a-z0-9]*)\b`)

// Scanner discovers models under a directory. Two layouts are recognised:
// single *.gguf files, and directories that contain a config.json bundle.
type Scanner struct{}

// NewGGUFScanner returns a Scanner.
func NewGGUFScanner() *Scanner { return &Scanner{} }

// Scan walks one directory level and builds a registry.
// For *.gguf files the ID is the full filename (including extension);
// for bundle directories the ID is the directory name. Path is absolute.
func (s *Scanner) Scan(dir string) ([]types.Model, error) {
	base, err := expandHome(dir)
	if err != nil {
		return nil, err
	}
	abs, err := filepath.Abs(base)
	if err != nil {
		return nil, fmt.Errorf("abs path: %w", err)
	}
	entries, err := os.ReadDir(abs)
	if err != nil {
		return nil, fmt.Errorf("read dir: %w", err)
	}
	var models []types.Model
	for _, e := range entries {
		name := e.Name()
		p := filepath.Join(abs, name)
		if e.IsDir() {
			if _, err := os.Stat(filepath.Join(p, "config.json")); err != nil {
				continue
			}
			models = append(models, types.Model{
				ID:     name,
				Name:   name,
				Path:   p,
				Family: familyOf(name),
			})
			continue
		}
		if !strings.HasSuffix(strings.ToLower(name), ".gguf") {
			continue
		}
		models = append(models, types.Model{
			ID:     name,
			Name:   name,
			Path:   p,
			Quant:  quantOf(name),
			Family: familyOf(name),
		})
	}
	return models, nil
}

// LoadDir is a convenience wrapper around the default scanner.
func LoadDir(dir string) ([]types.Model, error) {
	return NewGGUFScanner().Scan(dir)
}

// quantOf extracts a quantisation tag like q4_k_m from a filename, if present.
func quantOf(name string) string {
	m := quantRe.FindString(strings.TrimSuffix(strings.ToLower(name), ".gguf"))
	return m
}

// familyOf guesses the prompt dialect from the model name. Reasoning models
// emit <think> blocks and need the reasoning turn templates.
func familyOf(name string) string {
	n := strings.ToLower(name)
	if strings.Contains(n, "deepseek") || strings.Contains(n, "-r1") || strings.Contains(n, "qwq") {
		return "reasoning"
	}
	return "chat"
}

// expandHome expands a leading '~' to the user's home directory.
func expandHome(path string) (string, error) {
	if path == "" {
		return path, nil
	}
	if path[0] != '~' {
		return path, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("home dir: %w", err)
	}
	if path == "~" {
		return home, nil
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~/")), nil
}
