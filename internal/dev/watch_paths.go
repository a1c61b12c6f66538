package dev

import (
	"path/filepath"

	"github.com/vango-dev/approutes/internal/config"
)

// CollectWatchPaths resolves dirs against the project directory and
// returns them cleaned and without duplicates.
func CollectWatchPaths(cfg *config.Config, dirs ...string) []string {
	paths := make([]string, 0, len(dirs))
	for _, dir := range dirs {
		paths = append(paths, resolvePath(cfg.Dir(), dir))
	}

	unique := make([]string, 0, len(paths))
	seen := make(map[string]struct{}, len(paths))
	for _, path := range paths {
		if path == "" {
			continue
		}
		clean := filepath.Clean(path)
		if _, ok := seen[clean]; ok {
			continue
		}
		seen[clean] = struct{}{}
		unique = append(unique, clean)
	}

	return unique
}

// IgnorePatterns returns DefaultIgnore extended by the configured patterns.
func IgnorePatterns(cfg *config.Config) []string {
	patterns := append([]string(nil), DefaultIgnore...)
	return append(patterns, cfg.Watch.Ignore...)
}

func resolvePath(projectDir, path string) string {
	if path == "" {
		return ""
	}
	if filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(projectDir, path)
}
