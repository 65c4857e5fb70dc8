package tools

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/modelmux/modelmux/src/models"
)

const (
	defaultMaxBytes   = 32 * 1024
	defaultMaxMatches = 50
)

// FSBridge implements the ToolBridge capability over a directory subtree.
// Paths are resolved relative to the root and may not escape it. All
// output is truncated so a single tool call cannot flood a model's
// context window.
type FSBridge struct {
	root       string
	maxBytes   int
	maxMatches int
}

func NewFSBridge(root string) *FSBridge {
	return &FSBridge{
		root:       root,
		maxBytes:   defaultMaxBytes,
		maxMatches: defaultMaxMatches,
	}
}

// resolve confines a caller-supplied path to the bridge root.
func (b *FSBridge) resolve(path string) (string, error) {
	joined := filepath.Join(b.root, filepath.Clean("/"+path))
	rel, err := filepath.Rel(b.root, joined)
	if err != nil || strings.HasPrefix(rel, "..") {
		return "", fmt.Errorf("path %q escapes the tool root", path)
	}
	return joined, nil
}

func (b *FSBridge) ReadFile(path string) (string, error) {
	full, err := b.resolve(path)
	if err != nil {
		return "", err
	}

	data, err := os.ReadFile(full)
	if err != nil {
		return "", err
	}
	return b.truncate(string(data)), nil
}

func (b *FSBridge) ListDirectory(path string) (string, error) {
	full, err := b.resolve(path)
	if err != nil {
		return "", err
	}

	entries, err := os.ReadDir(full)
	if err != nil {
		return "", err
	}

	var sb strings.Builder
	for _, e := range entries {
		if e.IsDir() {
			sb.WriteString(e.Name() + "/\n")
		} else {
			sb.WriteString(e.Name() + "\n")
		}
	}
	return b.truncate(sb.String()), nil
}

func (b *FSBridge) Grep(pattern string, opts models.GrepOptions) (string, error) {
	if !opts.CaseSensitive {
		pattern = "(?i)" + pattern
	}
	re, err := regexp.Compile(pattern)
	if err != nil {
		return "", fmt.Errorf("invalid pattern: %w", err)
	}

	start := b.root
	if opts.Path != "" {
		if start, err = b.resolve(opts.Path); err != nil {
			return "", err
		}
	}

	limit := opts.MaxMatches
	if limit <= 0 || limit > b.maxMatches {
		limit = b.maxMatches
	}

	var sb strings.Builder
	matches := 0
	err = filepath.WalkDir(start, func(path string, d os.DirEntry, err error) error {
		if err != nil || d.IsDir() || matches >= limit {
			return err
		}

		data, err := os.ReadFile(path)
		if err != nil {
			return nil // unreadable files are skipped, not fatal
		}

		rel, _ := filepath.Rel(b.root, path)
		for i, line := range strings.Split(string(data), "\n") {
			if re.MatchString(line) {
				fmt.Fprintf(&sb, "%s:%d: %s\n", rel, i+1, strings.TrimSpace(line))
				matches++
				if matches >= limit {
					break
				}
			}
		}
		return nil
	})
	if err != nil {
		return "", err
	}

	if matches == 0 {
		return "no matches", nil
	}
	return b.truncate(sb.String()), nil
}

func (b *FSBridge) Glob(pattern, basePath string) (string, error) {
	base := b.root
	if basePath != "" {
		var err error
		if base, err = b.resolve(basePath); err != nil {
			return "", err
		}
	}

	paths, err := filepath.Glob(filepath.Join(base, pattern))
	if err != nil {
		return "", fmt.Errorf("invalid glob: %w", err)
	}
	if len(paths) == 0 {
		return "no matches", nil
	}

	var sb strings.Builder
	for _, p := range paths {
		rel, _ := filepath.Rel(b.root, p)
		sb.WriteString(rel + "\n")
	}
	return b.truncate(sb.String()), nil
}

func (b *FSBridge) truncate(s string) string {
	if len(s) <= b.maxBytes {
		return s
	}
	return s[:b.maxBytes] + "\n... (truncated)"
}
