package harness

import (
	"fmt"
	"path/filepath"
	"strings"
	"sync"

	"github.com/spf13/afero"

	"github.com/roach88/t262/internal/suite"
)

// strictDirective is prepended to onlyStrict tests that do not start with
// a directive of their own.
const strictDirective = "\"use strict\";\n"

// Harness holds the prelude prepended to every test.
//
// Thread-safety: Harness is safe for concurrent use; include files are
// loaded on first use and cached.
type Harness struct {
	source string

	fs          afero.Fs
	includesDir string

	mu       sync.Mutex
	includes map[string]string
}

// New creates a harness from source text. Includes are unavailable until
// WithIncludes is called.
func New(source string) *Harness {
	return &Harness{
		source:   source,
		includes: make(map[string]string),
	}
}

// Load reads the harness source from path.
func Load(fs afero.Fs, path string) (*Harness, error) {
	data, err := afero.ReadFile(fs, path)
	if err != nil {
		return nil, fmt.Errorf("failed to read harness: %w", err)
	}
	return New(string(data)), nil
}

// WithIncludes makes include files under dir available to Assemble.
// It returns h for chaining.
func (h *Harness) WithIncludes(fs afero.Fs, dir string) *Harness {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.fs = fs
	h.includesDir = dir
	h.includes = make(map[string]string)
	return h
}

// Source returns the harness text.
func (h *Harness) Source() string {
	return h.source
}

// Assemble builds the script for tf.
func (h *Harness) Assemble(tf *suite.TestFile) (string, error) {
	if tf.Meta.HasFlag(suite.FlagRaw) {
		return tf.Source, nil
	}

	var b strings.Builder

	switch {
	case tf.Pragma != "":
		b.WriteString(tf.Pragma)
	case tf.Meta.HasFlag(suite.FlagOnlyStrict):
		b.WriteString(strictDirective)
	}

	b.WriteString(h.source)

	if tf.Meta != nil {
		for _, name := range tf.Meta.Includes {
			src, err := h.include(name)
			if err != nil {
				return "", err
			}
			b.WriteString(src)
			if !strings.HasSuffix(src, "\n") {
				b.WriteByte('\n')
			}
		}
	}

	b.WriteString(tf.Source)
	return b.String(), nil
}

func (h *Harness) include(name string) (string, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if src, ok := h.includes[name]; ok {
		return src, nil
	}
	if h.fs == nil || h.includesDir == "" {
		return "", fmt.Errorf("include %q requested but no includes directory is configured", name)
	}

	data, err := afero.ReadFile(h.fs, filepath.Join(h.includesDir, filepath.FromSlash(name)))
	if err != nil {
		return "", fmt.Errorf("failed to read include %q: %w", name, err)
	}
	h.includes[name] = string(data)
	return h.includes[name], nil
}
