package suite

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/coregx/coregex"
	"github.com/spf13/afero"
)

// Filter narrows discovery. The zero value selects every test.
type Filter struct {
	// Glob is matched against the file's base name without ".js".
	Glob string

	// Match is a regular expression matched against the slash-separated path.
	Match string
}

type compiledFilter struct {
	glob  string
	match *coregex.Regexp
}

func (f Filter) compile() (*compiledFilter, error) {
	cf := &compiledFilter{glob: f.Glob}
	if f.Glob != "" {
		if _, err := filepath.Match(f.Glob, ""); err != nil {
			return nil, fmt.Errorf("invalid filter pattern: %w", err)
		}
	}
	if f.Match != "" {
		re, err := coregex.Compile(f.Match)
		if err != nil {
			return nil, fmt.Errorf("invalid match expression: %w", err)
		}
		cf.match = re
	}
	return cf, nil
}

func (cf *compiledFilter) accept(path string) bool {
	if cf.glob != "" {
		name := strings.TrimSuffix(filepath.Base(path), ".js")
		if ok, _ := filepath.Match(cf.glob, name); !ok {
			return false
		}
	}
	if cf.match != nil && !cf.match.MatchString(filepath.ToSlash(path)) {
		return false
	}
	return true
}

// IsTestFile reports whether path names a runnable test.
// Harness fixtures (*_FIXTURE.js) are modules imported by other tests.
func IsTestFile(path string) bool {
	return strings.HasSuffix(path, ".js") && !strings.HasSuffix(path, "_FIXTURE.js")
}

// Discover returns the tests under root in walk order.
// A root ending in ".js" is a single test and is returned as is,
// without consulting the filter.
func Discover(fs afero.Fs, root string, filter Filter) ([]string, error) {
	cf, err := filter.compile()
	if err != nil {
		return nil, err
	}

	if strings.HasSuffix(root, ".js") {
		if _, err := fs.Stat(root); err != nil {
			return nil, fmt.Errorf("test file not found: %w", err)
		}
		return []string{root}, nil
	}

	var files []string
	err = afero.Walk(fs, root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			if path != root && strings.HasPrefix(info.Name(), ".") {
				return filepath.SkipDir
			}
			return nil
		}
		if !IsTestFile(path) || !cf.accept(path) {
			return nil
		}
		files = append(files, path)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk %s: %w", root, err)
	}

	return files, nil
}
