package suite

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/afero"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
	"gopkg.in/yaml.v3"
)

// ErrInvalidMetadata is returned when a test's frontmatter cannot be used.
var ErrInvalidMetadata = errors.New("invalid test metadata")

// Frontmatter flags that change how a test is assembled.
const (
	FlagOnlyStrict = "onlyStrict"
	FlagNoStrict   = "noStrict"
	FlagRaw        = "raw"
)

// strictPragmas are the directive spellings hoisted ahead of the harness.
// Order matters: the newline-terminated forms win over the bare forms.
var strictPragmas = []string{
	"\"use strict\";\n",
	"'use strict';\n",
	"\"use strict\";",
	"'use strict';",
	"\"use strict\"\n",
	"'use strict'\n",
}

// Negative describes the error a negative test expects.
type Negative struct {
	Phase string `yaml:"phase"`
	Type  string `yaml:"type"`
}

// Meta is the YAML frontmatter of a test262 file.
type Meta struct {
	Description string   `yaml:"description"`
	Info        string   `yaml:"info"`
	Negative    Negative `yaml:"negative"`
	Includes    []string `yaml:"includes"`
	Flags       []string `yaml:"flags"`
	Features    []string `yaml:"features"`
	Es5id       string   `yaml:"es5id"`
	Es6id       string   `yaml:"es6id"`
	Esid        string   `yaml:"esid"`
}

// HasFlag reports whether the frontmatter lists flag.
func (m *Meta) HasFlag(flag string) bool {
	if m == nil {
		return false
	}
	for _, f := range m.Flags {
		if f == flag {
			return true
		}
	}
	return false
}

// TestFile is a parsed test262 test.
type TestFile struct {
	Path string

	// Source is the complete file text with any byte order mark removed.
	Source string

	// Body is the text after the leading metadata comment, trimmed.
	Body string

	// Negative is set when the test expects the interpreter to raise.
	Negative bool

	// Pragma is the strict-mode directive found at the start of Body,
	// spelled exactly as in the file. Empty when there is none.
	Pragma string

	// Meta is nil for files without YAML frontmatter.
	Meta *Meta
}

// ParseFile reads and parses the test at path.
func ParseFile(fs afero.Fs, path string) (*TestFile, error) {
	data, err := afero.ReadFile(fs, path)
	if err != nil {
		return nil, fmt.Errorf("read test file: %w", err)
	}
	return Parse(path, data)
}

// Parse parses test source. path is only recorded, never opened.
func Parse(path string, data []byte) (*TestFile, error) {
	data, _, err := transform.Bytes(unicode.BOMOverride(transform.Nop), data)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	src := string(data)

	tf := &TestFile{
		Path:   path,
		Source: src,
	}

	comment, rest, ok := leadingComment(src)
	if !ok {
		tf.Body = strings.TrimSpace(src)
		tf.Pragma = strictPragma(tf.Body)
		return tf, nil
	}
	tf.Body = strings.TrimSpace(rest)
	tf.Pragma = strictPragma(tf.Body)
	tf.Negative = strings.Contains(comment, "@negative")

	if fm, ok := frontmatter(comment); ok {
		var meta Meta
		if err := yaml.Unmarshal([]byte(fm), &meta); err != nil {
			return nil, fmt.Errorf("%w: %s: %v", ErrInvalidMetadata, path, err)
		}
		if meta.Negative.Type != "" && meta.Negative.Phase == "" {
			return nil, fmt.Errorf("%w: %s: negative type is set, but phase isn't", ErrInvalidMetadata, path)
		}
		if meta.Negative.Type != "" {
			tf.Negative = true
		}
		tf.Meta = &meta
	}

	return tf, nil
}

// leadingComment splits src around its first block comment.
// comment includes the delimiters; rest is everything after them.
func leadingComment(src string) (comment, rest string, ok bool) {
	start := strings.Index(src, "/*")
	if start < 0 {
		return "", "", false
	}
	end := strings.Index(src[start+2:], "*/")
	if end < 0 {
		return "", "", false
	}
	end += start + 2 + len("*/")
	return src[start:end], src[end:], true
}

// frontmatter extracts the YAML between "/*---" and "---*/".
func frontmatter(comment string) (string, bool) {
	if len(comment) < len("/*------*/") {
		return "", false
	}
	if !strings.HasPrefix(comment, "/*---") || !strings.HasSuffix(comment, "---*/") {
		return "", false
	}
	inner := comment[len("/*---") : len(comment)-len("---*/")]
	return inner, true
}

func strictPragma(body string) string {
	for _, p := range strictPragmas {
		if strings.HasPrefix(body, p) {
			return p
		}
	}
	return ""
}
