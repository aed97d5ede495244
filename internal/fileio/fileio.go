// Package fileio reads and writes citation files, decompressing and
// compressing brotli (.br) files transparently.
package fileio

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/andybalholm/brotli"

	"github.com/matsen/bibhub/internal/format"
)

// BrotliExt marks a brotli-compressed file.
const BrotliExt = ".br"

// Stdio is the path that selects stdin or stdout.
const Stdio = "-"

// ErrAppendCompressed is returned when appending to a brotli file.
var ErrAppendCompressed = errors.New("cannot append to a compressed file")

// IsCompressed reports whether path names a brotli file.
func IsCompressed(path string) bool {
	return strings.EqualFold(filepath.Ext(path), BrotliExt)
}

// TrimCompression removes a trailing .br from path.
func TrimCompression(path string) string {
	if IsCompressed(path) {
		return path[:len(path)-len(BrotliExt)]
	}
	return path
}

// DetectFormat guesses a format from the file extension, looking through a
// trailing .br ("refs.bib.br" is BibTeX).
func DetectFormat(path string) (format.Format, bool) {
	return format.FromExtension(filepath.Ext(TrimCompression(path)))
}

// Read returns the contents of path, or of stdin when path is "-".
func Read(path string, stdin io.Reader) (string, error) {
	if path == Stdio {
		data, err := io.ReadAll(stdin)
		if err != nil {
			return "", fmt.Errorf("reading stdin: %w", err)
		}
		return string(data), nil
	}

	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()

	var r io.Reader = f
	if IsCompressed(path) {
		r = brotli.NewReader(f)
	}

	data, err := io.ReadAll(r)
	if err != nil {
		return "", fmt.Errorf("reading %s: %w", path, err)
	}
	return string(data), nil
}

// ReadFile returns the contents of path.
func ReadFile(path string) (string, error) {
	return Read(path, os.Stdin)
}

// Write writes text to path, or to stdout when path is "" or "-".
// Paths ending in .br are brotli-compressed.
func Write(path, text string, stdout io.Writer) error {
	if path == "" || path == Stdio {
		_, err := io.WriteString(stdout, text)
		return err
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating %s: %w", path, err)
	}

	if IsCompressed(path) {
		err = compress(f, text)
	} else {
		_, err = io.WriteString(f, text)
	}
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return nil
}

// WriteFile writes text to path.
func WriteFile(path, text string) error {
	return Write(path, text, os.Stdout)
}

func compress(w io.Writer, text string) error {
	bw := brotli.NewWriterLevel(w, brotli.DefaultCompression)
	if _, err := io.WriteString(bw, text); err != nil {
		bw.Close()
		return err
	}
	return bw.Close()
}

// AppendFile appends text to path, creating it if needed. The text is
// separated from existing content by a blank line.
func AppendFile(path, text string) error {
	if IsCompressed(path) {
		return fmt.Errorf("%w: %s", ErrAppendCompressed, path)
	}

	sep := ""
	if info, err := os.Stat(path); err == nil && info.Size() > 0 {
		sep = "\n"
	}

	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("opening %s for append: %w", path, err)
	}
	defer f.Close()

	if _, err := io.WriteString(f, sep+text); err != nil {
		return fmt.Errorf("appending to %s: %w", path, err)
	}
	return nil
}
