package colorizer

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"gitlab.com/tozd/go/errors"
)

// Options are the cat-compatible output transformations.
type Options struct {
	// Number prefixes every output line with its line number.
	Number bool
	// NumberNonblank numbers only non-blank lines; blank lines keep an
	// empty number field and do not advance the counter.
	NumberNonblank bool
	// SqueezeBlank collapses runs of blank lines into a single one.
	SqueezeBlank bool
}

// Writer applies Options while copying lines to the underlying writer.
// Each input is written with its own Writer so numbering restarts per file.
type Writer struct {
	inner io.Writer
	opts  Options
}

// NewWriter returns a Writer over inner.
func NewWriter(inner io.Writer, opts Options) *Writer {
	return &Writer{inner: inner, opts: opts}
}

// Copy writes r through unmodified (except for Options processing).
func (w *Writer) Copy(r io.Reader) error {
	return w.Write(r, func(line string) string { return line })
}

// Write reads r line by line, passing each line's body (newline excluded)
// through transform before output. Line endings are preserved as read.
func (w *Writer) Write(r io.Reader, transform func(string) string) error {
	lineNum := 1
	prevBlank := false

	reader := bufio.NewReader(r)
	for {
		line, err := reader.ReadString('\n')
		if line != "" {
			blank := line == "\n" || line == "\r\n"

			if w.opts.SqueezeBlank && prevBlank && blank {
				if err != nil {
					break
				}
				continue
			}
			prevBlank = blank

			if w.opts.Number || w.opts.NumberNonblank {
				if w.opts.NumberNonblank && blank {
					if _, werr := io.WriteString(w.inner, "      \t"); werr != nil {
						return errors.Errorf("writing output: %w", werr)
					}
				} else {
					if _, werr := fmt.Fprintf(w.inner, "%6d\t", lineNum); werr != nil {
						return errors.Errorf("writing output: %w", werr)
					}
					lineNum++
				}
			}

			body, ending := splitEnding(line)
			if _, werr := io.WriteString(w.inner, transform(body)+ending); werr != nil {
				return errors.Errorf("writing output: %w", werr)
			}
		}

		if err == io.EOF {
			return nil
		}
		if err != nil {
			return errors.Errorf("reading input: %w", err)
		}
	}
	return nil
}

// splitEnding separates a line's body from its newline bytes.
func splitEnding(line string) (body, ending string) {
	if strings.HasSuffix(line, "\r\n") {
		return line[:len(line)-2], "\r\n"
	}
	if strings.HasSuffix(line, "\n") {
		return line[:len(line)-1], "\n"
	}
	return line, ""
}
