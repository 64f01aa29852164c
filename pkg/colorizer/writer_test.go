package colorizer_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/walteh/tmcat/pkg/colorizer"
)

func writeThrough(t *testing.T, input string, opts colorizer.Options) string {
	t.Helper()
	var out strings.Builder
	w := colorizer.NewWriter(&out, opts)
	require.NoError(t, w.Copy(strings.NewReader(input)))
	return out.String()
}

func TestCopyPlain(t *testing.T) {
	in := "one\ntwo\nthree"
	assert.Equal(t, in, writeThrough(t, in, colorizer.Options{}))
}

func TestNumberAllLines(t *testing.T) {
	got := writeThrough(t, "a\n\nb\n", colorizer.Options{Number: true})
	assert.Equal(t, "     1\ta\n     2\t\n     3\tb\n", got)
}

func TestNumberNonblank(t *testing.T) {
	got := writeThrough(t, "a\n\nb\n", colorizer.Options{Number: true, NumberNonblank: true})
	assert.Equal(t, "     1\ta\n      \t\n     2\tb\n", got)
}

func TestSqueezeBlank(t *testing.T) {
	got := writeThrough(t, "a\n\n\n\nb\n", colorizer.Options{SqueezeBlank: true})
	assert.Equal(t, "a\n\nb\n", got)
}

func TestSqueezeOnlyNewlines(t *testing.T) {
	got := writeThrough(t, "\n\n\n\n", colorizer.Options{SqueezeBlank: true})
	assert.Equal(t, "\n", got)
}

func TestCRLFBlankDetection(t *testing.T) {
	got := writeThrough(t, "a\r\n\r\n\r\nb\r\n", colorizer.Options{SqueezeBlank: true})
	assert.Equal(t, "a\r\n\r\nb\r\n", got)
}

func TestTransformSeesBodyWithoutNewline(t *testing.T) {
	var out strings.Builder
	w := colorizer.NewWriter(&out, colorizer.Options{})
	err := w.Write(strings.NewReader("ab\ncd"), func(line string) string {
		assert.NotContains(t, line, "\n")
		return "<" + line + ">"
	})
	require.NoError(t, err)
	assert.Equal(t, "<ab>\n<cd>", out.String())
}

func TestEmptyInput(t *testing.T) {
	assert.Equal(t, "", writeThrough(t, "", colorizer.Options{Number: true}))
}
