package main

import (
	"bytes"
	"strings"
	"testing"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testCommand() (*cobra.Command, *bytes.Buffer, *bytes.Buffer) {
	cmd := &cobra.Command{}
	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	return cmd, &out, &errOut
}

func TestListThemes(t *testing.T) {
	cmd, out, _ := testCommand()
	o := &options{fs: afero.NewMemMapFs(), theme: "list"}
	require.NoError(t, o.run(cmd, nil))
	assert.Contains(t, out.String(), "Supported Themes")
	assert.Contains(t, out.String(), " * monokai")
	assert.Contains(t, out.String(), " * civet")
}

func TestUnsupportedTheme(t *testing.T) {
	cmd, _, errOut := testCommand()
	o := &options{fs: afero.NewMemMapFs(), theme: "solarized"}
	err := o.run(cmd, nil)
	require.Error(t, err)
	assert.Contains(t, errOut.String(), "Unsupported Theme: solarized")
	assert.Contains(t, errOut.String(), " * monokai")
}

func TestColorizeFile(t *testing.T) {
	fsys := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fsys, "conf.toml", []byte("[server]\nport = 8080\n"), 0o644))

	cmd, out, _ := testCommand()
	o := &options{fs: fsys, theme: "monokai", raw: true}
	require.NoError(t, o.run(cmd, []string{"conf.toml"}))

	got := out.String()
	assert.Contains(t, got, "\x1b[", "output is styled")
	assert.Contains(t, got, "server")
	assert.Contains(t, got, "8080")
	assert.True(t, strings.HasSuffix(strings.TrimRight(got, "\n"), "\x1b[0m"),
		"styled lines end with a reset")
}

func TestUnknownExtensionCopiesThrough(t *testing.T) {
	fsys := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fsys, "notes.xyz", []byte("plain text\n"), 0o644))

	cmd, out, _ := testCommand()
	o := &options{fs: fsys, theme: "monokai", raw: true}
	require.NoError(t, o.run(cmd, []string{"notes.xyz"}))
	assert.Equal(t, "plain text\n", out.String())
}

func TestMissingFileContinues(t *testing.T) {
	fsys := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fsys, "ok.xyz", []byte("fine\n"), 0o644))

	cmd, out, errOut := testCommand()
	o := &options{fs: fsys, theme: "monokai"}
	// one of two inputs fails: report it, keep going, exit zero
	require.NoError(t, o.run(cmd, []string{"missing.txt", "ok.xyz"}))
	assert.Contains(t, errOut.String(), "missing.txt")
	assert.Contains(t, out.String(), "fine")
}

func TestAllInputsFailed(t *testing.T) {
	cmd, _, errOut := testCommand()
	o := &options{fs: afero.NewMemMapFs(), theme: "monokai"}
	err := o.run(cmd, []string{"a.txt", "b.txt"})
	require.Error(t, err)
	assert.Contains(t, errOut.String(), "a.txt")
	assert.Contains(t, errOut.String(), "b.txt")
}

func TestNumberingFlags(t *testing.T) {
	fsys := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fsys, "f.xyz", []byte("a\n\nb\n"), 0o644))

	cmd, out, _ := testCommand()
	o := &options{fs: fsys, theme: "monokai", numberNonblank: true}
	require.NoError(t, o.run(cmd, []string{"f.xyz"}))
	assert.Equal(t, "     1\ta\n      \t\n     2\tb\n", out.String())
}

func TestSyntaxOverride(t *testing.T) {
	fsys := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fsys, "data.txt", []byte("x = 1\n"), 0o644))

	cmd, out, _ := testCommand()
	o := &options{fs: fsys, theme: "monokai", raw: true, syntax: "toml"}
	require.NoError(t, o.run(cmd, []string{"data.txt"}))
	assert.Contains(t, out.String(), "\x1b[")
}

func TestStdinDash(t *testing.T) {
	cmd, out, _ := testCommand()
	cmd.SetIn(strings.NewReader("from stdin\n"))
	o := &options{fs: afero.NewMemMapFs(), theme: "monokai"}
	require.NoError(t, o.run(cmd, nil))
	assert.Equal(t, "from stdin\n", out.String())
}
