package main

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime/debug"
	"strings"

	"github.com/mattn/go-isatty"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"gitlab.com/tozd/go/errors"
	"go.uber.org/multierr"

	"github.com/walteh/tmcat/pkg/colorizer"
	"github.com/walteh/tmcat/pkg/grammar"
	"github.com/walteh/tmcat/pkg/registry"
	"github.com/walteh/tmcat/pkg/style"
)

func main() {
	if err := run(); err != nil {
		os.Exit(1)
	}
}

func run() error {
	opts := &options{fs: afero.NewOsFs()}

	rootCmd := &cobra.Command{
		Use:           "tmcat [file ...]",
		Short:         "colorize files for the terminal using TextMate grammars",
		Args:          cobra.ArbitraryArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.run(cmd, args)
		},
	}

	info, ok := debug.ReadBuildInfo()
	if !ok {
		rootCmd.Version = "unknown"
	} else {
		rootCmd.Version = info.Main.Version
	}

	flags := rootCmd.Flags()
	flags.BoolVarP(&opts.number, "number", "n", false, "number all output lines")
	flags.BoolVarP(&opts.numberNonblank, "number-nonblank", "b", false, "number non-blank output lines")
	flags.BoolVarP(&opts.squeezeBlank, "squeeze-blank", "s", false, "squeeze multiple blank lines into one")
	flags.BoolVarP(&opts.raw, "raw", "r", false, "force colorized output even when stdout is not a terminal")
	flags.StringVarP(&opts.theme, "theme", "t", registry.DefaultTheme, "color theme (use 'list' to list themes)")
	flags.BoolVar(&opts.listThemes, "list-themes", false, "list supported themes and exit")
	flags.StringVar(&opts.grammarDir, "grammar-dir", "", "overlay directory with extra grammar files")
	flags.StringVar(&opts.syntax, "syntax", "", "force a language (extension or scope name)")

	if err := rootCmd.Execute(); err != nil {
		// paths inside opts.run report their own detail before returning;
		// only errors that never reached them (flag parsing, setup) still
		// need a line here
		if !opts.reported {
			fmt.Fprintf(os.Stderr, "tmcat: %v\n", err)
		}
		return err
	}
	return nil
}

type options struct {
	fs afero.Fs

	number         bool
	numberNonblank bool
	squeezeBlank   bool
	raw            bool
	theme          string
	listThemes     bool
	grammarDir     string
	syntax         string

	// reported is set once an error has been written to stderr in full, so
	// the exit path does not repeat it
	reported bool
}

func (o *options) run(cmd *cobra.Command, args []string) error {
	themes, err := registry.LoadThemes()
	if err != nil {
		return err
	}

	if o.listThemes || o.theme == "list" {
		fmt.Fprintln(cmd.OutOrStdout(), "Supported Themes")
		for _, name := range themes.Names() {
			fmt.Fprintf(cmd.OutOrStdout(), " * %s\n", name)
		}
		return nil
	}

	styles, err := themes.Open(o.theme)
	if err != nil {
		if errors.Is(err, registry.ErrUnknownTheme) {
			fmt.Fprintf(cmd.ErrOrStderr(), "Unsupported Theme: %s\n", o.theme)
			fmt.Fprintln(cmd.ErrOrStderr(), "Supported Themes")
			for _, name := range themes.Names() {
				fmt.Fprintf(cmd.ErrOrStderr(), " * %s\n", name)
			}
			o.reported = true
		}
		return err
	}

	reg, err := registry.New()
	if err != nil {
		return err
	}
	if o.grammarDir != "" {
		if err := reg.AddDir(o.fs, o.grammarDir); err != nil {
			return err
		}
	}

	color := o.raw || isatty.IsTerminal(os.Stdout.Fd())

	if len(args) == 0 {
		args = []string{"-"}
	}

	var failed error
	for _, name := range args {
		if err := o.writeFile(cmd, reg, styles, name, color); err != nil {
			fmt.Fprintf(cmd.ErrOrStderr(), "tmcat: %s: %v\n", name, err)
			o.reported = true
			failed = multierr.Append(failed, err)
		}
	}

	// per-file failures are already reported; only a run where every input
	// failed exits non-zero
	if failed != nil && len(multierr.Errors(failed)) == len(args) {
		return failed
	}
	return nil
}

func (o *options) writeFile(cmd *cobra.Command, reg *registry.Registry, styles *style.Tree, name string, color bool) error {
	var reader io.Reader
	if name == "-" {
		reader = cmd.InOrStdin()
	} else {
		file, err := o.fs.Open(name)
		if err != nil {
			return errors.Errorf("opening: %w", err)
		}
		defer file.Close()
		reader = file
	}

	buffered := bufio.NewReader(reader)
	w := colorizer.NewWriter(cmd.OutOrStdout(), colorizer.Options{
		Number:         o.number || o.numberNonblank,
		NumberNonblank: o.numberNonblank,
		SqueezeBlank:   o.squeezeBlank,
	})

	if !color {
		return w.Copy(buffered)
	}

	g, err := o.detectGrammar(reg, name, buffered)
	if err != nil {
		return err
	}
	if g == nil {
		return w.Copy(buffered)
	}

	lc := colorizer.NewLineColorizer(styles, g)
	return w.Write(buffered, lc.ProcessLine)
}

// detectGrammar picks a grammar for an input: the --syntax override first,
// then the file extension, then (for streams without one) a firstLineMatch
// probe against the buffered head of the input. A nil grammar means copy
// through unstyled.
func (o *options) detectGrammar(reg *registry.Registry, name string, buffered *bufio.Reader) (*grammar.Grammar, error) {
	if o.syntax != "" {
		scope := o.syntax
		if !strings.Contains(scope, ".") {
			resolved, ok := reg.ScopeForExt(scope)
			if !ok {
				return nil, errors.Errorf("%w: %s", grammar.ErrUnknownSource, o.syntax)
			}
			scope = resolved
		}
		return reg.Grammar(scope)
	}

	if name != "-" {
		ext := strings.TrimPrefix(filepath.Ext(name), ".")
		if scope, ok := reg.ScopeForExt(ext); ok {
			return reg.Grammar(scope)
		}
		return nil, nil
	}

	head, err := buffered.Peek(buffered.Size())
	if err != nil && err != io.EOF && err != bufio.ErrBufferFull {
		return nil, errors.Errorf("reading: %w", err)
	}
	firstLine, _, _ := strings.Cut(string(head), "\n")
	if scope, ok := reg.ScopeForFirstLine(firstLine); ok {
		return reg.Grammar(scope)
	}
	return nil, nil
}
