// pakx lists, scans and extracts sprite container files.
//
// Usage:
//
//	pakx [global flags] <command> [flags] <path>
//
// Commands:
//
//	list      show the assets a container resolves to
//	extract   export every asset and write manifest.cbor
//	scan      report embedded image signatures
//	catalog   list a folder of containers by category
//	manifest  print or verify a manifest.cbor
package main

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/pflag"

	"github.com/1siamBot/spritepak/engine/config"
	"github.com/1siamBot/spritepak/engine/logging"
	"github.com/1siamBot/spritepak/engine/pak"
)

// usageError marks bad invocations; main exits 2 for them.
type usageError struct{ msg string }

func (e *usageError) Error() string { return e.msg }
func (e *usageError) ExitCode() int { return 2 }

func usagef(format string, args ...any) error {
	return &usageError{msg: fmt.Sprintf(format, args...)}
}

func main() {
	if err := run(os.Args[1:], os.Stdout, os.Stderr); err != nil {
		fmt.Fprintf(os.Stderr, "pakx: %v\n", err)
		var coder interface{ ExitCode() int }
		if errors.As(err, &coder) {
			os.Exit(coder.ExitCode())
		}
		os.Exit(1)
	}
}

// env is what every command receives after global flag parsing.
type env struct {
	cfg    *config.Config
	log    *slog.Logger
	stdout io.Writer
}

func (e *env) resolver() (*pak.Resolver, error) {
	opts, err := e.cfg.ResolverOptions(e.log)
	if err != nil {
		return nil, err
	}
	return pak.NewResolver(opts), nil
}

type command struct {
	name  string
	usage string
	run   func(e *env, args []string) error
}

var commands = []command{
	{"list", "list [--previews] <file>", runList},
	{"extract", "extract [-o dir] [--format png] [--scale n] [--quality q] <file>", runExtract},
	{"scan", "scan <file>", runScan},
	{"catalog", "catalog [--filter category] [--duplicates] <dir>", runCatalog},
	{"manifest", "manifest [--diag] [--verify file] <manifest.cbor>", runManifest},
}

func run(args []string, stdout, stderr io.Writer) error {
	var (
		configPath string
		debug      bool
		logFormat  string
		logFile    string
	)
	flags := pflag.NewFlagSet("pakx", pflag.ContinueOnError)
	flags.SetOutput(stderr)
	flags.SetInterspersed(false)
	flags.StringVar(&configPath, "config", "", "YAML config file (default $"+config.EnvVar+")")
	flags.BoolVar(&debug, "debug", false, "log every strategy attempt")
	flags.StringVar(&logFormat, "log-format", "text", "log format: text or json")
	flags.StringVar(&logFile, "log-file", "", "write logs to this file instead of stderr")
	flags.Usage = func() { printUsage(stderr, flags) }
	if err := flags.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return nil
		}
		return &usageError{msg: err.Error()}
	}

	rest := flags.Args()
	if len(rest) == 0 {
		printUsage(stderr, flags)
		return usagef("no command given")
	}

	logger, cleanup, err := logging.Setup(logging.Config{Debug: debug, Format: logFormat, Output: logFile, Stderr: stderr})
	if err != nil {
		return err
	}
	defer cleanup()

	cfg, err := config.Load(config.Path(configPath))
	if err != nil {
		return err
	}
	e := &env{cfg: cfg, log: logger, stdout: stdout}

	for _, c := range commands {
		if c.name == rest[0] {
			return c.run(e, rest[1:])
		}
	}
	printUsage(stderr, flags)
	return usagef("unknown command %q", rest[0])
}

func printUsage(w io.Writer, flags *pflag.FlagSet) {
	fmt.Fprintf(w, "Usage: pakx [flags] <command> ...\n\nCommands:\n")
	for _, c := range commands {
		fmt.Fprintf(w, "  pakx %s\n", c.usage)
	}
	fmt.Fprintf(w, "\nFlags:\n")
	flags.SetOutput(w)
	flags.PrintDefaults()
}

// oneArg parses a subcommand's flags and returns its single positional argument.
func oneArg(flags *pflag.FlagSet, args []string) (string, error) {
	if err := flags.Parse(args); err != nil {
		return "", &usageError{msg: err.Error()}
	}
	if flags.NArg() != 1 {
		return "", usagef("%s: expected exactly one path, got %d", flags.Name(), flags.NArg())
	}
	return flags.Arg(0), nil
}
