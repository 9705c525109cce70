// Command sailsim runs the sailboat simulator and inspects recorded runs.
//
//	sailsim run    [-config dir] [-schedule file] [-duration d] [-storage type]
//	sailsim export -db file -run uuid [-format wkt|geojson]
//	sailsim plot   -db file -run uuid [-out track.png]
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
)

// BuildDate can be set at build time via ldflags
var (
	Version   = "0.1.0"
	BuildDate = "unknown"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Args[1:], os.Stdout, os.Stderr); err != nil {
		if !errors.Is(err, flag.ErrHelp) {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
		}
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	if len(args) == 0 {
		usage(stderr)
		return fmt.Errorf("no command given")
	}

	switch strings.ToLower(args[0]) {
	case "run":
		return runCommand(ctx, args[1:], stdout, stderr)
	case "export":
		return exportCommand(args[1:], stdout, stderr)
	case "plot":
		return plotCommand(args[1:], stdout, stderr)
	case "version":
		fmt.Fprintf(stdout, "sailsim %s (%s)\n", Version, BuildDate)
		return nil
	case "help", "-h", "--help":
		usage(stdout)
		return nil
	default:
		usage(stderr)
		return fmt.Errorf("unknown command %q", args[0])
	}
}

func usage(w io.Writer) {
	fmt.Fprintln(w, `usage:
  sailsim run    [-config dir] [-schedule file] [-duration d] [-storage type] [-name name] [-home lon,lat,alt]
  sailsim export -db file -run uuid [-format wkt|geojson]
  sailsim plot   -db file -run uuid [-out track.png]
  sailsim version`)
}
