package main

import (
	"flag"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/charmbracelet/log"

	"github.com/sstent/garminexport/internal/export"
	"github.com/sstent/garminexport/internal/garmin"
)

// cliOptions holds the parsed command line.
type cliOptions struct {
	username     string
	password     string
	count        export.Count
	format       garmin.Format
	directory    string
	subdir       string
	unzip        bool
	originalTime bool
	desc         descFlag
	template     string
	filePrefix   bool
	external     string
	externalArgs string
	verbosity    verbosityFlag
	schedule     string
	httpAddr     string
	ledger       string
	version      bool
}

// descFlag is --desc or --desc=N.
type descFlag struct {
	enabled bool
	length  int
}

func (d *descFlag) String() string {
	if !d.enabled {
		return ""
	}
	return strconv.Itoa(d.length)
}

func (d *descFlag) Set(s string) error {
	if b, err := strconv.ParseBool(s); err == nil {
		d.enabled, d.length = b, 0
		return nil
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < 0 {
		return fmt.Errorf("desc length must be a non-negative number")
	}
	d.enabled, d.length = true, n
	return nil
}

func (d *descFlag) IsBoolFlag() bool { return true }

// verbosityFlag counts -v occurrences; -vv counts as two.
type verbosityFlag int

func (v *verbosityFlag) String() string { return strconv.Itoa(int(*v)) }

func (v *verbosityFlag) Set(s string) error {
	b, err := strconv.ParseBool(s)
	if err != nil {
		return err
	}
	if b {
		*v++
	}
	return nil
}

func (v *verbosityFlag) IsBoolFlag() bool { return true }

func (v verbosityFlag) level() log.Level {
	switch {
	case v >= 2:
		return log.DebugLevel
	case v == 1:
		return log.InfoLevel
	}
	return log.WarnLevel
}

func defaultDirectory(now time.Time) string {
	return "./" + now.Format(time.DateOnly) + "_garmin_connect_export"
}

func parseFlags(args []string, stderr io.Writer) (cliOptions, error) {
	var opts cliOptions
	fs := flag.NewFlagSet("garminexport", flag.ContinueOnError)
	fs.SetOutput(stderr)

	count := fs.String("count", "1", "number of recent activities to download, or 'all' or 'new'")
	format := fs.String("format", string(garmin.FormatGPX), "export format: gpx, tcx, original or json")
	fs.StringVar(&opts.username, "username", "", "Garmin Connect username or email address (prompted if empty)")
	fs.StringVar(&opts.password, "password", "", "Garmin Connect password (prompted if empty)")
	fs.StringVar(&opts.directory, "directory", defaultDirectory(time.Now()), "the directory to export to")
	fs.StringVar(&opts.subdir, "subdir", "", "subdirectory for activity files; {YYYY} and {MM} are replaced")
	fs.BoolVar(&opts.unzip, "unzip", false, "unzip original downloads and remove the zip file")
	fs.BoolVar(&opts.originalTime, "originaltime", false, "set file times to the activity start time")
	fs.Var(&opts.desc, "desc", "append the description to file names; --desc=N limits it to N characters")
	fs.StringVar(&opts.template, "template", "", "properties file listing the CSV columns (default: built in)")
	fs.BoolVar(&opts.filePrefix, "fileprefix", false, "name files after the local start time")
	fs.StringVar(&opts.external, "external", "", "program to pass the CSV file to after the export")
	fs.StringVar(&opts.externalArgs, "external-args", "", "additional arguments for the external program")
	fs.Var(&opts.verbosity, "v", "increase output verbosity")
	fs.BoolFunc("vv", "debug output", func(string) error {
		opts.verbosity += 2
		return nil
	})
	fs.StringVar(&opts.schedule, "schedule", "", "cron spec; export repeatedly and serve the ledger over HTTP")
	fs.StringVar(&opts.httpAddr, "http", "", "listen address in schedule mode (default $GARMIN_HTTP_ADDR)")
	fs.StringVar(&opts.ledger, "ledger", "", "export ledger database (default $GARMIN_LEDGER_PATH)")
	fs.BoolVar(&opts.version, "version", false, "print version and exit")

	if err := fs.Parse(args); err != nil {
		return opts, err
	}
	if fs.NArg() > 0 {
		return opts, fmt.Errorf("unexpected arguments: %v", fs.Args())
	}

	var err error
	if opts.count, err = export.ParseCount(*count); err != nil {
		return opts, err
	}
	if opts.format, err = garmin.ParseFormat(*format); err != nil {
		return opts, err
	}
	return opts, nil
}
