// Command fabricctl inspects a fabric snapshot from the command line:
// topology listings, path queries, oversubscription analyses, zoning
// connectivity, format conversion, and an interactive browser.
package main

import (
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/dd0wney/cluso-fabric/pkg/config"
	"github.com/dd0wney/cluso-fabric/pkg/ingest"
	"github.com/dd0wney/cluso-fabric/pkg/logging"
	"github.com/dd0wney/cluso-fabric/pkg/snapshot"
)

const usage = `fabricctl - FC SAN fabric topology and capacity analysis

Usage:
  fabricctl [flags] <command> [args]

Commands:
  summary                 snapshot counts and load issues
  issues                  load issues only
  ports [role]            list ports, optionally initiator, target or switch
  connections             list physical links
  islands                 list connected components
  path <source> <dest>    shortest path and effective speed
  nodes                   storage node oversubscription
  isl                     inter-switch link oversubscription
  oversub                 combined analysis, node level first
  hosts                   host to target mapping from zoning
  host <wwpn>             host connectivity to array nodes
  convert <out>           write the snapshot as YAML (.sz for snappy)
  browse                  interactive browser

Flags:
`

var errUsage = errors.New("usage")

func main() {
	err := run(os.Args[1:], os.Stdout, os.Stderr)
	switch {
	case err == nil:
	case errors.Is(err, errUsage):
		os.Exit(2)
	default:
		fmt.Fprintln(os.Stderr, errorStyle.Render("✗ "+err.Error()))
		os.Exit(1)
	}
}

func run(args []string, stdout, stderr io.Writer) error {
	fs := flag.NewFlagSet("fabricctl", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.Usage = func() {
		fmt.Fprint(fs.Output(), usage)
		fs.PrintDefaults()
	}
	asJSON := fs.Bool("json", false, "print JSON instead of tables")

	cfg, err := config.LoadArgs(fs, args)
	if errors.Is(err, flag.ErrHelp) {
		return nil
	}
	if err != nil {
		return err
	}
	if fs.NArg() == 0 {
		fs.Usage()
		return errUsage
	}

	// Load chatter stays quiet unless a level was asked for.
	level := logging.WarnLevel
	if flagSet(fs, "log-level") {
		level = cfg.LogLevel()
	}
	logger := logging.NewJSONLogger(stderr, level)

	if cfg.Snapshot.Path == "" {
		return fmt.Errorf("no snapshot: pass -snapshot or set %s", config.EnvSnapshot)
	}
	doc, err := ingest.Open(cfg.Snapshot.Path, ingest.DumpOptions{ArrayName: cfg.Snapshot.ArrayName})
	if err != nil {
		return err
	}

	cmd, cmdArgs := fs.Arg(0), fs.Args()[1:]
	if cmd == "convert" {
		return convert(doc, cmdArgs, stdout)
	}

	opts := []snapshot.Option{snapshot.WithLogger(logger)}
	if cfg.Snapshot.Strict {
		opts = append(opts, snapshot.Strict())
	}
	snap, err := snapshot.Load(doc.Records(), opts...)
	if err != nil {
		return err
	}

	a := &app{
		snap:   snap,
		opts:   cfg.CapacityOptions(),
		out:    stdout,
		asJSON: *asJSON,
	}
	if cmd == "browse" {
		return browse(a)
	}
	return a.dispatch(cmd, cmdArgs)
}

func convert(doc *ingest.Document, args []string, out io.Writer) error {
	if len(args) != 1 {
		return fmt.Errorf("convert: want 1 argument (output path), got %d", len(args))
	}
	if err := ingest.WriteFile(args[0], doc); err != nil {
		return err
	}
	fmt.Fprintln(out, successStyle.Render("✓ wrote "+args[0]))
	return nil
}

func flagSet(fs *flag.FlagSet, name string) bool {
	found := false
	fs.Visit(func(f *flag.Flag) {
		if f.Name == name {
			found = true
		}
	})
	return found
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
