/*
================================================================================
netsync - Cisco IOS clock/NTP synchronisation and inventory report
Collects running-config, CDP and version data, then pushes clock settings
================================================================================
*/

package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/pflag"
	"golang.org/x/term"

	"netsync/internal/backup"
	"netsync/internal/config"
	"netsync/internal/inventory"
	"netsync/internal/logger"
	"netsync/internal/report"
	"netsync/internal/runner"
	"netsync/internal/sshclient"
)

const (
	Version = "1.0.0"
	Banner  = `
================================================================================
  netsync v%s
  inventory: %s | ntp: %s | output: %s
================================================================================
`
)

// Exit codes.
const (
	exitOK    = 0
	exitFatal = 1
	exitUsage = 2
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdin, os.Stdout, os.Stderr))
}

// ============================================================================
// RUN
// ============================================================================

func run(args []string, stdin *os.File, stdout, stderr io.Writer) int {
	fs := pflag.NewFlagSet("netsync", pflag.ContinueOnError)
	fs.SetOutput(stderr)

	flags := config.AddFlags(fs)
	askPass := fs.Bool("ask-pass", false, "prompt for the SSH password of devices that have none")
	showVersion := fs.Bool("version", false, "print the version and exit")

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return exitOK
		}

		return exitUsage
	}

	if fs.NArg() > 0 {
		fmt.Fprintf(stderr, "unexpected arguments: %v\n", fs.Args())
		fmt.Fprint(stderr, fs.FlagUsages())

		return exitUsage
	}

	if *showVersion {
		fmt.Fprintf(stdout, "netsync %s\n", Version)
		return exitOK
	}

	cfg, err := config.Load(flags.ConfigPath)
	if err != nil {
		fmt.Fprintf(stderr, "error: %v\n", err)
		return exitFatal
	}

	flags.Apply(cfg)

	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(stderr, "invalid configuration: %v\n", err)
		return exitFatal
	}

	log, err := logger.New(cfg.Log)
	if err != nil {
		fmt.Fprintf(stderr, "error: %v\n", err)
		return exitFatal
	}

	devices, err := inventory.Load(cfg.Inventory)
	if err != nil {
		log.Error().Err(err).Str("path", cfg.Inventory).Msg("failed to load inventory")
		return exitFatal
	}

	log.Info().Int("devices", len(devices)).Str("path", cfg.Inventory).Msg("inventory loaded")

	if *askPass && !cfg.DryRun {
		if err := fillPasswords(devices, stdin, stderr); err != nil {
			log.Error().Err(err).Msg("failed to read password")
			return exitFatal
		}
	}

	opts := runner.Options{
		NTPServer:       cfg.NTPServer,
		Timezone:        cfg.Timezone,
		CDPTemplate:     cfg.Templates.CDPNeighbors,
		VersionTemplate: cfg.Templates.ShowVersion,
		DryRun:          cfg.DryRun,
	}

	if err := runner.Preflight(opts); err != nil {
		log.Error().Err(err).Msg("template check failed")
		return exitFatal
	}

	client, err := sshclient.New(sshclient.Config{
		Port:             cfg.SSH.Port,
		Timeout:          cfg.SSH.Timeout,
		CommandTimeout:   cfg.SSH.CommandTimeout,
		KnownHosts:       cfg.SSH.KnownHosts,
		LegacyAlgorithms: cfg.SSH.LegacyAlgorithms,
	}, logger.WithComponent(log, "sshclient"))
	if err != nil {
		log.Error().Err(err).Msg("failed to set up ssh")
		return exitFatal
	}

	fmt.Fprintf(stdout, Banner, Version, cfg.Inventory, cfg.NTPServer, cfg.OutputDirectory)

	r := runner.New(client, backup.NewWriter(cfg.OutputDirectory), opts, stdout, logger.WithComponent(log, "runner"))
	started := time.Now()

	rep := r.Run(devices)

	if _, err := rep.WriteTo(stdout); err != nil {
		log.Error().Err(err).Msg("failed to print report")
	}

	if cfg.SummaryFile && !cfg.DryRun {
		writeSummary(log, rep, cfg.OutputDirectory, r.RunID(), started)
	}

	return exitOK
}

func writeSummary(log zerolog.Logger, rep *report.Report, dir, runID string, ts time.Time) {
	path, err := rep.WriteSummaryFile(dir, runID, ts)
	if err != nil {
		log.Error().Err(err).Msg("failed to write summary")
		return
	}

	log.Info().Str("path", path).Msg("summary written")
}

// fillPasswords prompts once and uses the answer for every device without
// a password.
func fillPasswords(devices []inventory.Device, stdin *os.File, prompt io.Writer) error {
	missing := inventory.MissingPasswords(devices)
	if len(missing) == 0 {
		return nil
	}

	fd := int(stdin.Fd())
	if !term.IsTerminal(fd) {
		return errors.New("--ask-pass needs an interactive terminal")
	}

	fmt.Fprintf(prompt, "SSH password for %d device(s): ", len(missing))

	pass, err := term.ReadPassword(fd)
	fmt.Fprintln(prompt)

	if err != nil {
		return err
	}

	for _, i := range missing {
		devices[i].Password = string(pass)
	}

	return nil
}
