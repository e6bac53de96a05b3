// Package runner drives every inventory device through the collection,
// classification and clock configuration steps and builds the report.
package runner

//go:generate mockgen -destination=mock_executor.go -package=runner netsync/internal/runner Executor

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"netsync/internal/backup"
	"netsync/internal/classify"
	"netsync/internal/inventory"
	"netsync/internal/report"
	"netsync/internal/sshclient"
	"netsync/internal/textfsm"
)

// Commands run on every device, in order.
const (
	CmdShowUsers     = "show users"
	CmdRunningConfig = "show running-config"
	CmdCDPNeighbors  = "show cdp neighbors"
	CmdShowVersion   = "show version"

	cmdPing = "ping %s"
)

// Executor runs commands on a device. Each call uses its own session.
type Executor interface {
	Execute(dev inventory.Device, command string) (*sshclient.Result, error)
	ExecuteBatch(dev inventory.Device, commands []string) (string, error)
}

// Options carries the run settings taken from configuration.
type Options struct {
	NTPServer       string
	Timezone        string
	CDPTemplate     string
	VersionTemplate string
	DryRun          bool
}

// Runner processes devices strictly one after another.
type Runner struct {
	exec    Executor
	backups *backup.Writer
	opts    Options
	out     io.Writer
	log     zerolog.Logger
	runID   string
}

// New returns a Runner. Operator progress goes to out, diagnostics to log.
func New(exec Executor, backups *backup.Writer, opts Options, out io.Writer, log zerolog.Logger) *Runner {
	runID := uuid.NewString()

	return &Runner{
		exec:    exec,
		backups: backups,
		opts:    opts,
		out:     out,
		log:     log.With().Str("run_id", runID).Logger(),
		runID:   runID,
	}
}

// RunID identifies this run in logs and the summary file.
func (r *Runner) RunID() string { return r.runID }

// Preflight loads both templates so a broken file stops the run before any
// device is contacted.
func Preflight(opts Options) error {
	for _, path := range []string{opts.CDPTemplate, opts.VersionTemplate} {
		if _, err := textfsm.ParseFile(path); err != nil {
			return err
		}
	}

	return nil
}

// PingCommand returns the reachability probe for the NTP server.
func (r *Runner) PingCommand() string {
	return fmt.Sprintf(cmdPing, r.opts.NTPServer)
}

// Run processes devices in order. A failing device is recorded as FAILED
// and the run continues with the next one.
func (r *Runner) Run(devices []inventory.Device) *report.Report {
	rep := report.New()

	r.log.Info().Int("devices", len(devices)).Bool("dry_run", r.opts.DryRun).Msg("starting run")

	for i, dev := range devices {
		if r.opts.DryRun {
			r.plan(i+1, dev)
			continue
		}

		entry := r.processDevice(dev)
		rep.Add(entry)

		ev := r.log.Info()
		if entry.Status == report.StatusFailed {
			ev = r.log.Warn().Str("reason", entry.Reason)
		}
		ev.Str("device", entry.Name()).Str("status", string(entry.Status)).Msg("device done")
	}

	ok, failed := rep.Counts()
	r.log.Info().Int("ok", ok).Int("failed", failed).Msg("run complete")

	return rep
}

func (r *Runner) plan(n int, dev inventory.Device) {
	fmt.Fprintf(r.out, "[%d] %s (%s, %s)\n", n, dev.Address(), dev.DeviceType, dev.Platform)

	for _, cmd := range []string{CmdShowUsers, CmdRunningConfig, CmdCDPNeighbors, CmdShowVersion, r.PingCommand()} {
		fmt.Fprintf(r.out, "    %s\n", cmd)
	}

	batch := classify.ClockBatch(r.opts.Timezone, r.opts.NTPServer)
	if dev.Platform.IsXR() {
		batch = append(batch, "commit")
	}

	fmt.Fprintf(r.out, "    if %s answers: %s\n", r.opts.NTPServer, strings.Join(batch, "; "))
}

func (r *Runner) processDevice(dev inventory.Device) report.Entry {
	entry := report.Entry{Address: dev.Address()}
	log := r.log.With().Str("address", dev.Address()).Logger()

	fail := func(err error) report.Entry {
		entry.Status = report.StatusFailed
		entry.Reason = err.Error()

		var te *sshclient.TransportError
		if errors.As(err, &te) {
			log.Error().Err(err).Str("op", te.Op).Msg("device unreachable")
		} else {
			log.Error().Err(err).Msg("device failed")
		}

		return entry
	}

	users, err := r.exec.Execute(dev, CmdShowUsers)
	if err != nil {
		return fail(err)
	}

	entry.Hostname = users.Hostname
	log = log.With().Str("device", entry.Hostname).Logger()

	running, err := r.exec.Execute(dev, CmdRunningConfig)
	if err != nil {
		return fail(err)
	}

	path, err := r.backups.Save(running.Hostname, running.Timestamp, running.Output)
	if err != nil {
		entry.BackupErr = err
		log.Error().Err(err).Msg("running-config not saved")
	} else {
		entry.Backup = path
		log.Debug().Str("path", path).Msg("running-config saved")
	}

	cdp, err := r.cdp(dev)
	if err != nil {
		return fail(err)
	}
	entry.CDP = cdp

	version, err := r.version(dev)
	if err != nil {
		return fail(err)
	}
	entry.Hardware = version.Hardware
	entry.Version = version.Version
	entry.ImageState = version.ImageState

	clock, err := r.syncClock(dev, log)
	if err != nil {
		return fail(err)
	}
	entry.Clock = clock

	entry.Status = report.StatusOK

	return entry
}

func (r *Runner) cdp(dev inventory.Device) (classify.CDPResult, error) {
	res, err := r.exec.Execute(dev, CmdCDPNeighbors)
	if err != nil {
		return classify.CDPResult{}, err
	}

	tmpl, err := textfsm.ParseFile(r.opts.CDPTemplate)
	if err != nil {
		return classify.CDPResult{}, err
	}

	return classify.CDP(res.Output, tmpl)
}

func (r *Runner) version(dev inventory.Device) (classify.VersionResult, error) {
	res, err := r.exec.Execute(dev, CmdShowVersion)
	if err != nil {
		return classify.VersionResult{}, err
	}

	tmpl, err := textfsm.ParseFile(r.opts.VersionTemplate)
	if err != nil {
		return classify.VersionResult{}, err
	}

	return classify.Version(res.Output, tmpl)
}

// syncClock probes the NTP server and, when it answers, pushes the clock
// batch. Device-side rejections in the batch are logged, not verified.
func (r *Runner) syncClock(dev inventory.Device, log zerolog.Logger) (classify.ClockState, error) {
	ping, err := r.exec.Execute(dev, r.PingCommand())
	if err != nil {
		return classify.ClockNotSynced, err
	}

	if stats, ok := classify.PingSuccessRate(ping.Output); ok {
		log.Debug().Int("percent", stats.Percent).Int("received", stats.Received).Int("sent", stats.Sent).
			Str("ntp_server", r.opts.NTPServer).Msg("ntp probe")
	}

	if !classify.NTPReachable(ping.Output) {
		fmt.Fprintf(r.out, "For device %s address of NTP server is not reachable\n", dev.Address())
		return classify.ClockNotSynced, nil
	}

	fmt.Fprintf(r.out, "Commands with NTP will be executed for device %s\n", dev.Address())

	state := classify.ClockPending
	log.Debug().Str("clock", string(state)).Msg("sending clock batch")

	transcript, err := r.exec.ExecuteBatch(dev, classify.ClockBatch(r.opts.Timezone, r.opts.NTPServer))
	if err != nil {
		return state, err
	}

	fmt.Fprintln(r.out, transcript)

	for _, line := range classify.BatchRejections(transcript) {
		log.Warn().Str("line", line).Msg("device rejected configuration line")
	}

	return classify.ClockSynced, nil
}
