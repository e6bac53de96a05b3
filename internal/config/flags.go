package config

import (
	"time"

	"github.com/spf13/pflag"
)

// Flags are the command-line overrides. Only flags the operator actually set
// replace file values.
type Flags struct {
	fs *pflag.FlagSet

	ConfigPath string

	inventory        string
	output           string
	ntpServer        string
	timezone         string
	cdpTemplate      string
	versionTemplate  string
	port             int
	timeout          time.Duration
	cmdTimeout       time.Duration
	knownHosts       string
	legacyAlgorithms bool
	summary          bool
	dryRun           bool
	verbose          bool
	logFormat        string
}

// AddFlags registers the configuration flags on fs.
func AddFlags(fs *pflag.FlagSet) *Flags {
	f := &Flags{fs: fs}
	def := Default()

	fs.StringVarP(&f.ConfigPath, "config", "c", "", "YAML configuration file")
	fs.StringVarP(&f.inventory, "inventory", "i", def.Inventory, "device inventory (.yaml, .json, .jsonc, .csv)")
	fs.StringVarP(&f.output, "output", "o", def.OutputDirectory, "directory for running-config dumps")
	fs.StringVar(&f.ntpServer, "ntp-server", def.NTPServer, "NTP server to probe and configure")
	fs.StringVar(&f.timezone, "timezone", def.Timezone, `argument for "clock timezone"`)
	fs.StringVar(&f.cdpTemplate, "cdp-template", def.Templates.CDPNeighbors, "TextFSM template for show cdp neighbors")
	fs.StringVar(&f.versionTemplate, "version-template", def.Templates.ShowVersion, "TextFSM template for show version")
	fs.IntVar(&f.port, "port", def.SSH.Port, "default SSH port")
	fs.DurationVar(&f.timeout, "timeout", def.SSH.Timeout, "SSH dial and auth timeout")
	fs.DurationVar(&f.cmdTimeout, "cmd-timeout", def.SSH.CommandTimeout, "max wait for the prompt after a command")
	fs.StringVar(&f.knownHosts, "known-hosts", "", "known_hosts file (empty accepts any host key)")
	fs.BoolVar(&f.legacyAlgorithms, "legacy-algorithms", false, "allow legacy SSH kex and ciphers")
	fs.BoolVar(&f.summary, "summary", false, "write SUMMARY_<timestamp>.log to the output directory")
	fs.BoolVar(&f.dryRun, "dry-run", false, "show planned commands without connecting")
	fs.BoolVarP(&f.verbose, "verbose", "v", false, "debug logging")
	fs.StringVar(&f.logFormat, "log-format", def.Log.Format, "log format: auto, console or json")

	return f
}

// Apply copies explicitly set flags into cfg.
func (f *Flags) Apply(cfg *Config) {
	set := f.fs.Changed

	if set("inventory") {
		cfg.Inventory = f.inventory
	}
	if set("output") {
		cfg.OutputDirectory = f.output
	}
	if set("ntp-server") {
		cfg.NTPServer = f.ntpServer
	}
	if set("timezone") {
		cfg.Timezone = f.timezone
	}
	if set("cdp-template") {
		cfg.Templates.CDPNeighbors = f.cdpTemplate
	}
	if set("version-template") {
		cfg.Templates.ShowVersion = f.versionTemplate
	}
	if set("port") {
		cfg.SSH.Port = f.port
	}
	if set("timeout") {
		cfg.SSH.Timeout = f.timeout
	}
	if set("cmd-timeout") {
		cfg.SSH.CommandTimeout = f.cmdTimeout
	}
	if set("known-hosts") {
		cfg.SSH.KnownHosts = f.knownHosts
	}
	if set("legacy-algorithms") {
		cfg.SSH.LegacyAlgorithms = f.legacyAlgorithms
	}
	if set("summary") {
		cfg.SummaryFile = f.summary
	}
	if set("dry-run") {
		cfg.DryRun = f.dryRun
	}
	if set("verbose") {
		cfg.Log.Debug = f.verbose
	}
	if set("log-format") {
		cfg.Log.Format = f.logFormat
	}
}
