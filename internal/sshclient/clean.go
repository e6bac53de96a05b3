package sshclient

import (
	"regexp"
	"strings"
)

var (
	ansiRe = regexp.MustCompile(`\x1b\[[0-9;?]*[a-zA-Z]`)

	// promptRe matches an IOS, IOS-XE or IOS-XR prompt at the very end of
	// the buffer, including configuration sub-modes.
	promptRe = regexp.MustCompile(`(?:^|\n)((?:RP/\d+/(?:RSP|RP)?\d+/CPU\d+:)?[A-Za-z0-9][\w.\-]*(?:\([\w.\-]+\))?[#>])[ \t]*$`)

	passwordRe = regexp.MustCompile(`(?i)(?:^|\n)[^\n]*password:[ \t]*$`)

	xrPrefixRe    = regexp.MustCompile(`^RP/\d+/(?:RSP|RP)?\d+/CPU\d+:`)
	configModeRe  = regexp.MustCompile(`\([\w.\-]+\)$`)
	xrTimestampRe = regexp.MustCompile(`^(?:Mon|Tue|Wed|Thu|Fri|Sat|Sun) \w{3} +\d+ \d{2}:\d{2}:\d{2}(?:\.\d+)? \S+$`)
)

// shellNotices are lines IOS prints when IOS.sh shell processing is off and
// a command contains characters the shell would interpret.
var shellNotices = []string{
	"IOS.sh",
	"shell is currently disabled",
	"term shell",
	"shell processing full",
	"man command",
	"The command you have entered",
	"You can enable",
	"You can also enable",
	"However, the shell",
	"There is additional information",
}

// normalize strips ANSI escapes and carriage returns.
func normalize(s string) string {
	s = ansiRe.ReplaceAllString(s, "")
	s = strings.ReplaceAll(s, "\r\n", "\n")

	return strings.ReplaceAll(s, "\r", "")
}

// HostnameFromPrompt returns the device name carried by a prompt such as
// "R1#", "R1(config)#" or "RP/0/RSP0/CPU0:xr1#".
func HostnameFromPrompt(prompt string) string {
	p := strings.TrimSpace(prompt)
	p = strings.TrimRight(p, "#>")
	p = xrPrefixRe.ReplaceAllString(p, "")

	return configModeRe.ReplaceAllString(p, "")
}

// cleanCommandOutput removes the command echo, the trailing prompt, a
// leading IOS.sh notice block and surrounding blank lines from one command's
// output.
func cleanCommandOutput(raw, command string) string {
	lines := strings.Split(normalize(raw), "\n")

	if len(lines) > 0 && command != "" && strings.Contains(lines[0], command) {
		lines = lines[1:]
	}

	if n := len(lines); n > 0 && promptRe.MatchString(strings.TrimSpace(lines[n-1])) {
		lines = lines[:n-1]
	}

	if len(lines) > 0 && xrTimestampRe.MatchString(strings.TrimSpace(lines[0])) {
		lines = lines[1:]
	}

	return trimBlankLines(lines[noticeBlockEnd(lines):])
}

// noticeBlockEnd returns the index just past the IOS.sh notice block that
// may open the output. Notice-like text further down, in a banner or a
// description, is left untouched.
func noticeBlockEnd(lines []string) int {
	end := 0

	for i, line := range lines {
		switch {
		case isShellNotice(line):
			end = i + 1
		case strings.TrimSpace(line) == "":
		default:
			return end
		}
	}

	return end
}

func isShellNotice(line string) bool {
	t := strings.TrimSpace(line)
	for _, notice := range shellNotices {
		if strings.Contains(t, notice) {
			return true
		}
	}

	return false
}

func trimBlankLines(lines []string) string {
	start, end := 0, len(lines)

	for start < end && strings.TrimSpace(lines[start]) == "" {
		start++
	}

	for end > start && strings.TrimSpace(lines[end-1]) == "" {
		end--
	}

	return strings.Join(lines[start:end], "\n")
}
