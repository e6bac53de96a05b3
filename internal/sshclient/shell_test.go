package sshclient

import (
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"netsync/internal/logger"
)

const waitShort = 2 * time.Second

func testLogger() zerolog.Logger {
	return logger.NewTestLogger()
}

func TestShell_ElevateWithSecret(t *testing.T) {
	dev := &fakeDevice{hostname: "R1", secret: "s3cret"}
	sh := startShell(t, dev)

	_, err := sh.waitPrompt(waitShort)
	require.NoError(t, err)
	assert.Equal(t, "R1>", sh.prompt)

	require.NoError(t, sh.elevate("s3cret", waitShort))
	assert.Equal(t, "R1#", sh.prompt)
	assert.True(t, sh.privileged())
}

func TestShell_ElevateWrongSecret(t *testing.T) {
	dev := &fakeDevice{hostname: "R1", secret: "s3cret"}
	sh := startShell(t, dev)

	_, err := sh.waitPrompt(waitShort)
	require.NoError(t, err)

	err = sh.elevate("wrong", waitShort)
	require.Error(t, err)
	assert.True(t, errors.Is(err, errEnableFailed))
}

func TestShell_ElevateSkippedWhenPrivileged(t *testing.T) {
	dev := &fakeDevice{hostname: "SW1", startPrivileged: true}
	sh := startShell(t, dev)

	_, err := sh.waitPrompt(waitShort)
	require.NoError(t, err)
	require.NoError(t, sh.elevate("", waitShort))

	require.NoError(t, sh.disablePaging(waitShort))
	assert.Equal(t, []string{"terminal length 0", "terminal width 512"}, dev.Received())
}

func TestShell_RunReturnsCleanOutput(t *testing.T) {
	dev := &fakeDevice{
		hostname:        "edge-rtr.lab",
		startPrivileged: true,
		outputs: map[string]string{
			"show clock": "*10:15:02.123 UTC Mon Mar 1 2021",
		},
	}
	sh := startShell(t, dev)

	_, err := sh.waitPrompt(waitShort)
	require.NoError(t, err)

	out, err := sh.run("show clock", waitShort)
	require.NoError(t, err)
	assert.Equal(t, "*10:15:02.123 UTC Mon Mar 1 2021", out)
	assert.Equal(t, "edge-rtr.lab", HostnameFromPrompt(sh.prompt))

	out, err = sh.run("show bogus", waitShort)
	require.NoError(t, err)
	assert.Contains(t, out, "% Invalid input detected")
}

func TestShell_RunTimesOut(t *testing.T) {
	dev := &fakeDevice{
		hostname:        "R1",
		startPrivileged: true,
		silent:          map[string]bool{"show tech-support": true},
	}
	sh := startShell(t, dev)

	_, err := sh.waitPrompt(waitShort)
	require.NoError(t, err)

	_, err = sh.run("show tech-support", 50*time.Millisecond)
	require.Error(t, err)
	assert.True(t, errors.Is(err, errTimeout))
}

func TestShell_DeviceClosesSession(t *testing.T) {
	dev := &fakeDevice{hostname: "R1", startPrivileged: true}
	sh := startShell(t, dev)

	_, err := sh.waitPrompt(waitShort)
	require.NoError(t, err)

	require.NoError(t, sh.send("exit"))

	_, err = sh.waitPrompt(waitShort)
	require.Error(t, err)
	assert.True(t, errors.Is(err, errClosed))
}

func TestShell_Configure(t *testing.T) {
	dev := &fakeDevice{
		hostname:        "R1",
		startPrivileged: true,
		outputs: map[string]string{
			"ntp server 192.168.100.3": "% NTP: server already configured",
		},
	}
	sh := startShell(t, dev)

	_, err := sh.waitPrompt(waitShort)
	require.NoError(t, err)

	commands := []string{"clock timezone GMT +0", "ntp server 192.168.100.3"}

	transcript, err := sh.configure(commands, false, waitShort)
	require.NoError(t, err)

	assert.Equal(t, commands, dev.Configured())
	assert.Contains(t, transcript, "R1(config)#")
	assert.Contains(t, transcript, "clock timezone GMT +0")
	assert.Contains(t, transcript, "% NTP: server already configured")
	assert.Equal(t, "R1#", sh.prompt)
}

func TestShell_ConfigureCommitsOnXR(t *testing.T) {
	dev := &fakeDevice{hostname: "xr1", xr: true}
	sh := startShell(t, dev)

	_, err := sh.waitPrompt(waitShort)
	require.NoError(t, err)
	assert.Equal(t, "RP/0/RSP0/CPU0:xr1#", sh.prompt)

	_, err = sh.configure([]string{"ntp server 10.0.0.1"}, true, waitShort)
	require.NoError(t, err)
	assert.Equal(t, []string{"ntp server 10.0.0.1", "commit"}, dev.Configured())
	assert.Equal(t, "xr1", HostnameFromPrompt(sh.prompt))
}

func TestShell_LargeOutputInSmallChunks(t *testing.T) {
	r, w := io.Pipe()
	sh := newShell(io.Discard, r, testLogger())
	t.Cleanup(func() {
		sh.close()
		_ = r.Close()
	})

	line := strings.Repeat("x", 79) + "\r\n"
	body := strings.Repeat(line, 2<<20/len(line))

	go func() {
		data := []byte("show running-config\r\n" + body + "R1#")
		for len(data) > 0 {
			n := min(1024, len(data))
			if _, err := w.Write(data[:n]); err != nil {
				return
			}
			data = data[n:]
		}
	}()

	start := time.Now()

	out, err := sh.run("show running-config", 10*time.Second)
	require.NoError(t, err)
	assert.Less(t, time.Since(start), 5*time.Second)
	assert.Equal(t, "R1#", sh.prompt)
	assert.Equal(t, strings.Count(body, "\n"), strings.Count(out, "\n")+1)
	assert.True(t, strings.HasPrefix(out, strings.Repeat("x", 79)+"\n"))
}

func TestShell_EscapeSequenceSplitAcrossChunks(t *testing.T) {
	r, w := io.Pipe()
	sh := newShell(io.Discard, r, testLogger())
	t.Cleanup(func() {
		sh.close()
		_ = r.Close()
	})

	go func() {
		for _, part := range []string{"banner\r", "\n\x1b[", "0mR1", "\x1b", "[K#"} {
			if _, err := io.WriteString(w, part); err != nil {
				return
			}
		}
	}()

	text, err := sh.waitPrompt(waitShort)
	require.NoError(t, err)
	assert.Equal(t, "banner\nR1#", text)
	assert.Equal(t, "R1#", sh.prompt)
}
