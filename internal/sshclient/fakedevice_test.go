package sshclient

import (
	"bufio"
	"crypto/ed25519"
	"crypto/rand"
	"errors"
	"io"
	"net"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/ssh"
)

// fakeDevice is a scripted IOS-like CLI: it echoes input, answers from
// outputs and prints a mode-dependent prompt.
type fakeDevice struct {
	hostname        string
	xr              bool
	secret          string
	startPrivileged bool
	outputs         map[string]string
	silent          map[string]bool

	mu         sync.Mutex
	sessions   int
	received   []string
	configured []string
}

func (d *fakeDevice) prompt(mode string) string {
	name := d.hostname
	if d.xr {
		name = "RP/0/RSP0/CPU0:" + name
	}

	switch mode {
	case "user":
		return name + ">"
	case "config":
		return name + "(config)#"
	}

	return name + "#"
}

func (d *fakeDevice) Received() []string {
	d.mu.Lock()
	defer d.mu.Unlock()

	return append([]string(nil), d.received...)
}

func (d *fakeDevice) Configured() []string {
	d.mu.Lock()
	defer d.mu.Unlock()

	return append([]string(nil), d.configured...)
}

func (d *fakeDevice) Sessions() int {
	d.mu.Lock()
	defer d.mu.Unlock()

	return d.sessions
}

func (d *fakeDevice) serve(r io.ReadCloser, w io.WriteCloser) {
	defer r.Close()
	defer w.Close()

	d.mu.Lock()
	d.sessions++
	d.mu.Unlock()

	mode := "user"
	if d.startPrivileged || d.xr {
		mode = "priv"
	}

	write := func(s string) { _, _ = io.WriteString(w, s) }

	write("\r\n\x1b[0mAuthorized access only\r\n\r\n" + d.prompt(mode))

	br := bufio.NewReader(r)
	awaitingSecret := false

	for {
		line, err := br.ReadString('\n')
		if err != nil {
			return
		}
		line = strings.TrimRight(line, "\r\n")

		if awaitingSecret {
			awaitingSecret = false
			write("\r\n")
			if line == d.secret {
				mode = "priv"
			} else {
				write("% Access denied\r\n\r\n")
			}
			write(d.prompt(mode))

			continue
		}

		d.mu.Lock()
		d.received = append(d.received, line)
		d.mu.Unlock()

		write(line + "\r\n")

		out := ""

		switch {
		case line == "exit" && mode != "config":
			return
		case line == "enable" && mode == "user":
			write("Password: ")
			awaitingSecret = true

			continue
		case line == "configure terminal":
			mode = "config"
			out = "Enter configuration commands, one per line.  End with CNTL/Z."
		case line == "end":
			mode = "priv"
		case mode == "config":
			d.mu.Lock()
			d.configured = append(d.configured, line)
			d.mu.Unlock()
			out = d.outputs[line]
		case d.silent[line]:
			continue
		case strings.HasPrefix(line, "terminal "):
		default:
			var ok bool
			if out, ok = d.outputs[line]; !ok {
				out = "                ^\n% Invalid input detected at '^' marker."
			}
		}

		if out = strings.TrimRight(out, "\n"); out != "" {
			write(strings.ReplaceAll(out, "\n", "\r\n") + "\r\n")
		}
		write(d.prompt(mode))
	}
}

// startShell connects a shell to d through in-memory pipes.
func startShell(t *testing.T, d *fakeDevice) *shell {
	t.Helper()

	toDeviceR, toDeviceW := io.Pipe()
	fromDeviceR, fromDeviceW := io.Pipe()

	go d.serve(toDeviceR, fromDeviceW)

	sh := newShell(toDeviceW, fromDeviceR, testLogger())

	t.Cleanup(func() {
		sh.close()
		_ = toDeviceW.Close()
		_ = fromDeviceR.Close()
	})

	return sh
}

// startServer exposes d over a real SSH listener on localhost.
func startServer(t *testing.T, d *fakeDevice, password string) int {
	t.Helper()

	_, key, err := ed25519.GenerateKey(rand.Reader)
	require.NoError(t, err)

	signer, err := ssh.NewSignerFromKey(key)
	require.NoError(t, err)

	cfg := &ssh.ServerConfig{
		PasswordCallback: func(_ ssh.ConnMetadata, pass []byte) (*ssh.Permissions, error) {
			if string(pass) == password {
				return nil, nil
			}

			return nil, errors.New("access denied")
		},
	}
	cfg.AddHostKey(signer)

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	t.Cleanup(func() { _ = ln.Close() })

	go func() {
		for {
			conn, err := ln.Accept()
			if err != nil {
				return
			}

			go serveConn(conn, cfg, d)
		}
	}()

	return ln.Addr().(*net.TCPAddr).Port
}

func serveConn(conn net.Conn, cfg *ssh.ServerConfig, d *fakeDevice) {
	defer conn.Close()

	sc, chans, reqs, err := ssh.NewServerConn(conn, cfg)
	if err != nil {
		return
	}
	defer sc.Close()

	go ssh.DiscardRequests(reqs)

	for nc := range chans {
		if nc.ChannelType() != "session" {
			_ = nc.Reject(ssh.UnknownChannelType, "session only")
			continue
		}

		ch, requests, err := nc.Accept()
		if err != nil {
			return
		}

		go func() {
			for req := range requests {
				ok := req.Type == "pty-req" || req.Type == "shell"
				if req.WantReply {
					_ = req.Reply(ok, nil)
				}

				if req.Type == "shell" {
					go d.serve(ch, ch)
				}
			}
		}()
	}
}
