// Package sshclient runs CLI commands on Cisco IOS, IOS-XE and IOS-XR
// devices over an interactive SSH shell.
//
// Every Execute or ExecuteBatch call opens its own connection: dial,
// authenticate, start a PTY shell, enter privileged mode, disable paging,
// run, exit and close. Nothing is shared between calls.
package sshclient

import (
	"fmt"
	"net"
	"strconv"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/crypto/ssh"
	"golang.org/x/crypto/ssh/knownhosts"

	"netsync/internal/inventory"
)

// Config holds the session settings shared by all devices.
type Config struct {
	// Port is used when a device record has none.
	Port int

	// Timeout bounds TCP connect, SSH handshake and the first prompt.
	Timeout time.Duration

	// CommandTimeout bounds the wait for the prompt after each command.
	CommandTimeout time.Duration

	// KnownHosts enables host key checking against an OpenSSH file.
	KnownHosts string

	// LegacyAlgorithms adds SHA-1 key exchanges and CBC ciphers.
	LegacyAlgorithms bool
}

// Result is one command's output together with the device identity seen in
// its prompt and the time the session was opened.
type Result struct {
	Output    string
	Hostname  string
	Timestamp time.Time
}

// Client opens device sessions. It is safe to reuse across devices.
type Client struct {
	cfg     Config
	hostKey ssh.HostKeyCallback
	log     zerolog.Logger
	now     func() time.Time
}

// New validates cfg and prepares host key checking.
func New(cfg Config, log zerolog.Logger) (*Client, error) {
	if cfg.Port == 0 {
		cfg.Port = 22
	}

	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}

	if cfg.CommandTimeout <= 0 {
		cfg.CommandTimeout = 60 * time.Second
	}

	hostKey := ssh.InsecureIgnoreHostKey()

	if cfg.KnownHosts != "" {
		cb, err := knownhosts.New(cfg.KnownHosts)
		if err != nil {
			return nil, fmt.Errorf("load known hosts: %w", err)
		}
		hostKey = cb
	}

	return &Client{
		cfg:     cfg,
		hostKey: hostKey,
		log:     log,
		now:     time.Now,
	}, nil
}

// Execute runs a single command in privileged mode.
func (c *Client) Execute(dev inventory.Device, command string) (*Result, error) {
	ts := c.now()

	sess, err := c.open(dev)
	if err != nil {
		return nil, err
	}
	defer sess.close()

	c.log.Debug().Str("address", dev.Address()).Str("command", command).Msg("running command")

	out, err := sess.sh.run(command, c.cfg.CommandTimeout)
	if err != nil {
		return nil, &TransportError{Address: dev.Address(), Op: fmt.Sprintf("run %q on", command), Err: err}
	}

	return &Result{
		Output:    out,
		Hostname:  HostnameFromPrompt(sess.sh.prompt),
		Timestamp: ts,
	}, nil
}

// ExecuteBatch applies commands in configuration mode and returns the
// transcript. Device-side rejections show up in the transcript; only
// transport failures are errors.
func (c *Client) ExecuteBatch(dev inventory.Device, commands []string) (string, error) {
	sess, err := c.open(dev)
	if err != nil {
		return "", err
	}
	defer sess.close()

	c.log.Debug().Str("address", dev.Address()).Strs("commands", commands).Msg("applying configuration")

	out, err := sess.sh.configure(commands, dev.Platform.IsXR(), c.cfg.CommandTimeout)
	if err != nil {
		return out, &TransportError{Address: dev.Address(), Op: "configure", Err: err}
	}

	return out, nil
}

type session struct {
	client *ssh.Client
	ssh    *ssh.Session
	sh     *shell
}

func (s *session) close() {
	_ = s.sh.send("exit")
	s.sh.close()
	_ = s.ssh.Close()
	_ = s.client.Close()
}

// open returns a session sitting at a privileged prompt with paging off.
func (c *Client) open(dev inventory.Device) (*session, error) {
	addr := dev.Address()

	fail := func(op string, err error) error {
		return &TransportError{Address: addr, Op: op, Err: err}
	}

	client, err := c.dial(dev)
	if err != nil {
		return nil, fail("connect", err)
	}

	sshSession, err := client.NewSession()
	if err != nil {
		_ = client.Close()
		return nil, fail("open session", err)
	}

	cleanup := func() {
		_ = sshSession.Close()
		_ = client.Close()
	}

	modes := ssh.TerminalModes{
		ssh.ECHO:          0,
		ssh.TTY_OP_ISPEED: 14400,
		ssh.TTY_OP_OSPEED: 14400,
	}

	if err := sshSession.RequestPty("vt100", 40, 512, modes); err != nil {
		cleanup()
		return nil, fail("request pty", err)
	}

	stdin, err := sshSession.StdinPipe()
	if err != nil {
		cleanup()
		return nil, fail("stdin", err)
	}

	stdout, err := sshSession.StdoutPipe()
	if err != nil {
		cleanup()
		return nil, fail("stdout", err)
	}

	if err := sshSession.Shell(); err != nil {
		cleanup()
		return nil, fail("start shell", err)
	}

	sh := newShell(stdin, stdout, c.log.With().Str("address", addr).Logger())
	sess := &session{client: client, ssh: sshSession, sh: sh}

	if err := c.prepare(sh, dev); err != nil {
		sess.close()
		return nil, fail("prepare", err)
	}

	return sess, nil
}

// prepare waits for the first prompt, elevates and disables paging.
func (c *Client) prepare(sh *shell, dev inventory.Device) error {
	if _, err := sh.waitPrompt(c.cfg.Timeout); err != nil {
		return fmt.Errorf("initial prompt: %w", err)
	}

	if !dev.Platform.IsXR() {
		if err := sh.elevate(dev.Secret, c.cfg.Timeout); err != nil {
			return fmt.Errorf("enable: %w", err)
		}
	}

	if err := sh.disablePaging(c.cfg.Timeout); err != nil {
		return fmt.Errorf("disable paging: %w", err)
	}

	return nil
}

func (c *Client) dial(dev inventory.Device) (*ssh.Client, error) {
	port := dev.Port
	if port == 0 {
		port = c.cfg.Port
	}

	addr := net.JoinHostPort(dev.Address(), strconv.Itoa(port))

	conn, err := net.DialTimeout("tcp", addr, c.cfg.Timeout)
	if err != nil {
		return nil, err
	}

	// The deadline covers the handshake and is lifted once authenticated.
	_ = conn.SetDeadline(time.Now().Add(c.cfg.Timeout))

	cc, chans, reqs, err := ssh.NewClientConn(conn, addr, c.clientConfig(dev))
	if err != nil {
		_ = conn.Close()
		return nil, err
	}

	_ = conn.SetDeadline(time.Time{})

	return ssh.NewClient(cc, chans, reqs), nil
}

func (c *Client) clientConfig(dev inventory.Device) *ssh.ClientConfig {
	password := dev.Password

	cfg := &ssh.ClientConfig{
		User: dev.Username,
		Auth: []ssh.AuthMethod{
			ssh.Password(password),
			ssh.KeyboardInteractive(func(_, _ string, questions []string, _ []bool) ([]string, error) {
				answers := make([]string, len(questions))
				for i := range answers {
					answers[i] = password
				}

				return answers, nil
			}),
		},
		HostKeyCallback: c.hostKey,
		Timeout:         c.cfg.Timeout,
	}

	if c.cfg.LegacyAlgorithms {
		cfg.KeyExchanges = legacyKeyExchanges
		cfg.Ciphers = legacyCiphers
		cfg.MACs = legacyMACs
		cfg.HostKeyAlgorithms = legacyHostKeyAlgorithms
	}

	return cfg
}

var (
	legacyKeyExchanges = []string{
		"curve25519-sha256", "curve25519-sha256@libssh.org",
		"ecdh-sha2-nistp256", "ecdh-sha2-nistp384", "ecdh-sha2-nistp521",
		"diffie-hellman-group14-sha256", "diffie-hellman-group14-sha1",
		"diffie-hellman-group-exchange-sha256", "diffie-hellman-group-exchange-sha1",
		"diffie-hellman-group1-sha1",
	}
	legacyCiphers = []string{
		"aes128-gcm@openssh.com", "aes256-gcm@openssh.com", "chacha20-poly1305@openssh.com",
		"aes128-ctr", "aes192-ctr", "aes256-ctr",
		"aes128-cbc", "3des-cbc",
	}
	legacyMACs = []string{
		"hmac-sha2-256-etm@openssh.com", "hmac-sha2-256", "hmac-sha2-512",
		"hmac-sha1", "hmac-sha1-96",
	}
	legacyHostKeyAlgorithms = []string{
		"ssh-ed25519", "ecdsa-sha2-nistp256", "rsa-sha2-512", "rsa-sha2-256", "ssh-rsa",
	}
)
