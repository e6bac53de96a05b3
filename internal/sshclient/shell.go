package sshclient

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

const (
	tailLen       = 120
	maxPromptLine = 256
)

// partialANSIRe matches an escape sequence that has not been terminated yet.
var partialANSIRe = regexp.MustCompile(`^\x1b(?:\[[0-9;?]*)?$`)

// shell drives an interactive CLI: write a line, then read until a
// recognised prompt comes back. A reader goroutine pumps device output so
// every wait can be bounded by a timeout.
type shell struct {
	stdin  io.Writer
	chunks chan []byte
	done   chan struct{}
	once   sync.Once

	readErr error
	pending strings.Builder
	carry   []byte
	prompt  string

	log zerolog.Logger
}

func newShell(stdin io.Writer, stdout io.Reader, log zerolog.Logger) *shell {
	s := &shell{
		stdin:  stdin,
		chunks: make(chan []byte, 64),
		done:   make(chan struct{}),
		log:    log,
	}

	go s.pump(stdout)

	return s
}

func (s *shell) pump(r io.Reader) {
	defer close(s.chunks)

	buf := make([]byte, 32*1024)

	for {
		n, err := r.Read(buf)
		if n > 0 {
			chunk := make([]byte, n)
			copy(chunk, buf[:n])

			select {
			case s.chunks <- chunk:
			case <-s.done:
				return
			}
		}

		if err != nil {
			if !errors.Is(err, io.EOF) {
				s.readErr = err
			}

			return
		}
	}
}

func (s *shell) close() {
	s.once.Do(func() { close(s.done) })
}

func (s *shell) send(line string) error {
	s.log.Trace().Str("line", line).Msg("send")

	if _, err := io.WriteString(s.stdin, line+"\n"); err != nil {
		return fmt.Errorf("write %q: %w", line, err)
	}

	return nil
}

// expect reads until one of patterns matches the last line of the
// accumulated output. It returns everything read, normalised, and the index
// of the pattern that matched.
func (s *shell) expect(timeout time.Duration, patterns ...*regexp.Regexp) (string, int, error) {
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	for {
		if last, ok := s.lastLine(); ok {
			for i, re := range patterns {
				if re.MatchString(last) {
					text := s.pending.String()
					s.pending.Reset()

					return text, i, nil
				}
			}
		}

		select {
		case chunk, ok := <-s.chunks:
			if !ok {
				s.flushCarry()

				err := errClosed
				if s.readErr != nil {
					err = fmt.Errorf("%w: %w", errClosed, s.readErr)
				}

				return s.pending.String(), -1, err
			}

			s.appendChunk(chunk)
		case <-timer.C:
			text := s.pending.String()
			return text, -1, fmt.Errorf("%w after %s (last output %q)", errTimeout, timeout, tail(text))
		}
	}
}

// appendChunk normalises chunk into pending. An escape sequence cut off at
// the end of the chunk is held back until the rest arrives.
func (s *shell) appendChunk(chunk []byte) {
	data := append(s.carry, chunk...)
	s.carry = nil

	cut := len(data)
	if i := bytes.LastIndexByte(data, 0x1b); i >= 0 && partialANSIRe.Match(data[i:]) {
		cut = i
	}

	s.carry = append([]byte(nil), data[cut:]...)
	s.pending.WriteString(normalize(string(data[:cut])))
}

func (s *shell) flushCarry() {
	s.pending.WriteString(normalize(string(s.carry)))
	s.carry = nil
}

// lastLine returns the final line of pending, newline included, which is
// all the prompt patterns look at. Lines longer than maxPromptLine cannot
// hold a prompt and are skipped.
func (s *shell) lastLine() (string, bool) {
	last := lastLineOf(s.pending.String())

	return last, len(last) <= maxPromptLine
}

func lastLineOf(text string) string {
	if i := strings.LastIndexByte(text, '\n'); i >= 0 {
		return text[i:]
	}

	return text
}

// waitPrompt reads until a prompt and remembers it.
func (s *shell) waitPrompt(timeout time.Duration) (string, error) {
	text, _, err := s.expect(timeout, promptRe)
	if err != nil {
		return text, err
	}

	s.remember(lastLineOf(text))

	return text, nil
}

func (s *shell) remember(text string) {
	if m := promptRe.FindStringSubmatch(text); m != nil {
		s.prompt = m[1]
	}
}

func (s *shell) privileged() bool {
	return strings.HasSuffix(s.prompt, "#")
}

// elevate enters privileged EXEC mode when the session starts in user mode.
func (s *shell) elevate(secret string, timeout time.Duration) error {
	if s.privileged() {
		return nil
	}

	if err := s.send("enable"); err != nil {
		return err
	}

	text, matched, err := s.expect(timeout, passwordRe, promptRe)
	if err != nil {
		return err
	}

	if matched == 0 {
		if _, err := io.WriteString(s.stdin, secret+"\n"); err != nil {
			return fmt.Errorf("write enable secret: %w", err)
		}

		if _, err := s.waitPrompt(timeout); err != nil {
			return err
		}
	} else {
		s.remember(lastLineOf(text))
	}

	if !s.privileged() {
		return errEnableFailed
	}

	return nil
}

// disablePaging turns off --More-- and line wrapping for the session.
func (s *shell) disablePaging(timeout time.Duration) error {
	for _, cmd := range []string{"terminal length 0", "terminal width 512"} {
		if _, err := s.run(cmd, timeout); err != nil {
			return err
		}
	}

	return nil
}

// run sends one command and returns its cleaned output.
func (s *shell) run(command string, timeout time.Duration) (string, error) {
	if err := s.send(command); err != nil {
		return "", err
	}

	raw, err := s.waitPrompt(timeout)
	if err != nil {
		return "", err
	}

	return cleanCommandOutput(raw, command), nil
}

// configure applies commands in global configuration mode and returns the
// transcript. IOS-XR needs an explicit commit before leaving.
func (s *shell) configure(commands []string, commit bool, timeout time.Duration) (string, error) {
	var transcript strings.Builder

	step := func(line string) error {
		if err := s.send(line); err != nil {
			return err
		}

		out, err := s.waitPrompt(timeout)
		transcript.WriteString(out)
		transcript.WriteString("\n")

		return err
	}

	if err := step("configure terminal"); err != nil {
		return transcript.String(), err
	}

	for _, cmd := range commands {
		if err := step(cmd); err != nil {
			return transcript.String(), err
		}
	}

	if commit {
		if err := step("commit"); err != nil {
			return transcript.String(), err
		}
	}

	if err := step("end"); err != nil {
		return transcript.String(), err
	}

	return strings.TrimRight(transcript.String(), "\n"), nil
}

func tail(s string) string {
	if len(s) <= tailLen {
		return s
	}

	return s[len(s)-tailLen:]
}
