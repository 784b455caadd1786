package iocli

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/term"
)

// Stdio implements IO over the process standard streams. Prompts go to
// stderr so that stdout stays machine-readable.
type Stdio struct {
	in     *bufio.Reader
	out    io.Writer
	prompt io.Writer
	inFd   int
	outFd  int
}

// NewStdio creates IO bound to os.Stdin, os.Stdout and os.Stderr
func NewStdio() IO {
	return &Stdio{
		in:     bufio.NewReader(os.Stdin),
		out:    os.Stdout,
		prompt: os.Stderr,
		inFd:   int(os.Stdin.Fd()),
		outFd:  int(os.Stdout.Fd()),
	}
}

func (s *Stdio) Println(a ...any) {
	_, _ = fmt.Fprintln(s.out, a...)
}

func (s *Stdio) Printf(format string, a ...any) {
	_, _ = fmt.Fprintf(s.out, format, a...)
}

func (s *Stdio) Write(p []byte) (int, error) {
	return s.out.Write(p)
}

func (s *Stdio) IsTerminal() bool {
	return term.IsTerminal(s.outFd)
}

func (s *Stdio) ReadInput(prompt string) (string, error) {
	_, _ = fmt.Fprint(s.prompt, prompt)
	input, err := s.in.ReadString('\n')
	if err != nil && (err != io.EOF || input == "") {
		return "", err
	}
	return strings.TrimSpace(input), nil
}

func (s *Stdio) ReadPassword(prompt string) (string, error) {
	if !term.IsTerminal(s.inFd) {
		// Не терминал (pipe): читаем строку как есть
		return s.ReadInput(prompt)
	}
	_, _ = fmt.Fprint(s.prompt, prompt)
	pwBytes, err := term.ReadPassword(s.inFd)
	_, _ = fmt.Fprintln(s.prompt)
	if err != nil {
		return "", err
	}
	return string(pwBytes), nil
}
