package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/peterh/liner"
	"golang.org/x/term"
)

// prompter reads console input. Password never echoes on a terminal.
type prompter interface {
	Prompt(prompt string) (string, error)
	Password(prompt string) (string, error)
	Close() error
}

// newPrompter uses liner on an interactive terminal and plain line reads
// otherwise, so scripted input works through a pipe.
func newPrompter() prompter {
	if term.IsTerminal(int(os.Stdin.Fd())) && term.IsTerminal(int(os.Stdout.Fd())) {
		line := liner.NewLiner()
		line.SetCtrlCAborts(true)
		return &linerPrompter{line: line}
	}
	return newScanPrompter(os.Stdin, os.Stdout)
}

type linerPrompter struct {
	line *liner.State
}

func (p *linerPrompter) Prompt(prompt string) (string, error) {
	input, err := p.line.Prompt(prompt)
	if err != nil {
		return "", promptErr(err)
	}
	if strings.TrimSpace(input) != "" {
		p.line.AppendHistory(input)
	}
	return input, nil
}

func (p *linerPrompter) Password(prompt string) (string, error) {
	pw, err := p.line.PasswordPrompt(prompt)
	if err != nil {
		return "", promptErr(err)
	}
	return pw, nil
}

func (p *linerPrompter) Close() error {
	return p.line.Close()
}

// errAborted ends the console on Ctrl+C or Ctrl+D.
var errAborted = errors.New("aborted")

func promptErr(err error) error {
	if errors.Is(err, liner.ErrPromptAborted) || errors.Is(err, io.EOF) {
		return errAborted
	}
	return err
}

type scanPrompter struct {
	in  *bufio.Scanner
	out io.Writer
}

func newScanPrompter(r io.Reader, w io.Writer) *scanPrompter {
	return &scanPrompter{in: bufio.NewScanner(r), out: w}
}

func (p *scanPrompter) Prompt(prompt string) (string, error) {
	fmt.Fprint(p.out, prompt)
	if !p.in.Scan() {
		if err := p.in.Err(); err != nil {
			return "", err
		}
		return "", errAborted
	}
	return strings.TrimRight(p.in.Text(), "\r"), nil
}

func (p *scanPrompter) Password(prompt string) (string, error) {
	pw, err := p.Prompt(prompt)
	if err == nil {
		fmt.Fprintln(p.out)
	}
	return pw, err
}

func (p *scanPrompter) Close() error { return nil }

// readSecret reads one line from stdin without echo when stdin is a
// terminal.
func readSecret(prompt string) (string, error) {
	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		return newScanPrompter(os.Stdin, io.Discard).Prompt("")
	}
	fmt.Fprint(os.Stderr, prompt)
	b, err := term.ReadPassword(fd)
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", fmt.Errorf("read password: %w", err)
	}
	return string(b), nil
}
