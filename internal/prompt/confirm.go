package prompt

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/mattn/go-isatty"
)

// ErrNotInteractive means there is no terminal to ask on.
var ErrNotInteractive = errors.New("stdin is not a terminal; pass --yes to send over-limit prompts")

// TerminalConfirmer asks on Out and reads one line from In.
type TerminalConfirmer struct {
	In          io.Reader
	Out         io.Writer
	Interactive bool
}

// NewTerminalConfirmer uses the process stdio.
func NewTerminalConfirmer() *TerminalConfirmer {
	fd := os.Stdin.Fd()
	return &TerminalConfirmer{
		In:          os.Stdin,
		Out:         os.Stdout,
		Interactive: isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd),
	}
}

func (t *TerminalConfirmer) Confirm(question string) (bool, error) {
	if !t.Interactive {
		return false, ErrNotInteractive
	}

	fmt.Fprintf(t.Out, "%s (y/n): ", question)
	line, err := bufio.NewReader(t.In).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return false, err
	}

	switch strings.ToLower(strings.TrimSpace(line)) {
	case "y", "yes":
		return true, nil
	}
	return false, nil
}
