package credentials

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/mattn/go-isatty"
	"golang.org/x/term"

	"romsift/internal/retroachievements"
	"romsift/internal/services"
)

// Prompt asks for missing fields on the terminal. The API key is read
// without echo. When stdin is not a terminal it supplies nothing.
type Prompt struct {
	In  *os.File
	Out io.Writer

	// known is filled by Chain so only missing fields are asked for.
	known retroachievements.Credentials

	isTerminal   func(fd uintptr) bool
	readPassword func(fd int) ([]byte, error)
}

// NewPrompt prompts on stdin/stderr.
func NewPrompt() *Prompt {
	return &Prompt{In: os.Stdin, Out: os.Stderr}
}

func (p *Prompt) Credentials(ctx context.Context) (retroachievements.Credentials, error) {
	var out retroachievements.Credentials
	if p.In == nil || !p.terminal() {
		return out, nil
	}
	if err := ctx.Err(); err != nil {
		return out, err
	}
	if p.known.Username == "" {
		fmt.Fprint(p.Out, "RetroAchievements username: ")
		line, err := bufio.NewReader(p.In).ReadString('\n')
		if err != nil && line == "" {
			return out, services.Wrap(services.ErrAuth, "credentials", "prompt", "read username", err)
		}
		out.Username = strings.TrimSpace(line)
	}
	if p.known.APIKey == "" {
		fmt.Fprint(p.Out, "RetroAchievements API key: ")
		key, err := p.password()
		fmt.Fprintln(p.Out)
		if err != nil {
			return out, services.Wrap(services.ErrAuth, "credentials", "prompt", "read api key", err)
		}
		out.APIKey = strings.TrimSpace(string(key))
	}
	return out, nil
}

func (p *Prompt) terminal() bool {
	if p.isTerminal != nil {
		return p.isTerminal(p.In.Fd())
	}
	fd := p.In.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

func (p *Prompt) password() ([]byte, error) {
	if p.readPassword != nil {
		return p.readPassword(int(p.In.Fd()))
	}
	return term.ReadPassword(int(p.In.Fd()))
}
