package credentials

import (
	"io"
	"os"
)

// NewTestPrompt builds a Prompt with stubbed terminal detection and password input.
func NewTestPrompt(in *os.File, out io.Writer, tty bool, password string) *Prompt {
	return &Prompt{
		In:           in,
		Out:          out,
		isTerminal:   func(uintptr) bool { return tty },
		readPassword: func(int) ([]byte, error) { return []byte(password), nil },
	}
}
