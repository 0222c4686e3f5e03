package keys

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"golang.org/x/term"
)

var ErrNoTerminal = errors.New("cannot prompt for a key without a terminal")

// Prompter holds the key used for generation calls and asks the user for one
// when it is missing or rejected. It satisfies session.Credentials.
type Prompter struct {
	Store    *Store
	Provider string
	EnvVar   string
	In       io.Reader
	Out      io.Writer
	// Lines is the line source for non-terminal input. An input loop that
	// also reads In must share its reader here, or lines it has buffered
	// never reach the prompt.
	Lines *bufio.Reader
	// Persist saves keys entered at the prompt to Store.
	Persist bool

	mu       sync.Mutex
	explicit string
	override string
}

func NewPrompter(store *Store, explicitKey string, in io.Reader, out io.Writer) *Prompter {
	return &Prompter{
		Store:    store,
		Provider: DefaultProvider,
		EnvVar:   EnvVar,
		In:       in,
		Out:      out,
		explicit: explicitKey,
	}
}

// Key resolves the current key. It matches provider.KeyFunc.
func (p *Prompter) Key(ctx context.Context) (string, error) {
	p.mu.Lock()
	override, explicit := p.override, p.explicit
	p.mu.Unlock()

	if override != "" {
		return override, nil
	}
	key, _, err := p.Store.Resolve(explicit, p.Provider, p.EnvVar)
	return key, err
}

func (p *Prompter) HasCredential(ctx context.Context) (bool, error) {
	key, err := p.Key(ctx)
	if err != nil {
		return false, nil
	}
	return key != "", nil
}

// RequestCredential reads a new key from the terminal without echo. Reading
// from a non-terminal input falls back to a plain line read.
func (p *Prompter) RequestCredential(ctx context.Context) error {
	if p.In == nil {
		return ErrNoTerminal
	}
	fmt.Fprintf(p.Out, "Enter %s API key: ", p.Provider)

	key, err := p.read()
	fmt.Fprintln(p.Out)
	if err != nil {
		return fmt.Errorf("failed to read key: %w", err)
	}
	key = strings.TrimSpace(key)
	if key == "" {
		return nil
	}

	p.mu.Lock()
	p.override = key
	p.mu.Unlock()

	if p.Persist && p.Store != nil {
		if err := p.Store.Set(p.Provider, key); err != nil {
			return err
		}
		fmt.Fprintf(p.Out, "Key saved to %s\n", p.Store.Path())
	}
	return nil
}

func (p *Prompter) read() (string, error) {
	if f, ok := p.In.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		b, err := term.ReadPassword(int(f.Fd()))
		return string(b), err
	}
	line, err := p.lines().ReadString('\n')
	if err == io.EOF && line != "" {
		err = nil
	}
	return line, err
}

func (p *Prompter) lines() *bufio.Reader {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.Lines == nil {
		if br, ok := p.In.(*bufio.Reader); ok {
			p.Lines = br
		} else {
			p.Lines = bufio.NewReader(p.In)
		}
	}
	return p.Lines
}

// IsTerminal reports whether r is an interactive terminal.
func IsTerminal(r io.Reader) bool {
	if f, ok := r.(*os.File); ok {
		return term.IsTerminal(int(f.Fd()))
	}
	return false
}
