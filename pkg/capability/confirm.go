package capability

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/rs/zerolog"
)

// ConfirmationProvider blocks until the operator confirms that the login
// instructions have been completed out of band. Returning an error aborts
// the login.
type ConfirmationProvider interface {
	Confirm(ctx context.Context, instructions string) error
}

// ConfirmFunc adapts a function to ConfirmationProvider.
type ConfirmFunc func(ctx context.Context, instructions string) error

func (f ConfirmFunc) Confirm(ctx context.Context, instructions string) error {
	return f(ctx, instructions)
}

// StaticConfirmer answers every confirmation with the same outcome.
type StaticConfirmer struct {
	Err error
}

func (s StaticConfirmer) Confirm(ctx context.Context, instructions string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.Err
}

// ConsoleConfirmer prints the login instructions and waits for the
// operator to press Enter.
type ConsoleConfirmer struct {
	scanner *bufio.Scanner
	writer  io.Writer
	logger  zerolog.Logger
}

// NewConsoleConfirmer creates a console confirmer. The reader is wrapped in
// a scanner once, so it can share a line-oriented stream with a REPL.
func NewConsoleConfirmer(reader io.Reader, writer io.Writer) *ConsoleConfirmer {
	return NewConsoleConfirmerFromScanner(bufio.NewScanner(reader), writer)
}

// NewConsoleConfirmerFromScanner creates a console confirmer reading from an
// existing scanner.
func NewConsoleConfirmerFromScanner(scanner *bufio.Scanner, writer io.Writer) *ConsoleConfirmer {
	return &ConsoleConfirmer{scanner: scanner, writer: writer, logger: zerolog.Nop()}
}

// WithLogger sets the logger used to record the operator's answer.
func (c *ConsoleConfirmer) WithLogger(logger zerolog.Logger) *ConsoleConfirmer {
	c.logger = logger
	return c
}

// Confirm displays the instructions and blocks until a line is read or the
// context is done. Entering n, no or cancel declines; EOF declines.
func (c *ConsoleConfirmer) Confirm(ctx context.Context, instructions string) error {
	c.displayInstructions(instructions)

	type result struct {
		line string
		ok   bool
		err  error
	}
	lines := make(chan result, 1)

	go func() {
		if !c.scanner.Scan() {
			lines <- result{err: c.scanner.Err()}
			return
		}
		lines <- result{line: c.scanner.Text(), ok: true}
	}()

	select {
	case r := <-lines:
		if r.err != nil {
			return fmt.Errorf("failed to read confirmation: %w", r.err)
		}
		if !r.ok {
			c.logger.Info().Msg("Login confirmation input closed")
			return ErrConfirmationDeclined
		}
		switch strings.ToLower(strings.TrimSpace(r.line)) {
		case "n", "no", "cancel":
			fmt.Fprintln(c.writer, "  Login cancelled.")
			c.logger.Info().Msg("Login confirmation declined by operator")
			return ErrConfirmationDeclined
		}
		fmt.Fprintln(c.writer, "  Verifying login...")
		c.logger.Debug().Msg("Login confirmed by operator")
		return nil

	case <-ctx.Done():
		fmt.Fprintln(c.writer, "")
		fmt.Fprintln(c.writer, "  Login confirmation interrupted.")
		return ctx.Err()
	}
}

func (c *ConsoleConfirmer) displayInstructions(instructions string) {
	fmt.Fprintln(c.writer, "")
	fmt.Fprintln(c.writer, "╔════════════════════════════════════════════════════════════════╗")
	fmt.Fprintln(c.writer, "║                    ACTION REQUIRED: SIGN IN                    ║")
	fmt.Fprintln(c.writer, "╚════════════════════════════════════════════════════════════════╝")
	fmt.Fprintln(c.writer, "")
	for _, line := range strings.Split(strings.TrimSpace(instructions), "\n") {
		fmt.Fprintf(c.writer, "  %s\n", line)
	}
	fmt.Fprintln(c.writer, "")
	fmt.Fprint(c.writer, "  Press Enter once you have completed the login (or type 'cancel'): ")
}
