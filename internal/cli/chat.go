package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/fatih/color"
	"github.com/harun/courier/pkg/agent"
	"github.com/harun/courier/pkg/capability"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Start an interactive chat session",
	Long: `Start an interactive chat session with the configured LLM.

Ask the assistant to connect to Microsoft 365 first; it will show a device
sign-in code and wait for you to confirm before finishing the login.
Type "/reset" to start a new conversation and "exit" to quit.`,
	RunE: runChat,
}

func init() {
	rootCmd.AddCommand(chatCmd)
}

func runChat(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	go func() {
		// A second interrupt terminates the process.
		<-ctx.Done()
		stop()
	}()

	scanner := bufio.NewScanner(cmd.InOrStdin())
	out := cmd.OutOrStdout()

	newConfirmer := func(log zerolog.Logger) capability.ConfirmationProvider {
		return capability.NewConsoleConfirmerFromScanner(scanner, out).WithLogger(log)
	}
	rt, err := startRuntime(cfg, newConfirmer, cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	defer rt.Close()

	if err := rt.preflight(ctx, cfg.LLM.Model); err != nil {
		return err
	}

	loop := &chatLoop{conversation: rt.conversation, scanner: scanner, out: out}
	return loop.Run(ctx)
}

// conversation is the part of agent.Conversation the chat loop drives.
type conversation interface {
	RunTurn(ctx context.Context, userText string) (*agent.TurnResult, error)
	Reset()
}

// chatLoop reads user lines and prints assistant replies until exit or EOF.
// It shares its scanner with the console confirmer so sign-in prompts read
// from the same input.
type chatLoop struct {
	conversation conversation
	scanner      *bufio.Scanner
	out          io.Writer
}

func (l *chatLoop) Run(ctx context.Context) error {
	you := color.New(color.FgGreen, color.Bold)
	assistant := color.New(color.FgCyan, color.Bold)
	failure := color.New(color.FgRed)
	dim := color.New(color.Faint)

	dim.Fprintln(l.out, `Type a message, "/reset" to start over, or "exit" to quit.`)

	for {
		if ctx.Err() != nil {
			return nil
		}

		you.Fprint(l.out, "You: ")
		if !l.scanner.Scan() {
			fmt.Fprintln(l.out)
			return l.scanner.Err()
		}

		text := strings.TrimSpace(l.scanner.Text())
		switch {
		case text == "":
			continue
		case strings.EqualFold(text, "exit") || strings.EqualFold(text, "quit"):
			fmt.Fprintln(l.out, "Goodbye!")
			return nil
		case text == "/reset":
			l.conversation.Reset()
			dim.Fprintln(l.out, "Conversation cleared.")
			continue
		}

		result, err := l.conversation.RunTurn(ctx, text)
		if err != nil {
			var transportErr *agent.TransportError
			if errors.As(err, &transportErr) && transportErr.RolledBack() {
				failure.Fprintf(l.out, "Error: %v\nYour message was not kept; please try again.\n", err)
			} else {
				failure.Fprintf(l.out, "Error: %v\n", err)
			}
			continue
		}

		assistant.Fprint(l.out, "Assistant: ")
		fmt.Fprintln(l.out, result.Reply)
	}
}
