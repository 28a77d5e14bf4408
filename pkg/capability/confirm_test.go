package capability

import (
	"bytes"
	"context"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConsoleConfirmer(t *testing.T) {
	t.Run("should confirm on enter", func(t *testing.T) {
		out := &bytes.Buffer{}
		c := NewConsoleConfirmer(strings.NewReader("\n"), out)

		err := c.Confirm(context.Background(), "Open https://microsoft.com/devicelogin\nCode: ABCD-1234")
		require.NoError(t, err)

		assert.Contains(t, out.String(), "SIGN IN")
		assert.Contains(t, out.String(), "  Code: ABCD-1234")
		assert.Contains(t, out.String(), "Verifying login")
	})

	t.Run("should decline on cancel", func(t *testing.T) {
		c := NewConsoleConfirmer(strings.NewReader("cancel\n"), io.Discard)

		err := c.Confirm(context.Background(), "sign in")
		assert.ErrorIs(t, err, ErrConfirmationDeclined)
	})

	t.Run("should log the answer through the injected logger", func(t *testing.T) {
		logs := &bytes.Buffer{}
		c := NewConsoleConfirmer(strings.NewReader("no\n"), io.Discard).
			WithLogger(zerolog.New(logs))

		err := c.Confirm(context.Background(), "sign in")
		assert.ErrorIs(t, err, ErrConfirmationDeclined)
		assert.Contains(t, logs.String(), "Login confirmation declined by operator")
	})

	t.Run("should decline on EOF", func(t *testing.T) {
		c := NewConsoleConfirmer(strings.NewReader(""), io.Discard)

		err := c.Confirm(context.Background(), "sign in")
		assert.ErrorIs(t, err, ErrConfirmationDeclined)
	})

	t.Run("should stop waiting when context is done", func(t *testing.T) {
		reader, writer := io.Pipe()
		defer writer.Close()
		c := NewConsoleConfirmer(reader, io.Discard)

		ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
		defer cancel()

		err := c.Confirm(ctx, "sign in")
		assert.ErrorIs(t, err, context.DeadlineExceeded)
	})
}

func TestStaticConfirmer(t *testing.T) {
	assert.NoError(t, StaticConfirmer{}.Confirm(context.Background(), "x"))
	assert.ErrorIs(t, StaticConfirmer{Err: ErrConfirmationDeclined}.Confirm(context.Background(), "x"), ErrConfirmationDeclined)

	called := false
	fn := ConfirmFunc(func(ctx context.Context, instructions string) error {
		called = instructions == "x"
		return nil
	})
	require.NoError(t, fn.Confirm(context.Background(), "x"))
	assert.True(t, called)
}
