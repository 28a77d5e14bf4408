package catalog

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/harun/courier/pkg/capability"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	c := Default()

	assert.Equal(t, []string{
		"list-mail-messages",
		"list-mail-folders",
		"list-mail-folder-messages",
		"get-mail-message",
		"send-mail",
		"create-calendar-event",
		"get-current-user",
	}, c.Names())

	d, ok := c.Lookup("send-mail")
	require.True(t, ok)
	assert.Equal(t, "Sends an email message.", d.Description)
	assert.Equal(t, []any{"Message"}, d.Parameters["required"])
}

func TestVisibleTools(t *testing.T) {
	c := Default()

	t.Run("should expose only bootstrap when not authenticated", func(t *testing.T) {
		for _, state := range []capability.AuthState{
			capability.Disconnected,
			capability.Connecting,
			capability.AwaitingUserVerification,
			capability.Failed,
		} {
			tools := c.VisibleTools(state)
			require.Len(t, tools, 1, state.String())
			assert.Equal(t, BootstrapName, tools[0].Name)
		}
	})

	t.Run("should expose full set in catalog order when authenticated", func(t *testing.T) {
		tools := c.VisibleTools(capability.Authenticated)
		require.Len(t, tools, 7)
		for i, name := range c.Names() {
			assert.Equal(t, name, tools[i].Name)
		}
	})

	t.Run("should be deterministic and isolated from callers", func(t *testing.T) {
		first := c.VisibleTools(capability.Authenticated)
		first[2].Parameters["required"] = []any{"tampered"}
		first[0].Name = "tampered"

		second := c.VisibleTools(capability.Authenticated)
		assert.Equal(t, "list-mail-messages", second[0].Name)
		assert.Equal(t, []any{"mailFolder_id"}, second[2].Parameters["required"])
	})
}

func TestOperations(t *testing.T) {
	c, err := New(
		Descriptor{Name: "whoami", Description: "current user", Remote: "get-current-user"},
		Descriptor{Name: "list-mail-messages", Description: "mail"},
	)
	require.NoError(t, err)

	ops := c.Operations()
	require.Len(t, ops, 2)
	assert.Equal(t, "get-current-user", ops[0].RemoteName())
	assert.Equal(t, "list-mail-messages", ops[1].RemoteName())

	_, err = capability.NewRegistry(ops...)
	assert.NoError(t, err)
}

func TestValidateArguments(t *testing.T) {
	c := Default()

	t.Run("should accept valid arguments", func(t *testing.T) {
		err := c.ValidateArguments("get-mail-message", map[string]any{"message_id": "AAMk1"})
		assert.NoError(t, err)
	})

	t.Run("should reject missing required arguments", func(t *testing.T) {
		err := c.ValidateArguments("get-mail-message", map[string]any{})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "message_id")
	})

	t.Run("should reject enum violations", func(t *testing.T) {
		err := c.ValidateArguments("send-mail", map[string]any{
			"Message": map[string]any{
				"subject": "hi",
				"body":    map[string]any{"contentType": "Markdown", "content": "x"},
			},
		})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "contentType")
	})

	t.Run("should skip tools without schema", func(t *testing.T) {
		assert.NoError(t, c.ValidateArguments("list-mail-messages", map[string]any{"anything": 1}))
		assert.NoError(t, c.ValidateArguments("not-in-catalog", nil))
	})
}

func TestNew(t *testing.T) {
	t.Run("should reject empty names", func(t *testing.T) {
		_, err := New(Descriptor{Description: "x"})
		assert.Error(t, err)
	})

	t.Run("should reject duplicates", func(t *testing.T) {
		_, err := New(Descriptor{Name: "a"}, Descriptor{Name: "a"})
		assert.Error(t, err)
	})

	t.Run("should reject the bootstrap name", func(t *testing.T) {
		_, err := New(Descriptor{Name: BootstrapName})
		assert.Error(t, err)
	})

	t.Run("should reject invalid schemas", func(t *testing.T) {
		_, err := New(Descriptor{Name: "a", Parameters: map[string]any{"type": 42}})
		assert.Error(t, err)
	})
}

func TestLoad(t *testing.T) {
	t.Run("should load json", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "tools.json")
		err := os.WriteFile(path, []byte(`{"tools":[{"name":"list-events","description":"Lists events.","parameters":{"type":"object","properties":{"top":{"type":"integer"}}}}]}`), 0o644)
		require.NoError(t, err)

		c, err := Load(path)
		require.NoError(t, err)
		assert.Equal(t, []string{"list-events"}, c.Names())
		assert.Error(t, c.ValidateArguments("list-events", map[string]any{"top": "ten"}))
	})

	t.Run("should fail for missing file", func(t *testing.T) {
		_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
		assert.Error(t, err)
	})

	t.Run("should fail for malformed yaml", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "tools.yaml")
		require.NoError(t, os.WriteFile(path, []byte("tools: [::"), 0o644))

		_, err := Load(path)
		assert.Error(t, err)
	})
}
