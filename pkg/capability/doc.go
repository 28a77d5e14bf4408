// Package capability owns the authenticated connection to the remote
// capability server.
//
// Invariants:
// - A Session holds at most one live MCP connection.
// - Call dispatches only while the session is Authenticated.
// - Connect always leaves the session Authenticated or Disconnected.
//
// Usage:
//
//	session, _ := capability.NewSession(capability.SessionConfig{
//		Dial:       capability.HTTPDialer(capability.HTTPConfig{URL: "http://localhost:3000/mcp"}),
//		Confirmer:  capability.NewConsoleConfirmer(os.Stdin, os.Stdout),
//		Operations: catalog.Default().Operations(),
//	})
//	name, _ := session.Connect(ctx)
//	text, _ := session.Call(ctx, "list-mail-messages", nil)
package capability
