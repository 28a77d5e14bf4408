// Package agent runs conversation turns against an LLM provider, routing
// tool-call intents through a ToolInvoker.
//
// Invariants:
// - History always starts with the system directive and is append-only.
// - A failed first completion removes the turn's user message; nothing else
//   is ever removed.
// - Every tool-call intent appended to history is followed by exactly one
//   tool message carrying its id.
// - Turns on a Conversation are serialized.
//
// Usage:
//
//	conv, _ := agent.NewConversation(agent.Config{
//		Provider: provider,
//		Session:  session,
//		Catalog:  catalog.Default(),
//		Invoker:  inv,
//		Model:    "gpt-4o-mini",
//	})
//	result, _ := conv.RunTurn(ctx, "list my unread mail")
//	_ = result.Reply
package agent
