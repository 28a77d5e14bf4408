package capability

import "fmt"

// Reserved remote operations used by the login handshake.
const (
	LoginOperation       = "login"
	VerifyLoginOperation = "verify-login"
)

// Operation maps a tool name exposed to the model onto the remote
// operation that implements it.
type Operation struct {
	Name   string
	Remote string
}

// RemoteName returns the remote operation name, defaulting to Name.
func (o Operation) RemoteName() string {
	if o.Remote != "" {
		return o.Remote
	}
	return o.Name
}

// Registry is the dispatch table consulted by Session.Call. Names not in
// the table are never sent to the server.
type Registry struct {
	ops map[string]Operation
}

// NewRegistry builds a dispatch table. Empty or duplicate names are rejected,
// as are the reserved login operations.
func NewRegistry(ops ...Operation) (*Registry, error) {
	r := &Registry{ops: make(map[string]Operation, len(ops))}
	for _, op := range ops {
		if op.Name == "" {
			return nil, fmt.Errorf("operation name is required")
		}
		if _, exists := r.ops[op.Name]; exists {
			return nil, fmt.Errorf("duplicate operation %q", op.Name)
		}
		switch op.RemoteName() {
		case LoginOperation, VerifyLoginOperation:
			return nil, fmt.Errorf("operation %q maps to reserved remote operation %q", op.Name, op.RemoteName())
		}
		r.ops[op.Name] = op
	}
	return r, nil
}

// Lookup resolves a tool name.
func (r *Registry) Lookup(name string) (Operation, bool) {
	if r == nil {
		return Operation{}, false
	}
	op, ok := r.ops[name]
	return op, ok
}

// Len returns the number of registered operations.
func (r *Registry) Len() int {
	if r == nil {
		return 0
	}
	return len(r.ops)
}
