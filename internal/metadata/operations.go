package metadata

import "github.com/pitabwire/curator/model"

// Operation is one invocable row or batch operation, builtin or declared by
// the upstream schema.
type Operation struct {
	Name    string                   `json:"name"`
	Title   string                   `json:"title,omitempty"`
	Builtin bool                     `json:"builtin,omitempty"`
	Batch   bool                     `json:"batch,omitempty"`
	Danger  bool                     `json:"danger,omitempty"`
	Columns []model.ColumnDescriptor `json:"columns,omitempty"`
}

// Builtin operation names.
const (
	OpDetail = "detail"
	OpCreate = "create"
	OpCopy   = "copy"
	OpDelete = "delete"
	OpUpdate = "update"
)

// builtinOrder fixes the presentation priority of builtin operations.
var builtinOrder = []string{OpDetail, OpCreate, OpCopy, OpDelete, OpUpdate}

// Operations derives the operation list for a schema under a capability set.
// Builtins come first in fixed priority order; schema-declared actions follow
// in declaration order. Every mutation requires write capability, so a
// read-only role sees detail alone.
func (s Snapshot) Operations(caps model.Capabilities) []Operation {
	enabled := map[string]bool{
		OpDetail: true,
		OpCreate: s.Meta.Creatable && caps.CanWrite,
		OpCopy:   s.Meta.Copyable && caps.CanWrite,
		OpDelete: s.Meta.Deleteable && caps.CanWrite,
		OpUpdate: s.Meta.Updatable && caps.CanWrite,
	}

	var ops []Operation
	for _, name := range builtinOrder {
		if !enabled[name] {
			continue
		}
		ops = append(ops, Operation{
			Name:    name,
			Builtin: true,
			Batch:   name == OpDelete,
			Danger:  name == OpDelete,
		})
	}

	if !caps.CanWrite {
		return ops
	}

	for _, a := range s.Meta.Actions {
		ops = append(ops, Operation{
			Name:    a.Name,
			Title:   a.Title,
			Batch:   a.Batch,
			Danger:  a.Danger,
			Columns: a.Columns,
		})
	}
	for _, name := range s.Meta.ActionNames {
		if s.declaredAction(name) {
			continue
		}
		ops = append(ops, Operation{Name: name})
	}

	return ops
}

// Operation looks up a single operation by name under a capability set.
func (s Snapshot) Operation(name string, caps model.Capabilities) (Operation, bool) {
	for _, op := range s.Operations(caps) {
		if op.Name == name {
			return op, true
		}
	}
	return Operation{}, false
}

func (s Snapshot) declaredAction(name string) bool {
	for _, a := range s.Meta.Actions {
		if a.Name == name {
			return true
		}
	}
	return false
}
