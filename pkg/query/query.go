// Package query provides a small, store-neutral filter language used to scope
// list operations.
//
// A Cond is built by the visibility layer (pkg/rbac) and by request filters,
// then handed to a storage backend. The in-memory backend evaluates it with
// Match; the PostgreSQL backend compiles it into a WHERE clause. Both must
// agree, which is why every operator here is deliberately simple: equality,
// set membership, case-insensitive substring search and boolean composition.
//
// Multi-valued document fields (for example a project's member list) use
// array-membership semantics: Eq matches when any of the field's values equals
// the operand.
package query

import "strings"

// Op identifies the kind of a condition node
type Op int

const (
	// OpAll matches every document
	OpAll Op = iota
	// OpNone matches no document
	OpNone
	// OpEq matches when any value of Field equals Value
	OpEq
	// OpIn matches when any value of Field is contained in Values
	OpIn
	// OpAnd matches when all children match
	OpAnd
	// OpOr matches when at least one child matches
	OpOr
	// OpSearch matches when Value is a case-insensitive substring of any of Fields
	OpSearch
)

func (o Op) String() string {
	switch o {
	case OpAll:
		return "all"
	case OpNone:
		return "none"
	case OpEq:
		return "eq"
	case OpIn:
		return "in"
	case OpAnd:
		return "and"
	case OpOr:
		return "or"
	case OpSearch:
		return "search"
	default:
		return "unknown"
	}
}

// Cond is a node of a filter expression
type Cond struct {
	Op       Op
	Field    string
	Value    string
	Values   []string
	Fields   []string
	Children []Cond
}

// All returns a condition matching everything
func All() Cond {
	return Cond{Op: OpAll}
}

// None returns a condition matching nothing
func None() Cond {
	return Cond{Op: OpNone}
}

// Eq returns an equality (or array membership) condition
func Eq(field, value string) Cond {
	return Cond{Op: OpEq, Field: field, Value: value}
}

// In returns a set membership condition. An empty set matches nothing.
func In(field string, values []string) Cond {
	if len(values) == 0 {
		return None()
	}
	cp := make([]string, len(values))
	copy(cp, values)
	return Cond{Op: OpIn, Field: field, Values: cp}
}

// Search returns a case-insensitive substring condition over fields.
// An empty search term matches everything.
func Search(text string, fields ...string) Cond {
	text = strings.TrimSpace(text)
	if text == "" || len(fields) == 0 {
		return All()
	}
	return Cond{Op: OpSearch, Value: text, Fields: fields}
}

// And combines conditions, folding away All children and collapsing to
// None when any child is None.
func And(conds ...Cond) Cond {
	children := make([]Cond, 0, len(conds))
	for _, c := range conds {
		switch c.Op {
		case OpAll:
			continue
		case OpNone:
			return None()
		case OpAnd:
			children = append(children, c.Children...)
		default:
			children = append(children, c)
		}
	}
	switch len(children) {
	case 0:
		return All()
	case 1:
		return children[0]
	}
	return Cond{Op: OpAnd, Children: children}
}

// Or combines conditions, folding away None children and collapsing to
// All when any child is All.
func Or(conds ...Cond) Cond {
	children := make([]Cond, 0, len(conds))
	for _, c := range conds {
		switch c.Op {
		case OpNone:
			continue
		case OpAll:
			return All()
		case OpOr:
			children = append(children, c.Children...)
		default:
			children = append(children, c)
		}
	}
	switch len(children) {
	case 0:
		return None()
	case 1:
		return children[0]
	}
	return Cond{Op: OpOr, Children: children}
}

// IsAll reports whether the condition is unconstrained
func (c Cond) IsAll() bool {
	return c.Op == OpAll
}

// IsNone reports whether the condition can never match
func (c Cond) IsNone() bool {
	return c.Op == OpNone
}

// Document is anything a condition can be evaluated against
type Document interface {
	// FieldValues returns the values of a field. Unknown fields return nil.
	FieldValues(field string) []string
}

// Match evaluates a condition against a document
func Match(c Cond, doc Document) bool {
	switch c.Op {
	case OpAll:
		return true
	case OpNone:
		return false
	case OpEq:
		for _, v := range doc.FieldValues(c.Field) {
			if v == c.Value {
				return true
			}
		}
		return false
	case OpIn:
		for _, v := range doc.FieldValues(c.Field) {
			for _, want := range c.Values {
				if v == want {
					return true
				}
			}
		}
		return false
	case OpAnd:
		for _, child := range c.Children {
			if !Match(child, doc) {
				return false
			}
		}
		return true
	case OpOr:
		for _, child := range c.Children {
			if Match(child, doc) {
				return true
			}
		}
		return false
	case OpSearch:
		needle := strings.ToLower(c.Value)
		for _, f := range c.Fields {
			for _, v := range doc.FieldValues(f) {
				if strings.Contains(strings.ToLower(v), needle) {
					return true
				}
			}
		}
		return false
	default:
		return false
	}
}
