// Package rbac decides which traces a caller may see.
//
// Visibility is resolved once per request into a Scope, and the Scope is
// composed into every read, export, and delete query as a WHERE predicate.
// Endpoints never re-implement the branching themselves.
package rbac

import (
	"fmt"

	"github.com/tanishq16016/LLM-Moniter/internal/shared/models"
)

type scopeKind int

const (
	scopeNone scopeKind = iota
	scopeOwner
	scopeAll
)

// Scope is the visible record set for one identity: everything, rows owned
// by one user, or nothing.
type Scope struct {
	kind   scopeKind
	userID int64
}

// ScopeFor maps an identity to its scope. Superusers see all traces,
// ordinary users their own, anonymous callers none.
func ScopeFor(id *models.Identity) Scope {
	switch {
	case id == nil:
		return Scope{kind: scopeNone}
	case id.Superuser:
		return Scope{kind: scopeAll}
	default:
		return Scope{kind: scopeOwner, userID: id.ID}
	}
}

// Predicate returns a SQL condition restricting a query to this scope, with
// its bind arguments. argOffset is the positional index the first argument
// should take ($1-based).
func (s Scope) Predicate(argOffset int) (string, []interface{}) {
	switch s.kind {
	case scopeAll:
		return "TRUE", nil
	case scopeOwner:
		return fmt.Sprintf("user_id = $%d", argOffset), []interface{}{s.userID}
	default:
		return "FALSE", nil
	}
}

// IsEmpty reports whether the scope can never match any row.
func (s Scope) IsEmpty() bool {
	return s.kind == scopeNone
}

// CacheSuffix distinguishes cached aggregates per scope so a shared cache
// never leaks one identity's numbers to another.
func (s Scope) CacheSuffix() string {
	switch s.kind {
	case scopeAll:
		return "all"
	case scopeOwner:
		return fmt.Sprintf("user:%d", s.userID)
	default:
		return "anon"
	}
}
