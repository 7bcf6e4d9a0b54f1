package model

import "fmt"

// ScopeKind selects which visibility predicate a listing applies.
type ScopeKind int

const (
	// ScopeOwner lists one owner's private entries.
	ScopeOwner ScopeKind = iota + 1
	// ScopePublic lists approved public copies.
	ScopePublic
	// ScopeAdmin applies no ownership or public-copy predicate.
	ScopeAdmin
)

func (k ScopeKind) String() string {
	switch k {
	case ScopeOwner:
		return "owner"
	case ScopePublic:
		return "public"
	case ScopeAdmin:
		return "admin"
	default:
		return fmt.Sprintf("scope(%d)", int(k))
	}
}

// Scope is the visibility predicate for a listing or search.
type Scope struct {
	Kind    ScopeKind
	OwnerID int64
}

// OwnerScope sees the caller's own private entries.
func OwnerScope(ownerID int64) Scope { return Scope{Kind: ScopeOwner, OwnerID: ownerID} }

// PublicScope sees public copies only.
func PublicScope() Scope { return Scope{Kind: ScopePublic} }

// AdminScope sees every entry.
func AdminScope() Scope { return Scope{Kind: ScopeAdmin} }

// Allows reports whether the entry is visible under the scope, ignoring the deleted flag.
func (s Scope) Allows(e *Entry) bool {
	switch s.Kind {
	case ScopeOwner:
		return !e.IsPublicCopy && e.UserID == s.OwnerID
	case ScopePublic:
		return e.IsPublicCopy
	case ScopeAdmin:
		return true
	default:
		return false
	}
}
