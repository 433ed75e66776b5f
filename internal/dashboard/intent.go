// Package dashboard turns operator intents into engine calls and publishes an
// immutable view of the station after every change.
package dashboard

import (
	"time"

	authDomain "github.com/allisson/btsguard/internal/auth/domain"
)

// Kind names what an intent asks for.
type Kind string

// Intent kinds.
const (
	KindSetField     Kind = "set-field"
	KindCommit       Kind = "commit"
	KindDiscard      Kind = "discard"
	KindApply        Kind = "apply"
	KindGenerateCert Kind = "generate-cert"
	KindRotateCert   Kind = "rotate-cert"
	KindSnapshot     Kind = "snapshot"
	KindRestore      Kind = "restore"
	KindRefresh      Kind = "refresh"
	KindReload       Kind = "reload"
)

// Intent is a single operator request. Only the fields relevant to Kind are read.
type Intent struct {
	Kind Kind

	// Section, Key and Value address a field for set-field.
	Section string
	Key     string
	Value   string

	// Version pins apply to a reviewed version; 0 applies the current one.
	Version uint64

	// Target is the certificate ID for rotate-cert and the snapshot ID for restore.
	Target string

	// Validity overrides the default for generate-cert.
	Validity time.Duration
}

var intentActions = map[Kind]authDomain.Action{
	KindSetField:     authDomain.ActionEditConfig,
	KindCommit:       authDomain.ActionEditConfig,
	KindDiscard:      authDomain.ActionEditConfig,
	KindApply:        authDomain.ActionApplyConfig,
	KindGenerateCert: authDomain.ActionGenerateCert,
	KindRotateCert:   authDomain.ActionRotateCert,
	KindSnapshot:     authDomain.ActionSnapshot,
	KindRestore:      authDomain.ActionRestore,
	KindRefresh:      authDomain.ActionView,
	KindReload:       authDomain.ActionReloadService,
}

// Action returns the access-control action guarding the intent. Unknown kinds
// map to an action only admins hold.
func (k Kind) Action() authDomain.Action {
	if action, ok := intentActions[k]; ok {
		return action
	}
	return authDomain.Action("dashboard:" + string(k))
}
