// Package ledger persists the per-peer record of decisions
// made about a project's commits: what was accepted, what was rejected,
// and how past conflicts were resolved.
//
// One ledger file exists per peer, keyed inside by project,
// so that a decision about a commit offered by one peer
// never silences the same commit offered by another.
package ledger

import (
	"time"

	"github.com/liminality-dev/resonate/internal/conflict"
	"github.com/liminality-dev/resonate/internal/git"
	"github.com/liminality-dev/resonate/internal/peers"
)

// Version is the current ledger schema version.
const Version = 1

// Acceptance records that a commit offered by a peer was integrated.
type Acceptance struct {
	// OriginHash is the content-addressed identity of the commit.
	OriginHash git.Hash `json:"origin_hash"`

	// AppliedHash is the hash the commit received locally
	// when it was cherry-picked.
	AppliedHash git.Hash `json:"applied_hash"`

	// RelayedBy lists every peer seen offering this origin
	// at the time of acceptance, in the order they were seen.
	RelayedBy []peers.PeerID `json:"relayed_by,omitempty"`

	// Subject is the commit's subject line, kept for display.
	Subject string `json:"subject"`

	// AcceptedAt is when the acceptance was first recorded.
	AcceptedAt time.Time `json:"accepted_at"`
}

// Rejection records that a commit offered by a peer was declined.
type Rejection struct {
	OriginHash git.Hash  `json:"origin_hash"`
	Subject    string    `json:"subject"`
	RejectedAt time.Time `json:"rejected_at"`
	Reason     string    `json:"reason,omitempty"`
}

// Adaptation is a stored, staged-ready resolution of a conflict
// that occurred while applying a commit.
// It can be replayed the next time the same origin conflicts.
type Adaptation struct {
	OriginHash git.Hash `json:"origin_hash"`

	// Files maps repo-relative paths to full resolved file contents.
	Files map[string]string `json:"files"`

	Method    conflict.Method `json:"method"`
	CreatedAt time.Time       `json:"created_at"`
}

// Project holds the decisions recorded for one project in a peer's ledger.
type Project struct {
	Accepted    []Acceptance           `json:"accepted"`
	Rejected    []Rejection            `json:"rejected"`
	Adaptations map[string]*Adaptation `json:"adaptations"`
}

func newProject() *Project {
	return &Project{Adaptations: make(map[string]*Adaptation)}
}

// Ledger is the full contents of one peer's ledger file.
type Ledger struct {
	Version  int                          `json:"version"`
	Projects map[peers.ProjectID]*Project `json:"projects"`
}

func newLedger() *Ledger {
	return &Ledger{
		Version:  Version,
		Projects: make(map[peers.ProjectID]*Project),
	}
}

// project returns the project entry, creating it if needed.
func (l *Ledger) project(id peers.ProjectID) *Project {
	if l.Projects == nil {
		l.Projects = make(map[peers.ProjectID]*Project)
	}
	p, ok := l.Projects[id]
	if !ok {
		p = newProject()
		l.Projects[id] = p
	}
	if p.Adaptations == nil {
		p.Adaptations = make(map[string]*Adaptation)
	}
	return p
}
