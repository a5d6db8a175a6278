// Package peers defines the identities the curation engine works with:
// the shared project and the peers who publish their own history of it.
package peers

import "fmt"

// ProjectID is the stable opaque identifier of a shared project.
type ProjectID string

// PeerID is the stable identifier of a peer.
type PeerID string

// PeerRef describes a peer whose history is available locally.
type PeerRef struct {
	// ID is the peer's stable identifier.
	ID PeerID `yaml:"id"`

	// DisplayName is the human-readable name of the peer.
	DisplayName string `yaml:"name"`

	// RemoteName is the name under which
	// the peer's Git remote is registered locally.
	RemoteName string `yaml:"remote"`

	// LedgerPath is the path at which
	// the decision ledger for this peer persists.
	LedgerPath string `yaml:"ledger"`

	// WorktreePath is the path to the peer's own checkout, if known.
	WorktreePath string `yaml:"worktree,omitempty"`
}

// Validate reports whether the ref is usable.
func (p *PeerRef) Validate() error {
	switch {
	case p.ID == "":
		return fmt.Errorf("peer %q: id is required", p.DisplayName)
	case p.RemoteName == "":
		return fmt.Errorf("peer %q: remote is required", p.DisplayName)
	case p.LedgerPath == "":
		return fmt.Errorf("peer %q: ledger is required", p.DisplayName)
	}
	return nil
}
