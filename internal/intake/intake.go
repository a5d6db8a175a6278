// Package intake enumerates the commits that peers offer for a project,
// deduplicates relays of the same change by origin hash,
// and filters out everything the user has already decided on.
package intake

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"time"

	"go.abhg.dev/log/silog"

	"github.com/liminality-dev/resonate/internal/git"
	"github.com/liminality-dev/resonate/internal/origin"
	"github.com/liminality-dev/resonate/internal/peers"
)

// CommitRef identifies one commit offered by a peer.
type CommitRef struct {
	// LocalHash is the hash of the commit on the offering peer's branch.
	LocalHash git.Hash

	// OriginHash is the content-addressed identity of the commit
	// across relay chains.
	OriginHash git.Hash

	// Author and Email identify the commit's author.
	Author string
	Email  string

	// Time is the author timestamp.
	Time time.Time

	// Subject and Body are the commit message.
	Subject string
	Body    string

	// SourceRef is the ref the commit was enumerated from,
	// e.g. "bob/main".
	SourceRef string
}

// PendingCommit is a commit offered by one or more peers
// that the user has not decided on yet.
type PendingCommit struct {
	CommitRef

	// OfferedBy lists the peers offering this commit,
	// in the order they were seen. Never empty.
	// The first entry is the primary peer:
	// the commit is grouped under them.
	OfferedBy []peers.PeerID

	// OfferedByNames carries the display names
	// matching OfferedBy, in the same order.
	OfferedByNames []string

	// CherryPickRef is the hash to pass to git cherry-pick
	// to apply this commit.
	CherryPickRef git.Hash
}

// PeerCommitGroup is the set of pending commits
// grouped under their primary peer,
// sorted by ascending author time.
type PeerCommitGroup struct {
	Peer    peers.PeerRef
	Commits []PendingCommit
}

// GitRepository is the subset of the git.Repository API used by intake.
type GitRepository interface {
	CommitsBetween(ctx context.Context, lower, upper string) ([]git.CommitInfo, error)
}

var _ GitRepository = (*git.Repository)(nil)

// GitWorktree is the subset of the git.Worktree API used by intake.
type GitWorktree interface {
	CurrentBranch(ctx context.Context) (string, error)
}

var _ GitWorktree = (*git.Worktree)(nil)

// LedgerSource answers decision-set queries against peer ledgers.
type LedgerSource interface {
	AcceptedOrigins(path string, project peers.ProjectID) (map[git.Hash]struct{}, error)
	RejectedOrigins(path string, project peers.ProjectID) (map[git.Hash]struct{}, error)
}

// Service lists the commits peers offer for a project.
type Service struct {
	repo    GitRepository
	wt      GitWorktree
	ledgers LedgerSource
	log     *silog.Logger
}

// NewService builds an intake service.
func NewService(repo GitRepository, wt GitWorktree, ledgers LedgerSource, log *silog.Logger) *Service {
	if log == nil {
		log = silog.Nop()
	}
	return &Service{
		repo:    repo,
		wt:      wt,
		ledgers: ledgers,
		log:     log,
	}
}

// ListPending enumerates, deduplicates, and filters
// the commits the given peers offer for the project.
//
// The operation is idempotent and has no side effects on the working tree.
// Peers whose remote cannot be enumerated are skipped with a warning;
// the remaining peers still contribute.
func (s *Service) ListPending(
	ctx context.Context,
	project peers.ProjectID,
	refs []peers.PeerRef,
) ([]PeerCommitGroup, error) {
	branch, err := s.wt.CurrentBranch(ctx)
	if err != nil {
		// A detached HEAD still has peers publishing on the
		// project's main line.
		branch = "main"
	}

	pending := make(map[git.Hash]*PendingCommit)
	var order []git.Hash // origin hashes in first-seen order

	for _, peer := range refs {
		filtered, err := s.decidedOrigins(peer, project)
		if err != nil {
			return nil, fmt.Errorf("load decisions for %v: %w", peer.DisplayName, err)
		}

		sourceRef := peer.RemoteName + "/" + branch
		commits, err := s.repo.CommitsBetween(ctx, "HEAD", sourceRef)
		if err != nil {
			s.log.Warn("Cannot enumerate peer; skipping",
				"peer", peer.DisplayName,
				"ref", sourceRef,
				"err", err,
			)
			continue
		}

		for _, c := range commits {
			originHash := origin.Resolve(c.Hash, c.Body)
			if _, ok := filtered[originHash]; ok {
				continue
			}

			if got, ok := pending[originHash]; ok {
				if !slices.Contains(got.OfferedBy, peer.ID) {
					got.OfferedBy = append(got.OfferedBy, peer.ID)
					got.OfferedByNames = append(got.OfferedByNames, peer.DisplayName)
				}
				continue
			}

			pending[originHash] = &PendingCommit{
				CommitRef: CommitRef{
					LocalHash:  c.Hash,
					OriginHash: originHash,
					Author:     c.Author,
					Email:      c.Email,
					Time:       c.Time,
					Subject:    c.Subject,
					Body:       c.Body,
					SourceRef:  sourceRef,
				},
				OfferedBy:      []peers.PeerID{peer.ID},
				OfferedByNames: []string{peer.DisplayName},
				CherryPickRef:  c.Hash,
			}
			order = append(order, originHash)
		}
	}

	// Group under the primary peer, preserving first-seen order
	// so grouping is deterministic across calls.
	grouped := make(map[peers.PeerID][]PendingCommit)
	for _, originHash := range order {
		pc := pending[originHash]
		primary := pc.OfferedBy[0]
		grouped[primary] = append(grouped[primary], *pc)
	}

	var groups []PeerCommitGroup
	for _, peer := range refs {
		commits := grouped[peer.ID]
		if len(commits) == 0 {
			continue
		}

		slices.SortFunc(commits, func(a, b PendingCommit) int {
			if c := a.Time.Compare(b.Time); c != 0 {
				return c
			}
			return cmp.Compare(a.LocalHash, b.LocalHash)
		})

		groups = append(groups, PeerCommitGroup{
			Peer:    peer,
			Commits: commits,
		})
	}
	return groups, nil
}

func (s *Service) decidedOrigins(peer peers.PeerRef, project peers.ProjectID) (map[git.Hash]struct{}, error) {
	accepted, err := s.ledgers.AcceptedOrigins(peer.LedgerPath, project)
	if err != nil {
		return nil, err
	}
	rejected, err := s.ledgers.RejectedOrigins(peer.LedgerPath, project)
	if err != nil {
		return nil, err
	}

	decided := make(map[git.Hash]struct{}, len(accepted)+len(rejected))
	for h := range accepted {
		decided[h] = struct{}{}
	}
	for h := range rejected {
		decided[h] = struct{}{}
	}
	return decided, nil
}
