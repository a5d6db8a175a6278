package ledger

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/tidwall/gjson"
	"go.abhg.dev/log/silog"

	"github.com/liminality-dev/resonate/internal/git"
	"github.com/liminality-dev/resonate/internal/peers"
)

// stubbed in tests
var _timeNow = time.Now

// IOError is returned when a ledger file cannot be read or written.
type IOError struct {
	Path string
	Err  error
}

func (e *IOError) Error() string {
	return fmt.Sprintf("ledger %v: %v", e.Path, e.Err)
}

func (e *IOError) Unwrap() error { return e.Err }

// Store reads and writes peer ledgers,
// keeping a cache of loaded ledgers keyed by file path.
//
// The store is the single writer for the files it manages:
// all mutations go through it, and the cache is updated
// only after the corresponding write has succeeded.
type Store struct {
	log   *silog.Logger
	cache map[string]*Ledger
}

// NewStore builds an empty ledger store.
func NewStore(log *silog.Logger) *Store {
	if log == nil {
		log = silog.Nop()
	}
	return &Store{
		log:   log,
		cache: make(map[string]*Ledger),
	}
}

// Load returns the ledger stored at the given path,
// or an empty ledger if the file does not exist yet.
// Loaded ledgers are cached; later calls return the cached copy.
func (s *Store) Load(path string) (*Ledger, error) {
	if l, ok := s.cache[path]; ok {
		return l, nil
	}

	bs, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			l := newLedger()
			s.cache[path] = l
			return l, nil
		}
		return nil, &IOError{Path: path, Err: err}
	}

	// Sniff the version before a strict decode
	// so that files written by newer versions still load:
	// unknown fields are dropped, known fields survive.
	if v := gjson.GetBytes(bs, "version"); v.Exists() && v.Int() != Version {
		s.log.Warn("Ledger schema version differs; reading anyway",
			"path", path,
			"want", Version,
			"got", v.Int(),
		)
	}

	var l Ledger
	if err := json.Unmarshal(bs, &l); err != nil {
		return nil, &IOError{Path: path, Err: err}
	}
	if l.Version == 0 {
		l.Version = Version
	}

	s.cache[path] = &l
	return &l, nil
}

// Save writes the ledger for the given path to disk,
// replacing the previous contents atomically.
// The cache is updated only if the write succeeds.
func (s *Store) Save(path string, l *Ledger) error {
	l.Version = Version

	bs, err := json.MarshalIndent(l, "", "  ")
	if err != nil {
		delete(s.cache, path)
		return &IOError{Path: path, Err: err}
	}
	bs = append(bs, '\n')

	if err := writeFileAtomic(path, bs); err != nil {
		// Drop the cached copy: it may hold mutations
		// that never reached disk.
		delete(s.cache, path)
		return &IOError{Path: path, Err: err}
	}

	s.cache[path] = l
	return nil
}

// writeFileAtomic writes via a temporary file and renames into place
// so that a crash mid-write never leaves a truncated ledger.
func writeFileAtomic(path string, bs []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}

	f, err := os.CreateTemp(dir, filepath.Base(path)+".tmp-")
	if err != nil {
		return err
	}
	tmp := f.Name()
	defer func() { _ = os.Remove(tmp) }()

	if _, err := f.Write(bs); err != nil {
		_ = f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}

	return os.Rename(tmp, path)
}

// AcceptedOrigins reports the origin hashes of all commits
// accepted from the ledger at path for the given project.
func (s *Store) AcceptedOrigins(path string, project peers.ProjectID) (map[git.Hash]struct{}, error) {
	l, err := s.Load(path)
	if err != nil {
		return nil, err
	}

	origins := make(map[git.Hash]struct{})
	if p, ok := l.Projects[project]; ok {
		for _, a := range p.Accepted {
			origins[a.OriginHash] = struct{}{}
		}
	}
	return origins, nil
}

// RejectedOrigins reports the origin hashes of all commits
// rejected in the ledger at path for the given project.
func (s *Store) RejectedOrigins(path string, project peers.ProjectID) (map[git.Hash]struct{}, error) {
	l, err := s.Load(path)
	if err != nil {
		return nil, err
	}

	origins := make(map[git.Hash]struct{})
	if p, ok := l.Projects[project]; ok {
		for _, r := range p.Rejected {
			origins[r.OriginHash] = struct{}{}
		}
	}
	return origins, nil
}

// RecordAcceptances appends acceptances to the ledger at path.
//
// If an entry for the same origin already exists,
// the new relayers are merged into it and the original
// acceptance time is kept: first write wins.
func (s *Store) RecordAcceptances(path string, project peers.ProjectID, accs []Acceptance) error {
	l, err := s.Load(path)
	if err != nil {
		return err
	}

	p := l.project(project)
	now := _timeNow()
	for _, acc := range accs {
		if prev := findAcceptance(p.Accepted, acc.OriginHash); prev != nil {
			prev.RelayedBy = mergePeers(prev.RelayedBy, acc.RelayedBy)
			continue
		}

		if acc.AcceptedAt.IsZero() {
			acc.AcceptedAt = now
		}
		p.Accepted = append(p.Accepted, acc)
	}

	return s.Save(path, l)
}

// RecordRejections appends rejections to the ledger at path,
// skipping origins that are already recorded.
func (s *Store) RecordRejections(path string, project peers.ProjectID, rejs []Rejection) error {
	l, err := s.Load(path)
	if err != nil {
		return err
	}

	p := l.project(project)
	now := _timeNow()
	for _, rej := range rejs {
		if hasRejection(p.Rejected, rej.OriginHash) {
			continue
		}
		if rej.RejectedAt.IsZero() {
			rej.RejectedAt = now
		}
		p.Rejected = append(p.Rejected, rej)
	}

	return s.Save(path, l)
}

// Unreject removes the rejection recorded for the given origin, if any.
// It reports whether an entry was removed, and is safe to repeat.
func (s *Store) Unreject(path string, project peers.ProjectID, origin git.Hash) (bool, error) {
	l, err := s.Load(path)
	if err != nil {
		return false, err
	}

	p := l.project(project)
	kept := p.Rejected[:0]
	removed := false
	for _, rej := range p.Rejected {
		if rej.OriginHash == origin {
			removed = true
			continue
		}
		kept = append(kept, rej)
	}
	if !removed {
		return false, nil
	}

	p.Rejected = kept
	return true, s.Save(path, l)
}

// PutAdaptation stores the adaptation for its origin,
// replacing any previous one.
func (s *Store) PutAdaptation(path string, project peers.ProjectID, adapt *Adaptation) error {
	l, err := s.Load(path)
	if err != nil {
		return err
	}

	if adapt.CreatedAt.IsZero() {
		adapt.CreatedAt = _timeNow()
	}

	p := l.project(project)
	p.Adaptations[adapt.OriginHash.String()] = adapt
	return s.Save(path, l)
}

// Adaptation returns the stored adaptation for the given origin,
// or nil if there is none.
func (s *Store) Adaptation(path string, project peers.ProjectID, origin git.Hash) (*Adaptation, error) {
	l, err := s.Load(path)
	if err != nil {
		return nil, err
	}

	p, ok := l.Projects[project]
	if !ok {
		return nil, nil
	}
	return p.Adaptations[origin.String()], nil
}

// RemoveAdaptation deletes the stored adaptation for the given origin.
// Removing an absent adaptation is not an error.
func (s *Store) RemoveAdaptation(path string, project peers.ProjectID, origin git.Hash) error {
	l, err := s.Load(path)
	if err != nil {
		return err
	}

	p, ok := l.Projects[project]
	if !ok {
		return nil
	}
	if _, ok := p.Adaptations[origin.String()]; !ok {
		return nil
	}

	delete(p.Adaptations, origin.String())
	return s.Save(path, l)
}

func findAcceptance(accs []Acceptance, origin git.Hash) *Acceptance {
	for i := range accs {
		if accs[i].OriginHash == origin {
			return &accs[i]
		}
	}
	return nil
}

func hasRejection(rejs []Rejection, origin git.Hash) bool {
	for _, rej := range rejs {
		if rej.OriginHash == origin {
			return true
		}
	}
	return false
}

func mergePeers(have, add []peers.PeerID) []peers.PeerID {
	seen := make(map[peers.PeerID]struct{}, len(have))
	for _, id := range have {
		seen[id] = struct{}{}
	}
	for _, id := range add {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		have = append(have, id)
	}
	return have
}
