package backup

import (
	"context"
	"fmt"
	"io"

	"github.com/jpcaldeira/reserva/internal/model"
)

//go:generate mockgen -source=session.go -destination=session_mock.go -package=backup

// Repository supplies the current live dataset. Loading is a single
// blocking round-trip; callers cancel it through the context.
type Repository interface {
	LoadDataset(ctx context.Context) (*model.Dataset, error)
}

// Executor persists a selective re-submission payload in one atomic
// transaction: either every record is written or none is.
type Executor interface {
	Import(ctx context.Context, p *Payload) (*Stats, error)
}

// Service owns snapshot export and the restore session lifecycle.
type Service struct {
	repo Repository
	exec Executor
}

func NewService(repo Repository, exec Executor) *Service {
	return &Service{repo: repo, exec: exec}
}

// Open decodes a snapshot file, loads the live dataset and returns a fresh
// restore session with an empty selection. Decoding failures surface before
// anything is loaded; no partial state exists afterwards.
func (s *Service) Open(ctx context.Context, r io.Reader) (*Session, error) {
	snap, err := DecodeSnapshot(r)
	if err != nil {
		return nil, err
	}

	return s.Load(ctx, snap)
}

// Load starts a restore session from an already decoded snapshot. The
// duplicate mask is computed eagerly, once, and cached for the session.
func (s *Service) Load(ctx context.Context, snap *Snapshot) (*Session, error) {
	live, err := s.repo.LoadDataset(ctx)
	if err != nil {
		return nil, fmt.Errorf("loading live dataset: %w", err)
	}

	mask := NewDetector(live).BuildMask(&snap.Data)

	return &Session{
		snap: snap,
		live: live,
		mask: mask,
		sel:  newSelection(),
		res:  newResolver(&snap.Data, live, mask),
	}, nil
}

// Import builds the session's payload and hands it to the executor. On
// failure the session's selection is untouched, so the user can retry
// without rebuilding it.
func (s *Service) Import(ctx context.Context, sess *Session) (*Stats, error) {
	stats, err := s.exec.Import(ctx, sess.Payload())
	if err != nil {
		return nil, fmt.Errorf("importing selection: %w", err)
	}

	return stats, nil
}

// Session is the mutable state of one restore interaction: the decoded
// snapshot, the live dataset it is reconciled against, the immutable
// duplicate mask and the user's selection. It is discarded after the import
// commits or the operation is abandoned; it is not safe for concurrent use.
type Session struct {
	snap *Snapshot
	live *model.Dataset
	mask Mask
	sel  *Selection
	res  *resolver
}

func (s *Session) Snapshot() *Snapshot    { return s.snap }
func (s *Session) Data() *SnapshotData    { return &s.snap.Data }
func (s *Session) Live() *model.Dataset   { return s.live }
func (s *Session) Mask() Mask             { return s.mask }
func (s *Session) Selection() *Selection  { return s.sel }
func (s *Session) SetIncludeSettings(v bool) {
	s.sel.includeSettings = v && s.snap.Data.Settings != nil
}

// Apply is the single mutation entry point for the selection. Every
// invariant is enforced here:
//
//   - duplicates are never selectable,
//   - payments are never toggled directly,
//   - selecting a booking or expense pulls in its non-duplicate references,
//   - a record referenced by a selected dependent cannot be deselected.
//
// A rejected action leaves the selection exactly as it was.
func (s *Session) Apply(a Action) (*Delta, error) {
	switch a.Op {
	case OpSelect:
		return s.applySelect(a.Class, a.Index)
	case OpDeselect:
		return s.applyDeselect(a.Class, a.Index)
	case OpSelectAll:
		return s.applySelectAll(a.Class)
	case OpDeselectAll:
		return s.applyDeselectAll(a.Class)
	}

	return nil, fmt.Errorf("unknown selection op %d", a.Op)
}

func (s *Session) applySelect(c Class, index int) (*Delta, error) {
	if !c.Selectable() {
		return nil, fmt.Errorf("%s: %w", c.DisplayName(), ErrNotSelectable)
	}

	if index < 0 || index >= s.snap.Data.Len(c) {
		return nil, fmt.Errorf("%s[%d]: %w", c, index, ErrIndexOutOfRange)
	}

	ref := RecordRef{Class: c, Index: index}
	if s.mask.Duplicate(ref) {
		return nil, fmt.Errorf("%s %q: %w", c.DisplayName(), s.snap.Data.Label(ref), ErrDuplicateRecord)
	}

	delta := &Delta{}
	s.selectWithRequirements(ref, delta)

	return delta, nil
}

// selectWithRequirements adds ref and every record it depends on. The
// reference graph has a single level (bookings and expenses reference only
// leaf classes), but the traversal takes no advantage of that.
func (s *Session) selectWithRequirements(ref RecordRef, delta *Delta) {
	queue := []RecordRef{ref}

	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]

		if !s.sel.add(cur.Class, cur.Index) {
			continue
		}

		delta.Added = append(delta.Added, cur)
		queue = append(queue, s.res.requirements(cur)...)
	}
}

func (s *Session) applyDeselect(c Class, index int) (*Delta, error) {
	if !c.Selectable() {
		return nil, fmt.Errorf("%s: %w", c.DisplayName(), ErrNotSelectable)
	}

	ref := RecordRef{Class: c, Index: index}
	if !s.sel.Has(c, index) {
		return &Delta{}, nil
	}

	if blockers := s.res.blockers(ref, s.sel); len(blockers) > 0 {
		return nil, s.blockedError(ref, blockers)
	}

	s.sel.remove(c, index)

	return &Delta{Removed: []RecordRef{ref}}, nil
}

func (s *Session) applySelectAll(c Class) (*Delta, error) {
	if !c.Selectable() {
		return nil, fmt.Errorf("%s: %w", c.DisplayName(), ErrNotSelectable)
	}

	delta := &Delta{}

	for i := 0; i < s.snap.Data.Len(c); i++ {
		ref := RecordRef{Class: c, Index: i}
		if s.mask.Duplicate(ref) {
			continue
		}

		s.selectWithRequirements(ref, delta)
	}

	return delta, nil
}

func (s *Session) applyDeselectAll(c Class) (*Delta, error) {
	if !c.Selectable() {
		return nil, fmt.Errorf("%s: %w", c.DisplayName(), ErrNotSelectable)
	}

	delta := &Delta{}

	for _, i := range s.sel.Indices(c) {
		ref := RecordRef{Class: c, Index: i}
		if len(s.res.blockers(ref, s.sel)) > 0 {
			delta.Protected = append(delta.Protected, ref)
			continue
		}

		s.sel.remove(c, i)
		delta.Removed = append(delta.Removed, ref)
	}

	return delta, nil
}

func (s *Session) blockedError(ref RecordRef, blockers []RecordRef) error {
	labels := make([]string, len(blockers))
	for i, b := range blockers {
		labels[i] = fmt.Sprintf("%s %q", b.Class.DisplayName(), s.snap.Data.Label(b))
	}

	return &BlockedError{
		Ref:           ref,
		Label:         s.snap.Data.Label(ref),
		Blockers:      blockers,
		BlockerLabels: labels,
	}
}
