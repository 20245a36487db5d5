package backup

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrInvalidSnapshot marks a snapshot file that could not be decoded.
	ErrInvalidSnapshot = errors.New("invalid snapshot file")

	// ErrDuplicateRecord is returned when a record flagged as having a live
	// equivalent is selected for import.
	ErrDuplicateRecord = errors.New("record already exists in the live dataset")

	// ErrNotSelectable is returned for classes whose records follow other
	// selections and cannot be toggled directly (payments).
	ErrNotSelectable = errors.New("records of this class cannot be selected directly")

	// ErrIndexOutOfRange is returned for a record index outside the
	// snapshot sequence.
	ErrIndexOutOfRange = errors.New("record index out of range")
)

// BlockedError rejects a deselection that would orphan selected dependents.
// The selection is left untouched; Blockers names the records that still
// reference the target.
type BlockedError struct {
	Ref           RecordRef
	Label         string
	Blockers      []RecordRef
	BlockerLabels []string
}

func (e *BlockedError) Error() string {
	target := e.Label
	if target == "" {
		target = fmt.Sprintf("%s #%d", e.Ref.Class.DisplayName(), e.Ref.Index)
	}

	if len(e.BlockerLabels) == 0 {
		return fmt.Sprintf("%s %q is still referenced by %d selected record(s)",
			strings.ToLower(e.Ref.Class.DisplayName()), target, len(e.Blockers))
	}

	return fmt.Sprintf("%s %q is still referenced by: %s",
		strings.ToLower(e.Ref.Class.DisplayName()), target, strings.Join(e.BlockerLabels, ", "))
}
