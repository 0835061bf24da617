package reshape

import "segment-reshape/internal/feature"

// AnchorKind tells how a feature was tied to the common segment.
type AnchorKind int

const (
	// AnchorFullSpan means every anchor replaced a whole vertex run.
	AnchorFullSpan AnchorKind = iota
	// AnchorEndpoint means every anchor moved a single boundary vertex.
	AnchorEndpoint
	// AnchorMixed means the feature had both kinds of anchor.
	AnchorMixed
)

func (k AnchorKind) String() string {
	switch k {
	case AnchorFullSpan:
		return "full-span"
	case AnchorEndpoint:
		return "endpoint"
	case AnchorMixed:
		return "mixed"
	default:
		return "unknown"
	}
}

// FeatureEdit is one successfully reshaped feature. The feature is a fresh
// copy with the edited geometry; attributes are carried through unchanged.
// CoordinateMismatch flags anchored vertices whose stored coordinates
// deviated from the segment within tolerance, a non-fatal condition.
type FeatureEdit struct {
	Feature            feature.Feature
	Kind               AnchorKind
	CoordinateMismatch bool
}

// FailedEdit is a feature whose edit was rejected. Other features' edits
// still apply.
type FailedEdit struct {
	FeatureID string
	Err       error
}

// EditResult groups the per-feature outcomes of one reshape.
type EditResult struct {
	Edits    []FeatureEdit
	Failures []FailedEdit
}

// OK reports whether every anchored feature was edited.
func (r *EditResult) OK() bool {
	return len(r.Failures) == 0
}

// Edited returns the edit for a feature, if it succeeded.
func (r *EditResult) Edited(id string) (FeatureEdit, bool) {
	for _, e := range r.Edits {
		if e.Feature.ID == id {
			return e, true
		}
	}
	return FeatureEdit{}, false
}

// Failed returns the rejection error for a feature, or nil.
func (r *EditResult) Failed(id string) error {
	for _, f := range r.Failures {
		if f.FeatureID == id {
			return f.Err
		}
	}
	return nil
}
