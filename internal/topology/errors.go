package topology

import "fmt"

// InvalidGeometryError reports a malformed input geometry: an unsupported
// type, an open chain with fewer than 2 vertices, or a ring with fewer than
// 4 vertices before de-duplication of the closing vertex.
type InvalidGeometryError struct {
	FeatureID string
	Part      int
	Reason    string
}

func (e *InvalidGeometryError) Error() string {
	return fmt.Sprintf("invalid geometry on feature %q part %d: %s",
		e.FeatureID, e.Part, e.Reason)
}
