package playback

import (
	"math"
	"time"
)

// Report is a snapshot of the host player. The latest report fully determines
// what followers converge to.
type Report struct {
	Status Status  `json:"status"`
	Time   float64 `json:"time"`
	// Seq is stamped by the server on publish and grows per room. Zero means
	// the report was never published.
	Seq       int64     `json:"seq,omitempty"`
	UpdatedAt time.Time `json:"updated_at,omitempty"`
}

// InitialReport is the state of a room nobody has played yet.
func InitialReport() Report {
	return Report{Status: StatusUnstarted, Time: 0}
}

// reportKey is the identity used for change detection on the host side.
type reportKey struct {
	status Status
	second int64
}

func keyOf(status Status, t float64) reportKey {
	return reportKey{status: status, second: int64(math.Floor(t))}
}

// key returns the debounce key of the report: status plus whole second.
func (r Report) key() reportKey {
	return keyOf(r.Status, r.Time)
}

// Same reports whether r and other carry the same target, ignoring server stamps.
func (r Report) Same(other Report) bool {
	return r.Status == other.Status && r.Time == other.Time
}

// OlderThan reports whether r was published before other. Unpublished reports
// are never considered older.
func (r Report) OlderThan(other Report) bool {
	if r.Seq == 0 || other.Seq == 0 {
		return false
	}

	return r.Seq < other.Seq
}
