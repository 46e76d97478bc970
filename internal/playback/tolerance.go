package playback

import "fmt"

const (
	DefaultLagLimit  = -0.5
	DefaultLeadLimit = 3.0
)

// Tolerance is the band (Lag, Lead] of accepted drift in seconds, where drift
// is follower time minus host time. Followers may run ahead of the last known
// host time because that time is already stale when it arrives; running
// behind is corrected right away.
type Tolerance struct {
	Lag  float64
	Lead float64
}

func DefaultTolerance() Tolerance {
	return Tolerance{Lag: DefaultLagLimit, Lead: DefaultLeadLimit}
}

func (t Tolerance) Validate() error {
	if t.Lag >= 0 {
		return fmt.Errorf("lag limit must be negative, got %v", t.Lag)
	}
	if t.Lead <= 0 {
		return fmt.Errorf("lead limit must be positive, got %v", t.Lead)
	}
	return nil
}

func (t Tolerance) Within(drift float64) bool {
	return drift > t.Lag && drift <= t.Lead
}
