// ABOUTME: Follower tracks whether the feed should stick to its newest item as content grows.
package timeline

// DefaultFollowThreshold is the distance from the bottom, in display units,
// within which following stays enabled.
const DefaultFollowThreshold = 80

// Follower is the auto-scroll switch. It starts enabled, turns off as soon as
// the user scrolls away from the bottom, and turns back on only when the user
// returns near it.
type Follower struct {
	threshold int
	off       bool
}

// NewFollower returns an enabled follower. A threshold <= 0 uses
// DefaultFollowThreshold.
func NewFollower(threshold int) Follower {
	if threshold <= 0 {
		threshold = DefaultFollowThreshold
	}
	return Follower{threshold: threshold}
}

// Enabled reports whether new content should scroll into view.
func (f Follower) Enabled() bool {
	return !f.off
}

// Threshold returns the near-bottom distance.
func (f Follower) Threshold() int {
	if f.threshold <= 0 {
		return DefaultFollowThreshold
	}
	return f.threshold
}

// ManualScroll records a user-initiated scroll gesture. Any gesture
// suspends following until Scrolled reports the bottom again.
func (f *Follower) ManualScroll() {
	f.off = true
}

// Scrolled records the current distance between the visible bottom edge and
// the end of the content.
func (f *Follower) Scrolled(distanceFromBottom int) {
	f.off = distanceFromBottom >= f.Threshold()
}
