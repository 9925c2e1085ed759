package logic

import "time"

// Stats counts transitions and schedules heartbeats.
type Stats struct {
	startTime     time.Time
	counts        EventCounts
	lastHeartbeat time.Time
}

// NewStats creates a Stats. The startTime is used for calculating uptime in
// heartbeat events.
func NewStats(startTime time.Time) *Stats {
	return &Stats{
		startTime:     startTime,
		lastHeartbeat: startTime,
	}
}

// Record counts an event.
func (s *Stats) Record(e Event) {
	switch e.Type {
	case EventDeploy:
		s.counts.Deploy++
	case EventRetract:
		s.counts.Retract++
	}
}

// Counts returns a copy of the event counts.
func (s *Stats) Counts() EventCounts {
	return s.counts
}

// CheckHeartbeat returns heartbeat data if the interval has elapsed since the
// last heartbeat (or startup). Returns nil if the interval has not elapsed,
// or if interval is <= 0 (disabled).
func (s *Stats) CheckHeartbeat(now time.Time, interval time.Duration) *HeartbeatData {
	if interval <= 0 {
		return nil
	}

	if now.Sub(s.lastHeartbeat) < interval {
		return nil
	}

	s.lastHeartbeat = now
	return &HeartbeatData{
		Timestamp: now,
		Uptime:    now.Sub(s.startTime),
		Counts:    s.counts,
	}
}
