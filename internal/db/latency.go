package db

import "strings"

// QueryLatencyStats returns recent latency per query and stage queue, slowest p95 first.
func (c *Database) QueryLatencyStats() []LatencyStats {
	if c == nil || c.tracker == nil {
		return nil
	}
	return c.tracker.snapshot()
}

// QueueLatencyStats narrows QueryLatencyStats to queries labelled with queue.
func (c *Database) QueueLatencyStats(queue string) []LatencyStats {
	queue = strings.TrimSpace(queue)
	var out []LatencyStats
	for _, entry := range c.QueryLatencyStats() {
		if entry.Queue == queue {
			out = append(out, entry)
		}
	}
	return out
}
