package mqtt

import "go.uber.org/zap"

// outgoing is one serialized message held while the broker is unreachable.
type outgoing struct {
	topic    string
	payload  []byte
	qos      byte
	retained bool
	// latest marks topics where only the newest message is worth replaying.
	latest bool
}

// offlineQueue holds messages published while disconnected, oldest first.
// A latest message replaces any queued message on its topic, so a long outage
// replays one status line instead of thousands. Caller must synchronize.
type offlineQueue struct {
	items   []outgoing
	limit   int
	dropped int
	log     *zap.Logger
}

func newOfflineQueue(limit int, logger *zap.Logger) *offlineQueue {
	if limit < 1 {
		limit = 1
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &offlineQueue{limit: limit, log: logger}
}

func (q *offlineQueue) add(m outgoing) {
	if m.latest {
		for i := range q.items {
			if q.items[i].topic == m.topic {
				q.items = append(q.items[:i], q.items[i+1:]...)
				break
			}
		}
	}
	if len(q.items) == q.limit {
		if q.dropped == 0 {
			q.log.Warn("offline queue full, dropping oldest", zap.Int("limit", q.limit))
		}
		q.dropped++
		q.items = q.items[1:]
	}
	q.items = append(q.items, m)
}

// flush empties the queue and returns its messages with the number dropped
// since the previous flush.
func (q *offlineQueue) flush() ([]outgoing, int) {
	items, dropped := q.items, q.dropped
	q.items = nil
	q.dropped = 0
	return items, dropped
}

func (q *offlineQueue) len() int {
	return len(q.items)
}
