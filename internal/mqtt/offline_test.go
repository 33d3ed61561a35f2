package mqtt

import (
	"testing"
)

func intentMsg(i int) outgoing {
	return outgoing{topic: TopicIntents, payload: []byte{byte(i)}}
}

func TestOfflineQueueEmptyFlush(t *testing.T) {
	q := newOfflineQueue(10, nil)
	got, dropped := q.flush()
	if len(got) != 0 || dropped != 0 {
		t.Errorf("empty flush: got %d items, %d dropped", len(got), dropped)
	}
}

func TestOfflineQueueKeepsOrder(t *testing.T) {
	q := newOfflineQueue(10, nil)
	for i := 0; i < 4; i++ {
		q.add(intentMsg(i))
	}
	got, _ := q.flush()
	if len(got) != 4 {
		t.Fatalf("expected 4 messages, got %d", len(got))
	}
	for i, m := range got {
		if m.payload[0] != byte(i) {
			t.Errorf("message %d: got payload %d", i, m.payload[0])
		}
	}
	if q.len() != 0 {
		t.Errorf("queue not empty after flush: %d", q.len())
	}
}

func TestOfflineQueueDropsOldestWhenFull(t *testing.T) {
	q := newOfflineQueue(3, nil)
	for i := 0; i < 5; i++ {
		q.add(intentMsg(i))
	}
	got, dropped := q.flush()
	if dropped != 2 {
		t.Errorf("dropped: got %d, want 2", dropped)
	}
	if len(got) != 3 || got[0].payload[0] != 2 || got[2].payload[0] != 4 {
		t.Errorf("expected intents 2..4, got %v", got)
	}

	q.add(intentMsg(9))
	_, dropped = q.flush()
	if dropped != 0 {
		t.Errorf("drop count should reset after flush, got %d", dropped)
	}
}

func TestOfflineQueueCoalescesStatusLines(t *testing.T) {
	q := newOfflineQueue(10, nil)
	q.add(outgoing{topic: TopicStatus, payload: []byte("a"), latest: true})
	q.add(intentMsg(1))
	q.add(outgoing{topic: TopicStatus, payload: []byte("b"), latest: true})
	q.add(outgoing{topic: TopicStatus, payload: []byte("c"), latest: true})

	got, _ := q.flush()
	if len(got) != 2 {
		t.Fatalf("expected intent + one status line, got %d", len(got))
	}
	if got[0].topic != TopicIntents {
		t.Errorf("first message: got %s, want %s", got[0].topic, TopicIntents)
	}
	if got[1].topic != TopicStatus || string(got[1].payload) != "c" {
		t.Errorf("status: got %s %q, want newest line", got[1].topic, got[1].payload)
	}
}

func TestOfflineQueuePreservesFields(t *testing.T) {
	q := newOfflineQueue(10, nil)
	q.add(outgoing{topic: TopicSystem, payload: []byte(`{"event":"STARTUP"}`), qos: 1, retained: true})

	got, _ := q.flush()
	if len(got) != 1 {
		t.Fatalf("expected 1 message, got %d", len(got))
	}
	if got[0].qos != 1 || !got[0].retained {
		t.Errorf("qos/retained lost: %+v", got[0])
	}
}

func TestOfflineQueueMinimumLimit(t *testing.T) {
	q := newOfflineQueue(0, nil)
	q.add(intentMsg(1))
	q.add(intentMsg(2))
	got, dropped := q.flush()
	if len(got) != 1 || got[0].payload[0] != 2 || dropped != 1 {
		t.Errorf("got %v dropped=%d, want newest only", got, dropped)
	}
}
