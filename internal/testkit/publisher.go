package testkit

import "sync"

// RecordingPublisher captures published messages instead of pushing them to
// NSQ, so tests can assert on the alert handoff without a running nsqd.
type RecordingPublisher struct {
	mu     sync.Mutex
	topics []string
	bodies [][]byte
}

func (p *RecordingPublisher) Publish(topic string, body []byte) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.topics = append(p.topics, topic)
	b := make([]byte, len(body))
	copy(b, body)
	p.bodies = append(p.bodies, b)
	return nil
}

func (p *RecordingPublisher) Messages() [][]byte {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([][]byte, len(p.bodies))
	copy(out, p.bodies)
	return out
}

func (p *RecordingPublisher) Topics() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, len(p.topics))
	copy(out, p.topics)
	return out
}
