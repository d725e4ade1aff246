package queue

// Publisher is the fire-and-forget handoff the ingest path uses to push
// alert triggers out of the request cycle.
type Publisher interface {
	Publish(topic string, body []byte) error
}
