package events

// Task types published by the api and consumed by the worker.
const (
	TopicItemLiked = "item:liked"
)

// DefaultTopics returns every task type the worker must serve.
func DefaultTopics() []string {
	return []string{TopicItemLiked}
}
