// Package notify holds the outbound channel contract shared by the email and
// SMS senders.
package notify

import (
	"context"
	"sync"
)

type Deliverer interface {
	Deliver(ctx context.Context, recipients []string, subject, body string) error
}

type Message struct {
	Recipients []string
	Subject    string
	Body       string
}

// Recorder keeps every delivered message in memory.
type Recorder struct {
	mu       sync.Mutex
	messages []Message
}

func (r *Recorder) Deliver(_ context.Context, recipients []string, subject, body string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.messages = append(r.messages, Message{
		Recipients: append([]string(nil), recipients...),
		Subject:    subject,
		Body:       body,
	})
	return nil
}

func (r *Recorder) Messages() []Message {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Message(nil), r.messages...)
}

func (r *Recorder) Last() (Message, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.messages) == 0 {
		return Message{}, false
	}
	return r.messages[len(r.messages)-1], true
}
