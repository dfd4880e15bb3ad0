// Package metrics records chore and approval activity.
package metrics

// Recorder receives domain events from the HTTP handlers and the push
// notifier. Implementations must be safe for concurrent use.
type Recorder interface {
	// TasksCreated counts tasks written by one create call, including every
	// occurrence of a repeating task.
	TasksCreated(n int)
	// Toggle records a completion toggle. result is "done", "undone" or
	// "rejected".
	Toggle(result string)
	RequestCreated()
	// Decision records a vote. outcome is the request status after the vote,
	// or "error" when the vote was refused.
	Decision(decision, outcome string)
	// PushSent records a delivery attempt. result is "ok", "expired" or
	// "error".
	PushSent(result string)
}

// Nop discards every event.
type Nop struct{}

var _ Recorder = Nop{}

func (Nop) TasksCreated(int)        {}
func (Nop) Toggle(string)           {}
func (Nop) RequestCreated()         {}
func (Nop) Decision(string, string) {}
func (Nop) PushSent(string)         {}
