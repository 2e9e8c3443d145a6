// Package progress defines the event contract between long-running core
// operations and whatever front end observes them.
package progress

// Stage identifies which core operation an event belongs to.
type Stage string

const (
	StageSimulate Stage = "simulate"
	StageDataset  Stage = "dataset"
	StageTraining Stage = "training"
	StageBatch    Stage = "batch_predict"
)

// Event is a discrete progress report. Current counts completed units out
// of Total; Total may be zero when the unit count is unknown up front.
type Event struct {
	Stage   Stage
	Current int
	Total   int
	Message string
}

// Sink receives progress events. A nil Sink is valid and discards events.
// Implementations must return promptly; core operations never wait on a
// sink.
type Sink func(Event)

// Emit delivers an event, tolerating a nil sink.
func (s Sink) Emit(e Event) {
	if s != nil {
		s(e)
	}
}

// ChannelSink forwards events to ch, dropping events when the receiver
// lags rather than blocking the sender.
func ChannelSink(ch chan<- Event) Sink {
	return func(e Event) {
		select {
		case ch <- e:
		default:
		}
	}
}
