package swap

import "fmt"

// Level grades an emitted event for the presentation layer.
type Level int

const (
	LevelInfo Level = iota
	LevelSuccess
	LevelWarning
	LevelError
)

// Event is one leveled message emitted at a stage transition, carrying enough
// detail for an operator to reconstruct the flow.
type Event struct {
	Level   Level
	Message string
}

// Emitter receives events from the core. The caller layer decides how to
// render them.
type Emitter interface {
	Emit(e Event)
}

// EmitterFunc adapts a function to the Emitter interface.
type EmitterFunc func(e Event)

// Emit calls f(e).
func (f EmitterFunc) Emit(e Event) {
	f(e)
}

// NopEmitter discards all events.
var NopEmitter = EmitterFunc(func(Event) {})

func emitf(em Emitter, level Level, format string, args ...interface{}) {
	em.Emit(Event{Level: level, Message: fmt.Sprintf(format, args...)})
}
