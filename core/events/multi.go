package events

// MultiEmitter fans one event out to several subscribers in order.
type MultiEmitter []Emitter

func (m MultiEmitter) Emit(event Event) {
	for _, emitter := range m {
		if emitter != nil {
			emitter.Emit(event)
		}
	}
}
