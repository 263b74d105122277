package vm

// EventKind identifies an object lifecycle event.
type EventKind uint8

const (
	EventAllocated EventKind = iota
	EventFreed
	EventTypeCreated
)

func (k EventKind) String() string {
	switch k {
	case EventAllocated:
		return "allocated"
	case EventFreed:
		return "freed"
	case EventTypeCreated:
		return "type_created"
	}
	return "unknown"
}

// Event describes one object lifecycle transition. Type is the object's
// type at the time of the event. Observers run with the execution lock
// held and must not call back into the VM.
type Event struct {
	Ptr  Ptr
	Type Ptr
	Kind EventKind
}

// Observer receives object lifecycle events.
type Observer interface {
	OnObjectEvent(Event)
}

// Subscribe adds an observer for lifecycle events.
func (v *VM) Subscribe(o Observer) {
	v.obsMu.Lock()
	defer v.obsMu.Unlock()
	v.observers = append(v.observers, o)
}

// Unsubscribe removes an observer. Observers are compared with ==, so they
// must be comparable values such as pointers.
func (v *VM) Unsubscribe(o Observer) {
	v.obsMu.Lock()
	defer v.obsMu.Unlock()
	for i, obs := range v.observers {
		if obs == o {
			v.observers = append(v.observers[:i], v.observers[i+1:]...)
			return
		}
	}
}

func (v *VM) notify(e Event) {
	v.obsMu.RLock()
	defer v.obsMu.RUnlock()
	for _, o := range v.observers {
		o.OnObjectEvent(e)
	}
}
