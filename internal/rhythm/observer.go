package rhythm

// observers is a registration-ordered callback list. Callers guard it with the scheduler lock.
type observers[T any] struct {
	nextID int
	list   []observer[T]
}

type observer[T any] struct {
	id int
	fn func(T)
}

func (o *observers[T]) add(fn func(T)) int {
	o.nextID++
	o.list = append(o.list, observer[T]{id: o.nextID, fn: fn})
	return o.nextID
}

func (o *observers[T]) remove(id int) {
	for i, ob := range o.list {
		if ob.id == id {
			o.list = append(o.list[:i:i], o.list[i+1:]...)
			return
		}
	}
}

// snapshot copies the callbacks so the list may change while they run
func (o *observers[T]) snapshot() []func(T) {
	out := make([]func(T), len(o.list))
	for i, ob := range o.list {
		out[i] = ob.fn
	}
	return out
}

func (o *observers[T]) clear() {
	o.list = nil
}
