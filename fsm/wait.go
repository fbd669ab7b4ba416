package fsm

// Wait is a resumable timer advanced by the caller each tick.
type Wait struct {
	Elapsed float64
	Target  float64
}

func NewWait(target float64) Wait {
	return Wait{Target: target}
}

func (w *Wait) Reset(target float64) {
	w.Elapsed = 0
	w.Target = target
}

// Advance adds dt and reports whether the wait is over.
func (w *Wait) Advance(dt float64) bool {
	w.Elapsed += dt
	return w.Done()
}

func (w Wait) Done() bool {
	return w.Elapsed >= w.Target
}

func (w Wait) Remaining() float64 {
	if r := w.Target - w.Elapsed; r > 0 {
		return r
	}
	return 0
}

// Progress is Elapsed/Target clamped to [0,1]. A zero target is always complete.
func (w Wait) Progress() float64 {
	if w.Target <= 0 {
		return 1
	}
	p := w.Elapsed / w.Target
	if p > 1 {
		return 1
	}
	if p < 0 {
		return 0
	}
	return p
}
