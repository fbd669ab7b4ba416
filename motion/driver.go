package motion

// Driver keeps a stack of behaviors. Only the most recently pushed one writes
// velocity; when it finishes it is popped and the one below resumes next step.
type Driver struct {
	stack []Behavior
}

func (d *Driver) Push(b Body, bh Behavior) {
	if bh == nil {
		return
	}
	bh.Start(b)
	d.stack = append(d.stack, bh)
}

// Replace drops every pending behavior and starts bh.
func (d *Driver) Replace(b Body, bh Behavior) {
	d.Cancel()
	d.Push(b, bh)
}

func (d *Driver) Cancel() {
	clear(d.stack)
	d.stack = d.stack[:0]
}

func (d *Driver) Active() Behavior {
	if len(d.stack) == 0 {
		return nil
	}
	return d.stack[len(d.stack)-1]
}

func (d *Driver) Len() int { return len(d.stack) }

func (d *Driver) Step(b Body, dt float64) Signal {
	top := d.Active()
	if top == nil {
		return SignalNone
	}
	sig := top.Step(b, dt)
	if sig.Terminal() {
		d.stack[len(d.stack)-1] = nil
		d.stack = d.stack[:len(d.stack)-1]
	}
	return sig
}
