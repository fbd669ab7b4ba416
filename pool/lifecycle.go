package pool

import (
	"github.com/jakecoffman/cp"
	"github.com/milk9111/barrage/fsm"
	"github.com/milk9111/barrage/logger"
	"github.com/milk9111/barrage/motion"
	"github.com/milk9111/barrage/physics"
)

const (
	StatePooled     fsm.StateID = "pooled"
	StatePreparing  fsm.StateID = "preparing"
	StateActive     fsm.StateID = "active"
	StateDispersing fsm.StateID = "dispersing"
)

const (
	evAcquire   fsm.EventID = "acquire"
	evReady     fsm.EventID = "ready"
	evHitWall   fsm.EventID = "hit_wall"
	evHitTarget fsm.EventID = "hit_target"
	evExpire    fsm.EventID = "expire"
	evFinished  fsm.EventID = "finished"
	evRecycle   fsm.EventID = "recycle"
)

// lifecycleGraph is shared by every entity of a pool; per-entity state lives on
// the Entity passed as the machine host.
func lifecycleGraph() (*fsm.Graph, error) {
	return fsm.NewBuilder().
		State(StatePooled).
		On(evAcquire, StatePreparing).
		State(StatePreparing).
		OnEnter("protect", protect).
		OnTick("move", move).
		OnTick("lifetime", lifetime).
		OnTick("grace", grace).
		On(evReady, StateActive).
		On(evFinished, StateDispersing).
		On(evExpire, StateDispersing).
		State(StateActive).
		OnEnter("arm", arm).
		OnTick("move", move).
		OnTick("lifetime", lifetime).
		OnTick("collide", collide).
		On(evHitWall, StateDispersing).
		On(evHitTarget, StateDispersing).
		On(evExpire, StateDispersing).
		On(evFinished, StateDispersing).
		State(StateDispersing).
		OnEnter("halt", halt).
		OnTick("fade", fade).
		Global(evRecycle, StatePooled).
		Build()
}

func host(ctx *fsm.Context) *Entity {
	return ctx.Host.(*Entity)
}

func protect(ctx *fsm.Context) {
	e := host(ctx)
	e.collidable = false
	e.protectedUntil = e.pool.now + e.pool.cfg.GraceDelay
}

func grace(ctx *fsm.Context) {
	if ctx.Elapsed >= host(ctx).pool.cfg.GraceDelay {
		ctx.Emit(evReady)
	}
}

func arm(ctx *fsm.Context) {
	host(ctx).collidable = true
}

func move(ctx *fsm.Context) {
	e := host(ctx)
	if !e.inUse {
		return
	}
	h := e.Handle()
	e.prevPos = e.pos
	sig := e.driver.Step(e, ctx.DT)
	e.pos = e.pos.Add(e.vel.Mult(ctx.DT))
	e.age += ctx.DT

	if sig == motion.SignalNone {
		return
	}
	if e.onSignal != nil {
		e.onSignal(h, sig)
	}
	if sig.Terminal() && e.Handle() == h && e.driver.Len() == 0 {
		ctx.Emit(evFinished)
	}
}

func lifetime(ctx *fsm.Context) {
	e := host(ctx)
	if !e.inUse {
		return
	}
	if e.Timeout > 0 && e.age >= e.Timeout {
		ctx.Emit(evExpire)
		return
	}
	// Wall-ignoring entities may legitimately start outside the arena.
	if e.IgnoreWallCollision {
		return
	}
	if b, ok := e.pool.collider.(interface{ Contains(cp.Vector) bool }); ok && !b.Contains(e.pos) {
		ctx.Emit(evExpire)
	}
}

func collide(ctx *fsm.Context) {
	e := host(ctx)
	if !e.inUse || !e.collidable || e.pool.collider == nil {
		return
	}
	c := e.pool.collider.Probe(e.prevPos, e.pos, e.pool.cfg.Radius)
	if ev, ok := e.pool.notify(e, c); ok {
		ctx.Emit(ev)
	}
}

func halt(ctx *fsm.Context) {
	e := host(ctx)
	e.driver.Cancel()
	e.vel = cp.Vector{}
	e.collidable = false
}

func fade(ctx *fsm.Context) {
	e := host(ctx)
	if ctx.Elapsed >= e.pool.cfg.DisperseTime {
		e.pool.Release(e.Handle())
	}
}

// notify filters a contact through the protection window and ignore flags and
// returns the lifecycle event it should raise.
func (p *Pool) notify(e *Entity, c physics.Contact) (fsm.EventID, bool) {
	switch c.Kind {
	case physics.ContactWall:
		if e.Protected() || e.IgnoreWallCollision {
			return "", false
		}
		p.stats.WallHits++
		p.log.Debug("wall hit", logger.Handle(e.Handle()))
		return evHitWall, true
	case physics.ContactTarget:
		if e.Protected() {
			return "", false
		}
		p.stats.TargetHits++
		p.log.Debug("target hit", logger.Handle(e.Handle()))
		return evHitTarget, true
	}
	return "", false
}
