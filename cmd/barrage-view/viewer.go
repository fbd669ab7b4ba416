package main

import (
	"fmt"
	"image/color"
	"log/slog"
	"path/filepath"

	"github.com/ebitenui/ebitenui"
	"github.com/google/uuid"
	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/inpututil"
	"github.com/hajimehoshi/ebiten/v2/text/v2"
	"github.com/hajimehoshi/ebiten/v2/vector"
	"github.com/jakecoffman/cp"
	"github.com/milk9111/barrage/choreography"
	"github.com/milk9111/barrage/config"
	"github.com/milk9111/barrage/encounter"
	"github.com/milk9111/barrage/logger"
	"github.com/milk9111/barrage/pool"
	"github.com/milk9111/barrage/prefabs"
	"golang.org/x/image/colornames"
	"golang.org/x/image/font/basicfont"
)

const (
	targetSpeed  = 220.0
	bossRadius   = 12.0
	entitySize   = 4.0
	flashSeconds = 0.6
)

// keyTarget is the player stand-in moved with the arrow keys.
type keyTarget struct {
	pos   cp.Vector
	alive bool
}

func (t *keyTarget) Position() cp.Vector { return t.pos }
func (t *keyTarget) Alive() bool         { return t.alive }

type viewer struct {
	cfg     config.Config
	log     *slog.Logger
	seed    uint64
	enc     *encounter.Encounter
	target  *keyTarget
	changes <-chan string

	entities map[uuid.UUID]*pool.Entity
	face     text.Face
	ui       *ebitenui.UI
	paused   bool

	width, height int
	lastPhase     string
	flash         float64
}

func newViewer(cfg config.Config, log *slog.Logger, changes <-chan string) (*viewer, error) {
	v := &viewer{
		cfg:      cfg,
		log:      log,
		seed:     cfg.SeedOrNow(),
		changes:  changes,
		entities: make(map[uuid.UUID]*pool.Entity),
		face:     text.NewGoXFace(basicfont.Face7x13),
	}
	if err := v.rebuild(); err != nil {
		return nil, err
	}
	v.ui = newPauseUI(v)
	return v, nil
}

// rebuild loads the encounter prefab again and starts a fresh fight.
func (v *viewer) rebuild() error {
	spec, err := prefabs.LoadEncounterSpec(v.cfg.Encounter)
	if err != nil {
		return err
	}
	if v.cfg.PoolSize > 0 {
		spec.Pool.Size = v.cfg.PoolSize
		if spec.Pool.MaxSize > 0 && spec.Pool.MaxSize < spec.Pool.Size {
			spec.Pool.MaxSize = spec.Pool.Size
		}
	}
	if v.target == nil {
		v.target = &keyTarget{
			pos:   cp.Vector{X: spec.Arena.Width / 2, Y: spec.Arena.Height * 0.2},
			alive: true,
		}
	}

	enc, err := encounter.New(spec, encounter.Collaborators{
		Target:  v.target,
		Hooks:   v,
		Tracker: v,
	}, encounter.WithLogger(v.log), encounter.WithSeed(v.seed))
	if err != nil {
		return err
	}
	if v.enc != nil {
		v.enc.Close()
	}
	v.enc = enc
	v.width, v.height = int(spec.Arena.Width), int(spec.Arena.Height)
	v.lastPhase = ""
	return nil
}

func (v *viewer) OnEntityActivated(e *pool.Entity)   { v.entities[e.ID] = e }
func (v *viewer) OnEntityDeactivated(e *pool.Entity) { delete(v.entities, e.ID) }

func (v *viewer) OnPhaseComplete(phase string) {
	v.lastPhase = phase
	v.flash = flashSeconds
}

func (v *viewer) Update() error {
	if inpututil.IsKeyJustPressed(ebiten.KeyEscape) {
		return ebiten.Termination
	}
	if inpututil.IsKeyJustPressed(ebiten.KeyP) {
		v.paused = !v.paused
	}
	if v.paused {
		v.ui.Update()
		return nil
	}

	select {
	case path, ok := <-v.changes:
		if !ok {
			v.changes = nil
			break
		}
		if err := v.rebuild(); err != nil {
			v.log.Error("reload failed, keeping previous encounter", slog.String("path", filepath.ToSlash(path)), logger.Error(err))
		} else {
			v.log.Info("encounter reloaded", slog.String("path", filepath.ToSlash(path)))
		}
	default:
	}

	dt := v.cfg.DT()
	v.handleInput(dt)
	v.enc.Tick(dt)
	v.flash = max(0, v.flash-dt)
	return nil
}

func (v *viewer) handleInput(dt float64) {
	var dir cp.Vector
	if ebiten.IsKeyPressed(ebiten.KeyArrowLeft) {
		dir.X--
	}
	if ebiten.IsKeyPressed(ebiten.KeyArrowRight) {
		dir.X++
	}
	if ebiten.IsKeyPressed(ebiten.KeyArrowUp) {
		dir.Y++
	}
	if ebiten.IsKeyPressed(ebiten.KeyArrowDown) {
		dir.Y--
	}
	if dir != (cp.Vector{}) {
		p := v.target.pos.Add(dir.Normalize().Mult(targetSpeed * dt))
		b := v.enc.Arena.Bounds()
		v.target.pos = cp.Vector{X: cp.Clamp(p.X, b.L, b.R), Y: cp.Clamp(p.Y, b.B, b.T)}
	}

	switch {
	case inpututil.IsKeyJustPressed(ebiten.KeyS):
		v.enc.RaiseEvent("stun")
	case inpututil.IsKeyJustPressed(ebiten.KeyR):
		v.enc.RaiseEvent("recover")
	case inpututil.IsKeyJustPressed(ebiten.KeyE):
		v.enc.Enrage(0.5)
	case inpututil.IsKeyJustPressed(ebiten.KeyK):
		v.target.alive = !v.target.alive
	}
}

func (v *viewer) Draw(screen *ebiten.Image) {
	screen.Fill(colornames.Black)

	for i := range v.enc.Arena.Walls() {
		a, b, r := v.enc.Arena.WallSegment(i)
		ax, ay := v.toScreen(a)
		bx, by := v.toScreen(b)
		vector.StrokeLine(screen, ax, ay, bx, by, float32(max(2*r, 1)), colornames.Slategray, true)
	}

	st := v.enc.Stats()
	ox, oy := v.toScreen(v.enc.Origin())
	vector.FillCircle(screen, ox, oy, float32(bossRadius*st.Growth), v.bossColor(st), true)

	for _, e := range v.entities {
		x, y := v.toScreen(e.Position())
		s := float32(entitySize * max(e.Scale, 1))
		vector.FillRect(screen, x-s/2, y-s/2, s, s, entityColor(e), false)
	}

	tx, ty := v.toScreen(v.target.pos)
	targetColor := color.Color(colornames.Lightskyblue)
	if !v.target.alive {
		targetColor = colornames.Dimgray
	}
	vector.StrokeRect(screen, tx-6, ty-6, 12, 12, 2, targetColor, false)

	v.drawHUD(screen, st)
	if v.paused {
		v.ui.Draw(screen)
	}
}

func (v *viewer) drawHUD(screen *ebiten.Image, st encounter.Stats) {
	phase := string(st.Phase)
	if phase == "" {
		phase = "-"
	}
	lines := []string{
		fmt.Sprintf("%s  director:%s  phase:%s  performed:%d", v.enc.Name, st.Director, phase, st.Performed),
		fmt.Sprintf("live:%d/%d  absorbed:%d  skipped:%d  hits:%d", st.InUse, st.PoolSize, st.Coordinator.Absorbed, st.Coordinator.Skipped, st.Pool.TargetHits),
	}
	if v.flash > 0 && v.lastPhase != "" {
		lines = append(lines, "phase complete: "+v.lastPhase)
	}
	for i, line := range lines {
		op := &text.DrawOptions{}
		op.GeoM.Translate(6, float64(6+i*15))
		op.ColorScale.ScaleWithColor(colornames.White)
		text.Draw(screen, line, v.face, op)
	}
}

func (v *viewer) bossColor(st encounter.Stats) color.Color {
	switch {
	case st.Director == choreography.DirectorStunned:
		return colornames.Mediumpurple
	case st.Enraged:
		return colornames.Orange
	default:
		return colornames.Crimson
	}
}

func entityColor(e *pool.Entity) color.Color {
	switch e.Lifecycle() {
	case pool.StatePreparing:
		return colornames.Lightgrey
	case pool.StateDispersing:
		return colornames.Dimgray
	}
	if e.CanBeAbsorbed {
		return colornames.Gold
	}
	return colornames.Orangered
}

// toScreen flips the y-up world into screen space.
func (v *viewer) toScreen(p cp.Vector) (float32, float32) {
	return float32(p.X), float32(float64(v.height) - p.Y)
}

func (v *viewer) Layout(_, _ int) (int, int) {
	return v.width, v.height
}

func (v *viewer) close() {
	if v.enc != nil {
		v.enc.Close()
	}
}
