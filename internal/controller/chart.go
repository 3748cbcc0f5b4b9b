package controller

import (
	"sync"

	"github.com/dgnsrekt/chartdraw/internal/drawing"
	"github.com/dgnsrekt/chartdraw/internal/interaction"
	"github.com/dgnsrekt/chartdraw/internal/render"
	"github.com/dgnsrekt/chartdraw/internal/viewport"
)

// Relay event kinds published on a chart's feed.
const (
	EventDrawingCreated   = "drawing.created"
	EventDrawingUpdated   = "drawing.updated"
	EventDrawingDeleted   = "drawing.deleted"
	EventDrawingsCleared  = "drawings.cleared"
	EventDrawingsReorder  = "drawings.reordered"
	EventBoundsChanged    = "bounds.changed"
	EventCandlesChanged   = "candles.changed"
	EventFlagsChanged     = "chart.flags"
	EventSelection        = "selection.changed"
	EventToolChanged      = "tool.changed"
	EventDefaultsChanged  = "defaults.changed"
	EventSnapshotCreated  = "snapshot.created"
	EventChartDeleted     = "chart.deleted"
	EventDrawingsRestyled = "drawings.restyled"
)

// Chart is one annotated chart. Its mutex is the chart's event queue: every
// read and mutation runs under it, in arrival order.
type Chart struct {
	mu  sync.Mutex
	id  string
	svc *Service

	store    *drawing.Store
	mapper   viewport.Mapper
	ctrl     *interaction.Controller
	candles  []viewport.Candle
	symbol   string
	interval string
	locked   bool
	hidden   bool
	selected string
	theme    render.Theme
}

// ChartState is the externally visible state of a chart.
type ChartState struct {
	ID           string            `json:"id"`
	Symbol       string            `json:"symbol,omitempty"`
	Interval     string            `json:"interval,omitempty"`
	Bounds       *viewport.Bounds  `json:"bounds,omitempty"`
	CandleCount  int               `json:"candle_count"`
	DrawingCount int               `json:"drawing_count"`
	Locked       bool              `json:"locked"`
	Hidden       bool              `json:"hidden"`
	SelectedID   string            `json:"selected_id,omitempty"`
	Theme        render.Theme      `json:"theme"`
	Interaction  interaction.State `json:"interaction"`
}

func newChart(id string, svc *Service) *Chart {
	c := &Chart{id: id, svc: svc, store: drawing.NewStore(), theme: render.ThemeDark}
	c.ctrl = interaction.New(session{c}, interaction.WithIDFunc(svc.idFunc), interaction.WithClock(svc.now))
	return c
}

// env is the per-event view handed to the interaction controller. Caller holds mu.
func (c *Chart) env() interaction.Env {
	b, ok := c.mapper.Current()
	return interaction.Env{Bounds: b, Ready: ok, Candles: c.candles, GlobalLock: c.locked}
}

// state snapshots the chart. Caller holds mu.
func (c *Chart) state() ChartState {
	st := ChartState{
		ID:           c.id,
		Symbol:       c.symbol,
		Interval:     c.interval,
		CandleCount:  len(c.candles),
		DrawingCount: c.store.Len(),
		Locked:       c.locked,
		Hidden:       c.hidden,
		SelectedID:   c.selected,
		Theme:        c.theme,
		Interaction:  c.ctrl.State(),
	}
	if b, ok := c.mapper.Current(); ok {
		st.Bounds = &b
	}
	return st
}

// frame renders the current drawings. Caller holds mu.
func (c *Chart) frame(withPreview bool) render.Frame {
	opts := render.Options{
		GlobalHidden: c.hidden,
		GlobalLocked: c.locked,
		SelectedID:   c.selected,
		Theme:        c.theme,
	}
	if withPreview {
		opts.Preview = c.ctrl.Preview(c.env())
	}
	return render.Render(c.store.List(), &c.mapper, opts)
}

func (c *Chart) publish(kind string, payload any) {
	c.svc.publish(c.id, kind, payload)
}

func (c *Chart) setSelected(id string) {
	if c.locked && id != "" {
		return
	}
	if c.selected == id {
		return
	}
	c.selected = id
	c.publish(EventSelection, map[string]string{"selected_id": id})
}

// add merges defaults into a placement-only drawing and stores it.
func (c *Chart) add(d drawing.Drawing) drawing.Drawing {
	stored := c.svc.Defaults().Apply(d)
	c.store.Add(stored)
	c.publish(EventDrawingCreated, stored)
	return stored
}

func (c *Chart) update(id string, p drawing.Patch) bool {
	if !c.store.Update(id, p) {
		return false
	}
	if d, ok := c.store.Get(id); ok {
		c.publish(EventDrawingUpdated, d)
	}
	return true
}

func (c *Chart) remove(id string) bool {
	if !c.store.Remove(id) {
		return false
	}
	if c.selected == id {
		c.setSelected("")
	}
	c.publish(EventDrawingDeleted, map[string]string{"id": id})
	return true
}

func (c *Chart) clear() int {
	n := c.store.Clear()
	c.setSelected("")
	c.publish(EventDrawingsCleared, map[string]int{"removed": n})
	return n
}

func (c *Chart) toggleType(t drawing.Type, lock bool) (bool, bool) {
	var on, ok bool
	if lock {
		on, ok = c.store.SetLockByType(t)
	} else {
		on, ok = c.store.SetVisibilityByType(t)
	}
	if ok {
		field := "visible"
		if lock {
			field = "locked"
		}
		c.publish(EventDrawingsRestyled, map[string]any{"type": t, field: on})
	}
	return on, ok
}

// session adapts a Chart to the interaction sink and the assistant chart
// surface. Its methods run while the chart mutex is held.
type session struct{ c *Chart }

func (s session) Lookup(id string) (drawing.Drawing, bool) { return s.c.store.Get(id) }
func (s session) Create(d drawing.Drawing)                 { s.c.add(d) }
func (s session) Update(id string, p drawing.Patch)        { s.c.update(id, p) }
func (s session) Delete(id string)                         { s.c.remove(id) }
func (s session) Select(id string)                         { s.c.setSelected(id) }

func (s session) Candles() []viewport.Candle                    { return s.c.candles }
func (s session) Drawings() []drawing.Drawing                   { return s.c.store.List() }
func (s session) AddDrawing(d drawing.Drawing) drawing.Drawing  { return s.c.add(d) }
func (s session) UpdateDrawing(id string, p drawing.Patch) bool { return s.c.update(id, p) }
func (s session) DeleteDrawing(id string) bool                  { return s.c.remove(id) }
func (s session) ClearDrawings() int                            { return s.c.clear() }
func (s session) ToggleVisibilityByType(t drawing.Type) (bool, bool) {
	return s.c.toggleType(t, false)
}
func (s session) ToggleLockByType(t drawing.Type) (bool, bool) { return s.c.toggleType(t, true) }
