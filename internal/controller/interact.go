package controller

import (
	"fmt"
	"log/slog"

	"github.com/dgnsrekt/chartdraw/internal/interaction"
	"github.com/dgnsrekt/chartdraw/internal/render"
	"github.com/dgnsrekt/chartdraw/internal/trace"
)

// Interaction event types.
const (
	InputPointerDown  = "pointer_down"
	InputPointerMove  = "pointer_move"
	InputPointerUp    = "pointer_up"
	InputPointerLeave = "pointer_leave"
	InputBeginDrag    = "begin_drag"
	InputTextInput    = "text_input"
	InputTextKey      = "text_key"
	InputTextBlur     = "text_blur"
	InputSetTool      = "set_tool"
	InputReset        = "reset"
)

// Input is one user event addressed to a chart's tool controller. X and Y are
// pixels in the chart grid. Value carries the tool name, typed text or key.
type Input struct {
	Type   string              `json:"type" enum:"pointer_down,pointer_move,pointer_up,pointer_leave,begin_drag,text_input,text_key,text_blur,set_tool,reset"`
	X      float64             `json:"x,omitempty"`
	Y      float64             `json:"y,omitempty"`
	Target *interaction.Target `json:"target,omitempty"`
	Value  string              `json:"value,omitempty"`
}

// InteractResult is the controller state after an event, with the frame
// re-rendered when requested.
type InteractResult struct {
	State      interaction.State `json:"state"`
	SelectedID string            `json:"selected_id,omitempty"`
	Frame      *render.Frame     `json:"frame,omitempty"`
}

// Interact feeds one event through the chart's tool controller. Events read
// the bounds current when they are processed.
func (s *Service) Interact(id string, in Input, withFrame bool) (InteractResult, error) {
	var res InteractResult
	err := s.withChart(id, true, func(c *Chart) error {
		if err := s.dispatch(c, in); err != nil {
			return err
		}
		res.State = c.ctrl.State()
		res.SelectedID = c.selected
		if withFrame {
			f := c.frame(true)
			res.Frame = &f
		}
		return nil
	})
	if err == nil {
		s.traceInput(id, in)
	}
	return res, err
}

func (s *Service) dispatch(c *Chart, in Input) error {
	env := c.env()
	switch in.Type {
	case InputPointerDown:
		c.ctrl.PointerDown(env, in.X, in.Y)
	case InputPointerMove:
		c.ctrl.PointerMove(env, in.X, in.Y)
	case InputPointerUp:
		c.ctrl.PointerUp(env)
	case InputPointerLeave:
		c.ctrl.PointerLeave(env)
	case InputBeginDrag:
		if in.Target == nil || in.Target.DrawingID == "" {
			return newError(CodeValidation, "begin_drag needs a target drawing_id", nil)
		}
		if _, ok := c.store.Get(in.Target.DrawingID); !ok {
			return drawingNotFound(in.Target.DrawingID)
		}
		c.ctrl.BeginDrag(env, *in.Target)
	case InputTextInput:
		c.ctrl.TextInput(in.Value)
	case InputTextKey:
		c.ctrl.TextKey(in.Value)
	case InputTextBlur:
		c.ctrl.TextBlur()
	case InputSetTool:
		t, err := interaction.ParseTool(in.Value)
		if err != nil {
			return newError(CodeValidation, err.Error(), nil)
		}
		if t != c.ctrl.Tool() {
			c.ctrl.SetTool(t)
			c.publish(EventToolChanged, map[string]interaction.Tool{"tool": t})
		}
	case InputReset:
		c.ctrl.Reset()
		c.publish(EventToolChanged, map[string]interaction.Tool{"tool": c.ctrl.Tool()})
	default:
		return newError(CodeValidation, fmt.Sprintf("unknown event type %q", in.Type), nil)
	}
	return nil
}

// SetTool is shorthand for a set_tool event.
func (s *Service) SetTool(id, tool string) (interaction.State, error) {
	res, err := s.Interact(id, Input{Type: InputSetTool, Value: tool}, false)
	return res.State, err
}

func (s *Service) InteractionState(id string) (interaction.State, error) {
	var st interaction.State
	err := s.withChart(id, false, func(c *Chart) error {
		st = c.ctrl.State()
		return nil
	})
	return st, err
}

func (s *Service) traceInput(chartID string, in Input) {
	if s.tracer == nil {
		return
	}
	if err := s.tracer.Write(trace.Record{ChartID: chartID, Kind: in.Type, Data: in}); err != nil {
		slog.Debug("trace write failed", "chart_id", chartID, "kind", in.Type, "error", err)
	}
}
