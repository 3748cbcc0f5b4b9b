package api

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/dgnsrekt/chartdraw/internal/controller"
	"github.com/dgnsrekt/chartdraw/internal/defaults"
	"github.com/dgnsrekt/chartdraw/internal/drawing"
)

// createDrawingBody is placement only. Style comes from the drawing defaults.
type createDrawingBody struct {
	ID      string          `json:"id,omitempty" doc:"Generated when omitted"`
	Type    drawing.Type    `json:"type" enum:"trendline,fibonacci,brush,text"`
	Points  []drawing.Point `json:"points,omitempty" doc:"Trendline and fibonacci use the first two; brush uses all"`
	Point   *drawing.Point  `json:"point,omitempty" doc:"Text anchor"`
	Text    string          `json:"text,omitempty"`
	Subtype drawing.Subtype `json:"subtype,omitempty" enum:"lines,circles"`
}

func (b createDrawingBody) toDrawing() drawing.Drawing {
	d := drawing.Drawing{ID: b.ID, Type: b.Type, Visible: true}
	switch b.Type {
	case drawing.TypeTrendline:
		d.Trendline = &drawing.Trendline{Points: firstTwo(b.Points)}
	case drawing.TypeFibonacci:
		d.Fibonacci = &drawing.Fibonacci{Points: firstTwo(b.Points), Subtype: b.Subtype, Levels: []drawing.Level{}}
	case drawing.TypeBrush:
		d.Brush = &drawing.Brush{Points: append([]drawing.Point(nil), b.Points...)}
	case drawing.TypeText:
		d.Text = &drawing.Text{Point: b.Point, Text: b.Text}
	}
	return d
}

func firstTwo(points []drawing.Point) []drawing.Point {
	if len(points) > 2 {
		points = points[:2]
	}
	return append([]drawing.Point(nil), points...)
}

type defaultsOutput struct {
	Body defaults.Settings
}

func registerDrawingHandlers(api huma.API, svc Service) {
	huma.Register(api, huma.Operation{
		OperationID: "list-drawings",
		Method:      http.MethodGet,
		Path:        "/api/v1/chart/{chart_id}/drawings",
		Summary:     "List drawings in z-order",
		Tags:        []string{"Drawings"},
	}, func(ctx context.Context, input *struct {
		ChartID string `path:"chart_id"`
		Type    string `query:"type" doc:"Only drawings of this type" enum:"trendline,fibonacci,brush,text"`
	}) (*drawingListOutput, error) {
		drawings, err := svc.ListDrawings(input.ChartID, input.Type)
		if err != nil {
			return nil, mapErr(err)
		}
		out := &drawingListOutput{}
		out.Body.ChartID = input.ChartID
		out.Body.Drawings = drawings
		if out.Body.Drawings == nil {
			out.Body.Drawings = []drawing.Drawing{}
		}
		return out, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "get-drawing",
		Method:      http.MethodGet,
		Path:        "/api/v1/chart/{chart_id}/drawings/{drawing_id}",
		Summary:     "Get a drawing",
		Tags:        []string{"Drawings"},
	}, func(ctx context.Context, input *drawingIDInput) (*drawingOutput, error) {
		d, err := svc.GetDrawing(input.ChartID, input.DrawingID)
		if err != nil {
			return nil, mapErr(err)
		}
		return &drawingOutput{Body: d}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID:   "create-drawing",
		Method:        http.MethodPost,
		Path:          "/api/v1/chart/{chart_id}/drawings",
		Summary:       "Create a drawing",
		Description:   "The current defaults for the type are merged in before the drawing is stored.",
		Tags:          []string{"Drawings"},
		DefaultStatus: http.StatusCreated,
	}, func(ctx context.Context, input *struct {
		ChartID string `path:"chart_id"`
		Body    createDrawingBody
	}) (*drawingOutput, error) {
		d, err := svc.CreateDrawing(input.ChartID, input.Body.toDrawing())
		if err != nil {
			return nil, mapErr(err)
		}
		return &drawingOutput{Body: d}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "update-drawing",
		Method:      http.MethodPatch,
		Path:        "/api/v1/chart/{chart_id}/drawings/{drawing_id}",
		Summary:     "Patch a drawing",
		Description: "Fields that do not apply to the drawing's type are ignored.",
		Tags:        []string{"Drawings"},
	}, func(ctx context.Context, input *struct {
		ChartID   string `path:"chart_id"`
		DrawingID string `path:"drawing_id"`
		Body      drawing.Patch
	}) (*drawingOutput, error) {
		d, err := svc.UpdateDrawing(input.ChartID, input.DrawingID, input.Body)
		if err != nil {
			return nil, mapErr(err)
		}
		return &drawingOutput{Body: d}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "delete-drawing",
		Method:      http.MethodDelete,
		Path:        "/api/v1/chart/{chart_id}/drawings/{drawing_id}",
		Summary:     "Delete a drawing",
		Tags:        []string{"Drawings"},
	}, func(ctx context.Context, input *drawingIDInput) (*statusOutput, error) {
		if err := svc.DeleteDrawing(input.ChartID, input.DrawingID); err != nil {
			return nil, mapErr(err)
		}
		return okStatus(), nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "clear-drawings",
		Method:      http.MethodDelete,
		Path:        "/api/v1/chart/{chart_id}/drawings",
		Summary:     "Delete every drawing on the chart",
		Tags:        []string{"Drawings"},
	}, func(ctx context.Context, input *chartIDInput) (*struct {
		Body struct {
			ChartID string `json:"chart_id"`
			Removed int    `json:"removed"`
		}
	}, error) {
		n, err := svc.ClearDrawings(input.ChartID)
		if err != nil {
			return nil, mapErr(err)
		}
		out := &struct {
			Body struct {
				ChartID string `json:"chart_id"`
				Removed int    `json:"removed"`
			}
		}{}
		out.Body.ChartID = input.ChartID
		out.Body.Removed = n
		return out, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "set-drawing-visibility",
		Method:      http.MethodPut,
		Path:        "/api/v1/chart/{chart_id}/drawings/{drawing_id}/visibility",
		Summary:     "Show or hide a drawing",
		Tags:        []string{"Drawings"},
	}, func(ctx context.Context, input *struct {
		ChartID   string `path:"chart_id"`
		DrawingID string `path:"drawing_id"`
		Body      struct {
			Visible bool `json:"visible"`
		}
	}) (*drawingOutput, error) {
		d, err := svc.SetDrawingVisible(input.ChartID, input.DrawingID, input.Body.Visible)
		if err != nil {
			return nil, mapErr(err)
		}
		return &drawingOutput{Body: d}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "toggle-type-visibility",
		Method:      http.MethodPost,
		Path:        "/api/v1/chart/{chart_id}/drawings/types/{type}/visibility",
		Summary:     "Toggle visibility for every drawing of a type",
		Description: "If any drawing of the type is visible all are hidden, otherwise all are shown.",
		Tags:        []string{"Drawings"},
	}, func(ctx context.Context, input *typeInput) (*struct{ Body controller.TypeToggle }, error) {
		res, err := svc.ToggleType(input.ChartID, input.Type, false)
		if err != nil {
			return nil, mapErr(err)
		}
		return &struct{ Body controller.TypeToggle }{Body: res}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "toggle-type-lock",
		Method:      http.MethodPost,
		Path:        "/api/v1/chart/{chart_id}/drawings/types/{type}/lock",
		Summary:     "Toggle lock for every drawing of a type",
		Description: "If any drawing of the type is unlocked all are locked, otherwise all are unlocked.",
		Tags:        []string{"Drawings"},
	}, func(ctx context.Context, input *typeInput) (*struct{ Body controller.TypeToggle }, error) {
		res, err := svc.ToggleType(input.ChartID, input.Type, true)
		if err != nil {
			return nil, mapErr(err)
		}
		return &struct{ Body controller.TypeToggle }{Body: res}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "reorder-drawing",
		Method:      http.MethodPost,
		Path:        "/api/v1/chart/{chart_id}/drawings/{drawing_id}/z-order",
		Summary:     "Move a drawing in z-order",
		Tags:        []string{"Drawings"},
	}, func(ctx context.Context, input *struct {
		ChartID   string `path:"chart_id"`
		DrawingID string `path:"drawing_id"`
		Body      struct {
			Action string `json:"action" enum:"bring_forward,bring_to_front,send_backward,send_to_back"`
		}
	}) (*drawingListOutput, error) {
		drawings, err := svc.Reorder(input.ChartID, input.DrawingID, input.Body.Action)
		if err != nil {
			return nil, mapErr(err)
		}
		out := &drawingListOutput{}
		out.Body.ChartID = input.ChartID
		out.Body.Drawings = drawings
		return out, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "get-drawing-defaults",
		Method:      http.MethodGet,
		Path:        "/api/v1/defaults",
		Summary:     "Get per-type drawing defaults",
		Tags:        []string{"Defaults"},
	}, func(ctx context.Context, input *struct{}) (*defaultsOutput, error) {
		return &defaultsOutput{Body: svc.Defaults()}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "update-drawing-defaults",
		Method:      http.MethodPut,
		Path:        "/api/v1/defaults",
		Summary:     "Replace drawing defaults",
		Description: "Existing drawings on every chart are restyled with the new settings.",
		Tags:        []string{"Defaults"},
	}, func(ctx context.Context, input *struct {
		Body defaults.Settings
	}) (*defaultsOutput, error) {
		d, err := svc.UpdateDefaults(input.Body)
		if err != nil {
			return nil, mapErr(err)
		}
		return &defaultsOutput{Body: d}, nil
	})
}

type typeInput struct {
	ChartID string `path:"chart_id"`
	Type    string `path:"type" enum:"trendline,fibonacci,brush,text"`
}
