package api

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/dgnsrekt/chartdraw/internal/assistant"
)

func registerAssistantHandlers(api huma.API, svc Service) {
	huma.Register(api, huma.Operation{
		OperationID: "list-assistant-tools",
		Method:      http.MethodGet,
		Path:        "/api/v1/assistant/tools",
		Summary:     "Function-call definitions for a chart assistant model",
		Tags:        []string{"Assistant"},
	}, func(ctx context.Context, input *struct{}) (*struct {
		Body struct {
			Tools []assistant.Definition `json:"tools"`
		}
	}, error) {
		out := &struct {
			Body struct {
				Tools []assistant.Definition `json:"tools"`
			}
		}{}
		out.Body.Tools = svc.ToolDefinitions()
		return out, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "call-assistant-tool",
		Method:      http.MethodPost,
		Path:        "/api/v1/chart/{chart_id}/assistant/call",
		Summary:     "Execute one assistant tool call against the chart",
		Description: "Failures the model should see, like missing candles, come back with ok=false rather than an error status.",
		Tags:        []string{"Assistant"},
	}, func(ctx context.Context, input *struct {
		ChartID string `path:"chart_id"`
		Body    struct {
			Name      string         `json:"name" enum:"add_technical_drawing,manage_chart_elements,list_drawings"`
			Arguments map[string]any `json:"arguments,omitempty"`
		}
	}) (*struct{ Body assistant.Result }, error) {
		args, err := json.Marshal(input.Body.Arguments)
		if err != nil {
			return nil, huma.Error400BadRequest("arguments must be a JSON object")
		}
		res, err := svc.CallTool(input.ChartID, input.Body.Name, args)
		if err != nil {
			return nil, mapErr(err)
		}
		return &struct{ Body assistant.Result }{Body: res}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "get-pivot-context",
		Method:      http.MethodGet,
		Path:        "/api/v1/chart/{chart_id}/assistant/pivots",
		Summary:     "Recent swing highs and lows for prompt context",
		Tags:        []string{"Assistant"},
	}, func(ctx context.Context, input *chartIDInput) (*struct {
		Body struct {
			Highs  []assistant.Pivot `json:"highs"`
			Lows   []assistant.Pivot `json:"lows"`
			Prompt string            `json:"prompt"`
		}
	}, error) {
		p, err := svc.PivotContext(input.ChartID)
		if err != nil {
			return nil, mapErr(err)
		}
		out := &struct {
			Body struct {
				Highs  []assistant.Pivot `json:"highs"`
				Lows   []assistant.Pivot `json:"lows"`
				Prompt string            `json:"prompt"`
			}
		}{}
		out.Body.Highs, out.Body.Lows = p.Highs, p.Lows
		out.Body.Prompt = p.Prompt()
		return out, nil
	})
}
