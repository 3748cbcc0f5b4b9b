package api

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/dgnsrekt/chartdraw/internal/controller"
	"github.com/dgnsrekt/chartdraw/internal/interaction"
)

type interactionStateOutput struct {
	Body interaction.State
}

func registerInteractionHandlers(api huma.API, svc Service) {
	huma.Register(api, huma.Operation{
		OperationID: "get-interaction-state",
		Method:      http.MethodGet,
		Path:        "/api/v1/chart/{chart_id}/tool",
		Summary:     "Get the active tool and gesture state",
		Tags:        []string{"Interaction"},
	}, func(ctx context.Context, input *chartIDInput) (*interactionStateOutput, error) {
		st, err := svc.InteractionState(input.ChartID)
		if err != nil {
			return nil, mapErr(err)
		}
		return &interactionStateOutput{Body: st}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "set-tool",
		Method:      http.MethodPut,
		Path:        "/api/v1/chart/{chart_id}/tool",
		Summary:     "Select the active drawing tool",
		Description: "Switching tools cancels any gesture in progress.",
		Tags:        []string{"Interaction"},
	}, func(ctx context.Context, input *struct {
		ChartID string `path:"chart_id"`
		Body    struct {
			Tool string `json:"tool" enum:"cursor,trendline,fibonacci,brush,text,eraser"`
		}
	}) (*interactionStateOutput, error) {
		st, err := svc.SetTool(input.ChartID, input.Body.Tool)
		if err != nil {
			return nil, mapErr(err)
		}
		return &interactionStateOutput{Body: st}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "send-input",
		Method:      http.MethodPost,
		Path:        "/api/v1/chart/{chart_id}/input",
		Summary:     "Feed one pointer or keyboard event to the tool controller",
		Description: "Coordinates are pixels in the plot area. Set frame=true to get the re-rendered frame back.",
		Tags:        []string{"Interaction"},
	}, func(ctx context.Context, input *struct {
		ChartID string `path:"chart_id"`
		Frame   bool   `query:"frame"`
		Body    controller.Input
	}) (*struct{ Body controller.InteractResult }, error) {
		res, err := svc.Interact(input.ChartID, input.Body, input.Frame)
		if err != nil {
			return nil, mapErr(err)
		}
		return &struct{ Body controller.InteractResult }{Body: res}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "send-inputs",
		Method:      http.MethodPost,
		Path:        "/api/v1/chart/{chart_id}/inputs",
		Summary:     "Feed a batch of events in order",
		Description: "Processing stops at the first rejected event. The frame reflects the last accepted one.",
		Tags:        []string{"Interaction"},
	}, func(ctx context.Context, input *struct {
		ChartID string `path:"chart_id"`
		Body    struct {
			Events []controller.Input `json:"events" minItems:"1"`
		}
	}) (*struct {
		Body struct {
			Processed int                       `json:"processed"`
			Result    controller.InteractResult `json:"result"`
		}
	}, error) {
		out := &struct {
			Body struct {
				Processed int                       `json:"processed"`
				Result    controller.InteractResult `json:"result"`
			}
		}{}
		last := len(input.Body.Events) - 1
		for i, in := range input.Body.Events {
			res, err := svc.Interact(input.ChartID, in, i == last)
			if err != nil {
				return nil, mapErr(err)
			}
			out.Body.Processed++
			out.Body.Result = res
		}
		return out, nil
	})
}
