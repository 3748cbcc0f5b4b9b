package api

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/dgnsrekt/chartdraw/internal/render"
)

func registerRenderHandlers(api huma.API, svc Service) {
	huma.Register(api, huma.Operation{
		OperationID: "get-frame",
		Method:      http.MethodGet,
		Path:        "/api/v1/chart/{chart_id}/frame",
		Summary:     "Render the chart's drawings as pixel-space primitives",
		Description: "Includes the in-progress preview of the active gesture.",
		Tags:        []string{"Render"},
	}, func(ctx context.Context, input *chartIDInput) (*struct{ Body render.Frame }, error) {
		f, err := svc.Render(input.ChartID)
		if err != nil {
			return nil, mapErr(err)
		}
		return &struct{ Body render.Frame }{Body: f}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "get-frame-svg",
		Method:      http.MethodGet,
		Path:        "/api/v1/chart/{chart_id}/frame.svg",
		Summary:     "Render the chart's drawings as an SVG overlay",
		Tags:        []string{"Render"},
		Responses: map[string]*huma.Response{
			"200": {
				Description: "SVG document",
				Content: map[string]*huma.MediaType{
					"image/svg+xml": {Schema: &huma.Schema{Type: "string", Format: "binary"}},
				},
			},
		},
	}, func(ctx context.Context, input *chartIDInput) (*rawImageOutput, error) {
		svg, err := svc.SVG(input.ChartID)
		if err != nil {
			return nil, mapErr(err)
		}
		return &rawImageOutput{ContentType: "image/svg+xml", Body: []byte(svg)}, nil
	})
}

type rawImageOutput struct {
	ContentType string `header:"Content-Type"`
	Body        []byte
}
