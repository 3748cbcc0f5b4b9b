package api

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/dgnsrekt/chartdraw/internal/controller"
	"github.com/dgnsrekt/chartdraw/internal/viewport"
)

func registerChartHandlers(api huma.API, svc Service) {
	huma.Register(api, huma.Operation{
		OperationID: "list-charts",
		Method:      http.MethodGet,
		Path:        "/api/v1/charts",
		Summary:     "List chart sessions",
		Tags:        []string{"Charts"},
	}, func(ctx context.Context, input *struct{}) (*struct {
		Body struct {
			Charts []controller.ChartState `json:"charts"`
		}
	}, error) {
		out := &struct {
			Body struct {
				Charts []controller.ChartState `json:"charts"`
			}
		}{}
		out.Body.Charts = svc.ListCharts()
		return out, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "get-chart",
		Method:      http.MethodGet,
		Path:        "/api/v1/chart/{chart_id}",
		Summary:     "Get chart state",
		Tags:        []string{"Charts"},
	}, func(ctx context.Context, input *chartIDInput) (*chartStateOutput, error) {
		st, err := svc.GetChart(input.ChartID)
		if err != nil {
			return nil, mapErr(err)
		}
		return &chartStateOutput{Body: st}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "open-chart",
		Method:      http.MethodPut,
		Path:        "/api/v1/chart/{chart_id}",
		Summary:     "Create a chart session or update its symbol and interval",
		Tags:        []string{"Charts"},
	}, func(ctx context.Context, input *struct {
		ChartID string `path:"chart_id"`
		Body    struct {
			Symbol   string `json:"symbol,omitempty"`
			Interval string `json:"interval,omitempty" doc:"1m, 5m, 15m, 1H, 4H, 1D, 1W, 1M or 1Y"`
		}
	}) (*chartStateOutput, error) {
		st, err := svc.OpenChart(input.ChartID, input.Body.Symbol, input.Body.Interval)
		if err != nil {
			return nil, mapErr(err)
		}
		return &chartStateOutput{Body: st}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "delete-chart",
		Method:      http.MethodDelete,
		Path:        "/api/v1/chart/{chart_id}",
		Summary:     "Delete a chart session and its drawings",
		Tags:        []string{"Charts"},
	}, func(ctx context.Context, input *chartIDInput) (*statusOutput, error) {
		if err := svc.DeleteChart(input.ChartID); err != nil {
			return nil, mapErr(err)
		}
		return okStatus(), nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "set-bounds",
		Method:      http.MethodPut,
		Path:        "/api/v1/chart/{chart_id}/bounds",
		Summary:     "Set the visible viewport",
		Description: "Replaces the time and price range and the plot size. Identical frames are ignored.",
		Tags:        []string{"Charts"},
	}, func(ctx context.Context, input *struct {
		ChartID string `path:"chart_id"`
		Body    viewport.Bounds
	}) (*chartStateOutput, error) {
		st, err := svc.SetBounds(input.ChartID, input.Body)
		if err != nil {
			return nil, mapErr(err)
		}
		return &chartStateOutput{Body: st}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "get-candles",
		Method:      http.MethodGet,
		Path:        "/api/v1/chart/{chart_id}/candles",
		Summary:     "Get the chart's candle series",
		Tags:        []string{"Charts"},
	}, func(ctx context.Context, input *chartIDInput) (*candlesOutput, error) {
		candles, err := svc.Candles(input.ChartID)
		if err != nil {
			return nil, mapErr(err)
		}
		out := &candlesOutput{}
		out.Body.ChartID = input.ChartID
		out.Body.Candles = candles
		if out.Body.Candles == nil {
			out.Body.Candles = []viewport.Candle{}
		}
		return out, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "set-candles",
		Method:      http.MethodPut,
		Path:        "/api/v1/chart/{chart_id}/candles",
		Summary:     "Replace the chart's candle series",
		Description: "Candles with non-finite prices are dropped and the rest sorted by time.",
		Tags:        []string{"Charts"},
	}, func(ctx context.Context, input *struct {
		ChartID string `path:"chart_id"`
		Body    struct {
			Candles []viewport.Candle `json:"candles"`
		}
	}) (*candlesOutput, error) {
		if err := svc.SetCandles(input.ChartID, input.Body.Candles); err != nil {
			return nil, mapErr(err)
		}
		candles, err := svc.Candles(input.ChartID)
		if err != nil {
			return nil, mapErr(err)
		}
		out := &candlesOutput{}
		out.Body.ChartID = input.ChartID
		out.Body.Candles = candles
		if out.Body.Candles == nil {
			out.Body.Candles = []viewport.Candle{}
		}
		return out, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "load-candles",
		Method:      http.MethodPost,
		Path:        "/api/v1/chart/{chart_id}/candles/load",
		Summary:     "Load candles from the market data source",
		Description: "Empty symbol or interval fall back to the chart's current ones.",
		Tags:        []string{"Charts"},
	}, func(ctx context.Context, input *struct {
		ChartID string `path:"chart_id"`
		Body    struct {
			Symbol   string `json:"symbol,omitempty"`
			Interval string `json:"interval,omitempty"`
		}
	}) (*chartStateOutput, error) {
		st, err := svc.LoadCandles(ctx, input.ChartID, input.Body.Symbol, input.Body.Interval)
		if err != nil {
			return nil, mapErr(err)
		}
		return &chartStateOutput{Body: st}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "zoom",
		Method:      http.MethodPost,
		Path:        "/api/v1/chart/{chart_id}/zoom",
		Summary:     "Compute a zoomed time range",
		Description: "Returns the range to apply. Bounds are not changed until the surface reports a new frame.",
		Tags:        []string{"Charts"},
	}, func(ctx context.Context, input *struct {
		ChartID string `path:"chart_id"`
		Body    struct {
			Direction string `json:"direction" enum:"in,out,reset"`
		}
	}) (*struct{ Body controller.ZoomResult }, error) {
		res, err := svc.Zoom(input.ChartID, input.Body.Direction)
		if err != nil {
			return nil, mapErr(err)
		}
		return &struct{ Body controller.ZoomResult }{Body: res}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "set-chart-flags",
		Method:      http.MethodPatch,
		Path:        "/api/v1/chart/{chart_id}/flags",
		Summary:     "Set global lock, hide and theme",
		Description: "Omitted fields are unchanged. Locking cancels any gesture in progress.",
		Tags:        []string{"Charts"},
	}, func(ctx context.Context, input *struct {
		ChartID string `path:"chart_id"`
		Body    controller.Flags
	}) (*chartStateOutput, error) {
		st, err := svc.SetFlags(input.ChartID, input.Body)
		if err != nil {
			return nil, mapErr(err)
		}
		return &chartStateOutput{Body: st}, nil
	})
}

type candlesOutput struct {
	Body struct {
		ChartID string            `json:"chart_id"`
		Candles []viewport.Candle `json:"candles"`
	}
}
