package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humachi"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/dgnsrekt/chartdraw/internal/assistant"
	"github.com/dgnsrekt/chartdraw/internal/controller"
	"github.com/dgnsrekt/chartdraw/internal/defaults"
	"github.com/dgnsrekt/chartdraw/internal/drawing"
	"github.com/dgnsrekt/chartdraw/internal/interaction"
	"github.com/dgnsrekt/chartdraw/internal/relay"
	"github.com/dgnsrekt/chartdraw/internal/render"
	"github.com/dgnsrekt/chartdraw/internal/snapshot"
	"github.com/dgnsrekt/chartdraw/internal/viewport"
)

type Service interface {
	ListCharts() []controller.ChartState
	OpenChart(id, symbol, interval string) (controller.ChartState, error)
	GetChart(id string) (controller.ChartState, error)
	DeleteChart(id string) error
	SetBounds(id string, b viewport.Bounds) (controller.ChartState, error)
	SetCandles(id string, candles []viewport.Candle) error
	Candles(id string) ([]viewport.Candle, error)
	LoadCandles(ctx context.Context, id, symbol, interval string) (controller.ChartState, error)
	Zoom(id, direction string) (controller.ZoomResult, error)
	SetFlags(id string, f controller.Flags) (controller.ChartState, error)

	ListDrawings(id, typ string) ([]drawing.Drawing, error)
	GetDrawing(id, drawingID string) (drawing.Drawing, error)
	CreateDrawing(id string, d drawing.Drawing) (drawing.Drawing, error)
	UpdateDrawing(id, drawingID string, p drawing.Patch) (drawing.Drawing, error)
	DeleteDrawing(id, drawingID string) error
	ClearDrawings(id string) (int, error)
	SetDrawingVisible(id, drawingID string, visible bool) (drawing.Drawing, error)
	ToggleType(id, typ string, lock bool) (controller.TypeToggle, error)
	Reorder(id, drawingID, action string) ([]drawing.Drawing, error)

	Defaults() defaults.Settings
	UpdateDefaults(d defaults.Settings) (defaults.Settings, error)

	Interact(id string, in controller.Input, withFrame bool) (controller.InteractResult, error)
	SetTool(id, tool string) (interaction.State, error)
	InteractionState(id string) (interaction.State, error)

	Render(id string) (render.Frame, error)
	SVG(id string) (string, error)

	ToolDefinitions() []assistant.Definition
	CallTool(id, name string, args json.RawMessage) (assistant.Result, error)
	PivotContext(id string) (assistant.Pivots, error)

	TakeSnapshot(ctx context.Context, id string, req controller.SnapshotRequest) (snapshot.SnapshotMeta, error)
	ListSnapshots(chartID string) ([]snapshot.SnapshotMeta, error)
	GetSnapshot(id string) (snapshot.SnapshotMeta, error)
	ReadSnapshotImage(id, format string) ([]byte, string, error)
	DeleteSnapshot(id string) error
}

type chartIDInput struct {
	ChartID string `path:"chart_id"`
}

type drawingIDInput struct {
	ChartID   string `path:"chart_id"`
	DrawingID string `path:"drawing_id"`
}

type chartStateOutput struct {
	Body controller.ChartState
}

type drawingOutput struct {
	Body drawing.Drawing
}

type drawingListOutput struct {
	Body struct {
		ChartID  string            `json:"chart_id"`
		Drawings []drawing.Drawing `json:"drawings"`
	}
}

type statusOutput struct {
	Body struct {
		Status string `json:"status"`
	}
}

func okStatus() *statusOutput {
	out := &statusOutput{}
	out.Body.Status = "ok"
	return out
}

// NewServer mounts the REST API, the SSE event stream and the per-chart
// interaction websocket. A nil broker disables the event stream.
func NewServer(svc Service, broker *relay.Broker) http.Handler {
	router := chi.NewMux()
	router.Use(middleware.RequestID)
	router.Use(requestLogger)
	router.Use(middleware.Recoverer)

	cfg := huma.DefaultConfig("Chartdraw API", "1.0.0")
	cfg.Info.Description = "Chart annotation engine. Drawings are stored in time/price space and rendered through the chart's current pixel bounds."
	cfg.DocsPath = ""
	api := humachi.New(router, cfg)

	router.Get("/docs", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		if _, err := w.Write([]byte(docsHTML)); err != nil {
			slog.Debug("docs response write failed", "error", err)
		}
	})
	if broker != nil {
		router.Get("/api/v1/events", relay.SSEHandler(broker, relay.DefaultKeepAlive))
	}
	router.Get("/api/v1/chart/{chart_id}/ws", interactSocket(svc))

	huma.Register(api, huma.Operation{
		OperationID: "health",
		Method:      http.MethodGet,
		Path:        "/api/v1/health",
		Summary:     "Liveness probe",
		Tags:        []string{"Health"},
	}, func(ctx context.Context, input *struct{}) (*statusOutput, error) {
		return okStatus(), nil
	})

	registerChartHandlers(api, svc)
	registerDrawingHandlers(api, svc)
	registerInteractionHandlers(api, svc)
	registerRenderHandlers(api, svc)
	registerAssistantHandlers(api, svc)
	registerSnapshotHandlers(api, svc)

	return router
}

func mapErr(err error) error {
	if err == nil {
		return nil
	}
	var coded *controller.CodedError
	if errors.As(err, &coded) {
		msg := coded.Message
		if coded.Cause != nil {
			msg = fmt.Sprintf("%s: %v", msg, coded.Cause)
		}
		switch coded.Code {
		case controller.CodeValidation:
			return huma.Error400BadRequest(msg)
		case controller.CodeChartNotFound, controller.CodeDrawingNotFound, controller.CodeSnapshotNotFound:
			return huma.Error404NotFound(coded.Message)
		case controller.CodeDataUnavailable, controller.CodeRasterUnavailable:
			return huma.Error502BadGateway(msg)
		default:
			return huma.Error500InternalServerError(fmt.Sprintf("%s: %s", coded.Code, coded.Message))
		}
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return huma.Error504GatewayTimeout(err.Error())
	}
	return huma.Error500InternalServerError(err.Error())
}
