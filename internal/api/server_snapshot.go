package api

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/dgnsrekt/chartdraw/internal/controller"
	"github.com/dgnsrekt/chartdraw/internal/snapshot"
)

type snapshotIDInput struct {
	SnapshotID string `path:"snapshot_id"`
}

type snapshotOutput struct {
	Body snapshot.SnapshotMeta
}

type snapshotListOutput struct {
	Body struct {
		Snapshots []snapshot.SnapshotMeta `json:"snapshots"`
	}
}

func registerSnapshotHandlers(api huma.API, svc Service) {
	huma.Register(api, huma.Operation{
		OperationID:   "take-snapshot",
		Method:        http.MethodPost,
		Path:          "/api/v1/chart/{chart_id}/snapshot",
		Summary:       "Store the chart's drawings as an image",
		Description:   "Writes an SVG and, when png=true and a browser is configured, a PNG rasterized through Chromium.",
		Tags:          []string{"Snapshots"},
		DefaultStatus: http.StatusCreated,
	}, func(ctx context.Context, input *struct {
		ChartID string `path:"chart_id"`
		Body    controller.SnapshotRequest
	}) (*snapshotOutput, error) {
		meta, err := svc.TakeSnapshot(ctx, input.ChartID, input.Body)
		if err != nil {
			return nil, mapErr(err)
		}
		return &snapshotOutput{Body: meta}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "list-chart-snapshots",
		Method:      http.MethodGet,
		Path:        "/api/v1/chart/{chart_id}/snapshots",
		Summary:     "List a chart's snapshots, newest first",
		Tags:        []string{"Snapshots"},
	}, func(ctx context.Context, input *chartIDInput) (*snapshotListOutput, error) {
		return listSnapshots(svc, input.ChartID)
	})

	huma.Register(api, huma.Operation{
		OperationID: "list-snapshots",
		Method:      http.MethodGet,
		Path:        "/api/v1/snapshots",
		Summary:     "List every snapshot, newest first",
		Tags:        []string{"Snapshots"},
	}, func(ctx context.Context, input *struct{}) (*snapshotListOutput, error) {
		return listSnapshots(svc, "")
	})

	huma.Register(api, huma.Operation{
		OperationID: "get-snapshot",
		Method:      http.MethodGet,
		Path:        "/api/v1/snapshots/{snapshot_id}",
		Summary:     "Get snapshot metadata",
		Tags:        []string{"Snapshots"},
	}, func(ctx context.Context, input *snapshotIDInput) (*snapshotOutput, error) {
		meta, err := svc.GetSnapshot(input.SnapshotID)
		if err != nil {
			return nil, mapErr(err)
		}
		return &snapshotOutput{Body: meta}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "get-snapshot-image",
		Method:      http.MethodGet,
		Path:        "/api/v1/snapshots/{snapshot_id}/image",
		Summary:     "Get snapshot image bytes",
		Description: "Omitting format returns PNG when stored, otherwise SVG.",
		Tags:        []string{"Snapshots"},
		Responses: map[string]*huma.Response{
			"200": {
				Description: "Snapshot image",
				Content: map[string]*huma.MediaType{
					"image/png":     {Schema: &huma.Schema{Type: "string", Format: "binary"}},
					"image/svg+xml": {Schema: &huma.Schema{Type: "string", Format: "binary"}},
				},
			},
		},
	}, func(ctx context.Context, input *struct {
		SnapshotID string `path:"snapshot_id"`
		Format     string `query:"format" enum:"svg,png"`
	}) (*rawImageOutput, error) {
		data, contentType, err := svc.ReadSnapshotImage(input.SnapshotID, input.Format)
		if err != nil {
			return nil, mapErr(err)
		}
		return &rawImageOutput{ContentType: contentType, Body: data}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "delete-snapshot",
		Method:      http.MethodDelete,
		Path:        "/api/v1/snapshots/{snapshot_id}",
		Summary:     "Delete a snapshot and its images",
		Tags:        []string{"Snapshots"},
	}, func(ctx context.Context, input *snapshotIDInput) (*statusOutput, error) {
		if err := svc.DeleteSnapshot(input.SnapshotID); err != nil {
			return nil, mapErr(err)
		}
		return okStatus(), nil
	})
}

func listSnapshots(svc Service, chartID string) (*snapshotListOutput, error) {
	snaps, err := svc.ListSnapshots(chartID)
	if err != nil {
		return nil, mapErr(err)
	}
	out := &snapshotListOutput{}
	out.Body.Snapshots = snaps
	if out.Body.Snapshots == nil {
		out.Body.Snapshots = []snapshot.SnapshotMeta{}
	}
	return out, nil
}
