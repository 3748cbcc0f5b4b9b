package assistant

// Definition is a function declaration in JSON-schema form.
type Definition struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Parameters  map[string]any `json:"parameters"`
}

func Definitions() []Definition {
	return []Definition{
		{
			Name:        ToolAddDrawing,
			Description: `Draws a technical analysis tool on the chart. Use for any request involving "draw", "plot", "add line", "fibonacci", "trend".`,
			Parameters: object(map[string]any{
				"tool_type": map[string]any{
					"type":        "string",
					"enum":        []string{KindTrendline, KindFibonacci, KindFibonacciCircles, KindHorizontalLine},
					"description": "Type of drawing. horizontal_line draws support/resistance.",
				},
				"start_index_offset": map[string]any{
					"type":        "integer",
					"minimum":     0,
					"description": "Starting candle offset from the right (0 is the latest). Use the provided pivot points.",
				},
				"end_index_offset": map[string]any{
					"type":        "integer",
					"minimum":     0,
					"description": "Ending candle offset from the right.",
				},
				"start_price": map[string]any{"type": "number", "description": "Price of the starting point."},
				"end_price":   map[string]any{"type": "number", "description": "Price of the ending point. Defaults to start_price."},
			}, "tool_type", "start_index_offset", "start_price"),
		},
		{
			Name:        ToolManageElement,
			Description: "Clears, hides, locks, deletes or updates drawings on the chart.",
			Parameters: object(map[string]any{
				"action": map[string]any{
					"type": "string",
					"enum": []string{ActionClear, ActionHide, ActionLock, ActionDelete, ActionUpdate},
				},
				"target_id":   map[string]any{"type": "string", "description": "Drawing id for delete_drawing and update_drawing."},
				"target_type": map[string]any{"type": "string", "enum": []string{"trendline", "fibonacci", "brush", "text"}, "description": "Drawing type for hide_type and lock_type."},
				"patch":       map[string]any{"type": "object", "description": "Fields to change for update_drawing."},
			}, "action"),
		},
		{
			Name:        ToolListDrawings,
			Description: "Lists the drawings currently on the chart.",
			Parameters:  object(map[string]any{}),
		},
	}
}

func object(props map[string]any, required ...string) map[string]any {
	out := map[string]any{"type": "object", "properties": props}
	if len(required) > 0 {
		out["required"] = required
	}
	return out
}
