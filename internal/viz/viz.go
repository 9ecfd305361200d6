// Package viz produces declarative Vega-Lite chart specifications for query
// results. Nothing here renders pixels.
package viz

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/tidwall/gjson"

	"github.com/Yotam17/nl2sql/internal/models"
	"github.com/Yotam17/nl2sql/internal/sqlnorm"
)

// SampleSize is the number of rows shown to the text generation service.
const SampleSize = 5

var (
	preferredX = []string{"name", "customer_name", "product_name", "category"}
	preferredY = []string{"total_amount", "orders_count", "count", "amount", "price", "quantity"}
)

// Spec is a Vega-Lite document.
type Spec = map[string]any

// NoData is the placeholder spec for an empty result.
func NoData() Spec {
	return Spec{"mark": "text", "text": "No data available"}
}

func padding() map[string]any {
	return map[string]any{"left": 10, "right": 10, "top": 10, "bottom": 10}
}

func styleConfig() map[string]any {
	return map[string]any{
		"view": map[string]any{"stroke": nil},
		"font": "Inter, Arial, sans-serif",
		"axis": map[string]any{
			"labelFontSize": 12,
			"titleFontSize": 13,
			"grid":          true,
			"gridOpacity":   0.25,
			"labelColor":    "#334155",
			"titleColor":    "#334155",
			"tickColor":     "#CBD5E1",
		},
		"legend": map[string]any{"labelFontSize": 12, "titleFontSize": 13, "orient": "bottom"},
	}
}

// Fallback builds a bar chart from the rows without any model call: a
// text-like field on x and a numeric field on y. A single-column result
// becomes a text list.
func Fallback(rows []models.Row) Spec {
	if len(rows) == 0 {
		return NoData()
	}

	x, y := pickFields(rows)
	var spec Spec
	if y == "" {
		spec = Spec{
			"width":      720,
			"height":     420,
			"background": "white",
			"padding":    padding(),
			"mark":       "text",
			"encoding": map[string]any{
				"text": map[string]any{"field": x, "type": "nominal"},
			},
			"title": "Data List",
		}
	} else {
		spec = Spec{
			"width":      720,
			"height":     420,
			"background": "white",
			"padding":    padding(),
			"config":     styleConfig(),
			"mark":       map[string]any{"type": "bar", "cornerRadius": 4, "binSpacing": 2},
			"encoding": map[string]any{
				"x":       map[string]any{"field": x, "type": "ordinal", "axis": map[string]any{"labelAngle": -30, "labelLimit": 140}},
				"y":       map[string]any{"field": y, "type": "quantitative", "axis": map[string]any{"format": "~s"}},
				"color":   map[string]any{"scale": map[string]any{"scheme": "tableau10"}},
				"tooltip": []any{map[string]any{"field": x, "type": "nominal"}, map[string]any{"field": y, "type": "quantitative"}},
			},
			"title": "Data Visualization",
		}
	}
	return WithData(spec, rows)
}

// pickFields prefers well-known column names, then the first text-like column
// for x and the first numeric column (other than x) for y.
func pickFields(rows []models.Row) (x, y string) {
	keys := rows[0].Keys()
	has := make(map[string]bool, len(keys))
	for _, k := range keys {
		has[k] = true
	}

	for _, f := range preferredX {
		if has[f] {
			x = f
			break
		}
	}
	for _, f := range preferredY {
		if has[f] && f != x {
			y = f
			break
		}
	}

	if x == "" {
		for _, f := range rows[0] {
			if _, ok := f.Value.(string); ok {
				x = f.Name
				break
			}
		}
	}
	if x == "" {
		x = keys[0]
	}
	if y == "" {
		for _, f := range rows[0] {
			if f.Name != x && isNumeric(f.Value) {
				y = f.Name
				break
			}
		}
	}
	if y == "" && len(keys) > 1 {
		for _, k := range keys {
			if k != x {
				y = k
				break
			}
		}
	}
	return x, y
}

func isNumeric(v any) bool {
	switch v.(type) {
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64, float32, float64, json.Number:
		return true
	}
	return false
}

// WithData embeds the full result set as inline data values.
func WithData(spec Spec, rows []models.Row) Spec {
	if len(rows) == 0 {
		return spec
	}
	values := make([]models.Row, len(rows))
	copy(values, rows)
	spec["data"] = map[string]any{"values": values}
	return spec
}

// Parse decodes a model-generated spec. Code fences are tolerated; anything
// that is not a JSON object is an error.
func Parse(text string, rows []models.Row) (Spec, error) {
	text = sqlnorm.StripFences(text)
	if !gjson.Valid(text) || !gjson.Parse(text).IsObject() {
		return nil, fmt.Errorf("chart spec is not a JSON object: %q", truncate(text, 80))
	}
	var spec Spec
	if err := json.Unmarshal([]byte(text), &spec); err != nil {
		return nil, fmt.Errorf("decode chart spec: %w", err)
	}
	return WithData(spec, rows), nil
}

const promptTemplate = `You are a Vega-Lite stylist. Given data and a user query, return a beautified Vega-Lite v5 JSON applying:

Style contract (must apply):
- width: 720, height: 420, padding: {"left": 10, "right": 10, "top": 10, "bottom": 10}
- background: "white"
- config:
    view: {stroke: null}
    font: "Inter, Arial, sans-serif"
    axis: {labelFontSize: 12, titleFontSize: 13, grid: true, gridOpacity: 0.25,
           labelColor: "#334155", titleColor: "#334155", tickColor: "#CBD5E1"}
    legend: {labelFontSize: 12, titleFontSize: 13, orient: "bottom"}
    header: {labelFontSize: 12, titleFontSize: 13}
- encoding defaults:
    tooltip: [{"field": "*", "type": "nominal"}]
    x: if nominal/ordinal with long labels use labelAngle: -30, labelLimit: 140, labelOverlap: "greedy"
    y: "quantitative" with nice: true and axis format ",.2f" or "~s" as appropriate
- color scheme: {"scheme": "tableau10"}
- titles: short, in Title Case
- for bar marks use "cornerRadius": 4, "binSpacing": 2
- do not include data URLs; use {"data": {"values": ...}} only

User query: %s
Sample data: %s

Return a valid Vega-Lite v5 JSON only (no prose).`

// Prompt asks for a styled spec given at most SampleSize rows.
func Prompt(query string, rows []models.Row) string {
	sample := rows
	if len(sample) > SampleSize {
		sample = sample[:SampleSize]
	}
	data, err := json.Marshal(sample)
	if err != nil {
		data = []byte("[]")
	}
	return fmt.Sprintf(promptTemplate, query, data)
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return strings.TrimSpace(s[:max]) + "..."
}
