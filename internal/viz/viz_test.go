package viz_test

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/Yotam17/nl2sql/internal/models"
	"github.com/Yotam17/nl2sql/internal/viz"
)

func rows(columns []string, values ...[]any) []models.Row {
	out := make([]models.Row, len(values))
	for i, v := range values {
		out[i] = models.NewRow(columns, v)
	}
	return out
}

func encodingField(t *testing.T, spec viz.Spec, channel string) string {
	t.Helper()
	enc, ok := spec["encoding"].(map[string]any)
	if !ok {
		t.Fatalf("spec has no encoding: %v", spec)
	}
	ch, ok := enc[channel].(map[string]any)
	if !ok {
		return ""
	}
	f, _ := ch["field"].(string)
	return f
}

func TestFallback_Empty(t *testing.T) {
	if diff := cmp.Diff(viz.NoData(), viz.Fallback(nil)); diff != "" {
		t.Errorf("empty rows (-want +got):\n%s", diff)
	}
}

func TestFallback_FieldSelection(t *testing.T) {
	tests := []struct {
		name  string
		rows  []models.Row
		wantX string
		wantY string
	}{
		{
			name:  "preferred names",
			rows:  rows([]string{"id", "customer_name", "total_amount"}, []any{1, "Alice", 120.5}),
			wantX: "customer_name",
			wantY: "total_amount",
		},
		{
			name:  "type heuristic",
			rows:  rows([]string{"id", "country", "revenue"}, []any{int64(1), "Israel", 99.0}),
			wantX: "country",
			wantY: "id",
		},
		{
			name:  "numeric named after text",
			rows:  rows([]string{"country", "n"}, []any{"Germany", int64(4)}),
			wantX: "country",
			wantY: "n",
		},
		{
			name:  "no text column",
			rows:  rows([]string{"a", "b"}, []any{int64(1), int64(2)}),
			wantX: "a",
			wantY: "b",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			spec := viz.Fallback(tt.rows)
			if got := encodingField(t, spec, "x"); got != tt.wantX {
				t.Errorf("x = %q, want %q", got, tt.wantX)
			}
			if got := encodingField(t, spec, "y"); got != tt.wantY {
				t.Errorf("y = %q, want %q", got, tt.wantY)
			}
			if spec["width"] != 720 || spec["height"] != 420 {
				t.Errorf("style contract dimensions missing: %v x %v", spec["width"], spec["height"])
			}
		})
	}
}

func TestFallback_SingleColumnIsTextList(t *testing.T) {
	spec := viz.Fallback(rows([]string{"name"}, []any{"Alice"}, []any{"Bob"}))
	if spec["mark"] != "text" {
		t.Errorf("mark = %v, want text", spec["mark"])
	}
	if got := encodingField(t, spec, "text"); got != "name" {
		t.Errorf("text field = %q, want name", got)
	}
}

func TestFallback_EmbedsAllRows(t *testing.T) {
	in := rows([]string{"name", "count"},
		[]any{"a", 1}, []any{"b", 2}, []any{"c", 3}, []any{"d", 4}, []any{"e", 5}, []any{"f", 6})
	spec := viz.Fallback(in)

	data, err := json.Marshal(spec["data"])
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), `{"name":"f","count":6}`) {
		t.Errorf("data.values should contain every row in column order, got %s", data)
	}
}

func TestParse(t *testing.T) {
	in := rows([]string{"name", "count"}, []any{"a", 1})

	spec, err := viz.Parse("```json\n{\"mark\": \"bar\", \"encoding\": {}}\n```", in)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if spec["mark"] != "bar" {
		t.Errorf("mark = %v", spec["mark"])
	}
	if _, ok := spec["data"]; !ok {
		t.Error("parsed spec should carry data.values")
	}

	for _, bad := range []string{"", "Here is your chart!", "[1,2,3]", "{\"mark\": "} {
		if _, err := viz.Parse(bad, in); err == nil {
			t.Errorf("Parse(%q) should fail", bad)
		}
	}
}

func TestPromptUsesAtMostFiveRows(t *testing.T) {
	in := rows([]string{"name"}, []any{"r1"}, []any{"r2"}, []any{"r3"}, []any{"r4"}, []any{"r5"}, []any{"r6"})
	p := viz.Prompt("chart of names", in)
	if strings.Contains(p, "r6") {
		t.Error("prompt should only include the first five rows")
	}
	if !strings.Contains(p, "r5") || !strings.Contains(p, "User query: chart of names") {
		t.Errorf("prompt missing sample or query:\n%s", p)
	}
}
