package service_test

import (
	"testing"

	"github.com/Yotam17/nl2sql/internal/service"
)

func TestKeywordClassifier_Viz(t *testing.T) {
	c := service.NewKeywordClassifier()

	prompts := []string{
		"Plot revenue by month",
		"bar CHART of orders per country",
		"graph the top products",
		"תעשה לי גרף של המכירות לפי חודש",
		"תרשים של התפלגות הלקוחות",
	}
	for _, p := range prompts {
		res := c.Intent(p)
		if res.Intent != service.IntentViz {
			t.Errorf("expected viz for %q, got %q (%s)", p, res.Intent, res.Reasoning)
		}
		if len(res.Matched) == 0 {
			t.Errorf("expected matched keywords for %q", p)
		}
	}
}

func TestKeywordClassifier_DefaultsToSQL(t *testing.T) {
	c := service.NewKeywordClassifier()

	for _, p := range []string{"show me all customers", "how many orders this week?", ""} {
		res := c.Intent(p)
		if res.Intent != service.IntentSQL {
			t.Errorf("expected sql for %q, got %q", p, res.Intent)
		}
		if res.Reasoning == "" {
			t.Error("reasoning should not be empty")
		}
	}
}

func TestKeywordClassifier_Action(t *testing.T) {
	c := service.NewKeywordClassifier()

	tests := []struct {
		query string
		want  service.Action
	}{
		{"export orders over 1000 to csv", service.ActionDownload},
		{"Download all customers", service.ActionDownload},
		{"save the result", service.ActionDownload},
		{"ייצא את ההזמנות", service.ActionDownload},
		{"show me all customers", service.ActionDisplay},
		{"chart of sales", service.ActionDisplay},
	}
	for _, tt := range tests {
		if got := c.Action(tt.query); got != tt.want {
			t.Errorf("Action(%q) = %q, want %q", tt.query, got, tt.want)
		}
	}
}

func TestParseIntent(t *testing.T) {
	tests := []struct {
		in   string
		want service.Intent
		ok   bool
	}{
		{"sql", service.IntentSQL, true},
		{" VIZ\n", service.IntentViz, true},
		{`"viz".`, service.IntentViz, true},
		{"chart", "", false},
		{"", "", false},
	}
	for _, tt := range tests {
		got, ok := service.ParseIntent(tt.in)
		if got != tt.want || ok != tt.ok {
			t.Errorf("ParseIntent(%q) = (%q, %v), want (%q, %v)", tt.in, got, ok, tt.want, tt.ok)
		}
	}
}
