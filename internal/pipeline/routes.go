package pipeline

import (
	"errors"
	"fmt"
	"slices"
	"strconv"

	"github.com/Yotam17/nl2sql/internal/service"
)

// Route describes how control leaves a stage: either unconditionally to Next,
// or by looking up Key(state) in Cases. Domain lists every value Key can
// produce; Cases must cover all of them.
type Route struct {
	Next Stage

	On     string
	Key    func(*State) string
	Domain []string
	Cases  map[string]Stage
}

func (r Route) conditional() bool {
	return r.Key != nil
}

// Targets returns every stage the route can lead to.
func (r Route) Targets() []Stage {
	if !r.conditional() {
		return []Stage{r.Next}
	}
	var out []Stage
	for _, v := range r.Domain {
		if t, ok := r.Cases[v]; ok && !slices.Contains(out, t) {
			out = append(out, t)
		}
	}
	return out
}

// Routes is the routing table, keyed by source stage.
type Routes map[Stage]Route

func intentKey(s *State) string { return string(s.Intent) }
func guardrailKey(s *State) string { return strconv.FormatBool(s.GuardrailOK) }
func actionKey(s *State) string { return string(s.Action) }

// DefaultRoutes returns the pipeline's routing table.
func DefaultRoutes() Routes {
	intents := []string{string(service.IntentSQL), string(service.IntentViz)}
	return Routes{
		StageDetectIntent: {
			On: "intent", Key: intentKey, Domain: intents,
			Cases: map[string]Stage{
				string(service.IntentSQL): StageGenerateSQL,
				string(service.IntentViz): StageGenerateSQL,
			},
		},
		StageGenerateSQL: {Next: StageApplyGuardrails},
		StageApplyGuardrails: {
			On: "guardrail_ok", Key: guardrailKey, Domain: []string{"true", "false"},
			Cases: map[string]Stage{
				"true":  StageExecuteSQL,
				"false": StageDisplay,
			},
		},
		StageExecuteSQL: {
			On: "intent", Key: intentKey, Domain: intents,
			Cases: map[string]Stage{
				string(service.IntentSQL): StageDecideAction,
				string(service.IntentViz): StageGenerateVizSpec,
			},
		},
		StageGenerateVizSpec: {Next: StageDecideAction},
		StageDecideAction: {
			On: "action", Key: actionKey,
			Domain: []string{string(service.ActionDownload), string(service.ActionDisplay)},
			Cases: map[string]Stage{
				string(service.ActionDownload): StageDownload,
				string(service.ActionDisplay):  StageDisplay,
			},
		},
		StageDownload: {Next: End},
		StageDisplay:  {Next: End},
	}
}

// Next resolves the stage that follows from. It is a pure function of the
// table and s.
func (r Routes) Next(from Stage, s *State) (Stage, error) {
	route, ok := r[from]
	if !ok {
		return "", fmt.Errorf("no route from stage %q", from)
	}
	if !route.conditional() {
		return route.Next, nil
	}
	v := route.Key(s)
	next, ok := route.Cases[v]
	if !ok {
		return "", fmt.Errorf("stage %q: no route for %s=%q", from, route.On, v)
	}
	return next, nil
}

// Validate checks that every stage has a route, every conditional route
// covers its whole domain, every target exists, all stages are reachable from
// entry and the graph has no cycle.
func (r Routes) Validate(entry Stage) error {
	var errs []error
	known := func(s Stage) bool { return s == End || slices.Contains(Stages, s) }

	for _, stage := range Stages {
		route, ok := r[stage]
		if !ok {
			errs = append(errs, fmt.Errorf("stage %q has no route", stage))
			continue
		}
		if route.conditional() {
			if len(route.Domain) == 0 {
				errs = append(errs, fmt.Errorf("stage %q: empty domain for %s", stage, route.On))
			}
			for _, v := range route.Domain {
				if _, ok := route.Cases[v]; !ok {
					errs = append(errs, fmt.Errorf("stage %q: %s=%q is not routed", stage, route.On, v))
				}
			}
			for v := range route.Cases {
				if !slices.Contains(route.Domain, v) {
					errs = append(errs, fmt.Errorf("stage %q: case %s=%q is outside the domain", stage, route.On, v))
				}
			}
		}
		for _, t := range route.Targets() {
			if !known(t) {
				errs = append(errs, fmt.Errorf("stage %q routes to unknown stage %q", stage, t))
			}
		}
	}
	for from := range r {
		if !slices.Contains(Stages, from) {
			errs = append(errs, fmt.Errorf("route from unknown stage %q", from))
		}
	}
	if len(errs) > 0 {
		return errors.Join(errs...)
	}

	// Depth-first search for cycles and reachability.
	const (
		unvisited = iota
		active
		done
	)
	mark := map[Stage]int{}
	var visit func(Stage) error
	visit = func(s Stage) error {
		if s == End {
			return nil
		}
		switch mark[s] {
		case active:
			return fmt.Errorf("cycle through stage %q", s)
		case done:
			return nil
		}
		mark[s] = active
		for _, t := range r[s].Targets() {
			if err := visit(t); err != nil {
				return err
			}
		}
		mark[s] = done
		return nil
	}
	if err := visit(entry); err != nil {
		return err
	}
	for _, stage := range Stages {
		if mark[stage] != done {
			errs = append(errs, fmt.Errorf("stage %q is unreachable from %q", stage, entry))
		}
	}
	return errors.Join(errs...)
}
