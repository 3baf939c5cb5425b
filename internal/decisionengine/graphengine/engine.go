// SPDX-License-Identifier: AGPL-3.0-or-later

// Package graphengine is a concrete, deterministic, in-process
// decisionengine.Engine: a small directed graph of named rules, each a
// predicate over the incoming step name and an RFC 7386 merge-patch view
// of the journey's data (accumulated data merged with the incoming
// capture), mapping to an ordered list of suggested next steps.
//
// It is the repository's stand-in for an external JDM rule graph — not a
// JDM-format engine (explicitly out of scope of the core), but built the
// way the port requires: deterministic, context-in-decision-out,
// substitutable.
package graphengine

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"journeydynamics/internal/decisionengine"
	"journeydynamics/internal/mergepatch"
)

// Condition gates whether a Rule applies to a given Context.
type Condition struct {
	// Step, if non-empty, must equal decisionengine.Context.NewStep.
	Step string `json:"step,omitempty"`

	// DataEquals maps a dot-path into the merged document (accumulated
	// data merge-patched with the incoming capture) to the string value it
	// must hold for the rule to match. Missing paths never match.
	DataEquals map[string]string `json:"data_equals,omitempty"`
}

// Rule is one row of the decision graph: "when Condition holds, suggest
// these steps". Rules are evaluated in order; the first match wins.
type Rule struct {
	Name    string    `json:"name"`
	When    Condition `json:"when"`
	Suggest []string  `json:"suggest"`
}

// Graph is the compiled decision graph.
type Graph struct {
	Rules   []Rule   `json:"rules"`
	Default []string `json:"default"`
}

// Engine evaluates a Graph against a decisionengine.Context.
type Engine struct {
	graph Graph
}

var _ decisionengine.Engine = (*Engine)(nil)

// New constructs an Engine from an already-decoded Graph.
func New(graph Graph) *Engine {
	return &Engine{graph: graph}
}

// Load reads and compiles a Graph document from path.
func Load(path string) (*Engine, error) {
	// nolint:gosec // G304: path comes from trusted service configuration
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: reading decision graph %s: %v", decisionengine.ErrEngine, path, err)
	}

	var graph Graph
	if err := json.Unmarshal(data, &graph); err != nil {
		return nil, fmt.Errorf("%w: parsing decision graph %s: %v", decisionengine.ErrEngine, path, err)
	}

	return New(graph), nil
}

// Evaluate implements decisionengine.Engine.
func (e *Engine) Evaluate(_ context.Context, decisionCtx decisionengine.Context) (decisionengine.Decision, error) {
	merged := decisionCtx.AccumulatedData
	if m, err := mergepatch.Apply(decisionCtx.AccumulatedData, decisionCtx.NewData); err == nil {
		merged = m
	}

	var doc map[string]any
	if len(merged) > 0 {
		if err := json.Unmarshal(merged, &doc); err != nil {
			return decisionengine.Decision{}, fmt.Errorf("%w: merged document is not a JSON object: %v", decisionengine.ErrEngine, err)
		}
	}

	for _, rule := range e.graph.Rules {
		if rule.When.matches(decisionCtx.NewStep, doc) {
			return decisionengine.Decision{SuggestedActions: append([]string(nil), rule.Suggest...)}, nil
		}
	}

	return decisionengine.Decision{SuggestedActions: append([]string(nil), e.graph.Default...)}, nil
}

func (c Condition) matches(newStep string, doc map[string]any) bool {
	if c.Step != "" && c.Step != newStep {
		return false
	}
	for path, want := range c.DataEquals {
		got, ok := lookupPath(doc, path)
		if !ok || got != want {
			return false
		}
	}
	return true
}

// lookupPath resolves a dot-separated path ("passengers.total") against a
// decoded JSON object, returning its string representation.
func lookupPath(doc map[string]any, path string) (string, bool) {
	segments := strings.Split(path, ".")
	var cur any = doc
	for _, seg := range segments {
		obj, ok := cur.(map[string]any)
		if !ok {
			return "", false
		}
		cur, ok = obj[seg]
		if !ok {
			return "", false
		}
	}
	switch v := cur.(type) {
	case string:
		return v, true
	case nil:
		return "", false
	default:
		b, err := json.Marshal(v)
		if err != nil {
			return "", false
		}
		return string(b), true
	}
}
