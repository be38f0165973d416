package flowdef

import (
	_ "embed"
	"fmt"
	"sort"
	"strings"

	"github.com/xeipuuv/gojsonschema"

	pferrors "github.com/AltairaLabs/PromptFlow/pkg/errors"
)

//go:embed schema/flow-definition.schema.json
var embeddedSchema string

var schemaLoader = gojsonschema.NewStringLoader(embeddedSchema)

// ValidationError is a single problem found in a definition.
type ValidationError struct {
	Field       string
	Description string
}

// Error implements the error interface.
func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Description)
}

// ValidationErrors collects every problem found by Validate.
type ValidationErrors []ValidationError

func (v ValidationErrors) Error() string {
	msgs := make([]string, len(v))
	for i, e := range v {
		msgs[i] = e.Error()
	}
	return fmt.Sprintf("invalid flow definition: %s", strings.Join(msgs, "; "))
}

// Validate checks the document form of d against the embedded schema, then
// checks graph integrity: unique node names, connections between declared
// ports, every input fed, exactly one Input and one Output node, and no
// cycles. The returned error wraps ValidationErrors.
func (d Definition) Validate() error {
	doc, err := d.Document()
	if err != nil {
		return pferrors.New(pferrors.ComponentFlowDef, "RenderDefinition", err)
	}

	result, err := gojsonschema.Validate(schemaLoader, gojsonschema.NewBytesLoader(doc))
	if err != nil {
		return pferrors.New(pferrors.ComponentFlowDef, "ValidateSchema", err)
	}

	var errs ValidationErrors
	for _, re := range result.Errors() {
		errs = append(errs, ValidationError{Field: re.Field(), Description: re.Description()})
	}
	errs = append(errs, d.checkGraph()...)

	if len(errs) > 0 {
		return pferrors.New(pferrors.ComponentFlowDef, "Validate", errs)
	}
	return nil
}

func (d Definition) checkGraph() ValidationErrors {
	var errs ValidationErrors
	add := func(field, format string, args ...any) {
		errs = append(errs, ValidationError{Field: field, Description: fmt.Sprintf(format, args...)})
	}

	nodes := make(map[string]Node, len(d.Nodes))
	counts := map[NodeType]int{}
	for _, n := range d.Nodes {
		if _, dup := nodes[n.Name]; dup {
			add("nodes", "duplicate node name %q", n.Name)
			continue
		}
		nodes[n.Name] = n
		counts[n.Type]++
	}
	if counts[NodeTypeInput] != 1 {
		add("nodes", "expected exactly one %s node, found %d", NodeTypeInput, counts[NodeTypeInput])
	}
	if counts[NodeTypeOutput] != 1 {
		add("nodes", "expected exactly one %s node, found %d", NodeTypeOutput, counts[NodeTypeOutput])
	}

	fed := map[string]bool{}
	adjacency := map[string][]string{}
	for _, e := range d.Edges {
		field := "connections." + e.Name
		src, ok := nodes[e.Source]
		if !ok {
			add(field, "unknown source node %q", e.Source)
			continue
		}
		dst, ok := nodes[e.Target]
		if !ok {
			add(field, "unknown target node %q", e.Target)
			continue
		}
		if !hasPort(src.Outputs, e.SourceOutput) {
			add(field, "node %q has no output %q", e.Source, e.SourceOutput)
		}
		if !hasPort(dst.Inputs, e.TargetInput) {
			add(field, "node %q has no input %q", e.Target, e.TargetInput)
		}
		fed[e.Target+"."+e.TargetInput] = true
		adjacency[e.Source] = append(adjacency[e.Source], e.Target)
	}

	for _, n := range d.Nodes {
		for _, in := range n.Inputs {
			if !fed[n.Name+"."+in.Name] {
				add("nodes."+n.Name, "input %q is not connected", in.Name)
			}
		}
	}

	if cycle := findCycle(nodes, adjacency); cycle != "" {
		add("connections", "cycle through node %q", cycle)
	}
	return errs
}

func hasPort(ports []Port, name string) bool {
	for _, p := range ports {
		if p.Name == name {
			return true
		}
	}
	return false
}

// findCycle returns a node on a cycle, or "" if the graph is acyclic.
func findCycle(nodes map[string]Node, adjacency map[string][]string) string {
	const (
		unvisited = iota
		onStack
		done
	)
	state := make(map[string]int, len(nodes))

	names := make([]string, 0, len(nodes))
	for name := range nodes {
		names = append(names, name)
	}
	sort.Strings(names)

	var visit func(string) string
	visit = func(name string) string {
		state[name] = onStack
		for _, next := range adjacency[name] {
			switch state[next] {
			case onStack:
				return next
			case unvisited:
				if c := visit(next); c != "" {
					return c
				}
			}
		}
		state[name] = done
		return ""
	}

	for _, name := range names {
		if state[name] == unvisited {
			if c := visit(name); c != "" {
				return c
			}
		}
	}
	return ""
}
