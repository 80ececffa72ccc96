// Package render draws a circuit as a Graphviz diagram.
package render

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/goccy/go-graphviz"

	"github.com/gyaneshwarpardhi/powergrid/internal/circuit"
)

var shapes = map[circuit.Kind]string{
	circuit.KindInput:  "house",
	circuit.KindIO:     "ellipse",
	circuit.KindOutput: "box",
}

// ToDOT converts the current state of g to DOT. Powered nodes are filled,
// blacked-out nodes dashed, and IO-IO edges drawn without arrowheads.
func ToDOT(g *circuit.Graph) string {
	var buf bytes.Buffer
	buf.WriteString("digraph circuit {\n")
	buf.WriteString("  rankdir=LR;\n")
	buf.WriteString("  node [style=filled, fillcolor=white, fontsize=14];\n")
	buf.WriteString("\n")

	for _, id := range g.Nodes() {
		st, err := g.Snapshot(id)
		if err != nil {
			continue
		}
		fmt.Fprintf(&buf, "  %q [%s];\n", st.Name, strings.Join(nodeAttrs(st), ", "))
	}

	buf.WriteString("\n")
	for _, e := range g.Edges() {
		if e.Directed {
			fmt.Fprintf(&buf, "  %q -> %q;\n", g.Name(e.From), g.Name(e.To))
			continue
		}
		fmt.Fprintf(&buf, "  %q -> %q [dir=none];\n", g.Name(e.From), g.Name(e.To))
	}

	buf.WriteString("}\n")
	return buf.String()
}

func nodeAttrs(st circuit.NodeState) []string {
	attrs := []string{fmt.Sprintf("shape=%s", shapes[st.Kind])}
	label := st.Name
	if st.PowerRefs > 0 {
		label = fmt.Sprintf("%s\n%d", st.Name, st.PowerRefs)
	}
	attrs = append(attrs, fmt.Sprintf("label=%q", label))
	switch {
	case st.BlackedOut:
		attrs = append(attrs, `style="filled,dashed"`, "fillcolor=lightgrey")
	case st.Powered:
		attrs = append(attrs, "fillcolor=gold")
	}
	if st.InvertSignal {
		attrs = append(attrs, "peripheries=2")
	}
	return attrs
}

// RenderSVG lays out a DOT document with Graphviz and returns the SVG.
func RenderSVG(ctx context.Context, dot string) ([]byte, error) {
	gv, err := graphviz.New(ctx)
	if err != nil {
		return nil, fmt.Errorf("init graphviz: %w", err)
	}
	defer gv.Close()

	g, err := graphviz.ParseBytes([]byte(dot))
	if err != nil {
		return nil, fmt.Errorf("parse DOT: %w", err)
	}
	defer g.Close()

	var buf bytes.Buffer
	if err := gv.Render(ctx, g, graphviz.SVG, &buf); err != nil {
		return nil, fmt.Errorf("render: %w", err)
	}
	return buf.Bytes(), nil
}
