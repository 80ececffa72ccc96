package circuit_test

import (
	"errors"
	"slices"
	"testing"

	"github.com/gyaneshwarpardhi/powergrid/internal/circuit"
	"github.com/gyaneshwarpardhi/powergrid/internal/config"
)

func TestAddNeighbor_Legality(t *testing.T) {
	cases := []struct {
		name  string
		a, b  circuit.Kind
		legal bool
	}{
		{"io-io", circuit.KindIO, circuit.KindIO, true},
		{"input-io", circuit.KindInput, circuit.KindIO, true},
		{"io-input", circuit.KindIO, circuit.KindInput, true},
		{"input-output", circuit.KindInput, circuit.KindOutput, true},
		{"io-output", circuit.KindIO, circuit.KindOutput, true},
		{"output-io", circuit.KindOutput, circuit.KindIO, true},
		{"input-input", circuit.KindInput, circuit.KindInput, false},
		{"output-output", circuit.KindOutput, circuit.KindOutput, false},
		{"output-input", circuit.KindOutput, circuit.KindInput, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := circuit.CanConnect(tc.a, tc.b); got != tc.legal {
				t.Errorf("CanConnect = %v, want %v", got, tc.legal)
			}
			g, ids := build(t, []nodeSpec{{"a", tc.a, nil}, {"b", tc.b, nil}})
			ok, err := g.AddNeighbor(ids["a"], ids["b"])
			if tc.legal {
				if !ok || err != nil {
					t.Fatalf("AddNeighbor = %v, %v", ok, err)
				}
				return
			}
			if ok || !errors.Is(err, circuit.ErrIllegalEdge) {
				t.Fatalf("AddNeighbor = %v, %v; want ErrIllegalEdge", ok, err)
			}
			if len(g.Edges()) != 0 {
				t.Errorf("illegal edge mutated the graph: %v", g.Edges())
			}
		})
	}
}

func TestAddNeighbor_Direction(t *testing.T) {
	g, ids := build(t, []nodeSpec{input("S"), io("M"), output("O")})
	if _, err := g.AddNeighbor(ids["M"], ids["S"]); err != nil {
		t.Fatal(err)
	}
	if _, err := g.AddNeighbor(ids["O"], ids["M"]); err != nil {
		t.Fatal(err)
	}
	want := []circuit.Edge{
		{From: ids["S"], To: ids["M"], Directed: true},
		{From: ids["M"], To: ids["O"], Directed: true},
	}
	if got := g.Edges(); !slices.Equal(got, want) {
		t.Errorf("Edges = %v, want %v", got, want)
	}
}

func TestAddNeighbor_SelfLoop(t *testing.T) {
	g, ids := build(t, []nodeSpec{io("A")})
	ok, err := g.AddNeighbor(ids["A"], ids["A"])
	if ok || !errors.Is(err, circuit.ErrIllegalEdge) {
		t.Errorf("self loop: %v, %v", ok, err)
	}
}

func TestAddNeighbor_Duplicate(t *testing.T) {
	g, ids := build(t, []nodeSpec{input("S"), io("A"), io("B")},
		[2]string{"S", "A"}, [2]string{"A", "B"})
	mustStart(t, g, ids["S"], true)

	for _, pair := range [][2]string{{"A", "B"}, {"B", "A"}, {"S", "A"}, {"A", "S"}} {
		ok, err := g.AddNeighbor(ids[pair[0]], ids[pair[1]])
		if ok || err != nil {
			t.Errorf("AddNeighbor(%s, %s) = %v, %v; want false, nil", pair[0], pair[1], ok, err)
		}
	}
	if refs := state(t, g, ids["B"]).PowerRefs; refs != 1 {
		t.Errorf("duplicate add changed B refs to %d", refs)
	}
}

func TestAddNeighbor_UnknownEndpoint(t *testing.T) {
	g, ids := build(t, []nodeSpec{io("A")})
	if _, err := g.AddNeighbor(ids["A"], 42); !errors.Is(err, circuit.ErrNullEndpoint) {
		t.Errorf("AddNeighbor: got %v", err)
	}
	if _, err := g.RemoveNeighbor(42, ids["A"]); !errors.Is(err, circuit.ErrNullEndpoint) {
		t.Errorf("RemoveNeighbor: got %v", err)
	}
}

func TestAddNeighbor_SeedsExistingPower(t *testing.T) {
	g, ids := build(t, []nodeSpec{input("S"), io("A"), io("B"), output("O")},
		[2]string{"S", "A"})
	mustStart(t, g, ids["S"], true)
	rec := watch(g)

	if ok, err := g.AddNeighbor(ids["A"], ids["B"]); !ok || err != nil {
		t.Fatalf("AddNeighbor = %v, %v", ok, err)
	}
	b := state(t, g, ids["B"])
	if !b.Powered || b.PowerRefs != 1 || len(b.Prevs) != 1 || b.Prevs[0].Node != "A" {
		t.Errorf("B: %+v", b)
	}
	if a := state(t, g, ids["A"]); a.PowerRefs != 1 {
		t.Errorf("A refs = %d, want 1 (B carried nothing back)", a.PowerRefs)
	}

	if _, err := g.AddNeighbor(ids["B"], ids["O"]); err != nil {
		t.Fatal(err)
	}
	if o := state(t, g, ids["O"]); !o.Powered || o.PowerRefs != 1 {
		t.Errorf("O: %+v", o)
	}
	want := []change{{"B", true}, {"O", true}}
	if !slices.Equal(rec.changes, want) {
		t.Errorf("changes = %v, want %v", rec.changes, want)
	}
}

func TestRemoveNeighbor_Undirected(t *testing.T) {
	g, ids := build(t, []nodeSpec{input("S"), io("A"), io("B")},
		[2]string{"S", "A"}, [2]string{"A", "B"})
	mustStart(t, g, ids["S"], true)

	ok, err := g.RemoveNeighbor(ids["B"], ids["A"])
	if !ok || err != nil {
		t.Fatalf("RemoveNeighbor = %v, %v", ok, err)
	}
	if b := state(t, g, ids["B"]); b.Powered || b.PowerRefs != 0 || len(b.Prevs) != 0 {
		t.Errorf("B: %+v", b)
	}
	if a := state(t, g, ids["A"]); !a.Powered || a.PowerRefs != 1 {
		t.Errorf("A: %+v", a)
	}
	if len(g.Edges()) != 1 {
		t.Errorf("Edges = %v", g.Edges())
	}

	ok, err = g.RemoveNeighbor(ids["A"], ids["B"])
	if ok || err != nil {
		t.Errorf("second remove = %v, %v; want false, nil", ok, err)
	}
}

func TestRemoveNeighbor_Directed(t *testing.T) {
	g, ids := build(t, []nodeSpec{input("S"), io("A"), output("O")},
		[2]string{"S", "A"}, [2]string{"A", "O"})
	mustStart(t, g, ids["S"], true)
	rec := watch(g)

	// Argument order does not matter once the edge exists.
	if ok, err := g.RemoveNeighbor(ids["O"], ids["A"]); !ok || err != nil {
		t.Fatalf("RemoveNeighbor = %v, %v", ok, err)
	}
	if o := state(t, g, ids["O"]); o.Powered || o.PowerRefs != 0 {
		t.Errorf("O: %+v", o)
	}
	if !slices.Equal(rec.changes, []change{{"O", false}}) {
		t.Errorf("changes = %v", rec.changes)
	}

	if ok, err := g.RemoveNeighbor(ids["S"], ids["A"]); !ok || err != nil {
		t.Fatalf("RemoveNeighbor(S, A) = %v, %v", ok, err)
	}
	if a := state(t, g, ids["A"]); a.Powered || a.PowerRefs != 0 {
		t.Errorf("A: %+v", a)
	}
	if s := state(t, g, ids["S"]); !s.Powered {
		t.Errorf("S must keep its own power")
	}
}

func TestRemoveAllNeighbors(t *testing.T) {
	g, ids := build(t, []nodeSpec{input("S"), io("A"), io("B"), io("C"), output("O")},
		[2]string{"S", "A"}, [2]string{"A", "B"}, [2]string{"A", "C"}, [2]string{"A", "O"})
	mustStart(t, g, ids["S"], true)

	if err := g.RemoveAllNeighbors(ids["A"]); err != nil {
		t.Fatal(err)
	}
	if a := state(t, g, ids["A"]); !a.Powered || len(a.Neighbors) != 0 {
		t.Errorf("A should keep its incoming edge only: %+v", a)
	}
	for _, name := range []string{"B", "C", "O"} {
		if st := state(t, g, ids[name]); st.Powered || st.PowerRefs != 0 || len(st.Neighbors) != 0 {
			t.Errorf("%s: %+v", name, st)
		}
	}
	want := []circuit.Edge{{From: ids["S"], To: ids["A"], Directed: true}}
	if got := g.Edges(); !slices.Equal(got, want) {
		t.Errorf("Edges = %v, want %v", got, want)
	}

	if err := g.RemoveAllNeighbors(99); !errors.Is(err, circuit.ErrUnknownNode) {
		t.Errorf("unknown node: got %v", err)
	}
}

func TestAddRemove_RoundTrip(t *testing.T) {
	g, ids := build(t, []nodeSpec{input("S1"), input("S2"), io("A"), io("B"), io("C"), output("O")},
		[2]string{"S1", "A"}, [2]string{"S2", "C"}, [2]string{"B", "O"})
	mustStart(t, g, ids["S1"], true)
	mustStart(t, g, ids["S2"], true)

	before := snapshotAll(t, g)
	for _, pair := range [][2]string{{"A", "B"}, {"B", "C"}} {
		if _, err := g.AddNeighbor(ids[pair[0]], ids[pair[1]]); err != nil {
			t.Fatal(err)
		}
	}
	if o := state(t, g, ids["O"]); o.PowerRefs != 2 {
		t.Errorf("O refs = %d, want 2", o.PowerRefs)
	}
	for _, pair := range [][2]string{{"B", "C"}, {"A", "B"}} {
		if _, err := g.RemoveNeighbor(ids[pair[0]], ids[pair[1]]); err != nil {
			t.Fatal(err)
		}
	}
	after := snapshotAll(t, g)
	for i := range before {
		if before[i].PowerRefs != after[i].PowerRefs || !slices.Equal(before[i].Prevs, after[i].Prevs) {
			t.Errorf("%s: before %+v, after %+v", before[i].Name, before[i], after[i])
		}
	}
}

func snapshotAll(t *testing.T, g *circuit.Graph) []circuit.NodeState {
	t.Helper()
	out := make([]circuit.NodeState, 0, g.NodeCount())
	for _, id := range g.Nodes() {
		out = append(out, state(t, g, id))
	}
	return out
}

func pathNames(g *circuit.Graph, paths []circuit.NodeSet) [][]string {
	out := make([][]string, 0, len(paths))
	for _, p := range paths {
		names := make([]string, 0, len(p))
		for _, id := range p.Sorted() {
			names = append(names, g.Name(id))
		}
		slices.Sort(names)
		out = append(out, names)
	}
	return out
}

func TestPathNodes(t *testing.T) {
	t.Run("single source", func(t *testing.T) {
		g, ids := build(t, []nodeSpec{input("S"), io("M"), io("N")},
			[2]string{"S", "M"}, [2]string{"M", "N"})
		mustStart(t, g, ids["S"], true)

		paths, err := g.PathNodes(ids["N"])
		if err != nil {
			t.Fatal(err)
		}
		want := [][]string{{"M", "N", "S"}}
		if got := pathNames(g, paths); !slices.EqualFunc(got, want, slices.Equal) {
			t.Errorf("paths = %v, want %v", got, want)
		}

		paths, _ = g.PathNodes(ids["S"])
		if got := pathNames(g, paths); !slices.EqualFunc(got, [][]string{{"S"}}, slices.Equal) {
			t.Errorf("source paths = %v", got)
		}
	})

	t.Run("two sources", func(t *testing.T) {
		g, ids := build(t, []nodeSpec{input("S1"), input("S2"), io("M")},
			[2]string{"S1", "M"}, [2]string{"S2", "M"})
		mustStart(t, g, ids["S1"], true)
		mustStart(t, g, ids["S2"], true)

		paths, _ := g.PathNodes(ids["M"])
		want := [][]string{{"M", "S1"}, {"M", "S2"}}
		if got := pathNames(g, paths); !slices.EqualFunc(got, want, slices.Equal) {
			t.Errorf("paths = %v, want %v", got, want)
		}
	})

	t.Run("diamond", func(t *testing.T) {
		g, ids := build(t, []nodeSpec{input("S"), io("A"), io("B"), io("C"), io("D")},
			[2]string{"S", "A"}, [2]string{"A", "B"}, [2]string{"A", "C"},
			[2]string{"B", "D"}, [2]string{"C", "D"})
		mustStart(t, g, ids["S"], true)

		paths, _ := g.PathNodes(ids["D"])
		want := [][]string{{"A", "B", "D", "S"}, {"A", "C", "D", "S"}}
		if got := pathNames(g, paths); !slices.EqualFunc(got, want, slices.Equal) {
			t.Errorf("paths = %v, want %v", got, want)
		}
	})

	t.Run("unpowered", func(t *testing.T) {
		g, ids := build(t, []nodeSpec{input("S"), io("M")}, [2]string{"S", "M"})
		for _, name := range []string{"S", "M"} {
			paths, err := g.PathNodes(ids[name])
			if err != nil || len(paths) != 0 {
				t.Errorf("%s: paths = %v, err = %v", name, paths, err)
			}
		}
	})

	t.Run("unknown", func(t *testing.T) {
		if _, err := circuit.New().PathNodes(3); !errors.Is(err, circuit.ErrUnknownNode) {
			t.Errorf("got %v", err)
		}
	})
}

func TestBuild(t *testing.T) {
	affected := false
	cfg := &config.CircuitConfig{
		Version: "v1",
		Nodes: []config.NodeDef{
			{ID: "gen", Kind: "input", PowerOnStart: true},
			{ID: "lever", Kind: "input", AffectedByBlackout: &affected},
			{ID: "wire", Kind: "io"},
			{ID: "alarm", Kind: "output", InvertSignal: true},
		},
		Edges: []config.EdgeDef{
			{From: "gen", To: "wire"},
			{From: "lever", To: "wire"},
			{From: "wire", To: "alarm"},
		},
	}
	g, err := circuit.Build(cfg)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if g.NodeCount() != 4 || len(g.Edges()) != 3 {
		t.Fatalf("got %d nodes, %d edges", g.NodeCount(), len(g.Edges()))
	}
	lever, _ := g.Lookup("lever")
	if state(t, g, lever).AffectedByBlackout {
		t.Errorf("lever should not be affected by blackout")
	}

	alarm, _ := g.Lookup("alarm")
	if !state(t, g, alarm).Powered {
		t.Errorf("alarm should read powered before start")
	}
	if err := g.Start(); err != nil {
		t.Fatal(err)
	}
	if state(t, g, alarm).Powered {
		t.Errorf("alarm should go dark once the generator starts")
	}
}

func TestBuild_Errors(t *testing.T) {
	cases := []struct {
		name string
		cfg  config.CircuitConfig
		want error
	}{
		{
			name: "illegal edge",
			cfg: config.CircuitConfig{
				Nodes: []config.NodeDef{{ID: "a", Kind: "input"}, {ID: "b", Kind: "input"}},
				Edges: []config.EdgeDef{{From: "a", To: "b"}},
			},
			want: circuit.ErrIllegalEdge,
		},
		{
			name: "unknown endpoint",
			cfg: config.CircuitConfig{
				Nodes: []config.NodeDef{{ID: "a", Kind: "io"}},
				Edges: []config.EdgeDef{{From: "a", To: "ghost"}},
			},
			want: circuit.ErrNullEndpoint,
		},
		{
			name: "bad kind",
			cfg:  config.CircuitConfig{Nodes: []config.NodeDef{{ID: "a", Kind: "relay"}}},
			want: circuit.ErrInvalidKind,
		},
		{
			name: "duplicate node",
			cfg:  config.CircuitConfig{Nodes: []config.NodeDef{{ID: "a", Kind: "io"}, {ID: "a", Kind: "io"}}},
			want: circuit.ErrDuplicateNode,
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := circuit.Build(&tc.cfg); !errors.Is(err, tc.want) {
				t.Errorf("Build: want %v, got %v", tc.want, err)
			}
		})
	}
}

func TestConnect_Duplicate(t *testing.T) {
	g, _ := build(t, []nodeSpec{io("a"), io("b")}, [2]string{"a", "b"})
	if err := g.Connect("b", "a"); err == nil {
		t.Errorf("expected an error for an existing edge")
	}
}
