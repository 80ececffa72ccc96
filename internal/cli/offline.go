package cli

import (
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/gyaneshwarpardhi/powergrid/internal/circuit"
	"github.com/gyaneshwarpardhi/powergrid/internal/config"
	"github.com/gyaneshwarpardhi/powergrid/internal/render"
)

// simOpts are the offline simulation flags shared by check and render.
type simOpts struct {
	signals  []string
	blackout bool
}

func (o *simOpts) register(cmd *cobra.Command) {
	cmd.Flags().StringSliceVar(&o.signals, "signal", nil, "activate these input nodes after start (repeatable)")
	cmd.Flags().BoolVar(&o.blackout, "blackout", false, "apply a global blackout after start")
}

// simulate loads path, builds and starts the circuit, then applies opts.
func (c *CLI) simulate(path string, opts simOpts) (*circuit.Graph, *config.CircuitConfig, error) {
	loader, err := config.NewLoader(path)
	if err != nil {
		return nil, nil, err
	}
	cfg := loader.Config()
	if err := config.Validate(cfg); err != nil {
		return nil, nil, err
	}
	g, err := circuit.Build(cfg)
	if err != nil {
		return nil, nil, err
	}
	if err := g.Start(); err != nil {
		return nil, nil, err
	}
	for _, name := range opts.signals {
		id, ok := g.Lookup(name)
		if !ok {
			return nil, nil, fmt.Errorf("%w: %q", circuit.ErrUnknownNode, name)
		}
		if err := g.StartSignal(id, true, true); err != nil {
			return nil, nil, err
		}
	}
	if opts.blackout {
		n := g.SetGlobalBlackout(true)
		c.Logger.Debug("blackout applied", "nodes", n)
	}
	return g, cfg, nil
}

func (c *CLI) checkCommand() *cobra.Command {
	var opts simOpts
	cmd := &cobra.Command{
		Use:   "check <circuit-file>",
		Short: "Validate a circuit file and print the powered state after start",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			g, cfg, err := c.simulate(args[0], opts)
			if err != nil {
				return err
			}
			c.Logger.Info("circuit ok", "nodes", len(cfg.Nodes), "edges", len(cfg.Edges))
			return printStates(cmd.OutOrStdout(), g)
		},
	}
	opts.register(cmd)
	return cmd
}

func printStates(w io.Writer, g *circuit.Graph) error {
	states := make([]circuit.NodeState, 0, g.NodeCount())
	for _, id := range g.Nodes() {
		st, err := g.Snapshot(id)
		if err != nil {
			return err
		}
		states = append(states, st)
	}
	return writeStateTable(w, states)
}

func writeStateTable(w io.Writer, states []circuit.NodeState) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "NODE\tKIND\tPOWERED\tREFS\tFLAGS")
	for _, st := range states {
		fmt.Fprintf(tw, "%s\t%s\t%v\t%d\t%s\n", st.Name, st.Kind, st.Powered, st.PowerRefs, flags(st))
	}
	return tw.Flush()
}

func flags(st circuit.NodeState) string {
	var out []byte
	add := func(on bool, f string) {
		if !on {
			return
		}
		if len(out) > 0 {
			out = append(out, ',')
		}
		out = append(out, f...)
	}
	add(st.InvertSignal, "inverted")
	add(st.BlackedOut, "blackout")
	add(st.ForcedOn, "forced")
	if len(out) == 0 {
		return "-"
	}
	return string(out)
}

func (c *CLI) renderCommand() *cobra.Command {
	var (
		opts   simOpts
		live   bool
		format string
		output string
	)
	cmd := &cobra.Command{
		Use:   "render [circuit-file]",
		Short: "Draw a circuit as Graphviz DOT or SVG",
		Long:  "Draw a circuit file after start, or the live circuit of a running server with --live.",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if format != "dot" && format != "svg" {
				return fmt.Errorf("format must be dot or svg, got %q", format)
			}

			var data []byte
			switch {
			case live:
				if err := c.client().do(cmd.Context(), "GET", "/v1/circuit/graph?format="+format, nil, &data); err != nil {
					return err
				}
			case len(args) == 1:
				g, _, err := c.simulate(args[0], opts)
				if err != nil {
					return err
				}
				dot := render.ToDOT(g)
				data = []byte(dot)
				if format == "svg" {
					if data, err = render.RenderSVG(cmd.Context(), dot); err != nil {
						return err
					}
				}
			default:
				return fmt.Errorf("a circuit file or --live is required")
			}

			if output == "" {
				_, err := cmd.OutOrStdout().Write(data)
				return err
			}
			if err := os.WriteFile(output, data, 0o644); err != nil {
				return err
			}
			c.Logger.Info("wrote diagram", "path", output, "format", format)
			return nil
		},
	}
	opts.register(cmd)
	cmd.Flags().BoolVar(&live, "live", false, "render the live circuit of --server")
	cmd.Flags().StringVarP(&format, "format", "f", "dot", "output format: dot or svg")
	cmd.Flags().StringVarP(&output, "output", "o", "", "write to this file instead of stdout")
	return cmd
}
