package cli

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/gyaneshwarpardhi/powergrid/internal/circuit"
	"github.com/gyaneshwarpardhi/powergrid/internal/event"
)

// parseSwitch accepts on/off style arguments.
func parseSwitch(s string) (bool, error) {
	switch strings.ToLower(s) {
	case "on", "true", "1":
		return true, nil
	case "off", "false", "0":
		return false, nil
	}
	return false, fmt.Errorf("expected on or off, got %q", s)
}

func nodePath(name, suffix string) string {
	return "/v1/nodes/" + url.PathEscape(name) + suffix
}

func (c *CLI) nodesCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "nodes",
		Short: "List every node of the live circuit",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			var resp struct {
				Nodes []circuit.NodeState `json:"nodes"`
			}
			if err := c.client().do(cmd.Context(), "GET", "/v1/nodes", nil, &resp); err != nil {
				return err
			}
			return writeStateTable(cmd.OutOrStdout(), resp.Nodes)
		},
	}
}

func (c *CLI) nodeCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "node <name>",
		Short: "Show one node with its predecessors and neighbors",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var st circuit.NodeState
			if err := c.client().do(cmd.Context(), "GET", nodePath(args[0], ""), nil, &st); err != nil {
				return err
			}
			return writeNode(cmd, st)
		},
	}
}

func writeNode(cmd *cobra.Command, st circuit.NodeState) error {
	tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintf(tw, "name:\t%s\n", st.Name)
	fmt.Fprintf(tw, "kind:\t%s\n", st.Kind)
	fmt.Fprintf(tw, "powered:\t%v\n", st.Powered)
	fmt.Fprintf(tw, "refs:\t%d\n", st.PowerRefs)
	fmt.Fprintf(tw, "flags:\t%s\n", flags(st))
	prevs := make([]string, 0, len(st.Prevs))
	for _, p := range st.Prevs {
		prevs = append(prevs, fmt.Sprintf("%s(%d)", p.Node, p.Count))
	}
	fmt.Fprintf(tw, "prevs:\t%s\n", orDash(strings.Join(prevs, " ")))
	fmt.Fprintf(tw, "neighbors:\t%s\n", orDash(strings.Join(st.Neighbors, " ")))
	return tw.Flush()
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

func (c *CLI) pathsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "paths <name>",
		Short: "Print every path that currently powers a node",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var resp struct {
				Paths [][]string `json:"paths"`
			}
			if err := c.client().do(cmd.Context(), "GET", nodePath(args[0], "/paths"), nil, &resp); err != nil {
				return err
			}
			if len(resp.Paths) == 0 {
				c.Logger.Info("node is not powered through any path", "node", args[0])
				return nil
			}
			for _, p := range resp.Paths {
				fmt.Fprintln(cmd.OutOrStdout(), strings.Join(p, " "))
			}
			return nil
		},
	}
}

func (c *CLI) signalCommand() *cobra.Command {
	var excludeSelf bool
	cmd := &cobra.Command{
		Use:   "signal <input> <on|off>",
		Short: "Activate or deactivate an input node",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			on, err := parseSwitch(args[1])
			if err != nil {
				return err
			}
			includeSelf := !excludeSelf
			body := map[string]interface{}{"value": on, "include_self": includeSelf}
			return c.postNode(cmd, args[0], "/signal", body)
		},
	}
	cmd.Flags().BoolVar(&excludeSelf, "exclude-self", false, "propagate to neighbors without changing the source itself")
	return cmd
}

func (c *CLI) blackoutCommand() *cobra.Command {
	var node string
	cmd := &cobra.Command{
		Use:   "blackout <on|off>",
		Short: "Apply or lift a blackout on one node or the whole circuit",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			on, err := parseSwitch(args[0])
			if err != nil {
				return err
			}
			body := map[string]bool{"blackout": on}
			if node != "" {
				return c.postNode(cmd, node, "/blackout", body)
			}
			var resp struct {
				NodesChanged int `json:"nodes_changed"`
			}
			if err := c.client().do(cmd.Context(), "POST", "/v1/blackout", body, &resp); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "blackout %s: %d nodes changed\n", args[0], resp.NodesChanged)
			return nil
		},
	}
	cmd.Flags().StringVar(&node, "node", "", "limit the blackout to this node")
	return cmd
}

func (c *CLI) forceCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "force <name> <on|off>",
		Short: "Set or clear the debug force-on flag of a node",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			on, err := parseSwitch(args[1])
			if err != nil {
				return err
			}
			return c.postNode(cmd, args[0], "/force", map[string]bool{"powered": on})
		},
	}
}

func (c *CLI) postNode(cmd *cobra.Command, name, suffix string, body interface{}) error {
	var st circuit.NodeState
	if err := c.client().do(cmd.Context(), "POST", nodePath(name, suffix), body, &st); err != nil {
		return err
	}
	return writeNode(cmd, st)
}

func (c *CLI) connectCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "connect <a> <b>",
		Short: "Add an edge between two nodes",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			var resp struct {
				Created bool `json:"created"`
			}
			body := map[string]string{"a": args[0], "b": args[1]}
			if err := c.client().do(cmd.Context(), "POST", "/v1/edges", body, &resp); err != nil {
				return err
			}
			if !resp.Created {
				fmt.Fprintf(cmd.OutOrStdout(), "%s and %s are already connected\n", args[0], args[1])
				return nil
			}
			fmt.Fprintf(cmd.OutOrStdout(), "connected %s %s\n", args[0], args[1])
			return nil
		},
	}
}

func (c *CLI) disconnectCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "disconnect <a> <b>",
		Short: "Remove the edge between two nodes",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			var resp struct {
				Removed bool `json:"removed"`
			}
			body := map[string]string{"a": args[0], "b": args[1]}
			if err := c.client().do(cmd.Context(), "DELETE", "/v1/edges", body, &resp); err != nil {
				return err
			}
			if !resp.Removed {
				fmt.Fprintf(cmd.OutOrStdout(), "%s and %s are not connected\n", args[0], args[1])
				return nil
			}
			fmt.Fprintf(cmd.OutOrStdout(), "disconnected %s %s\n", args[0], args[1])
			return nil
		},
	}
}

func (c *CLI) isolateCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "isolate <name>",
		Short: "Remove every outgoing edge of a node",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var st circuit.NodeState
			if err := c.client().do(cmd.Context(), "DELETE", nodePath(args[0], "/edges"), nil, &st); err != nil {
				return err
			}
			return writeNode(cmd, st)
		},
	}
}

func (c *CLI) changesCommand() *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "changes",
		Short: "Show recent power changes, oldest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			var resp struct {
				Changes []event.Change `json:"changes"`
			}
			path := "/v1/changes?limit=" + strconv.Itoa(limit)
			if err := c.client().do(cmd.Context(), "GET", path, nil, &resp); err != nil {
				return err
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "SEQ\tTIME\tNODE\tPOWERED\tCAUSE")
			for _, ch := range resp.Changes {
				fmt.Fprintf(tw, "%d\t%s\t%s\t%v\t%s\n", ch.Seq, ch.FiredAt.Format("15:04:05.000"), ch.NodeName, ch.Powered, ch.Cause)
			}
			return tw.Flush()
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "number of changes to show")
	return cmd
}

func (c *CLI) reloadCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "reload",
		Short: "Ask the server to re-read its circuit file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			var resp struct {
				Mode  string `json:"mode"`
				Nodes int    `json:"nodes_count"`
				Edges int    `json:"edges_count"`
			}
			if err := c.client().do(cmd.Context(), "POST", "/v1/circuit/reload", nil, &resp); err != nil {
				return err
			}
			c.Logger.Info("circuit reloaded", "mode", resp.Mode, "nodes", resp.Nodes, "edges", resp.Edges)
			return nil
		},
	}
}
