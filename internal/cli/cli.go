// Package cli implements powerctl, the command-line client for powergrid.
//
// Offline commands (check, render) load a circuit file and run it in
// process. Every other command talks to a running server over its HTTP API.
package cli

import (
	"context"
	"io"
	"os"
	"time"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"
)

const (
	appName        = "powerctl"
	defaultServer  = "http://localhost:8080"
	serverEnv      = "POWERGRID_SERVER"
	defaultTimeout = 10 * time.Second
)

// Log levels exported for use in main.go.
const (
	LogDebug = log.DebugLevel
	LogInfo  = log.InfoLevel
)

// CLI holds shared state for all commands.
type CLI struct {
	Logger *log.Logger
	out    io.Writer
	server string
}

// New creates a CLI that writes results to out and logs to logw.
func New(out, logw io.Writer, level log.Level) *CLI {
	return &CLI{
		Logger: log.NewWithOptions(logw, log.Options{
			ReportTimestamp: true,
			TimeFormat:      "15:04:05.00",
			Level:           level,
		}),
		out: out,
	}
}

// SetLogLevel updates the logger's level.
func (c *CLI) SetLogLevel(level log.Level) {
	c.Logger.SetLevel(level)
}

// RootCommand creates the root cobra command with all subcommands registered.
func (c *CLI) RootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:           appName,
		Short:         "powerctl inspects and drives powergrid circuits",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	server := os.Getenv(serverEnv)
	if server == "" {
		server = defaultServer
	}
	root.PersistentFlags().StringVar(&c.server, "server", server, "powergrid server URL (env "+serverEnv+")")

	root.AddCommand(c.checkCommand())
	root.AddCommand(c.renderCommand())
	root.AddCommand(c.nodesCommand())
	root.AddCommand(c.nodeCommand())
	root.AddCommand(c.pathsCommand())
	root.AddCommand(c.signalCommand())
	root.AddCommand(c.blackoutCommand())
	root.AddCommand(c.forceCommand())
	root.AddCommand(c.connectCommand())
	root.AddCommand(c.disconnectCommand())
	root.AddCommand(c.isolateCommand())
	root.AddCommand(c.changesCommand())
	root.AddCommand(c.reloadCommand())
	return root
}

// Execute runs the CLI with the given arguments.
func (c *CLI) Execute(ctx context.Context, args []string) error {
	root := c.RootCommand()
	root.SetArgs(args)
	root.SetOut(c.out)
	return root.ExecuteContext(ctx)
}

func (c *CLI) client() *client {
	return newClient(c.server, defaultTimeout)
}
