package main

import (
	"fmt"

	"github.com/urfave/cli/v2"

	"github.com/panbanda/sift/internal/mcpserver"
)

func mcpCmd() *cli.Command {
	return &cli.Command{
		Name:  "mcp",
		Usage: "MCP (Model Context Protocol) server for LLM tool integration",
		Subcommands: []*cli.Command{
			{
				Name:  "serve",
				Usage: "Start the MCP server over stdio",
				Description: `Starts an MCP server over stdio transport that exposes sift's comparison
as tools that LLMs can invoke.

To use with Claude Desktop, add to your config:
  {
    "mcpServers": {
      "sift": {
        "command": "sift",
        "args": ["mcp", "serve"]
      }
    }
  }

Available tools:
  - compare_files     Compare files and directories on disk
  - compare_sources   Compare source code passed inline`,
				Action: runMCPServeCmd,
			},
			{
				Name:   "manifest",
				Usage:  "Print the server.json manifest for the MCP registry",
				Action: runMCPManifestCmd,
			},
		},
	}
}

func runMCPServeCmd(c *cli.Context) error {
	cfg, _, err := loadConfig(c)
	if err != nil {
		return err
	}
	server := mcpserver.NewServer(version, cfg, logger(c))
	return server.Run(c.Context)
}

func runMCPManifestCmd(c *cli.Context) error {
	data, err := mcpserver.GenerateManifest(version)
	if err != nil {
		return err
	}
	fmt.Fprintln(c.App.Writer, string(data))
	return nil
}
