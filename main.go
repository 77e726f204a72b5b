package main

import (
	"database/sql"
	"os"

	"github.com/charmbracelet/log"
	_ "github.com/lib/pq"
	"github.com/mark3labs/mcp-go/server"

	"github.com/machinae-labs/mcp-server-age-bridge/core"
	"github.com/machinae-labs/mcp-server-age-bridge/pkg/age"
	"github.com/machinae-labs/mcp-server-age-bridge/pkg/config"
	graphTool "github.com/machinae-labs/mcp-server-age-bridge/pkg/tools/graph"
)

// Bridge manages all available tools
type Bridge struct {
	tools map[string]core.Tool
}

func (b *Bridge) addTool(name string, tool core.Tool) {
	b.tools[name] = tool
	mcpServer.AddTool(tool.Handle(), tool.Handler)
}

var (
	mcpServer *server.MCPServer
	bridge    Bridge
)

func init() {
	mcpServer = server.NewMCPServer(
		"AGE Bridge MCP Server",
		"1.0.0",
		server.WithResourceCapabilities(false, false),
		server.WithLogging(),
	)

	bridge = Bridge{
		tools: make(map[string]core.Tool),
	}
}

func main() {
	cfg := config.Load()

	if level, err := log.ParseLevel(cfg.Log.Level); err == nil {
		log.SetLevel(level)
	}

	if err := cfg.Validate(); err != nil {
		log.Fatal(err)
	}

	source, err := cfg.DataSourceName()
	if err != nil {
		log.Fatal("could not assemble connection string", "error", err)
	}

	db, err := sql.Open("postgres", source.String())
	if err != nil {
		log.Fatal("could not open database", "dsn", source.Masked(), "error", err)
	}
	defer db.Close()

	if err := db.Ping(); err != nil {
		log.Fatal("could not reach database", "dsn", source.Masked(), "error", err)
	}

	repo := age.NewRepository(db, age.Options{
		IdentWords:     cfg.Ident.Words,
		IdentDelimiter: cfg.Ident.Delimiter,
		CacheCapacity:  cfg.Cache.Capacity,
	})

	bridge.addTool("graph", graphTool.New(repo))

	log.Info("serving on stdio", "database", source.Masked())

	if err := server.ServeStdio(mcpServer); err != nil {
		log.Error("server error", "error", err)
		os.Exit(1)
	}
}
