package mcp

import (
	"database/sql"
	"maps"
	"slices"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/hpungsan/spans/internal/config"
	"github.com/hpungsan/spans/internal/transform"
)

// KnownTypes lists the tool name prefixes that can be disabled as a group.
var KnownTypes = []string{"series", "transform"}

// toolEntry pairs a tool definition with a handler factory.
type toolEntry struct {
	def     mcp.Tool
	handler func(*Handlers) server.ToolHandlerFunc
}

var toolRegistry = map[string]toolEntry{
	"series_store": {
		def:     storeToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleStore },
	},
	"series_fetch": {
		def:     fetchToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleFetch },
	},
	"series_list": {
		def:     listToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleList },
	},
	"series_delete": {
		def:     deleteToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleDelete },
	},
	"series_combine": {
		def:     combineToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleCombine },
	},
	"series_apply": {
		def:     applyToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleApply },
	},
	"series_pipeline": {
		def:     pipelineToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandlePipeline },
	},
	"series_export": {
		def:     exportToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleExport },
	},
	"series_import": {
		def:     importToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleImport },
	},
	"transform_list": {
		def:     transformListToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleTransformList },
	},
}

// AllToolNames returns every tool name, sorted.
func AllToolNames() []string {
	return slices.Sorted(maps.Keys(toolRegistry))
}

// ValidateDisabledTools returns the names in names that are not tools.
func ValidateDisabledTools(names []string) []string {
	unknown := make([]string, 0)
	for _, name := range names {
		if _, ok := toolRegistry[name]; !ok {
			unknown = append(unknown, name)
		}
	}
	return unknown
}

// ValidateDisabledTypes returns the names in names that are not known types.
func ValidateDisabledTypes(names []string) []string {
	unknown := make([]string, 0)
	for _, name := range names {
		if !slices.Contains(KnownTypes, name) {
			unknown = append(unknown, name)
		}
	}
	return unknown
}

// GetTypeForTool returns the prefix of a "type_action" tool name.
func GetTypeForTool(toolName string) string {
	typ, _, ok := strings.Cut(toolName, "_")
	if !ok {
		return ""
	}
	return typ
}

// ExpandTypesToTools returns the tools belonging to any of types.
func ExpandTypesToTools(types []string) []string {
	if len(types) == 0 {
		return nil
	}
	tools := make([]string, 0)
	for _, name := range AllToolNames() {
		if slices.Contains(types, GetTypeForTool(name)) {
			tools = append(tools, name)
		}
	}
	return tools
}

// NewServer creates an MCP server exposing the series tools. Tools named in
// cfg.DisabledTools or belonging to cfg.DisabledTypes are not registered.
// A nil dispatcher means the built-in transforms.
func NewServer(db *sql.DB, cfg *config.Config, d *transform.Dispatcher, version string) *server.MCPServer {
	s := server.NewMCPServer(
		"spans",
		version,
		server.WithToolCapabilities(true),
	)
	h := NewHandlers(db, cfg, d)

	disabled := make(map[string]bool)
	if cfg != nil {
		for _, tool := range ExpandTypesToTools(cfg.DisabledTypes) {
			disabled[tool] = true
		}
		for _, name := range cfg.DisabledTools {
			disabled[name] = true
		}
	}

	for name, entry := range toolRegistry {
		if disabled[name] {
			continue
		}
		s.AddTool(entry.def, entry.handler(h))
	}
	return s
}

// Run serves the tools over stdio until stdin closes.
func Run(db *sql.DB, cfg *config.Config, d *transform.Dispatcher, version string) error {
	return server.ServeStdio(NewServer(db, cfg, d, version))
}
