// Package mcpserver provides an MCP (Model Context Protocol) server
// that exposes inkwell tools for LLM integration via stdio transport.
package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/starford/inkwell/internal/storage"
	"github.com/starford/inkwell/internal/workspace"
)

// Server wraps the MCP server with inkwell tools.
type Server struct {
	mcp  *server.MCPServer
	ctrl *workspace.Controller
	mgr  *storage.Manager
	root string
}

// New creates a new MCP server with all inkwell tools registered.
// root is the directory workspace root, used to place uploaded assets.
func New(ctrl *workspace.Controller, mgr *storage.Manager, root string) *Server {
	s := &Server{ctrl: ctrl, mgr: mgr, root: root}

	s.mcp = server.NewMCPServer(
		"Inkwell",
		"1.0.0",
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
	)

	s.mcp.AddTool(mcp.NewTool("list_documents",
		mcp.WithDescription("List all documents in the workspace, newest first."),
	), s.listDocuments)

	s.mcp.AddTool(mcp.NewTool("read_document",
		mcp.WithDescription("Read the full content of a document, including its metadata envelope."),
		mcp.WithString("path", mcp.Required(), mcp.Description("Relative path to the document (e.g. Intro/article.md)")),
	), s.readDocument)

	s.mcp.AddTool(mcp.NewTool("create_article",
		mcp.WithDescription("Create a new article with a date-prefixed unique name and open it. "+
			"Optional body MUST follow the canonical document format (metadata envelope with "+
			"theme and themeName, Markdown body). Read the contract first via the "+
			"get_document_contract tool or the inkwell://document-format resource."),
		mcp.WithString("title", mcp.Required(), mcp.Description("Article title, used to derive the name")),
		mcp.WithString("body", mcp.Description("Optional Markdown body for the new article")),
	), s.createArticle)

	s.mcp.AddTool(mcp.NewTool("update_document",
		mcp.WithDescription("Open a document, replace its Markdown body, and save immediately. "+
			"The metadata envelope is preserved."),
		mcp.WithString("path", mcp.Required(), mcp.Description("Relative path of the document to update")),
		mcp.WithString("body", mcp.Required(), mcp.Description("New Markdown body (without the envelope)")),
	), s.updateDocument)

	s.mcp.AddTool(mcp.NewTool("upload_asset",
		mcp.WithDescription("Download or decode an image and save it into the open document's "+
			"images directory. Returns a markdownImage field ready to paste into the body. "+
			"Only available on the directory backend."),
		mcp.WithString("url", mcp.Required(), mcp.Description("HTTP(S) URL or base64 data: URI of the asset")),
		mcp.WithString("filename", mcp.Description("Optional filename override")),
	), s.uploadAsset)

	s.mcp.AddTool(mcp.NewTool("get_document_contract",
		mcp.WithDescription("Returns the canonical inkwell document format contract. "+
			"Call this before creating or updating documents to ensure correct structure."),
	), s.getDocumentContract)

	// Resource: document format contract.
	s.mcp.AddResource(
		mcp.NewResource("inkwell://document-format", "Document Format Contract",
			mcp.WithResourceDescription("Canonical Markdown document format that all articles follow."),
			mcp.WithMIMEType("text/markdown"),
		),
		s.readDocumentFormatResource,
	)

	return s
}

// ServeStdio starts the MCP server on stdin/stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcp)
}

// MCPServer returns the underlying server for testing.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcp
}

func (s *Server) listDocuments(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	files, err := s.ctrl.Files()
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	out, _ := json.MarshalIndent(files, "", "  ")
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) readDocument(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := req.RequireString("path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	a := s.mgr.Active()
	if a == nil {
		return mcp.NewToolResultError("no storage backend selected"), nil
	}
	content, err := a.ReadFile(path)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("not found: %s", path)), nil
	}
	return mcp.NewToolResultText(content), nil
}

func (s *Server) createArticle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	title, err := req.RequireString("title")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	doc, err := s.ctrl.Create(title)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if body, bodyErr := req.RequireString("body"); bodyErr == nil && body != "" {
		if err := s.ctrl.SetBody(body); err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		if err := s.ctrl.Save(); err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
	}
	return mcp.NewToolResultText(fmt.Sprintf("created: %s", doc.Path)), nil
}

func (s *Server) updateDocument(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := req.RequireString("path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	body, err := req.RequireString("body")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if _, err := s.ctrl.Open(path); err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("not found: %s", path)), nil
	}
	if err := s.ctrl.SetBody(body); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if err := s.ctrl.Save(); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("saved: %s", path)), nil
}

func (s *Server) getDocumentContract(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultText(DocumentFormatContract), nil
}

func (s *Server) readDocumentFormatResource(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      "inkwell://document-format",
			MIMEType: "text/markdown",
			Text:     DocumentFormatContract,
		},
	}, nil
}
