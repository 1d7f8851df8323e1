// Package lsp carries the protocol vocabulary this endpoint speaks with an
// editor and wires the session lifecycle onto the dispatcher.
//
// Only the shapes the machinery itself needs are defined here; feature
// payloads (completion lists, symbol trees, ...) belong to the semantic
// engine behind the registered handlers.
package lsp

import (
	"encoding/json"

	"mini-lsp/message"
)

// DocumentURI is a resource identifier, typically a file:// URI.
type DocumentURI string

// Position in a text document, zero-based line and UTF-16 character offset.
type Position struct {
	Line      int `json:"line"`
	Character int `json:"character"`
}

// Range in a text document, start and end positions.
type Range struct {
	Start Position `json:"start"`
	End   Position `json:"end"`
}

// Location is a range inside a resource.
type Location struct {
	URI   DocumentURI `json:"uri"`
	Range Range       `json:"range"`
}

// TextDocumentIdentifier identifies a text document.
type TextDocumentIdentifier struct {
	URI DocumentURI `json:"uri"`
}

// TextDocumentPositionParams is the common request shape "document + position".
type TextDocumentPositionParams struct {
	TextDocument TextDocumentIdentifier `json:"textDocument"`
	Position     Position               `json:"position"`
}

// TextEdit is one textual edit applicable to a document.
type TextEdit struct {
	Range   Range  `json:"range"`
	NewText string `json:"newText"`
}

// WorkspaceEdit is a set of edits across documents.
type WorkspaceEdit struct {
	Changes map[DocumentURI][]TextEdit `json:"changes,omitempty"`
}

// --- Lifecycle ---

// InitializeParams are the parameters of the initialize handshake call.
// Client capabilities are kept opaque: the dispatcher does not negotiate
// features, the semantic engine behind it does.
type InitializeParams struct {
	ProcessID    int             `json:"processId,omitempty"`
	RootURI      DocumentURI     `json:"rootUri,omitempty"`
	Capabilities json.RawMessage `json:"capabilities,omitempty"`
	Trace        string          `json:"trace,omitempty"`
}

// ServerCapabilities advertises what this endpoint answers.
type ServerCapabilities struct {
	TextDocumentSync   int  `json:"textDocumentSync,omitempty"`
	HoverProvider      bool `json:"hoverProvider,omitempty"`
	DefinitionProvider bool `json:"definitionProvider,omitempty"`
	CompletionProvider *struct {
		TriggerCharacters []string `json:"triggerCharacters,omitempty"`
	} `json:"completionProvider,omitempty"`
	DocumentSymbolProvider     bool `json:"documentSymbolProvider,omitempty"`
	DocumentFormattingProvider bool `json:"documentFormattingProvider,omitempty"`
}

// ServerInfo names the server in the handshake result.
type ServerInfo struct {
	Name    string `json:"name"`
	Version string `json:"version,omitempty"`
}

// InitializeResult is the handshake reply.
type InitializeResult struct {
	Capabilities ServerCapabilities `json:"capabilities"`
	ServerInfo   *ServerInfo        `json:"serverInfo,omitempty"`
}

// CancelParams names the call a $/cancelRequest notification targets.
type CancelParams struct {
	ID message.ID `json:"id"`
}

// --- Representative requests ---

// HoverParams are the parameters of textDocument/hover.
type HoverParams struct {
	TextDocumentPositionParams
}

// MarkupContent is human-readable text with a declared format.
type MarkupContent struct {
	Kind  string `json:"kind"` // "plaintext" or "markdown"
	Value string `json:"value"`
}

// Hover is the result of textDocument/hover.
type Hover struct {
	Contents MarkupContent `json:"contents"`
	Range    *Range        `json:"range,omitempty"`
}

// --- Server-originated messages ---

// ApplyWorkspaceEditParams asks the editor to apply an edit.
type ApplyWorkspaceEditParams struct {
	Label string        `json:"label,omitempty"`
	Edit  WorkspaceEdit `json:"edit"`
}

// ApplyWorkspaceEditResponse reports whether the editor applied it.
type ApplyWorkspaceEditResponse struct {
	Applied       bool   `json:"applied"`
	FailureReason string `json:"failureReason,omitempty"`
}

// MessageType classifies window/showMessage notifications.
type MessageType int

const (
	MessageTypeError   MessageType = 1
	MessageTypeWarning MessageType = 2
	MessageTypeInfo    MessageType = 3
	MessageTypeLog     MessageType = 4
)

// ShowMessageParams is a message the editor should display.
type ShowMessageParams struct {
	Type    MessageType `json:"type"`
	Message string      `json:"message"`
}

// DiagnosticSeverity classifies diagnostics.
type DiagnosticSeverity int

const (
	SeverityError   DiagnosticSeverity = 1
	SeverityWarning DiagnosticSeverity = 2
	SeverityInfo    DiagnosticSeverity = 3
	SeverityHint    DiagnosticSeverity = 4
)

// Diagnostic is one issue in a document.
type Diagnostic struct {
	Range    Range              `json:"range"`
	Severity DiagnosticSeverity `json:"severity,omitempty"`
	Source   string             `json:"source,omitempty"`
	Message  string             `json:"message"`
}

// PublishDiagnosticsParams pushes the current diagnostics of a document.
type PublishDiagnosticsParams struct {
	URI         DocumentURI  `json:"uri"`
	Diagnostics []Diagnostic `json:"diagnostics"`
}
