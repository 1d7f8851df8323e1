package lsp

// Method names this endpoint exchanges with the editor.
const (
	MethodInitialize    = "initialize"
	MethodInitialized   = "initialized"
	MethodShutdown      = "shutdown"
	MethodExit          = "exit"
	MethodCancelRequest = "$/cancelRequest"

	MethodHover          = "textDocument/hover"
	MethodDefinition     = "textDocument/definition"
	MethodCompletion     = "textDocument/completion"
	MethodFormatting     = "textDocument/formatting"
	MethodDocumentSymbol = "textDocument/documentSymbol"

	MethodDidOpen   = "textDocument/didOpen"
	MethodDidChange = "textDocument/didChange"
	MethodDidClose  = "textDocument/didClose"

	// Server → client.
	MethodApplyEdit          = "workspace/applyEdit"
	MethodShowMessage        = "window/showMessage"
	MethodShowMessageRequest = "window/showMessageRequest"
	MethodPublishDiagnostics = "textDocument/publishDiagnostics"
)
