package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"
)

// HTTPAPIServer exposes the tool surface over HTTP for deployments
// where a stdio MCP session is not practical.
type HTTPAPIServer struct {
	server  *RAGServer
	httpSrv *http.Server
	logger  *zap.Logger
	port    int
}

// CallRequest is the request body for POST /tools/call.
type CallRequest struct {
	Name      string                 `json:"name"`
	Arguments map[string]interface{} `json:"arguments"`
}

// HealthResponse is the response body for GET /health.
type HealthResponse struct {
	Status  string `json:"status"`
	Service string `json:"service"`
	Version string `json:"version"`
}

// jsonRPCRequest is a JSON-RPC 2.0 request for POST /mcp.
type jsonRPCRequest struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      interface{}     `json:"id"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params"`
}

type jsonRPCResponse struct {
	JSONRPC string        `json:"jsonrpc"`
	ID      interface{}   `json:"id"`
	Result  interface{}   `json:"result,omitempty"`
	Error   *jsonRPCError `json:"error,omitempty"`
}

type jsonRPCError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

const (
	rpcParseError     = -32700
	rpcInvalidRequest = -32600
	rpcMethodNotFound = -32601
	rpcInvalidParams  = -32602
)

func NewHTTPAPIServer(ragServer *RAGServer, port int, logger *zap.Logger) *HTTPAPIServer {
	return &HTTPAPIServer{
		server: ragServer,
		logger: logger,
		port:   port,
	}
}

// Start starts the HTTP API server in a goroutine.
func (h *HTTPAPIServer) Start() error {
	mux := http.NewServeMux()

	mux.HandleFunc("/health", h.handleHealth)
	mux.HandleFunc("/tools", h.handleListTools)
	mux.HandleFunc("/tools/call", h.handleCallTool)
	mux.HandleFunc("/mcp", h.handleMCP)

	h.httpSrv = &http.Server{
		Addr:         fmt.Sprintf(":%d", h.port),
		Handler:      mux,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 300 * time.Second, // document processing can take a while
	}

	go func() {
		h.logger.Info("HTTP API server starting", zap.Int("port", h.port))
		if err := h.httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			h.logger.Error("HTTP API server error", zap.Error(err))
		}
	}()

	return nil
}

// Stop gracefully stops the HTTP API server.
func (h *HTTPAPIServer) Stop(ctx context.Context) error {
	if h.httpSrv != nil {
		return h.httpSrv.Shutdown(ctx)
	}
	return nil
}

func (h *HTTPAPIServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	writeJSON(w, http.StatusOK, HealthResponse{
		Status:  "healthy",
		Service: h.server.config.ServerName,
		Version: h.server.config.ServerVersion,
	})
}

func (h *HTTPAPIServer) handleListTools(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"tools": h.server.Definitions(),
	})
}

func (h *HTTPAPIServer) handleCallTool(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req CallRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if req.Name == "" {
		http.Error(w, "Tool name required", http.StatusBadRequest)
		return
	}

	result := h.server.CallTool(r.Context(), req.Name, req.Arguments)
	writeJSON(w, http.StatusOK, result)
}

// handleMCP is a minimal JSON-RPC 2.0 wrapper over the tool surface,
// supporting tools/list and tools/call.
func (h *HTTPAPIServer) handleMCP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req jsonRPCRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusOK, jsonRPCResponse{
			JSONRPC: "2.0",
			Error:   &jsonRPCError{Code: rpcParseError, Message: "parse error"},
		})
		return
	}

	resp := jsonRPCResponse{JSONRPC: "2.0", ID: req.ID}

	switch req.Method {
	case "tools/list":
		resp.Result = map[string]interface{}{"tools": h.server.Definitions()}

	case "tools/call":
		var params CallRequest
		if err := json.Unmarshal(req.Params, &params); err != nil || params.Name == "" {
			resp.Error = &jsonRPCError{Code: rpcInvalidParams, Message: "invalid params: name required"}
			break
		}
		result := h.server.CallTool(r.Context(), params.Name, params.Arguments)
		resp.Result = map[string]interface{}{
			"content": []map[string]interface{}{
				{"type": "text", "text": marshalEnvelope(result)},
			},
		}

	default:
		resp.Error = &jsonRPCError{Code: rpcMethodNotFound, Message: fmt.Sprintf("method not found: %s", req.Method)}
	}

	writeJSON(w, http.StatusOK, resp)
}

func marshalEnvelope(result map[string]interface{}) string {
	data, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return fmt.Sprintf(`{"success": false, "error": %q}`, err.Error())
	}
	return string(data)
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}
