// Package server exposes a threadchat Responder over HTTP.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/boat-builder/threadchat"
)

// maxBodyBytes bounds the size of a chat request body.
const maxBodyBytes = 1 << 20

// genericFailure is all a caller learns about a failed generation.
const genericFailure = "Failed to generate response. Please try again."

type errorResponse struct {
	Error string `json:"error"`
}

type Server struct {
	responder threadchat.Responder
	logger    *slog.Logger
}

// NewServer returns the HTTP handler for the chat API.
func NewServer(responder threadchat.Responder, logger *slog.Logger) http.Handler {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{responder: responder, logger: logger}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", s.handleHealthz)
	mux.HandleFunc("POST "+threadchat.ChatPath, s.handleChat)
	mux.HandleFunc("GET "+threadchat.ChatPath+"/schema", s.handleSchema)

	return chainMiddlewares(mux, withCORS, withLogging(logger), withRequestID)
}

func (s *Server) handleHealthz(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (s *Server) handleSchema(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, GenerateSchema[threadchat.ChatRequest]())
}

// handleChat runs one generation and streams the reply text back, with the
// resolved thread id in the X-Thread-Id header.
func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	logger := s.logger.With("request_id", RequestIDFromContext(r.Context()))

	var req threadchat.ChatRequest
	if err := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes)).Decode(&req); err != nil {
		logger.Warn("Invalid chat request", "error", err)
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid JSON body"})
		return
	}

	logger.Info("Chat request", "threadID", req.ThreadID, "messageCount", len(req.Messages))
	// a client disconnect does not abandon the run; request-scoped values are kept
	reply, err := s.responder.Respond(context.WithoutCancel(r.Context()), req.Messages, req.ThreadID)
	if err != nil {
		logger.Error("Chat generation failed", "threadID", req.ThreadID, "error", err)
		if errors.Is(err, threadchat.ErrNoUserMessage) {
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
			return
		}
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: genericFailure})
		return
	}

	w.Header().Set(threadchat.ThreadIDHeader, reply.ThreadID)
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Header().Set("Cache-Control", "no-cache")
	w.WriteHeader(http.StatusOK)
	if _, err := io.WriteString(w, reply.Text); err != nil {
		logger.Error("Failed to write reply", "error", err)
		return
	}
	if f, ok := w.(http.Flusher); ok {
		f.Flush()
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
