// Package llmtest provides a fake OpenAI-compatible chat completion server for tests.
package llmtest

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	openai "github.com/sashabaranov/go-openai"
)

// Reply produces the assistant content for a request, or a non-200 status to fail it.
type Reply func(req openai.ChatCompletionRequest) (content string, status int)

// Server records chat requests and answers them with Reply.
type Server struct {
	*httptest.Server

	mu       sync.Mutex
	requests []openai.ChatCompletionRequest
}

// NewServer starts a fake server closed at test cleanup.
func NewServer(t *testing.T, reply Reply) *Server {
	t.Helper()
	s := &Server{}
	s.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req openai.ChatCompletionRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		s.mu.Lock()
		s.requests = append(s.requests, req)
		s.mu.Unlock()

		content, status := reply(req)
		w.Header().Set("Content-Type", "application/json")
		if status != 0 && status != http.StatusOK {
			w.WriteHeader(status)
			_ = json.NewEncoder(w).Encode(map[string]any{
				"error": map[string]any{"message": http.StatusText(status), "type": "server_error"},
			})
			return
		}
		_ = json.NewEncoder(w).Encode(openai.ChatCompletionResponse{
			ID:    "chatcmpl-test",
			Model: req.Model,
			Choices: []openai.ChatCompletionChoice{{
				Message:      openai.ChatCompletionMessage{Role: openai.ChatMessageRoleAssistant, Content: content},
				FinishReason: openai.FinishReasonStop,
			}},
		})
	}))
	t.Cleanup(s.Close)
	return s
}

// BaseURL is the OpenAI-style API root of the server.
func (s *Server) BaseURL() string {
	return s.URL + "/v1"
}

// Requests returns the chat requests received so far.
func (s *Server) Requests() []openai.ChatCompletionRequest {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]openai.ChatCompletionRequest(nil), s.requests...)
}

// Static replies with the same content to every request.
func Static(content string) Reply {
	return func(openai.ChatCompletionRequest) (string, int) { return content, http.StatusOK }
}
