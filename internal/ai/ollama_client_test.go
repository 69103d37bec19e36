package ai

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"testing"
	"time"
)

func TestOllamaGenerateSuccess(t *testing.T) {
	var captured ollamaChatRequest
	srv := newIPv4Server(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/api/chat" {
			http.NotFound(w, r)
			return
		}
		if err := json.NewDecoder(r.Body).Decode(&captured); err != nil {
			http.Error(w, "bad request", http.StatusBadRequest)
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"message": map[string]any{"role": "assistant", "content": "hello from ollama"},
			"done":    true,
		})
	}))
	defer srv.Close()

	c := NewOllamaClient(srv.URL+"/", 2*time.Second, 1, 0, 0)
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	messages := []Message{
		{Role: "system", Content: "be brief"},
		{Role: "user", Content: "hi"},
	}
	resp, err := c.Generate(ctx, GenerateRequest{Model: "llama3:latest", Messages: messages, MaxTokens: 16, Temperature: 0.2})
	if err != nil {
		t.Fatalf("Generate error: %v", err)
	}
	if resp.Text() != "hello from ollama" {
		t.Fatalf("unexpected response: %+v", resp)
	}
	if resp.RequestID == "" {
		t.Fatalf("expected simulated request id")
	}
	if captured.Stream || len(captured.Messages) != 2 || captured.Messages[0].Role != "system" {
		t.Fatalf("unexpected request: %+v", captured)
	}
	if captured.Options["num_predict"] != float64(16) || captured.Options["temperature"] != 0.2 {
		t.Fatalf("options not mapped: %+v", captured.Options)
	}
}

func TestOllamaGenerateErrors(t *testing.T) {
	srv := newIPv4Server(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_ = json.NewEncoder(w).Encode(map[string]any{"error": "model 'x' not found, try pulling it first"})
	}))
	defer srv.Close()

	c := NewOllamaClient(srv.URL, 2*time.Second, 1, 0, 0)
	_, err := c.Generate(context.Background(), GenerateRequest{Model: "x", Messages: []Message{{Role: "user", Content: "hi"}}})
	var mnf *ProviderError
	if !errors.As(err, &mnf) || mnf.Kind != FailureModel {
		t.Fatalf("expected model failure, got %v", err)
	}
	if mnf.Message != "model 'x' not found, try pulling it first" {
		t.Fatalf("message not decoded: %q", mnf.Message)
	}
}

func TestOllamaGenerateValidation(t *testing.T) {
	c := NewOllamaClient("", 2*time.Second, 1, 0, 0)
	if c.host != DefaultOllamaHost {
		t.Fatalf("default host: %s", c.host)
	}
	_, err := c.Generate(context.Background(), GenerateRequest{Model: "llama3:latest"})
	if err == nil || err.Error() != "messages cannot be empty" {
		t.Fatalf("expected 'messages cannot be empty' error, got: %v", err)
	}
	_, err = c.Generate(context.Background(), GenerateRequest{Messages: []Message{{Role: "user", Content: "hi"}}})
	if err == nil || err.Error() != "model cannot be empty" {
		t.Fatalf("expected 'model cannot be empty' error, got: %v", err)
	}
}

func TestOllamaUnreachable(t *testing.T) {
	ln, err := net.Listen("tcp4", "127.0.0.1:0")
	if err != nil {
		t.Skipf("skipping test: cannot open local listener (%v)", err)
	}
	addr := ln.Addr().String()
	_ = ln.Close()

	c := NewOllamaClient("http://"+addr, time.Second, 1, 0, 0)
	_, err = c.Generate(context.Background(), GenerateRequest{Model: "m", Messages: []Message{{Role: "user", Content: "hi"}}})
	var ue *UnreachableError
	if !errors.As(err, &ue) {
		t.Fatalf("expected UnreachableError, got %T: %v", err, err)
	}
	if ue.Host != addr {
		t.Fatalf("host: got %q want %q", ue.Host, addr)
	}
}
