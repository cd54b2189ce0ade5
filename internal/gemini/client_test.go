package gemini

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"redline/engine/internal/collab"
)

func testClient(srv *httptest.Server) *Client {
	return &Client{baseURL: srv.URL, client: srv.Client()}
}

func TestChatBuildsGenerateContentRequest(t *testing.T) {
	var captured generateRequest
	var capturedPath, capturedKey string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		capturedPath = r.URL.Path
		capturedKey = r.URL.Query().Get("key")
		if err := json.NewDecoder(r.Body).Decode(&captured); err != nil {
			t.Errorf("decode: %v", err)
		}
		json.NewEncoder(w).Encode(map[string]any{
			"candidates": []any{map[string]any{
				"content": map[string]any{"parts": []any{map[string]any{"text": "brown fox"}}},
			}},
		})
	}))
	defer srv.Close()

	text, err := testClient(srv).Chat(context.Background(), "test-key", "gemini-1.5-flash-latest", []collab.Message{
		{Role: collab.RoleSystem, Content: "you locate text"},
		{Role: collab.RoleUser, Content: "find the fox"},
	})
	if err != nil {
		t.Fatalf("chat: %v", err)
	}
	if text != "brown fox" {
		t.Fatalf("text = %q", text)
	}
	if capturedPath != "/v1beta/models/gemini-1.5-flash-latest:generateContent" {
		t.Fatalf("path = %q", capturedPath)
	}
	if capturedKey != "test-key" {
		t.Fatalf("key = %q", capturedKey)
	}
	if captured.SystemInstruction == nil || captured.SystemInstruction.Parts[0].Text != "you locate text" {
		t.Fatalf("system instruction = %+v", captured.SystemInstruction)
	}
	if len(captured.Contents) != 1 || captured.Contents[0].Role != "user" {
		t.Fatalf("contents = %+v", captured.Contents)
	}
}

func TestChatJoinsMultiplePartsInReply(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{
			"candidates": []any{map[string]any{
				"content": map[string]any{"parts": []any{
					map[string]any{"text": "first "},
					map[string]any{"text": "second"},
				}},
			}},
		})
	}))
	defer srv.Close()

	text, err := testClient(srv).Chat(context.Background(), "k", "m", []collab.Message{{Role: collab.RoleUser, Content: "x"}})
	if err != nil {
		t.Fatalf("chat: %v", err)
	}
	if text != "first second" {
		t.Fatalf("text = %q", text)
	}
}

func TestChatEmptyCandidates(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{"candidates": []any{}})
	}))
	defer srv.Close()

	if _, err := testClient(srv).Chat(context.Background(), "k", "m", []collab.Message{{Role: collab.RoleUser, Content: "x"}}); err == nil {
		t.Fatalf("expected error for empty candidates")
	}
}

func TestChatStatusClassification(t *testing.T) {
	cases := []struct {
		status int
		want   error
	}{
		{http.StatusUnauthorized, collab.ErrUnauthorized},
		{http.StatusForbidden, collab.ErrUnauthorized},
		{http.StatusTooManyRequests, collab.ErrRateLimited},
		{http.StatusInternalServerError, collab.ErrUnavailable},
		{http.StatusBadGateway, collab.ErrUnavailable},
	}
	for _, tc := range cases {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(tc.status)
		}))
		_, err := testClient(srv).Chat(context.Background(), "k", "m", []collab.Message{{Role: collab.RoleUser, Content: "x"}})
		srv.Close()
		if !errors.Is(err, tc.want) {
			t.Fatalf("status %d: err = %v, want %v", tc.status, err, tc.want)
		}
	}
}

func TestDefaultClientBlocksUnlistedHosts(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Errorf("request must not reach the server")
	}))
	defer srv.Close()

	client := NewClient()
	client.baseURL = srv.URL
	_, err := client.Chat(context.Background(), "k", "m", []collab.Message{{Role: collab.RoleUser, Content: "x"}})
	if !errors.Is(err, collab.ErrEgressBlocked) {
		t.Fatalf("err = %v, want ErrEgressBlocked", err)
	}
}
