package utils

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func chatServer(t *testing.T, status int, content string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer test-key" {
			t.Errorf("Authorization = %q", got)
		}

		var req map[string]interface{}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("request body unparseable: %v", err)
		}
		if req["model"] != "test-model" {
			t.Errorf("model = %v", req["model"])
		}

		w.WriteHeader(status)
		if status == http.StatusOK {
			resp := map[string]interface{}{
				"choices": []map[string]interface{}{
					{"message": map[string]string{"content": content}},
				},
			}
			json.NewEncoder(w).Encode(resp)
		} else {
			w.Write([]byte(`{"error": {"message": "nope"}}`))
		}
	}))
}

func TestCompleteJSON(t *testing.T) {
	srv := chatServer(t, http.StatusOK, `{"answer": 42}`)
	defer srv.Close()

	client := NewChatClient("test-key", srv.URL, "test-model")
	raw, err := client.CompleteJSON(context.Background(), "be helpful", map[string]string{"q": "?"})
	if err != nil {
		t.Fatalf("CompleteJSON: %v", err)
	}
	if string(raw) != `{"answer": 42}` {
		t.Fatalf("content = %s", raw)
	}
}

func TestCompleteJSONAPIError(t *testing.T) {
	srv := chatServer(t, http.StatusTooManyRequests, "")
	defer srv.Close()

	client := NewChatClient("test-key", srv.URL, "test-model")
	_, err := client.CompleteJSON(context.Background(), "sys", nil)
	if err == nil {
		t.Fatal("expected an error on non-200 status")
	}
	if !strings.Contains(err.Error(), "429") {
		t.Errorf("error should carry the status code: %v", err)
	}
}

func TestCompleteJSONNoChoices(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"choices": []}`))
	}))
	defer srv.Close()

	client := NewChatClient("test-key", srv.URL, "test-model")
	if _, err := client.CompleteJSON(context.Background(), "sys", nil); err == nil {
		t.Fatal("expected an error when the API returns no choices")
	}
}

func TestNewChatClientDefaults(t *testing.T) {
	client := NewChatClient("k", "", "")
	if client.baseURL != "https://api.openai.com/v1" {
		t.Errorf("default baseURL = %q", client.baseURL)
	}
	if client.model != "gpt-4o-mini" {
		t.Errorf("default model = %q", client.model)
	}
}
