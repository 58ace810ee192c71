package aireview

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

const completeDocument = "Identificador: OIT-22. Fecha: 2025-03-10. Alcance: planta norte. Requisito: NOM-017. Firma: Ing. Lopez."

func ollamaStub(t *testing.T, response string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/generate" {
			http.NotFound(w, r)
			return
		}
		json.NewEncoder(w).Encode(map[string]string{"response": response})
	}))
}

func testClient(baseURL string) *Client {
	return &Client{
		BaseURL:    baseURL,
		Model:      "test-model",
		HTTPClient: &http.Client{Timeout: 2 * time.Second},
	}
}

func TestReviewDocumentParsesModelOutput(t *testing.T) {
	server := ollamaStub(t, `{"status":"alerta","summary":"faltan secciones","alerts":["sin firma"],"missing":["firma"],"evidence":[]}`)
	defer server.Close()

	result, usedFallback := testClient(server.URL).ReviewDocument(context.Background(), completeDocument, nil)
	if usedFallback {
		t.Fatal("fallback used despite valid model output")
	}
	if result.Status != StatusAlerta || len(result.Missing) != 1 {
		t.Errorf("unexpected result: %+v", result)
	}
}

func TestReviewDocumentSalvagesWrappedJSON(t *testing.T) {
	server := ollamaStub(t, "Claro, aqui esta el resultado:\n```json\n{\"status\":\"check\",\"summary\":\"ok\"}\n```")
	defer server.Close()

	result, usedFallback := testClient(server.URL).ReviewDocument(context.Background(), completeDocument, nil)
	if usedFallback {
		t.Fatal("fallback used despite salvageable output")
	}
	if result.Status != StatusCheck || result.Summary != "ok" {
		t.Errorf("unexpected result: %+v", result)
	}
	if result.Alerts == nil || result.Missing == nil || result.Evidence == nil {
		t.Error("nil slices not normalized")
	}
}

func TestReviewDocumentFallsBackOnGarbage(t *testing.T) {
	server := ollamaStub(t, "no puedo ayudarte con eso")
	defer server.Close()

	result, usedFallback := testClient(server.URL).ReviewDocument(context.Background(), completeDocument, nil)
	if !usedFallback {
		t.Fatal("expected heuristic fallback")
	}
	if result.Status != StatusCheck {
		t.Errorf("complete document should grade check, got %q", result.Status)
	}
}

func TestReviewDocumentFallsBackWhenServerDown(t *testing.T) {
	server := ollamaStub(t, "")
	server.Close()

	_, usedFallback := testClient(server.URL).ReviewDocument(context.Background(), completeDocument, nil)
	if !usedFallback {
		t.Fatal("expected heuristic fallback when server is unreachable")
	}
}

func TestReviewDocumentForcedFallbackSkipsServer(t *testing.T) {
	called := false
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))
	defer server.Close()

	client := testClient(server.URL)
	client.ForceFallback = true

	_, usedFallback := client.ReviewDocument(context.Background(), completeDocument, nil)
	if !usedFallback {
		t.Fatal("forced fallback ignored")
	}
	if called {
		t.Error("server contacted despite forced fallback")
	}
}

func TestChatAndListModels(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/chat":
			json.NewEncoder(w).Encode(map[string]any{
				"message": map[string]string{"role": "assistant", "content": "hola"},
			})
		case "/api/tags":
			json.NewEncoder(w).Encode(map[string]any{
				"models": []map[string]string{{"name": "llama3.1"}, {"name": "mistral"}},
			})
		default:
			http.NotFound(w, r)
		}
	}))
	defer server.Close()

	client := testClient(server.URL)

	reply, err := client.Chat(context.Background(), []ChatMessage{{Role: "user", Content: "hola"}})
	if err != nil {
		t.Fatal(err)
	}
	if reply != "hola" {
		t.Errorf("reply = %q", reply)
	}

	names, err := client.ListModels(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(names) != 2 || names[0] != "llama3.1" {
		t.Errorf("models = %v", names)
	}
}

func TestExtractJSONObject(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{`{"a":1}`, `{"a":1}`},
		{"texto {\"a\": {\"b\": 2}} mas texto", `{"a": {"b": 2}}`},
		{`{"s":"with } brace"}`, `{"s":"with } brace"}`},
		{"sin json", ""},
		{"{incompleto", ""},
	}
	for _, tc := range cases {
		if got := ExtractJSONObject(tc.in); got != tc.want {
			t.Errorf("ExtractJSONObject(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}
