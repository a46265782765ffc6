package data

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/charmbracelet/log"
	"github.com/elastic/go-elasticsearch/v8"

	"github.com/xiaoxue1272/histories-collector/internal/biz/domain"
	"github.com/xiaoxue1272/histories-collector/internal/biz/repo"
)

// fakeES runs an httptest server that answers like an Elasticsearch node.
// Every response carries the product header the client verifies.
func fakeES(t *testing.T, handler func(w http.ResponseWriter, r *http.Request)) *elasticsearch.Client {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Elastic-Product", "Elasticsearch")
		handler(w, r)
	}))
	t.Cleanup(server.Close)

	client, err := elasticsearch.NewClient(elasticsearch.Config{Addresses: []string{server.URL}})
	if err != nil {
		t.Fatalf("Failed to create client: %v", err)
	}
	return client
}

func testStateRepo(t *testing.T) repo.StateRepo {
	t.Helper()
	state, err := NewStateRepo(filepath.Join(t.TempDir(), "state.db"))
	if err != nil {
		t.Fatalf("Failed to create state repo: %v", err)
	}
	t.Cleanup(func() { state.Close() })
	return state
}

func TestHistoryRepo_Save_CreateOnly(t *testing.T) {
	var gotPath, gotOpType, gotRequireAlias string
	var gotDoc map[string]any

	client := fakeES(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotOpType = r.URL.Query().Get("op_type")
		gotRequireAlias = r.URL.Query().Get("require_alias")
		body, _ := io.ReadAll(r.Body)
		json.Unmarshal(body, &gotDoc)

		w.WriteHeader(http.StatusCreated)
		io.WriteString(w, `{"result":"created"}`)
	})

	h := NewHistoryRepo(client, "qq-logs", testStateRepo(t), log.New(io.Discard))
	err := h.Save(context.Background(), 123, &domain.Document{
		Timestamp: 1717243800000,
		GroupID:   1001,
		GroupName: "测试群",
		SenderID:  10001,
		Message:   "hello",
		MessageExtra: []domain.Parsed{
			{Type: domain.ElementPlain, Text: "hello"},
		},
	})
	if err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	if gotPath != "/qq_messages/_doc/123" {
		t.Errorf("Expected write through alias, got path %q", gotPath)
	}
	if gotOpType != "create" {
		t.Errorf("Expected op_type=create, got %q", gotOpType)
	}
	if gotRequireAlias != "true" {
		t.Errorf("Expected require_alias=true, got %q", gotRequireAlias)
	}
	if gotDoc["@timestamp"] != float64(1717243800000) {
		t.Errorf("Unexpected @timestamp: %v", gotDoc["@timestamp"])
	}
	if gotDoc["group_id"] != float64(1001) || gotDoc["message"] != "hello" {
		t.Errorf("Unexpected document: %v", gotDoc)
	}
	extra, ok := gotDoc["message_extra"].([]any)
	if !ok || len(extra) != 1 {
		t.Errorf("Unexpected message_extra: %v", gotDoc["message_extra"])
	}
}

func TestHistoryRepo_Save_DuplicateIDRejected(t *testing.T) {
	client := fakeES(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusConflict)
		io.WriteString(w, `{"error":{"type":"version_conflict_engine_exception"},"status":409}`)
	})

	h := NewHistoryRepo(client, "qq-logs", testStateRepo(t), log.New(io.Discard))
	err := h.Save(context.Background(), 123, &domain.Document{})
	if err == nil {
		t.Fatal("Expected error on duplicate id")
	}
}

func TestHistoryRepo_Save_NonCreatedResultRejected(t *testing.T) {
	client := fakeES(t, func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `{"result":"updated"}`)
	})

	h := NewHistoryRepo(client, "qq-logs", testStateRepo(t), log.New(io.Discard))
	err := h.Save(context.Background(), 123, &domain.Document{})
	if err == nil {
		t.Fatal("Expected error when the store reports anything but created")
	}
}

func TestHistoryRepo_EnsureIndices_FreshDeployment(t *testing.T) {
	var calls []string
	var policyBody, templateBody, indexBody map[string]any

	client := fakeES(t, func(w http.ResponseWriter, r *http.Request) {
		calls = append(calls, r.Method+" "+r.URL.Path)
		switch {
		case r.Method == http.MethodPut && r.URL.Path == "/_ilm/policy/qq-logs-policy":
			json.NewDecoder(r.Body).Decode(&policyBody)
			io.WriteString(w, `{"acknowledged":true}`)
		case r.Method == http.MethodPut && r.URL.Path == "/_index_template/qq-logs-template":
			json.NewDecoder(r.Body).Decode(&templateBody)
			io.WriteString(w, `{"acknowledged":true}`)
		case r.Method == http.MethodGet && r.URL.Path == "/_alias/qq_messages":
			w.WriteHeader(http.StatusNotFound)
			io.WriteString(w, `{"error":"alias [qq_messages] missing","status":404}`)
		case r.Method == http.MethodPut && r.URL.Path == "/qq-logs-000001":
			json.NewDecoder(r.Body).Decode(&indexBody)
			io.WriteString(w, `{"acknowledged":true,"index":"qq-logs-000001"}`)
		default:
			t.Errorf("Unexpected request: %s %s", r.Method, r.URL.Path)
			w.WriteHeader(http.StatusBadRequest)
		}
	})

	state := testStateRepo(t)
	h := NewHistoryRepo(client, "qq-logs", state, log.New(io.Discard))
	if err := h.EnsureIndices(context.Background()); err != nil {
		t.Fatalf("EnsureIndices failed: %v", err)
	}

	want := []string{
		"PUT /_ilm/policy/qq-logs-policy",
		"PUT /_index_template/qq-logs-template",
		"GET /_alias/qq_messages",
		"PUT /qq-logs-000001",
	}
	if len(calls) != len(want) {
		t.Fatalf("Unexpected call sequence: %v", calls)
	}
	for i := range want {
		if calls[i] != want[i] {
			t.Errorf("Call %d: expected %q, got %q", i, want[i], calls[i])
		}
	}

	// Rollover conditions
	policy := policyBody["policy"].(map[string]any)
	rollover := policy["phases"].(map[string]any)["hot"].(map[string]any)["actions"].(map[string]any)["rollover"].(map[string]any)
	if rollover["max_docs"] != float64(2000000) || rollover["max_size"] != "50gb" {
		t.Errorf("Unexpected rollover conditions: %v", rollover)
	}

	// Template matches the prefix and carries the read alias
	if templateBody["index_patterns"] != "qq-logs-*" {
		t.Errorf("Unexpected index_patterns: %v", templateBody["index_patterns"])
	}
	tmpl := templateBody["template"].(map[string]any)
	if _, ok := tmpl["aliases"].(map[string]any)["qq_messages"]; !ok {
		t.Errorf("Expected alias in template, got %v", tmpl["aliases"])
	}
	settings := tmpl["settings"].(map[string]any)
	if settings["index.lifecycle.rollover_alias"] != "qq_messages" {
		t.Errorf("Unexpected rollover alias: %v", settings["index.lifecycle.rollover_alias"])
	}

	// First index is the write index
	aliases := indexBody["aliases"].(map[string]any)
	writeAlias := aliases["qq_messages"].(map[string]any)
	if writeAlias["is_write_index"] != true {
		t.Errorf("Expected is_write_index on first index, got %v", aliases)
	}
	mappings := indexBody["mappings"].(map[string]any)["properties"].(map[string]any)
	if mappings["message_extra"].(map[string]any)["type"] != "nested" {
		t.Errorf("Expected nested message_extra mapping, got %v", mappings["message_extra"])
	}

	// Bootstrap marker recorded
	done, err := state.BootstrapCompleted(context.Background(), WriteAlias)
	if err != nil {
		t.Fatalf("Failed to read bootstrap state: %v", err)
	}
	if !done {
		t.Error("Expected bootstrap marker after fresh provisioning")
	}
}

func TestHistoryRepo_EnsureIndices_AliasAlreadyBound(t *testing.T) {
	var calls []string

	client := fakeES(t, func(w http.ResponseWriter, r *http.Request) {
		calls = append(calls, r.Method+" "+r.URL.Path)
		switch {
		case r.URL.Path == "/_alias/qq_messages":
			io.WriteString(w, `{"qq-logs-000007":{"aliases":{"qq_messages":{"is_write_index":true}}}}`)
		default:
			io.WriteString(w, `{"acknowledged":true}`)
		}
	})

	h := NewHistoryRepo(client, "qq-logs", testStateRepo(t), log.New(io.Discard))
	if err := h.EnsureIndices(context.Background()); err != nil {
		t.Fatalf("EnsureIndices failed: %v", err)
	}

	for _, call := range calls {
		if call == "PUT /qq-logs-000001" {
			t.Error("Expected no index creation when the alias is already bound")
		}
	}
}

func TestHistoryRepo_EnsureIndices_AliasLookupErrorFatal(t *testing.T) {
	var created bool

	client := fakeES(t, func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.URL.Path == "/_alias/qq_messages":
			w.WriteHeader(http.StatusInternalServerError)
			io.WriteString(w, `{"error":"boom","status":500}`)
		case r.Method == http.MethodPut && r.URL.Path == "/qq-logs-000001":
			created = true
			io.WriteString(w, `{"acknowledged":true}`)
		default:
			io.WriteString(w, `{"acknowledged":true}`)
		}
	})

	h := NewHistoryRepo(client, "qq-logs", testStateRepo(t), log.New(io.Discard))
	if err := h.EnsureIndices(context.Background()); err == nil {
		t.Fatal("Expected error when the alias lookup fails")
	}
	if created {
		t.Error("Expected no index creation after a failed alias lookup")
	}
}

func TestHistoryRepo_Ping(t *testing.T) {
	client := fakeES(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodHead {
			t.Errorf("Expected HEAD, got %s", r.Method)
		}
	})

	h := NewHistoryRepo(client, "qq-logs", testStateRepo(t), log.New(io.Discard))
	if err := h.Ping(context.Background()); err != nil {
		t.Errorf("Ping failed: %v", err)
	}
}

func TestHistoryRepo_Ping_Unreachable(t *testing.T) {
	client, err := elasticsearch.NewClient(elasticsearch.Config{
		Addresses:    []string{"http://127.0.0.1:1"},
		DisableRetry: true,
	})
	if err != nil {
		t.Fatalf("Failed to create client: %v", err)
	}

	h := NewHistoryRepo(client, "qq-logs", testStateRepo(t), log.New(io.Discard))
	if err := h.Ping(context.Background()); err == nil {
		t.Error("Expected error for unreachable cluster")
	}
}
