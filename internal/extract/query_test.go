package extract

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/ignite/salesforce-extract/internal/config"
	"github.com/ignite/salesforce-extract/internal/salesforce"
	"github.com/ignite/salesforce-extract/internal/schema"
)

func newTestSalesforceClient(serverURL string) *salesforce.Client {
	c := salesforce.NewClient(config.SalesforceConfig{
		LoginURL:       serverURL,
		APIVersion:     "v59.0",
		TimeoutSeconds: 5,
	}, 1)
	c.SetSession(serverURL, "test-token")
	return c
}

func TestQueryStrategyPagination(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/services/data/v59.0/query":
			json.NewEncoder(w).Encode(salesforce.QueryResponse{
				TotalSize:      3,
				Done:           false,
				NextRecordsURL: "/services/data/v59.0/query/01g-2000",
				Records: []map[string]interface{}{
					{"attributes": map[string]interface{}{"type": "Account"}, "Id": "001", "Name": "Acme"},
					{"attributes": map[string]interface{}{"type": "Account"}, "Id": "002", "Name": "Globex"},
				},
			})
		case "/services/data/v59.0/query/01g-2000":
			json.NewEncoder(w).Encode(salesforce.QueryResponse{
				TotalSize: 3,
				Done:      true,
				Records: []map[string]interface{}{
					{"attributes": map[string]interface{}{"type": "Account"}, "Id": "003", "Name": "Initech"},
				},
			})
		default:
			t.Errorf("Unexpected path %s", r.URL.Path)
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer server.Close()

	spec := schema.ObjectSpec{
		Name: "Account",
		Fields: []schema.FieldSpec{
			{Name: "Id", Type: schema.TypeString},
			{Name: "Name", Type: schema.TypeString},
		},
	}

	s := newQueryStrategy(newTestSalesforceClient(server.URL))
	ctx := context.Background()

	if err := s.Open(ctx, spec); err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer s.Close(ctx)

	var all []RawRecord
	for {
		batch, err := s.NextBatch(ctx)
		if err != nil {
			t.Fatalf("NextBatch failed: %v", err)
		}
		if batch == nil {
			break
		}
		all = append(all, batch...)
	}

	if len(all) != 3 {
		t.Fatalf("Expected 3 records, got %d", len(all))
	}
	if all[0]["Id"] != "001" || all[2]["Id"] != "003" {
		t.Errorf("Unexpected records: %v", all)
	}
	// The synthetic attributes object is dropped
	for i, rec := range all {
		if _, ok := rec["attributes"]; ok {
			t.Errorf("Record %d still carries attributes", i)
		}
	}
}

func TestQueryStrategyEmptyResult(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(salesforce.QueryResponse{TotalSize: 0, Done: true})
	}))
	defer server.Close()

	spec := schema.ObjectSpec{
		Name:   "Account",
		Fields: []schema.FieldSpec{{Name: "Id", Type: schema.TypeString}},
	}

	s := newQueryStrategy(newTestSalesforceClient(server.URL))
	ctx := context.Background()

	if err := s.Open(ctx, spec); err != nil {
		t.Fatalf("Open failed: %v", err)
	}

	batch, err := s.NextBatch(ctx)
	if err != nil {
		t.Fatalf("NextBatch failed: %v", err)
	}
	if batch != nil {
		t.Errorf("Expected exhausted sequence, got %v", batch)
	}
}

func TestQueryStrategyTerminalError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`[{"errorCode":"INVALID_TYPE","message":"sObject type 'Nope' is not supported"}]`))
	}))
	defer server.Close()

	spec := schema.ObjectSpec{
		Name:   "Nope",
		Fields: []schema.FieldSpec{{Name: "Id", Type: schema.TypeString}},
	}

	s := newQueryStrategy(newTestSalesforceClient(server.URL))
	if err := s.Open(context.Background(), spec); err == nil {
		t.Fatal("Expected terminal error, got nil")
	}
}

func TestQueryStrategyNotRestartable(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(salesforce.QueryResponse{TotalSize: 0, Done: true})
	}))
	defer server.Close()

	spec := schema.ObjectSpec{
		Name:   "Account",
		Fields: []schema.FieldSpec{{Name: "Id", Type: schema.TypeString}},
	}

	s := newQueryStrategy(newTestSalesforceClient(server.URL))
	ctx := context.Background()

	if err := s.Open(ctx, spec); err != nil {
		t.Fatalf("First open failed: %v", err)
	}
	if err := s.Open(ctx, spec); err == nil {
		t.Error("Second open must fail")
	}
}
