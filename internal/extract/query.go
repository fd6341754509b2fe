package extract

import (
	"context"
	"fmt"
	"log"

	"github.com/ignite/salesforce-extract/internal/salesforce"
	"github.com/ignite/salesforce-extract/internal/schema"
)

// queryStrategy pages through a synchronous SOQL query via the REST API's
// continuation cursor. No remote state persists between calls, so Close is a
// no-op.
type queryStrategy struct {
	client *salesforce.Client

	object  string
	pending []RawRecord
	next    string
	done    bool
	opened  bool
}

func newQueryStrategy(client *salesforce.Client) *queryStrategy {
	return &queryStrategy{client: client}
}

// Open issues the first page request.
func (s *queryStrategy) Open(ctx context.Context, spec schema.ObjectSpec) error {
	if s.opened {
		return fmt.Errorf("query strategy for %s already opened", s.object)
	}
	s.opened = true
	s.object = spec.Name

	page, err := s.client.Query(ctx, spec.SOQL())
	if err != nil {
		return fmt.Errorf("query %s: %w", spec.Name, err)
	}
	log.Printf("Salesforce: %s query returned totalSize=%d", spec.Name, page.TotalSize)

	s.pending = stripAttributes(page.Records)
	s.next = page.NextRecordsURL
	s.done = page.Done || page.NextRecordsURL == ""
	return nil
}

// NextBatch returns the buffered page, then follows the cursor until the API
// signals no more pages.
func (s *queryStrategy) NextBatch(ctx context.Context) ([]RawRecord, error) {
	if !s.opened {
		return nil, fmt.Errorf("query strategy not opened")
	}
	if len(s.pending) > 0 {
		batch := s.pending
		s.pending = nil
		return batch, nil
	}
	if s.done {
		return nil, nil
	}

	page, err := s.client.QueryMore(ctx, s.next)
	if err != nil {
		return nil, fmt.Errorf("query more %s: %w", s.object, err)
	}
	s.next = page.NextRecordsURL
	s.done = page.Done || page.NextRecordsURL == ""

	batch := stripAttributes(page.Records)
	if len(batch) == 0 && s.done {
		return nil, nil
	}
	return batch, nil
}

// Close is a no-op: paginated queries hold no remote resource.
func (s *queryStrategy) Close(ctx context.Context) {}

// stripAttributes converts API records to RawRecords, dropping the synthetic
// "attributes" object Salesforce attaches to every REST query row.
func stripAttributes(records []map[string]interface{}) []RawRecord {
	out := make([]RawRecord, 0, len(records))
	for _, rec := range records {
		raw := make(RawRecord, len(rec))
		for k, v := range rec {
			if k == "attributes" {
				continue
			}
			raw[k] = v
		}
		out = append(out, raw)
	}
	return out
}
