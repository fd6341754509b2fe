package extract

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"log"
	"time"

	"github.com/ignite/salesforce-extract/internal/config"
	"github.com/ignite/salesforce-extract/internal/salesforce"
	"github.com/ignite/salesforce-extract/internal/schema"
)

// Job tracks one asynchronous query job. Owned exclusively by its strategy
// instance; never shared across objects.
type Job struct {
	ID        string
	Object    string
	State     string
	CreatedAt time.Time
}

// bulkStrategy runs the Bulk API 2.0 query-job lifecycle: submit, poll until
// terminal, then page through CSV result batches. It trades latency for
// throughput on large objects.
//
// Flow:
//  1. Open submits the job and polls status with exponential backoff until
//     JobComplete, Failed, Aborted, or the wait budget runs out. Budget
//     exhaustion aborts the remote job (best-effort) and is terminal.
//  2. NextBatch fetches result batches sequentially via the Sforce-Locator
//     cursor until exhausted.
//  3. Close deletes the job record (best-effort, logged never propagated).
type bulkStrategy struct {
	client *salesforce.Client
	cfg    config.BulkConfig

	job     *Job
	locator string
	done    bool
	opened  bool
}

func newBulkStrategy(client *salesforce.Client, cfg config.BulkConfig) *bulkStrategy {
	return &bulkStrategy{client: client, cfg: cfg}
}

// Open submits the query job and blocks until it reaches a terminal state.
func (s *bulkStrategy) Open(ctx context.Context, spec schema.ObjectSpec) error {
	if s.opened {
		return fmt.Errorf("bulk strategy for %s already opened", spec.Name)
	}
	s.opened = true

	job, err := s.client.CreateQueryJob(ctx, spec.SOQL())
	if err != nil {
		return fmt.Errorf("submit bulk job for %s: %w", spec.Name, err)
	}
	s.job = &Job{ID: job.ID, Object: spec.Name, State: job.State, CreatedAt: time.Now()}
	log.Printf("Salesforce: %s bulk job %s submitted (state=%s)", spec.Name, job.ID, job.State)

	if err := s.waitForCompletion(ctx); err != nil {
		return err
	}
	return nil
}

// waitForCompletion polls job status with exponential backoff. The interval
// starts at cfg.PollInterval, doubles up to cfg.PollMaxInterval, and the
// total wait never exceeds cfg.WaitBudget.
func (s *bulkStrategy) waitForCompletion(ctx context.Context) error {
	interval := s.cfg.PollInterval()
	deadline := time.Now().Add(s.cfg.WaitBudget())

	for {
		job, err := s.client.GetQueryJob(ctx, s.job.ID)
		if err != nil {
			if salesforce.Terminal(err) {
				return fmt.Errorf("poll bulk job %s for %s: %w", s.job.ID, s.job.Object, err)
			}
			// Transient even after HTTP retries; keep polling until the
			// budget runs out.
			log.Printf("Salesforce: %s bulk job %s poll error (will retry): %v", s.job.Object, s.job.ID, err)
		} else {
			s.job.State = job.State
			switch job.State {
			case salesforce.JobStateJobComplete:
				log.Printf("Salesforce: %s bulk job %s completed (%d records processed)",
					s.job.Object, s.job.ID, job.NumberRecords)
				return nil
			case salesforce.JobStateFailed:
				return fmt.Errorf("bulk job %s for %s failed: %s", s.job.ID, s.job.Object, job.ErrorMessage)
			case salesforce.JobStateAborted:
				return fmt.Errorf("bulk job %s for %s was aborted remotely", s.job.ID, s.job.Object)
			}
			log.Printf("Salesforce: %s bulk job %s state=%s, waiting %s",
				s.job.Object, s.job.ID, job.State, interval)
		}

		if time.Now().After(deadline) {
			s.abandon()
			return fmt.Errorf("bulk job %s for %s did not finish within %s",
				s.job.ID, s.job.Object, s.cfg.WaitBudget())
		}

		select {
		case <-ctx.Done():
			return fmt.Errorf("waiting for bulk job %s: %w", s.job.ID, ctx.Err())
		case <-time.After(interval):
		}

		interval *= 2
		if max := s.cfg.PollMaxInterval(); interval > max {
			interval = max
		}
	}
}

// abandon aborts the remote job after the wait budget is exhausted, on a
// fresh context in case the caller's was cancelled.
func (s *bulkStrategy) abandon() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := s.client.AbortQueryJob(ctx, s.job.ID); err != nil {
		log.Printf("Salesforce: Warning: could not abort bulk job %s: %v", s.job.ID, err)
		return
	}
	s.job.State = salesforce.JobStateAborted
	log.Printf("Salesforce: aborted bulk job %s after wait budget", s.job.ID)
}

// NextBatch retrieves the next CSV result batch and decodes it into raw
// records.
func (s *bulkStrategy) NextBatch(ctx context.Context) ([]RawRecord, error) {
	if !s.opened || s.job == nil {
		return nil, fmt.Errorf("bulk strategy not opened")
	}
	if s.done {
		return nil, nil
	}

	csvBody, next, err := s.client.GetQueryJobResults(ctx, s.job.ID, s.locator, s.cfg.BatchRecords)
	if err != nil {
		return nil, fmt.Errorf("fetch results for bulk job %s (%s): %w", s.job.ID, s.job.Object, err)
	}
	s.locator = next
	s.done = next == ""

	batch, err := decodeResultCSV(csvBody)
	if err != nil {
		return nil, fmt.Errorf("decode results for bulk job %s (%s): %w", s.job.ID, s.job.Object, err)
	}
	if len(batch) == 0 && s.done {
		return nil, nil
	}
	return batch, nil
}

// Close deletes the remote job record. Failure to clean up is logged, never
// propagated.
func (s *bulkStrategy) Close(ctx context.Context) {
	if s.job == nil {
		return
	}
	cleanupCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := s.client.DeleteQueryJob(cleanupCtx, s.job.ID); err != nil {
		log.Printf("Salesforce: Warning: failed to delete bulk job %s: %v", s.job.ID, err)
		return
	}
	log.Printf("Salesforce: deleted bulk job %s (cleanup)", s.job.ID)
	s.job = nil
}

// decodeResultCSV parses one Bulk result batch. The first row is the header;
// every cell comes back as a string, empty meaning null.
func decodeResultCSV(body []byte) ([]RawRecord, error) {
	if len(bytes.TrimSpace(body)) == 0 {
		return nil, nil
	}

	reader := csv.NewReader(bytes.NewReader(body))
	rows, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("parse result CSV: %w", err)
	}
	if len(rows) < 2 {
		return nil, nil
	}

	header := rows[0]
	records := make([]RawRecord, 0, len(rows)-1)
	for _, row := range rows[1:] {
		rec := make(RawRecord, len(header))
		for i, col := range header {
			if i < len(row) {
				rec[col] = row[i]
			}
		}
		records = append(records, rec)
	}
	return records, nil
}
