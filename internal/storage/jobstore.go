package storage

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	es "github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"

	"github.com/hirewire/jobcrawl/internal/domain"
	"github.com/hirewire/jobcrawl/internal/logger"
)

// Constants for timeout durations
const (
	DefaultBulkIndexTimeout      = 30 * time.Second
	DefaultIndexTimeout          = 10 * time.Second
	DefaultTestConnectionTimeout = 5 * time.Second
	DefaultSearchTimeout         = 10 * time.Second
)

// DefaultIndexName is the index jobs are written to unless configured.
const DefaultIndexName = "jobs"

// Pagination bounds for Search.
const (
	DefaultPageSize = 20
	MaxPageSize     = 100
)

// ErrIndexNotFound is returned when a query targets a missing index.
var ErrIndexNotFound = errors.New("index not found")

// JobStore persists structured jobs in Elasticsearch. Writes are idempotent:
// the document ID is derived from the job's dedup key, so recrawling the
// same posting overwrites the previous document instead of duplicating it.
type JobStore struct {
	client *es.Client
	logger logger.Interface
	index  string
}

// NewJobStore creates a job store writing to the given index.
func NewJobStore(client *es.Client, index string, log logger.Interface) *JobStore {
	if index == "" {
		index = DefaultIndexName
	}
	if log == nil {
		log = logger.NewNoOp()
	}
	return &JobStore{
		client: client,
		logger: log,
		index:  index,
	}
}

// Index returns the index name this store writes to.
func (s *JobStore) Index() string {
	return s.index
}

// EnsureIndex creates the jobs index with its mapping if it does not exist.
func (s *JobStore) EnsureIndex(ctx context.Context) error {
	exists, err := s.indexExists(ctx)
	if err != nil {
		return fmt.Errorf("failed to check index existence: %w", err)
	}
	if exists {
		return nil
	}

	ctx, cancel := s.createContextWithTimeout(ctx, DefaultIndexTimeout)
	defer cancel()

	var buf bytes.Buffer
	if encodeErr := json.NewEncoder(&buf).Encode(jobsMapping); encodeErr != nil {
		return fmt.Errorf("error encoding mapping: %w", encodeErr)
	}

	res, err := s.client.Indices.Create(
		s.index,
		s.client.Indices.Create.WithContext(ctx),
		s.client.Indices.Create.WithBody(&buf),
	)
	if err != nil {
		s.logOperationError("EnsureIndex", "", err)
		return fmt.Errorf("failed to create index: %w", err)
	}
	defer s.closeResponse(res, "EnsureIndex", "")

	if res.IsError() {
		return fmt.Errorf("failed to create index: %s", res.String())
	}

	s.logger.Info("Created index", "index", s.index)
	return nil
}

// BulkResult reports the outcome of a bulk write.
type BulkResult struct {
	Saved  int
	Failed int
}

// bulkResponse is the subset of the _bulk response we inspect.
type bulkResponse struct {
	Errors bool `json:"errors"`
	Items  []map[string]struct {
		Status int `json:"status"`
		Error  *struct {
			Type   string `json:"type"`
			Reason string `json:"reason"`
		} `json:"error"`
	} `json:"items"`
}

// BulkUpsert writes the jobs in one _bulk request. Individual document
// failures are counted, not fatal. A transport-level bulk failure falls back
// to per-document writes so one bad request cannot lose the whole batch.
func (s *JobStore) BulkUpsert(ctx context.Context, jobs []domain.StructuredJob) (BulkResult, error) {
	if len(jobs) == 0 {
		return BulkResult{}, nil
	}

	ctx, cancel := s.createContextWithTimeout(ctx, DefaultBulkIndexTimeout)
	defer cancel()

	var buf bytes.Buffer
	for i := range jobs {
		action := map[string]any{
			"index": map[string]any{
				"_index": s.index,
				"_id":    docID(&jobs[i]),
			},
		}
		if encodeErr := json.NewEncoder(&buf).Encode(action); encodeErr != nil {
			return BulkResult{}, fmt.Errorf("error encoding bulk action: %w", encodeErr)
		}
		if encodeErr := json.NewEncoder(&buf).Encode(&jobs[i]); encodeErr != nil {
			return BulkResult{}, fmt.Errorf("error encoding bulk document: %w", encodeErr)
		}
	}

	res, err := s.client.Bulk(
		bytes.NewReader(buf.Bytes()),
		s.client.Bulk.WithContext(ctx),
		s.client.Bulk.WithRefresh("true"),
	)
	if err != nil {
		s.logger.Warn("Bulk request failed, falling back to per-document writes", "error", err)
		return s.upsertEach(ctx, jobs), nil
	}
	defer s.closeResponse(res, "BulkUpsert", "")

	if res.IsError() {
		return BulkResult{}, fmt.Errorf("bulk error: %s", res.String())
	}

	var parsed bulkResponse
	if decodeErr := json.NewDecoder(res.Body).Decode(&parsed); decodeErr != nil {
		return BulkResult{}, fmt.Errorf("error decoding bulk response: %w", decodeErr)
	}

	result := BulkResult{Saved: len(jobs)}
	if parsed.Errors {
		result = BulkResult{}
		for _, item := range parsed.Items {
			for _, op := range item {
				if op.Error != nil || op.Status >= http.StatusBadRequest {
					result.Failed++
					if op.Error != nil {
						s.logger.Warn("Bulk item rejected",
							"status", op.Status,
							"type", op.Error.Type,
							"reason", op.Error.Reason)
					}
				} else {
					result.Saved++
				}
			}
		}
	}

	s.logger.Info("Bulk upsert finished",
		"index", s.index,
		"saved", result.Saved,
		"failed", result.Failed)
	return result, nil
}

// upsertEach writes documents one at a time, counting failures.
func (s *JobStore) upsertEach(ctx context.Context, jobs []domain.StructuredJob) BulkResult {
	var result BulkResult
	for i := range jobs {
		if err := s.upsertOne(ctx, &jobs[i]); err != nil {
			s.logOperationError("Upsert", docID(&jobs[i]), err)
			result.Failed++
			continue
		}
		result.Saved++
	}
	return result
}

// upsertOne indexes a single job under its deterministic document ID.
func (s *JobStore) upsertOne(ctx context.Context, job *domain.StructuredJob) error {
	body, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("failed to marshal document for indexing: %w", err)
	}

	id := docID(job)
	res, err := s.client.Index(
		s.index,
		bytes.NewReader(body),
		s.client.Index.WithContext(ctx),
		s.client.Index.WithDocumentID(id),
		s.client.Index.WithRefresh("true"),
	)
	if err != nil {
		return fmt.Errorf("failed to index document: %w", err)
	}
	defer s.closeResponse(res, "Upsert", id)

	if res.IsError() {
		return fmt.Errorf("elasticsearch error: %s", res.String())
	}
	return nil
}

// JobQuery filters and paginates a job search. Zero values mean "no filter".
type JobQuery struct {
	Source       string
	Status       string
	WorkType     string
	Company      string
	PostedAfter  time.Time
	PostedBefore time.Time
	Page         int
	Size         int
}

// JobPage is one page of search results.
type JobPage struct {
	Jobs  []domain.StructuredJob `json:"jobs"`
	Total int64                  `json:"total"`
	Page  int                    `json:"page"`
	Size  int                    `json:"size"`
}

// searchResponse is the subset of the _search response we inspect.
type searchResponse struct {
	Hits struct {
		Total struct {
			Value int64 `json:"value"`
		} `json:"total"`
		Hits []struct {
			Source domain.StructuredJob `json:"_source"`
		} `json:"hits"`
	} `json:"hits"`
}

// Search returns jobs matching the query, newest crawl first.
func (s *JobStore) Search(ctx context.Context, q JobQuery) (*JobPage, error) {
	if s.client == nil {
		return nil, errors.New("elasticsearch client is not initialized")
	}

	exists, err := s.indexExists(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to check index existence: %w", err)
	}
	if !exists {
		return nil, fmt.Errorf("%w: %s", ErrIndexNotFound, s.index)
	}

	ctx, cancel := s.createContextWithTimeout(ctx, DefaultSearchTimeout)
	defer cancel()

	page, size := normalizePage(q.Page, q.Size)
	body, err := marshalJSON(buildSearchQuery(q, page, size))
	if err != nil {
		return nil, fmt.Errorf("error marshaling search query: %w", err)
	}

	res, err := s.client.Search(
		s.client.Search.WithContext(ctx),
		s.client.Search.WithIndex(s.index),
		s.client.Search.WithBody(bytes.NewReader(body)),
	)
	if err != nil {
		return nil, fmt.Errorf("error executing search: %w", err)
	}
	defer s.closeResponse(res, "Search", "")

	if res.IsError() {
		return nil, fmt.Errorf("search error: %s", res.String())
	}

	var parsed searchResponse
	if decodeErr := json.NewDecoder(res.Body).Decode(&parsed); decodeErr != nil {
		return nil, fmt.Errorf("error decoding search response: %w", decodeErr)
	}

	result := &JobPage{
		Jobs:  make([]domain.StructuredJob, 0, len(parsed.Hits.Hits)),
		Total: parsed.Hits.Total.Value,
		Page:  page,
		Size:  size,
	}
	for _, hit := range parsed.Hits.Hits {
		result.Jobs = append(result.Jobs, hit.Source)
	}
	return result, nil
}

// Count returns the number of documents in the jobs index.
func (s *JobStore) Count(ctx context.Context) (int64, error) {
	if s.client == nil {
		return 0, errors.New("elasticsearch client is not initialized")
	}

	ctx, cancel := s.createContextWithTimeout(ctx, DefaultSearchTimeout)
	defer cancel()

	res, err := s.client.Count(
		s.client.Count.WithContext(ctx),
		s.client.Count.WithIndex(s.index),
	)
	if err != nil {
		return 0, fmt.Errorf("error executing count: %w", err)
	}
	defer s.closeResponse(res, "Count", "")

	if res.IsError() {
		return 0, fmt.Errorf("count error: %s", res.String())
	}

	var result map[string]any
	if decodeErr := json.NewDecoder(res.Body).Decode(&result); decodeErr != nil {
		return 0, fmt.Errorf("error decoding count response: %w", decodeErr)
	}

	count, ok := result["count"].(float64)
	if !ok {
		return 0, errors.New("invalid response format: count not found")
	}
	return int64(count), nil
}

// DeleteOlderThan removes jobs crawled before the cutoff and returns how
// many were deleted. Used by the cleanup schedule.
func (s *JobStore) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	if s.client == nil {
		return 0, errors.New("elasticsearch client is not initialized")
	}

	ctx, cancel := s.createContextWithTimeout(ctx, DefaultBulkIndexTimeout)
	defer cancel()

	body, err := marshalJSON(map[string]any{
		"query": map[string]any{
			"range": map[string]any{
				"crawled_at": map[string]any{
					"lt": cutoff.UTC().Format(time.RFC3339),
				},
			},
		},
	})
	if err != nil {
		return 0, fmt.Errorf("error marshaling delete query: %w", err)
	}

	res, err := s.client.DeleteByQuery(
		[]string{s.index},
		bytes.NewReader(body),
		s.client.DeleteByQuery.WithContext(ctx),
		s.client.DeleteByQuery.WithRefresh(true),
	)
	if err != nil {
		s.logOperationError("DeleteOlderThan", "", err)
		return 0, fmt.Errorf("error deleting old documents: %w", err)
	}
	defer s.closeResponse(res, "DeleteOlderThan", "")

	if res.IsError() {
		return 0, fmt.Errorf("error deleting old documents: %s", res.String())
	}

	var result struct {
		Deleted int64 `json:"deleted"`
	}
	if decodeErr := json.NewDecoder(res.Body).Decode(&result); decodeErr != nil {
		return 0, fmt.Errorf("error decoding delete response: %w", decodeErr)
	}

	s.logger.Info("Deleted old documents",
		"index", s.index,
		"deleted", result.Deleted,
		"cutoff", cutoff)
	return result.Deleted, nil
}

// TestConnection tests the connection to the storage backend
func (s *JobStore) TestConnection(ctx context.Context) error {
	if s.client == nil {
		return errors.New("elasticsearch client is nil")
	}

	ctx, cancel := s.createContextWithTimeout(ctx, DefaultTestConnectionTimeout)
	defer cancel()

	res, err := s.client.Ping(s.client.Ping.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("error pinging storage: %w", err)
	}
	defer s.closeResponse(res, "TestConnection", "")

	if res.IsError() {
		return fmt.Errorf("error pinging storage: %s", res.String())
	}
	return nil
}

// indexExists checks if the jobs index exists
func (s *JobStore) indexExists(ctx context.Context) (bool, error) {
	ctx, cancel := s.createContextWithTimeout(ctx, DefaultTestConnectionTimeout)
	defer cancel()

	res, err := s.client.Indices.Exists([]string{s.index}, s.client.Indices.Exists.WithContext(ctx))
	if err != nil {
		return false, fmt.Errorf("failed to check index existence: %w", err)
	}
	defer s.closeResponse(res, "IndexExists", "")

	return res.StatusCode == http.StatusOK, nil
}

// buildSearchQuery assembles the bool filter and pagination body.
func buildSearchQuery(q JobQuery, page, size int) map[string]any {
	var filters []map[string]any
	if q.Source != "" {
		filters = append(filters, map[string]any{"term": map[string]any{"source": q.Source}})
	}
	if q.Status != "" {
		filters = append(filters, map[string]any{"term": map[string]any{"status": q.Status}})
	}
	if q.WorkType != "" {
		filters = append(filters, map[string]any{"term": map[string]any{"work_type": q.WorkType}})
	}
	if q.Company != "" {
		filters = append(filters, map[string]any{"match": map[string]any{"company": q.Company}})
	}

	dateRange := map[string]any{}
	if !q.PostedAfter.IsZero() {
		dateRange["gte"] = q.PostedAfter.UTC().Format(time.RFC3339)
	}
	if !q.PostedBefore.IsZero() {
		dateRange["lte"] = q.PostedBefore.UTC().Format(time.RFC3339)
	}
	if len(dateRange) > 0 {
		filters = append(filters, map[string]any{"range": map[string]any{"date_posted": dateRange}})
	}

	query := map[string]any{"match_all": map[string]any{}}
	if len(filters) > 0 {
		query = map[string]any{"bool": map[string]any{"filter": filters}}
	}

	return map[string]any{
		"query": query,
		"sort":  []map[string]any{{"crawled_at": map[string]any{"order": "desc"}}},
		"from":  (page - 1) * size,
		"size":  size,
	}
}

// normalizePage clamps pagination to sane bounds.
func normalizePage(page, size int) (int, int) {
	if page < 1 {
		page = 1
	}
	if size < 1 {
		size = DefaultPageSize
	}
	if size > MaxPageSize {
		size = MaxPageSize
	}
	return page, size
}

// docID derives the deterministic document ID from the job's dedup key.
func docID(job *domain.StructuredJob) string {
	sum := sha256.Sum256([]byte(job.DedupKey()))
	return hex.EncodeToString(sum[:])
}

// Helper function to create a context with timeout
func (s *JobStore) createContextWithTimeout(
	ctx context.Context,
	timeout time.Duration,
) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, timeout)
}

// closeResponse safely closes an Elasticsearch response body and logs any errors
func (s *JobStore) closeResponse(res *esapi.Response, operation, docID string) {
	if closeErr := res.Body.Close(); closeErr != nil {
		fields := []any{
			"error", closeErr,
			"operation", operation,
			"index", s.index,
		}
		if docID != "" {
			fields = append(fields, "doc_id", docID)
		}
		s.logger.Error("Failed to close response body", fields...)
	}
}

// logOperationError logs storage operation errors with context
func (s *JobStore) logOperationError(operation, docID string, err error) {
	s.logger.Error("Storage operation failed",
		"operation", operation,
		"index", s.index,
		"doc_id", docID,
		"error", err)
}

// marshalJSON marshals the given value to JSON and returns an error if it fails
func marshalJSON(v any) ([]byte, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal JSON: %w", err)
	}
	return data, nil
}
