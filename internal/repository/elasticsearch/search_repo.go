package elasticsearch

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"

	"github.com/banking/underwriting-risk/internal/config"
	"github.com/banking/underwriting-risk/internal/domain"
	elastic "github.com/elastic/go-elasticsearch/v8"
)

type SearchRepository struct {
	client *elastic.Client
	index  string
}

// NewSearchRepository creates a new search repository
func NewSearchRepository(cfg config.ElasticsearchConfig) (*SearchRepository, error) {
	client, err := elastic.NewClient(elastic.Config{
		Addresses: cfg.Addresses,
		Username:  cfg.Username,
		Password:  cfg.Password,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create elasticsearch client: %w", err)
	}

	// Verify connection
	_, err = client.Info()
	if err != nil {
		return nil, fmt.Errorf("failed to connect to elasticsearch: %w", err)
	}

	return &SearchRepository{
		client: client,
		index:  cfg.Index,
	}, nil
}

// IndexResult indexes a risk analysis result for search
func (r *SearchRepository) IndexResult(ctx context.Context, result *domain.RiskAnalysisResult) error {
	if r == nil {
		return fmt.Errorf("search repository not available")
	}
	data, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("failed to marshal result: %w", err)
	}

	res, err := r.client.Index(
		r.index,
		bytes.NewReader(data),
		r.client.Index.WithContext(ctx),
		r.client.Index.WithDocumentID(result.AnalysisID.String()),
	)
	if err != nil {
		return fmt.Errorf("failed to index result: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return fmt.Errorf("elasticsearch error: %s", res.String())
	}

	return nil
}

// SearchResults queries stored analyses by free text, matching anomaly
// types, reasons, document types, and identifiers.
func (r *SearchRepository) SearchResults(ctx context.Context, query string, from, size int) (*domain.RiskResultPage, error) {
	if r == nil {
		return nil, fmt.Errorf("search repository not available")
	}
	esQuery := map[string]interface{}{
		"from": from,
		"size": size,
		"query": map[string]interface{}{
			"query_string": map[string]interface{}{
				"query": query,
			},
		},
		"sort": []map[string]interface{}{
			{"analysis_timestamp": "desc"},
		},
	}

	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(esQuery); err != nil {
		return nil, fmt.Errorf("failed to encode query: %w", err)
	}

	res, err := r.client.Search(
		r.client.Search.WithContext(ctx),
		r.client.Search.WithIndex(r.index),
		r.client.Search.WithBody(&buf),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to perform search: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return nil, fmt.Errorf("elasticsearch search error: %s", res.String())
	}

	var parsed map[string]interface{}
	if err := json.NewDecoder(res.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	// Response shape:
	// { "hits": { "total": { "value": ... }, "hits": [ { "_source": ... } ] } }
	hitsMap, ok := parsed["hits"].(map[string]interface{})
	if !ok {
		return &domain.RiskResultPage{}, nil
	}

	totalMap, ok := hitsMap["total"].(map[string]interface{})
	var total int64
	if ok {
		if val, ok := totalMap["value"].(float64); ok {
			total = int64(val)
		}
	}

	hitsList, ok := hitsMap["hits"].([]interface{})
	if !ok {
		return &domain.RiskResultPage{}, nil
	}

	var results []*domain.RiskAnalysisResult
	for _, hit := range hitsList {
		hitMap, ok := hit.(map[string]interface{})
		if !ok {
			continue
		}
		source, ok := hitMap["_source"].(map[string]interface{})
		if !ok {
			continue
		}

		// Re-marshal the source and unmarshal into the struct; cleaner
		// than manual map walking.
		sourceBytes, _ := json.Marshal(source)
		var result domain.RiskAnalysisResult
		if err := json.Unmarshal(sourceBytes, &result); err == nil {
			results = append(results, &result)
		}
	}

	page := 1
	if size > 0 {
		page = from/size + 1
	}
	return &domain.RiskResultPage{
		Results:    results,
		TotalCount: total,
		Page:       page,
		PageSize:   size,
		HasMore:    total > int64(from+size),
	}, nil
}
