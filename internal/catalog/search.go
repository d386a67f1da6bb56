// internal/catalog/search.go
package catalog

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"agrischemes/internal/common/errors"
	"agrischemes/internal/models"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"
)

// SearchIndex maintains the scheme documents in Elasticsearch and answers
// text/filter queries with scheme identifiers. The catalog resolves the full
// records afterward, so Postgres stays the source of truth.
type SearchIndex struct {
	client *elasticsearch.Client
	index  string
}

func NewSearchIndex(client *elasticsearch.Client, index string) *SearchIndex {
	return &SearchIndex{client: client, index: index}
}

// schemeDocument is the flattened projection stored in the index.
type schemeDocument struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Category    string   `json:"category"`
	Provider    string   `json:"provider"`
	Description string   `json:"description"`
	States      []string `json:"states"`
	Crops       []string `json:"crops"`
	Priority    int      `json:"priority"`
	Active      bool     `json:"active"`
}

// Index upserts one scheme document.
func (s *SearchIndex) Index(ctx context.Context, scheme *models.Scheme) error {
	doc := schemeDocument{
		ID:          scheme.ID,
		Name:        scheme.Name,
		Category:    string(scheme.Category),
		Provider:    scheme.Provider,
		Description: scheme.Description,
		States:      scheme.Rules.States,
		Crops:       scheme.Rules.Crops,
		Priority:    scheme.Priority,
		Active:      scheme.Active,
	}
	body, err := json.Marshal(doc)
	if err != nil {
		return errors.NewInvalidInputError("scheme document not serializable: " + err.Error())
	}

	req := esapi.IndexRequest{
		Index:      s.index,
		DocumentID: scheme.ID,
		Body:       bytes.NewReader(body),
		Refresh:    "false",
	}
	res, err := req.Do(ctx, s.client)
	if err != nil {
		return errors.NewSearchQueryFailedError(err)
	}
	defer res.Body.Close()
	if res.IsError() {
		return errors.NewSearchQueryFailedError(fmt.Errorf("index response: %s", res.Status()))
	}
	return nil
}

// Remove deletes one scheme document; a missing document is not an error.
func (s *SearchIndex) Remove(ctx context.Context, schemeID string) error {
	req := esapi.DeleteRequest{
		Index:      s.index,
		DocumentID: schemeID,
	}
	res, err := req.Do(ctx, s.client)
	if err != nil {
		return errors.NewSearchQueryFailedError(err)
	}
	defer res.Body.Close()
	if res.IsError() && res.StatusCode != 404 {
		return errors.NewSearchQueryFailedError(fmt.Errorf("delete response: %s", res.Status()))
	}
	return nil
}

// Search runs a bool query over the index and returns matching scheme IDs
// plus the total hit count.
func (s *SearchIndex) Search(ctx context.Context, filter Filter) ([]string, int, error) {
	body, err := json.Marshal(buildSearchQuery(filter))
	if err != nil {
		return nil, 0, errors.NewSearchQueryFailedError(err)
	}

	from := (filter.Page - 1) * filter.PageSize
	size := filter.PageSize
	req := esapi.SearchRequest{
		Index: []string{s.index},
		Body:  strings.NewReader(string(body)),
		From:  &from,
		Size:  &size,
	}
	res, err := req.Do(ctx, s.client)
	if err != nil {
		return nil, 0, errors.NewSearchQueryFailedError(err)
	}
	defer res.Body.Close()
	if res.IsError() {
		return nil, 0, errors.NewSearchQueryFailedError(fmt.Errorf("search response: %s", res.Status()))
	}

	var parsed struct {
		Hits struct {
			Total struct {
				Value int `json:"value"`
			} `json:"total"`
			Hits []struct {
				ID string `json:"_id"`
			} `json:"hits"`
		} `json:"hits"`
	}
	if err := json.NewDecoder(res.Body).Decode(&parsed); err != nil {
		return nil, 0, errors.NewSearchQueryFailedError(err)
	}

	ids := make([]string, 0, len(parsed.Hits.Hits))
	for _, hit := range parsed.Hits.Hits {
		ids = append(ids, hit.ID)
	}
	return ids, parsed.Hits.Total.Value, nil
}

// buildSearchQuery assembles the bool query: a multi_match over the text
// fields plus term filters for each restricted dimension. Schemes with empty
// state/crop lists are unrestricted and must match every filter value.
func buildSearchQuery(filter Filter) map[string]interface{} {
	mustClauses := []interface{}{}
	filterClauses := []interface{}{
		map[string]interface{}{
			"term": map[string]interface{}{"active": true},
		},
	}

	if filter.Query != "" {
		mustClauses = append(mustClauses, map[string]interface{}{
			"multi_match": map[string]interface{}{
				"query":  filter.Query,
				"fields": []string{"name^3", "description^2", "provider"},
				"type":   "best_fields",
			},
		})
	}
	if filter.Category != "" {
		filterClauses = append(filterClauses, map[string]interface{}{
			"term": map[string]interface{}{"category": string(filter.Category)},
		})
	}
	if filter.State != "" {
		filterClauses = append(filterClauses, unrestrictedOrMatch("states", filter.State))
	}
	if filter.Crop != "" {
		filterClauses = append(filterClauses, unrestrictedOrMatch("crops", filter.Crop))
	}

	boolQuery := map[string]interface{}{
		"filter": filterClauses,
	}
	if len(mustClauses) > 0 {
		boolQuery["must"] = mustClauses
	}

	return map[string]interface{}{
		"query": map[string]interface{}{
			"bool": boolQuery,
		},
		"sort": []interface{}{
			map[string]interface{}{"priority": map[string]interface{}{"order": "desc"}},
			"_score",
		},
	}
}

// unrestrictedOrMatch matches documents whose list field either contains the
// value or is absent entirely (nationwide / any-crop schemes).
func unrestrictedOrMatch(field, value string) map[string]interface{} {
	return map[string]interface{}{
		"bool": map[string]interface{}{
			"should": []interface{}{
				map[string]interface{}{
					"term": map[string]interface{}{field: value},
				},
				map[string]interface{}{
					"bool": map[string]interface{}{
						"must_not": []interface{}{
							map[string]interface{}{
								"exists": map[string]interface{}{"field": field},
							},
						},
					},
				},
			},
			"minimum_should_match": 1,
		},
	}
}
