package search

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/elastic/go-elasticsearch/v9"
	"github.com/google/uuid"
	"github.com/tidwall/gjson"

	"github.com/agrokasa/advert_market/internal/models"
)

// AdvertIndex mirrors adverts into an elasticsearch index for fuzzy search.
type AdvertIndex struct {
	ES    *elasticsearch.Client
	Index string
}

type advertDoc struct {
	Title       string  `json:"title"`
	Description string  `json:"description"`
	Category    string  `json:"category"`
	Price       float64 `json:"price"`
	Owner       string  `json:"owner"`
}

func (x *AdvertIndex) IndexAdvert(ctx context.Context, a *models.Advert) error {
	body, err := json.Marshal(advertDoc{
		Title:       a.Title,
		Description: a.Description,
		Category:    a.Category,
		Price:       a.Price,
		Owner:       a.OwnerID.String(),
	})
	if err != nil {
		return fmt.Errorf("search: encode advert: %w", err)
	}

	res, err := x.ES.Index(x.Index, bytes.NewReader(body),
		x.ES.Index.WithContext(ctx),
		x.ES.Index.WithDocumentID(a.ID.String()),
	)
	if err != nil {
		return fmt.Errorf("search: index advert: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return fmt.Errorf("search: index advert: %s", res.Status())
	}
	return nil
}

// DeleteAdvert removes id from the index; a document that is already gone is not an error.
func (x *AdvertIndex) DeleteAdvert(ctx context.Context, id uuid.UUID) error {
	res, err := x.ES.Delete(x.Index, id.String(), x.ES.Delete.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("search: delete advert: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() && res.StatusCode != http.StatusNotFound {
		return fmt.Errorf("search: delete advert: %s", res.Status())
	}
	return nil
}

// Search returns the ids of matching adverts, best match first.
func (x *AdvertIndex) Search(ctx context.Context, query string, from, size int) ([]uuid.UUID, error) {
	body := map[string]any{
		"query": map[string]any{
			"multi_match": map[string]any{
				"query":     query,
				"fields":    []string{"title^2", "description", "category"},
				"fuzziness": "AUTO",
			},
		},
		"from":    from,
		"size":    size,
		"_source": false,
	}

	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(body); err != nil {
		return nil, fmt.Errorf("search: encode query: %w", err)
	}

	res, err := x.ES.Search(
		x.ES.Search.WithContext(ctx),
		x.ES.Search.WithIndex(x.Index),
		x.ES.Search.WithBody(&buf),
	)
	if err != nil {
		return nil, fmt.Errorf("search: query: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return nil, fmt.Errorf("search: query: %s", res.Status())
	}

	raw, err := io.ReadAll(res.Body)
	if err != nil {
		return nil, fmt.Errorf("search: read response: %w", err)
	}

	hits := gjson.GetBytes(raw, "hits.hits.#._id").Array()
	ids := make([]uuid.UUID, 0, len(hits))
	for _, h := range hits {
		id, err := uuid.Parse(h.String())
		if err != nil {
			continue
		}
		ids = append(ids, id)
	}
	return ids, nil
}
