package nse

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"

	"mfDealFlow/internal/domain"
	"mfDealFlow/internal/ports"
)

// APISource reads the JSON deal endpoint. Rows carry separate buyer and seller
// names, and the endpoint only answers once the session has been warmed up.
type APISource struct {
	client   *Client
	name     string
	url      string
	dealType domain.DealType
}

// NewAPISource creates a source for one JSON endpoint.
func NewAPISource(client *Client, name, url string, dealType domain.DealType) *APISource {
	return &APISource{client: client, name: name, url: url, dealType: dealType}
}

func (s *APISource) Name() string              { return s.name }
func (s *APISource) DealType() domain.DealType { return s.dealType }
func (s *APISource) RequiresSession() bool     { return true }

type apiResponse struct {
	Data []map[string]interface{} `json:"data"`
}

// Fetch queries the endpoint and flattens the "data" array into rows.
func (s *APISource) Fetch(ctx context.Context) (*domain.RawBatch, error) {
	body, err := s.client.get(ctx, s.url, "application/json")
	if err != nil {
		return nil, fmt.Errorf("%s: %w", s.name, err)
	}
	batch, err := parseJSON(body)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to decode response: %w: %w", s.name, ports.ErrSourceUnavailable, err)
	}
	batch.Source = s.name
	batch.DealType = s.dealType
	batch.Shape = domain.ShapeDual

	s.client.logger.Debug(ctx, "API fetched", map[string]interface{}{
		"source": s.name, "rows": len(batch.Rows), "columns": len(batch.Columns),
	})
	return batch, nil
}

func parseJSON(data []byte) (*domain.RawBatch, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var resp apiResponse
	if err := dec.Decode(&resp); err != nil {
		return nil, err
	}

	seen := make(map[string]bool)
	batch := &domain.RawBatch{}
	for _, obj := range resp.Data {
		row := make(domain.RawRow, len(obj))
		for k, v := range obj {
			row[k] = stringify(v)
			if !seen[k] {
				seen[k] = true
				batch.Columns = append(batch.Columns, k)
			}
		}
		batch.Rows = append(batch.Rows, row)
	}
	// Object keys have no order; sort so column resolution is deterministic.
	sort.Strings(batch.Columns)
	return batch, nil
}

func stringify(v interface{}) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case json.Number:
		return t.String()
	case bool:
		return strconv.FormatBool(t)
	default:
		b, err := json.Marshal(t)
		if err != nil {
			return fmt.Sprint(t)
		}
		return string(b)
	}
}
