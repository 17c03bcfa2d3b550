package nse

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"mfDealFlow/internal/domain"
	"mfDealFlow/internal/ports"
)

// ArchiveSource reads the daily archive CSV. Rows carry one client name and a
// Buy/Sell flag.
type ArchiveSource struct {
	client   *Client
	name     string
	url      string
	dealType domain.DealType
}

// NewArchiveSource creates a source for one archive file.
func NewArchiveSource(client *Client, name, url string, dealType domain.DealType) *ArchiveSource {
	return &ArchiveSource{client: client, name: name, url: url, dealType: dealType}
}

func (s *ArchiveSource) Name() string              { return s.name }
func (s *ArchiveSource) DealType() domain.DealType { return s.dealType }
func (s *ArchiveSource) RequiresSession() bool     { return false }

// Fetch downloads and parses the archive file.
func (s *ArchiveSource) Fetch(ctx context.Context) (*domain.RawBatch, error) {
	body, err := s.client.get(ctx, s.url, "text/csv,*/*")
	if err != nil {
		return nil, fmt.Errorf("%s: %w", s.name, err)
	}
	batch, err := parseCSV(body)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to parse CSV: %w: %w", s.name, ports.ErrSourceUnavailable, err)
	}
	batch.Source = s.name
	batch.DealType = s.dealType
	batch.Shape = domain.ShapeSingle

	s.client.logger.Debug(ctx, "Archive fetched", map[string]interface{}{
		"source": s.name, "rows": len(batch.Rows), "columns": len(batch.Columns),
	})
	return batch, nil
}

// parseCSV maps each record onto the header. Short records leave the
// missing columns empty; surplus fields are ignored.
func parseCSV(data []byte) (*domain.RawBatch, error) {
	data = bytes.TrimPrefix(data, []byte("\xef\xbb\xbf"))
	r := csv.NewReader(bytes.NewReader(data))
	r.FieldsPerRecord = -1
	r.LazyQuotes = true
	r.TrimLeadingSpace = true

	header, err := r.Read()
	if err != nil {
		return nil, fmt.Errorf("failed to read header: %w", err)
	}
	columns := make([]string, len(header))
	for i, h := range header {
		columns[i] = strings.TrimSpace(h)
	}

	batch := &domain.RawBatch{Columns: columns}
	for {
		record, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}
		if blankRecord(record) {
			continue
		}
		row := make(domain.RawRow, len(columns))
		for i, col := range columns {
			if col == "" {
				continue
			}
			if i < len(record) {
				row[col] = strings.TrimSpace(record[i])
			} else {
				row[col] = ""
			}
		}
		batch.Rows = append(batch.Rows, row)
	}
	return batch, nil
}

func blankRecord(record []string) bool {
	for _, f := range record {
		if strings.TrimSpace(f) != "" {
			return false
		}
	}
	return true
}
