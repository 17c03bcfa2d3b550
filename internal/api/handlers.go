package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"mfDealFlow/internal/app"
	"mfDealFlow/internal/domain"
	"mfDealFlow/internal/ports"
)

type sourceDTO struct {
	Name     string `json:"name"`
	DealType string `json:"dealType"`
	Rows     int    `json:"rows"`
	Error    string `json:"error,omitempty"`
}

type runDTO struct {
	RunID         string      `json:"runId"`
	StartedAt     time.Time   `json:"startedAt"`
	Outcome       string      `json:"outcome"`
	Sources       []sourceDTO `json:"sources"`
	Fetched       int         `json:"fetched"`
	Dropped       int         `json:"dropped"`
	Added         int         `json:"added"`
	Total         int         `json:"total"`
	HighWaterMark string      `json:"highWaterMark,omitempty"`
	Accumulation  int         `json:"accumulation"`
	Exit          int         `json:"exit"`
}

type dealDTO struct {
	TradeDate    string `json:"tradeDate"`
	Symbol       string `json:"symbol"`
	SecurityName string `json:"securityName,omitempty"`
	DealType     string `json:"dealType"`
	ClientName   string `json:"clientName,omitempty"`
	Side         string `json:"side,omitempty"`
	BuyerName    string `json:"buyerName,omitempty"`
	SellerName   string `json:"sellerName,omitempty"`
	Quantity     int64  `json:"quantity"`
	Price        string `json:"price"`
	Remarks      string `json:"remarks,omitempty"`
	Signal       string `json:"signal"`
}

type dealsResponse struct {
	Outcome string    `json:"outcome"`
	Start   string    `json:"start,omitempty"`
	End     string    `json:"end,omitempty"`
	Count   int       `json:"count"`
	Deals   []dealDTO `json:"deals"`
}

type symbolFlowDTO struct {
	Symbol   string `json:"symbol"`
	Signal   string `json:"signal"`
	Quantity int64  `json:"quantity"`
	Trades   int    `json:"trades"`
}

type summaryResponse struct {
	Outcome      string          `json:"outcome"`
	Start        string          `json:"start,omitempty"`
	End          string          `json:"end,omitempty"`
	Accumulation int             `json:"accumulation"`
	Exit         int             `json:"exit"`
	Total        int             `json:"total"`
	BySymbol     []symbolFlowDTO `json:"bySymbol"`
}

type errorResponse struct {
	Error   string `json:"error"`
	Outcome string `json:"outcome,omitempty"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	resp := map[string]interface{}{"status": "ok"}

	if s.hwm != nil {
		mark, err := s.hwm(r.Context())
		switch {
		case err == nil:
			resp["highWaterMark"] = dateParam(mark)
		case errors.Is(err, ports.ErrStoreNotFound):
			resp["store"] = "not initialized"
		default:
			resp["store"] = "error"
		}
	}

	s.stateMu.RLock()
	if s.lastRun != nil {
		resp["lastRun"] = toRunDTO(s.lastRun)
	}
	if s.lastErr != nil {
		resp["lastError"] = s.lastErr.Error()
	}
	s.stateMu.RUnlock()

	s.writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleIngest(w http.ResponseWriter, r *http.Request) {
	report, err := s.RunIngest(r.Context())
	if err != nil {
		s.logger.Error(r.Context(), err, "Ingestion failed")
		s.writeError(w, err)
		return
	}

	status := http.StatusOK
	if report.Outcome == domain.OutcomeSourceUnavailable {
		status = http.StatusServiceUnavailable
	}
	s.writeJSON(w, status, toRunDTO(report))
}

func (s *Server) handleDeals(w http.ResponseWriter, r *http.Request) {
	opts, err := parseQueryOptions(r)
	if err != nil {
		s.writeError(w, err)
		return
	}

	res, err := s.querier.Query(r.Context(), opts)
	if err != nil {
		s.writeError(w, err)
		return
	}

	resp := dealsResponse{
		Outcome: string(res.Outcome),
		Start:   dateParam(res.Range.Start),
		End:     dateParam(res.Range.End),
		Count:   len(res.Deals),
		Deals:   make([]dealDTO, 0, len(res.Deals)),
	}
	for _, d := range res.Deals {
		resp.Deals = append(resp.Deals, toDealDTO(d))
	}
	s.writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	opts, err := parseQueryOptions(r)
	if err != nil {
		s.writeError(w, err)
		return
	}

	sum, err := s.querier.Summary(r.Context(), opts)
	if err != nil {
		s.writeError(w, err)
		return
	}

	resp := summaryResponse{
		Outcome:      string(sum.Outcome),
		Start:        dateParam(sum.Range.Start),
		End:          dateParam(sum.Range.End),
		Accumulation: sum.Accumulation,
		Exit:         sum.Exit,
		Total:        sum.Total,
		BySymbol:     make([]symbolFlowDTO, 0, len(sum.BySymbol)),
	}
	for _, f := range sum.BySymbol {
		resp.BySymbol = append(resp.BySymbol, symbolFlowDTO{
			Symbol: f.Symbol, Signal: string(f.Signal), Quantity: f.Quantity, Trades: f.Trades,
		})
	}
	s.writeJSON(w, http.StatusOK, resp)
}

func parseQueryOptions(r *http.Request) (app.QueryOptions, error) {
	var opts app.QueryOptions
	q := r.URL.Query()

	if v := q.Get("start"); v != "" {
		t, err := time.Parse(domain.DateLayout, v)
		if err != nil {
			return opts, fmt.Errorf("invalid start %q, want YYYY-MM-DD: %w", v, ports.ErrInvalidRequest)
		}
		opts.Range.Start = t
	}
	if v := q.Get("end"); v != "" {
		t, err := time.Parse(domain.DateLayout, v)
		if err != nil {
			return opts, fmt.Errorf("invalid end %q, want YYYY-MM-DD: %w", v, ports.ErrInvalidRequest)
		}
		opts.Range.End = t
	}
	if v := q.Get("actionable"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return opts, fmt.Errorf("invalid actionable %q: %w", v, ports.ErrInvalidRequest)
		}
		opts.ActionableOnly = b
	}
	opts.Symbol = strings.TrimSpace(q.Get("symbol"))
	return opts, nil
}

// statusFor maps the error taxonomy onto HTTP statuses.
func statusFor(err error) (int, domain.Outcome) {
	switch {
	case errors.Is(err, ports.ErrInvalidRequest):
		return http.StatusBadRequest, ""
	case errors.Is(err, ports.ErrStoreNotFound):
		return http.StatusServiceUnavailable, domain.OutcomeNoData
	case errors.Is(err, ports.ErrSourceUnavailable):
		return http.StatusServiceUnavailable, domain.OutcomeSourceUnavailable
	default:
		return http.StatusInternalServerError, ""
	}
}

func (s *Server) writeError(w http.ResponseWriter, err error) {
	status, outcome := statusFor(err)
	msg := err.Error()
	if errors.Is(err, ports.ErrStoreNotFound) {
		msg = "pipeline has not run yet: " + msg
	}
	s.writeJSON(w, status, errorResponse{Error: msg, Outcome: string(outcome)})
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.logger.Error(context.Background(), err, "Failed to encode JSON response")
	}
}

func toRunDTO(r *domain.RunReport) runDTO {
	dto := runDTO{
		RunID:         r.RunID,
		StartedAt:     r.StartedAt,
		Outcome:       string(r.Outcome),
		Sources:       make([]sourceDTO, 0, len(r.Sources)),
		Fetched:       r.Fetched,
		Dropped:       r.Dropped,
		Added:         r.Added,
		Total:         r.Total,
		HighWaterMark: dateParam(r.HighWaterMark),
		Accumulation:  r.Accumulation,
		Exit:          r.Exit,
	}
	for _, st := range r.Sources {
		sd := sourceDTO{Name: st.Name, DealType: string(st.DealType), Rows: st.Rows}
		if st.Err != nil {
			sd.Error = st.Err.Error()
		}
		dto.Sources = append(dto.Sources, sd)
	}
	return dto
}

func toDealDTO(d *domain.Deal) dealDTO {
	return dealDTO{
		TradeDate:    d.TradeDate.Format(domain.DateLayout),
		Symbol:       d.Symbol,
		SecurityName: d.SecurityName,
		DealType:     string(d.DealType),
		ClientName:   d.ClientName,
		Side:         string(d.Side),
		BuyerName:    d.BuyerName,
		SellerName:   d.SellerName,
		Quantity:     d.Quantity,
		Price:        d.Price.String(),
		Remarks:      d.Remarks,
		Signal:       string(d.Signal),
	}
}

func dateParam(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(domain.DateLayout)
}
