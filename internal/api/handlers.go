// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/pdiddy/harvest/internal/export"
	"github.com/pdiddy/harvest/internal/search"
	"github.com/pdiddy/harvest/internal/store"
	"github.com/pdiddy/harvest/pkg/types"
)

const maxBodyBytes = 1 << 20

var contentTypes = map[export.Format]string{
	export.FormatJSON:     "application/json",
	export.FormatCSV:      "text/csv; charset=utf-8",
	export.FormatMarkdown: "text/markdown; charset=utf-8",
	export.FormatBibTeX:   "application/x-bibtex; charset=utf-8",
	export.FormatRIS:      "application/x-research-info-systems; charset=utf-8",
	export.FormatCSL:      "application/yaml; charset=utf-8",
}

type searchRequest struct {
	Query   string `json:"q" validate:"required,max=500"`
	Mode    string `json:"mode" validate:"omitempty,oneof=first merge"`
	Max     int    `json:"max" validate:"gte=0,lte=200"`
	YearMin int    `json:"year_min" validate:"gte=0,lte=9999"`
	YearMax int    `json:"year_max" validate:"gte=0,lte=9999"`
	Enrich  bool   `json:"enrich"`
	Format  string `json:"format"`
}

type listRequest struct {
	Company string `json:"company" validate:"max=300"`
	Since   time.Time
	Until   time.Time
	Limit   int `json:"limit" validate:"gte=0,lte=1000"`
	Offset  int `json:"offset" validate:"gte=0"`
}

type sentimentResponse struct {
	DisclosureID string                 `json:"disclosure_id"`
	Verdict      types.SentimentVerdict `json:"verdict"`
}

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return fld.Name
		}
		return name
	})
	return v
}

// validationMessage renders validator errors as "field: rule" pairs.
func validationMessage(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err.Error()
	}
	parts := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		rule := fe.Tag()
		if fe.Param() != "" {
			rule += "=" + fe.Param()
		}
		parts = append(parts, fe.Field()+": "+rule)
	}
	return "invalid request: " + strings.Join(parts, ", ")
}

func intParam(r *http.Request, name string) (int, error) {
	raw := strings.TrimSpace(r.URL.Query().Get(name))
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("%s must be an integer", name)
	}
	return n, nil
}

func timeParam(r *http.Request, name string) (time.Time, error) {
	raw := strings.TrimSpace(r.URL.Query().Get(name))
	if raw == "" {
		return time.Time{}, nil
	}
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t, nil
	}
	if t, err := time.Parse(time.DateOnly, raw); err == nil {
		return t, nil
	}
	return time.Time{}, fmt.Errorf("%s must be a date (2006-01-02) or RFC 3339 time", name)
}

func (s *Server) search(w http.ResponseWriter, r *http.Request) {
	if s.deps.Searcher == nil {
		writeUnavailable(w, "search is not configured")
		return
	}
	req := searchRequest{
		Query:  r.URL.Query().Get("q"),
		Mode:   r.URL.Query().Get("mode"),
		Format: r.URL.Query().Get("format"),
	}
	var err error
	for name, dst := range map[string]*int{"max": &req.Max, "year_min": &req.YearMin, "year_max": &req.YearMax} {
		if *dst, err = intParam(r, name); err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
	}
	if raw := r.URL.Query().Get("enrich"); raw != "" {
		if req.Enrich, err = strconv.ParseBool(raw); err != nil {
			writeError(w, http.StatusBadRequest, "enrich must be a boolean")
			return
		}
	}
	if err := s.validate.Struct(req); err != nil {
		writeError(w, http.StatusBadRequest, validationMessage(err))
		return
	}
	format := export.FormatJSON
	if req.Format != "" {
		if format, err = export.ParseFormat(req.Format); err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
	}

	q := search.Query{Text: req.Query, MaxResults: req.Max, YearMin: req.YearMin, YearMax: req.YearMax}
	rs, err := s.deps.Searcher.Search(r.Context(), q, types.SearchMode(req.Mode))
	if err != nil {
		if errors.Is(err, search.ErrEmptyQuery) || errors.Is(err, search.ErrNoProviders) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		s.log.Error().Err(err).Str("request_id", requestID(r.Context())).Msg("search failed")
		writeError(w, http.StatusInternalServerError, "search failed")
		return
	}
	if req.Enrich && s.deps.Enricher != nil {
		rs, _ = s.deps.Enricher.Enrich(r.Context(), rs)
	}

	body, err := export.Render(rs, format, export.Options{})
	if err != nil {
		s.log.Error().Err(err).Str("format", string(format)).Msg("rendering results failed")
		writeError(w, http.StatusInternalServerError, "rendering failed")
		return
	}
	w.Header().Set("Content-Type", contentTypes[format])
	w.WriteHeader(http.StatusOK)
	io.WriteString(w, body)
}

func (s *Server) listDisclosures(w http.ResponseWriter, r *http.Request) {
	if s.deps.Store == nil {
		writeUnavailable(w, "storage is not configured")
		return
	}
	req := listRequest{Company: r.URL.Query().Get("company")}
	var err error
	if req.Limit, err = intParam(r, "limit"); err == nil {
		req.Offset, err = intParam(r, "offset")
	}
	if err == nil {
		req.Since, err = timeParam(r, "since")
	}
	if err == nil {
		req.Until, err = timeParam(r, "until")
	}
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := s.validate.Struct(req); err != nil {
		writeError(w, http.StatusBadRequest, validationMessage(err))
		return
	}

	out, err := s.deps.Store.ListDisclosures(r.Context(), store.ListOptions{
		Company: req.Company,
		Since:   req.Since,
		Until:   req.Until,
		Limit:   req.Limit,
		Offset:  req.Offset,
	})
	if err != nil {
		s.writeStoreError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"disclosures": out, "count": len(out)})
}

func (s *Server) getDisclosure(w http.ResponseWriter, r *http.Request) {
	if s.deps.Store == nil {
		writeUnavailable(w, "storage is not configured")
		return
	}
	d, err := s.deps.Store.GetDisclosure(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeStoreError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, d)
}

func (s *Server) putDisclosure(w http.ResponseWriter, r *http.Request) {
	if s.deps.Store == nil {
		writeUnavailable(w, "storage is not configured")
		return
	}
	id := chi.URLParam(r, "id")
	var d types.Disclosure
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&d); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body: "+err.Error())
		return
	}
	if d.DisclosureID == "" {
		d.DisclosureID = id
	}
	if d.DisclosureID != id {
		writeError(w, http.StatusBadRequest, "disclosure_id does not match the path")
		return
	}
	if err := s.validate.Struct(d); err != nil {
		writeError(w, http.StatusBadRequest, validationMessage(err))
		return
	}
	if err := s.deps.Store.UpsertDisclosure(r.Context(), d); err != nil {
		s.writeStoreError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, d)
}

func (s *Server) deleteDisclosure(w http.ResponseWriter, r *http.Request) {
	if s.deps.Store == nil {
		writeUnavailable(w, "storage is not configured")
		return
	}
	if err := s.deps.Store.DeleteDisclosure(r.Context(), chi.URLParam(r, "id")); err != nil {
		s.writeStoreError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// tagDisclosure analyzes a stored disclosure and persists the verdict.
func (s *Server) tagDisclosure(w http.ResponseWriter, r *http.Request) {
	if s.deps.Store == nil || s.deps.Tagger == nil {
		writeUnavailable(w, "sentiment analysis is not configured")
		return
	}
	ctx := r.Context()
	d, err := s.deps.Store.GetDisclosure(ctx, chi.URLParam(r, "id"))
	if err != nil {
		s.writeStoreError(w, r, err)
		return
	}
	text := d.Content
	if strings.TrimSpace(text) == "" {
		text = strings.TrimSpace(d.Subject + ". " + d.Summary)
	}
	v, ok := s.deps.Tagger.Tag(ctx, d.DisclosureID, text)
	if !ok {
		writeError(w, http.StatusUnprocessableEntity, "no verdict could be produced")
		return
	}
	row := store.SentimentRow{
		Company:      d.Company,
		Date:         d.PublishedAt,
		DisclosureID: d.DisclosureID,
		Verdict:      v,
	}
	if err := s.deps.Store.UpsertSentiment(ctx, row); err != nil {
		s.writeStoreError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, sentimentResponse{DisclosureID: d.DisclosureID, Verdict: v})
}
