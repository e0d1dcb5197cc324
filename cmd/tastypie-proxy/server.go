package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/Sternrassler/tastypie-client/pkg/adapter"
	"github.com/Sternrassler/tastypie-client/pkg/loader"
	"github.com/Sternrassler/tastypie-client/pkg/metrics"
	"github.com/Sternrassler/tastypie-client/pkg/pagination"
	"github.com/Sternrassler/tastypie-client/pkg/transport"
	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
)

// Pinger reports whether the metadata store backend is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

type server struct {
	adapter *adapter.Adapter
	loader  *loader.Loader
	pinger  Pinger
	timeout time.Duration
	logger  zerolog.Logger
}

// setResponse is the body of GET {type}/set/{ids}/.
type setResponse struct {
	Objects  []json.RawMessage `json:"objects"`
	NotFound []string          `json:"not_found,omitempty"`
}

type manyResponse struct {
	Requests int               `json:"requests"`
	Objects  []json.RawMessage `json:"objects"`
	NotFound []string          `json:"not_found"`
}

type allPagesResponse struct {
	Pages   int               `json:"pages"`
	Objects []json.RawMessage `json:"objects"`
}

func (s *server) routes() http.Handler {
	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(s.requestLogger)

	r.Get("/health", healthHandler)
	r.Get("/ready", s.readyHandler)
	r.Handle("/metrics", metrics.Handler())

	r.Route("/records/{type}", func(r chi.Router) {
		r.Get("/", s.handleList)
		r.Delete("/since", s.handleResetSince)
		r.Get("/{id}", s.handleFind)
	})

	return r
}

func healthHandler(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	fmt.Fprint(w, "OK")
}

func (s *server) readyHandler(w http.ResponseWriter, r *http.Request) {
	if s.pinger != nil {
		if err := s.pinger.Ping(r.Context()); err != nil {
			s.logger.Warn().Err(err).Msg("Metadata store not ready")
			http.Error(w, "metadata store unavailable", http.StatusServiceUnavailable)
			return
		}
	}
	w.WriteHeader(http.StatusOK)
	fmt.Fprint(w, "READY")
}

// handleList serves GET /records/{type}:
//   - ?ids=a,b,c loads the records with as few set requests as fit
//   - ?all=true walks every page in parallel
//   - otherwise the next page after the stored since token is returned
func (s *server) handleList(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), s.timeout)
	defer cancel()

	typeKey := chi.URLParam(r, "type")
	query := r.URL.Query()

	switch {
	case query.Get("ids") != "":
		s.loadMany(ctx, w, typeKey, splitIDs(query.Get("ids")))
	case query.Get("all") == "true":
		s.loadAllPages(ctx, w, typeKey)
	default:
		payload, err := s.loader.LoadAll(ctx, typeKey)
		if err != nil {
			s.writeError(w, err)
			return
		}
		writeRaw(w, http.StatusOK, payload)
	}
}

func (s *server) loadMany(ctx context.Context, w http.ResponseWriter, typeKey string, ids []string) {
	records := make([]adapter.Record, len(ids))
	for i, id := range ids {
		records[i] = adapter.Record{Type: typeKey, ID: id}
	}

	results, err := s.loader.LoadMany(ctx, records)
	if err != nil {
		s.writeError(w, err)
		return
	}

	resp := manyResponse{
		Requests: len(results),
		Objects:  []json.RawMessage{},
		NotFound: []string{},
	}
	for _, res := range results {
		var set setResponse
		if err := json.Unmarshal(res.Payload, &set); err != nil {
			s.writeError(w, fmt.Errorf("decode set response: %w", err))
			return
		}
		resp.Objects = append(resp.Objects, set.Objects...)
		resp.NotFound = append(resp.NotFound, set.NotFound...)
	}

	writeJSON(w, http.StatusOK, resp)
}

func (s *server) loadAllPages(ctx context.Context, w http.ResponseWriter, typeKey string) {
	pages, err := s.loader.LoadAllPages(ctx, typeKey)
	if err != nil {
		s.writeError(w, err)
		return
	}

	offsets := make([]int, 0, len(pages))
	for off := range pages {
		offsets = append(offsets, off)
	}
	sort.Ints(offsets)

	resp := allPagesResponse{Pages: len(pages), Objects: []json.RawMessage{}}
	for _, off := range offsets {
		list, err := pagination.DecodeList(pages[off])
		if err != nil {
			s.writeError(w, err)
			return
		}
		resp.Objects = append(resp.Objects, list.Objects...)
	}

	writeJSON(w, http.StatusOK, resp)
}

func (s *server) handleResetSince(w http.ResponseWriter, r *http.Request) {
	if err := s.loader.Reset(r.Context(), chi.URLParam(r, "type")); err != nil {
		s.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *server) handleFind(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), s.timeout)
	defer cancel()

	payload, err := s.adapter.Find(ctx, chi.URLParam(r, "type"), chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeRaw(w, http.StatusOK, payload)
}

// writeError forwards upstream client errors and maps everything else to
// 502 Bad Gateway.
func (s *server) writeError(w http.ResponseWriter, err error) {
	status := http.StatusBadGateway

	var httpErr *transport.HTTPError
	if errors.As(err, &httpErr) && httpErr.ErrorClass == transport.ErrorClassClient {
		status = httpErr.StatusCode
	}

	s.logger.Error().Err(err).Int("status", status).Msg("Upstream request failed")
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

func (s *server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := chimiddleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		s.logger.Info().
			Str("method", r.Method).
			Str("uri", r.RequestURI).
			Int("status", ww.Status()).
			Int("size", ww.BytesWritten()).
			Dur("duration", time.Since(start)).
			Str("request_id", chimiddleware.GetReqID(r.Context())).
			Msg("Request processed")
	})
}

func splitIDs(raw string) []string {
	var ids []string
	for _, id := range strings.Split(raw, ",") {
		if id = strings.TrimSpace(id); id != "" {
			ids = append(ids, id)
		}
	}
	return ids
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	body, err := json.Marshal(v)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeRaw(w, status, body)
}

func writeRaw(w http.ResponseWriter, status int, body []byte) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write(body)
}
