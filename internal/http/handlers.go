package http

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"insights/internal/chart"
	"insights/internal/dashboard"
	applog "insights/internal/log"
)

// handleDashboard renders the whole page. The raw table is included when
// the toggle was submitted without JavaScript (?raw=on).
func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), buildTimeout)
	defer cancel()
	logger := applog.FromContext(ctx)

	d, err := s.builder.Build(ctx)
	if err != nil {
		logger.ErrorContext(ctx, "Dashboard build failed", applog.FieldOperation, applog.OpAggregate, applog.FieldError, err)
		http.Error(w, "dashboard unavailable", http.StatusInternalServerError)
		return
	}

	data := pageData{
		Title:       d.Title,
		Description: d.Description,
		Shape:       d.Shape,
		Blocks:      make([]blockView, 0, len(d.Blocks)),
	}
	for _, blk := range d.Blocks {
		data.Blocks = append(data.Blocks, newBlockView(blk))
	}
	if rawRequested(r) {
		raw, err := s.rawPage(ctx, parsePage(r))
		if err != nil {
			logger.ErrorContext(ctx, "Raw data read failed", applog.FieldError, err)
			http.Error(w, "raw data unavailable", http.StatusInternalServerError)
			return
		}
		data.Raw = raw
	}

	s.render(w, r, "dashboard", data)
}

// handleRawData returns the raw-data partial swapped in by the toggle.
func (s *Server) handleRawData(w http.ResponseWriter, r *http.Request) {
	if !rawRequested(r) {
		s.render(w, r, "raw_data", rawView{})
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), buildTimeout)
	defer cancel()

	raw, err := s.rawPage(ctx, parsePage(r))
	if err != nil {
		applog.FromContext(ctx).ErrorContext(ctx, "Raw data read failed", applog.FieldError, err)
		http.Error(w, "raw data unavailable", http.StatusInternalServerError)
		return
	}
	s.render(w, r, "raw_data", raw)
}

// handleChart serves /charts/{id}.svg from the chart cache.
func (s *Server) handleChart(w http.ResponseWriter, r *http.Request) {
	id, ok := strings.CutSuffix(r.PathValue("file"), ".svg")
	if !ok {
		http.NotFound(w, r)
		return
	}
	spec, ok := dashboard.SpecByID(id)
	if !ok || !spec.HasChart() {
		http.NotFound(w, r)
		return
	}
	ctx := r.Context()
	logger := applog.FromContext(ctx)

	svg, hit, err := s.charts.GetOrLoad(id, func() ([]byte, error) {
		// Shared by every waiting request, so not tied to this one.
		lctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), buildTimeout)
		defer cancel()
		return s.drawChart(lctx, id)
	})
	s.metrics.ObserveCache(hit)
	if err != nil {
		if errors.Is(err, chart.ErrNoData) {
			http.Error(w, "no data for chart", http.StatusNotFound)
			return
		}
		applog.NewStructuredLogger(logger).LogBlockFailed(ctx, id, strings.Join(spec.Columns, ","), applog.OpRender, err)
		http.Error(w, "chart rendering failed", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", chart.ContentType)
	w.Header().Set("Cache-Control", fmt.Sprintf("public, max-age=%d", int(s.chartTTL.Seconds())))
	if hit {
		w.Header().Set("X-Cache", "HIT")
	} else {
		w.Header().Set("X-Cache", "MISS")
	}
	_, _ = w.Write(svg)
}

func (s *Server) drawChart(ctx context.Context, id string) ([]byte, error) {
	start := time.Now()
	blk, err := s.builder.Block(ctx, id)
	if err == nil {
		var buf bytes.Buffer
		if err = chart.Render(&buf, blk); err == nil {
			s.metrics.ObserveChart(id, time.Since(start), nil)
			return buf.Bytes(), nil
		}
	}
	s.metrics.ObserveChart(id, time.Since(start), err)
	return nil, err
}

// rawPage reads one page of raw rows, clamping page into range.
func (s *Server) rawPage(ctx context.Context, page int) (rawView, error) {
	size := s.rawPageSize
	header, rows, total, err := s.backend.RawRows(ctx, (page-1)*size, size)
	if err != nil {
		return rawView{}, fmt.Errorf("read raw rows: %w", err)
	}
	if last := max(1, (total+size-1)/size); page > last {
		page = last
		header, rows, total, err = s.backend.RawRows(ctx, (page-1)*size, size)
		if err != nil {
			return rawView{}, fmt.Errorf("read raw rows: %w", err)
		}
	}
	return newRawView(header, rows, total, page, size), nil
}

func (s *Server) render(w http.ResponseWriter, r *http.Request, name string, data any) {
	var buf bytes.Buffer
	if err := s.templates.ExecuteTemplate(&buf, name, data); err != nil {
		applog.FromContext(r.Context()).ErrorContext(r.Context(), "Template execution failed",
			applog.FieldOperation, applog.OpRender, "template", name, applog.FieldError, err)
		http.Error(w, "rendering failed", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = buf.WriteTo(w)
}

func rawRequested(r *http.Request) bool {
	switch strings.ToLower(strings.TrimSpace(r.URL.Query().Get("raw"))) {
	case "on", "true", "1":
		return true
	}
	return false
}

// parsePage reads ?page=N, defaulting to 1 for anything not a positive integer.
func parsePage(r *http.Request) int {
	if v := strings.TrimSpace(r.URL.Query().Get("page")); v != "" {
		if p, err := strconv.Atoi(v); err == nil && p > 0 {
			return p
		}
	}
	return 1
}
