package main

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"html/template"
	"net/http"
	"strconv"
	"time"

	"webomatic/internal/database"
	"webomatic/internal/logger"
	"webomatic/internal/metrics"
)

//go:embed templates/*.html
var templates embed.FS

const resultsPerPage = 20

// auditStore is the part of the database manager the viewer reads from
type auditStore interface {
	CountMatchAudits(ctx context.Context) (int, error)
	ListMatchAudits(ctx context.Context, limit, offset int) ([]database.MatchAudit, error)
	MatchAuditImage(ctx context.Context, id int64) ([]byte, error)
}

type PageData struct {
	Audits      []database.MatchAudit
	CurrentPage int
	TotalPages  int
	TotalCount  int
	HasPrev     bool
	HasNext     bool
	PrevPage    int
	NextPage    int
}

type server struct {
	store  auditStore
	tmpl   *template.Template
	logger *logger.LoggerManager
}

func newServer(store auditStore, loggerManager *logger.LoggerManager) (*server, error) {
	tmpl, err := template.New("layout").Funcs(template.FuncMap{
		"formatDateTime": func(t time.Time) string {
			if t.IsZero() {
				return ""
			}
			return t.Local().Format("02.01.2006 15:04:05")
		},
		"sequence": func(current, total int) []int {
			var pages []int
			start := current - 2
			if start < 1 {
				start = 1
			}
			end := current + 2
			if end > total {
				end = total
			}
			for i := start; i <= end; i++ {
				pages = append(pages, i)
			}
			return pages
		},
	}).ParseFS(templates, "templates/*.html")
	if err != nil {
		return nil, err
	}
	return &server{store: store, tmpl: tmpl, logger: loggerManager}, nil
}

func (s *server) routes(m *metrics.Metrics) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/", s.handleIndex)
	mux.HandleFunc("/image", s.handleImage)
	mux.Handle("/metrics", m.Handler())
	return mux
}

func (s *server) handleIndex(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}

	page := 1
	if p, err := strconv.Atoi(r.URL.Query().Get("page")); err == nil && p > 0 {
		page = p
	}

	totalCount, err := s.store.CountMatchAudits(r.Context())
	if err != nil {
		s.logger.LogError(err, "count audits")
		http.Error(w, "DB error", http.StatusInternalServerError)
		return
	}

	totalPages := (totalCount + resultsPerPage - 1) / resultsPerPage
	if totalPages == 0 {
		totalPages = 1
	}
	if page > totalPages {
		page = totalPages
	}

	audits, err := s.store.ListMatchAudits(r.Context(), resultsPerPage, (page-1)*resultsPerPage)
	if err != nil {
		s.logger.LogError(err, "list audits")
		http.Error(w, "DB error", http.StatusInternalServerError)
		return
	}

	data := PageData{
		Audits:      audits,
		CurrentPage: page,
		TotalPages:  totalPages,
		TotalCount:  totalCount,
		HasPrev:     page > 1,
		HasNext:     page < totalPages,
		PrevPage:    page - 1,
		NextPage:    page + 1,
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := s.tmpl.ExecuteTemplate(w, "layout.html", data); err != nil {
		s.logger.LogError(err, "render audits")
	}
}

func (s *server) handleImage(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.URL.Query().Get("id"), 10, 64)
	if err != nil || id <= 0 {
		http.Error(w, "bad id", http.StatusBadRequest)
		return
	}
	data, err := s.store.MatchAuditImage(r.Context(), id)
	switch {
	case errors.Is(err, sql.ErrNoRows) || (err == nil && len(data) == 0):
		http.NotFound(w, r)
		return
	case err != nil:
		s.logger.LogError(err, "load audit image")
		http.Error(w, "DB error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "max-age=86400")
	w.Write(data)
}
