package web

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"centercal/internal/config"
	"centercal/internal/display"
	"centercal/internal/gcal"
	"centercal/internal/ics"
	"centercal/internal/logger"
	"centercal/internal/model"
	"centercal/internal/observability"
	"centercal/internal/schedule"
	"centercal/internal/store"
	"centercal/internal/timegrid"
)

// Server provides the HTTP API: event listing and creation, the kiosk
// "today" view, the week grid, and the calendar-interop endpoints.
type Server struct {
	cfg      *config.Config
	store    store.Store
	loader   *display.Loader
	fetcher  *ics.Fetcher
	metrics  *observability.Metrics
	registry *prometheus.Registry
	router   *mux.Router
	validate *validator.Validate

	// now is injectable so handler output is deterministic in tests.
	now func() time.Time
}

// NewServer constructs a Server. loader, fetcher, metrics and registry may
// be nil (the corresponding endpoints degrade gracefully); cfg and st are
// required.
func NewServer(cfg *config.Config, st store.Store, loader *display.Loader, fetcher *ics.Fetcher, metrics *observability.Metrics, registry *prometheus.Registry) *Server {
	s := &Server{
		cfg:      cfg,
		store:    st,
		loader:   loader,
		fetcher:  fetcher,
		metrics:  metrics,
		registry: registry,
		router:   mux.NewRouter(),
		validate: validator.New(),
		now:      time.Now,
	}
	s.registerRoutes()
	return s
}

// Handler returns the underlying http.Handler for this server.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) registerRoutes() {
	s.router.Use(s.metricsMiddleware)

	s.router.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)
	if s.registry != nil {
		s.router.Handle("/metrics", promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{})).Methods(http.MethodGet)
	}

	api := s.router.PathPrefix("/api").Subrouter()
	api.HandleFunc("/events", s.handleCreateEvent).Methods(http.MethodPost)
	api.HandleFunc("/events", s.handleListEvents).Methods(http.MethodGet)
	api.HandleFunc("/events/today", s.handleToday).Methods(http.MethodGet)
	api.HandleFunc("/events/week", s.handleWeek).Methods(http.MethodGet)
	api.HandleFunc("/events/import", s.handleImport).Methods(http.MethodPost)
	api.HandleFunc("/events/{id}/calendar.ics", s.handleEventICS).Methods(http.MethodGet)
	api.HandleFunc("/feed.ics", s.handleFeed).Methods(http.MethodGet)
}

// statusRecorder captures the response status for metrics.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (s *Server) metricsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.metrics == nil {
			next.ServeHTTP(w, r)
			return
		}

		route := r.URL.Path
		if cur := mux.CurrentRoute(r); cur != nil {
			if tpl, err := cur.GetPathTemplate(); err == nil {
				route = tpl
			}
		}

		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		started := time.Now()
		next.ServeHTTP(rec, r)

		s.metrics.IncRequest(route, r.Method, fmt.Sprintf("%d", rec.status))
		s.metrics.ObserveRequestDuration(route, time.Since(started).Seconds())
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}

// createEventRequest is the admin form payload.
type createEventRequest struct {
	Title   string `json:"title" validate:"required"`
	StartTS string `json:"start_ts" validate:"required"`
	EndTS   string `json:"end_ts" validate:"required"`
	Venue   string `json:"venue"`
}

// handleCreateEvent validates the request and delegates persistence to the
// store. Missing required fields are a 400; a store-reported failure is
// surfaced as a 400 with the store's message; a malformed body is a 500.
func (s *Server) handleCreateEvent(w http.ResponseWriter, r *http.Request) {
	var req createEventRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		logger.Error("create event: failed to decode request body", err)
		writeError(w, http.StatusInternalServerError, "invalid request body")
		return
	}

	req.Title = strings.TrimSpace(req.Title)
	if err := s.validate.Struct(req); err != nil {
		writeError(w, http.StatusBadRequest, "title, start_ts and end_ts are required")
		return
	}

	start, err := time.Parse(time.RFC3339, req.StartTS)
	if err != nil {
		writeError(w, http.StatusBadRequest, "start_ts must be an RFC 3339 timestamp")
		return
	}
	end, err := time.Parse(time.RFC3339, req.EndTS)
	if err != nil {
		writeError(w, http.StatusBadRequest, "end_ts must be an RFC 3339 timestamp")
		return
	}

	ev := model.Event{
		Title: req.Title,
		Start: start,
		End:   end,
		Venue: strings.TrimSpace(req.Venue),
	}

	if err := s.store.Insert(r.Context(), &ev); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if s.metrics != nil {
		s.metrics.EventsCreated.Inc()
	}
	logger.Info("event created", "event_id", ev.ID, "title", ev.Title)
	writeJSON(w, http.StatusCreated, ev)
}

// eventDTO augments a stored event with its "add to calendar" link.
type eventDTO struct {
	model.Event
	CalendarLink string `json:"calendar_link"`
}

type dayGroupDTO struct {
	Day    string     `json:"day"`
	Events []eventDTO `json:"events"`
}

type listResponse struct {
	Days      []dayGroupDTO `json:"days"`
	Timezone  string        `json:"timezone"`
	WeekStart string        `json:"week_start"`
}

// handleListEvents returns upcoming events grouped by calendar day in the
// display timezone, ascending, each with a quick-add link.
func (s *Server) handleListEvents(w http.ResponseWriter, r *http.Request) {
	loc := s.cfg.Location()

	events, err := s.store.ListUpcoming(r.Context(), s.now())
	if err != nil {
		logger.Error("list events failed", err)
		writeError(w, http.StatusInternalServerError, "failed to list events")
		return
	}

	groups := schedule.GroupByDay(events, loc)

	days := make([]dayGroupDTO, 0, len(groups))
	for _, g := range groups {
		dtos := make([]eventDTO, 0, len(g.Events))
		for _, ev := range g.Events {
			dtos = append(dtos, eventDTO{
				Event:        ev,
				CalendarLink: gcal.EventLink(ev.Title, ev.Start, ev.End, ev.Venue, ""),
			})
		}
		days = append(days, dayGroupDTO{Day: g.Key, Events: dtos})
	}

	writeJSON(w, http.StatusOK, listResponse{
		Days:      days,
		Timezone:  loc.String(),
		WeekStart: s.cfg.WeekStart,
	})
}

type todayResponse struct {
	State       string        `json:"state"`
	Message     string        `json:"message,omitempty"`
	Events      []model.Event `json:"events"`
	RefreshedAt time.Time     `json:"refreshed_at,omitempty"`
}

// handleToday serves the kiosk view from the periodically refreshed
// snapshot; it never hits the store directly.
func (s *Server) handleToday(w http.ResponseWriter, _ *http.Request) {
	if s.loader == nil {
		writeError(w, http.StatusServiceUnavailable, "kiosk snapshot not enabled")
		return
	}

	snap := s.loader.Snapshot()
	resp := todayResponse{
		State:       snap.State.String(),
		Message:     snap.Message,
		Events:      snap.Events,
		RefreshedAt: snap.RefreshedAt,
	}
	if resp.Events == nil {
		resp.Events = []model.Event{}
	}
	writeJSON(w, http.StatusOK, resp)
}

type weekEntryDTO struct {
	eventDTO
	Position model.GridPosition `json:"position"`
}

type weekResponse struct {
	WeekStart time.Time      `json:"week_start"`
	WeekEnd   time.Time      `json:"week_end"`
	Entries   []weekEntryDTO `json:"entries"`
}

// handleWeek returns the week grid for the week containing the requested
// date (default: today). Positions are computed against the configured
// display window.
func (s *Server) handleWeek(w http.ResponseWriter, r *http.Request) {
	loc := s.cfg.Location()
	ws := timegrid.ParseWeekStart(s.cfg.WeekStart)

	ref := s.now().In(loc)
	if d := r.URL.Query().Get("date"); d != "" {
		day, err := time.ParseInLocation(schedule.DayKeyLayout, d, loc)
		if err != nil {
			writeError(w, http.StatusBadRequest, "date must be YYYY-MM-DD")
			return
		}
		ref = day
	}

	weekStart := timegrid.StartOfWeek(ref, ws)
	weekEnd := timegrid.EndOfWeek(ref, ws)

	events, err := s.store.ListBetween(r.Context(), weekStart, weekEnd)
	if err != nil {
		logger.Error("week grid: list events failed", err)
		writeError(w, http.StatusInternalServerError, "failed to list events")
		return
	}

	win := timegrid.Window{
		StartHour:      s.cfg.Window.StartHour,
		EndHour:        s.cfg.Window.EndHour,
		MinSpanMinutes: s.cfg.Window.MinSpanMinutes,
	}

	entries := make([]weekEntryDTO, 0, len(events))
	for _, ev := range events {
		pos := timegrid.PositionInWindow(ev.Start.In(loc), ev.End.In(loc), ws, win)
		entries = append(entries, weekEntryDTO{
			eventDTO: eventDTO{
				Event:        ev,
				CalendarLink: gcal.EventLink(ev.Title, ev.Start, ev.End, ev.Venue, ""),
			},
			Position: model.GridPosition{
				Col:        pos.Col,
				TopFrac:    pos.TopFrac,
				BottomFrac: pos.BottomFrac,
			},
		})
	}

	writeJSON(w, http.StatusOK, weekResponse{
		WeekStart: weekStart,
		WeekEnd:   weekEnd,
		Entries:   entries,
	})
}

// handleEventICS serves a downloadable single-event iCalendar file.
func (s *Server) handleEventICS(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimSpace(mux.Vars(r)["id"])
	if id == "" {
		http.Error(w, "missing event id", http.StatusBadRequest)
		return
	}

	ev, err := s.store.GetByID(r.Context(), id)
	if err != nil {
		// Lookup errors and absent events both surface as 404 so the
		// download link never leaks store internals.
		if !errors.Is(err, store.ErrNotFound) {
			logger.Error("calendar download: lookup failed", err, "event_id", id)
		}
		http.Error(w, "event not found", http.StatusNotFound)
		return
	}

	body := ics.BuildEventCalendar(ev, s.cfg.UIDDomain, s.now())

	w.Header().Set("Content-Type", "text/calendar; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="`+icsFilename(ev.Title)+`"`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(body))

	if s.metrics != nil {
		s.metrics.ICSDownloads.Inc()
	}
}

// handleFeed serves all upcoming events as one subscribable VCALENDAR.
func (s *Server) handleFeed(w http.ResponseWriter, r *http.Request) {
	events, err := s.store.ListUpcoming(r.Context(), s.now())
	if err != nil {
		logger.Error("feed: list events failed", err)
		http.Error(w, "failed to build feed", http.StatusInternalServerError)
		return
	}

	body := ics.BuildFeed(events, s.cfg.UIDDomain, s.now())

	w.Header().Set("Content-Type", "text/calendar; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(body))

	if s.metrics != nil {
		s.metrics.FeedDownloads.Inc()
	}
}

// importRequest selects a remote feed to import. Alternatively the client
// may POST the raw iCalendar document with Content-Type: text/calendar.
type importRequest struct {
	URL string `json:"url" validate:"required"`
}

type importResponse struct {
	Imported      int      `json:"imported"`
	TruncatedUIDs []string `json:"truncated_uids,omitempty"`
}

// handleImport bulk-imports an existing iCalendar feed: parse, expand
// recurrences within the configured horizon, insert each occurrence.
func (s *Server) handleImport(w http.ResponseWriter, r *http.Request) {
	body, err := s.importBody(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	parsed, err := ics.ParseFeed(body)
	if err != nil {
		writeError(w, http.StatusBadRequest, "failed to parse iCalendar document")
		return
	}

	loc := s.cfg.Location()
	now := s.now().In(loc)

	result, err := ics.ExpandOccurrences(parsed, ics.ExpandConfig{
		DisplayLocation: loc,
		RangeStart:      now,
		RangeEnd:        now.AddDate(0, 0, s.cfg.ImportHorizonDays),
	})
	if err != nil {
		logger.Error("import: expansion failed", err)
		writeError(w, http.StatusInternalServerError, "failed to expand feed")
		return
	}

	imported := 0
	for i := range result.Events {
		if err := s.store.Insert(r.Context(), &result.Events[i]); err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		imported++
		if s.metrics != nil {
			s.metrics.EventsImported.Inc()
		}
	}

	logger.Info("feed imported", "imported", imported, "truncated", len(result.TruncatedUIDs))
	writeJSON(w, http.StatusCreated, importResponse{
		Imported:      imported,
		TruncatedUIDs: result.TruncatedUIDs,
	})
}

// importBody resolves the feed document for an import request: either the
// raw body (text/calendar) or a fetch of the URL named in a JSON body.
func (s *Server) importBody(r *http.Request) ([]byte, error) {
	ct := r.Header.Get("Content-Type")
	if strings.HasPrefix(ct, "text/calendar") {
		body, err := io.ReadAll(r.Body)
		if err != nil {
			return nil, errors.New("failed to read request body")
		}
		if len(body) == 0 {
			return nil, errors.New("empty iCalendar body")
		}
		return body, nil
	}

	var req importRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		return nil, errors.New("expected a text/calendar body or a JSON body with a url field")
	}
	if err := s.validate.Struct(req); err != nil {
		return nil, errors.New("url is required")
	}
	if s.fetcher == nil {
		return nil, errors.New("remote feed import not enabled")
	}

	ctx, cancel := context.WithTimeout(r.Context(), 30*time.Second)
	defer cancel()

	res, err := s.fetcher.Fetch(ctx, req.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch feed: %w", err)
	}
	return res.Body, nil
}

// icsFilename derives the download filename from the event title: only
// alphanumerics, underscore and hyphen survive, truncated to 50 characters.
func icsFilename(title string) string {
	var b strings.Builder
	for _, r := range title {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_', r == '-':
			b.WriteRune(r)
		}
		if b.Len() >= 50 {
			break
		}
	}
	if b.Len() == 0 {
		return "event.ics"
	}
	return "event-" + b.String() + ".ics"
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Error("failed to write JSON response", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	type errResp struct {
		Error string `json:"error"`
	}
	writeJSON(w, status, errResp{Error: msg})
}
