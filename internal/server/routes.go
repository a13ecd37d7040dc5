package server

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"slices"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"github.com/plugfox/foxy-ban-server/api"
	"github.com/plugfox/foxy-ban-server/internal/converters"
	apperrors "github.com/plugfox/foxy-ban-server/internal/errors"
	"github.com/plugfox/foxy-ban-server/internal/model"
)

// Hooks are the host extension points the API drives.
type Hooks interface {
	CheckConnection(ctx context.Context, conn model.Connection) (model.Verdict, error)
	RequestBan(ctx context.Context, req model.BanRequest) (*model.BanRecord, error)
}

// Matcher classifies connections without side effects.
type Matcher interface {
	CheckBan(ctx context.Context, conn model.Connection) (model.MatchType, error)
}

// BanFinder reads in-effect bans.
type BanFinder interface {
	FindInEffect(ctx context.Context, filter model.BanFilter) ([]model.BanRecord, error)
}

// AddBanRoutes mounts the game host API under /api/v1.
func (srv *Server) AddBanRoutes(hooks Hooks, matcher Matcher, finder BanFinder) {
	h := &banHandlers{hooks: hooks, matcher: matcher, finder: finder, logger: srv.logger, now: time.Now}

	srv.admin.Route("/api/v1", func(r chi.Router) {
		r.Post("/connections", h.checkConnection)
		r.Post("/bans", h.requestBan)
		r.Get("/bans", h.listBans)
		r.Get("/bans/match", h.matchBan)
	})
}

type banHandlers struct {
	hooks   Hooks
	matcher Matcher
	finder  BanFinder
	logger  *slog.Logger
	now     func() time.Time
}

// POST /api/v1/connections
// The verdict is always returned, a failed store call only adds a warning.
func (h *banHandlers) checkConnection(w http.ResponseWriter, r *http.Request) {
	rsp := &api.Response{}

	var req api.ConnectionRequest
	if err := render.DecodeJSON(r.Body, &req); err != nil {
		rsp.SetError("bad_request", err.Error())
		rsp.BadRequest(w)

		return
	}

	verdict, err := h.hooks.CheckConnection(r.Context(), converters.ConnectionFromAPI(&req))
	if err != nil {
		h.logger.WarnContext(r.Context(), "connection check incomplete",
			slog.Uint64("account_id", req.AccountID),
			slog.Any("error", err),
		)
		rsp.SetWarning(err.Error())
	}

	rsp.SetData(converters.VerdictToAPI(verdict))
	rsp.Ok(w)
}

// POST /api/v1/bans
func (h *banHandlers) requestBan(w http.ResponseWriter, r *http.Request) {
	rsp := &api.Response{}

	var req api.BanRequest
	if err := render.DecodeJSON(r.Body, &req); err != nil {
		rsp.SetError("bad_request", err.Error())
		rsp.BadRequest(w)

		return
	}

	request := converters.BanRequestFromAPI(&req)
	if request.Target == 0 {
		rsp.SetError("bad_request", "target is required and must be below 2^63")
		rsp.BadRequest(w)

		return
	}

	record, err := h.hooks.RequestBan(r.Context(), request)

	switch {
	case err == nil:
		rsp.SetData(converters.BanRecordToAPI(record))
		rsp.Created(w)
	case errors.Is(err, apperrors.ErrorNoHandler), errors.Is(err, apperrors.ErrorStoreUnavailable):
		h.logger.ErrorContext(r.Context(), "ban request failed", slog.Uint64("target", req.Target), slog.Any("error", err))
		rsp.SetError("unavailable", err.Error())
		rsp.ServiceUnavailable(w)
	default:
		h.logger.ErrorContext(r.Context(), "ban request failed", slog.Uint64("target", req.Target), slog.Any("error", err))
		rsp.InternalServerError(w)
	}
}

// GET /api/v1/bans?account_id=&ip=&hwid=
func (h *banHandlers) listBans(w http.ResponseWriter, r *http.Request) {
	rsp := &api.Response{}

	conn, ok := connectionFromQuery(w, r)
	if !ok {
		return
	}

	now := h.now()

	var filters []model.BanFilter
	if conn.AccountID != 0 {
		filters = append(filters, model.BanFilter{Mode: model.SearchByAccount, AccountID: conn.AccountID, Now: now})
	}

	if conn.IP.Recorded() {
		filters = append(filters, model.BanFilter{Mode: model.SearchByIP, IP: conn.IP, Now: now})
	}

	if conn.Hwid != "" {
		filters = append(filters, model.BanFilter{Mode: model.SearchByHwid, Hwid: conn.Hwid, Now: now})
	}

	var records []model.BanRecord

	for _, filter := range filters {
		found, err := h.finder.FindInEffect(r.Context(), filter)
		if err != nil {
			h.logger.ErrorContext(r.Context(), "failed to list bans", slog.Any("error", err))
			rsp.SetError("unavailable", err.Error())
			rsp.ServiceUnavailable(w)

			return
		}

		for _, record := range found {
			if !slices.ContainsFunc(records, func(existing model.BanRecord) bool { return existing.ID == record.ID }) {
				records = append(records, record)
			}
		}
	}

	slices.SortFunc(records, func(a, b model.BanRecord) int {
		switch {
		case a.ID < b.ID:
			return -1
		case a.ID > b.ID:
			return 1
		default:
			return 0
		}
	})

	rsp.SetData(converters.BanRecordsToAPI(records))
	rsp.Ok(w)
}

// GET /api/v1/bans/match?account_id=&ip=&hwid=
func (h *banHandlers) matchBan(w http.ResponseWriter, r *http.Request) {
	rsp := &api.Response{}

	conn, ok := connectionFromQuery(w, r)
	if !ok {
		return
	}

	match, err := h.matcher.CheckBan(r.Context(), conn)
	if err != nil {
		h.logger.WarnContext(r.Context(), "ban match incomplete", slog.Any("error", err))
		rsp.SetWarning(err.Error())
	}

	rsp.SetData(&api.Match{Match: match.String()})
	rsp.Ok(w)
}

// Read the identifier triple from the query string, at least one is required.
func connectionFromQuery(w http.ResponseWriter, r *http.Request) (model.Connection, bool) {
	query := r.URL.Query()

	var conn model.Connection

	if raw := query.Get("account_id"); raw != "" {
		id, err := strconv.ParseUint(raw, 10, 63)
		if err != nil {
			rsp := &api.Response{}
			rsp.SetError("bad_request", "account_id must be an unsigned integer below 2^63")
			rsp.BadRequest(w)

			return conn, false
		}

		conn.AccountID = model.AccountID(id)
	}

	conn.IP = model.ParseIPv4(query.Get("ip"))
	conn.Hwid = query.Get("hwid")

	if conn.AccountID == 0 && !conn.IP.Recorded() && conn.Hwid == "" {
		rsp := &api.Response{}
		rsp.SetError("bad_request", "account_id, ip or hwid is required")
		rsp.BadRequest(w)

		return conn, false
	}

	return conn, true
}
