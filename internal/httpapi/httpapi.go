// Package httpapi exposes the auction over HTTP for the operator
// dashboard.
package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel/trace"

	"github.com/jensholdgaard/cricket-auctionbot/internal/auction"
	"github.com/jensholdgaard/cricket-auctionbot/internal/budget"
	"github.com/jensholdgaard/cricket-auctionbot/internal/dashboard"
	"github.com/jensholdgaard/cricket-auctionbot/internal/event"
	"github.com/jensholdgaard/cricket-auctionbot/internal/remote"
	"github.com/jensholdgaard/cricket-auctionbot/internal/roster"
)

// ErrBadRequest marks malformed request input.
var ErrBadRequest = errors.New("bad request")

// Service is the auction surface the API drives. *auction.Manager
// implements it.
type Service interface {
	Snapshot() (auction.State, error)
	RandomizeQueue(ctx context.Context) (auction.State, error)
	NextPlayer(ctx context.Context) (auction.Advance, error)
	CheckBid(ctx context.Context, playerID string, bid int) (budget.Ledger, error)
	MarkWon(ctx context.Context, playerID string, bid int) error
	MarkLost(ctx context.Context, playerID string) error
	Undo(ctx context.Context) (auction.Decision, bool, error)
	ImportCSV(ctx context.Context, source string, r io.Reader) (int, error)
	ImportURL(ctx context.Context, f auction.RosterFetcher, url string) (int, error)
	ExportCSV(ctx context.Context, w io.Writer) error
	History(ctx context.Context) ([]event.Event, error)
}

// Server holds the dependencies of the HTTP handlers.
type Server struct {
	svc     Service
	fetcher auction.RosterFetcher
	logger  *slog.Logger
}

// Mount is an extra route set, such as health probes.
type Mount func(r chi.Router)

// NewRouter builds the API router. ws, when non-nil, is served at /ws.
func NewRouter(svc Service, fetcher auction.RosterFetcher, ws http.Handler, logger *slog.Logger, tp trace.TracerProvider, mounts ...Mount) http.Handler {
	s := &Server{svc: svc, fetcher: fetcher, logger: logger}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	for _, m := range mounts {
		m(r)
	}
	if ws != nil {
		r.Get("/ws", ws.ServeHTTP)
	}

	r.Route("/api", func(r chi.Router) {
		r.Get("/board", s.board)
		r.Get("/players", s.players)
		r.Get("/history", s.history)
		r.Get("/export.csv", s.export)
		r.Get("/guardrail", s.guardrail)
		r.Post("/queue/shuffle", s.shuffle)
		r.Post("/queue/next", s.next)
		r.Post("/players/{id}/won", s.won)
		r.Post("/players/{id}/lost", s.lost)
		r.Post("/undo", s.undo)
		r.Post("/import", s.importRoster)
	})

	return otelhttp.NewHandler(r, "auctionbot.http", otelhttp.WithTracerProvider(tp))
}

type nextResponse struct {
	auction.Advance
	Board dashboard.Board `json:"board"`
}

type undoResponse struct {
	Undone   bool            `json:"undone"`
	Kind     string          `json:"kind,omitempty"`
	PlayerID string          `json:"player_id,omitempty"`
	Bid      int             `json:"bid,omitempty"`
	Board    dashboard.Board `json:"board"`
}

type importResponse struct {
	Imported int             `json:"imported"`
	Board    dashboard.Board `json:"board"`
}

type guardrailResponse struct {
	OK     bool            `json:"ok"`
	Reason string          `json:"reason,omitempty"`
	Purse  dashboard.Purse `json:"purse"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func (s *Server) board(w http.ResponseWriter, r *http.Request) {
	st, err := s.svc.Snapshot()
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, dashboard.Build(st))
}

func (s *Server) players(w http.ResponseWriter, r *http.Request) {
	st, err := s.svc.Snapshot()
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, st.Players)
}

func (s *Server) history(w http.ResponseWriter, r *http.Request) {
	events, err := s.svc.History(r.Context())
	if err != nil {
		s.fail(w, r, err)
		return
	}
	if events == nil {
		events = []event.Event{}
	}
	writeJSON(w, http.StatusOK, events)
}

func (s *Server) export(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="roster.csv"`)
	if err := s.svc.ExportCSV(r.Context(), w); err != nil {
		s.fail(w, r, err)
	}
}

func (s *Server) guardrail(w http.ResponseWriter, r *http.Request) {
	spend, err := strconv.Atoi(r.URL.Query().Get("spend"))
	if err != nil || spend < 0 {
		s.fail(w, r, badRequest("spend must be a non-negative integer"))
		return
	}

	ledger, err := s.svc.CheckBid(r.Context(), r.URL.Query().Get("player"), spend)
	resp := guardrailResponse{OK: err == nil, Purse: dashboard.NewPurse(ledger)}
	switch {
	case err == nil:
	case errors.Is(err, budget.ErrGuardrailViolation),
		errors.Is(err, auction.ErrBidBelowBase),
		errors.Is(err, auction.ErrInvalidBid),
		errors.Is(err, auction.ErrNotPending):
		resp.Reason = err.Error()
	default:
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) shuffle(w http.ResponseWriter, r *http.Request) {
	st, err := s.svc.RandomizeQueue(r.Context())
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, dashboard.Build(st))
}

func (s *Server) next(w http.ResponseWriter, r *http.Request) {
	adv, err := s.svc.NextPlayer(r.Context())
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.respond(w, r, func(b dashboard.Board) any { return nextResponse{Advance: adv, Board: b} })
}

func (s *Server) won(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Bid *int `json:"bid"`
	}
	if err := json.NewDecoder(io.LimitReader(r.Body, 1<<10)).Decode(&req); err != nil || req.Bid == nil {
		s.fail(w, r, badRequest(`body must be {"bid": <int>}`))
		return
	}
	if err := s.svc.MarkWon(r.Context(), chi.URLParam(r, "id"), *req.Bid); err != nil {
		s.fail(w, r, err)
		return
	}
	s.respond(w, r, func(b dashboard.Board) any { return b })
}

func (s *Server) lost(w http.ResponseWriter, r *http.Request) {
	if err := s.svc.MarkLost(r.Context(), chi.URLParam(r, "id")); err != nil {
		s.fail(w, r, err)
		return
	}
	s.respond(w, r, func(b dashboard.Board) any { return b })
}

func (s *Server) undo(w http.ResponseWriter, r *http.Request) {
	d, ok, err := s.svc.Undo(r.Context())
	if err != nil {
		s.fail(w, r, err)
		return
	}
	resp := undoResponse{Undone: ok}
	switch d := d.(type) {
	case auction.Won:
		resp.Kind, resp.PlayerID, resp.Bid = "won", d.PlayerID, d.Bid
	case auction.Lost:
		resp.Kind, resp.PlayerID = "lost", d.PlayerID
	}
	s.respond(w, r, func(b dashboard.Board) any {
		resp.Board = b
		return resp
	})
}

// importRoster accepts either a CSV body or a JSON body naming a URL to
// fetch the sheet from.
func (s *Server) importRoster(w http.ResponseWriter, r *http.Request) {
	var (
		n   int
		err error
	)
	body := io.LimitReader(r.Body, roster.MaxImportSize)
	if mediaType(r) == "application/json" {
		var req struct {
			URL string `json:"url"`
		}
		if err := json.NewDecoder(body).Decode(&req); err != nil || req.URL == "" {
			s.fail(w, r, badRequest(`body must be {"url": "<csv url>"}`))
			return
		}
		if s.fetcher == nil {
			s.fail(w, r, badRequest("remote import is not configured"))
			return
		}
		n, err = s.svc.ImportURL(r.Context(), s.fetcher, req.URL)
	} else {
		n, err = s.svc.ImportCSV(r.Context(), "upload", body)
	}
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.respond(w, r, func(b dashboard.Board) any { return importResponse{Imported: n, Board: b} })
}

// respond writes the post-mutation board wrapped by wrap.
func (s *Server) respond(w http.ResponseWriter, r *http.Request, wrap func(dashboard.Board) any) {
	st, err := s.svc.Snapshot()
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, wrap(dashboard.Build(st)))
}

func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error) {
	code := statusFor(err)
	if code >= http.StatusInternalServerError {
		s.logger.ErrorContext(r.Context(), "request failed",
			slog.String("path", r.URL.Path),
			slog.String("request_id", middleware.GetReqID(r.Context())),
			slog.Any("error", err),
		)
	}
	writeJSON(w, code, errorResponse{Error: err.Error()})
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, auction.ErrPlayerNotFound):
		return http.StatusNotFound
	case errors.Is(err, budget.ErrGuardrailViolation),
		errors.Is(err, auction.ErrBidBelowBase),
		errors.Is(err, auction.ErrNotPending):
		return http.StatusConflict
	case errors.Is(err, ErrBadRequest),
		errors.Is(err, auction.ErrInvalidBid),
		errors.Is(err, auction.ErrEmptyRoster),
		errors.Is(err, auction.ErrInvalidRoster),
		errors.Is(err, roster.ErrEmptyImport),
		errors.Is(err, roster.ErrMissingColumn),
		errors.Is(err, roster.ErrInvalidField):
		return http.StatusBadRequest
	case errors.Is(err, remote.ErrUnexpectedStatus):
		return http.StatusBadGateway
	case errors.Is(err, auction.ErrNotReady):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func badRequest(msg string) error {
	return fmt.Errorf("%w: %s", ErrBadRequest, msg)
}

func mediaType(r *http.Request) string {
	mt, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if err != nil {
		return ""
	}
	return mt
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}
