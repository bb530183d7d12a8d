package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/EmpowerLocal/empowerlocal-ad-components/internal/adserve"
	"github.com/EmpowerLocal/empowerlocal-ad-components/internal/page"
	"github.com/EmpowerLocal/empowerlocal-ad-components/internal/slot"
	apperrors "github.com/EmpowerLocal/empowerlocal-ad-components/pkg/errors"
	"github.com/EmpowerLocal/empowerlocal-ad-components/pkg/logger"
)

// StatusHeader reports the ad network status of a fragment render. Visitors
// never see failures; operators and embedding pages can read this.
const StatusHeader = "X-Adslot-Status"

// maxPageSlots caps how many zones one page request may mount.
const maxPageSlots = 32

// pageLoadConcurrency bounds simultaneous ad fetches for one page.
const pageLoadConcurrency = 8

// Handler implements the adslot HTTP endpoints.
type Handler struct {
	slotOpts slot.Options
	logger   *slog.Logger
}

// New creates a Handler that mounts slots with opts. opts.PageURL is
// ignored; each request supplies its own page location.
func New(opts slot.Options) *Handler {
	return &Handler{
		slotOpts: opts,
		logger:   slog.Default().With("component", "adslot-handler"),
	}
}

// Slot renders one ad slot as an HTML fragment: the pixel stylesheet
// followed by the slot container.
func (h *Handler) Slot(w http.ResponseWriter, r *http.Request) {
	props := slot.Props{
		ZoneID:    r.PathValue("zoneId"),
		Keyword:   r.URL.Query().Get("keyword"),
		ClassName: r.URL.Query().Get("class"),
	}

	doc := page.NewDocument("")
	_, result, err := slot.Mount(r.Context(), doc, props, h.optsFor(r))
	if err != nil {
		h.writeError(r.Context(), w, err)
		return
	}

	var buf bytes.Buffer
	if err := doc.RenderFragment(&buf); err != nil {
		h.logger.Error("failed to render slot fragment", "error", err)
		h.writeError(r.Context(), w, apperrors.New(apperrors.ErrInternal, http.StatusInternalServerError, "failed to render slot"))
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set(StatusHeader, statusOf(result))
	w.WriteHeader(http.StatusOK)
	w.Write(buf.Bytes())
}

// Page renders a full document with one slot per zone query parameter,
// loading all slots concurrently. The pixel stylesheet appears once.
func (h *Handler) Page(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	zones := q["zone"]
	if len(zones) == 0 {
		h.writeError(r.Context(), w, apperrors.InvalidInput("at least one zone is required"))
		return
	}
	if len(zones) > maxPageSlots {
		h.writeError(r.Context(), w, apperrors.InvalidInput("at most %d zones per page", maxPageSlots))
		return
	}

	doc := page.NewDocument(q.Get("title"))
	opts := h.optsFor(r)
	slots := make([]*slot.Slot, 0, len(zones))
	for _, zone := range zones {
		s, err := slot.New(doc, slot.Props{
			ZoneID:    zone,
			Keyword:   q.Get("keyword"),
			ClassName: q.Get("class"),
		}, opts)
		if err != nil {
			h.writeError(r.Context(), w, err)
			return
		}
		slots = append(slots, s)
	}

	g, ctx := errgroup.WithContext(r.Context())
	g.SetLimit(pageLoadConcurrency)
	for _, s := range slots {
		g.Go(func() error {
			s.Load(ctx)
			return ctx.Err()
		})
	}
	if err := g.Wait(); err != nil {
		h.logger.Warn("page render abandoned", "zones", len(zones), "error", err)
		return
	}

	var buf bytes.Buffer
	if err := doc.Render(&buf); err != nil {
		h.logger.Error("failed to render page", "error", err)
		h.writeError(r.Context(), w, apperrors.New(apperrors.ErrInternal, http.StatusInternalServerError, "failed to render page"))
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	w.Write(buf.Bytes())
}

// optsFor copies the handler's slot options with the request's page location.
func (h *Handler) optsFor(r *http.Request) slot.Options {
	opts := h.slotOpts
	opts.PageURL = pageURL(r)
	return opts
}

// pageURL is the location the slot is shown on: the embedding page's
// Referer when present, otherwise the URL this request was made to.
func pageURL(r *http.Request) string {
	if ref := r.Header.Get("Referer"); ref != "" {
		return ref
	}
	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	if fwd := r.Header.Get("X-Forwarded-Proto"); fwd != "" {
		scheme = strings.ToLower(fwd)
	}
	return scheme + "://" + r.Host + r.URL.RequestURI()
}

func statusOf(result adserve.Result) string {
	switch r := result.(type) {
	case adserve.Success:
		return adserve.StatusSuccess
	case adserve.Failure:
		return r.StatusCode
	default:
		return ""
	}
}

// ---------- Helpers ----------

func (h *Handler) writeError(ctx context.Context, w http.ResponseWriter, err error) {
	status := apperrors.HTTPStatusCode(err)
	if status >= http.StatusInternalServerError {
		logger.FromContext(ctx).Error("request failed", "component", "adslot-handler", "error", err)
	}
	h.writeJSON(w, status, map[string]string{"error": apperrors.Message(err)})
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("failed to encode response", "error", err)
	}
}
