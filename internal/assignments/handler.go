package assignments

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/annostudio/annostudio/internal/regions"
	"github.com/annostudio/annostudio/pkg/handlers"
	"github.com/annostudio/annostudio/pkg/routes"
	"github.com/google/uuid"
)

// ActorHeader carries the authenticated actor id on every request.
const ActorHeader = "X-Actor-ID"

var errMissingActor = errors.New("missing or invalid actor id")

// Handler provides HTTP endpoints for document texts and their region
// assignments. Every endpoint is scoped to the actor identified by the
// X-Actor-ID header.
type Handler struct {
	manager *Manager
	regions regions.System
	logger  *slog.Logger
}

// NewHandler creates an assignments handler.
func NewHandler(manager *Manager, regionSys regions.System, logger *slog.Logger) *Handler {
	return &Handler{
		manager: manager,
		regions: regionSys,
		logger:  logger.With("handler", "assignments"),
	}
}

// Routes returns the document-scoped text endpoint route group.
func (h *Handler) Routes() routes.Group {
	return routes.Group{
		Prefix:      "/documents/{documentId}/texts",
		Tags:        []string{"Texts"},
		Description: "Titled text sections and their region assignments",
		Routes: []routes.Route{
			{Method: "GET", Pattern: "", Handler: h.List},
			{Method: "POST", Pattern: "", Handler: h.Merge},
			{Method: "POST", Pattern: "/manual", Handler: h.ManualEntry},
			{Method: "POST", Pattern: "/auto-assign", Handler: h.AutoAssign},
			{Method: "POST", Pattern: "/refresh", Handler: h.Refresh},
			{Method: "DELETE", Pattern: "", Handler: h.ResetDocument},
			{Method: "DELETE", Pattern: "/{textId}", Handler: h.DeleteText},
			{Method: "PUT", Pattern: "/assignments/{regionId}", Handler: h.Assign},
			{Method: "DELETE", Pattern: "/assignments/{regionId}", Handler: h.Undo},
			{Method: "DELETE", Pattern: "/assignments", Handler: h.UndoAll},
			{Method: "GET", Pattern: "/unassigned-regions", Handler: h.UnassignedRegions},
		},
	}
}

// ActorRoutes returns the actor-wide endpoint route group.
func (h *Handler) ActorRoutes() routes.Group {
	return routes.Group{
		Prefix:      "/texts",
		Tags:        []string{"Texts"},
		Description: "Actor-wide text operations",
		Routes: []routes.Route{
			{Method: "DELETE", Pattern: "", Handler: h.ResetAll},
			{Method: "POST", Pattern: "/evict", Handler: h.Evict},
		},
	}
}

func (h *Handler) actor(r *http.Request) (uuid.UUID, error) {
	actor, err := uuid.Parse(r.Header.Get(ActorHeader))
	if err != nil {
		return uuid.Nil, errMissingActor
	}
	return actor, nil
}

func (h *Handler) scope(r *http.Request) (*Store, uuid.UUID, error) {
	actor, err := h.actor(r)
	if err != nil {
		return nil, uuid.Nil, err
	}

	documentID, err := uuid.Parse(r.PathValue("documentId"))
	if err != nil {
		return nil, uuid.Nil, err
	}

	return h.manager.Store(r.Context(), actor), documentID, nil
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	store, documentID, err := h.scope(r)
	if err != nil {
		handlers.RespondError(w, h.logger, http.StatusBadRequest, err)
		return
	}

	store.Load(r.Context(), documentID)

	var texts []TitledText
	if p := r.URL.Query().Get("page"); p != "" {
		page, err := strconv.Atoi(p)
		if err != nil || page < 1 {
			handlers.RespondError(w, h.logger, http.StatusBadRequest, errors.New("invalid page"))
			return
		}
		texts = store.TextsForPage(documentID, page)
	} else {
		texts = store.TextsForDocument(documentID)
	}

	if texts == nil {
		texts = []TitledText{}
	}
	handlers.RespondJSON(w, http.StatusOK, texts)
}

type mergeCommand struct {
	Content string `json:"content"`
	Page    int    `json:"page"`
}

func (h *Handler) Merge(w http.ResponseWriter, r *http.Request) {
	store, documentID, err := h.scope(r)
	if err != nil {
		handlers.RespondError(w, h.logger, http.StatusBadRequest, err)
		return
	}

	var cmd mergeCommand
	if err := json.NewDecoder(r.Body).Decode(&cmd); err != nil {
		handlers.RespondError(w, h.logger, http.StatusBadRequest, err)
		return
	}
	if cmd.Page < 1 {
		handlers.RespondError(w, h.logger, http.StatusBadRequest, errors.New("invalid page"))
		return
	}

	created, err := store.MergeContentForPage(r.Context(), cmd.Content, documentID, cmd.Page)
	if err != nil {
		handlers.RespondError(w, h.logger, MapHTTPStatus(err), err)
		return
	}

	if created == nil {
		created = []TitledText{}
	}
	handlers.RespondJSON(w, http.StatusOK, created)
}

// ManualEntry accepts hand-typed section content for a page. It parses and
// merges the same way Merge does, but exists as its own endpoint so the
// studio can submit operator-entered text separately from generated output.
func (h *Handler) ManualEntry(w http.ResponseWriter, r *http.Request) {
	store, documentID, err := h.scope(r)
	if err != nil {
		handlers.RespondError(w, h.logger, http.StatusBadRequest, err)
		return
	}

	var cmd mergeCommand
	if err := json.NewDecoder(r.Body).Decode(&cmd); err != nil {
		handlers.RespondError(w, h.logger, http.StatusBadRequest, err)
		return
	}
	if cmd.Page < 1 {
		handlers.RespondError(w, h.logger, http.StatusBadRequest, errors.New("invalid page"))
		return
	}

	created, err := store.AssignTextsToRegions(r.Context(), cmd.Content, documentID, cmd.Page)
	if err != nil {
		handlers.RespondError(w, h.logger, MapHTTPStatus(err), err)
		return
	}

	if created == nil {
		created = []TitledText{}
	}
	handlers.RespondJSON(w, http.StatusOK, created)
}

func (h *Handler) AutoAssign(w http.ResponseWriter, r *http.Request) {
	store, documentID, err := h.scope(r)
	if err != nil {
		handlers.RespondError(w, h.logger, http.StatusBadRequest, err)
		return
	}

	var cmd mergeCommand
	if err := json.NewDecoder(r.Body).Decode(&cmd); err != nil {
		handlers.RespondError(w, h.logger, http.StatusBadRequest, err)
		return
	}
	if cmd.Page < 1 {
		handlers.RespondError(w, h.logger, http.StatusBadRequest, errors.New("invalid page"))
		return
	}

	regs, err := h.regions.ForDocument(r.Context(), documentID)
	if err != nil {
		handlers.RespondError(w, h.logger, regions.MapHTTPStatus(err), err)
		return
	}

	created, err := store.AutoAssign(r.Context(), cmd.Content, regs, documentID, cmd.Page)
	if err != nil {
		handlers.RespondError(w, h.logger, MapHTTPStatus(err), err)
		return
	}

	if created == nil {
		created = []TitledText{}
	}
	handlers.RespondJSON(w, http.StatusOK, created)
}

func (h *Handler) Refresh(w http.ResponseWriter, r *http.Request) {
	store, documentID, err := h.scope(r)
	if err != nil {
		handlers.RespondError(w, h.logger, http.StatusBadRequest, err)
		return
	}

	store.Refresh(r.Context(), documentID)
	w.WriteHeader(http.StatusNoContent)
}

type assignCommand struct {
	TextID uuid.UUID `json:"text_id"`
	Page   int       `json:"page"`
}

func (h *Handler) Assign(w http.ResponseWriter, r *http.Request) {
	store, documentID, err := h.scope(r)
	if err != nil {
		handlers.RespondError(w, h.logger, http.StatusBadRequest, err)
		return
	}

	regionID, err := uuid.Parse(r.PathValue("regionId"))
	if err != nil {
		handlers.RespondError(w, h.logger, http.StatusBadRequest, err)
		return
	}

	var cmd assignCommand
	if err := json.NewDecoder(r.Body).Decode(&cmd); err != nil {
		handlers.RespondError(w, h.logger, http.StatusBadRequest, err)
		return
	}

	region, err := h.regions.Find(r.Context(), regionID)
	if err != nil {
		handlers.RespondError(w, h.logger, regions.MapHTTPStatus(err), err)
		return
	}

	if err := store.AssignTextToRegion(r.Context(), documentID, cmd.TextID, *region, cmd.Page); err != nil {
		handlers.RespondError(w, h.logger, MapHTTPStatus(err), err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) Undo(w http.ResponseWriter, r *http.Request) {
	store, documentID, err := h.scope(r)
	if err != nil {
		handlers.RespondError(w, h.logger, http.StatusBadRequest, err)
		return
	}

	regionID, err := uuid.Parse(r.PathValue("regionId"))
	if err != nil {
		handlers.RespondError(w, h.logger, http.StatusBadRequest, err)
		return
	}

	page, err := strconv.Atoi(r.URL.Query().Get("page"))
	if err != nil || page < 1 {
		handlers.RespondError(w, h.logger, http.StatusBadRequest, errors.New("invalid page"))
		return
	}

	region, err := h.regions.Find(r.Context(), regionID)
	if err != nil {
		handlers.RespondError(w, h.logger, regions.MapHTTPStatus(err), err)
		return
	}

	if err := store.UndoRegionAssignment(r.Context(), documentID, *region, page); err != nil {
		handlers.RespondError(w, h.logger, MapHTTPStatus(err), err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// UndoAll removes every assignment of the document and clears the displayed
// description of each region on the requested page.
func (h *Handler) UndoAll(w http.ResponseWriter, r *http.Request) {
	store, documentID, err := h.scope(r)
	if err != nil {
		handlers.RespondError(w, h.logger, http.StatusBadRequest, err)
		return
	}

	page, err := strconv.Atoi(r.URL.Query().Get("page"))
	if err != nil || page < 1 {
		handlers.RespondError(w, h.logger, http.StatusBadRequest, errors.New("invalid page"))
		return
	}

	if err := store.UndoAllAssignments(r.Context(), documentID); err != nil {
		handlers.RespondError(w, h.logger, MapHTTPStatus(err), err)
		return
	}

	regs, err := h.regions.ForPage(r.Context(), documentID, page)
	if err != nil {
		h.logger.Warn("region lookup for description reset failed", "document", documentID, "error", err)
	}
	for _, region := range regs {
		if err := h.regions.UpdateDescription(r.Context(), region.ID, nil); err != nil {
			h.logger.Warn("region description clear failed", "region", region.ID, "error", err)
		}
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) UnassignedRegions(w http.ResponseWriter, r *http.Request) {
	store, documentID, err := h.scope(r)
	if err != nil {
		handlers.RespondError(w, h.logger, http.StatusBadRequest, err)
		return
	}

	page, err := strconv.Atoi(r.URL.Query().Get("page"))
	if err != nil || page < 1 {
		handlers.RespondError(w, h.logger, http.StatusBadRequest, errors.New("invalid page"))
		return
	}

	store.Load(r.Context(), documentID)

	regs, err := h.regions.ForPage(r.Context(), documentID, page)
	if err != nil {
		handlers.RespondError(w, h.logger, regions.MapHTTPStatus(err), err)
		return
	}

	unassigned := store.UnassignedRegionsByPage(regs, page, documentID)
	if unassigned == nil {
		unassigned = []regions.Region{}
	}
	handlers.RespondJSON(w, http.StatusOK, unassigned)
}

func (h *Handler) DeleteText(w http.ResponseWriter, r *http.Request) {
	store, documentID, err := h.scope(r)
	if err != nil {
		handlers.RespondError(w, h.logger, http.StatusBadRequest, err)
		return
	}

	textID, err := uuid.Parse(r.PathValue("textId"))
	if err != nil {
		handlers.RespondError(w, h.logger, http.StatusBadRequest, err)
		return
	}

	if err := store.DeleteText(r.Context(), documentID, textID); err != nil {
		handlers.RespondError(w, h.logger, MapHTTPStatus(err), err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) ResetDocument(w http.ResponseWriter, r *http.Request) {
	store, documentID, err := h.scope(r)
	if err != nil {
		handlers.RespondError(w, h.logger, http.StatusBadRequest, err)
		return
	}

	if err := store.ResetDocument(r.Context(), documentID); err != nil {
		handlers.RespondError(w, h.logger, MapHTTPStatus(err), err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) ResetAll(w http.ResponseWriter, r *http.Request) {
	actor, err := h.actor(r)
	if err != nil {
		handlers.RespondError(w, h.logger, http.StatusBadRequest, err)
		return
	}

	store := h.manager.Store(r.Context(), actor)
	if err := store.ResetAll(r.Context()); err != nil {
		handlers.RespondError(w, h.logger, MapHTTPStatus(err), err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// Evict drops the actor's in-memory store on sign-out; durable state is
// untouched.
func (h *Handler) Evict(w http.ResponseWriter, r *http.Request) {
	actor, err := h.actor(r)
	if err != nil {
		handlers.RespondError(w, h.logger, http.StatusBadRequest, err)
		return
	}

	h.manager.Evict(actor)
	w.WriteHeader(http.StatusNoContent)
}
