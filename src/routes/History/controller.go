package history

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	"sitewise-backend/events"
	"sitewise-backend/metrics"
	"sitewise-backend/utils"
	"sitewise-backend/versions"
)

func handleStoreError(err error, w http.ResponseWriter, r *http.Request) {
	var statusErr utils.StatusError

	switch {
	case errors.Is(err, errNoToken):
		errMsg := "No GitHub token: sign in or configure GITHUB_TOKEN"
		utils.HandleError(utils.ErrUnAuthorized, err, w, r, &errMsg)
	case errors.Is(err, versions.ErrInvalidSlug), errors.Is(err, versions.ErrNoBlocks):
		errMsg := err.Error()
		utils.HandleError(utils.ErrInvalid, err, w, r, &errMsg)
	case errors.Is(err, versions.ErrNoFreeSlot):
		errMsg := "Another save took this version slot, try again"
		utils.HandleError(utils.ErrConflict, err, w, r, &errMsg)
	case errors.Is(err, versions.ErrNotFound):
		errMsg := "Version not found"
		utils.HandleError(utils.ErrNotFound, err, w, r, &errMsg)
	case errors.As(err, &statusErr):
		utils.HandleUpstreamError(err, w, r)
	default:
		utils.HandleError(utils.ErrInternal, err, w, r, nil)
	}
}

func (hHandler HistoryHandler) publish(r *http.Request, event events.Event) {
	if err := hHandler.Events.Publish(r.Context(), event); err != nil {
		utils.Log.Warnw("[VERSIONS] could not publish event", "type", event.Type, "error", err)
	}
}

// ListVersions lists a slug's versions newest first, or returns one version
// when ?id= is given.
func (hHandler HistoryHandler) ListVersions(w http.ResponseWriter, r *http.Request) {
	slug := chi.URLParam(r, "slug")

	store, err := hHandler.Resolve(r)
	if err != nil {
		handleStoreError(err, w, r)
		return
	}

	if id := r.URL.Query().Get("id"); len(id) > 0 {
		ts, err := strconv.ParseInt(id, 10, 64)
		if err != nil {
			errMsg := "id must be a number"
			utils.HandleError(utils.ErrInvalid, err, w, r, &errMsg)
			return
		}

		record, err := store.Get(r.Context(), slug, ts)
		if err != nil {
			handleStoreError(err, w, r)
			return
		}

		render.JSON(w, r, record)
		return
	}

	list, err := store.List(r.Context(), slug)
	if err != nil {
		handleStoreError(err, w, r)
		return
	}

	render.JSON(w, r, ListResponse{Slug: slug, Versions: list})
}

func (hHandler HistoryHandler) SaveVersion(w http.ResponseWriter, r *http.Request) {
	slug := chi.URLParam(r, "slug")

	var body SaveRequest
	if err := utils.DecodeJSON(w, r, &body); err != nil {
		errMsg := err.Error()
		utils.HandleError(utils.ErrInvalid, err, w, r, &errMsg)
		return
	}

	if err := utils.ValidateStruct(body); err != nil {
		errMsg := err.Error()
		utils.HandleError(utils.ErrInvalid, err, w, r, &errMsg)
		return
	}

	store, err := hHandler.Resolve(r)
	if err != nil {
		handleStoreError(err, w, r)
		return
	}

	record, err := store.Save(r.Context(), slug, body.Blocks)
	if err != nil {
		handleStoreError(err, w, r)
		return
	}

	metrics.VersionsSavedCounter.WithLabelValues(store.Name()).Inc()
	hHandler.publish(r, events.Event{Type: events.VersionSaved, Slug: slug, Version: record.TS, Backend: store.Name()})

	render.JSON(w, r, SaveResponse{Ok: true, Version: record.TS})
}

// RollbackVersion restores an older version as a new one; history is never
// rewritten.
func (hHandler HistoryHandler) RollbackVersion(w http.ResponseWriter, r *http.Request) {
	slug := chi.URLParam(r, "slug")

	var body RollbackRequest
	if err := utils.DecodeJSON(w, r, &body); err != nil {
		errMsg := err.Error()
		utils.HandleError(utils.ErrInvalid, err, w, r, &errMsg)
		return
	}

	if err := utils.ValidateStruct(body); err != nil {
		errMsg := "versionId is required"
		utils.HandleError(utils.ErrInvalid, err, w, r, &errMsg)
		return
	}

	store, err := hHandler.Resolve(r)
	if err != nil {
		handleStoreError(err, w, r)
		return
	}

	record, err := versions.Rollback(r.Context(), store, slug, int64(body.VersionID))
	if err != nil {
		handleStoreError(err, w, r)
		return
	}

	metrics.VersionsSavedCounter.WithLabelValues(store.Name()).Inc()
	hHandler.publish(r, events.Event{
		Type:         events.VersionRolledBack,
		Slug:         slug,
		Version:      record.TS,
		RestoredFrom: int64(body.VersionID),
		Backend:      store.Name(),
	})

	render.JSON(w, r, RollbackResponse{Ok: true, Version: record.TS, RestoredFrom: int64(body.VersionID)})
}
