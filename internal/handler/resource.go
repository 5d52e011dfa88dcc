package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/CleanExpo/RestoreAssist-sub011/internal/domain"
)

// RecordService is the owner-scoped CRUD surface served by ResourceHandler.
type RecordService[T any] interface {
	Name() string
	Create(ctx context.Context, ownerID string, v *T) (*T, error)
	Get(ctx context.Context, ownerID, id string) (*T, error)
	List(ctx context.Context, ownerID string, opts domain.ListOptions) ([]*T, error)
	Update(ctx context.Context, ownerID, id string, v *T) (*T, error)
	Delete(ctx context.Context, ownerID, id string) error
}

// ResourceHandler serves list/create/get/update/delete for one record type.
type ResourceHandler[T any] struct {
	svc    RecordService[T]
	logger *slog.Logger
}

// NewResourceHandler creates a CRUD handler.
func NewResourceHandler[T any](svc RecordService[T], logger *slog.Logger) *ResourceHandler[T] {
	if logger == nil {
		logger = slog.Default()
	}
	return &ResourceHandler[T]{svc: svc, logger: logger.With(slog.String("resource", svc.Name()))}
}

// Mount registers the five routes under prefix, e.g. "/api/clients".
func (h *ResourceHandler[T]) Mount(mux *http.ServeMux, prefix string) {
	mux.HandleFunc("GET "+prefix, h.List)
	mux.HandleFunc("POST "+prefix, h.Create)
	mux.HandleFunc("GET "+prefix+"/{id}", h.Get)
	mux.HandleFunc("PUT "+prefix+"/{id}", h.Update)
	mux.HandleFunc("DELETE "+prefix+"/{id}", h.Delete)
}

func (h *ResourceHandler[T]) List(w http.ResponseWriter, r *http.Request) {
	sess, ok := requireSession(w, r)
	if !ok {
		return
	}
	out, err := h.svc.List(r.Context(), sess.UserID, listOptions(r))
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *ResourceHandler[T]) Create(w http.ResponseWriter, r *http.Request) {
	sess, ok := requireSession(w, r)
	if !ok {
		return
	}
	v := new(T)
	if !decodeJSON(w, r, h.logger, v) {
		return
	}
	out, err := h.svc.Create(r.Context(), sess.UserID, v)
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, out)
}

func (h *ResourceHandler[T]) Get(w http.ResponseWriter, r *http.Request) {
	sess, ok := requireSession(w, r)
	if !ok {
		return
	}
	out, err := h.svc.Get(r.Context(), sess.UserID, r.PathValue("id"))
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *ResourceHandler[T]) Update(w http.ResponseWriter, r *http.Request) {
	sess, ok := requireSession(w, r)
	if !ok {
		return
	}
	v := new(T)
	if !decodeJSON(w, r, h.logger, v) {
		return
	}
	out, err := h.svc.Update(r.Context(), sess.UserID, r.PathValue("id"), v)
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *ResourceHandler[T]) Delete(w http.ResponseWriter, r *http.Request) {
	sess, ok := requireSession(w, r)
	if !ok {
		return
	}
	if err := h.svc.Delete(r.Context(), sess.UserID, r.PathValue("id")); err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
