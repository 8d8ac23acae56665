package server

import (
	"context"
	"net/http"

	"github.com/lukelai18/ECommerce-API/internal/resource"
	"github.com/lukelai18/ECommerce-API/internal/store"
)

// The handlers below are shared by every collection; each route binds one to
// the matching resource.Service method.

// createHandler handles POST /{collection}.
func createHandler[C, T any](s *ShopServer, create func(context.Context, C) (T, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var in C
		if err := decodeBody(r, &in); err != nil {
			s.writeServiceError(w, r, err)
			return
		}
		out, err := create(r.Context(), in)
		if err != nil {
			s.writeServiceError(w, r, err)
			return
		}
		writeJSON(w, http.StatusCreated, out)
	}
}

// listHandler handles GET /{collection}. Query parameters become an
// equality filter.
func listHandler[T any](s *ShopServer, collection string, list func(context.Context, store.Fields) ([]T, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		where, err := resource.ParseFilter(collection, r.URL.Query())
		if err != nil {
			s.writeServiceError(w, r, err)
			return
		}
		items, err := list(r.Context(), where)
		if err != nil {
			s.writeServiceError(w, r, err)
			return
		}
		// Ensure items is never null in JSON output.
		if items == nil {
			items = []T{}
		}
		writeJSON(w, http.StatusOK, items)
	}
}

// getHandler handles GET /{collection}/{id}.
func getHandler[T any](s *ShopServer, get func(context.Context, int64) (T, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := pathID(r)
		if err != nil {
			s.writeServiceError(w, r, err)
			return
		}
		out, err := get(r.Context(), id)
		if err != nil {
			s.writeServiceError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, out)
	}
}

// updateHandler handles PUT /{collection}/{id}. The body is a partial
// object: absent or null fields are left unchanged.
func updateHandler[U, T any](s *ShopServer, update func(context.Context, int64, U) (T, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := pathID(r)
		if err != nil {
			s.writeServiceError(w, r, err)
			return
		}
		var in U
		if err := decodeBody(r, &in); err != nil {
			s.writeServiceError(w, r, err)
			return
		}
		out, err := update(r.Context(), id, in)
		if err != nil {
			s.writeServiceError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, out)
	}
}

// deleteHandler handles DELETE /{collection}/{id}.
func deleteHandler(s *ShopServer, del func(context.Context, int64) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := pathID(r)
		if err != nil {
			s.writeServiceError(w, r, err)
			return
		}
		if err := del(r.Context(), id); err != nil {
			s.writeServiceError(w, r, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}
