package http

import (
	"net/http"

	applog "finance/internal/log"
)

func (s *Server) handleListCategories(w http.ResponseWriter, r *http.Request) {
	categories, err := s.categories.FindAll(r.Context())
	if err != nil {
		writeError(r.Context(), w, applog.OpList, err)
		return
	}
	NewJSONResponse().Body(newCategoryDTOs(categories)).Write(w)
}

func (s *Server) handleCreateCategory(w http.ResponseWriter, r *http.Request) {
	var req categoryRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(r.Context(), w, applog.OpCreate, err)
		return
	}

	created, err := s.categories.Create(r.Context(), req.Title, req.Color)
	if err != nil {
		writeError(r.Context(), w, applog.OpCreate, err)
		return
	}
	NewJSONResponse().Status(http.StatusCreated).Body(newCategoryDTO(created)).Write(w)
}

func (s *Server) handleGetCategory(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(r)
	if !ok {
		ErrorResponse(http.StatusNotFound, "category not found").Write(w)
		return
	}

	category, err := s.categories.FindByID(r.Context(), id)
	if err != nil {
		writeError(r.Context(), w, applog.OpRead, err)
		return
	}
	if category == nil {
		ErrorResponse(http.StatusNotFound, "category not found").Write(w)
		return
	}
	NewJSONResponse().Body(newCategoryDTO(*category)).Write(w)
}

func (s *Server) handleUpdateCategory(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(r)
	if !ok {
		ErrorResponse(http.StatusNotFound, "category not found").Write(w)
		return
	}

	var req categoryRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(r.Context(), w, applog.OpUpdate, err)
		return
	}

	updated, err := s.categories.Update(r.Context(), id, req.Title, req.Color)
	if err != nil {
		writeError(r.Context(), w, applog.OpUpdate, err)
		return
	}
	NewJSONResponse().Body(newCategoryDTO(updated)).Write(w)
}

func (s *Server) handleDeleteCategory(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(r)
	if !ok {
		ErrorResponse(http.StatusNotFound, "category not found").Write(w)
		return
	}

	if err := s.categories.Remove(r.Context(), id); err != nil {
		writeError(r.Context(), w, applog.OpDelete, err)
		return
	}
	NewJSONResponse().Status(http.StatusNoContent).Write(w)
}
