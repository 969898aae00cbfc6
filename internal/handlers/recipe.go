package handlers

import (
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/morerecipes/apiserver/internal/services"
	"github.com/morerecipes/apiserver/types"
)

// RecipeHandler serves the recipe collection.
type RecipeHandler struct {
	recipes *services.RecipeService
	logger  *slog.Logger
}

func NewRecipeHandler(recipes *services.RecipeService, logger *slog.Logger) *RecipeHandler {
	return &RecipeHandler{recipes: recipes, logger: logger}
}

// RecipeRouter registers recipe routes. images may be nil, which leaves the
// upload route unregistered.
func RecipeRouter(r chi.Router, recipes *services.RecipeService, images *services.ImageService, verifier TokenVerifier, logger *slog.Logger) {
	h := NewRecipeHandler(recipes, logger)
	requireAuth := RequireAuth(verifier, logger)

	r.Get("/", h.List)
	r.With(requireAuth).Post("/", h.Create)
	if images != nil {
		r.With(requireAuth).Post("/images", NewImageHandler(images, logger).Upload)
	}
	r.Route("/{recipeID}", func(r chi.Router) {
		r.With(OptionalAuth(verifier)).Get("/", h.Retrieve)
		r.With(requireAuth).Put("/", h.Update)
		r.With(requireAuth).Delete("/", h.Destroy)
	})
}

type recipeResponse struct {
	Message string       `json:"message,omitempty"`
	Recipe  types.Recipe `json:"recipe"`
}

func (h *RecipeHandler) Create(w http.ResponseWriter, r *http.Request) {
	claims, _ := claimsFromContext(r.Context())

	var req services.CreateRecipeRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeBadRequest(w, err.Error())
		return
	}

	recipe, err := h.recipes.Create(r.Context(), claims.UserID, req)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, recipeResponse{Message: "recipe creation successful", Recipe: recipe})
}

func (h *RecipeHandler) Retrieve(w http.ResponseWriter, r *http.Request) {
	id, ok := recipeID(w, r)
	if !ok {
		return
	}
	claims, _ := claimsFromContext(r.Context())

	recipe, err := h.recipes.Retrieve(r.Context(), id, claims.UserID)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, recipeResponse{Recipe: recipe})
}

func (h *RecipeHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := recipeID(w, r)
	if !ok {
		return
	}
	claims, _ := claimsFromContext(r.Context())

	var req services.UpdateRecipeRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeBadRequest(w, err.Error())
		return
	}

	recipe, err := h.recipes.Update(r.Context(), claims.UserID, id, req)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, recipeResponse{Message: "recipe successfully updated", Recipe: recipe})
}

func (h *RecipeHandler) Destroy(w http.ResponseWriter, r *http.Request) {
	id, ok := recipeID(w, r)
	if !ok {
		return
	}
	claims, _ := claimsFromContext(r.Context())

	if err := h.recipes.Destroy(r.Context(), claims.UserID, id); err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, MessageResponse{Message: "recipe successfully deleted"})
}

func (h *RecipeHandler) List(w http.ResponseWriter, r *http.Request) {
	req, err := parseListQuery(r)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	page, err := h.recipes.List(r.Context(), req)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, page)
}

// parseListQuery reads limit, offset and order. Non-numeric paging values are
// reported as validation failures; range checks happen in the service.
func parseListQuery(r *http.Request) (services.ListRecipesRequest, error) {
	query := r.URL.Query()
	req := services.ListRecipesRequest{Order: strings.TrimSpace(query.Get("order"))}
	fields := map[string][]string{}

	parse := func(name string) *int {
		raw := strings.TrimSpace(query.Get(name))
		if raw == "" {
			return nil
		}
		n, err := strconv.Atoi(raw)
		if err != nil {
			fields[name] = append(fields[name], "The "+name+" must be an integer.")
			return nil
		}
		return &n
	}
	req.Limit = parse("limit")
	req.Offset = parse("offset")

	if len(fields) > 0 {
		return req, &services.Error{Kind: services.KindValidation, Message: services.ErrValidation.Message, Fields: fields}
	}
	return req, nil
}

func recipeID(w http.ResponseWriter, r *http.Request) (int, bool) {
	id, err := strconv.Atoi(chi.URLParam(r, "recipeID"))
	if err != nil || id < 1 {
		writeBadRequest(w, "invalid recipe id")
		return 0, false
	}
	return id, true
}
