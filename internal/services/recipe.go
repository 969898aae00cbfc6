package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/morerecipes/apiserver/config"
	"github.com/morerecipes/apiserver/internal/pagination"
	"github.com/morerecipes/apiserver/internal/store"
	"github.com/morerecipes/apiserver/internal/validation"
	"github.com/morerecipes/apiserver/types"
)

// RecipeRepository defines persistence operations for recipes.
type RecipeRepository interface {
	List(ctx context.Context, limit, offset int, order types.SortOrder) ([]types.Recipe, int, error)
	Get(ctx context.Context, id int, withRelations bool) (types.Recipe, error)
	FindByNameAndOwner(ctx context.Context, name string, ownerID int) (types.Recipe, error)
	Create(ctx context.Context, recipe types.Recipe) (types.Recipe, error)
	Update(ctx context.Context, id int, patch types.RecipePatch) (types.Recipe, error)
	IncrementViews(ctx context.Context, id int) (int, error)
	Delete(ctx context.Context, id int) error
}

// UserLookup resolves recipe owners.
type UserLookup interface {
	GetByID(ctx context.Context, id int) (types.User, error)
}

// RecipeList is one page of the global recipe listing.
type RecipeList struct {
	PaginationMeta types.PaginationMeta `json:"pagination_meta"`
	Recipes        []types.Recipe       `json:"recipes"`
}

// RecipeService enforces recipe ownership, per-owner name uniqueness and view
// counting.
type RecipeService struct {
	recipes    RecipeRepository
	users      UserLookup
	validator  *validation.Validator
	pagination config.PaginationConfig
	events     *EventPublisher
	logger     *slog.Logger
}

// NewRecipeService constructs a RecipeService. events and logger may be nil.
func NewRecipeService(
	recipes RecipeRepository,
	users UserLookup,
	validator *validation.Validator,
	paging config.PaginationConfig,
	events *EventPublisher,
	logger *slog.Logger,
) *RecipeService {
	if paging.DefaultLimit < 1 {
		paging.DefaultLimit = 2
	}
	if paging.DefaultOffset < 0 {
		paging.DefaultOffset = 0
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &RecipeService{
		recipes:    recipes,
		users:      users,
		validator:  validator,
		pagination: paging,
		events:     events,
		logger:     logger,
	}
}

// Create stores a new recipe owned by userID.
func (s *RecipeService) Create(ctx context.Context, userID int, req CreateRecipeRequest) (types.Recipe, error) {
	if err := s.check(req); err != nil {
		return types.Recipe{}, err
	}

	if _, err := s.users.GetByID(ctx, userID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return types.Recipe{}, ErrUserNotFound
		}
		return types.Recipe{}, fmt.Errorf("load user %d: %w", userID, err)
	}

	if _, err := s.recipes.FindByNameAndOwner(ctx, req.Name, userID); err == nil {
		return types.Recipe{}, ErrDuplicateRecipe
	} else if !errors.Is(err, store.ErrNotFound) {
		return types.Recipe{}, fmt.Errorf("check duplicate recipe: %w", err)
	}

	created, err := s.recipes.Create(ctx, types.Recipe{
		Name:        req.Name,
		Description: req.Description,
		Ingredient:  req.Ingredient,
		ImageURL:    req.ImageURL,
		UserID:      userID,
	})
	if err != nil {
		// A concurrent create for the same name slipped past the check above.
		if errors.Is(err, store.ErrDuplicate) {
			return types.Recipe{}, newError(ErrDuplicateRecipe, nil, err)
		}
		return types.Recipe{}, fmt.Errorf("create recipe: %w", err)
	}

	s.events.publish(ctx, EventRecipeCreated, created)
	return created, nil
}

// Retrieve loads a recipe with its reviews, votes and favorites and counts the
// read. requesterID is zero for anonymous reads.
//
// Every read increments the stored counter, but an owner reading their own
// recipe is always shown a count of 1.
func (s *RecipeService) Retrieve(ctx context.Context, recipeID, requesterID int) (types.Recipe, error) {
	recipe, err := s.recipes.Get(ctx, recipeID, true)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return types.Recipe{}, ErrNotFound
		}
		return types.Recipe{}, fmt.Errorf("load recipe %d: %w", recipeID, err)
	}

	views, err := s.recipes.IncrementViews(ctx, recipeID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return types.Recipe{}, ErrNotFound
		}
		return types.Recipe{}, fmt.Errorf("count view of recipe %d: %w", recipeID, err)
	}
	recipe.Views = views

	if requesterID != 0 && requesterID == recipe.UserID {
		recipe.Views = 1
	}
	return recipe, nil
}

// Update replaces the fields present in req on a recipe owned by userID.
// Ownership is checked before the fields are validated.
func (s *RecipeService) Update(ctx context.Context, userID, recipeID int, req UpdateRecipeRequest) (types.Recipe, error) {
	current, err := s.ownedRecipe(ctx, userID, recipeID)
	if err != nil {
		return types.Recipe{}, err
	}

	if err := s.check(req); err != nil {
		return types.Recipe{}, err
	}

	patch := req.patch()
	if patch.Empty() {
		return current, nil
	}

	updated, err := s.recipes.Update(ctx, recipeID, patch)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return types.Recipe{}, ErrNotFound
		}
		var cerr *store.ConstraintError
		if errors.As(err, &cerr) {
			field := cerr.Field
			if field == "" {
				field = "recipe"
			}
			return types.Recipe{}, newError(ErrPersistence, map[string][]string{
				field: {fmt.Sprintf("%s %s", field, cerr.Message)},
			}, err)
		}
		return types.Recipe{}, fmt.Errorf("update recipe %d: %w", recipeID, err)
	}

	s.events.publish(ctx, EventRecipeUpdated, updated)
	return updated, nil
}

// Destroy permanently removes a recipe owned by userID.
func (s *RecipeService) Destroy(ctx context.Context, userID, recipeID int) error {
	current, err := s.ownedRecipe(ctx, userID, recipeID)
	if err != nil {
		return err
	}

	if err := s.recipes.Delete(ctx, recipeID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ErrNotFound
		}
		return fmt.Errorf("delete recipe %d: %w", recipeID, err)
	}

	s.events.publish(ctx, EventRecipeDeleted, current)
	return nil
}

// List returns one page of all recipes ordered by creation time.
func (s *RecipeService) List(ctx context.Context, req ListRecipesRequest) (RecipeList, error) {
	if err := s.check(req); err != nil {
		return RecipeList{}, err
	}

	limit := s.pagination.DefaultLimit
	if req.Limit != nil {
		limit = *req.Limit
	}
	if s.pagination.MaxLimit > 0 && limit > s.pagination.MaxLimit {
		limit = s.pagination.MaxLimit
	}
	offset := s.pagination.DefaultOffset
	if req.Offset != nil {
		offset = *req.Offset
	}
	order := types.SortAsc
	if strings.EqualFold(strings.TrimSpace(req.Order), "desc") {
		order = types.SortDesc
	}

	recipes, total, err := s.recipes.List(ctx, limit, offset, order)
	if err != nil {
		return RecipeList{}, fmt.Errorf("list recipes: %w", err)
	}

	meta, err := pagination.ComputeMeta(total, limit, offset)
	if err != nil {
		return RecipeList{}, fmt.Errorf("compute pagination: %w", err)
	}

	return RecipeList{PaginationMeta: meta, Recipes: recipes}, nil
}

// ownedRecipe loads a recipe and checks that userID owns it. A recipe owned by
// someone else is reported as ErrForbidden, which the boundary renders exactly
// like ErrNotFound.
func (s *RecipeService) ownedRecipe(ctx context.Context, userID, recipeID int) (types.Recipe, error) {
	recipe, err := s.recipes.Get(ctx, recipeID, false)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return types.Recipe{}, ErrNotFound
		}
		return types.Recipe{}, fmt.Errorf("load recipe %d: %w", recipeID, err)
	}
	if recipe.UserID != userID {
		s.logger.InfoContext(ctx, "recipe ownership check failed", "recipe_id", recipeID, "user_id", userID)
		return types.Recipe{}, ErrForbidden
	}
	return recipe, nil
}

func (s *RecipeService) check(req any) error {
	err := s.validator.Check(req)
	if err == nil {
		return nil
	}
	var fe validation.FieldErrors
	if errors.As(err, &fe) {
		return newError(ErrValidation, fe, nil)
	}
	return fmt.Errorf("validate request: %w", err)
}
