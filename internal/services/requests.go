package services

import "github.com/morerecipes/apiserver/types"

// The validate tags on these request types are the named rule sets: recipe
// createRules and updateRules, user createRules, loginRules and listRules.

// CreateRecipeRequest carries the fields of a new recipe.
type CreateRecipeRequest struct {
	Name        string `json:"name" validate:"required,notblank,max=255"`
	Description string `json:"description" validate:"required,notblank"`
	Ingredient  string `json:"ingredient" validate:"required,notblank"`
	ImageURL    string `json:"image_url" validate:"optional_url,max=2048"`
}

// UpdateRecipeRequest carries the recipe fields to replace. Absent fields are
// nil and left untouched; present fields obey the create constraints.
type UpdateRecipeRequest struct {
	Name        *string `json:"name" validate:"omitnil,notblank,max=255"`
	Description *string `json:"description" validate:"omitnil,notblank"`
	Ingredient  *string `json:"ingredient" validate:"omitnil,notblank"`
	ImageURL    *string `json:"image_url" validate:"omitnil,optional_url,max=2048"`
}

func (r UpdateRecipeRequest) patch() types.RecipePatch {
	return types.RecipePatch{
		Name:        r.Name,
		Description: r.Description,
		Ingredient:  r.Ingredient,
		ImageURL:    r.ImageURL,
	}
}

// ListRecipesRequest carries optional paging parameters. Nil values fall back
// to the configured defaults. Order is "asc" or "desc" in any case; anything
// else sorts ascending.
type ListRecipesRequest struct {
	Limit  *int   `json:"limit" validate:"omitnil,min=1"`
	Offset *int   `json:"offset" validate:"omitnil,min=0"`
	Order  string `json:"order"`
}

// RegisterRequest carries the fields of a new account.
type RegisterRequest struct {
	Fullname        string `json:"fullname" validate:"required,notblank,max=255"`
	Username        string `json:"username" validate:"required,alphanum,min=3,max=50"`
	Email           string `json:"email" validate:"required,email"`
	Password        string `json:"password" validate:"required,min=6"`
	ConfirmPassword string `json:"confirm_password" validate:"required"`
}

// LoginRequest carries login credentials.
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}
