package types

import "time"

// Recipe is a dish published by a single owning user.
// A user cannot own two recipes with the same name.
type Recipe struct {
	// ID is the unique identifier of the recipe.
	ID int `json:"id" db:"id"`

	// Name is the title of the recipe, unique per owner.
	Name string `json:"name" db:"name"`

	// Description holds the preparation steps.
	Description string `json:"description" db:"description"`

	// Ingredient is the free-form ingredient list.
	Ingredient string `json:"ingredient" db:"ingredient"`

	// ImageURL points at the recipe picture, usually one uploaded through
	// the image endpoint.
	ImageURL string `json:"image_url" db:"image_url"`

	// UserID is the owner. Ownership never transfers.
	UserID int `json:"user_id" db:"user_id"`

	// Views counts reads of the recipe. It only grows.
	Views int `json:"views" db:"views"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`

	// Relations are only populated on single-recipe reads.
	Reviews   []Review   `json:"reviews,omitempty"`
	Votes     []Vote     `json:"votes,omitempty"`
	Favorites []Favorite `json:"favorites,omitempty"`
}

// RecipePatch names the recipe fields to replace. Nil fields are left untouched.
type RecipePatch struct {
	Name        *string
	Description *string
	Ingredient  *string
	ImageURL    *string
}

// Empty reports whether the patch replaces no field.
func (p RecipePatch) Empty() bool {
	return p.Name == nil && p.Description == nil && p.Ingredient == nil && p.ImageURL == nil
}

// Apply copies the present fields onto r.
func (p RecipePatch) Apply(r *Recipe) {
	if p.Name != nil {
		r.Name = *p.Name
	}
	if p.Description != nil {
		r.Description = *p.Description
	}
	if p.Ingredient != nil {
		r.Ingredient = *p.Ingredient
	}
	if p.ImageURL != nil {
		r.ImageURL = *p.ImageURL
	}
}

// Review is a user's written comment on a recipe.
type Review struct {
	ID        int       `json:"id" db:"id"`
	RecipeID  int       `json:"recipe_id" db:"recipe_id"`
	UserID    int       `json:"user_id" db:"user_id"`
	Content   string    `json:"content" db:"content"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// Vote is an up or down vote on a recipe.
type Vote struct {
	ID        int       `json:"id" db:"id"`
	RecipeID  int       `json:"recipe_id" db:"recipe_id"`
	UserID    int       `json:"user_id" db:"user_id"`
	Upvote    bool      `json:"upvote" db:"upvote"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// Favorite marks a recipe as saved by a user.
type Favorite struct {
	ID        int       `json:"id" db:"id"`
	RecipeID  int       `json:"recipe_id" db:"recipe_id"`
	UserID    int       `json:"user_id" db:"user_id"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// SortOrder orders recipe listings by creation time.
type SortOrder string

const (
	SortAsc  SortOrder = "ASC"
	SortDesc SortOrder = "DESC"
)

// PaginationMeta describes one page of a listing.
type PaginationMeta struct {
	TotalCount  int `json:"total_count"`
	Limit       int `json:"limit"`
	Offset      int `json:"offset"`
	PageCount   int `json:"page_count"`
	CurrentPage int `json:"current_page"`
}
