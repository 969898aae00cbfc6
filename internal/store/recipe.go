package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/morerecipes/apiserver/types"
)

const recipeColumns = `id, name, description, ingredient, image_url, user_id, views, created_at, updated_at`

// RecipeRepository handles persistence for recipes and reads their reviews,
// votes and favorites.
type RecipeRepository struct {
	db *sql.DB
}

func NewRecipeRepository(db *sql.DB) *RecipeRepository {
	return &RecipeRepository{db: db}
}

func (r *RecipeRepository) List(ctx context.Context, limit, offset int, order types.SortOrder) ([]types.Recipe, int, error) {
	if offset < 0 {
		offset = 0
	}
	if limit < 1 {
		limit = 2
	}
	direction := "ASC"
	if order == types.SortDesc {
		direction = "DESC"
	}

	const countQuery = `SELECT COUNT(1) FROM recipes`
	var total int
	if err := r.db.QueryRowContext(ctx, countQuery).Scan(&total); err != nil {
		return nil, 0, err
	}

	listQuery := fmt.Sprintf(`
		SELECT %s
		FROM recipes
		ORDER BY created_at %s, id %s
		LIMIT $1 OFFSET $2`, recipeColumns, direction, direction)
	rows, err := r.db.QueryContext(ctx, listQuery, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	recipes := make([]types.Recipe, 0, limit)
	for rows.Next() {
		recipe, err := scanRecipe(rows)
		if err != nil {
			return nil, 0, err
		}
		recipes = append(recipes, recipe)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}

	return recipes, total, nil
}

// Get loads a recipe. With relations set, reviews, votes and favorites are
// loaded as well.
func (r *RecipeRepository) Get(ctx context.Context, id int, withRelations bool) (types.Recipe, error) {
	const query = `SELECT ` + recipeColumns + ` FROM recipes WHERE id = $1`
	recipe, err := scanRecipe(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return types.Recipe{}, ErrNotFound
		}
		return types.Recipe{}, err
	}
	if !withRelations {
		return recipe, nil
	}

	if recipe.Reviews, err = r.reviews(ctx, id); err != nil {
		return types.Recipe{}, err
	}
	if recipe.Votes, err = r.votes(ctx, id); err != nil {
		return types.Recipe{}, err
	}
	if recipe.Favorites, err = r.favorites(ctx, id); err != nil {
		return types.Recipe{}, err
	}
	return recipe, nil
}

func (r *RecipeRepository) FindByNameAndOwner(ctx context.Context, name string, ownerID int) (types.Recipe, error) {
	const query = `SELECT ` + recipeColumns + ` FROM recipes WHERE name = $1 AND user_id = $2`
	recipe, err := scanRecipe(r.db.QueryRowContext(ctx, query, name, ownerID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return types.Recipe{}, ErrNotFound
		}
		return types.Recipe{}, err
	}
	return recipe, nil
}

func (r *RecipeRepository) Create(ctx context.Context, recipe types.Recipe) (types.Recipe, error) {
	now := time.Now().UTC()
	recipe.CreatedAt = now
	recipe.UpdatedAt = now
	recipe.Views = 0

	const query = `
		INSERT INTO recipes (name, description, ingredient, image_url, user_id, views, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id`
	if err := r.db.QueryRowContext(
		ctx,
		query,
		recipe.Name,
		recipe.Description,
		recipe.Ingredient,
		recipe.ImageURL,
		recipe.UserID,
		recipe.Views,
		recipe.CreatedAt,
		recipe.UpdatedAt,
	).Scan(&recipe.ID); err != nil {
		return types.Recipe{}, translateError(err)
	}
	return recipe, nil
}

// Update writes only the columns present in patch and returns the stored row.
func (r *RecipeRepository) Update(ctx context.Context, id int, patch types.RecipePatch) (types.Recipe, error) {
	sets := make([]string, 0, 5)
	args := make([]any, 0, 6)
	add := func(column string, value *string) {
		if value == nil {
			return
		}
		args = append(args, *value)
		sets = append(sets, fmt.Sprintf("%s = $%d", column, len(args)))
	}
	add("name", patch.Name)
	add("description", patch.Description)
	add("ingredient", patch.Ingredient)
	add("image_url", patch.ImageURL)

	args = append(args, time.Now().UTC())
	sets = append(sets, fmt.Sprintf("updated_at = $%d", len(args)))
	args = append(args, id)

	query := fmt.Sprintf(`
		UPDATE recipes
		SET %s
		WHERE id = $%d
		RETURNING %s`, strings.Join(sets, ", "), len(args), recipeColumns)
	recipe, err := scanRecipe(r.db.QueryRowContext(ctx, query, args...))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return types.Recipe{}, ErrNotFound
		}
		return types.Recipe{}, translateError(err)
	}
	return recipe, nil
}

// IncrementViews adds one view and returns the stored counter.
func (r *RecipeRepository) IncrementViews(ctx context.Context, id int) (int, error) {
	const query = `UPDATE recipes SET views = views + 1 WHERE id = $1 RETURNING views`
	var views int
	if err := r.db.QueryRowContext(ctx, query, id).Scan(&views); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, ErrNotFound
		}
		return 0, err
	}
	return views, nil
}

func (r *RecipeRepository) Delete(ctx context.Context, id int) error {
	const query = `DELETE FROM recipes WHERE id = $1`
	result, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *RecipeRepository) reviews(ctx context.Context, recipeID int) ([]types.Review, error) {
	const query = `
		SELECT id, recipe_id, user_id, content, created_at
		FROM reviews
		WHERE recipe_id = $1
		ORDER BY created_at, id`
	rows, err := r.db.QueryContext(ctx, query, recipeID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var reviews []types.Review
	for rows.Next() {
		var review types.Review
		if err := rows.Scan(&review.ID, &review.RecipeID, &review.UserID, &review.Content, &review.CreatedAt); err != nil {
			return nil, err
		}
		reviews = append(reviews, review)
	}
	return reviews, rows.Err()
}

func (r *RecipeRepository) votes(ctx context.Context, recipeID int) ([]types.Vote, error) {
	const query = `
		SELECT id, recipe_id, user_id, upvote, created_at
		FROM votes
		WHERE recipe_id = $1
		ORDER BY created_at, id`
	rows, err := r.db.QueryContext(ctx, query, recipeID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var votes []types.Vote
	for rows.Next() {
		var vote types.Vote
		if err := rows.Scan(&vote.ID, &vote.RecipeID, &vote.UserID, &vote.Upvote, &vote.CreatedAt); err != nil {
			return nil, err
		}
		votes = append(votes, vote)
	}
	return votes, rows.Err()
}

func (r *RecipeRepository) favorites(ctx context.Context, recipeID int) ([]types.Favorite, error) {
	const query = `
		SELECT id, recipe_id, user_id, created_at
		FROM favorites
		WHERE recipe_id = $1
		ORDER BY created_at, id`
	rows, err := r.db.QueryContext(ctx, query, recipeID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var favorites []types.Favorite
	for rows.Next() {
		var favorite types.Favorite
		if err := rows.Scan(&favorite.ID, &favorite.RecipeID, &favorite.UserID, &favorite.CreatedAt); err != nil {
			return nil, err
		}
		favorites = append(favorites, favorite)
	}
	return favorites, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRecipe(row rowScanner) (types.Recipe, error) {
	var recipe types.Recipe
	err := row.Scan(
		&recipe.ID,
		&recipe.Name,
		&recipe.Description,
		&recipe.Ingredient,
		&recipe.ImageURL,
		&recipe.UserID,
		&recipe.Views,
		&recipe.CreatedAt,
		&recipe.UpdatedAt,
	)
	return recipe, err
}
