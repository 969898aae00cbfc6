// Package memstore keeps users and recipes in process memory. It enforces the
// same uniqueness rules as the Postgres schema and is used for local runs
// (DB_DRIVER=memory) and tests.
package memstore

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/morerecipes/apiserver/internal/store"
	"github.com/morerecipes/apiserver/types"
)

type recipeKey struct {
	name    string
	ownerID int
}

// Store holds the shared state behind the repositories.
type Store struct {
	mu sync.RWMutex

	now func() time.Time

	nextUserID   int
	nextRecipeID int
	nextRelID    int

	users         map[int]types.User
	recipes       map[int]types.Recipe
	recipesByName map[recipeKey]int
	reviews       map[int][]types.Review
	votes         map[int][]types.Vote
	favorites     map[int][]types.Favorite
}

func New() *Store {
	return &Store{
		now:           func() time.Time { return time.Now().UTC() },
		users:         make(map[int]types.User),
		recipes:       make(map[int]types.Recipe),
		recipesByName: make(map[recipeKey]int),
		reviews:       make(map[int][]types.Review),
		votes:         make(map[int][]types.Vote),
		favorites:     make(map[int][]types.Favorite),
	}
}

// Users returns the user repository view of the store.
func (s *Store) Users() *UserRepository {
	return &UserRepository{s: s}
}

// Recipes returns the recipe repository view of the store.
func (s *Store) Recipes() *RecipeRepository {
	return &RecipeRepository{s: s}
}

// AddReview attaches a review to an existing recipe.
func (s *Store) AddReview(recipeID, userID int, content string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.recipes[recipeID]; !ok {
		return store.ErrNotFound
	}
	s.nextRelID++
	s.reviews[recipeID] = append(s.reviews[recipeID], types.Review{
		ID: s.nextRelID, RecipeID: recipeID, UserID: userID, Content: content, CreatedAt: s.now(),
	})
	return nil
}

// AddVote attaches a vote to an existing recipe.
func (s *Store) AddVote(recipeID, userID int, upvote bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.recipes[recipeID]; !ok {
		return store.ErrNotFound
	}
	s.nextRelID++
	s.votes[recipeID] = append(s.votes[recipeID], types.Vote{
		ID: s.nextRelID, RecipeID: recipeID, UserID: userID, Upvote: upvote, CreatedAt: s.now(),
	})
	return nil
}

// AddFavorite marks an existing recipe as a favorite of userID.
func (s *Store) AddFavorite(recipeID, userID int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.recipes[recipeID]; !ok {
		return store.ErrNotFound
	}
	s.nextRelID++
	s.favorites[recipeID] = append(s.favorites[recipeID], types.Favorite{
		ID: s.nextRelID, RecipeID: recipeID, UserID: userID, CreatedAt: s.now(),
	})
	return nil
}

// UserRepository implements the user persistence operations.
type UserRepository struct {
	s *Store
}

func (r *UserRepository) GetByID(_ context.Context, id int) (types.User, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	user, ok := r.s.users[id]
	if !ok {
		return types.User{}, store.ErrNotFound
	}
	return user, nil
}

func (r *UserRepository) GetByEmail(_ context.Context, email string) (types.User, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	for _, user := range r.s.sortedUsers() {
		if user.Email == email {
			return user, nil
		}
	}
	return types.User{}, store.ErrNotFound
}

func (r *UserRepository) FindByEmailOrUsername(_ context.Context, email, username string) (types.User, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	for _, user := range r.s.sortedUsers() {
		if user.Email == email || user.Username == username {
			return user, nil
		}
	}
	return types.User{}, store.ErrNotFound
}

func (r *UserRepository) Create(_ context.Context, user types.User) (types.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	for _, existing := range r.s.users {
		if existing.Email == user.Email {
			return types.User{}, &store.ConstraintError{Constraint: "users_email_key", Field: "email", Message: "must be unique", Err: store.ErrDuplicate}
		}
		if existing.Username == user.Username {
			return types.User{}, &store.ConstraintError{Constraint: "users_username_key", Field: "username", Message: "must be unique", Err: store.ErrDuplicate}
		}
	}

	r.s.nextUserID++
	now := r.s.now()
	user.ID = r.s.nextUserID
	user.CreatedAt = now
	user.UpdatedAt = now
	r.s.users[user.ID] = user
	return user, nil
}

// RecipeRepository implements the recipe persistence operations.
type RecipeRepository struct {
	s *Store
}

func (r *RecipeRepository) List(_ context.Context, limit, offset int, order types.SortOrder) ([]types.Recipe, int, error) {
	if offset < 0 {
		offset = 0
	}
	if limit < 1 {
		limit = 2
	}

	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	all := make([]types.Recipe, 0, len(r.s.recipes))
	for _, recipe := range r.s.recipes {
		all = append(all, recipe)
	}
	sort.Slice(all, func(i, j int) bool {
		a, b := all[i], all[j]
		if order == types.SortDesc {
			a, b = b, a
		}
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.Before(b.CreatedAt)
		}
		return a.ID < b.ID
	})

	total := len(all)
	if offset >= total {
		return []types.Recipe{}, total, nil
	}
	end := offset + limit
	if end > total {
		end = total
	}
	return all[offset:end], total, nil
}

func (r *RecipeRepository) Get(_ context.Context, id int, withRelations bool) (types.Recipe, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	recipe, ok := r.s.recipes[id]
	if !ok {
		return types.Recipe{}, store.ErrNotFound
	}
	if withRelations {
		recipe.Reviews = append([]types.Review(nil), r.s.reviews[id]...)
		recipe.Votes = append([]types.Vote(nil), r.s.votes[id]...)
		recipe.Favorites = append([]types.Favorite(nil), r.s.favorites[id]...)
	}
	return recipe, nil
}

func (r *RecipeRepository) FindByNameAndOwner(_ context.Context, name string, ownerID int) (types.Recipe, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	id, ok := r.s.recipesByName[recipeKey{name: name, ownerID: ownerID}]
	if !ok {
		return types.Recipe{}, store.ErrNotFound
	}
	return r.s.recipes[id], nil
}

func (r *RecipeRepository) Create(_ context.Context, recipe types.Recipe) (types.Recipe, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.users[recipe.UserID]; !ok {
		return types.Recipe{}, &store.ConstraintError{Constraint: "recipes_user_id_fkey", Field: "user_id", Message: "references a missing record", Err: store.ErrInvalid}
	}
	key := recipeKey{name: recipe.Name, ownerID: recipe.UserID}
	if _, exists := r.s.recipesByName[key]; exists {
		return types.Recipe{}, duplicateName()
	}

	r.s.nextRecipeID++
	now := r.s.now()
	recipe.ID = r.s.nextRecipeID
	recipe.Views = 0
	recipe.CreatedAt = now
	recipe.UpdatedAt = now
	recipe.Reviews, recipe.Votes, recipe.Favorites = nil, nil, nil

	r.s.recipes[recipe.ID] = recipe
	r.s.recipesByName[key] = recipe.ID
	return recipe, nil
}

func (r *RecipeRepository) Update(_ context.Context, id int, patch types.RecipePatch) (types.Recipe, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	recipe, ok := r.s.recipes[id]
	if !ok {
		return types.Recipe{}, store.ErrNotFound
	}

	oldKey := recipeKey{name: recipe.Name, ownerID: recipe.UserID}
	patch.Apply(&recipe)
	newKey := recipeKey{name: recipe.Name, ownerID: recipe.UserID}
	if newKey != oldKey {
		if _, exists := r.s.recipesByName[newKey]; exists {
			return types.Recipe{}, duplicateName()
		}
		delete(r.s.recipesByName, oldKey)
		r.s.recipesByName[newKey] = id
	}

	recipe.UpdatedAt = r.s.now()
	r.s.recipes[id] = recipe
	return recipe, nil
}

func (r *RecipeRepository) IncrementViews(_ context.Context, id int) (int, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	recipe, ok := r.s.recipes[id]
	if !ok {
		return 0, store.ErrNotFound
	}
	recipe.Views++
	r.s.recipes[id] = recipe
	return recipe.Views, nil
}

func (r *RecipeRepository) Delete(_ context.Context, id int) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	recipe, ok := r.s.recipes[id]
	if !ok {
		return store.ErrNotFound
	}
	delete(r.s.recipes, id)
	delete(r.s.recipesByName, recipeKey{name: recipe.Name, ownerID: recipe.UserID})
	delete(r.s.reviews, id)
	delete(r.s.votes, id)
	delete(r.s.favorites, id)
	return nil
}

func (s *Store) sortedUsers() []types.User {
	users := make([]types.User, 0, len(s.users))
	for _, user := range s.users {
		users = append(users, user)
	}
	sort.Slice(users, func(i, j int) bool { return users[i].ID < users[j].ID })
	return users
}

func duplicateName() error {
	return &store.ConstraintError{Constraint: "recipes_name_user_id_key", Field: "name", Message: "must be unique", Err: store.ErrDuplicate}
}
