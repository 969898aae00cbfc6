package services

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/morerecipes/apiserver/config"
	"github.com/morerecipes/apiserver/internal/store/memstore"
	"github.com/morerecipes/apiserver/internal/validation"
	"github.com/morerecipes/apiserver/types"
	"github.com/stretchr/testify/require"
)

type published struct {
	channel string
	event   RecipeEvent
	attrs   map[string]string
}

type fakePublisher struct {
	mu     sync.Mutex
	events []published
	err    error
}

func (f *fakePublisher) Publish(_ context.Context, channel string, data []byte, attrs map[string]string) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	event, err := DecodeRecipeEvent(data)
	if err != nil {
		return "", err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, published{channel: channel, event: event, attrs: attrs})
	return "msg-1", nil
}

func (f *fakePublisher) types() []EventType {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]EventType, 0, len(f.events))
	for _, p := range f.events {
		out = append(out, p.event.Type)
	}
	return out
}

type recipeFixture struct {
	store     *memstore.Store
	service   *RecipeService
	publisher *fakePublisher
}

func newRecipeFixture(t *testing.T) *recipeFixture {
	t.Helper()
	st := memstore.New()
	pub := &fakePublisher{}
	svc := NewRecipeService(
		st.Recipes(),
		st.Users(),
		validation.New(),
		config.PaginationConfig{DefaultLimit: 2, DefaultOffset: 0, MaxLimit: 100},
		NewEventPublisher(pub, "recipe.events", nil),
		nil,
	)
	return &recipeFixture{store: st, service: svc, publisher: pub}
}

func (f *recipeFixture) user(t *testing.T, username string) types.User {
	t.Helper()
	user, err := f.store.Users().Create(context.Background(), types.User{
		Fullname: username,
		Username: username,
		Email:    username + "@example.com",
	})
	require.NoError(t, err)
	return user
}

func (f *recipeFixture) recipe(t *testing.T, ownerID int, name string) types.Recipe {
	t.Helper()
	recipe, err := f.service.Create(context.Background(), ownerID, CreateRecipeRequest{
		Name:        name,
		Description: "a " + name,
		Ingredient:  "salt",
	})
	require.NoError(t, err)
	return recipe
}

func strPtr(s string) *string { return &s }

func intPtr(n int) *int { return &n }

func fieldsOf(t *testing.T, err error) map[string][]string {
	t.Helper()
	var serr *Error
	require.True(t, errors.As(err, &serr), "expected *Error, got %T", err)
	return serr.Fields
}
