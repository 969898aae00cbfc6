package validation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recipeRules struct {
	Name        string `json:"name" validate:"required,notblank,max=10"`
	Description string `json:"description" validate:"required"`
	ImageURL    string `json:"image_url" validate:"optional_url"`
}

type patchRules struct {
	Name     *string `json:"name" validate:"omitnil,notblank"`
	ImageURL *string `json:"image_url" validate:"omitnil,optional_url"`
}

type accountRules struct {
	Username string `json:"username" validate:"required,alphanum,min=3"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=6"`
	Secret   string `json:"-" validate:"required"`
}

type pageRules struct {
	Limit  *int `json:"limit" validate:"omitnil,min=1"`
	Offset *int `json:"offset" validate:"omitnil,min=0"`
}

func strPtr(s string) *string { return &s }
func intPtr(i int) *int       { return &i }

func fieldErrors(t *testing.T, err error) FieldErrors {
	t.Helper()
	require.Error(t, err)
	fe, ok := err.(FieldErrors)
	require.True(t, ok, "expected FieldErrors, got %T", err)
	return fe
}

func TestCheck_ReportsEveryFailingField(t *testing.T) {
	fe := fieldErrors(t, New().Check(recipeRules{ImageURL: "not a url"}))

	assert.Len(t, fe, 3)
	assert.Equal(t, []string{"The name field is required."}, fe["name"])
	assert.Equal(t, []string{"The description field is required."}, fe["description"])
	assert.Equal(t, []string{"The image_url must be a valid URL."}, fe["image_url"])
}

func TestCheck_Valid(t *testing.T) {
	assert.NoError(t, New().Check(recipeRules{Name: "Suya", Description: "grill", ImageURL: "https://img.example.com/a.png"}))
	assert.NoError(t, New().Check(&recipeRules{Name: "Suya", Description: "grill"}))
}

func TestCheck_MaxAndBlank(t *testing.T) {
	fe := fieldErrors(t, New().Check(recipeRules{Name: "   ", Description: "x"}))
	assert.Equal(t, []string{"The name field may not be blank."}, fe["name"])

	fe = fieldErrors(t, New().Check(recipeRules{Name: "much too long a name", Description: "x"}))
	assert.Equal(t, []string{"The name may not be greater than 10 characters."}, fe["name"])
}

func TestCheck_OptionalURL(t *testing.T) {
	fe := fieldErrors(t, New().Check(recipeRules{Name: "a", Description: "b", ImageURL: "ftp://files.example.com/a.png"}))
	assert.Contains(t, fe, "image_url")
}

func TestCheck_PartialRules(t *testing.T) {
	v := New()

	assert.NoError(t, v.Check(patchRules{}))
	assert.NoError(t, v.Check(patchRules{Name: strPtr("Egusi")}))
	assert.NoError(t, v.Check(patchRules{ImageURL: strPtr("")}))

	fe := fieldErrors(t, v.Check(patchRules{Name: strPtr(""), ImageURL: strPtr("nope")}))
	assert.Contains(t, fe, "name")
	assert.Contains(t, fe, "image_url")
}

func TestCheck_AccountMessages(t *testing.T) {
	fe := fieldErrors(t, New().Check(accountRules{Username: "a!", Email: "nope", Password: "123", Secret: "s"}))

	assert.Equal(t, []string{"The username may only contain letters and numbers."}, fe["username"])
	assert.Equal(t, []string{"The email format is invalid."}, fe["email"])
	assert.Equal(t, []string{"The password must be at least 6 characters."}, fe["password"])
}

func TestCheck_NumericBounds(t *testing.T) {
	v := New()
	assert.NoError(t, v.Check(pageRules{}))
	assert.NoError(t, v.Check(pageRules{Limit: intPtr(5), Offset: intPtr(0)}))

	fe := fieldErrors(t, v.Check(pageRules{Limit: intPtr(0), Offset: intPtr(-3)}))
	assert.Equal(t, []string{"The limit must be at least 1."}, fe["limit"])
	assert.Equal(t, []string{"The offset must be at least 0."}, fe["offset"])
}

func TestFieldErrors_Error(t *testing.T) {
	fe := FieldErrors{}
	fe.Add("b", "second")
	fe.Add("a", "first")
	assert.Equal(t, "first; second", fe.Error())
}
