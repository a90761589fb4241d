package validation

import (
	"testing"

	"devflow/internal/utils"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type questionInput struct {
	Title string   `json:"title" validate:"required,min=5,max=100"`
	Tags  []string `json:"tags" validate:"required,min=1,max=3,dive,required,notblank,max=30"`
}

type signUpInput struct {
	Username string `json:"username" validate:"required,min=3,max=30,username"`
	Password string `json:"password" validate:"required,min=6,max=100,password"`
}

func TestValidateStructPassesValidInput(t *testing.T) {
	assert.NoError(t, ValidateStruct(&questionInput{Title: "How do goroutines work?", Tags: []string{"go"}}))
}

func TestValidateStructReportsFieldsByJSONName(t *testing.T) {
	err := ValidateStruct(&questionInput{Title: "", Tags: []string{"a", "b", "c", "d"}})
	require.Error(t, err)

	appErr, ok := utils.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, utils.ErrInvalidInput, appErr.Code)
	assert.Contains(t, appErr.Fields, "title")
	assert.Contains(t, appErr.Fields, "tags")
	assert.Equal(t, []string{"must contain at most 3 items"}, appErr.Fields["tags"])
}

func TestBlankTagsRejected(t *testing.T) {
	err := ValidateStruct(&questionInput{Title: "Blank tags only", Tags: []string{"go", "   "}})
	appErr, ok := utils.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, []string{"must not be blank"}, appErr.Fields["tags[1]"])
	assert.NotContains(t, appErr.Fields, "tags[0]")
}

func TestCustomUsernameAndPasswordRules(t *testing.T) {
	err := ValidateStruct(&signUpInput{Username: "bad name!", Password: "weakpass"})
	appErr, ok := utils.AsAppError(err)
	require.True(t, ok)
	assert.Contains(t, appErr.Fields, "username")
	assert.Contains(t, appErr.Fields, "password")

	assert.NoError(t, ValidateStruct(&signUpInput{Username: "good_name", Password: "Str0ng!pw"}))
}

func TestValidateStructRejectsNonStruct(t *testing.T) {
	assert.Error(t, ValidateStruct("nope"))
}
