package validation

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type signUp struct {
	Name     string  `json:"name" binding:"required,fullname"`
	Email    string  `json:"email" binding:"required,email,max=255"`
	Password string  `json:"password" binding:"required,pwd"`
	Role     *string `json:"role" binding:"omitempty,role"`
}

func TestStruct_Valid(t *testing.T) {
	require.NoError(t, Struct(signUp{Name: "Alice Smith", Email: "alice@example.com", Password: "secret1"}))
}

func TestToDetails_FieldMessages(t *testing.T) {
	role := "root"
	err := Struct(signUp{Name: "Al", Email: "nope", Password: "123", Role: &role})
	require.Error(t, err)

	d := ToDetails(err)
	assert.Equal(t, "must be 6 to 255 characters long", d["name"])
	assert.Equal(t, "must be a valid email address", d["email"])
	assert.Equal(t, "must be 6 to 72 characters long", d["password"])
	assert.Equal(t, "must be one of: user, admin", d["role"])
}

func TestPasswordByteLimit(t *testing.T) {
	// 25 three-byte runes pass a rune count of 72 but not the byte limit.
	long := strings.Repeat("€", 25)
	err := Struct(signUp{Name: "Alice Smith", Email: "a@b.co", Password: long})
	require.Error(t, err)
	assert.Contains(t, ToDetails(err), "password")

	require.NoError(t, Struct(signUp{Name: "Alice Smith", Email: "a@b.co", Password: strings.Repeat("a", 72)}))
}

func TestToDetails_Required(t *testing.T) {
	d := ToDetails(Struct(signUp{}))
	assert.Equal(t, "is required", d["name"])
	assert.Equal(t, "is required", d["email"])
	assert.Equal(t, "is required", d["password"])
	assert.NotContains(t, d, "role")
}

func TestToDetails_BadJSON(t *testing.T) {
	var v signUp
	err := json.Unmarshal([]byte(`{"name":`), &v)
	assert.Equal(t, map[string]string{"payload": "invalid json"}, ToDetails(err))

	err = json.Unmarshal([]byte(`{"name":5}`), &v)
	assert.Equal(t, map[string]string{"payload": "invalid json"}, ToDetails(err))

	assert.Nil(t, ToDetails(nil))
}
