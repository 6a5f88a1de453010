package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/oksasatya/go-user-management/internal/domain/entity"
	"github.com/oksasatya/go-user-management/pkg/validation"
)

// maxBodyBytes caps request bodies; account payloads are tiny.
const maxBodyBytes = 1 << 20

var errInvalidID = errors.New("ID must be a valid number")

type normalizer interface {
	normalize()
}

// bindJSON decodes the body into req, trims it, then runs the binding tags.
// An empty body decodes as {} so required-field errors are reported per field.
func bindJSON(c *gin.Context, req normalizer) error {
	dec := json.NewDecoder(io.LimitReader(c.Request.Body, maxBodyBytes))
	if err := dec.Decode(req); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	req.normalize()
	return validation.Struct(req)
}

// pathID parses the :id route parameter as a positive integer.
func pathID(c *gin.Context) (int64, error) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, errInvalidID
	}
	return id, nil
}

func idDetails() map[string]string {
	return map[string]string{"id": errInvalidID.Error()}
}

type signUpRequest struct {
	Name     string  `json:"name" binding:"required,fullname"`
	Email    string  `json:"email" binding:"required,email,max=255"`
	Password string  `json:"password" binding:"required,pwd"`
	Role     *string `json:"role" binding:"omitempty,role"`
}

func (r *signUpRequest) normalize() {
	r.Name = strings.TrimSpace(r.Name)
	r.Email = entity.NormalizeEmail(r.Email)
	if r.Role != nil {
		role := strings.ToLower(strings.TrimSpace(*r.Role))
		r.Role = &role
	}
}

type signInRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

func (r *signInRequest) normalize() {
	r.Email = entity.NormalizeEmail(r.Email)
}

type updateUserRequest struct {
	Name  *string `json:"name" binding:"omitempty,fullname"`
	Email *string `json:"email" binding:"omitempty,email,max=255"`
	Role  *string `json:"role" binding:"omitempty,role"`
}

func (r *updateUserRequest) normalize() {
	if r.Name != nil {
		name := strings.TrimSpace(*r.Name)
		r.Name = &name
	}
	if r.Email != nil {
		email := entity.NormalizeEmail(*r.Email)
		r.Email = &email
	}
	if r.Role != nil {
		role := strings.ToLower(strings.TrimSpace(*r.Role))
		r.Role = &role
	}
}

// changes converts the validated request into the domain mutation.
func (r *updateUserRequest) changes() entity.UserChanges {
	ch := entity.UserChanges{Name: r.Name, Email: r.Email}
	if r.Role != nil {
		role := entity.Role(*r.Role)
		ch.Role = &role
	}
	return ch
}
