package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/oksasatya/go-user-management/internal/application"
	"github.com/oksasatya/go-user-management/internal/domain/apperror"
	"github.com/oksasatya/go-user-management/internal/interface/middleware"
	"github.com/oksasatya/go-user-management/pkg/helpers"
	"github.com/oksasatya/go-user-management/pkg/response"
)

type UserHandler struct {
	Svc    *application.Service
	Logger *logrus.Logger
}

func NewUserHandler(svc *application.Service, logger *logrus.Logger) *UserHandler {
	if logger == nil {
		logger = helpers.NewDiscardLogger()
	}
	return &UserHandler{Svc: svc, Logger: logger}
}

// List GET /api/users
func (h *UserHandler) List(c *gin.Context) {
	users, err := h.Svc.ListUsers(c.Request.Context())
	if err != nil {
		writeError(c, h.Logger, err)
		return
	}
	response.Send(c, response.Success(c, http.StatusOK, users, "Successfully retrieved users", gin.H{"count": len(users)}))
}

// Get GET /api/users/:id
func (h *UserHandler) Get(c *gin.Context) {
	id, err := pathID(c)
	if err != nil {
		response.Send(c, response.Error[any](c, http.StatusBadRequest, MsgValidationFailed, idDetails()))
		return
	}
	u, err := h.Svc.GetUser(c.Request.Context(), id)
	if err != nil {
		writeError(c, h.Logger, err)
		return
	}
	response.Send(c, response.Success(c, http.StatusOK, u, "Successfully retrieved user", nil))
}

// Update PUT /api/users/:id
func (h *UserHandler) Update(c *gin.Context) {
	actor, ok := middleware.IdentityFrom(c)
	if !ok {
		writeError(c, h.Logger, apperror.Unauthorized(middleware.MsgAuthRequired))
		return
	}
	id, err := pathID(c)
	if err != nil {
		response.Send(c, response.Error[any](c, http.StatusBadRequest, MsgValidationFailed, idDetails()))
		return
	}
	var req updateUserRequest
	if err := bindJSON(c, &req); err != nil {
		writeValidation(c, err)
		return
	}

	u, err := h.Svc.UpdateUser(c.Request.Context(), actor, id, req.changes())
	if err != nil {
		writeError(c, h.Logger, err)
		return
	}
	response.Send(c, response.Success(c, http.StatusOK, u, "User updated successfully", nil))
}

// Delete DELETE /api/users/:id
func (h *UserHandler) Delete(c *gin.Context) {
	actor, ok := middleware.IdentityFrom(c)
	if !ok {
		writeError(c, h.Logger, apperror.Unauthorized(middleware.MsgAuthRequired))
		return
	}
	id, err := pathID(c)
	if err != nil {
		response.Send(c, response.Error[any](c, http.StatusBadRequest, MsgValidationFailed, idDetails()))
		return
	}

	if err := h.Svc.DeleteUser(c.Request.Context(), actor, id); err != nil {
		writeError(c, h.Logger, err)
		return
	}
	response.Send(c, response.Success[any](c, http.StatusOK, nil, "User deleted successfully", nil))
}

// Search GET /api/search/users?q=&size=
func (h *UserHandler) Search(c *gin.Context) {
	size, _ := strconv.Atoi(c.DefaultQuery("size", "10"))
	users, err := h.Svc.SearchUsers(c.Request.Context(), c.Query("q"), size)
	if err != nil {
		h.Logger.WithError(err).Warn("user search failed")
		response.Send(c, response.Error[any](c, http.StatusBadGateway, "Search unavailable", nil))
		return
	}
	response.Send(c, response.Success(c, http.StatusOK, users, "ok", gin.H{"count": len(users)}))
}
