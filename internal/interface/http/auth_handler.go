package handlers

import (
	"expvar"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/oksasatya/go-user-management/internal/application"
	"github.com/oksasatya/go-user-management/internal/domain/entity"
	"github.com/oksasatya/go-user-management/pkg/helpers"
	"github.com/oksasatya/go-user-management/pkg/response"
)

var (
	signUps        = expvar.NewInt("auth_sign_ups")
	signIns        = expvar.NewInt("auth_sign_ins")
	signInFailures = expvar.NewInt("auth_sign_in_failures")
)

type AuthHandler struct {
	Svc     *application.Service
	Cookies *helpers.Manager
	Logger  *logrus.Logger
}

func NewAuthHandler(svc *application.Service, cookies *helpers.Manager, logger *logrus.Logger) *AuthHandler {
	if logger == nil {
		logger = helpers.NewDiscardLogger()
	}
	return &AuthHandler{Svc: svc, Cookies: cookies, Logger: logger}
}

// SignUp POST /api/auth/sign-up
func (h *AuthHandler) SignUp(c *gin.Context) {
	var req signUpRequest
	if err := bindJSON(c, &req); err != nil {
		writeValidation(c, err)
		return
	}
	in := application.RegisterInput{Name: req.Name, Email: req.Email, Password: req.Password}
	if req.Role != nil {
		in.Role = entity.Role(*req.Role)
	}

	res, err := h.Svc.Register(c.Request.Context(), in)
	if err != nil {
		writeError(c, h.Logger, err)
		return
	}
	signUps.Add(1)
	h.Cookies.SetToken(c, res.Token, res.ExpiresAt)
	response.Send(c, response.Success(c, http.StatusCreated, res.User, "User registered", gin.H{"expires_at": res.ExpiresAt}))
}

// SignIn POST /api/auth/sign-in
func (h *AuthHandler) SignIn(c *gin.Context) {
	var req signInRequest
	if err := bindJSON(c, &req); err != nil {
		writeValidation(c, err)
		return
	}

	res, err := h.Svc.SignIn(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		signInFailures.Add(1)
		writeError(c, h.Logger, err)
		return
	}
	signIns.Add(1)
	h.Cookies.SetToken(c, res.Token, res.ExpiresAt)
	response.Send(c, response.Success(c, http.StatusOK, res.User, "User signed in successfully", gin.H{"expires_at": res.ExpiresAt}))
}

// SignOut POST /api/auth/sign-out. Only the cookie is cleared; the token
// itself stays valid until it expires.
func (h *AuthHandler) SignOut(c *gin.Context) {
	h.Cookies.Clear(c)
	response.Send(c, response.Success[any](c, http.StatusOK, nil, "User signed out successfully", nil))
}
