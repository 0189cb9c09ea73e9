package user

import (
	"errors"
	"net/http"

	"github.com/gofiber/fiber/v2"
)

// Handler exposes user HTTP endpoints.
type Handler struct {
	service *Service
}

// NewHandler constructs a user HTTP handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

type signupRequest struct {
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Email     string `json:"email"`
	Password  string `json:"password"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type authResponse struct {
	User  Profile `json:"user"`
	Token string  `json:"token"`
}

// Signup registers a new user.
func (h *Handler) Signup(c *fiber.Ctx) error {
	var req signupRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	res, err := h.service.Signup(c.UserContext(), SignupInput{
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Email:     req.Email,
		Password:  req.Password,
	})
	if err != nil {
		if errors.Is(err, ErrEmailTaken) {
			return fiber.NewError(http.StatusConflict, err.Error())
		}
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	return c.Status(http.StatusCreated).JSON(authResponse{User: res.User.PublicProfile(), Token: res.Token})
}

// Login verifies credentials and returns an access token.
func (h *Handler) Login(c *fiber.Ctx) error {
	var req loginRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	res, err := h.service.Login(c.UserContext(), req.Email, req.Password)
	if err != nil {
		if errors.Is(err, ErrInvalidCredentials) {
			return fiber.NewError(http.StatusUnauthorized, err.Error())
		}
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	return c.Status(http.StatusOK).JSON(authResponse{User: res.User.PublicProfile(), Token: res.Token})
}

// CurrentUser returns the authenticated user's profile.
func (h *Handler) CurrentUser(c *fiber.Ctx) error {
	uid, _ := c.Locals("user_id").(int64)
	u, err := h.service.GetByID(c.UserContext(), uid)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return fiber.NewError(http.StatusNotFound, err.Error())
		}
		return fiber.NewError(http.StatusInternalServerError, err.Error())
	}
	return c.Status(http.StatusOK).JSON(fiber.Map{"user": u.PublicProfile()})
}

// Balance returns the authenticated user's current balance.
func (h *Handler) Balance(c *fiber.Ctx) error {
	uid, _ := c.Locals("user_id").(int64)
	u, err := h.service.GetByID(c.UserContext(), uid)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return fiber.NewError(http.StatusNotFound, err.Error())
		}
		return fiber.NewError(http.StatusInternalServerError, err.Error())
	}
	return c.Status(http.StatusOK).JSON(fiber.Map{"balance": u.Balance})
}
