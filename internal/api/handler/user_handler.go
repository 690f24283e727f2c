package handler

import (
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/pinsync/pinsync-server/internal/core/ports"
)

const maxPortfolioFiles = 10

// UserHandler handles HTTP requests for accounts: registration, login,
// lookup, the liked-images update, and the admin-gated approve/delete
// operations.
type UserHandler struct {
	identity ports.IdentityService
	approval ports.ApprovalService
}

func NewUserHandler(identity ports.IdentityService, approval ports.ApprovalService) *UserHandler {
	return &UserHandler{identity: identity, approval: approval}
}

// Register creates a new account from a multipart form. Artists may attach
// up to ten files under the "portfolio" field.
//
// @Summary      Register a new user
// @Tags         users
// @Accept       mpfd
// @Produce      json
// @Success      201  {object}  userResponse
// @Failure      400  {object}  errorResponse
// @Failure      500  {object}  errorResponse
// @Router       /users [post]
func (h *UserHandler) Register(c echo.Context) error {
	username := c.FormValue("username")
	password := c.FormValue("password")
	if username == "" || password == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "Username and password are required")
	}

	input := ports.RegisterInput{
		Username: username,
		Email:    c.FormValue("email"),
		Password: password,
		Role:     c.FormValue("role"),
	}

	// The portfolio field is optional; non-multipart bodies simply carry no files.
	if form, err := c.MultipartForm(); err == nil && form != nil {
		files := form.File["portfolio"]
		if len(files) > maxPortfolioFiles {
			return echo.NewHTTPError(http.StatusBadRequest,
				fmt.Sprintf("A maximum of %d portfolio files is allowed", maxPortfolioFiles))
		}
		for _, fh := range files {
			f, err := fh.Open()
			if err != nil {
				return fmt.Errorf("open portfolio file: %w", err)
			}
			defer f.Close()
			input.Portfolio = append(input.Portfolio, ports.PortfolioFile{Filename: fh.Filename, Content: f})
		}
	}

	user, err := h.identity.Register(c.Request().Context(), input)
	if err != nil {
		return err
	}

	message := "Registration successful"
	if !user.Approved {
		message = "Artist registration successful, awaiting admin approval"
	}
	return c.JSON(http.StatusCreated, userResponse{Message: message, User: user})
}

// Login authenticates a user and returns the account with a signed token.
//
// @Summary      Login
// @Tags         users
// @Accept       json
// @Produce      json
// @Param        body  body      loginRequest  true  "Login credentials"
// @Success      200   {object}  loginResponse
// @Failure      400   {object}  errorResponse
// @Failure      401   {object}  errorResponse
// @Router       /users/login [post]
func (h *UserHandler) Login(c echo.Context) error {
	var req loginRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}
	if req.Username == "" || req.Password == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "Username and password are required")
	}

	token, user, err := h.identity.Login(c.Request().Context(), req.Username, req.Password)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, loginResponse{Message: "Login successful", Token: token, User: user})
}

// List returns all users.
//
// @Summary      List all users
// @Tags         users
// @Produce      json
// @Success      200  {array}  domain.User
// @Failure      500  {object}  errorResponse
// @Router       /users [get]
func (h *UserHandler) List(c echo.Context) error {
	users, err := h.identity.ListUsers(c.Request().Context())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, users)
}

// GetByUsername fetches a single user; the credential never appears in the payload.
//
// @Summary      Get a user by username
// @Tags         users
// @Produce      json
// @Param        username  path      string  true  "Username"
// @Success      200       {object}  domain.User
// @Failure      404       {object}  errorResponse
// @Router       /users/username/{username} [get]
func (h *UserHandler) GetByUsername(c echo.Context) error {
	user, err := h.identity.GetByUsername(c.Request().Context(), c.Param("username"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, user)
}

// Me returns the account identified by the bearer token.
//
// @Summary      Get the authenticated user
// @Tags         users
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  domain.User
// @Failure      401  {object}  errorResponse
// @Router       /users/me [get]
func (h *UserHandler) Me(c echo.Context) error {
	username, err := ctxUsername(c)
	if err != nil {
		return err
	}

	user, err := h.identity.GetByUsername(c.Request().Context(), username)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, user)
}

// UpdateLikedImages replaces the user's liked-image list. The authoritative
// like counters live on the uploads; this list is the user-side mirror.
//
// @Summary      Update a user's liked images
// @Tags         users
// @Accept       json
// @Produce      json
// @Param        id    path      string              true  "User id"
// @Param        body  body      likedImagesRequest  true  "Liked image ids"
// @Success      200   {object}  userResponse
// @Failure      404   {object}  errorResponse
// @Router       /users/{id} [put]
func (h *UserHandler) UpdateLikedImages(c echo.Context) error {
	var req likedImagesRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}

	user, err := h.identity.UpdateLikedImages(c.Request().Context(), c.Param("id"), req.LikedImages)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, userResponse{Message: "User updated", User: user})
}

// Approve applies an admin's approval decision to an artist account.
//
// @Summary      Approve or reject an artist
// @Tags         users
// @Accept       json
// @Produce      json
// @Param        id    path      string           true  "Target user id"
// @Param        body  body      approvalRequest  true  "Decision"
// @Success      200   {object}  userResponse
// @Failure      400   {object}  errorResponse
// @Failure      403   {object}  errorResponse
// @Failure      404   {object}  errorResponse
// @Router       /users/{id}/approve [put]
func (h *UserHandler) Approve(c echo.Context) error {
	var req approvalRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}
	if req.Approved == nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Approved status is required")
	}

	user, err := h.approval.Decide(c.Request().Context(), c.Param("id"), *req.Approved, req.AdminID)
	if err != nil {
		return err
	}

	message := "Artist rejected"
	if *req.Approved {
		message = "Artist approved"
	}
	return c.JSON(http.StatusOK, userResponse{Message: message, User: user})
}

// Delete removes a user account on behalf of an admin.
//
// @Summary      Delete a user
// @Tags         users
// @Accept       json
// @Produce      json
// @Param        id    path      string              true  "Target user id"
// @Param        body  body      adminActionRequest  true  "Acting admin"
// @Success      200   {object}  userResponse
// @Failure      403   {object}  errorResponse
// @Failure      404   {object}  errorResponse
// @Router       /users/{id} [delete]
func (h *UserHandler) Delete(c echo.Context) error {
	var req adminActionRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}

	user, err := h.identity.DeleteUser(c.Request().Context(), c.Param("id"), req.AdminID)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, userResponse{
		Message: fmt.Sprintf("User %s deleted successfully", user.Username),
		User:    user,
	})
}
