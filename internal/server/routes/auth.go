package routes

import (
	"errors"
	"net/http"
	"strings"

	"github.com/OFFIS-RIT/graphvis/internal/server/middleware"
	pgdb "github.com/OFFIS-RIT/graphvis/pkg/db/pgx"

	"github.com/jackc/pgx/v5"
	"github.com/labstack/echo/v4"
	"golang.org/x/crypto/bcrypt"
)

type authResponse struct {
	Token string `json:"token"`
	User  user   `json:"user"`
}

func issueToken(c echo.Context, app *middleware.App, u pgdb.User, status int) error {
	pub := toUser(u)
	token, err := middleware.SignToken(app.JWTSecret, app.JWTExpire, middleware.Claims{
		ID:        pub.ID,
		Firstname: pub.Firstname,
		Lastname:  pub.Lastname,
		Email:     pub.Email,
		Role:      pub.Role,
	})
	if err != nil {
		return errorResponse(c, err)
	}
	return c.JSON(status, authResponse{Token: token, User: pub})
}

// SignUpHandler registers a user with the user role and logs them in.
func SignUpHandler(c echo.Context) error {
	type signUpBody struct {
		Firstname       string `json:"firstname" validate:"required"`
		Lastname        string `json:"lastname" validate:"required"`
		Email           string `json:"email" validate:"required,email"`
		Password        string `json:"password" validate:"required,strongpassword"`
		ConfirmPassword string `json:"confirmPassword" validate:"required"`
	}

	data := new(signUpBody)
	if err := c.Bind(data); err != nil {
		return c.JSON(http.StatusBadRequest, messageResponse{Message: "Invalid request body"})
	}
	if err := c.Validate(data); err != nil {
		return c.JSON(http.StatusBadRequest, messageResponse{Message: "Invalid request body"})
	}
	if data.Password != data.ConfirmPassword {
		return c.JSON(http.StatusBadRequest, messageResponse{Message: "Passwords do not match"})
	}

	app := c.(*middleware.AppContext).App
	created, err := createUser(c, app, pgdb.CreateUserParams{
		Firstname: strings.TrimSpace(data.Firstname),
		Lastname:  strings.TrimSpace(data.Lastname),
		Email:     normalizeEmail(data.Email),
		Role:      middleware.RoleUser,
	}, data.Password)
	if err != nil {
		return errorResponse(c, err)
	}

	return issueToken(c, app, created, http.StatusCreated)
}

func LoginHandler(c echo.Context) error {
	type loginBody struct {
		Email    string `json:"email" validate:"required,email"`
		Password string `json:"password" validate:"required"`
	}

	data := new(loginBody)
	if err := c.Bind(data); err != nil {
		return c.JSON(http.StatusBadRequest, messageResponse{Message: "Invalid request body"})
	}
	if err := c.Validate(data); err != nil {
		return c.JSON(http.StatusBadRequest, messageResponse{Message: "Invalid request body"})
	}

	app := c.(*middleware.AppContext).App
	u, err := pgdb.New(app.DB).GetUserByEmail(c.Request().Context(), normalizeEmail(data.Email))
	if errors.Is(err, pgx.ErrNoRows) {
		return c.JSON(http.StatusUnauthorized, messageResponse{Message: "Invalid email or password"})
	}
	if err != nil {
		return errorResponse(c, err)
	}
	if u.Blocked {
		return c.JSON(http.StatusUnauthorized, messageResponse{Message: "Access denied"})
	}
	if bcrypt.CompareHashAndPassword([]byte(u.Password), []byte(data.Password)) != nil {
		return c.JSON(http.StatusUnauthorized, messageResponse{Message: "Invalid email or password"})
	}

	return issueToken(c, app, u, http.StatusOK)
}
