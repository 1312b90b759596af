package routes

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/OFFIS-RIT/graphvis/internal/server/middleware"
	"github.com/OFFIS-RIT/graphvis/pkg/apperr"
	"github.com/OFFIS-RIT/graphvis/pkg/common"
	pgdb "github.com/OFFIS-RIT/graphvis/pkg/db/pgx"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/labstack/echo/v4"
	"golang.org/x/crypto/bcrypt"
)

// user is the public representation of a users row. The password hash is
// never sent.
type user struct {
	ID        string    `json:"id"`
	Firstname string    `json:"firstname"`
	Lastname  string    `json:"lastname"`
	Email     string    `json:"email"`
	Role      string    `json:"role"`
	Blocked   bool      `json:"blocked"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func toUser(u pgdb.User) user {
	return user{
		ID:        uuid.UUID(u.ID.Bytes).String(),
		Firstname: u.Firstname,
		Lastname:  u.Lastname,
		Email:     u.Email,
		Role:      u.Role,
		Blocked:   u.Blocked,
		CreatedAt: u.CreatedAt.Time,
		UpdatedAt: u.UpdatedAt.Time,
	}
}

func parseUserID(raw string) (pgtype.UUID, error) {
	id, err := uuid.Parse(strings.TrimSpace(raw))
	if err != nil {
		return pgtype.UUID{}, apperr.BadInput("invalid user id %q", raw)
	}
	return pgtype.UUID{Bytes: id, Valid: true}, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func hashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

func optionalText(s *string) pgtype.Text {
	if s == nil {
		return pgtype.Text{}
	}
	return pgtype.Text{String: strings.TrimSpace(*s), Valid: true}
}

// userError maps query errors of single-user statements.
func userError(err error, id string) error {
	switch {
	case errors.Is(err, pgx.ErrNoRows):
		return apperr.NotFound("user %s not found", id)
	case isUniqueViolation(err):
		return apperr.Conflict("email already exists")
	default:
		return apperr.WrapStore(err, "user %s", id)
	}
}

func CreateUserHandler(c echo.Context) error {
	type createUserBody struct {
		Firstname       string `json:"firstname" validate:"required"`
		Lastname        string `json:"lastname" validate:"required"`
		Email           string `json:"email" validate:"required,email"`
		Role            string `json:"role" validate:"required,oneof=user admin"`
		Password        string `json:"password" validate:"required,strongpassword"`
		ConfirmPassword string `json:"confirmPassword" validate:"required"`
	}

	data := new(createUserBody)
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
		Role:      data.Role,
	}, data.Password)
	if err != nil {
		return errorResponse(c, err)
	}

	return c.JSON(http.StatusCreated, toUser(created))
}

func createUser(c echo.Context, app *middleware.App, params pgdb.CreateUserParams, password string) (pgdb.User, error) {
	hash, err := hashPassword(password)
	if err != nil {
		return pgdb.User{}, apperr.WrapStore(err, "hash password")
	}
	params.Password = hash

	created, err := pgdb.New(app.DB).CreateUser(c.Request().Context(), params)
	if isUniqueViolation(err) {
		return pgdb.User{}, apperr.Conflict("email already exists")
	}
	if err != nil {
		return pgdb.User{}, apperr.WrapStore(err, "create user")
	}
	return created, nil
}

func GetCurrentUserHandler(c echo.Context) error {
	cc := c.(*middleware.AppContext)
	id, err := parseUserID(cc.User.UserID)
	if err != nil {
		return errorResponse(c, err)
	}

	u, err := pgdb.New(cc.App.DB).GetUserByID(c.Request().Context(), id)
	if err != nil {
		return errorResponse(c, userError(err, cc.User.UserID))
	}
	return c.JSON(http.StatusOK, toUser(u))
}

func GetUserHandler(c echo.Context) error {
	id, err := parseUserID(c.Param("id"))
	if err != nil {
		return errorResponse(c, err)
	}

	app := c.(*middleware.AppContext).App
	u, err := pgdb.New(app.DB).GetUserByID(c.Request().Context(), id)
	if err != nil {
		return errorResponse(c, userError(err, c.Param("id")))
	}
	return c.JSON(http.StatusOK, toUser(u))
}

func GetUsersHandler(c echo.Context) error {
	app := c.(*middleware.AppContext).App
	ctx := c.Request().Context()
	req := pageRequest(c)
	q := pgdb.New(app.DB)

	count, err := q.CountUsers(ctx)
	if err != nil {
		return errorResponse(c, err)
	}
	rows, err := q.ListUsers(ctx, pgdb.ListUsersParams{
		Limit:  int32(req.Size),
		Offset: int32(req.Offset()),
	})
	if err != nil {
		return errorResponse(c, err)
	}

	users := make([]user, 0, len(rows))
	for _, r := range rows {
		users = append(users, toUser(r))
	}
	return c.JSON(http.StatusOK, common.NewPage(users, req, int(count)))
}

type updateUserBody struct {
	Firstname *string `json:"firstname" validate:"omitempty,min=1"`
	Lastname  *string `json:"lastname" validate:"omitempty,min=1"`
	Email     *string `json:"email" validate:"omitempty,email"`
	Role      *string `json:"role" validate:"omitempty,oneof=user admin"`
}

// UpdateCurrentUserHandler updates the caller's own name and email. The role
// cannot be changed this way.
func UpdateCurrentUserHandler(c echo.Context) error {
	cc := c.(*middleware.AppContext)
	return updateUser(c, cc.User.UserID, false)
}

func UpdateUserHandler(c echo.Context) error {
	return updateUser(c, c.Param("id"), true)
}

func updateUser(c echo.Context, rawID string, allowRole bool) error {
	id, err := parseUserID(rawID)
	if err != nil {
		return errorResponse(c, err)
	}

	data := new(updateUserBody)
	if err := c.Bind(data); err != nil {
		return c.JSON(http.StatusBadRequest, messageResponse{Message: "Invalid request body"})
	}
	if err := c.Validate(data); err != nil {
		return c.JSON(http.StatusBadRequest, messageResponse{Message: "Invalid request body"})
	}
	if !allowRole {
		data.Role = nil
	}
	if data.Email != nil {
		email := normalizeEmail(*data.Email)
		data.Email = &email
	}
	if data.Firstname == nil && data.Lastname == nil && data.Email == nil && data.Role == nil {
		return c.JSON(http.StatusBadRequest, messageResponse{Message: "Nothing to update"})
	}

	app := c.(*middleware.AppContext).App
	u, err := pgdb.New(app.DB).UpdateUser(c.Request().Context(), pgdb.UpdateUserParams{
		ID:        id,
		Firstname: optionalText(data.Firstname),
		Lastname:  optionalText(data.Lastname),
		Email:     optionalText(data.Email),
		Role:      optionalText(data.Role),
	})
	if err != nil {
		return errorResponse(c, userError(err, rawID))
	}
	return c.JSON(http.StatusOK, toUser(u))
}

func UpdatePasswordHandler(c echo.Context) error {
	type updatePasswordBody struct {
		OldPassword     string `json:"oldPassword" validate:"required"`
		Password        string `json:"password" validate:"required,strongpassword"`
		ConfirmPassword string `json:"confirmPassword" validate:"required"`
	}

	cc := c.(*middleware.AppContext)
	id, err := parseUserID(cc.User.UserID)
	if err != nil {
		return errorResponse(c, err)
	}

	data := new(updatePasswordBody)
	if err := c.Bind(data); err != nil {
		return c.JSON(http.StatusBadRequest, messageResponse{Message: "Invalid request body"})
	}
	if err := c.Validate(data); err != nil {
		return c.JSON(http.StatusBadRequest, messageResponse{Message: "Invalid request body"})
	}

	ctx := c.Request().Context()
	q := pgdb.New(cc.App.DB)
	u, err := q.GetUserByID(ctx, id)
	if err != nil {
		return errorResponse(c, userError(err, cc.User.UserID))
	}
	if bcrypt.CompareHashAndPassword([]byte(u.Password), []byte(data.OldPassword)) != nil {
		return c.JSON(http.StatusBadRequest, messageResponse{Message: "Incorrect old password"})
	}
	if data.Password != data.ConfirmPassword {
		return c.JSON(http.StatusBadRequest, messageResponse{Message: "Passwords do not match"})
	}

	hash, err := hashPassword(data.Password)
	if err != nil {
		return errorResponse(c, err)
	}
	if _, err := q.UpdateUserPassword(ctx, pgdb.UpdateUserPasswordParams{ID: id, Password: hash}); err != nil {
		return errorResponse(c, err)
	}

	return c.JSON(http.StatusOK, messageResponse{Message: "Password updated"})
}

func BlockUserHandler(c echo.Context) error {
	type blockUserBody struct {
		Blocked *bool `json:"blocked" validate:"required"`
	}

	id, err := parseUserID(c.Param("id"))
	if err != nil {
		return errorResponse(c, err)
	}

	data := new(blockUserBody)
	if err := c.Bind(data); err != nil {
		return c.JSON(http.StatusBadRequest, messageResponse{Message: "Invalid request body"})
	}
	if err := c.Validate(data); err != nil {
		return c.JSON(http.StatusBadRequest, messageResponse{Message: "Invalid request body"})
	}

	app := c.(*middleware.AppContext).App
	u, err := pgdb.New(app.DB).SetUserBlocked(c.Request().Context(), pgdb.SetUserBlockedParams{
		ID:      id,
		Blocked: *data.Blocked,
	})
	if err != nil {
		return errorResponse(c, userError(err, c.Param("id")))
	}
	return c.JSON(http.StatusOK, toUser(u))
}

// DeleteUsersHandler deletes users by id. If one of several ids does not
// exist nothing is deleted.
func DeleteUsersHandler(c echo.Context) error {
	type deleteUsersBody struct {
		IDs []string `json:"ids" validate:"required,min=1"`
	}

	data := new(deleteUsersBody)
	if err := c.Bind(data); err != nil {
		return c.JSON(http.StatusBadRequest, messageResponse{Message: "Invalid request body"})
	}
	if err := c.Validate(data); err != nil {
		return c.JSON(http.StatusBadRequest, messageResponse{Message: "Invalid request body"})
	}

	seen := make(map[pgtype.UUID]struct{}, len(data.IDs))
	ids := make([]pgtype.UUID, 0, len(data.IDs))
	for _, raw := range data.IDs {
		id, err := parseUserID(raw)
		if err != nil {
			return errorResponse(c, err)
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		ids = append(ids, id)
	}

	app := c.(*middleware.AppContext).App
	ctx := c.Request().Context()
	tx, err := app.DB.Begin(ctx)
	if err != nil {
		return errorResponse(c, err)
	}
	defer tx.Rollback(ctx)

	affected, err := pgdb.New(app.DB).WithTx(tx).DeleteUsers(ctx, ids)
	if err != nil {
		return errorResponse(c, err)
	}
	if int(affected) != len(ids) {
		if len(ids) == 1 {
			return errorResponse(c, apperr.NotFound("user %s not found", data.IDs[0]))
		}
		return errorResponse(c, apperr.Conflict("only %d of %d users exist, nothing deleted", affected, len(ids)))
	}

	if err := tx.Commit(ctx); err != nil {
		return errorResponse(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}
