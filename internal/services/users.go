package services

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"

	"memberhub-backend-go/internal/db"
	"memberhub-backend-go/internal/models"
)

const (
	userColumns = `id, email, password_hash, account_kind, name, role, approval_status, is_banned,
       reset_token, reset_token_expires, avatar_url, bio, organization, last_login_at, created_at, updated_at`

	ResetTokenTTL = time.Hour
)

func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func GetUserByID(ctx context.Context, store *db.Store, id int64) (models.User, error) {
	var user models.User
	err := store.Get(ctx, &user, `SELECT `+userColumns+` FROM users WHERE id = ?`, id)
	if db.IsNotFound(err) {
		return models.User{}, ErrNotFound("User not found")
	}
	return user, err
}

func GetUserByEmail(ctx context.Context, store *db.Store, email string) (models.User, error) {
	var user models.User
	err := store.Get(ctx, &user, `SELECT `+userColumns+` FROM users WHERE email = ?`, NormalizeEmail(email))
	if db.IsNotFound(err) {
		return models.User{}, ErrNotFound("User not found")
	}
	return user, err
}

// RegisterUser creates a password account. A guest account holding the same
// email is upgraded in place so its questions stay attached.
func RegisterUser(ctx context.Context, store *db.Store, tokens TokenService, email, password, name string) (models.User, error) {
	email = NormalizeEmail(email)
	hash, err := tokens.HashPassword(password)
	if err != nil {
		return models.User{}, WrapError(err, "hash password")
	}
	name = strings.TrimSpace(name)
	now := time.Now().UTC()

	existing, err := GetUserByEmail(ctx, store, email)
	switch {
	case err == nil && !existing.IsGuest():
		return models.User{}, ErrConflict("Email already registered")
	case err == nil:
		if name == "" {
			name = existing.Name
		}
		res, err := store.Exec(ctx, `
UPDATE users
SET password_hash = ?, account_kind = ?, name = ?, updated_at = ?
WHERE id = ? AND account_kind = ?`,
			hash, models.AccountRegistered, name, now, existing.ID, models.AccountGuest)
		if err != nil {
			return models.User{}, err
		}
		if res.AffectedRows == 0 {
			return models.User{}, ErrConflict("Email already registered")
		}
		return GetUserByID(ctx, store, existing.ID)
	case !isNotFound(err):
		return models.User{}, err
	}

	res, err := store.Exec(ctx, `
INSERT INTO users (email, password_hash, account_kind, name, role, approval_status, created_at, updated_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		email, hash, models.AccountRegistered, name, models.RoleUser, models.ApprovalPending, now, now)
	if db.IsUniqueViolation(err) {
		return models.User{}, ErrConflict("Email already registered")
	}
	if err != nil {
		return models.User{}, err
	}
	return GetUserByID(ctx, store, *res.InsertID)
}

// AuthenticateUser checks the credential before the ban flag so a wrong
// password never reveals account state.
func AuthenticateUser(ctx context.Context, store *db.Store, tokens TokenService, email, password string) (models.User, error) {
	user, err := GetUserByEmail(ctx, store, email)
	if isNotFound(err) {
		return models.User{}, ErrUnauthorized("Invalid credentials")
	}
	if err != nil {
		return models.User{}, err
	}
	if user.IsGuest() || !tokens.VerifyPassword(password, user.PasswordHash) {
		return models.User{}, ErrUnauthorized("Invalid credentials")
	}
	if user.IsBanned {
		return models.User{}, ErrForbidden("Account is banned")
	}
	if err := SetLastLogin(ctx, store, user.ID); err != nil {
		return models.User{}, err
	}
	return user, nil
}

// FindOrCreateGuest resolves the author of content submitted without a
// session. An existing guest row is reused; a registered account must sign in.
func FindOrCreateGuest(ctx context.Context, store *db.Store, email, name string) (models.User, error) {
	email = NormalizeEmail(email)
	now := time.Now().UTC()
	if _, err := store.Exec(ctx, `
INSERT INTO users (email, password_hash, account_kind, name, role, approval_status, created_at, updated_at)
VALUES (?, NULL, ?, ?, ?, ?, ?, ?)
ON CONFLICT(email) DO NOTHING`,
		email, models.AccountGuest, strings.TrimSpace(name), models.RoleUser, models.ApprovalPending, now, now); err != nil {
		return models.User{}, err
	}
	user, err := GetUserByEmail(ctx, store, email)
	if err != nil {
		return models.User{}, err
	}
	if !user.IsGuest() {
		return models.User{}, ErrUnauthorized("Please sign in to post with this email")
	}
	if user.IsBanned {
		return models.User{}, ErrForbidden("Account is banned")
	}
	return user, nil
}

func SetLastLogin(ctx context.Context, store *db.Store, id int64) error {
	_, err := store.Exec(ctx, `UPDATE users SET last_login_at = ? WHERE id = ?`, time.Now().UTC(), id)
	return err
}

type ProfileUpdate struct {
	Name         *string
	Bio          *string
	Organization *string
	AvatarURL    *string
}

func UpdateProfile(ctx context.Context, store *db.Store, id int64, in ProfileUpdate) (models.User, error) {
	user, err := GetUserByID(ctx, store, id)
	if err != nil {
		return models.User{}, err
	}
	if in.Name != nil {
		user.Name = strings.TrimSpace(*in.Name)
	}
	if in.Bio != nil {
		user.Bio = nullIfBlank(*in.Bio)
	}
	if in.Organization != nil {
		user.Organization = nullIfBlank(*in.Organization)
	}
	if in.AvatarURL != nil {
		user.AvatarURL = nullIfBlank(*in.AvatarURL)
	}
	if _, err := store.Exec(ctx, `
UPDATE users SET name = ?, bio = ?, organization = ?, avatar_url = ?, updated_at = ? WHERE id = ?`,
		user.Name, user.Bio, user.Organization, user.AvatarURL, time.Now().UTC(), id); err != nil {
		return models.User{}, err
	}
	return GetUserByID(ctx, store, id)
}

func ChangePassword(ctx context.Context, store *db.Store, tokens TokenService, id int64, current, next string) error {
	user, err := GetUserByID(ctx, store, id)
	if err != nil {
		return err
	}
	if !tokens.VerifyPassword(current, user.PasswordHash) {
		return ErrBadRequest("Current password is incorrect")
	}
	hash, err := tokens.HashPassword(next)
	if err != nil {
		return WrapError(err, "hash password")
	}
	_, err = store.Exec(ctx, `UPDATE users SET password_hash = ?, updated_at = ? WHERE id = ?`,
		hash, time.Now().UTC(), id)
	return err
}

func SetUserRole(ctx context.Context, store *db.Store, id int64, role models.Role) (models.User, error) {
	if !role.Valid() {
		return models.User{}, ErrBadRequest("Invalid role")
	}
	return updateUserField(ctx, store, id, `role = ?`, role)
}

func SetApprovalStatus(ctx context.Context, store *db.Store, id int64, status models.ApprovalStatus) (models.User, error) {
	if !status.Valid() {
		return models.User{}, ErrBadRequest("Invalid approval status")
	}
	return updateUserField(ctx, store, id, `approval_status = ?`, status)
}

func SetBanned(ctx context.Context, store *db.Store, id int64, banned bool) (models.User, error) {
	return updateUserField(ctx, store, id, `is_banned = ?`, banned)
}

func updateUserField(ctx context.Context, store *db.Store, id int64, assignment string, value any) (models.User, error) {
	res, err := store.Exec(ctx, `UPDATE users SET `+assignment+`, updated_at = ? WHERE id = ?`,
		value, time.Now().UTC(), id)
	if err != nil {
		return models.User{}, err
	}
	if res.AffectedRows == 0 {
		return models.User{}, ErrNotFound("User not found")
	}
	return GetUserByID(ctx, store, id)
}

// DeleteUser removes the row; owned content follows the foreign keys.
func DeleteUser(ctx context.Context, store *db.Store, id int64) error {
	res, err := store.Exec(ctx, `DELETE FROM users WHERE id = ?`, id)
	if err != nil {
		return err
	}
	if res.AffectedRows == 0 {
		return ErrNotFound("User not found")
	}
	return nil
}

type UserFilter struct {
	Search   string
	Role     models.Role
	Page     int
	PageSize int
}

func ListUsers(ctx context.Context, store *db.Store, f UserFilter) ([]models.User, int, error) {
	page, size := clampPage(f.Page, f.PageSize, 20, 100)
	where := []string{"1 = 1"}
	args := []any{}
	if s := strings.TrimSpace(f.Search); s != "" {
		where = append(where, "(email LIKE ? OR name LIKE ?)")
		like := "%" + s + "%"
		args = append(args, like, like)
	}
	if f.Role != "" {
		where = append(where, "role = ?")
		args = append(args, f.Role)
	}
	clause := strings.Join(where, " AND ")

	var total int
	if err := store.Get(ctx, &total, `SELECT COUNT(*) FROM users WHERE `+clause, args...); err != nil {
		return nil, 0, err
	}
	users := []models.User{}
	err := store.Select(ctx, &users, `SELECT `+userColumns+` FROM users WHERE `+clause+`
ORDER BY created_at DESC, id DESC LIMIT ? OFFSET ?`, append(args, size, (page-1)*size)...)
	return users, total, err
}

// IssuePasswordReset stores a one-hour reset token. ok is false when no
// registered account has the email; callers answer the same either way.
func IssuePasswordReset(ctx context.Context, store *db.Store, email string) (token string, user models.User, ok bool, err error) {
	user, err = GetUserByEmail(ctx, store, email)
	if isNotFound(err) {
		return "", models.User{}, false, nil
	}
	if err != nil {
		return "", models.User{}, false, err
	}
	if user.IsGuest() || user.IsBanned {
		return "", models.User{}, false, nil
	}
	token = uuid.NewString()
	expires := time.Now().UTC().Add(ResetTokenTTL)
	if _, err := store.Exec(ctx, `UPDATE users SET reset_token = ?, reset_token_expires = ? WHERE id = ?`,
		token, expires, user.ID); err != nil {
		return "", models.User{}, false, err
	}
	return token, user, true, nil
}

func ResetPassword(ctx context.Context, store *db.Store, tokens TokenService, token, password string) error {
	invalid := ErrBadRequest("Invalid or expired reset token")
	if strings.TrimSpace(token) == "" {
		return invalid
	}
	var user models.User
	err := store.Get(ctx, &user, `SELECT `+userColumns+` FROM users WHERE reset_token = ?`, token)
	if db.IsNotFound(err) {
		return invalid
	}
	if err != nil {
		return err
	}
	if user.ResetTokenExpires == nil || time.Now().UTC().After(*user.ResetTokenExpires) {
		return invalid
	}
	hash, err := tokens.HashPassword(password)
	if err != nil {
		return WrapError(err, "hash password")
	}
	_, err = store.Exec(ctx, `
UPDATE users SET password_hash = ?, reset_token = NULL, reset_token_expires = NULL, updated_at = ?
WHERE id = ? AND reset_token = ?`, hash, time.Now().UTC(), user.ID, token)
	return err
}

func isNotFound(err error) bool {
	svcErr, ok := AsServiceError(err)
	return ok && svcErr.Status == 404
}

func nullIfBlank(value string) *string {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil
	}
	return &value
}

func clampPage(page, size, def, max int) (int, int) {
	if page < 1 {
		page = 1
	}
	if size < 1 {
		size = def
	}
	if size > max {
		size = max
	}
	return page, size
}
