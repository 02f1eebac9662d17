package auth

import (
	"testing"

	"ngoconnect-backend/internal/constants"
	"ngoconnect-backend/internal/domain"
	"ngoconnect-backend/internal/pkg/apperr"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

func setupAuthDB(t *testing.T) *gorm.DB {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&domain.User{}))
	return db
}

func TestVerifyUser_Nil(t *testing.T) {
	u, err := VerifyUser(nil)
	assert.Nil(t, u)
	assert.Equal(t, ErrNotAuthenticated, err)
}

func TestVerifyUser_EmptyMap(t *testing.T) {
	u, err := VerifyUser(map[string]interface{}{})
	assert.Nil(t, u)
	assert.Equal(t, ErrNotAuthenticated, err)
}

func TestVerifyUser_NoUserID(t *testing.T) {
	u, err := VerifyUser(map[string]interface{}{
		"fullname": "Test",
		"email":    "a@b.com",
	})
	assert.Nil(t, u)
	assert.Equal(t, ErrNotAuthenticated, err)
}

func TestVerifyUser_Valid(t *testing.T) {
	u, err := VerifyUser(map[string]interface{}{
		"user_id":  "550e8400-e29b-41d4-a716-446655440000",
		"fullname": "Test User",
		"email":    "test@example.com",
		"role":     constants.NGO,
	})
	require.NoError(t, err)
	require.NotNil(t, u)
	assert.Equal(t, "550e8400-e29b-41d4-a716-446655440000", u.UserID)
	assert.Equal(t, "Test User", u.Fullname)
	assert.Equal(t, "test@example.com", u.Email)
	assert.Equal(t, constants.NGO, u.Role)
}

func TestRegisterUser_CollectsFieldErrors(t *testing.T) {
	db := setupAuthDB(t)

	_, err := RegisterUser(db, RegisterInput{
		Fullname: "",
		Email:    "bad",
		Password: "short",
		Role:     constants.Admin,
	})
	require.True(t, apperr.IsKind(err, apperr.KindValidation))
	e, _ := apperr.As(err)
	for _, f := range []string{"fullname", "email", "password", "role"} {
		assert.Contains(t, e.Fields, f)
	}
}

func TestRegisterUser_HashesPassword(t *testing.T) {
	db := setupAuthDB(t)

	u, err := RegisterUser(db, RegisterInput{
		Fullname: "Asha Rao",
		Email:    "asha@example.com",
		Password: "Password123!",
		Role:     constants.Donor,
	})
	require.NoError(t, err)
	assert.NotEqual(t, "Password123!", u.PasswordHash)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte("Password123!")))
}

func TestRegisterUser_DuplicateEmail(t *testing.T) {
	db := setupAuthDB(t)
	in := RegisterInput{
		Fullname: "Asha Rao",
		Email:    "asha@example.com",
		Password: "Password123!",
		Role:     constants.Donor,
	}
	_, err := RegisterUser(db, in)
	require.NoError(t, err)

	_, err = RegisterUser(db, in)
	assert.Equal(t, ErrEmailTaken, err)
}

func TestLoginUser_Flow(t *testing.T) {
	db := setupAuthDB(t)
	_, err := RegisterUser(db, RegisterInput{
		Fullname: "Asha Rao",
		Email:    "asha@example.com",
		Password: "Password123!",
		Role:     constants.NGO,
	})
	require.NoError(t, err)

	_, err = LoginUser(db, LoginInput{Email: "", Password: ""})
	assert.Equal(t, ErrEmailPasswordRequired, err)

	_, err = LoginUser(db, LoginInput{Email: "nobody@example.com", Password: "x"})
	assert.Equal(t, ErrInvalidEmail, err)

	_, err = LoginUser(db, LoginInput{Email: "asha@example.com", Password: "wrong"})
	assert.Equal(t, ErrIncorrectPassword, err)

	u, err := LoginUser(db, LoginInput{Email: "asha@example.com", Password: "Password123!"})
	require.NoError(t, err)
	assert.Equal(t, "asha@example.com", u.Email)
}
