package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kamikazebr/license-gateway/internal/testutil"
	"github.com/kamikazebr/license-gateway/pkg/models"
	"github.com/kamikazebr/license-gateway/pkg/utils"
)

const testJWTSecret = "test-secret-key-for-testing"

func setupAuthService(t *testing.T, tdb *testutil.TestDB) *AuthService {
	t.Helper()
	return NewAuthService(tdb.Repositories().Users, testJWTSecret, time.Hour)
}

func TestAuthService_SignUpThenSignIn(t *testing.T) {
	tdb := testutil.GetTestDB(t)
	ctx := context.Background()
	service := setupAuthService(t, tdb)

	email := testutil.GenerateTestEmail()
	resp, err := service.SignUp(ctx, models.SignUpRequest{
		Email:    email,
		Password: "long-enough-password",
		UserData: models.SignUpFields{FullName: "Ada Operator", Company: "Acme"},
	})
	require.NoError(t, err)
	t.Cleanup(func() { tdb.Exec(context.Background(), "DELETE FROM users WHERE email = $1", email) })

	assert.Equal(t, email, resp.User.Email)
	assert.Equal(t, "Ada Operator", resp.User.Profile.FullName)
	assert.Equal(t, models.RoleUser, resp.User.Profile.Role)
	require.NotNil(t, resp.Session)

	claims, err := utils.ValidateJWT(resp.Session.AccessToken, testJWTSecret)
	require.NoError(t, err)
	assert.Equal(t, email, claims.Email)
	assert.Equal(t, models.RoleUser, claims.Role)

	signedIn, err := service.SignIn(ctx, email, "long-enough-password")
	require.NoError(t, err)
	assert.Equal(t, resp.User.ID, signedIn.User.ID)

	_, err = service.SignIn(ctx, email, "wrong-password")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	_, err = service.SignIn(ctx, "nobody@example.com", "long-enough-password")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestAuthService_SignUpRejectsDuplicatesAndBadInput(t *testing.T) {
	tdb := testutil.GetTestDB(t)
	ctx := context.Background()
	service := setupAuthService(t, tdb)

	existing := tdb.CreateTestUser(ctx, testutil.GenerateTestEmail(), models.RoleUser)

	_, err := service.SignUp(ctx, models.SignUpRequest{Email: existing.Email, Password: "long-enough-password"})
	assert.ErrorIs(t, err, ErrEmailTaken)

	_, err = service.SignUp(ctx, models.SignUpRequest{Email: "not-an-email", Password: "long-enough-password"})
	assert.True(t, errors.Is(err, ErrInvalidInput))

	_, err = service.SignUp(ctx, models.SignUpRequest{Email: testutil.GenerateTestEmail(), Password: "short"})
	assert.True(t, errors.Is(err, ErrInvalidInput))
}

func TestAuthService_CreateAdmin(t *testing.T) {
	tdb := testutil.GetTestDB(t)
	ctx := context.Background()
	service := setupAuthService(t, tdb)

	email := testutil.GenerateTestEmail()
	user, err := service.CreateUser(ctx, email, "long-enough-password", models.RoleAdmin, models.SignUpFields{})
	require.NoError(t, err)
	t.Cleanup(func() { tdb.DeleteTestUser(context.Background(), user.ID) })
	assert.True(t, user.IsAdmin())

	got, err := service.GetUserByID(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, email, got.Email)
}
