package services

import (
	"context"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/formseva/formseva-backend/internal/config"
	"github.com/formseva/formseva-backend/internal/models"
)

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)

	err = db.AutoMigrate(&models.User{}, &models.Admin{}, &models.Notification{})
	require.NoError(t, err)
	return db
}

func newTestAuth(t *testing.T) (*AuthService, *gorm.DB) {
	t.Helper()
	db := setupTestDB(t)
	cfg := &config.Config{
		MockOTP:        true,
		JWTSecret:      "test-secret",
		JWTUserExpiry:  30 * 24 * time.Hour,
		JWTAdminExpiry: 7 * 24 * time.Hour,
	}
	return NewAuthService(db, cfg, nil), db
}

func parseClaims(t *testing.T, token string) jwt.MapClaims {
	t.Helper()
	parsed, err := jwt.Parse(token, func(*jwt.Token) (interface{}, error) {
		return []byte("test-secret"), nil
	})
	require.NoError(t, err)
	require.True(t, parsed.Valid)
	return parsed.Claims.(jwt.MapClaims)
}

func TestSendOTPValidatesPhone(t *testing.T) {
	svc, _ := newTestAuth(t)
	ctx := context.Background()

	for _, phone := range []string{"", "12345", "98765432101", "98765abcde"} {
		_, err := svc.SendOTP(ctx, phone)
		assert.ErrorIs(t, err, ErrInvalidPhone, phone)
	}

	resp, err := svc.SendOTP(ctx, "9876543210")
	require.NoError(t, err)
	assert.True(t, resp.Success)
	assert.Equal(t, MockOTPCode, resp.OTP)
}

func TestVerifyOTPCreatesUserOnce(t *testing.T) {
	svc, db := newTestAuth(t)
	ctx := context.Background()

	_, err := svc.VerifyOTP(ctx, "9876543210", "000000")
	assert.ErrorIs(t, err, ErrInvalidOTP)

	resp, err := svc.VerifyOTP(ctx, "9876543210", MockOTPCode)
	require.NoError(t, err)
	assert.NotEmpty(t, resp.Token)
	assert.Equal(t, "9876543210", resp.User.Phone)

	claims := parseClaims(t, resp.Token)
	assert.Equal(t, resp.User.ID.String(), claims["sub"])

	// A second login finds the same user instead of creating another.
	again, err := svc.VerifyOTP(ctx, "9876543210", MockOTPCode)
	require.NoError(t, err)
	assert.Equal(t, resp.User.ID, again.User.ID)

	var count int64
	require.NoError(t, db.Model(&models.User{}).Count(&count).Error)
	assert.Equal(t, int64(1), count)
}

func TestAdminLogin(t *testing.T) {
	svc, db := newTestAuth(t)
	ctx := context.Background()

	hash, err := HashPassword("s3cret-pass")
	require.NoError(t, err)
	admin := models.Admin{
		ID:           uuid.New(),
		Email:        "admin@example.com",
		PasswordHash: hash,
		Name:         "Admin",
	}
	require.NoError(t, db.Create(&admin).Error)

	_, err = svc.AdminLogin(ctx, "nobody@example.com", "s3cret-pass")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	_, err = svc.AdminLogin(ctx, "admin@example.com", "wrong")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	resp, err := svc.AdminLogin(ctx, "admin@example.com", "s3cret-pass")
	require.NoError(t, err)
	assert.Equal(t, admin.ID, resp.Admin.ID)

	claims := parseClaims(t, resp.Token)
	assert.Equal(t, admin.ID.String(), claims["admin_id"])
}

func TestProfile(t *testing.T) {
	svc, _ := newTestAuth(t)
	ctx := context.Background()

	_, err := svc.GetProfile(ctx, uuid.New())
	assert.ErrorIs(t, err, ErrUserNotFound)

	auth, err := svc.VerifyOTP(ctx, "9876543210", MockOTPCode)
	require.NoError(t, err)

	updated, err := svc.UpdateProfile(ctx, auth.User.ID, "Anjali Nair")
	require.NoError(t, err)
	require.NotNil(t, updated.Name)
	assert.Equal(t, "Anjali Nair", *updated.Name)

	profile, err := svc.GetProfile(ctx, auth.User.ID)
	require.NoError(t, err)
	require.NotNil(t, profile.Name)
	assert.Equal(t, "Anjali Nair", *profile.Name)
}

func TestGenerateOTP(t *testing.T) {
	seen := map[string]bool{}
	for i := 0; i < 20; i++ {
		code, err := GenerateOTP()
		require.NoError(t, err)
		require.Len(t, code, 6)
		for _, r := range code {
			assert.True(t, r >= '0' && r <= '9')
		}
		seen[code] = true
	}
	// 20 draws from a million values virtually never all collide.
	assert.Greater(t, len(seen), 1)
}
