package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/formseva/formseva-backend/internal/config"
	"github.com/formseva/formseva-backend/internal/dto"
	"github.com/formseva/formseva-backend/internal/models"
)

var (
	ErrInvalidPhone       = errors.New("phone must be a 10-digit number")
	ErrInvalidOTP         = errors.New("invalid or expired otp")
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrUserNotFound       = errors.New("user not found")
)

// MockOTPCode is accepted for every phone number when mock mode is on.
const MockOTPCode = "123456"

var phonePattern = regexp.MustCompile(`^\d{10}$`)

type AuthService struct {
	db   *gorm.DB
	cfg  *config.Config
	otps OTPStore
}

func NewAuthService(db *gorm.DB, cfg *config.Config, otps OTPStore) *AuthService {
	return &AuthService{db: db, cfg: cfg, otps: otps}
}

func (s *AuthService) SendOTP(ctx context.Context, phone string) (*dto.SendOTPResponse, error) {
	if !phonePattern.MatchString(phone) {
		return nil, ErrInvalidPhone
	}

	if s.cfg.MockOTP {
		return &dto.SendOTPResponse{
			Success: true,
			Message: "OTP sent",
			OTP:     MockOTPCode,
		}, nil
	}

	code, err := GenerateOTP()
	if err != nil {
		return nil, err
	}
	if err := s.otps.Save(ctx, phone, code, s.cfg.OTPExpiry); err != nil {
		return nil, err
	}

	// SMS delivery is handled by the gateway; here we only record the send.
	slog.Info("otp issued", "phone", phone)

	return &dto.SendOTPResponse{Success: true, Message: "OTP sent"}, nil
}

func (s *AuthService) VerifyOTP(ctx context.Context, phone, otp string) (*dto.AuthResponse, error) {
	if !phonePattern.MatchString(phone) {
		return nil, ErrInvalidPhone
	}

	if s.cfg.MockOTP {
		if otp != MockOTPCode {
			return nil, ErrInvalidOTP
		}
	} else {
		ok, err := s.otps.Check(ctx, phone, otp)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, ErrInvalidOTP
		}
	}

	var user models.User
	err := s.db.WithContext(ctx).Where("phone = ?", phone).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		user = models.User{ID: uuid.New(), Phone: phone}
		if err := s.db.WithContext(ctx).Create(&user).Error; err != nil {
			return nil, fmt.Errorf("failed to create user: %w", err)
		}
	} else if err != nil {
		return nil, fmt.Errorf("failed to look up user: %w", err)
	}

	token, err := s.signToken(jwt.MapClaims{
		"sub": user.ID.String(),
		"exp": time.Now().Add(s.cfg.JWTUserExpiry).Unix(),
	})
	if err != nil {
		return nil, err
	}

	return &dto.AuthResponse{
		Success: true,
		Token:   token,
		User:    toUserResponse(user),
	}, nil
}

func (s *AuthService) AdminLogin(ctx context.Context, email, password string) (*dto.AdminAuthResponse, error) {
	var admin models.Admin
	err := s.db.WithContext(ctx).Where("email = ?", email).First(&admin).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, fmt.Errorf("failed to look up admin: %w", err)
	}

	if bcrypt.CompareHashAndPassword([]byte(admin.PasswordHash), []byte(password)) != nil {
		return nil, ErrInvalidCredentials
	}

	token, err := s.signToken(jwt.MapClaims{
		"admin_id": admin.ID.String(),
		"exp":      time.Now().Add(s.cfg.JWTAdminExpiry).Unix(),
	})
	if err != nil {
		return nil, err
	}

	return &dto.AdminAuthResponse{
		Success: true,
		Token:   token,
		Admin: dto.AdminResponse{
			ID:    admin.ID,
			Email: admin.Email,
			Name:  admin.Name,
		},
	}, nil
}

func (s *AuthService) GetProfile(ctx context.Context, userID uuid.UUID) (*dto.UserResponse, error) {
	var user models.User
	err := s.db.WithContext(ctx).First(&user, "id = ?", userID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load user: %w", err)
	}
	resp := toUserResponse(user)
	return &resp, nil
}

func (s *AuthService) UpdateProfile(ctx context.Context, userID uuid.UUID, name string) (*dto.UserResponse, error) {
	var user models.User
	err := s.db.WithContext(ctx).First(&user, "id = ?", userID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load user: %w", err)
	}

	user.Name = &name
	if err := s.db.WithContext(ctx).Save(&user).Error; err != nil {
		return nil, fmt.Errorf("failed to update user: %w", err)
	}

	resp := toUserResponse(user)
	return &resp, nil
}

func (s *AuthService) signToken(claims jwt.MapClaims) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(s.cfg.JWTSecret))
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, nil
}

func toUserResponse(user models.User) dto.UserResponse {
	return dto.UserResponse{
		ID:    user.ID,
		Phone: user.Phone,
		Name:  user.Name,
	}
}

// HashPassword is used by seeding tooling to create admin accounts.
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	return string(hash), nil
}
