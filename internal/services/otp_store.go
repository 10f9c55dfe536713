package services

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/formseva/formseva-backend/internal/config"
	"github.com/redis/go-redis/v9"
)

// OTPStore holds one-time codes between send-otp and verify-otp.
type OTPStore interface {
	Save(ctx context.Context, phone, code string, ttl time.Duration) error
	// Check reports whether the code matches the stored one. A matching
	// code is consumed and cannot be replayed.
	Check(ctx context.Context, phone, code string) (bool, error)
}

// RedisOTPStore keys codes by phone number with a TTL, so expiry needs no
// sweeper.
type RedisOTPStore struct {
	client *redis.Client
}

func NewRedisOTPStore(cfg *config.Config) (*RedisOTPStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPass,
		DB:       cfg.RedisDB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	return &RedisOTPStore{client: client}, nil
}

func otpKey(phone string) string {
	return "otp:" + phone
}

func (s *RedisOTPStore) Save(ctx context.Context, phone, code string, ttl time.Duration) error {
	if err := s.client.Set(ctx, otpKey(phone), code, ttl).Err(); err != nil {
		return fmt.Errorf("failed to store otp: %w", err)
	}
	return nil
}

func (s *RedisOTPStore) Check(ctx context.Context, phone, code string) (bool, error) {
	stored, err := s.client.Get(ctx, otpKey(phone)).Result()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to read otp: %w", err)
	}
	if stored != code {
		return false, nil
	}
	s.client.Del(ctx, otpKey(phone))
	return true, nil
}

func (s *RedisOTPStore) Close() error {
	return s.client.Close()
}

// GenerateOTP returns a 6-digit numeric code.
func GenerateOTP() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(1000000))
	if err != nil {
		return "", fmt.Errorf("failed to generate otp: %w", err)
	}
	return fmt.Sprintf("%06d", n.Int64()), nil
}
