package service

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"time"

	"semantic-notes-be/internal/config"
	"semantic-notes-be/internal/dto"
	"semantic-notes-be/internal/entity"
	"semantic-notes-be/internal/pkg/apperror"
	"semantic-notes-be/internal/pkg/logger"
	"semantic-notes-be/internal/repository/specification"
	"semantic-notes-be/internal/repository/unitofwork"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

type IAuthService interface {
	Register(ctx context.Context, req *dto.RegisterRequest) (*dto.RegisterResponse, error)
	Login(ctx context.Context, req *dto.LoginRequest) (*dto.LoginResponse, error)
	Refresh(ctx context.Context, req *dto.RefreshRequest) (*dto.RefreshResponse, error)
}

type authService struct {
	uowFactory unitofwork.RepositoryFactory
	jwtConfig  config.JwtConfig
	logger     logger.ILogger
}

func NewAuthService(uowFactory unitofwork.RepositoryFactory, jwtConfig config.JwtConfig, log logger.ILogger) IAuthService {
	return &authService{
		uowFactory: uowFactory,
		jwtConfig:  jwtConfig,
		logger:     log,
	}
}

func (c *authService) Register(ctx context.Context, req *dto.RegisterRequest) (*dto.RegisterResponse, error) {
	uow := c.uowFactory.NewUnitOfWork(ctx)

	existing, err := uow.UserRepository().FindOne(ctx, specification.ByEmail{Email: req.Email})
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, apperror.ErrEmailTaken
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user := entity.User{
		Id:           uuid.New(),
		Email:        req.Email,
		PasswordHash: string(hash),
		FullName:     req.FullName,
		CreatedAt:    time.Now(),
	}
	if err := uow.UserRepository().Create(ctx, &user); err != nil {
		return nil, err
	}

	c.logger.Info("auth_service", "user registered", map[string]interface{}{
		"user_id": user.Id.String(),
	})

	return &dto.RegisterResponse{
		Id:    user.Id,
		Email: user.Email,
	}, nil
}

func (c *authService) Login(ctx context.Context, req *dto.LoginRequest) (*dto.LoginResponse, error) {
	uow := c.uowFactory.NewUnitOfWork(ctx)

	user, err := uow.UserRepository().FindOne(ctx, specification.ByEmail{Email: req.Email})
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, apperror.ErrUnauthorized
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		return nil, apperror.ErrUnauthorized
	}

	accessToken, err := c.signAccessToken(user.Id)
	if err != nil {
		return nil, err
	}

	refreshToken, err := c.issueRefreshToken(ctx, uow, user.Id)
	if err != nil {
		return nil, err
	}

	return &dto.LoginResponse{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
	}, nil
}

// Refresh rotates the refresh token: the presented one is revoked and a new
// pair is issued. A revoked or expired token fails as unauthorized.
func (c *authService) Refresh(ctx context.Context, req *dto.RefreshRequest) (*dto.RefreshResponse, error) {
	uow := c.uowFactory.NewUnitOfWork(ctx)

	stored, err := uow.RefreshTokenRepository().FindOne(ctx,
		specification.ByToken{Token: req.RefreshToken},
		specification.NotRevoked{},
	)
	if err != nil {
		return nil, err
	}
	if stored == nil || time.Now().After(stored.ExpiresAt) {
		return nil, apperror.ErrUnauthorized
	}

	if err := uow.RefreshTokenRepository().Revoke(ctx, stored.Id); err != nil {
		return nil, err
	}

	accessToken, err := c.signAccessToken(stored.UserId)
	if err != nil {
		return nil, err
	}

	refreshToken, err := c.issueRefreshToken(ctx, uow, stored.UserId)
	if err != nil {
		return nil, err
	}

	return &dto.RefreshResponse{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
	}, nil
}

func (c *authService) signAccessToken(userId uuid.UUID) (string, error) {
	now := time.Now()
	claims := jwt.MapClaims{
		"user_id": userId.String(),
		"iat":     now.Unix(),
		"exp":     now.Add(c.jwtConfig.AccessTokenTTL).Unix(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(c.jwtConfig.Secret))
	if err != nil {
		return "", fmt.Errorf("failed to sign access token: %w", err)
	}
	return signed, nil
}

func (c *authService) issueRefreshToken(ctx context.Context, uow unitofwork.UnitOfWork, userId uuid.UUID) (string, error) {
	raw := make([]byte, 32)
	if _, err := rand.Read(raw); err != nil {
		return "", fmt.Errorf("failed to generate refresh token: %w", err)
	}

	token := entity.UserRefreshToken{
		Id:        uuid.New(),
		UserId:    userId,
		Token:     hex.EncodeToString(raw),
		ExpiresAt: time.Now().Add(c.jwtConfig.RefreshTokenTTL),
		CreatedAt: time.Now(),
	}
	if err := uow.RefreshTokenRepository().Create(ctx, &token); err != nil {
		return "", err
	}
	return token.Token, nil
}
