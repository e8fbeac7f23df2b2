package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"

	"github.com/bloomcart/storefront-api/internal/dto"
	"github.com/bloomcart/storefront-api/internal/model"
	"github.com/bloomcart/storefront-api/internal/repository"
)

var (
	ErrAdminAlreadyExists = errors.New("admin already exists")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrAdminDisabled      = errors.New("admin account disabled")
)

type AuthService struct {
	adminRepo repository.AdminRepository
	jwtSecret []byte
	jwtExpiry time.Duration
}

func NewAuthService(adminRepo repository.AdminRepository, jwtSecret string, jwtExpiry time.Duration) *AuthService {
	return &AuthService{adminRepo: adminRepo, jwtSecret: []byte(jwtSecret), jwtExpiry: jwtExpiry}
}

func (s *AuthService) Register(ctx context.Context, req dto.AdminRegisterRequest) (*dto.AdminAuthResponse, error) {
	existing, err := s.adminRepo.GetByEmail(ctx, req.Email)
	if err != nil {
		return nil, fmt.Errorf("check admin: %w", err)
	}
	if existing != nil {
		return nil, ErrAdminAlreadyExists
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	admin := &model.Admin{
		Email:    req.Email,
		Password: string(hashed),
		Name:     req.Name,
		Role:     model.AdminRoleAdmin,
		IsActive: true,
	}
	if err := s.adminRepo.Create(ctx, admin); err != nil {
		return nil, fmt.Errorf("create admin: %w", err)
	}

	token, err := s.generateToken(admin)
	if err != nil {
		return nil, fmt.Errorf("generate token: %w", err)
	}
	return &dto.AdminAuthResponse{Token: token, Admin: toAdminResponse(admin)}, nil
}

func (s *AuthService) Login(ctx context.Context, req dto.AdminLoginRequest) (*dto.AdminAuthResponse, error) {
	admin, err := s.adminRepo.GetByEmail(ctx, req.Email)
	if err != nil {
		return nil, fmt.Errorf("get admin: %w", err)
	}
	if admin == nil {
		return nil, ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(admin.Password), []byte(req.Password)); err != nil {
		return nil, ErrInvalidCredentials
	}
	if !admin.IsActive {
		return nil, ErrAdminDisabled
	}

	token, err := s.generateToken(admin)
	if err != nil {
		return nil, fmt.Errorf("generate token: %w", err)
	}
	return &dto.AdminAuthResponse{Token: token, Admin: toAdminResponse(admin)}, nil
}

func (s *AuthService) generateToken(admin *model.Admin) (string, error) {
	claims := jwt.MapClaims{
		"sub":  admin.ID.String(),
		"role": admin.Role,
		"exp":  time.Now().Add(s.jwtExpiry).Unix(),
		"iat":  time.Now().Unix(),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.jwtSecret)
}

func toAdminResponse(admin *model.Admin) dto.AdminResponse {
	return dto.AdminResponse{
		ID:    admin.ID,
		Email: admin.Email,
		Name:  admin.Name,
		Role:  admin.Role,
	}
}
