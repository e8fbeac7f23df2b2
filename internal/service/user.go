package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/bloomcart/storefront-api/internal/dto"
	"github.com/bloomcart/storefront-api/internal/gateway"
	"github.com/bloomcart/storefront-api/internal/model"
	"github.com/bloomcart/storefront-api/internal/repository"
)

var ErrUserNotFound = errors.New("user not found")

type UserService struct {
	userRepo      repository.UserRepository
	webhookSecret string
	log           *slog.Logger
}

func NewUserService(userRepo repository.UserRepository, webhookSecret string, log *slog.Logger) *UserService {
	return &UserService{userRepo: userRepo, webhookSecret: webhookSecret, log: log}
}

// HandleIdentityWebhook applies identity-provider lifecycle events to the
// local user mirror. Unknown event types are logged and dropped.
func (s *UserService) HandleIdentityWebhook(ctx context.Context, body []byte, signature string) error {
	if !gateway.VerifyWebhookSignature(s.webhookSecret, body, signature) {
		return ErrInvalidSignature
	}

	var event gateway.IdentityWebhookEvent
	if err := json.Unmarshal(body, &event); err != nil {
		return fmt.Errorf("decode identity event: %w", err)
	}

	var data gateway.IdentityUserData
	if err := json.Unmarshal(event.Data, &data); err != nil {
		return fmt.Errorf("decode identity event data: %w", err)
	}

	switch event.Type {
	case "user.created", "user.updated":
		user := &model.User{
			ExternalID:      data.ID,
			Email:           data.Email,
			FirstName:       data.FirstName,
			LastName:        data.LastName,
			Username:        data.Username,
			ProfileImageURL: data.ProfileImageURL,
			EmailVerified:   data.EmailVerified,
		}
		if err := s.userRepo.Upsert(ctx, user); err != nil {
			return fmt.Errorf("sync user: %w", err)
		}
	case "user.deleted":
		if err := s.userRepo.DeleteByExternalID(ctx, data.ID); err != nil {
			return fmt.Errorf("delete user: %w", err)
		}
	case "session.created":
		externalID := data.UserID
		if externalID == "" {
			externalID = data.ID
		}
		if err := s.userRepo.SetLastSignIn(ctx, externalID, time.Now()); err != nil {
			return fmt.Errorf("record sign in: %w", err)
		}
	default:
		s.log.Info("ignoring unhandled identity event", "type", event.Type)
	}
	return nil
}

// EnsureUser mirrors a verified identity into the local user table and returns
// the local record. Called on every authenticated request, so it has to be an
// upsert rather than a create.
func (s *UserService) EnsureUser(ctx context.Context, identity *gateway.Identity) (*model.User, error) {
	user := &model.User{
		ExternalID:      identity.ID,
		Email:           identity.Email,
		FirstName:       identity.FirstName,
		LastName:        identity.LastName,
		Username:        identity.Username,
		ProfileImageURL: identity.ProfileImageURL,
		EmailVerified:   identity.EmailVerified,
	}
	if err := s.userRepo.Upsert(ctx, user); err != nil {
		return nil, fmt.Errorf("ensure user: %w", err)
	}
	return user, nil
}

func (s *UserService) GetProfile(ctx context.Context, userID uuid.UUID) (*dto.UserResponse, error) {
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}
	if user == nil {
		return nil, ErrUserNotFound
	}
	resp := toUserResponse(user)
	return &resp, nil
}

func (s *UserService) UpdateProfile(ctx context.Context, userID uuid.UUID, req dto.UpdateUserRequest) (*dto.UserResponse, error) {
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}
	if user == nil {
		return nil, ErrUserNotFound
	}

	if req.PhoneNumber != nil {
		user.PhoneNumber = *req.PhoneNumber
	}
	if req.Addresses != nil {
		user.Addresses = req.Addresses
	}
	if req.Preferences != nil {
		user.Preferences = *req.Preferences
	}
	if err := s.userRepo.UpdateProfile(ctx, user); err != nil {
		return nil, fmt.Errorf("update profile: %w", err)
	}
	resp := toUserResponse(user)
	return &resp, nil
}

func (s *UserService) ListUsers(ctx context.Context, search string, page, limit int) ([]dto.UserResponse, int, error) {
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 100 {
		limit = 20
	}
	users, total, err := s.userRepo.List(ctx, search, limit, (page-1)*limit)
	if err != nil {
		return nil, 0, fmt.Errorf("list users: %w", err)
	}

	result := make([]dto.UserResponse, 0, len(users))
	for i := range users {
		result = append(result, toUserResponse(&users[i]))
	}
	return result, total, nil
}

func toUserResponse(u *model.User) dto.UserResponse {
	return dto.UserResponse{
		ID:              u.ID,
		ExternalID:      u.ExternalID,
		Email:           u.Email,
		FirstName:       u.FirstName,
		LastName:        u.LastName,
		Username:        u.Username,
		ProfileImageURL: u.ProfileImageURL,
		EmailVerified:   u.EmailVerified,
		PhoneNumber:     u.PhoneNumber,
		Addresses:       u.Addresses,
		Orders:          u.Orders,
		Reviews:         u.Reviews,
		Wishlist:        u.Wishlist,
		Cart:            u.Cart,
		Statistics:      u.Statistics,
		Preferences:     u.Preferences,
		CreatedAt:       u.CreatedAt,
	}
}
