package handler

import (
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"caselink/internal/domain/entity"
	"caselink/internal/domain/repository"
	"caselink/internal/infrastructure/firebase"
	"caselink/pkg/errors"
	"caselink/pkg/response"
)

// DevTokenHandler backs the development-only endpoints: minting auth tokens
// and seeding users/cases so the chat surface is exercisable without a live
// Firebase project.
type DevTokenHandler struct {
	issuer   *firebase.DevTokenIssuer
	userRepo repository.UserRepository
	caseRepo repository.CaseRepository
}

var devTokenHandler *DevTokenHandler

func NewDevTokenHandler(issuer *firebase.DevTokenIssuer, userRepo repository.UserRepository, caseRepo repository.CaseRepository) *DevTokenHandler {
	return &DevTokenHandler{
		issuer:   issuer,
		userRepo: userRepo,
		caseRepo: caseRepo,
	}
}

func SetupDevTokenHandler(issuer *firebase.DevTokenIssuer, userRepo repository.UserRepository, caseRepo repository.CaseRepository) {
	devTokenHandler = NewDevTokenHandler(issuer, userRepo, caseRepo)
}

func GetDevTokenHandler() *DevTokenHandler {
	return devTokenHandler
}

type devTokenRequest struct {
	UserID   string `json:"user_id" validate:"required"`
	Username string `json:"username"`
	Role     string `json:"role" validate:"omitempty,oneof=client lawyer"`
}

type devCaseRequest struct {
	Title    string `json:"title" validate:"required"`
	ClientID string `json:"client_id" validate:"required"`
	LawyerID string `json:"lawyer_id" validate:"required"`
}

// GenerateToken mints a dev JWT for the given user, creating the user record
// on first use.
func (h *DevTokenHandler) GenerateToken(c echo.Context) error {
	var req devTokenRequest
	if err := c.Bind(&req); err != nil {
		return response.Error(c, err)
	}
	if err := c.Validate(&req); err != nil {
		return response.Error(c, err)
	}

	ctx := c.Request().Context()

	user, err := h.userRepo.GetByID(ctx, req.UserID)
	if err != nil {
		role := req.Role
		if role == "" {
			role = "client"
		}
		user = &entity.User{
			ID:        req.UserID,
			Username:  req.Username,
			Role:      role,
			CreatedAt: time.Now(),
		}
		if err := h.userRepo.Create(ctx, user); err != nil {
			return response.Error(c, errors.Internal("Failed to create user", err))
		}
	}

	token, err := h.issuer.Issue(user.ID)
	if err != nil {
		return response.Error(c, errors.Internal("Failed to issue token", err))
	}

	return response.Success(c, map[string]interface{}{
		"token": token,
		"user": map[string]interface{}{
			"id":       user.ID,
			"username": user.Username,
			"role":     user.Role,
		},
	})
}

// CreateCase seeds a case linking a client and a lawyer so case-scoped chat
// can be tested end to end.
func (h *DevTokenHandler) CreateCase(c echo.Context) error {
	var req devCaseRequest
	if err := c.Bind(&req); err != nil {
		return response.Error(c, err)
	}
	if err := c.Validate(&req); err != nil {
		return response.Error(c, err)
	}

	ctx := c.Request().Context()

	if _, err := h.userRepo.GetByID(ctx, req.ClientID); err != nil {
		return response.Error(c, errors.NotFound("Client", err))
	}
	if _, err := h.userRepo.GetByID(ctx, req.LawyerID); err != nil {
		return response.Error(c, errors.NotFound("Lawyer", err))
	}

	kase := &entity.Case{
		ID:        uuid.New().String(),
		Title:     req.Title,
		Status:    "accepted",
		ClientID:  req.ClientID,
		LawyerID:  req.LawyerID,
		CreatedAt: time.Now(),
	}
	if err := h.caseRepo.Create(ctx, kase); err != nil {
		return response.Error(c, errors.Internal("Failed to create case", err))
	}

	return response.Created(c, kase)
}
