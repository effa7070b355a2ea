package handlers

import (
	"context"
	"errors"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"wasteroute-backend/internal/models"
	"wasteroute-backend/pkg/utils"
)

type UserStore interface {
	UserFinder
	CreateUser(ctx context.Context, user *models.User) error
}

type CreateUserRequest struct {
	Email    string      `json:"email"`
	Password string      `json:"password"`
	Name     string      `json:"name"`
	Role     models.Role `json:"role"`
}

type CreateUserResponse struct {
	Success bool                 `json:"success"`
	User    *models.UserResponse `json:"user,omitempty"`
	Message string               `json:"message,omitempty"`
}

const minPasswordLength = 8

// Register creates a citizen account
func Register(users UserStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		log.Println("📥 REQUEST: POST /api/auth/register")

		var req CreateUserRequest
		if !decodeBody(w, r, &req) {
			return
		}
		req.Role = models.RoleCitizen
		createUser(w, r, users, req)
	}
}

// CreateUser creates an account with any role (admin only)
func CreateUser(users UserStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		log.Println("📥 REQUEST: POST /api/admin/users")

		var req CreateUserRequest
		if !decodeBody(w, r, &req) {
			return
		}
		if !req.Role.Valid() {
			log.Printf("❌ Invalid role: %s", req.Role)
			utils.RespondError(w, http.StatusBadRequest, "Role must be 'citizen', 'collector', or 'admin'")
			return
		}
		createUser(w, r, users, req)
	}
}

func createUser(w http.ResponseWriter, r *http.Request, users UserStore, req CreateUserRequest) {
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	req.Name = strings.TrimSpace(req.Name)

	if req.Email == "" || req.Password == "" || req.Name == "" {
		log.Println("❌ Missing required fields")
		utils.RespondError(w, http.StatusBadRequest, "Email, password and name are required")
		return
	}
	if len(req.Password) < minPasswordLength {
		utils.RespondError(w, http.StatusBadRequest, "Password must be at least 8 characters")
		return
	}

	_, err := users.GetUserByEmail(r.Context(), req.Email)
	if err == nil {
		log.Printf("❌ User already exists: %s", req.Email)
		utils.RespondError(w, http.StatusConflict, "User with this email already exists")
		return
	}
	var notFound *models.NotFoundError
	if !errors.As(err, &notFound) {
		respondServiceError(w, err)
		return
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		log.Printf("❌ Failed to hash password: %v", err)
		utils.RespondError(w, http.StatusInternalServerError, "Failed to hash password")
		return
	}

	now := time.Now().Unix()
	user := &models.User{
		ID:        uuid.New().String(),
		Email:     req.Email,
		Password:  string(hashedPassword),
		Name:      req.Name,
		Role:      req.Role,
		IsActive:  true,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := users.CreateUser(r.Context(), user); err != nil {
		respondServiceError(w, err)
		return
	}

	log.Printf("✅ User created: %s (%s) %s", user.Email, user.Role, user.ID)

	userResponse := user.ToUserResponse()
	utils.RespondJSON(w, http.StatusCreated, CreateUserResponse{
		Success: true,
		User:    &userResponse,
		Message: "User created successfully",
	})
}
