package controllers

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/ichacara/attendance/middleware"
	"github.com/ichacara/attendance/models"
	"github.com/ichacara/attendance/repository"
	"github.com/ichacara/attendance/services"
	"github.com/ichacara/attendance/utils"
)

const authTokenDuration = 24 * time.Hour

// UserController handles member registration, authentication and CRUD.
type UserController struct {
	users   *repository.UserRepo
	objects *utils.ObjectStore
}

// NewUserController creates a UserController. The object store may be nil when
// storage is not configured; picture uploads then report unavailable.
func NewUserController(users *repository.UserRepo, objects *utils.ObjectStore) *UserController {
	return &UserController{users: users, objects: objects}
}

type registerRequest struct {
	Name            string `json:"name" binding:"required,min=2,max=128"`
	Email           string `json:"email" binding:"required,email"`
	Password        string `json:"password" binding:"required,min=8,max=72"`
	RA              string `json:"ra" binding:"max=32"`
	CellphoneNumber string `json:"cellphone_number" binding:"max=32"`
}

// Register creates a new member account in waiting status.
func (u *UserController) Register(ctx *gin.Context) {
	var req registerRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40001, "invalid registration payload")
		return
	}

	hash, err := utils.HashPassword(req.Password)
	if err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50001, "failed to process password")
		return
	}

	user := models.User{
		Name:            strings.TrimSpace(req.Name),
		Email:           strings.ToLower(strings.TrimSpace(req.Email)),
		PasswordHash:    hash,
		RA:              strings.TrimSpace(req.RA),
		CellphoneNumber: strings.TrimSpace(req.CellphoneNumber),
		Role:            models.RoleUser,
		Status:          models.StatusWaiting,
	}

	if err := u.users.Create(ctx.Request.Context(), &user); err != nil {
		if errors.Is(err, repository.ErrDuplicateEmail) {
			utils.Error(ctx, http.StatusBadRequest, 40002, "email already registered")
			return
		}
		utils.Sugar.Errorf("register failed: %v", err)
		utils.Error(ctx, http.StatusInternalServerError, 50002, "failed to create account")
		return
	}

	utils.Success(ctx, user)
}

type loginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// Login authenticates a member and issues a JWT.
func (u *UserController) Login(ctx *gin.Context) {
	var req loginRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40010, "invalid login payload")
		return
	}

	user, err := u.users.GetByEmail(ctx.Request.Context(), req.Email)
	if err != nil {
		if errors.Is(err, services.ErrNotFound) {
			utils.Error(ctx, http.StatusBadRequest, 40011, "invalid credentials")
			return
		}
		utils.Sugar.Errorf("login lookup failed: %v", err)
		utils.Error(ctx, http.StatusInternalServerError, 50010, "failed to authenticate")
		return
	}

	if !utils.CheckPassword(user.PasswordHash, req.Password) {
		utils.Error(ctx, http.StatusBadRequest, 40011, "invalid credentials")
		return
	}

	token, err := utils.GenerateToken(user.ID, user.Email, user.Role, authTokenDuration)
	if err != nil {
		utils.Sugar.Errorf("token generation failed: %v", err)
		utils.Error(ctx, http.StatusInternalServerError, 50011, "failed to issue token")
		return
	}

	utils.Success(ctx, gin.H{"access_token": token})
}

// UploadProfilePicture stores a member's picture in object storage and saves its URL.
func (u *UserController) UploadProfilePicture(ctx *gin.Context) {
	userID, ok := getUserID(ctx)
	if !ok {
		utils.Error(ctx, http.StatusUnauthorized, 40110, "unauthorized")
		return
	}
	if u.objects == nil {
		utils.Error(ctx, http.StatusServiceUnavailable, 50300, "object storage not configured")
		return
	}

	header, err := ctx.FormFile("file")
	if err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40020, "missing file upload")
		return
	}

	f, err := header.Open()
	if err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40021, "unreadable file upload")
		return
	}
	defer f.Close()

	url, err := u.objects.PutProfilePicture(ctx.Request.Context(), userID, f, header.Size, header.Header.Get("Content-Type"))
	if err != nil {
		if errors.Is(err, utils.ErrFileTooBig) || errors.Is(err, utils.ErrInvalidFileType) {
			utils.Error(ctx, http.StatusBadRequest, 40022, err.Error())
			return
		}
		utils.Sugar.Errorf("profile picture upload failed: %v", err)
		utils.Error(ctx, http.StatusInternalServerError, 50020, "failed to store picture")
		return
	}

	user, err := u.users.Get(ctx.Request.Context(), userID)
	if err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50021, "failed to load account")
		return
	}
	user.ProfilePicture = url
	if err := u.users.Update(ctx.Request.Context(), user); err != nil {
		utils.Sugar.Errorf("profile picture save failed: %v", err)
		utils.Error(ctx, http.StatusInternalServerError, 50022, "failed to save picture")
		return
	}

	utils.Success(ctx, gin.H{"profile_picture": url})
}

// ListUsers returns every member account.
func (u *UserController) ListUsers(ctx *gin.Context) {
	users, err := u.users.List(ctx.Request.Context())
	if err != nil {
		utils.Sugar.Errorf("list users failed: %v", err)
		utils.Error(ctx, http.StatusInternalServerError, 50030, "failed to retrieve users")
		return
	}
	utils.Success(ctx, users)
}

// GetUser returns one member by ID.
func (u *UserController) GetUser(ctx *gin.Context) {
	id, ok := parseIDParam(ctx)
	if !ok {
		return
	}

	user, err := u.users.Get(ctx.Request.Context(), id)
	if err != nil {
		if errors.Is(err, services.ErrNotFound) {
			utils.Error(ctx, http.StatusNotFound, 40410, "user not found")
			return
		}
		utils.Error(ctx, http.StatusInternalServerError, 50031, "failed to load user")
		return
	}
	utils.Success(ctx, user)
}

type updateUserRequest struct {
	Name            string `json:"name" binding:"omitempty,min=2,max=128"`
	Email           string `json:"email" binding:"omitempty,email"`
	RA              string `json:"ra" binding:"max=32"`
	CellphoneNumber string `json:"cellphone_number" binding:"max=32"`
}

// UpdateUser updates a member's contact attributes.
func (u *UserController) UpdateUser(ctx *gin.Context) {
	id, ok := parseIDParam(ctx)
	if !ok {
		return
	}

	var req updateUserRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40040, "invalid update payload")
		return
	}

	user, err := u.users.Get(ctx.Request.Context(), id)
	if err != nil {
		if errors.Is(err, services.ErrNotFound) {
			utils.Error(ctx, http.StatusNotFound, 40410, "user not found")
			return
		}
		utils.Error(ctx, http.StatusInternalServerError, 50040, "failed to load user")
		return
	}

	if req.Name != "" {
		user.Name = strings.TrimSpace(req.Name)
	}
	if req.Email != "" {
		user.Email = strings.ToLower(strings.TrimSpace(req.Email))
	}
	if req.RA != "" {
		user.RA = strings.TrimSpace(req.RA)
	}
	if req.CellphoneNumber != "" {
		user.CellphoneNumber = strings.TrimSpace(req.CellphoneNumber)
	}

	if err := u.users.Update(ctx.Request.Context(), user); err != nil {
		if errors.Is(err, repository.ErrDuplicateEmail) {
			utils.Error(ctx, http.StatusBadRequest, 40041, "email already registered")
			return
		}
		utils.Sugar.Errorf("update user %d failed: %v", id, err)
		utils.Error(ctx, http.StatusInternalServerError, 50041, "failed to update user")
		return
	}

	utils.Success(ctx, user)
}

// DeleteUser removes a member account.
func (u *UserController) DeleteUser(ctx *gin.Context) {
	id, ok := parseIDParam(ctx)
	if !ok {
		return
	}

	if err := u.users.Delete(ctx.Request.Context(), id); err != nil {
		if errors.Is(err, services.ErrNotFound) {
			utils.Error(ctx, http.StatusNotFound, 40410, "user not found")
			return
		}
		utils.Sugar.Errorf("delete user %d failed: %v", id, err)
		utils.Error(ctx, http.StatusInternalServerError, 50050, "failed to delete user")
		return
	}

	utils.Success(ctx, gin.H{"deleted": id})
}

func parseIDParam(ctx *gin.Context) (uint, bool) {
	raw := strings.TrimSpace(ctx.Param("id"))
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil || id == 0 {
		utils.Error(ctx, http.StatusBadRequest, 40050, "invalid user id")
		return 0, false
	}
	return uint(id), true
}

func getUserID(ctx *gin.Context) (uint, bool) {
	v, ok := ctx.Get(middleware.ContextUserIDKey)
	if !ok {
		return 0, false
	}
	id, ok := v.(uint)
	return id, ok
}
