package controllers

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/ichacara/attendance/models"
	"github.com/ichacara/attendance/repository"
	"github.com/ichacara/attendance/services"
	"github.com/ichacara/attendance/utils"
)

const statusCacheKey = "cache:checkin:status"

// CheckinController exposes the check-in engine over HTTP.
type CheckinController struct {
	svc      *services.CheckinService
	broker   *services.TokenBroker
	users    *repository.UserRepo
	checkins *repository.CheckinRepo
}

// NewCheckinController creates a CheckinController.
func NewCheckinController(svc *services.CheckinService, broker *services.TokenBroker, users *repository.UserRepo, checkins *repository.CheckinRepo) *CheckinController {
	return &CheckinController{svc: svc, broker: broker, users: users, checkins: checkins}
}

// Create records today's check-in for the authenticated member.
func (c *CheckinController) Create(ctx *gin.Context) {
	userID, ok := getUserID(ctx)
	if !ok {
		utils.Error(ctx, http.StatusUnauthorized, 40110, "unauthorized")
		return
	}

	rec, err := c.svc.Create(ctx.Request.Context(), userID)
	if err != nil {
		if errors.Is(err, services.ErrAlreadyCheckedIn) {
			utils.Error(ctx, http.StatusBadRequest, 40030, "already checked in today")
			return
		}
		utils.Sugar.Errorf("check-in create failed for user %d: %v", userID, err)
		utils.Error(ctx, http.StatusInternalServerError, 50060, "failed to record check-in")
		return
	}

	utils.InvalidateByPrefix(statusCacheKey)
	utils.Success(ctx, rec)
}

// ListMonth returns every check-in of the current calendar month.
func (c *CheckinController) ListMonth(ctx *gin.Context) {
	recs, err := c.svc.MonthCheckins(ctx.Request.Context())
	if err != nil {
		utils.Sugar.Errorf("month check-in listing failed: %v", err)
		utils.Error(ctx, http.StatusInternalServerError, 50061, "failed to list check-ins")
		return
	}
	utils.Success(ctx, recs)
}

// Streak returns the member's consecutive-day check-in streak.
func (c *CheckinController) Streak(ctx *gin.Context) {
	id, ok := parseIDParam(ctx)
	if !ok {
		return
	}

	streak, err := c.svc.Streak(ctx.Request.Context(), id)
	if err != nil {
		utils.Sugar.Errorf("streak query failed for user %d: %v", id, err)
		utils.Error(ctx, http.StatusInternalServerError, 50062, "failed to compute streak")
		return
	}
	utils.Success(ctx, streak)
}

// IdleStreak returns the member's missed-weekday count, or null for members
// with no check-in history.
func (c *CheckinController) IdleStreak(ctx *gin.Context) {
	id, ok := parseIDParam(ctx)
	if !ok {
		return
	}

	idle, err := c.svc.IdleStreak(ctx.Request.Context(), id)
	if err != nil {
		utils.Sugar.Errorf("idle streak query failed for user %d: %v", id, err)
		utils.Error(ctx, http.StatusInternalServerError, 50063, "failed to compute idle streak")
		return
	}
	// Respond with an explicit null when the member never checked in.
	if idle == nil {
		utils.Respond(ctx, http.StatusOK, 0, "success", nil)
		return
	}
	utils.Success(ctx, *idle)
}

// QrCode issues (or re-serves) the live confirmation token, encoded.
func (c *CheckinController) QrCode(ctx *gin.Context) {
	encoded, err := c.broker.Issue(ctx.Request.Context())
	if err != nil {
		utils.Sugar.Errorf("qr code issuance failed: %v", err)
		utils.Error(ctx, http.StatusInternalServerError, 50064, "failed to issue qr code")
		return
	}
	utils.Success(ctx, gin.H{"qrcode": encoded})
}

// Confirm validates the presented token and marks the check-in confirmed.
// An invalid or expired token is an expected protocol outcome, not an error.
func (c *CheckinController) Confirm(ctx *gin.Context) {
	encoded := strings.TrimSpace(ctx.Query("encodedQrCode"))
	rawID := strings.TrimSpace(ctx.Query("checkInId"))
	checkInID, err := strconv.ParseUint(rawID, 10, 64)
	if encoded == "" || err != nil || checkInID == 0 {
		utils.Error(ctx, http.StatusBadRequest, 40031, "missing or invalid confirmation parameters")
		return
	}

	confirmed, err := c.broker.Confirm(ctx.Request.Context(), encoded, uint(checkInID))
	if err != nil {
		if errors.Is(err, services.ErrNotFound) {
			utils.Error(ctx, http.StatusNotFound, 40411, "check-in not found")
			return
		}
		utils.Sugar.Errorf("check-in confirm failed for record %d: %v", checkInID, err)
		utils.Error(ctx, http.StatusInternalServerError, 50065, "failed to confirm check-in")
		return
	}

	if confirmed {
		utils.InvalidateByPrefix(statusCacheKey)
	}
	utils.Success(ctx, gin.H{"confirmed": confirmed})
}

// memberStatus pairs a member with their most recent check-in.
type memberStatus struct {
	User        models.User     `json:"user"`
	LastCheckin *models.CheckIn `json:"last_checkin"`
}

// Status lists tracked members together with their most recent check-in.
// The response is cached briefly and invalidated on check-in mutations.
func (c *CheckinController) Status(ctx *gin.Context) {
	if b, ok := utils.CacheGetBytes(statusCacheKey); ok {
		ctx.Data(http.StatusOK, "application/json", b)
		return
	}

	users, err := c.users.ListByStatus(ctx.Request.Context(), []string{
		models.StatusWaiting, models.StatusActive, models.StatusInactive,
	})
	if err != nil {
		utils.Sugar.Errorf("status listing failed: %v", err)
		utils.Error(ctx, http.StatusInternalServerError, 50066, "failed to list members")
		return
	}

	items := make([]memberStatus, 0, len(users))
	for _, user := range users {
		last, err := c.checkins.Last(ctx.Request.Context(), user.ID)
		if err != nil {
			utils.Sugar.Errorf("status listing: last check-in for user %d failed: %v", user.ID, err)
			utils.Error(ctx, http.StatusInternalServerError, 50066, "failed to list members")
			return
		}
		items = append(items, memberStatus{User: user, LastCheckin: last})
	}

	wrapper := utils.JSONResponse{Code: 0, Message: "success", Data: items}
	utils.CacheSetJSON(statusCacheKey, wrapper, 5*time.Minute)
	utils.Success(ctx, items)
}
