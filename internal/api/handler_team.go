package api

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"taskmate/internal/model"
	"taskmate/internal/repository"
	"taskmate/pkg/rbac"
)

// RoleLookup 查询用户在团队中的角色，不是成员时返回 repository.ErrNotFound
type RoleLookup interface {
	GetRole(ctx context.Context, teamID, userID int) (string, error)
}

type TeamStore interface {
	RoleLookup
	CreateWithOwner(ctx context.Context, userID int, name string) (*model.Team, error)
	ListMemberships(ctx context.Context, userID int) ([]model.Membership, error)
	AddMember(ctx context.Context, teamID, userID int, role string) error
}

type TeamHandler struct {
	teams  TeamStore
	logger *zap.Logger
}

func NewTeamHandler(teams TeamStore, logger *zap.Logger) *TeamHandler {
	return &TeamHandler{teams: teams, logger: logger}
}

// List handles GET /teams
func (h *TeamHandler) List(c *gin.Context) {
	userID, ok := getUserID(c)
	if !ok {
		return
	}

	memberships, err := h.teams.ListMemberships(c.Request.Context(), userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list teams"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"teams": memberships})
}

// Create handles POST /teams
func (h *TeamHandler) Create(c *gin.Context) {
	userID, ok := getUserID(c)
	if !ok {
		return
	}

	var req struct {
		Name string `json:"name" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil || strings.TrimSpace(req.Name) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}

	team, err := h.teams.CreateWithOwner(c.Request.Context(), userID, strings.TrimSpace(req.Name))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create team"})
		return
	}
	c.JSON(http.StatusCreated, gin.H{"team": team})
}

// AddMember handles POST /teams/:id/members，仅 owner / admin 可用
func (h *TeamHandler) AddMember(c *gin.Context) {
	userID, ok := getUserID(c)
	if !ok {
		return
	}
	teamID, ok := pathID(c, "id")
	if !ok {
		return
	}

	var req struct {
		UserID int    `json:"user_id" binding:"required"`
		Role   string `json:"role"`
	}
	if err := c.ShouldBindJSON(&req); err != nil || req.UserID <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}
	if req.Role == "" {
		req.Role = rbac.RoleMember
	}
	// owner 只能在创建团队时产生
	if !rbac.ValidRole(req.Role) || req.Role == rbac.RoleOwner {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid role"})
		return
	}

	ctx := c.Request.Context()
	role, err := h.teams.GetRole(ctx, teamID, userID)
	if errors.Is(err, repository.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "team not found"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to check team"})
		return
	}
	if err := rbac.CheckPermission(role, rbac.PermissionAddMember); err != nil {
		h.logger.Info("Add member denied",
			zap.Int("team_id", teamID),
			zap.Int("user_id", userID),
			zap.String("role", role),
		)
		c.JSON(http.StatusForbidden, gin.H{"error": err.Error()})
		return
	}

	if err := h.teams.AddMember(ctx, teamID, req.UserID, req.Role); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to add member"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"team_id": teamID, "user_id": req.UserID, "role": req.Role})
}
