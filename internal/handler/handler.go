package handler

import (
	"strconv"

	"realestate/internal/logger"
	"realestate/internal/service"
	"realestate/pkg/response"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Handler holds every service the API exposes.
type Handler struct {
	auth     *service.AuthService
	users    *service.UserService
	points   *service.PointService
	market   *service.MarketService
	wallets  *service.WalletService
	activity *service.ActivityService
}

type Services struct {
	Auth     *service.AuthService
	Users    *service.UserService
	Points   *service.PointService
	Market   *service.MarketService
	Wallets  *service.WalletService
	Activity *service.ActivityService
}

func NewHandler(s Services) *Handler {
	return &Handler{
		auth:     s.Auth,
		users:    s.Users,
		points:   s.Points,
		market:   s.Market,
		wallets:  s.Wallets,
		activity: s.Activity,
	}
}

// fail writes err as an envelope. Errors without a status are logged.
func fail(c *gin.Context, err error) {
	if response.FromError(c, err) {
		logger.ErrorCtx(c.Request.Context(), err,
			zap.String("method", c.Request.Method),
			zap.String("path", c.FullPath()),
			zap.Int64("user_id", userIDFrom(c)))
	}
}

func bindJSON(c *gin.Context, req interface{}) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		response.ParamError(c, err.Error())
		return false
	}
	return true
}

func bindQuery(c *gin.Context, req interface{}) bool {
	if err := c.ShouldBindQuery(req); err != nil {
		response.ParamError(c, err.Error())
		return false
	}
	return true
}

// pageQuery is the paging part of list endpoints keyed by an NFT.
type pageQuery struct {
	NFTID int64 `form:"NFTId" binding:"required"`
	Page  int   `form:"page"`
	Limit int   `form:"limit"`
}

func writePage[T any](c *gin.Context, message string, p *service.Paged[T]) {
	response.Page(c, message, p.Items, len(p.Items), p.Page, p.Limit, p.Total)
}

// ============================================================================
// Auth and users
// ============================================================================

// Register
// POST /api/v1/auth/register
func (h *Handler) Register(c *gin.Context) {
	var req service.RegisterRequest
	if !bindJSON(c, &req) {
		return
	}
	user, err := h.auth.Register(c.Request.Context(), &req)
	if err != nil {
		fail(c, err)
		return
	}
	response.Created(c, service.MsgRegisterOK, user)
}

// Login
// POST /api/v1/auth/login
func (h *Handler) Login(c *gin.Context) {
	var req service.LoginRequest
	if !bindJSON(c, &req) {
		return
	}
	token, err := h.auth.Login(c.Request.Context(), &req)
	if err != nil {
		fail(c, err)
		return
	}
	response.Success(c, service.MsgLoginOK, token)
}

// GetProfile
// GET /api/v1/user/information
func (h *Handler) GetProfile(c *gin.Context) {
	profile, err := h.users.GetProfile(c.Request.Context(), userIDFrom(c))
	if err != nil {
		fail(c, err)
		return
	}
	response.Success(c, service.MsgProfileOK, profile)
}

type leaderboardQuery struct {
	PointType string `form:"pointType"`
	Limit     int    `form:"limit"`
}

// Leaderboard
// GET /api/v1/user/leaderboard/points?pointType=agent&limit=10
func (h *Handler) Leaderboard(c *gin.Context) {
	var q leaderboardQuery
	if !bindQuery(c, &q) {
		return
	}
	entries, err := h.points.Leaderboard(c.Request.Context(), q.PointType, q.Limit)
	if err != nil {
		fail(c, err)
		return
	}
	response.Success(c, service.MsgLeaderboardOK, entries)
}

// ============================================================================
// Activity
// ============================================================================

// ListActivities
// GET /api/v1/activity?types=TransferToken&page=1&limit=10
func (h *Handler) ListActivities(c *gin.Context) {
	var q service.ActivityQuery
	if !bindQuery(c, &q) {
		return
	}
	page, err := h.activity.ListActivities(c.Request.Context(), userIDFrom(c), &q)
	if err != nil {
		fail(c, err)
		return
	}
	writePage(c, service.MsgActivityListOK, page)
}

// ActivityDetail
// GET /api/v1/activity/:id
func (h *Handler) ActivityDetail(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		response.ParamError(c, "id must be a number")
		return
	}
	activity, err := h.activity.ActivityDetail(c.Request.Context(), id)
	if err != nil {
		fail(c, err)
		return
	}
	response.Success(c, service.MsgActivityDetailOK, activity)
}
