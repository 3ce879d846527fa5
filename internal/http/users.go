package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"storyverse/internal/auth"
)

type registerRequest struct {
	Name     string `json:"name" binding:"required"`
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

type loginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type updateUserRequest struct {
	Name  string `json:"name" binding:"required"`
	Email string `json:"email" binding:"required,email"`
}

func (h *Handler) register(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	user, err := h.users.Register(c.Request.Context(), req.Name, req.Email, req.Password)
	if err != nil {
		h.writeError(c, err)
		return
	}
	h.log.WithField("user_id", user.ID).Info("user registered")
	c.JSON(http.StatusCreated, okBody(gin.H{"user": userToResponse(user)}))
}

func (h *Handler) login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	user, err := h.users.Authenticate(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		h.writeError(c, err)
		return
	}

	token, err := auth.GenerateToken(user.ID, h.jwtSecret, h.tokenTTL)
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, okBody(gin.H{
		"token": token,
		"user": LoginUserResponse{
			ID:       user.ID,
			Name:     user.Name,
			Plan:     user.PlanType,
			IsMember: user.IsMember,
		},
	}))
}

func (h *Handler) getUser(c *gin.Context) {
	id := c.Param("id")
	if !requireSelf(c, id) {
		return
	}

	user, err := h.users.GetByID(c.Request.Context(), id)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, okBody(gin.H{"user": userToResponse(user)}))
}

func (h *Handler) updateUser(c *gin.Context) {
	id := c.Param("id")
	if !requireSelf(c, id) {
		return
	}

	var req updateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	user, err := h.users.UpdateProfile(c.Request.Context(), id, req.Name, req.Email)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, okBody(gin.H{"user": userToResponse(user)}))
}
