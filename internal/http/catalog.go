package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"storyverse/internal/domain"
)

type rateBookRequest struct {
	Rating *float64 `json:"rating" binding:"required,gte=0,lte=5"`
}

type progressRequest struct {
	Status string `json:"status" binding:"required,oneof=Reading Completed"`
}

type contactRequest struct {
	Name    string `json:"name" binding:"required"`
	Email   string `json:"email" binding:"required,email"`
	Subject string `json:"subject"`
	Message string `json:"message" binding:"required"`
}

func (h *Handler) listLibrary(c *gin.Context) {
	books, err := h.catalog.List(c.Request.Context())
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, okBody(gin.H{"books": booksToResponse(books)}))
}

func (h *Handler) getBook(c *gin.Context) {
	view, err := h.catalog.Get(c.Request.Context(), c.Param("id"), callerID(c))
	if err != nil {
		h.writeError(c, err)
		return
	}

	body := gin.H{"book": bookToResponse(view.Book)}
	if view.Decision != nil {
		body["decision"] = DecisionResponse{Kind: view.Decision.Kind, Price: view.Decision.Price}
	}
	c.JSON(http.StatusOK, okBody(body))
}

func (h *Handler) myCollection(c *gin.Context) {
	userID := c.Param("userId")
	if !requireSelf(c, userID) {
		return
	}

	books, err := h.catalog.Collection(c.Request.Context(), userID)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, okBody(gin.H{"books": booksToResponse(books)}))
}

func (h *Handler) readBook(c *gin.Context) {
	reading, err := h.catalog.Read(c.Request.Context(), callerID(c), c.Param("id"))
	if err != nil {
		h.writeError(c, err)
		return
	}

	body := gin.H{"book": bookToResponse(reading.Book)}
	if reading.ContentURL != "" {
		body["contentUrl"] = reading.ContentURL
	} else {
		body["content"] = reading.Content
	}
	c.JSON(http.StatusOK, okBody(body))
}

func (h *Handler) rateBook(c *gin.Context) {
	var req rateBookRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	book, err := h.catalog.Rate(c.Request.Context(), callerID(c), c.Param("id"), *req.Rating)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, okBody(gin.H{"book": bookToResponse(*book)}))
}

func (h *Handler) recordProgress(c *gin.Context) {
	var req progressRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	status := domain.ReadingStatus(req.Status)
	if err := h.progress.Record(c.Request.Context(), callerID(c), c.Param("bookId"), status); err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, okBody(nil))
}

func (h *Handler) listProgress(c *gin.Context) {
	progress, err := h.progress.List(c.Request.Context(), callerID(c))
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, okBody(gin.H{"progress": progress}))
}

func (h *Handler) submitContact(c *gin.Context) {
	var req contactRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	msg, err := h.contact.Submit(c.Request.Context(), req.Name, req.Email, req.Subject, req.Message)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, okBody(gin.H{"id": msg.ID}))
}
