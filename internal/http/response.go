package http

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"storyverse/internal/domain"
	"storyverse/internal/service"
)

func okBody(extra gin.H) gin.H {
	body := gin.H{"status": "ok"}
	for k, v := range extra {
		body[k] = v
	}
	return body
}

func errorBody(message string) gin.H {
	return gin.H{"status": "error", "message": message}
}

func badRequest(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, errorBody("invalid request: "+err.Error()))
}

var kindStatus = map[service.Kind]int{
	service.KindInvalid:             http.StatusBadRequest,
	service.KindNotFound:            http.StatusNotFound,
	service.KindUnauthenticated:     http.StatusUnauthorized,
	service.KindUnauthorized:        http.StatusForbidden,
	service.KindConflict:            http.StatusConflict,
	service.KindVerificationFailed:  http.StatusBadRequest,
	service.KindUpstreamTimeout:     http.StatusGatewayTimeout,
	service.KindUpstreamUnavailable: http.StatusBadGateway,
}

// writeError maps a service error to a status code and a terse message.
// Verification failures never say which check failed.
func (h *Handler) writeError(c *gin.Context, err error) {
	kind := service.KindOf(err)
	status, ok := kindStatus[kind]
	if !ok {
		status = http.StatusInternalServerError
	}

	var message string
	switch {
	case kind == service.KindInternal:
		h.log.WithField("path", c.Request.URL.Path).WithError(err).Error("request failed")
		message = "internal error"
	case errors.Is(err, service.ErrInvalidSignature):
		message = "Invalid Signature"
	case kind == service.KindVerificationFailed:
		message = "Payment could not be verified"
	case errors.Is(err, service.ErrNotAMember):
		message = "Not a member"
	default:
		message = err.Error()
	}
	c.JSON(status, errorBody(message))
}

type BookResponse struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Author    string    `json:"author"`
	CoverURL  string    `json:"coverUrl,omitempty"`
	Price     int64     `json:"price"`
	IsPremium bool      `json:"isPremium"`
	Rating    float64   `json:"rating"`
	Reads     int64     `json:"reads"`
	CreatedAt time.Time `json:"createdAt"`
}

type DecisionResponse struct {
	Kind  domain.DecisionKind `json:"kind"`
	Price int64               `json:"price,omitempty"`
}

type PaymentResponse struct {
	OrderID   string             `json:"orderId"`
	PaymentID string             `json:"paymentId"`
	Kind      domain.PaymentKind `json:"kind"`
	Subject   string             `json:"subject"`
	Timestamp time.Time          `json:"timestamp"`
}

type UserResponse struct {
	ID             string            `json:"id"`
	Name           string            `json:"name"`
	Email          string            `json:"email"`
	IsMember       bool              `json:"isMember"`
	PlanType       domain.PlanType   `json:"planType"`
	PurchasedBooks []string          `json:"purchasedBooks"`
	PaymentHistory []PaymentResponse `json:"paymentHistory"`
	CreatedAt      time.Time         `json:"createdAt"`
}

// LoginUserResponse is the compact user shape returned at login.
type LoginUserResponse struct {
	ID       string          `json:"id"`
	Name     string          `json:"name"`
	Plan     domain.PlanType `json:"plan"`
	IsMember bool            `json:"isMember"`
}

type OrderResponse struct {
	ID       string `json:"id"`
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
	Receipt  string `json:"receipt,omitempty"`
}

func bookToResponse(b domain.Book) BookResponse {
	return BookResponse{
		ID:        b.ID,
		Title:     b.Title,
		Author:    b.Author,
		CoverURL:  b.CoverURL,
		Price:     b.Price,
		IsPremium: b.IsPremium,
		Rating:    b.Rating,
		Reads:     b.Reads,
		CreatedAt: b.CreatedAt,
	}
}

func booksToResponse(books []domain.Book) []BookResponse {
	resp := make([]BookResponse, len(books))
	for i := range books {
		resp[i] = bookToResponse(books[i])
	}
	return resp
}

func userToResponse(u *domain.User) UserResponse {
	history := make([]PaymentResponse, len(u.PaymentHistory))
	for i, p := range u.PaymentHistory {
		history[i] = PaymentResponse{
			OrderID:   p.OrderID,
			PaymentID: p.PaymentID,
			Kind:      p.Kind,
			Subject:   p.Subject,
			Timestamp: p.PaidAt,
		}
	}
	books := u.PurchasedBooks
	if books == nil {
		books = []string{}
	}
	return UserResponse{
		ID:             u.ID,
		Name:           u.Name,
		Email:          u.Email,
		IsMember:       u.IsMember,
		PlanType:       u.PlanType,
		PurchasedBooks: books,
		PaymentHistory: history,
		CreatedAt:      u.CreatedAt,
	}
}
