package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"storyverse/internal/domain"
	"storyverse/internal/payment"
)

type createOrderRequest struct {
	Amount int64 `json:"amount" binding:"required,gt=0,lte=100000000"`
}

// receiptFields are the names the hosted checkout widget uses.
type receiptFields struct {
	OrderID   string `json:"razorpay_order_id" binding:"required"`
	PaymentID string `json:"razorpay_payment_id" binding:"required"`
	Signature string `json:"razorpay_signature" binding:"required"`
}

func (r receiptFields) receipt() payment.Receipt {
	return payment.Receipt{OrderID: r.OrderID, PaymentID: r.PaymentID, Signature: r.Signature}
}

type recordPurchaseRequest struct {
	UserID string `json:"userId" binding:"required"`
	BookID string `json:"bookId" binding:"required"`
	receiptFields
}

type verifyMembershipRequest struct {
	UserID   string `json:"userId" binding:"required"`
	PlanType string `json:"planType" binding:"required,oneof=Scholar Keeper"`
	receiptFields
}

type claimPremiumRequest struct {
	UserID string `json:"userId" binding:"required"`
	BookID string `json:"bookId" binding:"required"`
}

func (h *Handler) createOrder(c *gin.Context) {
	var req createOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	order, err := h.entitlements.CreateChargeIntent(c.Request.Context(), callerID(c), req.Amount)
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, OrderResponse{
		ID:       order.ID,
		Amount:   order.Amount,
		Currency: order.Currency,
		Receipt:  order.Receipt,
	})
}

func (h *Handler) recordPurchase(c *gin.Context) {
	var req recordPurchaseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	if !requireSelf(c, req.UserID) {
		return
	}

	if err := h.entitlements.Purchase(c.Request.Context(), req.UserID, req.BookID, req.receipt()); err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, okBody(nil))
}

func (h *Handler) verifyMembership(c *gin.Context) {
	var req verifyMembershipRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	if !requireSelf(c, req.UserID) {
		return
	}

	plan, _ := domain.ParsePlanType(req.PlanType)
	if err := h.entitlements.ActivateMembership(c.Request.Context(), req.UserID, plan, req.receipt()); err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, okBody(nil))
}

func (h *Handler) claimPremium(c *gin.Context) {
	var req claimPremiumRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	if !requireSelf(c, req.UserID) {
		return
	}

	if err := h.entitlements.ClaimPremium(c.Request.Context(), req.UserID, req.BookID); err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, okBody(nil))
}
