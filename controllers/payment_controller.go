package controllers

import (
	"barorder/pkg/resp"
	"barorder/services"

	"github.com/gin-gonic/gin"
)

// PaymentController is the boundary to the opaque payment collaborator:
// the provider's callback is reduced to confirmed/failed and handed to
// the lifecycle as a system event.
type PaymentController struct {
	Svc *services.OrderLifecycleService
}

func NewPaymentController(svc *services.OrderLifecycleService) *PaymentController {
	return &PaymentController{Svc: svc}
}

type PaymentWebhook struct {
	OrderID uint   `json:"orderId" binding:"required"`
	Result  string `json:"result" binding:"required,oneof=confirmed failed"`
}

// POST /payments/webhook
func (pc *PaymentController) Webhook(c *gin.Context) {
	var req PaymentWebhook
	if err := c.ShouldBindJSON(&req); err != nil {
		resp.BadRequest(c, err.Error())
		return
	}

	var (
		snap *services.OrderSnapshot
		err  error
	)
	if req.Result == "confirmed" {
		snap, err = pc.Svc.HandlePaymentConfirmed(c.Request.Context(), req.OrderID)
	} else {
		snap, err = pc.Svc.HandlePaymentFailed(c.Request.Context(), req.OrderID)
	}
	if err != nil {
		resp.Error(c, err)
		return
	}
	resp.OK(c, snap)
}
