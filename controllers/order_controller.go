package controllers

import (
	"strconv"

	"barorder/entity"
	"barorder/pkg/resp"
	"barorder/repository"
	"barorder/services"
	"barorder/utils"

	"github.com/gin-gonic/gin"
)

// OrderController is the customer-facing surface: place, track, cancel.
type OrderController struct {
	Svc    *services.OrderLifecycleService
	Orders *repository.OrderRepository
}

func NewOrderController(svc *services.OrderLifecycleService, orders *repository.OrderRepository) *OrderController {
	return &OrderController{Svc: svc, Orders: orders}
}

// POST /orders
func (oc *OrderController) Create(c *gin.Context) {
	uid := utils.CurrentUserID(c)

	var req services.PlaceOrderIn
	if err := c.ShouldBindJSON(&req); err != nil {
		resp.BadRequest(c, err.Error())
		return
	}

	snap, err := oc.Svc.PlaceOrder(c.Request.Context(), uid, &req)
	if err != nil {
		resp.Error(c, err)
		return
	}
	resp.Created(c, snap)
}

// GET /orders/:id
func (oc *OrderController) Detail(c *gin.Context) {
	snap, ok := oc.loadOwned(c)
	if !ok {
		return
	}
	resp.OK(c, snap)
}

// GET /orders/:id/history
func (oc *OrderController) History(c *gin.Context) {
	snap, ok := oc.loadOwned(c)
	if !ok {
		return
	}
	rows, err := oc.Svc.History(c.Request.Context(), snap.ID)
	if err != nil {
		resp.Error(c, err)
		return
	}
	resp.OK(c, rows)
}

// POST /orders/:id/cancel, accepted only while the order is still
// pending and inside the grace window.
func (oc *OrderController) Cancel(c *gin.Context) {
	snap, ok := oc.loadOwned(c)
	if !ok {
		return
	}
	out, err := oc.Svc.RequestTransition(c.Request.Context(), snap.ID, entity.StatusCancelled, entity.ActorCustomer, "cancelled by customer")
	if err != nil {
		resp.Error(c, err)
		return
	}
	resp.OK(c, out)
}

// GET /profile/orders
func (oc *OrderController) ListForMe(c *gin.Context) {
	uid := utils.CurrentUserID(c)
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	rows, err := oc.Orders.ListOrdersForUser(c.Request.Context(), uid, limit)
	if err != nil {
		resp.ServerError(c, err)
		return
	}
	resp.OK(c, rows)
}

// loadOwned resolves :id and checks the caller owns the order (admins may
// read anything).
func (oc *OrderController) loadOwned(c *gin.Context) (*services.OrderSnapshot, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		resp.BadRequest(c, "invalid order id")
		return nil, false
	}
	snap, err := oc.Svc.Snapshot(c.Request.Context(), uint(id))
	if err != nil {
		resp.Error(c, err)
		return nil, false
	}
	if snap.UserID != utils.CurrentUserID(c) && utils.CurrentRole(c) != "admin" {
		resp.Forbidden(c, "forbidden")
		return nil, false
	}
	return snap, true
}
