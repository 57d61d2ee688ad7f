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

// VendorOrderController is the live dashboard surface: list incoming
// orders and drive them through the lifecycle.
type VendorOrderController struct {
	Svc     *services.OrderLifecycleService
	Orders  *repository.OrderRepository
	Vendors *repository.VendorRepository
}

func NewVendorOrderController(svc *services.OrderLifecycleService, orders *repository.OrderRepository, vendors *repository.VendorRepository) *VendorOrderController {
	return &VendorOrderController{Svc: svc, Orders: orders, Vendors: vendors}
}

// GET /vendor/vendors/:id/orders?status=&page=&limit=
func (vc *VendorOrderController) List(c *gin.Context) {
	vendorID, ok := vc.ownedVendor(c)
	if !ok {
		return
	}

	var status *entity.FulfillmentStatus
	if s := c.Query("status"); s != "" {
		fs := entity.FulfillmentStatus(s)
		if !fs.Valid() {
			resp.BadRequest(c, "unknown status filter")
			return
		}
		status = &fs
	}
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))

	items, total, err := vc.Orders.ListOrdersForVendor(c.Request.Context(), vendorID, status, page, limit)
	if err != nil {
		resp.ServerError(c, err)
		return
	}
	resp.OK(c, gin.H{"items": items, "total": total, "page": page, "limit": limit})
}

type TransitionRequest struct {
	Status entity.FulfillmentStatus `json:"status" binding:"required"`
	Note   string                   `json:"note"`
}

// PATCH /vendor/orders/:id/status
func (vc *VendorOrderController) Transition(c *gin.Context) {
	orderID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		resp.BadRequest(c, "invalid order id")
		return
	}

	var req TransitionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		resp.BadRequest(c, err.Error())
		return
	}

	snap, err := vc.Svc.Snapshot(c.Request.Context(), uint(orderID))
	if err != nil {
		resp.Error(c, err)
		return
	}
	owns, err := vc.Vendors.IsOwnedBy(c.Request.Context(), snap.VendorID, utils.CurrentUserID(c))
	if err != nil {
		resp.ServerError(c, err)
		return
	}
	if !owns && utils.CurrentRole(c) != "admin" {
		resp.Forbidden(c, "forbidden")
		return
	}

	out, err := vc.Svc.RequestTransition(c.Request.Context(), uint(orderID), req.Status, entity.ActorVendor, req.Note)
	if err != nil {
		resp.Error(c, err)
		return
	}
	resp.OK(c, out)
}

// ownedVendor resolves :id and verifies the caller owns that vendor.
func (vc *VendorOrderController) ownedVendor(c *gin.Context) (uint, bool) {
	vendorID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		resp.BadRequest(c, "invalid vendor id")
		return 0, false
	}
	owns, err := vc.Vendors.IsOwnedBy(c.Request.Context(), uint(vendorID), utils.CurrentUserID(c))
	if err != nil {
		resp.ServerError(c, err)
		return 0, false
	}
	if !owns && utils.CurrentRole(c) != "admin" {
		resp.Forbidden(c, "forbidden")
		return 0, false
	}
	return uint(vendorID), true
}
