package controllers

import (
	"strconv"

	"barorder/pkg/resp"
	"barorder/repository"

	"github.com/gin-gonic/gin"
)

// AdminController serves the fleet-wide aggregation view. Live updates
// arrive over the admin websocket feed; this is the resync path.
type AdminController struct {
	Orders *repository.OrderRepository
}

func NewAdminController(orders *repository.OrderRepository) *AdminController {
	return &AdminController{Orders: orders}
}

// GET /admin/orders?limit=
func (ac *AdminController) ListOrders(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "100"))
	rows, err := ac.Orders.ListRecent(c.Request.Context(), limit)
	if err != nil {
		resp.ServerError(c, err)
		return
	}
	resp.OK(c, rows)
}
