package ws

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"barorder/bus"
	"barorder/repository"
	"barorder/services"
	"barorder/utils"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// Frame is the wire envelope. A "snapshot" frame opens every order
// subscription; "event" frames follow; a "resync" frame means the
// subscriber fell behind and must reconnect and refetch the snapshot.
type Frame struct {
	Type string `json:"type"` // snapshot | event | resync
	Data any    `json:"data,omitempty"`
}

// OrderFeed serves the subscriber transport for all three observer
// classes: customer tracking, vendor dashboard, admin aggregation.
type OrderFeed struct {
	Svc     *services.OrderLifecycleService
	Vendors *repository.VendorRepository
	Lg      *slog.Logger
}

func NewOrderFeed(svc *services.OrderLifecycleService, vendors *repository.VendorRepository, lg *slog.Logger) *OrderFeed {
	if lg == nil {
		lg = slog.Default()
	}
	return &OrderFeed{Svc: svc, Vendors: vendors, Lg: lg}
}

// WS /ws/orders/:id serves the customer tracking screen (owner or admin).
func (f *OrderFeed) HandleOrder(c *gin.Context) {
	orderID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid order id"})
		return
	}

	snap, err := f.Svc.Snapshot(c.Request.Context(), uint(orderID))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "order not found"})
		return
	}
	uid := utils.CurrentUserID(c)
	role := utils.CurrentRole(c)
	allowed := snap.UserID == uid || role == "admin"
	if !allowed {
		// the vendor fulfilling the order may watch it too
		owns, err := f.Vendors.IsOwnedBy(c.Request.Context(), snap.VendorID, uid)
		allowed = err == nil && owns
	}
	if !allowed {
		c.JSON(http.StatusForbidden, gin.H{"error": "no access"})
		return
	}

	// register before the snapshot read so nothing committed in between
	// is missed; the handle already queues it
	h, snap, err := f.Svc.SubscribeOrder(c.Request.Context(), uint(orderID))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "order not found"})
		return
	}
	f.serve(c, h, snap)
}

// WS /ws/vendors/:id serves the live dashboard (vendor owner or admin).
func (f *OrderFeed) HandleVendor(c *gin.Context) {
	vendorID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid vendor id"})
		return
	}
	uid := utils.CurrentUserID(c)
	if utils.CurrentRole(c) != "admin" {
		owns, err := f.Vendors.IsOwnedBy(c.Request.Context(), uint(vendorID), uid)
		if err != nil || !owns {
			c.JSON(http.StatusForbidden, gin.H{"error": "no access"})
			return
		}
	}
	h := f.Svc.SubscribeKey(bus.VendorKey(uint(vendorID)))
	f.serve(c, h, nil)
}

// WS /ws/admin serves the fleet-wide feed, admin only.
func (f *OrderFeed) HandleAdmin(c *gin.Context) {
	if utils.CurrentRole(c) != "admin" {
		c.JSON(http.StatusForbidden, gin.H{"error": "no access"})
		return
	}
	h := f.Svc.SubscribeKey(bus.AdminKey)
	f.serve(c, h, nil)
}

// serve upgrades the connection and pumps events until either side goes
// away. Unsubscribe on every exit path; it is idempotent.
func (f *OrderFeed) serve(c *gin.Context, h *bus.Handle, snap *services.OrderSnapshot) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		f.Svc.Unsubscribe(h)
		f.Lg.Error("ws upgrade failed", "err", err)
		return
	}
	defer func() {
		f.Svc.Unsubscribe(h)
		conn.Close()
	}()

	// reader: we expect no frames from the client, but reads drive pong
	// handling and connection-loss detection
	done := make(chan struct{})
	conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	go func() {
		defer close(done)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	if snap != nil {
		if err := f.write(conn, Frame{Type: "snapshot", Data: snap}); err != nil {
			return
		}
	}

	ping := time.NewTicker(pingPeriod)
	defer ping.Stop()

	for {
		select {
		case evt, ok := <-h.Events():
			if !ok {
				// dropped on overflow; tell the client to resync
				_ = f.write(conn, Frame{Type: "resync"})
				return
			}
			if err := f.write(conn, Frame{Type: "event", Data: evt}); err != nil {
				return
			}
		case <-ping.C:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-done:
			return
		}
	}
}

func (f *OrderFeed) write(conn *websocket.Conn, frame Frame) error {
	payload, err := json.Marshal(frame)
	if err != nil {
		return err
	}
	conn.SetWriteDeadline(time.Now().Add(writeWait))
	return conn.WriteMessage(websocket.TextMessage, payload)
}
