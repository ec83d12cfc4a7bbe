// Package feed pushes order and payment events to connected vendors over
// websockets. Events arrive from RabbitMQ and fan out to the vendor's
// live connection, keyed "vendor_<id>".
package feed

import (
	"context"
	"fmt"
	"net/http"

	gorilla "github.com/gorilla/websocket"

	"github.com/Bobybuu/zeno-speedy-services-sub001/internal/common/auth"
	"github.com/Bobybuu/zeno-speedy-services-sub001/internal/common/logger"
	"github.com/Bobybuu/zeno-speedy-services-sub001/internal/common/mq"
	"github.com/Bobybuu/zeno-speedy-services-sub001/internal/common/websocket"
	vendormodel "github.com/Bobybuu/zeno-speedy-services-sub001/internal/vendors/model"
)

type VendorResolver interface {
	GetByUserID(ctx context.Context, userID int64) (vendormodel.Vendor, error)
}

type Feed struct {
	hub      *websocket.Hub
	rabbit   *mq.RabbitMQ
	vendors  VendorResolver
	upgrader gorilla.Upgrader
}

func NewFeed(hub *websocket.Hub, rabbit *mq.RabbitMQ, vendors VendorResolver) *Feed {
	return &Feed{
		hub:     hub,
		rabbit:  rabbit,
		vendors: vendors,
		upgrader: gorilla.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
	}
}

func clientID(vendorID string) string {
	return "vendor_" + vendorID
}

// Start begins consuming the vendor event queue and relaying each event
// to the vendor's websocket, if connected.
func (f *Feed) Start() error {
	return f.rabbit.ConsumeVendorEvents("vendor_feed", func(vendorID string, body []byte) {
		if !f.hub.SendToClient(clientID(vendorID), body) {
			logger.Debug("vendor_feed", fmt.Sprintf("vendor %s offline, event dropped", vendorID), "", "")
		}
	})
}

// Handle upgrades an authenticated vendor's request to a websocket and
// registers it with the hub.
func (f *Feed) Handle(w http.ResponseWriter, r *http.Request) {
	claims := auth.FromContext(r)
	if claims == nil {
		http.Error(w, "authentication required", http.StatusUnauthorized)
		return
	}

	vendor, err := f.vendors.GetByUserID(r.Context(), claims.UserID)
	if err != nil {
		http.Error(w, "vendor profile required", http.StatusForbidden)
		return
	}

	conn, err := f.upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Warn("vendor_feed", "websocket upgrade failed", "", "", err.Error())
		return
	}

	id := clientID(fmt.Sprint(vendor.ID))
	client := websocket.NewClient(id, conn)
	f.hub.AddClient(client)
	logger.Info("vendor_feed", fmt.Sprintf("vendor %d connected", vendor.ID), "", "")

	go client.WritePump()

	// Reads keep the connection's close/ping handling alive; inbound
	// frames are ignored.
	go func() {
		defer f.hub.RemoveClient(id)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()
}

func (f *Feed) RegisterRoutes(mux *http.ServeMux, middleware *auth.Middleware) {
	mux.HandleFunc("/api/vendors/feed/", middleware.Require(f.Handle))
}
