package controllers

import (
	"github.com/modera-shop/modera/pkg/ctx"
	"github.com/modera-shop/modera/pkg/logger"
	"github.com/modera-shop/modera/pkg/middleware"
	"github.com/modera-shop/modera/pkg/ws"
)

// StreamController upgrades GET /cart/stream to a websocket that receives
// the account's cart after every applied change.
type StreamController struct {
	hub *ws.Hub
}

func NewStreamController(hub *ws.Hub) *StreamController {
	return &StreamController{hub: hub}
}

func (sc *StreamController) Cart(c *ctx.Context) {
	accountID, _ := middleware.AccountID(c.Context())
	if err := sc.hub.Upgrade(c.W, c.R, accountID); err != nil {
		// the upgrader has already written the HTTP error
		logger.WithCtx(c.Context()).Warn("stream: upgrade failed", "error", err)
	}
}
