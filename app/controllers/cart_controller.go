package controllers

import (
	"context"
	"net/http"
	"strconv"

	"github.com/modera-shop/modera/app/services"
	"github.com/modera-shop/modera/pkg/ctx"
	"github.com/modera-shop/modera/pkg/middleware"
)

// AppliedHeader tells the client whether its command changed the cart or
// was discarded as already seen.
const AppliedHeader = "X-Cart-Applied"

type CartController struct {
	carts *services.CartService
}

func NewCartController(carts *services.CartService) *CartController {
	return &CartController{carts: carts}
}

type cartRequest struct {
	ItemID   flexID `json:"itemId"   validate:"required,max=20"`
	ClientID string `json:"clientId" validate:"nullable,alpha_dash,max=64"`
	Seq      int64  `json:"seq"      validate:"gte=0"`
}

type cartOp func(ctx context.Context, accountID string, cmd services.CartCommand) (services.CartResult, error)

func (cc *CartController) Add(c *ctx.Context) { cc.adjust(c, cc.carts.Increment) }

func (cc *CartController) Remove(c *ctx.Context) { cc.adjust(c, cc.carts.Decrement) }

func (cc *CartController) adjust(c *ctx.Context, op cartOp) {
	accountID, _ := middleware.AccountID(c.Context())

	var in cartRequest
	if !c.BindJSON(&in) {
		return
	}
	if in.ClientID != "" && in.Seq <= 0 {
		c.ValidationError(map[string]string{"seq": "The seq must be greater than 0."})
		return
	}

	res, err := op(c.Context(), accountID, services.CartCommand{
		ItemID:   in.ItemID.String(),
		ClientID: in.ClientID,
		Seq:      in.Seq,
	})
	if err != nil {
		fail(c, err)
		return
	}
	c.SetHeader(AppliedHeader, strconv.FormatBool(res.Applied))
	c.JSON(http.StatusOK, res.Cart)
}

// Get returns the full cart map.
func (cc *CartController) Get(c *ctx.Context) {
	accountID, _ := middleware.AccountID(c.Context())
	cart, err := cc.carts.Get(c.Context(), accountID)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, cart)
}
