package controllers

import (
	"net/http"
	"strconv"

	"github.com/modera-shop/modera/app/services"
	"github.com/modera-shop/modera/pkg/ctx"
)

type CatalogController struct {
	catalog *services.CatalogService
}

func NewCatalogController(catalog *services.CatalogService) *CatalogController {
	return &CatalogController{catalog: catalog}
}

// Home answers GET / with a plain health line.
func (cc *CatalogController) Home(c *ctx.Context) {
	c.String(http.StatusOK, "Modera API is running")
}

func (cc *CatalogController) All(c *ctx.Context) {
	products, err := cc.catalog.All(c.Context(), c.Origin())
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, products)
}

func (cc *CatalogController) NewCollection(c *ctx.Context) {
	products, err := cc.catalog.NewCollection(c.Context(), c.Origin())
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, products)
}

func (cc *CatalogController) PopularInWomen(c *ctx.Context) {
	products, err := cc.catalog.PopularInWomen(c.Context(), c.Origin())
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, products)
}

func (cc *CatalogController) Add(c *ctx.Context) {
	var in services.AddProductInput
	if !c.BindJSON(&in) {
		return
	}
	p, err := cc.catalog.Add(c.Context(), in)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, map[string]any{"success": true, "name": p.Name, "id": p.ID})
}

type removeProductRequest struct {
	ID   flexID `json:"id"   validate:"required"`
	Name string `json:"name"`
}

func (cc *CatalogController) Remove(c *ctx.Context) {
	var in removeProductRequest
	if !c.BindJSON(&in) {
		return
	}
	id, err := strconv.Atoi(in.ID.String())
	if err != nil {
		c.ValidationError(map[string]string{"id": "The id must be a number."})
		return
	}
	if err := cc.catalog.Remove(c.Context(), id); err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, map[string]any{"success": true, "name": in.Name})
}
