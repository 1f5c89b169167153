// Package routes registers the shop's HTTP API.
package routes

import (
	"net/http"

	"github.com/modera-shop/modera/app/controllers"
	"github.com/modera-shop/modera/pkg/ctx"
	"github.com/modera-shop/modera/pkg/middleware"
	"github.com/modera-shop/modera/pkg/router"
	"github.com/modera-shop/modera/pkg/storage"
)

// Handlers is everything the route table points at.
type Handlers struct {
	Catalog *controllers.CatalogController
	Auth    *controllers.AuthController
	Cart    *controllers.CartController
	Upload  *controllers.UploadController
	Stream  *controllers.StreamController
	GraphQL *controllers.GraphQLController
	// Images serves the local upload directory; nil skips /images.
	Images http.Handler
	Tokens middleware.TokenVerifier
}

func RegisterAPI(r *router.Router, h Handlers) {
	r.Get("/", "home", ctx.Wrap(h.Catalog.Home))

	// catalog
	r.Get("/allproducts", "catalog.all", ctx.Wrap(h.Catalog.All))
	r.Get("/newcollection", "catalog.new_collection", ctx.Wrap(h.Catalog.NewCollection))
	r.Get("/popularinwomen", "catalog.popular_in_women", ctx.Wrap(h.Catalog.PopularInWomen))
	r.Post("/addproduct", "catalog.add", ctx.Wrap(h.Catalog.Add))
	r.Post("/removeproduct", "catalog.remove", ctx.Wrap(h.Catalog.Remove))

	// accounts
	r.Post("/signup", "auth.signup", ctx.Wrap(h.Auth.Signup))
	r.Post("/login", "auth.login", ctx.Wrap(h.Auth.Login))

	// cart
	cart := r.Group("", middleware.TokenAuth(h.Tokens))
	cart.Post("/addtocart", "cart.add", ctx.Wrap(h.Cart.Add))
	cart.Post("/removefromcart", "cart.remove", ctx.Wrap(h.Cart.Remove))
	cart.Post("/getcart", "cart.get", ctx.Wrap(h.Cart.Get))
	if h.Stream != nil {
		r.Get("/cart/stream", "cart.stream", ctx.Wrap(h.Stream.Cart), middleware.StreamTokenAuth(h.Tokens))
	}

	// images
	r.Post("/upload", "upload.image", ctx.Wrap(h.Upload.Upload))
	r.Get("/debug-images", "upload.debug_images", ctx.Wrap(h.Upload.DebugImages))
	if h.Images != nil {
		r.Mount(storage.PublicPrefix, "images", http.StripPrefix(storage.PublicPrefix, h.Images))
	}

	if h.GraphQL != nil {
		r.Post("/graphql", "graphql", ctx.Wrap(h.GraphQL.Query))
	}
}
