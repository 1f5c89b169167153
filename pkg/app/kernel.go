package app

import (
	"net/http"

	"github.com/modera-shop/modera/app/routes"
	"github.com/modera-shop/modera/pkg/bind"
	"github.com/modera-shop/modera/pkg/metrics"
	"github.com/modera-shop/modera/pkg/middleware"
	"github.com/modera-shop/modera/pkg/reqid"
	"github.com/modera-shop/modera/pkg/router"
)

// Router builds the full route table behind the global middleware stack.
func (a *Application) Router() (*router.Router, error) {
	h, err := a.handlers()
	if err != nil {
		return nil, err
	}

	r := router.New()

	// outermost first:
	//  1. metrics    total latency
	//  2. recovery   before anything can panic
	//  3. request id before anything logs
	//  4. logger
	//  5. CORS       preflights answered before rate limiting
	//  6. rate limit
	//  7. body limit
	r.Use(metrics.Middleware())
	r.Use(middleware.Recovery)
	r.Use(reqid.Middleware())
	r.Use(middleware.Logger)
	r.Use(middleware.CORS(middleware.ShopCORSOptions(a.Settings.CORSOrigins)))
	r.Use(a.limiter.Middleware)
	r.Use(bind.LimitBody(a.Settings.MaxBodyBytes))

	r.Handle("/metrics", "metrics", metrics.Handler())

	routes.RegisterAPI(r, h)
	return r, nil
}

// Handler is Router as an http.Handler.
func (a *Application) Handler() (http.Handler, error) {
	r, err := a.Router()
	if err != nil {
		return nil, err
	}
	return r.Handler(), nil
}
