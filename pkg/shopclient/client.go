// Package shopclient is the storefront side of the cart: an optimistic local
// cart mirrored to a LocalStore and synchronised with the API.
//
//	c, _ := shopclient.New(shopclient.Options{
//	    BaseURL: "https://api.modera.shop",
//	    Store:   shopclient.NewFileStore("cart.json"),
//	})
//	defer c.Close()
//	_ = c.Login(ctx, "ada@example.com", "secret")
//	_ = c.Load(ctx)
//	c.Increment("12")
//
// Each mutation updates the local cart at once. With a token it also queues
// a command carrying the client id and a sequence number; commands go out one
// at a time in issue order. Sequence numbers start from the wall clock in
// milliseconds and only grow, so a persisted client id stays valid across
// restarts. A server response replaces the local cart only when it answers
// the latest command and the server applied it. Failed commands are logged
// and the local cart is kept.
package shopclient

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/modera-shop/modera/app/models"
	"github.com/modera-shop/modera/pkg/collection"
	khttp "github.com/modera-shop/modera/pkg/http"
	"github.com/modera-shop/modera/pkg/logger"
	"github.com/modera-shop/modera/pkg/workerpool"
)

const (
	tokenHeader    = "auth-token"
	appliedHeader  = "X-Cart-Applied"
	queueSize      = 256
	requestTimeout = 15 * time.Second // per attempt
)

type Options struct {
	BaseURL string
	// ClientID identifies this installation to the server; generated when
	// empty. It may be persisted and reused by later processes.
	ClientID string
	Token    string
	// Store defaults to an in-memory store.
	Store LocalStore
	// Retries is the number of attempts per command, default 3.
	Retries   int
	RetryWait time.Duration
	// Now defaults to time.Now and seeds command sequence numbers.
	Now func() time.Time
}

type Client struct {
	base      string
	clientID  string
	store     LocalStore
	retries   int
	retryWait time.Duration
	now       func() time.Time

	queue  *workerpool.Pool
	ctx    context.Context
	cancel context.CancelFunc

	mu    sync.Mutex
	token string
	cart  models.Cart
	seq   int64
}

func New(opts Options) (*Client, error) {
	if opts.BaseURL == "" {
		return nil, errors.New("shopclient: BaseURL is required")
	}
	if opts.ClientID == "" {
		opts.ClientID = primitive.NewObjectID().Hex()
	}
	if opts.Store == nil {
		opts.Store = &memoryStore{}
	}
	if opts.Retries < 1 {
		opts.Retries = 3
	}
	if opts.RetryWait <= 0 {
		opts.RetryWait = 200 * time.Millisecond
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Client{
		base:      strings.TrimRight(opts.BaseURL, "/"),
		clientID:  opts.ClientID,
		store:     opts.Store,
		retries:   opts.Retries,
		retryWait: opts.RetryWait,
		now:       opts.Now,
		queue:     workerpool.New(1, queueSize),
		ctx:       ctx,
		cancel:    cancel,
		token:     opts.Token,
		cart:      models.Cart{},
	}, nil
}

func (c *Client) ClientID() string { return c.clientID }

func (c *Client) SetToken(token string) {
	c.mu.Lock()
	c.token = token
	c.mu.Unlock()
}

func (c *Client) Token() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.token
}

type authResponse struct {
	Success bool   `json:"success"`
	Token   string `json:"token"`
	Error   string `json:"error"`
}

// Signup creates an account and keeps its token.
func (c *Client) Signup(ctx context.Context, name, email, password string) error {
	return c.authenticate(ctx, "/signup", map[string]string{"name": name, "email": email, "password": password})
}

// Login keeps the token of an existing account.
func (c *Client) Login(ctx context.Context, email, password string) error {
	return c.authenticate(ctx, "/login", map[string]string{"email": email, "password": password})
}

func (c *Client) authenticate(ctx context.Context, path string, body map[string]string) error {
	resp, err := khttp.Post(c.base + path).Body(body).Timeout(requestTimeout).WithContext(ctx).Send()
	if err != nil {
		return err
	}
	var out authResponse
	if err := resp.JSON(&out); err != nil {
		return err
	}
	if !resp.OK() || !out.Success {
		return fmt.Errorf("shopclient: %s: %s", strings.TrimPrefix(path, "/"), out.Error)
	}
	c.SetToken(out.Token)
	return nil
}

// Load restores the stored cart, then adopts the server cart when signed in.
func (c *Client) Load(ctx context.Context) error {
	stored, err := c.store.Load()
	if err != nil {
		return err
	}
	c.mu.Lock()
	c.cart = stored
	token := c.token
	c.mu.Unlock()

	if token == "" {
		return nil
	}

	resp, err := khttp.Post(c.base+"/getcart").Header(tokenHeader, token).Timeout(requestTimeout).WithContext(ctx).Send()
	if err != nil {
		return err
	}
	if err := resp.Throw(); err != nil {
		return err
	}
	var remote models.Cart
	if err := resp.JSON(&remote); err != nil {
		return err
	}

	c.mu.Lock()
	c.cart = remote.Clone()
	snapshot := c.cart.Clone()
	c.mu.Unlock()
	return c.store.Save(snapshot)
}

// Products fetches the catalog used for TotalAmount.
func (c *Client) Products(ctx context.Context) ([]models.Product, error) {
	resp, err := khttp.Get(c.base + "/allproducts").Timeout(requestTimeout).WithContext(ctx).Send()
	if err != nil {
		return nil, err
	}
	if err := resp.Throw(); err != nil {
		return nil, err
	}
	var products []models.Product
	if err := resp.JSON(&products); err != nil {
		return nil, err
	}
	return products, nil
}

func (c *Client) Increment(itemID string) { c.mutate(itemID, 1) }

// Decrement never takes a quantity below zero.
func (c *Client) Decrement(itemID string) { c.mutate(itemID, -1) }

type command struct {
	path     string
	ItemID   string `json:"itemId"`
	ClientID string `json:"clientId"`
	Seq      int64  `json:"seq"`
}

func (c *Client) mutate(itemID string, delta int) {
	c.mu.Lock()
	qty := c.cart[itemID] + delta
	if qty > 0 {
		c.cart[itemID] = qty
	} else {
		delete(c.cart, itemID)
	}
	snapshot := c.cart.Clone()

	var cmd *command
	token := c.token
	if token != "" {
		c.seq = c.nextSeq()
		cmd = &command{path: "/addtocart", ItemID: itemID, ClientID: c.clientID, Seq: c.seq}
		if delta < 0 {
			cmd.path = "/removefromcart"
		}
	}
	c.mu.Unlock()

	if err := c.store.Save(snapshot); err != nil {
		logger.Warn("shopclient: save cart", "error", err)
	}
	if cmd == nil {
		return
	}
	if err := c.queue.SubmitWait(func() { c.send(token, cmd) }); err != nil {
		logger.Warn("shopclient: command dropped", "item", itemID, "seq", cmd.Seq, "error", err)
	}
}

// nextSeq must be called with mu held.
func (c *Client) nextSeq() int64 {
	seq := c.now().UnixMilli()
	if seq <= c.seq {
		seq = c.seq + 1
	}
	return seq
}

func (c *Client) send(token string, cmd *command) {
	log := logger.L.With("item", cmd.ItemID, "seq", cmd.Seq)

	resp, err := khttp.Post(c.base+cmd.path).
		Header(tokenHeader, token).
		Body(cmd).
		Timeout(requestTimeout).
		Retry(c.retries, c.retryWait).
		WithContext(c.ctx).
		Send()
	if err == nil {
		err = resp.Throw()
	}
	if err != nil {
		log.Warn("shopclient: cart command failed, keeping local cart", "error", err)
		return
	}

	if resp.Header(appliedHeader) == "false" {
		log.Warn("shopclient: command not applied by the server, keeping local cart")
		return
	}
	var remote models.Cart
	if err := resp.JSON(&remote); err != nil {
		log.Warn("shopclient: cart response", "error", err)
		return
	}

	c.mu.Lock()
	if cmd.Seq != c.seq {
		c.mu.Unlock()
		log.Debug("shopclient: superseded response discarded", "latest", c.latestSeq())
		return
	}
	c.cart = remote.Clone()
	snapshot := c.cart.Clone()
	c.mu.Unlock()

	if err := c.store.Save(snapshot); err != nil {
		log.Warn("shopclient: save cart", "error", err)
	}
}

func (c *Client) latestSeq() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.seq
}

// Cart returns a copy of the local cart.
func (c *Client) Cart() models.Cart {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.cart.Clone()
}

func (c *Client) Quantity(itemID string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.cart[itemID]
}

// TotalItems sums every quantity in the cart.
func (c *Client) TotalItems() int {
	return c.Cart().Items()
}

// TotalAmount prices the cart with each product's new_price. Items missing
// from products count as zero.
func (c *Client) TotalAmount(products []models.Product) float64 {
	cart := c.Cart()
	return collection.Sum(products, func(p models.Product) float64 {
		return p.NewPrice * float64(cart[strconv.Itoa(p.ID)])
	})
}

// Flush waits for every queued command to finish.
func (c *Client) Flush() {
	c.queue.Wait()
}

// Close sends the queued commands, then stops the queue.
func (c *Client) Close() {
	c.queue.Shutdown()
	c.cancel()
}
