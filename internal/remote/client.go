// Package remote talks to the storefront REST API on behalf of the current
// identity (bearer token or guest cart uuid).
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/time/rate"

	"github.com/utafrali/EcommerceGo/storefront/internal/domain"
	"github.com/utafrali/EcommerceGo/storefront/internal/repository"
	apperrors "github.com/utafrali/EcommerceGo/storefront/pkg/errors"
	"github.com/utafrali/EcommerceGo/storefront/pkg/httpclient"
	"github.com/utafrali/EcommerceGo/storefront/pkg/tracing"
)

const tracerName = "github.com/utafrali/EcommerceGo/storefront/remote"

// Storefront API endpoints, relative to the configured base URL.
const (
	pathCartDetails    = "/cart_details/"
	pathAddToCart      = "/add_to_cart/"
	pathRemoveFromCart = "/remove_from_cart/"
	pathHasUserCart    = "/has_user_cart/"
	pathMergeGuestCart = "/merge_guest_cart/"
	pathLogin          = "/login/"
	pathRegister       = "/register/"
)

// HTTPDoer is the interface for executing HTTP requests.
// It is satisfied by *httpclient.CircuitBreakerClient.
type HTTPDoer interface {
	Do(ctx context.Context, req *http.Request) (*http.Response, error)
}

// Config holds the endpoints and pacing of the remote client.
type Config struct {
	BaseURL    string
	CDNBaseURL string
	// RateLimit is the sustained outbound request rate per second.
	// Zero disables pacing.
	RateLimit float64
	RateBurst int
}

// Client is the remote cart client. Before every cart call it resolves the
// identity from the identity store: a persisted access token is sent as a
// bearer credential, otherwise the guest cart_uuid (created on first use)
// scopes the request.
type Client struct {
	http     HTTPDoer
	identity repository.IdentityRepository
	baseURL  string
	cdnURL   string
	limiter  *rate.Limiter
	logger   *slog.Logger
	tracer   trace.Tracer
	newUUID  func() string
}

// NewClient creates a remote cart client.
func NewClient(doer HTTPDoer, identity repository.IdentityRepository, cfg Config, logger *slog.Logger) *Client {
	c := &Client{
		http:     doer,
		identity: identity,
		baseURL:  cfg.BaseURL,
		cdnURL:   cfg.CDNBaseURL,
		logger:   logger,
		tracer:   tracing.Tracer(tracerName),
		newUUID:  uuid.NewString,
	}
	if cfg.RateLimit > 0 {
		burst := cfg.RateBurst
		if burst < 1 {
			burst = 1
		}
		c.limiter = rate.NewLimiter(rate.Limit(cfg.RateLimit), burst)
	}
	return c
}

// ---------------------------------------------------------------------------
// Identity selection
// ---------------------------------------------------------------------------

// scope is the identity attached to one outbound call.
type scope struct {
	token    string
	cartUUID string
	// created is set when the guest uuid was generated for this call.
	created bool
}

// resolveScope applies the identity selection rule: token first, then the
// persisted guest uuid, generating and persisting one when absent.
func (c *Client) resolveScope(ctx context.Context) (scope, error) {
	token, err := c.lookup(ctx, domain.KeyAccessToken)
	if err != nil {
		return scope{}, err
	}
	if token != "" {
		return scope{token: token}, nil
	}

	cartUUID, err := c.lookup(ctx, domain.KeyCartUUID)
	if err != nil {
		return scope{}, err
	}
	if cartUUID != "" {
		return scope{cartUUID: cartUUID}, nil
	}

	cartUUID = c.newUUID()
	if err := c.identity.Set(ctx, domain.KeyCartUUID, cartUUID); err != nil {
		return scope{}, fmt.Errorf("persist guest cart uuid: %w", err)
	}
	c.logger.InfoContext(ctx, "guest cart uuid created", slog.String("cart_uuid", cartUUID))
	return scope{cartUUID: cartUUID, created: true}, nil
}

// lookup reads key, mapping a missing key to the empty string.
func (c *Client) lookup(ctx context.Context, key string) (string, error) {
	v, err := c.identity.Get(ctx, key)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return "", nil
		}
		return "", fmt.Errorf("read %s: %w", key, err)
	}
	return v, nil
}

// bearer returns the persisted token, or an Unauthorized error.
func (c *Client) bearer(ctx context.Context, operation string) (string, error) {
	token, err := c.lookup(ctx, domain.KeyAccessToken)
	if err != nil {
		return "", err
	}
	if token == "" {
		return "", apperrors.Unauthorized(operation + " requires an access token")
	}
	return token, nil
}

// ---------------------------------------------------------------------------
// Cart endpoints
// ---------------------------------------------------------------------------

type cartDetailsResponse struct {
	Items json.RawMessage `json:"items"`
}

// FetchCart returns the items of the current cart. A missing, null or
// malformed items field yields an empty list; entries that fail to decode
// are skipped.
func (c *Client) FetchCart(ctx context.Context) (items []domain.CartLineItem, err error) {
	ctx, span := c.startSpan(ctx, "FetchCart", http.MethodGet, pathCartDetails)
	defer func() { c.endSpan(span, "fetch_cart", err) }()

	sc, err := c.resolveScope(ctx)
	if err != nil {
		return nil, err
	}

	endpoint := c.baseURL + pathCartDetails
	if sc.token == "" {
		endpoint += "?" + url.Values{"cart_uuid": {sc.cartUUID}}.Encode()
	}

	resp, err := c.send(ctx, http.MethodGet, endpoint, sc.token, nil, "fetch cart")
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return nil, apperrors.Upstream("fetch cart", fmt.Errorf("read cart response: %w", err))
	}
	return c.decodeItems(ctx, body), nil
}

func (c *Client) decodeItems(ctx context.Context, body []byte) []domain.CartLineItem {
	items := make([]domain.CartLineItem, 0)

	var payload cartDetailsResponse
	if err := json.Unmarshal(body, &payload); err != nil {
		c.logger.WarnContext(ctx, "malformed cart response, treating as empty", slog.String("error", err.Error()))
		return items
	}
	if len(payload.Items) == 0 || bytes.Equal(payload.Items, []byte("null")) {
		return items
	}

	var raw []json.RawMessage
	if err := json.Unmarshal(payload.Items, &raw); err != nil {
		c.logger.WarnContext(ctx, "cart items is not a list, treating as empty", slog.String("error", err.Error()))
		return items
	}
	for i, r := range raw {
		var item domain.CartLineItem
		if err := json.Unmarshal(r, &item); err != nil {
			c.logger.WarnContext(ctx, "skipping malformed cart item",
				slog.Int("index", i),
				slog.String("error", err.Error()),
			)
			continue
		}
		item.Image = domain.ResolveImageURL(c.cdnURL, item.Image)
		items = append(items, item)
	}
	return items
}

type addItemRequest struct {
	ProductID domain.FlexibleID `json:"product_id"`
	VariantID domain.FlexibleID `json:"variant_id"`
	Quantity  int               `json:"quantity"`
	CartUUID  string            `json:"cart_uuid,omitempty"`
}

type addItemResponse struct {
	CartUUID string `json:"cart_uuid"`
}

// AddItem adds quantity of a variant to the cart. The server upserts, so
// this is also how quantities are changed. In guest mode a cart_uuid issued
// by the server is persisted when none existed before the call.
func (c *Client) AddItem(ctx context.Context, productID, variantID domain.FlexibleID, quantity int) (err error) {
	ctx, span := c.startSpan(ctx, "AddItem", http.MethodPost, pathAddToCart)
	span.SetAttributes(attribute.String("storefront.variant_id", variantID.String()))
	defer func() { c.endSpan(span, "add_to_cart", err) }()

	sc, err := c.resolveScope(ctx)
	if err != nil {
		return err
	}

	body, err := json.Marshal(addItemRequest{
		ProductID: productID,
		VariantID: variantID,
		Quantity:  quantity,
		CartUUID:  sc.cartUUID,
	})
	if err != nil {
		return fmt.Errorf("marshal add item request: %w", err)
	}

	resp, err := c.send(ctx, http.MethodPost, c.baseURL+pathAddToCart, sc.token, body, "add to cart")
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if sc.token != "" || !sc.created {
		return nil
	}

	var out addItemResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil || out.CartUUID == "" || out.CartUUID == sc.cartUUID {
		return nil
	}
	if err := c.identity.Set(ctx, domain.KeyCartUUID, out.CartUUID); err != nil {
		return fmt.Errorf("persist issued cart uuid: %w", err)
	}
	c.logger.InfoContext(ctx, "guest cart uuid issued by server", slog.String("cart_uuid", out.CartUUID))
	return nil
}

type removeItemRequest struct {
	VariantID domain.FlexibleID `json:"variant_id"`
	CartUUID  string            `json:"cart_uuid,omitempty"`
}

// RemoveItem removes a variant from the cart. A 404 from the server means
// the item is already absent and counts as success.
func (c *Client) RemoveItem(ctx context.Context, variantID domain.FlexibleID) (err error) {
	ctx, span := c.startSpan(ctx, "RemoveItem", http.MethodDelete, pathRemoveFromCart)
	span.SetAttributes(attribute.String("storefront.variant_id", variantID.String()))
	defer func() { c.endSpan(span, "remove_from_cart", err) }()

	sc, err := c.resolveScope(ctx)
	if err != nil {
		return err
	}

	body, err := json.Marshal(removeItemRequest{VariantID: variantID, CartUUID: sc.cartUUID})
	if err != nil {
		return fmt.Errorf("marshal remove item request: %w", err)
	}

	resp, err := c.send(ctx, http.MethodDelete, c.baseURL+pathRemoveFromCart, sc.token, body, "remove from cart")
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			c.logger.DebugContext(ctx, "item already absent from remote cart",
				slog.String("variant_id", variantID.String()),
			)
			return nil
		}
		return err
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	resp.Body.Close()
	return nil
}

type hasUserCartResponse struct {
	HasCart bool `json:"has_cart"`
}

// HasUserCart reports whether the authenticated account already owns a
// non-empty cart. A 2xx body without a readable has_cart flag counts as
// no cart.
func (c *Client) HasUserCart(ctx context.Context) (has bool, err error) {
	ctx, span := c.startSpan(ctx, "HasUserCart", http.MethodGet, pathHasUserCart)
	defer func() { c.endSpan(span, "has_user_cart", err) }()

	token, err := c.bearer(ctx, "has user cart")
	if err != nil {
		return false, err
	}

	resp, err := c.send(ctx, http.MethodGet, c.baseURL+pathHasUserCart, token, nil, "has user cart")
	if err != nil {
		return false, err
	}
	defer resp.Body.Close()

	var out hasUserCartResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		c.logger.WarnContext(ctx, "malformed has_user_cart response, assuming no cart",
			slog.String("error", err.Error()),
		)
		return false, nil
	}
	return out.HasCart, nil
}

// MergeGuestCart folds the guest cart into the authenticated account's cart.
func (c *Client) MergeGuestCart(ctx context.Context, cartUUID string) (err error) {
	ctx, span := c.startSpan(ctx, "MergeGuestCart", http.MethodPost, pathMergeGuestCart)
	defer func() { c.endSpan(span, "merge_guest_cart", err) }()

	token, err := c.bearer(ctx, "merge guest cart")
	if err != nil {
		return err
	}

	body, err := json.Marshal(map[string]string{"cart_uuid": cartUUID})
	if err != nil {
		return fmt.Errorf("marshal merge request: %w", err)
	}

	resp, err := c.send(ctx, http.MethodPost, c.baseURL+pathMergeGuestCart, token, body, "merge guest cart")
	if err != nil {
		return err
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	resp.Body.Close()
	return nil
}

// ---------------------------------------------------------------------------
// Auth endpoints
// ---------------------------------------------------------------------------

type authResponse struct {
	Token struct {
		Access string `json:"access"`
	} `json:"token"`
	Email   string `json:"email"`
	Message string `json:"message"`
}

// Login exchanges credentials for an access token. Rejected credentials map
// to an Unauthorized error carrying the server's message.
func (c *Client) Login(ctx context.Context, email, password string) (res domain.AuthResult, err error) {
	ctx, span := c.startSpan(ctx, "Login", http.MethodPost, pathLogin)
	defer func() { c.endSpan(span, "login", err) }()

	body, err := json.Marshal(map[string]string{"email": email, "password": password})
	if err != nil {
		return domain.AuthResult{}, fmt.Errorf("marshal login request: %w", err)
	}
	return c.authenticate(ctx, pathLogin, body, "login", email)
}

// Register creates an account and returns its access token.
func (c *Client) Register(ctx context.Context, reg domain.Registration) (res domain.AuthResult, err error) {
	ctx, span := c.startSpan(ctx, "Register", http.MethodPost, pathRegister)
	defer func() { c.endSpan(span, "register", err) }()

	body, err := json.Marshal(reg)
	if err != nil {
		return domain.AuthResult{}, fmt.Errorf("marshal register request: %w", err)
	}
	return c.authenticate(ctx, pathRegister, body, "register", reg.Email)
}

func (c *Client) authenticate(ctx context.Context, path string, body []byte, operation, email string) (domain.AuthResult, error) {
	resp, err := c.send(ctx, http.MethodPost, c.baseURL+path, "", body, operation)
	if err != nil {
		return domain.AuthResult{}, err
	}
	defer resp.Body.Close()

	var out authResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return domain.AuthResult{}, apperrors.Upstream(operation, fmt.Errorf("decode response: %w", err))
	}
	if out.Token.Access == "" {
		msg := out.Message
		if msg == "" {
			msg = operation + " returned no access token"
		}
		return domain.AuthResult{}, apperrors.Unauthorized(msg)
	}
	if out.Email == "" {
		out.Email = email
	}
	return domain.AuthResult{AccessToken: out.Token.Access, Email: out.Email}, nil
}

// ---------------------------------------------------------------------------
// Transport
// ---------------------------------------------------------------------------

// send builds and executes one request. Non-2xx responses and transport
// failures are translated into AppErrors; on success the caller owns the
// response body.
func (c *Client) send(ctx context.Context, method, endpoint, token string, body []byte, operation string) (*http.Response, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("%s: wait for rate limiter: %w", operation, err)
		}
	}

	var reader io.Reader = http.NoBody
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return nil, fmt.Errorf("create %s request: %w", operation, err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	otel.GetTextMapPropagator().Inject(ctx, propagation.HeaderCarrier(req.Header))

	start := time.Now()
	resp, err := c.http.Do(ctx, req)
	remoteRequestDuration.WithLabelValues(strings.ReplaceAll(operation, " ", "_")).Observe(time.Since(start).Seconds())
	if err != nil {
		return nil, c.transportError(ctx, operation, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		if !httpclient.IsClientError(resp.StatusCode) {
			c.logger.WarnContext(ctx, "storefront API returned error status",
				slog.String("operation", operation),
				slog.Int("status", resp.StatusCode),
			)
		}
		return nil, httpclient.ParseResponseError(resp, operation)
	}
	return resp, nil
}

func (c *Client) transportError(ctx context.Context, operation string, err error) error {
	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		return err
	}
	if ctx.Err() != nil {
		return fmt.Errorf("%s: %w", operation, ctx.Err())
	}

	var srvErr *httpclient.ServerError
	if errors.As(err, &srvErr) && srvErr.StatusCode == http.StatusServiceUnavailable {
		return apperrors.ServiceUnavailable(operation + ": storefront API unavailable")
	}
	if errors.Is(err, httpclient.ErrCircuitOpen) || errors.Is(err, httpclient.ErrTooManyRequests) {
		return apperrors.ServiceUnavailable(operation + ": storefront API circuit open")
	}

	c.logger.WarnContext(ctx, "storefront API request failed",
		slog.String("operation", operation),
		slog.String("error", err.Error()),
	)
	return apperrors.Upstream(operation, err)
}

func (c *Client) startSpan(ctx context.Context, name, method, path string) (context.Context, trace.Span) {
	return c.tracer.Start(ctx, "storefront.remote."+name,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("http.request.method", method),
			attribute.String("url.path", path),
		),
	)
}

func (c *Client) endSpan(span trace.Span, operation string, err error) {
	outcome := "ok"
	if err != nil {
		outcome = "error"
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	remoteRequestsTotal.WithLabelValues(operation, outcome).Inc()
	span.End()
}
