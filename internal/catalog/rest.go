package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	fiber "github.com/gofiber/fiber/v2"
)

// DefaultTimeout is the default timeout for catalog API requests
const DefaultTimeout = 30 * time.Second

// RESTOptions contains configuration options for the REST catalog client
type RESTOptions struct {
	// BaseURL is the base URL of the catalog API, e.g. https://shop.example.com/wp-json/wc/v3
	BaseURL string

	// Key and Secret are the catalog API credentials
	Key    string
	Secret string

	// Timeout is the request timeout
	Timeout time.Duration
}

// RESTStore implements Store against a WooCommerce-style products REST API
type RESTStore struct {
	baseURL string
	key     string
	secret  string
	timeout time.Duration
}

var _ Store = (*RESTStore)(nil)

// NewRESTStore creates a new REST catalog client with the given options
func NewRESTStore(opts RESTOptions) (*RESTStore, error) {
	if _, err := url.Parse(opts.BaseURL); err != nil {
		return nil, fmt.Errorf("invalid base URL: %w", err)
	}
	if opts.Timeout == 0 {
		opts.Timeout = DefaultTimeout
	}
	return &RESTStore{
		baseURL: opts.BaseURL,
		key:     opts.Key,
		secret:  opts.Secret,
		timeout: opts.Timeout,
	}, nil
}

// GetProduct retrieves a single product by ID
func (s *RESTStore) GetProduct(ctx context.Context, id int64) (*Product, error) {
	var product Product
	endpoint := "/products/" + strconv.FormatInt(id, 10)
	if err := s.doRequest(ctx, http.MethodGet, endpoint, nil, nil, &product); err != nil {
		return nil, err
	}
	return &product, nil
}

// ListProducts retrieves products matching the filter
func (s *RESTStore) ListProducts(ctx context.Context, filter ListFilter) ([]Product, error) {
	query := url.Values{}
	if filter.Status != "" {
		query.Set("status", filter.Status)
	}
	if filter.Type != "" {
		query.Set("type", filter.Type)
	}
	if filter.SKU != "" {
		query.Set("sku", filter.SKU)
	}
	if filter.Category != "" {
		query.Set("category", filter.Category)
	}
	if filter.Tag != "" {
		query.Set("tag", filter.Tag)
	}
	if len(filter.Include) > 0 {
		include := make([]string, len(filter.Include))
		for i, id := range filter.Include {
			include[i] = strconv.FormatInt(id, 10)
		}
		query.Set("include", strings.Join(include, ","))
	}
	if filter.Limit > 0 {
		query.Set("per_page", strconv.Itoa(filter.Limit))
	}

	var products []Product
	if err := s.doRequest(ctx, http.MethodGet, "/products", query, nil, &products); err != nil {
		return nil, err
	}
	return products, nil
}

// UpdateProduct writes the non-nil patch fields through to the catalog and
// returns the updated product representation
func (s *RESTStore) UpdateProduct(ctx context.Context, id int64, patch ProductPatch) (*Product, error) {
	var product Product
	endpoint := "/products/" + strconv.FormatInt(id, 10)
	if err := s.doRequest(ctx, http.MethodPut, endpoint, nil, patch, &product); err != nil {
		return nil, err
	}
	return &product, nil
}

// createAgent creates a new fiber Agent for the given method and endpoint
func (s *RESTStore) createAgent(ctx context.Context, method, endpoint string, query url.Values, body interface{}) (*fiber.Agent, error) {
	if query == nil {
		query = url.Values{}
	}
	query.Set("consumer_key", s.key)
	query.Set("consumer_secret", s.secret)
	fullURL := s.baseURL + endpoint + "?" + query.Encode()

	var agent *fiber.Agent
	switch method {
	case http.MethodGet:
		agent = fiber.Get(fullURL)
	case http.MethodPut:
		agent = fiber.Put(fullURL)
	case http.MethodPost:
		agent = fiber.Post(fullURL)
	default:
		return nil, fmt.Errorf("unsupported HTTP method: %s", method)
	}

	// Set timeout from context or client default
	if deadline, ok := ctx.Deadline(); ok {
		agent.Timeout(time.Until(deadline))
	} else {
		agent.Timeout(s.timeout)
	}

	agent.Set("Content-Type", "application/json")
	agent.Set("Accept", "application/json")

	if body != nil {
		agent.JSON(body)
	}

	return agent, nil
}

// doRequest sends the HTTP request and decodes the response into v
func (s *RESTStore) doRequest(ctx context.Context, method, endpoint string, query url.Values, body, v interface{}) error {
	agent, err := s.createAgent(ctx, method, endpoint, query, body)
	if err != nil {
		return err
	}

	statusCode, respBody, errs := agent.Bytes()
	if len(errs) > 0 {
		return fmt.Errorf("error sending request: %w", errs[0])
	}
	if statusCode == http.StatusNotFound {
		return fmt.Errorf("%w: %s %s", ErrProductNotFound, method, endpoint)
	}
	if statusCode < 200 || statusCode >= 300 {
		return fmt.Errorf("catalog request %s %s failed with status %d: %s", method, endpoint, statusCode, string(respBody))
	}
	if v == nil {
		return nil
	}
	if err := json.Unmarshal(respBody, v); err != nil {
		return fmt.Errorf("error decoding response: %w", err)
	}
	return nil
}

