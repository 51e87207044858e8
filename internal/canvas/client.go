package canvas

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"

	"github.com/cwsupport/crf-provisioner/internal/config"
)

// MainAccountID is the root Canvas account under which users are created and
// sub-accounts are enumerated.
const MainAccountID int64 = 96678

const requestTimeout = 30 * time.Second

// Client wraps the Canvas REST API. The sub-account list is cached for the
// life of the process; everything else goes to the wire.
type Client struct {
	http   *resty.Client
	logger *zap.Logger

	mu          sync.Mutex
	subAccounts []Account
}

func NewClient(cfg *config.Config, logger *zap.Logger) *Client {
	http := resty.New().
		SetBaseURL(cfg.CanvasURL() + "/api/v1").
		SetAuthToken(cfg.CanvasKey()).
		SetTimeout(requestTimeout)
	return &Client{http: http, logger: logger}
}

// newClientForBase is the test seam: it points the client at an arbitrary
// base URL without going through configuration.
func newClientForBase(baseURL string, logger *zap.Logger) *Client {
	http := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(requestTimeout)
	return &Client{http: http, logger: logger}
}

// get runs a GET and decodes the JSON response into result.
func (c *Client) get(ctx context.Context, path string, query map[string]string, result any) error {
	req := c.http.R().SetContext(ctx)
	if query != nil {
		req.SetQueryParams(query)
	}
	if result != nil {
		req.SetResult(result)
	}
	return wrap(req.Get(path))
}

// send runs a mutating request with a JSON body.
func (c *Client) send(ctx context.Context, method, path string, body, result any) error {
	req := c.http.R().SetContext(ctx)
	if body != nil {
		req.SetBody(body)
	}
	if result != nil {
		req.SetResult(result)
	}
	return wrap(req.Execute(method, path))
}

// wrap folds resty's transport errors and HTTP error statuses into APIError.
func wrap(resp *resty.Response, err error) error {
	if err != nil {
		return &APIError{Message: err.Error()}
	}
	if resp.IsError() {
		return &APIError{StatusCode: resp.StatusCode(), Message: string(resp.Body())}
	}
	return nil
}

func sisCourseID(sisID string) string {
	return fmt.Sprintf("sis_course_id:%s", sisID)
}

func sisSectionID(sisID string) string {
	return fmt.Sprintf("sis_section_id:%s", sisID)
}
