package gateway

import (
	"context"
	"encoding/json"
	"strconv"
	"strings"
	"time"

	"github.com/valyala/fasthttp"

	"github.com/misteraverin/notification-service/pkg/logger"
)

const defaultTimeout = 5 * time.Second

type Config struct {
	BaseURL string
	Token   string
	Timeout time.Duration
}

// Message is the delivery payload the fbrq gateway expects.
type Message struct {
	ID    int64  `json:"id"`
	Phone int64  `json:"phone"`
	Text  string `json:"text"`
}

// Client talks to the external fbrq delivery gateway.
type Client struct {
	config Config
	client *fasthttp.Client
}

func NewClient(config Config) *Client {
	if config.Timeout <= 0 {
		config.Timeout = defaultTimeout
	}
	return &Client{
		config: config,
		client: &fasthttp.Client{
			ReadTimeout:         config.Timeout,
			WriteTimeout:        config.Timeout,
			MaxIdleConnDuration: 60 * time.Second,
		},
	}
}

// Send posts one message to the gateway and returns the HTTP status
// code with the response body. Transport failures are reported as an
// internal-error status rather than a Go error, so the caller counts
// them like any other failed attempt.
func (c *Client) Send(ctx context.Context, msg Message) (int, string) {
	body, err := json.Marshal(msg)
	if err != nil {
		return fasthttp.StatusInternalServerError, err.Error()
	}

	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseRequest(req)
	defer fasthttp.ReleaseResponse(resp)

	url := strings.TrimRight(c.config.BaseURL, "/") + "/" + strconv.FormatInt(msg.ID, 10)
	req.SetRequestURI(url)
	req.Header.SetMethod(fasthttp.MethodPost)
	req.Header.SetContentType("application/json")
	if c.config.Token != "" {
		req.Header.Set("Authorization", "Bearer "+c.config.Token)
	}
	req.SetBody(body)

	deadline, ok := ctx.Deadline()
	if !ok {
		deadline = time.Now().Add(c.config.Timeout)
	}

	if err := c.client.DoDeadline(req, resp, deadline); err != nil {
		logger.Warn("gateway request failed", "message_id", msg.ID, "error", err)
		return fasthttp.StatusInternalServerError, err.Error()
	}

	return resp.StatusCode(), string(resp.Body())
}
