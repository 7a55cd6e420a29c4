package notify

import (
	"context"
	"encoding/json"
	"strconv"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/rs/zerolog/log"
)

// Result is the outcome of one delivery attempt.
type Result struct {
	OK         bool   `json:"ok"`
	StatusCode int    `json:"status_code"`
	Body       string `json:"body"`
	MessageID  string `json:"message_id,omitempty"`
}

// Client posts contact payloads to the messaging vendor. Each call is a
// single attempt.
type Client struct {
	http *resty.Client
	url  string
}

// NewClient builds a vendor client. A zero timeout means no timeout.
func NewClient(url, apiKey string, timeout time.Duration) *Client {
	c := resty.New().
		SetTimeout(timeout).
		SetRetryCount(0).
		SetHeader("Content-Type", "application/json").
		SetHeader("Accept", "application/json")
	if apiKey != "" {
		c.SetAuthToken(apiKey)
	}
	return &Client{http: c, url: url}
}

// Send delivers payload. Transport failures and non-2xx responses are
// reported through Result, never as an error.
func (c *Client) Send(ctx context.Context, payload interface{}) Result {
	if c.url == "" {
		return Result{Body: "messaging endpoint is not configured"}
	}

	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(payload).
		Post(c.url)
	if err != nil {
		log.Warn().Err(err).Str("url", c.url).Msg("messaging request failed")
		return Result{Body: err.Error()}
	}

	body := resp.String()
	return Result{
		OK:         resp.IsSuccess(),
		StatusCode: resp.StatusCode(),
		Body:       body,
		MessageID:  messageID(body),
	}
}

// messageID pulls the vendor id out of a JSON response body, from "id" or
// "message_id".
func messageID(body string) string {
	var fields map[string]interface{}
	if err := json.Unmarshal([]byte(body), &fields); err != nil {
		return ""
	}
	for _, key := range []string{"message_id", "id"} {
		switch v := fields[key].(type) {
		case string:
			if s := strings.TrimSpace(v); s != "" {
				return s
			}
		case float64:
			return strconv.FormatFloat(v, 'f', -1, 64)
		}
	}
	return ""
}
