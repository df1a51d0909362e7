// Package mp reads the article list of an official account through the
// platform's "appmsg" backend endpoint, one page per request.
package mp

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/lysyi3m/mp-comb/app/source"
)

const DefaultEndpoint = "https://mp.weixin.qq.com/cgi-bin/appmsg"

var _ source.Source = (*Client)(nil)

type Options struct {
	Endpoint   string
	Token      string
	Cookie     string
	FakeID     string
	UserAgent  string
	PageSize   int
	Timeout    time.Duration
	HTTPClient *http.Client
}

type Client struct {
	httpClient *http.Client
	endpoint   string
	token      string
	cookie     string
	fakeID     string
	userAgent  string
	pageSize   int
	timeout    time.Duration
}

// APIError is returned when the endpoint answers with a non-zero base_resp.ret,
// e.g. 200013 when the account is being rate controlled.
type APIError struct {
	Ret     int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("appmsg error: ret=%d %s", e.Ret, e.Message)
}

type listResponse struct {
	BaseResp struct {
		Ret    int    `json:"ret"`
		ErrMsg string `json:"err_msg"`
	} `json:"base_resp"`
	AppMsgCnt  int              `json:"app_msg_cnt"`
	AppMsgList []source.RawItem `json:"app_msg_list"`
}

func NewClient(opts Options) *Client {
	c := &Client{
		httpClient: opts.HTTPClient,
		endpoint:   opts.Endpoint,
		token:      opts.Token,
		cookie:     opts.Cookie,
		fakeID:     opts.FakeID,
		userAgent:  opts.UserAgent,
		pageSize:   opts.PageSize,
		timeout:    opts.Timeout,
	}
	if c.httpClient == nil {
		c.httpClient = http.DefaultClient
	}
	if c.endpoint == "" {
		c.endpoint = DefaultEndpoint
	}
	if c.pageSize <= 0 {
		c.pageSize = 10
	}
	if c.timeout <= 0 {
		c.timeout = 10 * time.Second
	}
	return c
}

func (c *Client) TotalCount(ctx context.Context) (int, error) {
	resp, err := c.list(ctx, 0)
	if err != nil {
		return 0, err
	}
	return resp.AppMsgCnt, nil
}

func (c *Client) FetchPage(ctx context.Context, offset int) source.Page {
	resp, err := c.list(ctx, offset)
	if err != nil {
		return source.Page{Offset: offset, Err: err}
	}
	return source.Page{Offset: offset, Items: resp.AppMsgList}
}

func (c *Client) list(ctx context.Context, offset int) (*listResponse, error) {
	timeoutCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(timeoutCtx, http.MethodGet, c.endpoint+"?"+c.query(offset).Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("User-Agent", c.userAgent)
	if c.cookie != "" {
		req.Header.Set("Cookie", c.cookie)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch article list: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("HTTP error: %d %s", resp.StatusCode, resp.Status)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	var list listResponse
	if err := json.Unmarshal(data, &list); err != nil {
		return nil, fmt.Errorf("failed to decode article list: %w", err)
	}

	if list.BaseResp.Ret != 0 {
		return nil, &APIError{Ret: list.BaseResp.Ret, Message: list.BaseResp.ErrMsg}
	}

	return &list, nil
}

func (c *Client) query(offset int) url.Values {
	q := url.Values{}
	q.Set("token", c.token)
	q.Set("lang", "zh_CN")
	q.Set("f", "json")
	q.Set("ajax", "1")
	q.Set("action", "list_ex")
	q.Set("begin", strconv.Itoa(offset))
	q.Set("count", strconv.Itoa(c.pageSize))
	q.Set("query", "")
	q.Set("fakeid", c.fakeID)
	q.Set("type", "9")
	return q
}
