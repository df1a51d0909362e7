package mp

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"
)

func newTestServer(t *testing.T, handler func(w http.ResponseWriter, r *http.Request)) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(handler))
	t.Cleanup(server.Close)
	return server
}

func TestClient_SendsPlatformParameters(t *testing.T) {
	server := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		expected := map[string]string{
			"token":  "tok",
			"lang":   "zh_CN",
			"f":      "json",
			"ajax":   "1",
			"action": "list_ex",
			"begin":  "20",
			"count":  "10",
			"fakeid": "fake",
			"type":   "9",
		}
		for k, v := range expected {
			if q.Get(k) != v {
				t.Errorf("Expected %s=%s, got %s", k, v, q.Get(k))
			}
		}
		if r.Header.Get("Cookie") != "session=1" {
			t.Errorf("Expected cookie header, got %q", r.Header.Get("Cookie"))
		}
		if r.Header.Get("User-Agent") != "test-agent" {
			t.Errorf("Expected user agent header, got %q", r.Header.Get("User-Agent"))
		}
		fmt.Fprint(w, `{"base_resp":{"ret":0,"err_msg":"ok"},"app_msg_cnt":35,"app_msg_list":[{"title":"a","link":"https://mp.weixin.qq.com/s/1","create_time":1700000000}]}`)
	})

	client := NewClient(Options{
		Endpoint:  server.URL,
		Token:     "tok",
		Cookie:    "session=1",
		FakeID:    "fake",
		UserAgent: "test-agent",
		PageSize:  10,
	})

	page := client.FetchPage(context.Background(), 20)
	if page.Failed() {
		t.Fatalf("Unexpected failure: %v", page.Err)
	}
	if page.Offset != 20 {
		t.Errorf("Expected offset 20, got %d", page.Offset)
	}
	if len(page.Items) != 1 {
		t.Fatalf("Expected 1 item, got %d", len(page.Items))
	}
	item := page.Items[0]
	if item.Title != "a" || item.Link != "https://mp.weixin.qq.com/s/1" || item.CreateTime != 1700000000 {
		t.Errorf("Unexpected item: %+v", item)
	}
}

func TestClient_TotalCount(t *testing.T) {
	server := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("begin") != "0" {
			t.Errorf("Expected total count request at begin=0, got %s", r.URL.Query().Get("begin"))
		}
		fmt.Fprint(w, `{"app_msg_cnt":123,"app_msg_list":[]}`)
	})

	total, err := NewClient(Options{Endpoint: server.URL}).TotalCount(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if total != 123 {
		t.Errorf("Expected total 123, got %d", total)
	}
}

func TestClient_FailuresBecomeEmptyPages(t *testing.T) {
	tests := []struct {
		name    string
		handler func(w http.ResponseWriter, r *http.Request)
	}{
		{"server error", func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
		}},
		{"malformed body", func(w http.ResponseWriter, r *http.Request) {
			fmt.Fprint(w, `<html>login required</html>`)
		}},
		{"rate controlled", func(w http.ResponseWriter, r *http.Request) {
			fmt.Fprint(w, `{"base_resp":{"ret":200013,"err_msg":"freq control"}}`)
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := newTestServer(t, tt.handler)
			page := NewClient(Options{Endpoint: server.URL}).FetchPage(context.Background(), 10)

			if !page.Failed() {
				t.Error("Expected page to carry a failure")
			}
			if !page.Empty() {
				t.Errorf("Expected no items, got %d", len(page.Items))
			}
		})
	}
}

func TestClient_APIErrorIsTyped(t *testing.T) {
	server := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"base_resp":{"ret":200013,"err_msg":"freq control"}}`)
	})

	_, err := NewClient(Options{Endpoint: server.URL}).TotalCount(context.Background())
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("Expected APIError, got %v", err)
	}
	if apiErr.Ret != 200013 {
		t.Errorf("Expected ret 200013, got %d", apiErr.Ret)
	}
}

func TestClient_Timeout(t *testing.T) {
	release := make(chan struct{})
	server := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	})
	defer close(release)

	client := NewClient(Options{Endpoint: server.URL, Timeout: 50 * time.Millisecond})

	start := time.Now()
	page := client.FetchPage(context.Background(), 0)
	if !page.Failed() {
		t.Error("Expected timeout failure")
	}
	if elapsed := time.Since(start); elapsed > 2*time.Second {
		t.Errorf("Expected request to time out quickly, took %s", elapsed)
	}
}

func TestClient_DefaultPageSize(t *testing.T) {
	server := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		if count, _ := strconv.Atoi(r.URL.Query().Get("count")); count != 10 {
			t.Errorf("Expected default count 10, got %d", count)
		}
		fmt.Fprint(w, `{"app_msg_list":[]}`)
	})

	page := NewClient(Options{Endpoint: server.URL}).FetchPage(context.Background(), 0)
	if page.Failed() {
		t.Fatalf("Unexpected failure: %v", page.Err)
	}
	if !page.Empty() {
		t.Error("Expected empty page")
	}
}
