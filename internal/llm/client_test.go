package llm

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strings"
	"testing"

	"github.com/macanudo/pulso/pkg/pulso/internalerr"
)

type roundTrip func(*http.Request) *http.Response

func (rt roundTrip) RoundTrip(req *http.Request) (*http.Response, error) {
	return rt(req), nil
}

func fakeClient(t *testing.T, handler roundTrip) *Client {
	t.Helper()
	return &Client{
		BaseURL:    "https://api.test/v1/chat/completions",
		Model:      "test-model",
		HTTPClient: &http.Client{Transport: handler},
	}
}

func TestChatSuccess(t *testing.T) {
	client := fakeClient(t, func(req *http.Request) *http.Response {
		body, _ := io.ReadAll(req.Body)
		if !strings.Contains(string(body), "hola") {
			t.Fatal("expected user message in payload")
		}
		return &http.Response{
			StatusCode: 200,
			Body: io.NopCloser(strings.NewReader(`{
				"choices":[{"message":{"role":"assistant","content":"respuesta"}}]
			}`)),
			Header: make(http.Header),
		}
	})

	out, err := client.Chat(context.Background(), "sistema", "hola")
	if err != nil {
		t.Fatalf("Chat: %v", err)
	}
	if out != "respuesta" {
		t.Errorf("out = %q", out)
	}
}

func TestChatAPIError(t *testing.T) {
	client := fakeClient(t, func(req *http.Request) *http.Response {
		return &http.Response{
			StatusCode: 429,
			Body: io.NopCloser(strings.NewReader(`{
				"error":{"message":"rate limited"}
			}`)),
			Header: make(http.Header),
		}
	})

	_, err := client.Chat(context.Background(), "sistema", "hola")
	if err == nil {
		t.Fatal("expected error")
	}
	if !strings.Contains(err.Error(), "rate limited") {
		t.Errorf("err = %v", err)
	}
}

func TestChatEmptyChoices(t *testing.T) {
	client := fakeClient(t, func(req *http.Request) *http.Response {
		return &http.Response{
			StatusCode: 200,
			Body:       io.NopCloser(strings.NewReader(`{"choices":[]}`)),
			Header:     make(http.Header),
		}
	})

	if _, err := client.Chat(context.Background(), "sistema", "hola"); err == nil {
		t.Fatal("expected error on empty choices")
	}
}

func TestChatMissingConfig(t *testing.T) {
	client := &Client{}

	_, err := client.Chat(context.Background(), "sistema", "hola")
	if !errors.Is(err, internalerr.ErrClassifierUnavailable) {
		t.Errorf("expected ErrClassifierUnavailable, got %v", err)
	}
}

func TestChatSendsAuthHeader(t *testing.T) {
	var gotAuth string
	client := fakeClient(t, func(req *http.Request) *http.Response {
		gotAuth = req.Header.Get("Authorization")
		return &http.Response{
			StatusCode: 200,
			Body: io.NopCloser(strings.NewReader(`{
				"choices":[{"message":{"content":"ok"}}]
			}`)),
			Header: make(http.Header),
		}
	})
	client.APIKey = "secreto"

	if _, err := client.Chat(context.Background(), "s", "u"); err != nil {
		t.Fatal(err)
	}
	if gotAuth != "Bearer secreto" {
		t.Errorf("Authorization = %q", gotAuth)
	}
}
