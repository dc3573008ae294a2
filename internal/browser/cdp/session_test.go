package cdp

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/chromedp/cdproto/target"
	"github.com/jakopako/extraduty/internal/browser"
	"github.com/stretchr/testify/assert"
)

func TestPickTarget(t *testing.T) {
	targets := []*target.Info{
		{TargetID: "w", Type: "service_worker", URL: "https://vcssoftware.com/sw.js"},
		{TargetID: "a", Type: "page", URL: "https://mail.example.com"},
		{TargetID: "b", Type: "page", URL: "https://VCSSoftware.com/Extra-Duty/signup"},
	}
	tests := []struct {
		hints    []string
		expected target.ID
	}{
		{[]string{"extra-duty"}, "b"},
		{[]string{"", "vcssoftware.com"}, "b"},
		{[]string{"nothing"}, "a"},
		{nil, "a"},
	}
	for _, tt := range tests {
		got := pickTarget(targets, tt.hints)
		if got == nil || got.TargetID != tt.expected {
			t.Errorf("pickTarget(%v) = %v; want %s", tt.hints, got, tt.expected)
		}
	}
	assert.Nil(t, pickTarget(targets[:1], nil))
}

func TestClassify(t *testing.T) {
	assert.NoError(t, classify(nil))
	assert.ErrorIs(t, classify(errors.New("Could not find node with given id (-32000)")), browser.ErrStale)
	assert.ErrorIs(t, classify(fmt.Errorf("call: %w", errors.New("Node is detached from document"))), browser.ErrStale)
	assert.ErrorIs(t, classify(context.DeadlineExceeded), context.DeadlineExceeded)
	other := errors.New("invalid selector")
	assert.Same(t, other, classify(other))
}

func TestConnectNeedsAddress(t *testing.T) {
	_, err := Connect(context.Background(), Options{})
	assert.ErrorIs(t, err, browser.ErrConnection)
}

func TestShorten(t *testing.T) {
	tests := []struct {
		input    string
		length   int
		expected string
	}{
		{"hello world", 5, "hello..."},
		{"hello", 10, "hello"},
		{"abcdef", 0, "abcdef"},
	}
	for _, tt := range tests {
		if got := shorten(tt.input, tt.length); got != tt.expected {
			t.Errorf("shorten(%q, %d) = %q; want %q", tt.input, tt.length, got, tt.expected)
		}
	}
}
