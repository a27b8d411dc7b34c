package pubsub

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/angelmondragon/elibrary-backend/pkg/config"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

func TestResourceNames(t *testing.T) {
	cases := []struct {
		got, want string
	}{
		{topicResourceName("proj", "ledger"), "projects/proj/topics/ledger"},
		{topicResourceName("proj", "projects/other/topics/ledger"), "projects/other/topics/ledger"},
		{subscriptionResourceName("proj", " notifications "), "projects/proj/subscriptions/notifications"},
		{subscriptionResourceName("", "notifications"), ""},
		{topicResourceName("proj", ""), ""},
	}
	for _, tc := range cases {
		if tc.got != tc.want {
			t.Fatalf("expected %q, got %q", tc.want, tc.got)
		}
	}
}

func TestDescribeLookupError(t *testing.T) {
	err := describeLookupError("topic", "ledger", status.Error(codes.NotFound, "gone"))
	if !strings.Contains(err.Error(), `topic "ledger" does not exist`) {
		t.Fatalf("unexpected error %v", err)
	}
	cause := errors.New("dial failed")
	if err := describeLookupError("subscription", "n", cause); !errors.Is(err, cause) {
		t.Fatalf("expected wrapped cause, got %v", err)
	}
}

func TestNewClientValidation(t *testing.T) {
	ctx := context.Background()
	if _, err := NewClient(ctx, config.GCPConfig{}, config.PubSubConfig{LedgerTopic: "t"}, nil); !errors.Is(err, errProjectIDRequired) {
		t.Fatalf("expected project id error, got %v", err)
	}
	if _, err := NewClient(ctx, config.GCPConfig{ProjectID: "p"}, config.PubSubConfig{}, nil); !errors.Is(err, errTopicRequired) {
		t.Fatalf("expected topic error, got %v", err)
	}
}

func TestNilClientHandles(t *testing.T) {
	var c *Client
	if c.LedgerPublisher() != nil || c.NotificationsSubscription() != nil {
		t.Fatal("expected nil handles from nil client")
	}
	if err := c.Ping(context.Background()); err == nil {
		t.Fatal("expected ping error from nil client")
	}
	if err := c.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
}
