package pubsub

import (
	"testing"

	"github.com/angelmondragon/fleetops-backend/pkg/config"
)

func TestTopicResourceName(t *testing.T) {
	c := &Client{projectID: "fleet-prod"}
	if got := c.topicResourceName("fleetops-journey-events"); got != "projects/fleet-prod/topics/fleetops-journey-events" {
		t.Fatalf("unexpected resource name %q", got)
	}
	full := "projects/other/topics/custom"
	if got := c.topicResourceName(full); got != full {
		t.Fatalf("expected full name passthrough, got %q", got)
	}
	if got := c.topicResourceName("  "); got != "" {
		t.Fatalf("expected empty name for blank input, got %q", got)
	}
}

func TestTopicNamesSkipsBlank(t *testing.T) {
	names := topicNames(config.PubSubConfig{NotificationTopic: "notify", JourneyTopic: " "})
	if len(names) != 1 || names[0] != "notify" {
		t.Fatalf("unexpected topic names %v", names)
	}
}

func TestNilClientPublisher(t *testing.T) {
	var c *Client
	if c.Publisher("notify") != nil {
		t.Fatal("expected nil publisher from nil client")
	}
}

func TestClientOptionsPrefersInlineCredentials(t *testing.T) {
	if got := clientOptions(config.GCPConfig{}); len(got) != 0 {
		t.Fatalf("expected default credentials, got %d options", len(got))
	}
	got := clientOptions(config.GCPConfig{CredentialsJSON: `{"type":"service_account"}`, ApplicationCredentials: "/tmp/key.json"})
	if len(got) != 1 {
		t.Fatalf("expected a single credentials option, got %d", len(got))
	}
}
