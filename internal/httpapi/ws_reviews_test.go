package httpapi

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestHub(t *testing.T) *ReviewHub {
	t.Helper()
	logger, err := zap.NewDevelopment()
	require.NoError(t, err)
	return NewReviewHub(logger.Sugar())
}

func TestReviewHubBroadcastDeliversToSubscribedTenant(t *testing.T) {
	hub := newTestHub(t)
	client := &wsClient{send: make(chan interface{}, 1), done: make(chan struct{})}
	hub.add("tenant-a", client)

	hub.Broadcast("tenant-a", map[string]string{"event": "review_created"})

	select {
	case v := <-client.send:
		assert.Equal(t, map[string]string{"event": "review_created"}, v)
	default:
		t.Fatal("expected a message on client.send")
	}
}

func TestReviewHubBroadcastIgnoresOtherTenants(t *testing.T) {
	hub := newTestHub(t)
	client := &wsClient{send: make(chan interface{}, 1), done: make(chan struct{})}
	hub.add("tenant-a", client)

	hub.Broadcast("tenant-b", map[string]string{"event": "review_created"})

	select {
	case <-client.send:
		t.Fatal("client for tenant-a should not receive tenant-b broadcasts")
	default:
	}
}

func TestReviewHubBroadcastDropsSlowClient(t *testing.T) {
	hub := newTestHub(t)
	client := &wsClient{send: make(chan interface{}), done: make(chan struct{})} // unbuffered, nobody reads
	hub.add("tenant-a", client)

	hub.Broadcast("tenant-a", "first message")

	hub.mu.Lock()
	_, stillPresent := hub.clients["tenant-a"][client]
	hub.mu.Unlock()
	assert.False(t, stillPresent, "a client whose send buffer is full should be dropped")
}

func TestReviewHubBroadcastSkipsDoneClient(t *testing.T) {
	hub := newTestHub(t)
	client := &wsClient{send: make(chan interface{}, 1), done: make(chan struct{})}
	close(client.done)
	hub.add("tenant-a", client)

	assert.NotPanics(t, func() {
		hub.Broadcast("tenant-a", "message after disconnect")
	})
}

func TestReviewHubRemoveCleansUpEmptyTenantEntry(t *testing.T) {
	hub := newTestHub(t)
	client := &wsClient{send: make(chan interface{}, 1), done: make(chan struct{})}
	hub.add("tenant-a", client)
	hub.remove("tenant-a", client)

	hub.mu.Lock()
	_, present := hub.clients["tenant-a"]
	hub.mu.Unlock()
	assert.False(t, present, "tenant entry should be removed once its last client disconnects")
}
