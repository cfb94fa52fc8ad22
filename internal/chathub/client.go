package chathub

import "vetline/backend/internal/models"

// Client is the interface for any live connection transport. It abstracts
// the underlying communication mechanism so the hub can manage websocket
// endpoints and test doubles uniformly.
type Client interface {
	// GetConnectionID returns the unique identifier assigned to this
	// transport connection at upgrade time.
	GetConnectionID() string

	// GetSendChannel returns the channel the hub writes outbound events
	// to. It is a send-only channel; the client's write pump drains it.
	GetSendChannel() chan<- models.Event

	// Run starts the client's read and write pumps.
	Run()
	// Close shuts down the client's connection and send channel.
	Close()
}

// Frame pairs an inbound event with the connection it arrived on.
type Frame struct {
	ConnectionID string
	Event        models.Event
}
