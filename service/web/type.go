package web

import "context"

// IService serves the current state over HTTP and pushes events to
// websocket clients.
type IService interface {
	Start(ctx context.Context) error
	Broadcast(v interface{}) error
	SetState(v interface{})
	Clients() int
}
