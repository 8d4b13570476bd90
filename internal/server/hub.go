// Package server coordinates connection acceptance, pump lifecycle, and
// shutdown for the chat relay via the Hub type. Protocol state lives in the
// Router; the Hub only owns the transport side of each connection.
package server

import (
	"context"
	"log"
	"sync"
	"time"
)

// Hub tracks live WebSocket connections and runs their lifecycle loop.
// Registration makes a connection visible to the router's broadcasts;
// unregistration triggers the router's disconnect cascade, which also tears
// down the connection's send channel.
type Hub struct {
	router     *Router
	clients    map[*Client]bool
	register   chan *Client
	unregister chan *Client
	mutex      sync.RWMutex
	wg         sync.WaitGroup
	ctx        context.Context
	cancel     context.CancelFunc
	done       chan struct{}
}

// NewHub creates a Hub with a fresh Router and empty connection set.
func NewHub() *Hub {
	ctx, cancel := context.WithCancel(context.Background())
	return &Hub{
		router:     NewRouter(),
		clients:    make(map[*Client]bool),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		ctx:        ctx,
		cancel:     cancel,
		done:       make(chan struct{}),
	}
}

// Router exposes the hub's protocol dispatcher.
func (h *Hub) Router() *Router {
	return h.router
}

// GetRegisterChan returns the channel used for handing new connections to the hub.
func (h *Hub) GetRegisterChan() chan<- *Client {
	return h.register
}

// GetUnregisterChan returns the channel used for removing connections from the hub.
func (h *Hub) GetUnregisterChan() chan<- *Client {
	return h.unregister
}

// Run is the hub's main loop. It should be started in its own goroutine and
// runs until Shutdown cancels it.
func (h *Hub) Run() {
	defer close(h.done)

	for {
		select {
		case <-h.ctx.Done():
			h.shutdownClients()
			return

		case client := <-h.register:
			if client == nil {
				log.Printf("Received nil client registration; skipping")
				continue
			}
			h.mutex.Lock()
			h.clients[client] = true
			clientCount := len(h.clients)
			h.mutex.Unlock()

			h.router.AddConnection(client)
			log.Printf("Connection accepted from %s (%s). Total connections: %d", client.addr, client.ID(), clientCount)

			h.wg.Add(2)
			go func() {
				defer h.wg.Done()
				client.writePump()
			}()
			go func() {
				defer h.wg.Done()
				client.readPump()
			}()

		case client := <-h.unregister:
			h.mutex.Lock()
			_, known := h.clients[client]
			if known {
				delete(h.clients, client)
			}
			clientCount := len(h.clients)
			h.mutex.Unlock()
			if !known {
				continue
			}

			// The router owns transport teardown: Disconnect closes the
			// client's send channel under the same lock its deliveries
			// take, then clears every registry and channel entry.
			h.router.Disconnect(client)
			log.Printf("Connection removed from %s (%s). Total connections: %d", client.addr, client.ID(), clientCount)
		}
	}
}

var hub = NewHub()

// shutdownClients closes every active transport.
func (h *Hub) shutdownClients() {
	log.Println("Shutting down all client connections...")

	h.mutex.Lock()
	clients := make([]*Client, 0, len(h.clients))
	for client := range h.clients {
		clients = append(clients, client)
	}
	h.mutex.Unlock()

	for _, client := range clients {
		if client.conn == nil {
			continue
		}
		if err := client.conn.Close(); err != nil && !isExpectedCloseError(err) {
			log.Printf("Error closing client connection from %s: %v", client.addr, err)
		}
	}

	log.Printf("Closed %d client connections", len(clients))
}

// Shutdown cancels the hub's loop and waits for every pump goroutine to
// finish, up to the timeout.
func (h *Hub) Shutdown(timeout time.Duration) error {
	log.Println("Initiating hub shutdown...")

	h.cancel()
	<-h.done

	done := make(chan struct{})
	go func() {
		h.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		log.Println("Hub shutdown completed successfully")
		return nil
	case <-time.After(timeout):
		log.Println("Hub shutdown timeout reached, some goroutines may still be running")
		return context.DeadlineExceeded
	}
}
