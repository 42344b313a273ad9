package dashboard

import (
	"bufio"
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"
	"github.com/valyala/fasthttp"
)

const (
	clientBuffer     = 16
	defaultKeepAlive = 15 * time.Second
)

// Message is one server-sent event. Event is the SSE event name and Data a single line of JSON.
type Message struct {
	Event string
	Data  []byte
}

// EventServer manages Server-Sent Events (SSE) by handling client connections and broadcasting messages.
// Each client is represented by a buffered channel in the 'clients' map. Messages sent to the
// 'broadcast' channel are forwarded to every client; a client that falls behind loses messages
// rather than stalling the others.
type EventServer struct {
	broadcast     chan Message
	context       context.Context
	cancel        context.CancelFunc
	ConnectClient chan chan Message
	CloseClient   chan chan Message
	clients       map[chan Message]struct{} // Map to keep track of connected clients
	sync          sync.Mutex
	KeepAlive     time.Duration
	logger        zerolog.Logger
}

func NewSSEServer(parentCtx context.Context, logger zerolog.Logger) *EventServer {
	// Create a cancellable context derived from the parent context
	ctx, cancel := context.WithCancel(parentCtx)

	return &EventServer{
		broadcast:     make(chan Message),
		context:       ctx,
		cancel:        cancel, // Store the cancel function to stop the server later
		ConnectClient: make(chan chan Message),
		CloseClient:   make(chan chan Message),
		clients:       make(map[chan Message]struct{}),
		KeepAlive:     defaultKeepAlive,
		logger:        logger.With().Str("component", "sse").Logger(),
	}
}

func (sseServer *EventServer) Run() {
	for {
		select {
		case <-sseServer.context.Done():
			sseServer.logger.Info().Msg("stopping sse server")
			sseServer.sync.Lock()
			for client := range sseServer.clients {
				close(client)
				delete(sseServer.clients, client)
			}
			sseServer.sync.Unlock()
			return

		case clientConnection := <-sseServer.ConnectClient:
			sseServer.sync.Lock()
			sseServer.clients[clientConnection] = struct{}{}
			sseServer.sync.Unlock()
			sseServer.logger.Debug().Msg("client connected")

		case clientDisconnect := <-sseServer.CloseClient:
			sseServer.sync.Lock()
			delete(sseServer.clients, clientDisconnect)
			sseServer.sync.Unlock()
			sseServer.logger.Debug().Msg("client disconnected")

		case message := <-sseServer.broadcast:
			sseServer.sync.Lock()
			for clientConnection := range sseServer.clients {
				select {
				case clientConnection <- message:
				default:
					sseServer.logger.Warn().Str("event", message.Event).Msg("client buffer full, dropping message")
				}
			}
			sseServer.sync.Unlock()
		}
	}
}

func (sseServer *EventServer) Stop() {
	sseServer.cancel()
}

// Broadcast hands msg to the hub. It returns false once the server has stopped.
func (sseServer *EventServer) Broadcast(msg Message) bool {
	select {
	case sseServer.broadcast <- msg:
		return true
	case <-sseServer.context.Done():
		return false
	}
}

func (sseServer *EventServer) ClientCount() int {
	sseServer.sync.Lock()
	defer sseServer.sync.Unlock()
	return len(sseServer.clients)
}

func (sseServer *EventServer) connect() (chan Message, bool) {
	message := make(chan Message, clientBuffer)
	select {
	case sseServer.ConnectClient <- message:
		return message, true
	case <-sseServer.context.Done():
		return nil, false
	}
}

func (sseServer *EventServer) disconnect(message chan Message) {
	select {
	case sseServer.CloseClient <- message:
	case <-sseServer.context.Done():
	}
}

//================================================
// Handling connections
//================================================

func (sseServer *EventServer) HandleConnection(c *fiber.Ctx) error {
	if sseServer.context.Err() != nil {
		return fiber.ErrServiceUnavailable
	}

	// Set headers to mimic SSE
	c.Set(fiber.HeaderContentType, "text/event-stream")
	c.Set(fiber.HeaderCacheControl, "no-cache")
	c.Set(fiber.HeaderConnection, "keep-alive")
	c.Set("X-Accel-Buffering", "no")
	c.Set(fiber.HeaderAccessControlAllowOrigin, "*")

	c.Context().SetBodyStreamWriter(fasthttp.StreamWriter(func(w *bufio.Writer) {
		// connect and disconnect both run on the streaming goroutine
		message, ok := sseServer.connect()
		if !ok {
			return
		}
		defer sseServer.disconnect(message)

		//keeping the connection alive with keep-alive protocol
		keepAliveTicker := time.NewTicker(sseServer.KeepAlive)
		defer keepAliveTicker.Stop()

		// an initial comment gets the headers to the client straight away
		if err := writeComment(w, "connected"); err != nil {
			return
		}

		for {
			select {
			case msg, ok := <-message:
				if !ok {
					return
				}
				if err := writeMessage(w, msg); err != nil {
					sseServer.logger.Debug().Err(err).Msg("error writing message")
					return
				}
			case <-keepAliveTicker.C:
				// a failed flush is how a closed connection shows up
				if err := writeComment(w, "keepalive"); err != nil {
					return
				}
			case <-sseServer.context.Done():
				return
			}
		}
	}))
	return nil
}

func writeMessage(w *bufio.Writer, msg Message) error {
	if msg.Event != "" {
		if _, err := fmt.Fprintf(w, "event: %s\n", msg.Event); err != nil {
			return err
		}
	}
	if _, err := fmt.Fprintf(w, "data: %s\n\n", msg.Data); err != nil {
		return err
	}
	return w.Flush()
}

func writeComment(w *bufio.Writer, comment string) error {
	if _, err := fmt.Fprintf(w, ":%s\n\n", comment); err != nil {
		return err
	}
	return w.Flush()
}
