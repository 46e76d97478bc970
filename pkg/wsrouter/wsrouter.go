package wsrouter

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/gorilla/websocket"
)

var ErrUnknownMessageType = errors.New("unknown message type")

type message struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

type HandlerFunc func(ctx context.Context, payload json.RawMessage) error

type Middleware func(next HandlerFunc) HandlerFunc

// WSRouter dispatches incoming websocket messages by their type. Handlers
// never write to the connection; replies go through whatever writer owns it.
type WSRouter struct {
	routes       map[string]HandlerFunc
	middlewares  []Middleware
	errorHandler func(ctx context.Context, err error)
}

func New() *WSRouter {
	return &WSRouter{
		routes:       make(map[string]HandlerFunc),
		errorHandler: func(context.Context, error) {},
	}
}

func (r *WSRouter) Use(mws ...Middleware) {
	r.middlewares = append(r.middlewares, mws...)
}

func (r *WSRouter) Handle(messageType string, handler HandlerFunc) {
	for i := len(r.middlewares) - 1; i >= 0; i-- {
		handler = r.middlewares[i](handler)
	}
	r.routes[messageType] = handler
}

// OnError sets the callback receiving handler errors and unknown message types.
func (r *WSRouter) OnError(fn func(ctx context.Context, err error)) {
	r.errorHandler = fn
}

// ServeConn reads messages until the connection fails or ctx is done.
func (r *WSRouter) ServeConn(ctx context.Context, conn *websocket.Conn) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		var msg message
		if err := conn.ReadJSON(&msg); err != nil {
			return err
		}

		handler, exists := r.routes[msg.Type]
		if !exists {
			r.errorHandler(ctx, fmt.Errorf("%w: %q", ErrUnknownMessageType, msg.Type))
			continue
		}

		msgCtx := context.WithValue(ctx, messageTypeKey, msg.Type)
		if err := handler(msgCtx, msg.Payload); err != nil {
			r.errorHandler(msgCtx, err)
		}
	}
}
