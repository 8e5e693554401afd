package reqrep

import (
	"context"
	"sync/atomic"
)

// Client is a shareable handle on a backend instance. Requests sent
// through one client are processed in the order they were sent; no
// ordering holds across clients or clones.
type Client[Req, Rep any] struct {
	svc    *service[Req, Rep]
	closed atomic.Bool
}

// ID returns the service id.
func (c *Client[Req, Rep]) ID() ReqRepID { return c.svc.id }

// InstanceID returns the backend instance id. Clones share it.
func (c *Client[Req, Rep]) InstanceID() InstanceID { return c.svc.instanceID }

// Send queues the request and returns a receiver for its reply. The
// call suspends while the request channel is full; ctx bounds the
// wait. Discarding the receiver turns the request into fire-and-forget
// work that is still fully processed.
func (c *Client[Req, Rep]) Send(ctx context.Context, req Req) (*ReplyReceiver[Rep], error) {
	if c.closed.Load() {
		return nil, ErrClientClosed
	}
	select {
	case <-c.svc.done:
		return nil, ErrDisconnected
	default:
	}
	msg := request[Req, Rep]{id: NewMessageID(), req: req, reply: make(chan Rep, 1)}
	select {
	case c.svc.requests <- msg:
		c.svc.sends.Inc()
		return &ReplyReceiver[Rep]{reply: msg.reply, done: c.svc.done}, nil
	case <-c.svc.done:
		return nil, ErrDisconnected
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// SendRecv sends the request and waits for its reply.
func (c *Client[Req, Rep]) SendRecv(ctx context.Context, req Req) (Rep, error) {
	var zero Rep
	rr, err := c.Send(ctx, req)
	if err != nil {
		return zero, err
	}
	return rr.Recv(ctx)
}

// Clone returns a new client sharing the backend instance. The
// instance's reference count grows by one; the clone must be closed
// independently.
func (c *Client[Req, Rep]) Clone() (*Client[Req, Rep], error) {
	if c.closed.Load() {
		return nil, ErrClientClosed
	}
	c.svc.refs.Add(1)
	return &Client[Req, Rep]{svc: c.svc}, nil
}

// Close drops this client's reference. Idempotent. When the last
// reference drops, the request channel closes and the backend drains
// pending requests before terminating.
func (c *Client[Req, Rep]) Close() {
	if c.closed.CompareAndSwap(false, true) {
		c.svc.unref()
	}
}

// ReplyReceiver delivers one reply. It is single-use and not safe for
// concurrent use by multiple goroutines.
type ReplyReceiver[Rep any] struct {
	reply    <-chan Rep
	done     <-chan struct{}
	consumed bool
}

// Recv waits for the reply. A reply that was already delivered wins
// over a concurrent backend disconnect; otherwise a dead backend
// yields ErrDisconnected. ctx bounds the wait without cancelling the
// processing itself.
func (rr *ReplyReceiver[Rep]) Recv(ctx context.Context) (Rep, error) {
	var zero Rep
	if rr.consumed {
		return zero, ErrReplyConsumed
	}
	select {
	case rep := <-rr.reply:
		rr.consumed = true
		return rep, nil
	default:
	}
	select {
	case rep := <-rr.reply:
		rr.consumed = true
		return rep, nil
	case <-rr.done:
		// the reply may have landed just before the backend died
		select {
		case rep := <-rr.reply:
			rr.consumed = true
			return rep, nil
		default:
		}
		rr.consumed = true
		return zero, ErrDisconnected
	case <-ctx.Done():
		return zero, ctx.Err()
	}
}

// Close abandons interest in the reply. The request is still processed.
func (rr *ReplyReceiver[Rep]) Close() {
	rr.consumed = true
}
