// Package bus implements the in-process message bus the gas node's
// services communicate over: a topic trie with MQTT-style `+`/`#`
// wildcards, retained messages, and request/reply on top of plain pub/sub.
// It has no external dependencies so it runs unchanged under TinyGo.
package bus

import (
	"context"
	"errors"
	"reflect"
	"sync"
	"sync/atomic"
)

// Token is a single element in a topic path. Any comparable value works;
// strings and small integers are the convention (e.g. "hal", "capability",
// "eco2", 0).
type Token = any

// Topic is a sequence of tokens.
type Topic []Token

// Wildcard tokens usable in subscription topics. `+` matches exactly one
// token, `#` matches the rest of the path (including none).
const (
	WildcardOne = "+"
	WildcardAll = "#"
)

// T builds a Topic and verifies every token is comparable; a
// non-comparable token (slice, map, func) panics here rather than later
// inside the trie.
func T(tokens ...Token) Topic {
	for _, tok := range tokens {
		if tok == nil || !reflect.TypeOf(tok).Comparable() {
			panic("bus: topic token must be comparable")
		}
	}
	return Topic(tokens)
}

// Message is one bus datum. Retained messages are stored at their topic
// and replayed to later subscribers; publishing a retained message with a
// nil payload clears the slot.
type Message struct {
	Topic    Topic
	Payload  any
	Retained bool
	ReplyTo  Topic
}

// Subscription is one live topic filter owned by a Connection.
type Subscription struct {
	topic Topic
	ch    chan *Message
	conn  *Connection
}

func (s *Subscription) Topic() Topic             { return s.topic }
func (s *Subscription) Channel() <-chan *Message { return s.ch }
func (s *Subscription) Unsubscribe()             { s.conn.Unsubscribe(s) }

// trie node
type node struct {
	children map[Token]*node
	subs     []*Subscription
	retained *Message
}

// Bus is the shared trie. All methods are safe for concurrent use.
type Bus struct {
	mu       sync.RWMutex
	root     *node
	qLen     int
	replySeq uint32
}

// NewBus creates a bus whose subscriptions buffer queueLen messages; a
// full queue drops the oldest message rather than blocking a publisher.
func NewBus(queueLen int) *Bus {
	if queueLen <= 0 {
		queueLen = 8 // safe default
	}
	return &Bus{root: &node{}, qLen: queueLen}
}

// NewMessage builds a message without binding it to a connection.
func (b *Bus) NewMessage(topic Topic, payload any, retained bool) *Message {
	return &Message{Topic: topic, Payload: payload, Retained: retained}
}

// Publish delivers a message to every subscription whose filter matches
// its topic, and stores or clears the retained slot when asked to.
// Publish topics must be literal (no wildcards).
func (b *Bus) Publish(msg *Message) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.deliver(b.root, msg, 0)

	if !msg.Retained {
		return
	}
	n := b.root
	for _, tok := range msg.Topic {
		if n.children == nil {
			n.children = make(map[Token]*node)
		}
		child, ok := n.children[tok]
		if !ok {
			child = &node{}
			n.children[tok] = child
		}
		n = child
	}
	if msg.Payload == nil {
		n.retained = nil
	} else {
		n.retained = msg
	}
}

// deliver walks the trie, following literal, `+` and `#` branches.
func (b *Bus) deliver(n *node, msg *Message, idx int) {
	if idx == len(msg.Topic) {
		for _, sub := range n.subs {
			b.send(sub, msg)
		}
		// "x/#" also matches "x" itself.
		if hash, ok := n.children[Token(WildcardAll)]; ok {
			for _, sub := range hash.subs {
				b.send(sub, msg)
			}
		}
		return
	}
	if n.children == nil {
		return
	}
	if child, ok := n.children[msg.Topic[idx]]; ok {
		b.deliver(child, msg, idx+1)
	}
	if child, ok := n.children[Token(WildcardOne)]; ok {
		b.deliver(child, msg, idx+1)
	}
	if child, ok := n.children[Token(WildcardAll)]; ok {
		for _, sub := range child.subs {
			b.send(sub, msg)
		}
	}
}

func (b *Bus) send(sub *Subscription, msg *Message) {
	select {
	case sub.ch <- msg:
	default:
		// drop oldest if queue full
		select {
		case <-sub.ch:
		default:
		}
		select {
		case sub.ch <- msg:
		default:
		}
	}
}

func (b *Bus) addSubscription(sub *Subscription) {
	b.mu.Lock()
	defer b.mu.Unlock()

	n := b.root
	for _, tok := range sub.topic {
		if n.children == nil {
			n.children = make(map[Token]*node)
		}
		child, ok := n.children[tok]
		if !ok {
			child = &node{}
			n.children[tok] = child
		}
		n = child
	}
	n.subs = append(n.subs, sub)

	// Replay retained messages matching the filter.
	b.replayRetained(b.root, sub, 0)
}

// replayRetained walks the literal trie against the subscription pattern.
func (b *Bus) replayRetained(n *node, sub *Subscription, idx int) {
	if idx == len(sub.topic) {
		if n.retained != nil {
			b.send(sub, n.retained)
		}
		return
	}
	switch sub.topic[idx] {
	case Token(WildcardAll):
		b.replaySubtree(n, sub)
	case Token(WildcardOne):
		for tok, child := range n.children {
			if tok == Token(WildcardOne) || tok == Token(WildcardAll) {
				continue
			}
			b.replayRetained(child, sub, idx+1)
		}
	default:
		if child, ok := n.children[sub.topic[idx]]; ok {
			b.replayRetained(child, sub, idx+1)
		}
	}
}

func (b *Bus) replaySubtree(n *node, sub *Subscription) {
	if n.retained != nil {
		b.send(sub, n.retained)
	}
	for tok, child := range n.children {
		if tok == Token(WildcardOne) || tok == Token(WildcardAll) {
			continue
		}
		b.replaySubtree(child, sub)
	}
}

func (b *Bus) removeSubscription(sub *Subscription) {
	b.mu.Lock()
	defer b.mu.Unlock()

	n := b.root
	var stack []*node
	for _, tok := range sub.topic {
		if n.children == nil {
			return
		}
		child, ok := n.children[tok]
		if !ok {
			return
		}
		stack = append(stack, n)
		n = child
	}
	for i, s := range n.subs {
		if s == sub {
			n.subs = append(n.subs[:i], n.subs[i+1:]...)
			break
		}
	}
	// Prune empty branches.
	for i := len(sub.topic) - 1; i >= 0; i-- {
		parent := stack[i]
		key := sub.topic[i]
		child := parent.children[key]
		if len(child.subs) == 0 && len(child.children) == 0 && child.retained == nil {
			delete(parent.children, key)
		} else {
			break
		}
	}
}

// Connection scopes subscriptions to one participant (a service or a test)
// so they can be torn down together.
type Connection struct {
	bus  *Bus
	id   string
	mu   sync.Mutex
	subs []*Subscription
}

// NewConnection creates a connection bound to this bus. The id names the
// participant in reply topics.
func (b *Bus) NewConnection(id string) *Connection {
	return &Connection{bus: b, id: id}
}

// NewMessage builds a message; identical to Bus.NewMessage, kept on the
// connection for call-site convenience.
func (c *Connection) NewMessage(topic Topic, payload any, retained bool) *Message {
	return &Message{Topic: topic, Payload: payload, Retained: retained}
}

// Publish sends a message via the bus.
func (c *Connection) Publish(msg *Message) { c.bus.Publish(msg) }

// Subscribe registers a filter owned by this connection.
func (c *Connection) Subscribe(topic Topic) *Subscription {
	sub := &Subscription{
		topic: topic,
		ch:    make(chan *Message, c.bus.qLen),
		conn:  c,
	}
	c.bus.addSubscription(sub)
	c.mu.Lock()
	c.subs = append(c.subs, sub)
	c.mu.Unlock()
	return sub
}

// Unsubscribe removes a subscription owned by this connection and closes
// its channel.
func (c *Connection) Unsubscribe(sub *Subscription) {
	c.bus.removeSubscription(sub)
	c.mu.Lock()
	for i, s := range c.subs {
		if s == sub {
			c.subs = append(c.subs[:i], c.subs[i+1:]...)
			break
		}
	}
	c.mu.Unlock()
	close(sub.ch)
}

// Disconnect closes all subscriptions and clears them.
func (c *Connection) Disconnect() {
	c.mu.Lock()
	subs := c.subs
	c.subs = nil
	c.mu.Unlock()

	for _, sub := range subs {
		c.bus.removeSubscription(sub)
		close(sub.ch)
	}
}

// Reply publishes a response on a request's ReplyTo topic. Requests
// without a ReplyTo are dropped silently.
func (c *Connection) Reply(req *Message, payload any, retained bool) {
	if len(req.ReplyTo) == 0 {
		return
	}
	c.bus.Publish(&Message{Topic: req.ReplyTo, Payload: payload, Retained: retained})
}

// Request stamps the message with a fresh ReplyTo topic, subscribes to it,
// and publishes the request. The caller owns the returned subscription and
// must Unsubscribe it.
func (c *Connection) Request(msg *Message) *Subscription {
	seq := atomic.AddUint32(&c.bus.replySeq, 1)
	msg.ReplyTo = Topic{"$reply", c.id, int(seq)}
	sub := c.Subscribe(msg.ReplyTo)
	c.bus.Publish(msg)
	return sub
}

// ErrNoReply is returned by RequestWait when the context expires first.
var ErrNoReply = errors.New("bus: no reply")

// RequestWait performs Request and blocks for the first reply or the
// context's deadline.
func (c *Connection) RequestWait(ctx context.Context, msg *Message) (*Message, error) {
	sub := c.Request(msg)
	defer c.Unsubscribe(sub)
	select {
	case reply, ok := <-sub.Channel():
		if !ok {
			return nil, ErrNoReply
		}
		return reply, nil
	case <-ctx.Done():
		return nil, ErrNoReply
	}
}
