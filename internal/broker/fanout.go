package broker

import "sync"

type subscribeRequest[T any] struct {
	id      uint64
	channel chan T
}

// Fanout broadcasts every published payload to all active subscribers. It is
// the change-notification primitive of the session store: each committed row
// mutation is published once and every attached replication client receives it.
//
// A single goroutine owns the subscriber table, so subscribe, unsubscribe, and
// publish never race. Subscriber channels are buffered; a subscriber that
// stops draining loses events rather than stalling the loop, which matches the
// latest-value-wins consistency the replication layer promises.
type Fanout[T any] struct {
	stopChannel        chan struct{}
	stopOnce           sync.Once
	publishChannel     chan T
	subscribeChannel   chan subscribeRequest[T]
	unsubscribeChannel chan uint64
	nextID             uint64
	idMu               sync.Mutex
}

// NewFanout creates a Fanout. Call Start in a goroutine and Stop to tear down.
func NewFanout[T any]() *Fanout[T] {
	return &Fanout[T]{
		stopChannel:        make(chan struct{}),
		publishChannel:     make(chan T),
		subscribeChannel:   make(chan subscribeRequest[T]),
		unsubscribeChannel: make(chan uint64),
	}
}

// Start listens for publish, subscribe, and unsubscribe events. It blocks
// until Stop is called, so it should be run in a goroutine.
func (f *Fanout[T]) Start() {
	subscribers := map[uint64]chan T{}
	for {
		select {
		case <-f.stopChannel:
			for id, channel := range subscribers {
				close(channel)
				delete(subscribers, id)
			}
			return

		case request := <-f.subscribeChannel:
			subscribers[request.id] = request.channel

		case id := <-f.unsubscribeChannel:
			if channel, ok := subscribers[id]; ok {
				close(channel)
				delete(subscribers, id)
			}

		case payload := <-f.publishChannel:
			for _, channel := range subscribers {
				select {
				case channel <- payload:
				default:
					// Subscriber is not draining; drop rather than stall.
				}
			}
		}
	}
}

// Stop shuts down the loop and closes every subscriber channel. Safe to call
// more than once.
func (f *Fanout[T]) Stop() {
	f.stopOnce.Do(func() {
		close(f.stopChannel)
	})
}

// Subscription is a registered consumer of the fan-out. Close is idempotent
// and safe to call after the fan-out has stopped.
type Subscription[T any] struct {
	C         <-chan T
	id        uint64
	fanout    *Fanout[T]
	closeOnce sync.Once
}

// Close unregisters the subscription and closes its channel.
func (s *Subscription[T]) Close() {
	s.closeOnce.Do(func() {
		select {
		case s.fanout.unsubscribeChannel <- s.id:
		case <-s.fanout.stopChannel:
			// Loop already gone; the channel was closed during Stop.
		}
	})
}

// Subscribe registers a new subscriber with the given channel buffer size.
// It returns nil if the fan-out has already stopped.
func (f *Fanout[T]) Subscribe(buffer int) *Subscription[T] {
	f.idMu.Lock()
	f.nextID++
	id := f.nextID
	f.idMu.Unlock()

	channel := make(chan T, buffer)
	select {
	case f.subscribeChannel <- subscribeRequest[T]{id: id, channel: channel}:
	case <-f.stopChannel:
		return nil
	}
	return &Subscription[T]{
		C:      channel,
		id:     id,
		fanout: f,
	}
}

// Publish broadcasts payload to every subscriber. Publishing after Stop is a
// no-op.
func (f *Fanout[T]) Publish(payload T) {
	select {
	case f.publishChannel <- payload:
	case <-f.stopChannel:
	}
}
