package app

import "sync"

// subscriberBuffer is the number of frames a subscriber may lag behind.
const subscriberBuffer = 4

// broadcaster fans frame results out to subscribers and keeps the latest
// frame for late joiners.
type broadcaster struct {
	mu     sync.Mutex
	subs   map[chan FrameResult]struct{}
	latest FrameResult
	image  []byte
	closed bool
}

func (b *broadcaster) subscribe() (<-chan FrameResult, func()) {
	b.mu.Lock()
	defer b.mu.Unlock()

	ch := make(chan FrameResult, subscriberBuffer)
	if b.closed {
		close(ch)
		return ch, func() {}
	}
	if b.subs == nil {
		b.subs = make(map[chan FrameResult]struct{})
	}
	b.subs[ch] = struct{}{}

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			b.mu.Lock()
			defer b.mu.Unlock()
			if _, ok := b.subs[ch]; ok {
				delete(b.subs, ch)
				close(ch)
			}
		})
	}
}

func (b *broadcaster) publish(fr FrameResult) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.latest = fr
	for ch := range b.subs {
		select {
		case ch <- fr:
		default:
		}
	}
}

func (b *broadcaster) last() FrameResult {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.latest
}

func (b *broadcaster) setJPEG(data []byte) {
	if data == nil {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.image = data
}

func (b *broadcaster) jpeg() []byte {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.image
}

// close ends every subscription.
func (b *broadcaster) close() {
	b.mu.Lock()
	defer b.mu.Unlock()

	for ch := range b.subs {
		close(ch)
	}
	b.subs = nil
	b.closed = true
}
