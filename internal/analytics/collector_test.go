package analytics

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Adithya-Monish-Kumar-K/Product-Search-Engine/pkg/kafka"
	"github.com/Adithya-Monish-Kumar-K/Product-Search-Engine/pkg/metrics"
)

type fakePublisher struct {
	mu      sync.Mutex
	batches [][]kafka.Event
	err     error
}

func (p *fakePublisher) PublishBatch(_ context.Context, events []kafka.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	batch := make([]kafka.Event, len(events))
	copy(batch, events)
	p.batches = append(p.batches, batch)
	return nil
}

func (p *fakePublisher) events() []kafka.Event {
	p.mu.Lock()
	defer p.mu.Unlock()
	var all []kafka.Event
	for _, b := range p.batches {
		all = append(all, b...)
	}
	return all
}

func TestCollectorPublishesInBatches(t *testing.T) {
	pub := &fakePublisher{}
	m := metrics.New(prometheus.NewRegistry())
	c := NewCollector(pub, 100, 2, time.Hour, m)
	c.Start(context.Background())

	for i := 0; i < 5; i++ {
		c.Track(event([]string{"chocolate"}, 1))
	}
	c.Close()

	events := pub.events()
	require.Len(t, events, 5)
	assert.Equal(t, "chocolate", events[0].Key)
	assert.IsType(t, SearchEvent{}, events[0].Value)
	assert.GreaterOrEqual(t, len(pub.batches), 3)
	assert.Equal(t, 5.0, testutil.ToFloat64(m.AnalyticsEvents.WithLabelValues("published")))
}

func TestCollectorFlushesOnInterval(t *testing.T) {
	pub := &fakePublisher{}
	c := NewCollector(pub, 100, 50, 10*time.Millisecond, nil)
	c.Start(context.Background())
	defer c.Close()

	c.Track(event([]string{"shoes"}, 1))
	assert.Eventually(t, func() bool {
		return len(pub.events()) == 1
	}, time.Second, 5*time.Millisecond)
}

func TestCollectorDrainsOnCancel(t *testing.T) {
	pub := &fakePublisher{}
	c := NewCollector(pub, 100, 50, time.Hour, nil)
	ctx, cancel := context.WithCancel(context.Background())

	// buffered before the loop starts so cancellation finds them pending
	for i := 0; i < 3; i++ {
		c.Track(event([]string{"candy"}, 1))
	}
	cancel()
	c.Start(ctx)
	<-c.done

	assert.Len(t, pub.events(), 3)
}

func TestCollectorDropsWhenFull(t *testing.T) {
	pub := &fakePublisher{}
	m := metrics.New(prometheus.NewRegistry())
	c := NewCollector(pub, 1, 10, time.Hour, m)

	c.Track(event([]string{"a"}, 1))
	c.Track(event([]string{"b"}, 1))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.AnalyticsEvents.WithLabelValues("dropped")))

	c.Start(context.Background())
	c.Close()
	require.Len(t, pub.events(), 1)
	assert.Equal(t, "a", pub.events()[0].Key)
}

func TestCollectorRecordsFailures(t *testing.T) {
	pub := &fakePublisher{err: errors.New("broker down")}
	m := metrics.New(prometheus.NewRegistry())
	c := NewCollector(pub, 10, 10, time.Hour, m)
	c.Start(context.Background())

	c.Track(event([]string{"a"}, 1))
	c.Track(event([]string{"b"}, 1))
	c.Close()

	assert.Equal(t, 2.0, testutil.ToFloat64(m.AnalyticsEvents.WithLabelValues("failed")))
}
