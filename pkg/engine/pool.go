package engine

import "golang.org/x/sync/errgroup"

// Pool runs event handlers on a bounded number of goroutines. Go blocks while
// every worker is busy, which holds back the subscriber.
//
// A subscription delivers its next message only after the previous one was acked, so
// handlers overlap only across subscriptions: with Kafka, one per assigned partition,
// and never with the in-process gochannel bus. Workers beyond the partition count idle.
type Pool struct {
	group *errgroup.Group
}

func NewPool(workers int) *Pool {
	group := new(errgroup.Group)
	group.SetLimit(max(workers, 1))

	return &Pool{group: group}
}

func (p *Pool) Go(task func()) {
	p.group.Go(func() error {
		task()

		return nil
	})
}

// Wait blocks until every submitted task has returned.
func (p *Pool) Wait() {
	_ = p.group.Wait()
}
