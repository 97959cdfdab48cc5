package extsort

import "recsort/internal/record"

// batchPool recycles record batches between the merge consumer and the
// per-segment prefetch goroutines.
type batchPool struct {
	pool  chan []record.Record
	batch int
}

func newBatchPool(batch, capacity int) *batchPool {
	return &batchPool{pool: make(chan []record.Record, capacity), batch: batch}
}

func (p *batchPool) Get() []record.Record {
	select {
	case b := <-p.pool:
		return b
	default:
		return make([]record.Record, 0, p.batch)
	}
}

func (p *batchPool) Put(b []record.Record) {
	select {
	case p.pool <- b[:0]:
	default:
	}
}
