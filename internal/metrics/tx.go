package metrics

import (
	"context"
	"sync"

	"gorm.io/gorm"
)

type pendingKey struct{}

// pending buffers observations made inside a transaction.
type pending struct {
	mu  sync.Mutex
	ops []func()
}

func (p *pending) add(op func()) {
	p.mu.Lock()
	p.ops = append(p.ops, op)
	p.mu.Unlock()
}

func (p *pending) flush() {
	p.mu.Lock()
	ops := p.ops
	p.ops = nil
	p.mu.Unlock()
	for _, op := range ops {
		op()
	}
}

// Transaction runs fn in a database transaction. Domain counters bumped
// through the transaction's context are only recorded once it commits, so a
// rolled back placement or settlement leaves them untouched. A nested call
// defers to the outermost transaction.
func Transaction(ctx context.Context, db *gorm.DB, fn func(tx *gorm.DB) error) error {
	if _, nested := ctx.Value(pendingKey{}).(*pending); nested {
		return db.WithContext(ctx).Transaction(fn)
	}
	p := &pending{}
	if err := db.WithContext(context.WithValue(ctx, pendingKey{}, p)).Transaction(fn); err != nil {
		return err
	}
	p.flush()
	return nil
}

// after runs op now, or when the transaction carried by ctx commits.
func after(ctx context.Context, op func()) {
	if ctx != nil {
		if p, ok := ctx.Value(pendingKey{}).(*pending); ok {
			p.add(op)
			return
		}
	}
	op()
}
