package resource

import (
	"context"

	"github.com/goccy/go-json"
	"gorm.io/gorm"

	"github.com/relabs-tech/restkit/core"
	"github.com/relabs-tech/restkit/core/entity"
	"github.com/relabs-tech/restkit/core/logger"
)

type notification struct {
	resource  string
	operation core.Operation
	payload   []byte
}

// Tx is the database handle of one engine operation, a transaction for
// mutations and a plain session for reads. Notifications queued on a Tx are
// dispatched after commit.
type Tx struct {
	DB            *gorm.DB
	lookup        *gormLookup
	notifications []notification
}

func newTx(db *gorm.DB) *Tx {
	return &Tx{DB: db, lookup: newLookup(db)}
}

// Notify queues a notification about e for dispatch after commit
func (tx *Tx) Notify(operation core.Operation, e *entity.Entity) {
	payload, err := json.Marshal(e)
	if err != nil {
		payload = []byte("{}")
	}
	tx.notifications = append(tx.notifications, notification{
		resource:  e.Type,
		operation: operation,
		payload:   payload,
	})
}

// TransactionRunner runs engine operations in database transactions and
// dispatches their notifications once the transaction committed
type TransactionRunner struct {
	db       *gorm.DB
	notifier core.Notifier
}

// Run runs fn in a transaction. The transaction is rolled back if fn returns an
// error, and nothing is dispatched.
func (r *TransactionRunner) Run(ctx context.Context, fn func(tx *Tx) error) error {
	var done *Tx
	err := r.db.WithContext(ctx).Transaction(func(gtx *gorm.DB) error {
		tx := newTx(gtx)
		if err := fn(tx); err != nil {
			return err
		}
		done = tx
		return nil
	})
	if err != nil {
		return err
	}
	r.dispatch(ctx, done.notifications)
	return nil
}

// Read returns a non transactional handle for reads
func (r *TransactionRunner) Read(ctx context.Context) *Tx {
	return newTx(r.db.WithContext(ctx))
}

func (r *TransactionRunner) dispatch(ctx context.Context, notifications []notification) {
	if r.notifier == nil || len(notifications) == 0 {
		return
	}
	rlog := logger.FromContext(ctx)
	for _, n := range notifications {
		rlog.Debugln("notify", n.resource, n.operation)
		r.notifier.Notify(ctx, n.resource, n.operation, n.payload)
	}
}
