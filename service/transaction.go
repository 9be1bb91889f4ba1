package service

import (
	"context"
	stderrors "errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/usorama/tutorkit/errors"
)

// OpType is the type of a recorded transaction operation
type OpType string

// Transaction operation types
const (
	OpCreate OpType = "create"
	OpUpdate OpType = "update"
	OpDelete OpType = "delete"
)

// TxStatus is the status of a transaction context
type TxStatus string

// Transaction statuses
const (
	TxActive     TxStatus = "active"
	TxCommitted  TxStatus = "committed"
	TxRolledBack TxStatus = "rolled_back"
)

// ErrTxClosed is returned when recording into a terminated transaction
var ErrTxClosed = stderrors.New("transaction already terminated")

// Operation is one recorded step of a transaction
type Operation struct {
	Type      OpType    `json:"type"`
	Entity    string    `json:"entity"`
	Payload   any       `json:"payload"`
	Timestamp time.Time `json:"timestamp"`
}

// Tx is an in-process operation log bracketed by commit and rollback. It is
// created per logical multi-step write, owned exclusively by the supervisor
// call that opened it, and always terminated before that call returns. The
// operation list is append-only until the transaction reaches a terminal
// status; after that it is immutable.
type Tx struct {
	id        string
	service   string
	startedAt time.Time

	mu     sync.Mutex
	status TxStatus
	ops    []Operation
}

func newTx(service string) *Tx {
	return &Tx{
		id:        service + "-" + uuid.NewString(),
		service:   service,
		startedAt: time.Now(),
		status:    TxActive,
	}
}

// ID returns the unique transaction id
func (t *Tx) ID() string {
	return t.id
}

// Service returns the owning service name
func (t *Tx) Service() string {
	return t.service
}

// StartedAt returns when the transaction was opened
func (t *Tx) StartedAt() time.Time {
	return t.startedAt
}

// Status returns the current transaction status
func (t *Tx) Status() TxStatus {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.status
}

// Record appends an operation to the transaction log. It fails with
// ErrTxClosed once the transaction has reached a terminal status.
func (t *Tx) Record(op OpType, entity string, payload any) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.status != TxActive {
		return fmt.Errorf("record %s on %s: %w", op, entity, ErrTxClosed)
	}

	t.ops = append(t.ops, Operation{
		Type:      op,
		Entity:    entity,
		Payload:   payload,
		Timestamp: time.Now(),
	})
	return nil
}

// Operations returns a copy of the recorded operations
func (t *Tx) Operations() []Operation {
	t.mu.Lock()
	defer t.mu.Unlock()

	ops := make([]Operation, len(t.ops))
	copy(ops, t.ops)
	return ops
}

// close moves the transaction to a terminal status. Only the first close
// takes effect.
func (t *Tx) close(status TxStatus) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.status == TxActive {
		t.status = status
	}
}

// Committer is implemented by hooks whose storage requires real atomic
// commit and rollback. The base supervisor's commit and rollback are
// log-only; a hook implementing Committer is called before the transaction
// reaches its terminal status.
type Committer interface {
	Commit(ctx context.Context, tx *Tx) error
	Rollback(ctx context.Context, tx *Tx) error
}

// InTransaction runs fn inside a fresh transaction context. On a nil
// return the transaction is committed; on an error or panic it is rolled
// back and the failure is re-raised as a transaction error carrying the
// transaction id. Callers must not assume partial writes survived a
// rollback.
func (s *Supervisor) InTransaction(ctx context.Context, fn func(ctx context.Context, tx *Tx) error) error {
	tx := newTx(s.name)
	s.logger.Debug("transaction started", "tx", tx.ID())

	err := func() (err error) {
		defer func() {
			if r := recover(); r != nil {
				err = fmt.Errorf("panic in transaction: %v", r)
			}
		}()
		return fn(ctx, tx)
	}()

	if err == nil {
		err = s.commitTx(ctx, tx)
		if err == nil {
			return nil
		}
	}

	s.rollbackTx(ctx, tx, err)
	terr := errors.NewTransactionFailed(s.name, tx.ID(), err)
	s.recordError(terr)
	return terr
}

// Execute runs fn inside a transaction and passes its return value through
// unchanged on commit.
func Execute[T any](ctx context.Context, s *Supervisor, fn func(ctx context.Context, tx *Tx) (T, error)) (T, error) {
	var result T
	err := s.InTransaction(ctx, func(ctx context.Context, tx *Tx) error {
		v, err := fn(ctx, tx)
		if err != nil {
			return err
		}
		result = v
		return nil
	})
	if err != nil {
		var zero T
		return zero, err
	}
	return result, nil
}

func (s *Supervisor) commitTx(ctx context.Context, tx *Tx) error {
	if c, ok := s.hooks.(Committer); ok {
		if err := c.Commit(ctx, tx); err != nil {
			return fmt.Errorf("commit: %w", err)
		}
	}
	tx.close(TxCommitted)
	s.recordTransaction(string(TxCommitted))
	s.logger.Debug("transaction committed",
		"tx", tx.ID(),
		"operations", len(tx.Operations()))
	return nil
}

func (s *Supervisor) rollbackTx(ctx context.Context, tx *Tx, cause error) {
	if c, ok := s.hooks.(Committer); ok {
		if err := c.Rollback(ctx, tx); err != nil {
			// double failure: surface the original error, log this one
			s.logger.Error("transaction rollback failed",
				"tx", tx.ID(),
				"error", err,
				"original_error", cause)
		}
	}
	tx.close(TxRolledBack)
	s.recordTransaction(string(TxRolledBack))
	s.logger.Warn("transaction rolled back",
		"tx", tx.ID(),
		"operations", len(tx.Operations()),
		"error", cause)
}
