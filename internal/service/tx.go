package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/Omvpatil/RealEstate/internal/database"
	"github.com/Omvpatil/RealEstate/internal/metrics"
	"github.com/Omvpatil/RealEstate/internal/repository"
)

const defaultLockTimeout = 5 * time.Second

// txRunner runs a function inside one database transaction bounded by the
// lock timeout.
type txRunner struct {
	db      *sql.DB
	timeout time.Duration
	metrics *metrics.Metrics
	log     *logrus.Entry
}

// withTx begins a transaction, runs fn and commits.  Any error from fn
// rolls back.  A deadline, lock-wait timeout or deadlock is returned as
// repository.ErrConflict.
func (r txRunner) withTx(ctx context.Context, op string, fn func(ctx context.Context, tx *sql.Tx) error) error {
	timeout := r.timeout
	if timeout <= 0 {
		timeout = defaultLockTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return r.txErr(ctx, op, err)
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	if err := fn(ctx, tx); err != nil {
		return r.txErr(ctx, op, err)
	}
	if err := tx.Commit(); err != nil {
		return r.txErr(ctx, op, err)
	}
	committed = true
	return nil
}

func (r txRunner) txErr(ctx context.Context, op string, err error) error {
	var classified *repository.Error
	if errors.As(err, &classified) {
		if classified.Kind == repository.KindConflict {
			r.metrics.Conflict(op)
		}
		return err
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) || database.IsContention(err) {
		r.metrics.Conflict(op)
		r.log.WithError(err).WithField("op", op).Warn("transaction conflict")
		return repository.ErrConflict.Wrap(err)
	}
	return fmt.Errorf("%s: %w", op, err)
}
