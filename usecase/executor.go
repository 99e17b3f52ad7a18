package usecase

import (
	"context"

	"go.uber.org/zap"

	"github.com/cooper538/eshop-demo-sub000/domain"
	"github.com/cooper538/eshop-demo-sub000/repository"
)

// UnitOfWorkFactory creates a fresh unit of work per inbound command or
// message.
type UnitOfWorkFactory func() repository.UnitOfWork

// Command is the business portion of one inbound request: in-memory
// mutation and persistence staging only, no commit.
type Command func(ctx context.Context, uow repository.UnitOfWork) error

// Executor wraps exactly one inbound command: it runs the command, settles
// all resulting domain events through the dispatcher, then commits the unit
// of work atomically. Any error from the command or a handler propagates
// before the commit step is reached, so nothing is persisted. Handlers may
// already have performed non-transactional external actions by then, which
// is why they are written to be retriable.
type Executor struct {
	newUnitOfWork UnitOfWorkFactory
	dispatcher    *EventDispatcher
	logger        *zap.Logger
}

func NewExecutor(factory UnitOfWorkFactory, dispatcher *EventDispatcher, logger *zap.Logger) *Executor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Executor{
		newUnitOfWork: factory,
		dispatcher:    dispatcher,
		logger:        logger,
	}
}

// Execute runs command -> dispatch -> commit. Without a configured unit of
// work factory it still runs the first two steps against a volatile unit of
// work and returns the command's outcome uncommitted; read paths share the
// pipeline shape this way.
func (e *Executor) Execute(ctx context.Context, command Command) error {
	var uow repository.UnitOfWork
	if e.newUnitOfWork != nil {
		uow = e.newUnitOfWork()
	} else {
		uow = repository.NewVolatileUnitOfWork()
	}

	if err := command(ctx, uow); err != nil {
		return err
	}
	if e.dispatcher != nil {
		if err := e.dispatcher.Dispatch(ctx, uow); err != nil {
			return err
		}
	}

	if e.newUnitOfWork == nil {
		e.logger.Warn("no persistence configured, returning without commit")
		return nil
	}

	if err := uow.Commit(ctx); err != nil {
		if domain.IsDomainError(err, domain.ErrCodeConflict) {
			// Losers of a concurrent write race get the conflict as-is;
			// retrying is the caller's decision.
			return err
		}
		return domain.WrapError(domain.ErrCodeInternal, "unit of work commit failed", err)
	}
	return nil
}
