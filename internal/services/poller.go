package services

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/visionforge/classifier-backend/internal/data/repos"
	"github.com/visionforge/classifier-backend/internal/domain"
	"github.com/visionforge/classifier-backend/internal/pkg/dbctx"
	"github.com/visionforge/classifier-backend/internal/pkg/errs"
	"github.com/visionforge/classifier-backend/internal/platform/automl"
	"github.com/visionforge/classifier-backend/internal/platform/logger"
)

const defaultPollConcurrency = 8

// PollerService refreshes pending operation records of one kind against the
// provider. It is the only writer of the done flag; when a record flips
// false->true it hands the before/after pair to the coordinator, so stage
// advancement is causally ordered behind the status write.
type PollerService interface {
	Poll(ctx context.Context, kind string) (int, error)
}

type pollerService struct {
	log         *logger.Logger
	ops         repos.OperationRepo
	gateway     automl.Client
	coordinator LifecycleCoordinator
	concurrency int
}

func NewPollerService(
	baseLog *logger.Logger,
	ops repos.OperationRepo,
	gateway automl.Client,
	coordinator LifecycleCoordinator,
) PollerService {
	return &pollerService{
		log:         baseLog.With("service", "PollerService"),
		ops:         ops,
		gateway:     gateway,
		coordinator: coordinator,
		concurrency: defaultPollConcurrency,
	}
}

// Poll returns the number of records whose provider status was refreshed.
// Per-record failures are logged and do not stop the sweep.
func (s *pollerService) Poll(ctx context.Context, kind string) (int, error) {
	if !domain.IsOperationType(kind) {
		return 0, fmt.Errorf("unknown operation type %q: %w", kind, errs.ErrInvalidArgument)
	}

	pending, err := s.ops.ListPending(dbctx.Context{Ctx: ctx}, kind)
	if err != nil {
		return 0, err
	}
	if len(pending) == 0 {
		return 0, nil
	}

	var refreshed atomic.Int64
	g := &errgroup.Group{}
	g.SetLimit(s.concurrency)
	for _, record := range pending {
		record := record
		g.Go(func() error {
			if err := s.pollOne(ctx, record); err != nil {
				s.log.Warn("Operation poll failed",
					"operation", record.Name,
					"type", record.Type,
					"error", err,
				)
				return nil
			}
			refreshed.Add(1)
			return nil
		})
	}
	_ = g.Wait()

	s.log.Info("Poll sweep finished",
		"type", kind,
		"pending", len(pending),
		"refreshed", refreshed.Load(),
	)
	return int(refreshed.Load()), nil
}

func (s *pollerService) pollOne(ctx context.Context, record *domain.Operation) error {
	meta, err := s.gateway.GetOperation(ctx, record.Name)
	if err != nil {
		return err
	}

	after, err := s.ops.MarkStatus(dbctx.Context{Ctx: ctx}, record.ID, meta.Done, time.Now())
	if err != nil {
		return err
	}
	if after == nil {
		// Record deleted between list and write (dataset cascade).
		return nil
	}

	if !record.Done && after.Done {
		result, err := s.coordinator.HandleUpdate(ctx, record, after)
		if err != nil {
			// The status write already happened; a coordinator failure is
			// its own problem and must not mark the poll as failed.
			s.log.Error("Lifecycle handling failed",
				"operation", after.Name,
				"type", after.Type,
				"result", result.String(),
				"error", err,
			)
			return nil
		}
		s.log.Info("Operation completed",
			"operation", after.Name,
			"type", after.Type,
			"result", result.String(),
		)
	}
	return nil
}
