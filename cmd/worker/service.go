package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/angelmondragon/elibrary-backend/pkg/logger"
)

const heartbeatInterval = time.Minute

type pinger interface {
	Ping(ctx context.Context) error
}

// consumer is a long-running subscription loop; Run returns when ctx ends.
type consumer interface {
	Run(ctx context.Context) error
}

type ServiceParams struct {
	Logger    *logger.Logger
	DB        pinger
	Redis     pinger
	PubSub    pinger
	Consumers map[string]consumer
}

type Service struct {
	logg      *logger.Logger
	deps      []namedPinger
	consumers map[string]consumer
}

type namedPinger struct {
	name string
	p    pinger
}

func NewService(params ServiceParams) (*Service, error) {
	switch {
	case params.Logger == nil:
		return nil, errors.New("logger is required")
	case params.DB == nil:
		return nil, errors.New("database client is required")
	case params.Redis == nil:
		return nil, errors.New("redis client is required")
	case params.PubSub == nil:
		return nil, errors.New("pubsub client is required")
	case len(params.Consumers) == 0:
		return nil, errors.New("at least one consumer is required")
	}
	for name, c := range params.Consumers {
		if c == nil {
			return nil, fmt.Errorf("consumer %s is nil", name)
		}
	}
	return &Service{
		logg: params.Logger,
		deps: []namedPinger{
			{"database", params.DB},
			{"redis", params.Redis},
			{"pubsub", params.PubSub},
		},
		consumers: params.Consumers,
	}, nil
}

func (s *Service) ensureReadiness(ctx context.Context) error {
	for _, dep := range s.deps {
		if err := dep.p.Ping(ctx); err != nil {
			s.logg.Error(ctx, fmt.Sprintf("%s ping failed", dep.name), err)
			return fmt.Errorf("%s ping failed: %w", dep.name, err)
		}
	}
	s.logg.Info(ctx, "all worker dependencies are ready")
	return nil
}

// Run starts every consumer and returns when ctx ends or the first consumer stops.
func (s *Service) Run(ctx context.Context) error {
	if err := s.ensureReadiness(ctx); err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	type result struct {
		name string
		err  error
	}
	results := make(chan result, len(s.consumers))
	for name, c := range s.consumers {
		go func() {
			results <- result{name: name, err: c.Run(ctx)}
		}()
	}

	ticker := time.NewTicker(heartbeatInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			s.logg.Info(ctx, "worker context canceled")
			return ctx.Err()
		case res := <-results:
			consumerCtx := s.logg.WithField(ctx, "consumer", res.name)
			if res.err != nil && !errors.Is(res.err, context.Canceled) {
				s.logg.Error(consumerCtx, "consumer stopped unexpectedly", res.err)
				return res.err
			}
			s.logg.Warn(consumerCtx, "consumer stopped")
			return res.err
		case <-ticker.C:
			s.logg.Debug(ctx, "worker heartbeat")
		}
	}
}
