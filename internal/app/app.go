// Package app wires the stores and services shared by the API, the queue
// worker and the operator CLI.
package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/maisoncleo/atelier-tracker/internal/archive"
	"github.com/maisoncleo/atelier-tracker/internal/assignments"
	"github.com/maisoncleo/atelier-tracker/internal/aws"
	"github.com/maisoncleo/atelier-tracker/internal/config"
	"github.com/maisoncleo/atelier-tracker/internal/dashboard"
	"github.com/maisoncleo/atelier-tracker/internal/deadline"
	"github.com/maisoncleo/atelier-tracker/internal/idempotency"
	"github.com/maisoncleo/atelier-tracker/internal/images"
	"github.com/maisoncleo/atelier-tracker/internal/jobs"
	"github.com/maisoncleo/atelier-tracker/internal/orders"
	"github.com/maisoncleo/atelier-tracker/internal/production"
	"github.com/maisoncleo/atelier-tracker/internal/syncer"
	"github.com/maisoncleo/atelier-tracker/internal/woocommerce"
	"github.com/maisoncleo/atelier-tracker/internal/workers"
)

const syncLockKey = "atelier-tracker:sync"

// Backends are the external systems the services talk to. Nil SQS,
// CloudWatch, Bucket and Locker disable the matching feature.
type Backends struct {
	DynamoDB   aws.DynamoDBAPI
	SQS        aws.SQSAPI
	CloudWatch aws.CloudWatchAPI
	Source     syncer.OrderSource
	Bucket     images.Bucket
	Locker     syncer.Locker
}

type App struct {
	Config   config.Config
	Logger   logrus.FieldLogger
	Location *time.Location

	Orders     *orders.Store
	Items      *orders.ItemStore
	Dispatcher *production.Dispatcher
	Reconciler *assignments.Reconciler
	Archive    *archive.Service
	Deadlines  *deadline.Service
	Dashboard  *dashboard.Service
	Workers    *workers.Store
	Engine     *syncer.Engine
	Ledger     *idempotency.Store
	Enqueuer   *jobs.Enqueuer
	Runner     *jobs.Runner

	closers []func() error
}

// New builds every service on top of b.
func New(cfg config.Config, b Backends, logger logrus.FieldLogger) *App {
	loc := cfg.Location()
	db := b.DynamoDB

	a := &App{
		Config:   cfg,
		Logger:   logger,
		Location: loc,
		Orders:   orders.NewStore(db, cfg.Tables.Orders),
		Items:    orders.NewItemStore(db, cfg.Tables.OrderItems),
		Workers:  workers.NewStore(db, cfg.Tables.Workers),
		Ledger:   idempotency.NewStore(db, cfg.Tables.Jobs, cfg.Sync.JobTTL),
	}

	statuses := production.NewStore(db, cfg.Tables.Production)
	assignmentStore := assignments.NewStore(db, cfg.Tables.Assignments)
	a.Dispatcher = production.NewDispatcher(statuses, a.Items, logger)
	a.Reconciler = assignments.NewReconciler(assignmentStore, a.Dispatcher, logger)
	a.Archive = archive.NewService(a.Orders, a.Items, statuses, assignmentStore, archive.NewStore(db, cfg.Tables.Archives), logger)

	calendar := deadline.NewCalendar(cfg.HolidaysURL, logger)
	a.Deadlines = deadline.NewService(deadline.NewStore(db, cfg.Tables.DelaiConfig), calendar.Func, loc)
	a.Dashboard = dashboard.NewService(a.Orders, a.Items, a.Dispatcher, a.Deadlines, logger)

	deps := syncer.Deps{
		Source:     b.Source,
		Orders:     a.Orders,
		Items:      a.Items,
		Dispatcher: a.Dispatcher,
		Deleter:    a.Archive,
		Locker:     b.Locker,
		Logger:     logger,
	}
	if b.Bucket != nil {
		deps.Images = images.NewStore(b.Bucket, logger)
	}
	if b.CloudWatch != nil {
		deps.Metrics = aws.NewMetricsSink(b.CloudWatch, cfg.Sync.MetricsPrefix)
	}
	a.Engine = syncer.NewEngine(deps, syncer.Options{
		PageSize:  cfg.Sync.PageSize,
		PageDelay: cfg.Sync.PageDelay,
		Location:  loc,
	})

	if b.SQS != nil {
		a.Enqueuer = jobs.NewEnqueuer(a.Ledger, aws.NewJobQueue(b.SQS, cfg.Sync.QueueURL))
	}
	a.Runner = &jobs.Runner{
		Sync:      a.Engine,
		Reconcile: a.Reconciler,
		Sweep:     a.Dispatcher,
		Location:  loc,
	}
	return a
}

// Build connects to AWS, the shop and the optional Redis and GCS backends.
func Build(ctx context.Context, cfg config.Config, logger logrus.FieldLogger) (*App, error) {
	clients, err := aws.NewAWSClients(ctx)
	if err != nil {
		return nil, fmt.Errorf("aws clients: %w", err)
	}
	source, err := woocommerce.NewClient(cfg.WooCommerce.BaseURL, cfg.WooCommerce.ConsumerKey, cfg.WooCommerce.ConsumerSecret)
	if err != nil {
		return nil, fmt.Errorf("woocommerce client: %w", err)
	}

	b := Backends{
		DynamoDB:   clients.DynamoDB,
		CloudWatch: clients.CloudWatch,
		Source:     source,
	}
	if cfg.Sync.QueueURL != "" {
		b.SQS = clients.SQS
	}

	var closers []func() error
	if cfg.RedisAddress != "" {
		rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddress})
		if err := rdb.Ping(ctx).Err(); err != nil {
			_ = rdb.Close()
			return nil, fmt.Errorf("redis ping: %w", err)
		}
		b.Locker = syncer.NewRedisLocker(rdb, syncLockKey, cfg.Sync.LockTTL)
		closers = append(closers, rdb.Close)
	}
	if cfg.ImagesBucket != "" {
		bucket, err := images.NewGCSBucket(ctx, cfg.ImagesBucket, cfg.GCSCredentials)
		if err != nil {
			for _, c := range closers {
				_ = c()
			}
			return nil, err
		}
		b.Bucket = bucket
		closers = append(closers, bucket.Close)
	}

	a := New(cfg, b, logger)
	a.closers = closers
	return a, nil
}

// Close releases the Redis and GCS clients.
func (a *App) Close() error {
	var errs []error
	for _, c := range a.closers {
		errs = append(errs, c())
	}
	return errors.Join(errs...)
}
