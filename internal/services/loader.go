package services

import (
	"context"
	"fmt"
	"time"

	"github.com/latestcomment/tabbycat-dashboard/internal/models"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// LoadError is a fatal dashboard load failure for one resource.
type LoadError struct {
	Resource string
	Err      error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("load %s: %v", e.Resource, e.Err)
}

func (e *LoadError) Unwrap() error { return e.Err }

type DataLoader struct {
	Source  Source
	Timeout time.Duration
	Log     *zap.Logger
}

func NewDataLoader(src Source, timeout time.Duration, log *zap.Logger) *DataLoader {
	if log == nil {
		log = zap.NewNop()
	}
	return &DataLoader{Source: src, Timeout: timeout, Log: log.Named("loader")}
}

// Load fetches all four resources concurrently. The first failure cancels
// the remaining fetches and is returned as a *LoadError; no partial dataset
// is ever returned.
func (l *DataLoader) Load(ctx context.Context) (*models.Dataset, error) {
	if l.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, l.Timeout)
		defer cancel()
	}

	var ds models.Dataset
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		out, err := fetchList[models.SpeakerRecord](gctx, l.Source, ResourceSpeakers)
		ds.Speakers = out
		return err
	})
	g.Go(func() error {
		out, err := fetchList[models.TeamRecord](gctx, l.Source, ResourceTeams)
		ds.Teams = out
		return err
	})
	g.Go(func() error {
		out, err := fetchList[models.JudgeRecord](gctx, l.Source, ResourceJudges)
		ds.Judges = out
		return err
	})
	g.Go(func() error {
		out, err := fetchList[models.MotionRecord](gctx, l.Source, ResourceMotions)
		ds.Motions = out
		return err
	})

	start := time.Now()
	if err := g.Wait(); err != nil {
		l.Log.Warn("dashboard load failed", zap.Error(err), zap.Duration("elapsed", time.Since(start)))
		return nil, err
	}
	ds.LoadedAt = time.Now()
	l.Log.Debug("dashboard loaded",
		zap.Int("speakers", len(ds.Speakers)),
		zap.Int("teams", len(ds.Teams)),
		zap.Int("judges", len(ds.Judges)),
		zap.Int("motions", len(ds.Motions)),
		zap.Duration("elapsed", time.Since(start)))
	return &ds, nil
}

func fetchList[T any](ctx context.Context, src Source, resource string) ([]T, error) {
	body, err := src.Fetch(ctx, resource)
	if err != nil {
		return nil, &LoadError{Resource: resource, Err: err}
	}
	out, err := decodeList[T](resource, body)
	if err != nil {
		return nil, &LoadError{Resource: resource, Err: err}
	}
	return out, nil
}
