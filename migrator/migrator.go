// Package migrator rewrites stored records that were written with an older
// class version, so that readers stop paying for the migration chain.
package migrator

import (
	"context"
	"errors"
	"fmt"

	"go.mercari.io/worldstore"
	"go.mercari.io/worldstore/codec"
	"go.mercari.io/worldstore/schema"
	"golang.org/x/sync/errgroup"
)

const defaultBatchSize = 100

// Target binds a collection to the class its records are written with.
type Target struct {
	Collection string
	Class      *schema.Class
}

// Report is the outcome of one collection.
type Report struct {
	Collection string
	Scanned    int
	Rewritten  int
	Failed     int
}

type Migrator struct {
	client      worldstore.Client
	codec       *codec.Codec
	batchSize   int
	concurrency int
	dryRun      bool
	logf        worldstore.Logf
}

type Option interface {
	Apply(*Migrator)
}

func New(client worldstore.Client, opts ...Option) *Migrator {
	m := &Migrator{
		client:      client,
		codec:       codec.Default,
		batchSize:   defaultBatchSize,
		concurrency: 1,
		logf:        worldstore.NopLogf,
	}
	for _, opt := range opts {
		opt.Apply(m)
	}
	return m
}

// Run migrates every target. Collections run concurrently up to the
// configured limit; the reports keep the order of targets.
func (m *Migrator) Run(ctx context.Context, targets ...Target) ([]*Report, error) {
	reports := make([]*Report, len(targets))

	eg, ctx := errgroup.WithContext(ctx)
	eg.SetLimit(m.concurrency)
	for idx, target := range targets {
		eg.Go(func() error {
			r, err := m.migrateCollection(ctx, target)
			reports[idx] = r
			return err
		})
	}
	if err := eg.Wait(); err != nil {
		return reports, err
	}

	return reports, nil
}

func (m *Migrator) migrateCollection(ctx context.Context, target Target) (*Report, error) {
	r := &Report{Collection: target.Collection}
	version := target.Class.Version()

	var startAfter string
	for {
		recs, err := m.client.Find(ctx, &worldstore.Query{
			Collection:   target.Collection,
			StartAfter:   startAfter,
			Limit:        m.batchSize,
			VersionBelow: version,
		})
		if err != nil {
			return r, fmt.Errorf("migrator: %s: %w", target.Collection, err)
		}
		if len(recs) == 0 {
			break
		}

		for _, rec := range recs {
			r.Scanned++
			if err := m.rewrite(ctx, target, rec); err != nil {
				if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
					return r, err
				}
				r.Failed++
				m.logf(ctx, "migrator: %s err=%s", rec.Key.String(), err.Error())
				continue
			}
			r.Rewritten++
		}
		startAfter = recs[len(recs)-1].Key.ID

		if len(recs) < m.batchSize {
			break
		}
	}

	m.logf(ctx, "migrator: %s scanned=%d rewritten=%d failed=%d", target.Collection, r.Scanned, r.Rewritten, r.Failed)
	return r, nil
}

func (m *Migrator) rewrite(ctx context.Context, target Target, rec *worldstore.Record) error {
	data, err := m.codec.FromRecord(rec)
	if err != nil {
		return err
	}
	v, err := target.Class.Deserialize(ctx, data)
	if err != nil {
		return err
	}
	out, err := target.Class.Serialize(ctx, v)
	if err != nil {
		return err
	}
	out.ID = rec.Key.ID
	newRec, err := m.codec.ToRecord(target.Collection, out)
	if err != nil {
		return err
	}

	if m.dryRun {
		m.logf(ctx, "migrator: %s v%d -> v%d (dry run)", rec.Key.String(), rec.V, newRec.V)
		return nil
	}
	// a record deleted meanwhile stays deleted.
	_, err = m.client.FindByIDAndUpdate(ctx, rec.Key, newRec, false)
	if errors.Is(err, worldstore.ErrNoSuchRecord) {
		return nil
	}
	return err
}

// Summary folds reports into one line per collection.
func Summary(reports []*Report) []string {
	lines := make([]string, 0, len(reports))
	for _, r := range reports {
		if r == nil {
			continue
		}
		lines = append(lines, fmt.Sprintf("%s: scanned=%d rewritten=%d failed=%d", r.Collection, r.Scanned, r.Rewritten, r.Failed))
	}
	return lines
}
