package ingestion

import (
	"context"
	"errors"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/poiesic/groundwork/core"
	"github.com/poiesic/groundwork/storage"
)

// SourceSummary describes what the collection holds for one source.
type SourceSummary struct {
	Source    string
	RunID     string
	Current   int
	Stale     int
	UpdatedAt time.Time
}

// Summarize lists the sources recorded for collection, ordered by source.
func Summarize(ctx context.Context, manifests storage.ManifestRepository, collection string) ([]SourceSummary, error) {
	list, err := manifests.ListManifests(ctx, collection)
	if err != nil {
		return nil, err
	}
	summaries := make([]SourceSummary, len(list))
	for i, m := range list {
		summaries[i] = SourceSummary{
			Source:    m.Source,
			RunID:     m.RunID,
			Current:   len(m.Current),
			Stale:     len(m.Stale()),
			UpdatedAt: m.UpdatedAt,
		}
	}
	return summaries, nil
}

// PurgedSource lists the stale chunks found for one source.
type PurgedSource struct {
	Source  string
	IDs     []string
	Removed bool // The source file no longer exists in the directory
}

// PurgeReport summarizes a purge.
type PurgeReport struct {
	Collection string
	DryRun     bool
	Sources    []PurgedSource
	Deleted    int
}

// Purge deletes stale chunks from collection. A chunk is stale when its
// source manifest knows it but the latest run did not write it, or when its
// source lived in dir and has since disappeared. With dryRun nothing is
// changed and the report lists what would be deleted.
func Purge(ctx context.Context, collection storage.Collection, manifests storage.ManifestRepository, dir string, dryRun bool) (*PurgeReport, error) {
	logger := slog.Default().With("component", "purge", "collection", collection.Name())

	list, err := manifests.ListManifests(ctx, collection.Name())
	if err != nil {
		return nil, err
	}

	report := &PurgeReport{Collection: collection.Name(), DryRun: dryRun}
	var (
		stale   []string
		updated []*core.SourceManifest
		removed []string
	)
	for _, m := range list {
		entry := PurgedSource{Source: m.Source}
		if sourceRemoved(dir, m.Source) {
			entry.Removed = true
			entry.IDs = m.Known
			removed = append(removed, m.Source)
		} else {
			entry.IDs = m.Stale()
			if len(entry.IDs) > 0 {
				m.Known = append([]string(nil), m.Current...)
				updated = append(updated, m)
			}
		}
		if len(entry.IDs) == 0 {
			continue
		}
		stale = append(stale, entry.IDs...)
		report.Sources = append(report.Sources, entry)
	}

	if dryRun || len(report.Sources) == 0 {
		logger.Info("purge checked", "stale", len(stale), "dry_run", dryRun)
		return report, nil
	}

	if err := collection.Delete(ctx, stale...); err != nil {
		return nil, err
	}
	report.Deleted = len(stale)

	if err := manifests.SaveManifests(ctx, updated...); err != nil {
		return nil, err
	}
	for _, source := range removed {
		if err := manifests.DeleteManifest(ctx, collection.Name(), source); err != nil {
			return nil, err
		}
	}

	logger.Info("purge finished", "deleted", report.Deleted, "removed_sources", len(removed))
	return report, nil
}

// sourceRemoved reports whether source is a file inside dir that no longer exists.
func sourceRemoved(dir, source string) bool {
	if dir == "" {
		return false
	}
	absDir, err := filepath.Abs(dir)
	if err != nil {
		return false
	}
	absSource, err := filepath.Abs(source)
	if err != nil {
		return false
	}
	rel, err := filepath.Rel(absDir, absSource)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return false
	}
	_, err = os.Stat(absSource)
	return errors.Is(err, fs.ErrNotExist)
}
