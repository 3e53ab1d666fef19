// Package pipeline provides the high-level orchestration for the structure
// resolution flow: normalize targets, resolve accessions, map cross-references,
// filter by quality, select one structure per accession, then hand the result
// to the download and conversion collaborators.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/google/uuid"

	"github.com/dmeier/structure-harvester/internal/config"
	"github.com/dmeier/structure-harvester/internal/convert"
	"github.com/dmeier/structure-harvester/internal/crossref"
	"github.com/dmeier/structure-harvester/internal/db"
	"github.com/dmeier/structure-harvester/internal/download"
	"github.com/dmeier/structure-harvester/internal/fetch"
	"github.com/dmeier/structure-harvester/internal/observability"
	"github.com/dmeier/structure-harvester/internal/quality"
	"github.com/dmeier/structure-harvester/internal/resolve"
	"github.com/dmeier/structure-harvester/internal/selection"
	"github.com/dmeier/structure-harvester/internal/targets"
	"github.com/dmeier/structure-harvester/internal/types"
)

// ProgressEvent represents a progress update during pipeline execution
type ProgressEvent struct {
	Stage    string `json:"stage"`
	Category string `json:"category"`
	Message  string `json:"message"`
	Content  any    `json:"content,omitempty"`
}

// ProgressCallback is called when pipeline progress occurs
type ProgressCallback func(event ProgressEvent)

// Options holds everything needed to run the pipeline. Config is immutable
// for the duration of the run.
type Options struct {
	Config     config.Config
	OnProgress ProgressCallback
	Out        io.Writer // Verbose output target; defaults to os.Stdout
}

// emitProgress calls the progress callback if configured
func emitProgress(opts *Options, stage, category, message string, content any) {
	if opts.OnProgress != nil {
		opts.OnProgress(ProgressEvent{
			Stage:    stage,
			Category: category,
			Message:  message,
			Content:  content,
		})
	}
}

// Run orchestrates the full resolution pipeline. An empty intermediate result
// stops the run cleanly; an unavailable bulk source is fatal and nothing
// downstream of it executes.
func Run(ctx context.Context, opts Options) error {
	cfg := opts.Config
	out := opts.Out
	if out == nil {
		out = os.Stdout
	}
	printer := observability.NewPrinter(out)
	callOpts := &fetch.Options{Timeout: cfg.RequestTimeout()}

	// Optional persistence; a failed connection degrades to a warning.
	var store *db.DB
	var runID uuid.UUID
	if cfg.DatabaseURL != "" {
		var err error
		store, err = db.Connect(ctx, cfg.DatabaseURL)
		if err != nil {
			fmt.Fprintf(out, "Warning: failed to connect to database: %v\n", err)
			fmt.Fprintf(out, "Continuing without persistence...\n")
		} else {
			defer store.Close()
			if runID, err = store.CreateRun(ctx, cfg.TargetListURL); err != nil {
				fmt.Fprintf(out, "Warning: failed to create database run: %v\n", err)
			}
		}
	}
	fail := func(err error) error {
		if store != nil && runID != uuid.Nil {
			_ = store.CompleteRun(ctx, runID, db.StatusFailed)
		}
		return err
	}
	stopClean := func(stage, message string) error {
		emitProgress(&opts, stage, db.CategorySelection, message, nil)
		fmt.Fprintf(out, "%s Nothing to do, stopping.\n", message)
		if store != nil && runID != uuid.Nil {
			_ = store.CompleteRun(ctx, runID, db.StatusNoWork)
		}
		return nil
	}

	// Stage 1: normalize the target list.
	fmt.Fprintf(out, "Stage 1/5: Fetching and normalizing target list...\n")
	blob, err := fetch.Text(ctx, cfg.TargetListURL, callOpts)
	if err != nil {
		return fail(fmt.Errorf("fetching target list: %w", err))
	}
	normalizer := targets.NewNormalizer(cfg.RecordMarker, cfg.HeaderSentinel)
	targetSet, err := normalizer.Parse(blob.Body)
	if err != nil {
		if errors.Is(err, targets.ErrNoTargets) {
			return stopClean(db.StageTargets, "No targets found in source list.")
		}
		return fail(fmt.Errorf("normalizing targets: %w", err))
	}
	if cfg.Verbose {
		printer.PrintTargets(targetSet)
	}
	emitProgress(&opts, db.StageTargets, db.CategoryResolution,
		fmt.Sprintf("Normalized %d unique targets", targetSet.Len()), nil)
	if store != nil && runID != uuid.Nil {
		_ = store.SaveArtifact(ctx, runID, db.StageTargets, db.CategoryResolution, targetSet.Values())
	}

	// Stage 2: resolve targets to accession codes.
	fmt.Fprintf(out, "Stage 2/5: Resolving identifiers to accession codes...\n")
	resolver := resolve.NewResolver(cfg.SearchURL, cfg.ResolveBatchSize, callOpts)
	// Resolution batches run concurrently; serialize their progress events.
	var progressMu sync.Mutex
	resolver.OnBatchError = func(batch int, err error) {
		progressMu.Lock()
		defer progressMu.Unlock()
		emitProgress(&opts, db.StageAccessions, db.CategoryResolution,
			fmt.Sprintf("Warning: resolution batch %d failed: %v", batch, err), nil)
	}
	accessions, err := resolver.Resolve(ctx, targetSet)
	if err != nil {
		return fail(fmt.Errorf("resolving identifiers: %w", err))
	}
	if accessions.Len() == 0 {
		return stopClean(db.StageAccessions, "No accession codes resolved.")
	}
	emitProgress(&opts, db.StageAccessions, db.CategoryResolution,
		fmt.Sprintf("Resolved %d unique accession codes", accessions.Len()), nil)
	if store != nil && runID != uuid.Nil {
		_ = store.SaveArtifact(ctx, runID, db.StageAccessions, db.CategoryResolution, accessions.Values())
	}

	// Stage 3: reduce the cross-reference table. Unavailability is fatal.
	fmt.Fprintf(out, "Stage 3/5: Mapping accessions to structure candidates...\n")
	mapper := crossref.NewMapper(cfg.CrossRefURL, &fetch.Options{Timeout: cfg.BulkTimeout()})
	xref, err := mapper.Map(ctx, accessions)
	if err != nil {
		return fail(err)
	}
	if xref.Len() == 0 {
		return stopClean(db.StageCrossRef, "No structure candidates for any accession.")
	}
	if cfg.Verbose {
		printer.PrintCrossRef(xref)
	}
	structureIDs := xref.StructureIDs()
	emitProgress(&opts, db.StageCrossRef, db.CategoryMapping,
		fmt.Sprintf("Mapped %d accessions to %d unique structures", xref.Len(), len(structureIDs)), nil)

	// Stage 4: quality filtering.
	fmt.Fprintf(out, "Stage 4/5: Querying structure metadata (this may take a while)...\n")
	filter := quality.NewFilter(cfg.MetadataURL, cfg.MetadataBatchSize, cfg.Method, cfg.MaxResolution, callOpts)
	filter.OnBatchError = func(batch int, err error) {
		emitProgress(&opts, db.StageQuality, db.CategoryMapping,
			fmt.Sprintf("Warning: metadata batch %d failed: %v", batch, err), nil)
	}
	accepted := filter.Run(ctx, structureIDs)
	if len(accepted) == 0 {
		return stopClean(db.StageQuality, "No structures passed the quality criteria.")
	}
	emitProgress(&opts, db.StageQuality, db.CategoryMapping,
		fmt.Sprintf("%d structures passed the quality criteria", len(accepted)), nil)
	if store != nil && runID != uuid.Nil {
		_ = store.SaveArtifact(ctx, runID, db.StageQuality, db.CategoryMapping, accepted)
	}

	// Stage 5: one structure per accession.
	fmt.Fprintf(out, "Stage 5/5: Selecting the best structure per accession...\n")
	selected := selection.SelectBest(accepted, xref)
	if len(selected) == 0 {
		return stopClean(db.StageSelection, "No accession retained a qualified structure.")
	}
	if cfg.Verbose {
		printer.PrintSelection(selected)
	}
	emitProgress(&opts, db.StageSelection, db.CategorySelection,
		fmt.Sprintf("Selected %d structures, one per accession", len(selected)), selected)
	if store != nil && runID != uuid.Nil {
		_ = store.SaveArtifact(ctx, runID, db.StageSelection, db.CategorySelection, selected)
		_ = store.SaveSelection(ctx, runID, selected)
	}

	if cfg.DryRun {
		fmt.Fprintf(out, "Dry run: skipping download and conversion.\n")
		if store != nil && runID != uuid.Nil {
			_ = store.CompleteRun(ctx, runID, db.StatusCompleted)
		}
		return nil
	}

	// Hand off to the collaborators.
	fmt.Fprintf(out, "Downloading %d structure files to %q...\n", len(selected), cfg.RawDir)
	dl := &download.Downloader{
		BaseURL: cfg.DownloadURL,
		OutDir:  cfg.RawDir,
		LogPath: cfg.DownloadLogPath,
		Timeout: cfg.RequestTimeout(),
		OnProgress: func(rec download.Record) {
			emitProgress(&opts, db.StageDownload, db.CategoryDelivery,
				fmt.Sprintf("%s %s: %s", rec.Accession, rec.StructureID, rec.Status), nil)
		},
	}
	downloads, err := dl.Run(ctx, selected)
	if err != nil {
		return fail(fmt.Errorf("downloading structures: %w", err))
	}
	if store != nil && runID != uuid.Nil {
		_ = store.SaveArtifact(ctx, runID, db.StageDownload, db.CategoryDelivery, downloads)
	}

	if !cfg.SkipConvert {
		if err := runConversion(ctx, &opts, cfg, selected, store, runID, out); err != nil {
			// Conversion problems do not undo a completed harvest.
			fmt.Fprintf(out, "Warning: conversion skipped: %v\n", err)
		}
	}

	if store != nil && runID != uuid.Nil {
		_ = store.CompleteRun(ctx, runID, db.StatusCompleted)
	}
	fmt.Fprintf(out, "Done. Download log saved to %q.\n", cfg.DownloadLogPath)
	return nil
}

func runConversion(ctx context.Context, opts *Options, cfg config.Config, selected []types.SelectedStructure, store *db.DB, runID uuid.UUID, out io.Writer) error {
	tool, err := convert.LocateTool(os.Getenv("SCHRODINGER"))
	if err != nil {
		return err
	}

	fmt.Fprintf(out, "Converting structures to PDB and MAE formats...\n")
	conv := &convert.Converter{
		Tool:    tool,
		RawDir:  cfg.RawDir,
		PDBDir:  cfg.ConvertedPDBDir,
		MAEDir:  cfg.ConvertedMAEDir,
		LogPath: cfg.ConversionLogPath,
		OnProgress: func(rec convert.Record) {
			emitProgress(opts, db.StageConvert, db.CategoryDelivery,
				fmt.Sprintf("%s %s: pdb=%s mae=%s", rec.Accession, rec.StructureID, rec.PDBStatus, rec.MAEStatus), nil)
		},
	}
	conversions, err := conv.Run(ctx, selected)
	if err != nil {
		return err
	}
	if store != nil && runID != uuid.Nil {
		_ = store.SaveArtifact(ctx, runID, db.StageConvert, db.CategoryDelivery, conversions)
	}
	return nil
}
