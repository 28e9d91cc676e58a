package cli

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/mikey/authenticity-guardian/internal/core"
	"go.uber.org/zap"
)

// analyzer is the part of core.AnalysisService the CLI drives
type analyzer interface {
	Analyze(ctx context.Context, listing core.Listing) (*core.Analysis, error)
	Ready() error
	Catalog() []core.CatalogItem
}

// CliFrontend runs single analyses from the command line
type CliFrontend struct {
	service analyzer
	logger  *zap.Logger
	out     io.Writer
	verbose bool
}

// NewCliFrontend creates a new CLI front end writing to out
func NewCliFrontend(service analyzer, logger *zap.Logger, out io.Writer, verbose bool) *CliFrontend {
	return &CliFrontend{
		service: service,
		logger:  logger,
		out:     out,
		verbose: verbose,
	}
}

// AnalyzeListing analyzes a listing and prints the report
func (f *CliFrontend) AnalyzeListing(ctx context.Context, listing core.Listing) (*core.Analysis, error) {
	f.logger.Debug("Analyzing listing", zap.String("listing", listing.Name), zap.Int("price", listing.Price))

	if err := f.service.Ready(); err != nil {
		fmt.Fprintf(f.out, "Error: %s\n", core.UserMessage(err))
		return nil, err
	}

	if f.verbose {
		fmt.Fprintf(f.out, "\n=== Listing ===\n")
		fmt.Fprintf(f.out, "Name: %s\n", listing.Name)
		fmt.Fprintf(f.out, "Price: %d\n", listing.Price)
		fmt.Fprintf(f.out, "Catalog size: %d products\n\n", len(f.service.Catalog()))
	}

	startTime := time.Now()
	analysis, err := f.service.Analyze(ctx, listing)
	if err != nil {
		f.logger.Error("Failed to analyze listing", zap.Error(err))
		fmt.Fprintf(f.out, "Error: %s\n", core.UserMessage(err))
		if raw := core.Diagnostic(err); raw != "" {
			fmt.Fprintf(f.out, "Model output: %s\n", raw)
		}
		return nil, err
	}
	duration := time.Since(startTime)

	fmt.Fprint(f.out, analysis.Report.Summary)
	if analysis.NotificationQueued {
		fmt.Fprintf(f.out, "\nHigh risk notification queued.\n")
	}
	if f.verbose {
		fmt.Fprintf(f.out, "\nModel used: %s\n", analysis.Result.ModelUsed)
		fmt.Fprintf(f.out, "Processing ID: %s\n", analysis.Result.ProcessingID)
		fmt.Fprintf(f.out, "From cache: %t\n", analysis.Result.FromCache)
		fmt.Fprintf(f.out, "Processing time: %v\n", duration)
	}

	return analysis, nil
}

// Start is a no-op for the CLI front end
func (f *CliFrontend) Start() error {
	return nil
}

// Stop is a no-op for the CLI front end
func (f *CliFrontend) Stop() error {
	return nil
}
