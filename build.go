package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"luxe/apperr"
	"luxe/models"
	"luxe/mq"
)

var buildFlags struct {
	from      string
	to        string
	days      int
	budget    string
	email     string
	vibe      string
	travelers int
}

func init() {
	f := buildCmd.Flags()
	f.StringVar(&buildFlags.from, "from", "", "origin city")
	f.StringVar(&buildFlags.to, "to", "", "destination")
	f.IntVar(&buildFlags.days, "days", 3, "trip length in days (1-14)")
	f.StringVar(&buildFlags.budget, "budget", "mid", "standard, mid, high-end, luxury or an amount in USD")
	f.StringVar(&buildFlags.email, "email", "", "where to send the PDF")
	f.StringVar(&buildFlags.vibe, "vibe", "", "trip theme, e.g. Cultural, Romantic, Adventure")
	f.IntVar(&buildFlags.travelers, "travelers", models.DefaultTravelers, "number of travelers")
	_ = buildCmd.MarkFlagRequired("from")
	_ = buildCmd.MarkFlagRequired("to")
	_ = buildCmd.MarkFlagRequired("email")
}

var buildCmd = &cobra.Command{
	Use:   "build",
	Short: "Build one itinerary and deliver it",
	Long: `Generate, illustrate, render and deliver one itinerary. The PDF is saved
to OUTPUT_DIR and emailed to --email. Ctrl-C cancels the build.

Examples:
  luxe build --from NYC --to Paris --days 3 --budget mid --email me@example.com
  luxe build --from Delhi --to Kyoto --days 5 --budget 4000 --vibe Food --email me@example.com`,
	Args: cobra.NoArgs,
	RunE: runBuild,
}

// requestFromFlags turns the build flags into a TripRequest.
func requestFromFlags() (models.TripRequest, error) {
	budget, err := models.ParseBudget(buildFlags.budget)
	if err != nil {
		return models.TripRequest{}, fmt.Errorf("%w: %v", apperr.ErrInvalidRequest, err)
	}
	req := models.TripRequest{
		Origin:      buildFlags.from,
		Destination: buildFlags.to,
		Days:        buildFlags.days,
		Budget:      budget,
		Email:       buildFlags.email,
		Vibe:        buildFlags.vibe,
		Travelers:   buildFlags.travelers,
	}.Normalize()
	return req, req.Validate()
}

func runBuild(cmd *cobra.Command, _ []string) error {
	req, err := requestFromFlags()
	if err != nil {
		return err
	}
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger, err := newLogger(cfg, "console")
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	b, err := newBuilder(cfg, mq.LogPublisher{Logger: logger.Named("events")}, logger)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	res, err := b.Build(ctx, req)
	if res != nil && res.Delivery != nil && res.Delivery.SavedPath != "" {
		cmd.Printf("Saved %s\n", res.Delivery.SavedPath)
	}
	if err != nil {
		if errors.Is(err, context.Canceled) {
			logger.Warn("build interrupted", zap.Error(err))
		}
		return err
	}
	cmd.Printf("Emailed %s to %s\n", res.Document.Filename, req.Email)
	return nil
}
