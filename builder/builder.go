// Package builder runs one itinerary build end to end:
// generate, parse, resolve images, render, deliver.
package builder

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"luxe/apperr"
	"luxe/delivery"
	"luxe/imagery"
	"luxe/logging"
	"luxe/models"
	"luxe/mq"
	"luxe/parser"
	"luxe/render"
)

type TextGenerator interface {
	Generate(ctx context.Context, req models.TripRequest) (string, error)
}

type Deliverer interface {
	Deliver(ctx context.Context, doc *models.RenderedDocument, recipient string) delivery.Report
}

type Deps struct {
	Generator TextGenerator
	Parser    *parser.Parser
	Images    *imagery.Resolver
	Renderer  *render.Renderer
	Delivery  Deliverer
	// Events may be nil.
	Events mq.Publisher
	Logger *zap.Logger
}

type Builder struct {
	deps   Deps
	logger *zap.Logger
}

func New(deps Deps) *Builder {
	if deps.Parser == nil {
		deps.Parser = parser.New(deps.Logger)
	}
	if deps.Renderer == nil {
		deps.Renderer = render.New(deps.Logger)
	}
	if deps.Images == nil {
		deps.Images = imagery.NewResolver(nil, nil, imagery.Options{}, deps.Logger)
	}
	return &Builder{deps: deps, logger: logging.OrNop(deps.Logger)}
}

// Result is what a build produced. Delivery is set once the document exists,
// even when one of its channels failed.
type Result struct {
	BuildID   string                   `json:"build_id"`
	Itinerary *models.Itinerary        `json:"itinerary,omitempty"`
	Document  *models.RenderedDocument `json:"document,omitempty"`
	Delivery  *delivery.Report         `json:"delivery,omitempty"`
}

func NewID() string { return uuid.NewString() }

// Build runs a build under a fresh id.
func (b *Builder) Build(ctx context.Context, req models.TripRequest) (*Result, error) {
	return b.Run(ctx, NewID(), req)
}

// Run executes the pipeline for req. Failures before rendering leave nothing
// behind: no file and no email. A delivery failure still returns the Result.
func (b *Builder) Run(ctx context.Context, id string, req models.TripRequest) (*Result, error) {
	log := b.logger.With(zap.String("build_id", id))
	res := &Result{BuildID: id}
	start := time.Now()

	req = req.Normalize()
	if err := req.Validate(); err != nil {
		return nil, b.fail(ctx, log, id, err)
	}
	log.Info("build started",
		zap.String("origin", req.Origin),
		zap.String("destination", req.Destination),
		zap.Int("days", req.Days),
		zap.String("budget", req.Budget.String()))

	b.emit(ctx, id, mq.StageGenerating, fmt.Sprintf("asking the model for a %d-day plan", req.Days))
	raw, err := b.deps.Generator.Generate(ctx, req)
	if err != nil {
		return nil, b.fail(ctx, log, id, err)
	}

	b.emit(ctx, id, mq.StageParsing, "")
	it, err := b.deps.Parser.Parse(raw, req)
	if err != nil {
		return nil, b.fail(ctx, log, id, err)
	}
	res.Itinerary = it

	places := it.PlaceNames()
	b.emit(ctx, id, mq.StageImages, fmt.Sprintf("%d places", len(places)))
	images := b.deps.Images.NewBuild(it.Summary.Destination).ResolveAll(ctx, places)
	if err := ctx.Err(); err != nil {
		return nil, b.fail(ctx, log, id, err)
	}

	b.emit(ctx, id, mq.StageRendering, "")
	doc, err := b.deps.Renderer.Render(it, images, req)
	if err != nil {
		return nil, b.fail(ctx, log, id, err)
	}
	res.Document = doc

	b.emit(ctx, id, mq.StageDelivering, doc.Filename)
	rep := b.deps.Delivery.Deliver(ctx, doc, req.Email)
	res.Delivery = &rep
	if err := rep.Err(); err != nil {
		return res, b.fail(ctx, log, id, err)
	}

	b.emit(ctx, id, mq.StageDone, rep.SavedPath)
	log.Info("build finished",
		zap.String("file", rep.SavedPath),
		zap.Int("pages", doc.Layout.Pages),
		zap.Duration("took", time.Since(start)))
	return res, nil
}

func (b *Builder) emit(ctx context.Context, id string, stage mq.Stage, msg string) {
	b.publish(ctx, mq.Event{BuildID: id, Stage: stage, Message: msg, Time: time.Now().UTC()})
}

func (b *Builder) publish(ctx context.Context, ev mq.Event) {
	if b.deps.Events == nil {
		return
	}
	// terminal events still go out after the build context is cancelled
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 2*time.Second)
	defer cancel()
	if err := b.deps.Events.Publish(ctx, ev); err != nil {
		b.logger.Debug("publishing build event", zap.String("build_id", ev.BuildID), zap.Error(err))
	}
}

func (b *Builder) fail(ctx context.Context, log *zap.Logger, id string, err error) error {
	kind := apperr.Kind(err)
	log.Error("build failed", zap.String("kind", kind), zap.Error(err))
	b.publish(ctx, mq.Event{BuildID: id, Stage: mq.StageFailed, Message: err.Error(), Kind: kind, Time: time.Now().UTC()})
	return err
}
