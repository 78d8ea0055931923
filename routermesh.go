// Package routermesh provides a high-level façade over the orchestration
// loop and its collaborators (endpoint directory, remote task client,
// decision engine & logging) enabling rapid construction of routed
// multi-service systems. Most applications interact with this package by:
//  1. Creating a Mesh via New() with a decision engine and a target roster
//  2. Submitting requests (Submit) and inspecting the returned Result
//
// The façade delegates orchestration to router.Router while keeping setup
// and usage ergonomics concise. All defaults are safe for local development
// and testing; production deployments typically supply tuned client timeouts
// and a structured logger.
package routermesh

import (
	"context"

	"github.com/hupe1980/routermesh/a2a"
	"github.com/hupe1980/routermesh/card"
	"github.com/hupe1980/routermesh/decision"
	"github.com/hupe1980/routermesh/logging"
	"github.com/hupe1980/routermesh/router"
)

// Options configures the Mesh instance.
type Options struct {
	// MaxTurns bounds decide/dispatch round-trips per request.
	MaxTurns int

	// Directory overrides the endpoint directory (defaults to a fresh
	// process-lifetime cache).
	Directory *card.Directory

	// Dispatcher overrides the remote task client (useful for tests).
	Dispatcher router.Dispatcher

	// ClientOptions tune the default a2a client when no Dispatcher override
	// is supplied (timeout classes, transport).
	ClientOptions []func(o *a2a.Options)

	// Logger (defaults to NoOp logger if nil)
	Logger logging.Logger
}

// Mesh is the high-level façade aggregating the orchestration loop and the
// shared endpoint directory. A single Mesh serves concurrent requests; the
// directory cache is the only state shared between them.
type Mesh struct {
	router    *router.Router
	directory *card.Directory
}

// New creates a new Mesh routing requests across the given targets (logical
// service name to base address) using the supplied decision engine.
func New(engine decision.Engine, targets map[string]string, optFns ...func(o *Options)) *Mesh {
	opts := Options{
		MaxTurns: router.DefaultMaxTurns,
		Logger:   logging.NoOpLogger{},
	}

	for _, fn := range optFns {
		fn(&opts)
	}

	directory := opts.Directory
	if directory == nil {
		directory = card.NewDirectory(func(o *card.Options) {
			o.Logger = opts.Logger
		})
	}

	dispatcher := opts.Dispatcher
	if dispatcher == nil {
		clientOpts := append([]func(o *a2a.Options){func(o *a2a.Options) {
			o.Logger = opts.Logger
		}}, opts.ClientOptions...)
		dispatcher = a2a.NewClient(directory, clientOpts...)
	}

	r := router.New(engine, dispatcher, targets, func(o *router.Options) {
		o.MaxTurns = opts.MaxTurns
		o.Logger = opts.Logger
	})

	return &Mesh{router: r, directory: directory}
}

// Submit processes one request end-to-end and returns its terminal Result.
// Cancellation of ctx aborts in-flight decision and dispatch calls and
// yields an OutcomeCancelled result.
func (m *Mesh) Submit(ctx context.Context, requestText string) (*router.Result, error) {
	return m.router.Submit(ctx, requestText)
}

// Directory returns the shared endpoint directory, e.g. to pre-warm
// descriptors at startup.
func (m *Mesh) Directory() *card.Directory { return m.directory }

// Targets returns the logical names of the configured services.
func (m *Mesh) Targets() []string { return m.router.Targets() }
