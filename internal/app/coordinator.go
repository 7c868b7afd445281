package app

import (
	"context"

	"go.trai.ch/stitch/internal/core/domain"
	"go.trai.ch/stitch/internal/core/ports"
	"go.trai.ch/stitch/internal/engine/normalizer"
	"go.trai.ch/stitch/internal/engine/pending"
)

// RenderContext is the state a host keeps per document while rendering it.
// Builds chained on Pending run in call order and Pending.Wait waits for them.
// With a nil Pending each build runs on its own and nothing orders or awaits it.
type RenderContext struct {
	Document domain.Document
	Pending  *pending.Chain
}

// Coordinator is the entry point of a concat call. It validates the call
// synchronously and leaves the build to the document's pending chain, on
// whichever dispatcher this process was given: the engine when it is the
// primary, the primary's client otherwise.
type Coordinator struct {
	outputRoot  string
	baseURL     string
	dispatcher  ports.Dispatcher
	diagnostics ports.Diagnostics
}

// NewCoordinator creates a new Coordinator for cfg.
func NewCoordinator(cfg *domain.Config, dispatcher ports.Dispatcher, diagnostics ports.Diagnostics) *Coordinator {
	return &Coordinator{
		outputRoot:  cfg.OutputRoot,
		baseURL:     cfg.BaseURL,
		dispatcher:  dispatcher,
		diagnostics: diagnostics,
	}
}

// Concat normalizes raw, chains its build onto rc.Pending and returns the
// destination's URL without waiting for the build. Only a *domain.ConfigError
// is returned; build failures go to diagnostics.
func (c *Coordinator) Concat(ctx context.Context, rc RenderContext, raw domain.RawRequest) (string, error) {
	req, err := normalizer.Normalize(rc.Document, raw, c.outputRoot)
	if err != nil {
		return "", err
	}

	url := normalizer.URL(c.baseURL, c.outputRoot, req.Destination)

	chain := rc.Pending
	if chain == nil {
		chain = &pending.Chain{}
	}
	chain.Then(func() {
		if err := c.dispatcher.Dispatch(ctx, req); err != nil {
			c.diagnostics.Report(domain.NewDiagnostic(rc.Document.Path, "", req.Destination, err))
		}
	})

	return url, nil
}

// RemoteDispatcher dispatches requests to the primary process.
type RemoteDispatcher struct {
	client ports.DaemonClient
}

var _ ports.Dispatcher = (*RemoteDispatcher)(nil)

// NewRemoteDispatcher creates a dispatcher forwarding to client.
func NewRemoteDispatcher(client ports.DaemonClient) *RemoteDispatcher {
	return &RemoteDispatcher{client: client}
}

// Dispatch forwards req and returns once the primary's attempt has completed.
func (d *RemoteDispatcher) Dispatch(ctx context.Context, req domain.ConcatRequest) error {
	return d.client.Build(context.WithoutCancel(ctx), req)
}
