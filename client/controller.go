package client

import (
	"context"

	"github.com/ProducerMatt/stampy-chat/logger"
)

// UIState bundles the page-state setters a host hands to the controller for
// one submission. Hosts that mutate state from a single goroutine can pass
// plain closures; event-loop hosts pass setters that marshal onto the loop.
type UIState struct {
	SetQueryText func(string)
	SetLoading   func(bool)
	SetResults   func([]ResultEntry)
}

// Controller drives search submissions against the API on behalf of a page.
type Controller struct {
	client *Client
	logger logger.Logger
}

func NewController(client *Client, logger logger.Logger) *Controller {
	return &Controller{
		client: client,
		logger: logger,
	}
}

// Submit runs one search round trip. It marks the page loading and clears the
// pending query text before the request goes out, then replaces the results
// wholesale once a response decodes. The loading flag is released on every
// exit path. On failure the previous results are left untouched and the error
// is both logged and returned. Overlapping submissions are not serialized;
// whichever response arrives last determines the final results.
func (ct *Controller) Submit(ctx context.Context, query string, ui UIState) error {
	ui.SetLoading(true)
	ui.SetQueryText("")
	defer ui.SetLoading(false)

	entries, err := ct.client.Search(ctx, query)
	if err != nil {
		ct.logger.Error("search submission failed", "err", err.Error())
		return err
	}

	ui.SetResults(entries)

	return nil
}
