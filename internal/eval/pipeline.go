package eval

import (
	"net/http"

	"github.com/dontdude/tiobot/internal/catalog"
	"github.com/dontdude/tiobot/internal/config"
	"github.com/dontdude/tiobot/internal/paste"
	"github.com/dontdude/tiobot/internal/platform/fetch"
	"github.com/dontdude/tiobot/internal/render"
	"github.com/dontdude/tiobot/internal/source"
	"github.com/dontdude/tiobot/internal/tio"
)

// Pipeline is a ready Dispatcher together with the refresher that keeps its catalog current.
// Run the refresher for as long as the dispatcher is in use.
type Pipeline struct {
	Dispatcher *Dispatcher
	Refresher  *catalog.Refresher
	Catalog    *catalog.Store
}

// NewPipeline wires every stage from configuration. All outbound calls share one client.
func NewPipeline(cfg *config.Config, tables *config.Tables) *Pipeline {
	httpClient := &http.Client{Timeout: cfg.HTTPTimeout}

	client := tio.NewClient(httpClient, cfg.RunURL, cfg.LanguagesURL)
	store := catalog.NewStore()

	d := NewDispatcher(Config{
		Catalog:  store,
		Resolver: source.NewResolver(fetch.NewHTTPFetcher(httpClient, cfg.MaxFetchBytes), nil, nil),
		Wrapper:  source.NewWrapper(tables.Wrapping, tables.WrapExcluded),
		Executor: client,
		Formatter: render.NewFormatter(render.Limits{
			MaxChars:     cfg.MaxOutputChars,
			MaxLines:     cfg.MaxOutputLines,
			PreviewLines: cfg.PreviewLines,
		}, paste.NewService(httpClient, cfg.PastePrimaryURL, cfg.PasteFallbackURL)),
		Usage: render.Usage(cfg.CommandPrefix),
	})

	return &Pipeline{
		Dispatcher: d,
		Refresher:  catalog.NewRefresher(client, store, cfg.RefreshInterval, tables.QuickAlias, tables.FamilyDefault),
		Catalog:    store,
	}
}
