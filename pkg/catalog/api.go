package catalog

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/gridwire-dev/gridwire/pkg/urlstate"
)

// DefaultPageSize applies when a request carries no pageSize parameter.
const DefaultPageSize = 25

// API serves a store over HTTP using the grid request contract: sort,
// page, pageSize and f_-prefixed filter parameters in, one Result page out.
type API struct {
	store  *Store
	logger *slog.Logger
}

// NewAPI wraps a store. A nil logger falls back to slog.Default().
func NewAPI(store *Store, logger *slog.Logger) *API {
	if logger == nil {
		logger = slog.Default()
	}
	return &API{store: store, logger: logger}
}

// Router builds the catalog's route tree.
func (a *API) Router() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Get("/vehicles", a.handleQuery)
	return r
}

// handleQuery decodes one page request from its query parameters. The
// decoders degrade on malformed input the same way the client does, so a
// hand-edited URL still produces a sensible page.
func (a *API) handleQuery(w http.ResponseWriter, r *http.Request) {
	values := r.URL.Query()

	filters := make(map[string]string)
	for key := range values {
		if column, ok := strings.CutPrefix(key, urlstate.FilterPrefix); ok && column != "" {
			if value := values.Get(key); value != "" {
				filters[column] = value
			}
		}
	}

	q := Query{
		Filters: filters,
		Sort:    urlstate.DecodeSort(values.Get(urlstate.ParamSort)),
		Page: urlstate.DecodePage(
			values.Get(urlstate.ParamPage),
			values.Get(urlstate.ParamPageSize),
			DefaultPageSize,
		),
	}

	result := a.store.Run(q)

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(result); err != nil {
		a.logger.Error("response encode failed", "error", err)
	}
}
