package webservice

import (
	"fmt"
	"net/http"
	"slices"
	"strings"

	"github.com/gorilla/mux"
	"github.com/inmobiliaria/backoffice/internal/webservice/metrics"
	"github.com/prometheus/client_golang/prometheus"
)

// Module is a group of routes mounted under a prefix.
type Module interface {
	// Name identifies the module in the route table and in metrics.
	Name() string
	// Register adds the module routes to r, relative to the module prefix.
	Register(r *mux.Router)
}

// Include mounts a module under a URL prefix.
type Include struct {
	Prefix string
	Module Module
}

// Route is an entry of the route table.
type Route struct {
	Module  string
	Path    string
	Methods []string
}

// Router holds the prefix table of the service.
type Router struct {
	includes []Include

	debug     bool
	mediaURL  string
	mediaRoot string

	registry prometheus.Registerer
}

// NewRouter creates an empty prefix table. Media files are served only in debug mode.
func NewRouter(debug bool, mediaURL, mediaRoot string, registry prometheus.Registerer) *Router {
	if registry == nil {
		registry = prometheus.NewRegistry()
	}
	return &Router{
		debug:     debug,
		mediaURL:  "/" + strings.Trim(mediaURL, "/") + "/",
		mediaRoot: mediaRoot,
		registry:  registry,
	}
}

// Include mounts m under prefix, like "contracts/". The empty prefix is the root of the site.
func (rt *Router) Include(prefix string, m Module) error {
	prefix = normalize(prefix)
	for _, inc := range rt.includes {
		if inc.Prefix == prefix {
			return fmt.Errorf("prefix %q is already used by %s", prefix, inc.Module.Name())
		}
	}
	rt.includes = append(rt.includes, Include{Prefix: prefix, Module: m})
	return nil
}

// Includes returns the prefix table in inclusion order.
func (rt *Router) Includes() []Include {
	return slices.Clone(rt.includes)
}

// Handler builds the router. The root include is matched after every other prefix and
// after the media files.
func (rt *Router) Handler() http.Handler {
	root := mux.NewRouter()
	endpoints := metrics.NewEndpointMiddleware(rt.registry)

	prefixed, site := rt.split()
	for _, inc := range prefixed {
		sub := mount(root, inc.Prefix)
		sub.Use(endpoints.Wrap(inc.Module.Name()))
		inc.Module.Register(sub)
	}
	if rt.debug {
		root.PathPrefix(rt.mediaURL).Handler(http.StripPrefix(rt.mediaURL, http.FileServer(http.Dir(rt.mediaRoot))))
	}
	for _, inc := range site {
		sub := mount(root, inc.Prefix)
		sub.Use(endpoints.Wrap(inc.Module.Name()))
		inc.Module.Register(sub)
	}

	return metrics.NewMuxMiddleware(rt.registry).Wrap(root)
}

// Routes lists the routes of every module, in the order they are matched.
func (rt *Router) Routes() ([]Route, error) {
	prefixed, site := rt.split()

	routes, err := moduleRoutes(prefixed)
	if err != nil {
		return nil, err
	}
	if rt.debug {
		routes = append(routes, Route{Module: "media", Path: rt.mediaURL + "{path}", Methods: []string{http.MethodGet}})
	}
	siteRoutes, err := moduleRoutes(site)
	if err != nil {
		return nil, err
	}
	return append(routes, siteRoutes...), nil
}

func moduleRoutes(includes []Include) ([]Route, error) {
	var routes []Route
	for _, inc := range includes {
		r := mux.NewRouter()
		inc.Module.Register(mount(r, inc.Prefix))
		err := r.Walk(func(route *mux.Route, _ *mux.Router, _ []*mux.Route) error {
			if route.GetHandler() == nil {
				return nil
			}
			tpl, err := route.GetPathTemplate()
			if err != nil {
				return nil
			}
			methods, _ := route.GetMethods()
			routes = append(routes, Route{Module: inc.Module.Name(), Path: tpl, Methods: methods})
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("could not list routes of %s: %v", inc.Module.Name(), err)
		}
	}
	return routes, nil
}

// split separates the prefixed includes from the root one.
func (rt *Router) split() (prefixed, site []Include) {
	for _, inc := range rt.includes {
		if inc.Prefix == "/" {
			site = append(site, inc)
			continue
		}
		prefixed = append(prefixed, inc)
	}
	return prefixed, site
}

// mount returns the subrouter of prefix. Module routes start with a slash, so the subrouter
// prefix is used without its trailing one.
func mount(r *mux.Router, prefix string) *mux.Router {
	if prefix == "/" {
		return r.NewRoute().Subrouter()
	}
	return r.PathPrefix(strings.TrimSuffix(prefix, "/")).Subrouter()
}

func normalize(prefix string) string {
	prefix = strings.Trim(prefix, "/")
	if prefix == "" {
		return "/"
	}
	return "/" + prefix + "/"
}
