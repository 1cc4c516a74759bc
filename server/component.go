package server

import (
	"context"
	"sort"

	"github.com/MrEdHardy/schleuben/component"
)

var (
	_ component.Component     = (*Server)(nil)
	_ component.Describable   = (*Server)(nil)
	_ component.RouteProvider = (*Server)(nil)
)

// Name implements component.Component.
func (s *Server) Name() string { return "http-server" }

// Health reports healthy once the listener is bound.
func (s *Server) Health(_ context.Context) component.Health {
	s.mu.Lock()
	bound := s.listener != nil
	s.mu.Unlock()
	if !bound {
		return component.Health{Name: s.Name(), Status: component.StatusUnhealthy, Message: "not listening"}
	}
	return component.Health{Name: s.Name(), Status: component.StatusHealthy}
}

// Describe implements component.Describable.
func (s *Server) Describe() string {
	return "listening on " + s.Addr()
}

// Routes lists domain routes first, then system routes, each sorted by path
// and method.
func (s *Server) Routes() []component.Route {
	infos := s.engine.Routes()
	sort.Slice(infos, func(i, j int) bool {
		iSys, jSys := systemPaths[infos[i].Path], systemPaths[infos[j].Path]
		if iSys != jSys {
			return !iSys
		}
		if infos[i].Path != infos[j].Path {
			return infos[i].Path < infos[j].Path
		}
		return methodOrder(infos[i].Method) < methodOrder(infos[j].Method)
	})

	routes := make([]component.Route, 0, len(infos))
	for _, r := range infos {
		routes = append(routes, component.Route{Method: r.Method, Path: r.Path, System: systemPaths[r.Path]})
	}
	return routes
}

func methodOrder(method string) int {
	switch method {
	case "GET":
		return 0
	case "PUT":
		return 1
	case "PATCH":
		return 2
	case "DELETE":
		return 3
	default:
		return 4
	}
}
