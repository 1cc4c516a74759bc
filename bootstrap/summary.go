package bootstrap

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/MrEdHardy/schleuben/component"
)

// Summary renders the startup banner: components with their descriptions,
// the HTTP routes they serve and a live health check.
type Summary struct {
	serviceName     string
	version         string
	startupDuration time.Duration
	out             io.Writer
}

// NewSummary creates a summary writing to out, or stdout when out is nil.
func NewSummary(serviceName, version string, out io.Writer) *Summary {
	if out == nil {
		out = os.Stdout
	}
	return &Summary{serviceName: serviceName, version: version, out: out}
}

// SetStartupDuration records the total startup time.
func (s *Summary) SetStartupDuration(d time.Duration) {
	s.startupDuration = d
}

// Render writes the summary for every component in registry.
func (s *Summary) Render(ctx context.Context, registry *component.Registry) {
	w := s.out
	fmt.Fprintf(w, "\n🚀 %s v%s started in %.2fs\n", s.serviceName, s.version, s.startupDuration.Seconds())

	if registry == nil || len(registry.All()) == 0 {
		fmt.Fprintf(w, "   └── No components registered\n\n")
		return
	}
	components := registry.All()

	fmt.Fprintf(w, "\n📦 Components\n")
	for i, c := range components {
		line := c.Name()
		if d, ok := c.(component.Describable); ok {
			line += ": " + d.Describe()
		}
		fmt.Fprintf(w, "   %s %s\n", treePrefix(i, len(components)), line)
	}

	var routes []component.Route
	for _, c := range components {
		if rp, ok := c.(component.RouteProvider); ok {
			for _, r := range rp.Routes() {
				if !r.System {
					routes = append(routes, r)
				}
			}
		}
	}
	if len(routes) > 0 {
		fmt.Fprintf(w, "\n🌐 Routes (%d)\n", len(routes))
		for i, r := range routes {
			fmt.Fprintf(w, "   %s %-7s %s\n", treePrefix(i, len(routes)), r.Method, r.Path)
		}
	}

	health := registry.HealthAll(ctx)
	fmt.Fprintf(w, "\n🏥 Health Check\n")
	healthy := 0
	for i, h := range health {
		msg := ""
		if h.Message != "" {
			msg = " (" + h.Message + ")"
		}
		fmt.Fprintf(w, "   %s %s %s: %s%s\n", treePrefix(i, len(health)), healthStatusIcon(h.Status), h.Name, strings.ToLower(string(h.Status)), msg)
		if h.Status == component.StatusHealthy {
			healthy++
		}
	}
	if healthy == len(health) {
		fmt.Fprintf(w, "\n✅ All components healthy (%d/%d)\n\n", healthy, len(health))
	} else {
		fmt.Fprintf(w, "\n⚠️  Some components have issues (%d/%d healthy)\n\n", healthy, len(health))
	}
}

func treePrefix(i, n int) string {
	if i == n-1 {
		return "└──"
	}
	return "├──"
}

func healthStatusIcon(status component.HealthStatus) string {
	switch status {
	case component.StatusHealthy:
		return "✅"
	case component.StatusDegraded:
		return "⚠️"
	case component.StatusUnhealthy:
		return "❌"
	default:
		return "❓"
	}
}
