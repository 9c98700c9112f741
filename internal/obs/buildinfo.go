package obs

import (
	"runtime/debug"

	"github.com/prometheus/client_golang/prometheus"
)

// Version is set at link time with -ldflags "-X budgetbook/internal/obs.Version=...".
var Version = "dev"

// RegisterBuildInfo publishes build_info{version,commit} 1 on reg.
func RegisterBuildInfo(reg prometheus.Registerer) {
	g := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "build_info",
		Help: "budgetbook build information.",
	}, []string{"version", "commit"})
	reg.MustRegister(g)
	g.WithLabelValues(Version, commit()).Set(1)
}

func commit() string {
	info, ok := debug.ReadBuildInfo()
	if !ok {
		return "unknown"
	}
	for _, s := range info.Settings {
		if s.Key == "vcs.revision" {
			if len(s.Value) > 12 {
				return s.Value[:12]
			}
			return s.Value
		}
	}
	return "unknown"
}
