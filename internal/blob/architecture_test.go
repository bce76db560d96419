package blob

import (
	"slices"
	"strings"
	"testing"

	"golang.org/x/tools/go/packages"
)

const infraBlob = "pathwaycore/internal/infra/blob"

func importsInfraBlob(path string) bool {
	return path == infraBlob || strings.HasPrefix(path, infraBlob+"/")
}

// Drivers are reached through this package only; everything else depends on
// the Store interface.
func TestOnlyBlobPackageImportsDrivers(t *testing.T) {
	cfg := &packages.Config{Mode: packages.NeedName | packages.NeedImports, Tests: true}
	pkgs, err := packages.Load(cfg, "pathwaycore/...")
	if err != nil {
		t.Fatalf("load packages: %v", err)
	}
	var viols []string
	for _, pkg := range pkgs {
		if strings.HasPrefix(pkg.PkgPath, "pathwaycore/internal/blob") || importsInfraBlob(pkg.PkgPath) {
			continue
		}
		for path := range pkg.Imports {
			if importsInfraBlob(path) {
				viols = append(viols, pkg.PkgPath+" imports "+path)
			}
		}
	}
	slices.Sort(viols)
	viols = slices.Compact(viols)
	if len(viols) > 0 {
		t.Fatalf("blob drivers imported outside internal/blob:\n%s", strings.Join(viols, "\n"))
	}
}
