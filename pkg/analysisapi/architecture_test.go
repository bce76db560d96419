package analysisapi

import (
	"testing"

	"pathwaycore/testutil"
)

func TestAnalysisAPIDoesNotImportInternal(t *testing.T) {
	testutil.AssertNoDirectImports(t, ".", testutil.InternalImportForbidden, "analysisapi is a public boundary")
}

func TestAnalysisAPIDoesNotImportDomain(t *testing.T) {
	testutil.AssertNoDirectImports(t, ".", testutil.DomainImportForbidden, "boundary values never expose domain nodes")
}

func TestAnalysisAPIHasNoInternalDependencies(t *testing.T) {
	testutil.AssertNoTransitiveDependency(t, ".", testutil.InternalImportForbidden, "analysisapi is importable outside the module")
}
