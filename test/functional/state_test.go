package functional

import (
	"os"

	"github.com/lux-pm/lux/internal/config"
	"github.com/lux-pm/lux/internal/fetch"
	"github.com/lux-pm/lux/internal/lockfile"
	"github.com/lux-pm/lux/internal/manifest"
	"github.com/lux-pm/lux/internal/resolver"
	"github.com/lux-pm/lux/internal/version"
)

// scenarioState carries everything a step definition across any of the
// feature files might need. Most fields are only ever populated by one
// scenario group; that's fine, it keeps every step function free of
// plumbing concerns.
type scenarioState struct {
	root string // scenario-private scratch root, removed on cleanup

	// install pipeline (builtin_module.feature)
	cfg                *config.Config
	index              *fakeIndex
	evaluator          *fakeEvaluator
	fetcher            *fakeFetcher
	pendingPackage     string
	pendingSourceFiles map[string]string
	installed          []resolver.InstallSpec
	installErr         error

	// platform dependency (platform_dependency.feature)
	manifestTable manifest.RockspecTable
	validated     *manifest.ValidatedManifest
	validateErr   error

	// version parsing (version_parsing.feature)
	req    version.PackageVersionReq
	reqErr error

	// lockfile sync (sync_removes_stale.feature)
	lf           *lockfile.Lockfile
	guard        *lockfile.Guard
	syncSpec     lockfile.SyncSpec
	installedIDs map[string]lockfile.LocalPackageId

	// fetch / integrity (integrity_mismatch.feature, round_trip_install.feature)
	sourceDir    string
	declaredHash string
	fetchErr     error
	fetchErrs    []error
	fetchResults []fetch.Result
}

func newScenarioState() (*scenarioState, error) {
	root, err := os.MkdirTemp("", "lux-functional-")
	if err != nil {
		return nil, err
	}
	return &scenarioState{
		root:               root,
		index:              newFakeIndex(),
		evaluator:          newFakeEvaluator(),
		fetcher:            newFakeFetcher(),
		pendingSourceFiles: map[string]string{},
		installedIDs:       map[string]lockfile.LocalPackageId{},
	}, nil
}

func (s *scenarioState) cleanup() {
	if s.guard != nil {
		s.guard.Close()
	}
	os.RemoveAll(s.root)
}
