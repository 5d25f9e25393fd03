package build

import (
	"path/filepath"

	"github.com/lux-pm/lux/internal/backend"
	"github.com/lux-pm/lux/internal/config"
	"github.com/lux-pm/lux/internal/lockfile"
)

// DeriveLayout builds the six-subdirectory install layout for one resolved
// package, rooted at cfg.InstallRoot/<luaVersion>/<id>.
func DeriveLayout(cfg *config.Config, luaVersion string, id lockfile.LocalPackageId) backend.Layout {
	root := filepath.Join(cfg.InstallRoot, luaVersion, string(id))
	return backend.Layout{
		Src:          filepath.Join(root, "src"),
		Lib:          filepath.Join(root, "lib"),
		Bin:          filepath.Join(root, "bin"),
		Etc:          filepath.Join(root, "etc"),
		Conf:         filepath.Join(root, "conf"),
		Doc:          filepath.Join(root, "doc"),
		RockspecPath: filepath.Join(root, "rock_manifest.rockspec"),
	}
}
