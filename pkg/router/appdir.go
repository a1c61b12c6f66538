package router

import (
	"fmt"

	rerrors "github.com/vango-dev/approutes/internal/errors"
	"github.com/vango-dev/approutes/pkg/vfs"
)

// appDirCandidates are tried in order relative to the project root.
var appDirCandidates = []string{"app", "src/app"}

// FindAppDir returns the app directory of a project: "app" if it is a
// directory, else "src/app". ok is false when neither exists.
func FindAppDir(project vfs.Path) (dir vfs.Path, ok bool, err error) {
	for _, candidate := range appDirCandidates {
		p := project.Join(candidate)
		typ, err := p.Type()
		if err != nil {
			return vfs.Path{}, false, rerrors.New("E101").
				WithDetail(fmt.Sprintf("checking %s", p)).
				Wrap(err)
		}
		if typ == vfs.Directory {
			return p, true, nil
		}
	}
	return vfs.Path{}, false, nil
}

// RequireAppDir is FindAppDir that fails with E102 when no app directory
// exists.
func RequireAppDir(project vfs.Path) (vfs.Path, error) {
	dir, ok, err := FindAppDir(project)
	if err != nil {
		return vfs.Path{}, err
	}
	if !ok {
		return vfs.Path{}, rerrors.New("E102").
			WithSuggestion(fmt.Sprintf("Create %s or set appDir in approutes.json", project.Join("app")))
	}
	return dir, nil
}
