package scm

import (
	"github.com/go-git/go-git/v6"
)

// State is the source-control snapshot stamped into generated version code.
type State struct {
	Revision string
	URL      string
}

// Load inspects the git working tree enclosing dir. Version stamping must
// never fail generation, so missing repository data degrades to "unknown".
func Load(dir string) State {
	state := State{Revision: "unknown", URL: "unknown"}

	repo, err := git.PlainOpenWithOptions(dir, &git.PlainOpenOptions{DetectDotGit: true})
	if err != nil {
		return state
	}
	if head, err := repo.Head(); err == nil {
		state.Revision = head.Hash().String()
	}
	if remote, err := repo.Remote("origin"); err == nil {
		if urls := remote.Config().URLs; len(urls) > 0 {
			state.URL = urls[0]
		}
	}
	return state
}
