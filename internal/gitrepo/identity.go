package gitrepo

import (
	"errors"
	"time"

	"github.com/go-git/go-git/v5/plumbing/object"

	"github.com/tkellogg/dura/internal/config"
)

// ErrIdentityUnresolved is returned when no commit_author/commit_email
// override is configured, the repository's own identity is either
// excluded or unset, and the hardcoded default cannot be used either
// (it never can't; this error exists for completeness and for a future
// strict mode, not because the current fallback chain can fail).
var ErrIdentityUnresolved = errors.New("gitrepo: could not resolve commit identity")

// ResolveIdentity picks the author/committer name and email a snapshot
// commit should carry, following spec §4.1 step 2's fallback chain:
// explicit config override, then the repository's own user.name/
// user.email (unless excluded), then dura's hardcoded default.
func (r *Repo) ResolveIdentity(id config.Identity) (name, email string) {
	if id.Author != "" && id.Email != "" {
		return id.Author, id.Email
	}

	if !id.ExcludeSCMIdentity {
		if cfg, err := r.repo.Config(); err == nil {
			if cfg.User.Name != "" && cfg.User.Email != "" {
				return cfg.User.Name, cfg.User.Email
			}
		}
	}

	return config.DefaultAuthor, config.DefaultEmail
}

// Signature builds the object.Signature dura stamps onto every snapshot
// and consolidation commit, author and committer identical, timestamped
// at now.
func Signature(name, email string, now time.Time) object.Signature {
	return object.Signature{Name: name, Email: email, When: now}
}
