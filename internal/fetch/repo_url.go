// SPDX-License-Identifier: MPL-2.0

package fetch

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
)

// ErrInvalidRepoURL is returned for sources that do not name a github.com repository.
var ErrInvalidRepoURL = errors.New("invalid GitHub repository URL")

// ParseGitHubRepo splits a github.com repository URL into owner and
// repository name. Extra path segments (e.g. /tree/main) are ignored and a
// trailing ".git" is removed.
func ParseGitHubRepo(raw string) (owner, repo string, err error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", "", fmt.Errorf("%w: empty source", ErrInvalidRepoURL)
	}

	u, err := url.Parse(raw)
	if err != nil {
		return "", "", fmt.Errorf("%w: %w", ErrInvalidRepoURL, err)
	}
	if !strings.EqualFold(u.Host, "github.com") {
		return "", "", fmt.Errorf("%w: only github.com URLs are supported, got %q", ErrInvalidRepoURL, raw)
	}

	parts := strings.Split(strings.Trim(u.Path, "/"), "/")
	if len(parts) < 2 {
		return "", "", fmt.Errorf("%w: %q", ErrInvalidRepoURL, raw)
	}

	owner = strings.TrimSpace(parts[0])
	repo = strings.TrimSuffix(strings.TrimSpace(parts[1]), ".git")
	if owner == "" || repo == "" {
		return "", "", fmt.Errorf("%w: %q", ErrInvalidRepoURL, raw)
	}

	return owner, repo, nil
}
