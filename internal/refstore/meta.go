// SPDX-License-Identifier: MPL-2.0

package refstore

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/ragstrap/ragstrap/internal/issue"
)

type (
	// Meta is the content of a reference's meta.json.
	Meta struct {
		Name               string   `json:"name"`
		Source             string   `json:"source,omitempty"`
		Owner              string   `json:"owner,omitempty"`
		Repo               string   `json:"repo,omitempty"`
		Commit             string   `json:"commit,omitempty"`
		FetchedAt          string   `json:"fetched_at,omitempty"`
		RagstrapVersion    string   `json:"ragstrap_version,omitempty"`
		Language           string   `json:"language,omitempty"`
		SecondaryLanguages []string `json:"secondary_languages,omitempty"`
		CLI                *CLIInfo `json:"cli,omitempty"`
	}

	// CLIInfo describes a captured command-line interface.
	CLIInfo struct {
		// Binary is the file name of the built executable.
		Binary string `json:"binary"`
		// Commands lists captured commands, "root" first.
		Commands       []string `json:"commands"`
		Package        string   `json:"package,omitempty"`
		PackageVersion string   `json:"package_version,omitempty"`
	}
)

// LoadMeta reads the metadata of an existing reference. Failures to read or
// decode meta.json are reported against the file path.
func (s *Store) LoadMeta(name string) (*Meta, error) {
	if err := s.Check(name); err != nil {
		return nil, err
	}

	path := s.MetaPath(name)
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		err = fmt.Errorf("%w: %s", ErrMissingMeta, name)
	}
	if err != nil {
		return nil, issue.WrapWithContext(err, "load reference metadata", path)
	}

	var meta Meta
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil, issue.WrapWithContext(fmt.Errorf("%w: %w", ErrInvalidMeta, err), "load reference metadata", path)
	}
	return &meta, nil
}

// ReadMetaOptional returns the reference's metadata, or nil when it is
// missing or unreadable.
func (s *Store) ReadMetaOptional(name string) *Meta {
	data, err := os.ReadFile(s.MetaPath(name))
	if err != nil {
		return nil
	}
	var meta Meta
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil
	}
	return &meta
}

// SaveMeta writes meta.json as indented JSON, creating the reference
// directory when needed.
func (s *Store) SaveMeta(name string, meta *Meta) error {
	data, err := json.MarshalIndent(meta, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding %s: %w", MetaFile, err)
	}
	data = append(data, '\n')

	if err := os.MkdirAll(s.Dir(name), 0o755); err != nil {
		return fmt.Errorf("creating reference directory: %w", err)
	}
	if err := os.WriteFile(s.MetaPath(name), data, 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", MetaFile, err)
	}
	return nil
}
