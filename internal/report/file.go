// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package report

import (
	"fmt"
	"os"
	"strings"
	"time"

	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/listsearch/pkg/types"
)

// File is the on-disk form of a run: the request that produced it and the
// classified report, so a month can be re-read without hitting the archives.
type File struct {
	Request FileRequest  `yaml:"request"`
	Report  types.Report `yaml:"report"`
	Written time.Time    `yaml:"written"`
}

// FileRequest stores the request in a serializable form.
type FileRequest struct {
	Name    string   `yaml:"name"`
	Emails  []string `yaml:"emails"`
	Month   string   `yaml:"month"`
	Sources []string `yaml:"sources"`
}

const monthFmt = "2006-01"

// WriteReportFile saves req and rep to path as YAML.
func WriteReportFile(path string, req types.SearchRequest, rep types.Report) error {
	f := File{
		Request: FileRequest{
			Name:   req.AuthorName,
			Emails: req.AuthorEmails,
			Month:  time.Date(req.Year, req.Month, 1, 0, 0, 0, 0, time.UTC).Format(monthFmt),
		},
		Report:  rep,
		Written: time.Now().UTC(),
	}
	for _, src := range req.Sources {
		f.Request.Sources = append(f.Request.Sources, src.String())
	}

	data, err := yaml.Marshal(&f)
	if err != nil {
		return fmt.Errorf("marshaling report file: %w", err)
	}
	return os.WriteFile(path, data, 0o644)
}

// ReadReportFile loads a report file written by WriteReportFile.
func ReadReportFile(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading report file: %w", err)
	}
	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parsing report file: %w", err)
	}
	return &f, nil
}

// Period returns the year and month the file covers.
func (r FileRequest) Period() (int, time.Month, error) {
	t, err := time.Parse(monthFmt, strings.TrimSpace(r.Month))
	if err != nil {
		return 0, 0, fmt.Errorf("invalid month %q: %w", r.Month, err)
	}
	return t.Year(), t.Month(), nil
}
