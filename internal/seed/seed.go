// Package seed reads the curated source list from YAML.
package seed

import (
	"errors"
	"fmt"
	"io"
	"net/url"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/jdholdren/curator/internal/curator"
)

type (
	file struct {
		Sources []entry `yaml:"sources"`
	}

	entry struct {
		Name     string   `yaml:"name"`
		Handle   string   `yaml:"handle"`
		ShortBio string   `yaml:"short_bio"`
		Website  string   `yaml:"website"`
		Feeds    []string `yaml:"feeds"`
	}
)

// Load decodes a seed file. ${VAR} references are expanded from the
// environment before decoding.
//
// Every source needs a unique name and feeds must be absolute http(s) URLs;
// all problems are reported together.
func Load(r io.Reader) ([]curator.Source, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("error reading seed file: %w", err)
	}
	expanded := os.Expand(string(raw), os.Getenv)

	dec := yaml.NewDecoder(strings.NewReader(expanded))
	dec.KnownFields(true)

	var f file
	if err := dec.Decode(&f); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("error decoding seed file: %w", err)
	}

	var (
		errs  []error
		names = make(map[string]struct{}, len(f.Sources))
		srcs  = make([]curator.Source, 0, len(f.Sources))
	)
	for i, e := range f.Sources {
		src, err := e.source()
		if err != nil {
			errs = append(errs, fmt.Errorf("source %d: %w", i, err))
			continue
		}
		if _, ok := names[src.Name]; ok {
			errs = append(errs, fmt.Errorf("source %d: duplicate name %q", i, src.Name))
			continue
		}
		names[src.Name] = struct{}{}
		srcs = append(srcs, src)
	}
	if len(errs) > 0 {
		return nil, fmt.Errorf("invalid seed file: %w", errors.Join(errs...))
	}

	return srcs, nil
}

func (e entry) source() (curator.Source, error) {
	name := strings.TrimSpace(e.Name)
	if name == "" {
		return curator.Source{}, errors.New("name is required")
	}

	feeds := make([]string, 0, len(e.Feeds))
	for _, f := range e.Feeds {
		f = strings.TrimSpace(f)
		if err := validateFeedURL(f); err != nil {
			return curator.Source{}, fmt.Errorf("%s: %w", name, err)
		}
		feeds = append(feeds, f)
	}

	return curator.Source{
		Name:     name,
		Handle:   strings.TrimSpace(e.Handle),
		ShortBio: strings.TrimSpace(e.ShortBio),
		Website:  strings.TrimSpace(e.Website),
		FeedURLs: feeds,
	}, nil
}

func validateFeedURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("invalid feed url %q: %w", raw, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("feed url %q must be http or https", raw)
	}
	if u.Host == "" {
		return fmt.Errorf("feed url %q has no host", raw)
	}

	return nil
}
