package iosfga

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/gnames/gnnub/pkg/sources"
	"github.com/sfborg/sflib"
)

var hrefRe = regexp.MustCompile(`href=["']([^"']+)["']`)

// fetch finds the SFGA file of a source, extracts it to cacheDir and
// returns the path of the SQLite database. The warning is not empty when
// more than one file matched the source ID.
func fetch(
	ctx context.Context,
	ds sources.DataSourceConfig,
	cacheDir string,
) (string, string, error) {
	var path, warning string
	var err error

	if sources.IsValidURL(ds.Parent) {
		path, warning, err = resolveRemote(ctx, ds.Parent, ds.ID)
	} else {
		path, warning, err = resolveLocal(ds.Parent, ds.ID)
	}
	if err != nil {
		return "", "", FileNotFoundError(ds.ID, ds.Parent, err)
	}

	// sflib keeps one database per cache directory
	cacheDir = filepath.Join(cacheDir, fmt.Sprintf("%04d", ds.ID))
	if err = clearCache(cacheDir); err != nil {
		return "", "", ReadError(path, err)
	}

	arc := sflib.NewSfga()
	if err = arc.Fetch(path, cacheDir); err != nil {
		return "", "", ReadError(path, err)
	}
	dbPath := arc.DbPath()
	if dbPath == "" {
		return "", "", ReadError(path,
			fmt.Errorf("no database after fetching %s", path))
	}
	return dbPath, warning, nil
}

// clearCache removes leftovers of a previous fetch.
func clearCache(dir string) error {
	if err := os.RemoveAll(dir); err != nil {
		return fmt.Errorf("cannot remove cache %s: %w", dir, err)
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("cannot create cache %s: %w", dir, err)
	}
	return nil
}

// resolveLocal finds files of a source in a local directory.
func resolveLocal(dir string, id int) (string, string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return "", "", fmt.Errorf("cannot read directory %s: %w", dir, err)
	}

	var names []string
	for _, e := range entries {
		if !e.IsDir() {
			names = append(names, e.Name())
		}
	}

	file, warning, err := pick(names, id, dir)
	if err != nil {
		return "", "", err
	}
	return filepath.Join(dir, file), warning, nil
}

// resolveRemote finds files of a source in an HTML directory listing.
func resolveRemote(
	ctx context.Context,
	baseURL string,
	id int,
) (string, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, baseURL, nil)
	if err != nil {
		return "", "", err
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return "", "", fmt.Errorf("cannot get listing of %s: %w", baseURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", "", fmt.Errorf("cannot get listing of %s: status %d",
			baseURL, resp.StatusCode)
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", "", fmt.Errorf("cannot read listing of %s: %w", baseURL, err)
	}

	var names []string
	for _, m := range hrefRe.FindAllStringSubmatch(string(body), -1) {
		if strings.HasSuffix(m[1], "/") {
			continue
		}
		names = append(names, filepath.Base(m[1]))
	}

	file, warning, err := pick(names, id, baseURL)
	if err != nil {
		return "", "", err
	}
	return strings.TrimSuffix(baseURL, "/") + "/" + file, warning, nil
}

// pick selects the latest SFGA file with the given ID.
func pick(names []string, id int, location string) (string, string, error) {
	var matches []string
	for _, v := range names {
		if isSFGAFile(v) && sources.ParseFilename(v).ID == id {
			matches = append(matches, v)
		}
	}

	switch len(matches) {
	case 0:
		return "", "", fmt.Errorf("no files match ID %d (pattern %04d*) in %s",
			id, id, location)
	case 1:
		return matches[0], "", nil
	}

	res := selectLatest(matches)
	warning := fmt.Sprintf(
		"found %d files matching ID %d in %s, selected latest: %s",
		len(matches), id, location, res,
	)
	return res, warning, nil
}

// selectLatest returns the file with the latest release date. For the same
// date sqlite.zip wins over sql.zip, sqlite and sql.
func selectLatest(names []string) string {
	var res string
	var bestDate string
	bestPriority := -1
	for _, v := range names {
		date := sources.ParseFilename(v).ReleaseDate
		priority := typePriority(v)
		if date > bestDate || (date == bestDate && priority > bestPriority) {
			res, bestDate, bestPriority = v, date, priority
		}
	}
	return res
}

func typePriority(name string) int {
	switch {
	case strings.HasSuffix(name, ".sqlite.zip"):
		return 4
	case strings.HasSuffix(name, ".sql.zip"):
		return 3
	case strings.HasSuffix(name, ".sqlite"):
		return 2
	case strings.HasSuffix(name, ".sql"):
		return 1
	}
	return 0
}

func isSFGAFile(name string) bool {
	return typePriority(name) > 0
}
