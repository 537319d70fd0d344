// Package pathcache maps symbolic artifact names to concrete file paths,
// partitioned by file category, for one image's working directory.
package pathcache

import (
	"os"
	"path/filepath"
	"strings"

	"go.trai.ch/daopilot/internal/core/domain"
)

// Cache resolves symbolic names to paths. Paths stored in the cache are
// relative to the working directory, which is the directory of the input
// image; the legacy programs are started from there and all of their file
// prompts are answered with these relative paths.
type Cache struct {
	workDir   string
	imageBase string
	paths     map[domain.FileCategory]map[string]string
}

// New creates a cache for the given input image. The image is registered
// under both the reserved input name and the most-recent slot of the image
// category.
func New(inputImagePath string) *Cache {
	c := &Cache{
		workDir:   filepath.Dir(inputImagePath),
		imageBase: strings.TrimSuffix(filepath.Base(inputImagePath), filepath.Ext(inputImagePath)),
		paths:     make(map[domain.FileCategory]map[string]string),
	}
	for _, cat := range domain.Categories() {
		c.paths[cat] = make(map[string]string)
	}

	base := filepath.Base(inputImagePath)
	c.Register(domain.CategoryImage, domain.InputImageName, base)
	c.SetMostRecent(domain.CategoryImage, base)
	return c
}

// WorkDir returns the working directory all relative paths hang off.
func (c *Cache) WorkDir() string {
	return c.workDir
}

// Resolve maps a ref to a path. A name ref that is absent from its category's
// mapping falls back to the ref's own value, reduced to its base name so it
// stays relative to the working directory. Resolve never fails.
func (c *Cache) Resolve(cat domain.FileCategory, ref domain.FileRef) string {
	if !ref.IsLiteral() {
		if path, ok := c.paths[cat][ref.Value()]; ok {
			return path
		}
	}
	return filepath.Base(ref.Value())
}

// Register files the path under the given name. Empty names are a no-op.
func (c *Cache) Register(cat domain.FileCategory, name, path string) {
	if name == "" {
		return
	}
	c.paths[cat][name] = path
}

// SetMostRecent files the path under the reserved most-recent name.
func (c *Cache) SetMostRecent(cat domain.FileCategory, path string) {
	c.paths[cat][domain.MostRecentName] = path
}

// MostRecent returns the most recently produced path of the category,
// relative to the working directory.
func (c *Cache) MostRecent(cat domain.FileCategory) string {
	return c.paths[cat][domain.MostRecentName]
}

// Abs joins a working-directory-relative path with the working directory.
func (c *Cache) Abs(path string) string {
	if filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(c.workDir, path)
}

// OutputPath forms a destination path for a new artifact of the category. An
// explicit path wins (reduced to its filename); otherwise the filename is
// derived from the input image's base name, the optional symbolic name, and
// the category extension. Any pre-existing file at the destination is
// deleted so the legacy program never raises its interactive overwrite
// prompt.
func (c *Cache) OutputPath(cat domain.FileCategory, explicit domain.FileRef, name string) string {
	var path string
	if !explicit.IsZero() {
		path = filepath.Base(explicit.Value())
	} else {
		root := c.imageBase
		if name != "" {
			root = root + "_" + name
		}
		path = root + "." + cat.Ext()
	}

	full := c.Abs(path)
	if _, err := os.Stat(full); err == nil {
		_ = os.Remove(full)
	}

	return path
}
