package metadata

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
)

// Artwork holds the cached image file names, relative to the poster directory.
type Artwork struct {
	Poster   string
	Backdrop string
}

// FetchArtwork downloads the poster and backdrop of record into dir as
// <hash>_poster.jpg and <hash>_backdrop.jpg. Existing files are reused unless
// force is set. A failed download leaves that field empty and is reported in
// the joined error.
func (c *Client) FetchArtwork(ctx context.Context, record *Record, hash, dir string, force bool) (Artwork, error) {
	var art Artwork
	if record == nil {
		return art, nil
	}
	var errs []error
	if record.PosterPath != "" {
		name := hash + "_poster.jpg"
		if err := c.download(ctx, c.imageURL(posterSize, record.PosterPath), filepath.Join(dir, name), force); err != nil {
			errs = append(errs, err)
		} else {
			art.Poster = name
		}
	}
	if record.BackdropPath != "" {
		name := hash + "_backdrop.jpg"
		if err := c.download(ctx, c.imageURL(backdropSize, record.BackdropPath), filepath.Join(dir, name), force); err != nil {
			errs = append(errs, err)
		} else {
			art.Backdrop = name
		}
	}
	return art, errors.Join(errs...)
}

func (c *Client) download(ctx context.Context, url, dest string, force bool) error {
	if !force {
		if _, err := os.Stat(dest); err == nil {
			return nil
		}
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("build image request: %w", err)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("download %s: %w", url, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("download %s: status %d", url, resp.StatusCode)
	}

	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return fmt.Errorf("create image directory: %w", err)
	}
	tmp := dest + ".part"
	out, err := os.Create(tmp)
	if err != nil {
		return fmt.Errorf("create image file: %w", err)
	}
	if _, err := io.Copy(out, resp.Body); err != nil {
		_ = out.Close()
		_ = os.Remove(tmp)
		return fmt.Errorf("write image: %w", err)
	}
	if err := out.Close(); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("close image: %w", err)
	}
	return os.Rename(tmp, dest)
}

// RemoveArtwork deletes cached images. Missing files are ignored.
func RemoveArtwork(dir string, names ...string) error {
	var errs []error
	for _, name := range names {
		if name == "" {
			continue
		}
		if err := os.Remove(filepath.Join(dir, filepath.Base(name))); err != nil && !errors.Is(err, os.ErrNotExist) {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
