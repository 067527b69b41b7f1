package sourcefile

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/Azhovan/strata"
	"github.com/Azhovan/strata/format"
)

// Reader implements strata.ResourceReader over a file tree.
type Reader struct {
	fsys fs.FS
	root string // OS directory backing fsys; empty for FS readers
}

// Dir creates a reader rooted at an OS directory. Resources read through
// it can be watched.
func Dir(root string) *Reader {
	return &Reader{fsys: os.DirFS(root), root: root}
}

// FS creates a reader over fsys (embed.FS, fstest.MapFS, ...).
func FS(fsys fs.FS) *Reader {
	return &Reader{fsys: fsys}
}

// ReadResource returns the first file named name+ext for a supported
// extension. A missing resource returns ok=false.
func (r *Reader) ReadResource(ctx context.Context, name string) (strata.Resource, bool, error) {
	for _, ext := range format.Extensions {
		if err := ctx.Err(); err != nil {
			return strata.Resource{}, false, err
		}

		file := name + ext
		if !fs.ValidPath(file) {
			return strata.Resource{}, false, fmt.Errorf("invalid resource name %q", name)
		}

		data, err := fs.ReadFile(r.fsys, file)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return strata.Resource{}, false, fmt.Errorf("read %s: %w", r.display(file), err)
		}

		return strata.Resource{
			Name:   name,
			Path:   r.display(file),
			Format: format.FromPath(file),
			Data:   data,
		}, true, nil
	}

	return strata.Resource{}, false, nil
}

func (r *Reader) display(file string) string {
	if r.root == "" {
		return file
	}
	return filepath.Join(r.root, filepath.FromSlash(file))
}

// Watch reports changes to configuration files anywhere under the root
// directory. Readers created with FS return strata.ErrWatchNotSupported.
//
// Directories are watched rather than files so that atomic writes
// (temp file + rename) and recreated files are seen.
func (r *Reader) Watch(ctx context.Context) (<-chan strata.ChangeEvent, error) {
	if r.root == "" {
		return nil, strata.ErrWatchNotSupported
	}

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create fsnotify watcher: %w", err)
	}

	err = filepath.WalkDir(r.root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return w.Add(p)
		}
		return nil
	})
	if err != nil {
		w.Close()
		return nil, fmt.Errorf("failed to watch directory %q: %w", r.root, err)
	}

	ch := make(chan strata.ChangeEvent)
	go func() {
		defer close(ch)
		defer w.Close()

		for {
			select {
			case <-ctx.Done():
				return

			case event, ok := <-w.Events:
				if !ok {
					return
				}
				if event.Has(fsnotify.Create) {
					if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
						_ = w.Add(event.Name)
						continue
					}
				}
				if !isConfigFile(event.Name) {
					continue
				}
				if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) &&
					!event.Has(fsnotify.Rename) && !event.Has(fsnotify.Remove) {
					continue
				}
				select {
				case ch <- strata.ChangeEvent{At: time.Now(), Cause: "file-changed:" + event.Name}:
				case <-ctx.Done():
					return
				}

			case _, ok := <-w.Errors:
				if !ok {
					return
				}
			}
		}
	}()

	return ch, nil
}

func isConfigFile(name string) bool {
	ext := strings.ToLower(path.Ext(filepath.ToSlash(name)))
	for _, e := range format.Extensions {
		if ext == e {
			return true
		}
	}
	return false
}
