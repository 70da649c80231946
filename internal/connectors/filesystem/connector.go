package filesystem

import (
	"archive/zip"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"

	"github.com/custodia-labs/aecg-cli/internal/core/domain"
	"github.com/custodia-labs/aecg-cli/internal/core/ports/driven"
	"github.com/custodia-labs/aecg-cli/internal/logger"
)

// Ensure Connector implements the interface.
var _ driven.Connector = (*Connector)(nil)

// ConnectorType is the type identifier of the filesystem connector.
const ConnectorType = "filesystem"

// maxDocumentSize bounds a single XML read. Holter recordings reach tens of
// megabytes; anything larger is not an aECG file.
const maxDocumentSize = 512 << 20

// Connector discovers aECG files in a directory tree. Plain .xml files and
// .xml members of .zip archives are both discovered.
type Connector struct {
	rootPath string

	mu      sync.Mutex
	closed  bool
	watcher *fsnotify.Watcher
}

// New creates a filesystem connector rooted at rootPath.
func New(rootPath string) *Connector {
	return &Connector{rootPath: rootPath}
}

// Type returns the connector type identifier.
func (c *Connector) Type() string {
	return ConnectorType
}

// Root returns the study directory.
func (c *Connector) Root() string {
	return c.rootPath
}

// Capabilities returns what this connector supports.
func (c *Connector) Capabilities() driven.ConnectorCapabilities {
	return driven.ConnectorCapabilities{
		SupportsWatch:      true,
		SupportsArchives:   true,
		SupportsValidation: true,
	}
}

// Validate checks that the root path exists and is a directory.
func (c *Connector) Validate(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return c.checkRoot()
}

func (c *Connector) checkRoot() error {
	info, err := os.Stat(c.rootPath)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("study directory %s does not exist: %w", c.rootPath, domain.ErrNotFound)
		}
		return fmt.Errorf("study directory %s: %w", c.rootPath, err)
	}
	if !info.IsDir() {
		return fmt.Errorf("study directory %s is not a directory: %w", c.rootPath, domain.ErrInvalidInput)
	}
	return nil
}

// List walks the root and returns every XML document sorted by
// (ZipPath, XMLPath). Hidden files and directories are skipped. An archive
// that cannot be opened is listed with an empty XMLPath so that reading it
// reports the failure.
func (c *Connector) List(ctx context.Context) ([]domain.Origin, error) {
	if err := c.checkRoot(); err != nil {
		return nil, err
	}

	var origins []domain.Origin
	err := filepath.WalkDir(c.rootPath, func(path string, d fs.DirEntry, err error) error {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		if err != nil {
			logger.Warn("Skipping %s: %v", path, err)
			if d != nil && d.IsDir() {
				return fs.SkipDir
			}
			return nil
		}
		if path != c.rootPath && isHidden(d.Name()) {
			if d.IsDir() {
				return fs.SkipDir
			}
			return nil
		}
		if d.IsDir() || !d.Type().IsRegular() {
			return nil
		}

		switch {
		case domain.IsXMLName(path):
			origins = append(origins, domain.Origin{StudyDir: c.rootPath, XMLPath: path})
		case isZipName(path):
			members, err := zipMembers(path)
			if err != nil {
				logger.Warn("Cannot read archive %s: %v", path, err)
				origins = append(origins, domain.Origin{StudyDir: c.rootPath, ZipPath: path})
				return nil
			}
			for _, m := range members {
				origins = append(origins, domain.Origin{StudyDir: c.rootPath, XMLPath: m, ZipPath: path})
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.Slice(origins, func(i, j int) bool {
		return origins[i].Less(origins[j])
	})
	return origins, nil
}

// FullSync streams every document in List order with its sequence number.
// Read failures are carried on the document. Discovery failures are sent on
// the error channel, which is buffered and closed after the document channel.
func (c *Connector) FullSync(ctx context.Context) (<-chan domain.RawDocument, <-chan error) {
	docs := make(chan domain.RawDocument, 16)
	errs := make(chan error, 1)

	go func() {
		defer close(errs)
		defer close(docs)

		origins, err := c.List(ctx)
		if err != nil {
			errs <- err
			return
		}

		r := &archiveReader{}
		defer r.close()

		for seq, origin := range origins {
			raw := domain.RawDocument{Origin: origin, Seq: seq}
			raw.Content, raw.Err = r.read(origin)

			select {
			case docs <- raw:
			case <-ctx.Done():
				return
			}
		}
	}()

	return docs, errs
}

// Open reads a single document.
func (c *Connector) Open(ctx context.Context, origin domain.Origin) (*domain.RawDocument, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r := &archiveReader{}
	defer r.close()

	content, err := r.read(origin)
	if err != nil {
		return nil, err
	}
	return &domain.RawDocument{Origin: origin, Content: content}, nil
}

// Watch emits a change for every created, modified or removed .xml or .zip
// file under the root. New directories are watched as they appear.
func (c *Connector) Watch(ctx context.Context) (<-chan domain.RawDocumentChange, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return nil, fmt.Errorf("connector closed")
	}
	if err := c.checkRoot(); err != nil {
		return nil, fmt.Errorf("root path error: %w", err)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create watcher: %w", err)
	}
	if err := addWatchTree(watcher, c.rootPath); err != nil {
		watcher.Close()
		return nil, err
	}
	c.watcher = watcher

	changes := make(chan domain.RawDocumentChange)
	go func() {
		defer close(changes)
		for {
			select {
			case <-ctx.Done():
				return
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if event.Has(fsnotify.Create) {
					if info, err := os.Stat(event.Name); err == nil && info.IsDir() && !isHidden(filepath.Base(event.Name)) {
						if err := addWatchTree(watcher, event.Name); err != nil {
							logger.Warn("Cannot watch %s: %v", event.Name, err)
						}
						continue
					}
				}
				change := c.handleFsEvent(event)
				if change == nil {
					continue
				}
				select {
				case changes <- *change:
				case <-ctx.Done():
					return
				}
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				logger.Warn("Watch error under %s: %v", c.rootPath, err)
			}
		}
	}()

	return changes, nil
}

// handleFsEvent maps an fsnotify event to a change. Events for directories,
// hidden files and files that are neither XML nor zip are dropped.
func (c *Connector) handleFsEvent(event fsnotify.Event) *domain.RawDocumentChange {
	name := filepath.Base(event.Name)
	if isHidden(name) {
		return nil
	}
	var origin domain.Origin
	switch {
	case domain.IsXMLName(name):
		origin = domain.Origin{StudyDir: c.rootPath, XMLPath: event.Name}
	case isZipName(name):
		origin = domain.Origin{StudyDir: c.rootPath, ZipPath: event.Name}
	default:
		return nil
	}

	switch {
	case event.Has(fsnotify.Remove), event.Has(fsnotify.Rename):
		return &domain.RawDocumentChange{Type: domain.ChangeDeleted, Origin: origin}
	case event.Has(fsnotify.Create), event.Has(fsnotify.Write):
		info, err := os.Stat(event.Name)
		if err != nil || info.IsDir() {
			return nil
		}
		changeType := domain.ChangeUpdated
		if event.Has(fsnotify.Create) {
			changeType = domain.ChangeCreated
		}
		return &domain.RawDocumentChange{Type: changeType, Origin: origin}
	default:
		return nil
	}
}

// Close stops any active watch. It is safe to call more than once.
func (c *Connector) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil
	}
	c.closed = true
	if c.watcher != nil {
		err := c.watcher.Close()
		c.watcher = nil
		return err
	}
	return nil
}

func addWatchTree(watcher *fsnotify.Watcher, root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if !d.IsDir() {
			return nil
		}
		if path != root && isHidden(d.Name()) {
			return fs.SkipDir
		}
		if err := watcher.Add(path); err != nil {
			return fmt.Errorf("watch %s: %w", path, err)
		}
		return nil
	})
}

// isHidden reports whether any element of path starts with a dot.
// "." and ".." are not hidden.
func isHidden(path string) bool {
	for _, part := range strings.Split(filepath.ToSlash(path), "/") {
		if part == "" || part == "." || part == ".." {
			continue
		}
		if strings.HasPrefix(part, ".") {
			return true
		}
	}
	return false
}

func isZipName(name string) bool {
	return strings.HasSuffix(strings.ToLower(name), ".zip")
}

// zipMembers returns the XML member names of an archive in archive order.
func zipMembers(path string) ([]string, error) {
	zr, err := zip.OpenReader(path)
	if err != nil {
		return nil, err
	}
	defer zr.Close()

	var names []string
	for _, f := range zr.File {
		if f.FileInfo().IsDir() || !domain.IsXMLName(f.Name) || isHidden(f.Name) {
			continue
		}
		names = append(names, f.Name)
	}
	return names, nil
}

// archiveReader reads documents and keeps the last opened archive open,
// so members of one archive are read without reopening it.
type archiveReader struct {
	path string
	zr   *zip.ReadCloser
}

func (r *archiveReader) read(origin domain.Origin) ([]byte, error) {
	if !origin.InZip() {
		return readLimited(origin.XMLPath)
	}
	if origin.XMLPath == "" {
		zr, err := zip.OpenReader(origin.ZipPath)
		if err == nil {
			zr.Close()
			err = fmt.Errorf("no xml member: %w", domain.ErrInvalidInput)
		}
		return nil, fmt.Errorf("open archive %s: %w", origin.ZipPath, err)
	}

	if r.path != origin.ZipPath {
		r.close()
		zr, err := zip.OpenReader(origin.ZipPath)
		if err != nil {
			return nil, fmt.Errorf("open archive %s: %w", origin.ZipPath, err)
		}
		r.path, r.zr = origin.ZipPath, zr
	}

	for _, f := range r.zr.File {
		if f.Name != origin.XMLPath {
			continue
		}
		if f.UncompressedSize64 > maxDocumentSize {
			return nil, fmt.Errorf("%s is %d bytes: %w", origin.Location(), f.UncompressedSize64, domain.ErrInvalidInput)
		}
		rc, err := f.Open()
		if err != nil {
			return nil, fmt.Errorf("open %s: %w", origin.Location(), err)
		}
		defer rc.Close()
		content, err := io.ReadAll(io.LimitReader(rc, maxDocumentSize))
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", origin.Location(), err)
		}
		return content, nil
	}
	return nil, fmt.Errorf("%s: %w", origin.Location(), domain.ErrNotFound)
}

func (r *archiveReader) close() {
	if r.zr != nil {
		r.zr.Close()
		r.zr = nil
		r.path = ""
	}
}

func readLimited(path string) ([]byte, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	if info.IsDir() {
		return nil, fmt.Errorf("read %s: is a directory: %w", path, domain.ErrInvalidInput)
	}
	if info.Size() > maxDocumentSize {
		return nil, fmt.Errorf("%s is %d bytes: %w", path, info.Size(), domain.ErrInvalidInput)
	}
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return content, nil
}
