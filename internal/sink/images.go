package sink

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"mime"
	"os"
	"path/filepath"
	"sync"

	"github.com/RaphaelK12/blospray/pkg/session"
)

// Images stores every framebuffer update in one or more Stores. Keys are
// "<name>/<frame>-<sample><ext>", so later samples of the same frame sit
// next to each other and a store keeps the full progression.
type Images struct {
	session.NopSink

	name   string
	frame  int
	stores []Store
	logger *slog.Logger
	ctx    context.Context

	mu        sync.Mutex
	locations []string
}

// NewImages creates an image sink for one frame of a named scene.
func NewImages(name string, frame int, stores ...Store) *Images {
	return &Images{
		name:   name,
		frame:  frame,
		stores: stores,
		logger: slog.Default().With("component", "sink"),
		ctx:    context.Background(),
	}
}

// WithLogger sets the logger.
func (s *Images) WithLogger(l *slog.Logger) *Images {
	if l != nil {
		s.logger = l.With("component", "sink")
	}
	return s
}

// WithContext sets the context used for uploads.
func (s *Images) WithContext(ctx context.Context) *Images {
	s.ctx = ctx
	return s
}

// Key returns the store key for an image.
func (s *Images) Key(img session.FrameImage) string {
	return fmt.Sprintf("%s/%04d-%05d%s", s.name, s.frame, img.Sample, imageExt(img))
}

// Image copies the temporary image file into every store. All stores are
// tried; their errors are joined.
func (s *Images) Image(img session.FrameImage) error {
	key := s.Key(img)
	ctype := mime.TypeByExtension(imageExt(img))
	if ctype == "" {
		ctype = "application/octet-stream"
	}

	var errs []error
	for _, st := range s.stores {
		loc, err := s.put(st, key, ctype, img)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		s.logger.Debug("image stored", "location", loc, "sample", img.Sample, "bytes", img.Size)
		s.mu.Lock()
		s.locations = append(s.locations, loc)
		s.mu.Unlock()
	}
	return errors.Join(errs...)
}

func (s *Images) put(st Store, key, ctype string, img session.FrameImage) (string, error) {
	f, err := os.Open(img.Path)
	if err != nil {
		return "", err
	}
	defer f.Close()
	return st.Put(s.ctx, key, ctype, img.Size, f)
}

// Locations returns where images were stored, in delivery order.
func (s *Images) Locations() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.locations...)
}

// Latest returns the most recent location, or "".
func (s *Images) Latest() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.locations) == 0 {
		return ""
	}
	return s.locations[len(s.locations)-1]
}

func imageExt(img session.FrameImage) string {
	for _, p := range []string{img.FileName, img.Path} {
		if ext := filepath.Ext(p); ext != "" {
			return ext
		}
	}
	return ".exr"
}
