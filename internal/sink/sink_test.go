package sink

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/RaphaelK12/blospray/pkg/session"
)

type fakeS3 struct {
	inputs [][]byte
	keys   []string
	types  []string
	err    error
}

func (f *fakeS3) PutObject(_ context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	if f.err != nil {
		return nil, f.err
	}
	b, err := io.ReadAll(in.Body)
	if err != nil {
		return nil, err
	}
	f.inputs = append(f.inputs, b)
	f.keys = append(f.keys, aws.ToString(in.Key))
	f.types = append(f.types, aws.ToString(in.ContentType))
	return &s3.PutObjectOutput{}, nil
}

func writeImage(t *testing.T, content string) session.FrameImage {
	t.Helper()
	path := filepath.Join(t.TempDir(), "frame.exr")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return session.FrameImage{
		Path:     path,
		FileName: "/tmp/framebuffer.exr",
		Size:     int64(len(content)),
		Width:    64,
		Height:   48,
		Sample:   3,
	}
}

func TestDiskStorePut(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "out")
	store, err := NewDiskStore(dir)
	require.NoError(t, err)

	loc, err := store.Put(context.Background(), "shot/0001-00003.exr", "", 5, strings.NewReader("hello"))
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "shot", "0001-00003.exr"), loc)

	data, err := os.ReadFile(loc)
	require.NoError(t, err)
	assert.Equal(t, "hello", string(data))

	entries, err := os.ReadDir(filepath.Join(dir, "shot"))
	require.NoError(t, err)
	assert.Len(t, entries, 1, "no partial files left behind")
}

func TestDiskStoreMaxSize(t *testing.T) {
	store, err := NewDiskStore(t.TempDir())
	require.NoError(t, err)
	store.WithMaxSize(4)

	_, err = store.Put(context.Background(), "a.exr", "", 5, strings.NewReader("hello"))
	assert.ErrorIs(t, err, ErrTooLarge)

	// A lying size is caught while copying.
	_, err = store.Put(context.Background(), "b.exr", "", 2, strings.NewReader("hello"))
	assert.ErrorIs(t, err, ErrTooLarge)
	_, statErr := os.Stat(filepath.Join(store.Dir(), "b.exr"))
	assert.True(t, os.IsNotExist(statErr))
}

func TestS3StorePut(t *testing.T) {
	api := &fakeS3{}
	store := NewS3Store(api, "frames", "shot010/")

	loc, err := store.Put(context.Background(), "a/0001-00004.exr", "image/x-exr", 3, strings.NewReader("exr"))
	require.NoError(t, err)
	assert.Equal(t, "s3://frames/shot010/a/0001-00004.exr", loc)
	assert.Equal(t, []string{"shot010/a/0001-00004.exr"}, api.keys)
	assert.Equal(t, []string{"image/x-exr"}, api.types)
	assert.Equal(t, "exr", string(api.inputs[0]))
}

func TestS3StoreError(t *testing.T) {
	boom := errors.New("access denied")
	store := NewS3Store(&fakeS3{err: boom}, "frames", "")

	_, err := store.Put(context.Background(), "x.exr", "", 1, strings.NewReader("x"))
	assert.ErrorIs(t, err, boom)
	assert.Contains(t, err.Error(), "x.exr")
}

func TestEnvCredentials(t *testing.T) {
	t.Setenv("AWS_ACCESS_KEY_ID", "")
	t.Setenv("AWS_SECRET_ACCESS_KEY", "")
	_, err := envCredentials{}.Retrieve(context.Background())
	assert.Error(t, err)

	t.Setenv("AWS_ACCESS_KEY_ID", "AKID")
	t.Setenv("AWS_SECRET_ACCESS_KEY", "secret")
	c, err := envCredentials{}.Retrieve(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "AKID", c.AccessKeyID)
}

func TestNewS3Client(t *testing.T) {
	c := NewS3Client(S3Options{Region: "eu-west-1", Endpoint: "http://localhost:9000", PathStyle: true})
	o := c.Options()
	assert.Equal(t, "eu-west-1", o.Region)
	assert.True(t, o.UsePathStyle)
	assert.Equal(t, "http://localhost:9000", aws.ToString(o.BaseEndpoint))
}

func TestImagesStoresEverywhere(t *testing.T) {
	disk, err := NewDiskStore(t.TempDir())
	require.NoError(t, err)
	api := &fakeS3{}

	images := NewImages("slices", 12, disk, NewS3Store(api, "frames", ""))
	img := writeImage(t, "pixels")

	require.NoError(t, images.Image(img))
	assert.Equal(t, "slices/0012-00003.exr", images.Key(img))

	locs := images.Locations()
	require.Len(t, locs, 2)
	assert.Equal(t, "s3://frames/slices/0012-00003.exr", images.Latest())

	data, err := os.ReadFile(locs[0])
	require.NoError(t, err)
	assert.Equal(t, "pixels", string(data))
	assert.Equal(t, "pixels", string(api.inputs[0]))
}

func TestImagesContinuesAfterStoreError(t *testing.T) {
	disk, err := NewDiskStore(t.TempDir())
	require.NoError(t, err)
	boom := errors.New("bucket gone")

	images := NewImages("s", 1, NewS3Store(&fakeS3{err: boom}, "b", ""), disk)
	err = images.Image(writeImage(t, "px"))

	assert.ErrorIs(t, err, boom)
	assert.Len(t, images.Locations(), 1, "disk store still received the image")
}

func TestImagesExtension(t *testing.T) {
	images := NewImages("s", 1)
	tests := []struct {
		img  session.FrameImage
		want string
	}{
		{session.FrameImage{FileName: "fb.png", Path: "/tmp/x.exr"}, ".png"},
		{session.FrameImage{Path: "/tmp/x.exr"}, ".exr"},
		{session.FrameImage{Path: "/tmp/x"}, ".exr"},
	}
	for _, tt := range tests {
		assert.True(t, strings.HasSuffix(images.Key(tt.img), tt.want), images.Key(tt.img))
	}
}

func TestConsole(t *testing.T) {
	var buf bytes.Buffer
	c := NewConsole(&buf)

	c.Stats(session.Stats{Sample: 2, Samples: 8, Width: 64, Height: 48})
	c.Stats(session.Stats{Sample: 4, Samples: 8, Width: 64, Height: 48, Variance: 0.5, MemoryUsage: 10, PeakMemoryUsage: 12})
	c.Finish()

	out := buf.String()
	assert.Contains(t, out, "\rsample 2/8 ( 25%)  64x48")
	assert.Contains(t, out, "\rsample 4/8 ( 50%)")
	assert.Contains(t, out, "variance 0.5000")
	assert.Contains(t, out, "mem 10 MiB (peak 12)")
	assert.True(t, strings.HasSuffix(out, "\n"))
}

func TestLine(t *testing.T) {
	line := Line(session.Stats{Sample: 1, Samples: 4, Width: 640, Height: 480, ReductionFactor: 4})
	assert.Equal(t, "sample 1/4 ( 25%)  640x480 /4", line)
}

type countingSink struct {
	session.NopSink
	progress int
	stats    int
	images   int
	cancel   bool
	err      error
}

func (c *countingSink) Progress(float64)    { c.progress++ }
func (c *countingSink) Stats(session.Stats) { c.stats++ }
func (c *countingSink) ShouldCancel() bool  { return c.cancel }
func (c *countingSink) Image(session.FrameImage) error {
	c.images++
	return c.err
}

func TestMulti(t *testing.T) {
	a := &countingSink{}
	b := &countingSink{err: errors.New("b failed")}
	m := Multi(a, b)

	m.Progress(0.5)
	m.Stats(session.Stats{})
	err := m.Image(session.FrameImage{})

	assert.Equal(t, 1, a.progress)
	assert.Equal(t, 1, b.stats)
	assert.Equal(t, 1, a.images)
	assert.EqualError(t, err, "b failed")
	assert.False(t, m.ShouldCancel())

	b.cancel = true
	assert.True(t, m.ShouldCancel())
}

func TestCancel(t *testing.T) {
	var c Cancel
	assert.False(t, c.ShouldCancel())
	c.Request()
	assert.True(t, Multi(session.NopSink{}, &c).ShouldCancel())
}
