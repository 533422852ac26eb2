package redux

import (
	"errors"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeModule drives callbacks the way the native module does.
type fakeModule struct {
	desc         Desc
	pages        []uint32
	fill         byte
	status       int32
	skipComplete bool
	closed       atomic.Bool
}

func (m *fakeModule) Decompress(_ []byte, cb Callbacks) int32 {
	for level, size := range m.pages {
		buf := cb.Buffer(level, size, func() Desc { return m.desc })
		for i := range buf {
			buf[i] = m.fill + byte(level)
		}
	}

	if !m.skipComplete {
		cb.Complete()
	}

	return m.status
}

func (m *fakeModule) Close() error {
	m.closed.Store(true)
	return nil
}

func newFakeCodec(m *fakeModule) *Codec {
	return New(WithLoader(func() (Module, error) { return m, nil }))
}

func TestCodecDecodeMipChain(t *testing.T) {
	t.Parallel()

	m := &fakeModule{
		desc:  Desc{Width: 200, Height: 100, MipmapCount: 2, PixelFormat: 1},
		pages: []uint32{16384, 4096},
		fill:  0x10,
	}

	img, err := newFakeCodec(m).Decode([]byte{1, 2, 3})
	require.NoError(t, err)

	assert.Equal(t, uint32(256), img.Width)
	assert.Equal(t, uint32(128), img.Height)
	assert.Equal(t, uint8(2), img.MipmapCount)
	assert.Equal(t, uint32(5), img.PixelFormat)
	require.Len(t, img.Data, 20480)
	assert.Equal(t, byte(0x10), img.Data[0])
	assert.Equal(t, byte(0x10), img.Data[16383])
	assert.Equal(t, byte(0x11), img.Data[16384])
	assert.Equal(t, byte(0x11), img.Data[20479])
}

func TestCodecDecodeOverflowUsesStaging(t *testing.T) {
	t.Parallel()

	m := &fakeModule{
		desc:  Desc{Width: 4, Height: 4, MipmapCount: 1, PixelFormat: 1},
		pages: []uint32{8, 8, 16},
		fill:  0x20,
	}

	img, err := newFakeCodec(m).Decode([]byte{1})
	require.NoError(t, err)
	require.Len(t, img.Data, 8)
	for _, b := range img.Data {
		assert.Equal(t, byte(0x20), b)
	}
}

func TestCodecDecodeFailures(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name   string
		module *fakeModule
		want   error
	}{
		{
			name:   "nonzero status",
			module: &fakeModule{desc: Desc{Width: 4, Height: 4, PixelFormat: 1}, pages: []uint32{8}, status: 3},
			want:   ErrDecode,
		},
		{
			name:   "unknown format",
			module: &fakeModule{desc: Desc{Width: 4, Height: 4, PixelFormat: 99}, pages: []uint32{8}},
			want:   ErrEmptyOutput,
		},
		{
			name:   "no pages",
			module: &fakeModule{},
			want:   ErrEmptyOutput,
		},
		{
			name:   "no completion",
			module: &fakeModule{desc: Desc{Width: 4, Height: 4, PixelFormat: 1}, pages: []uint32{8}, skipComplete: true},
			want:   ErrDecode,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			_, err := newFakeCodec(tc.module).Decode([]byte{1})
			require.ErrorIs(t, err, tc.want)
		})
	}
}

func TestCodecDecodeEmptyInput(t *testing.T) {
	t.Parallel()

	_, err := newFakeCodec(&fakeModule{}).Decode(nil)
	require.ErrorIs(t, err, ErrEmptyInput)
}

func TestCodecLoadFailureIsPermanent(t *testing.T) {
	t.Parallel()

	var loads atomic.Int32
	loadErr := errors.New("boom")
	c := New(WithLoader(func() (Module, error) {
		loads.Add(1)
		return nil, loadErr
	}))

	var wg sync.WaitGroup
	for range 16 {
		wg.Go(func() {
			assert.False(t, c.Available())
		})
	}
	wg.Wait()

	_, err := c.Decode([]byte{1})
	require.ErrorIs(t, err, ErrUnavailable)
	require.ErrorIs(t, err, loadErr)
	assert.Equal(t, int32(1), loads.Load())
}

func TestCodecLoadsOnce(t *testing.T) {
	t.Parallel()

	var loads atomic.Int32
	m := &fakeModule{desc: Desc{Width: 4, Height: 4, PixelFormat: 1}, pages: []uint32{8}}
	c := New(WithLoader(func() (Module, error) {
		loads.Add(1)
		return m, nil
	}))

	for range 3 {
		_, err := c.Decode([]byte{1})
		require.NoError(t, err)
	}

	assert.Equal(t, int32(1), loads.Load())
}

func TestCodecNilLoaderResult(t *testing.T) {
	t.Parallel()

	c := New(WithLoader(func() (Module, error) { return nil, nil }))
	_, err := c.Decode([]byte{1})
	require.ErrorIs(t, err, ErrUnavailable)
}

func TestCodecClose(t *testing.T) {
	t.Parallel()

	m := &fakeModule{desc: Desc{Width: 4, Height: 4, PixelFormat: 1}, pages: []uint32{8}}
	c := newFakeCodec(m)
	require.True(t, c.Available())
	require.NoError(t, c.Close())
	assert.True(t, m.closed.Load())

	_, err := c.Decode([]byte{1})
	require.ErrorIs(t, err, ErrUnavailable)
	require.NoError(t, c.Close())
}

func TestNilCodec(t *testing.T) {
	t.Parallel()

	var c *Codec
	_, err := c.Decode([]byte{1})
	require.ErrorIs(t, err, ErrUnavailable)
}

func TestLoadNativeMissingLibrary(t *testing.T) {
	t.Parallel()

	_, err := LoadNative(filepath.Join(t.TempDir(), LibraryName()))
	require.Error(t, err)

	c := New(WithLibraryPath(filepath.Join(t.TempDir(), LibraryName())))
	assert.False(t, c.Available())
}
