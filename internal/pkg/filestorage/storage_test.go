package filestorage

import (
	"bytes"
	"context"
	"errors"
	"io"
	"regexp"
	"strings"
	"sync"
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateName(t *testing.T) {
	uuidExt := regexp.MustCompile(`^[0-9a-f-]{36}\.pdf$`)
	assert.Regexp(t, uuidExt, GenerateName("Lecture Notes.PDF"))
	assert.Regexp(t, regexp.MustCompile(`^[0-9a-f-]{36}$`), GenerateName("README"))
	assert.Regexp(t, regexp.MustCompile(`^[0-9a-f-]{36}$`), GenerateName("evil.p/hp"))
	assert.NotEqual(t, GenerateName("a.txt"), GenerateName("a.txt"))
}

func TestValidName(t *testing.T) {
	assert.True(t, ValidName("4f1c.txt"))
	for _, bad := range []string{"", ".", "..", "../etc/passwd", "a/b", `a\b`, ".hidden", "a\x00b"} {
		assert.False(t, ValidName(bad), bad)
	}
}

func TestLocalStorageRoundTrip(t *testing.T) {
	ls, err := NewLocalStorage(t.TempDir())
	require.NoError(t, err)
	ctx := context.Background()

	n, err := ls.Save(ctx, "abc.txt", strings.NewReader("0123456789"))
	require.NoError(t, err)
	assert.Equal(t, int64(10), n)

	_, err = ls.Save(ctx, "abc.txt", strings.NewReader("again"))
	assert.Error(t, err, "existing files are never overwritten")

	obj, err := ls.Open(ctx, "abc.txt")
	require.NoError(t, err)
	data, err := io.ReadAll(obj.Body)
	require.NoError(t, err)
	require.NoError(t, obj.Body.Close())
	assert.Equal(t, "0123456789", string(data))
	assert.Equal(t, int64(10), obj.Size)

	require.NoError(t, ls.Delete(ctx, "abc.txt"))
	require.NoError(t, ls.Delete(ctx, "abc.txt"))

	_, err = ls.Open(ctx, "abc.txt")
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = ls.Open(ctx, "../secret")
	assert.ErrorIs(t, err, ErrInvalidName)
}

func TestLocalStorageCancelledSave(t *testing.T) {
	ls, err := NewLocalStorage(t.TempDir())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err = ls.Save(ctx, "x.txt", strings.NewReader("data"))
	require.Error(t, err)

	_, err = ls.Open(context.Background(), "x.txt")
	assert.ErrorIs(t, err, ErrNotFound, "partial files are removed")
}

type fakeS3 struct {
	mu      sync.Mutex
	objects map[string][]byte
}

func (f *fakeS3) PutObject(_ context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	data, err := io.ReadAll(in.Body)
	if err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.objects[*in.Bucket+"/"+*in.Key] = data
	return &s3.PutObjectOutput{}, nil
}

func (f *fakeS3) GetObject(_ context.Context, in *s3.GetObjectInput, _ ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	data, ok := f.objects[*in.Bucket+"/"+*in.Key]
	if !ok {
		return nil, &types.NoSuchKey{}
	}
	size := int64(len(data))
	return &s3.GetObjectOutput{Body: io.NopCloser(bytes.NewReader(data)), ContentLength: &size}, nil
}

func (f *fakeS3) DeleteObject(_ context.Context, in *s3.DeleteObjectInput, _ ...func(*s3.Options)) (*s3.DeleteObjectOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.objects, *in.Bucket+"/"+*in.Key)
	return &s3.DeleteObjectOutput{}, nil
}

func TestS3StorageRoundTrip(t *testing.T) {
	fake := &fakeS3{objects: map[string][]byte{}}
	st := NewS3StorageWithClient(fake, "notes", "/uploads/")
	ctx := context.Background()

	n, err := st.Save(ctx, "k.txt", strings.NewReader("hello"))
	require.NoError(t, err)
	assert.Equal(t, int64(5), n)
	assert.Contains(t, fake.objects, "notes/uploads/k.txt")

	obj, err := st.Open(ctx, "k.txt")
	require.NoError(t, err)
	assert.Equal(t, int64(5), obj.Size)
	obj.Body.Close()

	require.NoError(t, st.Delete(ctx, "k.txt"))
	_, err = st.Open(ctx, "k.txt")
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = st.Save(ctx, "../k", strings.NewReader(""))
	assert.True(t, errors.Is(err, ErrInvalidName))
}
