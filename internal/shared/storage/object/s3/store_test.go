package s3

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"

	"linkedin-optimizer/internal/shared/storage/object"
)

type fakeS3 struct {
	objects map[string][]byte
	puts    []*s3.PutObjectInput
	putErr  error
}

func newFake() *fakeS3 { return &fakeS3{objects: map[string][]byte{}} }

func (f *fakeS3) PutObject(_ context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	if f.putErr != nil {
		return nil, f.putErr
	}
	data, err := io.ReadAll(in.Body)
	if err != nil {
		return nil, err
	}
	f.objects[aws.ToString(in.Key)] = data
	f.puts = append(f.puts, in)
	return &s3.PutObjectOutput{}, nil
}

func (f *fakeS3) GetObject(_ context.Context, in *s3.GetObjectInput, _ ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	data, ok := f.objects[aws.ToString(in.Key)]
	if !ok {
		return nil, &s3types.NoSuchKey{}
	}
	return &s3.GetObjectOutput{Body: io.NopCloser(bytes.NewReader(data))}, nil
}

func (f *fakeS3) DeleteObject(_ context.Context, in *s3.DeleteObjectInput, _ ...func(*s3.Options)) (*s3.DeleteObjectOutput, error) {
	delete(f.objects, aws.ToString(in.Key))
	return &s3.DeleteObjectOutput{}, nil
}

func TestKeyPrefixing(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		prefix string
		key    string
		want   string
	}{
		{name: "no prefix", prefix: "", key: "uploads/ab/file.pdf", want: "uploads/ab/file.pdf"},
		{name: "simple prefix", prefix: "optimizer", key: "uploads/ab/file.pdf", want: "optimizer/uploads/ab/file.pdf"},
		{name: "prefix and key slashes", prefix: "/optimizer/", key: "/uploads/ab/file.pdf", want: "optimizer/uploads/ab/file.pdf"},
		{name: "empty key", prefix: "optimizer", key: "", want: "optimizer"},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			s := newStore(newFake(), Options{Bucket: "b", Prefix: tt.prefix})
			if got := s.key(tt.key); got != tt.want {
				t.Fatalf("key(%q) with prefix %q = %q, want %q", tt.key, tt.prefix, got, tt.want)
			}
		})
	}
}

func TestSaveOpenDelete(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	fake := newFake()
	store := newStore(fake, Options{Bucket: "profiles", Prefix: "optimizer"})

	payload := []byte("%PDF-1.4\nprofile body")
	obj, err := store.Save(ctx, "opt-abcdef", "profile.pdf", bytes.NewReader(payload))
	if err != nil {
		t.Fatalf("save: %v", err)
	}
	if obj.Size != int64(len(payload)) || obj.MimeType != "application/pdf" {
		t.Fatalf("unexpected object %+v", obj)
	}
	if _, ok := fake.objects["optimizer/"+obj.Key]; !ok {
		t.Fatalf("object not stored under prefix, have %v", fake.objects)
	}
	if got := fake.puts[0].ServerSideEncryption; got != s3types.ServerSideEncryptionAes256 {
		t.Fatalf("expected AES256 by default, got %s", got)
	}

	rc, err := store.Open(ctx, obj.Key)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	got, _ := io.ReadAll(rc)
	rc.Close()
	if !bytes.Equal(got, payload) {
		t.Fatal("round trip mismatch")
	}

	if err := store.Delete(ctx, obj.Key); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := store.Open(ctx, obj.Key); !errors.Is(err, object.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestKMSEncryption(t *testing.T) {
	t.Parallel()
	fake := newFake()
	store := newStore(fake, Options{Bucket: "profiles", KMSKeyID: " kms-123 "})

	if _, err := store.SaveWithKey(context.Background(), "uploads/x.txt", object.TextContentType, strings.NewReader("text")); err != nil {
		t.Fatalf("save: %v", err)
	}
	in := fake.puts[0]
	if in.ServerSideEncryption != s3types.ServerSideEncryptionAwsKms || aws.ToString(in.SSEKMSKeyId) != "kms-123" {
		t.Fatalf("expected KMS encryption, got %+v", in)
	}
}

func TestPutErrorIncludesLocation(t *testing.T) {
	t.Parallel()
	fake := newFake()
	fake.putErr = errors.New("access denied")
	store := newStore(fake, Options{Bucket: "profiles"})

	_, err := store.SaveWithKey(context.Background(), "uploads/x.pdf", "application/pdf", strings.NewReader("x"))
	if err == nil || !strings.Contains(err.Error(), "s3://profiles/uploads/x.pdf") {
		t.Fatalf("expected located error, got %v", err)
	}
}

func TestNewRequiresBucket(t *testing.T) {
	t.Parallel()
	if _, err := New(context.Background(), Options{Region: "us-east-1"}); err == nil {
		t.Fatal("expected missing bucket error")
	}
}
