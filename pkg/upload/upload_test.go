package upload

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/s3"
)

type fakePutter struct {
	input *s3.PutObjectInput
	body  string
	err   error
}

func (f *fakePutter) PutObject(_ context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	f.input = in
	b, _ := io.ReadAll(in.Body)
	f.body = string(b)
	return &s3.PutObjectOutput{}, f.err
}

func TestNilUploaderIsDisabled(t *testing.T) {
	var u *Uploader
	if _, err := u.Upload(context.Background(), "a.jpg", "image/jpeg", strings.NewReader("x")); !errors.Is(err, ErrDisabled) {
		t.Errorf("err = %v", err)
	}
}

func TestNewWithoutBucket(t *testing.T) {
	u, err := New(context.Background(), Config{})
	if u != nil || err != nil {
		t.Errorf("New without bucket = %v, %v", u, err)
	}
}

func TestUpload(t *testing.T) {
	p := &fakePutter{}
	u := newUploader(p, "docs", "https://cdn.example/")
	u.now = func() time.Time { return time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC) }

	url, err := u.Upload(context.Background(), `C:\scans\Aadhaar.PDF`, "application/pdf", strings.NewReader("pdf-bytes"))
	if err != nil {
		t.Fatalf("Upload: %v", err)
	}

	key := *p.input.Key
	if !strings.HasPrefix(key, "clients/2024/03/") || !strings.HasSuffix(key, ".pdf") {
		t.Errorf("key = %s", key)
	}
	if url != "https://cdn.example/"+key {
		t.Errorf("url = %s", url)
	}
	if *p.input.Bucket != "docs" || *p.input.ContentType != "application/pdf" || p.body != "pdf-bytes" {
		t.Errorf("input = %+v body %q", p.input, p.body)
	}
}

func TestUploadError(t *testing.T) {
	u := newUploader(&fakePutter{err: errors.New("denied")}, "docs", "")
	if _, err := u.Upload(context.Background(), "a.jpg", "", strings.NewReader("x")); err == nil {
		t.Fatal("expected error")
	}
	if got := u.URL("k"); got != "s3://docs/k" {
		t.Errorf("URL = %s", got)
	}
}
