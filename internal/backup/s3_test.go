package backup

import (
	"context"
	"errors"
	"io"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

type fakeS3 struct {
	in   *s3.PutObjectInput
	body []byte
	err  error
}

func (f *fakeS3) PutObject(_ context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	f.in = in
	body, err := io.ReadAll(in.Body)
	if err != nil {
		return nil, err
	}
	f.body = body
	return &s3.PutObjectOutput{}, f.err
}

func TestS3Destination_Write(t *testing.T) {
	fake := &fakeS3{}
	dest := &S3Destination{client: fake, bucket: "shop-backups", key: "shop/backup.jsonl"}

	if err := dest.Write(context.Background(), []byte(`{"type":"header"}`+"\n")); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if aws.ToString(fake.in.Bucket) != "shop-backups" || aws.ToString(fake.in.Key) != "shop/backup.jsonl" {
		t.Fatalf("unexpected target %s/%s", aws.ToString(fake.in.Bucket), aws.ToString(fake.in.Key))
	}
	if aws.ToString(fake.in.ContentType) != "application/x-ndjson" {
		t.Fatalf("unexpected content type %q", aws.ToString(fake.in.ContentType))
	}
	if string(fake.body) != `{"type":"header"}`+"\n" {
		t.Fatalf("unexpected body %q", fake.body)
	}
	if dest.Name() != "s3://shop-backups/shop/backup.jsonl" {
		t.Fatalf("unexpected name %q", dest.Name())
	}
}

func TestS3Destination_Error(t *testing.T) {
	dest := &S3Destination{client: &fakeS3{err: errors.New("access denied")}, bucket: "b", key: "k"}
	if err := dest.Write(context.Background(), []byte("{}")); err == nil {
		t.Fatal("expected an error")
	}
}

func TestS3Destination_Metadata(t *testing.T) {
	fake := &fakeS3{}
	dest := &S3Destination{client: fake, bucket: "b", key: "k"}
	data := []byte(`{"version":"1","type":"header","collections":["users"],"record_count":4}` + "\n")

	if err := dest.Write(context.Background(), data); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if got := fake.in.Metadata["record-count"]; got != "4" {
		t.Fatalf("record-count metadata = %q", got)
	}
	if got := fake.in.Metadata["format-version"]; got != "1" {
		t.Fatalf("format-version metadata = %q", got)
	}
}
