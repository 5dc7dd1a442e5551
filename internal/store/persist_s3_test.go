package store

import (
	"bytes"
	"context"
	"errors"
	"io"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"
)

type fakeObjects struct {
	objects map[string][]byte
	puts    []*s3.PutObjectInput
}

func (f *fakeObjects) GetObject(_ context.Context, in *s3.GetObjectInput, _ ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	data, ok := f.objects[aws.ToString(in.Bucket)+"/"+aws.ToString(in.Key)]
	if !ok {
		return nil, &s3types.NoSuchKey{}
	}
	return &s3.GetObjectOutput{Body: io.NopCloser(bytes.NewReader(data))}, nil
}

func (f *fakeObjects) PutObject(_ context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	data, err := io.ReadAll(in.Body)
	if err != nil {
		return nil, err
	}
	f.objects[aws.ToString(in.Bucket)+"/"+aws.ToString(in.Key)] = data
	f.puts = append(f.puts, in)
	return &s3.PutObjectOutput{}, nil
}

func TestS3PersisterRoundTrip(t *testing.T) {
	objs := &fakeObjects{objects: map[string][]byte{}}
	p := &S3Persister{Client: objs, Bucket: "console", Key: "/team/state.json/"}
	ctx := context.Background()

	if _, err := p.Load(ctx); !errors.Is(err, ErrNoSnapshot) {
		t.Fatalf("Load on missing object = %v, want ErrNoSnapshot", err)
	}

	snap := Snapshot{Version: SnapshotVersion, Auth: AuthSnapshot{Token: "tok", IsAuthenticated: true}}
	if err := p.Save(ctx, snap); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if _, ok := objs.objects["console/team/state.json"]; !ok {
		t.Fatalf("objects = %v", objs.objects)
	}
	if objs.puts[0].ServerSideEncryption != s3types.ServerSideEncryptionAes256 {
		t.Fatalf("encryption = %q", objs.puts[0].ServerSideEncryption)
	}

	got, err := p.Load(ctx)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got.Auth.Token != "tok" || !got.Auth.IsAuthenticated {
		t.Fatalf("snapshot = %+v", got)
	}
}

func TestS3PersisterUsesKMSKey(t *testing.T) {
	objs := &fakeObjects{objects: map[string][]byte{}}
	p := &S3Persister{Client: objs, Bucket: "console", KMSKeyID: "alias/console"}
	if err := p.Save(context.Background(), Snapshot{Version: SnapshotVersion}); err != nil {
		t.Fatalf("Save: %v", err)
	}
	in := objs.puts[0]
	if in.ServerSideEncryption != s3types.ServerSideEncryptionAwsKms || aws.ToString(in.SSEKMSKeyId) != "alias/console" {
		t.Fatalf("put = %+v", in)
	}
	if aws.ToString(in.Key) != SnapshotKey+".json" {
		t.Fatalf("default key = %q", aws.ToString(in.Key))
	}
}
