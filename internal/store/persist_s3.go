package store

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"
)

// ObjectAPI is the subset of *s3.Client the snapshot persister uses.
type ObjectAPI interface {
	GetObject(ctx context.Context, in *s3.GetObjectInput, opts ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	PutObject(ctx context.Context, in *s3.PutObjectInput, opts ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// S3Persister keeps the snapshot as a single encrypted object.
type S3Persister struct {
	Client   ObjectAPI
	Bucket   string
	Key      string
	KMSKeyID string
}

// NewS3Persister loads the default AWS credential chain.
func NewS3Persister(ctx context.Context, region, bucket, key, kmsKeyID string) (*S3Persister, error) {
	if strings.TrimSpace(bucket) == "" {
		return nil, fmt.Errorf("s3 bucket is required")
	}
	var opts []func(*awsconfig.LoadOptions) error
	if region != "" {
		opts = append(opts, awsconfig.WithRegion(region))
	}
	cfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	return &S3Persister{
		Client:   s3.NewFromConfig(cfg),
		Bucket:   bucket,
		Key:      objectKey(key),
		KMSKeyID: strings.TrimSpace(kmsKeyID),
	}, nil
}

func objectKey(key string) string {
	key = strings.Trim(strings.TrimSpace(key), "/")
	if key == "" {
		return SnapshotKey + ".json"
	}
	return key
}

func (p *S3Persister) Load(ctx context.Context) (Snapshot, error) {
	out, err := p.Client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(p.Bucket),
		Key:    aws.String(objectKey(p.Key)),
	})
	var missing *s3types.NoSuchKey
	if errors.As(err, &missing) {
		return Snapshot{}, ErrNoSnapshot
	}
	if err != nil {
		return Snapshot{}, fmt.Errorf("s3 get object bucket=%s key=%s: %w", p.Bucket, objectKey(p.Key), err)
	}
	defer out.Body.Close()

	data, err := io.ReadAll(out.Body)
	if err != nil {
		return Snapshot{}, fmt.Errorf("read state object: %w", err)
	}
	var rec fileRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return Snapshot{}, fmt.Errorf("decode state object: %w", err)
	}
	if rec.Key != SnapshotKey {
		return Snapshot{}, ErrNoSnapshot
	}
	return rec.Snapshot, nil
}

// Save overwrites the object. Objects are encrypted with the KMS key when
// one is configured, otherwise with S3-managed keys.
func (p *S3Persister) Save(ctx context.Context, snap Snapshot) error {
	data, err := json.Marshal(fileRecord{Key: SnapshotKey, Snapshot: snap})
	if err != nil {
		return fmt.Errorf("encode state: %w", err)
	}
	in := &s3.PutObjectInput{
		Bucket:      aws.String(p.Bucket),
		Key:         aws.String(objectKey(p.Key)),
		Body:        bytes.NewReader(data),
		ContentType: aws.String("application/json"),
	}
	if p.KMSKeyID != "" {
		in.ServerSideEncryption = s3types.ServerSideEncryptionAwsKms
		in.SSEKMSKeyId = aws.String(p.KMSKeyID)
	} else {
		in.ServerSideEncryption = s3types.ServerSideEncryptionAes256
	}
	if _, err := p.Client.PutObject(ctx, in); err != nil {
		return fmt.Errorf("s3 put object bucket=%s key=%s: %w", p.Bucket, objectKey(p.Key), err)
	}
	return nil
}
