// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package media

import (
	"bytes"
	"context"
	"fmt"
	"path"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/oklog/ulid/v2"
)

// S3Config configures the S3 uploader.
type S3Config struct {
	Bucket       string
	Region       string
	AccessKey    string
	SecretKey    string
	BaseEndpoint string // S3-compatible services
	PublicURL    string // base URL objects are served from
}

// putObjectAPI is the part of the S3 client used by S3.
type putObjectAPI interface {
	PutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// S3 stores uploads as public objects in a bucket.
type S3 struct {
	client    putObjectAPI
	bucket    string
	publicURL string
}

// NewS3 builds an S3 client with static credentials.
func NewS3(ctx context.Context, c S3Config) (*S3, error) {
	cfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion(c.Region),
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			c.AccessKey,
			c.SecretKey,
			"",
		)),
	)
	if err != nil {
		return nil, fmt.Errorf("loading S3 config: %w", err)
	}

	client := s3.NewFromConfig(cfg, func(o *s3.Options) {
		if c.BaseEndpoint != "" {
			o.BaseEndpoint = aws.String(c.BaseEndpoint)
			o.UsePathStyle = true
		}
	})
	return newS3(client, c), nil
}

func newS3(client putObjectAPI, c S3Config) *S3 {
	publicURL := c.PublicURL
	if publicURL == "" {
		if c.BaseEndpoint != "" {
			publicURL = strings.TrimSuffix(c.BaseEndpoint, "/") + "/" + c.Bucket
		} else {
			publicURL = fmt.Sprintf("https://%s.s3.%s.amazonaws.com", c.Bucket, c.Region)
		}
	}
	return &S3{client: client, bucket: c.Bucket, publicURL: strings.TrimSuffix(publicURL, "/")}
}

// Upload implements Uploader. Objects are keyed folder/<ulid><ext>.
func (s *S3) Upload(ctx context.Context, file File, folder string) (string, error) {
	key := objectKey(folder, file.Name)
	in := &s3.PutObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
		Body:   bytes.NewReader(file.Data),
	}
	if file.ContentType != "" {
		in.ContentType = aws.String(file.ContentType)
	}
	if _, err := s.client.PutObject(ctx, in); err != nil {
		return "", &UploadError{Folder: folder, Err: err}
	}
	return s.publicURL + "/" + key, nil
}

func objectKey(folder, name string) string {
	key := strings.ToLower(ulid.Make().String()) + strings.ToLower(path.Ext(name))
	folder = strings.Trim(folder, "/")
	if folder == "" {
		return key
	}
	return folder + "/" + key
}
