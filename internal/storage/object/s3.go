// Copyright 2026 fanjia1024
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.
package object

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/aws/aws-sdk-go-v2/aws"
	awshttp "github.com/aws/aws-sdk-go-v2/aws/transport/http"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	lerrors "lisa-assistant/pkg/errors"
)

// S3Options S3 / 兼容 S3 的对象存储参数。Endpoint 非空时使用 path-style（MinIO 等）
type S3Options struct {
	Endpoint  string
	Bucket    string
	Region    string
	AccessKey string
	SecretKey string
}

// S3Store 基于 aws-sdk-go-v2 的对象存储
type S3Store struct {
	client *s3.Client
	bucket string
}

// NewS3Store 创建 S3 存储；AccessKey 为空时走默认凭证链
func NewS3Store(ctx context.Context, opts S3Options) (*S3Store, error) {
	if opts.Bucket == "" {
		return nil, lerrors.Wrap(lerrors.ErrInvalidArg, "s3 bucket is required")
	}
	region := opts.Region
	if region == "" {
		region = "us-east-1"
	}
	loadOpts := []func(*awsconfig.LoadOptions) error{awsconfig.WithRegion(region)}
	if opts.AccessKey != "" {
		loadOpts = append(loadOpts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(opts.AccessKey, opts.SecretKey, "")))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if opts.Endpoint != "" {
			o.BaseEndpoint = aws.String(opts.Endpoint)
			o.UsePathStyle = true
		}
		o.RequestChecksumCalculation = aws.RequestChecksumCalculationWhenRequired
		o.ResponseChecksumValidation = aws.ResponseChecksumValidationWhenRequired
	})
	return &S3Store{client: client, bucket: opts.Bucket}, nil
}

func isNotFound(err error) bool {
	var re *awshttp.ResponseError
	return errors.As(err, &re) && re.HTTPStatusCode() == http.StatusNotFound
}

// Put 上传对象；数据先读入内存以便 SDK 计算签名
func (s *S3Store) Put(ctx context.Context, path string, data io.Reader, size int64, metadata map[string]string) error {
	buf, err := io.ReadAll(data)
	if err != nil {
		return fmt.Errorf("failed to read object data: %w", err)
	}
	_, err = s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(s.bucket),
		Key:           aws.String(path),
		Body:          bytes.NewReader(buf),
		ContentLength: aws.Int64(int64(len(buf))),
		Metadata:      metadata,
	})
	if err != nil {
		return fmt.Errorf("s3 put %s: %w", path, err)
	}
	return nil
}

// Get 下载对象
func (s *S3Store) Get(ctx context.Context, path string) (io.ReadCloser, error) {
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{Bucket: aws.String(s.bucket), Key: aws.String(path)})
	if err != nil {
		if isNotFound(err) {
			return nil, lerrors.Wrapf(lerrors.ErrNotFound, "object %s", path)
		}
		return nil, fmt.Errorf("s3 get %s: %w", path, err)
	}
	return out.Body, nil
}

// Delete 删除对象；S3 对不存在的 key 也返回成功，这里先 Head 以保持与其他实现一致
func (s *S3Store) Delete(ctx context.Context, path string) error {
	ok, err := s.Exists(ctx, path)
	if err != nil {
		return err
	}
	if !ok {
		return lerrors.Wrapf(lerrors.ErrNotFound, "object %s", path)
	}
	_, err = s.client.DeleteObject(ctx, &s3.DeleteObjectInput{Bucket: aws.String(s.bucket), Key: aws.String(path)})
	if err != nil {
		return fmt.Errorf("s3 delete %s: %w", path, err)
	}
	return nil
}

// List 列出对象
func (s *S3Store) List(ctx context.Context, prefix string) ([]*ObjectInfo, error) {
	p := s3.NewListObjectsV2Paginator(s.client, &s3.ListObjectsV2Input{
		Bucket: aws.String(s.bucket),
		Prefix: aws.String(prefix),
	})
	var out []*ObjectInfo
	for p.HasMorePages() {
		page, err := p.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("s3 list %s: %w", prefix, err)
		}
		for _, o := range page.Contents {
			info := &ObjectInfo{Path: aws.ToString(o.Key), Size: aws.ToInt64(o.Size)}
			if o.LastModified != nil {
				info.UpdatedAt = *o.LastModified
			}
			out = append(out, info)
		}
	}
	return out, nil
}

// Exists 检查对象是否存在
func (s *S3Store) Exists(ctx context.Context, path string) (bool, error) {
	_, err := s.client.HeadObject(ctx, &s3.HeadObjectInput{Bucket: aws.String(s.bucket), Key: aws.String(path)})
	if err != nil {
		if isNotFound(err) {
			return false, nil
		}
		return false, fmt.Errorf("s3 head %s: %w", path, err)
	}
	return true, nil
}

// GetMetadata 获取对象元数据
func (s *S3Store) GetMetadata(ctx context.Context, path string) (map[string]string, error) {
	out, err := s.client.HeadObject(ctx, &s3.HeadObjectInput{Bucket: aws.String(s.bucket), Key: aws.String(path)})
	if err != nil {
		if isNotFound(err) {
			return nil, lerrors.Wrapf(lerrors.ErrNotFound, "object %s", path)
		}
		return nil, fmt.Errorf("s3 head %s: %w", path, err)
	}
	return out.Metadata, nil
}

// Close S3 客户端无需关闭
func (s *S3Store) Close() error { return nil }
