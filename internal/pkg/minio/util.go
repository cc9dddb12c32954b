package minio

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/minio/minio-go/v7"
)

// Storage 媒体对象存储
type Storage struct {
	client  *minio.Client
	bucket  string
	baseURL string
}

// Upload 上传文件到MinIO
func (s *Storage) Upload(ctx context.Context, objectName string, reader io.Reader, size int64, contentType string) error {
	_, err := s.client.PutObject(ctx, s.bucket, objectName, reader, size, minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		return fmt.Errorf("failed to upload file: %w", err)
	}
	return nil
}

// Delete 删除MinIO中的文件
func (s *Storage) Delete(ctx context.Context, objectName string) error {
	err := s.client.RemoveObject(ctx, s.bucket, objectName, minio.RemoveObjectOptions{})
	if err != nil {
		return fmt.Errorf("failed to delete file: %w", err)
	}
	return nil
}

// PublicURL 获取文件的公共访问URL
func (s *Storage) PublicURL(objectName string) string {
	return s.baseURL + "/" + objectName
}

// ObjectName 从公共 URL 还原对象名，非本桶地址返回 false
func (s *Storage) ObjectName(url string) (string, bool) {
	prefix := s.baseURL + "/"
	if !strings.HasPrefix(url, prefix) {
		return "", false
	}
	return strings.TrimPrefix(url, prefix), true
}
