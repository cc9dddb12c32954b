package service

import (
	"Warbler/internal/api/dto"
	"Warbler/internal/model"
	"Warbler/internal/pkg/consts"
	"Warbler/internal/pkg/redis"
	"bytes"
	"context"
	"image"
	"io"
	log "log/slog"
	"strings"
	"time"

	"github.com/disintegration/imaging"
	"github.com/gabriel-vasile/mimetype"
	"github.com/goccy/go-json"
	"github.com/google/uuid"
	redisv9 "github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

const (
	maxUploadSize  = 50 << 20
	thumbnailWidth = 400
)

// ObjectStorage 媒体文件存储
type ObjectStorage interface {
	Upload(ctx context.Context, objectName string, reader io.Reader, size int64, contentType string) error
	Delete(ctx context.Context, objectName string) error
	PublicURL(objectName string) string
	ObjectName(url string) (string, bool)
}

type MediaService interface {
	Upload(ctx context.Context, uploaderID primitive.ObjectID, reader io.Reader, size int64) (*dto.MediaUploadDTO, error)
	Claim(ctx context.Context, urls []string)
	CleanupExpired(ctx context.Context, ttl time.Duration) (int, error)
}

type MediaServiceImpl struct {
	storage ObjectStorage
	rdb     redisv9.Cmdable
	now     func() time.Time
}

// NewMediaService storage 为 nil 时上传接口返回错误，Claim 与清理为空操作
func NewMediaService(storage ObjectStorage, rdb redisv9.Cmdable) MediaService {
	return &MediaServiceImpl{
		storage: storage,
		rdb:     rdb,
		now:     time.Now,
	}
}

func classify(mime string) string {
	switch {
	case mime == consts.MimeGIF:
		return model.MediaTypeGIF
	case strings.HasPrefix(mime, consts.MimePrefixImage+"/"):
		return model.MediaTypeImage
	case strings.HasPrefix(mime, consts.MimePrefixVideo+"/"):
		return model.MediaTypeVideo
	}
	return ""
}

// Upload 上传图片、视频或 gif，图片额外生成 400px 宽的 JPEG 缩略图，并登记为待认领
func (s *MediaServiceImpl) Upload(ctx context.Context, uploaderID primitive.ObjectID, reader io.Reader, size int64) (*dto.MediaUploadDTO, error) {
	if s.storage == nil {
		return nil, ErrMediaStorageDisabled
	}
	if size > maxUploadSize {
		return nil, ErrFileTooLarge
	}

	data, err := io.ReadAll(io.LimitReader(reader, maxUploadSize+1))
	if err != nil {
		return nil, err
	}
	if len(data) == 0 {
		return nil, ErrFileRequired
	}
	if len(data) > maxUploadSize {
		return nil, ErrFileTooLarge
	}

	mime := mimetype.Detect(data)
	mediaType := classify(mime.String())
	if mediaType == "" {
		return nil, ErrFileNotSupported
	}

	prefix := time.Now().Format("2006/01/02/")
	objectName := mediaType + "/" + prefix + uuid.NewString() + mime.Extension()
	if err = s.storage.Upload(ctx, objectName, bytes.NewReader(data), int64(len(data)), mime.String()); err != nil {
		return nil, err
	}

	res := &dto.MediaUploadDTO{
		Type: mediaType,
		URL:  s.storage.PublicURL(objectName),
	}
	temp := dto.TempMedia{
		ObjectName: objectName,
		UploaderID: uploaderID.Hex(),
		UploadedAt: s.now().Unix(),
	}

	if mediaType == model.MediaTypeImage {
		thumbName := "thumbs/" + prefix + uuid.NewString() + ".jpg"
		thumb, err := makeThumbnail(data)
		if err != nil {
			log.WarnContext(ctx, "generate thumbnail failed", "object", objectName, "err", err)
		} else if err = s.storage.Upload(ctx, thumbName, bytes.NewReader(thumb), int64(len(thumb)), "image/jpeg"); err != nil {
			log.WarnContext(ctx, "upload thumbnail failed", "object", thumbName, "err", err)
		} else {
			res.Thumbnail = s.storage.PublicURL(thumbName)
			temp.ThumbnailName = thumbName
		}
	}

	s.register(ctx, temp)
	log.InfoContext(ctx, "media upload success", "object", objectName, "type", mediaType, "size", len(data))
	return res, nil
}

func makeThumbnail(data []byte) ([]byte, error) {
	img, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	if err != nil {
		return nil, err
	}
	var thumb image.Image = img
	if img.Bounds().Dx() > thumbnailWidth {
		thumb = imaging.Resize(img, thumbnailWidth, 0, imaging.Lanczos)
	}
	var buf bytes.Buffer
	if err = imaging.Encode(&buf, thumb, imaging.JPEG, imaging.JPEGQuality(80)); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (s *MediaServiceImpl) register(ctx context.Context, temp dto.TempMedia) {
	if s.rdb == nil {
		return
	}
	raw, err := json.Marshal(temp)
	if err != nil {
		return
	}
	if err = redis.HSet(ctx, s.rdb, consts.MediaTempKey, temp.ObjectName, string(raw)); err != nil {
		log.WarnContext(ctx, "register temp media failed", "object", temp.ObjectName, "err", err)
	}
}

// Claim 推文引用的文件不再被清理任务删除，缩略图随原文件一起登记，无需单独认领
func (s *MediaServiceImpl) Claim(ctx context.Context, urls []string) {
	if s.storage == nil || s.rdb == nil {
		return
	}
	names := make([]string, 0, len(urls))
	for _, url := range urls {
		if name, ok := s.storage.ObjectName(url); ok {
			names = append(names, name)
		}
	}
	if len(names) == 0 {
		return
	}
	if err := redis.HDel(ctx, s.rdb, consts.MediaTempKey, names...); err != nil {
		log.WarnContext(ctx, "claim temp media failed", "count", len(names), "err", err)
	}
}

// CleanupExpired 删除超过 ttl 仍未被推文引用的上传文件
func (s *MediaServiceImpl) CleanupExpired(ctx context.Context, ttl time.Duration) (int, error) {
	if s.storage == nil || s.rdb == nil {
		return 0, nil
	}
	all, err := redis.HGetAll(ctx, s.rdb, consts.MediaTempKey)
	if err != nil {
		return 0, err
	}

	cutoff := s.now().Add(-ttl).Unix()
	count := 0
	for objectName, val := range all {
		var temp dto.TempMedia
		if err = json.Unmarshal([]byte(val), &temp); err != nil {
			log.WarnContext(ctx, "invalid temp media entry", "object", objectName)
			continue
		}
		if temp.UploadedAt > cutoff {
			continue
		}

		if err = s.storage.Delete(ctx, objectName); err != nil {
			log.ErrorContext(ctx, "delete expired media failed", "object", objectName, "err", err)
			continue
		}
		if temp.ThumbnailName != "" {
			if err = s.storage.Delete(ctx, temp.ThumbnailName); err != nil {
				log.WarnContext(ctx, "delete expired thumbnail failed", "object", temp.ThumbnailName, "err", err)
			}
		}
		if err = redis.HDel(ctx, s.rdb, consts.MediaTempKey, objectName); err != nil {
			log.ErrorContext(ctx, "remove temp media entry failed", "object", objectName, "err", err)
		}
		count++
	}
	return count, nil
}
