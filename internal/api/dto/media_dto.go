package dto

// MediaUploadDTO 上传结果，可直接作为推文附件提交
type MediaUploadDTO struct {
	Type      string `json:"type"`
	URL       string `json:"url"`
	Thumbnail string `json:"thumbnail,omitempty"`
}

// TempMedia 暂存在 Redis 中等待被推文认领的上传记录
type TempMedia struct {
	ObjectName    string `json:"objectName"`
	ThumbnailName string `json:"thumbnailName,omitempty"`
	UploaderID    string `json:"uploaderId"`
	UploadedAt    int64  `json:"uploadedAt"`
}
