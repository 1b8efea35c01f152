package api

import (
	"context"
	"io"

	"campus_market/model"
)

// UploadAPI 文件上传接口
type UploadAPI struct {
	client *Client
}

// NewUploadAPI 创建上传接口
func NewUploadAPI(client *Client) *UploadAPI {
	return &UploadAPI{client: client}
}

// GoodsImage POST /upload/goods-image
func (u *UploadAPI) GoodsImage(ctx context.Context, filename string, file io.Reader) (model.UploadResult, error) {
	var resp model.UploadResult
	err := u.client.PostMultipart(ctx, "/upload/goods-image", "file", filename, file, &resp)
	return resp, err
}

// ChatImage POST /upload/chat-image
func (u *UploadAPI) ChatImage(ctx context.Context, filename string, file io.Reader) (model.UploadResult, error) {
	var resp model.UploadResult
	err := u.client.PostMultipart(ctx, "/upload/chat-image", "file", filename, file, &resp)
	return resp, err
}
