package api

import (
	"github.com/ding-dong-qiang/blockchain-storage-system/internal/models"
	validation "github.com/go-ozzo/ozzo-validation/v4"
)

type sessionRequest struct {
	Secret string `json:"secret"`
}

func (r *sessionRequest) Validate() error {
	return validation.ValidateStruct(r,
		validation.Field(&r.Secret, validation.Required),
	)
}

type createFileRequest struct {
	Title      string `json:"title"`
	Content    string `json:"content"`
	AutoSuffix bool   `json:"autoSuffix"`
}

func (r *createFileRequest) Validate() error {
	return validation.ValidateStruct(r,
		validation.Field(&r.Title, validation.Required),
	)
}

type updateFileRequest struct {
	Content *string `json:"content"`
}

func (r *updateFileRequest) Validate() error {
	return validation.ValidateStruct(r,
		validation.Field(&r.Content, validation.NotNil),
	)
}

type renameFileRequest struct {
	Title string `json:"title"`
}

func (r *renameFileRequest) Validate() error {
	return validation.ValidateStruct(r,
		validation.Field(&r.Title, validation.Required),
	)
}

type sessionResponse struct {
	Identity string `json:"identity"`
}

type fileListResponse struct {
	Files []*models.FileRecord `json:"files"`
	Total int                  `json:"total"`
}

type syncResponse struct {
	ContentID string `json:"cid"`
}

type existsResponse struct {
	Exists bool `json:"exists"`
}
