package controllers

import (
	"bytes"
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/cppla/livewall/config"
	"github.com/cppla/livewall/objectstore"
	"github.com/cppla/livewall/utils"
)

// objectCacheControl is the client cache directive for served attachments.
const objectCacheControl = "max-age=3600"

// MediaController accepts image uploads and stores them in the object store
// under the shared public namespace.
type MediaController struct {
	objects objectstore.Store
}

// NewMediaController creates a MediaController over an object store.
func NewMediaController(objects objectstore.Store) *MediaController {
	return &MediaController{objects: objects}
}

// Upload stores one uploaded file and returns its resolved public address.
// Same original name replaces the prior object.
func (m *MediaController) Upload(ctx *gin.Context) {
	// Accept common field name 'file' or fallback to 'f'
	file, header, err := ctx.Request.FormFile("file")
	if err != nil {
		file, header, err = ctx.Request.FormFile("f")
		if err != nil {
			utils.Error(ctx, http.StatusBadRequest, 40030, "no file uploaded")
			return
		}
	}
	defer file.Close()

	maxSize := int64(config.Get().ObjectsMaxUploadMB) << 20
	if header.Size > 0 && header.Size > maxSize {
		utils.Error(ctx, http.StatusBadRequest, 40031,
			fmt.Sprintf("file size exceeds %dMB", config.Get().ObjectsMaxUploadMB))
		return
	}

	name := filepath.Base(header.Filename)
	if name == "." || name == "" {
		name = fmt.Sprintf("file_%d_%s", time.Now().UnixNano(), uuid.NewString()[:8])
	}

	// Enforce the cap even when the client lies about Content-Length, and
	// only touch the object store once the whole payload is in hand so an
	// oversized upload never leaves a truncated object behind.
	data, err := io.ReadAll(io.LimitReader(file, maxSize+1))
	if err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50031, "failed to read file")
		return
	}
	if int64(len(data)) > maxSize {
		utils.Error(ctx, http.StatusBadRequest, 40031,
			fmt.Sprintf("file size exceeds %dMB", config.Get().ObjectsMaxUploadMB))
		return
	}

	url, err := m.objects.Put(ctx.Request.Context(), "public/"+name, bytes.NewReader(data), objectstore.PutOptions{
		ContentType:  header.Header.Get("Content-Type"),
		CacheControl: objectCacheControl,
		Overwrite:    true,
	})
	if err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50030, "failed to store file")
		return
	}

	utils.Success(ctx, gin.H{"url": url})
}
