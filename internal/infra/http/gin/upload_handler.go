package ginserver

import (
	"log/slog"
	"net/http"

	gin "github.com/gin-gonic/gin"

	domainuser "quickswap/internal/domain/user"
	"quickswap/internal/infra/storage/s3"
)

// UploadHandler stores media in the object bucket. Product photos get a fresh
// key per upload; an avatar upload overwrites the user's fixed key and is
// written back to the profile.
type UploadHandler struct {
	Uploader s3.Uploader
	Users    domainuser.Repository
	Logger   *slog.Logger
}

func (h UploadHandler) UploadProductPhoto(c *gin.Context) {
	p, ok := requireUser(c)
	if !ok {
		return
	}
	file, header, err := c.Request.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "file is required"})
		return
	}
	defer file.Close()

	contentType := header.Header.Get("Content-Type")
	key := s3.ProductPhotoKey(p.ID, contentType)
	url, err := h.Uploader.Upload(c.Request.Context(), key, file, contentType)
	if err != nil {
		h.Logger.Error("photo upload failed", "key", key, "err", err)
		c.JSON(http.StatusBadGateway, gin.H{"error": "upload failed"})
		return
	}
	c.JSON(http.StatusCreated, gin.H{"url": url})
}

func (h UploadHandler) UploadAvatar(c *gin.Context) {
	p, ok := requireUser(c)
	if !ok {
		return
	}
	file, header, err := c.Request.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "file is required"})
		return
	}
	defer file.Close()

	key := s3.AvatarKey(p.ID)
	url, err := h.Uploader.Upload(c.Request.Context(), key, file, header.Header.Get("Content-Type"))
	if err != nil {
		h.Logger.Error("avatar upload failed", "key", key, "err", err)
		c.JSON(http.StatusBadGateway, gin.H{"error": "upload failed"})
		return
	}

	user, err := h.Users.ByID(c.Request.Context(), domainuser.ID(p.ID))
	if err == nil {
		user.AvatarURL = url
		if err := h.Users.Save(c.Request.Context(), user); err != nil {
			h.Logger.Warn("avatar url not persisted", "user_id", p.ID, "err", err)
		}
	}
	c.JSON(http.StatusCreated, gin.H{"url": url})
}
