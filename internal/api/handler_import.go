package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"taskmate/internal/service/importer"
)

type ImportHandler struct {
	importer *importer.Importer
	logger   *zap.Logger
}

func NewImportHandler(im *importer.Importer, logger *zap.Logger) *ImportHandler {
	return &ImportHandler{importer: im, logger: logger}
}

// Import handles POST /import (multipart "file")
func (h *ImportHandler) Import(c *gin.Context) {
	if _, ok := getUserID(c); !ok {
		return
	}

	fh, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "file is required"})
		return
	}
	f, err := fh.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "failed to read file"})
		return
	}
	defer f.Close()

	text, err := h.importer.Extract(fh.Filename, f)
	switch {
	case errors.Is(err, importer.ErrUnsupportedType):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	case errors.Is(err, importer.ErrTooLarge):
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": err.Error()})
		return
	case errors.Is(err, importer.ErrEmptyDocument):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
		return
	case err != nil:
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "failed to extract text"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"text": text})
}
