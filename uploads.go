package main

import (
	"bytes"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"path"
	"path/filepath"
	"strings"
	"unicode"

	"bitbucket.org/paradixe/oit_backend/aireview"
	"bitbucket.org/paradixe/oit_backend/config"
	"bitbucket.org/paradixe/oit_backend/models"
	"bitbucket.org/paradixe/oit_backend/utils"
	"github.com/disintegration/imaging"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

const maxUploadSizeBytes int64 = 10 * 1024 * 1024

var documentMimeTypes = map[string]bool{
	"application/pdf": true,
	"text/plain":      true,
	"text/markdown":   true,
}

var imageMimeTypes = map[string]bool{
	"image/jpeg": true,
	"image/png":  true,
}

var analysisMimeTypes = map[string]bool{
	"application/pdf":          true,
	"text/plain":               true,
	"application/vnd.ms-excel": true,
	"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet": true,
}

func readFormFile(c *gin.Context, field string, maxSize int64) ([]byte, error) {
	file, err := c.FormFile(field)
	if err != nil {
		return nil, err
	}
	if file.Size > maxSize {
		return nil, fmt.Errorf("%s exceeds size limit", field)
	}
	opened, err := file.Open()
	if err != nil {
		return nil, err
	}
	defer opened.Close()

	data, err := io.ReadAll(io.LimitReader(opened, maxSize+1))
	if err != nil {
		return nil, err
	}
	if int64(len(data)) > maxSize {
		return nil, fmt.Errorf("%s exceeds size limit", field)
	}
	return data, nil
}

func formFileMimeType(file *multipart.FileHeader) string {
	mimeType := strings.TrimSpace(file.Header.Get("Content-Type"))
	if idx := strings.Index(mimeType, ";"); idx >= 0 {
		mimeType = mimeType[:idx]
	}
	return strings.ToLower(mimeType)
}

func extensionFromMimeType(mimeType string) string {
	switch mimeType {
	case "image/jpeg":
		return ".jpg"
	case "image/png":
		return ".png"
	case "application/pdf":
		return ".pdf"
	case "text/plain":
		return ".txt"
	case "text/markdown":
		return ".md"
	case "application/vnd.ms-excel":
		return ".xls"
	case "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet":
		return ".xlsx"
	default:
		return ""
	}
}

func sanitizeSegment(input string) string {
	var out strings.Builder
	for _, r := range input {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') || r == '-' || r == '_' {
			out.WriteRune(r)
		}
	}
	return out.String()
}

// extractDocumentText pulls reviewable text out of an uploaded file.
// Plain text passes through; PDFs get a best-effort scan for printable
// runs, enough for the keyword heuristics.
func extractDocumentText(data []byte, mimeType string) string {
	if strings.HasPrefix(mimeType, "text/") {
		return string(data)
	}
	if !bytes.HasPrefix(data, []byte("%PDF")) && mimeType != "application/pdf" {
		// unknown binary, try it as text anyway
		if isMostlyText(data) {
			return string(data)
		}
	}

	var out strings.Builder
	var run []rune
	flush := func() {
		if len(run) >= 4 {
			out.WriteString(string(run))
			out.WriteByte(' ')
		}
		run = run[:0]
	}
	for _, r := range string(data) {
		if unicode.IsPrint(r) && r != unicode.ReplacementChar {
			run = append(run, r)
			continue
		}
		flush()
	}
	flush()
	return out.String()
}

func isMostlyText(data []byte) bool {
	if len(data) == 0 {
		return false
	}
	sample := data
	if len(sample) > 4096 {
		sample = sample[:4096]
	}
	printable := 0
	for _, r := range string(sample) {
		if unicode.IsPrint(r) || unicode.IsSpace(r) {
			printable++
		}
	}
	return printable*10 >= len(sample)*9
}

// uploadDocumentHandler receives a new inspection document, stores the
// original, runs the automated review and creates the record.
// Optional "reference" files feed the reviewer as context.
func uploadDocumentHandler(reviewer *aireview.Client) gin.HandlerFunc {
	return func(c *gin.Context) {
		logger := config.GetLogger()

		user, ok := requireSessionUser(c)
		if !ok {
			return
		}

		file, err := c.FormFile("file")
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "file field is required"})
			return
		}
		if file.Size > maxUploadSizeBytes {
			c.JSON(http.StatusBadRequest, gin.H{"error": "file size exceeds 10MB limit"})
			return
		}

		mimeType := formFileMimeType(file)
		if mimeType != "" && !documentMimeTypes[mimeType] {
			c.JSON(http.StatusBadRequest, gin.H{"error": "unsupported file type"})
			return
		}

		data, err := readFormFile(c, "file", maxUploadSizeBytes)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "could not read file"})
			return
		}

		var references []string
		if form, err := c.MultipartForm(); err == nil && form != nil {
			for _, ref := range form.File["reference"] {
				opened, err := ref.Open()
				if err != nil {
					continue
				}
				refData, err := io.ReadAll(io.LimitReader(opened, maxUploadSizeBytes))
				opened.Close()
				if err != nil {
					continue
				}
				references = append(references, extractDocumentText(refData, formFileMimeType(ref)))
			}
		}

		ext := strings.ToLower(filepath.Ext(file.Filename))
		if ext == "" {
			ext = extensionFromMimeType(mimeType)
		}
		storedName := utils.GenerateUniqueFilename() + ext
		objectKey := path.Join("oit", "incoming", storedName)

		ctx := sessionContext(c, user)
		if _, err := utils.StoreObject(ctx, objectKey, data, mimeType); err != nil {
			config.LogError(logger, "uploads", "uploadDocumentHandler", "StoreObject", objectKey, err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "could not store document"})
			return
		}

		text := extractDocumentText(data, mimeType)
		review, usedFallback := reviewer.ReviewDocument(ctx, text, references)

		document, err := models.CreateOitDocument(ctx, &models.NewOitDocument{
			Filename:     storedName,
			OriginalName: file.Filename,
			ObjectKey:    objectKey,
			Status:       models.ReviewStatus(review.Status),
			Summary:      review.Summary,
			Alerts:       review.Alerts,
			Missing:      review.Missing,
			Evidence:     review.Evidence,
		})
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		logger.WithFields(logrus.Fields{
			"document_id":   document.ID,
			"status":        review.Status,
			"used_fallback": usedFallback,
			"object_key":    objectKey,
		}).Info("[oit.upload]")

		c.JSON(http.StatusCreated, gin.H{"data": gin.H{
			"document":      document,
			"used_fallback": usedFallback,
		}})
	}
}

// analysisUploadHandler stores the laboratory analysis. This artifact
// gates the final report.
func analysisUploadHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		user, ok := requireSessionUser(c)
		if !ok {
			return
		}
		id, ok := idParam(c, "id")
		if !ok {
			return
		}

		file, err := c.FormFile("file")
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "file field is required"})
			return
		}
		mimeType := formFileMimeType(file)
		if mimeType != "" && !analysisMimeTypes[mimeType] {
			c.JSON(http.StatusBadRequest, gin.H{"error": "unsupported file type"})
			return
		}

		data, err := readFormFile(c, "file", maxUploadSizeBytes)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "could not read file"})
			return
		}

		document, err := models.SaveAnalysisUpload(sessionContext(c, user), id, file.Filename, data, mimeType)
		if err != nil {
			respondModelError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"data": document})
	}
}

// attachmentUploadHandler stores an evidence photo next to the
// document and generates a 200px thumbnail for listings.
func attachmentUploadHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		logger := config.GetLogger()

		user, ok := requireSessionUser(c)
		if !ok {
			return
		}
		id, ok := idParam(c, "id")
		if !ok {
			return
		}

		ctx := sessionContext(c, user)
		document, err := models.GetOitDocument(ctx, id)
		if err != nil {
			respondModelError(c, err)
			return
		}

		file, err := c.FormFile("file")
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "file field is required"})
			return
		}
		mimeType := formFileMimeType(file)
		if !imageMimeTypes[mimeType] {
			c.JSON(http.StatusBadRequest, gin.H{"error": "unsupported image type"})
			return
		}

		data, err := readFormFile(c, "file", maxUploadSizeBytes)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "could not read file"})
			return
		}

		ext := strings.ToLower(filepath.Ext(file.Filename))
		if ext == "" {
			ext = extensionFromMimeType(mimeType)
		}
		baseName := sanitizeSegment(strings.ToLower(strings.TrimSuffix(filepath.Base(file.Filename), ext)))
		if baseName == "" {
			baseName = "evidence"
		}
		storedName := baseName + "-" + utils.GenerateUniqueFilename() + ext
		objectKey := path.Join("oit", fmt.Sprint(document.ID), "attachments", storedName)

		imageURL, err := utils.StoreObject(ctx, objectKey, data, mimeType)
		if err != nil {
			config.LogError(logger, "uploads", "attachmentUploadHandler", "StoreObject", objectKey, err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "could not store attachment"})
			return
		}

		thumbnailKey, err := createThumbnail(c, objectKey, data)
		if err != nil {
			config.LogError(logger, "uploads", "attachmentUploadHandler", "createThumbnail", objectKey, err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to generate thumbnail"})
			return
		}

		logger.WithFields(logrus.Fields{
			"document_id": document.ID,
			"object_key":  objectKey,
			"mime_type":   mimeType,
		}).Info("[oit.attachment]")

		c.JSON(http.StatusOK, gin.H{"data": gin.H{
			"image_url":     imageURL,
			"thumbnail_url": utils.BuildObjectAccessURL(thumbnailKey),
			"object_key":    objectKey,
		}})
	}
}

func createThumbnail(c *gin.Context, objectKey string, data []byte) (string, error) {
	img, err := imaging.Decode(bytes.NewReader(data))
	if err != nil {
		return "", err
	}
	thumbnail := imaging.Resize(img, 200, 0, imaging.Lanczos)

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, thumbnail, imaging.JPEG); err != nil {
		return "", err
	}

	thumbnailKey := thumbnailObjectKey(objectKey)
	if _, err := utils.StoreObject(c.Request.Context(), thumbnailKey, buf.Bytes(), "image/jpeg"); err != nil {
		return "", err
	}
	return thumbnailKey, nil
}

func thumbnailObjectKey(objectKey string) string {
	dir := path.Dir(objectKey)
	filename := path.Base(objectKey)
	return path.Join(dir, "thumbnails", filename)
}
