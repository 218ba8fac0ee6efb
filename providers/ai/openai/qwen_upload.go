package openai

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"path"
	"strings"

	"github.com/leofalp/directchat/internal/utils"
	"github.com/leofalp/directchat/providers/ai"
	"github.com/leofalp/directchat/providers/observability"
)

const (
	// DefaultQwenUploadURL is DashScope's OpenAI-compatible file endpoint.
	DefaultQwenUploadURL = "https://dashscope.aliyuncs.com/compatible-mode/v1/files"

	// UploadMarkerPrefix tags an inline part whose payload must be uploaded to
	// DashScope instead of being sent as content. The part's MIME type has the
	// form "file_upload_marker|<mime>|<filename>".
	UploadMarkerPrefix = "file_upload_marker"

	uploadPurpose = "file-extract"
)

// documentMimeTypes maps document extensions accepted by DashScope to MIME types.
var documentMimeTypes = map[string]string{
	".pdf":  "application/pdf",
	".doc":  "application/msword",
	".docx": "application/vnd.openxmlformats-officedocument.wordprocessingml.document",
	".xls":  "application/vnd.ms-excel",
	".xlsx": "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
	".ppt":  "application/vnd.ms-powerpoint",
	".pptx": "application/vnd.openxmlformats-officedocument.presentationml.presentation",
	".txt":  "text/plain",
	".md":   "text/markdown",
	".csv":  "text/csv",
	".json": "application/json",
}

// NewUploadMarkerPart returns an inline part that QwenUploader will upload
// and replace with a file id reference.
func NewUploadMarkerPart(base64Data, mimeType, fileName string) ai.ContentPart {
	return ai.ContentPart{
		Type:       ai.PartInlineData,
		Base64Data: base64Data,
		MimeType:   strings.Join([]string{UploadMarkerPrefix, mimeType, fileName}, "|"),
	}
}

// parseUploadMarker splits a marker MIME type into the real MIME type and
// file name. ok is false when part is not a marker.
func parseUploadMarker(part ai.ContentPart) (mimeType, fileName string, ok bool) {
	if part.Type != ai.PartInlineData || !strings.HasPrefix(part.MimeType, UploadMarkerPrefix+"|") {
		return "", "", false
	}
	fields := strings.SplitN(strings.TrimPrefix(part.MimeType, UploadMarkerPrefix+"|"), "|", 2)
	mimeType = fields[0]
	if len(fields) == 2 {
		fileName = fields[1]
	}
	if fileName == "" {
		fileName = "document"
	}
	if mimeType == "" {
		mimeType = MimeTypeForFileName(fileName)
	}
	return mimeType, fileName, true
}

// HasUploadMarkers reports whether any message carries a marked part.
func HasUploadMarkers(messages []ai.Message) bool {
	for _, message := range messages {
		for _, part := range message.Parts {
			if _, _, ok := parseUploadMarker(part); ok {
				return true
			}
		}
	}
	return false
}

// MimeTypeForFileName maps a document file name to its MIME type by
// extension, defaulting to application/octet-stream.
func MimeTypeForFileName(fileName string) string {
	if mimeType, ok := documentMimeTypes[strings.ToLower(path.Ext(fileName))]; ok {
		return mimeType
	}
	return ai.DefaultInlineMimeType
}

// QwenUploader uploads marked documents to DashScope's file endpoint.
type QwenUploader struct {
	uploadURL string
	apiKey    string
	client    *http.Client
}

// NewQwenUploader returns an uploader for DefaultQwenUploadURL. Without an
// explicit key the key of the request being sent is used.
func NewQwenUploader() *QwenUploader {
	return &QwenUploader{
		uploadURL: DefaultQwenUploadURL,
		client:    http.DefaultClient,
	}
}

// WithUploadURL overrides the upload endpoint.
func (u *QwenUploader) WithUploadURL(uploadURL string) *QwenUploader {
	if uploadURL != "" {
		u.uploadURL = uploadURL
	}
	return u
}

// WithAPIKey sets a dedicated DashScope key.
func (u *QwenUploader) WithAPIKey(apiKey string) *QwenUploader {
	u.apiKey = apiKey
	return u
}

// WithHttpClient sets a custom HTTP client.
func (u *QwenUploader) WithHttpClient(httpClient *http.Client) *QwenUploader {
	u.client = httpClient
	return u
}

// Upload sends one document and returns its DashScope file id.
func (u *QwenUploader) Upload(ctx context.Context, data []byte, mimeType, fileName, fallbackKey string) (string, error) {
	ctx, span := observability.ObserverFromContext(ctx).StartSpan(ctx, observability.SpanFileUpload,
		observability.String("file.name", fileName),
		observability.Int("file.size", len(data)),
	)
	defer span.End()

	apiKey := utils.FirstNonEmpty(u.apiKey, fallbackKey)
	if apiKey == "" {
		err := errors.New("DashScope API key is not set")
		span.RecordError(err)
		return "", err
	}

	_, response, err := utils.DoPostMultipart[uploadResponse](ctx, u.client, u.uploadURL, apiKey,
		map[string]string{"purpose": uploadPurpose},
		utils.MultipartFile{FieldName: "file", FileName: fileName, ContentType: mimeType, Data: data},
	)
	if err != nil {
		span.RecordError(err)
		return "", err
	}
	if response == nil || response.ID == "" {
		err := errors.New("DashScope upload returned no file id")
		span.RecordError(err)
		return "", err
	}

	span.SetStatus(observability.StatusOK, "")
	return response.ID, nil
}

// ReplaceMarkers returns a copy of messages in which every marked part has
// been uploaded and replaced by a qwen-file-id FileURI part. The input slice
// is not modified.
func (u *QwenUploader) ReplaceMarkers(ctx context.Context, messages []ai.Message, fallbackKey string) ([]ai.Message, error) {
	result := make([]ai.Message, len(messages))
	for i, message := range messages {
		result[i] = message
		if !message.HasParts() {
			continue
		}

		parts := make([]ai.ContentPart, len(message.Parts))
		for j, part := range message.Parts {
			mimeType, fileName, ok := parseUploadMarker(part)
			if !ok {
				parts[j] = part
				continue
			}

			data, err := base64.StdEncoding.DecodeString(part.Base64Data)
			if err != nil {
				return nil, fmt.Errorf("invalid base64 payload for %s: %w", fileName, err)
			}
			fileID, err := u.Upload(ctx, data, mimeType, fileName, fallbackKey)
			if err != nil {
				return nil, fmt.Errorf("upload %s: %w", fileName, err)
			}
			parts[j] = ai.NewFileURIPart(fileID, ai.QwenFileIDMimeType)
		}
		result[i].Parts = parts
	}
	return result, nil
}
