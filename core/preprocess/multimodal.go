package preprocess

import (
	"context"
	"encoding/base64"
	"fmt"
	"net/http"
	"strings"

	"github.com/leofalp/directchat/providers/ai"
	"github.com/leofalp/directchat/providers/ai/openai"
	"github.com/leofalp/directchat/providers/observability"
)

// AttachmentKind classifies what the user attached.
type AttachmentKind string

const (
	AttachmentImage    AttachmentKind = "image"
	AttachmentBitmap   AttachmentKind = "bitmap"
	AttachmentAudio    AttachmentKind = "audio"
	AttachmentFile     AttachmentKind = "file"
	AttachmentDocument AttachmentKind = "document"
)

// bitmapMimeType is assumed for in-memory bitmaps without a type; clients
// compress them to JPEG before attaching.
const bitmapMimeType = "image/jpeg"

// Attachment is one user-supplied file. Data holds the bytes; an image known
// only by URI is forwarded as a FileURI part.
type Attachment struct {
	Kind     AttachmentKind `json:"kind"`
	Data     []byte         `json:"data,omitempty"`
	URI      string         `json:"uri,omitempty"`
	MimeType string         `json:"mimeType,omitempty"`
	FileName string         `json:"fileName,omitempty"`
}

// DocumentExtractor turns a document (PDF, DOCX, XLSX...) into plain text.
type DocumentExtractor interface {
	Extract(ctx context.Context, attachment Attachment) (string, error)
}

// DocumentExtractorFunc adapts a function to DocumentExtractor.
type DocumentExtractorFunc func(ctx context.Context, attachment Attachment) (string, error)

// Extract implements DocumentExtractor.
func (f DocumentExtractorFunc) Extract(ctx context.Context, attachment Attachment) (string, error) {
	return f(ctx, attachment)
}

// AugmentOptions configures AugmentMultimodal.
type AugmentOptions struct {
	// Extractor reads document text. Without one only text/* documents are
	// readable.
	Extractor DocumentExtractor

	// PreferQwenUpload sends documents as DashScope upload markers instead of
	// extracted text.
	PreferQwenUpload bool
}

// AugmentMultimodal merges attachments into the last user message, upgrading
// a plain text message to parts. Document text goes before the existing text
// and media goes after it. The input slice is not modified.
func AugmentMultimodal(ctx context.Context, messages []ai.Message, attachments []Attachment, options AugmentOptions) ([]ai.Message, error) {
	if len(attachments) == 0 {
		return messages, nil
	}

	var documents, media []ai.ContentPart
	for i, attachment := range attachments {
		if attachment.Kind == AttachmentDocument && !options.PreferQwenUpload {
			documents = append(documents, ai.NewTextPart(documentText(ctx, attachment, options.Extractor)))
			continue
		}

		part, err := mediaPart(attachment)
		if err != nil {
			return nil, fmt.Errorf("attachment %d: %w", i, err)
		}
		media = append(media, part)
	}

	result := make([]ai.Message, len(messages))
	copy(result, messages)

	index := ai.LastUserIndex(result)
	if index < 0 {
		result = append(result, ai.Message{Role: ai.RoleUser})
		index = len(result) - 1
	}

	existing := result[index].ToParts()
	parts := make([]ai.ContentPart, 0, len(documents)+len(existing)+len(media))
	parts = append(parts, documents...)
	parts = append(parts, existing...)
	parts = append(parts, media...)

	result[index] = ai.Message{Role: ai.RoleUser, Parts: parts}
	return result, nil
}

func mediaPart(attachment Attachment) (ai.ContentPart, error) {
	if len(attachment.Data) == 0 {
		if attachment.URI != "" {
			return ai.NewFileURIPart(attachment.URI, attachment.MimeType), nil
		}
		return ai.ContentPart{}, fmt.Errorf("%s attachment has neither data nor URI", attachment.Kind)
	}

	mimeType := attachmentMimeType(attachment)
	encoded := base64.StdEncoding.EncodeToString(attachment.Data)

	if attachment.Kind == AttachmentDocument {
		fileName := attachment.FileName
		if fileName == "" {
			fileName = "document"
		}
		return openai.NewUploadMarkerPart(encoded, mimeType, fileName), nil
	}
	return ai.NewInlineDataPart(encoded, mimeType), nil
}

func attachmentMimeType(attachment Attachment) string {
	if mimeType := strings.TrimSpace(attachment.MimeType); mimeType != "" {
		return mimeType
	}
	if attachment.Kind == AttachmentBitmap {
		return bitmapMimeType
	}
	if attachment.Kind == AttachmentDocument && attachment.FileName != "" {
		if mimeType := openai.MimeTypeForFileName(attachment.FileName); mimeType != ai.DefaultInlineMimeType {
			return mimeType
		}
	}

	sniffed := http.DetectContentType(attachment.Data)
	if index := strings.Index(sniffed, ";"); index >= 0 {
		sniffed = sniffed[:index]
	}
	return sniffed
}

// documentText returns the delimited text of a document. Extraction failures
// are logged and replaced by a short notice so the request still goes out.
func documentText(ctx context.Context, attachment Attachment, extractor DocumentExtractor) string {
	name := attachment.FileName
	if name == "" {
		name = "document"
	}

	var text string
	var err error
	switch {
	case extractor != nil:
		text, err = extractor.Extract(ctx, attachment)
	case strings.HasPrefix(attachmentMimeType(attachment), "text/"):
		text = string(attachment.Data)
	default:
		err = fmt.Errorf("no extractor for %s", attachmentMimeType(attachment))
	}

	if err != nil {
		observability.ObserverFromContext(ctx).Warn(ctx, "document extraction failed",
			observability.String("file.name", name),
			observability.Error(err),
		)
		text = fmt.Sprintf("[Unable to read %s]", name)
	}

	return fmt.Sprintf("%s%s ---\n%s\n--- End of Document ---", ai.DocumentHeaderPrefix, name, strings.TrimSpace(text))
}
