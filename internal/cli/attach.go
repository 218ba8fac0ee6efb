package cli

import (
	"fmt"
	"mime"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/leofalp/directchat/core/preprocess"
	"github.com/leofalp/directchat/providers/ai"
	"github.com/leofalp/directchat/providers/ai/openai"
)

// loadAttachments reads the --attach arguments. http(s) URLs are attached as
// remote images; everything else is read from disk.
func loadAttachments(paths []string) ([]preprocess.Attachment, error) {
	attachments := make([]preprocess.Attachment, 0, len(paths))
	for _, path := range paths {
		attachment, err := loadAttachment(path)
		if err != nil {
			return nil, err
		}
		attachments = append(attachments, attachment)
	}
	return attachments, nil
}

func loadAttachment(path string) (preprocess.Attachment, error) {
	if strings.HasPrefix(path, "http://") || strings.HasPrefix(path, "https://") {
		return preprocess.Attachment{Kind: preprocess.AttachmentImage, URI: path}, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return preprocess.Attachment{}, fmt.Errorf("failed to read attachment: %w", err)
	}
	name := filepath.Base(path)

	if mimeType := openai.MimeTypeForFileName(name); mimeType != ai.DefaultInlineMimeType {
		return preprocess.Attachment{Kind: preprocess.AttachmentDocument, Data: data, MimeType: mimeType, FileName: name}, nil
	}

	mimeType := mime.TypeByExtension(filepath.Ext(name))
	if mimeType == "" {
		mimeType = http.DetectContentType(data)
	}
	if index := strings.Index(mimeType, ";"); index >= 0 {
		mimeType = mimeType[:index]
	}

	kind := preprocess.AttachmentFile
	switch {
	case strings.HasPrefix(mimeType, "image/"):
		kind = preprocess.AttachmentImage
	case strings.HasPrefix(mimeType, "audio/"):
		kind = preprocess.AttachmentAudio
	case strings.HasPrefix(mimeType, "text/"):
		kind = preprocess.AttachmentDocument
	}
	return preprocess.Attachment{Kind: kind, Data: data, MimeType: mimeType, FileName: name}, nil
}
