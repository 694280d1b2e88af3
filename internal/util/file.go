package util

import (
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"strings"
)

// AllowedExtensions 返回上传类型允许的扩展名
func AllowedExtensions(kind string) ([]string, error) {
	switch kind {
	case UploadDocument:
		return AllowedDocumentExtensions, nil
	case UploadAudio:
		return AllowedAudioExtensions, nil
	}
	return nil, ErrUnsupportedUpload
}

// ValidateUploadName 校验文件扩展名是否属于该上传类型
func ValidateUploadName(kind, filename string) error {
	allowed, err := AllowedExtensions(kind)
	if err != nil {
		return err
	}
	ext := strings.ToLower(filepath.Ext(filename))
	for _, a := range allowed {
		if ext == a {
			return nil
		}
	}
	return fmt.Errorf("%w: extension %q is not allowed for %s", ErrUnsupportedUpload, ext, kind)
}

// SniffContentType 读取前 512 字节探测 MIME 类型，返回可继续读取完整内容的 reader
func SniffContentType(r io.Reader) (string, io.Reader, error) {
	buffer := make([]byte, 512)
	n, err := io.ReadFull(r, buffer)
	if err != nil && err != io.EOF && err != io.ErrUnexpectedEOF {
		return "", nil, err
	}
	head := buffer[:n]
	return http.DetectContentType(head), io.MultiReader(strings.NewReader(string(head)), r), nil
}
