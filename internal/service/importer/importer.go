// Package importer 把上传的文档转换为纯文本
package importer

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/ledongthuc/pdf"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"
)

var (
	ErrUnsupportedType = errors.New("unsupported file type")
	ErrTooLarge        = errors.New("file exceeds the import size limit")
	ErrEmptyDocument   = errors.New("document contains no text")
)

// DefaultMaxBytes 10 MiB
const DefaultMaxBytes int64 = 10 << 20

type Importer struct {
	maxBytes int64
	logger   *zap.Logger
}

func New(maxBytes int64, logger *zap.Logger) *Importer {
	if maxBytes <= 0 {
		maxBytes = DefaultMaxBytes
	}
	return &Importer{maxBytes: maxBytes, logger: logger}
}

// Supported 判断扩展名是否可以导入
func Supported(filename string) bool {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".pdf", ".xlsx", ".csv", ".txt", ".md":
		return true
	}
	return false
}

// Extract 按扩展名提取纯文本
func (im *Importer) Extract(filename string, r io.Reader) (string, error) {
	if !Supported(filename) {
		return "", fmt.Errorf("%w: %q", ErrUnsupportedType, filepath.Ext(filename))
	}

	data, err := io.ReadAll(io.LimitReader(r, im.maxBytes+1))
	if err != nil {
		return "", fmt.Errorf("read upload: %w", err)
	}
	if int64(len(data)) > im.maxBytes {
		return "", ErrTooLarge
	}

	var text string
	switch ext := strings.ToLower(filepath.Ext(filename)); ext {
	case ".pdf":
		text, err = extractPDF(data)
	case ".xlsx":
		text, err = extractXLSX(data)
	case ".csv":
		text, err = extractCSV(data)
	default:
		text = string(data)
	}
	if err != nil {
		im.logger.Warn("Failed to extract document",
			zap.String("filename", filename),
			zap.Error(err),
		)
		return "", err
	}

	text = strings.TrimSpace(text)
	if text == "" {
		return "", ErrEmptyDocument
	}

	im.logger.Info("Document extracted",
		zap.String("filename", filename),
		zap.Int("bytes", len(data)),
		zap.Int("chars", len(text)),
	)
	return text, nil
}

func extractPDF(data []byte) (string, error) {
	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("open pdf: %w", err)
	}
	plain, err := reader.GetPlainText()
	if err != nil {
		return "", fmt.Errorf("read pdf text: %w", err)
	}
	var buf bytes.Buffer
	if _, err := buf.ReadFrom(plain); err != nil {
		return "", fmt.Errorf("read pdf text: %w", err)
	}
	return buf.String(), nil
}

// extractXLSX 每个工作表输出一个标题行，每行单元格用 tab 分隔
func extractXLSX(data []byte) (string, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return "", fmt.Errorf("open xlsx: %w", err)
	}
	defer f.Close()

	var sb strings.Builder
	for _, sheet := range f.GetSheetList() {
		rows, err := f.GetRows(sheet)
		if err != nil {
			return "", fmt.Errorf("read sheet %q: %w", sheet, err)
		}
		if len(rows) == 0 {
			continue
		}
		fmt.Fprintf(&sb, "## %s\n", sheet)
		for _, row := range rows {
			sb.WriteString(strings.Join(row, "\t"))
			sb.WriteString("\n")
		}
		sb.WriteString("\n")
	}
	return sb.String(), nil
}

func extractCSV(data []byte) (string, error) {
	cr := csv.NewReader(bytes.NewReader(data))
	cr.FieldsPerRecord = -1
	records, err := cr.ReadAll()
	if err != nil {
		return "", fmt.Errorf("parse csv: %w", err)
	}
	var sb strings.Builder
	for _, rec := range records {
		sb.WriteString(strings.Join(rec, "\t"))
		sb.WriteString("\n")
	}
	return sb.String(), nil
}
