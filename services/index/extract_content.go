package index

import (
	"encoding/xml"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"rummage/db/searchdb"
)

// Read file with size limit to prevent memory issues
const maxFileSize = 10 * 1024 * 1024 // 10MB limit

var markupExtensions = map[string]bool{
	".xml": true, ".xhtml": true, ".html": true, ".htm": true,
}

var textExtensions = map[string]bool{
	".txt": true, ".md": true, ".go": true, ".js": true, ".ts": true,
	".py": true, ".java": true, ".cpp": true, ".c": true, ".h": true,
	".css": true, ".json": true, ".yaml": true, ".yml": true,
	".ini": true, ".conf": true, ".toml": true, ".rs": true, ".rb": true,
	".sh": true, ".sql": true, ".csv": true, ".tsv": true, ".log": true,
	".glsl": true, ".tex": true,
}

func isSupportedFile(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	return markupExtensions[ext] || textExtensions[ext]
}

func extractContent(fileInfo FileInfo) (searchdb.Document, error) {
	doc := searchdb.Document{
		Path:    fileInfo.Path,
		Name:    fileInfo.Name,
		Size:    fileInfo.Size,
		ModTime: fileInfo.ModTime,
	}

	ext := strings.ToLower(filepath.Ext(fileInfo.Path))

	var content string
	var err error
	switch {
	case ext == ".html" || ext == ".htm":
		content, err = readHTMLFile(fileInfo.Path)
	case markupExtensions[ext]:
		content, err = readXMLFile(fileInfo.Path)
	default:
		content, err = readTextFile(fileInfo.Path)
	}
	if err != nil {
		return searchdb.Document{}, err
	}

	doc.Content = content
	return doc, nil
}

// readXMLFile keeps only character data, dropping tags and attributes.
func readXMLFile(path string) (string, error) {
	file, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer file.Close()

	decoder := xml.NewDecoder(io.LimitReader(file, maxFileSize))
	decoder.Strict = false
	decoder.AutoClose = xml.HTMLAutoClose
	decoder.Entity = xml.HTMLEntity

	var content strings.Builder
	for {
		token, err := decoder.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return "", err
		}
		if chardata, ok := token.(xml.CharData); ok {
			content.Write(chardata)
			content.WriteByte(' ')
		}
	}

	return content.String(), nil
}

func readHTMLFile(path string) (string, error) {
	file, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer file.Close()

	doc, err := goquery.NewDocumentFromReader(io.LimitReader(file, maxFileSize))
	if err != nil {
		return "", err
	}
	doc.Find("script, style").Remove()

	return doc.Text(), nil
}

func readTextFile(path string) (string, error) {
	file, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer file.Close()

	stat, err := file.Stat()
	if err != nil {
		return "", err
	}

	if stat.Size() > maxFileSize {
		// For large files, read only first portion
		buffer := make([]byte, maxFileSize)
		n, err := file.Read(buffer)
		if err != nil && err != io.EOF {
			return "", err
		}
		return string(buffer[:n]), nil
	}

	content, err := io.ReadAll(file)
	if err != nil {
		return "", err
	}

	return string(content), nil
}
