package util

import (
	"encoding/base64"
	"strings"
	"testing"
)

// 1x1 PNG
const tinyPNG = "iVBORw0KGgoAAAANSUhEUgAAAAEAAAABCAQAAAC1HAwCAAAAC0lEQVR42mNkYAAAAAYAAjCB0C8AAAAASUVORK5CYII="

func TestGenerateThumbnail(t *testing.T) {
	pngData, _ := base64.StdEncoding.DecodeString(tinyPNG)

	t.Run("Success case", func(t *testing.T) {
		thumb, err := GenerateThumbnail(pngData)
		if err != nil {
			t.Fatalf("GenerateThumbnail failed with valid data: %v", err)
		}
		if !strings.HasPrefix(thumb, "data:image/jpeg;base64,") {
			t.Errorf("Generated thumbnail is not a data URI: %s", thumb)
		}
	})

	t.Run("Invalid data", func(t *testing.T) {
		if _, err := GenerateThumbnail([]byte("not an image")); err == nil {
			t.Error("GenerateThumbnail should fail on invalid data")
		}
	})
}
