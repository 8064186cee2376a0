package util

import (
	"testing"

	"golang.org/x/text/encoding/simplifiedchinese"
	"golang.org/x/text/encoding/traditionalchinese"
	"golang.org/x/text/encoding/unicode"
)

func TestDecodeText(t *testing.T) {
	const sample = "第一章 开始\n这是正文。"

	gbk, err := simplifiedchinese.GB18030.NewEncoder().String(sample)
	if err != nil {
		t.Fatalf("encode gb18030: %v", err)
	}
	utf16, err := unicode.UTF16(unicode.LittleEndian, unicode.UseBOM).NewEncoder().String("Chapter 1\nHello")
	if err != nil {
		t.Fatalf("encode utf16: %v", err)
	}
	big5, err := traditionalchinese.Big5.NewEncoder().String("繁體")
	if err != nil {
		t.Fatalf("encode big5: %v", err)
	}

	tests := []struct {
		name string
		in   []byte
		want string
	}{
		{"empty", nil, ""},
		{"utf8", []byte(sample), sample},
		{"utf8 bom", append([]byte{0xEF, 0xBB, 0xBF}, "hi"...), "hi"},
		{"utf16le with bom", []byte(utf16), "Chapter 1\nHello"},
		{"gb18030", []byte(gbk), sample},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := DecodeText(tt.in); got != tt.want {
				t.Errorf("DecodeText() = %q, want %q", got, tt.want)
			}
		})
	}

	t.Run("big5 bytes decode to something", func(t *testing.T) {
		if got := DecodeText([]byte(big5)); got == "" {
			t.Error("DecodeText() returned empty string for big5 input")
		}
	})
}

func TestLooksLikeUTF16LE(t *testing.T) {
	if !looksLikeUTF16LE([]byte{'a', 0, 'b', 0}) {
		t.Error("expected ASCII UTF-16LE to be detected")
	}
	if looksLikeUTF16LE([]byte("plain ascii!")) {
		t.Error("plain ASCII should not look like UTF-16LE")
	}
	if looksLikeUTF16LE([]byte{'a', 0, 'b'}) {
		t.Error("odd length input should not look like UTF-16LE")
	}
}
