package parser

import (
	"archive/zip"
	"bytes"
	"encoding/base64"
	"io"
	"sort"
	"testing"
	"time"
)

// 1x1 PNG
const testPNG = "iVBORw0KGgoAAAANSUhEUgAAAAEAAAABCAQAAAC1HAwCAAAAC0lEQVR42mNkYAAAAAYAAjCB0C8AAAAASUVORK5CYII="

// buildTestZip creates an in-memory ZIP archive from path → content
func buildTestZip(t *testing.T, files map[string]string) []byte {
	t.Helper()
	buf := new(bytes.Buffer)
	zw := zip.NewWriter(buf)

	names := make([]string, 0, len(files))
	for name := range files {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		fw, err := zw.Create(name)
		if err != nil {
			t.Fatalf("buildTestZip: create %s: %v", name, err)
		}
		if _, err := io.WriteString(fw, files[name]); err != nil {
			t.Fatalf("buildTestZip: write %s: %v", name, err)
		}
	}
	if err := zw.Close(); err != nil {
		t.Fatalf("buildTestZip: close writer: %v", err)
	}
	return buf.Bytes()
}

func epubSource(t *testing.T, name string, files map[string]string) Source {
	t.Helper()
	return NewBytesSource(name, "application/epub+zip", time.Now(), buildTestZip(t, files))
}

func testPNGBytes() string {
	data, _ := base64.StdEncoding.DecodeString(testPNG)
	return string(data)
}

const testContainer = `<?xml version="1.0"?>
<container version="1.0" xmlns="urn:oasis:names:tc:opendocument:xmlns:container">
  <rootfiles>
    <rootfile full-path="OEBPS/content.opf" media-type="application/oebps-package+xml"/>
  </rootfiles>
</container>`

const testOPF3 = `<?xml version="1.0" encoding="UTF-8"?>
<package xmlns="http://www.idpf.org/2007/opf" version="3.0" unique-identifier="bookid">
  <metadata xmlns:dc="http://purl.org/dc/elements/1.1/">
    <dc:title>三体</dc:title>
    <dc:creator>刘慈欣</dc:creator>
    <dc:identifier id="other">urn:uuid:1234</dc:identifier>
    <dc:identifier id="bookid">9787536692930</dc:identifier>
    <dc:language>zh-CN</dc:language>
    <dc:publisher>重庆出版社</dc:publisher>
    <dc:date>2008-01-01</dc:date>
    <dc:description>&lt;p&gt;地球往事&lt;/p&gt;</dc:description>
  </metadata>
  <manifest>
    <item id="nav" href="nav.xhtml" media-type="application/xhtml+xml" properties="nav"/>
    <item id="c1" href="text/ch1.xhtml" media-type="application/xhtml+xml"/>
    <item id="c2" href="text/ch2.xhtml" media-type="application/xhtml+xml"/>
    <item id="c3" href="text/ch3.xhtml" media-type="application/xhtml+xml"/>
    <item id="img" href="images/cover.png" media-type="image/png" properties="cover-image"/>
  </manifest>
  <spine>
    <itemref idref="c1"/>
    <itemref idref="c2"/>
    <itemref idref="c3"/>
  </spine>
</package>`

const testNav = `<?xml version="1.0" encoding="UTF-8"?>
<html xmlns="http://www.w3.org/1999/xhtml" xmlns:epub="http://www.idpf.org/2007/ops">
<body>
  <nav epub:type="toc">
    <ol>
      <li><a href="text/ch1.xhtml">第一部</a>
        <ol>
          <li><a href="text/ch2.xhtml#s1">科学边界</a></li>
          <li><a href="missing.xhtml"> </a></li>
        </ol>
      </li>
      <li><a href="text/ch3.xhtml">第三章</a></li>
    </ol>
  </nav>
</body>
</html>`

const testChapter1 = `<?xml version="1.0" encoding="UTF-8"?>
<html xmlns="http://www.w3.org/1999/xhtml">
<head><title>c1</title><link rel="stylesheet" href="../style.css"/><style>p{}</style></head>
<body>
  <h1 onclick="steal()">第一部</h1>
  <script>alert(1)</script>
  <p>汪淼觉得，来找他的这四个人是一个奇怪的组合。</p>
  <a href="javascript:alert(1)">bad</a>
  <a href="ch2.xhtml">next</a>
  <img src="../images/cover.png" alt="cover"/>
</body>
</html>`

const testChapterEmpty = `<html xmlns="http://www.w3.org/1999/xhtml"><body>   </body></html>`

func testEPUB3Files() map[string]string {
	return map[string]string{
		"mimetype":               "application/epub+zip",
		"META-INF/container.xml": testContainer,
		"OEBPS/content.opf":      testOPF3,
		"OEBPS/nav.xhtml":        testNav,
		"OEBPS/text/ch1.xhtml":   testChapter1,
		"OEBPS/text/ch2.xhtml":   `<html><body><p id="s1">第二章</p></body></html>`,
		"OEBPS/text/ch3.xhtml":   testChapterEmpty,
		"OEBPS/images/cover.png": testPNGBytes(),
	}
}

const testOPF2 = `<?xml version="1.0" encoding="UTF-8"?>
<package xmlns="http://www.idpf.org/2007/opf" version="2.0">
  <metadata xmlns:dc="http://purl.org/dc/elements/1.1/">
    <dc:title>Old &mdash; Book</dc:title>
  </metadata>
  <manifest>
    <item id="ncx" href="toc.ncx" media-type="application/x-dtbncx+xml"/>
    <item id="a" href="a.html" media-type="application/xhtml+xml"/>
    <item id="b" href="b.html" media-type="application/xhtml+xml"/>
  </manifest>
  <spine toc="ncx">
    <itemref idref="a"/>
    <itemref idref="b"/>
  </spine>
</package>`

const testNCX = `<?xml version="1.0" encoding="UTF-8"?>
<ncx xmlns="http://www.daisy.org/z3986/2005/ncx/" version="2005-1">
  <navMap>
    <navPoint id="np1" playOrder="1">
      <navLabel><text>Part A</text></navLabel>
      <content src="a.html"/>
    </navPoint>
    <navPoint id="np2" playOrder="2">
      <navLabel><text>Part B</text></navLabel>
      <content src="b.html#top"/>
    </navPoint>
  </navMap>
</ncx>`
