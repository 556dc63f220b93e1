package entity

// RawDocument is the input to one pipeline run. FilenameHint is informational
// only; the content type is always sniffed from Bytes.
type RawDocument struct {
	Bytes        []byte
	FilenameHint string
}

// PageText is the text of one document page.
type PageText struct {
	Index  int    `json:"index"`
	Text   string `json:"text"`
	Length int    `json:"length"`
}

// NewPageText builds a PageText with its length filled in.
func NewPageText(index int, text string) PageText {
	return PageText{Index: index, Text: text, Length: len([]rune(text))}
}

// JoinPages concatenates page texts with form feeds, the same page separator
// pdftotext uses.
func JoinPages(pages []PageText) string {
	n := 0
	for _, p := range pages {
		n += len(p.Text) + 1
	}
	buf := make([]byte, 0, n)
	for i, p := range pages {
		if i > 0 {
			buf = append(buf, '\f')
		}
		buf = append(buf, p.Text...)
	}
	return string(buf)
}
