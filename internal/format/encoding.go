package format

import (
	"fmt"
	"strings"

	"golang.org/x/text/encoding/simplifiedchinese"
	"golang.org/x/text/transform"
)

// encodeText transcodes UTF-8 content into the named output encoding.
func encodeText(content []byte, encoding string) ([]byte, error) {
	switch strings.ToLower(encoding) {
	case "", "utf-8", "utf8":
		return content, nil
	case "gbk":
		out, _, err := transform.Bytes(simplifiedchinese.GBK.NewEncoder(), content)
		return out, err
	case "gb18030":
		out, _, err := transform.Bytes(simplifiedchinese.GB18030.NewEncoder(), content)
		return out, err
	default:
		return nil, fmt.Errorf("unsupported output encoding %q", encoding)
	}
}
