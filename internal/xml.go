package internal

import (
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strings"

	"wxpay/entity"
)

// EncodeXML renders params as the flat <xml> document the gateway expects,
// fields in key order, values wrapped in CDATA.
func EncodeXML(params entity.Parameters) []byte {
	var buf bytes.Buffer
	buf.WriteString("<xml>")
	for _, k := range params.Keys() {
		buf.WriteByte('<')
		buf.WriteString(k)
		buf.WriteString("><![CDATA[")
		buf.WriteString(strings.ReplaceAll(params[k], "]]>", "]]]]><![CDATA[>"))
		buf.WriteString("]]></")
		buf.WriteString(k)
		buf.WriteByte('>')
	}
	buf.WriteString("</xml>")
	return buf.Bytes()
}

// DecodeXML reads a flat <xml> document into parameters. Nested elements are
// not part of the protocol and are rejected.
func DecodeXML(data []byte) (entity.Parameters, error) {
	decoder := xml.NewDecoder(bytes.NewReader(data))
	params := entity.Parameters{}

	depth := 0
	root := false
	var key string
	var value strings.Builder
	for {
		token, err := decoder.Token()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("decode xml: %w", err)
		}
		switch t := token.(type) {
		case xml.StartElement:
			depth++
			switch depth {
			case 1:
				if t.Name.Local != "xml" {
					return nil, fmt.Errorf("decode xml: unexpected root element %s", t.Name.Local)
				}
				root = true
			case 2:
				key = t.Name.Local
				value.Reset()
			default:
				return nil, fmt.Errorf("decode xml: nested element %s in %s", t.Name.Local, key)
			}
		case xml.CharData:
			if depth == 2 {
				value.Write(t)
			}
		case xml.EndElement:
			if depth == 2 {
				params[key] = value.String()
			}
			depth--
		}
	}
	if !root || depth != 0 {
		return nil, errors.New("decode xml: unexpected end of document")
	}
	return params, nil
}

// Acknowledge renders the reply the gateway expects for a notification.
func Acknowledge(err error) []byte {
	if err == nil {
		return EncodeXML(entity.Parameters{
			entity.FieldReturnCode: entity.StatusSuccess,
			entity.FieldReturnMsg:  "OK",
		})
	}
	return EncodeXML(entity.Parameters{
		entity.FieldReturnCode: entity.StatusFail,
		entity.FieldReturnMsg:  err.Error(),
	})
}
