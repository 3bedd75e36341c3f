package bridge

import (
	"encoding/xml"
	"fmt"
	"io"
	"strings"
)

// The call-setup document tells the telephony provider to speak a short
// greeting while it opens the media stream back to the bridge.

type twimlResponse struct {
	XMLName xml.Name     `xml:"Response"`
	Say     string       `xml:"Say,omitempty"`
	Connect twimlConnect `xml:"Connect"`
}

type twimlConnect struct {
	Stream twimlStream `xml:"Stream"`
}

type twimlStream struct {
	URL string `xml:"url,attr"`
}

// BuildCallSetupDocument renders the document pointing the provider's media
// stream at streamURL. The stream token rides in the URL; the provider echoes
// it back on the websocket handshake.
func BuildCallSetupDocument(greeting, streamURL string) (string, error) {
	doc := twimlResponse{
		Say:     greeting,
		Connect: twimlConnect{Stream: twimlStream{URL: streamURL}},
	}

	body, err := xml.Marshal(doc)
	if err != nil {
		return "", fmt.Errorf("render call-setup document: %w", err)
	}

	rendered := xml.Header + string(body)
	if err := ValidateCallSetupDocument(rendered); err != nil {
		return "", err
	}
	return rendered, nil
}

// ValidateCallSetupDocument confirms the document is well-formed XML with a
// present, closed Response root. The provider silently drops malformed
// documents, which strands the call, so this runs before every use.
func ValidateCallSetupDocument(doc string) error {
	if strings.TrimSpace(doc) == "" {
		return fmt.Errorf("call-setup document is empty")
	}

	decoder := xml.NewDecoder(strings.NewReader(doc))
	depth := 0
	sawRoot := false
	for {
		tok, err := decoder.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return fmt.Errorf("call-setup document is not well-formed: %w", err)
		}

		switch t := tok.(type) {
		case xml.StartElement:
			if depth == 0 {
				if sawRoot {
					return fmt.Errorf("call-setup document has multiple roots")
				}
				if t.Name.Local != "Response" {
					return fmt.Errorf("call-setup document root is %q, want Response", t.Name.Local)
				}
				sawRoot = true
			}
			depth++
		case xml.EndElement:
			depth--
		}
	}

	if !sawRoot {
		return fmt.Errorf("call-setup document has no root element")
	}
	if depth != 0 {
		return fmt.Errorf("call-setup document root is not closed")
	}
	return nil
}
