package rtms

import (
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/UnknownOlympus/realty-atlas/internal/models"
	"golang.org/x/text/encoding/htmlindex"
)

// successCodes are the header result codes the API reports for a successful call.
var successCodes = map[string]bool{"00": true, "000": true, "0000": true}

// ErrMalformedResponse is returned when the body is not a transaction API envelope.
var ErrMalformedResponse = errors.New("malformed RTMS response")

type envelope struct {
	XMLName xml.Name `xml:"response"`
	Header  struct {
		ResultCode string `xml:"resultCode"`
		ResultMsg  string `xml:"resultMsg"`
	} `xml:"header"`
	Body struct {
		TotalCount string `xml:"totalCount"`
		Items      struct {
			Item []rawItem `xml:"item"`
		} `xml:"items"`
	} `xml:"body"`
}

// rawItem collects the child elements of one <item> into a map.
type rawItem models.RawItem

func (ri *rawItem) UnmarshalXML(dec *xml.Decoder, _ xml.StartElement) error {
	item := make(models.RawItem)
	for {
		tok, err := dec.Token()
		if err != nil {
			return fmt.Errorf("failed to read item token: %w", err)
		}

		switch elem := tok.(type) {
		case xml.StartElement:
			var value string
			if err = dec.DecodeElement(&value, &elem); err != nil {
				return fmt.Errorf("failed to decode item field %s: %w", elem.Name.Local, err)
			}
			if value = strings.TrimSpace(value); value != "" {
				item[elem.Name.Local] = value
			}
		case xml.EndElement:
			*ri = rawItem(item)
			return nil
		}
	}
}

// page is one decoded response page.
type page struct {
	code       string
	message    string
	items      []models.RawItem
	totalCount int
}

func (p page) ok() bool {
	return p.code == "" || successCodes[p.code]
}

// decodePage parses a response body. A missing or unparsable totalCount is treated as 0.
func decodePage(body []byte) (page, error) {
	dec := xml.NewDecoder(bytes.NewReader(body))
	dec.CharsetReader = func(charset string, input io.Reader) (io.Reader, error) {
		enc, err := htmlindex.Get(charset)
		if err != nil {
			return nil, fmt.Errorf("unsupported charset %q: %w", charset, err)
		}
		return enc.NewDecoder().Reader(input), nil
	}

	var env envelope
	if err := dec.Decode(&env); err != nil {
		return page{}, fmt.Errorf("%w: %w", ErrMalformedResponse, err)
	}

	total, err := strconv.Atoi(strings.TrimSpace(env.Body.TotalCount))
	if err != nil {
		total = 0
	}

	items := make([]models.RawItem, 0, len(env.Body.Items.Item))
	for _, it := range env.Body.Items.Item {
		items = append(items, models.RawItem(it))
	}

	return page{
		code:       strings.TrimSpace(env.Header.ResultCode),
		message:    strings.TrimSpace(env.Header.ResultMsg),
		items:      items,
		totalCount: total,
	}, nil
}
