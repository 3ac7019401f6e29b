package ogc

import (
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/paulmach/orb"
	"golang.org/x/net/html/charset"

	"github.com/mohammed-shakir/wcs-downloader/internal/core/model"
	"github.com/mohammed-shakir/wcs-downloader/internal/core/wcserr"
)

// XML namespaces of WCS 2.0 capabilities documents.
const (
	NamespaceWCS = "http://www.opengis.net/wcs/2.0"
	NamespaceOWS = "http://www.opengis.net/ows/2.0"
)

type capabilitiesDoc struct {
	XMLName  xml.Name `xml:"http://www.opengis.net/wcs/2.0 Capabilities"`
	Contents struct {
		Summaries []coverageSummary `xml:"http://www.opengis.net/wcs/2.0 CoverageSummary"`
	} `xml:"http://www.opengis.net/wcs/2.0 Contents"`
}

type coverageSummary struct {
	CoverageID *string    `xml:"http://www.opengis.net/wcs/2.0 CoverageId"`
	BBox       *wgs84BBox `xml:"http://www.opengis.net/ows/2.0 WGS84BoundingBox"`
}

type wgs84BBox struct {
	LowerCorner *string `xml:"http://www.opengis.net/ows/2.0 LowerCorner"`
	UpperCorner *string `xml:"http://www.opengis.net/ows/2.0 UpperCorner"`
}

type exceptionReport struct {
	Exceptions []struct {
		Code    string   `xml:"exceptionCode,attr"`
		Locator string   `xml:"locator,attr"`
		Text    []string `xml:"http://www.opengis.net/ows/2.0 ExceptionText"`
	} `xml:"http://www.opengis.net/ows/2.0 Exception"`
}

// ParseCapabilities decodes a WCS 2.0 capabilities document and returns its
// coverage summaries in document order.
func ParseCapabilities(r io.Reader) ([]model.CoverageDescriptor, error) {
	dec := xml.NewDecoder(r)
	dec.CharsetReader = charset.NewReaderLabel

	root, err := rootElement(dec)
	if err != nil {
		return nil, err
	}

	switch root.Name {
	case xml.Name{Space: NamespaceWCS, Local: "Capabilities"}:
	case xml.Name{Space: NamespaceOWS, Local: "ExceptionReport"}:
		return nil, decodeException(dec, root)
	default:
		return nil, wcserr.Errorf(wcserr.ErrParse, "unexpected root element {%s}%s", root.Name.Space, root.Name.Local)
	}

	var doc capabilitiesDoc
	if err := dec.DecodeElement(&doc, &root); err != nil {
		return nil, wcserr.Wrapf(wcserr.ErrParse, err, "decode capabilities")
	}

	out := make([]model.CoverageDescriptor, 0, len(doc.Contents.Summaries))
	for i, s := range doc.Contents.Summaries {
		d, err := s.descriptor()
		if err != nil {
			return nil, wcserr.Wrapf(wcserr.ErrParse, err, "coverage summary %d", i)
		}
		out = append(out, d)
	}
	return out, nil
}

func rootElement(dec *xml.Decoder) (xml.StartElement, error) {
	for {
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			return xml.StartElement{}, wcserr.Errorf(wcserr.ErrParse, "empty capabilities document")
		}
		if err != nil {
			return xml.StartElement{}, wcserr.Wrapf(wcserr.ErrParse, err, "read capabilities")
		}
		if se, ok := tok.(xml.StartElement); ok {
			return se, nil
		}
	}
}

func decodeException(dec *xml.Decoder, root xml.StartElement) error {
	var rep exceptionReport
	if err := dec.DecodeElement(&rep, &root); err != nil {
		return wcserr.Wrapf(wcserr.ErrParse, err, "decode exception report")
	}
	if len(rep.Exceptions) == 0 {
		return wcserr.Errorf(wcserr.ErrParse, "service returned an empty exception report")
	}
	ex := rep.Exceptions[0]
	msg := strings.TrimSpace(strings.Join(ex.Text, " "))
	if ex.Locator != "" {
		return wcserr.Errorf(wcserr.ErrParse, "service exception %s (locator %s): %s", ex.Code, ex.Locator, msg)
	}
	return wcserr.Errorf(wcserr.ErrParse, "service exception %s: %s", ex.Code, msg)
}

func (s coverageSummary) descriptor() (model.CoverageDescriptor, error) {
	if s.CoverageID == nil || strings.TrimSpace(*s.CoverageID) == "" {
		return model.CoverageDescriptor{}, fmt.Errorf("missing CoverageId")
	}
	d := model.CoverageDescriptor{ID: strings.TrimSpace(*s.CoverageID)}
	if s.BBox == nil {
		return d, nil
	}

	var err error
	if d.LowerCorner, err = parseCorner(s.BBox.LowerCorner); err != nil {
		return model.CoverageDescriptor{}, fmt.Errorf("%s LowerCorner: %w", d.ID, err)
	}
	if d.UpperCorner, err = parseCorner(s.BBox.UpperCorner); err != nil {
		return model.CoverageDescriptor{}, fmt.Errorf("%s UpperCorner: %w", d.ID, err)
	}
	return d, nil
}

// "lon lat" -> point; nil text means the corner is absent
func parseCorner(text *string) (*orb.Point, error) {
	if text == nil {
		return nil, nil
	}
	fields := strings.Fields(*text)
	if len(fields) != 2 {
		return nil, fmt.Errorf("want 2 coordinates, got %d in %q", len(fields), *text)
	}
	var p orb.Point
	for i, f := range fields {
		v, err := strconv.ParseFloat(f, 64)
		if err != nil {
			return nil, fmt.Errorf("coordinate %q: %w", f, err)
		}
		p[i] = v
	}
	return &p, nil
}
