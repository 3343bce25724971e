package eventtype

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"io"
	"os"
)

// eventTypeXML mirrors the on-disk <EventType> element schema.
// encoding/xml decodes CDATA sections as ordinary character data, so
// reading accepts either CDATA-wrapped or plain element text transparently.
type eventTypeXML struct {
	XMLName xml.Name `xml:"EventType"`

	Name        string `xml:"Name"`
	Description string `xml:"Description"`

	RexFilename  string `xml:"RexFilename"`
	RexText      string `xml:"RexText"`
	RexTimestamp string `xml:"RexTimestamp"`

	MultilineCount   *int   `xml:"MultilineCount"`
	CaseSensitive    string `xml:"CaseSensitive"`
	DisplayOnMatch   string `xml:"DisplayOnMatch"`
	DisplayIfChanged string `xml:"DisplayIfChanged"`

	ExecOnInit   string `xml:"ExecOnInit"`
	ExecOnMatch  string `xml:"ExecOnMatch"`
	ExecOnWrapup string `xml:"ExecOnWrapup"`
}

type regulogXML struct {
	XMLName    xml.Name       `xml:"Regulog"`
	EventTypes []eventTypeXML `xml:"EventType"`
}

// LoadRegistryXML reads event-type definitions from an XML document shaped
// as <Regulog><EventType>...</EventType>...</Regulog>.
func LoadRegistryXML(r io.Reader) (*Registry, error) {
	var doc regulogXML
	if err := xml.NewDecoder(r).Decode(&doc); err != nil {
		return nil, fmt.Errorf("eventtype: parsing event-type XML: %w", err)
	}

	reg := NewRegistry()
	for _, x := range doc.EventTypes {
		if x.Name == "" || x.RexFilename == "" || x.RexText == "" || x.RexTimestamp == "" {
			return nil, fmt.Errorf("eventtype: <EventType> missing a mandatory field (Name/RexFilename/RexText/RexTimestamp)")
		}
		multiline := 1
		if x.MultilineCount != nil {
			multiline = *x.MultilineCount
		}
		et, err := New(Params{
			Name:             x.Name,
			Description:      x.Description,
			RexFilename:      x.RexFilename,
			RexText:          x.RexText,
			RexTimestamp:     x.RexTimestamp,
			MultilineCount:   multiline,
			CaseSensitive:    x.CaseSensitive == "true",
			DisplayOnMatch:   x.DisplayOnMatch,
			DisplayIfChanged: x.DisplayIfChanged == "true",
			ExecOnInit:       x.ExecOnInit,
			ExecOnMatch:      x.ExecOnMatch,
			ExecOnWrapup:     x.ExecOnWrapup,
		})
		if err != nil {
			return nil, err
		}
		reg.Add(et)
	}
	return reg, nil
}

// LoadRegistryXMLFiles reads every file in paths with LoadRegistryXML and
// merges the results, later files winning on name collision.
func LoadRegistryXMLFiles(paths []string) (*Registry, error) {
	merged := NewRegistry()
	for _, p := range paths {
		f, err := os.Open(p)
		if err != nil {
			return nil, fmt.Errorf("eventtype: opening %s: %w", p, err)
		}
		reg, err := LoadRegistryXML(f)
		_ = f.Close()
		if err != nil {
			return nil, fmt.Errorf("eventtype: %s: %w", p, err)
		}
		for _, et := range reg.List() {
			merged.Add(et)
		}
	}
	return merged, nil
}

// WriteRegistryXML writes the registry as XML to path, CDATA-wrapping every
// regex and hook-code element. encoding/xml has no CDATA writer, so the
// document is assembled by hand (see DESIGN.md for why no pack library
// covers this).
func WriteRegistryXML(reg *Registry, path string) error {
	var buf bytes.Buffer
	buf.WriteString("<Regulog xmlns:xsi=\"http://www.w3.org/2001/XMLSchema-instance\" xsi:noNamespaceSchemaLocation=\"regulog.xsd\">\n")
	for _, et := range reg.List() {
		writeEventTypeXML(&buf, et)
	}
	buf.WriteString("</Regulog>\n")

	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("eventtype: writing %s: %w", path, err)
	}
	return nil
}

func writeEventTypeXML(buf *bytes.Buffer, et *EventType) {
	buf.WriteString("  <EventType>\n")
	writePlain(buf, "Name", et.Name)
	writePlain(buf, "Description", et.Description)
	writeCDATA(buf, "RexFilename", et.RexFilename)
	writeCDATA(buf, "RexText", et.RexText)
	writePlain(buf, "MultilineCount", fmt.Sprintf("%d", et.MultilineCount))
	writePlain(buf, "CaseSensitive", boolStr(et.CaseSensitive))
	writeCDATA(buf, "RexTimestamp", et.RexTimestamp)

	if et.DisplayOnMatch != "" {
		writeCDATA(buf, "DisplayOnMatch", et.DisplayOnMatch)
		writePlain(buf, "DisplayIfChanged", boolStr(et.DisplayIfChanged))
	}
	if et.ExecOnInit != "" {
		writeCDATA(buf, "ExecOnInit", et.ExecOnInit)
	}
	if et.ExecOnMatch != "" {
		writeCDATA(buf, "ExecOnMatch", et.ExecOnMatch)
	}
	if et.ExecOnWrapup != "" {
		writeCDATA(buf, "ExecOnWrapup", et.ExecOnWrapup)
	}
	buf.WriteString("  </EventType>\n")
}

func writePlain(buf *bytes.Buffer, tag, value string) {
	var escaped bytes.Buffer
	_ = xml.EscapeText(&escaped, []byte(value))
	fmt.Fprintf(buf, "    <%s>%s</%s>\n", tag, escaped.String(), tag)
}

func writeCDATA(buf *bytes.Buffer, tag, value string) {
	fmt.Fprintf(buf, "    <%s><![CDATA[%s]]></%s>\n", tag, value, tag)
}

func boolStr(b bool) string {
	if b {
		return "true"
	}
	return "false"
}
