// Package export writes matched events to XML and CSV files, one triple of
// files (.xml, .full.xml, .csv) per event type.
//
// encoding/xml has no CDATA-aware encoder, and the full XML form wraps
// every field in CDATA so that raw multi-line log text survives untouched;
// hand-rolling the element writer below is the only way to produce that
// without smuggling a second XML library into the module for one feature.
package export

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/regulogio/regulog/pkg/event"
	"github.com/regulogio/regulog/pkg/store"
)

// compactLeading and compactTrailing mirror sel1/sel2 in Event.toXML(full=False): _timestamp
// comes first, then user fields, then the remaining selected system
// fields.
var compactLeading = []string{event.FieldTimestamp}
var compactTrailing = []string{event.FieldLineNumber, event.FieldSourcePath, event.FieldFlat}

// csvSystemFields mirrors sfsel in EventSet.save.
var csvSystemFields = []string{
	event.FieldTimestamp,
	event.FieldName,
	event.FieldDisplayOnMatch,
	event.FieldChangedFields,
	event.FieldFlat,
}

// Save writes XML/CSV files for every event type holding at least one
// event into outputDir, matching EventSet.save.
func Save(st *store.Store, outputDir string) error {
	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return fmt.Errorf("export: mkdir %s: %w", outputDir, err)
	}

	for _, name := range st.TypeNames() {
		events, _ := st.ByType(name)
		if len(events) == 0 {
			continue
		}

		if err := writeXMLFile(filepath.Join(outputDir, name+".xml"), events, false); err != nil {
			return err
		}
		if err := writeXMLFile(filepath.Join(outputDir, name+".full.xml"), events, true); err != nil {
			return err
		}
		if err := writeCSVFile(filepath.Join(outputDir, name+".csv"), events); err != nil {
			return err
		}
	}
	return nil
}

func writeXMLFile(path string, events []*event.Event, full bool) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("export: create %s: %w", path, err)
	}
	defer f.Close()

	if err := WriteXML(f, events, full); err != nil {
		return fmt.Errorf("export: write %s: %w", path, err)
	}
	return nil
}

func writeCSVFile(path string, events []*event.Event) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("export: create %s: %w", path, err)
	}
	defer f.Close()

	if err := WriteCSV(f, events); err != nil {
		return fmt.Errorf("export: write %s: %w", path, err)
	}
	return nil
}

// WriteXML renders events as <RegulogEvents><Event>...</Event>...
// </RegulogEvents>, matching EventSet.save's XML branch. When full is
// true every field is emitted in alphabetical order wrapped in CDATA;
// otherwise only the compact subset is emitted as plain text.
func WriteXML(w interface{ Write([]byte) (int, error) }, events []*event.Event, full bool) error {
	if _, err := w.Write([]byte("<?xml version='1.0' encoding='utf-8'?>\n<RegulogEvents>\n")); err != nil {
		return err
	}
	for _, ev := range events {
		if _, err := w.Write([]byte("  ")); err != nil {
			return err
		}
		if _, err := w.Write(eventXML(ev, full)); err != nil {
			return err
		}
		if _, err := w.Write([]byte("\n")); err != nil {
			return err
		}
	}
	_, err := w.Write([]byte("</RegulogEvents>\n"))
	return err
}

// eventXML renders a single <Event> element, matching Event.toXML.
func eventXML(ev *event.Event, full bool) []byte {
	var buf bytes.Buffer
	buf.WriteString("<Event>")

	sys := ev.SystemFields()
	user := ev.UserFields()

	if full {
		for _, k := range sortedKeys(sys) {
			writeCDATAElement(&buf, k, sys[k])
		}
		for _, k := range sortedKeys(user) {
			writeCDATAElement(&buf, k, user[k])
		}
	} else {
		for _, k := range compactLeading {
			writeTextElement(&buf, k, sys[k])
		}
		for _, k := range sortedKeys(user) {
			writeTextElement(&buf, k, user[k])
		}
		for _, k := range compactTrailing {
			writeTextElement(&buf, k, sys[k])
		}
	}

	buf.WriteString("</Event>")
	return buf.Bytes()
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func writeTextElement(buf *bytes.Buffer, name, value string) {
	fmt.Fprintf(buf, "<%s>", name)
	xml.EscapeText(buf, []byte(value))
	fmt.Fprintf(buf, "</%s>", name)
}

func writeCDATAElement(buf *bytes.Buffer, name, value string) {
	fmt.Fprintf(buf, "<%s>", name)
	writeCDATA(buf, value)
	fmt.Fprintf(buf, "</%s>", name)
}

// writeCDATA emits value as one or more CDATA sections, splitting on any
// "]]>" substring since that sequence cannot appear inside a CDATA block.
func writeCDATA(buf *bytes.Buffer, value string) {
	const closer = "]]>"
	for {
		idx := strings.Index(value, closer)
		if idx < 0 {
			break
		}
		buf.WriteString("<![CDATA[")
		buf.WriteString(value[:idx+2])
		buf.WriteString("]]>")
		value = value[idx+2:]
	}
	buf.WriteString("<![CDATA[")
	buf.WriteString(value)
	buf.WriteString("]]>")
}

// WriteCSV renders events semicolon-delimited, one header row followed by
// one row per event, matching EventSet.save's CSV branch.
func WriteCSV(w interface{ Write([]byte) (int, error) }, events []*event.Event) error {
	if len(events) == 0 {
		return nil
	}

	userFields := sortedKeys(events[0].UserFields())

	var header bytes.Buffer
	for _, k := range csvSystemFields {
		header.WriteString(k)
		header.WriteByte(';')
	}
	for _, k := range userFields {
		header.WriteString(k)
		header.WriteByte(';')
	}
	header.WriteByte('\n')
	if _, err := w.Write(header.Bytes()); err != nil {
		return err
	}

	for _, ev := range events {
		sys := ev.SystemFields()
		user := ev.UserFields()

		var row bytes.Buffer
		for _, k := range csvSystemFields {
			row.WriteString(csvTranslate(sys[k]))
			row.WriteByte(';')
		}
		for _, k := range userFields {
			row.WriteString(csvTranslate(user[k]))
			row.WriteByte(';')
		}
		row.WriteByte('\n')
		if _, err := w.Write(row.Bytes()); err != nil {
			return err
		}
	}
	return nil
}

// csvTranslate replaces newlines and semicolons with spaces so a value
// never splits a row or collides with the field separator.
func csvTranslate(s string) string {
	s = strings.ReplaceAll(s, "\n", " ")
	s = strings.ReplaceAll(s, ";", " ")
	return s
}
