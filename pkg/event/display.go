package event

// Display returns the string that should be printed to the console for
// this event in streaming mode, and whether anything should be printed at
// all: display only fires if DisplayOnMatch is set, and if
// DisplayIfChanged is set, only when fields actually changed.
func (e *Event) Display(displayIfChanged, hideTimestamp bool) (string, bool) {
	msg := e.sys[FieldDisplayOnMatch]
	if msg == "" {
		return "", false
	}
	if displayIfChanged && e.sys[FieldChangedFields] == "" {
		return "", false
	}
	if hideTimestamp {
		return msg, true
	}
	return e.sys[FieldTimestamp] + " " + msg, true
}
