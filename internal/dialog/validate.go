package dialog

// Validator reports whether a step accepts an event.
type Validator func(Event) bool

// IsText accepts plain text, never commands.
func IsText(e Event) bool { return e.Tag == TagText }

// IsPhoto accepts image attachments.
func IsPhoto(e Event) bool { return e.Tag == TagPhoto && e.FileID != "" }

// IsLocation accepts geolocation attachments.
func IsLocation(e Event) bool { return e.Tag == TagLocation }

// IsCommand accepts the named command.
func IsCommand(name string) Validator {
	return func(e Event) bool {
		return e.Tag == TagCommand && e.Command == name
	}
}

// OneOf accepts text exactly equal to one of options. Matching is case-sensitive.
func OneOf(options ...string) Validator {
	set := make(map[string]struct{}, len(options))
	for _, o := range options {
		set[o] = struct{}{}
	}
	return func(e Event) bool {
		if e.Tag != TagText {
			return false
		}
		_, ok := set[e.Text]
		return ok
	}
}
