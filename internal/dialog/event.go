package dialog

import (
	"strconv"
	"strings"
)

// Tag identifies the payload carried by an Event.
type Tag int

const (
	TagText Tag = iota + 1
	TagCommand
	TagPhoto
	TagLocation
)

func (t Tag) String() string {
	switch t {
	case TagText:
		return "text"
	case TagCommand:
		return "command"
	case TagPhoto:
		return "photo"
	case TagLocation:
		return "location"
	default:
		return "unknown"
	}
}

// User identifies the remote user across events.
type User struct {
	ID        int64
	FirstName string
	LastName  string
}

// Name is the record key: the first name, or the numeric id when empty.
func (u User) Name() string {
	if name := strings.TrimSpace(u.FirstName); name != "" {
		return name
	}
	return strconv.FormatInt(u.ID, 10)
}

// Owner is the blob owner: first and last name joined without a separator.
func (u User) Owner() string {
	if owner := strings.TrimSpace(u.FirstName + u.LastName); owner != "" {
		return owner
	}
	return strconv.FormatInt(u.ID, 10)
}

// Event is one inbound message. Only the fields matching Tag are meaningful:
// Text for TagText, Command and Args for TagCommand, FileID for TagPhoto,
// Lat and Long for TagLocation.
type Event struct {
	User    User
	Tag     Tag
	Text    string
	Command string
	Args    string
	FileID  string
	Lat     float64
	Long    float64
}

// TextEvent parses a text message. Text starting with '/' is a command;
// a trailing @botname on the command is dropped.
func TextEvent(u User, text string) Event {
	trimmed := strings.TrimSpace(text)
	if strings.HasPrefix(trimmed, "/") && len(trimmed) > 1 {
		name, args, _ := strings.Cut(trimmed[1:], " ")
		name, _, _ = strings.Cut(name, "@")
		return CommandEvent(u, name, strings.TrimSpace(args))
	}
	return Event{User: u, Tag: TagText, Text: text}
}

// CommandEvent builds a command event; name carries no leading slash.
func CommandEvent(u User, name, args string) Event {
	return Event{User: u, Tag: TagCommand, Command: strings.ToLower(strings.TrimPrefix(name, "/")), Args: args}
}

// PhotoEvent builds an image attachment event.
func PhotoEvent(u User, fileID string) Event {
	return Event{User: u, Tag: TagPhoto, FileID: fileID}
}

// LocationEvent builds a geolocation attachment event.
func LocationEvent(u User, lat, long float64) Event {
	return Event{User: u, Tag: TagLocation, Lat: lat, Long: long}
}

// FormatLocation renders coordinates as "<lat>,<long>".
func FormatLocation(lat, long float64) string {
	return strconv.FormatFloat(lat, 'f', -1, 64) + "," + strconv.FormatFloat(long, 'f', -1, 64)
}
