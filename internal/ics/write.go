// Package ics serializes resolved event instances into an iCalendar feed.
// Timestamps are written as floating local times (no UTC designator) so
// calendar clients display them in the school's own zone, and each VEVENT
// carries the engine's deterministic identifier verbatim so republishing
// an unchanged configuration updates events instead of duplicating them.
package ics

import (
	"errors"
	"os"
	"path/filepath"
	"time"

	ical "github.com/arran4/golang-ical"

	"schoolcal/internal/model"
)

// floatingLayout is the iCalendar local (floating) date-time form.
const floatingLayout = "20060102T150405"

const productID = "-//schoolcal//timetable feed//EN"

// Serialize renders the event instances into an ICS payload, preserving
// their order. DTSTAMP is the time of serialization.
func Serialize(events []model.EventInstance) string {
	return SerializeAt(events, time.Now().UTC())
}

// SerializeAt is Serialize with an explicit DTSTAMP, so a fixed stamp
// yields a byte-identical payload for unchanged input.
func SerializeAt(events []model.EventInstance, stamp time.Time) string {
	cal := ical.NewCalendar()
	cal.SetProductId(productID)
	cal.SetMethod(ical.MethodPublish)

	now := stamp.UTC()

	for _, e := range events {
		ve := cal.AddEvent(e.UID)
		ve.SetDtStampTime(now)
		ve.SetSummary(e.Summary)
		ve.SetProperty(ical.ComponentPropertyDtStart, e.Start.Format(floatingLayout))
		ve.SetProperty(ical.ComponentPropertyDtEnd, e.End.Format(floatingLayout))
	}

	return cal.Serialize()
}

// WriteFile serializes the events and writes the feed atomically to path.
func WriteFile(path string, events []model.EventInstance) error {
	return WritePayload(path, Serialize(events))
}

// WritePayload writes an already-serialized feed atomically (temp file +
// rename) to path, creating parent directories as needed.
func WritePayload(path string, payload string) error {
	if path == "" {
		return errors.New("ics output path is empty")
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, ".schoolcal-ics-*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.WriteString(payload); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Chmod(tmpName, 0o644); err != nil {
		return err
	}
	return os.Rename(tmpName, path)
}
