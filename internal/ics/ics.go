// Package ics converts between core events and iCalendar files.
package ics

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	ical "github.com/arran4/golang-ical"

	"github.com/theakshaypant/calmerge/internal/core"
)

const productID = "-//calmerge//calmerge//EN"

// Encode writes events as a VCALENDAR. stamp is used for DTSTAMP. Events
// without valid times are skipped.
func Encode(w io.Writer, events []core.Event, stamp time.Time) error {
	cal := ical.NewCalendar()
	cal.SetMethod(ical.MethodPublish)
	cal.SetProductId(productID)

	for _, e := range events {
		if !e.HasValidRange() {
			continue
		}

		ev := cal.AddEvent(uid(e))
		ev.SetDtStampTime(stamp.UTC())
		ev.SetSummary(e.Title)
		if e.IsAllDay {
			ev.SetAllDayStartAt(e.Start)
			ev.SetAllDayEndAt(e.End)
		} else {
			ev.SetStartAt(e.Start.UTC())
			ev.SetEndAt(e.End.UTC())
		}
		if e.Description != "" {
			ev.SetDescription(e.Description)
		}
		if e.Location != "" {
			ev.SetLocation(e.Location)
		}
		if link := firstNonEmpty(e.MeetingLink, e.URL); link != "" {
			ev.SetURL(link)
		}
		if !e.CreatedAt.IsZero() {
			ev.SetCreatedTime(e.CreatedAt.UTC())
		}
		if e.PendingInvite() {
			ev.SetProperty(ical.ComponentPropertyStatus, "TENTATIVE")
		} else {
			ev.SetProperty(ical.ComponentPropertyStatus, "CONFIRMED")
		}
		ev.SetProperty(ical.ComponentProperty("X-CALMERGE-SOURCE"), string(e.Source))
	}

	_, err := io.WriteString(w, cal.Serialize())
	return err
}

func uid(e core.Event) string {
	id := e.ID
	if id == "" {
		id = fmt.Sprintf("%d", e.Start.Unix())
	}
	return fmt.Sprintf("%s-%s@calmerge", e.Source, id)
}

// Decode reads the VEVENTs of an iCalendar payload as event inputs.
// Events without a summary or usable times are skipped and logged.
// Recurrence rules are not expanded: only the first occurrence is kept.
func Decode(body []byte, logger *slog.Logger) ([]core.EventInput, error) {
	if len(bytes.TrimSpace(body)) == 0 {
		return nil, errors.New("empty iCalendar file")
	}
	if logger == nil {
		logger = slog.Default()
	}

	cal, err := ical.ParseCalendar(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("parse iCalendar: %w", err)
	}

	var inputs []core.EventInput
	for _, ve := range cal.Events() {
		in, err := decodeEvent(ve)
		if err != nil {
			logger.Warn("skipping calendar entry", "uid", propValue(ve, ical.ComponentPropertyUniqueId), "err", err)
			continue
		}
		if ve.GetProperty(ical.ComponentPropertyRrule) != nil {
			logger.Info("recurring entry imported as a single event", "title", in.Title)
		}
		inputs = append(inputs, in)
	}
	return inputs, nil
}

func decodeEvent(ve *ical.VEvent) (core.EventInput, error) {
	in := core.EventInput{
		Title:       propValue(ve, ical.ComponentPropertySummary),
		Description: propValue(ve, ical.ComponentPropertyDescription),
		Location:    propValue(ve, ical.ComponentPropertyLocation),
	}
	if strings.EqualFold(propValue(ve, ical.ComponentPropertyStatus), "CANCELLED") {
		return core.EventInput{}, errors.New("cancelled")
	}

	start, err := ve.GetStartAt()
	if err != nil {
		if start, err = ve.GetAllDayStartAt(); err != nil {
			return core.EventInput{}, fmt.Errorf("DTSTART: %w", err)
		}
	}
	in.Start = start

	end, err := ve.GetEndAt()
	if err != nil {
		end, err = ve.GetAllDayEndAt()
	}
	if err != nil {
		// No DTEND: a date is one day long, a date-time has no duration.
		if isDate(ve.GetProperty(ical.ComponentPropertyDtStart)) {
			end = start.AddDate(0, 0, 1)
		} else {
			end = start.Add(time.Hour)
		}
	}
	in.End = end

	if source, ok := core.ParseProvider(propValue(ve, ical.ComponentProperty("X-CALMERGE-SOURCE"))); ok {
		in.Source = source
	}

	return in, in.Validate()
}

func isDate(p *ical.IANAProperty) bool {
	if p == nil {
		return false
	}
	if vs, ok := p.ICalParameters["VALUE"]; ok && len(vs) > 0 && strings.EqualFold(vs[0], "DATE") {
		return true
	}
	return !strings.Contains(p.Value, "T")
}

func propValue(ve *ical.VEvent, name ical.ComponentProperty) string {
	if p := ve.GetProperty(name); p != nil {
		return strings.TrimSpace(p.Value)
	}
	return ""
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
