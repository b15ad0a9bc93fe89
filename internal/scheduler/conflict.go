package scheduler

import "fmt"

// StatusUpcoming is the only booking status considered by conflict detection.
const StatusUpcoming = "upcoming"

// Booking is the detector's view of an exam occupying a venue on a date.
type Booking struct {
	ID         int64
	CourseCode string
	CourseName string
	Date       string
	Start      int // minutes after midnight
	Duration   int // minutes
	Venue      string
	Status     string
}

// End returns the exclusive end of the booking in minutes after midnight.
func (b Booking) End() int {
	return b.Start + b.Duration
}

// ConflictType describes the dimension on which two bookings collide.
type ConflictType string

const (
	// ConflictTypeTimeOverlap indicates the bookings overlap in time only.
	ConflictTypeTimeOverlap ConflictType = "time_overlap"
	// ConflictTypeVenue indicates the bookings share a venue on the same date.
	ConflictTypeVenue ConflictType = "venue_conflict"
	// ConflictTypeBoth indicates the bookings overlap in time and share a venue.
	ConflictTypeBoth ConflictType = "both"
)

// Severity grades how serious a conflict is.
type Severity string

const (
	SeverityWarning Severity = "warning"
	SeverityError   Severity = "error"
)

// SeverityFor returns the severity attached to a conflict type.
func SeverityFor(t ConflictType) Severity {
	if t == ConflictTypeBoth {
		return SeverityError
	}
	return SeverityWarning
}

// Conflict details a collision between a candidate and an existing booking.
type Conflict struct {
	ExamID     int64
	CourseCode string
	Type       ConflictType
	Severity   Severity
	Message    string
}

// Detect classifies the collisions between candidate and the existing bookings
// of the same date. Bookings whose ID equals excludeID, and bookings that are
// not upcoming, are skipped. Venue equality counts as a conflict whether or not
// the times overlap: a venue used once is treated as reserved for the day.
// Results follow the order of existing.
func Detect(candidate Booking, existing []Booking, excludeID *int64) []Conflict {
	conflicts := make([]Conflict, 0)
	for _, booking := range existing {
		if excludeID != nil && booking.ID == *excludeID {
			continue
		}
		if booking.Status != StatusUpcoming {
			continue
		}

		timeOverlap := Overlaps(candidate.Start, candidate.Duration, booking.Start, booking.Duration)
		venueConflict := booking.Venue == candidate.Venue

		var kind ConflictType
		switch {
		case timeOverlap && venueConflict:
			kind = ConflictTypeBoth
		case venueConflict:
			kind = ConflictTypeVenue
		case timeOverlap:
			kind = ConflictTypeTimeOverlap
		default:
			continue
		}

		conflicts = append(conflicts, Conflict{
			ExamID:     booking.ID,
			CourseCode: booking.CourseCode,
			Type:       kind,
			Severity:   SeverityFor(kind),
			Message:    conflictMessage(kind, booking),
		})
	}
	return conflicts
}

// Pair is a conflict between two stored bookings found by DetectAll.
type Pair struct {
	First    Booking
	Second   Booking
	Type     ConflictType
	Severity Severity
	Message  string
}

// DetectAll reports every conflicting pair among the upcoming bookings that
// share a date. Its rules differ from Detect: a shared venue on the same date is
// reported as "both" regardless of time, and time overlap alone is reported as
// "time_overlap". Pairs are emitted in input order (i < j).
func DetectAll(bookings []Booking) []Pair {
	upcoming := make([]Booking, 0, len(bookings))
	for _, booking := range bookings {
		if booking.Status == StatusUpcoming {
			upcoming = append(upcoming, booking)
		}
	}

	pairs := make([]Pair, 0)
	for i := 0; i < len(upcoming); i++ {
		for j := i + 1; j < len(upcoming); j++ {
			a, b := upcoming[i], upcoming[j]
			if a.Date != b.Date {
				continue
			}

			var kind ConflictType
			switch {
			case a.Venue == b.Venue:
				kind = ConflictTypeBoth
			case Overlaps(a.Start, a.Duration, b.Start, b.Duration):
				kind = ConflictTypeTimeOverlap
			default:
				continue
			}

			pairs = append(pairs, Pair{
				First:    a,
				Second:   b,
				Type:     kind,
				Severity: SeverityFor(kind),
				Message:  pairMessage(kind, a, b),
			})
		}
	}
	return pairs
}

func conflictMessage(kind ConflictType, existing Booking) string {
	window := fmt.Sprintf("%s-%s", FormatTimeOfDay(existing.Start), FormatTimeOfDay(existing.End()))
	switch kind {
	case ConflictTypeBoth:
		return fmt.Sprintf("%s is already booked for %s at %s", existing.Venue, existing.CourseCode, window)
	case ConflictTypeVenue:
		return fmt.Sprintf("%s is already booked for %s on %s", existing.Venue, existing.CourseCode, existing.Date)
	default:
		return fmt.Sprintf("Time overlaps with %s (%s) in %s", existing.CourseCode, window, existing.Venue)
	}
}

func pairMessage(kind ConflictType, a, b Booking) string {
	if kind == ConflictTypeBoth {
		return fmt.Sprintf("%s and %s are both scheduled in %s on %s", a.CourseCode, b.CourseCode, a.Venue, a.Date)
	}
	return fmt.Sprintf("%s (%s) and %s (%s) overlap on %s",
		a.CourseCode, FormatTimeOfDay(a.Start), b.CourseCode, FormatTimeOfDay(b.Start), a.Date)
}
