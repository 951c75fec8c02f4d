package scheduler

import (
	"sort"
	"time"
)

// Booking represents an existing or requested claim on a single piece of equipment.
type Booking struct {
	ID          int64
	EquipmentID int64
	Range       DateRange
	Cancelled   bool
}

// Conflict details an existing booking that shares at least one day with a candidate.
type Conflict struct {
	WithBookingID int64
	EquipmentID   int64
	Range         DateRange
}

// DetectConflicts identifies the existing bookings on the candidate's equipment whose
// inclusive date ranges overlap the candidate. Cancelled bookings never conflict and a
// booking never conflicts with itself, which lets callers re-check an edited booking
// against a list that still contains its previous version.
func DetectConflicts(existing []Booking, candidate Booking) []Conflict {
	if candidate.Cancelled {
		return nil
	}

	var conflicts []Conflict
	for _, booking := range existing {
		if booking.Cancelled || booking.EquipmentID != candidate.EquipmentID {
			continue
		}
		if candidate.ID != 0 && booking.ID == candidate.ID {
			continue
		}
		if !Overlaps(booking.Range, candidate.Range) {
			continue
		}
		conflicts = append(conflicts, Conflict{
			WithBookingID: booking.ID,
			EquipmentID:   booking.EquipmentID,
			Range:         booking.Range,
		})
	}

	sort.SliceStable(conflicts, func(i, j int) bool {
		if conflicts[i].Range.Start.Equal(conflicts[j].Range.Start) {
			return conflicts[i].WithBookingID < conflicts[j].WithBookingID
		}
		return conflicts[i].Range.Start.Before(conflicts[j].Range.Start)
	})
	return conflicts
}

// ConflictingIDs flattens conflicts into the identifiers of the existing bookings.
func ConflictingIDs(conflicts []Conflict) []int64 {
	if len(conflicts) == 0 {
		return nil
	}
	ids := make([]int64, 0, len(conflicts))
	for _, conflict := range conflicts {
		ids = append(ids, conflict.WithBookingID)
	}
	return ids
}

// DateRange is a closed interval of whole days.
type DateRange struct {
	Start time.Time
	End   time.Time
}

// NewDateRange truncates both bounds to their calendar day.
func NewDateRange(start, end time.Time) DateRange {
	return DateRange{Start: TruncateDay(start), End: TruncateDay(end)}
}

// Valid reports whether the range starts no later than it ends.
func (r DateRange) Valid() bool {
	return !r.Start.IsZero() && !r.End.IsZero() && !r.End.Before(r.Start)
}

// Days returns the number of calendar days covered by the range, counting both ends.
func (r DateRange) Days() int {
	if !r.Valid() {
		return 0
	}
	return int(r.End.Sub(r.Start).Hours()/24) + 1
}

// Overlaps reports whether two closed day ranges share at least one day. Ranges that
// merely touch, such as one ending on the 3rd and another starting on the 4th, do not
// overlap; a range ending on the 3rd and another starting on the 3rd do.
func Overlaps(a, b DateRange) bool {
	return !a.Start.After(b.End) && !b.Start.After(a.End)
}
