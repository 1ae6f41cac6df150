package models

import "time"

// Draft is a durable snapshot of unsubmitted form data.
type Draft struct {
	FormType         FormType            `json:"formType"`
	Data             map[string]string   `json:"data"`
	Locations        []map[string]string `json:"locations,omitempty"`
	SavedAtEpochMs   int64               `json:"savedAtEpochMs"`
	ExpiresAtEpochMs int64               `json:"expiresAtEpochMs"`
}

// Expired reports whether the draft is past its expiry at now.
func (d Draft) Expired(now time.Time) bool {
	return now.UnixMilli() >= d.ExpiresAtEpochMs
}

// SavedAt returns the save time.
func (d Draft) SavedAt() time.Time {
	return time.UnixMilli(d.SavedAtEpochMs)
}

// DraftFromFieldSet snapshots a field set.
func DraftFromFieldSet(fs FieldSet, savedAt time.Time, ttl time.Duration) Draft {
	data := make(map[string]string)
	for k, v := range fs.Values() {
		data[string(k)] = v
	}
	var locations []map[string]string
	for _, loc := range fs.Locations() {
		m := make(map[string]string, len(loc.Values))
		for k, v := range loc.Values {
			m[string(k)] = v
		}
		locations = append(locations, m)
	}
	return Draft{
		FormType:         fs.Type,
		Data:             data,
		Locations:        locations,
		SavedAtEpochMs:   savedAt.UnixMilli(),
		ExpiresAtEpochMs: savedAt.Add(ttl).UnixMilli(),
	}
}

// FieldSet restores the snapshot.
func (d Draft) FieldSet() FieldSet {
	values := make(map[Field]string, len(d.Data))
	for k, v := range d.Data {
		values[Field(k)] = v
	}
	locations := make([]Location, 0, len(d.Locations))
	for _, m := range d.Locations {
		loc := Location{Values: make(map[LocationField]string, len(m))}
		for k, v := range m {
			loc.Values[LocationField(k)] = v
		}
		locations = append(locations, loc)
	}
	return NewFieldSet(d.FormType, values, locations)
}
