package storage

import "strconv"

// NotFoundError is returned when an entry doesn't exist in the store.
// ID is zero when the store is empty.
type NotFoundError struct {
	ID int64
}

func (e NotFoundError) Error() string {
	if e.ID == 0 {
		return "history entry not found"
	}

	return "history entry not found: " + strconv.FormatInt(e.ID, 10)
}
