package livesync

import "taskmate/model"

// ListUpdate describes how a snapshot changed the local assignment list.
type ListUpdate struct {
	Items    []model.Assignment `json:"items"`
	Added    []string           `json:"added"`
	Modified []string           `json:"modified"`
	Removed  []string           `json:"removed"`
}

func (u ListUpdate) Empty() bool {
	return len(u.Added) == 0 && len(u.Modified) == 0 && len(u.Removed) == 0
}

// Reconcile diffs a complete snapshot against the current list by id.
// Surviving items keep their slots, unchanged ones keep their values, and
// new items are appended in snapshot order.
func Reconcile(cur, incoming []model.Assignment) ([]model.Assignment, ListUpdate) {
	byID := make(map[string]model.Assignment, len(incoming))
	for _, a := range incoming {
		byID[a.ID] = a
	}

	var upd ListUpdate
	next := make([]model.Assignment, 0, len(incoming))
	kept := make(map[string]bool, len(cur))
	for _, old := range cur {
		fresh, ok := byID[old.ID]
		if !ok {
			upd.Removed = append(upd.Removed, old.ID)
			continue
		}
		kept[old.ID] = true
		if old.Equal(fresh) {
			next = append(next, old)
			continue
		}
		upd.Modified = append(upd.Modified, old.ID)
		next = append(next, fresh.Clone())
	}
	for _, a := range incoming {
		if kept[a.ID] {
			continue
		}
		kept[a.ID] = true
		upd.Added = append(upd.Added, a.ID)
		next = append(next, a.Clone())
	}
	upd.Items = next
	return next, upd
}

func indexOf(items []model.Assignment, id string) int {
	for i, a := range items {
		if a.ID == id {
			return i
		}
	}
	return -1
}
