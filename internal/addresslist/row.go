package addresslist

import "github.com/bcnelson/gateway-address-manager/internal/domain"

// Row is what a row editor receives for one entry. The row editor must not
// modify Entry; it reports a replacement through OnChange or asks for removal
// through OnRemove, passing back Index.
type Row struct {
	Entry    domain.Address
	Index    int
	OnChange func(entry domain.Address, index int)
	OnRemove func(index int)
}

// View is the presentation model of the whole list.
type View struct {
	Rows         []Row
	Empty        bool
	EmptyMessage string
	AddLabel     string
}

// Rows returns one Row per entry, in order. Indices are valid until the next
// mutation.
func (e *Editor) Rows() []Row {
	update := func(entry domain.Address, index int) { e.Update(index, entry) }
	rows := make([]Row, len(e.entries))
	for i, entry := range e.entries {
		rows[i] = Row{
			Entry:    entry,
			Index:    i,
			OnChange: update,
			OnRemove: e.Remove,
		}
	}
	return rows
}

// View returns the rows plus the empty-state and add-action labels.
func (e *Editor) View() View {
	v := View{
		Rows:     e.Rows(),
		Empty:    e.Empty(),
		AddLabel: AddLabel,
	}
	if v.Empty {
		v.EmptyMessage = EmptyMessage
	}
	return v
}
