package addresslist_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bcnelson/gateway-address-manager/internal/addresslist"
	"github.com/bcnelson/gateway-address-manager/internal/domain"
)

var (
	addrA = domain.Address{Type: domain.AddressTypeIP, Value: "10.0.0.1"}
	addrB = domain.Address{Type: domain.AddressTypeHostname, Value: "b.example.com"}
	addrC = domain.Address{Type: domain.AddressTypeIP, Value: "10.0.0.3"}
)

// recorder captures every list handed to the change callback.
type recorder struct {
	calls []domain.AddressList
}

func (r *recorder) onChange(l domain.AddressList) {
	r.calls = append(r.calls, l)
}

func (r *recorder) last(t *testing.T) domain.AddressList {
	t.Helper()
	require.NotEmpty(t, r.calls, "change callback was never called")
	return r.calls[len(r.calls)-1]
}

func TestAdd_EmptyList(t *testing.T) {
	rec := &recorder{}
	ed := addresslist.New(nil, rec.onChange)

	ed.Add()

	require.Len(t, rec.calls, 1)
	assert.Equal(t, domain.AddressList{{Type: domain.AddressTypeIP, Value: ""}}, rec.last(t))
	assert.Equal(t, 1, ed.Len())
}

func TestAdd_AppendsAndKeepsOrder(t *testing.T) {
	rec := &recorder{}
	ed := addresslist.New(domain.AddressList{addrA, addrB}, rec.onChange)

	ed.Add()

	got := rec.last(t)
	require.Len(t, got, 3)
	assert.Equal(t, addrA, got[0])
	assert.Equal(t, addrB, got[1])
	assert.Equal(t, domain.DefaultAddress(), got[2])
}

func TestAdd_CustomDefaultEntry(t *testing.T) {
	rec := &recorder{}
	ed := addresslist.New(nil, rec.onChange, addresslist.WithDefaultEntry(func() domain.Address {
		return domain.Address{Type: domain.AddressTypeHostname, Value: "new.example.com"}
	}))

	ed.Add()

	assert.Equal(t, domain.AddressList{{Type: domain.AddressTypeHostname, Value: "new.example.com"}}, rec.last(t))
}

func TestUpdate_ReplacesInPlace(t *testing.T) {
	rec := &recorder{}
	ed := addresslist.New(domain.AddressList{{Type: domain.AddressTypeIP, Value: "10.0.0.1"}}, rec.onChange)

	ed.Update(0, domain.Address{Type: domain.AddressTypeHostname, Value: "example.com"})

	require.Len(t, rec.calls, 1)
	assert.Equal(t, domain.AddressList{{Type: domain.AddressTypeHostname, Value: "example.com"}}, rec.last(t))
}

func TestUpdate_EveryIndex(t *testing.T) {
	initial := domain.AddressList{addrA, addrB, addrC}
	replacement := domain.Address{Type: domain.AddressTypeHostname, Value: "x.example.com"}

	for i := range initial {
		rec := &recorder{}
		ed := addresslist.New(initial, rec.onChange)

		ed.Update(i, replacement)

		got := rec.last(t)
		require.Len(t, got, len(initial))
		for j := range initial {
			if j == i {
				assert.Equal(t, replacement, got[j], "index %d", j)
			} else {
				assert.Equal(t, initial[j], got[j], "index %d", j)
			}
		}
	}
}

func TestRemove_ShiftsLaterEntries(t *testing.T) {
	rec := &recorder{}
	ed := addresslist.New(domain.AddressList{addrA, addrB, addrC}, rec.onChange)

	ed.Remove(1)

	require.Len(t, rec.calls, 1)
	assert.Equal(t, domain.AddressList{addrA, addrC}, rec.last(t))

	rows := ed.Rows()
	require.Len(t, rows, 2)
	assert.Equal(t, addrC, rows[1].Entry)
	assert.Equal(t, 1, rows[1].Index)
}

func TestRemove_EveryIndex(t *testing.T) {
	initial := domain.AddressList{addrA, addrB, addrC}

	for i := range initial {
		rec := &recorder{}
		ed := addresslist.New(initial, rec.onChange)

		ed.Remove(i)

		want := append(initial[:i:i], initial[i+1:]...)
		assert.Equal(t, want, rec.last(t), "remove %d", i)
	}
}

func TestRemove_LastEntryShowsEmptyState(t *testing.T) {
	rec := &recorder{}
	ed := addresslist.New(domain.AddressList{addrA}, rec.onChange)
	require.False(t, ed.View().Empty)

	ed.Remove(0)

	assert.Equal(t, domain.AddressList{}, rec.last(t))
	v := ed.View()
	assert.True(t, v.Empty)
	assert.Equal(t, addresslist.EmptyMessage, v.EmptyMessage)
	assert.Empty(t, v.Rows)
}

func TestView_EmptyStateToggles(t *testing.T) {
	ed := addresslist.New(nil, nil)
	assert.True(t, ed.View().Empty)

	ed.Add()
	v := ed.View()
	assert.False(t, v.Empty)
	assert.Empty(t, v.EmptyMessage)
	assert.Equal(t, addresslist.AddLabel, v.AddLabel)
}

func TestOutOfRangePanics(t *testing.T) {
	ed := addresslist.New(domain.AddressList{addrA}, func(domain.AddressList) {
		t.Fatal("change callback must not run for a rejected mutation")
	})

	assert.Panics(t, func() { ed.Remove(1) })
	assert.Panics(t, func() { ed.Remove(-1) })
	assert.Panics(t, func() { ed.Update(1, addrB) })
	assert.Equal(t, domain.AddressList{addrA}, ed.Entries())
}

func TestPropagation_OncePerMutationAfterState(t *testing.T) {
	var ed *addresslist.Editor
	calls := 0
	ed = addresslist.New(nil, func(l domain.AddressList) {
		calls++
		// The editor is already in its new state when the owner hears about it.
		assert.Equal(t, l, ed.Entries())
	})

	ed.Add()
	ed.Add()
	ed.Update(1, addrB)
	ed.Remove(0)

	assert.Equal(t, 4, calls)
	assert.Equal(t, domain.AddressList{addrB}, ed.Entries())
}

func TestSnapshotsDoNotAlias(t *testing.T) {
	initial := domain.AddressList{addrA, addrB}
	rec := &recorder{}
	ed := addresslist.New(initial, rec.onChange)

	ed.Update(0, addrC)
	rec.last(t)[1] = addrC

	assert.Equal(t, addrA, initial[0], "initial list must not be mutated")
	assert.Equal(t, addrB, ed.Entries()[1], "emitted snapshot must not alias editor state")

	entries := ed.Entries()
	entries[0] = addrB
	assert.Equal(t, addrC, ed.Entries()[0])
}

func TestReset_DoesNotPropagate(t *testing.T) {
	rec := &recorder{}
	ed := addresslist.New(domain.AddressList{addrA}, rec.onChange)

	ed.Reset(domain.AddressList{addrB, addrC})

	assert.Empty(t, rec.calls)
	assert.Equal(t, domain.AddressList{addrB, addrC}, ed.Entries())
}

func TestRows_CallbacksDriveEditor(t *testing.T) {
	rec := &recorder{}
	ed := addresslist.New(domain.AddressList{addrA, addrB}, rec.onChange)

	rows := ed.Rows()
	require.Len(t, rows, 2)
	rows[1].OnChange(addrC, rows[1].Index)
	assert.Equal(t, domain.AddressList{addrA, addrC}, rec.last(t))

	rows = ed.Rows()
	rows[0].OnRemove(rows[0].Index)
	assert.Equal(t, domain.AddressList{addrC}, rec.last(t))
	assert.Len(t, rec.calls, 2)
}

func TestNilCallback(t *testing.T) {
	ed := addresslist.New(nil, nil)
	ed.Add()
	ed.Update(0, addrA)
	ed.Remove(0)
	assert.True(t, ed.Empty())
}
