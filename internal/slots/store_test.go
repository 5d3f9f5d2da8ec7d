package slots

import (
	"encoding/json"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewStore(t *testing.T) {
	tests := []struct {
		name string
		n    int
		want int
	}{
		{name: "single slot", n: 1, want: 1},
		{name: "two slots", n: 2, want: 2},
		{name: "default board", n: DefaultCount, want: DefaultCount},
		{name: "zero falls back to default", n: 0, want: DefaultCount},
		{name: "negative falls back to default", n: -4, want: DefaultCount},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := NewStore(tt.n)
			require.Equal(t, tt.want, store.Len())

			all := store.GetAll()
			require.Len(t, all, tt.want)
			for i, slot := range all {
				assert.Equal(t, Free(), slot, "slot %d", i)
				assert.Nil(t, slot.Name)
				assert.Nil(t, slot.PersonalID)
				assert.Nil(t, slot.Note)
			}
		})
	}
}

func TestStoreSet(t *testing.T) {
	t.Run("stores full record", func(t *testing.T) {
		store := NewStore(2)

		got, err := store.Set(0, Update{
			Status:     Text(StatusOccupied),
			Name:       Text("Bob"),
			PersonalID: Text("123"),
		})
		require.NoError(t, err)

		want := Slot{Status: StatusOccupied, Name: Text("Bob"), PersonalID: Text("123")}
		assert.True(t, want.Equal(got))

		stored, err := store.Get(0)
		require.NoError(t, err)
		assert.True(t, want.Equal(stored))

		other, err := store.Get(1)
		require.NoError(t, err)
		assert.Equal(t, Free(), other)
	})

	t.Run("omitted fields are cleared", func(t *testing.T) {
		store := NewStore(3)

		_, err := store.Set(1, Update{Status: Text(StatusFree), Name: Text("Alice"), Note: Text("late")})
		require.NoError(t, err)

		got, err := store.Set(1, Update{Status: Text(StatusOccupied)})
		require.NoError(t, err)

		assert.Equal(t, Slot{Status: StatusOccupied}, got)
	})

	t.Run("missing status defaults to free", func(t *testing.T) {
		store := NewStore(1)

		got, err := store.Set(0, Update{Name: Text("Carol")})
		require.NoError(t, err)
		assert.Equal(t, StatusFree, got.Status)
		require.NotNil(t, got.Name)
		assert.Equal(t, "Carol", *got.Name)
	})

	t.Run("custom status tokens are kept", func(t *testing.T) {
		store := NewStore(1)

		got, err := store.Set(0, Update{Status: Text("in-treatment")})
		require.NoError(t, err)
		assert.Equal(t, "in-treatment", got.Status)
	})

	t.Run("out of range", func(t *testing.T) {
		store := NewStore(4)

		for _, index := range []int{-1, 4, 100} {
			_, err := store.Set(index, Update{Status: Text(StatusOccupied)})
			assert.True(t, errors.Is(err, ErrOutOfRange), "index %d: %v", index, err)

			_, err = store.Get(index)
			assert.True(t, errors.Is(err, ErrOutOfRange), "index %d: %v", index, err)
		}

		for i, slot := range store.GetAll() {
			assert.Equal(t, Free(), slot, "slot %d", i)
		}
	})
}

func TestStoreCopies(t *testing.T) {
	store := NewStore(2)
	_, err := store.Set(0, Update{Name: Text("Dana")})
	require.NoError(t, err)

	all := store.GetAll()
	*all[0].Name = "Mallory"
	all[1].Status = StatusOccupied

	got, err := store.Get(0)
	require.NoError(t, err)
	assert.Equal(t, "Dana", *got.Name)

	*got.Name = "Eve"
	again, err := store.Get(0)
	require.NoError(t, err)
	assert.Equal(t, "Dana", *again.Name)

	second, err := store.Get(1)
	require.NoError(t, err)
	assert.Equal(t, Free(), second)
}

func TestStoreConcurrentAccess(t *testing.T) {
	store := NewStore(DefaultCount)

	var wg sync.WaitGroup
	for w := 0; w < 8; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < 200; i++ {
				index := (w + i) % store.Len()
				_, err := store.Set(index, Update{Status: Text(StatusOccupied), Name: Text("x")})
				assert.NoError(t, err)
				_ = store.GetAll()
			}
		}(w)
	}
	wg.Wait()

	for _, slot := range store.GetAll() {
		if slot.Status == StatusOccupied {
			require.NotNil(t, slot.Name)
			assert.Equal(t, "x", *slot.Name)
		}
	}
}

func TestParseUpdate(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want Slot
	}{
		{
			name: "full payload",
			raw:  `{"status":"occupied","name":"Bob","personalId":"123","note":null}`,
			want: Slot{Status: StatusOccupied, Name: Text("Bob"), PersonalID: Text("123")},
		},
		{
			name: "empty object",
			raw:  `{}`,
			want: Free(),
		},
		{
			name: "null status",
			raw:  `{"status":null,"note":"wheelchair"}`,
			want: Slot{Status: StatusFree, Note: Text("wheelchair")},
		},
		{
			name: "empty status",
			raw:  `{"status":""}`,
			want: Free(),
		},
		{
			name: "whitespace status is kept as sent",
			raw:  `{"status":"  "}`,
			want: Slot{Status: "  "},
		},
		{
			name: "wrong field types fall back to defaults",
			raw:  `{"status":7,"name":["a"],"note":{"x":1}}`,
			want: Free(),
		},
		{
			name: "numeric personal id keeps its text",
			raw:  `{"status":"occupied","personalId":8501011234}`,
			want: Slot{Status: StatusOccupied, PersonalID: Text("8501011234")},
		},
		{
			name: "not an object",
			raw:  `"occupied"`,
			want: Free(),
		},
		{
			name: "missing payload",
			raw:  ``,
			want: Free(),
		},
		{
			name: "unknown fields ignored",
			raw:  `{"status":"occupied","color":"red"}`,
			want: Slot{Status: StatusOccupied},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ParseUpdate(json.RawMessage(tt.raw)).Slot()
			assert.True(t, tt.want.Equal(got), "want %+v got %+v", tt.want, got)
		})
	}
}

func TestSlotJSON(t *testing.T) {
	data, err := json.Marshal(Free())
	require.NoError(t, err)
	assert.JSONEq(t, `{"status":"free","name":null,"personalId":null,"note":null}`, string(data))
}
