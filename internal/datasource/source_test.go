package datasource

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type service struct {
	ID       int    `json:"id"`
	Name     string `json:"name"`
	Protocol string
	internal string
}

func names(t *testing.T, src Source) []any {
	t.Helper()
	var out []any
	for rec := range src.Records() {
		v, ok := rec.Get("name")
		require.True(t, ok)
		out = append(out, v)
	}
	return out
}

func TestMapRecordKeepsInsertionOrder(t *testing.T) {
	t.Parallel()

	rec := NewMapRecord()
	rec.Set("name", "a")
	rec.Set("id", 1)
	rec.Set("name", "b")

	require.Equal(t, []string{"name", "id"}, rec.Keys())
	v, ok := rec.Get("name")
	require.True(t, ok)
	require.Equal(t, "b", v)
}

func TestMapRecordCaseInsensitiveGet(t *testing.T) {
	t.Parallel()

	rec := MapRecordOf(map[string]any{"Name": "a", "id": 1})
	require.Equal(t, []string{"Name", "id"}, rec.Keys())

	v, ok := rec.Get("name")
	require.True(t, ok)
	require.Equal(t, "a", v)

	_, ok = rec.Get("missing")
	require.False(t, ok)
}

func TestMapRecordOfFollowsOrder(t *testing.T) {
	t.Parallel()

	rec := MapRecordOf(map[string]any{"a": 1, "b": 2, "c": 3}, "c", "missing", "a")
	require.Equal(t, []string{"c", "a", "b"}, rec.Keys())
}

func TestStructRecord(t *testing.T) {
	t.Parallel()

	rec := NewStructRecord(&service{ID: 7, Name: "billing", Protocol: "https", internal: "x"})
	require.Equal(t, []string{"id", "name", "Protocol"}, rec.Keys())

	tests := []struct {
		field string
		want  any
		found bool
	}{
		{field: "id", want: 7, found: true},
		{field: "ID", want: 7, found: true},
		{field: "Name", want: "billing", found: true},
		{field: "protocol", want: "https", found: true},
		{field: "internal", found: false},
	}
	for _, tt := range tests {
		t.Run(tt.field, func(t *testing.T) {
			got, found := rec.Get(tt.field)
			require.Equal(t, tt.found, found)
			if tt.found {
				require.Equal(t, tt.want, got)
			}
		})
	}
}

type renderingService struct {
	Name string
}

func (s renderingService) RenderField(field string) (any, bool, error) {
	if field == "name" {
		return "svc:" + s.Name, true, nil
	}
	return nil, false, nil
}

func TestStructRecordDelegatesRenderField(t *testing.T) {
	t.Parallel()

	rec := NewStructRecord(renderingService{Name: "a"})
	v, ok, err := rec.RenderField("name")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "svc:a", v)

	_, ok, err = NewStructRecord(service{}).RenderField("name")
	require.NoError(t, err)
	require.False(t, ok)
}

func TestSliceOrderBy(t *testing.T) {
	t.Parallel()

	src := FromMaps([]map[string]any{
		{"name": "c", "rank": 2},
		{"name": "a", "rank": 10},
		{"name": "b", "rank": 2.5},
	})

	byName, err := src.OrderBy("name")
	require.NoError(t, err)
	require.Equal(t, []any{"a", "b", "c"}, names(t, byName))

	byRank, err := src.OrderBy("rank")
	require.NoError(t, err)
	require.Equal(t, []any{"c", "b", "a"}, names(t, byRank))

	// the receiver keeps its order
	require.Equal(t, []any{"c", "a", "b"}, names(t, src))
}

func TestSliceOrderByIsStable(t *testing.T) {
	t.Parallel()

	src := FromMaps([]map[string]any{
		{"name": "first", "group": "x"},
		{"name": "second", "group": "x"},
		{"name": "third", "group": "a"},
	})
	sorted, err := src.OrderBy("group")
	require.NoError(t, err)
	require.Equal(t, []any{"third", "first", "second"}, names(t, sorted))
}

func TestSliceOrderByUnknownField(t *testing.T) {
	t.Parallel()

	src := FromMaps([]map[string]any{{"name": "a"}})
	_, err := src.OrderBy("colour")

	var unknown *UnknownFieldError
	require.True(t, errors.As(err, &unknown))
	require.Equal(t, "colour", unknown.Field)

	empty, err := NewSlice().OrderBy("colour")
	require.NoError(t, err)
	require.Equal(t, 0, empty.Len())
}

func TestSliceFilter(t *testing.T) {
	t.Parallel()

	src := FromStructs([]service{{ID: 1, Name: "a"}, {ID: 2, Name: "b"}, {ID: 3, Name: "c"}})
	odd, err := src.Filter(func(rec Record) (bool, error) {
		v, _ := rec.Get("id")
		return v.(int)%2 == 1, nil
	})
	require.NoError(t, err)
	require.Equal(t, []any{"a", "c"}, names(t, odd))

	boom := errors.New("boom")
	_, err = src.Filter(func(Record) (bool, error) { return false, boom })
	require.ErrorIs(t, err, boom)
}

func TestCompare(t *testing.T) {
	t.Parallel()

	early := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	late := early.Add(time.Hour)
	var nilPtr *int

	tests := []struct {
		name string
		a, b any
		want int
	}{
		{name: "nil first", a: nil, b: 1, want: -1},
		{name: "typed nil", a: 1, b: nilPtr, want: 1},
		{name: "both nil", a: nil, b: nilPtr, want: 0},
		{name: "mixed numbers", a: 2, b: 10.5, want: -1},
		{name: "strings", a: "b", b: "a", want: 1},
		{name: "bools", a: false, b: true, want: -1},
		{name: "times", a: late, b: early, want: 1},
		{name: "fallback", a: "10", b: 9, want: -1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, Compare(tt.a, tt.b))
		})
	}
}
