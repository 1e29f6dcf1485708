package shared_test

import (
	"context"
	"errors"
	"ruang/shared"
	cacheMocks "ruang/shared/cache/mocks"
	"ruang/shared/constant"
	"ruang/shared/dto"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

func TestConvertStringToBool(t *testing.T) {
	tests := []struct {
		input    string
		expected *bool
	}{
		{input: "", expected: nil},
		{input: "true", expected: boolPtr(true)},
		{input: "1", expected: boolPtr(true)},
		{input: "T", expected: boolPtr(true)},
		{input: "FALSE", expected: boolPtr(false)},
		{input: "0", expected: boolPtr(false)},
		{input: "yes", expected: nil},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.expected, shared.ConvertStringToBool(tt.input))
		})
	}
}

func TestConvertStringToInt(t *testing.T) {
	assert.Nil(t, shared.ConvertStringToInt(""))
	assert.Nil(t, shared.ConvertStringToInt("forty"))
	assert.Equal(t, intPtr(40), shared.ConvertStringToInt("40"))
}

func TestCalculateTotalPage(t *testing.T) {
	tests := []struct {
		name     string
		total    int
		limit    int
		expected int
	}{
		{name: "no rows", total: 0, limit: 10, expected: 1},
		{name: "zero limit", total: 100, limit: 0, expected: 1},
		{name: "negative limit", total: 100, limit: -5, expected: 1},
		{name: "exact division", total: 100, limit: 10, expected: 10},
		{name: "remainder", total: 101, limit: 10, expected: 11},
		{name: "limit above total", total: 5, limit: 10, expected: 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, shared.CalculateTotalPage(tt.total, tt.limit))
		})
	}
}

func TestTransformFields(t *testing.T) {
	type roomUpdate struct {
		Name       string  `db:"name"`
		Capacity   int     `db:"capacity"`
		Location   *string `db:"location"`
		Image      string  `db:"-"`
		Untagged   string
		EmptyTag   string `db:""`
		Unassigned string `db:"description"`
	}

	empty := ""

	tests := []struct {
		name     string
		data     any
		expected map[string]any
	}{
		{
			name: "non-zero tagged fields",
			data: roomUpdate{
				Name:     "Lab IoT",
				Capacity: 25,
				Image:    "ignored",
				Untagged: "ignored",
				EmptyTag: "ignored",
			},
			expected: map[string]any{"name": "Lab IoT", "capacity": 25},
		},
		{
			name:     "pointer to empty string is kept",
			data:     &roomUpdate{Location: &empty},
			expected: map[string]any{"location": &empty},
		},
		{
			name:     "zero struct yields metadata only",
			data:     roomUpdate{},
			expected: map[string]any{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := shared.TransformFields(tt.data, "admin-id")

			assert.Equal(t, "admin-id", result[constant.FieldModifiedBy])
			assert.IsType(t, time.Time{}, result[constant.FieldModifiedAt])

			delete(result, constant.FieldModifiedBy)
			delete(result, constant.FieldModifiedAt)

			assert.Equal(t, tt.expected, result)
		})
	}
}

func TestFilterByID(t *testing.T) {
	filter := shared.FilterByID("room-1", "id", "rooms")

	require.Len(t, filter.Filters, 1)
	assert.Equal(t, dto.Filter{Field: "id", Value: "room-1", Operator: dto.FilterOperatorEq, Table: "rooms"}, filter.Filters[0])

	where, args := filter.GetWhereClause()
	assert.Equal(t, "(rooms.id = :id)", where)
	assert.Equal(t, map[string]any{"id": "room-1"}, args)
}

func TestBuildCacheKey(t *testing.T) {
	assert.Equal(t, "room:get", shared.BuildCacheKey("room:get"))
	assert.Equal(t, "room:get:room-1", shared.BuildCacheKey("room:get", "room-1"))
	assert.Equal(t, "reservation:mine:u1:stats", shared.BuildCacheKey("reservation:mine", "u1", "stats"))
}

func TestBuildCacheKeyWithQuery(t *testing.T) {
	params := dto.QueryParams{Page: 1, Limit: 10, SortBy: "rooms.created_at", SortDir: "desc"}
	byName := dto.FilterGroup{
		Operator: dto.FilterGroupOperatorAnd,
		Filters: []any{
			dto.Filter{Field: "name", Value: "lab", Operator: dto.FilterOperatorLike, Table: "rooms"},
		},
	}
	byLocation := dto.FilterGroup{
		Operator: dto.FilterGroupOperatorAnd,
		Filters: []any{
			dto.Filter{Field: "location", Value: "lab", Operator: dto.FilterOperatorLike, Table: "rooms"},
		},
	}

	key := shared.BuildCacheKeyWithQuery("room:gets", params, byName)

	assert.True(t, strings.HasPrefix(key, "room:gets:"))
	assert.Equal(t, key, shared.BuildCacheKeyWithQuery("room:gets", params, byName))
	assert.NotEqual(t, key, shared.BuildCacheKeyWithQuery("room:gets", params, byLocation))

	params.Page = 2
	assert.NotEqual(t, key, shared.BuildCacheKeyWithQuery("room:gets", params, byName))
}

func TestInvalidateCaches(t *testing.T) {
	ctrl := gomock.NewController(t)
	c := cacheMocks.NewMockCache(ctrl)

	c.EXPECT().Clear(gomock.Any(), "reservation:*").Return(nil)
	shared.InvalidateCaches(context.Background(), c, "reservation:")

	c.EXPECT().Clear(gomock.Any(), "room:*").Return(errors.New("redis down"))
	assert.NotPanics(t, func() { shared.InvalidateCaches(context.Background(), c, "room:") })
}

func TestRemember(t *testing.T) {
	t.Run("hit skips the loader", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		c := cacheMocks.NewMockCache(ctrl)

		c.EXPECT().Get(gomock.Any(), "room:count:x", gomock.Any()).
			DoAndReturn(func(_ context.Context, _ string, value any) error {
				*value.(*int) = 7

				return nil
			})

		got, err := shared.Remember(context.Background(), c, "room:count:x", 60, func(context.Context) (int, error) {
			t.Fatal("loader must not run on a hit")

			return 0, nil
		})

		require.NoError(t, err)
		assert.Equal(t, 7, got)
	})

	t.Run("miss loads and saves", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		c := cacheMocks.NewMockCache(ctrl)
		saved := make(chan any, 1)

		c.EXPECT().Get(gomock.Any(), "room:count:x", gomock.Any()).Return(errors.New("miss"))
		c.EXPECT().Save(gomock.Any(), "room:count:x", 3, 60).
			DoAndReturn(func(_ context.Context, _ string, value any, _ int) error {
				saved <- value

				return nil
			})

		got, err := shared.Remember(context.Background(), c, "room:count:x", 60, func(context.Context) (int, error) {
			return 3, nil
		})

		require.NoError(t, err)
		assert.Equal(t, 3, got)

		select {
		case value := <-saved:
			assert.Equal(t, 3, value)
		case <-time.After(time.Second):
			t.Fatal("value was not cached")
		}
	})

	t.Run("loader error is not cached", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		c := cacheMocks.NewMockCache(ctrl)

		c.EXPECT().Get(gomock.Any(), gomock.Any(), gomock.Any()).Return(errors.New("miss"))

		_, err := shared.Remember(context.Background(), c, "room:get:1", 60, func(context.Context) (string, error) {
			return "", errors.New("db down")
		})

		require.EqualError(t, err, "db down")
	})
}

func boolPtr(b bool) *bool {
	return &b
}

func intPtr(i int) *int {
	return &i
}
