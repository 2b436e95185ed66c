package priority

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFor_ActiveBeforeInactive(t *testing.T) {
	for _, kind := range Kinds() {
		assert.Less(t, For(kind, true), For(kind, false), "kind %s", kind)
	}
}

func TestFor_AnyActiveBeforeAnyInactive(t *testing.T) {
	worstActive := For(Kind("unknown"), true)
	for _, kind := range Kinds() {
		assert.Less(t, worstActive, For(kind, false), "kind %s", kind)
	}
}

func TestFor_KindOrdering(t *testing.T) {
	assert.Less(t, For(NullCount, true), For(TopK, true))
	assert.Less(t, For(TopK, true), For(NumericHistogram, true))
	assert.Less(t, For(SmallestTimeGrain, false), For(TimeSeries, false))
	assert.Equal(t, For(NullCount, true), For(ColumnCardinality, true))
}

func TestFor_UnknownKind(t *testing.T) {
	assert.Equal(t, Default, For(Kind("mystery"), true))
	assert.Equal(t, Default+InactiveOffset, For(Kind("mystery"), false))
}

func TestBackend(t *testing.T) {
	// backend polarity is inverted: what runs first here gets the largest value there
	assert.Greater(t, Backend(For(NullCount, true)), Backend(For(NumericHistogram, false)))
	assert.Equal(t, 0, Backend(BackendMax+10))
}

func TestParse(t *testing.T) {
	k, ok := Parse("topk")
	assert.True(t, ok)
	assert.Equal(t, TopK, k)

	_, ok = Parse("nope")
	assert.False(t, ok)
}

func TestKinds_Sorted(t *testing.T) {
	kinds := Kinds()
	assert.Len(t, kinds, 9)
	for i := 1; i < len(kinds); i++ {
		assert.LessOrEqual(t, Base(kinds[i-1]), Base(kinds[i]))
	}
}
