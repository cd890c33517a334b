package cache

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestPolicy_Exceeded(t *testing.T) {
	tests := []struct {
		name   string
		policy Policy
		count  int
		want   bool
	}{
		{"default at max", DefaultPolicy(), 50, false},
		{"default inside buffer", DefaultPolicy(), 55, false},
		{"default past buffer", DefaultPolicy(), 56, true},
		{"zero buffer", BoundedPolicy(3, 0), 4, true},
		{"zero max", BoundedPolicy(0, 0), 1, true},
		{"empty", BoundedPolicy(0, 0), 0, false},
		{"unbounded", UnboundedPolicy(), 1 << 20, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.policy.Exceeded(tt.count))
		})
	}
}

func TestPolicy_Victims(t *testing.T) {
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	at := func(s int) time.Time { return base.Add(time.Duration(s) * time.Second) }

	t.Run("oldest first, down to max", func(t *testing.T) {
		entries := []Entry{
			{Name: "e", Timestamp: at(5)},
			{Name: "a", Timestamp: at(1)},
			{Name: "f", Timestamp: at(6)},
			{Name: "c", Timestamp: at(3)},
			{Name: "b", Timestamp: at(2)},
			{Name: "d", Timestamp: at(4)},
		}
		assert.Equal(t, []string{"a", "b", "c"}, BoundedPolicy(3, 2).Victims(entries))
	})

	t.Run("ties broken by name", func(t *testing.T) {
		entries := []Entry{
			{Name: "zeta", Timestamp: at(1)},
			{Name: "alpha", Timestamp: at(1)},
			{Name: "mid", Timestamp: at(1)},
			{Name: "new", Timestamp: at(2)},
		}
		assert.Equal(t, []string{"alpha", "mid"}, BoundedPolicy(2, 0).Victims(entries))
	})

	t.Run("does not reorder input", func(t *testing.T) {
		entries := []Entry{{Name: "b", Timestamp: at(2)}, {Name: "a", Timestamp: at(1)}}
		BoundedPolicy(1, 0).Victims(entries)
		assert.Equal(t, "b", entries[0].Name)
	})

	t.Run("nothing over max", func(t *testing.T) {
		entries := []Entry{{Name: "a", Timestamp: at(1)}}
		assert.Empty(t, BoundedPolicy(1, 0).Victims(entries))
	})

	t.Run("unbounded never evicts", func(t *testing.T) {
		entries := []Entry{{Name: "a", Timestamp: at(1)}, {Name: "b", Timestamp: at(2)}}
		assert.Nil(t, UnboundedPolicy().Victims(entries))
	})
}

func TestEvictionReport_Ran(t *testing.T) {
	assert.False(t, EvictionReport{Count: 10}.Ran())
	assert.True(t, EvictionReport{Evicted: []string{"a"}}.Ran())
	assert.True(t, EvictionReport{Failed: map[string]error{"a": assert.AnError}}.Ran())
}
