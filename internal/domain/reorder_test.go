package domain_test

import (
	"testing"

	"github.com/keilmann/allowance-tracker-go/internal/domain"

	"github.com/stretchr/testify/assert"
)

func TestApplyMove(t *testing.T) {
	order := []string{"a", "b", "c", "d"}

	cases := []struct {
		name string
		ev   domain.MoveEvent
		want []string
	}{
		{"move forward", domain.MoveEvent{ID: "a", To: 2}, []string{"b", "c", "a", "d"}},
		{"move backward", domain.MoveEvent{ID: "d", To: 0}, []string{"d", "a", "b", "c"}},
		{"move to same spot", domain.MoveEvent{ID: "b", To: 1}, []string{"a", "b", "c", "d"}},
		{"clamp above", domain.MoveEvent{ID: "a", To: 99}, []string{"b", "c", "d", "a"}},
		{"clamp below", domain.MoveEvent{ID: "c", To: -5}, []string{"c", "a", "b", "d"}},
		{"unknown id", domain.MoveEvent{ID: "ghost", To: 1}, []string{"a", "b", "c", "d"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := domain.ApplyMove(order, tc.ev)
			assert.Equal(t, tc.want, got)
			// Input is never mutated.
			assert.Equal(t, []string{"a", "b", "c", "d"}, order)
		})
	}
}

func TestApplyMove_EmptyOrder(t *testing.T) {
	got := domain.ApplyMove(nil, domain.MoveEvent{ID: "x", To: 0})
	assert.Empty(t, got)
}
