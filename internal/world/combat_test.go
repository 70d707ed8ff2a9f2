package world

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/annel0/mmo-sim/internal/content"
	"github.com/annel0/mmo-sim/internal/vec"
)

func testBook() *AbilityBook {
	return NewAbilityBook([]content.AbilityDef{
		{ID: "strike", Damage: 10, Range: 2.5, Cooldown: time.Second},
		{ID: "fireball", Damage: 30, ManaCost: 20, Range: 10},
		{ID: "mend", Heal: 15, ManaCost: 5},
		{ID: "punch", Damage: 3},
	})
}

func TestAbilityBookCast(t *testing.T) {
	book := testBook()
	near := CastRequest{CasterID: 1, TargetID: 2, CasterPos: vec.New(0, 0, 0), TargetPos: vec.New(2, 0, 0), CasterMana: 50}

	cases := []struct {
		name    string
		ability string
		mutate  func(r *CastRequest)
		reason  string
		deltas  []Delta
	}{
		{name: "unknown", ability: "nope", reason: ReasonUnknownAbility},
		{name: "no target", ability: "strike", mutate: func(r *CastRequest) { r.TargetID = 0 }, reason: ReasonNoTarget},
		{name: "out of range", ability: "strike", mutate: func(r *CastRequest) { r.TargetPos = vec.New(5, 0, 0) }, reason: ReasonOutOfRange},
		{name: "no mana", ability: "fireball", mutate: func(r *CastRequest) { r.CasterMana = 10 }, reason: ReasonNoMana},
		{name: "strike", ability: "strike", deltas: []Delta{{EntityID: 2, Health: -10}}},
		{name: "fireball", ability: "fireball", deltas: []Delta{{EntityID: 1, Mana: -20}, {EntityID: 2, Health: -30}}},
		{name: "self heal", ability: "mend", mutate: func(r *CastRequest) { r.TargetID = 0 }, deltas: []Delta{{EntityID: 1, Health: 15, Mana: -5}}},
		{name: "unlimited range", ability: "punch", mutate: func(r *CastRequest) { r.TargetPos = vec.New(100, 0, 0) }, deltas: []Delta{{EntityID: 2, Health: -3}}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := near
			req.AbilityID = tc.ability
			if tc.mutate != nil {
				tc.mutate(&req)
			}
			res := book.Cast(req)
			if tc.reason != "" {
				assert.False(t, res.OK)
				assert.Equal(t, tc.reason, res.Reason)
				assert.Empty(t, res.Deltas)
				return
			}
			assert.True(t, res.OK)
			assert.Equal(t, tc.deltas, res.Deltas)
		})
	}
}

func TestAbilityBookCooldown(t *testing.T) {
	res := testBook().Cast(CastRequest{CasterID: 1, AbilityID: "strike", TargetID: 2})
	assert.True(t, res.OK)
	assert.Equal(t, time.Second, res.Cooldown)

	_, ok := testBook().Ability("mend")
	assert.True(t, ok)
}
