package postgres_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cory-johannsen/rpcombat/internal/game/character"
	"github.com/cory-johannsen/rpcombat/internal/game/effect"
	"github.com/cory-johannsen/rpcombat/internal/game/stats"
	"github.com/cory-johannsen/rpcombat/internal/storage/postgres"
	"github.com/cory-johannsen/rpcombat/internal/testutil"
)

func makeState(name string) character.State {
	at := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	return character.State{
		Name:       name,
		Attributes: stats.Attributes{Physical: 4, Dexterity: 3, Mental: 2, Perception: 5},
		MaxHP:      30,
		CurrentHP:  24,
		Roleplay:   true,
		Powers:     []string{"strike", "mend"},
		Effects: []effect.Active{
			{
				EffectID:    "guarded",
				Name:        "Guarded",
				Category:    effect.Defense,
				Duration:    effect.Turns(2),
				AppliedAt:   at,
				Attribution: effect.Attribution{CasterName: "Ilsa", SourceType: "ability", SourceID: "shield_wall"},
			},
			{
				EffectID:  "warded",
				Name:      "Warded",
				Category:  effect.Defense,
				Duration:  effect.Scene(),
				AppliedAt: at.Add(time.Second),
			},
		},
	}
}

func TestCharacterRepository(t *testing.T) {
	pc := testutil.NewPostgresContainer(t)
	repo := postgres.NewCharacterRepository(pc.Pool.DB())
	ctx := context.Background()

	t.Run("create assigns id and round trips effects", func(t *testing.T) {
		created, err := repo.Create(ctx, makeState("Ilsa"))
		require.NoError(t, err)
		assert.NotEmpty(t, created.ID)
		assert.False(t, created.UpdatedAt.IsZero())

		got, err := repo.Get(ctx, created.ID)
		require.NoError(t, err)
		assert.Equal(t, "Ilsa", got.Name)
		assert.Equal(t, 24, got.CurrentHP)
		assert.Equal(t, []string{"strike", "mend"}, got.Powers)
		require.Len(t, got.Effects, 2)
		assert.Equal(t, 2, got.Effects[0].Duration.Remaining())
		assert.True(t, got.Effects[1].Duration.IsScene())
		assert.Equal(t, "shield_wall", got.Effects[0].Attribution.SourceID)
		assert.True(t, got.Live.IsEmpty())
	})

	t.Run("get unknown id", func(t *testing.T) {
		_, err := repo.Get(ctx, "no-such-character")
		assert.ErrorIs(t, err, postgres.ErrCharacterNotFound)
	})

	t.Run("create rejects invalid state", func(t *testing.T) {
		s := makeState("Broken")
		s.CurrentHP = 99
		_, err := repo.Create(ctx, s)
		assert.Error(t, err)
	})

	t.Run("save and load many", func(t *testing.T) {
		a, err := repo.Create(ctx, makeState("Ana"))
		require.NoError(t, err)
		b, err := repo.Create(ctx, makeState("Bram"))
		require.NoError(t, err)

		a.CurrentHP = 0
		a.Effects = nil
		b.Effects = b.Effects[:1]
		b.Effects[0].Duration = effect.Turns(1)
		require.NoError(t, repo.SaveAll(ctx, []character.State{a, b}))

		got, err := repo.LoadMany(ctx, []string{a.ID, b.ID, "missing"})
		require.NoError(t, err)
		require.Len(t, got, 2)
		assert.Equal(t, 0, got[a.ID].CurrentHP)
		assert.Empty(t, got[a.ID].Effects)
		require.Len(t, got[b.ID].Effects, 1)
		assert.Equal(t, 1, got[b.ID].Effects[0].Duration.Remaining())
	})

	t.Run("save all is atomic", func(t *testing.T) {
		a, err := repo.Create(ctx, makeState("Cato"))
		require.NoError(t, err)
		a.CurrentHP = 1
		ghost := makeState("Ghost")
		ghost.ID = "ghost"

		err = repo.SaveAll(ctx, []character.State{a, ghost})
		assert.ErrorIs(t, err, postgres.ErrCharacterNotFound)

		got, err := repo.Get(ctx, a.ID)
		require.NoError(t, err)
		assert.Equal(t, 24, got.CurrentHP)
	})

	t.Run("set roleplay", func(t *testing.T) {
		a, err := repo.Create(ctx, makeState("Dara"))
		require.NoError(t, err)
		require.NoError(t, repo.SetRoleplay(ctx, a.ID, false))
		got, err := repo.Get(ctx, a.ID)
		require.NoError(t, err)
		assert.False(t, got.Roleplay)
		assert.ErrorIs(t, repo.SetRoleplay(ctx, "missing", true), postgres.ErrCharacterNotFound)
	})
}

func TestRelationshipRepository(t *testing.T) {
	pc := testutil.NewPostgresContainer(t)
	chars := postgres.NewCharacterRepository(pc.Pool.DB())
	repo := postgres.NewRelationshipRepository(pc.Pool.DB())
	ctx := context.Background()

	ids := make([]string, 0, 3)
	for _, name := range []string{"Ana", "Bram", "Cato"} {
		s := makeState(name)
		s.ID = name
		created, err := chars.Create(ctx, s)
		require.NoError(t, err)
		ids = append(ids, created.ID)
	}

	require.NoError(t, repo.Set(ctx, ids[0], ids[1], postgres.Ally))
	require.NoError(t, repo.Set(ctx, ids[0], ids[2], postgres.Enemy))

	rel, err := repo.Relations(ctx, ids[0])
	require.NoError(t, err)
	assert.Equal(t, []string{"Bram"}, rel.Allies)
	assert.Equal(t, []string{"Cato"}, rel.Enemies)

	require.NoError(t, repo.Set(ctx, ids[0], ids[1], postgres.Enemy))
	rel, err = repo.Relations(ctx, ids[0])
	require.NoError(t, err)
	assert.Empty(t, rel.Allies)
	assert.Equal(t, []string{"Bram", "Cato"}, rel.Enemies)

	require.NoError(t, repo.Clear(ctx, ids[0], ids[2]))
	rel, err = repo.Relations(ctx, ids[0])
	require.NoError(t, err)
	assert.Equal(t, []string{"Bram"}, rel.Enemies)

	assert.Error(t, repo.Set(ctx, ids[0], ids[1], postgres.Relation("rival")))

	rel, err = repo.Relations(ctx, ids[1])
	require.NoError(t, err)
	assert.Empty(t, rel.Allies)
	assert.Empty(t, rel.Enemies)
}
