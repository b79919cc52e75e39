package gameserver_test

import (
	"context"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/trace/noop"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/cory-johannsen/rpcombat/internal/game/ability"
	"github.com/cory-johannsen/rpcombat/internal/game/catalog"
	"github.com/cory-johannsen/rpcombat/internal/game/character"
	"github.com/cory-johannsen/rpcombat/internal/game/dice"
	"github.com/cory-johannsen/rpcombat/internal/game/effect"
	"github.com/cory-johannsen/rpcombat/internal/game/stats"
	"github.com/cory-johannsen/rpcombat/internal/gameserver"
	"github.com/cory-johannsen/rpcombat/internal/scripting"
	"github.com/cory-johannsen/rpcombat/internal/storage/postgres"
)

type memStore struct {
	mu     sync.Mutex
	states map[string]character.State
	saves  int
}

func (m *memStore) Get(_ context.Context, id string) (character.State, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.states[id]
	if !ok {
		return character.State{}, postgres.ErrCharacterNotFound
	}
	s.Live = effect.LiveStats{}
	return s.Clone(), nil
}

func (m *memStore) LoadMany(_ context.Context, ids []string) (map[string]character.State, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[string]character.State, len(ids))
	for _, id := range ids {
		if s, ok := m.states[id]; ok {
			s.Live = effect.LiveStats{}
			out[id] = s.Clone()
		}
	}
	return out, nil
}

func (m *memStore) SaveAll(_ context.Context, states []character.State) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, s := range states {
		if _, ok := m.states[s.ID]; !ok {
			return postgres.ErrCharacterNotFound
		}
		m.states[s.ID] = s.Clone()
	}
	m.saves++
	return nil
}

func (m *memStore) get(id string) character.State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.states[id]
}

type memRelations map[string]postgres.Relations

func (m memRelations) Relations(_ context.Context, id string) (postgres.Relations, error) {
	return m[id], nil
}

func newState(id string, powers ...string) character.State {
	return character.State{
		ID:         id,
		Name:       id,
		Attributes: stats.Attributes{Physical: 4, Dexterity: 1, Mental: 2, Perception: 2},
		MaxHP:      30,
		CurrentHP:  30,
		Roleplay:   true,
		Powers:     powers,
	}
}

type harness struct {
	store  *memStore
	client *gameserver.CombatClient
}

func newHarness(t *testing.T, apiKeyHash string, states ...character.State) *harness {
	t.Helper()
	cat, err := catalog.Load(context.Background(), catalog.Options{
		EffectsDir:   "../../content/effects",
		AbilitiesDir: "../../content/abilities",
	}, zap.NewNop())
	require.NoError(t, err)

	store := &memStore{states: make(map[string]character.State)}
	for _, s := range states {
		store.states[s.ID] = s
	}
	rel := memRelations{"ana": {Allies: []string{"cato"}, Enemies: []string{"bram"}}}

	act := ability.NewActivator(cat.Abilities, cat.Effects, stats.DefaultTierTable(),
		dice.NewSequenceSource(15, 5),
		scripting.NewFormulaEvaluator(scripting.DefaultInstructionLimit, zap.NewNop()),
	)
	tracer := noop.NewTracerProvider().Tracer("test")
	svc := gameserver.NewService(act, store, rel, gameserver.NewKeyedMutex(), tracer, zap.NewNop())
	srv := gameserver.NewGRPCServer(gameserver.NewCombatServer(svc), apiKeyHash, 5*time.Second, tracer, zap.NewNop())

	lis := bufconn.Listen(1 << 20)
	go func() { _ = srv.Serve(lis) }()
	t.Cleanup(srv.Stop)

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
			return lis.DialContext(ctx)
		}),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })

	return &harness{store: store, client: gameserver.NewCombatClient(conn)}
}

func mustStruct(t *testing.T, m map[string]any) *structpb.Struct {
	t.Helper()
	s, err := structpb.NewStruct(m)
	require.NoError(t, err)
	return s
}

func effectIDs(s character.State) []string {
	out := make([]string, 0, len(s.Effects))
	for _, a := range s.Effects {
		out = append(out, a.EffectID)
	}
	return out
}

func TestActivateAbility_StrikeDamagesEnemy(t *testing.T) {
	h := newHarness(t, "", newState("ana"), newState("bram"))

	out, err := h.client.ActivateAbility(context.Background(), mustStruct(t, map[string]any{
		"ability_id": "strike",
		"mode":       "attack",
		"caster_id":  "ana",
		"target_id":  "bram",
	}))
	require.NoError(t, err)

	m := out.AsMap()
	assert.Equal(t, "strike", m["ability_id"])
	targets := m["targets"].([]any)
	require.Len(t, targets, 1)
	target := targets[0].(map[string]any)
	assert.Equal(t, "bram", target["target_id"])
	check := target["check"].(map[string]any)
	assert.Equal(t, true, check["success"])
	assert.Contains(t, check, "opposed")

	bram := h.store.get("bram")
	assert.Less(t, bram.CurrentHP, 30)
	result := target["result"].(map[string]any)
	assert.Equal(t, float64(bram.CurrentHP-30), result["hp_delta"])
}

func TestActivateAbility_ShieldWallReachesAllies(t *testing.T) {
	h := newHarness(t, "", newState("ana", "shield_wall"), newState("bram"), newState("cato"))

	_, err := h.client.ActivateAbility(context.Background(), mustStruct(t, map[string]any{
		"ability_id": "shield_wall",
		"caster_id":  "ana",
	}))
	require.NoError(t, err)

	assert.Equal(t, []string{"guarded"}, effectIDs(h.store.get("ana")))
	assert.Equal(t, []string{"guarded"}, effectIDs(h.store.get("cato")))
	assert.Empty(t, h.store.get("bram").Effects)
}

func TestActivateAbility_Rejections(t *testing.T) {
	notRoleplaying := newState("cato", "shield_wall")
	notRoleplaying.Roleplay = false
	h := newHarness(t, "", newState("ana"), newState("bram"), notRoleplaying)

	cases := []struct {
		name string
		in   map[string]any
		code codes.Code
	}{
		{"unknown caster", map[string]any{"ability_id": "strike", "caster_id": "zed", "target_id": "bram"}, codes.NotFound},
		{"unknown ability", map[string]any{"ability_id": "fireball", "caster_id": "ana", "target_id": "bram"}, codes.NotFound},
		{"unowned ability", map[string]any{"ability_id": "shield_wall", "caster_id": "ana"}, codes.InvalidArgument},
		{"not in roleplay", map[string]any{"ability_id": "shield_wall", "caster_id": "cato"}, codes.InvalidArgument},
		{"bad mode", map[string]any{"ability_id": "strike", "mode": "kick", "caster_id": "ana", "target_id": "bram"}, codes.InvalidArgument},
		{"wrong field type", map[string]any{"ability_id": 7.0, "caster_id": "ana"}, codes.InvalidArgument},
		{"missing caster", map[string]any{"ability_id": "strike"}, codes.InvalidArgument},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := h.client.ActivateAbility(context.Background(), mustStruct(t, tc.in))
			require.Error(t, err)
			assert.Equal(t, tc.code, status.Code(err))
		})
	}
	assert.Zero(t, h.store.saves)
}

func TestProcessTurn_DecrementsAndPersists(t *testing.T) {
	ana := newState("ana")
	ana.Effects = []effect.Active{
		{EffectID: "guarded", Name: "Guarded", Category: effect.Defense, Duration: effect.Turns(2)},
	}
	h := newHarness(t, "", ana)

	out, err := h.client.ProcessTurn(context.Background(), mustStruct(t, map[string]any{"character_id": "ana"}))
	require.NoError(t, err)
	assert.Equal(t, float64(1), out.AsMap()["remaining"])

	stored := h.store.get("ana")
	require.Len(t, stored.Effects, 1)
	assert.Equal(t, 1, stored.Effects[0].Duration.Remaining())

	_, err = h.client.ProcessTurn(context.Background(), mustStruct(t, map[string]any{"character_id": "ana"}))
	require.NoError(t, err)
	assert.Empty(t, h.store.get("ana").Effects)
}

func TestEndScene_RemovesSceneEffects(t *testing.T) {
	ana := newState("ana")
	ana.Effects = []effect.Active{
		{EffectID: "warded", Name: "Warded", Category: effect.Defense, Duration: effect.Scene()},
		{EffectID: "guarded", Name: "Guarded", Category: effect.Defense, Duration: effect.Turns(2)},
	}
	h := newHarness(t, "", ana, newState("bram"))

	out, err := h.client.EndScene(context.Background(), mustStruct(t, map[string]any{
		"character_ids": []any{"bram", "ana"},
	}))
	require.NoError(t, err)
	chars := out.AsMap()["characters"].([]any)
	require.Len(t, chars, 2)
	assert.Equal(t, []string{"guarded"}, effectIDs(h.store.get("ana")))

	_, err = h.client.EndScene(context.Background(), mustStruct(t, map[string]any{"character_ids": []any{}}))
	assert.Equal(t, codes.InvalidArgument, status.Code(err))
}

func TestGetCharacter_RebuildsLiveStats(t *testing.T) {
	ana := newState("ana")
	ana.Effects = []effect.Active{
		{EffectID: "guarded", Name: "Guarded", Category: effect.Defense, Duration: effect.Turns(2)},
	}
	h := newHarness(t, "", ana)

	out, err := h.client.GetCharacter(context.Background(), mustStruct(t, map[string]any{"character_id": "ana"}))
	require.NoError(t, err)
	live := out.AsMap()["live"].(map[string]any)
	assert.Equal(t, float64(2), live["damage_reduction"])

	_, err = h.client.GetCharacter(context.Background(), mustStruct(t, map[string]any{"character_id": "nobody"}))
	assert.Equal(t, codes.NotFound, status.Code(err))
}

func TestAPIKeyInterceptor(t *testing.T) {
	hash, err := bcrypt.GenerateFromPassword([]byte("s3cret"), bcrypt.MinCost)
	require.NoError(t, err)
	h := newHarness(t, string(hash), newState("ana"))
	req := mustStruct(t, map[string]any{"character_id": "ana"})

	_, err = h.client.GetCharacter(context.Background(), req)
	assert.Equal(t, codes.Unauthenticated, status.Code(err))

	bad := metadata.AppendToOutgoingContext(context.Background(), gameserver.APIKeyHeader, "guess")
	_, err = h.client.GetCharacter(bad, req)
	assert.Equal(t, codes.Unauthenticated, status.Code(err))

	good := metadata.AppendToOutgoingContext(context.Background(), gameserver.APIKeyHeader, "s3cret")
	_, err = h.client.GetCharacter(good, req)
	assert.NoError(t, err)
}
