package implementations

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/annel0/tileworld/internal/world/block"
)

func TestDefaultRegistryFilled(t *testing.T) {
	r := block.DefaultRegistry()
	assert.Equal(t, len(All()), r.Len())

	air := r.Air()
	require.NotNil(t, air)
	assert.Equal(t, "Air", air.Name())
	assert.False(t, air.Solid())
	assert.Zero(t, air.BreakTime())

	// Экземпляры интернированы: повторный Get возвращает тот же объект
	a, _ := block.Get(block.StoneID)
	b, _ := block.Get(block.StoneID)
	assert.Same(t, a, b)
}

func TestBlockProperties(t *testing.T) {
	cases := []struct {
		b         block.Block
		solid     bool
		climbable bool
		viscosity float32
		breakTime float32
	}{
		{NewStone(), true, false, 0, 1.5},
		{NewWater(), false, true, 0.07, 0},
		{NewLava(), false, true, 0.5, 0},
		{NewSnow(), true, false, 0, 0.75},
		{NewLeaves(), false, true, 0, 0.2},
	}

	for _, tc := range cases {
		t.Run(tc.b.Name(), func(t *testing.T) {
			assert.Equal(t, tc.solid, tc.b.Solid())
			assert.Equal(t, tc.climbable, tc.b.Climbable())
			assert.Equal(t, tc.viscosity, tc.b.Viscosity())
			assert.Equal(t, tc.breakTime, tc.b.BreakTime())
		})
	}

	assert.True(t, math.IsInf(float64(NewBedrock().BreakTime()), 1))
	assert.Equal(t, block.LavaID, NewLava().ID())
}

func TestAtlasPositions(t *testing.T) {
	assert.Equal(t, block.Texture{Col: 13, Row: 12}, NewWater().Texture())
	assert.Equal(t, block.Texture{Col: 14, Row: 12}, NewLava().Texture())
	assert.Equal(t, block.Texture{Col: 2, Row: 4}, NewSnow().Texture())
}

func TestRegistryRejectsDuplicates(t *testing.T) {
	r := block.NewRegistry()
	require.NoError(t, RegisterAll(r))
	assert.Error(t, RegisterAll(r), "повторная регистрация должна вернуть ошибку")

	custom := block.NewCustom(block.Props{ID: 150, Name: "stone"})
	assert.Error(t, r.Register(custom), "имя занято без учёта регистра")

	glass := block.NewCustom(block.Props{ID: 150, Name: "Glass", Texture: block.Texture{Col: 3, Row: 1}})
	require.NoError(t, r.Register(glass))

	got, ok := r.ByName("GLASS")
	require.True(t, ok)
	assert.True(t, got.Solid())
	assert.Equal(t, block.Texture{Col: 3, Row: 1}, got.Texture())

	all := r.All()
	assert.Equal(t, block.AirID, all[0].ID())
	assert.Equal(t, block.ID(150), all[len(all)-1].ID())

	clone := r.Clone()
	require.NoError(t, clone.Register(block.NewCustom(block.Props{ID: 151, Name: "Brick"})))
	_, inOriginal := r.Get(151)
	assert.False(t, inOriginal)
}
