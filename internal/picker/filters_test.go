package picker_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.trai.ch/daopilot/internal/core/domain"
	"go.trai.ch/daopilot/internal/core/ports/mocks"
	"go.trai.ch/daopilot/internal/picker"
	"go.uber.org/mock/gomock"
)

func TestFlagMapFilter(t *testing.T) {
	ctrl := gomock.NewController(t)
	flagMap := mocks.NewMockFlagMap(ctrl)
	flagMap.EXPECT().Flagged(100, 100).Return(false)
	flagMap.EXPECT().Flagged(200, 200).Return(true)
	flagMap.EXPECT().Flagged(300, 300).Return(false)

	cat := newCatalog()
	set := domain.NewCandidateSet([]int{1, 2, 3})

	f := &picker.FlagMapFilter{Map: flagMap}
	require.NoError(t, f.Apply(set, cat))

	assert.Equal(t, []int{1, 3}, set.IDs())
}

func TestFlagMapFilter_RoundsPositions(t *testing.T) {
	ctrl := gomock.NewController(t)
	flagMap := mocks.NewMockFlagMap(ctrl)
	flagMap.EXPECT().Flagged(101, 100).Return(false)

	cat := newCatalog()
	cat.Add(domain.ApStar{ID: 9, X: 100.7, Y: 99.5, Mag: 14})
	set := domain.NewCandidateSet([]int{9})

	f := &picker.FlagMapFilter{Map: flagMap}
	require.NoError(t, f.Apply(set, cat))
	assert.Equal(t, []int{9}, set.IDs())
}

func TestBrightNeighbourFilter(t *testing.T) {
	cat := newCatalog()
	set := domain.NewCandidateSet([]int{1, 2, 3, 4})

	f := &picker.BrightNeighbourFilter{
		Bright: []domain.Position{{X: 210, Y: 210}},
		Radius: 20,
	}
	require.NoError(t, f.Apply(set, cat))

	// Star 2 at (200, 200) is within 20 px of the bright star.
	assert.Equal(t, []int{1, 3, 4}, set.IDs())
}

func TestBrightNeighbourFilter_NoBrightStars(t *testing.T) {
	cat := newCatalog()
	set := domain.NewCandidateSet([]int{1, 2})

	f := &picker.BrightNeighbourFilter{Radius: 50}
	require.NoError(t, f.Apply(set, cat))
	assert.Equal(t, []int{1, 2}, set.IDs())
}

func TestFiltersDropUnknownStars(t *testing.T) {
	cat := newCatalog()
	set := domain.NewCandidateSet([]int{1, 42})

	f := &picker.BrightNeighbourFilter{Radius: 10}
	require.NoError(t, f.Apply(set, cat))
	assert.Equal(t, []int{1}, set.IDs())
}
