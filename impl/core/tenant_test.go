package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tgmon/entity"
)

func TestValidateWatchRefs(t *testing.T) {
	groups := []*entity.Group{{Id: "g1"}, {Id: "g2"}}
	destinations := []*entity.Destination{{Id: "d1"}}

	ok := &entity.WatchUserCreate{
		Username:       "alice",
		GroupIds:       []string{"g1", "g2"},
		DestinationIds: []string{"d1"},
	}
	require.NoError(t, validateWatchRefs(ok, groups, destinations))

	badGroup := &entity.WatchUserCreate{
		Username: "alice",
		GroupIds: []string{"g1", "missing"},
	}
	err := validateWatchRefs(badGroup, groups, destinations)
	require.Error(t, err)
	assert.ErrorIs(t, err, entity.ErrValidation)
	assert.Contains(t, err.Error(), "missing")

	badDest := &entity.WatchUserCreate{
		Username:       "alice",
		DestinationIds: []string{"d2"},
	}
	err = validateWatchRefs(badDest, groups, destinations)
	require.Error(t, err)
	assert.ErrorIs(t, err, entity.ErrValidation)

	// empty reference lists mean "all groups", nothing to resolve
	empty := &entity.WatchUserCreate{Username: "alice"}
	assert.NoError(t, validateWatchRefs(empty, nil, nil))
}
