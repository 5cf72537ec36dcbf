package sidecar_test

import (
	. "github.com/cordialsys/substrate-sidecar"
	"github.com/cordialsys/substrate-sidecar/errors"
)

func (s *SidecarTestSuite) TestParseBlockIDHeight() {
	require := s.Require()
	id, err := ParseBlockID("12345")
	require.NoError(err)
	require.True(id.IsHeight)
	require.False(id.IsHash)
	require.EqualValues(12345, id.AsHeight)
	require.Equal("12345", id.String())
}

func (s *SidecarTestSuite) TestParseBlockIDHash() {
	require := s.Require()
	raw := "0x6beb3ab0acb5d4ec7ec72e0c3b6fe2a575c9e55ad4b6ef52a56c2b17b0bab2e3"
	id, err := ParseBlockID(raw)
	require.NoError(err)
	require.True(id.IsHash)
	require.False(id.IsHeight)
	require.Equal(raw, id.String())
}

func (s *SidecarTestSuite) TestParseBlockIDRejectsGarbage() {
	require := s.Require()
	for _, raw := range []string{"", "-1", "12x", "head", "0x123", "0xnothex"} {
		_, err := ParseBlockID(raw)
		require.Error(err, raw)
		require.Equal(errors.InvalidBlockID, errors.StatusOf(err), raw)
	}
}
