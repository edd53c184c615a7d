package advertising

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/autoparts-market/backend/pkg/apperr"
)

func TestFlagUnmarshal(t *testing.T) {
	cases := map[string]bool{
		`{"status": true}`:    true,
		`{"status": false}`:   false,
		`{"status": "true"}`:  true,
		`{"status": "FALSE"}`: false,
		`{"status": "True"}`:  true,
	}
	for body, want := range cases {
		var in Input
		require.NoError(t, json.Unmarshal([]byte(body), &in), body)
		require.NotNil(t, in.Status, body)
		assert.Equal(t, want, in.Status.Bool(), body)
	}
}

func TestFlagRejectsAnythingElse(t *testing.T) {
	for _, body := range []string{
		`{"status": "yes"}`,
		`{"status": "1"}`,
		`{"status": 1}`,
		`{"status": ""}`,
	} {
		var in Input
		err := json.Unmarshal([]byte(body), &in)
		require.Error(t, err, body)
		assert.True(t, errors.Is(err, apperr.ErrValidation), body)
	}
}

func TestFlagAbsentIsNil(t *testing.T) {
	var in Input
	require.NoError(t, json.Unmarshal([]byte(`{"link": "x"}`), &in))
	assert.Nil(t, in.Status)
	assert.False(t, in.Status.Bool())
}
