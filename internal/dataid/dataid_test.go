package dataid

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExpandRange(t *testing.T) {
	t.Run("default stride", func(t *testing.T) {
		ids, err := ParseTokens("--id", []string{"visit=0..4"})
		require.NoError(t, err)
		want := []Raw{
			{"visit": "0"}, {"visit": "1"}, {"visit": "2"}, {"visit": "3"}, {"visit": "4"},
		}
		assert.Empty(t, cmp.Diff(want, ids))
	})

	t.Run("explicit stride", func(t *testing.T) {
		ids, err := ParseTokens("--id", []string{"visit=1..5:2"})
		require.NoError(t, err)
		want := []Raw{{"visit": "1"}, {"visit": "3"}, {"visit": "5"}}
		assert.Empty(t, cmp.Diff(want, ids))
	})

	t.Run("ranges mix with literals", func(t *testing.T) {
		ids, err := ParseTokens("--id", []string{"visit=0^2..4^7"})
		require.NoError(t, err)
		want := []Raw{{"visit": "0"}, {"visit": "2"}, {"visit": "3"}, {"visit": "4"}, {"visit": "7"}}
		assert.Empty(t, cmp.Diff(want, ids))
	})

	t.Run("non-range values stay literal", func(t *testing.T) {
		ids, err := ParseTokens("--id", []string{"ccd=1,1^2..x"})
		require.NoError(t, err)
		want := []Raw{{"ccd": "1,1"}, {"ccd": "2..x"}}
		assert.Empty(t, cmp.Diff(want, ids))
	})

	t.Run("zero stride is an error", func(t *testing.T) {
		_, err := ParseTokens("--id", []string{"visit=1..5:0"})
		assert.ErrorContains(t, err, "stride")
	})
}

func TestCrossProduct(t *testing.T) {
	t.Run("key-major order, last key fastest", func(t *testing.T) {
		ids, err := ParseTokens("--id", []string{"visit=1^2", "ccd=1,1^2,2"})
		require.NoError(t, err)
		// The exact order matters: callers compare against golden output.
		want := []Raw{
			{"visit": "1", "ccd": "1,1"},
			{"visit": "1", "ccd": "2,2"},
			{"visit": "2", "ccd": "1,1"},
			{"visit": "2", "ccd": "2,2"},
		}
		assert.Empty(t, cmp.Diff(want, ids))
	})

	t.Run("three keys", func(t *testing.T) {
		ids, err := ParseTokens("--id", []string{"a=1^2", "b=x", "c=3^4"})
		require.NoError(t, err)
		want := []Raw{
			{"a": "1", "b": "x", "c": "3"},
			{"a": "1", "b": "x", "c": "4"},
			{"a": "2", "b": "x", "c": "3"},
			{"a": "2", "b": "x", "c": "4"},
		}
		assert.Empty(t, cmp.Diff(want, ids))
	})

	t.Run("no tokens yield no identifiers", func(t *testing.T) {
		ids, err := ParseTokens("--id", nil)
		require.NoError(t, err)
		assert.Empty(t, ids)
	})
}

func TestParseTokensErrors(t *testing.T) {
	cases := []struct {
		name  string
		token string
	}{
		{"missing equals", "visit"},
		{"empty value", "visit="},
		{"empty key", "=1"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := ParseTokens("--id", []string{tc.token})
			require.Error(t, err)
			assert.ErrorContains(t, err, tc.token)
			assert.ErrorContains(t, err, "--id")
		})
	}
}
