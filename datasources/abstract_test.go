package datasources

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCleanAbstract(t *testing.T) {
	t.Run("strips embedded markup", func(t *testing.T) {
		in := "This award studies groundwater.<br/><br/>It also studies <b>contamination</b>."
		got := CleanAbstract(in)

		assert.Equal(t, "This award studies groundwater. It also studies contamination.", got)
	})

	t.Run("decodes entity escapes", func(t *testing.T) {
		got := CleanAbstract("salt &amp; fresh water")
		assert.Equal(t, "salt & fresh water", got)
	})

	t.Run("collapses whitespace in plain text", func(t *testing.T) {
		got := CleanAbstract("groundwater   contamination\n\ntransport")
		assert.Equal(t, "groundwater contamination transport", got)
	})

	t.Run("empty input stays empty", func(t *testing.T) {
		assert.Empty(t, CleanAbstract(""))
	})
}
